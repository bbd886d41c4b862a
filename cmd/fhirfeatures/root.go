package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gyeh/fhirfeatures/internal/config"
)

// envPrefix namespaces the environment variables that back every flag,
// e.g. --dsn ↔ FHIRFEATURES_DSN, --batch-size ↔ FHIRFEATURES_BATCH_SIZE.
const envPrefix = "FHIRFEATURES"

var (
	cfg        config.Config
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "fhirfeatures",
	Short: "FHIR bundle → per-patient readmission feature table",
	Long: "Reads directories of FHIR JSON bundles, aggregates clinical resources per patient " +
		"and writes one feature row per patient as CSV, Parquet or Postgres.",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfg.DSN, "dsn", "", "Postgres connection string (or set FHIRFEATURES_DSN)")
	pf.StringVar(&cfg.LogFormat, "log-format", "text", "Log format: text or json")
	pf.StringVar(&cfg.LogLevel, "log-level", "info", "Log level: debug, info, warn or error")
	pf.StringVar(&configFile, "config", "", "YAML file extending the lab code and chronic condition tables")
	pf.IntVar(&cfg.Workers, "workers", 4, "Documents parsed in parallel")
	pf.IntVar(&cfg.BatchSize, "batch-size", 256, "Documents per aggregation batch")
}

// loadConfig fills unset flags from FHIRFEATURES_* variables and applies the
// --config file. Flags given on the command line always win.
func loadConfig(cmd *cobra.Command, args []string) error {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}

	has := func(name string) bool { return cmd.Flags().Lookup(name) != nil }
	for name, dst := range map[string]*string{
		"dsn":        &cfg.DSN,
		"log-format": &cfg.LogFormat,
		"log-level":  &cfg.LogLevel,
		"config":     &configFile,
		"source":     &cfg.SourceRoot,
		"out":        &cfg.OutputPath,
		"format":     &cfg.Format,
	} {
		if has(name) {
			*dst = v.GetString(name)
		}
	}
	for name, dst := range map[string]*int{
		"workers":    &cfg.Workers,
		"batch-size": &cfg.BatchSize,
	} {
		if has(name) {
			*dst = v.GetInt(name)
		}
	}
	if has("force") {
		cfg.Force = v.GetBool("force")
	}

	if configFile != "" {
		if err := cfg.LoadFromFile(configFile); err != nil {
			return err
		}
	}
	return nil
}
