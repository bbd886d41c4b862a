package config

import (
	"fmt"
	"os"

	"github.com/gyeh/fhirfeatures/internal/model"

	"gopkg.in/yaml.v3"
)

// Output formats accepted by --format.
const (
	FormatCSV      = "csv"
	FormatParquet  = "parquet"
	FormatPostgres = "postgres"
)

// Config holds all runtime configuration for a fhirfeatures run.
// It is read once at startup and not re-read during a run.
type Config struct {
	DSN        string
	SourceRoot string
	OutputPath string
	Format     string // "csv", "parquet" or "postgres"
	LogFormat  string // "text" or "json"
	LogLevel   string
	Workers    int
	BatchSize  int
	Force      bool

	LabCodes          []model.Code `yaml:"lab_codes"`          // extends DefaultLabCodes
	ChronicConditions []model.Code `yaml:"chronic_conditions"` // extends DefaultChronicConditions
}

// yamlConfig is the on-disk YAML structure.
type yamlConfig struct {
	LabCodes          []model.Code `yaml:"lab_codes"`
	ChronicConditions []model.Code `yaml:"chronic_conditions"`
}

// LoadFromFile reads a YAML config file and merges its values into Config.
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	if err := validateCodes("lab_codes", yc.LabCodes); err != nil {
		return err
	}
	if err := validateCodes("chronic_conditions", yc.ChronicConditions); err != nil {
		return err
	}
	labs := model.NewCodeTable(append(append([]model.Code{}, model.DefaultLabCodes...), yc.LabCodes...))
	if err := uniqueLabels("lab_codes", labs); err != nil {
		return err
	}
	c.LabCodes = yc.LabCodes
	c.ChronicConditions = yc.ChronicConditions
	return nil
}

// validateCodes checks that every entry has both a code and a label.
func validateCodes(section string, codes []model.Code) error {
	for i, code := range codes {
		if code.Code == "" || code.Label == "" {
			return fmt.Errorf("%s[%d]: code and label are required", section, i)
		}
	}
	return nil
}

// uniqueLabels rejects two codes sharing a label: lab labels name output
// columns, so the second code would overwrite the first one's statistics.
// Chronic condition labels may repeat.
func uniqueLabels(section string, table *model.CodeTable) error {
	seen := make(map[string]string, table.Len())
	for _, c := range table.Codes() {
		if other, ok := seen[c.Label]; ok {
			return fmt.Errorf("%s: codes %s and %s share label %q", section, other, c.Code, c.Label)
		}
		seen[c.Label] = c.Code
	}
	return nil
}

// Tables returns the reference tables: the defaults extended by the config
// file. A file entry with a default code relabels it.
func (c *Config) Tables() model.Tables {
	labs := append(append([]model.Code{}, model.DefaultLabCodes...), c.LabCodes...)
	chronic := append(append([]model.Code{}, model.DefaultChronicConditions...), c.ChronicConditions...)
	return model.Tables{
		Labs:    model.NewCodeTable(labs),
		Chronic: model.NewCodeTable(chronic),
	}
}

// Validate checks the source root and output settings.
func (c *Config) Validate() error {
	if c.SourceRoot == "" {
		return fmt.Errorf("--source is required")
	}
	if _, err := os.Stat(c.SourceRoot); err != nil {
		return fmt.Errorf("source root not accessible: %w", err)
	}
	if c.Workers < 1 {
		return fmt.Errorf("--workers must be at least 1, got %d", c.Workers)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("--batch-size must be at least 1, got %d", c.BatchSize)
	}
	return nil
}

// ValidateOutput checks the sink settings for the extract command.
func (c *Config) ValidateOutput() error {
	switch c.Format {
	case FormatCSV, FormatParquet:
		if c.OutputPath == "" {
			return fmt.Errorf("--out is required for format %s", c.Format)
		}
	case FormatPostgres:
		if c.DSN == "" {
			return fmt.Errorf("--dsn or FHIRFEATURES_DSN is required for format postgres")
		}
	default:
		return fmt.Errorf("unknown format %q (want csv, parquet or postgres)", c.Format)
	}
	return nil
}

// ValidateWithDSN checks both source and DSN fields.
func (c *Config) ValidateWithDSN() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.DSN == "" {
		return fmt.Errorf("--dsn or FHIRFEATURES_DSN is required")
	}
	return nil
}
