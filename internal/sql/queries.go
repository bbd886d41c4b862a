// Package sql embeds the schema migrations and the hand-written queries run
// against the readmit schema.
package sql

import (
	"embed"
)

//go:embed migrations/*.sql
var Migrations embed.FS

//go:embed queries/lookup_location.sql
var LookupLocation string

//go:embed queries/insert_location.sql
var InsertLocation string

//go:embed queries/assign_patient_location.sql
var AssignPatientLocation string

//go:embed queries/lookup_ingested_file.sql
var LookupIngestedFile string

//go:embed queries/register_ingested_file.sql
var RegisterIngestedFile string

//go:embed queries/create_feature_run.sql
var CreateFeatureRun string

//go:embed queries/finish_feature_run.sql
var FinishFeatureRun string

//go:embed queries/upsert_run_patients.sql
var UpsertRunPatients string
