// Package config loads pipeline configuration from process environment
// variables, with defaults suitable for a local MinIO + MongoDB setup.
package config

import (
	"os"
	"strings"

	"tcgapipe/pkg/domain"
)

// ObjectStore holds S3/MinIO connection settings for the raw-object bucket.
type ObjectStore struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Secure    bool
}

// DocumentStore holds the document database settings.
type DocumentStore struct {
	URI        string
	Database   string
	Collection string
	// PostgresDSN is used when the postgres driver is selected.
	PostgresDSN string
}

// Config is the full pipeline configuration.
type Config struct {
	Minio       ObjectStore
	Mongo       DocumentStore
	BlobDriver  string // s3|fs|memory
	DocDriver   string // mongo|postgres|memory
	Cohorts     []string
	DownloadDir string
	PlotsDir    string
	LedgerPath  string
	ClinicalKey string // object key of the clinical survival TSV
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// FromEnv builds a Config from environment variables.
//
//	TCGAPIPE_MINIO_ENDPOINT    (default localhost:9000)
//	TCGAPIPE_MINIO_ACCESS_KEY  (default minioadmin)
//	TCGAPIPE_MINIO_SECRET_KEY  (default minioadmin)
//	TCGAPIPE_MINIO_BUCKET      (default tcga)
//	TCGAPIPE_MINIO_REGION      (default us-east-1)
//	TCGAPIPE_MINIO_SECURE      true|false (default false)
//	TCGAPIPE_MONGO_URI         (default mongodb://localhost:27017)
//	TCGAPIPE_MONGO_DB          (default tcga)
//	TCGAPIPE_MONGO_COLL        (default gene_expression)
//	TCGAPIPE_POSTGRES_DSN      (used when TCGAPIPE_DOC_DRIVER=postgres)
//	TCGAPIPE_BLOB_DRIVER       s3|fs|memory (default s3)
//	TCGAPIPE_DOC_DRIVER        mongo|postgres|memory (default mongo)
//	TCGAPIPE_COHORTS           comma separated cohort codes (default all)
//	TCGAPIPE_DOWNLOAD_DIR      (default data/tmp)
//	TCGAPIPE_PLOTS_DIR         (default data/plots)
//	TCGAPIPE_LEDGER_PATH       (default data/pipeline.db)
//	TCGAPIPE_CLINICAL_KEY      (default data/TCGA_clinical_survival_data.tsv)
func FromEnv() Config {
	return Config{
		Minio: ObjectStore{
			Endpoint:  getenv("TCGAPIPE_MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: getenv("TCGAPIPE_MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey: getenv("TCGAPIPE_MINIO_SECRET_KEY", "minioadmin"),
			Bucket:    getenv("TCGAPIPE_MINIO_BUCKET", "tcga"),
			Region:    getenv("TCGAPIPE_MINIO_REGION", "us-east-1"),
			Secure:    strings.EqualFold(os.Getenv("TCGAPIPE_MINIO_SECURE"), "true"),
		},
		Mongo: DocumentStore{
			URI:         getenv("TCGAPIPE_MONGO_URI", "mongodb://localhost:27017"),
			Database:    getenv("TCGAPIPE_MONGO_DB", "tcga"),
			Collection:  getenv("TCGAPIPE_MONGO_COLL", "gene_expression"),
			PostgresDSN: os.Getenv("TCGAPIPE_POSTGRES_DSN"),
		},
		BlobDriver:  getenv("TCGAPIPE_BLOB_DRIVER", "s3"),
		DocDriver:   getenv("TCGAPIPE_DOC_DRIVER", "mongo"),
		Cohorts:     cohortsFromEnv(),
		DownloadDir: getenv("TCGAPIPE_DOWNLOAD_DIR", "data/tmp"),
		PlotsDir:    getenv("TCGAPIPE_PLOTS_DIR", "data/plots"),
		LedgerPath:  getenv("TCGAPIPE_LEDGER_PATH", "data/pipeline.db"),
		ClinicalKey: getenv("TCGAPIPE_CLINICAL_KEY", "data/TCGA_clinical_survival_data.tsv"),
	}
}

func cohortsFromEnv() []string {
	raw := os.Getenv("TCGAPIPE_COHORTS")
	if raw == "" {
		return append([]string(nil), domain.Cohorts...)
	}
	var out []string
	for _, c := range strings.Split(raw, ",") {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

// EndpointURL returns the MinIO endpoint as a URL with the configured
// scheme, as expected by the S3 client's BaseEndpoint.
func (o ObjectStore) EndpointURL() string {
	if strings.Contains(o.Endpoint, "://") {
		return o.Endpoint
	}
	scheme := "http"
	if o.Secure {
		scheme = "https"
	}
	return scheme + "://" + o.Endpoint
}
