package xena

import "fmt"

// hubTemplate addresses the Xena hub's public S3 mirror for pancan
// normalized HiSeqV2 matrices. The %%2F is the encoded path separator the
// hub uses inside download keys.
const hubTemplate = "https://tcga-xena-hub.s3.us-east-1.amazonaws.com/download/TCGA.%s.sampleMap%%2FHiSeqV2_PANCAN.gz"

// fallbackCohorts are the cohorts with known-good mirror URLs, used when
// portal scraping is unavailable.
var fallbackCohorts = []string{
	"BRCA", "LUAD", "COAD", "GBM", "LAML", "ACC", "CHOL", "BLCA", "CESC",
	"UCEC", "ESCA", "HNSC", "KICH", "KIRC", "KIRP", "DLBC", "LIHC", "LGG",
	"LUNG", "LUSC", "SKCM", "MESO", "UVM", "OV", "PAAD", "PCPG", "PRAD",
	"READ", "SARC", "STAD", "TGCT", "THYM", "THCA", "UCS",
}

// FallbackURLs returns mirror download URLs for the requested cohorts,
// omitting cohorts without a known mirror.
func FallbackURLs(cohorts []string) map[string]string {
	known := make(map[string]bool, len(fallbackCohorts))
	for _, c := range fallbackCohorts {
		known[c] = true
	}
	urls := make(map[string]string)
	for _, c := range cohorts {
		if known[c] {
			urls[c] = fmt.Sprintf(hubTemplate, c)
		}
	}
	return urls
}
