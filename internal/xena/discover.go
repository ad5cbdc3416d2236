package xena

import (
	"context"

	"go.uber.org/zap"
)

// Discoverer resolves cohort codes to download URLs.
type Discoverer interface {
	CohortURLs(ctx context.Context, cohorts []string) (map[string]string, error)
}

// Discover resolves download URLs through the given scraper, filling any
// gaps from the static mirror map. A nil scraper (no browser available)
// goes straight to the mirrors.
func Discover(ctx context.Context, scraper Discoverer, cohorts []string, log *zap.Logger) map[string]string {
	urls := make(map[string]string)
	if scraper != nil {
		scraped, err := scraper.CohortURLs(ctx, cohorts)
		if err != nil {
			log.Warn("portal scraping failed, using mirror urls", zap.Error(err))
		}
		for cohort, u := range scraped {
			urls[cohort] = u
		}
	}
	var missing []string
	for _, c := range cohorts {
		if _, ok := urls[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		for cohort, u := range FallbackURLs(missing) {
			log.Info("using mirror url", zap.String("cohort", cohort))
			urls[cohort] = u
		}
	}
	return urls
}
