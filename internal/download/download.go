// Package download implements the first pipeline stage: resolve cohort
// matrix URLs, fetch them, and store the raw objects in the object store.
package download

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tcgapipe/internal/blob"
	"tcgapipe/internal/metrics"
	"tcgapipe/internal/xena"
)

// defaultParallelism bounds concurrent cohort downloads; the hub mirror
// throttles aggressive clients.
const defaultParallelism = 4

// Stage downloads raw expression matrices into the object store.
type Stage struct {
	Blobs       blob.Store
	Discoverer  xena.Discoverer // nil skips scraping and uses mirrors
	Client      *http.Client
	Cohorts     []string
	Parallelism int
	Log         *zap.Logger
}

// Name implements pipeline.Stage.
func (s *Stage) Name() string { return "download" }

// ObjectKey maps a cohort and its download URL to the raw object key,
// tcga/<cohort>/raw/<filename>.
func ObjectKey(cohort, rawURL string) string {
	name := "matrix.gz"
	if u, err := url.Parse(rawURL); err == nil {
		if p, err := url.PathUnescape(u.Path); err == nil && p != "" {
			name = path.Base(p)
		}
	}
	return fmt.Sprintf("tcga/%s/raw/%s", cohort, name)
}

// Run resolves URLs for every configured cohort and downloads each matrix
// that is not already stored. Individual cohort failures are logged and
// counted; the stage only errors when nothing could be fetched at all.
func (s *Stage) Run(ctx context.Context) (int64, error) {
	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Minute}
	}
	parallelism := s.Parallelism
	if parallelism <= 0 {
		parallelism = defaultParallelism
	}

	urls := xena.Discover(ctx, s.Discoverer, s.Cohorts, s.Log)
	if len(urls) == 0 {
		return 0, fmt.Errorf("no download urls for cohorts %v", s.Cohorts)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	results := make(chan string, len(urls))
	for cohort, rawURL := range urls {
		g.Go(func() error {
			stored, err := s.fetchCohort(gctx, client, cohort, rawURL)
			if err != nil {
				metrics.Downloads.WithLabelValues("failed").Inc()
				s.Log.Error("cohort download failed", zap.String("cohort", cohort), zap.Error(err))
				return nil // keep fetching the other cohorts
			}
			if stored {
				results <- cohort
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	close(results)
	var fetched int64
	for range results {
		fetched++
	}
	s.Log.Info("download stage complete",
		zap.Int64("fetched", fetched), zap.Int("resolved", len(urls)))
	return fetched, nil
}

// fetchCohort downloads one cohort matrix unless the object already exists.
// The bool result reports whether a new object was stored.
func (s *Stage) fetchCohort(ctx context.Context, client *http.Client, cohort, rawURL string) (bool, error) {
	key := ObjectKey(cohort, rawURL)
	exists, err := s.Blobs.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check %s: %w", key, err)
	}
	if exists {
		metrics.Downloads.WithLabelValues("skipped").Inc()
		s.Log.Info("object already stored, skipping", zap.String("key", key))
		return false, nil
	}
	if err := xena.Verify(ctx, client, rawURL); err != nil {
		return false, fmt.Errorf("verify url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", xena.UserAgent)
	resp, err := client.Do(req)
	if err != nil {
		return false, fmt.Errorf("get %s: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("get %s: status %d", rawURL, resp.StatusCode)
	}

	info, err := s.Blobs.Put(ctx, key, resp.Body, blob.PutOptions{ContentType: "application/gzip"})
	if err != nil {
		return false, fmt.Errorf("store %s: %w", key, err)
	}
	metrics.Downloads.WithLabelValues("ok").Inc()
	metrics.DownloadBytes.Add(float64(info.Size))
	s.Log.Info("stored raw matrix",
		zap.String("cohort", cohort), zap.String("key", key), zap.Int64("bytes", info.Size))
	return true, nil
}
