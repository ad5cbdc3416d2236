package download

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"tcgapipe/internal/blob"
	memblob "tcgapipe/internal/infra/blob/memory"
)

type fixedDiscoverer struct {
	urls map[string]string
}

func (d fixedDiscoverer) CohortURLs(ctx context.Context, cohorts []string) (map[string]string, error) {
	out := make(map[string]string, len(cohorts))
	for _, c := range cohorts {
		if u, ok := d.urls[c]; ok {
			out[c] = u
		}
	}
	return out, nil
}

func matrixServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/gzip")
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Length", "2048")
			return
		}
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestObjectKey(t *testing.T) {
	got := ObjectKey("BRCA", "https://hub.example/download/TCGA.BRCA.sampleMap%2FHiSeqV2_PANCAN.gz")
	want := "tcga/BRCA/raw/HiSeqV2_PANCAN.gz"
	if got != want {
		t.Fatalf("ObjectKey = %q, want %q", got, want)
	}
}

func TestRunStoresMatrices(t *testing.T) {
	srv := matrixServer(t, strings.Repeat("x", 2048))
	store := memblob.New()
	stage := &Stage{
		Blobs: store,
		Discoverer: fixedDiscoverer{urls: map[string]string{
			"BRCA": srv.URL + "/TCGA.BRCA.sampleMap%2FHiSeqV2_PANCAN.gz",
		}},
		Client:  srv.Client(),
		Cohorts: []string{"BRCA"},
		Log:     zap.NewNop(),
	}
	n, err := stage.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != 1 {
		t.Fatalf("fetched = %d, want 1", n)
	}
	ok, err := store.Exists(context.Background(), "tcga/BRCA/raw/HiSeqV2_PANCAN.gz")
	if err != nil || !ok {
		t.Fatalf("object missing after download: ok=%v err=%v", ok, err)
	}
}

func TestRunSkipsExisting(t *testing.T) {
	srv := matrixServer(t, strings.Repeat("x", 2048))
	store := memblob.New()
	url := srv.URL + "/TCGA.LUAD.sampleMap%2FHiSeqV2_PANCAN.gz"
	key := ObjectKey("LUAD", url)
	if _, err := store.Put(context.Background(), key, strings.NewReader("already here"), blob.PutOptions{}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	stage := &Stage{
		Blobs:      store,
		Discoverer: fixedDiscoverer{urls: map[string]string{"LUAD": url}},
		Client:     srv.Client(),
		Cohorts:    []string{"LUAD"},
		Log:        zap.NewNop(),
	}
	n, err := stage.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != 0 {
		t.Fatalf("fetched = %d, want 0 for pre-existing object", n)
	}
}

func TestRunToleratesCohortFailure(t *testing.T) {
	srv := matrixServer(t, strings.Repeat("x", 2048))
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	t.Cleanup(bad.Close)

	store := memblob.New()
	stage := &Stage{
		Blobs: store,
		Discoverer: fixedDiscoverer{urls: map[string]string{
			"BRCA": srv.URL + "/TCGA.BRCA.sampleMap%2FHiSeqV2_PANCAN.gz",
			"GBM":  bad.URL + "/TCGA.GBM.sampleMap%2FHiSeqV2_PANCAN.gz",
		}},
		Client:  srv.Client(),
		Cohorts: []string{"BRCA", "GBM"},
		Log:     zap.NewNop(),
	}
	n, err := stage.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != 1 {
		t.Fatalf("fetched = %d, want 1 (failed cohort is logged, not fatal)", n)
	}
}
