package xena

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestExtractCohortCode(t *testing.T) {
	cases := []struct {
		label string
		want  string
	}{
		{"TCGA Breast Cancer (BRCA)", "BRCA"},
		{"TCGA Acute Myeloid Leukemia (LAML)", "LAML"},
		{"TCGA lung adenocarcinoma LUAD", "LUAD"},
		{"GTEx something", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := ExtractCohortCode(tc.label); got != tc.want {
			t.Fatalf("ExtractCohortCode(%q) = %q, want %q", tc.label, got, tc.want)
		}
	}
}

func TestFallbackURLs(t *testing.T) {
	urls := FallbackURLs([]string{"BRCA", "LUAD", "NOPE"})
	if len(urls) != 2 {
		t.Fatalf("expected 2 urls, got %v", urls)
	}
	if !strings.Contains(urls["BRCA"], "TCGA.BRCA.sampleMap") {
		t.Fatalf("BRCA url malformed: %s", urls["BRCA"])
	}
	if !strings.HasSuffix(urls["LUAD"], "HiSeqV2_PANCAN.gz") {
		t.Fatalf("LUAD url malformed: %s", urls["LUAD"])
	}
}

func TestFallbackCoversAllCohorts(t *testing.T) {
	urls := FallbackURLs(fallbackCohorts)
	if len(urls) != len(fallbackCohorts) {
		t.Fatalf("mirror map incomplete: %d of %d", len(urls), len(fallbackCohorts))
	}
}

type stubDiscoverer struct {
	urls map[string]string
	err  error
}

func (s stubDiscoverer) CohortURLs(context.Context, []string) (map[string]string, error) {
	return s.urls, s.err
}

func TestDiscoverFillsGapsFromMirrors(t *testing.T) {
	log := zap.NewNop()
	scraped := stubDiscoverer{urls: map[string]string{"BRCA": "https://example.com/brca.gz"}}
	urls := Discover(context.Background(), scraped, []string{"BRCA", "LUAD"}, log)
	if urls["BRCA"] != "https://example.com/brca.gz" {
		t.Fatalf("scraped url lost: %v", urls)
	}
	if !strings.Contains(urls["LUAD"], "tcga-xena-hub") {
		t.Fatalf("mirror gap fill missing: %v", urls)
	}
}

func TestDiscoverNilScraper(t *testing.T) {
	urls := Discover(context.Background(), nil, []string{"GBM"}, zap.NewNop())
	if len(urls) != 1 || !strings.Contains(urls["GBM"], "TCGA.GBM") {
		t.Fatalf("nil scraper should use mirrors: %v", urls)
	}
}

func TestVerify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("expected HEAD, got %s", r.Method)
		}
		switch r.URL.Path {
		case "/ok.gz":
			w.Header().Set("Content-Type", "application/gzip")
			w.Header().Set("Content-Length", "5000000")
		case "/tiny.gz":
			w.Header().Set("Content-Type", "application/gzip")
			w.Header().Set("Content-Length", "10")
		case "/html":
			w.Header().Set("Content-Type", "text/html")
			w.Header().Set("Content-Length", "5000000")
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	if err := Verify(ctx, srv.Client(), srv.URL+"/ok.gz"); err != nil {
		t.Fatalf("ok url rejected: %v", err)
	}
	if err := Verify(ctx, srv.Client(), srv.URL+"/tiny.gz"); err == nil {
		t.Fatalf("tiny object accepted")
	}
	if err := Verify(ctx, srv.Client(), srv.URL+"/missing"); err == nil {
		t.Fatalf("404 accepted")
	}
	// text/html still matches the permissive "text" class, as the hub
	// serves matrices with loose content types.
	if err := Verify(ctx, srv.Client(), srv.URL+"/html"); err != nil {
		t.Fatalf("text content type rejected: %v", err)
	}
}
