// Package xena discovers TCGA cohort download URLs on the Xena portal.
// Discovery drives a headless Chrome session through the datapages UI; a
// static mirror map serves as fallback when the portal or a browser is
// unavailable.
package xena

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// datapagesURL is the TCGA hub listing on the Xena browser.
const datapagesURL = "https://xenabrowser.net/datapages/?host=https%3A%2F%2Ftcga.xenahubs.net&removeHub=https%3A%2F%2Fxena.treehouse.gi.ucsc.edu%3A443"

const (
	cohortListXPath   = "//ul[contains(@class,'Datapages-module__list')]//li/a"
	rnaseqSectionX    = "//div[h3[contains(text(),'gene expression RNAseq')]]//ul//li/a[contains(text(),'pancan normalized')]"
	downloadAnchorX   = "//a[contains(text(),'PANCAN.gz')]"
	defaultNavTimeout = 30 * time.Second
)

var cohortCodeRe = regexp.MustCompile(`\(([A-Z]+)\)`)

// ExtractCohortCode pulls the TCGA cohort code out of a cancer-type label
// such as "TCGA Breast Cancer (BRCA)". Labels without a parenthesized code
// fall back to containment of a known code; unknown labels return "".
func ExtractCohortCode(label string) string {
	if m := cohortCodeRe.FindStringSubmatch(label); m != nil {
		return m[1]
	}
	upper := strings.ToUpper(label)
	for _, code := range fallbackCohorts {
		if strings.Contains(upper, code) {
			return code
		}
	}
	return ""
}

// Scraper drives a headless Chrome session against the Xena portal.
type Scraper struct {
	browser *rod.Browser
	cleanup func()
	timeout time.Duration
	log     *zap.Logger
}

// NewScraper launches a headless browser. The launcher flags mirror what a
// containerized Chrome needs (no sandbox, no shared memory).
func NewScraper(log *zap.Logger) (*Scraper, error) {
	l := launcher.New().
		Headless(true).
		NoSandbox(true).
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set("window-size", "1920,1080")
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chrome: %w", err)
	}
	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect chrome: %w", err)
	}
	return &Scraper{
		browser: browser,
		cleanup: l.Kill,
		timeout: defaultNavTimeout,
		log:     log,
	}, nil
}

// Close shuts the browser down.
func (s *Scraper) Close() {
	_ = s.browser.Close()
	if s.cleanup != nil {
		s.cleanup()
	}
}

// CohortURLs walks the datapages listing and resolves the pancan normalized
// download URL for each requested cohort. Cohorts that cannot be resolved
// are omitted; the caller decides whether to fall back.
func (s *Scraper) CohortURLs(ctx context.Context, cohorts []string) (map[string]string, error) {
	wanted := make(map[string]bool, len(cohorts))
	for _, c := range cohorts {
		wanted[c] = true
	}

	page, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer func() { _ = page.Close() }()
	page = page.Context(ctx).Timeout(s.timeout)

	if err := page.Navigate(datapagesURL); err != nil {
		return nil, fmt.Errorf("navigate datapages: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("load datapages: %w", err)
	}
	anchors, err := page.ElementsX(cohortListXPath)
	if err != nil {
		return nil, fmt.Errorf("find cohort list: %w", err)
	}
	s.log.Info("cohort listing loaded", zap.Int("entries", len(anchors)))

	// Capture label/href pairs up front: navigating away invalidates the
	// element handles.
	type cohortLink struct{ code, href string }
	var links []cohortLink
	for _, a := range anchors {
		label, err := a.Text()
		if err != nil {
			continue
		}
		code := ExtractCohortCode(label)
		if code == "" || !wanted[code] {
			continue
		}
		href, err := a.Attribute("href")
		if err != nil || href == nil {
			continue
		}
		links = append(links, cohortLink{code: code, href: *href})
	}

	urls := make(map[string]string)
	for _, link := range links {
		if err := ctx.Err(); err != nil {
			return urls, err
		}
		u, err := s.resolveCohort(page, link.href)
		if err != nil {
			s.log.Warn("cohort resolution failed", zap.String("cohort", link.code), zap.Error(err))
			continue
		}
		s.log.Info("resolved cohort download", zap.String("cohort", link.code), zap.String("url", u))
		urls[link.code] = u
	}
	return urls, nil
}

// resolveCohort follows one cohort page to its pancan normalized dataset
// and returns the PANCAN.gz download href.
func (s *Scraper) resolveCohort(page *rod.Page, cohortHref string) (string, error) {
	if err := page.Navigate(absoluteURL(cohortHref)); err != nil {
		return "", fmt.Errorf("navigate cohort: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("load cohort: %w", err)
	}
	dataset, err := page.ElementX(rnaseqSectionX)
	if err != nil {
		return "", fmt.Errorf("pancan normalized dataset not listed: %w", err)
	}
	datasetHref, err := dataset.Attribute("href")
	if err != nil || datasetHref == nil {
		return "", fmt.Errorf("dataset link without href")
	}
	if err := page.Navigate(absoluteURL(*datasetHref)); err != nil {
		return "", fmt.Errorf("navigate dataset: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("load dataset: %w", err)
	}
	download, err := page.ElementX(downloadAnchorX)
	if err != nil {
		return "", fmt.Errorf("download anchor not found: %w", err)
	}
	href, err := download.Attribute("href")
	if err != nil || href == nil {
		return "", fmt.Errorf("download anchor without href")
	}
	return *href, nil
}

func absoluteURL(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return "https://xenabrowser.net" + href
}
