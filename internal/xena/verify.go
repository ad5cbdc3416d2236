package xena

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// UserAgent matches a desktop browser; the hub mirror rejects bare clients.
const UserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// minObjectSize guards against HTML error pages served with status 200.
const minObjectSize = 1000

// Verify checks that a download URL is reachable and plausibly serves a
// matrix file: status 200, a gzip/binary/text content type, and (when
// advertised) a body larger than 1KB.
func Verify(ctx context.Context, client *http.Client, url string) error {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return fmt.Errorf("build head request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("head %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("head %s: status %d", url, resp.StatusCode)
	}
	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	typeOK := false
	for _, want := range []string{"gzip", "octet-stream", "text"} {
		if strings.Contains(contentType, want) {
			typeOK = true
			break
		}
	}
	if !typeOK {
		return fmt.Errorf("head %s: unexpected content type %q", url, contentType)
	}
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		n, err := strconv.ParseInt(cl, 10, 64)
		if err == nil && n < minObjectSize {
			return fmt.Errorf("head %s: implausibly small object (%d bytes)", url, n)
		}
	}
	return nil
}
