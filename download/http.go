package download

import (
	"context"
	"io"
	"net/http"

	"github.com/pkg/errors"
)

const userAgent = "OpenFDA-Downloader/1.0"

// HTTPDownloader fetches partitions over http(s) with a fixed retry
// budget for transport-level failures. HTTP error statuses are not
// retried; a 500 today is a 500 on the next attempt too, and the caller's
// diagnostics are better served by the first response.
type HTTPDownloader struct {
	Client  *http.Client
	Retries int
}

// NewHTTPDownloader wraps client with a retry budget. A nil client uses
// http.DefaultClient; retries below 1 become 1.
func NewHTTPDownloader(client *http.Client, retries int) *HTTPDownloader {
	if client == nil {
		client = http.DefaultClient
	}
	if retries < 1 {
		retries = 1
	}
	return &HTTPDownloader{Client: client, Retries: retries}
}

// Get implements Downloader. A non-empty ifModifiedSince is sent as an
// If-Modified-Since header and a 304 answer reports notModified rather
// than an error.
func (d *HTTPDownloader) Get(ctx context.Context, rawurl, ifModifiedSince string) (io.ReadCloser, string, bool, error) {
	var lastErr error
	for attempt := 0; attempt < d.Retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, "", false, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawurl, nil)
		if err != nil {
			return nil, "", false, errors.Wrapf(err, "building request for %q", rawurl)
		}
		req.Header.Set("User-Agent", userAgent)
		if ifModifiedSince != "" {
			req.Header.Set("If-Modified-Since", ifModifiedSince)
		}
		resp, err := d.Client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		switch {
		case resp.StatusCode == http.StatusNotModified:
			resp.Body.Close()
			return nil, "", true, nil
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return resp.Body, resp.Header.Get("Last-Modified"), false, nil
		default:
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			return nil, "", false, errors.Errorf("GET %s: %s: %s", rawurl, resp.Status, snippet)
		}
	}
	return nil, "", false, errors.Wrapf(lastErr, "GET %s: %d attempts failed", rawurl, d.Retries)
}
