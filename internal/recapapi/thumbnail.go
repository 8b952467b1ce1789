package recapapi

import (
	"context"
	"net/http"

	"github.com/recapforge/recap-studio/pkg/log"
)

// ProbeThumbnail reports whether the externally resolvable thumbnail
// URL answers a HEAD request. Any failure means "no thumbnail" and the
// preview falls back to a placeholder; probing never errors.
// Concurrent probes for the same URL are collapsed into one request.
func (c *Client) ProbeThumbnail(ctx context.Context, url string) bool {
	if url == "" {
		return false
	}

	ok, err, _ := c.thumbGroup.Do(url, func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
		if err != nil {
			return false, nil
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			log.Debug("thumbnail probe failed for %s: %v", url, err)
			return false, nil
		}
		defer resp.Body.Close()
		return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
	})
	if err != nil {
		return false
	}
	return ok.(bool)
}
