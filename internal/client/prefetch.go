package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Prefetcher warms the card image for the upcoming turn so the flip
// animation never waits on the network.
type Prefetcher interface {
	PrefetchImage(ctx context.Context, imagePath string) error
}

// HTTPPrefetcher resolves relative card image paths against a fixed
// asset prefix and issues a plain GET to warm whatever cache sits in
// front of the assets.
type HTTPPrefetcher struct {
	Prefix string
	HTTP   *http.Client
}

// NewHTTPPrefetcher builds a prefetcher for the given asset prefix. An
// empty prefix falls back to the CARD_ASSET_PREFIX environment variable.
func NewHTTPPrefetcher(prefix string) *HTTPPrefetcher {
	if prefix == "" {
		prefix = os.Getenv("CARD_ASSET_PREFIX")
	}
	return &HTTPPrefetcher{Prefix: strings.TrimRight(prefix, "/"), HTTP: http.DefaultClient}
}

func (p *HTTPPrefetcher) PrefetchImage(ctx context.Context, imagePath string) error {
	url := p.Prefix + "/" + strings.TrimLeft(imagePath, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build prefetch request: %w", err)
	}
	resp, err := p.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("prefetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("prefetch %s: status %d", url, resp.StatusCode)
	}
	return nil
}

// prefetchCard never blocks rendering; a failed prefetch just means the
// image loads on demand.
func (c *Client) prefetchCard(ctx context.Context, imagePath string) {
	if c.Prefetch == nil || imagePath == "" {
		return
	}
	go func() {
		if err := c.Prefetch.PrefetchImage(ctx, imagePath); err != nil {
			logrus.Debugf("card image prefetch failed: %v", err)
		}
	}()
}
