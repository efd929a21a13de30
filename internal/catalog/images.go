package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/glowmart/promogen/internal/fingerprint"
	"github.com/glowmart/promogen/internal/vertexai"
	"github.com/glowmart/promogen/pkg/httpclient"
	"github.com/glowmart/promogen/pkg/useragent"
)

const (
	fetchTimeout  = 30 * time.Second
	maxImageBytes = 10 << 20 // product CDNs serve nothing legitimate above 10MB
	maxConcurrent = 4
)

// ImageFetcher downloads product reference images over a browser-fingerprinted
// transport. Individual failures are logged and skipped; reference imagery is
// an enhancement, never a pipeline requirement.
type ImageFetcher struct {
	client *httpclient.Client
	uas    *useragent.Pool
	log    *logrus.Entry
}

// NewImageFetcher builds a fetcher with a Chrome TLS fingerprint.
func NewImageFetcher() (*ImageFetcher, error) {
	transport, err := fingerprint.Transport(fingerprint.ProfileChrome)
	if err != nil {
		return nil, fmt.Errorf("failed to build transport: %w", err)
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      fetchTimeout,
		MaxRedirects: 5,
		Transport:    transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build client: %w", err)
	}

	return &ImageFetcher{
		client: client,
		uas:    useragent.NewPool(nil),
		log:    logrus.WithField("component", "catalog"),
	}, nil
}

// FetchAll downloads the given image URLs concurrently, preserving input
// order among the successes. It never returns an error; failed downloads are
// simply absent from the result.
func (f *ImageFetcher) FetchAll(ctx context.Context, urls []string) []vertexai.InlineImage {
	if len(urls) == 0 {
		return nil
	}

	results := make([]*vertexai.InlineImage, len(urls))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)

	for i, url := range urls {
		g.Go(func() error {
			img, err := f.fetch(gctx, url)
			if err != nil {
				f.log.WithError(err).WithField("url", url).Warn("reference image skipped")
				return nil
			}
			mu.Lock()
			results[i] = &img
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	images := make([]vertexai.InlineImage, 0, len(urls))
	for _, r := range results {
		if r != nil {
			images = append(images, *r)
		}
	}
	return images
}

func (f *ImageFetcher) fetch(ctx context.Context, url string) (vertexai.InlineImage, error) {
	fctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fctx, http.MethodGet, url, nil)
	if err != nil {
		return vertexai.InlineImage{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.uas.Next())
	req.Header.Set("Accept", "image/avif,image/webp,image/png,image/*;q=0.8")

	resp, err := f.client.Do(fctx, req)
	if err != nil {
		return vertexai.InlineImage{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return vertexai.InlineImage{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return vertexai.InlineImage{}, fmt.Errorf("not an image: content-type %q", contentType)
	}

	if cl := resp.Header.Get("Content-Length"); cl != "" {
		if n, err := strconv.ParseInt(cl, 10, 64); err == nil && n > maxImageBytes {
			return vertexai.InlineImage{}, fmt.Errorf("image exceeds %d byte limit", maxImageBytes)
		}
	}

	// Content-Length can lie or be absent; enforce the cap on the actual read.
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return vertexai.InlineImage{}, fmt.Errorf("failed to read body: %w", err)
	}
	if len(body) > maxImageBytes {
		return vertexai.InlineImage{}, fmt.Errorf("image exceeds %d byte limit", maxImageBytes)
	}

	return vertexai.InlineImage{MIMEType: contentType, Data: body}, nil
}
