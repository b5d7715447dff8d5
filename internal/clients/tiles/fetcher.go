// Package tiles resolves tile references produced by the projection core
// into raster bytes. The core only decides which tiles a view needs; this
// layer owns retrieval, deduplication and memoization.
package tiles

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/strollmaps/walkbook/internal/cache"
	"github.com/strollmaps/walkbook/internal/lib/mercator"
)

// Fetcher downloads map tiles with per-run memoization. Concurrent
// requests for the same tile collapse into one HTTP call.
type Fetcher struct {
	template    string
	userAgent   string
	httpClient  *http.Client
	store       *cache.Store
	group       singleflight.Group
	parallelism int
}

// NewFetcher creates a Fetcher for a {z}/{x}/{y} URL template backed by
// the given store.
func NewFetcher(template string, store *cache.Store) *Fetcher {
	return &Fetcher{
		template:  template,
		userAgent: "walkbook/1.0 (printable walking directions)",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		store:       store,
		parallelism: 4,
	}
}

// Fetch returns the raster bytes for one tile, from the store when the
// tile was already fetched during this run.
func (f *Fetcher) Fetch(ctx context.Context, tile mercator.Tile) ([]byte, error) {
	key := fmt.Sprintf("%d/%d/%d", tile.Zoom, tile.X, tile.Y)
	if data, ok := f.store.Get(key); ok {
		return data, nil
	}

	data, err, _ := f.group.Do(key, func() (interface{}, error) {
		if data, ok := f.store.Get(key); ok {
			return data, nil
		}
		data, err := f.download(ctx, tile)
		if err != nil {
			return nil, err
		}
		f.store.Set(key, data, "tile")
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return data.([]byte), nil
}

func (f *Fetcher) download(ctx context.Context, tile mercator.Tile) ([]byte, error) {
	url := mercator.ResolveURL(f.template, tile)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create tile request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tile %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == 429 {
		return nil, fmt.Errorf("tile server rate limit exceeded")
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("tile server error %d for %s", resp.StatusCode, url)
	}

	return io.ReadAll(resp.Body)
}

// FetchAll retrieves every referenced tile with bounded parallelism.
// Duplicate references across segments cost a single request.
func (f *Fetcher) FetchAll(ctx context.Context, refs []mercator.Tile) (map[mercator.Tile][]byte, error) {
	result := make(map[mercator.Tile][]byte, len(refs))
	var mutex sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.parallelism)
	for _, ref := range refs {
		g.Go(func() error {
			data, err := f.Fetch(ctx, ref)
			if err != nil {
				return err
			}
			mutex.Lock()
			result[ref] = data
			mutex.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// DataURI encodes tile bytes for direct embedding in the document, so the
// printable output has no network dependency.
func DataURI(data []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)
}
