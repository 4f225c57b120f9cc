package extractor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/siteporter/siteporter-backend/internal/idf"
	"github.com/siteporter/siteporter-backend/internal/storage/objectstore"
)

const (
	assetDownloadTimeout = 30 * time.Second
	maxAssetBytes        = 32 << 20 // refuse pathological downloads
)

// assetDownloader fetches referenced media with bounded parallelism and
// stores unique byte streams in content-addressed object storage.
type assetDownloader struct {
	store   objectstore.Store
	client  *http.Client
	workers int
}

func newAssetDownloader(store objectstore.Store, workers int) *assetDownloader {
	if workers < 1 {
		workers = 1
	}
	return &assetDownloader{
		store:   store,
		client:  &http.Client{Timeout: assetDownloadTimeout},
		workers: workers,
	}
}

// downloadAll fetches every referenced asset. Asset ids are derived from
// the content hash, so identical bytes referenced from different
// elements or different pages collapse to the same id. Failed downloads
// keep a placeholder asset flagged Missing rather than dropping the
// reference.
func (d *assetDownloader) downloadAll(ctx context.Context, refs []assetRef) []idf.Asset {
	if len(refs) == 0 {
		return nil
	}

	type result struct {
		ref   assetRef
		asset idf.Asset
	}

	jobs := make(chan assetRef, len(refs))
	results := make(chan result, len(refs))

	var wg sync.WaitGroup
	for w := 0; w < d.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ref := range jobs {
				results <- result{ref: ref, asset: d.download(ctx, ref)}
			}
		}()
	}

	for _, ref := range refs {
		jobs <- ref
	}
	close(jobs)
	wg.Wait()
	close(results)

	// Dedupe by id (content hash or URL for missing assets) and wire the
	// element references.
	byID := make(map[string]idf.Asset)
	var order []string
	for res := range results {
		if _, ok := byID[res.asset.ID]; !ok {
			byID[res.asset.ID] = res.asset
			order = append(order, res.asset.ID)
		}
		res.ref.element.AssetIDs = append(res.ref.element.AssetIDs, res.asset.ID)
	}

	assets := make([]idf.Asset, 0, len(order))
	for _, id := range order {
		assets = append(assets, byID[id])
	}
	return assets
}

func (d *assetDownloader) download(ctx context.Context, ref assetRef) idf.Asset {
	data, mime, err := d.fetch(ctx, ref.url)
	if err != nil {
		// Isolated AssetDownloadError: keep a placeholder so the element
		// reference survives; the asset metric is penalized instead.
		return idf.Asset{
			ID:          "asset-" + deterministicID("missing:"+ref.url),
			Type:        ref.kind,
			OriginalURL: ref.url,
			AltText:     ref.alt,
			Missing:     true,
		}
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	asset := idf.Asset{
		ID:          "asset-" + hash[:12],
		Type:        ref.kind,
		OriginalURL: ref.url,
		ContentHash: hash,
		Size:        int64(len(data)),
		MimeType:    mime,
		AltText:     ref.alt,
	}

	if d.store != nil {
		if url, err := d.store.Put(ctx, hash, data, mime); err == nil {
			asset.StorageURL = url
		}
	}

	return asset
}

// putScreenshot stores a page screenshot content-addressed like any other
// asset and returns its storage URL.
func (d *assetDownloader) putScreenshot(ctx context.Context, shot []byte) (string, error) {
	if d.store == nil || len(shot) == 0 {
		return "", fmt.Errorf("no screenshot to store")
	}
	sum := sha256.Sum256(shot)
	return d.store.Put(ctx, hex.EncodeToString(sum[:]), shot, "image/png")
}

func (d *assetDownloader) fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download asset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download asset: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read asset body: %w", err)
	}

	return data, resp.Header.Get("Content-Type"), nil
}
