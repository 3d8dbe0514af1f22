package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/The-Visitors/discord-bot/pkg/constants"
	"go.uber.org/zap"
)

type TokenMetadata struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	Attributes  []Attribute `json:"attributes"`
}

type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

// URIResolver is the contract-binding slice the fetcher needs.
type URIResolver interface {
	TokenURI(ctx context.Context, tokenID string) (string, error)
}

// MetadataFetcher retrieves off-chain token metadata. Failures are retried
// on a fixed delay up to a ceiling and then abandoned with a log line only;
// the pipeline stays available even when one token's metadata never loads.
type MetadataFetcher struct {
	uris        URIResolver
	httpClient  *http.Client
	gateway     string
	clock       Clock
	retryDelay  time.Duration
	maxAttempts int
}

func NewMetadataFetcher(uris URIResolver, clock Clock, retryDelay time.Duration, maxAttempts int) *MetadataFetcher {
	if retryDelay <= 0 {
		retryDelay = time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 30
	}
	return &MetadataFetcher{
		uris:        uris,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		gateway:     constants.IPFS_GATEWAY,
		clock:       clock,
		retryDelay:  retryDelay,
		maxAttempts: maxAttempts,
	}
}

// Fetch returns the token's metadata, or ok=false once the retries are
// spent or the context ends.
func (f *MetadataFetcher) Fetch(ctx context.Context, tokenID string) (TokenMetadata, bool) {
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		metadata, err := f.fetchOnce(ctx, tokenID)
		if err == nil {
			return metadata, true
		}
		zap.L().Warn("metadata fetch failed",
			zap.String("tokenId", tokenID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt == f.maxAttempts {
			break
		}
		if !f.clock.Sleep(ctx, f.retryDelay) {
			return TokenMetadata{}, false
		}
	}
	zap.L().Warn("giving up on token metadata",
		zap.String("tokenId", tokenID),
		zap.Int("attempts", f.maxAttempts),
	)
	return TokenMetadata{}, false
}

func (f *MetadataFetcher) fetchOnce(ctx context.Context, tokenID string) (TokenMetadata, error) {
	uri, err := f.uris.TokenURI(ctx, tokenID)
	if err != nil {
		return TokenMetadata{}, fmt.Errorf("resolve token URI: %w", err)
	}
	uri = f.RewriteURI(uri)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return TokenMetadata{}, fmt.Errorf("build metadata request: %w", err)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return TokenMetadata{}, fmt.Errorf("fetch metadata: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return TokenMetadata{}, fmt.Errorf("metadata status %d for %s", resp.StatusCode, uri)
	}

	var metadata TokenMetadata
	if err := json.NewDecoder(resp.Body).Decode(&metadata); err != nil {
		return TokenMetadata{}, fmt.Errorf("decode metadata: %w", err)
	}
	metadata.Image = f.RewriteURI(metadata.Image)
	return metadata, nil
}

// RewriteURI maps a content-addressed URI onto the configured HTTP gateway.
func (f *MetadataFetcher) RewriteURI(uri string) string {
	if strings.HasPrefix(uri, constants.IPFS_SCHEME) {
		return f.gateway + strings.TrimPrefix(uri, constants.IPFS_SCHEME)
	}
	return uri
}
