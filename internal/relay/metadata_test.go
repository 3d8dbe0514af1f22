package relay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeURIs struct {
	uri string
	err error
}

func (f *fakeURIs) TokenURI(context.Context, string) (string, error) {
	return f.uri, f.err
}

func TestMetadataFetcherFetch(t *testing.T) {
	t.Run("returns decoded metadata", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `{
				"name": "Visitor #42",
				"description": "One of the visitors",
				"image": "ipfs://QmImageHash",
				"attributes": [{"trait_type": "Background", "value": "Void"}]
			}`)
		}))
		defer server.Close()

		fetcher := NewMetadataFetcher(&fakeURIs{uri: server.URL}, newFakeClock(), time.Millisecond, 3)
		metadata, ok := fetcher.Fetch(context.Background(), "42")

		require.True(t, ok)
		assert.Equal(t, "Visitor #42", metadata.Name)
		assert.Equal(t, "https://ipfs.io/ipfs/QmImageHash", metadata.Image)
		require.Len(t, metadata.Attributes, 1)
		assert.Equal(t, "Background", metadata.Attributes[0].TraitType)
		assert.Equal(t, "Void", metadata.Attributes[0].Value)
	})

	t.Run("retries until the gateway recovers", func(t *testing.T) {
		var calls int
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls++
			if calls < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			fmt.Fprint(w, `{"name": "Visitor #7"}`)
		}))
		defer server.Close()

		clock := newFakeClock()
		fetcher := NewMetadataFetcher(&fakeURIs{uri: server.URL}, clock, time.Second, 5)
		metadata, ok := fetcher.Fetch(context.Background(), "7")

		require.True(t, ok)
		assert.Equal(t, "Visitor #7", metadata.Name)
		assert.Equal(t, 3, calls)
		assert.Equal(t, []time.Duration{time.Second, time.Second}, clock.recorded())
	})

	t.Run("gives up after the attempt ceiling", func(t *testing.T) {
		var calls int
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls++
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		fetcher := NewMetadataFetcher(&fakeURIs{uri: server.URL}, newFakeClock(), time.Millisecond, 4)
		_, ok := fetcher.Fetch(context.Background(), "404")

		assert.False(t, ok)
		assert.Equal(t, 4, calls)
	})

	t.Run("token URI failure counts as an attempt", func(t *testing.T) {
		fetcher := NewMetadataFetcher(&fakeURIs{err: errors.New("execution reverted")}, newFakeClock(), time.Millisecond, 2)
		_, ok := fetcher.Fetch(context.Background(), "1")
		assert.False(t, ok)
	})

	t.Run("stops when the context ends", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		fetcher := NewMetadataFetcher(&fakeURIs{uri: server.URL}, newFakeClock(), time.Minute, 30)
		_, ok := fetcher.Fetch(ctx, "1")
		assert.False(t, ok)
	})
}

func TestRewriteURI(t *testing.T) {
	fetcher := NewMetadataFetcher(&fakeURIs{}, newFakeClock(), time.Second, 1)

	t.Run("rewrites ipfs scheme onto the gateway", func(t *testing.T) {
		assert.Equal(t,
			"https://ipfs.io/ipfs/QmHash/42.json",
			fetcher.RewriteURI("ipfs://QmHash/42.json"))
	})

	t.Run("leaves https URIs alone", func(t *testing.T) {
		assert.Equal(t,
			"https://example.com/meta/42",
			fetcher.RewriteURI("https://example.com/meta/42"))
	})

	t.Run("leaves empty URIs alone", func(t *testing.T) {
		assert.Equal(t, "", fetcher.RewriteURI(""))
	})
}
