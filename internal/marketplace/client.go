package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://api.opensea.io"

	eventTypeSale    = "successful"
	eventTypeCreated = "created"

	pageLimit = 50
)

// Client talks to the marketplace HTTP API. Every call goes through a
// shared rate limiter and a circuit breaker, since the feed throttles
// aggressively and the relay polls it on timers.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	slug       string
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
}

func NewClient(baseURL, apiKey, collectionSlug string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "marketplace-feed",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		Timeout: 30 * time.Second,
		OnStateChange: func(name string, from, to gobreaker.State) {
			zap.L().Warn("Marketplace breaker state change",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		slug:       collectionSlug,
		limiter:    rate.NewLimiter(rate.Limit(2), 4),
		breaker:    breaker,
	}
}

// SaleEvents returns settled sale events for the collection that occurred
// after the given time, in feed order.
func (c *Client) SaleEvents(ctx context.Context, occurredAfter time.Time) ([]SaleRecord, error) {
	events, err := c.events(ctx, eventTypeSale, occurredAfter)
	if err != nil {
		return nil, err
	}
	var sales []SaleRecord
	for _, ev := range events {
		if ev.Asset == nil || ev.WinnerAccount == nil {
			continue
		}
		sales = append(sales, toSaleRecord(ev))
	}
	return sales, nil
}

// ListingEvents returns the current page of order-created events for the
// collection, in feed order.
func (c *Client) ListingEvents(ctx context.Context) ([]ListingRecord, error) {
	events, err := c.events(ctx, eventTypeCreated, time.Time{})
	if err != nil {
		return nil, err
	}
	var listings []ListingRecord
	for _, ev := range events {
		if ev.Asset == nil {
			continue
		}
		listings = append(listings, toListingRecord(ev))
	}
	return listings, nil
}

// Profile returns the marketplace username for an address, or an empty
// string when the account exists without a username.
func (c *Client) Profile(ctx context.Context, address string) (string, error) {
	var resp profileResponse
	if err := c.getJSON(ctx, "/api/v1/user/"+url.PathEscape(address), nil, &resp); err != nil {
		return "", err
	}
	return resp.Username, nil
}

func (c *Client) events(ctx context.Context, eventType string, occurredAfter time.Time) ([]assetEvent, error) {
	params := url.Values{}
	params.Set("collection_slug", c.slug)
	params.Set("event_type", eventType)
	params.Set("only_opensea", "false")
	params.Set("offset", "0")
	params.Set("limit", strconv.Itoa(pageLimit))
	if !occurredAfter.IsZero() {
		params.Set("occurred_after", strconv.FormatInt(occurredAfter.Unix(), 10))
	}

	var resp assetEventsResponse
	if err := c.getJSON(ctx, "/api/v1/events", params, &resp); err != nil {
		return nil, err
	}
	return resp.AssetEvents, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, into interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	body, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		if c.apiKey != "" {
			req.Header.Set("x-api-key", c.apiKey)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("marketplace API status %d for %s", resp.StatusCode, path)
		}
		var decoded json.RawMessage
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		return decoded, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(body.(json.RawMessage), into)
}

func toSaleRecord(ev assetEvent) SaleRecord {
	rec := SaleRecord{
		TokenID:       ev.Asset.TokenID,
		Buyer:         ev.WinnerAccount.Address,
		PriceAmount:   parseAmount(ev.TotalPrice),
		PriceSymbol:   symbolOf(ev.PaymentToken),
		AssetName:     ev.Asset.Name,
		AssetImageURL: ev.Asset.ImageURL,
		AssetPageURL:  ev.Asset.Permalink,
		NumSales:      ev.Asset.NumSales,
		ClosedAt:      parseFeedTime(ev.CreatedDate),
	}
	if ev.WinnerAccount.User != nil {
		rec.BuyerUsername = ev.WinnerAccount.User.Username
	}
	if ev.Seller != nil {
		rec.Seller = ev.Seller.Address
	}
	return rec
}

func toListingRecord(ev assetEvent) ListingRecord {
	rec := ListingRecord{
		ID:            strconv.FormatInt(ev.ID, 10),
		OrderHash:     ev.OrderHash,
		TokenID:       ev.Asset.TokenID,
		AssetName:     ev.Asset.Name,
		AssetImageURL: ev.Asset.ImageURL,
		AssetPageURL:  ev.Asset.Permalink,
		PriceAmount:   parseAmount(ev.StartingPrice),
		PriceSymbol:   symbolOf(ev.PaymentToken),
		ListedAt:      parseFeedTime(ev.CreatedDate),
		OrderType:     orderTypeOf(ev.OrderType),
	}
	if ev.Maker != nil {
		rec.MakerAddress = ev.Maker.Address
	} else if ev.Seller != nil {
		rec.MakerAddress = ev.Seller.Address
	}
	return rec
}

func orderTypeOf(wire string) OrderType {
	switch wire {
	case "", "listing", "basic":
		return OrderTypeListing
	default:
		return OrderTypeOther
	}
}

func symbolOf(token *paymentToken) string {
	if token == nil {
		return ""
	}
	return token.Symbol
}

func parseAmount(raw string) *big.Int {
	if raw == "" {
		return big.NewInt(0)
	}
	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return big.NewInt(0)
	}
	return amount
}

// The feed serializes timestamps without a zone marker; they are UTC.
func parseFeedTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	if !strings.HasSuffix(raw, "Z") {
		raw += "Z"
	}
	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
