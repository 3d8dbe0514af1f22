package marketplace

import (
	"math/big"
	"strings"
	"time"
)

type OrderType string

const (
	OrderTypeListing OrderType = "listing"
	OrderTypeOther   OrderType = "other"
)

// SaleRecord is a settled marketplace sale for one token.
type SaleRecord struct {
	TokenID       string
	Buyer         string
	BuyerUsername string
	Seller        string
	PriceAmount   *big.Int
	PriceSymbol   string
	AssetName     string
	AssetImageURL string
	AssetPageURL  string
	NumSales      int
	ClosedAt      time.Time
}

// ListingRecord is one order-created marketplace event.
type ListingRecord struct {
	ID            string
	OrderHash     string
	TokenID       string
	MakerAddress  string
	AssetName     string
	AssetImageURL string
	AssetPageURL  string
	PriceAmount   *big.Int
	PriceSymbol   string
	ListedAt      time.Time
	OrderType     OrderType
}

// LedgerKey is the stable dedup identity of a listing. Orders that carry an
// order hash use the composite form so the same order seen under different
// event ids still deduplicates.
func (l ListingRecord) LedgerKey() string {
	if l.OrderHash != "" {
		return "listing/" + strings.ToLower(l.OrderHash)
	}
	return "listing/" + l.ID
}

// Wire shapes of the marketplace events feed.

type assetEventsResponse struct {
	AssetEvents []assetEvent `json:"asset_events"`
}

type assetEvent struct {
	ID            int64         `json:"id"`
	EventType     string        `json:"event_type"`
	OrderType     string        `json:"order_type"`
	OrderHash     string        `json:"order_hash"`
	CreatedDate   string        `json:"created_date"`
	TotalPrice    string        `json:"total_price"`
	StartingPrice string        `json:"starting_price"`
	PaymentToken  *paymentToken `json:"payment_token"`
	Asset         *wireAsset    `json:"asset"`
	WinnerAccount *account      `json:"winner_account"`
	Seller        *account      `json:"seller"`
	Maker         *account      `json:"maker"`
}

type paymentToken struct {
	Symbol string `json:"symbol"`
}

type account struct {
	Address string `json:"address"`
	User    *struct {
		Username string `json:"username"`
	} `json:"user"`
}

type wireAsset struct {
	TokenID    string `json:"token_id"`
	Name       string `json:"name"`
	ImageURL   string `json:"image_url"`
	Permalink  string `json:"permalink"`
	NumSales   int    `json:"num_sales"`
	Collection *struct {
		ImageURL string `json:"image_url"`
	} `json:"collection"`
}

type profileResponse struct {
	Username string `json:"username"`
}
