package notify

import (
	"math/big"
	"testing"
	"time"

	"github.com/The-Visitors/discord-bot/pkg/constants"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAuthor() Author {
	return Author{
		Name:      "The Visitors",
		Thumbnail: "https://img.example/logo.png",
		URL:       "https://example.com",
	}
}

func TestSaleEmbed(t *testing.T) {
	closedAt := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	embed := SaleEmbed(testAuthor(), SaleNotice{
		AssetName:    "Visitor #42",
		AssetPageURL: "https://opensea.io/assets/0xc0ffee/42",
		AssetImage:   "https://img.example/42.png",
		PriceText:    "1.5Ξ",
		TimesSold:    "3",
		Buyer:        "[punk_collector](https://opensea.io/punk_collector)",
		BuyerHolds:   "5",
		Seller:       "[vault.eth](https://opensea.io/0xseller)",
		SellerHolds:  "0",
		ClosedAt:     closedAt,
	})

	assert.Equal(t, "Visitor #42 sold!", embed.Title)
	assert.Equal(t, "https://opensea.io/assets/0xc0ffee/42", embed.URL)
	assert.Equal(t, closedAt, embed.Timestamp)
	assert.Equal(t, "Sold on OpenSea", embed.FooterText)

	require.Len(t, embed.Fields, 8)
	assert.Equal(t, "Price", embed.Fields[0].Name)
	assert.Equal(t, "1.5Ξ", embed.Fields[0].Value)
	assert.Equal(t, "Times Sold", embed.Fields[1].Name)
	assert.Equal(t, constants.EMBED_BLANK_FIELD, embed.Fields[2].Name)
	assert.Equal(t, "Buyer", embed.Fields[3].Name)
	assert.Equal(t, "Buyer Holds", embed.Fields[4].Name)
	assert.Equal(t, constants.EMBED_BLANK_FIELD, embed.Fields[5].Name)
	assert.Equal(t, "Seller", embed.Fields[6].Name)
	assert.Equal(t, "Seller Holds", embed.Fields[7].Name)

	// Zero holdings render as themselves, not as the placeholder.
	assert.Equal(t, "0", embed.Fields[7].Value)
}

func TestSaleEmbedPlaceholders(t *testing.T) {
	embed := SaleEmbed(testAuthor(), SaleNotice{})

	assert.Equal(t, "? sold!", embed.Title)
	for _, field := range embed.Fields {
		if field.Name == constants.EMBED_BLANK_FIELD {
			continue
		}
		assert.Equal(t, "?", field.Value, field.Name)
	}
}

func TestMintEmbedAppendsTraits(t *testing.T) {
	embed := MintEmbed(testAuthor(), MintNotice{
		TokenName: "Visitor #7",
		Minter:    "0xminter",
		Traits: []Trait{
			{Name: "Background", Value: "Void"},
			{Name: "Eyes", Value: "Laser"},
		},
	})

	assert.Equal(t, "Visitor #7 minted!", embed.Title)
	require.Len(t, embed.Fields, 5)
	assert.Equal(t, "Background", embed.Fields[3].Name)
	assert.Equal(t, "Void", embed.Fields[3].Value)
	assert.Equal(t, "Eyes", embed.Fields[4].Name)
}

func TestBurnEmbed(t *testing.T) {
	embed := BurnEmbed(testAuthor(), BurnNotice{TokenID: "13", Burner: "0xburner", BurnerHolds: "2"})

	assert.Equal(t, "Token #13 burned", embed.Title)
	require.Len(t, embed.Fields, 2)
	assert.Equal(t, "0xburner", embed.Fields[0].Value)
	assert.Equal(t, "2", embed.Fields[1].Value)
}

func TestListingEmbed(t *testing.T) {
	listedAt := time.Date(2024, 6, 1, 13, 0, 0, 0, time.UTC)
	embed := ListingEmbed(testAuthor(), ListingNotice{
		AssetName:    "Visitor #7",
		AssetPageURL: "https://opensea.io/assets/0xc0ffee/7",
		PriceText:    "0.9Ξ",
		Maker:        "0xmaker",
		MakerHolds:   "4",
		ListedAt:     listedAt,
	})

	assert.Equal(t, "Visitor #7 listed for sale!", embed.Title)
	assert.Equal(t, listedAt, embed.Timestamp)
	assert.Equal(t, "Listed on OpenSea", embed.FooterText)
	require.Len(t, embed.Fields, 3)
	assert.Equal(t, "0.9Ξ", embed.Fields[0].Value)
}

func TestCageEmbed(t *testing.T) {
	embed := CageEmbed(testAuthor(), CageNotice{TokenID: "99", Owner: "0xowner"})

	assert.Equal(t, "Token #99 caged!", embed.Title)
	require.Len(t, embed.Fields, 1)
	assert.Equal(t, "0xowner", embed.Fields[0].Value)
}

func TestFormatWei(t *testing.T) {
	ether := func(s string) *big.Int {
		v, ok := new(big.Int).SetString(s, 10)
		require.True(t, ok)
		return v
	}

	tests := []struct {
		name     string
		amount   *big.Int
		symbol   string
		expected string
	}{
		{"nil amount", nil, "ETH", "?"},
		{"zero", big.NewInt(0), "ETH", "0Ξ"},
		{"one ether", ether("1000000000000000000"), "ETH", "1Ξ"},
		{"fraction", ether("1500000000000000000"), "ETH", "1.5Ξ"},
		{"weth uses ether symbol", ether("900000000000000000"), "WETH", "0.9Ξ"},
		{"empty symbol defaults to ether", ether("1000000000000000000"), "", "1Ξ"},
		{"other token keeps its symbol", ether("2000000000000000000"), "USDC", "2USDC"},
		{"rounds to four decimals", ether("123456700000000000"), "ETH", "0.1235Ξ"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatWei(tt.amount, tt.symbol))
		})
	}
}
