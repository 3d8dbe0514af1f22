package notify

import (
	"math/big"
	"strings"
	"time"

	"github.com/The-Visitors/discord-bot/pkg/constants"
)

const embedColor = 0x0099ff

const placeholder = "?"

type Field struct {
	Name   string
	Value  string
	Inline bool
}

type Author struct {
	Name      string
	Thumbnail string
	URL       string
}

// Embed is the structured notification payload handed to the delivery
// collaborator. Assembly only; no I/O happens here.
type Embed struct {
	Title        string
	URL          string
	Color        int
	Author       Author
	ThumbnailURL string
	ImageURL     string
	Fields       []Field
	Timestamp    time.Time
	FooterText   string
	FooterIcon   string
}

type Trait struct {
	Name  string
	Value string
}

type SaleNotice struct {
	AssetName    string
	AssetPageURL string
	AssetImage   string
	Thumbnail    string
	PriceText    string
	TimesSold    string
	Buyer        string
	BuyerHolds   string
	Seller       string
	SellerHolds  string
	ClosedAt     time.Time
}

type MintNotice struct {
	TokenName   string
	ImageURL    string
	Minter      string
	MinterHolds string
	Traits      []Trait
}

type BurnNotice struct {
	TokenID     string
	Burner      string
	BurnerHolds string
}

type ListingNotice struct {
	AssetName    string
	AssetPageURL string
	AssetImage   string
	PriceText    string
	Maker        string
	MakerHolds   string
	ListedAt     time.Time
}

type CageNotice struct {
	TokenID string
	Owner   string
}

func SaleEmbed(author Author, n SaleNotice) Embed {
	return Embed{
		Title:        orPlaceholder(n.AssetName) + " sold!",
		URL:          n.AssetPageURL,
		Color:        embedColor,
		Author:       author,
		ThumbnailURL: n.Thumbnail,
		ImageURL:     n.AssetImage,
		Fields: []Field{
			{Name: "Price", Value: orPlaceholder(n.PriceText), Inline: true},
			{Name: "Times Sold", Value: orPlaceholder(n.TimesSold), Inline: true},
			blankField(),
			{Name: "Buyer", Value: orPlaceholder(n.Buyer), Inline: true},
			{Name: "Buyer Holds", Value: orPlaceholder(n.BuyerHolds), Inline: true},
			blankField(),
			{Name: "Seller", Value: orPlaceholder(n.Seller), Inline: true},
			{Name: "Seller Holds", Value: orPlaceholder(n.SellerHolds), Inline: true},
		},
		Timestamp:  n.ClosedAt,
		FooterText: "Sold on OpenSea",
		FooterIcon: constants.OPENSEA_LOGO_URL,
	}
}

func MintEmbed(author Author, n MintNotice) Embed {
	fields := []Field{
		{Name: "Minter", Value: orPlaceholder(n.Minter), Inline: true},
		{Name: "Minter Holds", Value: orPlaceholder(n.MinterHolds), Inline: true},
		blankField(),
	}
	for _, trait := range n.Traits {
		fields = append(fields, Field{Name: trait.Name, Value: trait.Value, Inline: true})
	}
	return Embed{
		Title:        orPlaceholder(n.TokenName) + " minted!",
		Color:        embedColor,
		Author:       author,
		ThumbnailURL: author.Thumbnail,
		ImageURL:     n.ImageURL,
		Fields:       fields,
		Timestamp:    time.Now(),
	}
}

func BurnEmbed(author Author, n BurnNotice) Embed {
	return Embed{
		Title:  "Token #" + orPlaceholder(n.TokenID) + " burned",
		Color:  embedColor,
		Author: author,
		Fields: []Field{
			{Name: "Burned By", Value: orPlaceholder(n.Burner), Inline: true},
			{Name: "Still Holds", Value: orPlaceholder(n.BurnerHolds), Inline: true},
		},
		Timestamp: time.Now(),
	}
}

func ListingEmbed(author Author, n ListingNotice) Embed {
	return Embed{
		Title:        orPlaceholder(n.AssetName) + " listed for sale!",
		URL:          n.AssetPageURL,
		Color:        embedColor,
		Author:       author,
		ThumbnailURL: author.Thumbnail,
		ImageURL:     n.AssetImage,
		Fields: []Field{
			{Name: "Price", Value: orPlaceholder(n.PriceText), Inline: true},
			{Name: "Seller", Value: orPlaceholder(n.Maker), Inline: true},
			{Name: "Seller Holds", Value: orPlaceholder(n.MakerHolds), Inline: true},
		},
		Timestamp:  n.ListedAt,
		FooterText: "Listed on OpenSea",
		FooterIcon: constants.OPENSEA_LOGO_URL,
	}
}

func CageEmbed(author Author, n CageNotice) Embed {
	return Embed{
		Title:  "Token #" + orPlaceholder(n.TokenID) + " caged!",
		Color:  embedColor,
		Author: author,
		Fields: []Field{
			{Name: "Owner", Value: orPlaceholder(n.Owner), Inline: true},
		},
		Timestamp: time.Now(),
	}
}

// FormatWei renders a smallest-unit amount as a decimal token amount.
func FormatWei(amount *big.Int, symbol string) string {
	if amount == nil {
		return placeholder
	}
	if symbol == "" || strings.EqualFold(symbol, "ETH") || strings.EqualFold(symbol, "WETH") {
		symbol = constants.ETHER_SYMBOL
	}
	ether := new(big.Float).Quo(new(big.Float).SetInt(amount), big.NewFloat(1e18))
	text := strings.TrimRight(strings.TrimRight(ether.Text('f', 4), "0"), ".")
	if text == "" {
		text = "0"
	}
	return text + symbol
}

func blankField() Field {
	return Field{Name: constants.EMBED_BLANK_FIELD, Value: constants.EMBED_BLANK_FIELD, Inline: true}
}

func orPlaceholder(value string) string {
	if value == "" {
		return placeholder
	}
	return value
}
