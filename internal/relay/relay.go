package relay

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/The-Visitors/discord-bot/internal/eth"
	"github.com/The-Visitors/discord-bot/internal/marketplace"
	"github.com/The-Visitors/discord-bot/internal/notify"
	"go.uber.org/zap"
)

// HoldingsLookup is the contract-binding slice that answers balance queries.
type HoldingsLookup interface {
	Holdings(ctx context.Context, owner string, tokenID string) string
}

// Channels maps notification categories to chat channels. Empty means the
// category is disabled.
type Channels struct {
	Sale    string
	Mint    string
	Burn    string
	Listing string
	Cage    string
}

type Options struct {
	Contracts           []string
	Author              notify.Author
	Channels            Channels
	Denylist            []string
	ListingPollInterval time.Duration
	CorrelatorPolicy    CorrelatorPolicy
	MetadataRetryDelay  time.Duration
	MetadataMaxAttempts int
}

// Relay wires the watcher, the correlation engine, the listing poller and
// the delivery side together. All collaborators are passed in explicitly;
// there is no ambient state beyond the process logger.
type Relay struct {
	opts       Options
	watcher    eth.TransfersWatcher
	holdings   HoldingsLookup
	identities *IdentityResolver
	metadata   *MetadataFetcher
	correlator *SaleCorrelator
	listings   *ListingPoller
	notifier   notify.Notifier
	history    notify.History
	ledger     notify.Ledger
	clock      Clock
}

func New(
	opts Options,
	watcher eth.TransfersWatcher,
	collection *eth.Collection,
	feed *marketplace.Client,
	names ReverseLookup,
	notifier notify.Notifier,
	ledger notify.Ledger,
	history notify.History,
	clock Clock,
) *Relay {
	r := &Relay{
		opts:       opts,
		watcher:    watcher,
		holdings:   collection,
		identities: NewIdentityResolver(feed, names),
		metadata:   NewMetadataFetcher(collection, clock, opts.MetadataRetryDelay, opts.MetadataMaxAttempts),
		correlator: NewSaleCorrelator(feed, clock, opts.CorrelatorPolicy),
		notifier:   notifier,
		history:    history,
		ledger:     ledger,
		clock:      clock,
	}
	r.listings = NewListingPoller(feed, ledger, opts.Denylist, r.announceListing, clock, opts.ListingPollInterval)
	return r
}

// Start launches the chain watch, the dispatcher and the listing poller.
// It returns once everything is running; a broken chain subscription is
// fatal for the process, matching the relay's single job.
func (r *Relay) Start(ctx context.Context) {
	fatalErrors := make(chan error, 1)
	go func() {
		for err := range fatalErrors {
			zap.L().Fatal("Chain watch failed", zap.Error(err))
		}
	}()

	transfersChan := make(chan []eth.TokenTransfer, 16)
	go func() {
		if err := r.watcher.WatchTransfers(r.opts.Contracts, transfersChan); err != nil {
			fatalErrors <- err
		}
	}()

	dispatcher := NewDispatcher(r.handleMint, r.handleBurn, r.handleSale, r.handleCage)
	go dispatcher.Run(ctx, transfersChan)

	if r.opts.Channels.Listing != "" {
		go r.listings.Run(ctx)
	}
}

func (r *Relay) handleMint(ctx context.Context, transfer eth.TokenTransfer) {
	metadata, ok := r.metadata.Fetch(ctx, transfer.TokenID)
	if !ok {
		return
	}
	n := notify.MintNotice{
		TokenName:   metadata.Name,
		ImageURL:    metadata.Image,
		Minter:      r.identities.Resolve(ctx, transfer.To),
		MinterHolds: r.holdings.Holdings(ctx, transfer.To, transfer.TokenID),
	}
	for _, attr := range metadata.Attributes {
		n.Traits = append(n.Traits, notify.Trait{Name: attr.TraitType, Value: attr.Value})
	}
	r.send(ctx, r.opts.Channels.Mint, notify.MintEmbed(r.opts.Author, n), notify.HistoryEntry{
		Category:     notify.CategoryMint,
		TokenID:      transfer.TokenID,
		Counterparty: transfer.To,
	})
}

func (r *Relay) handleBurn(ctx context.Context, transfer eth.TokenTransfer) {
	n := notify.BurnNotice{
		TokenID:     transfer.TokenID,
		Burner:      r.identities.Resolve(ctx, transfer.From),
		BurnerHolds: r.holdings.Holdings(ctx, transfer.From, transfer.TokenID),
	}
	r.send(ctx, r.opts.Channels.Burn, notify.BurnEmbed(r.opts.Author, n), notify.HistoryEntry{
		Category:     notify.CategoryBurn,
		TokenID:      transfer.TokenID,
		Counterparty: transfer.From,
	})
}

func (r *Relay) handleSale(ctx context.Context, transfer eth.TokenTransfer) {
	record, ok := r.correlator.Correlate(ctx, transfer.TokenID, transfer.To)
	if !ok {
		return
	}
	seller := record.Seller
	if seller == "" {
		seller = transfer.From
	}
	timesSold := record.NumSales
	if timesSold == 0 {
		// The feed omits the sale count on some event shapes; our own
		// delivery history knows about every sale announced since.
		if prior, err := r.history.CountByToken(ctx, transfer.TokenID, notify.CategorySale); err == nil {
			timesSold = prior + 1
		}
	}
	n := notify.SaleNotice{
		AssetName:    record.AssetName,
		AssetPageURL: record.AssetPageURL,
		AssetImage:   record.AssetImageURL,
		Thumbnail:    r.opts.Author.Thumbnail,
		PriceText:    notify.FormatWei(record.PriceAmount, record.PriceSymbol),
		TimesSold:    strconv.Itoa(timesSold),
		Buyer:        r.identities.ResolveWithHint(ctx, record.Buyer, record.BuyerUsername),
		BuyerHolds:   r.holdings.Holdings(ctx, record.Buyer, transfer.TokenID),
		Seller:       r.identities.Resolve(ctx, seller),
		SellerHolds:  r.holdings.Holdings(ctx, seller, transfer.TokenID),
		ClosedAt:     record.ClosedAt,
	}
	r.send(ctx, r.opts.Channels.Sale, notify.SaleEmbed(r.opts.Author, n), notify.HistoryEntry{
		Category:     notify.CategorySale,
		TokenID:      transfer.TokenID,
		Counterparty: record.Buyer,
		Amount:       record.PriceAmount.String(),
		Symbol:       record.PriceSymbol,
	})
}

func (r *Relay) handleCage(ctx context.Context, transfer eth.TokenTransfer) {
	key := fmt.Sprintf("cage/%s:%d", transfer.TxHash, transfer.LogIndex)
	first, err := r.ledger.MarkIfAbsent(key)
	if err != nil {
		zap.L().Error("failed to mark cage event in ledger", zap.String("key", key), zap.Error(err))
		return
	}
	if !first {
		return
	}
	n := notify.CageNotice{
		TokenID: transfer.TokenID,
		Owner:   r.identities.Resolve(ctx, transfer.From),
	}
	r.send(ctx, r.opts.Channels.Cage, notify.CageEmbed(r.opts.Author, n), notify.HistoryEntry{
		Category:     notify.CategoryCage,
		TokenID:      transfer.TokenID,
		Counterparty: transfer.From,
	})
}

func (r *Relay) announceListing(ctx context.Context, listing marketplace.ListingRecord) {
	n := notify.ListingNotice{
		AssetName:    listing.AssetName,
		AssetPageURL: listing.AssetPageURL,
		AssetImage:   listing.AssetImageURL,
		PriceText:    notify.FormatWei(listing.PriceAmount, listing.PriceSymbol),
		Maker:        r.identities.Resolve(ctx, listing.MakerAddress),
		MakerHolds:   r.holdings.Holdings(ctx, listing.MakerAddress, listing.TokenID),
		ListedAt:     listing.ListedAt,
	}
	r.send(ctx, r.opts.Channels.Listing, notify.ListingEmbed(r.opts.Author, n), notify.HistoryEntry{
		Category:     notify.CategoryListing,
		TokenID:      listing.TokenID,
		Counterparty: listing.MakerAddress,
		Amount:       listing.PriceAmount.String(),
		Symbol:       listing.PriceSymbol,
	})
}

func (r *Relay) send(ctx context.Context, channelID string, embed notify.Embed, entry notify.HistoryEntry) {
	if channelID == "" {
		return
	}
	if err := r.notifier.Send(ctx, channelID, embed); err != nil {
		zap.L().Error("failed to deliver notification",
			zap.String("channel", channelID),
			zap.String("tokenId", entry.TokenID),
			zap.Error(err),
		)
		return
	}
	if err := r.history.Record(ctx, entry); err != nil {
		zap.L().Error("failed to record notification history",
			zap.String("tokenId", entry.TokenID),
			zap.Error(err),
		)
	}
}
