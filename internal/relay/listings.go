package relay

import (
	"context"
	"strings"
	"time"

	"github.com/The-Visitors/discord-bot/internal/marketplace"
	"github.com/The-Visitors/discord-bot/internal/notify"
	"go.uber.org/zap"
)

// ListingFeed is the order-created feed slice the poller consumes.
type ListingFeed interface {
	ListingEvents(ctx context.Context) ([]marketplace.ListingRecord, error)
}

// ListingAnnouncer receives listings that passed the filters and the ledger.
type ListingAnnouncer func(ctx context.Context, listing marketplace.ListingRecord)

// ListingPoller announces new marketplace listings exactly once. The ledger
// write lands before the announcement attempt: a crash in between loses the
// notification but can never duplicate it.
type ListingPoller struct {
	feed     ListingFeed
	ledger   notify.Ledger
	denylist map[string]bool
	announce ListingAnnouncer
	clock    Clock
	interval time.Duration
}

func NewListingPoller(
	feed ListingFeed,
	ledger notify.Ledger,
	denylist []string,
	announce ListingAnnouncer,
	clock Clock,
	interval time.Duration,
) *ListingPoller {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	denied := make(map[string]bool, len(denylist))
	for _, address := range denylist {
		if address = strings.ToLower(strings.TrimSpace(address)); address != "" {
			denied[address] = true
		}
	}
	return &ListingPoller{
		feed:     feed,
		ledger:   ledger,
		denylist: denied,
		announce: announce,
		clock:    clock,
		interval: interval,
	}
}

// Run polls until the context ends. Passes stay in seed mode, writing the
// ledger without notifying, until one pass has actually seen the feed: a
// failed first poll must not hand the feed's current backlog to the next
// pass as "new". The timer reschedules unconditionally, pass failures
// included.
func (p *ListingPoller) Run(ctx context.Context) {
	seeded := p.PollOnce(ctx, true)
	for p.clock.Sleep(ctx, p.interval) {
		if !seeded {
			seeded = p.PollOnce(ctx, true)
			continue
		}
		p.PollOnce(ctx, false)
	}
}

// PollOnce runs one feed pass and reports whether the feed answered.
func (p *ListingPoller) PollOnce(ctx context.Context, seedOnly bool) bool {
	listings, err := p.feed.ListingEvents(ctx)
	if err != nil {
		zap.L().Warn("listing feed poll failed", zap.Error(err))
		return false
	}

	for _, listing := range listings {
		if listing.OrderType != marketplace.OrderTypeListing {
			continue
		}
		if p.denylist[strings.ToLower(listing.MakerAddress)] {
			zap.L().Debug("skipping denylisted maker",
				zap.String("maker", listing.MakerAddress),
				zap.String("tokenId", listing.TokenID),
			)
			continue
		}
		key := listing.LedgerKey()
		first, err := p.ledger.MarkIfAbsent(key)
		if err != nil {
			// Without the ledger write the at-most-once guarantee is gone,
			// so the announcement is skipped too.
			zap.L().Error("failed to mark listing in ledger",
				zap.String("key", key), zap.Error(err))
			continue
		}
		if !first || seedOnly {
			continue
		}
		p.announce(ctx, listing)
	}
	return true
}
