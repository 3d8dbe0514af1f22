package relay

import (
	"context"
	"strings"
	"time"

	"github.com/The-Visitors/discord-bot/internal/marketplace"
	"go.uber.org/zap"
)

// SaleFeed is the marketplace event feed slice the correlator polls.
type SaleFeed interface {
	SaleEvents(ctx context.Context, occurredAfter time.Time) ([]marketplace.SaleRecord, error)
}

// CorrelatorPolicy holds the retry policy for the sale search. The feed is
// eventually consistent, so the matching record may appear any time within a
// growing window, or never.
type CorrelatorPolicy struct {
	// InitialDelay is waited before the first feed query, giving the
	// marketplace indexer a head start on the chain log.
	InitialDelay time.Duration
	// BackoffBase scales the quadratic inter-attempt delay: after attempt
	// n the next one fires after n*n*BackoffBase.
	BackoffBase time.Duration
	// MaxAttempts is the give-up ceiling. Exhaustion is silent: a transfer
	// the feed cannot explain as a sale is simply not announced.
	MaxAttempts int
	// LookbackStep widens the feed query window per attempt.
	LookbackStep time.Duration
}

func DefaultCorrelatorPolicy() CorrelatorPolicy {
	return CorrelatorPolicy{
		InitialDelay: 5 * time.Second,
		BackoffBase:  time.Second,
		MaxAttempts:  30,
		LookbackStep: 2 * time.Minute,
	}
}

func (p CorrelatorPolicy) normalized() CorrelatorPolicy {
	def := DefaultCorrelatorPolicy()
	if p.InitialDelay <= 0 {
		p.InitialDelay = def.InitialDelay
	}
	if p.BackoffBase <= 0 {
		p.BackoffBase = def.BackoffBase
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.LookbackStep <= 0 {
		p.LookbackStep = def.LookbackStep
	}
	return p
}

// SaleCorrelator reconciles an on-chain transfer against the marketplace
// feed to recover the sale behind it.
type SaleCorrelator struct {
	feed   SaleFeed
	clock  Clock
	policy CorrelatorPolicy
}

func NewSaleCorrelator(feed SaleFeed, clock Clock, policy CorrelatorPolicy) *SaleCorrelator {
	return &SaleCorrelator{
		feed:   feed,
		clock:  clock,
		policy: policy.normalized(),
	}
}

// searchState is the retry state of one correlation search.
type searchState struct {
	tokenID string
	buyer   string
	attempt int
}

// Correlate searches the feed for the sale matching (tokenID, buyer). The
// buyer comparison is case-insensitive: addresses from the chain log and the
// feed may differ in letter case only. It returns ok=false once the attempt
// ceiling is exhausted or the context ends.
func (c *SaleCorrelator) Correlate(ctx context.Context, tokenID, buyer string) (marketplace.SaleRecord, bool) {
	if !c.clock.Sleep(ctx, c.policy.InitialDelay) {
		return marketplace.SaleRecord{}, false
	}

	state := searchState{tokenID: tokenID, buyer: buyer}
	for state.attempt = 1; state.attempt <= c.policy.MaxAttempts; state.attempt++ {
		record, found := c.searchOnce(ctx, state)
		if found {
			zap.L().Info("sale correlated",
				zap.String("tokenId", tokenID),
				zap.Int("attempt", state.attempt),
			)
			return record, true
		}
		if state.attempt == c.policy.MaxAttempts {
			break
		}
		if !c.clock.Sleep(ctx, c.backoff(state.attempt)) {
			return marketplace.SaleRecord{}, false
		}
	}

	zap.L().Info("giving up on sale correlation",
		zap.String("tokenId", tokenID),
		zap.String("buyer", buyer),
		zap.Int("attempts", c.policy.MaxAttempts),
	)
	return marketplace.SaleRecord{}, false
}

func (c *SaleCorrelator) searchOnce(ctx context.Context, state searchState) (marketplace.SaleRecord, bool) {
	lookback := time.Duration(state.attempt) * c.policy.LookbackStep
	occurredAfter := c.clock.Now().Add(-lookback)

	events, err := c.feed.SaleEvents(ctx, occurredAfter)
	if err != nil {
		// A failed poll burns an attempt like an empty one; the ceiling is
		// the only termination condition.
		zap.L().Warn("sale feed query failed",
			zap.String("tokenId", state.tokenID),
			zap.Int("attempt", state.attempt),
			zap.Error(err),
		)
		return marketplace.SaleRecord{}, false
	}

	// Feed order is authoritative recency order: the last match wins.
	var match marketplace.SaleRecord
	found := false
	for _, ev := range events {
		if ev.TokenID == state.tokenID && strings.EqualFold(ev.Buyer, state.buyer) {
			match = ev
			found = true
		}
	}
	return match, found
}

func (c *SaleCorrelator) backoff(attempt int) time.Duration {
	return time.Duration(attempt*attempt) * c.policy.BackoffBase
}
