package relay

import (
	"context"
	"fmt"
	"strings"

	"github.com/The-Visitors/discord-bot/pkg/constants"
	"go.uber.org/zap"
)

// ProfileLookup is the marketplace username source.
type ProfileLookup interface {
	Profile(ctx context.Context, address string) (string, error)
}

// ReverseLookup is the name-service source.
type ReverseLookup interface {
	ReverseLookup(ctx context.Context, address string) (string, error)
}

// labelStrategy is one tier of the fallback chain. ok=false means the tier
// could not produce a label and the next one should be tried.
type labelStrategy func(ctx context.Context, address string) (label string, ok bool)

// IdentityResolver turns an address into a display label. It never fails
// outward: the final tier (truncated address) always produces output.
type IdentityResolver struct {
	strategies []labelStrategy
}

func NewIdentityResolver(profiles ProfileLookup, names ReverseLookup) *IdentityResolver {
	r := &IdentityResolver{}
	r.strategies = []labelStrategy{
		r.marketplaceUsername(profiles),
		r.nameService(names),
		truncatedAddress,
	}
	return r
}

// ResolveWithHint is Resolve with a username the caller already holds, as
// the feed's sale events carry one inline. A usable hint skips the lookup
// tiers entirely.
func (r *IdentityResolver) ResolveWithHint(ctx context.Context, address, username string) string {
	if username != "" && !strings.EqualFold(username, "null") {
		return fmt.Sprintf("[%s](%s/%s)", username, constants.OPENSEA_WEB_URL, username)
	}
	return r.Resolve(ctx, address)
}

// Resolve runs the tiers in order, first success wins.
func (r *IdentityResolver) Resolve(ctx context.Context, address string) string {
	for _, strategy := range r.strategies {
		if label, ok := strategy(ctx, address); ok {
			return label
		}
	}
	// Unreachable: the last tier cannot fail.
	return address
}

func (r *IdentityResolver) marketplaceUsername(profiles ProfileLookup) labelStrategy {
	return func(ctx context.Context, address string) (string, bool) {
		if profiles == nil {
			return "", false
		}
		username, err := profiles.Profile(ctx, address)
		if err != nil {
			zap.L().Debug("marketplace profile lookup failed",
				zap.String("address", address), zap.Error(err))
			return "", false
		}
		if username == "" || strings.EqualFold(username, "null") {
			return "", false
		}
		return fmt.Sprintf("[%s](%s/%s)", username, constants.OPENSEA_WEB_URL, username), true
	}
}

func (r *IdentityResolver) nameService(names ReverseLookup) labelStrategy {
	return func(ctx context.Context, address string) (string, bool) {
		if names == nil {
			return "", false
		}
		name, err := names.ReverseLookup(ctx, address)
		if err != nil {
			zap.L().Debug("name service lookup failed",
				zap.String("address", address), zap.Error(err))
			return "", false
		}
		if name == "" {
			return "", false
		}
		return ownerPageLink(name, address), true
	}
}

func truncatedAddress(_ context.Context, address string) (string, bool) {
	label := address
	if len(label) > 10 {
		label = label[:10]
	}
	return ownerPageLink(label, address), true
}

func ownerPageLink(label, address string) string {
	return fmt.Sprintf("[%s](%s/%s)", label, constants.OPENSEA_WEB_URL, address)
}
