package relay

import (
	"context"
	"strings"

	"github.com/The-Visitors/discord-bot/internal/eth"
	"github.com/The-Visitors/discord-bot/pkg/constants"
	"go.uber.org/zap"
)

type EventKind int

const (
	KindMint EventKind = iota
	KindBurn
	KindSale
	KindCage
)

func (k EventKind) String() string {
	switch k {
	case KindMint:
		return "MINT"
	case KindBurn:
		return "BURN"
	case KindSale:
		return "SALE"
	case KindCage:
		return "CAGE"
	}
	return "UNKNOWN"
}

// Classify tags a transfer by comparing its counterparties against the
// zero/dead sentinel addresses. Anything that is neither a mint nor a burn
// is a sale candidate; whether it actually was a sale is the correlator's
// question.
func Classify(transfer eth.TokenTransfer) EventKind {
	if transfer.EventName == "Caged" {
		return KindCage
	}
	from := strings.ToLower(transfer.From)
	to := strings.ToLower(transfer.To)
	switch {
	case from == constants.NULL_ADDRESS:
		return KindMint
	case to == constants.NULL_ADDRESS || to == constants.DEAD_ADDRESS:
		return KindBurn
	default:
		return KindSale
	}
}

// Handler consumes one classified transfer.
type Handler func(ctx context.Context, transfer eth.TokenTransfer)

// Dispatcher routes decoded transfers to one handler per event kind. Each
// transfer is handled on its own goroutine so a slow correlation search for
// one token never blocks dispatch of the next.
type Dispatcher struct {
	handlers map[EventKind]Handler
}

func NewDispatcher(onMint, onBurn, onSale, onCage Handler) *Dispatcher {
	return &Dispatcher{
		handlers: map[EventKind]Handler{
			KindMint: onMint,
			KindBurn: onBurn,
			KindSale: onSale,
			KindCage: onCage,
		},
	}
}

// Run consumes transfer batches until the channel closes or the context
// ends. Dispatch order follows the batch order; handler completion order is
// unconstrained.
func (d *Dispatcher) Run(ctx context.Context, transfers <-chan []eth.TokenTransfer) {
	for {
		select {
		case batch, ok := <-transfers:
			if !ok {
				return
			}
			for _, transfer := range batch {
				d.dispatch(ctx, transfer)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, transfer eth.TokenTransfer) {
	kind := Classify(transfer)
	handler := d.handlers[kind]
	if handler == nil {
		return
	}
	zap.L().Info("dispatching transfer",
		zap.String("kind", kind.String()),
		zap.String("tokenId", transfer.TokenID),
		zap.String("txHash", transfer.TxHash),
	)
	go handler(ctx, transfer)
}
