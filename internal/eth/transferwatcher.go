package eth

import (
	"context"
	"math/big"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// TransfersWatcher streams transfer-family events for the watched contracts,
// starting at the chain tip. The relay announces live activity only, so there
// is no historical backfill and no checkpointing.
type TransfersWatcher interface {
	WatchTransfers(contracts []string, transfersChan chan<- []TokenTransfer) error
}

type DefaultTransfersWatcher struct {
	ctx     context.Context
	client  EthClient
	decoder TransactionLogsDecoder
}

func NewTransfersWatcher(ctx context.Context, client EthClient) *DefaultTransfersWatcher {
	return &DefaultTransfersWatcher{
		ctx:     ctx,
		client:  client,
		decoder: NewDefaultTransactionLogsDecoder(),
	}
}

func (w *DefaultTransfersWatcher) WatchTransfers(
	contracts []string,
	transfersChan chan<- []TokenTransfer,
) error {
	contractAddrs := make([]common.Address, len(contracts))
	for i, addr := range contracts {
		contractAddrs[i] = common.HexToAddress(addr)
	}

	zap.L().Info("Starting watch on contract transfers",
		zap.Strings("contracts", contracts),
	)

	query := ethereum.FilterQuery{Addresses: contractAddrs}
	logsCh := make(chan types.Log, 64)
	sub, err := w.client.SubscribeFilterLogs(w.ctx, query, logsCh)
	if err != nil {
		zap.L().Warn("Log subscription unavailable, falling back to polling", zap.Error(err))
		return w.pollForNewLogs(contractAddrs, transfersChan)
	}
	return w.subscribeAndProcessLogs(sub, logsCh, transfersChan)
}

func (w *DefaultTransfersWatcher) subscribeAndProcessLogs(
	sub ethereum.Subscription,
	logsCh <-chan types.Log,
	transfersChan chan<- []TokenTransfer,
) error {
	defer sub.Unsubscribe()

	for {
		select {
		case err := <-sub.Err():
			return err

		case lg := <-logsCh:
			if lg.Removed {
				continue
			}
			transfers := w.decoder.Decode([]types.Log{lg})
			if len(transfers) == 0 {
				continue
			}
			select {
			case transfersChan <- transfers:
			case <-w.ctx.Done():
				return nil
			}

		case <-w.ctx.Done():
			return nil
		}
	}
}

func (w *DefaultTransfersWatcher) pollForNewLogs(
	contractAddrs []common.Address,
	transfersChan chan<- []TokenTransfer,
) error {
	tip, err := w.waitForTip()
	if err != nil {
		return err
	}
	currentBlock := tip + 1

	for {
		if w.ctx.Err() != nil {
			return nil
		}
		tipBlock, err := latestBlockNumber(w.ctx, w.client)
		if err != nil {
			zap.L().Error("Could not get latest block (polling)", zap.Error(err))
			if sleepInterrupted(w.ctx, 3*time.Second) {
				return nil
			}
			continue
		}

		if currentBlock > tipBlock {
			if sleepInterrupted(w.ctx, 3*time.Second) {
				return nil
			}
			continue
		}

		logs, err := fetchLogsInRange(w.ctx, w.client, contractAddrs, currentBlock, tipBlock)
		if err != nil {
			zap.L().Error("Failed fetching logs (polling)",
				zap.Uint64("start", currentBlock),
				zap.Uint64("end", tipBlock),
				zap.Error(err),
			)
			if sleepInterrupted(w.ctx, 3*time.Second) {
				return nil
			}
			continue
		}

		if err := w.emitOrdered(logs, transfersChan); err != nil {
			return err
		}
		currentBlock = tipBlock + 1
	}
}

func (w *DefaultTransfersWatcher) waitForTip() (uint64, error) {
	for {
		tip, err := latestBlockNumber(w.ctx, w.client)
		if err == nil {
			return tip, nil
		}
		if sleepInterrupted(w.ctx, 1*time.Second) {
			return 0, w.ctx.Err()
		}
	}
}

func (w *DefaultTransfersWatcher) emitOrdered(
	logs []types.Log,
	transfersChan chan<- []TokenTransfer,
) error {
	decoded := w.decoder.Decode(logs)
	if len(decoded) == 0 {
		return nil
	}

	blockGroups := groupTransfersByBlock(decoded)
	var blocks []uint64
	for b := range blockGroups {
		blocks = append(blocks, b)
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i] < blocks[j] })

	for _, b := range blocks {
		blockTransfers := blockGroups[b]
		sort.Slice(blockTransfers, func(i, j int) bool {
			if blockTransfers[i].TransactionIndex != blockTransfers[j].TransactionIndex {
				return blockTransfers[i].TransactionIndex < blockTransfers[j].TransactionIndex
			}
			return blockTransfers[i].LogIndex < blockTransfers[j].LogIndex
		})

		if header, err := w.client.HeaderByNumber(w.ctx, big.NewInt(int64(b))); err == nil {
			for i := range blockTransfers {
				blockTransfers[i].BlockTime = header.Time
			}
		}

		select {
		case transfersChan <- blockTransfers:
		case <-w.ctx.Done():
			return w.ctx.Err()
		}
	}
	return nil
}

func latestBlockNumber(ctx context.Context, client EthClient) (uint64, error) {
	header, err := client.HeaderByNumber(ctx, nil)
	if err != nil {
		zap.L().Error("Could not get latest block header", zap.Error(err))
		return 0, err
	}
	return header.Number.Uint64(), nil
}

func fetchLogsInRange(
	ctx context.Context,
	client EthClient,
	addresses []common.Address,
	startBlock, endBlock uint64,
) ([]types.Log, error) {
	query := ethereum.FilterQuery{
		FromBlock: big.NewInt(int64(startBlock)),
		ToBlock:   big.NewInt(int64(endBlock)),
		Addresses: addresses,
	}
	return client.FilterLogs(ctx, query)
}

func groupTransfersByBlock(decoded []TokenTransfer) map[uint64][]TokenTransfer {
	groups := make(map[uint64][]TokenTransfer)
	for _, t := range decoded {
		groups[t.BlockNumber] = append(groups[t.BlockNumber], t)
	}
	return groups
}

func sleepInterrupted(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return true
	case <-timer.C:
		return false
	}
}
