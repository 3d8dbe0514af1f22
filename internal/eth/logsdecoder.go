package eth

import (
	"errors"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

var erc1155ABI abi.ABI
var cageABI abi.ABI
var erc721TransferSig = common.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef")

func init() {
	erc1155Abi, err := abi.JSON(strings.NewReader(`[
    {
        "anonymous": false,
        "inputs": [
            {"indexed": true, "name": "operator", "type": "address"},
            {"indexed": true, "name": "from",     "type": "address"},
            {"indexed": true, "name": "to",       "type": "address"},
            {"indexed": false,"name": "id",       "type": "uint256"},
            {"indexed": false,"name": "value",    "type": "uint256"}
        ],
        "name": "TransferSingle",
        "type": "event"
    },
    {
        "anonymous": false,
        "inputs": [
            {"indexed": true, "name": "operator", "type": "address"},
            {"indexed": true, "name": "from",     "type": "address"},
            {"indexed": true, "name": "to",       "type": "address"},
            {"indexed": false,"name": "ids",      "type": "uint256[]"},
            {"indexed": false,"name": "values",   "type": "uint256[]"}
        ],
        "name": "TransferBatch",
        "type": "event"
    }
	]`))
	if err != nil {
		panic("failed to parse ERC1155 ABI")
	}
	erc1155ABI = erc1155Abi

	cageAbi, err := abi.JSON(strings.NewReader(`[
    {
        "anonymous": false,
        "inputs": [
            {"indexed": true, "name": "owner",   "type": "address"},
            {"indexed": false,"name": "tokenId", "type": "uint256"}
        ],
        "name": "Caged",
        "type": "event"
    }
	]`))
	if err != nil {
		panic("failed to parse cage ABI")
	}
	cageABI = cageAbi
}

type TransactionLogsDecoder interface {
	Decode(allLogs []types.Log) []TokenTransfer
}

type DefaultTransactionLogsDecoder struct{}

func NewDefaultTransactionLogsDecoder() *DefaultTransactionLogsDecoder {
	return &DefaultTransactionLogsDecoder{}
}

// Decode flattens the supported transfer-family logs into TokenTransfer
// records, preserving the input order. Unknown event signatures are skipped.
func (d *DefaultTransactionLogsDecoder) Decode(allLogs []types.Log) []TokenTransfer {
	var result []TokenTransfer
	erc1155transferSingleSig := erc1155ABI.Events["TransferSingle"].ID
	erc1155transferBatchSig := erc1155ABI.Events["TransferBatch"].ID
	cagedSig := cageABI.Events["Caged"].ID

	for _, lg := range allLogs {
		if len(lg.Topics) == 0 {
			continue
		}
		switch lg.Topics[0] {
		case erc721TransferSig:
			if len(lg.Topics) == 4 {
				from := common.HexToAddress(lg.Topics[1].Hex())
				to := common.HexToAddress(lg.Topics[2].Hex())
				tokenId := new(big.Int).SetBytes(lg.Topics[3].Bytes())
				result = append(result, TokenTransfer{
					BlockNumber:      lg.BlockNumber,
					TxHash:           strings.ToLower(lg.TxHash.Hex()),
					Contract:         strings.ToLower(lg.Address.Hex()),
					EventName:        "Transfer",
					From:             strings.ToLower(from.Hex()),
					To:               strings.ToLower(to.Hex()),
					TokenID:          tokenId.String(),
					Amount:           1,
					TransactionIndex: uint64(lg.TxIndex),
					LogIndex:         uint64(lg.Index),
				})
			}
		case erc1155transferSingleSig:
			action, err := decodeTransferSingle(lg)
			if err != nil {
				zap.L().Error("error decoding TransferSingle", zap.Error(err))
				continue
			}
			result = append(result, action...)
		case erc1155transferBatchSig:
			actions, err := decodeTransferBatch(lg)
			if err != nil {
				zap.L().Error("error decoding TransferBatch", zap.Error(err))
				continue
			}
			result = append(result, actions...)
		case cagedSig:
			action, err := decodeCaged(lg)
			if err != nil {
				zap.L().Error("error decoding Caged", zap.Error(err))
				continue
			}
			result = append(result, action)
		}
	}
	return result
}

func decodeTransferSingle(lg types.Log) ([]TokenTransfer, error) {
	if len(lg.Topics) < 4 {
		return nil, errors.New("invalid TransferSingle topics length")
	}
	from := common.HexToAddress(lg.Topics[2].Hex())
	to := common.HexToAddress(lg.Topics[3].Hex())

	var transferData struct {
		ID    *big.Int `abi:"id"`
		Value *big.Int `abi:"value"`
	}
	if err := erc1155ABI.UnpackIntoInterface(&transferData, "TransferSingle", lg.Data); err != nil {
		return nil, err
	}

	action := TokenTransfer{
		BlockNumber:      lg.BlockNumber,
		TxHash:           strings.ToLower(lg.TxHash.Hex()),
		Contract:         strings.ToLower(lg.Address.Hex()),
		EventName:        "TransferSingle",
		From:             strings.ToLower(from.Hex()),
		To:               strings.ToLower(to.Hex()),
		TokenID:          transferData.ID.String(),
		Amount:           transferData.Value.Int64(),
		TransactionIndex: uint64(lg.TxIndex),
		LogIndex:         uint64(lg.Index),
	}
	return []TokenTransfer{action}, nil
}

func decodeTransferBatch(lg types.Log) ([]TokenTransfer, error) {
	if len(lg.Topics) < 4 {
		return nil, errors.New("invalid TransferBatch topics length")
	}

	from := common.HexToAddress(lg.Topics[2].Hex())
	to := common.HexToAddress(lg.Topics[3].Hex())

	var batchData struct {
		Ids    []*big.Int `abi:"ids"`
		Values []*big.Int `abi:"values"`
	}
	if err := erc1155ABI.UnpackIntoInterface(&batchData, "TransferBatch", lg.Data); err != nil {
		return nil, err
	}

	var actions []TokenTransfer
	for i := 0; i < len(batchData.Ids); i++ {
		actions = append(actions, TokenTransfer{
			BlockNumber:      lg.BlockNumber,
			TxHash:           strings.ToLower(lg.TxHash.Hex()),
			Contract:         strings.ToLower(lg.Address.Hex()),
			EventName:        "TransferBatch",
			From:             strings.ToLower(from.Hex()),
			To:               strings.ToLower(to.Hex()),
			TokenID:          batchData.Ids[i].String(),
			Amount:           batchData.Values[i].Int64(),
			TransactionIndex: uint64(lg.TxIndex),
			LogIndex:         uint64(lg.Index),
		})
	}
	return actions, nil
}

func decodeCaged(lg types.Log) (TokenTransfer, error) {
	if len(lg.Topics) < 2 {
		return TokenTransfer{}, errors.New("invalid Caged topics length")
	}
	owner := common.HexToAddress(lg.Topics[1].Hex())

	var cagedData struct {
		TokenId *big.Int `abi:"tokenId"`
	}
	if err := cageABI.UnpackIntoInterface(&cagedData, "Caged", lg.Data); err != nil {
		return TokenTransfer{}, err
	}

	return TokenTransfer{
		BlockNumber:      lg.BlockNumber,
		TxHash:           strings.ToLower(lg.TxHash.Hex()),
		Contract:         strings.ToLower(lg.Address.Hex()),
		EventName:        "Caged",
		From:             strings.ToLower(owner.Hex()),
		TokenID:          cagedData.TokenId.String(),
		Amount:           1,
		TransactionIndex: uint64(lg.TxIndex),
		LogIndex:         uint64(lg.Index),
	}, nil
}
