package eth

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addressTopic(address string) common.Hash {
	return common.BytesToHash(common.LeftPadBytes(common.HexToAddress(address).Bytes(), 32))
}

func erc721TransferLog(t *testing.T, from, to string, tokenID int64) types.Log {
	t.Helper()
	return types.Log{
		Address:     common.HexToAddress("0xC0ffee0000000000000000000000000000000001"),
		BlockNumber: 19000000,
		TxHash:      common.HexToHash("0x01"),
		TxIndex:     3,
		Index:       7,
		Topics: []common.Hash{
			erc721TransferSig,
			addressTopic(from),
			addressTopic(to),
			common.BigToHash(big.NewInt(tokenID)),
		},
	}
}

func TestDecodeErc721Transfer(t *testing.T) {
	decoder := NewDefaultTransactionLogsDecoder()
	lg := erc721TransferLog(t, "0x1111111111111111111111111111111111111111", "0x2222222222222222222222222222222222222222", 42)

	transfers := decoder.Decode([]types.Log{lg})

	require.Len(t, transfers, 1)
	transfer := transfers[0]
	assert.Equal(t, "Transfer", transfer.EventName)
	assert.Equal(t, "0x1111111111111111111111111111111111111111", transfer.From)
	assert.Equal(t, "0x2222222222222222222222222222222222222222", transfer.To)
	assert.Equal(t, "42", transfer.TokenID)
	assert.Equal(t, int64(1), transfer.Amount)
	assert.Equal(t, uint64(19000000), transfer.BlockNumber)
	assert.Equal(t, uint64(3), transfer.TransactionIndex)
	assert.Equal(t, uint64(7), transfer.LogIndex)
	assert.Equal(t, "0xc0ffee0000000000000000000000000000000001", transfer.Contract)
}

func TestDecodeErc1155TransferSingle(t *testing.T) {
	decoder := NewDefaultTransactionLogsDecoder()
	event := erc1155ABI.Events["TransferSingle"]
	data, err := event.Inputs.NonIndexed().Pack(big.NewInt(7), big.NewInt(3))
	require.NoError(t, err)

	lg := types.Log{
		Topics: []common.Hash{
			event.ID,
			addressTopic("0x3333333333333333333333333333333333333333"), // operator
			addressTopic("0x1111111111111111111111111111111111111111"),
			addressTopic("0x2222222222222222222222222222222222222222"),
		},
		Data: data,
	}

	transfers := decoder.Decode([]types.Log{lg})

	require.Len(t, transfers, 1)
	assert.Equal(t, "TransferSingle", transfers[0].EventName)
	assert.Equal(t, "0x1111111111111111111111111111111111111111", transfers[0].From)
	assert.Equal(t, "0x2222222222222222222222222222222222222222", transfers[0].To)
	assert.Equal(t, "7", transfers[0].TokenID)
	assert.Equal(t, int64(3), transfers[0].Amount)
}

func TestDecodeErc1155TransferBatch(t *testing.T) {
	decoder := NewDefaultTransactionLogsDecoder()
	event := erc1155ABI.Events["TransferBatch"]
	ids := []*big.Int{big.NewInt(1), big.NewInt(2), big.NewInt(3)}
	values := []*big.Int{big.NewInt(10), big.NewInt(20), big.NewInt(30)}
	data, err := event.Inputs.NonIndexed().Pack(ids, values)
	require.NoError(t, err)

	lg := types.Log{
		Topics: []common.Hash{
			event.ID,
			addressTopic("0x3333333333333333333333333333333333333333"),
			addressTopic("0x1111111111111111111111111111111111111111"),
			addressTopic("0x2222222222222222222222222222222222222222"),
		},
		Data: data,
	}

	transfers := decoder.Decode([]types.Log{lg})

	require.Len(t, transfers, 3)
	for i, transfer := range transfers {
		assert.Equal(t, "TransferBatch", transfer.EventName)
		assert.Equal(t, ids[i].String(), transfer.TokenID)
		assert.Equal(t, values[i].Int64(), transfer.Amount)
	}
}

func TestDecodeCaged(t *testing.T) {
	decoder := NewDefaultTransactionLogsDecoder()
	event := cageABI.Events["Caged"]
	data, err := event.Inputs.NonIndexed().Pack(big.NewInt(99))
	require.NoError(t, err)

	lg := types.Log{
		Topics: []common.Hash{
			event.ID,
			addressTopic("0x4444444444444444444444444444444444444444"),
		},
		Data: data,
	}

	transfers := decoder.Decode([]types.Log{lg})

	require.Len(t, transfers, 1)
	assert.Equal(t, "Caged", transfers[0].EventName)
	assert.Equal(t, "0x4444444444444444444444444444444444444444", transfers[0].From)
	assert.Equal(t, "99", transfers[0].TokenID)
}

func TestDecodeSkipsUnknownAndMalformedLogs(t *testing.T) {
	decoder := NewDefaultTransactionLogsDecoder()

	t.Run("unknown signature", func(t *testing.T) {
		lg := types.Log{Topics: []common.Hash{common.HexToHash("0xdead")}}
		assert.Empty(t, decoder.Decode([]types.Log{lg}))
	})

	t.Run("no topics", func(t *testing.T) {
		assert.Empty(t, decoder.Decode([]types.Log{{}}))
	})

	t.Run("erc721 approval-style topics length", func(t *testing.T) {
		// A Transfer signature with only three topics is an ERC-20 transfer,
		// not an NFT one.
		lg := types.Log{Topics: []common.Hash{
			erc721TransferSig,
			addressTopic("0x1111111111111111111111111111111111111111"),
			addressTopic("0x2222222222222222222222222222222222222222"),
		}}
		assert.Empty(t, decoder.Decode([]types.Log{lg}))
	})
}

func TestDecodePreservesInputOrder(t *testing.T) {
	decoder := NewDefaultTransactionLogsDecoder()
	logs := []types.Log{
		erc721TransferLog(t, "0x1111111111111111111111111111111111111111", "0x2222222222222222222222222222222222222222", 1),
		erc721TransferLog(t, "0x1111111111111111111111111111111111111111", "0x2222222222222222222222222222222222222222", 2),
		erc721TransferLog(t, "0x1111111111111111111111111111111111111111", "0x2222222222222222222222222222222222222222", 3),
	}

	transfers := decoder.Decode(logs)

	require.Len(t, transfers, 3)
	assert.Equal(t, "1", transfers[0].TokenID)
	assert.Equal(t, "2", transfers[1].TokenID)
	assert.Equal(t, "3", transfers[2].TokenID)
}
