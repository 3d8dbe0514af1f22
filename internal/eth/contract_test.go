package eth

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEthClient answers eth_call by dispatching on the 4-byte selector.
type fakeEthClient struct {
	handlers map[[4]byte]func(data []byte) ([]byte, error)
	calls    int
}

func newFakeEthClient() *fakeEthClient {
	return &fakeEthClient{handlers: map[[4]byte]func([]byte) ([]byte, error){}}
}

func (f *fakeEthClient) on(selector []byte, handler func([]byte) ([]byte, error)) {
	var key [4]byte
	copy(key[:], selector)
	f.handlers[key] = handler
}

func (f *fakeEthClient) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.calls++
	if len(msg.Data) < 4 {
		return nil, errors.New("missing selector")
	}
	var key [4]byte
	copy(key[:], msg.Data[:4])
	handler, ok := f.handlers[key]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	return handler(msg.Data[4:])
}

func (f *fakeEthClient) SubscribeFilterLogs(context.Context, ethereum.FilterQuery, chan<- types.Log) (ethereum.Subscription, error) {
	return nil, errors.New("not supported")
}

func (f *fakeEthClient) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return nil, errors.New("not supported")
}

func (f *fakeEthClient) FilterLogs(context.Context, ethereum.FilterQuery) ([]types.Log, error) {
	return nil, errors.New("not supported")
}

func (f *fakeEthClient) Close() {}

func packString(t *testing.T, method string, value string) []byte {
	t.Helper()
	out, err := erc721ABI.Methods[method].Outputs.Pack(value)
	require.NoError(t, err)
	return out
}

func packUint(t *testing.T, parsed string, value int64) []byte {
	t.Helper()
	var out []byte
	var err error
	if parsed == "erc721" {
		out, err = erc721ABI.Methods["balanceOf"].Outputs.Pack(big.NewInt(value))
	} else {
		out, err = erc1155BalanceABI.Methods["balanceOf"].Outputs.Pack(big.NewInt(value))
	}
	require.NoError(t, err)
	return out
}

func TestCollectionViews(t *testing.T) {
	client := newFakeEthClient()
	client.on(erc721ABI.Methods["name"].ID, func([]byte) ([]byte, error) {
		return packString(t, "name", "The Visitors"), nil
	})
	client.on(erc721ABI.Methods["tokenURI"].ID, func([]byte) ([]byte, error) {
		return packString(t, "tokenURI", "ipfs://QmHash/42.json"), nil
	})
	client.on(erc721ABI.Methods["totalSupply"].ID, func([]byte) ([]byte, error) {
		out, err := erc721ABI.Methods["totalSupply"].Outputs.Pack(big.NewInt(10000))
		require.NoError(t, err)
		return out, err
	})

	collection := NewCollection(client, "0xC0ffee0000000000000000000000000000000001")
	ctx := context.Background()

	t.Run("name", func(t *testing.T) {
		name, err := collection.Name(ctx)
		require.NoError(t, err)
		assert.Equal(t, "The Visitors", name)
	})

	t.Run("tokenURI", func(t *testing.T) {
		uri, err := collection.TokenURI(ctx, "42")
		require.NoError(t, err)
		assert.Equal(t, "ipfs://QmHash/42.json", uri)
	})

	t.Run("tokenURI rejects non-numeric id", func(t *testing.T) {
		_, err := collection.TokenURI(ctx, "not-a-number")
		assert.Error(t, err)
	})

	t.Run("totalSupply", func(t *testing.T) {
		supply, err := collection.TotalSupply(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(10000), supply.Int64())
	})
}

func TestHoldings(t *testing.T) {
	ctx := context.Background()

	t.Run("empty owner is unknown", func(t *testing.T) {
		collection := NewCollection(newFakeEthClient(), "0x01")
		assert.Equal(t, UnknownHoldings, collection.Holdings(ctx, "", "1"))
	})

	t.Run("one-arg balance answers first", func(t *testing.T) {
		client := newFakeEthClient()
		client.on(erc721ABI.Methods["balanceOf"].ID, func([]byte) ([]byte, error) {
			return packUint(t, "erc721", 5), nil
		})
		collection := NewCollection(client, "0x01")
		assert.Equal(t, "5", collection.Holdings(ctx, "0x1111111111111111111111111111111111111111", "1"))
	})

	t.Run("falls back to two-arg balance", func(t *testing.T) {
		client := newFakeEthClient()
		client.on(erc1155BalanceABI.Methods["balanceOf"].ID, func([]byte) ([]byte, error) {
			return packUint(t, "erc1155", 3), nil
		})
		collection := NewCollection(client, "0x01")
		assert.Equal(t, "3", collection.Holdings(ctx, "0x1111111111111111111111111111111111111111", "7"))
	})

	t.Run("double failure reads as zero", func(t *testing.T) {
		collection := NewCollection(newFakeEthClient(), "0x01")
		assert.Equal(t, "0", collection.Holdings(ctx, "0x1111111111111111111111111111111111111111", "7"))
	})

	t.Run("failure without a token id reads as zero", func(t *testing.T) {
		collection := NewCollection(newFakeEthClient(), "0x01")
		assert.Equal(t, "0", collection.Holdings(ctx, "0x1111111111111111111111111111111111111111", ""))
	})
}

func TestCreateEthClientRequiresNodeUrl(t *testing.T) {
	_, err := CreateEthClient("")
	assert.Error(t, err)
}
