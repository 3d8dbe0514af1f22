package eth

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Two separate ABIs because balanceOf is overloaded between
// ERC-721 (one arg) and ERC-1155 (owner + token id).
var erc721ABI abi.ABI
var erc1155BalanceABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(`[
    {"name": "name",        "type": "function", "stateMutability": "view", "inputs": [], "outputs": [{"name": "", "type": "string"}]},
    {"name": "tokenURI",    "type": "function", "stateMutability": "view", "inputs": [{"name": "tokenId", "type": "uint256"}], "outputs": [{"name": "", "type": "string"}]},
    {"name": "totalSupply", "type": "function", "stateMutability": "view", "inputs": [], "outputs": [{"name": "", "type": "uint256"}]},
    {"name": "balanceOf",   "type": "function", "stateMutability": "view", "inputs": [{"name": "owner", "type": "address"}], "outputs": [{"name": "", "type": "uint256"}]}
	]`))
	if err != nil {
		panic("failed to parse ERC721 ABI")
	}
	erc721ABI = parsed

	parsed, err = abi.JSON(strings.NewReader(`[
    {"name": "balanceOf", "type": "function", "stateMutability": "view", "inputs": [{"name": "account", "type": "address"}, {"name": "id", "type": "uint256"}], "outputs": [{"name": "", "type": "uint256"}]}
	]`))
	if err != nil {
		panic("failed to parse ERC1155 balance ABI")
	}
	erc1155BalanceABI = parsed
}

const UnknownHoldings = "?"

// Collection is a read-only binding over the watched NFT contract.
type Collection struct {
	client  EthClient
	address common.Address
}

func NewCollection(client EthClient, address string) *Collection {
	return &Collection{
		client:  client,
		address: common.HexToAddress(address),
	}
}

func (c *Collection) Name(ctx context.Context) (string, error) {
	out, err := c.call(ctx, erc721ABI, "name")
	if err != nil {
		return "", err
	}
	name, ok := out[0].(string)
	if !ok {
		return "", fmt.Errorf("unexpected name() return type %T", out[0])
	}
	return name, nil
}

func (c *Collection) TokenURI(ctx context.Context, tokenID string) (string, error) {
	id, ok := new(big.Int).SetString(tokenID, 10)
	if !ok {
		return "", fmt.Errorf("invalid token ID: %s", tokenID)
	}
	out, err := c.call(ctx, erc721ABI, "tokenURI", id)
	if err != nil {
		return "", err
	}
	uri, ok := out[0].(string)
	if !ok {
		return "", fmt.Errorf("unexpected tokenURI() return type %T", out[0])
	}
	return uri, nil
}

func (c *Collection) TotalSupply(ctx context.Context) (*big.Int, error) {
	out, err := c.call(ctx, erc721ABI, "totalSupply")
	if err != nil {
		return nil, err
	}
	supply, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected totalSupply() return type %T", out[0])
	}
	return supply, nil
}

func (c *Collection) BalanceOf(ctx context.Context, owner string) (*big.Int, error) {
	out, err := c.call(ctx, erc721ABI, "balanceOf", common.HexToAddress(owner))
	if err != nil {
		return nil, err
	}
	balance, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf() return type %T", out[0])
	}
	return balance, nil
}

func (c *Collection) BalanceOfToken(ctx context.Context, owner string, tokenID string) (*big.Int, error) {
	id, ok := new(big.Int).SetString(tokenID, 10)
	if !ok {
		return nil, fmt.Errorf("invalid token ID: %s", tokenID)
	}
	out, err := c.call(ctx, erc1155BalanceABI, "balanceOf", common.HexToAddress(owner), id)
	if err != nil {
		return nil, err
	}
	balance, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf() return type %T", out[0])
	}
	return balance, nil
}

// Holdings returns the display balance for an address. A missing address
// yields the unknown sentinel, which must stay distinct from "0":
// zero holdings and unknown holdings mean different things in a notification.
// Standard variance is absorbed here: the one-arg ERC-721 query is tried
// first, the two-arg ERC-1155 query second, and a double failure counts
// as zero.
func (c *Collection) Holdings(ctx context.Context, owner string, tokenID string) string {
	if owner == "" {
		return UnknownHoldings
	}
	balance, err := c.BalanceOf(ctx, owner)
	if err == nil {
		return balance.String()
	}
	zap.L().Debug("one-arg balanceOf failed, trying ERC-1155 variant",
		zap.String("owner", owner), zap.Error(err))

	if tokenID != "" {
		balance, err = c.BalanceOfToken(ctx, owner, tokenID)
		if err == nil {
			return balance.String()
		}
		zap.L().Debug("two-arg balanceOf failed",
			zap.String("owner", owner), zap.String("tokenId", tokenID), zap.Error(err))
	}
	return "0"
}

func (c *Collection) call(ctx context.Context, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	res, err := c.client.CallContract(ctx, ethereum.CallMsg{To: &c.address, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	out, err := parsed.Unpack(method, res)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty %s return", method)
	}
	return out, nil
}
