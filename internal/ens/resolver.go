package ens

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ContractCaller is the slice of the Ethereum client the resolver needs.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

var registryAddress = common.HexToAddress("0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e")

var registryABI abi.ABI
var resolverABI abi.ABI

var ErrNoResolver = errors.New("no resolver set for reverse record")

func init() {
	parsed, err := abi.JSON(strings.NewReader(`[
    {"name": "resolver", "type": "function", "stateMutability": "view", "inputs": [{"name": "node", "type": "bytes32"}], "outputs": [{"name": "", "type": "address"}]}
	]`))
	if err != nil {
		panic("failed to parse ENS registry ABI")
	}
	registryABI = parsed

	parsed, err = abi.JSON(strings.NewReader(`[
    {"name": "name", "type": "function", "stateMutability": "view", "inputs": [{"name": "node", "type": "bytes32"}], "outputs": [{"name": "", "type": "string"}]}
	]`))
	if err != nil {
		panic("failed to parse ENS resolver ABI")
	}
	resolverABI = parsed
}

// Resolver answers reverse address-to-name lookups against the ENS registry.
type Resolver struct {
	caller ContractCaller
}

func NewResolver(caller ContractCaller) *Resolver {
	return &Resolver{caller: caller}
}

// ReverseLookup resolves the primary ENS name for an address, or an empty
// string when the address has no reverse record.
func (r *Resolver) ReverseLookup(ctx context.Context, address string) (string, error) {
	reverse := strings.ToLower(strings.TrimPrefix(address, "0x")) + ".addr.reverse"
	node := Namehash(reverse)

	data, err := registryABI.Pack("resolver", node)
	if err != nil {
		return "", fmt.Errorf("pack resolver: %w", err)
	}
	res, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &registryAddress, Data: data}, nil)
	if err != nil {
		return "", fmt.Errorf("registry resolver call: %w", err)
	}
	out, err := registryABI.Unpack("resolver", res)
	if err != nil {
		return "", fmt.Errorf("unpack resolver: %w", err)
	}
	resolverAddr, ok := out[0].(common.Address)
	if !ok {
		return "", fmt.Errorf("unexpected resolver return type %T", out[0])
	}
	if resolverAddr == (common.Address{}) {
		return "", ErrNoResolver
	}

	data, err = resolverABI.Pack("name", node)
	if err != nil {
		return "", fmt.Errorf("pack name: %w", err)
	}
	res, err = r.caller.CallContract(ctx, ethereum.CallMsg{To: &resolverAddr, Data: data}, nil)
	if err != nil {
		return "", fmt.Errorf("resolver name call: %w", err)
	}
	out, err = resolverABI.Unpack("name", res)
	if err != nil {
		return "", fmt.Errorf("unpack name: %w", err)
	}
	name, ok := out[0].(string)
	if !ok {
		return "", fmt.Errorf("unexpected name return type %T", out[0])
	}
	return name, nil
}

// Namehash implements the ENS recursive name hash (EIP-137).
func Namehash(name string) [32]byte {
	var node [32]byte
	if name == "" {
		return node
	}
	labels := strings.Split(name, ".")
	for i := len(labels) - 1; i >= 0; i-- {
		labelHash := crypto.Keccak256([]byte(labels[i]))
		node = [32]byte(crypto.Keccak256(node[:], labelHash))
	}
	return node
}
