// Package chain is a thin typed wrapper over the Farcasturds V2 contract on
// Base. Reads go through eth_call; in server mode the service key signs and
// submits mintFor itself, in wallet mode PrepareMint hands the unsigned call
// back to the caller.
//
// The contract is the authority on uniqueness: MintFor does not check
// hasMinted itself, it only surfaces the contract's rejection.
package chain

import (
	"context"
	"crypto/ecdsa"
	_ "embed"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/tbourn/farcasturd-backend/internal/config"
)

//go:embed farcasturds_v2.abi.json
var contractABI string

// Backend is the subset of ethclient.Client the wrapper uses.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	ChainID(ctx context.Context) (*big.Int, error)
}

var _ Backend = (*ethclient.Client)(nil)

// TxRequest is an unsigned contract call for a user's wallet.
type TxRequest struct {
	To    string `json:"to"`
	Data  string `json:"data"`
	Value string `json:"value"` // wei, decimal
}

// Client talks to one deployed contract.
type Client struct {
	backend  Backend
	contract common.Address
	abi      abi.ABI

	key  *ecdsa.PrivateKey
	from common.Address

	// mu serializes nonce allocation for the server signer.
	mu      sync.Mutex
	chainID *big.Int
}

// New binds backend to the contract at address. minterKey is a hex private
// key (with or without 0x) and may be empty in wallet mode.
func New(backend Backend, address, minterKey string) (*Client, error) {
	if backend == nil || !common.IsHexAddress(address) {
		return nil, ErrNotConfigured
	}
	parsed, err := abi.JSON(strings.NewReader(contractABI))
	if err != nil {
		return nil, fmt.Errorf("chain: parse abi: %w", err)
	}
	c := &Client{
		backend:  backend,
		contract: common.HexToAddress(address),
		abi:      parsed,
	}
	if k := strings.TrimPrefix(strings.TrimSpace(minterKey), "0x"); k != "" {
		key, err := crypto.HexToECDSA(k)
		if err != nil {
			return nil, fmt.Errorf("chain: invalid minter key: %w", err)
		}
		c.key = key
		c.from = crypto.PubkeyToAddress(key.PublicKey)
	}
	return c, nil
}

// Dial connects to cfg.RPCURL. It returns ErrNotConfigured when the RPC URL
// or contract address is missing.
func Dial(ctx context.Context, cfg config.ChainConfig) (*Client, error) {
	if cfg.RPCURL == "" || cfg.ContractAddress == "" {
		return nil, ErrNotConfigured
	}
	ec, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("%w: dial: %v", ErrRPC, err)
	}
	return New(ec, cfg.ContractAddress, cfg.MinterKey)
}

// Address returns the contract address.
func (c *Client) Address() common.Address { return c.contract }

// CanSign reports whether a minter key is loaded.
func (c *Client) CanSign() bool { return c.key != nil }

// Minter returns the server signer address (zero when none).
func (c *Client) Minter() common.Address { return c.from }

// HasMinted reports whether fid already holds a token.
func (c *Client) HasMinted(ctx context.Context, fid int64) (bool, error) {
	if fid <= 0 {
		return false, ErrInvalidFID
	}
	var out bool
	if err := c.call(ctx, &out, "hasMinted", big.NewInt(fid)); err != nil {
		return false, err
	}
	return out, nil
}

// MintPrice returns the on-chain price in wei.
func (c *Client) MintPrice(ctx context.Context) (*big.Int, error) {
	var out *big.Int
	if err := c.call(ctx, &out, "mintPrice"); err != nil {
		return nil, err
	}
	return out, nil
}

// OwnerOfFID returns the holder of fid's token (zero address when unminted).
func (c *Client) OwnerOfFID(ctx context.Context, fid int64) (common.Address, error) {
	if fid <= 0 {
		return common.Address{}, ErrInvalidFID
	}
	var out common.Address
	if err := c.call(ctx, &out, "ownerOfFid", big.NewInt(fid)); err != nil {
		return common.Address{}, err
	}
	return out, nil
}

// TotalSupply returns the number of minted tokens.
func (c *Client) TotalSupply(ctx context.Context) (*big.Int, error) {
	var out *big.Int
	if err := c.call(ctx, &out, "totalSupply"); err != nil {
		return nil, err
	}
	return out, nil
}

// PrepareMint encodes mintFor(to, fid) for submission by the user's wallet.
func (c *Client) PrepareMint(to string, fid int64, value *big.Int) (TxRequest, error) {
	data, err := c.packMint(to, fid)
	if err != nil {
		return TxRequest{}, err
	}
	if value == nil {
		value = new(big.Int)
	}
	return TxRequest{
		To:    c.contract.Hex(),
		Data:  hexutil.Encode(data),
		Value: value.String(),
	}, nil
}

// MintFor signs and submits mintFor(to, fid) with value wei attached and
// returns the transaction hash. Gas is estimated first so contract reverts
// surface as typed errors before anything is broadcast.
func (c *Client) MintFor(ctx context.Context, to string, fid int64, value *big.Int) (string, error) {
	if c.key == nil {
		return "", ErrNotConfigured
	}
	data, err := c.packMint(to, fid)
	if err != nil {
		return "", err
	}
	if value == nil {
		value = new(big.Int)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	chainID, err := c.loadChainID(ctx)
	if err != nil {
		return "", err
	}
	msg := ethereum.CallMsg{From: c.from, To: &c.contract, Value: value, Data: data}
	gas, err := c.backend.EstimateGas(ctx, msg)
	if err != nil {
		return "", c.decodeError("estimate mintFor", err)
	}
	gas = gas * 120 / 100

	nonce, err := c.backend.PendingNonceAt(ctx, c.from)
	if err != nil {
		return "", c.decodeError("pending nonce", err)
	}
	gasPrice, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return "", c.decodeError("gas price", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &c.contract,
		Value:    value,
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), c.key)
	if err != nil {
		return "", fmt.Errorf("chain: sign: %w", err)
	}
	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		return "", c.decodeError("send mintFor", err)
	}
	return signed.Hash().Hex(), nil
}

func (c *Client) packMint(to string, fid int64) ([]byte, error) {
	if fid <= 0 {
		return nil, ErrInvalidFID
	}
	if !common.IsHexAddress(to) {
		return nil, ErrInvalidAddress
	}
	return c.abi.Pack("mintFor", common.HexToAddress(to), big.NewInt(fid))
}

func (c *Client) loadChainID(ctx context.Context) (*big.Int, error) {
	if c.chainID != nil {
		return c.chainID, nil
	}
	id, err := c.backend.ChainID(ctx)
	if err != nil {
		return nil, c.decodeError("chain id", err)
	}
	c.chainID = id
	return id, nil
}

func (c *Client) call(ctx context.Context, out any, method string, args ...any) error {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("chain: pack %s: %w", method, err)
	}
	res, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &c.contract, Data: data}, nil)
	if err != nil {
		return c.decodeError(method, err)
	}
	if len(res) == 0 {
		return fmt.Errorf("%s: %w: empty result (is the contract deployed?)", method, ErrRPC)
	}
	vals, err := c.abi.Unpack(method, res)
	if err != nil || len(vals) == 0 {
		return fmt.Errorf("%s: %w: unpack: %v", method, ErrRPC, err)
	}
	switch dst := out.(type) {
	case *bool:
		v, ok := vals[0].(bool)
		if !ok {
			return fmt.Errorf("%s: %w: unexpected type %T", method, ErrRPC, vals[0])
		}
		*dst = v
	case **big.Int:
		v, ok := vals[0].(*big.Int)
		if !ok {
			return fmt.Errorf("%s: %w: unexpected type %T", method, ErrRPC, vals[0])
		}
		*dst = v
	case *common.Address:
		v, ok := vals[0].(common.Address)
		if !ok {
			return fmt.Errorf("%s: %w: unexpected type %T", method, ErrRPC, vals[0])
		}
		*dst = v
	default:
		return errors.New("chain: unsupported output type")
	}
	return nil
}
