// Package chain reads balances from and submits redemption transactions to
// Polygon via go-ethereum.
package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// usdcDecimals is the USDC token precision on Polygon.
const usdcDecimals = 1e6

// balanceOfSelector is the first 4 bytes of keccak256("balanceOf(address)").
var balanceOfSelector = common.Hex2Bytes("70a08231")

// ClientConfig holds RPC and contract parameters.
type ClientConfig struct {
	RPCURL                   string
	USDCAddress              string
	ConditionalTokensAddress string
	GasLimit                 uint64
	ChainID                  int
}

// Client wraps an ethclient connection to Polygon.
type Client struct {
	eth  *ethclient.Client
	cfg  ClientConfig
	usdc common.Address
	ctf  common.Address
}

// New dials the RPC endpoint and verifies the chain ID matches the
// configured one.
func New(ctx context.Context, cfg ClientConfig) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", cfg.RPCURL, err)
	}

	chainID, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("chain: chain id: %w", err)
	}
	if cfg.ChainID != 0 && chainID.Int64() != int64(cfg.ChainID) {
		eth.Close()
		return nil, fmt.Errorf("chain: connected to chain %d, expected %d", chainID.Int64(), cfg.ChainID)
	}

	return &Client{
		eth:  eth,
		cfg:  cfg,
		usdc: common.HexToAddress(cfg.USDCAddress),
		ctf:  common.HexToAddress(cfg.ConditionalTokensAddress),
	}, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}

// USDCBalance returns the wallet's USDC balance in whole dollars via an
// eth_call to the ERC-20 balanceOf function.
func (c *Client) USDCBalance(ctx context.Context, wallet string) (float64, error) {
	addr := common.HexToAddress(wallet)
	data := append(append([]byte{}, balanceOfSelector...), common.LeftPadBytes(addr.Bytes(), 32)...)

	out, err := c.eth.CallContract(ctx, ethereum.CallMsg{
		To:   &c.usdc,
		Data: data,
	}, nil)
	if err != nil {
		return 0, fmt.Errorf("chain: balanceOf %s: %w", wallet, err)
	}
	if len(out) < 32 {
		return 0, fmt.Errorf("chain: balanceOf %s: short return data (%d bytes)", wallet, len(out))
	}

	raw := new(big.Int).SetBytes(out[:32])
	bal, _ := new(big.Float).Quo(new(big.Float).SetInt(raw), big.NewFloat(usdcDecimals)).Float64()
	return bal, nil
}
