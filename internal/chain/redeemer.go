package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// conditionalTokensABI covers the single ConditionalTokens method the
// redemption sweeper needs.
const conditionalTokensABI = `[{
	"name": "redeemPositions",
	"type": "function",
	"inputs": [
		{"name": "collateralToken", "type": "address"},
		{"name": "parentCollectionId", "type": "bytes32"},
		{"name": "conditionId", "type": "bytes32"},
		{"name": "indexSets", "type": "uint256[]"}
	],
	"outputs": []
}]`

// Redeemer submits redeemPositions transactions against the Gnosis
// ConditionalTokens contract to convert winning outcome shares back into
// USDC collateral.
type Redeemer struct {
	client     *Client
	privateKey *ecdsa.PrivateKey
	from       common.Address
	ctfABI     abi.ABI
}

// NewRedeemer creates a Redeemer signing with the given hex private key.
func NewRedeemer(client *Client, privateKeyHex string) (*Redeemer, error) {
	pk, err := ethcrypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("chain: invalid private key: %w", err)
	}

	parsed, err := abi.JSON(strings.NewReader(conditionalTokensABI))
	if err != nil {
		return nil, fmt.Errorf("chain: parse ConditionalTokens ABI: %w", err)
	}

	return &Redeemer{
		client:     client,
		privateKey: pk,
		from:       ethcrypto.PubkeyToAddress(pk.PublicKey),
		ctfABI:     parsed,
	}, nil
}

// From returns the redeeming wallet address.
func (r *Redeemer) From() common.Address {
	return r.from
}

// Redeem submits a redeemPositions transaction for the given condition and
// returns the transaction hash. Both binary index sets are redeemed; the
// contract pays out only the winning one and treats the other as a no-op.
func (r *Redeemer) Redeem(ctx context.Context, conditionID string) (string, error) {
	calldata, err := r.ctfABI.Pack("redeemPositions",
		r.client.usdc,
		[32]byte{}, // parentCollectionId: root collection
		common.HexToHash(conditionID),
		[]*big.Int{big.NewInt(1), big.NewInt(2)},
	)
	if err != nil {
		return "", fmt.Errorf("chain: pack redeemPositions: %w", err)
	}

	nonce, err := r.client.eth.PendingNonceAt(ctx, r.from)
	if err != nil {
		return "", fmt.Errorf("chain: pending nonce: %w", err)
	}

	gasPrice, err := r.client.eth.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("chain: suggest gas price: %w", err)
	}

	gasLimit := r.client.cfg.GasLimit
	if gasLimit == 0 {
		gasLimit = 500_000
	}

	tx := types.NewTransaction(nonce, r.client.ctf, big.NewInt(0), gasLimit, gasPrice, calldata)

	chainID := big.NewInt(int64(r.client.cfg.ChainID))
	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), r.privateKey)
	if err != nil {
		return "", fmt.Errorf("chain: sign redeem tx: %w", err)
	}

	if err := r.client.eth.SendTransaction(ctx, signedTx); err != nil {
		return "", fmt.Errorf("chain: send redeem tx: %w", err)
	}
	return signedTx.Hash().Hex(), nil
}

// WaitMined polls for the transaction receipt until it lands or the context
// expires. Returns an error when the transaction reverted.
func (r *Redeemer) WaitMined(ctx context.Context, txHash string) error {
	hash := common.HexToHash(txHash)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		receipt, err := r.client.eth.TransactionReceipt(ctx, hash)
		if err == nil {
			if receipt.Status != types.ReceiptStatusSuccessful {
				return fmt.Errorf("chain: tx %s reverted", txHash)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("chain: wait for tx %s: %w", txHash, ctx.Err())
		case <-ticker.C:
		}
	}
}
