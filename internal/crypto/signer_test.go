package crypto

import (
	"encoding/hex"
	"strings"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSigner(t *testing.T) *Signer {
	t.Helper()
	s, err := NewSigner(testKeyHex, 137)
	require.NoError(t, err)
	return s
}

func TestNewSignerDerivesAddress(t *testing.T) {
	s := testSigner(t)

	pk, err := ethcrypto.HexToECDSA(testKeyHex)
	require.NoError(t, err)
	assert.Equal(t, ethcrypto.PubkeyToAddress(pk.PublicKey), s.Address())
}

func TestNewSignerRejectsBadKey(t *testing.T) {
	_, err := NewSigner("zzzz", 137)
	assert.Error(t, err)
}

func TestSignAuthMessageFormat(t *testing.T) {
	s := testSigner(t)

	sig, err := s.SignAuthMessage(s.Address().Hex(), 1700000000, 0)
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(sig, "0x"))
	raw, err := hex.DecodeString(strings.TrimPrefix(sig, "0x"))
	require.NoError(t, err)
	require.Len(t, raw, 65)
	assert.Contains(t, []byte{27, 28}, raw[64], "v must be 27 or 28")

	// Deterministic for identical inputs.
	sig2, err := s.SignAuthMessage(s.Address().Hex(), 1700000000, 0)
	require.NoError(t, err)
	assert.Equal(t, sig, sig2)
}

func TestSignOrderCoversAllFields(t *testing.T) {
	s := testSigner(t)

	order := OrderPayload{
		Salt:          "12345",
		Maker:         s.Address().Hex(),
		Signer:        s.Address().Hex(),
		Taker:         "0x0000000000000000000000000000000000000000",
		TokenID:       "71321045679252212594626385532706912750332728571942532289631379312455583992563",
		MakerAmount:   "5000000",
		TakerAmount:   "9615380",
		Expiration:    "0",
		Nonce:         "0",
		FeeRateBps:    "0",
		Side:          0,
		SignatureType: 0,
	}

	base, err := s.SignOrder(order)
	require.NoError(t, err)

	flipped := order
	flipped.Side = 1
	other, err := s.SignOrder(flipped)
	require.NoError(t, err)
	assert.NotEqual(t, base, other, "side must be part of the signed struct")

	bumped := order
	bumped.MakerAmount = "5000001"
	other, err = s.SignOrder(bumped)
	require.NoError(t, err)
	assert.NotEqual(t, base, other, "makerAmount must be part of the signed struct")
}

func TestSignOrderRejectsNonNumericFields(t *testing.T) {
	s := testSigner(t)
	_, err := s.SignOrder(OrderPayload{
		Salt: "not-a-number", TokenID: "1", MakerAmount: "1", TakerAmount: "1",
		Expiration: "0", Nonce: "0", FeeRateBps: "0",
	})
	assert.Error(t, err)
}
