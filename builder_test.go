package settleport

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rudolf0127/settleport/types"
)

func TestNewOrderBuilderValidation(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	_, err = NewOrderBuilder(nil, testVerifyingContract, key)
	assert.Error(t, err)

	_, err = NewOrderBuilder(big.NewInt(0), testVerifyingContract, key)
	assert.Error(t, err)

	_, err = NewOrderBuilder(testChainID, testVerifyingContract, nil)
	assert.Error(t, err)
}

func TestBuildSignedOrderDefaults(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	builder, err := NewOrderBuilder(testChainID, testVerifyingContract, key)
	require.NoError(t, err)

	params := types.OrderParameters{
		Offerer:       builder.Signer(),
		OrderType:     types.OrderTypeFullOpen,
		StartTime:     big.NewInt(testWindowStart),
		EndTime:       big.NewInt(testWindowEnd),
		Offer:         []types.OfferItem{offer20(tokenA, 10)},
		Consideration: []types.ConsiderationItem{consider20(tokenB, 10, builder.Signer())},
	}

	order, err := builder.BuildSignedOrder(params, big.NewInt(0))
	require.NoError(t, err)

	assert.NotNil(t, order.Parameters.Salt, "a salt must be generated when absent")
	assert.Equal(t, 1, order.Parameters.TotalOriginalConsiderationItems)
	require.Len(t, order.Signature, 65)
	assert.Contains(t, []byte{27, 28}, order.Signature[64])

	// Two builds of the same terms get distinct salts.
	second, err := builder.BuildSignedOrder(params, big.NewInt(0))
	require.NoError(t, err)
	assert.NotEqual(t, order.Parameters.Salt, second.Parameters.Salt)
}

func TestSignedOrderVerifiesAgainstEngineDigest(t *testing.T) {
	r := newRig(t)

	order := r.signedOrder(t, types.OrderParameters{
		OrderType:     types.OrderTypeFullOpen,
		Offer:         []types.OfferItem{offer20(tokenA, 10)},
		Consideration: []types.ConsiderationItem{consider20(tokenB, 10, r.maker)},
	})

	digest, err := r.builder.Digest(&order.Parameters, big.NewInt(0))
	require.NoError(t, err)

	pubkey, err := crypto.SigToPub(digest.Bytes(), append(
		append([]byte(nil), order.Signature[:64]...), order.Signature[64]-27))
	require.NoError(t, err)
	assert.Equal(t, r.maker, crypto.PubkeyToAddress(*pubkey))
}

func TestCompactSignatureEncoding(t *testing.T) {
	_, err := CompactSignature(make([]byte, 64))
	var lengthErr *SignatureLengthError
	assert.ErrorAs(t, err, &lengthErr)

	badV := make([]byte, 65)
	badV[64] = 5
	_, err = CompactSignature(badV)
	assert.ErrorIs(t, err, ErrBadSignatureV)

	evenParity := make([]byte, 65)
	evenParity[64] = 27
	compact, err := CompactSignature(evenParity)
	require.NoError(t, err)
	assert.Zero(t, compact[32]&0x80)

	oddParity := make([]byte, 65)
	oddParity[64] = 28
	compact, err = CompactSignature(oddParity)
	require.NoError(t, err)
	assert.Equal(t, byte(0x80), compact[32]&0x80)
}
