package settleport

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSignatureValidator plays a contract account answering EIP-1271
// signature checks.
type fakeSignatureValidator struct {
	magic [4]byte
	err   error
	calls int
}

func (v *fakeSignatureValidator) IsValidSignature(ctx context.Context, account common.Address, digest common.Hash, signature []byte) ([4]byte, error) {
	v.calls++
	return v.magic, v.err
}

func signDigest(t *testing.T, digest common.Hash) ([]byte, common.Address) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signature, err := crypto.Sign(digest.Bytes(), key)
	require.NoError(t, err)
	signature[64] += 27
	return signature, crypto.PubkeyToAddress(key.PublicKey)
}

func TestVerifySignatureStandardEncoding(t *testing.T) {
	engine := newTestEngine(t, Collaborators{})
	digest := crypto.Keccak256Hash([]byte("a digest"))
	signature, signer := signDigest(t, digest)

	caller := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	assert.NoError(t, engine.verifySignature(context.Background(), caller, signer, digest, signature))
}

func TestVerifySignatureCompactEncoding(t *testing.T) {
	engine := newTestEngine(t, Collaborators{})
	digest := crypto.Keccak256Hash([]byte("another digest"))
	signature, signer := signDigest(t, digest)

	compact, err := CompactSignature(signature)
	require.NoError(t, err)
	require.Len(t, compact, 64)

	caller := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	assert.NoError(t, engine.verifySignature(context.Background(), caller, signer, digest, compact))
}

func TestVerifySignatureRejectsBadLength(t *testing.T) {
	engine := newTestEngine(t, Collaborators{})
	digest := crypto.Keccak256Hash([]byte("short"))
	signature, signer := signDigest(t, digest)

	caller := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	err := engine.verifySignature(context.Background(), caller, signer, digest, append(signature, 0))

	var lengthErr *SignatureLengthError
	require.ErrorAs(t, err, &lengthErr)
	assert.Equal(t, 66, lengthErr.Length)
}

func TestVerifySignatureRejectsBadV(t *testing.T) {
	engine := newTestEngine(t, Collaborators{})
	digest := crypto.Keccak256Hash([]byte("bad v"))
	signature, signer := signDigest(t, digest)
	signature[64] = 29

	caller := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	assert.ErrorIs(t, engine.verifySignature(context.Background(), caller, signer, digest, signature), ErrBadSignatureV)
}

func TestVerifySignatureRejectsMalleableS(t *testing.T) {
	engine := newTestEngine(t, Collaborators{})
	digest := crypto.Keccak256Hash([]byte("malleable"))
	signature, signer := signDigest(t, digest)

	// Mirror s across the curve order and flip v: the twin recovers the
	// same signer but must be rejected anyway.
	s := new(big.Int).SetBytes(signature[32:64])
	mirrored := new(big.Int).Sub(crypto.S256().Params().N, s)
	copy(signature[32:64], common.LeftPadBytes(mirrored.Bytes(), 32))
	if signature[64] == 27 {
		signature[64] = 28
	} else {
		signature[64] = 27
	}

	caller := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	assert.ErrorIs(t, engine.verifySignature(context.Background(), caller, signer, digest, signature), ErrMalleableSignatureS)
}

func TestVerifySignatureCallerAuthorizesItself(t *testing.T) {
	engine := newTestEngine(t, Collaborators{})
	digest := crypto.Keccak256Hash([]byte("self"))

	caller := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	assert.NoError(t, engine.verifySignature(context.Background(), caller, caller, digest, []byte{0x01}))
}

func TestVerifySignatureContractFallback(t *testing.T) {
	digest := crypto.Keccak256Hash([]byte("contract account"))
	signature, _ := signDigest(t, digest)
	contractAccount := common.HexToAddress("0x00000000000000000000000000000000000000cc")
	caller := common.HexToAddress("0x00000000000000000000000000000000000000aa")

	t.Run("accepts magic", func(t *testing.T) {
		validator := &fakeSignatureValidator{magic: ContractSignatureMagic}
		engine := newTestEngine(t, Collaborators{Signatures: validator})

		require.NoError(t, engine.verifySignature(context.Background(), caller, contractAccount, digest, signature))
		assert.Equal(t, 1, validator.calls)
	})

	t.Run("rejects wrong magic", func(t *testing.T) {
		validator := &fakeSignatureValidator{magic: [4]byte{0xde, 0xad, 0xbe, 0xef}}
		engine := newTestEngine(t, Collaborators{Signatures: validator})

		err := engine.verifySignature(context.Background(), caller, contractAccount, digest, signature)
		assert.ErrorIs(t, err, ErrBadContractSignature)
	})

	t.Run("propagates validator errors verbatim", func(t *testing.T) {
		boom := errors.New("account reverted: frozen")
		validator := &fakeSignatureValidator{err: boom}
		engine := newTestEngine(t, Collaborators{Signatures: validator})

		err := engine.verifySignature(context.Background(), caller, contractAccount, digest, signature)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("fails without a validator", func(t *testing.T) {
		engine := newTestEngine(t, Collaborators{})

		err := engine.verifySignature(context.Background(), caller, contractAccount, digest, signature)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})
}
