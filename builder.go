package settleport

import (
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/rudolf0127/settleport/types"
)

// OrderBuilder builds and signs orders for a specific deployment. It binds
// signatures to the same domain the engine verifies against.
type OrderBuilder struct {
	chainID           *big.Int
	verifyingContract common.Address
	key               *ecdsa.PrivateKey
}

// NewOrderBuilder creates a builder signing with key for the deployment
// identified by chainID and verifyingContract.
func NewOrderBuilder(chainID *big.Int, verifyingContract common.Address, key *ecdsa.PrivateKey) (*OrderBuilder, error) {
	if chainID == nil || chainID.Sign() <= 0 {
		return nil, fmt.Errorf("order builder: invalid chain ID")
	}
	if key == nil {
		return nil, fmt.Errorf("order builder: signing key is required")
	}
	return &OrderBuilder{
		chainID:           new(big.Int).Set(chainID),
		verifyingContract: verifyingContract,
		key:               key,
	}, nil
}

// Signer returns the address orders built here are signed by.
func (b *OrderBuilder) Signer() common.Address {
	return crypto.PubkeyToAddress(b.key.PublicKey)
}

// BuildSignedOrder completes the parameters (salt, original consideration
// count) and signs them against the given nonce, returning an order the
// engine will accept.
func (b *OrderBuilder) BuildSignedOrder(params types.OrderParameters, nonce *big.Int) (*types.Order, error) {
	if params.Salt == nil {
		salt, err := generateSalt()
		if err != nil {
			return nil, err
		}
		params.Salt = salt
	}
	if params.TotalOriginalConsiderationItems == 0 {
		params.TotalOriginalConsiderationItems = len(params.Consideration)
	}

	signature, err := b.SignOrder(&params, nonce)
	if err != nil {
		return nil, err
	}
	return &types.Order{Parameters: params, Signature: signature}, nil
}

// SignOrder produces a 65-byte (r, s, v) signature over the order digest.
func (b *OrderBuilder) SignOrder(params *types.OrderParameters, nonce *big.Int) ([]byte, error) {
	digest, err := b.Digest(params, nonce)
	if err != nil {
		return nil, err
	}

	signature, err := crypto.Sign(digest.Bytes(), b.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign order: %w", err)
	}

	// Shift the recovery id to the canonical 27/28 range.
	signature[64] += 27
	return signature, nil
}

// Digest computes the signing digest for the parameters under this
// builder's domain.
func (b *OrderBuilder) Digest(params *types.OrderParameters, nonce *big.Int) (common.Hash, error) {
	components := params.Components(nonce)
	orderHash, err := HashOrderComponents(&components)
	if err != nil {
		return common.Hash{}, err
	}

	separator := hashDomainSeparator(b.chainID, b.verifyingContract)
	data := make([]byte, 0, 2+common.HashLength*2)
	data = append(data, 0x19, 0x01)
	data = append(data, separator.Bytes()...)
	data = append(data, orderHash.Bytes()...)
	return crypto.Keccak256Hash(data), nil
}

// CompactSignature re-encodes a 65-byte signature into the 64-byte compact
// form with the parity bit packed into the high bit of s.
func CompactSignature(signature []byte) ([]byte, error) {
	if len(signature) != 65 {
		return nil, &SignatureLengthError{Length: len(signature)}
	}
	v := signature[64]
	if v != 27 && v != 28 {
		return nil, ErrBadSignatureV
	}

	compact := make([]byte, 64)
	copy(compact, signature[:64])
	if v == 28 {
		compact[32] |= 0x80
	}
	return compact, nil
}

func generateSalt() (*big.Int, error) {
	var buf [32]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return new(big.Int).SetBytes(buf[:]), nil
}
