package settleport

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// halfCurveOrder is secp256k1n/2; any s above it has a valid mirrored twin,
// so such signatures are rejected outright.
var halfCurveOrder = new(big.Int).Rsh(crypto.S256().Params().N, 1)

// verifySignature authenticates that claimedSigner approved digest. The
// caller authorizes itself without a signature. Accepted encodings are the
// 65-byte (r, s, v) form and the 64-byte compact form with the parity bit
// packed into the high bit of s. When ECDSA recovery yields a different
// address than claimed, the claimed signer's account is asked to validate
// the pair itself via the SignatureValidator collaborator.
func (e *Engine) verifySignature(ctx context.Context, caller, claimedSigner common.Address, digest common.Hash, signature []byte) error {
	if claimedSigner == caller {
		return nil
	}

	var r, s [32]byte
	var v byte

	switch len(signature) {
	case 65:
		copy(r[:], signature[:32])
		copy(s[:], signature[32:64])
		v = signature[64]
		if v != 27 && v != 28 {
			return ErrBadSignatureV
		}
	case 64:
		copy(r[:], signature[:32])
		copy(s[:], signature[32:64])
		v = 27 + s[0]>>7
		s[0] &= 0x7f
	default:
		return &SignatureLengthError{Length: len(signature)}
	}

	if new(big.Int).SetBytes(s[:]).Cmp(halfCurveOrder) > 0 {
		return ErrMalleableSignatureS
	}

	recoverable := make([]byte, 65)
	copy(recoverable[:32], r[:])
	copy(recoverable[32:64], s[:])
	recoverable[64] = v - 27

	pubkey, err := crypto.SigToPub(digest.Bytes(), recoverable)
	if err != nil {
		return ErrInvalidSignature
	}

	recovered := crypto.PubkeyToAddress(*pubkey)
	if recovered == (common.Address{}) {
		return ErrInvalidSignature
	}
	if recovered == claimedSigner {
		return nil
	}

	return e.verifyContractSignature(ctx, claimedSigner, digest, signature)
}

// verifyContractSignature falls back to a read-only call asking the claimed
// signer's account to validate the digest and signature itself. The call
// must succeed and return the exact magic value; a collaborator error
// propagates verbatim.
func (e *Engine) verifyContractSignature(ctx context.Context, account common.Address, digest common.Hash, signature []byte) error {
	if e.collab.Signatures == nil {
		return ErrInvalidSignature
	}

	magic, err := e.collab.Signatures.IsValidSignature(ctx, account, digest, signature)
	if err != nil {
		return err
	}
	if magic != ContractSignatureMagic {
		return ErrBadContractSignature
	}
	return nil
}
