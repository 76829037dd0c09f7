package settleport

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/rudolf0127/settleport/store"
)

// EIP712 domain constants binding order hashes to this deployment.
const (
	EIP712DomainName    = "Settleport"
	EIP712DomainVersion = "1"
)

// Config carries the engine's identity, persistence and observability
// settings.
type Config struct {
	// ChainID identifies the network the engine settles on. Required.
	ChainID *big.Int

	// VerifyingContract is the deployment identity bound into the domain
	// separator. Required.
	VerifyingContract common.Address

	// Store persists order statuses and offerer nonces. Defaults to an
	// in-memory store.
	Store store.Store

	// ChainIDSource, when set, is consulted on every domain-separator use;
	// a changed chain ID triggers re-derivation.
	ChainIDSource ChainIDSource

	// Logger receives settlement events. Defaults to a no-op logger.
	Logger *zerolog.Logger
}

func (c *Config) validate() error {
	if c.ChainID == nil || c.ChainID.Sign() <= 0 {
		return errors.New("config: chain ID is required")
	}
	if c.VerifyingContract == (common.Address{}) {
		return errors.New("config: verifying contract address is required")
	}
	return nil
}
