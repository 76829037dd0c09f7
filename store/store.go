// Package store persists the order-status ledger and per-offerer nonces.
package store

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rudolf0127/settleport/types"
)

// Store is the single source of truth for fill state. OrderStatus returns a
// zero-value status for unknown hashes. ApplyStatuses must be atomic: either
// every update lands or none does.
type Store interface {
	OrderStatus(hash common.Hash) (types.OrderStatus, error)
	SetOrderStatus(hash common.Hash, status types.OrderStatus) error
	ApplyStatuses(updates map[common.Hash]types.OrderStatus) error

	Nonce(offerer common.Address) (*big.Int, error)
	IncrementNonce(offerer common.Address) (*big.Int, error)

	Close() error
}

// MemoryStore keeps the ledger in process memory. Suitable for embedded use
// and tests; state does not survive a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	statuses map[common.Hash]types.OrderStatus
	nonces   map[common.Address]*big.Int
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		statuses: make(map[common.Hash]types.OrderStatus),
		nonces:   make(map[common.Address]*big.Int),
	}
}

// OrderStatus returns the stored status for hash, or a zero value if the
// order has never been touched.
func (s *MemoryStore) OrderStatus(hash common.Hash) (types.OrderStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statuses[hash], nil
}

// SetOrderStatus stores a single status record.
func (s *MemoryStore) SetOrderStatus(hash common.Hash, status types.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[hash] = status
	return nil
}

// ApplyStatuses stores every update under the lock in one step.
func (s *MemoryStore) ApplyStatuses(updates map[common.Hash]types.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for hash, status := range updates {
		s.statuses[hash] = status
	}
	return nil
}

// Nonce returns the offerer's current nonce, zero if never incremented.
func (s *MemoryStore) Nonce(offerer common.Address) (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n, ok := s.nonces[offerer]; ok {
		return new(big.Int).Set(n), nil
	}
	return new(big.Int), nil
}

// IncrementNonce bumps the offerer's nonce and returns the new value.
func (s *MemoryStore) IncrementNonce(offerer common.Address) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nonces[offerer]
	if !ok {
		n = new(big.Int)
	}
	n = new(big.Int).Add(n, big.NewInt(1))
	s.nonces[offerer] = n
	return new(big.Int).Set(n), nil
}

// Close releases nothing for a memory store.
func (s *MemoryStore) Close() error { return nil }
