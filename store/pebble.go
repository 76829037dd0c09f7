package store

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/rudolf0127/settleport/types"
)

// Key prefixes. Status records live under 's' + order hash, nonce records
// under 'n' + offerer address.
var (
	statusKeyPrefix = []byte("s")
	nonceKeyPrefix  = []byte("n")
)

// statusRecord is the RLP wire form of an OrderStatus.
type statusRecord struct {
	Validated   bool
	Cancelled   bool
	Numerator   *big.Int
	Denominator *big.Int
}

// PebbleStore persists the ledger in a PebbleDB directory. Multi-order
// commits are applied in a single synced batch so a crash cannot persist a
// partial settlement.
type PebbleStore struct {
	mu sync.Mutex
	db *pebble.DB
}

// OpenPebbleStore opens (creating if necessary) a pebble-backed store at
// path.
func OpenPebbleStore(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open status store: %w", err)
	}
	return &PebbleStore{db: db}, nil
}

func statusKey(hash common.Hash) []byte {
	return append(append([]byte{}, statusKeyPrefix...), hash.Bytes()...)
}

func nonceKey(offerer common.Address) []byte {
	return append(append([]byte{}, nonceKeyPrefix...), offerer.Bytes()...)
}

func encodeStatus(status types.OrderStatus) ([]byte, error) {
	n, d := status.FilledFraction()
	return rlp.EncodeToBytes(&statusRecord{
		Validated:   status.IsValidated,
		Cancelled:   status.IsCancelled,
		Numerator:   n,
		Denominator: d,
	})
}

func decodeStatus(data []byte) (types.OrderStatus, error) {
	var rec statusRecord
	if err := rlp.DecodeBytes(data, &rec); err != nil {
		return types.OrderStatus{}, fmt.Errorf("corrupt status record: %w", err)
	}
	return types.OrderStatus{
		IsValidated: rec.Validated,
		IsCancelled: rec.Cancelled,
		Numerator:   rec.Numerator,
		Denominator: rec.Denominator,
	}, nil
}

// OrderStatus reads a status record, returning a zero value when absent.
func (s *PebbleStore) OrderStatus(hash common.Hash) (types.OrderStatus, error) {
	data, closer, err := s.db.Get(statusKey(hash))
	if errors.Is(err, pebble.ErrNotFound) {
		return types.OrderStatus{}, nil
	}
	if err != nil {
		return types.OrderStatus{}, fmt.Errorf("failed to read order status: %w", err)
	}
	defer closer.Close()
	return decodeStatus(data)
}

// SetOrderStatus writes one status record synchronously.
func (s *PebbleStore) SetOrderStatus(hash common.Hash, status types.OrderStatus) error {
	data, err := encodeStatus(status)
	if err != nil {
		return err
	}
	if err := s.db.Set(statusKey(hash), data, pebble.Sync); err != nil {
		return fmt.Errorf("failed to write order status: %w", err)
	}
	return nil
}

// ApplyStatuses writes every update in one synced batch.
func (s *PebbleStore) ApplyStatuses(updates map[common.Hash]types.OrderStatus) error {
	batch := s.db.NewBatch()
	defer batch.Close()
	for hash, status := range updates {
		data, err := encodeStatus(status)
		if err != nil {
			return err
		}
		if err := batch.Set(statusKey(hash), data, nil); err != nil {
			return fmt.Errorf("failed to stage order status: %w", err)
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("failed to commit order statuses: %w", err)
	}
	return nil
}

// Nonce reads the offerer's nonce, zero when absent.
func (s *PebbleStore) Nonce(offerer common.Address) (*big.Int, error) {
	data, closer, err := s.db.Get(nonceKey(offerer))
	if errors.Is(err, pebble.ErrNotFound) {
		return new(big.Int), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read nonce: %w", err)
	}
	defer closer.Close()
	return new(big.Int).SetBytes(data), nil
}

// IncrementNonce bumps the offerer's nonce under the store lock and
// persists it synchronously.
func (s *PebbleStore) IncrementNonce(offerer common.Address) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, err := s.Nonce(offerer)
	if err != nil {
		return nil, err
	}
	next := new(big.Int).Add(current, big.NewInt(1))
	if err := s.db.Set(nonceKey(offerer), next.Bytes(), pebble.Sync); err != nil {
		return nil, fmt.Errorf("failed to write nonce: %w", err)
	}
	return next, nil
}

// Close closes the underlying database.
func (s *PebbleStore) Close() error {
	return s.db.Close()
}
