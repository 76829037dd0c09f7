package settleport

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rudolf0127/settleport/store"
	"github.com/rudolf0127/settleport/types"
)

// ledgerJournal stages OrderStatus mutations for one settlement call. Reads
// see staged state first, then the backing store; nothing reaches the store
// until commit, so a failed settlement leaves no trace in the ledger.
type ledgerJournal struct {
	backing store.Store
	staged  map[common.Hash]types.OrderStatus
}

func newLedgerJournal(backing store.Store) *ledgerJournal {
	return &ledgerJournal{
		backing: backing,
		staged:  make(map[common.Hash]types.OrderStatus),
	}
}

func (j *ledgerJournal) status(hash common.Hash) (types.OrderStatus, error) {
	if status, ok := j.staged[hash]; ok {
		return status, nil
	}
	return j.backing.OrderStatus(hash)
}

func (j *ledgerJournal) stage(hash common.Hash, status types.OrderStatus) {
	j.staged[hash] = status
}

func (j *ledgerJournal) commit() error {
	if len(j.staged) == 0 {
		return nil
	}
	return j.backing.ApplyStatuses(j.staged)
}

// now returns the current time as a unix-seconds big integer.
func (e *Engine) now() *big.Int {
	return big.NewInt(e.clock().Unix())
}

func defaultClock() time.Time { return time.Now() }

// checkOrderTime asserts the current time lies within [startTime, endTime).
func (e *Engine) checkOrderTime(params *types.OrderParameters) error {
	if params.StartTime == nil || params.EndTime == nil || params.StartTime.Cmp(params.EndTime) >= 0 {
		return ErrInvalidTime
	}
	now := e.now()
	if now.Cmp(params.StartTime) < 0 || now.Cmp(params.EndTime) >= 0 {
		return ErrInvalidTime
	}
	return nil
}

func checkItemAmounts(params *types.OrderParameters) error {
	for i := range params.Offer {
		item := &params.Offer[i]
		if item.StartAmount == nil || item.EndAmount == nil || item.IdentifierOrCriteria == nil ||
			item.StartAmount.Sign() < 0 || item.EndAmount.Sign() < 0 {
			return ErrMissingItemAmount
		}
	}
	for i := range params.Consideration {
		item := &params.Consideration[i]
		if item.StartAmount == nil || item.EndAmount == nil || item.IdentifierOrCriteria == nil ||
			item.StartAmount.Sign() < 0 || item.EndAmount.Sign() < 0 {
			return ErrMissingItemAmount
		}
	}
	return nil
}

// orderHashFor derives an order's hash against the offerer's current nonce.
func (e *Engine) orderHashFor(params *types.OrderParameters) (common.Hash, error) {
	nonce, err := e.store.Nonce(params.Offerer)
	if err != nil {
		return common.Hash{}, err
	}
	components := params.Components(nonce)
	return HashOrderComponents(&components)
}

// validateOrderAndUpdateStatus runs the full validation procedure for one
// order and stages the resulting fill state in the journal. It returns the
// order hash and the fraction of the order to execute this call, after
// reconciling the requested fraction against any prior partial fill. An
// over-fill request is silently clamped to the remaining balance rather
// than rejected ("fill what's left").
func (e *Engine) validateOrderAndUpdateStatus(ctx context.Context, caller common.Address, order *types.AdvancedOrder, allowPartials bool, journal *ledgerJournal) (common.Hash, *big.Int, *big.Int, error) {
	params := &order.Parameters

	if err := e.checkOrderTime(params); err != nil {
		return common.Hash{}, nil, nil, err
	}
	if !params.OrderType.Valid() {
		return common.Hash{}, nil, nil, ErrInvalidOrderType
	}
	if err := checkItemAmounts(params); err != nil {
		return common.Hash{}, nil, nil, err
	}

	numerator, denominator := order.Numerator, order.Denominator
	if numerator == nil || denominator == nil ||
		numerator.Sign() <= 0 || numerator.Cmp(denominator) > 0 {
		return common.Hash{}, nil, nil, ErrBadFraction
	}
	if numerator.Cmp(denominator) < 0 && !params.OrderType.SupportsPartialFills() {
		return common.Hash{}, nil, nil, ErrPartialFillsNotEnabled
	}

	orderHash, err := e.orderHashFor(params)
	if err != nil {
		return common.Hash{}, nil, nil, err
	}

	status, err := journal.status(orderHash)
	if err != nil {
		return common.Hash{}, nil, nil, err
	}
	if status.IsCancelled {
		return common.Hash{}, nil, nil, ErrOrderIsCancelled(orderHash)
	}
	if status.FullyFilled() {
		return common.Hash{}, nil, nil, ErrOrderAlreadyFilled(orderHash)
	}
	if status.PartiallyFilled() && !allowPartials {
		return common.Hash{}, nil, nil, ErrOrderPartiallyFilled(orderHash)
	}

	if !status.IsValidated {
		digest, err := e.digest(ctx, orderHash)
		if err != nil {
			return common.Hash{}, nil, nil, err
		}
		if err := e.verifySignature(ctx, caller, params.Offerer, digest, order.Signature); err != nil {
			return common.Hash{}, nil, nil, err
		}
	}

	numerator = new(big.Int).Set(numerator)
	denominator = new(big.Int).Set(denominator)
	filledNumerator, filledDenominator := status.FilledFraction()

	if filledDenominator.Sign() != 0 {
		// Reconcile with the stored fraction: a denominator of one means
		// "fill everything remaining"; otherwise cross-multiply onto a
		// common denominator.
		if denominator.Cmp(bigOne) == 0 {
			numerator.Set(filledDenominator)
			denominator.Set(filledDenominator)
			filledNumerator = new(big.Int).Set(filledNumerator)
		} else if filledDenominator.Cmp(denominator) != 0 {
			filledNumerator = new(big.Int).Mul(filledNumerator, denominator)
			numerator.Mul(numerator, filledDenominator)
			denominator.Mul(denominator, filledDenominator)
		} else {
			filledNumerator = new(big.Int).Set(filledNumerator)
		}

		// Clamp so the total never exceeds the denominator; fulfills only
		// the remaining balance instead of erroring.
		if new(big.Int).Add(filledNumerator, numerator).Cmp(denominator) > 0 {
			numerator = new(big.Int).Sub(denominator, filledNumerator)
		}

		journal.stage(orderHash, types.OrderStatus{
			IsValidated: true,
			Numerator:   new(big.Int).Add(filledNumerator, numerator),
			Denominator: denominator,
		})
	} else {
		journal.stage(orderHash, types.OrderStatus{
			IsValidated: true,
			Numerator:   new(big.Int).Set(numerator),
			Denominator: new(big.Int).Set(denominator),
		})
	}

	return orderHash, numerator, denominator, nil
}
