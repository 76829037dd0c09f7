// Package settleport implements a peer-to-peer order settlement engine:
// signed offers to exchange bundles of native, fungible, unique and
// semi-fungible assets are validated, priced over time, tracked through
// partial fills and settled atomically against external asset backends.
package settleport

import (
	"context"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/rudolf0127/settleport/store"
	"github.com/rudolf0127/settleport/types"
)

// Engine validates and settles signed orders. All mutating entry points are
// serialized by a reentrancy guard; nested entry fails immediately rather
// than waiting. The order-status store is only written after a call's
// transfers have all succeeded.
type Engine struct {
	store  store.Store
	collab Collaborators
	log    zerolog.Logger

	verifyingContract common.Address
	chainIDSource     ChainIDSource
	cachedChainID     *big.Int
	cachedDomainSep   common.Hash

	clock    func() time.Time
	settling atomic.Bool
}

// NewEngine creates an engine from a config and collaborator set. The
// domain separator is derived once here and re-derived only if the live
// chain ID diverges from the configured one.
func NewEngine(cfg Config, collab Collaborators) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	backing := cfg.Store
	if backing == nil {
		backing = store.NewMemoryStore()
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	chainID := new(big.Int).Set(cfg.ChainID)
	return &Engine{
		store:             backing,
		collab:            collab,
		log:               logger,
		verifyingContract: cfg.VerifyingContract,
		chainIDSource:     cfg.ChainIDSource,
		cachedChainID:     chainID,
		cachedDomainSep:   hashDomainSeparator(chainID, cfg.VerifyingContract),
		clock:             defaultClock,
	}, nil
}

// enterSettlement acquires the reentrancy guard, returning a release func
// that must run on every exit path.
func (e *Engine) enterSettlement() (func(), error) {
	if !e.settling.CompareAndSwap(false, true) {
		return nil, ErrNoReentrantCalls
	}
	return func() { e.settling.Store(false) }, nil
}

// orderTiming captures the elapsed/remaining/duration split of an order's
// active window at the current time.
type orderTiming struct {
	elapsed   *big.Int
	remaining *big.Int
	duration  *big.Int
}

func (e *Engine) timingFor(params *types.OrderParameters) orderTiming {
	now := e.now()
	return orderTiming{
		elapsed:   new(big.Int).Sub(now, params.StartTime),
		remaining: new(big.Int).Sub(params.EndTime, now),
		duration:  new(big.Int).Sub(params.EndTime, params.StartTime),
	}
}

// scaleOrderItems prices every item of an order for this call, writing the
// result into each item's EndAmount: interpolated to the current time
// (offers round down, considerations round up), then scaled by the fill
// fraction.
func scaleOrderItems(order *types.AdvancedOrder, numerator, denominator *big.Int, timing orderTiming) {
	params := &order.Parameters
	for i := range params.Offer {
		item := &params.Offer[i]
		item.EndAmount = scaledAmount(
			item.StartAmount, item.EndAmount,
			numerator, denominator,
			timing.elapsed, timing.remaining, timing.duration, false)
	}
	for i := range params.Consideration {
		item := &params.Consideration[i]
		item.EndAmount = scaledAmount(
			item.StartAmount, item.EndAmount,
			numerator, denominator,
			timing.elapsed, timing.remaining, timing.duration, true)
	}
}

// resolveCriteria runs the external criteria resolver over the orders and
// asserts no criteria-gated item survived unresolved.
func (e *Engine) resolveCriteria(orders []*types.AdvancedOrder, resolutions []types.CriteriaResolution) error {
	if len(resolutions) > 0 {
		if e.collab.Criteria == nil {
			return ErrUnresolvedCriteria
		}
		if err := e.collab.Criteria(orders, resolutions); err != nil {
			return err
		}
	}
	for _, order := range orders {
		params := &order.Parameters
		for i := range params.Offer {
			if params.Offer[i].ItemType.HasCriteria() {
				return ErrUnresolvedCriteria
			}
		}
		for i := range params.Consideration {
			if params.Consideration[i].ItemType.HasCriteria() {
				return ErrUnresolvedCriteria
			}
		}
	}
	return nil
}

// FulfillBasicOrder settles an order with a single offer item against its
// consideration items plus a list of flat-amount additional recipients. No
// partial fills; the order is marked fully filled. Consideration-side
// transfers run before offer-side transfers and any unspent native value is
// refunded to the caller.
func (e *Engine) FulfillBasicOrder(ctx context.Context, caller common.Address, value *big.Int, order *types.Order, additionalRecipients []types.AdditionalRecipient, useFulfillerProxy bool) (common.Hash, error) {
	release, err := e.enterSettlement()
	if err != nil {
		return common.Hash{}, err
	}
	defer release()

	if len(order.Parameters.Offer) != 1 || len(order.Parameters.Consideration) == 0 {
		return common.Hash{}, ErrInvalidBasicOrderParameters
	}

	advanced := order.Advanced()
	params := &advanced.Parameters
	if params.TotalOriginalConsiderationItems == 0 {
		params.TotalOriginalConsiderationItems = len(params.Consideration)
	}

	// Additional recipients are tips in the primary consideration item's
	// asset, appended beyond the signed items.
	primary := params.Consideration[0]
	for _, recipient := range additionalRecipients {
		if recipient.Amount == nil {
			return common.Hash{}, ErrMissingItemAmount
		}
		params.Consideration = append(params.Consideration, types.ConsiderationItem{
			ItemType:             primary.ItemType,
			Token:                primary.Token,
			IdentifierOrCriteria: primary.IdentifierOrCriteria,
			StartAmount:          recipient.Amount,
			EndAmount:            recipient.Amount,
			Recipient:            recipient.Recipient,
		})
	}

	journal := newLedgerJournal(e.store)
	orderHash, numerator, denominator, err := e.validateOrderAndUpdateStatus(ctx, caller, advanced, false, journal)
	if err != nil {
		return common.Hash{}, err
	}
	if err := e.assertRestrictedOrderAuthorized(ctx, caller, orderHash, advanced, nil, nil); err != nil {
		return common.Hash{}, err
	}

	timing := e.timingFor(params)
	scaleOrderItems(advanced, numerator, denominator, timing)

	tracker := newNativeTracker(value)
	if err := e.transferOrderItems(ctx, caller, advanced, useFulfillerProxy, tracker); err != nil {
		return common.Hash{}, err
	}
	if err := tracker.refund(ctx, e, caller); err != nil {
		return common.Hash{}, err
	}
	if err := journal.commit(); err != nil {
		return common.Hash{}, err
	}

	e.logFulfilled(orderHash, params)
	return orderHash, nil
}

// FulfillOrder settles a single order in full.
func (e *Engine) FulfillOrder(ctx context.Context, caller common.Address, value *big.Int, order *types.Order, useFulfillerProxy bool) (common.Hash, error) {
	return e.FulfillAdvancedOrder(ctx, caller, value, order.Advanced(), nil, useFulfillerProxy)
}

// FulfillAdvancedOrder settles a fraction of a single order: validates and
// updates the fill ledger, resolves criteria, interpolates prices, scales
// every item by the applied fraction, transfers all considerations then all
// offers, and refunds any native remainder.
func (e *Engine) FulfillAdvancedOrder(ctx context.Context, caller common.Address, value *big.Int, order *types.AdvancedOrder, resolutions []types.CriteriaResolution, useFulfillerProxy bool) (common.Hash, error) {
	release, err := e.enterSettlement()
	if err != nil {
		return common.Hash{}, err
	}
	defer release()

	journal := newLedgerJournal(e.store)
	orderHash, numerator, denominator, err := e.validateOrderAndUpdateStatus(ctx, caller, order, true, journal)
	if err != nil {
		return common.Hash{}, err
	}
	if err := e.resolveCriteria([]*types.AdvancedOrder{order}, resolutions); err != nil {
		return common.Hash{}, err
	}
	if err := e.assertRestrictedOrderAuthorized(ctx, caller, orderHash, order, nil, resolutions); err != nil {
		return common.Hash{}, err
	}

	params := &order.Parameters
	timing := e.timingFor(params)
	scaleOrderItems(order, numerator, denominator, timing)

	tracker := newNativeTracker(value)
	if err := e.transferOrderItems(ctx, caller, order, useFulfillerProxy, tracker); err != nil {
		return common.Hash{}, err
	}
	if err := tracker.refund(ctx, e, caller); err != nil {
		return common.Hash{}, err
	}
	if err := journal.commit(); err != nil {
		return common.Hash{}, err
	}

	e.logFulfilled(orderHash, params)
	return orderHash, nil
}

// transferOrderItems moves a priced order's consideration items from the
// caller to each recipient, then its offer items from the offerer to the
// caller. The caller's proxy sources the consideration side when requested;
// the order type decides sourcing for the offer side.
func (e *Engine) transferOrderItems(ctx context.Context, caller common.Address, order *types.AdvancedOrder, useFulfillerProxy bool, tracker *nativeTracker) error {
	params := &order.Parameters

	for i := range params.Consideration {
		item := &params.Consideration[i]
		received := types.ReceivedItem{
			ItemType:   item.ItemType,
			Token:      item.Token,
			Identifier: item.IdentifierOrCriteria,
			Amount:     item.EndAmount,
			Recipient:  item.Recipient,
		}
		if err := e.transferItem(ctx, &received, caller, useFulfillerProxy, tracker); err != nil {
			return err
		}
	}

	for i := range params.Offer {
		item := &params.Offer[i]
		received := types.ReceivedItem{
			ItemType:   item.ItemType,
			Token:      item.Token,
			Identifier: item.IdentifierOrCriteria,
			Amount:     item.EndAmount,
			Recipient:  caller,
		}
		if err := e.transferItem(ctx, &received, params.Offerer, params.OrderType.UsesProxy(), tracker); err != nil {
			return err
		}
	}

	return nil
}

// MatchOrders settles a batch of orders against each other according to a
// caller-supplied fulfillment mapping. Every order is filled maximally.
func (e *Engine) MatchOrders(ctx context.Context, caller common.Address, value *big.Int, orders []types.Order, fulfillments []types.Fulfillment) ([]types.Execution, []types.BatchExecution, error) {
	advanced := make([]*types.AdvancedOrder, len(orders))
	for i := range orders {
		advanced[i] = orders[i].Advanced()
	}
	return e.MatchAdvancedOrders(ctx, caller, value, advanced, nil, fulfillments)
}

// MatchAdvancedOrders is MatchOrders with per-order fractions and criteria
// resolution. After all fulfillments are applied, every consideration item
// must be fully met; the resulting transfer list is compressed (coalescing
// same-counterparty semi-fungible transfers into batches) before dispatch.
func (e *Engine) MatchAdvancedOrders(ctx context.Context, caller common.Address, value *big.Int, orders []*types.AdvancedOrder, resolutions []types.CriteriaResolution, fulfillments []types.Fulfillment) ([]types.Execution, []types.BatchExecution, error) {
	release, err := e.enterSettlement()
	if err != nil {
		return nil, nil, err
	}
	defer release()

	journal := newLedgerJournal(e.store)
	orderHashes := make([]common.Hash, len(orders))
	for i, order := range orders {
		orderHash, numerator, denominator, err := e.validateOrderAndUpdateStatus(ctx, caller, order, true, journal)
		if err != nil {
			return nil, nil, err
		}
		orderHashes[i] = orderHash

		timing := e.timingFor(&order.Parameters)
		scaleOrderItems(order, numerator, denominator, timing)
	}

	if err := e.resolveCriteria(orders, resolutions); err != nil {
		return nil, nil, err
	}
	for i, order := range orders {
		if err := e.assertRestrictedOrderAuthorized(ctx, caller, orderHashes[i], order, orderHashes[:i], resolutions); err != nil {
			return nil, nil, err
		}
	}

	executions := make([]types.Execution, 0, len(fulfillments))
	for i := range fulfillments {
		execution, err := applyFulfillment(orders, &fulfillments[i])
		if err != nil {
			return nil, nil, err
		}
		if execution.Item.Amount.Sign() > 0 {
			executions = append(executions, execution)
		}
	}

	// Every consideration item's outstanding amount must reach exactly zero.
	for i, order := range orders {
		consideration := order.Parameters.Consideration
		for j := range consideration {
			if consideration[j].EndAmount.Sign() != 0 {
				return nil, nil, &ConsiderationNotMetError{
					OrderIndex: i,
					ItemIndex:  j,
					Shortfall:  new(big.Int).Set(consideration[j].EndAmount),
				}
			}
		}
	}

	standard, batches := compressExecutions(executions)

	tracker := newNativeTracker(value)
	if err := e.performExecutions(ctx, standard, batches, tracker); err != nil {
		return nil, nil, err
	}
	if err := tracker.refund(ctx, e, caller); err != nil {
		return nil, nil, err
	}
	if err := journal.commit(); err != nil {
		return nil, nil, err
	}

	for i := range orders {
		e.logFulfilled(orderHashes[i], &orders[i].Parameters)
	}

	return standard, batches, nil
}

// Cancel marks each order cancelled for all future calls. Only the offerer
// or the zone of an order may cancel it. A cancelled order retains its fill
// state but can never be settled again. Fully-filled orders are already
// terminal and are skipped, so later attempts against them still report the
// used-order error.
func (e *Engine) Cancel(ctx context.Context, caller common.Address, orders []types.OrderComponents) error {
	release, err := e.enterSettlement()
	if err != nil {
		return err
	}
	defer release()

	journal := newLedgerJournal(e.store)
	type cancelled struct {
		hash   common.Hash
		params *types.OrderParameters
	}
	var logged []cancelled

	for i := range orders {
		params := &orders[i].Parameters
		if caller != params.Offerer && caller != params.Zone {
			return ErrInvalidCanceller
		}
		orderHash, err := HashOrderComponents(&orders[i])
		if err != nil {
			return err
		}
		status, err := journal.status(orderHash)
		if err != nil {
			return err
		}
		if status.FullyFilled() {
			continue
		}
		status.IsCancelled = true
		status.IsValidated = false
		journal.stage(orderHash, status)
		logged = append(logged, cancelled{hash: orderHash, params: params})
	}
	if err := journal.commit(); err != nil {
		return err
	}

	for _, c := range logged {
		e.log.Info().
			Str("order_hash", c.hash.Hex()).
			Str("offerer", c.params.Offerer.Hex()).
			Str("zone", c.params.Zone.Hex()).
			Msg("order cancelled")
	}
	return nil
}

// Validate marks each order as validated so future fulfillments skip the
// signature check. Orders outside their active window, cancelled or
// fully-filled cannot be validated.
func (e *Engine) Validate(ctx context.Context, caller common.Address, orders []types.Order) error {
	release, err := e.enterSettlement()
	if err != nil {
		return err
	}
	defer release()

	journal := newLedgerJournal(e.store)
	type validated struct {
		hash   common.Hash
		params *types.OrderParameters
	}
	var logged []validated

	for i := range orders {
		params := &orders[i].Parameters
		if err := e.checkOrderTime(params); err != nil {
			return err
		}
		orderHash, err := e.orderHashFor(params)
		if err != nil {
			return err
		}
		status, err := journal.status(orderHash)
		if err != nil {
			return err
		}
		if status.IsCancelled {
			return ErrOrderIsCancelled(orderHash)
		}
		if status.FullyFilled() {
			return ErrOrderAlreadyFilled(orderHash)
		}
		if status.IsValidated {
			continue
		}

		digest, err := e.digest(ctx, orderHash)
		if err != nil {
			return err
		}
		if err := e.verifySignature(ctx, caller, params.Offerer, digest, orders[i].Signature); err != nil {
			return err
		}

		status.IsValidated = true
		journal.stage(orderHash, status)
		logged = append(logged, validated{hash: orderHash, params: params})
	}
	if err := journal.commit(); err != nil {
		return err
	}

	for _, v := range logged {
		e.log.Info().
			Str("order_hash", v.hash.Hex()).
			Str("offerer", v.params.Offerer.Hex()).
			Str("zone", v.params.Zone.Hex()).
			Msg("order validated")
	}
	return nil
}

// IncrementNonce bumps the caller's nonce, invalidating every outstanding
// order signed against the previous value, and returns the new nonce.
func (e *Engine) IncrementNonce(ctx context.Context, caller common.Address) (*big.Int, error) {
	release, err := e.enterSettlement()
	if err != nil {
		return nil, err
	}
	defer release()

	nonce, err := e.store.IncrementNonce(caller)
	if err != nil {
		return nil, err
	}
	e.log.Info().
		Str("offerer", caller.Hex()).
		Str("nonce", nonce.String()).
		Msg("nonce incremented")
	return nonce, nil
}

// GetOrderHash derives the hash an order's parameters settle under right
// now, using the offerer's current nonce.
func (e *Engine) GetOrderHash(params *types.OrderParameters) (common.Hash, error) {
	return e.orderHashFor(params)
}

// GetOrderStatus reads the ledger record for an order hash.
func (e *Engine) GetOrderStatus(orderHash common.Hash) (types.OrderStatus, error) {
	return e.store.OrderStatus(orderHash)
}

// GetNonce reads an offerer's current nonce.
func (e *Engine) GetNonce(offerer common.Address) (*big.Int, error) {
	return e.store.Nonce(offerer)
}

func (e *Engine) logFulfilled(orderHash common.Hash, params *types.OrderParameters) {
	e.log.Info().
		Str("order_hash", orderHash.Hex()).
		Str("offerer", params.Offerer.Hex()).
		Str("zone", params.Zone.Hex()).
		Msg("order fulfilled")
}
