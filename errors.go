package settleport

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrInvalidTime indicates the current time lies outside the order's
	// active window.
	ErrInvalidTime = errors.New("order is not active")

	// ErrBadSignatureV indicates a 65-byte signature with a non-canonical
	// recovery value.
	ErrBadSignatureV = errors.New("bad signature v value")

	// ErrMalleableSignatureS indicates an s value above the half-curve-order
	// threshold; such signatures are rejected even when recovery would
	// succeed.
	ErrMalleableSignatureS = errors.New("malleable signature s value")

	// ErrInvalidSignature indicates signature recovery failed outright.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrBadContractSignature indicates the claimed signer's account did not
	// return the contract-signature magic value.
	ErrBadContractSignature = errors.New("bad contract signature")

	// ErrBadFraction indicates a fill fraction with a zero numerator or a
	// numerator exceeding the denominator.
	ErrBadFraction = errors.New("bad fill fraction")

	// ErrPartialFillsNotEnabled indicates a fractional fill was requested on
	// an order type that only supports full fills.
	ErrPartialFillsNotEnabled = errors.New("partial fills not enabled for order")

	// ErrInvalidCanceller indicates the caller is neither the offerer nor
	// the zone of the order it attempted to cancel.
	ErrInvalidCanceller = errors.New("only the offerer or zone may cancel an order")

	// ErrMissingOriginalConsiderationItems indicates the supplied
	// consideration array is shorter than the count recorded at signing.
	ErrMissingOriginalConsiderationItems = errors.New("missing original consideration items")

	// ErrIncompleteOrder indicates order components with a nil start time,
	// end time, salt or nonce.
	ErrIncompleteOrder = errors.New("incomplete order components")

	// ErrInvalidRestrictedOrder indicates the zone declined to approve a
	// restricted order.
	ErrInvalidRestrictedOrder = errors.New("restricted order not approved by zone")

	// ErrUnresolvedCriteria indicates a criteria-gated item survived
	// criteria resolution without a concrete identifier.
	ErrUnresolvedCriteria = errors.New("unresolved criteria item")

	// ErrNoContract indicates a token transfer targeted an account with no
	// deployed code.
	ErrNoContract = errors.New("no contract deployed at token address")

	// ErrInvalidProxyImplementation indicates a user proxy is not running
	// the expected, current implementation.
	ErrInvalidProxyImplementation = errors.New("invalid user proxy implementation")

	// ErrInsufficientNativeValue indicates the native value supplied with
	// the call does not cover the native items being settled.
	ErrInsufficientNativeValue = errors.New("insufficient native value supplied")

	// ErrNoReentrantCalls indicates a settlement entry point was entered
	// while another settlement was in progress.
	ErrNoReentrantCalls = errors.New("no reentrant calls")

	// ErrNoRevertReason is returned by collaborators to signal a
	// counterparty failure that carried no reason; the engine substitutes
	// its own typed error in that case.
	ErrNoRevertReason = errors.New("counterparty failed without a revert reason")

	// ErrMissingFulfillmentComponents indicates a fulfillment with an empty
	// offer or consideration component list.
	ErrMissingFulfillmentComponents = errors.New("fulfillment has no components on one side")

	// ErrMismatchedFulfillmentComponents indicates fulfillment components
	// that do not share the same item, source or destination.
	ErrMismatchedFulfillmentComponents = errors.New("mismatched fulfillment components")

	// ErrMissingItemAmount indicates an item with a nil or negative amount.
	ErrMissingItemAmount = errors.New("missing item amount")

	// ErrInvalidOrderType indicates an order type outside the defined 0-7
	// range.
	ErrInvalidOrderType = errors.New("invalid order type")

	// ErrInvalidBasicOrderParameters indicates a basic fulfillment whose
	// order does not have exactly one offer item and at least one
	// consideration item.
	ErrInvalidBasicOrderParameters = errors.New("basic fulfillment requires one offer item and a primary consideration item")
)

// SignatureLengthError reports a signature whose length is neither the
// 65-byte (r, s, v) encoding nor the 64-byte compact encoding.
type SignatureLengthError struct {
	Length int
}

func (e *SignatureLengthError) Error() string {
	return fmt.Sprintf("bad signature length: %d", e.Length)
}

// OrderError ties a state failure to the order hash it concerns.
type OrderError struct {
	OrderHash common.Hash
	Reason    error
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("order %s: %v", e.OrderHash.Hex(), e.Reason)
}

func (e *OrderError) Unwrap() error { return e.Reason }

var (
	errOrderIsCancelled   = errors.New("order is cancelled")
	errOrderAlreadyFilled = errors.New("order is already fully filled")
	errOrderPartiallyUsed = errors.New("order is partially filled and partial fills are not supported here")
)

// ErrOrderIsCancelled reports a settlement attempt against a cancelled
// order.
func ErrOrderIsCancelled(hash common.Hash) error {
	return &OrderError{OrderHash: hash, Reason: errOrderIsCancelled}
}

// ErrOrderAlreadyFilled reports a settlement attempt against a fully-filled
// order.
func ErrOrderAlreadyFilled(hash common.Hash) error {
	return &OrderError{OrderHash: hash, Reason: errOrderAlreadyFilled}
}

// ErrOrderPartiallyFilled reports a partially-filled order reaching an
// entry point that only supports untouched orders.
func ErrOrderPartiallyFilled(hash common.Hash) error {
	return &OrderError{OrderHash: hash, Reason: errOrderPartiallyUsed}
}

// IsCancelled reports whether err is a cancelled-order failure.
func IsCancelled(err error) bool { return errors.Is(err, errOrderIsCancelled) }

// IsAlreadyFilled reports whether err is a used-order failure.
func IsAlreadyFilled(err error) bool { return errors.Is(err, errOrderAlreadyFilled) }

// BadReturnValueError reports a fungible token transfer that returned an
// explicit false.
type BadReturnValueError struct {
	Token  common.Address
	From   common.Address
	To     common.Address
	Amount *big.Int
}

func (e *BadReturnValueError) Error() string {
	return fmt.Sprintf("bad return value from ERC20 %s on transfer of %s from %s to %s",
		e.Token.Hex(), e.Amount.String(), e.From.Hex(), e.To.Hex())
}

// NativeTransferError reports a native-currency transfer that failed
// without a reason from the recipient.
type NativeTransferError struct {
	To     common.Address
	Amount *big.Int
}

func (e *NativeTransferError) Error() string {
	return fmt.Sprintf("native transfer of %s to %s failed", e.Amount.String(), e.To.Hex())
}

// ConsiderationNotMetError reports a consideration item whose outstanding
// amount did not reach zero after applying every fulfillment.
type ConsiderationNotMetError struct {
	OrderIndex int
	ItemIndex  int
	Shortfall  *big.Int
}

func (e *ConsiderationNotMetError) Error() string {
	return fmt.Sprintf("consideration not met on order %d item %d: %s outstanding",
		e.OrderIndex, e.ItemIndex, e.Shortfall.String())
}

// InvalidFulfillmentComponentError reports a fulfillment component whose
// order or item index is out of range.
type InvalidFulfillmentComponentError struct {
	OrderIndex int
	ItemIndex  int
}

func (e *InvalidFulfillmentComponentError) Error() string {
	return fmt.Sprintf("invalid fulfillment component: order %d item %d", e.OrderIndex, e.ItemIndex)
}
