// Package types defines the order, item and fulfillment records shared by
// the settlement engine, its persistence layer and the on-chain adapters.
package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ItemType identifies the transfer semantics of a single item.
type ItemType uint8

const (
	// ItemTypeNative is the chain's native currency.
	ItemTypeNative ItemType = iota

	// ItemTypeERC20 is a fungible token with an optional boolean return on
	// transfer.
	ItemTypeERC20

	// ItemTypeERC721 is a unique token.
	ItemTypeERC721

	// ItemTypeERC1155 is a semi-fungible token supporting batched transfers.
	ItemTypeERC1155

	// ItemTypeERC721WithCriteria is a unique token whose acceptable
	// identifiers are constrained by a merkle root.
	ItemTypeERC721WithCriteria

	// ItemTypeERC1155WithCriteria is a semi-fungible token whose acceptable
	// identifiers are constrained by a merkle root.
	ItemTypeERC1155WithCriteria
)

// HasCriteria reports whether the item's IdentifierOrCriteria is a merkle
// root that must be resolved to a concrete identifier before settlement.
func (t ItemType) HasCriteria() bool {
	return t == ItemTypeERC721WithCriteria || t == ItemTypeERC1155WithCriteria
}

// String returns a human-readable name for the item type.
func (t ItemType) String() string {
	switch t {
	case ItemTypeNative:
		return "NATIVE"
	case ItemTypeERC20:
		return "ERC20"
	case ItemTypeERC721:
		return "ERC721"
	case ItemTypeERC1155:
		return "ERC1155"
	case ItemTypeERC721WithCriteria:
		return "ERC721_WITH_CRITERIA"
	case ItemTypeERC1155WithCriteria:
		return "ERC1155_WITH_CRITERIA"
	default:
		return "UNKNOWN"
	}
}

// OrderType packs three orthogonal order semantics into values 0-7:
// bit 0 enables partial fills, bit 1 requires zone authorization for
// third-party fulfillment, bit 2 sources the offerer's assets through
// their proxy instead of direct approvals.
type OrderType uint8

const (
	OrderTypeFullOpen OrderType = iota
	OrderTypePartialOpen
	OrderTypeFullRestricted
	OrderTypePartialRestricted
	OrderTypeFullOpenViaProxy
	OrderTypePartialOpenViaProxy
	OrderTypeFullRestrictedViaProxy
	OrderTypePartialRestrictedViaProxy
)

// SupportsPartialFills reports whether the order may be filled for a
// fraction smaller than its full size.
func (t OrderType) SupportsPartialFills() bool {
	return t&1 != 0
}

// IsRestricted reports whether fulfillment by anyone other than the offerer
// or the zone requires the zone's approval.
func (t OrderType) IsRestricted() bool {
	return t&2 != 0
}

// UsesProxy reports whether the offerer's assets are sourced through their
// registered proxy rather than approvals granted to the engine directly.
func (t OrderType) UsesProxy() bool {
	return t&4 != 0
}

// Valid reports whether the value is one of the eight defined order types.
func (t OrderType) Valid() bool {
	return t <= OrderTypePartialRestrictedViaProxy
}

// Side distinguishes the offer side of an order from the consideration side.
type Side uint8

const (
	SideOffer Side = iota
	SideConsideration
)

// OfferItem is an asset the offerer is willing to give up. StartAmount and
// EndAmount bound a linear price over the order's active window; once an
// item has been handed to the engine, EndAmount is working state (the
// current interpolated amount, then the amount still owed) rather than an
// immutable value.
type OfferItem struct {
	ItemType             ItemType
	Token                common.Address
	IdentifierOrCriteria *big.Int
	StartAmount          *big.Int
	EndAmount            *big.Int
}

// ConsiderationItem is an asset the offerer demands in return, delivered to
// a designated recipient. EndAmount is mutable working state, as for
// OfferItem.
type ConsiderationItem struct {
	ItemType             ItemType
	Token                common.Address
	IdentifierOrCriteria *big.Int
	StartAmount          *big.Int
	EndAmount            *big.Int
	Recipient            common.Address
}

// SpentItem is a concrete, fully-priced item leaving an account.
type SpentItem struct {
	ItemType   ItemType
	Token      common.Address
	Identifier *big.Int
	Amount     *big.Int
}

// ReceivedItem is a concrete, fully-priced item together with its
// destination.
type ReceivedItem struct {
	ItemType   ItemType
	Token      common.Address
	Identifier *big.Int
	Amount     *big.Int
	Recipient  common.Address
}

// OrderParameters are the terms of an order as authored by the offerer.
// TotalOriginalConsiderationItems records how many consideration items were
// present at signing time; a fulfiller may append additional items (tips)
// beyond that count without disturbing the signature.
type OrderParameters struct {
	Offerer                         common.Address
	Zone                            common.Address
	OrderType                       OrderType
	StartTime                       *big.Int
	EndTime                         *big.Int
	Salt                            *big.Int
	ZoneHash                        common.Hash
	Offer                           []OfferItem
	Consideration                   []ConsiderationItem
	TotalOriginalConsiderationItems int
}

// Components returns the hashing view of the parameters, bound to a
// specific offerer nonce.
func (p *OrderParameters) Components(nonce *big.Int) OrderComponents {
	return OrderComponents{Parameters: *p, Nonce: nonce}
}

// OrderComponents is the typed structure from which the order hash is
// derived: the authored parameters plus the offerer's nonce at signing time.
type OrderComponents struct {
	Parameters OrderParameters
	Nonce      *big.Int
}

// Order is a signed offer: parameters plus the offerer's signature over the
// derived order digest. Signatures are 65-byte (r, s, v) or 64-byte compact
// encodings.
type Order struct {
	Parameters OrderParameters
	Signature  []byte
}

// AdvancedOrder is an order together with the fraction of it the caller
// wants to fill and optional context data forwarded to the zone.
type AdvancedOrder struct {
	Parameters  OrderParameters
	Signature   []byte
	Numerator   *big.Int
	Denominator *big.Int
	ExtraData   []byte
}

// Advanced wraps a plain order as a full fill (1/1). The item slices are
// copied so settlement working state never leaks back into the original
// order.
func (o *Order) Advanced() *AdvancedOrder {
	params := o.Parameters
	params.Offer = append([]OfferItem(nil), o.Parameters.Offer...)
	params.Consideration = append([]ConsiderationItem(nil), o.Parameters.Consideration...)
	return &AdvancedOrder{
		Parameters:  params,
		Signature:   o.Signature,
		Numerator:   big.NewInt(1),
		Denominator: big.NewInt(1),
	}
}

// CriteriaResolution designates a concrete identifier for a criteria-gated
// item of one order in a batch, together with the merkle proof tying the
// identifier to the item's criteria root.
type CriteriaResolution struct {
	OrderIndex    int
	Side          Side
	Index         int
	Identifier    *big.Int
	CriteriaProof []common.Hash
}

// AdditionalRecipient is a flat-amount payout appended to the primary
// consideration item in the basic fulfillment flow.
type AdditionalRecipient struct {
	Amount    *big.Int
	Recipient common.Address
}
