package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// FulfillmentComponent addresses a single item within a batch of orders by
// order index and item index.
type FulfillmentComponent struct {
	OrderIndex int
	ItemIndex  int
}

// Fulfillment nets a set of offer items from some orders against a set of
// consideration items from others. All offer components must share the same
// item, offerer and sourcing; all consideration components must share the
// same item and recipient.
type Fulfillment struct {
	OfferComponents         []FulfillmentComponent
	ConsiderationComponents []FulfillmentComponent
}

// Execution is a single concrete asset movement: the item, the account it
// leaves, and whether it is sourced through that account's proxy.
type Execution struct {
	Item     ReceivedItem
	Offerer  common.Address
	UseProxy bool
}

// BatchExecution coalesces several semi-fungible transfers that share a
// token, counterparty pair and sourcing choice into one batched call.
type BatchExecution struct {
	Token    common.Address
	From     common.Address
	To       common.Address
	TokenIDs []*big.Int
	Amounts  []*big.Int
	UseProxy bool
}
