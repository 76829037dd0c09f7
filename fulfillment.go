package settleport

import (
	"math/big"

	"github.com/rudolf0127/settleport/types"
)

// applyFulfillment nets the named offer items against the named
// consideration items and produces a single execution for the smaller of
// the two totals. Each referenced item's outstanding amount (EndAmount) is
// consumed; whichever side exceeds the execution amount keeps the
// difference in its first referenced item.
func applyFulfillment(orders []*types.AdvancedOrder, fulfillment *types.Fulfillment) (types.Execution, error) {
	if len(fulfillment.OfferComponents) == 0 || len(fulfillment.ConsiderationComponents) == 0 {
		return types.Execution{}, ErrMissingFulfillmentComponents
	}

	offerTotal := new(big.Int)
	var firstOffer *types.OfferItem
	var offerOrder *types.OrderParameters

	for _, component := range fulfillment.OfferComponents {
		params, err := paramsAt(orders, component.OrderIndex)
		if err != nil {
			return types.Execution{}, err
		}
		if component.ItemIndex < 0 || component.ItemIndex >= len(params.Offer) {
			return types.Execution{}, &InvalidFulfillmentComponentError{
				OrderIndex: component.OrderIndex, ItemIndex: component.ItemIndex}
		}
		item := &params.Offer[component.ItemIndex]

		if firstOffer == nil {
			firstOffer = item
			offerOrder = params
		} else if item.ItemType != firstOffer.ItemType ||
			item.Token != firstOffer.Token ||
			item.IdentifierOrCriteria.Cmp(firstOffer.IdentifierOrCriteria) != 0 ||
			params.Offerer != offerOrder.Offerer ||
			params.OrderType.UsesProxy() != offerOrder.OrderType.UsesProxy() {
			return types.Execution{}, ErrMismatchedFulfillmentComponents
		}

		offerTotal.Add(offerTotal, item.EndAmount)
		item.EndAmount = new(big.Int)
	}

	considerationTotal := new(big.Int)
	var firstConsideration *types.ConsiderationItem

	for _, component := range fulfillment.ConsiderationComponents {
		params, err := paramsAt(orders, component.OrderIndex)
		if err != nil {
			return types.Execution{}, err
		}
		if component.ItemIndex < 0 || component.ItemIndex >= len(params.Consideration) {
			return types.Execution{}, &InvalidFulfillmentComponentError{
				OrderIndex: component.OrderIndex, ItemIndex: component.ItemIndex}
		}
		item := &params.Consideration[component.ItemIndex]

		if firstConsideration == nil {
			firstConsideration = item
		} else if item.ItemType != firstConsideration.ItemType ||
			item.Token != firstConsideration.Token ||
			item.IdentifierOrCriteria.Cmp(firstConsideration.IdentifierOrCriteria) != 0 ||
			item.Recipient != firstConsideration.Recipient {
			return types.Execution{}, ErrMismatchedFulfillmentComponents
		}

		considerationTotal.Add(considerationTotal, item.EndAmount)
		item.EndAmount = new(big.Int)
	}

	if firstOffer.ItemType != firstConsideration.ItemType ||
		firstOffer.Token != firstConsideration.Token ||
		firstOffer.IdentifierOrCriteria.Cmp(firstConsideration.IdentifierOrCriteria) != 0 {
		return types.Execution{}, ErrMismatchedFulfillmentComponents
	}

	// Execute the smaller total; the surplus side keeps its remainder
	// outstanding.
	amount := new(big.Int).Set(offerTotal)
	if offerTotal.Cmp(considerationTotal) > 0 {
		amount.Set(considerationTotal)
		firstOffer.EndAmount = new(big.Int).Sub(offerTotal, considerationTotal)
	} else if considerationTotal.Cmp(offerTotal) > 0 {
		firstConsideration.EndAmount = new(big.Int).Sub(considerationTotal, offerTotal)
	}

	return types.Execution{
		Item: types.ReceivedItem{
			ItemType:   firstOffer.ItemType,
			Token:      firstOffer.Token,
			Identifier: firstOffer.IdentifierOrCriteria,
			Amount:     amount,
			Recipient:  firstConsideration.Recipient,
		},
		Offerer:  offerOrder.Offerer,
		UseProxy: offerOrder.OrderType.UsesProxy(),
	}, nil
}

func paramsAt(orders []*types.AdvancedOrder, index int) (*types.OrderParameters, error) {
	if index < 0 || index >= len(orders) {
		return nil, &InvalidFulfillmentComponentError{OrderIndex: index, ItemIndex: -1}
	}
	return &orders[index].Parameters, nil
}
