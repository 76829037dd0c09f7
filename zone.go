package settleport

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rudolf0127/settleport/types"
)

// assertRestrictedOrderAuthorized asks the zone to approve a restricted
// order unless the caller is the offerer or the zone itself. The richer
// callback is used when extra fulfillment data or criteria resolutions were
// supplied. A zone error propagates verbatim; anything short of the exact
// magic value is a rejection.
func (e *Engine) assertRestrictedOrderAuthorized(ctx context.Context, caller common.Address, orderHash common.Hash, order *types.AdvancedOrder, priorOrderHashes []common.Hash, resolutions []types.CriteriaResolution) error {
	params := &order.Parameters

	if !params.OrderType.IsRestricted() {
		return nil
	}
	if caller == params.Offerer || caller == params.Zone {
		return nil
	}
	if e.collab.Zones == nil {
		return ErrInvalidRestrictedOrder
	}

	var magic [4]byte
	var err error
	if len(order.ExtraData) > 0 || len(resolutions) > 0 {
		magic, err = e.collab.Zones.IsValidOrderIncludingExtraData(
			ctx, params.Zone, orderHash, caller, order, priorOrderHashes, resolutions)
	} else {
		magic, err = e.collab.Zones.IsValidOrder(
			ctx, params.Zone, orderHash, caller, params.Offerer, params.ZoneHash)
	}
	if err != nil {
		return err
	}
	if magic != ZoneApprovalMagic {
		return ErrInvalidRestrictedOrder
	}
	return nil
}
