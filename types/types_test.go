package types

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderTypeSemantics(t *testing.T) {
	cases := []struct {
		orderType  OrderType
		partial    bool
		restricted bool
		proxy      bool
	}{
		{OrderTypeFullOpen, false, false, false},
		{OrderTypePartialOpen, true, false, false},
		{OrderTypeFullRestricted, false, true, false},
		{OrderTypePartialRestricted, true, true, false},
		{OrderTypeFullOpenViaProxy, false, false, true},
		{OrderTypePartialOpenViaProxy, true, false, true},
		{OrderTypeFullRestrictedViaProxy, false, true, true},
		{OrderTypePartialRestrictedViaProxy, true, true, true},
	}

	for _, c := range cases {
		assert.True(t, c.orderType.Valid())
		assert.Equal(t, c.partial, c.orderType.SupportsPartialFills(), "order type %d", c.orderType)
		assert.Equal(t, c.restricted, c.orderType.IsRestricted(), "order type %d", c.orderType)
		assert.Equal(t, c.proxy, c.orderType.UsesProxy(), "order type %d", c.orderType)
	}

	assert.False(t, OrderType(8).Valid())
}

func TestItemTypeCriteria(t *testing.T) {
	assert.False(t, ItemTypeNative.HasCriteria())
	assert.False(t, ItemTypeERC20.HasCriteria())
	assert.False(t, ItemTypeERC721.HasCriteria())
	assert.False(t, ItemTypeERC1155.HasCriteria())
	assert.True(t, ItemTypeERC721WithCriteria.HasCriteria())
	assert.True(t, ItemTypeERC1155WithCriteria.HasCriteria())
}

func TestOrderAdvancedIsFullFill(t *testing.T) {
	order := Order{Signature: []byte{0x01}}
	advanced := order.Advanced()

	assert.Equal(t, int64(1), advanced.Numerator.Int64())
	assert.Equal(t, int64(1), advanced.Denominator.Int64())
	assert.Equal(t, order.Signature, advanced.Signature)
}

func TestComponentsBindNonce(t *testing.T) {
	params := OrderParameters{StartTime: big.NewInt(1), EndTime: big.NewInt(2)}
	components := params.Components(big.NewInt(7))
	assert.Equal(t, int64(7), components.Nonce.Int64())
}
