package settleport

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rudolf0127/settleport/types"
)

func hashTestParameters() types.OrderParameters {
	return types.OrderParameters{
		Offerer:   common.HexToAddress("0x1111111111111111111111111111111111111111"),
		Zone:      common.HexToAddress("0x2222222222222222222222222222222222222222"),
		OrderType: types.OrderTypeFullOpen,
		StartTime: big.NewInt(1_000),
		EndTime:   big.NewInt(2_000),
		Salt:      big.NewInt(777),
		Offer: []types.OfferItem{{
			ItemType:             types.ItemTypeERC721,
			Token:                common.HexToAddress("0x3333333333333333333333333333333333333333"),
			IdentifierOrCriteria: big.NewInt(42),
			StartAmount:          big.NewInt(1),
			EndAmount:            big.NewInt(1),
		}},
		Consideration: []types.ConsiderationItem{{
			ItemType:             types.ItemTypeERC20,
			Token:                common.HexToAddress("0x4444444444444444444444444444444444444444"),
			IdentifierOrCriteria: new(big.Int),
			StartAmount:          big.NewInt(100),
			EndAmount:            big.NewInt(100),
			Recipient:            common.HexToAddress("0x1111111111111111111111111111111111111111"),
		}},
		TotalOriginalConsiderationItems: 1,
	}
}

func TestHashOrderComponentsDeterministic(t *testing.T) {
	params := hashTestParameters()
	components := params.Components(big.NewInt(0))

	first, err := HashOrderComponents(&components)
	require.NoError(t, err)
	second, err := HashOrderComponents(&components)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.NotEqual(t, common.Hash{}, first)
}

func TestHashOrderComponentsSensitivity(t *testing.T) {
	base := hashTestParameters()
	baseComponents := base.Components(big.NewInt(0))
	baseHash, err := HashOrderComponents(&baseComponents)
	require.NoError(t, err)

	salted := hashTestParameters()
	salted.Salt = big.NewInt(778)
	saltedComponents := salted.Components(big.NewInt(0))
	saltedHash, err := HashOrderComponents(&saltedComponents)
	require.NoError(t, err)
	assert.NotEqual(t, baseHash, saltedHash, "salt must be part of the hash")

	bumped := base.Components(big.NewInt(1))
	bumpedHash, err := HashOrderComponents(&bumped)
	require.NoError(t, err)
	assert.NotEqual(t, baseHash, bumpedHash, "nonce must be part of the hash")
}

func TestHashOrderComponentsIgnoresAppendedTips(t *testing.T) {
	params := hashTestParameters()
	components := params.Components(big.NewInt(0))
	baseHash, err := HashOrderComponents(&components)
	require.NoError(t, err)

	tipped := hashTestParameters()
	tipped.Consideration = append(tipped.Consideration, types.ConsiderationItem{
		ItemType:             types.ItemTypeERC20,
		Token:                tipped.Consideration[0].Token,
		IdentifierOrCriteria: new(big.Int),
		StartAmount:          big.NewInt(5),
		EndAmount:            big.NewInt(5),
		Recipient:            common.HexToAddress("0x5555555555555555555555555555555555555555"),
	})
	tippedComponents := tipped.Components(big.NewInt(0))
	tippedHash, err := HashOrderComponents(&tippedComponents)
	require.NoError(t, err)

	assert.Equal(t, baseHash, tippedHash, "items beyond the original count must not affect the hash")
}

func TestHashOrderComponentsMissingOriginalItems(t *testing.T) {
	params := hashTestParameters()
	params.TotalOriginalConsiderationItems = 2
	components := params.Components(big.NewInt(0))

	_, err := HashOrderComponents(&components)
	assert.ErrorIs(t, err, ErrMissingOriginalConsiderationItems)
}

func TestHashOrderComponentsRejectsNilFields(t *testing.T) {
	cases := map[string]func(*types.OrderComponents){
		"nil salt":       func(c *types.OrderComponents) { c.Parameters.Salt = nil },
		"nil start time": func(c *types.OrderComponents) { c.Parameters.StartTime = nil },
		"nil end time":   func(c *types.OrderComponents) { c.Parameters.EndTime = nil },
		"nil nonce":      func(c *types.OrderComponents) { c.Nonce = nil },
		"nil offer amount": func(c *types.OrderComponents) {
			c.Parameters.Offer[0].EndAmount = nil
		},
		"nil consideration identifier": func(c *types.OrderComponents) {
			c.Parameters.Consideration[0].IdentifierOrCriteria = nil
		},
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			params := hashTestParameters()
			components := params.Components(big.NewInt(0))
			mutate(&components)

			_, err := HashOrderComponents(&components)
			assert.ErrorIs(t, err, ErrIncompleteOrder)
		})
	}
}

func TestDomainSeparatorBindsChainAndContract(t *testing.T) {
	contract := common.HexToAddress("0x6666666666666666666666666666666666666666")

	base := hashDomainSeparator(big.NewInt(1), contract)
	otherChain := hashDomainSeparator(big.NewInt(5), contract)
	otherContract := hashDomainSeparator(big.NewInt(1), common.HexToAddress("0x7777777777777777777777777777777777777777"))

	assert.NotEqual(t, base, otherChain)
	assert.NotEqual(t, base, otherContract)
}
