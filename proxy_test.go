package settleport

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rudolf0127/settleport/types"
)

var (
	goodImplementation  = common.HexToAddress("0x0000000000000000000000000000000000900d00")
	staleImplementation = common.HexToAddress("0x000000000000000000000000000000000000dead")
)

// fakeProxy fronts the shared asset backend while reporting its own
// implementation and counting the transfers routed through it.
type fakeProxy struct {
	*fakeAssets
	implementation common.Address
	transfers      int
}

func (p *fakeProxy) TransferERC721(ctx context.Context, token, from, to common.Address, identifier *big.Int) error {
	p.transfers++
	return p.fakeAssets.TransferERC721(ctx, token, from, to, identifier)
}

func (p *fakeProxy) TransferERC20(ctx context.Context, token, from, to common.Address, amount *big.Int) ([]byte, error) {
	p.transfers++
	return p.fakeAssets.TransferERC20(ctx, token, from, to, amount)
}

func (p *fakeProxy) Implementation(ctx context.Context) (common.Address, error) {
	return p.implementation, nil
}

type fakeProxyRegistry struct {
	proxies  map[common.Address]*fakeProxy
	expected common.Address
}

func (r *fakeProxyRegistry) ProxyFor(ctx context.Context, owner common.Address) (Proxy, error) {
	proxy, ok := r.proxies[owner]
	if !ok {
		return nil, ErrInvalidProxyImplementation
	}
	return proxy, nil
}

func (r *fakeProxyRegistry) ExpectedImplementation(ctx context.Context) (common.Address, error) {
	return r.expected, nil
}

func TestProxySourcedOffer(t *testing.T) {
	r := newRig(t)
	r.assets.mint721(nftToken, 42, r.maker)
	r.assets.mint20(tokenA, takerAddr, 100)

	proxy := &fakeProxy{fakeAssets: r.assets, implementation: goodImplementation}
	r.engine.collab.Proxies = &fakeProxyRegistry{
		proxies:  map[common.Address]*fakeProxy{r.maker: proxy},
		expected: goodImplementation,
	}

	order := r.signedOrder(t, types.OrderParameters{
		OrderType:     types.OrderTypeFullOpenViaProxy,
		Offer:         []types.OfferItem{offer721(nftToken, 42)},
		Consideration: []types.ConsiderationItem{consider20(tokenA, 100, r.maker)},
	})

	_, err := r.engine.FulfillOrder(context.Background(), takerAddr, nil, order, false)
	require.NoError(t, err)
	assert.Equal(t, takerAddr, r.assets.owner721(nftToken, big.NewInt(42)))
	assert.Equal(t, 1, proxy.transfers, "the offer item must route through the offerer's proxy")
}

func TestProxyImplementationMismatch(t *testing.T) {
	r := newRig(t)
	r.assets.mint721(nftToken, 42, r.maker)
	r.assets.mint20(tokenA, takerAddr, 100)

	proxy := &fakeProxy{fakeAssets: r.assets, implementation: staleImplementation}
	r.engine.collab.Proxies = &fakeProxyRegistry{
		proxies:  map[common.Address]*fakeProxy{r.maker: proxy},
		expected: goodImplementation,
	}

	order := r.signedOrder(t, types.OrderParameters{
		OrderType:     types.OrderTypeFullOpenViaProxy,
		Offer:         []types.OfferItem{offer721(nftToken, 42)},
		Consideration: []types.ConsiderationItem{consider20(tokenA, 100, r.maker)},
	})

	_, err := r.engine.FulfillOrder(context.Background(), takerAddr, nil, order, false)
	assert.ErrorIs(t, err, ErrInvalidProxyImplementation)
	assert.Equal(t, r.maker, r.assets.owner721(nftToken, big.NewInt(42)))
}

func TestProxySourcedOrderWithoutRegistry(t *testing.T) {
	r := newRig(t)
	r.assets.mint721(nftToken, 42, r.maker)
	r.assets.mint20(tokenA, takerAddr, 100)

	order := r.signedOrder(t, types.OrderParameters{
		OrderType:     types.OrderTypeFullOpenViaProxy,
		Offer:         []types.OfferItem{offer721(nftToken, 42)},
		Consideration: []types.ConsiderationItem{consider20(tokenA, 100, r.maker)},
	})

	_, err := r.engine.FulfillOrder(context.Background(), takerAddr, nil, order, false)
	assert.ErrorIs(t, err, ErrInvalidProxyImplementation)
}

func TestFulfillerProxySourcesConsideration(t *testing.T) {
	r := newRig(t)
	r.assets.mint721(nftToken, 42, r.maker)
	r.assets.mint20(tokenA, takerAddr, 100)

	proxy := &fakeProxy{fakeAssets: r.assets, implementation: goodImplementation}
	r.engine.collab.Proxies = &fakeProxyRegistry{
		proxies:  map[common.Address]*fakeProxy{takerAddr: proxy},
		expected: goodImplementation,
	}

	order := r.signedOrder(t, types.OrderParameters{
		OrderType:     types.OrderTypeFullOpen,
		Offer:         []types.OfferItem{offer721(nftToken, 42)},
		Consideration: []types.ConsiderationItem{consider20(tokenA, 100, r.maker)},
	})

	_, err := r.engine.FulfillOrder(context.Background(), takerAddr, nil, order, true)
	require.NoError(t, err)
	assert.Equal(t, 1, proxy.transfers, "the consideration payment must route through the fulfiller's proxy")
}
