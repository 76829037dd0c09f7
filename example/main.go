// Demo: settle a signed NFT-for-tokens order entirely in memory.
//
// A maker signs an order offering one unique token in exchange for 100
// fungible units, a taker fulfills it, and the resulting balances and
// ledger state are printed.
package main

import (
	"context"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog"

	settleport "github.com/rudolf0127/settleport"
	"github.com/rudolf0127/settleport/types"
)

var (
	verifyingContract = common.HexToAddress("0x00000000000000000000000000000000c0ffee00")
	nftToken          = common.HexToAddress("0x0000000000000000000000000000000000000721")
	payToken          = common.HexToAddress("0x0000000000000000000000000000000000000020")
)

// demoAssets is an in-memory asset backend standing in for real token
// contracts.
type demoAssets struct {
	native map[common.Address]*big.Int
	erc20  map[common.Address]*big.Int
	nfts   map[string]common.Address
}

func newDemoAssets() *demoAssets {
	return &demoAssets{
		native: make(map[common.Address]*big.Int),
		erc20:  make(map[common.Address]*big.Int),
		nfts:   make(map[string]common.Address),
	}
}

func (a *demoAssets) balance(m map[common.Address]*big.Int, who common.Address) *big.Int {
	if b, ok := m[who]; ok {
		return b
	}
	b := new(big.Int)
	m[who] = b
	return b
}

func (a *demoAssets) SendNative(ctx context.Context, to common.Address, amount *big.Int) error {
	a.balance(a.native, to).Add(a.balance(a.native, to), amount)
	return nil
}

func (a *demoAssets) TransferERC20(ctx context.Context, token, from, to common.Address, amount *big.Int) ([]byte, error) {
	src := a.balance(a.erc20, from)
	if src.Cmp(amount) < 0 {
		return nil, fmt.Errorf("insufficient balance of %s", token.Hex())
	}
	src.Sub(src, amount)
	a.balance(a.erc20, to).Add(a.balance(a.erc20, to), amount)
	return nil, nil
}

func (a *demoAssets) TransferERC721(ctx context.Context, token, from, to common.Address, identifier *big.Int) error {
	key := token.Hex() + "/" + identifier.String()
	if a.nfts[key] != from {
		return fmt.Errorf("%s does not own token %s", from.Hex(), identifier.String())
	}
	a.nfts[key] = to
	return nil
}

func (a *demoAssets) TransferERC1155(ctx context.Context, token, from, to common.Address, identifier, amount *big.Int) error {
	return fmt.Errorf("no semi-fungible assets in this demo")
}

func (a *demoAssets) BatchTransferERC1155(ctx context.Context, token, from, to common.Address, identifiers, amounts []*big.Int) error {
	return fmt.Errorf("no semi-fungible assets in this demo")
}

func (a *demoAssets) IsContract(ctx context.Context, account common.Address) (bool, error) {
	return true, nil
}

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()

	assets := newDemoAssets()
	engine, err := settleport.NewEngine(settleport.Config{
		ChainID:           big.NewInt(31337),
		VerifyingContract: verifyingContract,
		Logger:            &logger,
	}, settleport.Collaborators{
		Native: assets,
		Tokens: assets,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create engine")
	}

	makerKey, err := crypto.GenerateKey()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to generate maker key")
	}
	takerKey, err := crypto.GenerateKey()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to generate taker key")
	}
	maker := crypto.PubkeyToAddress(makerKey.PublicKey)
	taker := crypto.PubkeyToAddress(takerKey.PublicKey)

	// Seed balances: the maker owns NFT #42, the taker holds payment tokens.
	assets.nfts[nftToken.Hex()+"/42"] = maker
	assets.erc20[taker] = big.NewInt(1_000)

	builder, err := settleport.NewOrderBuilder(big.NewInt(31337), verifyingContract, makerKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create order builder")
	}

	now := big.NewInt(1_700_000_000)
	params := types.OrderParameters{
		Offerer:   maker,
		OrderType: types.OrderTypeFullOpen,
		StartTime: new(big.Int),
		EndTime:   new(big.Int).Add(now, big.NewInt(1<<40)),
		Offer: []types.OfferItem{{
			ItemType:             types.ItemTypeERC721,
			Token:                nftToken,
			IdentifierOrCriteria: big.NewInt(42),
			StartAmount:          big.NewInt(1),
			EndAmount:            big.NewInt(1),
		}},
		Consideration: []types.ConsiderationItem{{
			ItemType:             types.ItemTypeERC20,
			Token:                payToken,
			IdentifierOrCriteria: new(big.Int),
			StartAmount:          big.NewInt(100),
			EndAmount:            big.NewInt(100),
			Recipient:            maker,
		}},
	}

	nonce, err := engine.GetNonce(maker)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to read maker nonce")
	}
	order, err := builder.BuildSignedOrder(params, nonce)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build order")
	}

	orderHash, err := engine.FulfillOrder(context.Background(), taker, nil, order, false)
	if err != nil {
		logger.Fatal().Err(err).Msg("fulfillment failed")
	}

	status, err := engine.GetOrderStatus(orderHash)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to read order status")
	}

	fmt.Println()
	fmt.Printf("order hash:      %s\n", orderHash.Hex())
	fmt.Printf("fully filled:    %v\n", status.FullyFilled())
	fmt.Printf("NFT #42 owner:   %s (taker %s)\n", assets.nfts[nftToken.Hex()+"/42"].Hex(), taker.Hex())
	fmt.Printf("maker balance:   %s\n", assets.erc20[maker].String())
	fmt.Printf("taker balance:   %s\n", assets.erc20[taker].String())
}
