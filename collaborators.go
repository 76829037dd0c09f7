package settleport

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rudolf0127/settleport/types"
)

// Magic values returned by callback collaborators. Each is the 4-byte
// selector of the callback being answered; any other value is treated as a
// rejection.
var (
	// ContractSignatureMagic is returned by a contract account that accepts
	// a digest/signature pair (EIP-1271).
	ContractSignatureMagic = [4]byte{0x16, 0x26, 0xba, 0x7e}

	// ZoneApprovalMagic is returned by a zone that approves a restricted
	// order.
	ZoneApprovalMagic = [4]byte{0x01, 0x73, 0x2b, 0x97}
)

// NativeTransferer moves native currency on the engine's behalf. A failure
// with a reason must be returned verbatim; a failure without one is
// signalled with ErrNoRevertReason, for which the engine substitutes a
// typed error.
type NativeTransferer interface {
	SendNative(ctx context.Context, to common.Address, amount *big.Int) error
}

// TokenTransferer moves tokens between accounts. TransferERC20 returns the
// raw return data of the call so the engine can apply the
// boolean-when-present rule; the other transfers only report success or
// failure. IsContract reports whether code is deployed at an address.
type TokenTransferer interface {
	TransferERC20(ctx context.Context, token, from, to common.Address, amount *big.Int) ([]byte, error)
	TransferERC721(ctx context.Context, token, from, to common.Address, identifier *big.Int) error
	TransferERC1155(ctx context.Context, token, from, to common.Address, identifier, amount *big.Int) error
	BatchTransferERC1155(ctx context.Context, token, from, to common.Address, identifiers, amounts []*big.Int) error
	IsContract(ctx context.Context, account common.Address) (bool, error)
}

// Proxy is a transfer-capable intermediary holding approvals on a user's
// behalf. Implementation identifies the code it is running; the engine
// refuses proxies that are not on the registry's expected implementation.
type Proxy interface {
	TokenTransferer
	Implementation(ctx context.Context) (common.Address, error)
}

// ProxyRegistry resolves an owner to their proxy and exposes the
// implementation every proxy is expected to run.
type ProxyRegistry interface {
	ProxyFor(ctx context.Context, owner common.Address) (Proxy, error)
	ExpectedImplementation(ctx context.Context) (common.Address, error)
}

// SignatureValidator asks a contract account to validate a digest and
// signature itself (EIP-1271). Errors propagate verbatim to the original
// caller.
type SignatureValidator interface {
	IsValidSignature(ctx context.Context, account common.Address, digest common.Hash, signature []byte) ([4]byte, error)
}

// Zone approves or rejects restricted orders fulfilled by third parties.
// The rich variant carries the resolved order and the hashes of orders
// settled earlier in the same batch.
type Zone interface {
	IsValidOrder(ctx context.Context, zone common.Address, orderHash common.Hash, caller, offerer common.Address, zoneHash common.Hash) ([4]byte, error)
	IsValidOrderIncludingExtraData(ctx context.Context, zone common.Address, orderHash common.Hash, caller common.Address, order *types.AdvancedOrder, priorOrderHashes []common.Hash, resolutions []types.CriteriaResolution) ([4]byte, error)
}

// CriteriaResolverFunc substitutes concrete identifiers into criteria-gated
// items and verifies each proof against the item's criteria root. It is a
// pure transformation over the supplied orders.
type CriteriaResolverFunc func(orders []*types.AdvancedOrder, resolutions []types.CriteriaResolution) error

// ChainIDSource reports the live network identity so the engine can detect
// a network split and re-derive its domain separator.
type ChainIDSource interface {
	ChainID(ctx context.Context) (*big.Int, error)
}

// Collaborators bundles the external capabilities the engine settles
// through. Native and Tokens are required by every transferring flow;
// Proxies only when proxy-sourced orders are settled; Signatures only when
// contract accounts sign orders; Zones only for restricted orders; Criteria
// only when criteria-gated items are fulfilled.
type Collaborators struct {
	Native     NativeTransferer
	Tokens     TokenTransferer
	Proxies    ProxyRegistry
	Signatures SignatureValidator
	Zones      Zone
	Criteria   CriteriaResolverFunc
}
