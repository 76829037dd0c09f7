package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	settleport "github.com/rudolf0127/settleport"
	"github.com/rudolf0127/settleport/types"
)

// Compile-time collaborator conformance checks.
var (
	_ settleport.NativeTransferer   = (*Caller)(nil)
	_ settleport.TokenTransferer    = (*Caller)(nil)
	_ settleport.SignatureValidator = (*Caller)(nil)
	_ settleport.Zone               = (*Caller)(nil)
	_ settleport.ChainIDSource      = (*Caller)(nil)
	_ settleport.ProxyRegistry      = (*ProxyRegistry)(nil)
	_ settleport.Proxy              = (*Proxy)(nil)
)

// IsValidSignature asks a contract account to validate a digest/signature
// pair (EIP-1271) via a read-only call. The callee's revert reason, if any,
// comes back verbatim inside the error.
func (c *Caller) IsValidSignature(ctx context.Context, account common.Address, digest common.Hash, signature []byte) ([4]byte, error) {
	calldata, err := eip1271ABI.Pack("isValidSignature", digest, signature)
	if err != nil {
		return [4]byte{}, fmt.Errorf("failed to encode signature check: %w", err)
	}
	ret, err := c.call(ctx, account, calldata)
	if err != nil {
		return [4]byte{}, err
	}
	return unpackMagic(eip1271ABI, "isValidSignature", ret)
}

// IsValidOrder asks a zone to approve a restricted order.
func (c *Caller) IsValidOrder(ctx context.Context, zone common.Address, orderHash common.Hash, caller, offerer common.Address, zoneHash common.Hash) ([4]byte, error) {
	calldata, err := zoneABI.Pack("isValidOrder", orderHash, caller, offerer, zoneHash)
	if err != nil {
		return [4]byte{}, fmt.Errorf("failed to encode zone check: %w", err)
	}
	ret, err := c.call(ctx, zone, calldata)
	if err != nil {
		return [4]byte{}, err
	}
	return unpackMagic(zoneABI, "isValidOrder", ret)
}

// IsValidOrderIncludingExtraData asks a zone to approve a restricted order
// carrying extra fulfillment context. The wire form passes the order's
// extra data and the hashes of orders settled earlier in the batch; the
// resolved order itself is identified by its hash.
func (c *Caller) IsValidOrderIncludingExtraData(ctx context.Context, zone common.Address, orderHash common.Hash, caller common.Address, order *types.AdvancedOrder, priorOrderHashes []common.Hash, resolutions []types.CriteriaResolution) ([4]byte, error) {
	priors := make([][32]byte, len(priorOrderHashes))
	for i, h := range priorOrderHashes {
		priors[i] = h
	}
	calldata, err := zoneABI.Pack("isValidOrderIncludingExtraData", orderHash, caller, order.ExtraData, priors)
	if err != nil {
		return [4]byte{}, fmt.Errorf("failed to encode zone check: %w", err)
	}
	ret, err := c.call(ctx, zone, calldata)
	if err != nil {
		return [4]byte{}, err
	}
	return unpackMagic(zoneABI, "isValidOrderIncludingExtraData", ret)
}

func unpackMagic(parsed interface {
	Unpack(name string, data []byte) ([]interface{}, error)
}, method string, ret []byte) ([4]byte, error) {
	values, err := parsed.Unpack(method, ret)
	if err != nil {
		return [4]byte{}, fmt.Errorf("failed to decode %s return: %w", method, err)
	}
	magic, ok := values[0].([4]byte)
	if !ok {
		return [4]byte{}, fmt.Errorf("unexpected %s return type", method)
	}
	return magic, nil
}

// ProxyRegistry resolves user proxies from an on-chain registry.
type ProxyRegistry struct {
	caller   *Caller
	registry common.Address
}

// NewProxyRegistry wraps a registry contract.
func NewProxyRegistry(caller *Caller, registry common.Address) *ProxyRegistry {
	return &ProxyRegistry{caller: caller, registry: registry}
}

// ExpectedImplementation reads the implementation every registered proxy
// is expected to run.
func (r *ProxyRegistry) ExpectedImplementation(ctx context.Context) (common.Address, error) {
	calldata, err := proxyRegistryABI.Pack("implementation")
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to encode implementation lookup: %w", err)
	}
	ret, err := r.caller.call(ctx, r.registry, calldata)
	if err != nil {
		return common.Address{}, err
	}
	return unpackAddress(proxyRegistryABI, "implementation", ret)
}

// ProxyFor resolves an owner's proxy contract.
func (r *ProxyRegistry) ProxyFor(ctx context.Context, owner common.Address) (settleport.Proxy, error) {
	calldata, err := proxyRegistryABI.Pack("proxies", owner)
	if err != nil {
		return nil, fmt.Errorf("failed to encode proxy lookup: %w", err)
	}
	ret, err := r.caller.call(ctx, r.registry, calldata)
	if err != nil {
		return nil, err
	}
	addr, err := unpackAddress(proxyRegistryABI, "proxies", ret)
	if err != nil {
		return nil, err
	}
	return &Proxy{caller: r.caller, address: addr}, nil
}

func unpackAddress(parsed interface {
	Unpack(name string, data []byte) ([]interface{}, error)
}, method string, ret []byte) (common.Address, error) {
	values, err := parsed.Unpack(method, ret)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to decode %s return: %w", method, err)
	}
	addr, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected %s return type", method)
	}
	return addr, nil
}

// Proxy is a transfer intermediary holding a user's approvals. Token calls
// are forwarded through the proxy's execute entry point so transfers draw
// on approvals granted to the proxy rather than to the engine's operator.
type Proxy struct {
	caller  *Caller
	address common.Address
}

// Address returns the proxy contract address.
func (p *Proxy) Address() common.Address { return p.address }

// Implementation reads the implementation the proxy is running.
func (p *Proxy) Implementation(ctx context.Context) (common.Address, error) {
	calldata, err := proxyABI.Pack("implementation")
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to encode implementation lookup: %w", err)
	}
	ret, err := p.caller.call(ctx, p.address, calldata)
	if err != nil {
		return common.Address{}, err
	}
	return unpackAddress(proxyABI, "implementation", ret)
}

func (p *Proxy) forward(ctx context.Context, target common.Address, calldata []byte) ([]byte, error) {
	wrapped, err := proxyABI.Pack("execute", target, calldata)
	if err != nil {
		return nil, fmt.Errorf("failed to encode proxy call: %w", err)
	}
	return p.caller.transact(ctx, p.address, wrapped, nil)
}

// TransferERC20 forwards a fungible transfer through the proxy.
func (p *Proxy) TransferERC20(ctx context.Context, token, from, to common.Address, amount *big.Int) ([]byte, error) {
	calldata, err := erc20ABI.Pack("transferFrom", from, to, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to encode ERC20 transfer: %w", err)
	}
	return p.forward(ctx, token, calldata)
}

// TransferERC721 forwards a unique-token transfer through the proxy.
func (p *Proxy) TransferERC721(ctx context.Context, token, from, to common.Address, identifier *big.Int) error {
	calldata, err := erc721ABI.Pack("transferFrom", from, to, identifier)
	if err != nil {
		return fmt.Errorf("failed to encode ERC721 transfer: %w", err)
	}
	_, err = p.forward(ctx, token, calldata)
	return err
}

// TransferERC1155 forwards a semi-fungible transfer through the proxy.
func (p *Proxy) TransferERC1155(ctx context.Context, token, from, to common.Address, identifier, amount *big.Int) error {
	calldata, err := erc1155ABI.Pack("safeTransferFrom", from, to, identifier, amount, []byte{})
	if err != nil {
		return fmt.Errorf("failed to encode ERC1155 transfer: %w", err)
	}
	_, err = p.forward(ctx, token, calldata)
	return err
}

// BatchTransferERC1155 forwards a batched semi-fungible transfer through
// the proxy.
func (p *Proxy) BatchTransferERC1155(ctx context.Context, token, from, to common.Address, identifiers, amounts []*big.Int) error {
	calldata, err := erc1155ABI.Pack("safeBatchTransferFrom", from, to, identifiers, amounts, []byte{})
	if err != nil {
		return fmt.Errorf("failed to encode ERC1155 batch transfer: %w", err)
	}
	_, err = p.forward(ctx, token, calldata)
	return err
}

// IsContract reports whether code is deployed at account.
func (p *Proxy) IsContract(ctx context.Context, account common.Address) (bool, error) {
	return p.caller.IsContract(ctx, account)
}
