package settleport

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/rudolf0127/settleport/types"
)

// nativeTracker accounts for the native value supplied with a settlement
// call. Every native transfer draws the tracker down; it must never go
// negative, and whatever remains at the end is refunded to the caller.
type nativeTracker struct {
	remaining *big.Int
}

func newNativeTracker(value *big.Int) *nativeTracker {
	if value == nil {
		value = new(big.Int)
	}
	return &nativeTracker{remaining: new(big.Int).Set(value)}
}

func (t *nativeTracker) spend(amount *big.Int) error {
	if t.remaining.Cmp(amount) < 0 {
		return ErrInsufficientNativeValue
	}
	t.remaining.Sub(t.remaining, amount)
	return nil
}

// refund returns any unspent native value to the caller.
func (t *nativeTracker) refund(ctx context.Context, e *Engine, caller common.Address) error {
	if t.remaining.Sign() == 0 {
		return nil
	}
	amount := new(big.Int).Set(t.remaining)
	t.remaining.SetInt64(0)
	return e.sendNative(ctx, caller, amount)
}

func (e *Engine) sendNative(ctx context.Context, to common.Address, amount *big.Int) error {
	err := e.collab.Native.SendNative(ctx, to, amount)
	if err == nil {
		return nil
	}
	// Substitute the generic typed error only when the recipient supplied
	// no reason; otherwise the reason bubbles verbatim.
	if errors.Is(err, ErrNoRevertReason) {
		return &NativeTransferError{To: to, Amount: amount}
	}
	return err
}

// transfererFor selects the direct token backend or the from-account's
// proxy, verifying the proxy runs the registry's expected implementation.
func (e *Engine) transfererFor(ctx context.Context, from common.Address, useProxy bool) (TokenTransferer, error) {
	if !useProxy {
		return e.collab.Tokens, nil
	}
	if e.collab.Proxies == nil {
		return nil, ErrInvalidProxyImplementation
	}
	proxy, err := e.collab.Proxies.ProxyFor(ctx, from)
	if err != nil {
		return nil, err
	}
	implementation, err := proxy.Implementation(ctx)
	if err != nil {
		return nil, err
	}
	expected, err := e.collab.Proxies.ExpectedImplementation(ctx)
	if err != nil {
		return nil, err
	}
	if implementation != expected {
		return nil, ErrInvalidProxyImplementation
	}
	return proxy, nil
}

// transferItem dispatches one concrete asset movement. Native items draw on
// the tracker and are sent directly; token items go through the direct
// backend or the from-account's proxy.
func (e *Engine) transferItem(ctx context.Context, item *types.ReceivedItem, from common.Address, useProxy bool, tracker *nativeTracker) error {
	if item.Amount.Sign() == 0 {
		return nil
	}

	if item.ItemType == types.ItemTypeNative {
		if err := tracker.spend(item.Amount); err != nil {
			return err
		}
		return e.sendNative(ctx, item.Recipient, item.Amount)
	}

	transferer, err := e.transfererFor(ctx, from, useProxy)
	if err != nil {
		return err
	}

	switch item.ItemType {
	case types.ItemTypeERC20:
		ret, err := transferer.TransferERC20(ctx, item.Token, from, item.Recipient, item.Amount)
		if err != nil {
			return err
		}
		return e.checkERC20Return(ctx, ret, item.Token, from, item.Recipient, item.Amount)
	case types.ItemTypeERC721:
		if err := e.assertContractDeployed(ctx, item.Token); err != nil {
			return err
		}
		return transferer.TransferERC721(ctx, item.Token, from, item.Recipient, item.Identifier)
	case types.ItemTypeERC1155:
		if err := e.assertContractDeployed(ctx, item.Token); err != nil {
			return err
		}
		return transferer.TransferERC1155(ctx, item.Token, from, item.Recipient, item.Identifier, item.Amount)
	default:
		return ErrUnresolvedCriteria
	}
}

// checkERC20Return applies the boolean-when-present rule: empty return data
// is accepted as long as the token has deployed code, and present return
// data must decode to true.
func (e *Engine) checkERC20Return(ctx context.Context, ret []byte, token, from, to common.Address, amount *big.Int) error {
	if len(ret) == 0 {
		return e.assertContractDeployed(ctx, token)
	}

	values, err := abi.Arguments{{Type: abiBool}}.Unpack(ret)
	if err != nil {
		return &BadReturnValueError{Token: token, From: from, To: to, Amount: amount}
	}
	if ok, _ := values[0].(bool); !ok {
		return &BadReturnValueError{Token: token, From: from, To: to, Amount: amount}
	}
	return nil
}

func (e *Engine) assertContractDeployed(ctx context.Context, token common.Address) error {
	deployed, err := e.collab.Tokens.IsContract(ctx, token)
	if err != nil {
		return err
	}
	if !deployed {
		return ErrNoContract
	}
	return nil
}

// batchKey groups semi-fungible transfers that may be coalesced.
type batchKey struct {
	token    common.Address
	from     common.Address
	to       common.Address
	useProxy bool
}

// compressExecutions splits a flat execution list into standard (one-off)
// executions and batched semi-fungible executions. All ERC1155 transfers
// sharing (token, from, to, proxy choice) coalesce into one batch whose
// identifier/amount arrays preserve the original order; batches take the
// list position of their first member.
func compressExecutions(executions []types.Execution) ([]types.Execution, []types.BatchExecution) {
	counts := make(map[batchKey]int)
	for i := range executions {
		if executions[i].Item.ItemType != types.ItemTypeERC1155 {
			continue
		}
		counts[keyFor(&executions[i])]++
	}

	var standard []types.Execution
	var batches []types.BatchExecution
	open := make(map[batchKey]int) // key -> index into batches

	for i := range executions {
		execution := &executions[i]
		if execution.Item.ItemType != types.ItemTypeERC1155 || counts[keyFor(execution)] < 2 {
			standard = append(standard, *execution)
			continue
		}

		key := keyFor(execution)
		idx, ok := open[key]
		if !ok {
			idx = len(batches)
			open[key] = idx
			batches = append(batches, types.BatchExecution{
				Token:    key.token,
				From:     key.from,
				To:       key.to,
				UseProxy: key.useProxy,
			})
		}
		batches[idx].TokenIDs = append(batches[idx].TokenIDs, execution.Item.Identifier)
		batches[idx].Amounts = append(batches[idx].Amounts, execution.Item.Amount)
	}

	return standard, batches
}

func keyFor(execution *types.Execution) batchKey {
	return batchKey{
		token:    execution.Item.Token,
		from:     execution.Offerer,
		to:       execution.Item.Recipient,
		useProxy: execution.UseProxy,
	}
}

// performExecutions dispatches an already-compressed execution list,
// drawing native items from the tracker.
func (e *Engine) performExecutions(ctx context.Context, standard []types.Execution, batches []types.BatchExecution, tracker *nativeTracker) error {
	for i := range standard {
		execution := &standard[i]
		if err := e.transferItem(ctx, &execution.Item, execution.Offerer, execution.UseProxy, tracker); err != nil {
			return err
		}
	}

	for i := range batches {
		batch := &batches[i]
		transferer, err := e.transfererFor(ctx, batch.From, batch.UseProxy)
		if err != nil {
			return err
		}
		if err := e.assertContractDeployed(ctx, batch.Token); err != nil {
			return err
		}
		if err := transferer.BatchTransferERC1155(ctx, batch.Token, batch.From, batch.To, batch.TokenIDs, batch.Amounts); err != nil {
			return err
		}
	}

	return nil
}
