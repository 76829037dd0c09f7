package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// receiptPollInterval is how often a sent transaction is polled for its
// receipt.
const receiptPollInterval = 2 * time.Second

// Caller executes the engine's asset movements as real transactions from
// an operator account. Every transfer is simulated first so counterparty
// revert reasons surface verbatim, then mined and checked for success.
type Caller struct {
	client  *ethclient.Client
	key     *ecdsa.PrivateKey
	chainID *big.Int
}

// NewCaller connects to an RPC endpoint and prepares the operator account.
func NewCaller(rpcURL string, privateKeyHex string) (*Caller, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC: %w", err)
	}

	key, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	chainID, err := client.ChainID(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}

	return &Caller{client: client, key: key, chainID: chainID}, nil
}

// OperatorAddress returns the address transactions are sent from.
func (c *Caller) OperatorAddress() common.Address {
	return crypto.PubkeyToAddress(c.key.PublicKey)
}

// ChainID reports the connected network's chain ID, satisfying the
// engine's ChainIDSource collaborator.
func (c *Caller) ChainID(ctx context.Context) (*big.Int, error) {
	return c.client.ChainID(ctx)
}

// call simulates calldata against a contract and returns its return data.
// A revert reason from the callee comes back inside err untouched.
func (c *Caller) call(ctx context.Context, to common.Address, calldata []byte) ([]byte, error) {
	msg := ethereum.CallMsg{From: c.OperatorAddress(), To: &to, Data: calldata}
	return c.client.CallContract(ctx, msg, nil)
}

// transact simulates, signs, sends and mines a transaction. The simulation
// result is returned so callers can inspect return data.
func (c *Caller) transact(ctx context.Context, to common.Address, calldata []byte, value *big.Int) ([]byte, error) {
	ret, err := c.call(ctx, to, calldata)
	if err != nil {
		return nil, err
	}

	from := c.OperatorAddress()
	nonce, err := c.client.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}
	gasPrice, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}
	gas, err := c.client.EstimateGas(ctx, ethereum.CallMsg{
		From: from, To: &to, Value: value, Data: calldata,
	})
	if err != nil {
		return nil, err
	}

	tx := types.NewTransaction(nonce, to, value, gas, gasPrice, calldata)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	if err := c.client.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}
	if err := c.waitMined(ctx, signed.Hash()); err != nil {
		return nil, err
	}
	return ret, nil
}

func (c *Caller) waitMined(ctx context.Context, txHash common.Hash) error {
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.client.TransactionReceipt(ctx, txHash)
		if err == nil {
			if receipt.Status != types.ReceiptStatusSuccessful {
				return fmt.Errorf("transaction %s reverted", txHash.Hex())
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// SendNative transfers native currency from the operator account.
func (c *Caller) SendNative(ctx context.Context, to common.Address, amount *big.Int) error {
	_, err := c.transact(ctx, to, nil, amount)
	return err
}

// TransferERC20 moves fungible tokens and returns the raw return data so
// the engine can apply its boolean-when-present rule.
func (c *Caller) TransferERC20(ctx context.Context, token, from, to common.Address, amount *big.Int) ([]byte, error) {
	calldata, err := erc20ABI.Pack("transferFrom", from, to, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to encode ERC20 transfer: %w", err)
	}
	return c.transact(ctx, token, calldata, nil)
}

// TransferERC721 moves a unique token.
func (c *Caller) TransferERC721(ctx context.Context, token, from, to common.Address, identifier *big.Int) error {
	calldata, err := erc721ABI.Pack("transferFrom", from, to, identifier)
	if err != nil {
		return fmt.Errorf("failed to encode ERC721 transfer: %w", err)
	}
	_, err = c.transact(ctx, token, calldata, nil)
	return err
}

// TransferERC1155 moves an amount of one semi-fungible token id.
func (c *Caller) TransferERC1155(ctx context.Context, token, from, to common.Address, identifier, amount *big.Int) error {
	calldata, err := erc1155ABI.Pack("safeTransferFrom", from, to, identifier, amount, []byte{})
	if err != nil {
		return fmt.Errorf("failed to encode ERC1155 transfer: %w", err)
	}
	_, err = c.transact(ctx, token, calldata, nil)
	return err
}

// BatchTransferERC1155 moves several semi-fungible token ids between one
// counterparty pair in a single call.
func (c *Caller) BatchTransferERC1155(ctx context.Context, token, from, to common.Address, identifiers, amounts []*big.Int) error {
	calldata, err := erc1155ABI.Pack("safeBatchTransferFrom", from, to, identifiers, amounts, []byte{})
	if err != nil {
		return fmt.Errorf("failed to encode ERC1155 batch transfer: %w", err)
	}
	_, err = c.transact(ctx, token, calldata, nil)
	return err
}

// IsContract reports whether code is deployed at account.
func (c *Caller) IsContract(ctx context.Context, account common.Address) (bool, error) {
	code, err := c.client.CodeAt(ctx, account, nil)
	if err != nil {
		return false, fmt.Errorf("failed to read code: %w", err)
	}
	return len(code) > 0, nil
}
