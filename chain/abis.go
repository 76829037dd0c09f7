// Package chain provides collaborator implementations backed by an
// Ethereum JSON-RPC endpoint: token transfers, contract signature checks,
// zone authorization calls and proxy registry lookups.
package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// ERC20 ABI JSON for transferFrom
const erc20ABIJSON = `[
	{
		"constant": false,
		"inputs": [
			{"name": "from", "type": "address"},
			{"name": "to", "type": "address"},
			{"name": "amount", "type": "uint256"}
		],
		"name": "transferFrom",
		"outputs": [{"name": "", "type": "bool"}],
		"type": "function"
	}
]`

// ERC721 ABI JSON for transferFrom
const erc721ABIJSON = `[
	{
		"constant": false,
		"inputs": [
			{"name": "from", "type": "address"},
			{"name": "to", "type": "address"},
			{"name": "tokenId", "type": "uint256"}
		],
		"name": "transferFrom",
		"outputs": [],
		"type": "function"
	}
]`

// ERC1155 ABI JSON for single and batched safe transfers
const erc1155ABIJSON = `[
	{
		"constant": false,
		"inputs": [
			{"name": "from", "type": "address"},
			{"name": "to", "type": "address"},
			{"name": "id", "type": "uint256"},
			{"name": "amount", "type": "uint256"},
			{"name": "data", "type": "bytes"}
		],
		"name": "safeTransferFrom",
		"outputs": [],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "from", "type": "address"},
			{"name": "to", "type": "address"},
			{"name": "ids", "type": "uint256[]"},
			{"name": "amounts", "type": "uint256[]"},
			{"name": "data", "type": "bytes"}
		],
		"name": "safeBatchTransferFrom",
		"outputs": [],
		"type": "function"
	}
]`

// EIP-1271 ABI JSON for contract-account signature validation
const eip1271ABIJSON = `[
	{
		"constant": true,
		"inputs": [
			{"name": "digest", "type": "bytes32"},
			{"name": "signature", "type": "bytes"}
		],
		"name": "isValidSignature",
		"outputs": [{"name": "", "type": "bytes4"}],
		"type": "function"
	}
]`

// Zone ABI JSON for restricted-order approval
const zoneABIJSON = `[
	{
		"constant": true,
		"inputs": [
			{"name": "orderHash", "type": "bytes32"},
			{"name": "caller", "type": "address"},
			{"name": "offerer", "type": "address"},
			{"name": "zoneHash", "type": "bytes32"}
		],
		"name": "isValidOrder",
		"outputs": [{"name": "", "type": "bytes4"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [
			{"name": "orderHash", "type": "bytes32"},
			{"name": "caller", "type": "address"},
			{"name": "extraData", "type": "bytes"},
			{"name": "priorOrderHashes", "type": "bytes32[]"}
		],
		"name": "isValidOrderIncludingExtraData",
		"outputs": [{"name": "", "type": "bytes4"}],
		"type": "function"
	}
]`

// Proxy registry ABI JSON for proxy resolution
const proxyRegistryABIJSON = `[
	{
		"constant": true,
		"inputs": [{"name": "owner", "type": "address"}],
		"name": "proxies",
		"outputs": [{"name": "", "type": "address"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [],
		"name": "implementation",
		"outputs": [{"name": "", "type": "address"}],
		"type": "function"
	}
]`

// Proxy ABI JSON: implementation introspection and call forwarding
const proxyABIJSON = `[
	{
		"constant": true,
		"inputs": [],
		"name": "implementation",
		"outputs": [{"name": "", "type": "address"}],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "target", "type": "address"},
			{"name": "callData", "type": "bytes"}
		],
		"name": "execute",
		"outputs": [{"name": "", "type": "bytes"}],
		"type": "function"
	}
]`

func mustParseABI(name, raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("failed to parse " + name + " ABI: " + err.Error())
	}
	return parsed
}

var (
	erc20ABI         = mustParseABI("ERC20", erc20ABIJSON)
	erc721ABI        = mustParseABI("ERC721", erc721ABIJSON)
	erc1155ABI       = mustParseABI("ERC1155", erc1155ABIJSON)
	eip1271ABI       = mustParseABI("EIP-1271", eip1271ABIJSON)
	zoneABI          = mustParseABI("zone", zoneABIJSON)
	proxyRegistryABI = mustParseABI("proxy registry", proxyRegistryABIJSON)
	proxyABI         = mustParseABI("proxy", proxyABIJSON)
)
