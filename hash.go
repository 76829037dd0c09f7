package settleport

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/rudolf0127/settleport/types"
)

// Pre-computed type hashes using keccak256
var (
	// EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)
	eip712DomainTypeHash = crypto.Keccak256Hash([]byte(
		"EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)",
	))

	// OfferItem(uint8 itemType,address token,uint256 identifierOrCriteria,uint256 startAmount,uint256 endAmount)
	offerItemTypeHash = crypto.Keccak256Hash([]byte(
		"OfferItem(uint8 itemType,address token,uint256 identifierOrCriteria,uint256 startAmount,uint256 endAmount)",
	))

	// ConsiderationItem(uint8 itemType,address token,uint256 identifierOrCriteria,uint256 startAmount,uint256 endAmount,address recipient)
	considerationItemTypeHash = crypto.Keccak256Hash([]byte(
		"ConsiderationItem(uint8 itemType,address token,uint256 identifierOrCriteria,uint256 startAmount,uint256 endAmount,address recipient)",
	))

	// OrderComponents(address offerer,address zone,bytes32 offerHash,bytes32 considerationHash,uint8 orderType,uint256 startTime,uint256 endTime,uint256 salt,uint256 nonce)
	orderComponentsTypeHash = crypto.Keccak256Hash([]byte(
		"OrderComponents(address offerer,address zone,bytes32 offerHash,bytes32 considerationHash,uint8 orderType,uint256 startTime,uint256 endTime,uint256 salt,uint256 nonce)",
	))
)

var (
	abiBytes32, _ = abi.NewType("bytes32", "", nil)
	abiUint256, _ = abi.NewType("uint256", "", nil)
	abiUint8, _   = abi.NewType("uint8", "", nil)
	abiAddress, _ = abi.NewType("address", "", nil)
	abiBool, _    = abi.NewType("bool", "", nil)
)

func hashOfferItem(item *types.OfferItem) common.Hash {
	arguments := abi.Arguments{
		{Type: abiBytes32}, // typeHash
		{Type: abiUint8},   // itemType
		{Type: abiAddress}, // token
		{Type: abiUint256}, // identifierOrCriteria
		{Type: abiUint256}, // startAmount
		{Type: abiUint256}, // endAmount
	}

	encoded, err := arguments.Pack(
		offerItemTypeHash,
		uint8(item.ItemType),
		item.Token,
		item.IdentifierOrCriteria,
		item.StartAmount,
		item.EndAmount,
	)
	if err != nil {
		panic("failed to encode offer item: " + err.Error())
	}

	return crypto.Keccak256Hash(encoded)
}

func hashConsiderationItem(item *types.ConsiderationItem) common.Hash {
	arguments := abi.Arguments{
		{Type: abiBytes32}, // typeHash
		{Type: abiUint8},   // itemType
		{Type: abiAddress}, // token
		{Type: abiUint256}, // identifierOrCriteria
		{Type: abiUint256}, // startAmount
		{Type: abiUint256}, // endAmount
		{Type: abiAddress}, // recipient
	}

	encoded, err := arguments.Pack(
		considerationItemTypeHash,
		uint8(item.ItemType),
		item.Token,
		item.IdentifierOrCriteria,
		item.StartAmount,
		item.EndAmount,
		item.Recipient,
	)
	if err != nil {
		panic("failed to encode consideration item: " + err.Error())
	}

	return crypto.Keccak256Hash(encoded)
}

// hashOfferItems hashes each offer item and hashes the concatenation.
func hashOfferItems(items []types.OfferItem) common.Hash {
	concat := make([]byte, 0, len(items)*common.HashLength)
	for i := range items {
		h := hashOfferItem(&items[i])
		concat = append(concat, h.Bytes()...)
	}
	return crypto.Keccak256Hash(concat)
}

// hashConsiderationItems hashes the first count consideration items (the
// items present at signing) and hashes the concatenation.
func hashConsiderationItems(items []types.ConsiderationItem, count int) common.Hash {
	concat := make([]byte, 0, count*common.HashLength)
	for i := 0; i < count; i++ {
		h := hashConsiderationItem(&items[i])
		concat = append(concat, h.Bytes()...)
	}
	return crypto.Keccak256Hash(concat)
}

// HashOrderComponents derives the order hash from an order's terms and the
// offerer nonce they were signed against. Only the original consideration
// items participate; the supplied array must not be shorter than the
// recorded original count.
func HashOrderComponents(components *types.OrderComponents) (common.Hash, error) {
	params := &components.Parameters

	if params.StartTime == nil || params.EndTime == nil ||
		params.Salt == nil || components.Nonce == nil {
		return common.Hash{}, ErrIncompleteOrder
	}
	for i := range params.Offer {
		item := &params.Offer[i]
		if item.IdentifierOrCriteria == nil || item.StartAmount == nil || item.EndAmount == nil {
			return common.Hash{}, ErrIncompleteOrder
		}
	}
	for i := range params.Consideration {
		item := &params.Consideration[i]
		if item.IdentifierOrCriteria == nil || item.StartAmount == nil || item.EndAmount == nil {
			return common.Hash{}, ErrIncompleteOrder
		}
	}

	originalCount := params.TotalOriginalConsiderationItems
	if originalCount == 0 {
		originalCount = len(params.Consideration)
	}
	if len(params.Consideration) < originalCount {
		return common.Hash{}, ErrMissingOriginalConsiderationItems
	}

	offerHash := hashOfferItems(params.Offer)
	considerationHash := hashConsiderationItems(params.Consideration, originalCount)

	arguments := abi.Arguments{
		{Type: abiBytes32}, // typeHash
		{Type: abiAddress}, // offerer
		{Type: abiAddress}, // zone
		{Type: abiBytes32}, // offerHash
		{Type: abiBytes32}, // considerationHash
		{Type: abiUint8},   // orderType
		{Type: abiUint256}, // startTime
		{Type: abiUint256}, // endTime
		{Type: abiUint256}, // salt
		{Type: abiUint256}, // nonce
	}

	encoded, err := arguments.Pack(
		orderComponentsTypeHash,
		params.Offerer,
		params.Zone,
		offerHash,
		considerationHash,
		uint8(params.OrderType),
		params.StartTime,
		params.EndTime,
		params.Salt,
		components.Nonce,
	)
	if err != nil {
		panic("failed to encode order components: " + err.Error())
	}

	return crypto.Keccak256Hash(encoded), nil
}

func hashDomainSeparator(chainID *big.Int, verifyingContract common.Address) common.Hash {
	nameHash := crypto.Keccak256Hash([]byte(EIP712DomainName))
	versionHash := crypto.Keccak256Hash([]byte(EIP712DomainVersion))

	arguments := abi.Arguments{
		{Type: abiBytes32}, // typeHash
		{Type: abiBytes32}, // nameHash
		{Type: abiBytes32}, // versionHash
		{Type: abiUint256}, // chainId
		{Type: abiAddress}, // verifyingContract
	}

	encoded, err := arguments.Pack(
		eip712DomainTypeHash,
		nameHash,
		versionHash,
		chainID,
		verifyingContract,
	)
	if err != nil {
		panic("failed to encode domain separator: " + err.Error())
	}

	return crypto.Keccak256Hash(encoded)
}

// domainSeparator returns the cached domain separator, re-deriving it when
// the live chain ID disagrees with the cached one (e.g. after a network
// split).
func (e *Engine) domainSeparator(ctx context.Context) (common.Hash, error) {
	if e.chainIDSource != nil {
		live, err := e.chainIDSource.ChainID(ctx)
		if err != nil {
			return common.Hash{}, err
		}
		if live.Cmp(e.cachedChainID) != 0 {
			e.cachedChainID = new(big.Int).Set(live)
			e.cachedDomainSep = hashDomainSeparator(live, e.verifyingContract)
		}
	}
	return e.cachedDomainSep, nil
}

// digest computes the signing digest for an order hash:
// keccak256("\x19\x01" || domainSeparator || orderHash).
func (e *Engine) digest(ctx context.Context, orderHash common.Hash) (common.Hash, error) {
	separator, err := e.domainSeparator(ctx)
	if err != nil {
		return common.Hash{}, err
	}

	data := make([]byte, 0, 2+common.HashLength*2)
	data = append(data, 0x19, 0x01)
	data = append(data, separator.Bytes()...)
	data = append(data, orderHash.Bytes()...)

	return crypto.Keccak256Hash(data), nil
}
