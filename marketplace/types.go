package marketplace

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// BasisPoints is the denominator of every fee rate.
	BasisPoints = 10000

	// MaxProtocolFeeBps caps SetFee.
	MaxProtocolFeeBps = 1500

	// MaxCollectionFeeBps caps the per-collection owner fee.
	MaxCollectionFeeBps = 2000
)

// MinPrice is the smallest accepted pricePerItem, in base units of the
// payment token.
var MinPrice = big.NewInt(1_000_000_000)

// maxUint128 bounds pricePerItem.
var maxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// ZeroAddress doubles as the legacy payment-token sentinel meaning "use the
// collection's currently configured token". It is resolved lazily at use
// time and never normalized into stored records.
var ZeroAddress = common.Address{}

// TokenApprovalStatus tells the engine which registry capability a collection
// settles through.
type TokenApprovalStatus uint8

const (
	TokenNotApproved TokenApprovalStatus = iota
	TokenApprovedERC721
	TokenApprovedERC1155
)

func (s TokenApprovalStatus) String() string {
	switch s {
	case TokenApprovedERC721:
		return "erc721"
	case TokenApprovedERC1155:
		return "erc1155"
	default:
		return "not_approved"
	}
}

// Offer is the shape shared by listings and bids. Quantity zero means the
// record is absent; cancellation zeroes rather than deletes.
type Offer struct {
	Quantity       uint64
	PricePerItem   *big.Int
	ExpirationTime uint64
	PaymentToken   common.Address
}

// Exists reports whether the offer is live.
func (o Offer) Exists() bool {
	return o.Quantity > 0
}

// clone returns a deep copy safe to hand to callers.
func (o Offer) clone() Offer {
	c := o
	if o.PricePerItem != nil {
		c.PricePerItem = new(big.Int).Set(o.PricePerItem)
	}
	return c
}

// Store keys. Token ids are carried as canonical decimal strings so the
// tuples stay comparable.

type ListingKey struct {
	Collection common.Address
	TokenID    string
	Owner      common.Address
}

type TokenBidKey struct {
	Collection common.Address
	TokenID    string
	Bidder     common.Address
}

type CollectionBidKey struct {
	Collection common.Address
	Bidder     common.Address
}

// CollectionOwnerFee is the per-collection fee override. A zero recipient
// means no collection fee is configured.
type CollectionOwnerFee struct {
	Recipient common.Address
	FeeBps    uint64
}

// Role gates the administrative surface.
type Role uint8

const (
	RoleNone Role = iota
	RoleAdmin
	RoleOwner
)

// ListingParams carries a create-or-update request for a listing.
type ListingParams struct {
	Collection     common.Address
	TokenID        *big.Int
	Quantity       uint64
	PricePerItem   *big.Int
	ExpirationTime uint64
	PaymentToken   common.Address
}

// BidParams carries a create-or-update request for a token or collection
// bid. TokenID is ignored for collection bids.
type BidParams struct {
	Collection     common.Address
	TokenID        *big.Int
	Quantity       uint64
	PricePerItem   *big.Int
	ExpirationTime uint64
	PaymentToken   common.Address
}

// BidCancelKind tags entries of a batched bid cancellation.
type BidCancelKind uint8

const (
	CancelTokenBid BidCancelKind = iota
	CancelCollectionBid
)

// CancelBidParams is one entry of a batched CancelBids call.
type CancelBidParams struct {
	Kind       BidCancelKind
	Collection common.Address
	TokenID    *big.Int
}

// BuyItemParams is one entry of a batched BuyItems call. MaxPricePerItem is
// the buyer's price ceiling; UsingNative pays the leg with attached native
// value instead of a ledger pull.
type BuyItemParams struct {
	Collection      common.Address
	TokenID         *big.Int
	Owner           common.Address
	Quantity        uint64
	MaxPricePerItem *big.Int
	PaymentToken    common.Address
	UsingNative     bool
}

// AcceptBidParams identifies the bid being accepted. PricePerItem must equal
// the stored bid price exactly; the bidder fixed the price.
type AcceptBidParams struct {
	Collection   common.Address
	TokenID      *big.Int
	Bidder       common.Address
	Quantity     uint64
	PricePerItem *big.Int
	PaymentToken common.Address
}

func tokenIDString(id *big.Int) string {
	if id == nil {
		return "0"
	}
	return id.String()
}
