// Package types defines the request and response bodies of the v1 API.
package types

import (
	"github.com/shopspring/decimal"
)

// ListingItem is one entry of a create-or-update-listings request.
type ListingItem struct {
	Collection     string `json:"collection"`
	TokenID        string `json:"token_id"`
	Quantity       uint64 `json:"quantity"`
	PricePerItem   string `json:"price_per_item"`
	ExpirationTime uint64 `json:"expiration_time"`
	PaymentToken   string `json:"payment_token"`
}

type CreateListingsReq struct {
	Caller   string        `json:"caller"`
	Listings []ListingItem `json:"listings"`
}

type CancelListingReq struct {
	Caller     string `json:"caller"`
	Collection string `json:"collection"`
	TokenID    string `json:"token_id"`
}

type CreateBidReq struct {
	Caller         string `json:"caller"`
	Collection     string `json:"collection"`
	TokenID        string `json:"token_id,omitempty"` // empty for collection bids
	Quantity       uint64 `json:"quantity"`
	PricePerItem   string `json:"price_per_item"`
	ExpirationTime uint64 `json:"expiration_time"`
	PaymentToken   string `json:"payment_token"`
}

// CancelBidItem is one entry of a batched bid cancellation.
type CancelBidItem struct {
	BidType    string `json:"bid_type"` // "token" or "collection"
	Collection string `json:"collection"`
	TokenID    string `json:"token_id,omitempty"`
}

type CancelBidsReq struct {
	Caller string          `json:"caller"`
	Bids   []CancelBidItem `json:"bids"`
}

// BuyItem is one entry of a batched purchase.
type BuyItem struct {
	Collection      string `json:"collection"`
	TokenID         string `json:"token_id"`
	Owner           string `json:"owner"`
	Quantity        uint64 `json:"quantity"`
	MaxPricePerItem string `json:"max_price_per_item"`
	PaymentToken    string `json:"payment_token"`
	UsingNative     bool   `json:"using_native"`
}

type BuyItemsReq struct {
	Caller string    `json:"caller"`
	Items  []BuyItem `json:"items"`
	Value  string    `json:"value"` // attached native amount
}

type AcceptBidReq struct {
	Caller       string `json:"caller"`
	Collection   string `json:"collection"`
	TokenID      string `json:"token_id"`
	Bidder       string `json:"bidder"`
	Quantity     uint64 `json:"quantity"`
	PricePerItem string `json:"price_per_item"`
	PaymentToken string `json:"payment_token"`
}

// OfferResp is the JSON view of a stored offer.
type OfferResp struct {
	Quantity       uint64 `json:"quantity"`
	PricePerItem   string `json:"price_per_item"`
	ExpirationTime uint64 `json:"expiration_time"`
	PaymentToken   string `json:"payment_token"`
}

// OrderResp is the JSON view of a projected order row.
type OrderResp struct {
	Side              int             `json:"side"`
	Kind              int             `json:"kind"`
	CollectionAddress string          `json:"collection_address"`
	TokenID           string          `json:"token_id"`
	Maker             string          `json:"maker"`
	Price             decimal.Decimal `json:"price"`
	PaymentToken      string          `json:"payment_token"`
	QuantityRemaining uint64          `json:"quantity_remaining"`
	ExpireTime        int64           `json:"expire_time"`
	Status            int             `json:"status"`
}

// ActivityResp is the JSON view of a history feed row.
type ActivityResp struct {
	ActivityType      int             `json:"activity_type"`
	CollectionAddress string          `json:"collection_address"`
	TokenID           string          `json:"token_id"`
	Maker             string          `json:"maker"`
	Taker             string          `json:"taker"`
	Price             decimal.Decimal `json:"price"`
	PaymentToken      string          `json:"payment_token"`
	Quantity          uint64          `json:"quantity"`
	EventTime         int64           `json:"event_time"`
}

// CollectionResp is the JSON view of per-collection aggregates plus the
// collection's current exchange configuration.
type CollectionResp struct {
	Address        string          `json:"address"`
	FloorPrice     decimal.Decimal `json:"floor_price"`
	SaleCount      int64           `json:"sale_count"`
	Volume         decimal.Decimal `json:"volume"`
	ListingCount   int64           `json:"listing_count"`
	PaymentToken   string          `json:"payment_token"`
	ApprovalStatus string          `json:"approval_status"`
	LastSalePrice  decimal.Decimal `json:"last_sale_price"`
	MeanSalePrice  decimal.Decimal `json:"mean_sale_price"`
}

// PagedResp wraps list responses with pagination info.
type PagedResp struct {
	Result interface{} `json:"result"`
	Total  int64       `json:"total"`
	Page   int         `json:"page"`
}
