package marketplace

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// EventKind enumerates the signals emitted by committed engine calls.
type EventKind uint8

const (
	EventItemListed EventKind = iota + 1
	EventItemUpdated
	EventItemCanceled
	EventItemSold
	EventTokenBidCreated
	EventCollectionBidCreated
	EventTokenBidCanceled
	EventCollectionBidCanceled
	EventBidAccepted
)

func (k EventKind) String() string {
	switch k {
	case EventItemListed:
		return "item_listed"
	case EventItemUpdated:
		return "item_updated"
	case EventItemCanceled:
		return "item_canceled"
	case EventItemSold:
		return "item_sold"
	case EventTokenBidCreated:
		return "token_bid_created"
	case EventCollectionBidCreated:
		return "collection_bid_created"
	case EventTokenBidCanceled:
		return "token_bid_canceled"
	case EventCollectionBidCanceled:
		return "collection_bid_canceled"
	case EventBidAccepted:
		return "bid_accepted"
	default:
		return "unknown"
	}
}

// Event is a committed state change. Sale events carry the pre-depletion
// price and the matched quantity.
type Event struct {
	Kind         EventKind
	Collection   common.Address
	TokenID      string
	Maker        common.Address // listing owner or bidder
	Taker        common.Address // counter-party on sales, zero otherwise
	Quantity     uint64
	PricePerItem *big.Int
	PaymentToken common.Address
	ExpireTime   uint64
	EventTime    int64
	BidType      BidCancelKind // meaningful on bid acceptance only
}

// EventSink receives events after the enclosing call has committed. A nil
// sink is valid and drops everything.
type EventSink interface {
	Publish(Event)
}

// ChannelSink adapts a buffered channel to an EventSink.
type ChannelSink chan Event

func (c ChannelSink) Publish(e Event) {
	c <- e
}
