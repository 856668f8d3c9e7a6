package model

import (
	"github.com/shopspring/decimal"
)

// Activity type identifiers.
const (
	Listing = iota + 1
	ListingUpdate
	CancelListing
	Sale
	ItemBid
	CollectionBid
	CancelItemBid
	CancelCollectionBid
	BidSale
)

// Activity records one marketplace happening for the history feed.
type Activity struct {
	ID                int64           `gorm:"column:id;primaryKey;autoIncrement"`
	ActivityType      int             `gorm:"column:activity_type;index"`
	CollectionAddress string          `gorm:"column:collection_address;type:varchar(42);index:idx_activity_item"`
	TokenID           string          `gorm:"column:token_id;type:varchar(80);index:idx_activity_item"`
	Maker             string          `gorm:"column:maker;type:varchar(42);index"`
	Taker             string          `gorm:"column:taker;type:varchar(42);index"`
	Price             decimal.Decimal `gorm:"column:price;type:decimal(40,0)"`
	PaymentToken      string          `gorm:"column:payment_token;type:varchar(42)"`
	Quantity          uint64          `gorm:"column:quantity"`
	EventTime         int64           `gorm:"column:event_time;index"`
	CreateTime        int64           `gorm:"column:create_time;autoCreateTime"`
}

func (Activity) TableName() string {
	return "mp_activity"
}
