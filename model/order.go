package model

import (
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
)

// Order side and kind identifiers stored in the projection tables.
const (
	SideList = iota
	SideBid
)

const (
	KindListing = iota
	KindTokenBid
	KindCollectionBid
)

// Order status values.
const (
	OrderStatusActive = iota
	OrderStatusFilled
	OrderStatusCanceled
	OrderStatusExpired
)

// OrderID derives a stable hash identifier for an offer slot.
func OrderID(side, kind int, collection, tokenID, maker string) string {
	return crypto.Keccak256Hash(
		[]byte(fmt.Sprintf("%d:%d:%s:%s:%s", side, kind, collection, tokenID, maker)),
	).Hex()
}

// Order mirrors one live or historical offer.
type Order struct {
	ID                int64           `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID           string          `gorm:"column:order_id;type:varchar(66);index"`
	Side              int             `gorm:"column:side;index:idx_side_kind"`
	Kind              int             `gorm:"column:kind;index:idx_side_kind"`
	CollectionAddress string          `gorm:"column:collection_address;type:varchar(42);index:idx_collection_token"`
	TokenID           string          `gorm:"column:token_id;type:varchar(80);index:idx_collection_token"`
	Maker             string          `gorm:"column:maker;type:varchar(42);index"`
	Price             decimal.Decimal `gorm:"column:price;type:decimal(40,0)"`
	PaymentToken      string          `gorm:"column:payment_token;type:varchar(42)"`
	QuantityTotal     uint64          `gorm:"column:quantity_total"`
	QuantityRemaining uint64          `gorm:"column:quantity_remaining"`
	ExpireTime        int64           `gorm:"column:expire_time"`
	Status            int             `gorm:"column:status;index"`
	CreateTime        int64           `gorm:"column:create_time;autoCreateTime"`
	UpdateTime        int64           `gorm:"column:update_time;autoUpdateTime"`
}

func (Order) TableName() string {
	return "mp_order"
}
