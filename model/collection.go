package model

import (
	"github.com/shopspring/decimal"
)

// Collection keeps per-collection aggregates maintained by the indexer.
type Collection struct {
	ID           int64           `gorm:"column:id;primaryKey;autoIncrement"`
	Address      string          `gorm:"column:address;type:varchar(42);uniqueIndex"`
	FloorPrice   decimal.Decimal `gorm:"column:floor_price;type:decimal(40,0)"`
	SaleCount    int64           `gorm:"column:sale_count"`
	Volume       decimal.Decimal `gorm:"column:volume;type:decimal(40,0)"`
	ListingCount int64           `gorm:"column:listing_count"`
	CreateTime   int64           `gorm:"column:create_time;autoCreateTime"`
	UpdateTime   int64           `gorm:"column:update_time;autoUpdateTime"`
}

func (Collection) TableName() string {
	return "mp_collection"
}
