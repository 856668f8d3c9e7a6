package dao

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ghoul-sol/treasure-marketplace/model"
)

// GetCollection returns the aggregate row for one collection.
func (d *Dao) GetCollection(ctx context.Context, address string) (*model.Collection, error) {
	var collection model.Collection
	if err := d.DB.WithContext(ctx).Model(&model.Collection{}).
		Where("address = ?", address).
		First(&collection).Error; err != nil {
		return nil, errors.Wrap(err, "failed on query collection")
	}
	return &collection, nil
}

// EnsureCollection creates the aggregate row if it does not exist yet.
func (d *Dao) EnsureCollection(ctx context.Context, address string) error {
	return errors.Wrap(
		d.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
			Create(&model.Collection{Address: address}).Error,
		"failed on ensure collection")
}

// RecordSale folds one sale into the collection aggregates.
func (d *Dao) RecordSale(ctx context.Context, address string, price decimal.Decimal) error {
	if err := d.EnsureCollection(ctx, address); err != nil {
		return err
	}
	result := d.DB.WithContext(ctx).Model(&model.Collection{}).
		Where("address = ?", address).
		Updates(map[string]interface{}{
			"sale_count": gorm.Expr("sale_count + 1"),
			"volume":     gorm.Expr("volume + ?", price),
		})
	return errors.Wrap(result.Error, "failed on record collection sale")
}

const cacheFloorPricePrefix = "cache:mp:collection:floor:"

// cache TTL in seconds, sized to a couple of floor maintenance ticks
const floorPriceCacheExpire = 120

// UpdateFloorPrice stores the recomputed floor for one collection and
// refreshes the redis copy read by the hot path.
func (d *Dao) UpdateFloorPrice(ctx context.Context, address string, floor decimal.Decimal) error {
	if err := d.EnsureCollection(ctx, address); err != nil {
		return err
	}
	result := d.DB.WithContext(ctx).Model(&model.Collection{}).
		Where("address = ?", address).
		Update("floor_price", floor)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed on update floor price")
	}
	if d.KvStore != nil {
		_ = d.KvStore.Setex(cacheFloorPricePrefix+address, floor.String(), floorPriceCacheExpire)
	}
	return nil
}

// GetCachedFloorPrice serves the floor from redis, falling back to the
// aggregate row on a miss.
func (d *Dao) GetCachedFloorPrice(ctx context.Context, address string) (decimal.Decimal, error) {
	if d.KvStore != nil {
		if cached, err := d.KvStore.Get(cacheFloorPricePrefix + address); err == nil && cached != "" {
			if floor, err := decimal.NewFromString(cached); err == nil {
				return floor, nil
			}
		}
	}
	collection, err := d.GetCollection(ctx, address)
	if err != nil {
		return decimal.Zero, err
	}
	return collection.FloorPrice, nil
}

// SetListingCount stores the live listing count for one collection.
func (d *Dao) SetListingCount(ctx context.Context, address string, count int64) error {
	if err := d.EnsureCollection(ctx, address); err != nil {
		return err
	}
	result := d.DB.WithContext(ctx).Model(&model.Collection{}).
		Where("address = ?", address).
		Update("listing_count", count)
	return errors.Wrap(result.Error, "failed on update listing count")
}
