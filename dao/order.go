package dao

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm/clause"

	"github.com/ghoul-sol/treasure-marketplace/model"
)

// OrderFilter narrows live-order queries. Zero values mean no constraint.
type OrderFilter struct {
	CollectionAddress string
	TokenID           string
	Maker             string
	Side              *int
	Kind              *int
	Page              int
	PageSize          int
}

const defaultPageSize = 20

// QueryOrders returns live orders matching the filter, newest first, with the
// total match count for pagination.
func (d *Dao) QueryOrders(ctx context.Context, filter OrderFilter) ([]model.Order, int64, error) {
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()

	tx := d.DB.WithContext(ctx).Model(&model.Order{}).
		Where("status = ?", model.OrderStatusActive)
	if filter.CollectionAddress != "" {
		tx = tx.Where("collection_address = ?", filter.CollectionAddress)
	}
	if filter.TokenID != "" {
		tx = tx.Where("token_id = ?", filter.TokenID)
	}
	if filter.Maker != "" {
		tx = tx.Where("maker = ?", filter.Maker)
	}
	if filter.Side != nil {
		tx = tx.Where("side = ?", *filter.Side)
	}
	if filter.Kind != nil {
		tx = tx.Where("kind = ?", *filter.Kind)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "failed on count orders")
	}

	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}

	var orders []model.Order
	if err := tx.Order("update_time desc").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&orders).Error; err != nil {
		return nil, 0, errors.Wrap(err, "failed on query orders")
	}
	return orders, total, nil
}

// UpsertOrder writes the current state of one offer. The triple
// (side, kind, collection, token, maker) identifies the slot; a new event for
// an existing slot overwrites price, quantity and expiry.
func (d *Dao) UpsertOrder(ctx context.Context, order *model.Order) error {
	var existing model.Order
	if order.OrderID == "" {
		order.OrderID = model.OrderID(order.Side, order.Kind,
			order.CollectionAddress, order.TokenID, order.Maker)
	}
	err := d.DB.WithContext(ctx).Model(&model.Order{}).
		Where("side = ? and kind = ? and collection_address = ? and token_id = ? and maker = ? and status = ?",
			order.Side, order.Kind, order.CollectionAddress, order.TokenID, order.Maker, model.OrderStatusActive).
		First(&existing).Error
	if err == nil {
		order.ID = existing.ID
		order.CreateTime = existing.CreateTime
		return errors.Wrap(d.DB.WithContext(ctx).Save(order).Error, "failed on update order")
	}
	return errors.Wrap(
		d.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(order).Error,
		"failed on create order")
}

// CloseOrder marks an active offer filled or canceled.
func (d *Dao) CloseOrder(ctx context.Context, side, kind int, collection, tokenID, maker string, status int) error {
	result := d.DB.WithContext(ctx).Model(&model.Order{}).
		Where("side = ? and kind = ? and collection_address = ? and token_id = ? and maker = ? and status = ?",
			side, kind, collection, tokenID, maker, model.OrderStatusActive).
		Updates(map[string]interface{}{"status": status, "quantity_remaining": 0})
	return errors.Wrap(result.Error, "failed on close order")
}

// ReduceOrderQuantity decrements the remaining quantity after a partial fill
// and closes the order when it reaches zero.
func (d *Dao) ReduceOrderQuantity(ctx context.Context, side, kind int, collection, tokenID, maker string, sold uint64) error {
	var order model.Order
	err := d.DB.WithContext(ctx).Model(&model.Order{}).
		Where("side = ? and kind = ? and collection_address = ? and token_id = ? and maker = ? and status = ?",
			side, kind, collection, tokenID, maker, model.OrderStatusActive).
		First(&order).Error
	if err != nil {
		return errors.Wrap(err, "failed on load order for fill")
	}
	if sold >= order.QuantityRemaining {
		order.QuantityRemaining = 0
		order.Status = model.OrderStatusFilled
	} else {
		order.QuantityRemaining -= sold
	}
	return errors.Wrap(d.DB.WithContext(ctx).Save(&order).Error, "failed on reduce order quantity")
}

// ExpireOrders flips every active order past its deadline to expired and
// reports how many rows changed.
func (d *Dao) ExpireOrders(ctx context.Context, now int64) (int64, error) {
	result := d.DB.WithContext(ctx).Model(&model.Order{}).
		Where("status = ? and expire_time <= ?", model.OrderStatusActive, now).
		Update("status", model.OrderStatusExpired)
	return result.RowsAffected, errors.Wrap(result.Error, "failed on expire orders")
}

// CountActiveListings counts live listing rows for one collection.
func (d *Dao) CountActiveListings(ctx context.Context, collection string) (int64, error) {
	var total int64
	err := d.DB.WithContext(ctx).Model(&model.Order{}).
		Where("status = ? and side = ? and kind = ? and collection_address = ?",
			model.OrderStatusActive, model.SideList, model.KindListing, collection).
		Count(&total).Error
	return total, errors.Wrap(err, "failed on count listings")
}
