package dao

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ghoul-sol/treasure-marketplace/model"
)

const indexedStatusRowID = 1

// UpdateIndexedStatus advances the projection watermark.
func (d *Dao) UpdateIndexedStatus(ctx context.Context, eventTime int64) error {
	return errors.Wrap(
		d.DB.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).
			Create(&model.IndexedStatus{ID: indexedStatusRowID, LastEventTime: eventTime}).Error,
		"failed on update indexed status")
}

// GetIndexedStatus returns the projection watermark, zero when nothing has
// been projected yet.
func (d *Dao) GetIndexedStatus(ctx context.Context) (int64, error) {
	var status model.IndexedStatus
	err := d.DB.WithContext(ctx).Model(&model.IndexedStatus{}).
		Where("id = ?", indexedStatusRowID).
		First(&status).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "failed on query indexed status")
	}
	return status.LastEventTime, nil
}
