package dao

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/ghoul-sol/treasure-marketplace/model"
)

const cacheActivityNumPrefix = "cache:mp:activity:count:"

// cache TTL in seconds
const activityCountCacheExpire = 60

type activityCountKey struct {
	CollectionAddress string `json:"collection_address"`
	TokenID           string `json:"token_id"`
	UserAddress       string `json:"user_address"`
	ActivityTypes     []int  `json:"activity_types"`
}

func getActivityCountCacheKey(key *activityCountKey) (string, error) {
	uid, err := json.Marshal(key)
	if err != nil {
		return "", errors.Wrap(err, "failed on marshal activity count key")
	}
	return cacheActivityNumPrefix + string(uid), nil
}

// ActivityFilter narrows activity queries. Zero values mean no constraint.
type ActivityFilter struct {
	CollectionAddress string
	TokenID           string
	UserAddress       string
	ActivityTypes     []int
	Page              int
	PageSize          int
}

// AddActivity appends one event to the history feed.
func (d *Dao) AddActivity(ctx context.Context, activity *model.Activity) error {
	return errors.Wrap(
		d.DB.WithContext(ctx).Create(activity).Error,
		"failed on create activity")
}

// QueryActivities pages through the history feed, newest first. The total
// count is cached in redis because counting is the expensive half of the
// query on large feeds.
func (d *Dao) QueryActivities(ctx context.Context, filter ActivityFilter) ([]model.Activity, int64, error) {
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()

	tx := d.DB.WithContext(ctx).Model(&model.Activity{})
	if filter.CollectionAddress != "" {
		tx = tx.Where("collection_address = ?", filter.CollectionAddress)
	}
	if filter.TokenID != "" {
		tx = tx.Where("token_id = ?", filter.TokenID)
	}
	if filter.UserAddress != "" {
		tx = tx.Where("maker = ? or taker = ?", filter.UserAddress, filter.UserAddress)
	}
	if len(filter.ActivityTypes) > 0 {
		tx = tx.Where("activity_type in ?", filter.ActivityTypes)
	}

	total, err := d.countActivities(ctx, tx, &filter)
	if err != nil {
		return nil, 0, err
	}

	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}

	var activities []model.Activity
	if err := tx.Order("event_time desc").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&activities).Error; err != nil {
		return nil, 0, errors.Wrap(err, "failed on query activities")
	}
	return activities, total, nil
}

func (d *Dao) countActivities(ctx context.Context, tx *gorm.DB, filter *ActivityFilter) (int64, error) {
	cacheKey, err := getActivityCountCacheKey(&activityCountKey{
		CollectionAddress: filter.CollectionAddress,
		TokenID:           filter.TokenID,
		UserAddress:       filter.UserAddress,
		ActivityTypes:     filter.ActivityTypes,
	})
	if err == nil && d.KvStore != nil {
		if cached, err := d.KvStore.Get(cacheKey); err == nil && cached != "" {
			if total, err := strconv.ParseInt(cached, 10, 64); err == nil {
				return total, nil
			}
		}
	}

	var total int64
	if err := tx.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return 0, errors.Wrap(err, "failed on count activities")
	}
	if d.KvStore != nil {
		_ = d.KvStore.Setex(cacheKey, strconv.FormatInt(total, 10), activityCountCacheExpire)
	}
	return total, nil
}
