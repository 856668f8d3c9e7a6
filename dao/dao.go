// Package dao implements data access over the projection database and the
// redis cache. All database interaction for the read API happens here.
package dao

import (
	"context"
	"time"

	"github.com/zeromicro/go-zero/core/stores/kv"
	"gorm.io/gorm"
)

// queryTimeout bounds every read query issued for the API.
const queryTimeout = 10 * time.Second

type Dao struct {
	ctx context.Context

	DB      *gorm.DB
	KvStore kv.Store
}

func New(ctx context.Context, db *gorm.DB, kvStore kv.Store) *Dao {
	return &Dao{
		ctx:     ctx,
		DB:      db,
		KvStore: kvStore,
	}
}

func withQueryTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, queryTimeout)
}
