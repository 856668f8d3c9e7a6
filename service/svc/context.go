package svc

import (
	"context"

	"github.com/zeromicro/go-zero/core/stores/cache"
	"github.com/zeromicro/go-zero/core/stores/kv"
	"github.com/zeromicro/go-zero/core/stores/redis"
	"gorm.io/gorm"

	"github.com/ghoul-sol/treasure-marketplace/dao"
	"github.com/ghoul-sol/treasure-marketplace/logger/xzap"
	"github.com/ghoul-sol/treasure-marketplace/marketplace"
	"github.com/ghoul-sol/treasure-marketplace/model"
	"github.com/ghoul-sol/treasure-marketplace/pricetracker"
	"github.com/ghoul-sol/treasure-marketplace/service/config"
)

// ServerCtx bundles the shared infrastructure handed to API handlers.
type ServerCtx struct {
	C       *config.Config
	DB      *gorm.DB
	Dao     *dao.Dao
	KvStore kv.Store
	Market  *marketplace.Marketplace
	Tracker *pricetracker.Tracker
}

// NewServiceContext initializes logging, redis, the database and the DAO.
// The settlement engine is attached by the service layer once the event
// plumbing is in place.
func NewServiceContext(c *config.Config) (*ServerCtx, error) {
	if _, err := xzap.SetUp(*c.Log); err != nil {
		return nil, err
	}

	var kvConf kv.KvConf
	for _, con := range c.Kv.Redis {
		kvConf = append(kvConf, cache.NodeConf{
			RedisConf: redis.RedisConf{
				Host: con.Host,
				Type: con.Type,
				Pass: con.Pass,
			},
			Weight: 1,
		})
	}
	store := kv.NewStore(kvConf)

	db, err := model.NewDB(*c.DB)
	if err != nil {
		return nil, err
	}

	d := dao.New(context.Background(), db, store)

	serverCtx := NewServerCtx(
		WithDB(db),
		WithKv(store),
		WithDao(d),
	)
	serverCtx.C = c
	return serverCtx, nil
}
