package svc

import (
	"github.com/zeromicro/go-zero/core/stores/kv"
	"gorm.io/gorm"

	"github.com/ghoul-sol/treasure-marketplace/dao"
	"github.com/ghoul-sol/treasure-marketplace/marketplace"
	"github.com/ghoul-sol/treasure-marketplace/pricetracker"
)

type CtxConfig struct {
	db      *gorm.DB
	dao     *dao.Dao
	KvStore kv.Store
	market  *marketplace.Marketplace
	tracker *pricetracker.Tracker
}

type CtxOption func(conf *CtxConfig)

func NewServerCtx(options ...CtxOption) *ServerCtx {
	c := &CtxConfig{}
	for _, opt := range options {
		opt(c)
	}
	return &ServerCtx{
		DB:      c.db,
		KvStore: c.KvStore,
		Dao:     c.dao,
		Market:  c.market,
		Tracker: c.tracker,
	}
}

func WithKv(kv kv.Store) CtxOption {
	return func(conf *CtxConfig) {
		conf.KvStore = kv
	}
}

func WithDB(db *gorm.DB) CtxOption {
	return func(conf *CtxConfig) {
		conf.db = db
	}
}

func WithDao(dao *dao.Dao) CtxOption {
	return func(conf *CtxConfig) {
		conf.dao = dao
	}
}

func WithMarket(m *marketplace.Marketplace) CtxOption {
	return func(conf *CtxConfig) {
		conf.market = m
	}
}

func WithTracker(t *pricetracker.Tracker) CtxOption {
	return func(conf *CtxConfig) {
		conf.tracker = t
	}
}
