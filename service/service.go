package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/zeromicro/go-zero/core/threading"

	"github.com/ghoul-sol/treasure-marketplace/api/router"
	"github.com/ghoul-sol/treasure-marketplace/app"
	"github.com/ghoul-sol/treasure-marketplace/marketplace"
	"github.com/ghoul-sol/treasure-marketplace/pricetracker"
	"github.com/ghoul-sol/treasure-marketplace/registry"
	"github.com/ghoul-sol/treasure-marketplace/service/config"
	"github.com/ghoul-sol/treasure-marketplace/service/marketindexer"
	"github.com/ghoul-sol/treasure-marketplace/service/svc"
)

const eventBufferSize = 1024

// Service owns the settlement engine, the projection indexer and the HTTP
// API, wired together through the event channel.
type Service struct {
	ctx       context.Context
	config    *config.Config
	serverCtx *svc.ServerCtx
	indexer   *marketindexer.Service
	events    marketplace.ChannelSink
}

// New assembles the daemon: service context (log, redis, db, dao), the
// settlement engine backed by the local asset registry, and the indexer that
// projects engine events into the database.
func New(ctx context.Context, cfg *config.Config) (*Service, error) {
	serverCtx, err := svc.NewServiceContext(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed on create service context")
	}

	events := make(marketplace.ChannelSink, eventBufferSize)

	resolver := registry.NewResolver()
	native := registry.NewMemNativeBank()

	tracker := pricetracker.New()

	market, err := marketplace.New(marketplace.Config{
		Operator:                  common.HexToAddress(cfg.Market.Operator),
		Owner:                     common.HexToAddress(cfg.Market.Owner),
		FeeRecipient:              common.HexToAddress(cfg.Market.FeeRecipient),
		FeeBps:                    cfg.Market.FeeBps,
		FeeWithCollectionOwnerBps: cfg.Market.FeeWithCollectionOwnerBps,
		DefaultPaymentToken:       common.HexToAddress(cfg.Market.DefaultPaymentToken),
		WrappedNativeToken:        common.HexToAddress(cfg.Market.WrappedNativeToken),
	}, resolver, native,
		marketplace.WithEventSink(events),
		marketplace.WithPriceTracker(tracker))
	if err != nil {
		return nil, errors.Wrap(err, "failed on create marketplace engine")
	}
	serverCtx.Market = market
	serverCtx.Tracker = tracker

	indexer := marketindexer.New(ctx, serverCtx.Dao, market, events,
		time.Duration(cfg.Market.FloorPriceInterval)*time.Second)

	return &Service{
		ctx:       ctx,
		config:    cfg,
		serverCtx: serverCtx,
		indexer:   indexer,
		events:    events,
	}, nil
}

// Start launches the indexer loops and serves the HTTP API. Blocks until the
// HTTP server exits.
func (s *Service) Start() error {
	if s.config.Monitor != nil && s.config.Monitor.PprofEnable {
		threading.GoSafe(func() {
			// pprof handlers are registered by the net/http/pprof import
			// in the command layer
			_ = http.ListenAndServe(fmt.Sprintf(":%d", s.config.Monitor.PprofPort), nil)
		})
	}

	s.indexer.Start()

	platform, err := app.NewPlatform(s.config, router.NewRouter(s.serverCtx), s.serverCtx)
	if err != nil {
		return errors.Wrap(err, "failed on create platform")
	}
	return platform.Start()
}
