// Package marketindexer projects the settlement engine's event stream into
// the relational tables served by the read API, and maintains derived
// per-collection aggregates on a timer.
package marketindexer

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zeromicro/go-zero/core/threading"
	"go.uber.org/zap"

	"github.com/ghoul-sol/treasure-marketplace/dao"
	"github.com/ghoul-sol/treasure-marketplace/logger/xzap"
	"github.com/ghoul-sol/treasure-marketplace/marketplace"
	"github.com/ghoul-sol/treasure-marketplace/model"
)

const defaultFloorInterval = 30 * time.Second

type Service struct {
	ctx           context.Context
	dao           *dao.Dao
	market        *marketplace.Marketplace
	events        <-chan marketplace.Event
	floorInterval time.Duration
}

func New(ctx context.Context, d *dao.Dao, market *marketplace.Marketplace, events <-chan marketplace.Event, floorInterval time.Duration) *Service {
	if floorInterval <= 0 {
		floorInterval = defaultFloorInterval
	}
	return &Service{
		ctx:           ctx,
		dao:           d,
		market:        market,
		events:        events,
		floorInterval: floorInterval,
	}
}

// Start launches the projection and floor maintenance loops.
func (s *Service) Start() {
	threading.GoSafe(s.consumeEventsLoop)
	threading.GoSafe(s.floorPriceLoop)
}

func (s *Service) consumeEventsLoop() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case ev, ok := <-s.events:
			if !ok {
				return
			}
			if err := s.apply(ev); err != nil {
				xzap.WithContext(s.ctx).Error("failed on project event",
					zap.String("kind", ev.Kind.String()),
					zap.String("collection", ev.Collection.Hex()),
					zap.String("token_id", ev.TokenID),
					zap.Error(err))
				continue
			}
			if err := s.dao.UpdateIndexedStatus(s.ctx, ev.EventTime); err != nil {
				xzap.WithContext(s.ctx).Warn("failed on advance indexed status", zap.Error(err))
			}
		}
	}
}

// apply writes one event into the order and activity tables.
func (s *Service) apply(ev marketplace.Event) error {
	price := decimal.Zero
	if ev.PricePerItem != nil {
		price = decimal.NewFromBigInt(ev.PricePerItem, 0)
	}

	switch ev.Kind {
	case marketplace.EventItemListed, marketplace.EventItemUpdated:
		if err := s.dao.UpsertOrder(s.ctx, &model.Order{
			Side:              model.SideList,
			Kind:              model.KindListing,
			CollectionAddress: ev.Collection.Hex(),
			TokenID:           ev.TokenID,
			Maker:             ev.Maker.Hex(),
			Price:             price,
			PaymentToken:      ev.PaymentToken.Hex(),
			QuantityTotal:     ev.Quantity,
			QuantityRemaining: ev.Quantity,
			ExpireTime:        int64(ev.ExpireTime),
			Status:            model.OrderStatusActive,
		}); err != nil {
			return err
		}
		activityType := model.Listing
		if ev.Kind == marketplace.EventItemUpdated {
			activityType = model.ListingUpdate
		}
		return s.addActivity(ev, activityType, price)

	case marketplace.EventItemCanceled:
		if err := s.dao.CloseOrder(s.ctx, model.SideList, model.KindListing,
			ev.Collection.Hex(), ev.TokenID, ev.Maker.Hex(), model.OrderStatusCanceled); err != nil {
			return err
		}
		return s.addActivity(ev, model.CancelListing, price)

	case marketplace.EventItemSold:
		if err := s.dao.ReduceOrderQuantity(s.ctx, model.SideList, model.KindListing,
			ev.Collection.Hex(), ev.TokenID, ev.Maker.Hex(), ev.Quantity); err != nil {
			return err
		}
		if err := s.dao.RecordSale(s.ctx, ev.Collection.Hex(),
			price.Mul(decimal.NewFromInt(int64(ev.Quantity)))); err != nil {
			return err
		}
		return s.addActivity(ev, model.Sale, price)

	case marketplace.EventTokenBidCreated:
		if err := s.dao.UpsertOrder(s.ctx, &model.Order{
			Side:              model.SideBid,
			Kind:              model.KindTokenBid,
			CollectionAddress: ev.Collection.Hex(),
			TokenID:           ev.TokenID,
			Maker:             ev.Maker.Hex(),
			Price:             price,
			PaymentToken:      ev.PaymentToken.Hex(),
			QuantityTotal:     ev.Quantity,
			QuantityRemaining: ev.Quantity,
			ExpireTime:        int64(ev.ExpireTime),
			Status:            model.OrderStatusActive,
		}); err != nil {
			return err
		}
		return s.addActivity(ev, model.ItemBid, price)

	case marketplace.EventCollectionBidCreated:
		if err := s.dao.UpsertOrder(s.ctx, &model.Order{
			Side:              model.SideBid,
			Kind:              model.KindCollectionBid,
			CollectionAddress: ev.Collection.Hex(),
			Maker:             ev.Maker.Hex(),
			Price:             price,
			PaymentToken:      ev.PaymentToken.Hex(),
			QuantityTotal:     ev.Quantity,
			QuantityRemaining: ev.Quantity,
			ExpireTime:        int64(ev.ExpireTime),
			Status:            model.OrderStatusActive,
		}); err != nil {
			return err
		}
		return s.addActivity(ev, model.CollectionBid, price)

	case marketplace.EventTokenBidCanceled:
		if err := s.dao.CloseOrder(s.ctx, model.SideBid, model.KindTokenBid,
			ev.Collection.Hex(), ev.TokenID, ev.Maker.Hex(), model.OrderStatusCanceled); err != nil {
			return err
		}
		return s.addActivity(ev, model.CancelItemBid, price)

	case marketplace.EventCollectionBidCanceled:
		if err := s.dao.CloseOrder(s.ctx, model.SideBid, model.KindCollectionBid,
			ev.Collection.Hex(), ev.TokenID, ev.Maker.Hex(), model.OrderStatusCanceled); err != nil {
			return err
		}
		return s.addActivity(ev, model.CancelCollectionBid, price)

	case marketplace.EventBidAccepted:
		kind := model.KindTokenBid
		bidTokenID := ev.TokenID
		if ev.BidType == marketplace.CancelCollectionBid {
			// collection bid rows carry no token id
			kind = model.KindCollectionBid
			bidTokenID = ""
		}
		if err := s.dao.ReduceOrderQuantity(s.ctx, model.SideBid, kind,
			ev.Collection.Hex(), bidTokenID, ev.Maker.Hex(), ev.Quantity); err != nil {
			return err
		}
		if err := s.dao.RecordSale(s.ctx, ev.Collection.Hex(),
			price.Mul(decimal.NewFromInt(int64(ev.Quantity)))); err != nil {
			return err
		}
		return s.addActivity(ev, model.BidSale, price)
	}
	return nil
}

func (s *Service) addActivity(ev marketplace.Event, activityType int, price decimal.Decimal) error {
	return s.dao.AddActivity(s.ctx, &model.Activity{
		ActivityType:      activityType,
		CollectionAddress: ev.Collection.Hex(),
		TokenID:           ev.TokenID,
		Maker:             ev.Maker.Hex(),
		Taker:             ev.Taker.Hex(),
		Price:             price,
		PaymentToken:      ev.PaymentToken.Hex(),
		Quantity:          ev.Quantity,
		EventTime:         ev.EventTime,
	})
}

// floorPriceLoop recomputes per-collection floors from live listings and
// sweeps expired projection rows on the same tick.
func (s *Service) floorPriceLoop() {
	ticker := time.NewTicker(s.floorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if expired, err := s.dao.ExpireOrders(s.ctx, time.Now().Unix()); err != nil {
				xzap.WithContext(s.ctx).Warn("failed on expire orders", zap.Error(err))
			} else if expired > 0 {
				xzap.WithContext(s.ctx).Info("expired stale orders", zap.Int64("count", expired))
			}
			for collection, floor := range s.market.FloorPrices() {
				if err := s.dao.UpdateFloorPrice(s.ctx, collection.Hex(),
					decimal.NewFromBigInt(floor, 0)); err != nil {
					xzap.WithContext(s.ctx).Warn("failed on update floor price",
						zap.String("collection", collection.Hex()),
						zap.Error(err))
					continue
				}
				if count, err := s.dao.CountActiveListings(s.ctx, collection.Hex()); err == nil {
					if err := s.dao.SetListingCount(s.ctx, collection.Hex(), count); err != nil {
						xzap.WithContext(s.ctx).Warn("failed on update listing count",
							zap.String("collection", collection.Hex()),
							zap.Error(err))
					}
				}
			}
		}
	}
}
