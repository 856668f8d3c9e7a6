package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/ghoul-sol/treasure-marketplace/dao"
	"github.com/ghoul-sol/treasure-marketplace/errcode"
	"github.com/ghoul-sol/treasure-marketplace/service/svc"
	types "github.com/ghoul-sol/treasure-marketplace/types/v1"
	"github.com/ghoul-sol/treasure-marketplace/xhttp"
)

func GetListingHandler(svcCtx *svc.ServerCtx) gin.HandlerFunc {
	return func(c *gin.Context) {
		collection, cerr := parseAddress(c.Param("collection"))
		if cerr != nil {
			xhttp.Error(c, cerr)
			return
		}
		tokenID, cerr := parseTokenID(c.Param("token_id"))
		if cerr != nil {
			xhttp.Error(c, cerr)
			return
		}
		owner, cerr := parseAddress(c.Param("owner"))
		if cerr != nil {
			xhttp.Error(c, cerr)
			return
		}
		offer, ok := svcCtx.Market.GetListing(collection, tokenID, owner)
		if !ok {
			xhttp.Error(c, errcode.NewCustomErr("listing not found"))
			return
		}
		xhttp.OkJson(c, offerResp(offer))
	}
}

func GetTokenBidHandler(svcCtx *svc.ServerCtx) gin.HandlerFunc {
	return func(c *gin.Context) {
		collection, cerr := parseAddress(c.Param("collection"))
		if cerr != nil {
			xhttp.Error(c, cerr)
			return
		}
		tokenID, cerr := parseTokenID(c.Param("token_id"))
		if cerr != nil {
			xhttp.Error(c, cerr)
			return
		}
		bidder, cerr := parseAddress(c.Param("bidder"))
		if cerr != nil {
			xhttp.Error(c, cerr)
			return
		}
		offer, ok := svcCtx.Market.GetTokenBid(collection, tokenID, bidder)
		if !ok {
			xhttp.Error(c, errcode.NewCustomErr("bid not found"))
			return
		}
		xhttp.OkJson(c, offerResp(offer))
	}
}

func GetCollectionBidHandler(svcCtx *svc.ServerCtx) gin.HandlerFunc {
	return func(c *gin.Context) {
		collection, cerr := parseAddress(c.Param("collection"))
		if cerr != nil {
			xhttp.Error(c, cerr)
			return
		}
		bidder, cerr := parseAddress(c.Param("bidder"))
		if cerr != nil {
			xhttp.Error(c, cerr)
			return
		}
		offer, ok := svcCtx.Market.GetCollectionBid(collection, bidder)
		if !ok {
			xhttp.Error(c, errcode.NewCustomErr("bid not found"))
			return
		}
		xhttp.OkJson(c, offerResp(offer))
	}
}

// OrdersHandler pages through projected live orders.
func OrdersHandler(svcCtx *svc.ServerCtx) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := dao.OrderFilter{
			CollectionAddress: c.Query("collection"),
			TokenID:           c.Query("token_id"),
			Maker:             c.Query("maker"),
			Page:              queryInt(c, "page", 1),
			PageSize:          queryInt(c, "page_size", 0),
		}
		if v := c.Query("side"); v != "" {
			side := queryInt(c, "side", 0)
			filter.Side = &side
		}
		if v := c.Query("kind"); v != "" {
			kind := queryInt(c, "kind", 0)
			filter.Kind = &kind
		}
		orders, total, err := svcCtx.Dao.QueryOrders(c.Request.Context(), filter)
		if err != nil {
			xhttp.Error(c, errcode.NewCustomErr(err.Error()))
			return
		}
		result := make([]types.OrderResp, 0, len(orders))
		for _, o := range orders {
			result = append(result, types.OrderResp{
				Side:              o.Side,
				Kind:              o.Kind,
				CollectionAddress: o.CollectionAddress,
				TokenID:           o.TokenID,
				Maker:             o.Maker,
				Price:             o.Price,
				PaymentToken:      o.PaymentToken,
				QuantityRemaining: o.QuantityRemaining,
				ExpireTime:        o.ExpireTime,
				Status:            o.Status,
			})
		}
		xhttp.OkJson(c, types.PagedResp{Result: result, Total: total, Page: filter.Page})
	}
}

// ActivitiesHandler pages through the history feed.
func ActivitiesHandler(svcCtx *svc.ServerCtx) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := dao.ActivityFilter{
			CollectionAddress: c.Query("collection"),
			TokenID:           c.Query("token_id"),
			UserAddress:       c.Query("user"),
			Page:              queryInt(c, "page", 1),
			PageSize:          queryInt(c, "page_size", 0),
		}
		activities, total, err := svcCtx.Dao.QueryActivities(c.Request.Context(), filter)
		if err != nil {
			xhttp.Error(c, errcode.NewCustomErr(err.Error()))
			return
		}
		result := make([]types.ActivityResp, 0, len(activities))
		for _, a := range activities {
			result = append(result, types.ActivityResp{
				ActivityType:      a.ActivityType,
				CollectionAddress: a.CollectionAddress,
				TokenID:           a.TokenID,
				Maker:             a.Maker,
				Taker:             a.Taker,
				Price:             a.Price,
				PaymentToken:      a.PaymentToken,
				Quantity:          a.Quantity,
				EventTime:         a.EventTime,
			})
		}
		xhttp.OkJson(c, types.PagedResp{Result: result, Total: total, Page: filter.Page})
	}
}

// CollectionHandler returns per-collection aggregates.
func CollectionHandler(svcCtx *svc.ServerCtx) gin.HandlerFunc {
	return func(c *gin.Context) {
		address, cerr := parseAddress(c.Param("address"))
		if cerr != nil {
			xhttp.Error(c, cerr)
			return
		}
		collection, err := svcCtx.Dao.GetCollection(c.Request.Context(), address.Hex())
		if err != nil {
			xhttp.Error(c, errcode.NewCustomErr("collection not found"))
			return
		}
		if floor, err := svcCtx.Dao.GetCachedFloorPrice(c.Request.Context(), address.Hex()); err == nil {
			collection.FloorPrice = floor
		}
		resp := types.CollectionResp{
			Address:        collection.Address,
			FloorPrice:     collection.FloorPrice,
			SaleCount:      collection.SaleCount,
			Volume:         collection.Volume,
			ListingCount:   collection.ListingCount,
			PaymentToken:   svcCtx.Market.PaymentTokenOf(address).Hex(),
			ApprovalStatus: svcCtx.Market.ApprovalStatusOf(address).String(),
		}
		if svcCtx.Tracker != nil {
			if stats, ok := svcCtx.Tracker.Stats(address); ok {
				resp.LastSalePrice = stats.LastPrice
				resp.MeanSalePrice = stats.MeanPrice
			}
		}
		xhttp.OkJson(c, resp)
	}
}
