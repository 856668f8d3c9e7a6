package v1

import (
	"math/big"

	"github.com/gin-gonic/gin"

	"github.com/ghoul-sol/treasure-marketplace/errcode"
	"github.com/ghoul-sol/treasure-marketplace/marketplace"
	"github.com/ghoul-sol/treasure-marketplace/service/svc"
	types "github.com/ghoul-sol/treasure-marketplace/types/v1"
	"github.com/ghoul-sol/treasure-marketplace/xhttp"
)

// CreateOrUpdateListingsHandler applies a batch of listing writes. The whole
// batch succeeds or fails together.
func CreateOrUpdateListingsHandler(svcCtx *svc.ServerCtx) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.CreateListingsReq
		if err := c.ShouldBindJSON(&req); err != nil {
			xhttp.Error(c, errcode.ErrInvalidParams)
			return
		}
		caller, cerr := parseAddress(req.Caller)
		if cerr != nil {
			xhttp.Error(c, cerr)
			return
		}
		params := make([]marketplace.ListingParams, 0, len(req.Listings))
		for _, item := range req.Listings {
			p, cerr := listingParams(item)
			if cerr != nil {
				xhttp.Error(c, cerr)
				return
			}
			params = append(params, p)
		}
		if err := svcCtx.Market.CreateOrUpdateListings(c.Request.Context(), caller, params); err != nil {
			xhttp.Error(c, errcode.NewCustomErr(err.Error()))
			return
		}
		xhttp.OkJson(c, nil)
	}
}

func listingParams(item types.ListingItem) (marketplace.ListingParams, *errcode.Err) {
	collection, cerr := parseAddress(item.Collection)
	if cerr != nil {
		return marketplace.ListingParams{}, cerr
	}
	tokenID, cerr := parseTokenID(item.TokenID)
	if cerr != nil {
		return marketplace.ListingParams{}, cerr
	}
	price, cerr := parsePrice(item.PricePerItem)
	if cerr != nil {
		return marketplace.ListingParams{}, cerr
	}
	paymentToken, cerr := parseOptionalAddress(item.PaymentToken)
	if cerr != nil {
		return marketplace.ListingParams{}, cerr
	}
	return marketplace.ListingParams{
		Collection:     collection,
		TokenID:        tokenID,
		Quantity:       item.Quantity,
		PricePerItem:   price,
		ExpirationTime: item.ExpirationTime,
		PaymentToken:   paymentToken,
	}, nil
}

func CancelListingHandler(svcCtx *svc.ServerCtx) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.CancelListingReq
		if err := c.ShouldBindJSON(&req); err != nil {
			xhttp.Error(c, errcode.ErrInvalidParams)
			return
		}
		caller, cerr := parseAddress(req.Caller)
		if cerr != nil {
			xhttp.Error(c, cerr)
			return
		}
		collection, cerr := parseAddress(req.Collection)
		if cerr != nil {
			xhttp.Error(c, cerr)
			return
		}
		tokenID, cerr := parseTokenID(req.TokenID)
		if cerr != nil {
			xhttp.Error(c, cerr)
			return
		}
		if err := svcCtx.Market.CancelListing(c.Request.Context(), caller, collection, tokenID); err != nil {
			xhttp.Error(c, errcode.NewCustomErr(err.Error()))
			return
		}
		xhttp.OkJson(c, nil)
	}
}

func CreateTokenBidHandler(svcCtx *svc.ServerCtx) gin.HandlerFunc {
	return createBidHandler(svcCtx, false)
}

func CreateCollectionBidHandler(svcCtx *svc.ServerCtx) gin.HandlerFunc {
	return createBidHandler(svcCtx, true)
}

func createBidHandler(svcCtx *svc.ServerCtx, collectionBid bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.CreateBidReq
		if err := c.ShouldBindJSON(&req); err != nil {
			xhttp.Error(c, errcode.ErrInvalidParams)
			return
		}
		caller, cerr := parseAddress(req.Caller)
		if cerr != nil {
			xhttp.Error(c, cerr)
			return
		}
		collection, cerr := parseAddress(req.Collection)
		if cerr != nil {
			xhttp.Error(c, cerr)
			return
		}
		price, cerr := parsePrice(req.PricePerItem)
		if cerr != nil {
			xhttp.Error(c, cerr)
			return
		}
		paymentToken, cerr := parseOptionalAddress(req.PaymentToken)
		if cerr != nil {
			xhttp.Error(c, cerr)
			return
		}
		p := marketplace.BidParams{
			Collection:     collection,
			Quantity:       req.Quantity,
			PricePerItem:   price,
			ExpirationTime: req.ExpirationTime,
			PaymentToken:   paymentToken,
		}
		var err error
		if collectionBid {
			err = svcCtx.Market.CreateOrUpdateCollectionBid(c.Request.Context(), caller, p)
		} else {
			p.TokenID, cerr = parseTokenID(req.TokenID)
			if cerr != nil {
				xhttp.Error(c, cerr)
				return
			}
			err = svcCtx.Market.CreateOrUpdateTokenBid(c.Request.Context(), caller, p)
		}
		if err != nil {
			xhttp.Error(c, errcode.NewCustomErr(err.Error()))
			return
		}
		xhttp.OkJson(c, nil)
	}
}

func CancelBidsHandler(svcCtx *svc.ServerCtx) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.CancelBidsReq
		if err := c.ShouldBindJSON(&req); err != nil {
			xhttp.Error(c, errcode.ErrInvalidParams)
			return
		}
		caller, cerr := parseAddress(req.Caller)
		if cerr != nil {
			xhttp.Error(c, cerr)
			return
		}
		params := make([]marketplace.CancelBidParams, 0, len(req.Bids))
		for _, bid := range req.Bids {
			collection, cerr := parseAddress(bid.Collection)
			if cerr != nil {
				xhttp.Error(c, cerr)
				return
			}
			p := marketplace.CancelBidParams{Collection: collection}
			switch bid.BidType {
			case "collection":
				p.Kind = marketplace.CancelCollectionBid
			case "token":
				p.Kind = marketplace.CancelTokenBid
				p.TokenID, cerr = parseTokenID(bid.TokenID)
				if cerr != nil {
					xhttp.Error(c, cerr)
					return
				}
			default:
				xhttp.Error(c, errcode.NewCustomErr("invalid bid type: "+bid.BidType))
				return
			}
			params = append(params, p)
		}
		if err := svcCtx.Market.CancelBids(c.Request.Context(), caller, params); err != nil {
			xhttp.Error(c, errcode.NewCustomErr(err.Error()))
			return
		}
		xhttp.OkJson(c, nil)
	}
}

// BuyItemsHandler executes a batched purchase. Value is the attached native
// amount and must equal the native legs exactly.
func BuyItemsHandler(svcCtx *svc.ServerCtx) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.BuyItemsReq
		if err := c.ShouldBindJSON(&req); err != nil {
			xhttp.Error(c, errcode.ErrInvalidParams)
			return
		}
		caller, cerr := parseAddress(req.Caller)
		if cerr != nil {
			xhttp.Error(c, cerr)
			return
		}
		value := new(big.Int)
		if req.Value != "" {
			value, cerr = parsePrice(req.Value)
			if cerr != nil {
				xhttp.Error(c, cerr)
				return
			}
		}
		items := make([]marketplace.BuyItemParams, 0, len(req.Items))
		for _, item := range req.Items {
			p, cerr := buyItemParams(item)
			if cerr != nil {
				xhttp.Error(c, cerr)
				return
			}
			items = append(items, p)
		}
		if err := svcCtx.Market.BuyItems(c.Request.Context(), caller, items, value); err != nil {
			xhttp.Error(c, errcode.NewCustomErr(err.Error()))
			return
		}
		xhttp.OkJson(c, nil)
	}
}

func buyItemParams(item types.BuyItem) (marketplace.BuyItemParams, *errcode.Err) {
	collection, cerr := parseAddress(item.Collection)
	if cerr != nil {
		return marketplace.BuyItemParams{}, cerr
	}
	tokenID, cerr := parseTokenID(item.TokenID)
	if cerr != nil {
		return marketplace.BuyItemParams{}, cerr
	}
	owner, cerr := parseAddress(item.Owner)
	if cerr != nil {
		return marketplace.BuyItemParams{}, cerr
	}
	maxPrice, cerr := parsePrice(item.MaxPricePerItem)
	if cerr != nil {
		return marketplace.BuyItemParams{}, cerr
	}
	paymentToken, cerr := parseOptionalAddress(item.PaymentToken)
	if cerr != nil {
		return marketplace.BuyItemParams{}, cerr
	}
	return marketplace.BuyItemParams{
		Collection:      collection,
		TokenID:         tokenID,
		Owner:           owner,
		Quantity:        item.Quantity,
		MaxPricePerItem: maxPrice,
		PaymentToken:    paymentToken,
		UsingNative:     item.UsingNative,
	}, nil
}

func AcceptTokenBidHandler(svcCtx *svc.ServerCtx) gin.HandlerFunc {
	return acceptBidHandler(svcCtx, false)
}

func AcceptCollectionBidHandler(svcCtx *svc.ServerCtx) gin.HandlerFunc {
	return acceptBidHandler(svcCtx, true)
}

func acceptBidHandler(svcCtx *svc.ServerCtx, collectionBid bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.AcceptBidReq
		if err := c.ShouldBindJSON(&req); err != nil {
			xhttp.Error(c, errcode.ErrInvalidParams)
			return
		}
		caller, cerr := parseAddress(req.Caller)
		if cerr != nil {
			xhttp.Error(c, cerr)
			return
		}
		collection, cerr := parseAddress(req.Collection)
		if cerr != nil {
			xhttp.Error(c, cerr)
			return
		}
		tokenID, cerr := parseTokenID(req.TokenID)
		if cerr != nil {
			xhttp.Error(c, cerr)
			return
		}
		bidder, cerr := parseAddress(req.Bidder)
		if cerr != nil {
			xhttp.Error(c, cerr)
			return
		}
		price, cerr := parsePrice(req.PricePerItem)
		if cerr != nil {
			xhttp.Error(c, cerr)
			return
		}
		paymentToken, cerr := parseOptionalAddress(req.PaymentToken)
		if cerr != nil {
			xhttp.Error(c, cerr)
			return
		}
		p := marketplace.AcceptBidParams{
			Collection:   collection,
			TokenID:      tokenID,
			Bidder:       bidder,
			Quantity:     req.Quantity,
			PricePerItem: price,
			PaymentToken: paymentToken,
		}
		var err error
		if collectionBid {
			err = svcCtx.Market.AcceptCollectionBid(c.Request.Context(), caller, p)
		} else {
			err = svcCtx.Market.AcceptTokenBid(c.Request.Context(), caller, p)
		}
		if err != nil {
			xhttp.Error(c, errcode.NewCustomErr(err.Error()))
			return
		}
		xhttp.OkJson(c, nil)
	}
}
