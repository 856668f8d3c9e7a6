package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ghoul-sol/treasure-marketplace/api/middleware"
	v1 "github.com/ghoul-sol/treasure-marketplace/api/v1"
	"github.com/ghoul-sol/treasure-marketplace/service/svc"
)

func NewRouter(svcCtx *svc.ServerCtx) *gin.Engine {
	gin.ForceConsoleColor()
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.RecoverMiddleware())
	r.Use(middleware.RLog())

	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "X-CSRF-Token", "Authorization", "AccessToken", "Token"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type", "Access-Control-Allow-Origin", "Access-Control-Allow-Headers"},
		AllowCredentials: true,
		MaxAge:           1 * time.Hour,
	}))
	loadV1(r, svcCtx)

	return r
}

func loadV1(r *gin.Engine, svcCtx *svc.ServerCtx) {
	api := r.Group("/api/v1")

	market := api.Group("/market")
	{
		market.POST("/listings", v1.CreateOrUpdateListingsHandler(svcCtx))
		market.POST("/listings/cancel", v1.CancelListingHandler(svcCtx))
		market.POST("/bids/token", v1.CreateTokenBidHandler(svcCtx))
		market.POST("/bids/collection", v1.CreateCollectionBidHandler(svcCtx))
		market.POST("/bids/cancel", v1.CancelBidsHandler(svcCtx))
		market.POST("/buy", v1.BuyItemsHandler(svcCtx))
		market.POST("/bids/token/accept", v1.AcceptTokenBidHandler(svcCtx))
		market.POST("/bids/collection/accept", v1.AcceptCollectionBidHandler(svcCtx))
	}

	read := api.Group("")
	{
		read.GET("/listings/:collection/:token_id/:owner", v1.GetListingHandler(svcCtx))
		read.GET("/bids/token/:collection/:token_id/:bidder", v1.GetTokenBidHandler(svcCtx))
		read.GET("/bids/collection/:collection/:bidder", v1.GetCollectionBidHandler(svcCtx))
		read.GET("/orders", v1.OrdersHandler(svcCtx))
		read.GET("/activities", v1.ActivitiesHandler(svcCtx))
		read.GET("/collections/:address", v1.CollectionHandler(svcCtx))
	}

	admin := api.Group("/admin")
	{
		admin.POST("/fee", v1.SetFeeHandler(svcCtx))
		admin.POST("/fee/recipient", v1.SetFeeRecipientHandler(svcCtx))
		admin.POST("/collection/fee", v1.SetCollectionOwnerFeeHandler(svcCtx))
		admin.POST("/collection/approval", v1.SetTokenApprovalStatusHandler(svcCtx))
		admin.POST("/role", v1.GrantRoleHandler(svcCtx))
		admin.POST("/pause", v1.PauseHandler(svcCtx))
		admin.POST("/unpause", v1.UnpauseHandler(svcCtx))
		admin.POST("/bidding/toggle", v1.ToggleBiddingHandler(svcCtx))
	}
}
