package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/ghoul-sol/treasure-marketplace/errcode"
	"github.com/ghoul-sol/treasure-marketplace/marketplace"
	"github.com/ghoul-sol/treasure-marketplace/service/svc"
	types "github.com/ghoul-sol/treasure-marketplace/types/v1"
	"github.com/ghoul-sol/treasure-marketplace/xhttp"
)

func SetFeeHandler(svcCtx *svc.ServerCtx) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.SetFeeReq
		if err := c.ShouldBindJSON(&req); err != nil {
			xhttp.Error(c, errcode.ErrInvalidParams)
			return
		}
		caller, cerr := parseAddress(req.Caller)
		if cerr != nil {
			xhttp.Error(c, cerr)
			return
		}
		if err := svcCtx.Market.SetFee(caller, req.FeeBps, req.FeeWithCollectionOwnerBps); err != nil {
			xhttp.Error(c, errcode.NewCustomErr(err.Error()))
			return
		}
		xhttp.OkJson(c, nil)
	}
}

func SetFeeRecipientHandler(svcCtx *svc.ServerCtx) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.SetFeeRecipientReq
		if err := c.ShouldBindJSON(&req); err != nil {
			xhttp.Error(c, errcode.ErrInvalidParams)
			return
		}
		caller, cerr := parseAddress(req.Caller)
		if cerr != nil {
			xhttp.Error(c, cerr)
			return
		}
		recipient, cerr := parseAddress(req.Recipient)
		if cerr != nil {
			xhttp.Error(c, cerr)
			return
		}
		if err := svcCtx.Market.SetFeeRecipient(caller, recipient); err != nil {
			xhttp.Error(c, errcode.NewCustomErr(err.Error()))
			return
		}
		xhttp.OkJson(c, nil)
	}
}

func SetCollectionOwnerFeeHandler(svcCtx *svc.ServerCtx) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.SetCollectionOwnerFeeReq
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
		recipient, cerr := parseOptionalAddress(req.Recipient)
		if cerr != nil {
			xhttp.Error(c, cerr)
			return
		}
		fee := marketplace.CollectionOwnerFee{Recipient: recipient, FeeBps: req.FeeBps}
		if err := svcCtx.Market.SetCollectionOwnerFee(caller, collection, fee); err != nil {
			xhttp.Error(c, errcode.NewCustomErr(err.Error()))
			return
		}
		xhttp.OkJson(c, nil)
	}
}

func SetTokenApprovalStatusHandler(svcCtx *svc.ServerCtx) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.SetTokenApprovalStatusReq
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
		var status marketplace.TokenApprovalStatus
		switch req.Status {
		case "not_approved":
			status = marketplace.TokenNotApproved
		case "erc721":
			status = marketplace.TokenApprovedERC721
		case "erc1155":
			status = marketplace.TokenApprovedERC1155
		default:
			xhttp.Error(c, errcode.NewCustomErr("invalid approval status: "+req.Status))
			return
		}
		paymentToken, cerr := parseOptionalAddress(req.PaymentToken)
		if cerr != nil {
			xhttp.Error(c, cerr)
			return
		}
		if err := svcCtx.Market.SetTokenApprovalStatus(caller, collection, status, paymentToken); err != nil {
			xhttp.Error(c, errcode.NewCustomErr(err.Error()))
			return
		}
		xhttp.OkJson(c, nil)
	}
}

func GrantRoleHandler(svcCtx *svc.ServerCtx) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.GrantRoleReq
		if err := c.ShouldBindJSON(&req); err != nil {
			xhttp.Error(c, errcode.ErrInvalidParams)
			return
		}
		caller, cerr := parseAddress(req.Caller)
		if cerr != nil {
			xhttp.Error(c, cerr)
			return
		}
		account, cerr := parseAddress(req.Account)
		if cerr != nil {
			xhttp.Error(c, cerr)
			return
		}
		var role marketplace.Role
		switch req.Role {
		case "admin":
			role = marketplace.RoleAdmin
		case "owner":
			role = marketplace.RoleOwner
		default:
			xhttp.Error(c, errcode.NewCustomErr("invalid role: "+req.Role))
			return
		}
		if err := svcCtx.Market.GrantRole(caller, account, role); err != nil {
			xhttp.Error(c, errcode.NewCustomErr(err.Error()))
			return
		}
		xhttp.OkJson(c, nil)
	}
}

func PauseHandler(svcCtx *svc.ServerCtx) gin.HandlerFunc {
	return pauseHandler(svcCtx, true)
}

func UnpauseHandler(svcCtx *svc.ServerCtx) gin.HandlerFunc {
	return pauseHandler(svcCtx, false)
}

func pauseHandler(svcCtx *svc.ServerCtx, pause bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.PauseReq
		if err := c.ShouldBindJSON(&req); err != nil {
			xhttp.Error(c, errcode.ErrInvalidParams)
			return
		}
		caller, cerr := parseAddress(req.Caller)
		if cerr != nil {
			xhttp.Error(c, cerr)
			return
		}
		var err error
		if pause {
			err = svcCtx.Market.Pause(caller)
		} else {
			err = svcCtx.Market.Unpause(caller)
		}
		if err != nil {
			xhttp.Error(c, errcode.NewCustomErr(err.Error()))
			return
		}
		xhttp.OkJson(c, nil)
	}
}

func ToggleBiddingHandler(svcCtx *svc.ServerCtx) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.ToggleBiddingReq
		if err := c.ShouldBindJSON(&req); err != nil {
			xhttp.Error(c, errcode.ErrInvalidParams)
			return
		}
		caller, cerr := parseAddress(req.Caller)
		if cerr != nil {
			xhttp.Error(c, cerr)
			return
		}
		if err := svcCtx.Market.ToggleBiddingActive(caller); err != nil {
			xhttp.Error(c, errcode.NewCustomErr(err.Error()))
			return
		}
		xhttp.OkJson(c, nil)
	}
}
