// Package app hosts the HTTP platform runner.
package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ghoul-sol/treasure-marketplace/logger/xzap"
	"github.com/ghoul-sol/treasure-marketplace/service/config"
	"github.com/ghoul-sol/treasure-marketplace/service/svc"
)

// Platform bundles the configured router with its shared context.
type Platform struct {
	config    *config.Config
	router    *gin.Engine
	serverCtx *svc.ServerCtx
}

func NewPlatform(c *config.Config, router *gin.Engine, serverCtx *svc.ServerCtx) (*Platform, error) {
	return &Platform{
		config:    c,
		router:    router,
		serverCtx: serverCtx,
	}, nil
}

// Start serves the HTTP API. Blocking.
func (p *Platform) Start() error {
	addr := fmt.Sprintf(":%d", p.config.Api.Port)
	xzap.WithContext(context.Background()).Info("treasure-marketplace run", zap.String("addr", addr))
	return p.router.Run(addr)
}
