package cmd

import (
	"context"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ghoul-sol/treasure-marketplace/logger/xzap"
	"github.com/ghoul-sol/treasure-marketplace/service"
	"github.com/ghoul-sol/treasure-marketplace/service/config"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "run the marketplace daemon",
	Long:  "run the settlement engine, the event projection indexer and the http api.",
	Run: func(cmd *cobra.Command, args []string) {
		wg := &sync.WaitGroup{}
		wg.Add(1)

		ctx, cancel := context.WithCancel(context.Background())

		onExit := make(chan error, 1)

		go func() {
			defer wg.Done()

			cfg, err := config.UnmarshalCmdConfig()
			if err != nil {
				xzap.WithContext(ctx).Error("failed on unmarshal config", zap.Error(err))
				onExit <- err
				return
			}

			if _, err := xzap.SetUp(*cfg.Log); err != nil {
				xzap.WithContext(ctx).Error("failed on set up logger", zap.Error(err))
				onExit <- err
				return
			}

			xzap.WithContext(ctx).Info("marketplace daemon start",
				zap.Int("api_port", cfg.Api.Port))

			s, err := service.New(ctx, cfg)
			if err != nil {
				xzap.WithContext(ctx).Error("failed on create service", zap.Error(err))
				onExit <- err
				return
			}

			if err := s.Start(); err != nil {
				xzap.WithContext(ctx).Error("failed on start service", zap.Error(err))
				onExit <- err
				return
			}
		}()

		onSignal := make(chan os.Signal, 1)
		signal.Notify(onSignal, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-onSignal:
			cancel()
			xzap.WithContext(ctx).Info("exit by signal", zap.String("signal", sig.String()))
		case err := <-onExit:
			cancel()
			xzap.WithContext(ctx).Error("exit by error", zap.Error(err))
		}

		wg.Wait()
	},
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}
