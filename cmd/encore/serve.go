package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yair/encore/pkg/interfaces"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve GraphQL over HTTP and websocket",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	logger.Info("starting encore")

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	handlerCfg := interfaces.HandlerConfig{
		Executor:        a.executor,
		Metrics:         a.metrics,
		Logger:          logger,
		EnableWebSocket: cfg.Server.WebSocketEnabled(),
	}
	if a.queryLog != nil {
		handlerCfg.QueryLog = a.queryLog
	}

	router := mux.NewRouter()
	interfaces.NewGraphQLHandler(handlerCfg).RegisterRoutes(router)

	router.Walk(func(route *mux.Route, router *mux.Router, ancestors []*mux.Route) error {
		path, _ := route.GetPathTemplate()
		methods, _ := route.GetMethods()
		logger.Debug("route", zap.Strings("methods", methods), zap.String("path", path))
		return nil
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
	return nil
}
