// Package app wires configuration, persistence and HTTP routes into a
// runnable server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/keyrelay/keyrelay/internal/config"
	"github.com/keyrelay/keyrelay/internal/db"
	"github.com/keyrelay/keyrelay/internal/http/api/admin"
	"github.com/keyrelay/keyrelay/internal/http/api/public"
	"github.com/keyrelay/keyrelay/internal/relay"
	"github.com/keyrelay/keyrelay/internal/store"
	"github.com/keyrelay/keyrelay/internal/supplier"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// shutdownGrace bounds how long in-flight requests may finish on shutdown.
const shutdownGrace = 10 * time.Second

// BuildEngine assembles the gin engine with all public and admin routes.
func BuildEngine(cfg config.Config, conn *gorm.DB) (*gin.Engine, error) {
	engine := gin.New()
	engine.Use(gin.Recovery())

	keymaps := store.NewKeymapStore(conn)
	client := supplier.NewClient(cfg.SupplierTimeout, cfg.SupplierBaseURL)
	service := relay.NewService(keymaps, client)

	public.RegisterPublicRoutes(engine, service)
	if errAdmin := admin.RegisterAdminRoutes(engine, keymaps, client, cfg.AdminSecret); errAdmin != nil {
		return nil, errAdmin
	}
	return engine, nil
}

// RunServer opens the key store, applies migrations and serves HTTP until
// ctx is cancelled.
func RunServer(ctx context.Context, cfg config.Config) error {
	conn, errOpen := db.Open(cfg.DatabaseDSN)
	if errOpen != nil {
		return errOpen
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	engine, errBuild := BuildEngine(cfg, conn)
	if errBuild != nil {
		return errBuild
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: engine,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
			log.WithError(errShutdown).Warn("server shutdown failed")
		}
	}()

	log.Infof("key relay listening on :%d (store=%s)", cfg.Port, cfg.DatabaseDSN)
	if errServe := server.ListenAndServe(); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
		return errServe
	}
	return nil
}
