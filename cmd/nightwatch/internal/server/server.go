// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package server exposes nightwatch over HTTP for schedulers and
// dashboards: trigger a run, fetch the latest report, work the alert list
// and scrape metrics.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/alerts"
	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/pipeline"
	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/state"
	"github.com/AleutianAI/nightwatch/pkg/logging"
)

// Runner triggers a run without queueing behind one in progress.
type Runner interface {
	TryRunAction(ctx context.Context, action state.Action) (pipeline.Response, error)
}

// Handlers holds what the routes need.
type Handlers struct {
	Runner    Runner
	Alerts    alerts.Manager
	ReportDir string
	Gatherer  prometheus.Gatherer
	Logger    *logging.Logger
}

// NewRouter builds the gin engine with tracing middleware and all routes.
func NewRouter(serviceName string, h *Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	SetupRoutes(router, h)
	return router
}

// SetupRoutes registers the nightwatch routes on router.
func SetupRoutes(router *gin.Engine, h *Handlers) {
	router.GET("/health", HealthCheck)

	if h.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := router.Group("/v1")
	{
		v1.POST("/run/:action", h.HandleRun())
		v1.GET("/report/latest", h.HandleLatestReport())

		alertRoutes := v1.Group("/alerts")
		{
			alertRoutes.GET("", h.HandleListAlerts())
			alertRoutes.POST("/:id/resolve", h.HandleResolveAlert())
		}
	}
}

// Serve runs router on addr until ctx is cancelled, then shuts down
// gracefully.
func Serve(ctx context.Context, addr string, router http.Handler, logger *logging.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
