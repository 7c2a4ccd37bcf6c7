// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/alerts"
	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/pipeline"
	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/report"
	"github.com/AleutianAI/nightwatch/cmd/nightwatch/internal/state"
)

// ResolveRequest is the body of POST /v1/alerts/:id/resolve.
type ResolveRequest struct {
	Resolution string `json:"resolution" binding:"required"`
}

// HealthCheck reports that the process is up.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// HandleRun runs the pipeline for the action in the path. The run is not
// cancelled when the client disconnects.
func (h *Handlers) HandleRun() gin.HandlerFunc {
	return func(c *gin.Context) {
		action, err := state.ParseAction(c.Param("action"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		resp, err := h.Runner.TryRunAction(context.WithoutCancel(c.Request.Context()), action)
		if errors.Is(err, pipeline.ErrRunInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		if err != nil {
			h.Logger.Error("run failed", "action", string(action), "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		status := http.StatusOK
		if !resp.Success {
			status = http.StatusInternalServerError
		}
		c.JSON(status, resp)
	}
}

// HandleLatestReport returns latest.json.
func (h *Handlers) HandleLatestReport() gin.HandlerFunc {
	return func(c *gin.Context) {
		rep, err := report.ReadLatest(h.ReportDir)
		if errors.Is(err, report.ErrNoReport) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, rep)
	}
}

// HandleListAlerts returns alerts; ?active=true limits to unresolved ones.
func (h *Handlers) HandleListAlerts() gin.HandlerFunc {
	return func(c *gin.Context) {
		activeOnly := c.Query("active") == "true"
		list, err := h.Alerts.ListAlerts(c.Request.Context(), activeOnly)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"alerts": list, "count": len(list)})
	}
}

// HandleResolveAlert resolves one alert.
func (h *Handlers) HandleResolveAlert() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ResolveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
			return
		}

		id := c.Param("id")
		resolved, err := h.Alerts.ResolveAlert(c.Request.Context(), id, req.Resolution)
		if errors.Is(err, alerts.ErrAlertNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "id": id})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id, "resolved": resolved})
	}
}
