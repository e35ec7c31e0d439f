// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/policyhubhq/assistant-gateway/services/assistant/handlers"
	"github.com/policyhubhq/assistant-gateway/services/assistant/middleware"
	"github.com/policyhubhq/assistant-gateway/services/llm"
)

// Options carries the route-level configuration.
type Options struct {
	Chat          handlers.ChatOptions
	AllowedOrigin string
	EnableMetrics bool
}

// SetupRoutes registers all gateway routes. CORS runs before the rate
// limiter so OPTIONS preflight bypasses every other stage; the limiter runs
// before the handler so denied requests never reach validation or the
// upstream call.
func SetupRoutes(router *gin.Engine, limiter *middleware.Limiter, llmClient llm.ChatClient, opts Options) {
	router.GET("/health", handlers.HealthCheck)
	if opts.EnableMetrics {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	v1 := router.Group("/v1")
	v1.Use(middleware.CORS(opts.AllowedOrigin))
	v1.Use(middleware.RateLimit(limiter))
	{
		v1.POST("/assistant/chat", handlers.HandleChat(llmClient, opts.Chat))
		// Preflight never falls through CORS, but gin needs the route
		// registered to dispatch the OPTIONS method into the group.
		v1.OPTIONS("/assistant/chat", func(c *gin.Context) {})
	}
}
