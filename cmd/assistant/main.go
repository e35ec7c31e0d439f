// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command assistant starts the PolicyHub assistant gateway HTTP server.
//
// It reads configuration from environment variables and starts the server.
//
// # Environment Variables
//
//   - ASSISTANT_PORT: HTTP server port (default: 12310)
//   - ASSISTANT_BACKEND: upstream provider - azure, openai (default: azure)
//   - AZURE_OPENAI_ENDPOINT: Azure OpenAI resource endpoint
//   - AZURE_OPENAI_API_KEY: upstream credential
//   - AZURE_OPENAI_DEPLOYMENT: deployment or model id (default: gpt-4o-mini)
//   - AZURE_OPENAI_API_VERSION: Azure API version (default: client default)
//   - ASSISTANT_DEFAULT_MAX_TOKENS: default generation budget (default: 1024)
//   - ASSISTANT_MAX_TOKENS_CEILING: platform token ceiling (default: 4096)
//   - ASSISTANT_UPSTREAM_TIMEOUT_SECONDS: upstream call timeout (default: 30)
//   - ASSISTANT_RATE_LIMIT_MAX: requests per window per client (default: 20)
//   - ASSISTANT_RATE_LIMIT_WINDOW_SECONDS: window length (default: 60)
//   - ASSISTANT_ALLOWED_ORIGIN: CORS Allow-Origin (default: *)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector (tracing off when unset)
//
// # Usage
//
//	go build -o assistant ./cmd/assistant
//	./assistant
package main

import (
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/policyhubhq/assistant-gateway/services/assistant"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := assistant.Config{
		Port:             getEnvInt("ASSISTANT_PORT", 12310),
		Backend:          getEnvString("ASSISTANT_BACKEND", "azure"),
		UpstreamEndpoint: os.Getenv("AZURE_OPENAI_ENDPOINT"),
		UpstreamAPIKey:   os.Getenv("AZURE_OPENAI_API_KEY"),
		Deployment:       getEnvString("AZURE_OPENAI_DEPLOYMENT", "gpt-4o-mini"),
		APIVersion:       os.Getenv("AZURE_OPENAI_API_VERSION"),
		DefaultMaxTokens: getEnvInt("ASSISTANT_DEFAULT_MAX_TOKENS", 1024),
		MaxTokensCeiling: getEnvInt("ASSISTANT_MAX_TOKENS_CEILING", 4096),
		UpstreamTimeout:  time.Duration(getEnvInt("ASSISTANT_UPSTREAM_TIMEOUT_SECONDS", 30)) * time.Second,
		RateLimitMax:     getEnvInt("ASSISTANT_RATE_LIMIT_MAX", 20),
		RateLimitWindow:  time.Duration(getEnvInt("ASSISTANT_RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,
		AllowedOrigin:    getEnvString("ASSISTANT_ALLOWED_ORIGIN", "*"),
		OTelEndpoint:     os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	slog.Info("Starting assistant gateway",
		"port", cfg.Port,
		"backend", cfg.Backend,
		"deployment", cfg.Deployment,
		"rate_limit_max", cfg.RateLimitMax,
	)

	svc, err := assistant.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create assistant gateway: %v", err)
	}

	// Run the server (blocks until shutdown)
	if err := svc.Run(); err != nil {
		log.Fatalf("Assistant gateway error: %v", err)
	}
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
