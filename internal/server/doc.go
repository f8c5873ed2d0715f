// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server exposes the chat service over HTTP.
//
// # Endpoints
//
//   - POST /api/chat   - streaming chat (data stream protocol v1)
//   - GET  /api/models - supported models
//   - GET  /health     - health check
//   - GET  /stats      - exchange telemetry
//
// A rejected chat request is answered with HTTP 400 and a JSON body
// {"error":{"message","type","code"}} before any provider call. An accepted
// request is answered 200 and streamed frame by frame; failures after that
// point arrive as error frames, never as HTTP status codes.
//
// # Middleware
//
//   - Panic recovery with stack trace logging
//   - Security headers
//   - Request logging (REQUEST lines)
//   - CORS via rs/cors
//   - Per-IP rate limiting on the chat route
//
// # Usage
//
//	srv := server.New(cfg.Server, svc).WithLogger(log).WithRecorder(rec)
//	go srv.Start()
//	defer srv.Shutdown(ctx)
package server
