// Package main provides the catalogcore read-path HTTP server.
//
// @title catalogcore Read API
// @version 1.0
// @description Read-only catalog search, recommendation, and trending surface
// @description built over a background ingestion/health/rating pipeline.
// @description
// @description ## Rate Limiting
// @description
// @description Requests are capped per client IP using a sliding window;
// @description limits are operator-configured (server.rate_limit_requests,
// @description server.rate_limit_window).
//
// @license.name MIT
//
// @BasePath /api/v1
// @schemes http
package main
