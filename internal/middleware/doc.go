// Package middleware provides HTTP middleware for the thumbnail service.
//
// It includes:
//   - Request logging in W3C Extended Log Format
//   - Prometheus request metrics labelled by route template
//   - Configurable filtering for image responses and health checks
package middleware
