// Package api hosts the HTTP server, middleware, and handlers for the scraper.
// Routes:
//   - GET / reports service status and whether the browser is connected.
//   - GET /test scrapes the configured probe keyword and returns one sample.
//   - POST /scrape runs a multi-keyword scan, optionally resuming the rotation.
//   - GET /close releases the browser session.
//   - GET /metrics for Prometheus scraping.
package api
