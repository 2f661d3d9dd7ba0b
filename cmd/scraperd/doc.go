// Package main hosts the scraper service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes status, probe, scan, close, and metrics endpoints on the configured port
//     (overridable via PORT). Scans run one at a time behind the coordinator lock.
//   - Browser: a single persistent Chrome profile is driven through chromedp and relaunched when it stops answering.
//     Every navigation goes through the same tab so cookies from a solved challenge carry over.
//   - Rotation: the cursor is kept in the configured backend (file, memory, Postgres, GCS, or Redis) so successive
//     rotating scans resume where the last one stopped.
//   - Scheduling: with schedule.enabled, a cron loop runs rotating scans over schedule.keywords.
//
// Quick checklist:
//   - Configure env vars: SCRAPER_SERVER_PORT or PORT, SCRAPER_BROWSER_HEADLESS, SCRAPER_CURSOR_BACKEND and the
//     matching SCRAPER_CURSOR_* settings. A .env file in the working directory is loaded first.
//   - Run locally: go run ./cmd/scraperd serve --config config.yaml
//   - One-off scan: go run ./cmd/scraperd scan --keywords n8n,automation --limit 30 --rotate
package main
