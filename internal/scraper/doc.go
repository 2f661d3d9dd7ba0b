// Package scraper implements the keyword scan pipeline: the rotation cursor,
// the challenge detector, the per-keyword orchestrator, and the multi-keyword
// coordinator that paces and bounds a scan.
package scraper
