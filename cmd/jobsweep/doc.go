// Package main hosts the jobsweep batch scraper entrypoint.
//
// Architecture overview:
//   - Unit matrix: the configuration declares search terms and locations; the orchestrator walks the cross
//     product in input order, one (term, location) unit at a time, on a single shared browser session.
//   - Session lifecycle: internal/session owns the headless Chrome process launched through internal/browser
//     (chromedp). Disconnects are detected by matching error text against configurable markers and repaired by
//     relaunching the process with the same identity settings; a failed relaunch marks the session fatal and
//     every remaining unit fails fast with its own error record.
//   - Navigation protocol: internal/navigate builds the search URL, verifies the browser actually landed on the
//     results path (anti-bot redirects land elsewhere), dismisses the sign-in overlay when present, and waits for
//     the results list to become visible before counting items. Zero items after a settle delay is a valid empty
//     outcome, not a failure.
//   - Extraction & ingestion: internal/extract evaluates an in-page script that maps listing cards to records,
//     stamps the whole unit with one batch timestamp, canonicalizes listing URLs, and drops invalid rows.
//     internal/ingest posts each unit's batch immediately so a later crash cannot lose stored data.
//   - Diagnostics & throttling: internal/diag persists best-effort screenshots through the local blob store at
//     named checkpoints; internal/throttle enforces a randomized pause between units and a process memory ceiling
//     that ends the run early with a clean partial summary.
//   - Configuration & plumbing: Viper populates config from file/env (JOBSWEEP_ prefix); zap provides structured
//     logging tagged with a per-run UUID; Prometheus counters are exported on the optional metrics address.
//
// Quick checklist:
//   - Provide a config file with search.terms, search.locations, and ingest.endpoint; everything else has
//     defaults. Env overrides use the JOBSWEEP_ prefix (for example JOBSWEEP_INGEST_ENDPOINT).
//   - Run locally: go run ./cmd/jobsweep run --config jobsweep.yaml (add --dry-run to preview the unit matrix).
package main
