// Package core provides the business logic for the product-catalog import
// pipeline.
//
// It contains all domain logic independent of any UI or transport layer and
// is used by the web server, the CLI and tests without modification.
//
// # Pipeline
//
// An import runs in stages, each usable on its own:
//
//  1. [MapHeaders] binds raw column names to canonical schema fields in an
//     exact pass followed by a recovery pass for essential fields.
//  2. [RowNormalizer.Normalize] copies bound cells, parses and formats the
//     price, assigns a row id and partitions rows into valid and invalid.
//  3. [Classifier.ClassifyBatch] sorts every image reference into a
//     category, probing unknown https URLs with [HTTPProber].
//  4. [DetermineCase] collapses the categories into a batch case and
//     [BatchSummary.Remediation] names the follow-up action.
//  5. [Reconcile] later joins stored product and image records, first by
//     row id and then by normalized business id.
//
// [Service] ties the stages to a [store.Store] and a [RunLimiter]:
//
//	res, err := svc.Ingest(ctx, table)
//	if err != nil { ... }
//	if res.Outcome == core.OutcomeHeadersMissing {
//	    // show res.MissingHeaders to the operator
//	}
//	_, err = svc.Persist(ctx, res)
//
// # Error Handling
//
// Content problems (missing headers, bad prices, missing values) are data
// on the result, never errors. Errors are reserved for structural input
// problems, store failures and run limits. [MapError] maps them to
// user-facing messages with a support code:
//
//   - INP001, HDR001, ROW001, SCH001: input errors
//   - IMG001, REC001: image and reconciliation outcomes
//   - STO001-STO002, DB004-DB005: store errors
//   - FILE001-FILE005: file errors (size, format, encoding)
//   - UPL002-UPL005: run errors (busy, cancelled, timeout)
//   - ADM001, RATE001: admin and rate limit errors
package core
