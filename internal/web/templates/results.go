package templates

import (
	"context"
	"sort"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/smartsync/internal/core"
)

// IngestSummary renders the outcome of one ingest. persisted is nil for a
// dry run.
func IngestSummary(res *core.IngestResult, persisted *core.PersistResult) templ.Component {
	return component(func(_ context.Context, h *htmlWriter) {
		h.raw(`<section class="ingest-summary" data-outcome="`)
		h.text(string(res.Outcome))
		h.raw(`"><h2>Import `)
		h.text(string(res.Outcome))
		h.raw(`</h2>`)

		if res.Rows != nil {
			h.raw(`<p class="row-counts">`)
			h.textf("%d valid rows, %d invalid rows", len(res.Rows.Valid), len(res.Rows.Invalid))
			h.raw(`</p>`)
		}

		if res.Batch != nil {
			h.raw(`<table class="batch"><thead><tr><th>Image category</th><th>Count</th></tr></thead><tbody>`)
			cats := make([]string, 0, len(res.Batch.Counts))
			for c := range res.Batch.Counts {
				cats = append(cats, string(c))
			}
			sort.Strings(cats)
			for _, c := range cats {
				h.raw(`<tr><td>`)
				h.text(c)
				h.raw(`</td><td>`)
				h.textf("%d", res.Batch.Counts[core.ImageCategory(c)])
				h.raw(`</td></tr>`)
			}
			h.raw(`</tbody></table><p class="batch-case">Batch: `)
			h.text(string(res.Batch.Case))
			h.raw(`</p>`)
		}

		if res.Remediation != nil {
			h.raw(`<div class="remediation"><p><strong>Next: `)
			h.text(res.Remediation.NextAction)
			h.raw(`</strong></p><p>`)
			h.text(res.Remediation.Instructions)
			h.raw(`</p></div>`)
		}

		if persisted != nil {
			h.raw(`<p class="persisted">`)
			h.textf("Saved %d products, %d pending images, %d image records, %d invalid rows",
				persisted.Products, persisted.PendingImages, persisted.ImageRecords, persisted.InvalidRows)
			h.raw(`</p>`)
		}

		notices(h, res.Notices)
		h.raw(`</section>`)
	})
}

// ReconcileReport renders match statistics and, when present, the
// unmatched records with their suggested fixes.
func ReconcileReport(report *core.ReconcileReport) templ.Component {
	return component(func(_ context.Context, h *htmlWriter) {
		st := report.Result.Stats
		h.raw(`<section class="reconcile-report"><h2>Match rate `)
		h.text(st.MatchRateDisplay)
		h.raw(`</h2><p>`)
		h.textf("%d of %d products matched to %d images", st.Matched, st.TotalProducts, st.TotalImages)
		h.raw(`</p>`)

		if report.Persisted {
			h.raw(`<p class="persisted">Listings saved</p>`)
		}

		if len(report.Result.Unmatched) > 0 {
			h.raw(`<table class="unmatched"><thead><tr><th>Side</th><th>Product</th><th>Cause</th><th>Action</th></tr></thead><tbody>`)
			for _, u := range report.Result.Unmatched {
				h.raw(`<tr><td>`)
				h.text(string(u.Side))
				h.raw(`</td><td>`)
				h.text(u.ProductName)
				h.raw(`</td><td>`)
				h.text(u.Cause)
				h.raw(`</td><td>`)
				h.text(u.Action)
				h.raw(`</td></tr>`)
			}
			h.raw(`</tbody></table>`)
		}

		notices(h, report.Notices)
		h.raw(`</section>`)
	})
}
