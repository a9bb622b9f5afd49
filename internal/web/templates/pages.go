package templates

import (
	"context"
	"strings"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/smartsync/internal/schema"
)

// Index is the upload page. It lists the schema so operators can check
// their column names before uploading.
func Index(fields []schema.Field) templ.Component {
	return component(func(_ context.Context, h *htmlWriter) {
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>SmartSync import</title></head><body><main>`)
		h.raw(`<h1>Product import</h1>`)
		h.raw(`<form action="/api/ingest?persist=true" method="post" enctype="multipart/form-data">`)
		h.raw(`<input type="file" name="file" accept=".csv,.xlsx" required> <button type="submit">Upload</button></form>`)
		h.raw(`<h2>Columns</h2><table class="schema"><thead><tr><th>Field</th><th>Also accepted</th><th>Required</th></tr></thead><tbody>`)
		for _, f := range fields {
			h.raw(`<tr><td>`)
			h.text(f.Name)
			h.raw(`</td><td>`)
			h.text(strings.Join(f.Aliases, ", "))
			h.raw(`</td><td>`)
			if f.Essential {
				h.raw(`yes`)
			}
			h.raw(`</td></tr>`)
		}
		h.raw(`</tbody></table></main></body></html>`)
	})
}
