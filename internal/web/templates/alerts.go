package templates

import (
	"context"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/smartsync/internal/core"
)

// ErrorAlert is the fragment HTMX swaps in when a request fails.
func ErrorAlert(message, action, code string) templ.Component {
	return component(func(_ context.Context, h *htmlWriter) {
		h.raw(`<div class="alert alert-error" role="alert"><p class="alert-message">`)
		h.text(message)
		h.raw(`</p>`)
		if action != "" {
			h.raw(`<p class="alert-action">`)
			h.text(action)
			h.raw(`</p>`)
		}
		if code != "" {
			h.raw(`<p class="alert-code">Code: `)
			h.text(code)
			h.raw(`</p>`)
		}
		h.raw(`</div>`)
	})
}

// MissingHeaders lists each missing essential column with its guidance.
func MissingHeaders(missing []core.MissingHeader) templ.Component {
	return component(func(_ context.Context, h *htmlWriter) {
		h.raw(`<div class="alert alert-error" role="alert"><p class="alert-message">Required columns are missing from your file</p><ul class="missing-headers">`)
		for _, m := range missing {
			h.raw(`<li><strong>`)
			h.text(m.Header)
			h.raw(`</strong><p>`)
			h.text(m.Description)
			h.raw(`</p><p class="solution">`)
			h.text(m.Solution)
			h.raw(`</p></li>`)
		}
		h.raw(`</ul></div>`)
	})
}

func notices(h *htmlWriter, ns []core.Notice) {
	if len(ns) == 0 {
		return
	}
	h.raw(`<ul class="notices">`)
	for _, n := range ns {
		h.raw(`<li class="notice notice-`)
		h.text(string(n.Level))
		h.raw(`">`)
		h.text(n.Message)
		h.raw(`</li>`)
	}
	h.raw(`</ul>`)
}
