package core

// header.go reconciles raw source headers against the canonical schema.
//
// Matching runs in two passes. The exact pass looks every default-normalized
// header up in a reverse alias index. The recovery pass then retries the
// essential fields that are still unbound using substring containment against
// the remaining headers. Both passes are deterministic: headers are visited in
// source order and fields in schema order, so the earliest header wins.

import (
	"context"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/JonMunkholm/smartsync/internal/schema"
)

// NormalizeKey applies the default header normalization: diacritics folded,
// lowercased, separators and every other non [a-z0-9] character dropped.
func NormalizeKey(s string) string {
	decomposed := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		r = unicode.ToLower(r)
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// normalizeAlias normalizes an alias according to the owning field's flags.
func normalizeAlias(s string, f schema.Field) string {
	switch {
	case f.HasFlag(schema.FlagStrictAlnum):
		var b strings.Builder
		for _, r := range s {
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
				b.WriteRune(r)
			}
		}
		return strings.ToLower(b.String())
	case f.HasFlag(schema.FlagSeparatorsOnly):
		return stripSeparators(strings.ToLower(s))
	default:
		return NormalizeKey(s)
	}
}

func stripSeparators(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '-' || r == '_' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// aliasIndex is the reverse lookup from normalized alias to canonical field.
type aliasIndex map[string]string

// buildAliasIndex indexes every alias and canonical name. When two fields
// produce the same key the first field in schema order keeps it.
func buildAliasIndex(ctx context.Context, fields []schema.Field) aliasIndex {
	idx := make(aliasIndex)
	add := func(key string, f schema.Field, alias string) {
		if key == "" {
			return
		}
		if owner, ok := idx[key]; ok {
			if owner != f.Name {
				loggerFor(ctx).Warn("schema alias collision",
					"alias", alias,
					"key", key,
					"kept", owner,
					"dropped", f.Name,
				)
			}
			return
		}
		idx[key] = f.Name
	}
	for _, f := range fields {
		add(normalizeAlias(f.Name, f), f, f.Name)
		for _, a := range f.Aliases {
			add(normalizeAlias(a, f), f, a)
		}
	}
	return idx
}

// MapHeaders binds raw headers to canonical fields and reports which
// essential fields could not be bound. It never fails on content: a missing
// header is data, not an error.
func MapHeaders(ctx context.Context, headers []string, fields []schema.Field) (*HeaderMapping, error) {
	if len(fields) == 0 {
		return nil, &StructuralInputError{Input: "schema", Reason: "no fields"}
	}
	if len(headers) == 0 {
		return nil, &StructuralInputError{Input: "headers", Reason: "no headers found"}
	}

	idx := buildAliasIndex(ctx, fields)
	m := &HeaderMapping{
		HeaderMap:       make(HeaderMap, len(fields)),
		EssentialFields: schema.EssentialNames(fields),
	}
	usedHeader := make([]bool, len(headers))

	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = NormalizeKey(h)
	}

	// Exact pass. Headers are looked up under the default key first, then
	// under the separators-only key used by flagged aliases.
	for i, h := range headers {
		field, ok := idx[normalized[i]]
		if !ok {
			field, ok = idx[stripSeparators(strings.ToLower(strings.TrimSpace(h)))]
		}
		if !ok {
			continue
		}
		if _, bound := m.HeaderMap[field]; bound {
			continue
		}
		m.HeaderMap[field] = h
		m.Bindings = append(m.Bindings, HeaderBinding{Field: field, Header: h, Method: BindExact})
		usedHeader[i] = true
	}

	// Recovery pass, essential fields only. The earliest unused header wins.
	for _, f := range fields {
		if !f.Essential {
			continue
		}
		if _, bound := m.HeaderMap[f.Name]; bound {
			continue
		}
		name := NormalizeKey(f.Name)
		candidates := make([]string, 0, len(f.Aliases)+1)
		if name != "" {
			candidates = append(candidates, name)
		}
		for _, a := range f.Aliases {
			if k := NormalizeKey(a); k != "" {
				candidates = append(candidates, k)
			}
		}

		for i, h := range headers {
			if usedHeader[i] || normalized[i] == "" {
				continue
			}
			if !recoverable(normalized[i], name, candidates) {
				continue
			}
			m.HeaderMap[f.Name] = h
			m.Bindings = append(m.Bindings, HeaderBinding{Field: f.Name, Header: h, Method: BindRecovered})
			usedHeader[i] = true
			loggerFor(ctx).Info("recovered header binding",
				"field", f.Name,
				"header", h,
			)
			break
		}
	}

	for i, h := range headers {
		if !usedHeader[i] {
			m.Unmapped = append(m.Unmapped, h)
		}
	}
	for _, name := range m.EssentialFields {
		if _, bound := m.HeaderMap[name]; !bound {
			m.MissingEssentialHeaders = append(m.MissingEssentialHeaders, name)
		}
	}

	return m, nil
}

func recoverable(header, name string, candidates []string) bool {
	if header == name {
		return true
	}
	for _, c := range candidates {
		if strings.Contains(header, c) || strings.Contains(c, header) {
			return true
		}
	}
	return false
}
