package core

// reconcile.go joins product records with resolved image records.
//
// Each record's identifiers are resolved once, when the record enters the
// engine: the row id, the store key and a normalized business id taken from
// the first present candidate field. Matching then works only on those
// resolved values. Every image record is consumed by at most one product.

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/JonMunkholm/smartsync/internal/store"
)

// DefaultIDCandidates are the field names searched, in order, for a record's
// business identifier.
var DefaultIDCandidates = []string{"ID", "Id", "id", "productId", "_id"}

// Side names which dataset an unmatched record came from.
type Side string

const (
	SideProduct Side = "product"
	SideImage   Side = "image"
)

// UnmatchedRecord is a record reconciliation could not pair.
type UnmatchedRecord struct {
	Side        Side         `json:"side"`
	Key         string       `json:"key"`
	RowID       string       `json:"rowId,omitempty"`
	ProductName string       `json:"productName"`
	Image       string       `json:"image,omitempty"`
	Cause       string       `json:"cause"`
	Action      string       `json:"action"`
	Record      store.Record `json:"record"`
}

// ReconcileStats summarizes one reconciliation.
type ReconcileStats struct {
	TotalProducts     int                   `json:"totalProducts"`
	TotalImages       int                   `json:"totalImages"`
	Matched           int                   `json:"matched"`
	UnmatchedProducts int                   `json:"unmatchedProducts"`
	UnmatchedImages   int                   `json:"unmatchedImages"`
	MatchRate         float64               `json:"matchRate"`
	MatchRateDisplay  string                `json:"matchRateDisplay"`
	ByStrategy        map[MatchStrategy]int `json:"matchesByStrategy"`
}

// ReconcileResult is the full output of a reconciliation.
type ReconcileResult struct {
	Merged    []MergedRecord    `json:"merged"`
	Unmatched []UnmatchedRecord `json:"unmatched"`
	Stats     ReconcileStats    `json:"stats"`
}

// HasErrors reports whether any record on either side went unmatched.
func (r *ReconcileResult) HasErrors() bool {
	return len(r.Unmatched) > 0
}

// ReconcileConfig names the fields the engine reads.
type ReconcileConfig struct {
	IDCandidates     []string
	RowIDField       string // "rowId"
	ImageValueField  string // image record field holding the resolved reference
	TargetImageField string // product field the image value is written to
	ProductNameField string
	ImageNameField   string // image record field holding the product name
}

// DefaultReconcileConfig matches the collections written by Service.
func DefaultReconcileConfig(roles FieldRoles) ReconcileConfig {
	return ReconcileConfig{
		IDCandidates:     DefaultIDCandidates,
		RowIDField:       "rowId",
		ImageValueField:  "image",
		TargetImageField: roles.Image,
		ProductNameField: roles.Name,
		ImageNameField:   "productName",
	}
}

// keyedRecord is a record with its identifiers resolved.
type keyedRecord struct {
	key        string
	rowID      string
	businessID string
	rec        store.Record
}

func (c ReconcileConfig) resolve(records []store.Record) []keyedRecord {
	out := make([]keyedRecord, len(records))
	for i, r := range records {
		out[i] = keyedRecord{
			key:        r.Key(),
			rowID:      r.String(c.RowIDField),
			businessID: c.businessID(r),
			rec:        r,
		}
	}
	return out
}

func (c ReconcileConfig) businessID(r store.Record) string {
	for _, field := range c.IDCandidates {
		if _, ok := r[field]; !ok {
			continue
		}
		return NormalizeID(r.String(field))
	}
	return ""
}

// NormalizeID lowercases an identifier and drops every non-alphanumeric rune.
func NormalizeID(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, s)
}

// Reconcile pairs products with images: first by exact row id, then by
// normalized business id. Only unused image records are eligible, and empty
// identifiers never match.
func Reconcile(products, images []store.Record, cfg ReconcileConfig) *ReconcileResult {
	a := cfg.resolve(products)
	b := cfg.resolve(images)

	byRowID := make(map[string][]int)
	byBusinessID := make(map[string][]int)
	for j, img := range b {
		if img.rowID != "" {
			byRowID[img.rowID] = append(byRowID[img.rowID], j)
		}
		if img.businessID != "" {
			byBusinessID[img.businessID] = append(byBusinessID[img.businessID], j)
		}
	}
	used := make([]bool, len(b))
	firstUnused := func(candidates []int) int {
		for _, j := range candidates {
			if !used[j] {
				return j
			}
		}
		return -1
	}

	res := &ReconcileResult{
		Merged:    []MergedRecord{},
		Unmatched: []UnmatchedRecord{},
		Stats: ReconcileStats{
			TotalProducts: len(a),
			TotalImages:   len(b),
			ByStrategy:    map[MatchStrategy]int{StrategyRowID: 0, StrategyBusinessID: 0},
		},
	}

	for _, p := range a {
		j, strategy := -1, MatchStrategy("")
		if p.rowID != "" {
			if j = firstUnused(byRowID[p.rowID]); j >= 0 {
				strategy = StrategyRowID
			}
		}
		if j < 0 && p.businessID != "" {
			if j = firstUnused(byBusinessID[p.businessID]); j >= 0 {
				strategy = StrategyBusinessID
			}
		}
		if j < 0 {
			res.Unmatched = append(res.Unmatched, UnmatchedRecord{
				Side:        SideProduct,
				Key:         p.key,
				RowID:       p.rowID,
				ProductName: p.rec.String(cfg.ProductNameField),
				Cause:       "No matching image found",
				Action:      "Add image URL to your data",
				Record:      p.rec,
			})
			continue
		}

		used[j] = true
		res.Merged = append(res.Merged, cfg.merge(p, b[j], strategy))
		res.Stats.ByStrategy[strategy]++
	}

	for j, img := range b {
		if used[j] {
			continue
		}
		name := img.rec.String(cfg.ImageNameField)
		if name == "" {
			name = "Unmatched Image"
		}
		res.Unmatched = append(res.Unmatched, UnmatchedRecord{
			Side:        SideImage,
			Key:         img.key,
			RowID:       img.rowID,
			ProductName: name,
			Image:       img.rec.String(cfg.ImageValueField),
			Cause:       "Image has no matching product",
			Action:      "Remove the image or add its product",
			Record:      img.rec,
		})
	}

	st := &res.Stats
	st.Matched = len(res.Merged)
	st.UnmatchedProducts = st.TotalProducts - st.Matched
	st.UnmatchedImages = st.TotalImages - st.Matched
	if st.TotalProducts > 0 {
		st.MatchRate = float64(st.Matched) / float64(st.TotalProducts) * 100
	}
	st.MatchRateDisplay = fmt.Sprintf("%.1f%%", st.MatchRate)

	return res
}

// merge overlays the image reference onto a copy of the product fields.
func (c ReconcileConfig) merge(p, img keyedRecord, strategy MatchStrategy) MergedRecord {
	fields := make(map[string]any, len(p.rec)+1)
	for k, v := range p.rec {
		if k == store.KeyField {
			continue
		}
		fields[k] = v
	}
	if v, ok := img.rec[c.ImageValueField]; ok {
		fields[c.TargetImageField] = v
	}
	return MergedRecord{
		RowID:      p.rowID,
		ProductKey: p.key,
		ImageKey:   img.key,
		Strategy:   strategy,
		Fields:     fields,
	}
}
