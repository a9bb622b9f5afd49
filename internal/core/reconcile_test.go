package core

import (
	"testing"

	"github.com/JonMunkholm/smartsync/internal/store"
)

func TestNormalizeID(t *testing.T) {
	tests := []struct{ in, want string }{
		{"SKU-001", "sku001"},
		{" sku 001 ", "sku001"},
		{"Ünï_42", "ünï42"},
		{"--", ""},
	}
	for _, tt := range tests {
		if got := NormalizeID(tt.in); got != tt.want {
			t.Errorf("NormalizeID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestReconcile_RowIDThenBusinessID(t *testing.T) {
	cfg := DefaultReconcileConfig(DefaultFieldRoles)
	products := []store.Record{
		{"_id": "p1", "rowId": "r1", "ID": "SKU-1", "name": "Mug"},
		{"_id": "p2", "rowId": "r2", "ID": "SKU-2", "name": "Lamp"},
	}
	images := []store.Record{
		{"_id": "i1", "rowId": "r1", "ID": "other", "image": "wix:image://mug"},
		{"_id": "i2", "rowId": "", "ID": "sku 2", "image": "wix:image://lamp"},
	}

	res := Reconcile(products, images, cfg)
	if res.HasErrors() {
		t.Fatalf("Unmatched = %+v, want none", res.Unmatched)
	}
	if len(res.Merged) != 2 {
		t.Fatalf("len(Merged) = %d, want 2", len(res.Merged))
	}
	if res.Merged[0].Strategy != StrategyRowID || res.Merged[0].ImageKey != "i1" {
		t.Errorf("Merged[0] = %+v, want rowid match with i1", res.Merged[0])
	}
	if res.Merged[1].Strategy != StrategyBusinessID || res.Merged[1].ImageKey != "i2" {
		t.Errorf("Merged[1] = %+v, want business id match with i2", res.Merged[1])
	}
	if got := res.Merged[0].Fields["mainImg"]; got != "wix:image://mug" {
		t.Errorf("mainImg = %v, want image reference", got)
	}
	if _, ok := res.Merged[0].Fields[store.KeyField]; ok {
		t.Error("merged fields must not carry the product store key")
	}
	if res.Stats.MatchRateDisplay != "100.0%" {
		t.Errorf("MatchRateDisplay = %q, want 100.0%%", res.Stats.MatchRateDisplay)
	}
	if res.Stats.ByStrategy[StrategyRowID] != 1 || res.Stats.ByStrategy[StrategyBusinessID] != 1 {
		t.Errorf("ByStrategy = %v", res.Stats.ByStrategy)
	}
}

func TestReconcile_ImageUsedOnce(t *testing.T) {
	cfg := DefaultReconcileConfig(DefaultFieldRoles)
	products := []store.Record{
		{"_id": "p1", "rowId": "r1", "ID": "A"},
		{"_id": "p2", "rowId": "r2", "ID": "A"},
	}
	images := []store.Record{
		{"_id": "i1", "rowId": "x", "ID": "a", "image": "one.jpg"},
	}

	res := Reconcile(products, images, cfg)
	if len(res.Merged) != 1 {
		t.Fatalf("len(Merged) = %d, want 1", len(res.Merged))
	}
	if res.Merged[0].ProductKey != "p1" {
		t.Errorf("first product should win, got %s", res.Merged[0].ProductKey)
	}
	if res.Stats.UnmatchedProducts != 1 || res.Stats.UnmatchedImages != 0 {
		t.Errorf("Stats = %+v", res.Stats)
	}
}

func TestReconcile_OrphansAndMatchRate(t *testing.T) {
	cfg := DefaultReconcileConfig(DefaultFieldRoles)
	products := []store.Record{
		{"_id": "p1", "rowId": "r1", "ID": "A", "name": "Mug"},
		{"_id": "p2", "rowId": "r2", "ID": "B", "name": "Lamp"},
	}
	images := []store.Record{
		{"_id": "i1", "rowId": "r1", "image": "mug.jpg"},
		{"_id": "i2", "rowId": "r9", "ID": "Z", "image": "ghost.jpg"},
	}

	res := Reconcile(products, images, cfg)
	if !res.HasErrors() {
		t.Fatal("HasErrors() = false, want true")
	}
	if res.Stats.MatchRateDisplay != "50.0%" {
		t.Errorf("MatchRateDisplay = %q, want 50.0%%", res.Stats.MatchRateDisplay)
	}
	if len(res.Unmatched) != 2 {
		t.Fatalf("len(Unmatched) = %d, want 2", len(res.Unmatched))
	}

	prod, img := res.Unmatched[0], res.Unmatched[1]
	if prod.Side != SideProduct || prod.ProductName != "Lamp" || prod.Cause != "No matching image found" {
		t.Errorf("product orphan = %+v", prod)
	}
	if img.Side != SideImage || img.ProductName != "Unmatched Image" || img.Image != "ghost.jpg" {
		t.Errorf("image orphan = %+v", img)
	}
}

func TestReconcile_EmptyIdentifiersNeverMatch(t *testing.T) {
	cfg := DefaultReconcileConfig(DefaultFieldRoles)
	products := []store.Record{{"_id": "p1", "rowId": "", "ID": "--"}}
	images := []store.Record{{"_id": "i1", "rowId": "", "ID": "", "image": "x.jpg"}}

	res := Reconcile(products, images, cfg)
	if len(res.Merged) != 0 {
		t.Errorf("Merged = %+v, want none", res.Merged)
	}
}

func TestReconcile_NoProducts(t *testing.T) {
	res := Reconcile(nil, nil, DefaultReconcileConfig(DefaultFieldRoles))
	if res.Stats.MatchRate != 0 || res.Stats.MatchRateDisplay != "0.0%" {
		t.Errorf("Stats = %+v, want zero match rate", res.Stats)
	}
	if res.HasErrors() {
		t.Error("empty inputs should not report errors")
	}
}
