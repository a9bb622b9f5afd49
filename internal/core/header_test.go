package core

import (
	"context"
	"reflect"
	"testing"

	"github.com/JonMunkholm/smartsync/internal/schema"
)

// ============================================================================
// NormalizeKey Tests
// ============================================================================

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Product Name", "productname"},
		{"  Unit_Price-($) ", "unitprice"},
		{"Café Name", "cafename"},
		{"mainImg", "mainimg"},
		{"---", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeKey(tt.in); got != tt.want {
			t.Errorf("NormalizeKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeAlias_Flags(t *testing.T) {
	strict := schema.Field{Name: "p", Flags: []schema.NormalizationFlag{schema.FlagStrictAlnum}}
	seps := schema.Field{Name: "w", Flags: []schema.NormalizationFlag{schema.FlagSeparatorsOnly}}

	if got := normalizeAlias("Unit Price ($)", strict); got != "unitprice" {
		t.Errorf("strict alias = %q, want %q", got, "unitprice")
	}
	if got := normalizeAlias("Weight (g)", seps); got != "weight(g)" {
		t.Errorf("separators-only alias = %q, want %q", got, "weight(g)")
	}
}

// ============================================================================
// MapHeaders Tests
// ============================================================================

func TestMapHeaders_ExactAliases(t *testing.T) {
	headers := []string{"Product Name", "Category", "Unit Price ($)", "Image URL", "SKU"}
	m, err := MapHeaders(context.Background(), headers, schema.CatalogFields)
	if err != nil {
		t.Fatalf("MapHeaders() error = %v", err)
	}

	want := HeaderMap{
		"name":      "Product Name",
		"category":  "Category",
		"unitPrice": "Unit Price ($)",
		"mainImg":   "Image URL",
		"ID":        "SKU",
	}
	if !reflect.DeepEqual(m.HeaderMap, want) {
		t.Errorf("HeaderMap = %v, want %v", m.HeaderMap, want)
	}
	if !m.Complete() {
		t.Errorf("Complete() = false, missing %v", m.MissingEssentialHeaders)
	}
	if len(m.Recovered()) != 0 {
		t.Errorf("Recovered() = %v, want none", m.Recovered())
	}
	if len(m.Unmapped) != 0 {
		t.Errorf("Unmapped = %v, want none", m.Unmapped)
	}
}

func TestMapHeaders_EarliestHeaderWins(t *testing.T) {
	headers := []string{"Title", "Product Name", "category", "price", "image"}
	m, err := MapHeaders(context.Background(), headers, schema.CatalogFields)
	if err != nil {
		t.Fatalf("MapHeaders() error = %v", err)
	}
	if got := m.HeaderMap["name"]; got != "Title" {
		t.Errorf("name bound to %q, want %q", got, "Title")
	}
	if !reflect.DeepEqual(m.Unmapped, []string{"Product Name"}) {
		t.Errorf("Unmapped = %v, want [Product Name]", m.Unmapped)
	}
}

func TestMapHeaders_RecoveryPass(t *testing.T) {
	headers := []string{"Product Name", "Main Category", "Price", "Image"}
	m, err := MapHeaders(context.Background(), headers, schema.CatalogFields)
	if err != nil {
		t.Fatalf("MapHeaders() error = %v", err)
	}
	if got := m.HeaderMap["category"]; got != "Main Category" {
		t.Errorf("category bound to %q, want %q", got, "Main Category")
	}
	rec := m.Recovered()
	if len(rec) != 1 || rec[0].Field != "category" || rec[0].Method != BindRecovered {
		t.Errorf("Recovered() = %+v, want one recovered category binding", rec)
	}
	if !m.Complete() {
		t.Errorf("Complete() = false, missing %v", m.MissingEssentialHeaders)
	}
}

func TestMapHeaders_RecoveryEarliestHeaderWins(t *testing.T) {
	headers := []string{"name", "price", "image", "Sub Category", "Main Category"}
	m, err := MapHeaders(context.Background(), headers, schema.CatalogFields)
	if err != nil {
		t.Fatalf("MapHeaders() error = %v", err)
	}
	if got := m.HeaderMap["category"]; got != "Sub Category" {
		t.Errorf("category bound to %q, want %q", got, "Sub Category")
	}
	rec := m.Recovered()
	if len(rec) != 1 || rec[0].Header != "Sub Category" {
		t.Errorf("Recovered() = %+v, want only Sub Category", rec)
	}
	if !reflect.DeepEqual(m.Unmapped, []string{"Main Category"}) {
		t.Errorf("Unmapped = %v, want [Main Category]", m.Unmapped)
	}
}

func TestMapHeaders_Idempotent(t *testing.T) {
	headers := []string{"name", "price", "image", "Sub Category", "Main Category"}
	first, err := MapHeaders(context.Background(), headers, schema.CatalogFields)
	if err != nil {
		t.Fatalf("first MapHeaders() error = %v", err)
	}
	second, err := MapHeaders(context.Background(), headers, schema.CatalogFields)
	if err != nil {
		t.Fatalf("second MapHeaders() error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("second mapping = %+v, want %+v", second, first)
	}
}

func TestMapHeaders_RecoverySkipsOptionalFields(t *testing.T) {
	headers := []string{"name", "category", "price", "image", "Stock Level"}
	m, err := MapHeaders(context.Background(), headers, schema.CatalogFields)
	if err != nil {
		t.Fatalf("MapHeaders() error = %v", err)
	}
	if _, ok := m.HeaderMap["inventory"]; ok {
		t.Errorf("inventory bound to %q, want unbound", m.HeaderMap["inventory"])
	}
	if !reflect.DeepEqual(m.Unmapped, []string{"Stock Level"}) {
		t.Errorf("Unmapped = %v, want [Stock Level]", m.Unmapped)
	}
}

func TestMapHeaders_MissingEssential(t *testing.T) {
	headers := []string{"name", "unitPrice", "mainImg"}
	m, err := MapHeaders(context.Background(), headers, schema.CatalogFields)
	if err != nil {
		t.Fatalf("MapHeaders() error = %v", err)
	}
	if m.Complete() {
		t.Fatal("Complete() = true, want false")
	}
	if !reflect.DeepEqual(m.MissingEssentialHeaders, []string{"category"}) {
		t.Errorf("MissingEssentialHeaders = %v, want [category]", m.MissingEssentialHeaders)
	}
}

func TestMapHeaders_EmptyHeaderNeverRecovers(t *testing.T) {
	headers := []string{"", "name", "category", "price"}
	m, err := MapHeaders(context.Background(), headers, schema.CatalogFields)
	if err != nil {
		t.Fatalf("MapHeaders() error = %v", err)
	}
	if !reflect.DeepEqual(m.MissingEssentialHeaders, []string{"mainImg"}) {
		t.Errorf("MissingEssentialHeaders = %v, want [mainImg]", m.MissingEssentialHeaders)
	}
	if !reflect.DeepEqual(m.Unmapped, []string{""}) {
		t.Errorf("Unmapped = %q, want [\"\"]", m.Unmapped)
	}
}

func TestMapHeaders_SeparatorsOnlyAlias(t *testing.T) {
	headers := []string{"name", "category", "price", "image", "Weight (g)"}
	m, err := MapHeaders(context.Background(), headers, schema.CatalogFields)
	if err != nil {
		t.Fatalf("MapHeaders() error = %v", err)
	}
	if got := m.HeaderMap["weight"]; got != "Weight (g)" {
		t.Errorf("weight bound to %q, want %q", got, "Weight (g)")
	}
}

func TestMapHeaders_AliasCollisionFirstFieldWins(t *testing.T) {
	fields := []schema.Field{
		{Name: "a", Aliases: []string{"shared"}},
		{Name: "b", Aliases: []string{"SHARED"}},
	}
	m, err := MapHeaders(context.Background(), []string{"Shared"}, fields)
	if err != nil {
		t.Fatalf("MapHeaders() error = %v", err)
	}
	if got := m.HeaderMap["a"]; got != "Shared" {
		t.Errorf("a bound to %q, want %q", got, "Shared")
	}
	if _, ok := m.HeaderMap["b"]; ok {
		t.Error("b should stay unbound")
	}
}

func TestMapHeaders_StructuralErrors(t *testing.T) {
	ctx := context.Background()

	if _, err := MapHeaders(ctx, nil, schema.CatalogFields); !IsStructural(err) {
		t.Errorf("no headers: error = %v, want structural", err)
	}
	if _, err := MapHeaders(ctx, []string{"name"}, nil); !IsStructural(err) {
		t.Errorf("no fields: error = %v, want structural", err)
	}
}
