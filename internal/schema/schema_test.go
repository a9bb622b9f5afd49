package schema

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogFieldsValid(t *testing.T) {
	require.NoError(t, Validate(CatalogFields))
	assert.Equal(t, []string{FieldName, FieldCategory, FieldUnitPrice, FieldMainImage}, EssentialNames(CatalogFields))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		fields  []Field
		wantErr string
	}{
		{"empty", nil, "no fields"},
		{"unnamed", []Field{{Name: ""}}, "has no name"},
		{"duplicate", []Field{{Name: "a"}, {Name: "a"}}, "defined twice"},
		{"bad flag", []Field{{Name: "a", Flags: []NormalizationFlag{"-X"}}}, "unknown flag"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.fields)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMissingGuidance(t *testing.T) {
	g := Field{Name: "category"}.MissingGuidance()
	assert.Equal(t, "The 'category' field is required but was not found in your CSV", g.Description)
	assert.Equal(t, "Add a column named 'category' to your CSV file with appropriate values", g.Solution)

	custom := Field{Name: "x", Guidance: &Guidance{Description: "needed"}}.MissingGuidance()
	assert.Equal(t, "needed", custom.Description)
	assert.Contains(t, custom.Solution, "'x'")
}

func TestStaticProviderReturnsCopy(t *testing.T) {
	p := NewStaticProvider(nil)
	fields, err := p.Fields(context.Background())
	require.NoError(t, err)
	fields[0].Name = "mutated"

	again, err := p.Fields(context.Background())
	require.NoError(t, err)
	assert.Equal(t, FieldID, again[0].Name)
}

func TestFileProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	doc := `fields:
  - name: sku
    aliases: [code, item code]
  - name: title
    essential: true
    flags: ["-U"]
    guidance:
      description: titles are shown on the storefront
      solution: add a title column
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	p := NewFileProvider(path)
	fields, err := p.Fields(context.Background())
	require.NoError(t, err)
	require.Len(t, fields, 2)
	assert.Equal(t, []string{"code", "item code"}, fields[0].Aliases)
	assert.True(t, fields[1].Essential)
	assert.True(t, fields[1].HasFlag(FlagSeparatorsOnly))
	assert.Equal(t, "add a title column", fields[1].MissingGuidance().Solution)
}

func TestFileProviderMissingFile(t *testing.T) {
	p := NewFileProvider(filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := p.Fields(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read schema file")
}

func TestMarshalRoundTrip(t *testing.T) {
	data, err := Marshal(CatalogFields[:2])
	require.NoError(t, err)
	fields, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, CatalogFields[0].Name, fields[0].Name)
	assert.Equal(t, CatalogFields[1].Aliases, fields[1].Aliases)
}
