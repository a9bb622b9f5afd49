package core

import (
	"github.com/JonMunkholm/smartsync/internal/schema"
)

// FieldRoles names the canonical fields the pipeline treats specially.
type FieldRoles struct {
	Price     string // parsed and formatted as currency
	Image     string // classified; exempt from row validation
	ProductID string // business identifier; generated when blank
	Name      string // shown in reconciliation errors
}

// DefaultFieldRoles matches schema.CatalogFields.
var DefaultFieldRoles = FieldRoles{
	Price:     schema.FieldUnitPrice,
	Image:     schema.FieldMainImage,
	ProductID: schema.FieldID,
	Name:      schema.FieldName,
}

// HeaderMap maps canonical field name to the raw header bound to it.
// A field with no entry is unbound.
type HeaderMap map[string]string

// BindMethod records which header-matching pass bound a field.
type BindMethod string

const (
	BindExact     BindMethod = "exact"
	BindRecovered BindMethod = "recovered"
)

// HeaderBinding is one field-to-header decision.
type HeaderBinding struct {
	Field  string     `json:"field"`
	Header string     `json:"header"`
	Method BindMethod `json:"method"`
}

// HeaderMapping is the result of reconciling raw headers against the schema.
type HeaderMapping struct {
	HeaderMap               HeaderMap       `json:"headerMap"`
	Bindings                []HeaderBinding `json:"bindings"`
	Unmapped                []string        `json:"unmappedHeaders,omitempty"`
	EssentialFields         []string        `json:"essentialFields"`
	MissingEssentialHeaders []string        `json:"missingEssentialHeaders,omitempty"`
}

// Complete reports whether every essential field is bound.
func (m *HeaderMapping) Complete() bool {
	return len(m.MissingEssentialHeaders) == 0
}

// Recovered returns the bindings made by the recovery pass.
func (m *HeaderMapping) Recovered() []HeaderBinding {
	var out []HeaderBinding
	for _, b := range m.Bindings {
		if b.Method == BindRecovered {
			out = append(out, b)
		}
	}
	return out
}

// NormalizedRecord is one source row in canonical shape.
type NormalizedRecord struct {
	RowID             string            `json:"rowId"`
	RowIndex          int               `json:"rowIndex"`
	Fields            map[string]string `json:"fields"`
	GeneratedID       string            `json:"generatedId,omitempty"`
	FormattedPrice    string            `json:"formattedPrice,omitempty"`
	MissingEssentials []string          `json:"missingEssentials,omitempty"`
}

// InvalidRow is a row that failed essential-field validation.
type InvalidRow struct {
	RowIndex          int              `json:"rowIndex"`
	Record            NormalizedRecord `json:"record"`
	MissingEssentials []string         `json:"missingEssentials"`
}

// RowWarning is a non-fatal per-row problem, such as an unparseable price.
type RowWarning struct {
	RowID    string `json:"rowId"`
	RowIndex int    `json:"rowIndex"`
	Field    string `json:"field"`
	Value    string `json:"value"`
	Message  string `json:"message"`
}

// NormalizeResult partitions the input rows. Every input row lands in
// exactly one of Valid or Invalid.
type NormalizeResult struct {
	Valid    []NormalizedRecord `json:"valid"`
	Invalid  []InvalidRow       `json:"invalid"`
	Warnings []RowWarning       `json:"warnings,omitempty"`
}

// ImageCategory is the classifier's verdict on one image reference.
type ImageCategory string

const (
	CategoryCallable       ImageCategory = "callable"
	CategoryPlatformNative ImageCategory = "platform_native"
	CategoryLocalFile      ImageCategory = "local_file"
	CategoryEmpty          ImageCategory = "empty"
	CategoryNotCallable    ImageCategory = "not_callable"
)

// ImageClassification pairs a row with its image verdict.
type ImageClassification struct {
	RowID     string        `json:"rowId"`
	Reference string        `json:"reference"`
	Category  ImageCategory `json:"category"`
	Reason    string        `json:"reason"`
}

// BatchCase summarizes a whole batch of classifications.
type BatchCase string

const (
	CaseAllCallable       BatchCase = "all_callable"
	CaseAllPlatformNative BatchCase = "all_platform_native"
	CaseAllLocal          BatchCase = "all_local"
	CaseNoImages          BatchCase = "no_images"
	CaseNoCallable        BatchCase = "no_callable"
	CaseMixed             BatchCase = "mixed"
)

// MatchStrategy names how a product record found its image record.
type MatchStrategy string

const (
	StrategyRowID      MatchStrategy = "rowid_exact"
	StrategyBusinessID MatchStrategy = "business_id_exact"
)

// MergedRecord is a product record joined with its resolved image record.
type MergedRecord struct {
	RowID      string         `json:"rowId"`
	ProductKey string         `json:"productKey"`
	ImageKey   string         `json:"imageKey"`
	Strategy   MatchStrategy  `json:"strategy"`
	Fields     map[string]any `json:"fields"`
}
