package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/smartsync/internal/schema"
	"github.com/JonMunkholm/smartsync/internal/store"
	"github.com/JonMunkholm/smartsync/internal/tabular"
)

// DefaultRunTimeout bounds a single ingest or reconcile run.
const DefaultRunTimeout = 10 * time.Minute

// Collections names the store collections the pipeline writes.
type Collections struct {
	Products      string
	PendingImages string
	ImageRecords  string
	InvalidRows   string
	Listings      string
}

// DefaultCollections are the collection names used when none are configured.
var DefaultCollections = Collections{
	Products:      "products",
	PendingImages: "pending_images",
	ImageRecords:  "image_records",
	InvalidRows:   "invalid_rows",
	Listings:      "product_listings",
}

// ServiceConfig wires a Service.
type ServiceConfig struct {
	Roles       FieldRoles
	Collections Collections
	Prices      *PriceFormatter
	Classifier  *Classifier
	Limiter     *RunLimiter
	RunTimeout  time.Duration
}

// Service runs the import pipeline: ingest, persist, resolve and reconcile.
type Service struct {
	schemas     schema.Provider
	store       store.Store
	roles       FieldRoles
	collections Collections
	normalizer  *RowNormalizer
	classifier  *Classifier
	limiter     *RunLimiter
	reconcile   ReconcileConfig
	runTimeout  time.Duration
}

// NewService creates a Service. Zero-valued config fields get defaults.
func NewService(schemas schema.Provider, st store.Store, cfg ServiceConfig) (*Service, error) {
	if schemas == nil {
		return nil, errors.New("schema provider is required")
	}
	if st == nil {
		return nil, errors.New("store is required")
	}
	if cfg.Roles == (FieldRoles{}) {
		cfg.Roles = DefaultFieldRoles
	}
	if cfg.Collections == (Collections{}) {
		cfg.Collections = DefaultCollections
	}
	if cfg.Classifier == nil {
		cfg.Classifier = NewClassifier(ClassifierConfig{})
	}
	if cfg.Limiter == nil {
		cfg.Limiter = NewRunLimiter(DefaultMaxConcurrentRuns, DefaultMaxRunWait)
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = DefaultRunTimeout
	}

	return &Service{
		schemas:     schemas,
		store:       st,
		roles:       cfg.Roles,
		collections: cfg.Collections,
		normalizer:  NewRowNormalizer(cfg.Roles, cfg.Prices),
		classifier:  cfg.Classifier,
		limiter:     cfg.Limiter,
		reconcile:   DefaultReconcileConfig(cfg.Roles),
		runTimeout:  cfg.RunTimeout,
	}, nil
}

// Schema returns the active field schema.
func (s *Service) Schema(ctx context.Context) ([]schema.Field, error) {
	return s.schemas.Fields(ctx)
}

// LimiterStatus reports run-slot usage.
func (s *Service) LimiterStatus() RunLimiterStatus {
	return s.limiter.Status()
}

// WaitForRuns blocks until in-flight runs finish or ctx ends.
func (s *Service) WaitForRuns(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// Outcome is the terminal state of an ingest.
type Outcome string

const (
	OutcomeReady          Outcome = "ready"
	OutcomeHeadersMissing Outcome = "headers_missing"
	OutcomeImagesMissing  Outcome = "images_missing"
	OutcomeNoValidRows    Outcome = "no_valid_rows"
)

// MissingHeader is operator guidance for one missing essential header.
type MissingHeader struct {
	Header      string `json:"header"`
	Description string `json:"description"`
	Solution    string `json:"solution"`
}

// IngestResult is everything one ingest learned about a file.
type IngestResult struct {
	RunID           string                `json:"runId"`
	Outcome         Outcome               `json:"outcome"`
	Mapping         *HeaderMapping        `json:"mapping"`
	MissingHeaders  []MissingHeader       `json:"missingHeaders,omitempty"`
	Rows            *NormalizeResult      `json:"rows,omitempty"`
	Classifications []ImageClassification `json:"classifications,omitempty"`
	Batch           *BatchSummary         `json:"batch,omitempty"`
	Remediation     *Remediation          `json:"remediation,omitempty"`
	ParseWarnings   []tabular.Warning     `json:"parseWarnings,omitempty"`
	Notices         []Notice              `json:"notices,omitempty"`
}

// Err returns the error matching a non-ready outcome, or nil.
func (r *IngestResult) Err() error {
	switch r.Outcome {
	case OutcomeHeadersMissing:
		return &MissingHeadersError{Fields: r.Mapping.MissingEssentialHeaders}
	case OutcomeNoValidRows:
		return ErrNoValidRows
	case OutcomeImagesMissing:
		return ErrNoImages
	}
	return nil
}

// Ingest maps headers, normalizes rows, classifies images and routes the
// batch. Missing essential headers stop the run before any row is touched.
func (s *Service) Ingest(ctx context.Context, table *tabular.Table) (*IngestResult, error) {
	if table == nil {
		return nil, &StructuralInputError{Input: "rows", Reason: "no table"}
	}

	var result *IngestResult
	err := s.limiter.Do(ctx, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, s.runTimeout)
		defer cancel()

		var err error
		result, err = s.ingest(ctx, table)
		return err
	})
	return result, err
}

func (s *Service) ingest(ctx context.Context, table *tabular.Table) (*IngestResult, error) {
	ctx, run := NewRun(ctx, "ingest")
	run.Logger.Info("ingest started",
		"headers", len(table.Headers),
		"rows", len(table.Rows),
		"encoding", table.Encoding,
	)

	fields, err := s.schemas.Fields(ctx)
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	res := &IngestResult{RunID: run.ID, ParseWarnings: table.Warnings}
	defer func() { res.Notices = run.Notices() }()

	mapping, err := MapHeaders(ctx, table.Headers, fields)
	if err != nil {
		return nil, err
	}
	res.Mapping = mapping
	for _, b := range mapping.Recovered() {
		run.Notify(NoticeInfo, "Matched column %q to field %q", b.Header, b.Field)
	}

	if !mapping.Complete() {
		res.Outcome = OutcomeHeadersMissing
		res.MissingHeaders = missingGuidance(fields, mapping.MissingEssentialHeaders)
		run.Notify(NoticeError, "%v", &MissingHeadersError{Fields: mapping.MissingEssentialHeaders})
		return res, nil
	}

	rows, err := s.normalizer.Normalize(ctx, fields, mapping, table.Rows)
	if err != nil {
		return nil, err
	}
	res.Rows = rows
	for _, w := range rows.Warnings {
		run.Notify(NoticeWarning, "Row %d: %s kept as %q (%s)", w.RowIndex+1, w.Field, w.Value, w.Message)
	}
	if n := len(rows.Invalid); n > 0 {
		run.Notify(NoticeWarning, "%d rows are missing required values and were set aside", n)
	}

	if len(rows.Valid) == 0 {
		res.Outcome = OutcomeNoValidRows
		run.Notify(NoticeError, "No valid rows found")
		return res, nil
	}

	res.Classifications = s.classifier.ClassifyBatch(ctx, rows.Valid, s.roles.Image)
	batch := DetermineCase(res.Classifications)
	remedy := batch.Remediation()
	res.Batch, res.Remediation = &batch, &remedy

	if batch.Case == CaseNoImages {
		res.Outcome = OutcomeImagesMissing
		run.Notify(NoticeWarning, "%s", remedy.Instructions)
	} else {
		res.Outcome = OutcomeReady
	}

	run.Logger.Info("ingest finished",
		"outcome", res.Outcome,
		"valid", len(rows.Valid),
		"invalid", len(rows.Invalid),
		"case", batch.Case,
		"duration_ms", run.Elapsed().Milliseconds(),
	)
	return res, nil
}

func missingGuidance(fields []schema.Field, missing []string) []MissingHeader {
	byName := make(map[string]schema.Field, len(fields))
	for _, f := range fields {
		byName[f.Name] = f
	}
	out := make([]MissingHeader, 0, len(missing))
	for _, name := range missing {
		f, ok := byName[name]
		if !ok {
			f = schema.Field{Name: name}
		}
		g := f.MissingGuidance()
		out = append(out, MissingHeader{Header: name, Description: g.Description, Solution: g.Solution})
	}
	return out
}
