package core

import (
	"context"
	"fmt"
	"time"

	"github.com/JonMunkholm/smartsync/internal/store"
)

// Image record statuses and methods written to the image collection.
const (
	ImageStatusPending   = "pending"
	ImageStatusCompleted = "completed"

	UploadMethodPreConverted = "pre_converted"
	UploadMethodExternal     = "external"
)

// PersistResult counts what Persist wrote.
type PersistResult struct {
	RunID         string `json:"runId"`
	Products      int    `json:"products"`
	PendingImages int    `json:"pendingImages"`
	ImageRecords  int    `json:"imageRecords"`
	InvalidRows   int    `json:"invalidRows"`
}

// Persist splits an ingest into its collections. Each collection is cleared
// and then refilled, so a persisted ingest fully replaces the previous one.
func (s *Service) Persist(ctx context.Context, res *IngestResult) (*PersistResult, error) {
	if res == nil || res.Mapping == nil {
		return nil, &StructuralInputError{Input: "rows", Reason: "no ingest result"}
	}
	if res.Outcome == OutcomeHeadersMissing {
		return nil, &MissingHeadersError{Fields: res.Mapping.MissingEssentialHeaders}
	}
	if res.Rows == nil || len(res.Rows.Valid) == 0 {
		return nil, ErrNoValidRows
	}

	var out *PersistResult
	err := s.limiter.Do(ctx, func(ctx context.Context) error {
		ctx, run := NewRun(ctx, "persist")
		out = &PersistResult{RunID: run.ID}

		products := make([]store.Record, 0, len(res.Rows.Valid))
		byRow := make(map[string]NormalizedRecord, len(res.Rows.Valid))
		for _, rec := range res.Rows.Valid {
			products = append(products, s.productRecord(rec))
			byRow[rec.RowID] = rec
		}

		var pending, images []store.Record
		now := time.Now().UTC().Format(time.RFC3339)
		for _, c := range res.Classifications {
			rec := byRow[c.RowID]
			switch c.Category {
			case CategoryCallable:
				pending = append(pending, store.Record{
					"rowId":       c.RowID,
					"ID":          rec.Fields[s.roles.ProductID],
					"productName": rec.Fields[s.roles.Name],
					"originalUrl": c.Reference,
					"status":      ImageStatusPending,
					"createdAt":   now,
				})
			case CategoryPlatformNative:
				images = append(images, store.Record{
					"rowId":        c.RowID,
					"ID":           rec.Fields[s.roles.ProductID],
					"productName":  rec.Fields[s.roles.Name],
					"image":        c.Reference,
					"originalUrl":  c.Reference,
					"status":       ImageStatusCompleted,
					"uploadMethod": UploadMethodPreConverted,
					"convertedAt":  now,
				})
			}
		}

		invalid := InvalidRowRecords(res.Rows.Invalid)

		var err error
		if out.Products, err = s.replace(ctx, s.collections.Products, products); err != nil {
			return err
		}
		if out.PendingImages, err = s.replace(ctx, s.collections.PendingImages, pending); err != nil {
			return err
		}
		if out.ImageRecords, err = s.replace(ctx, s.collections.ImageRecords, images); err != nil {
			return err
		}
		if out.InvalidRows, err = s.replace(ctx, s.collections.InvalidRows, invalid); err != nil {
			return err
		}

		run.Logger.Info("ingest persisted",
			"ingest_run_id", res.RunID,
			"products", out.Products,
			"pending_images", out.PendingImages,
			"image_records", out.ImageRecords,
			"invalid_rows", out.InvalidRows,
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) productRecord(rec NormalizedRecord) store.Record {
	r := store.Record{"rowId": rec.RowID}
	for k, v := range rec.Fields {
		if k == s.roles.Image {
			continue
		}
		r[k] = v
	}
	if rec.FormattedPrice != "" {
		r["formattedPrice"] = rec.FormattedPrice
	}
	if rec.GeneratedID != "" {
		r["generatedId"] = rec.GeneratedID
	}
	return r
}

func (s *Service) replace(ctx context.Context, collection string, records []store.Record) (int, error) {
	_, inserted, err := store.Replace(ctx, s.store, collection, records)
	if err != nil {
		return 0, fmt.Errorf("replace %s: %w", collection, err)
	}
	return inserted, nil
}

// ResolvedImage reports an image an external uploader finished processing.
type ResolvedImage struct {
	RowID       string `json:"rowId"`
	ID          string `json:"id"`
	ProductName string `json:"productName"`
	Image       string `json:"image"`
	OriginalURL string `json:"originalUrl"`
}

// ResolveImages records resolved images and drops their pending entries.
// It returns the number of image records written.
func (s *Service) ResolveImages(ctx context.Context, resolved []ResolvedImage) (int, error) {
	if len(resolved) == 0 {
		return 0, nil
	}
	pending, err := s.store.Find(ctx, s.collections.PendingImages)
	if err != nil {
		return 0, fmt.Errorf("load pending images: %w", err)
	}
	pendingByRow := make(map[string]string, len(pending))
	for _, p := range pending {
		pendingByRow[p.String("rowId")] = p.Key()
	}

	now := time.Now().UTC().Format(time.RFC3339)
	records := make([]store.Record, 0, len(resolved))
	var done []string
	for _, img := range resolved {
		records = append(records, store.Record{
			"rowId":        img.RowID,
			"ID":           img.ID,
			"productName":  img.ProductName,
			"image":        img.Image,
			"originalUrl":  img.OriginalURL,
			"status":       ImageStatusCompleted,
			"uploadMethod": UploadMethodExternal,
			"convertedAt":  now,
		})
		if key, ok := pendingByRow[img.RowID]; ok && img.RowID != "" {
			done = append(done, key)
		}
	}

	n, err := s.store.BulkInsert(ctx, s.collections.ImageRecords, records)
	if err != nil {
		return 0, fmt.Errorf("insert image records: %w", err)
	}
	if len(done) > 0 {
		if _, err := s.store.BulkRemove(ctx, s.collections.PendingImages, done); err != nil {
			return n, fmt.Errorf("remove pending images: %w", err)
		}
	}
	loggerFor(ctx).Info("images resolved", "inserted", n, "pending_cleared", len(done))
	return n, nil
}

// ReconcileReport is the result of Service.Reconcile.
type ReconcileReport struct {
	RunID     string           `json:"runId"`
	Result    *ReconcileResult `json:"result"`
	Persisted bool             `json:"persisted"`
	Notices   []Notice         `json:"notices,omitempty"`
}

// Err returns ErrUnmatchedRecords with counts when the report has errors.
func (r *ReconcileReport) Err() error {
	if r.Result == nil || !r.Result.HasErrors() {
		return nil
	}
	st := r.Result.Stats
	return fmt.Errorf("%w: %d products, %d images (match rate %s)",
		ErrUnmatchedRecords, st.UnmatchedProducts, st.UnmatchedImages, st.MatchRateDisplay)
}

// Reconcile reads products and image records from one snapshot, joins them
// and, when nothing went unmatched, replaces the listings collection with
// the merged records. A report with errors is returned without writing.
func (s *Service) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	var report *ReconcileReport
	err := s.limiter.Do(ctx, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
		ctx, run := NewRun(ctx, "reconcile")

		snap, err := s.store.Snapshot(ctx, s.collections.Products, s.collections.ImageRecords)
		if err != nil {
			return fmt.Errorf("read reconciliation inputs: %w", err)
		}

		result := Reconcile(snap[s.collections.Products], snap[s.collections.ImageRecords], s.reconcile)
		report = &ReconcileReport{RunID: run.ID, Result: result}

		if result.HasErrors() {
			run.Notify(NoticeWarning, "%d products and %d images could not be matched (match rate %s)",
				result.Stats.UnmatchedProducts, result.Stats.UnmatchedImages, result.Stats.MatchRateDisplay)
		} else {
			listings := make([]store.Record, 0, len(result.Merged))
			for _, m := range result.Merged {
				r := store.Record(m.Fields).Clone()
				r["matchStrategy"] = string(m.Strategy)
				listings = append(listings, r)
			}
			if _, err := s.replace(ctx, s.collections.Listings, listings); err != nil {
				return err
			}
			report.Persisted = true
			run.Notify(NoticeInfo, "%d product listings ready", len(listings))
		}

		run.Logger.Info("reconciliation finished",
			"matched", result.Stats.Matched,
			"unmatched_products", result.Stats.UnmatchedProducts,
			"unmatched_images", result.Stats.UnmatchedImages,
			"match_rate", result.Stats.MatchRateDisplay,
			"persisted", report.Persisted,
		)
		report.Notices = run.Notices()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// Listings returns the persisted merged records.
func (s *Service) Listings(ctx context.Context) ([]store.Record, error) {
	recs, err := s.store.Find(ctx, s.collections.Listings)
	if err != nil {
		return nil, fmt.Errorf("load listings: %w", err)
	}
	return recs, nil
}

// InvalidRows returns the rows set aside by the last persisted ingest.
func (s *Service) InvalidRows(ctx context.Context) ([]store.Record, error) {
	recs, err := s.store.Find(ctx, s.collections.InvalidRows)
	if err != nil {
		return nil, fmt.Errorf("load invalid rows: %w", err)
	}
	return recs, nil
}
