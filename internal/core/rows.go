package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/smartsync/internal/schema"
)

// RowNormalizer reshapes raw rows into canonical records and splits them
// into valid and invalid sets.
type RowNormalizer struct {
	Roles  FieldRoles
	Prices *PriceFormatter

	// NewRowID and Now are replaceable for tests.
	NewRowID func() string
	Now      func() time.Time
}

// NewRowNormalizer returns a normalizer with UUIDv4 row ids.
func NewRowNormalizer(roles FieldRoles, prices *PriceFormatter) *RowNormalizer {
	if prices == nil {
		prices = DefaultPriceFormatter()
	}
	return &RowNormalizer{
		Roles:    roles,
		Prices:   prices,
		NewRowID: uuid.NewString,
		Now:      time.Now,
	}
}

// Normalize copies every bound field out of each row, formats the price,
// assigns a row id and validates essential fields. Rows keyed by raw header
// are read through mapping.HeaderMap.
func (n *RowNormalizer) Normalize(ctx context.Context, fields []schema.Field, mapping *HeaderMapping, rows []map[string]string) (*NormalizeResult, error) {
	if len(fields) == 0 {
		return nil, &StructuralInputError{Input: "schema", Reason: "no fields"}
	}
	if mapping == nil || mapping.HeaderMap == nil {
		return nil, &StructuralInputError{Input: "headers", Reason: "no header mapping"}
	}

	logger := loggerFor(ctx)
	res := &NormalizeResult{
		Valid:   make([]NormalizedRecord, 0, len(rows)),
		Invalid: []InvalidRow{},
	}
	batchStamp := n.Now().UnixMilli()

	// Essential fields validated per row: bound ones only, image exempt.
	var checked []string
	for _, f := range fields {
		if !f.Essential || f.Name == n.Roles.Image {
			continue
		}
		if _, bound := mapping.HeaderMap[f.Name]; bound {
			checked = append(checked, f.Name)
		}
	}

	for i, row := range rows {
		rec := NormalizedRecord{
			RowID:    n.NewRowID(),
			RowIndex: i,
			Fields:   make(map[string]string, len(mapping.HeaderMap)),
		}

		for _, f := range fields {
			header, bound := mapping.HeaderMap[f.Name]
			if !bound {
				continue
			}
			if v, ok := row[header]; ok {
				rec.Fields[f.Name] = v
			}
		}

		if raw, ok := rec.Fields[n.Roles.Price]; ok && strings.TrimSpace(raw) != "" {
			price, err := ParsePrice(raw)
			if err != nil {
				res.Warnings = append(res.Warnings, RowWarning{
					RowID:    rec.RowID,
					RowIndex: i,
					Field:    n.Roles.Price,
					Value:    raw,
					Message:  err.Error(),
				})
				logger.Warn("price not parseable, keeping raw value",
					"row", i,
					"value", raw,
				)
			} else {
				rec.Fields[n.Roles.Price] = price.StringFixed(PriceScale)
				rec.FormattedPrice = n.Prices.Format(price)
			}
		}

		if n.Roles.ProductID != "" && strings.TrimSpace(rec.Fields[n.Roles.ProductID]) == "" {
			rec.GeneratedID = fmt.Sprintf("auto_%d_%d", batchStamp, i)
			rec.Fields[n.Roles.ProductID] = rec.GeneratedID
		}

		for _, name := range checked {
			if strings.TrimSpace(rec.Fields[name]) == "" {
				rec.MissingEssentials = append(rec.MissingEssentials, name)
			}
		}

		if len(rec.MissingEssentials) > 0 {
			res.Invalid = append(res.Invalid, InvalidRow{
				RowIndex:          i,
				Record:            rec,
				MissingEssentials: rec.MissingEssentials,
			})
			continue
		}
		res.Valid = append(res.Valid, rec)
	}

	if len(res.Invalid) > 0 {
		logger.Info("rows missing essential values",
			"invalid", len(res.Invalid),
			"valid", len(res.Valid),
		)
	}

	return res, nil
}
