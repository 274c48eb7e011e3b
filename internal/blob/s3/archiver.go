package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/ideadesk/ideadesk/internal/domain"
)

// ---------------------------------------------------------------------------
// Narrow store interfaces required by the archiver. The archiver only needs
// the query methods it actually calls, not the full domain store interfaces;
// the Postgres stores satisfy these implicitly.
// ---------------------------------------------------------------------------

// ObservationArchiveStore provides read access to price observations for
// archival.
type ObservationArchiveStore interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.PriceObservation, error)
}

// AuditLogger records archive runs.
type AuditLogger interface {
	Log(ctx context.Context, event string, detail map[string]any) error
}

// archivedObservation is the JSONL line shape written to cold storage.
// Decimals serialize as strings so no precision is lost in transit.
type archivedObservation struct {
	ID             string  `json:"id"`
	IdeaID         string  `json:"idea_id"`
	Timestamp      string  `json:"timestamp"`
	PricePrimary   string  `json:"price_primary"`
	PriceSecondary *string `json:"price_secondary,omitempty"`
	Source         string  `json:"source"`
	Note           *string `json:"note,omitempty"`
}

// Archiver exports old price observations to object storage as
// newline-delimited JSON, one file per calendar month under
// "archive/observations/YYYY-MM.jsonl". It never deletes the archived rows;
// trimming the database is a separate, explicit step.
type Archiver struct {
	writer       domain.BlobWriter
	observations ObservationArchiveStore
	audit        AuditLogger
}

// NewArchiver creates an Archiver over the given writer and stores.
func NewArchiver(writer domain.BlobWriter, observations ObservationArchiveStore, audit AuditLogger) *Archiver {
	return &Archiver{
		writer:       writer,
		observations: observations,
		audit:        audit,
	}
}

// ArchiveObservations exports every observation with a timestamp strictly
// before the cutoff and returns the number of rows written. Each run
// rewrites the affected month files in full, so re-running with the same
// cutoff is idempotent at the storage level.
func (a *Archiver) ArchiveObservations(ctx context.Context, before time.Time) (int64, error) {
	observations, err := a.observations.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive: list observations: %w", err)
	}
	if len(observations) == 0 {
		return 0, nil
	}

	// Group by calendar month.
	byMonth := make(map[string][]domain.PriceObservation)
	for _, obs := range observations {
		month := obs.Timestamp.UTC().Format("2006-01")
		byMonth[month] = append(byMonth[month], obs)
	}

	months := make([]string, 0, len(byMonth))
	for month := range byMonth {
		months = append(months, month)
	}
	sort.Strings(months)

	var written int64
	var keys []string
	for _, month := range months {
		key := fmt.Sprintf("archive/observations/%s.jsonl", month)

		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		for _, obs := range byMonth[month] {
			line := archivedObservation{
				ID:           obs.ID,
				IdeaID:       obs.IdeaID,
				Timestamp:    obs.Timestamp.UTC().Format(time.RFC3339),
				PricePrimary: obs.PricePrimary.String(),
				Source:       string(obs.Source),
				Note:         obs.Note,
			}
			if obs.PriceSecondary != nil {
				s := obs.PriceSecondary.String()
				line.PriceSecondary = &s
			}
			if err := enc.Encode(line); err != nil {
				return written, fmt.Errorf("s3blob: archive: encode observation %s: %w", obs.ID, err)
			}
		}

		// Months holding years of daily pair observations can outgrow a
		// single PutObject; switch to multipart past the part-size floor.
		if int64(buf.Len()) > minPartSize {
			err = a.writer.PutMultipart(ctx, key, &buf, minPartSize)
		} else {
			err = a.writer.Put(ctx, key, &buf, "application/x-ndjson")
		}
		if err != nil {
			return written, fmt.Errorf("s3blob: archive: upload %s: %w", key, err)
		}
		written += int64(len(byMonth[month]))
		keys = append(keys, key)
	}

	if err := a.audit.Log(ctx, "observations_archived", map[string]any{
		"count":  written,
		"cutoff": before.UTC().Format(time.RFC3339),
		"keys":   keys,
	}); err != nil {
		return written, fmt.Errorf("s3blob: archive: audit: %w", err)
	}

	return written, nil
}

// Compile-time interface check.
var _ domain.Archiver = (*Archiver)(nil)
