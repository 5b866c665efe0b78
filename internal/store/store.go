// Package store persists canonical shift reports behind a driver-agnostic
// interface, with sqlite and postgres backends.
package store

import (
	"context"
	"time"

	"github.com/hongsheng-mining/mill-cli/internal/model"
)

// ReportFilter specifies criteria for listing reports.
type ReportFilter struct {
	From      string `json:"from,omitempty"` // inclusive YYYY-MM-DD
	To        string `json:"to,omitempty"`   // inclusive YYYY-MM-DD
	ShiftType string `json:"shift_type,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
}

// StoredReport is a persisted report with its storage metadata.
type StoredReport struct {
	ID        string              `json:"id"`
	Payload   model.ReportPayload `json:"payload"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// Store defines the persistence interface for shift reports.
// Saving the same (date, shift) pair again replaces the earlier payload,
// so re-importing a corrected spreadsheet is safe.
type Store interface {
	SaveReport(ctx context.Context, p model.ReportPayload) (*StoredReport, error)
	ListReports(ctx context.Context, f ReportFilter) ([]StoredReport, error)

	Migrate(ctx context.Context) error
	Close() error
}
