package handler

import (
	"time"

	"github.com/DFE-Digital/teaching-record-system-sub005/internal/reconcile/models"
)

// BatchResponse is one integration transaction with its counters.
type BatchResponse struct {
	ID             string     `json:"id"`
	Feed           string     `json:"feed"`
	FileName       string     `json:"file_name"`
	Status         string     `json:"status"`
	TotalCount     int        `json:"total_count"`
	SuccessCount   int        `json:"success_count"`
	FailureCount   int        `json:"failure_count"`
	DuplicateCount int        `json:"duplicate_count"`
	StartedAt      time.Time  `json:"started_at"`
	SealedAt       *time.Time `json:"sealed_at,omitempty"`
}

type BatchListResponse struct {
	Batches []BatchResponse `json:"batches"`
}

// RecordResponse is one row outcome. Duplicate is omitted when it was never
// evaluated.
type RecordResponse struct {
	RowNumber      int       `json:"row_number"`
	Status         string    `json:"status"`
	PersonID       string    `json:"person_id,omitempty"`
	Duplicate      *bool     `json:"duplicate,omitempty"`
	FailureMessage string    `json:"failure_message,omitempty"`
	RawData        string    `json:"raw_data"`
	CreatedAt      time.Time `json:"created_at"`
}

type RecordListResponse struct {
	BatchID string           `json:"batch_id"`
	Records []RecordResponse `json:"records"`
}

type SupportTaskResponse struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	RowNumber  int       `json:"row_number"`
	Candidates []string  `json:"candidates"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"created_at"`
}

type SupportTaskListResponse struct {
	BatchID string                `json:"batch_id"`
	Tasks   []SupportTaskResponse `json:"support_tasks"`
}

func FromBatch(b *models.Batch) BatchResponse {
	return BatchResponse{
		ID:             b.ID.String(),
		Feed:           b.Feed,
		FileName:       b.FileName,
		Status:         string(b.Status),
		TotalCount:     b.TotalCount,
		SuccessCount:   b.SuccessCount,
		FailureCount:   b.FailureCount,
		DuplicateCount: b.DuplicateCount,
		StartedAt:      b.StartedAt,
		SealedAt:       b.SealedAt,
	}
}

func FromRow(o models.RowOutcome) RecordResponse {
	resp := RecordResponse{
		RowNumber:      o.RowNumber,
		Status:         string(o.Status),
		Duplicate:      o.Duplicate,
		FailureMessage: o.FailureMessage,
		RawData:        o.RawData,
		CreatedAt:      o.CreatedAt,
	}
	if o.PersonID != nil {
		resp.PersonID = o.PersonID.String()
	}
	return resp
}

func FromTask(t models.SupportTask) SupportTaskResponse {
	candidates := make([]string, 0, len(t.Candidates))
	for _, c := range t.Candidates {
		candidates = append(candidates, c.String())
	}
	return SupportTaskResponse{
		ID:         t.ID.String(),
		Type:       string(t.Type),
		RowNumber:  t.RowNumber,
		Candidates: candidates,
		Reason:     t.Reason,
		CreatedAt:  t.CreatedAt,
	}
}
