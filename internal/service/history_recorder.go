package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"project-review-api/internal/domain"
	"project-review-api/internal/dto"
	"project-review-api/internal/repository"
	"project-review-api/internal/response"
)

// HistoryRecorder appends audit entries for every state transition.
// Record runs inside the caller's transaction so the audit row commits
// atomically with the change it describes.
type HistoryRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, entry HistoryEntry) error
	ListByProject(ctx context.Context, projectID uuid.UUID, page, limit int) (*dto.PaginatedHistoryResponse, error)
}

// HistoryEntry is the input for one audit row
type HistoryEntry struct {
	ProjectID   uuid.UUID
	ActorID     uuid.UUID
	ActorType   domain.ActorType
	Action      string
	Description string
	Before      interface{}
	After       interface{}
}

// historyRecorderImpl is the implementation of HistoryRecorder
type historyRecorderImpl struct {
	historyRepo repository.HistoryRepository
	logger      *zap.Logger
}

// NewHistoryRecorder creates a new instance of HistoryRecorder
func NewHistoryRecorder(historyRepo repository.HistoryRepository, logger *zap.Logger) HistoryRecorder {
	return &historyRecorderImpl{historyRepo: historyRepo, logger: logger}
}

// Record appends one audit entry using the given transaction
func (h *historyRecorderImpl) Record(ctx context.Context, tx *gorm.DB, entry HistoryEntry) error {
	row := &domain.ProjectHistory{
		ProjectID:   entry.ProjectID,
		ActorID:     entry.ActorID,
		ActorType:   entry.ActorType,
		Action:      entry.Action,
		Description: entry.Description,
		BeforeValue: marshalSnapshot(entry.Before),
		AfterValue:  marshalSnapshot(entry.After),
	}
	repo := h.historyRepo
	if tx != nil {
		repo = h.historyRepo.WithTx(tx)
	}
	if err := repo.Create(ctx, row); err != nil {
		h.logger.Error("Failed to record history entry",
			zap.String("project_id", entry.ProjectID.String()),
			zap.String("action", entry.Action),
			zap.Error(err))
		return err
	}
	return nil
}

// ListByProject returns a page of audit entries
func (h *historyRecorderImpl) ListByProject(ctx context.Context, projectID uuid.UUID, page, limit int) (*dto.PaginatedHistoryResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	entries, total, err := h.historyRepo.ListByProject(ctx, projectID, page, limit)
	if err != nil {
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to fetch project history", err.Error())
	}

	responses := make([]dto.HistoryEntryResponse, len(entries))
	for i, e := range entries {
		responses[i] = dto.HistoryEntryResponse{
			ID:          e.ID,
			ProjectID:   e.ProjectID,
			ActorID:     e.ActorID,
			ActorType:   e.ActorType,
			Action:      e.Action,
			Description: e.Description,
			BeforeValue: json.RawMessage(e.BeforeValue),
			AfterValue:  json.RawMessage(e.AfterValue),
			CreatedAt:   e.CreatedAt,
		}
	}
	return &dto.PaginatedHistoryResponse{
		Entries: responses,
		Total:   total,
		Page:    page,
		Limit:   limit,
	}, nil
}

// marshalSnapshot converts a snapshot value to a JSON column value.
// A nil snapshot stays NULL.
func marshalSnapshot(v interface{}) datatypes.JSON {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}
