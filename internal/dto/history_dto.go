package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"project-review-api/internal/domain"
)

// HistoryEntryResponse is the API view of one audit trail row
type HistoryEntryResponse struct {
	ID          uuid.UUID        `json:"id"`
	ProjectID   uuid.UUID        `json:"project_id"`
	ActorID     uuid.UUID        `json:"actor_id"`
	ActorType   domain.ActorType `json:"actor_type"`
	Action      string           `json:"action"`
	Description string           `json:"description"`
	BeforeValue json.RawMessage  `json:"before_value,omitempty"`
	AfterValue  json.RawMessage  `json:"after_value,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// PaginatedHistoryResponse wraps a history page
type PaginatedHistoryResponse struct {
	Entries []HistoryEntryResponse `json:"entries"`
	Total   int64                  `json:"total"`
	Page    int                    `json:"page"`
	Limit   int                    `json:"limit"`
}
