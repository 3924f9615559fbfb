package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReviewArea is one of the fixed review departments
type ReviewArea string

const (
	AreaArquitectura    ReviewArea = "arquitectura"
	AreaInfraestructura ReviewArea = "infraestructura"
	AreaSeguridad       ReviewArea = "seguridad"
	AreaBaseDatos       ReviewArea = "base_datos"
	AreaIntegraciones   ReviewArea = "integraciones"
	AreaAmbientes       ReviewArea = "ambientes"
	AreaPruebas         ReviewArea = "pruebas"
	AreaMonitoreo       ReviewArea = "monitoreo"
	AreaDocumentacion   ReviewArea = "documentacion"

	// AreaAll is the wildcard used in reviewer access rows
	AreaAll ReviewArea = "all"
)

// PipelineAreas is the fixed review order. Stage rows are created with
// order_sequence 1..len(PipelineAreas) matching this slice.
var PipelineAreas = []ReviewArea{
	AreaArquitectura,
	AreaInfraestructura,
	AreaSeguridad,
	AreaBaseDatos,
	AreaIntegraciones,
	AreaAmbientes,
	AreaPruebas,
	AreaMonitoreo,
	AreaDocumentacion,
}

// stageNames maps each area to its display stage name
var stageNames = map[ReviewArea]string{
	AreaArquitectura:    "Revisión de Arquitectura",
	AreaInfraestructura: "Revisión de Infraestructura",
	AreaSeguridad:       "Revisión de Seguridad",
	AreaBaseDatos:       "Revisión de Base de Datos",
	AreaIntegraciones:   "Revisión de Integraciones",
	AreaAmbientes:       "Revisión de Ambientes",
	AreaPruebas:         "Revisión de Pruebas",
	AreaMonitoreo:       "Revisión de Monitoreo",
	AreaDocumentacion:   "Revisión de Documentación",
}

// StageNameFor returns the display name for an area
func StageNameFor(area ReviewArea) string {
	return stageNames[area]
}

// IsValid reports whether the area is one of the fixed departments
// (the wildcard is not a pipeline area)
func (a ReviewArea) IsValid() bool {
	_, ok := stageNames[a]
	return ok
}

// StageStatus represents the status of a pipeline stage
type StageStatus string

const (
	StageStatusPending    StageStatus = "pending"
	StageStatusInProgress StageStatus = "in_progress"
	StageStatusCompleted  StageStatus = "completed"
	StageStatusFailed     StageStatus = "failed"
)

// IsTerminal reports whether the stage status admits no further transitions
func (s StageStatus) IsTerminal() bool {
	return s == StageStatusCompleted || s == StageStatusFailed
}

// ProjectStage represents one area's review unit within a project pipeline
type ProjectStage struct {
	BaseModel
	ProjectID            uuid.UUID   `gorm:"type:uuid;not null;index:idx_project_stages_project_id;uniqueIndex:uq_project_stages_order,priority:1" json:"project_id"`
	Area                 ReviewArea  `gorm:"type:varchar(50);not null;index:idx_project_stages_area" json:"area"`
	Name                 string      `gorm:"type:varchar(255);not null" json:"name"`
	Status               StageStatus `gorm:"type:varchar(20);not null;default:'pending';index:idx_project_stages_status" json:"status"`
	OrderSequence        int         `gorm:"not null;uniqueIndex:uq_project_stages_order,priority:2" json:"order_sequence"`
	AssignedReviewerID   *uuid.UUID  `gorm:"type:uuid;index:idx_project_stages_reviewer" json:"assigned_reviewer_id,omitempty"`
	StartDate            *time.Time  `gorm:"type:timestamp" json:"start_date,omitempty"`
	EndDate              *time.Time  `gorm:"type:timestamp" json:"end_date,omitempty"`
	DueDate              *time.Time  `gorm:"type:timestamp" json:"due_date,omitempty"`
	CompletionPercentage float64     `gorm:"not null;default:0" json:"completion_percentage"`
	ActualHours          float64     `gorm:"not null;default:0" json:"actual_hours"`
	ReviewerNotes        string      `gorm:"type:text" json:"reviewer_notes"`
	Project              Project     `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"project,omitempty"`
}

// TableName specifies the table name for ProjectStage
func (ProjectStage) TableName() string {
	return "project_stages"
}

// IsOverdue reports whether an active stage has passed its due date.
// Overdue is a read-side computation only; nothing pushes a transition.
func (s *ProjectStage) IsOverdue(now time.Time) bool {
	if s.DueDate == nil || s.Status.IsTerminal() {
		return false
	}
	return now.After(*s.DueDate)
}
