package domain

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReviewerRole represents the role of a reviewer account
type ReviewerRole string

const (
	RoleAdmin      ReviewerRole = "admin"
	RoleSupervisor ReviewerRole = "supervisor"
	RoleReviewer   ReviewerRole = "reviewer"
)

// IsValid reports whether the role is a known enum value
func (r ReviewerRole) IsValid() bool {
	switch r {
	case RoleAdmin, RoleSupervisor, RoleReviewer:
		return true
	}
	return false
}

// Reviewer represents a departmental reviewer account
type Reviewer struct {
	BaseModel
	Name     string         `gorm:"type:varchar(255);not null" json:"name"`
	Email    string         `gorm:"type:varchar(255);not null;uniqueIndex:uq_reviewers_email" json:"email"`
	Role     ReviewerRole   `gorm:"type:varchar(20);not null;default:'reviewer'" json:"role"`
	IsActive bool           `gorm:"not null;default:true;index:idx_reviewers_active" json:"is_active"`
	Areas    []ReviewerArea `gorm:"foreignKey:ReviewerID;constraint:OnDelete:CASCADE" json:"areas,omitempty"`
}

// TableName specifies the table name for Reviewer
func (Reviewer) TableName() string {
	return "reviewers"
}

// HasAreaAccess reports whether the reviewer may review the given area,
// either through an explicit row or the wildcard row
func (r *Reviewer) HasAreaAccess(area ReviewArea) bool {
	for _, a := range r.Areas {
		if a.Area == area || a.Area == AreaAll {
			return true
		}
	}
	return false
}

// ReviewerArea grants a reviewer access to one review area.
// A row with Area = "all" is the wildcard grant.
type ReviewerArea struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ReviewerID uuid.UUID  `gorm:"type:uuid;not null;index:idx_reviewer_areas_reviewer;uniqueIndex:uq_reviewer_areas,priority:1" json:"reviewer_id"`
	Area       ReviewArea `gorm:"type:varchar(50);not null;index:idx_reviewer_areas_area;uniqueIndex:uq_reviewer_areas,priority:2" json:"area"`
}

// TableName specifies the table name for ReviewerArea
func (ReviewerArea) TableName() string {
	return "reviewer_areas"
}

// BeforeCreate assigns the row ID application-side
func (a *ReviewerArea) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
