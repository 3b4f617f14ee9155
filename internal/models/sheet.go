package models

import (
	"math"
	"time"
)

// Sheet lifecycle statuses.
const (
	// SheetStatusDraft marks a sheet that is still being edited by its owner.
	SheetStatusDraft = "draft"
	// SheetStatusPendingApproval marks a sheet waiting for an HOD decision.
	SheetStatusPendingApproval = "pending_approval"
	// SheetStatusApproved marks a sheet accepted by an HOD.
	SheetStatusApproved = "approved"
	// SheetStatusRejected marks a sheet returned to its owner for rework.
	SheetStatusRejected = "rejected"
)

// Column is a single scoring dimension on a sheet (question, CLO or PLO).
// The ID is a synthetic identifier assigned at creation time; marks are keyed
// by it so renaming or reordering a column never detaches existing scores.
type Column struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// ColumnList is an ordered set of scoring columns, persisted as JSON.
type ColumnList []Column

// StudentRow is one student's row in the marks matrix. It is embedded in the
// sheet document rather than stored as a standalone entity.
type StudentRow struct {
	RollNumber string             `json:"roll_number"`
	Name       string             `json:"name"`
	Marks      map[string]float64 `json:"marks"`
	TotalMarks float64            `json:"total_marks"`
}

// StudentRows is the ordered student list of a sheet, persisted as JSON.
// Order is insertion order and is never re-sorted.
type StudentRows []StudentRow

// Sheet is an assessment grid owned by a faculty member.
type Sheet struct {
	ID                 uint        `gorm:"primaryKey" json:"id"`
	Name               string      `gorm:"size:255;not null" json:"name"`
	TeacherID          uint        `gorm:"not null;index" json:"teacher_id"`
	TeacherName        string      `gorm:"size:255;not null" json:"teacher_name"`
	Questions          ColumnList  `gorm:"type:json;serializer:json" json:"questions"`
	CLOs               ColumnList  `gorm:"column:clos;type:json;serializer:json" json:"clos"`
	PLOs               ColumnList  `gorm:"column:plos;type:json;serializer:json" json:"plos"`
	Students           StudentRows `gorm:"type:json;serializer:json" json:"students"`
	TotalPossibleMarks float64     `gorm:"not null;default:0" json:"total_possible_marks"`
	Status             string      `gorm:"size:32;not null;index" json:"status"`
	SubmittedAt        *time.Time  `json:"submitted_at"`
	ApprovedAt         *time.Time  `json:"approved_at"`
	ApprovedBy         *uint       `json:"approved_by"`
	ApprovedByName     string      `gorm:"size:255" json:"approved_by_name"`
	RejectionReason    string      `gorm:"type:text" json:"rejection_reason"`
	Version            int64       `gorm:"not null;default:0" json:"version"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

// IsEditable reports whether the sheet's structural fields may still be
// changed by its owner. Approved and pending sheets are frozen.
func (s Sheet) IsEditable() bool {
	return s.Status == SheetStatusDraft || s.Status == SheetStatusRejected
}

// ColumnIDSet returns the identifiers of every scoring column currently on
// the sheet, across questions, CLOs and PLOs.
func (s Sheet) ColumnIDSet() map[string]struct{} {
	ids := make(map[string]struct{}, len(s.Questions)+len(s.CLOs)+len(s.PLOs))
	for _, list := range []ColumnList{s.Questions, s.CLOs, s.PLOs} {
		for _, column := range list {
			ids[column.ID] = struct{}{}
		}
	}
	return ids
}

// RecomputeTotals rewrites every student's derived total from the marks map.
// Mark entries whose column no longer exists are dropped, and non-finite
// values count as zero. Callers must invoke this before every persisted
// write; a client-supplied total is never trusted.
func (s *Sheet) RecomputeTotals() {
	columns := s.ColumnIDSet()
	for i := range s.Students {
		student := &s.Students[i]
		if student.Marks == nil {
			student.Marks = map[string]float64{}
		}
		for key := range student.Marks {
			if _, ok := columns[key]; !ok {
				delete(student.Marks, key)
			}
		}
		var total float64
		for _, mark := range student.Marks {
			if math.IsNaN(mark) || math.IsInf(mark, 0) {
				continue
			}
			total += mark
		}
		student.TotalMarks = total
	}
}
