package task

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/simp-lee/crudbase/internal/crud"
	"github.com/simp-lee/crudbase/internal/domain"
)

const (
	minPriority     = 1
	maxPriority     = 5
	defaultPriority = 3
)

// Task represents a unit of work tracked by the system.
type Task struct {
	domain.BaseModel
	Title    string `gorm:"size:200;not null" json:"title" form:"title" binding:"required,max=200"`
	Notes    string `gorm:"size:2000" json:"notes" form:"notes" binding:"max=2000"`
	Priority int    `gorm:"not null;default:3" json:"priority" form:"priority" binding:"omitempty,min=1,max=5"`
	Done     bool   `gorm:"not null;default:false" json:"done" form:"done"`
}

// newHooks returns the task-specific business rules layered on top of the
// generic pipeline. Only the slots tasks care about are filled.
func newHooks() crud.Hooks[Task, *Task] {
	return crud.Hooks[Task, *Task]{
		ValidateCreate: func(_ context.Context, t *Task) error {
			return validate(t)
		},
		ValidateUpdate: func(_ context.Context, _ uint, t, _ *Task) error {
			return validate(t)
		},
		ValidateForceDelete: func(_ context.Context, _ uint, existing *Task) error {
			// Permanent removal is only allowed for tasks already in the
			// trash; a live task must be soft-deleted first.
			if !existing.Deleted() {
				return domain.NewAppError(domain.CodeValidation,
					"task must be soft deleted before it can be permanently removed", nil)
			}
			return nil
		},
		TransformOne: func(_ context.Context, t *Task) error {
			t.Title = strings.TrimSpace(t.Title)
			t.Notes = strings.TrimSpace(t.Notes)
			return nil
		},
	}
}

// validate normalizes and checks a task before create or update.
func validate(t *Task) error {
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		return domain.NewAppError(domain.CodeValidation, "title is required", nil)
	}
	if utf8.RuneCountInString(t.Title) > 200 {
		return domain.NewAppError(domain.CodeValidation, "title must be at most 200 characters", nil)
	}
	if t.Priority == 0 {
		t.Priority = defaultPriority
	}
	if t.Priority < minPriority || t.Priority > maxPriority {
		return domain.NewAppError(domain.CodeValidation, "priority must be between 1 and 5", nil)
	}
	return nil
}
