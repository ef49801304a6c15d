package tag

import (
	"github.com/simp-lee/crudbase/internal/domain"
)

// Tag is a label that can be attached to other records. It carries no custom
// hooks: the generic pipeline's defaults (no-op validation, identity
// transform) are sufficient, with uniqueness enforced by the database index.
type Tag struct {
	domain.BaseModel
	Name  string `gorm:"size:100;uniqueIndex;not null" json:"name" form:"name" binding:"required,min=1,max=100"`
	Color string `gorm:"size:7" json:"color" form:"color" binding:"omitempty,hexcolor"`
}
