package domain

import (
	"math"
	"time"
)

// BaseModel is the common base struct for all managed records. It carries the
// store-assigned identity and the logical-deletion flag. Unlike gorm.Model it
// does not use DeletedAt, so soft deletion stays an explicit column that every
// query filters on rather than implicit framework behavior.
type BaseModel struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	IsDeleted bool      `gorm:"not null;default:false;index" json:"is_deleted"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GetID returns the record's primary key.
func (m *BaseModel) GetID() uint { return m.ID }

// SetID sets the record's primary key.
func (m *BaseModel) SetID(id uint) { m.ID = id }

// Deleted reports whether the record is soft-deleted.
func (m *BaseModel) Deleted() bool { return m.IsDeleted }

// SetDeleted sets the soft-delete flag.
func (m *BaseModel) SetDeleted(deleted bool) { m.IsDeleted = deleted }

// Entity is the contract every managed record satisfies: an opaque identity
// plus the logical-deletion flag. Embedding BaseModel satisfies it.
type Entity interface {
	GetID() uint
	SetID(uint)
	Deleted() bool
	SetDeleted(bool)
}

// Model constrains a pointer to an entity struct. Generic repositories,
// services, and handlers take both the struct type and its pointer type so
// they can allocate records and still call the Entity methods.
type Model[T any] interface {
	*T
	Entity
}

// Query holds the cross-cutting read parameters shared by all list-shaped
// repository operations.
type Query struct {
	// IncludeDeleted lifts the soft-delete filter. Default false: reads never
	// return records with is_deleted = true.
	IncludeDeleted bool

	// Search is matched against the entity's configured search fields.
	Search string

	// Filter holds exact-match (or field__like) conditions keyed by column.
	Filter map[string]string
}

// PageRequest holds pagination and sorting parameters for GetPage.
type PageRequest struct {
	Page    int
	PerPage int
	Sort    string
	Query
}

// PageResult is a bounded, counted slice of a filtered result set.
type PageResult[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Items   []T    `json:"items"`
	Total   int64  `json:"total"`
	Page    int    `json:"page"`
	PerPage int    `json:"per_page"`
	Pages   int    `json:"pages"`
}

// NewPageResult builds a PageResult with computed page count.
func NewPageResult[T any](items []T, total int64, page, perPage int) *PageResult[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if perPage > 0 {
		pages = int(math.Ceil(float64(total) / float64(perPage)))
	}
	return &PageResult[T]{
		Success: true,
		Items:   items,
		Total:   total,
		Page:    page,
		PerPage: perPage,
		Pages:   pages,
	}
}
