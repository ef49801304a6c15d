package task

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/simp-lee/crudbase/internal/crud"
	"github.com/simp-lee/crudbase/internal/pkg"
)

// Allowed fields for sorting, filtering, and search in list queries.
var (
	sortFields   = []string{"id", "title", "priority", "created_at", "updated_at"}
	filterFields = []string{"title", "priority", "done"}
	searchFields = []string{"title", "notes"}
)

// TaskModule implements the app.Module interface for the task resource.
type TaskModule struct {
	handler *crud.Handler[Task, *Task]
}

// NewModule wires the task repository, service, and handler over the given
// database. Panics if db is nil.
func NewModule(db *gorm.DB, bounds pkg.PageBounds) *TaskModule {
	if db == nil {
		panic("task.NewModule: db must not be nil")
	}

	repo := crud.NewGormRepository[Task, *Task](db, crud.Options{
		SortFields:   sortFields,
		FilterFields: filterFields,
		SearchFields: searchFields,
		Bounds:       bounds,
	})
	svc := crud.NewService[Task, *Task](repo, newHooks(), bounds)
	handler := crud.NewHandler[Task, *Task](svc, "tasks", bounds)

	return &TaskModule{handler: handler}
}

// RegisterRoutes registers task API routes.
func (m *TaskModule) RegisterRoutes(api *gin.RouterGroup) {
	m.handler.Register(api)
}
