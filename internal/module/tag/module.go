package tag

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/simp-lee/crudbase/internal/crud"
	"github.com/simp-lee/crudbase/internal/pkg"
)

var (
	sortFields   = []string{"id", "name", "created_at"}
	filterFields = []string{"name", "color"}
	searchFields = []string{"name"}
)

// TagModule implements the app.Module interface for the tag resource.
type TagModule struct {
	handler *crud.Handler[Tag, *Tag]
}

// NewModule wires the tag repository, service, and handler over the given
// database. Panics if db is nil.
func NewModule(db *gorm.DB, bounds pkg.PageBounds) *TagModule {
	if db == nil {
		panic("tag.NewModule: db must not be nil")
	}

	repo := crud.NewGormRepository[Tag, *Tag](db, crud.Options{
		SortFields:   sortFields,
		FilterFields: filterFields,
		SearchFields: searchFields,
		Bounds:       bounds,
	})
	svc := crud.NewService[Tag, *Tag](repo, crud.Hooks[Tag, *Tag]{}, bounds)
	handler := crud.NewHandler[Tag, *Tag](svc, "tags", bounds)

	return &TagModule{handler: handler}
}

// RegisterRoutes registers tag API routes.
func (m *TagModule) RegisterRoutes(api *gin.RouterGroup) {
	m.handler.Register(api)
}
