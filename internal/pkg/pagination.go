package pkg

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/simp-lee/crudbase/internal/domain"
)

const (
	DefaultPage    = 1
	DefaultPerPage = 10
	MaxPerPage     = 100
	DefaultSort    = "id:desc"
)

// PageBounds holds the pagination limits a resource operates under. The
// zero value is usable: Normalize substitutes the package defaults.
type PageBounds struct {
	DefaultPerPage int
	MaxPerPage     int
	DefaultSort    string
}

// Normalize replaces unset bounds with the package defaults.
func (b PageBounds) Normalize() PageBounds {
	if b.DefaultPerPage < 1 {
		b.DefaultPerPage = DefaultPerPage
	}
	if b.MaxPerPage < 1 {
		b.MaxPerPage = MaxPerPage
	}
	if b.DefaultPerPage > b.MaxPerPage {
		b.DefaultPerPage = b.MaxPerPage
	}
	if b.DefaultSort == "" {
		b.DefaultSort = DefaultSort
	}
	return b
}

// ClampPage clamps a page number to >= 1.
func ClampPage(page int) int {
	if page < 1 {
		return DefaultPage
	}
	return page
}

// ClampPerPage clamps a page size into [1, bounds.MaxPerPage]. Values below 1
// silently fall back to the default rather than failing the caller; values
// above the maximum are capped.
func (b PageBounds) ClampPerPage(perPage int) int {
	b = b.Normalize()
	if perPage < 1 {
		return b.DefaultPerPage
	}
	if perPage > b.MaxPerPage {
		return b.MaxPerPage
	}
	return perPage
}

// reservedParams lists query parameter names used for pagination, sorting,
// and deletion visibility, not for filtering.
var reservedParams = map[string]bool{
	"page":            true,
	"per_page":        true,
	"sort":            true,
	"include_deleted": true,
	"query":           true,
}

// validFieldName matches only alphanumeric characters and underscores.
var validFieldName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ParsePageRequest extracts pagination, sorting, search, and filtering
// parameters from query params, clamping page and per_page into bounds.
func ParsePageRequest(c *gin.Context, bounds PageBounds) domain.PageRequest {
	bounds = bounds.Normalize()

	page, _ := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(DefaultPage)))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", strconv.Itoa(bounds.DefaultPerPage)))

	return domain.PageRequest{
		Page:    ClampPage(page),
		PerPage: bounds.ClampPerPage(perPage),
		Sort:    c.DefaultQuery("sort", bounds.DefaultSort),
		Query:   ParseQuery(c),
	}
}

// ParseQuery extracts the deletion-visibility flag, search string, and filter
// map shared by all list-shaped read endpoints.
func ParseQuery(c *gin.Context) domain.Query {
	includeDeleted, _ := strconv.ParseBool(c.DefaultQuery("include_deleted", "false"))

	filter := make(map[string]string)
	for key, values := range c.Request.URL.Query() {
		if reservedParams[key] {
			continue
		}
		if len(values) > 0 && values[0] != "" {
			filter[key] = values[0]
		}
	}

	return domain.Query{
		IncludeDeleted: includeDeleted,
		Search:         c.Query("query"),
		Filter:         filter,
	}
}

// LiveOnly returns a GORM scope restricting the query to records that are not
// soft-deleted. It is composed into every repository query; passing
// includeDeleted=true lifts the restriction explicitly.
func LiveOnly(includeDeleted bool) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if includeDeleted {
			return db
		}
		return db.Where("is_deleted = ?", false)
	}
}

// Paginate returns a GORM scope that applies LIMIT and OFFSET.
func Paginate(page, perPage int) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		offset := (page - 1) * perPage
		return db.Offset(offset).Limit(perPage)
	}
}

// Sort returns a GORM scope that applies ORDER BY from a "field:direction"
// string. Only field names present in the allowed list are accepted; others are
// silently ignored. Field names are validated against a strict pattern to
// prevent SQL injection.
func Sort(sort string, allowed []string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		parts := strings.SplitN(sort, ":", 2)
		if len(parts) != 2 {
			return db
		}

		field := strings.TrimSpace(parts[0])
		direction := strings.TrimSpace(strings.ToLower(parts[1]))

		if direction != "asc" && direction != "desc" {
			return db
		}

		if !validFieldName.MatchString(field) {
			return db
		}

		if !isAllowed(field, allowed) {
			return db
		}

		return db.Order(field + " " + direction)
	}
}

// Filter returns a GORM scope that applies WHERE conditions from the filter
// map. Only keys present in the allowed list are applied; others are silently
// ignored. Keys ending with "__like" produce a LIKE '%value%' condition;
// others use exact match.
func Filter(filter map[string]string, allowed []string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		for key, value := range filter {
			if strings.HasSuffix(key, "__like") {
				field := strings.TrimSuffix(key, "__like")
				if !validFieldName.MatchString(field) {
					continue
				}
				if !isAllowed(field, allowed) {
					continue
				}
				db = db.Where(field+" LIKE ?", "%"+value+"%")
			} else {
				if !validFieldName.MatchString(key) {
					continue
				}
				if !isAllowed(key, allowed) {
					continue
				}
				db = db.Where(key+" = ?", value)
			}
		}
		return db
	}
}

// Search returns a GORM scope that matches the query string against any of
// the given fields with a case-insensitive LIKE. An empty query or empty
// field list leaves the statement unchanged.
func Search(query string, fields []string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if query == "" || len(fields) == 0 {
			return db
		}

		var conds []string
		var args []any
		for _, field := range fields {
			if !validFieldName.MatchString(field) {
				continue
			}
			conds = append(conds, "LOWER("+field+") LIKE ?")
			args = append(args, "%"+strings.ToLower(query)+"%")
		}
		if len(conds) == 0 {
			return db
		}
		return db.Where(strings.Join(conds, " OR "), args...)
	}
}

// isAllowed checks if a field name is in the allowed list.
func isAllowed(field string, allowed []string) bool {
	return slices.Contains(allowed, field)
}
