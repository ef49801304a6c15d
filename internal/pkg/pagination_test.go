package pkg

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	dbtest "gorm.io/gorm/utils/tests"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestContext(queryParams url.Values) *gin.Context {
	req := httptest.NewRequest(http.MethodGet, "/?"+queryParams.Encode(), nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	return c
}

// --------------- PageBounds ---------------

func TestPageBounds_Normalize(t *testing.T) {
	t.Run("zero value gets package defaults", func(t *testing.T) {
		b := PageBounds{}.Normalize()
		if b.DefaultPerPage != DefaultPerPage {
			t.Errorf("got default %d, want %d", b.DefaultPerPage, DefaultPerPage)
		}
		if b.MaxPerPage != MaxPerPage {
			t.Errorf("got max %d, want %d", b.MaxPerPage, MaxPerPage)
		}
		if b.DefaultSort != DefaultSort {
			t.Errorf("got sort %q, want %q", b.DefaultSort, DefaultSort)
		}
	})

	t.Run("configured values survive", func(t *testing.T) {
		b := PageBounds{DefaultPerPage: 25, MaxPerPage: 50, DefaultSort: "name:asc"}.Normalize()
		if b.DefaultPerPage != 25 || b.MaxPerPage != 50 || b.DefaultSort != "name:asc" {
			t.Errorf("configured bounds changed: %+v", b)
		}
	})

	t.Run("default above max is pulled down", func(t *testing.T) {
		b := PageBounds{DefaultPerPage: 500, MaxPerPage: 50}.Normalize()
		if b.DefaultPerPage != 50 {
			t.Errorf("got default %d, want 50", b.DefaultPerPage)
		}
	})
}

func TestClampPage(t *testing.T) {
	tests := []struct {
		page int
		want int
	}{
		{-5, 1},
		{0, 1},
		{1, 1},
		{42, 42},
	}
	for _, tt := range tests {
		if got := ClampPage(tt.page); got != tt.want {
			t.Errorf("ClampPage(%d) = %d, want %d", tt.page, got, tt.want)
		}
	}
}

func TestClampPerPage(t *testing.T) {
	b := PageBounds{DefaultPerPage: 10, MaxPerPage: 100}

	tests := []struct {
		name    string
		perPage int
		want    int
	}{
		{"zero falls back to default", 0, 10},
		{"negative falls back to default", -3, 10},
		{"within bounds passes through", 25, 25},
		{"at max passes through", 100, 100},
		{"above max is capped", 1000, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := b.ClampPerPage(tt.perPage); got != tt.want {
				t.Errorf("ClampPerPage(%d) = %d, want %d", tt.perPage, got, tt.want)
			}
		})
	}
}

// --------------- ParsePageRequest ---------------

func TestParsePageRequest_Defaults(t *testing.T) {
	c := newTestContext(url.Values{})
	pr := ParsePageRequest(c, PageBounds{})

	if pr.Page != 1 {
		t.Errorf("expected Page=1, got %d", pr.Page)
	}
	if pr.PerPage != DefaultPerPage {
		t.Errorf("expected PerPage=%d, got %d", DefaultPerPage, pr.PerPage)
	}
	if pr.Sort != DefaultSort {
		t.Errorf("expected Sort=%s, got %s", DefaultSort, pr.Sort)
	}
	if pr.IncludeDeleted {
		t.Error("expected IncludeDeleted=false by default")
	}
	if len(pr.Filter) != 0 {
		t.Errorf("expected empty Filter, got %v", pr.Filter)
	}
}

func TestParsePageRequest_CustomValues(t *testing.T) {
	c := newTestContext(url.Values{
		"page":            {"3"},
		"per_page":        {"50"},
		"sort":            {"title:asc"},
		"include_deleted": {"true"},
		"query":           {"report"},
		"priority":        {"2"},
		"title__like":     {"weekly"},
	})
	pr := ParsePageRequest(c, PageBounds{})

	if pr.Page != 3 {
		t.Errorf("expected Page=3, got %d", pr.Page)
	}
	if pr.PerPage != 50 {
		t.Errorf("expected PerPage=50, got %d", pr.PerPage)
	}
	if pr.Sort != "title:asc" {
		t.Errorf("expected Sort=title:asc, got %s", pr.Sort)
	}
	if !pr.IncludeDeleted {
		t.Error("expected IncludeDeleted=true")
	}
	if pr.Search != "report" {
		t.Errorf("expected Search=report, got %s", pr.Search)
	}
	if pr.Filter["priority"] != "2" {
		t.Errorf("expected Filter[priority]=2, got %s", pr.Filter["priority"])
	}
	if pr.Filter["title__like"] != "weekly" {
		t.Errorf("expected Filter[title__like]=weekly, got %s", pr.Filter["title__like"])
	}
	if _, ok := pr.Filter["query"]; ok {
		t.Error("reserved param 'query' must not leak into Filter")
	}
}

func TestParsePageRequest_Clamping(t *testing.T) {
	t.Run("page below minimum", func(t *testing.T) {
		c := newTestContext(url.Values{"page": {"0"}})
		pr := ParsePageRequest(c, PageBounds{})
		if pr.Page != 1 {
			t.Errorf("expected Page=1, got %d", pr.Page)
		}
	})

	t.Run("negative page", func(t *testing.T) {
		c := newTestContext(url.Values{"page": {"-7"}})
		pr := ParsePageRequest(c, PageBounds{})
		if pr.Page != 1 {
			t.Errorf("expected Page=1, got %d", pr.Page)
		}
	})

	t.Run("per_page zero falls back to default", func(t *testing.T) {
		c := newTestContext(url.Values{"per_page": {"0"}})
		pr := ParsePageRequest(c, PageBounds{})
		if pr.PerPage != DefaultPerPage {
			t.Errorf("expected PerPage=%d, got %d", DefaultPerPage, pr.PerPage)
		}
	})

	t.Run("per_page above max is capped", func(t *testing.T) {
		c := newTestContext(url.Values{"per_page": {"1000"}})
		pr := ParsePageRequest(c, PageBounds{})
		if pr.PerPage != MaxPerPage {
			t.Errorf("expected PerPage=%d, got %d", MaxPerPage, pr.PerPage)
		}
	})

	t.Run("custom bounds apply", func(t *testing.T) {
		bounds := PageBounds{DefaultPerPage: 20, MaxPerPage: 40}
		c := newTestContext(url.Values{"per_page": {"999"}})
		pr := ParsePageRequest(c, bounds)
		if pr.PerPage != 40 {
			t.Errorf("expected PerPage=40, got %d", pr.PerPage)
		}
	})
}

func TestParseQuery_EmptyFilterValuesIgnored(t *testing.T) {
	c := newTestContext(url.Values{"status": {""}})
	q := ParseQuery(c)
	if _, ok := q.Filter["status"]; ok {
		t.Error("expected empty filter value to be dropped")
	}
}

// --------------- helpers for GORM scope tests ---------------

func newScopeDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(dbtest.DummyDialector{}, &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	return db
}

// --------------- LiveOnly scope ---------------

func TestLiveOnly(t *testing.T) {
	t.Run("default restricts to live records", func(t *testing.T) {
		db := LiveOnly(false)(newScopeDB(t))
		if _, hasWhere := db.Statement.Clauses["WHERE"]; !hasWhere {
			t.Error("expected WHERE clause filtering deleted records")
		}
	})

	t.Run("include_deleted lifts the filter", func(t *testing.T) {
		db := LiveOnly(true)(newScopeDB(t))
		if _, hasWhere := db.Statement.Clauses["WHERE"]; hasWhere {
			t.Error("expected no WHERE clause when deleted records are included")
		}
	})
}

// --------------- Sort scope ---------------

func TestSort(t *testing.T) {
	tests := []struct {
		name    string
		sort    string
		allowed []string
		applied bool
	}{
		{"valid field asc", "title:asc", []string{"title", "priority"}, true},
		{"valid field desc", "id:desc", []string{"id", "title"}, true},
		{"field not in allowed list", "secret:asc", []string{"title"}, false},
		{"malformed no colon", "title", []string{"title"}, false},
		{"empty direction", "title:", []string{"title"}, false},
		{"invalid direction", "title:up", []string{"title"}, false},
		{"sql injection in field", "title;DROP TABLE tasks--:asc", []string{"title"}, false},
		{"sql injection attempt", "1=1;--:asc", []string{"title"}, false},
		{"empty field", ":asc", []string{"title"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Sort(tt.sort, tt.allowed)(newScopeDB(t))
			_, hasOrder := result.Statement.Clauses["ORDER BY"]
			if hasOrder != tt.applied {
				t.Errorf("Order clause applied=%v, want %v", hasOrder, tt.applied)
			}
		})
	}
}

// --------------- Filter scope ---------------

func TestFilter(t *testing.T) {
	tests := []struct {
		name    string
		filter  map[string]string
		allowed []string
		applied bool
	}{
		{"valid exact match", map[string]string{"priority": "3"}, []string{"priority", "title"}, true},
		{"valid like match", map[string]string{"title__like": "report"}, []string{"title"}, true},
		{"field not in allowed", map[string]string{"secret": "x"}, []string{"title"}, false},
		{"like field not in allowed", map[string]string{"secret__like": "x"}, []string{"title"}, false},
		{"sql injection in key", map[string]string{"title;DROP TABLE--": "x"}, []string{"title"}, false},
		{"sql injection with spaces", map[string]string{"title OR 1=1": "x"}, []string{"title"}, false},
		{"empty filter map", map[string]string{}, []string{"title"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Filter(tt.filter, tt.allowed)(newScopeDB(t))
			_, hasWhere := result.Statement.Clauses["WHERE"]
			if hasWhere != tt.applied {
				t.Errorf("Where clause applied=%v, want %v", hasWhere, tt.applied)
			}
		})
	}
}

func TestFilter_MixedValidAndInvalid(t *testing.T) {
	filter := map[string]string{
		"priority": "3",
		"secret":   "x",
	}
	result := Filter(filter, []string{"priority", "title"})(newScopeDB(t))
	if _, hasWhere := result.Statement.Clauses["WHERE"]; !hasWhere {
		t.Error("expected Where clause for the valid filter field")
	}
}

// --------------- Search scope ---------------

func TestSearch(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		fields  []string
		applied bool
	}{
		{"matches configured fields", "report", []string{"title", "notes"}, true},
		{"empty query is a no-op", "", []string{"title"}, false},
		{"no fields is a no-op", "report", nil, false},
		{"invalid field names are skipped", "report", []string{"title;--"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Search(tt.query, tt.fields)(newScopeDB(t))
			_, hasWhere := result.Statement.Clauses["WHERE"]
			if hasWhere != tt.applied {
				t.Errorf("Where clause applied=%v, want %v", hasWhere, tt.applied)
			}
		})
	}
}

// --------------- Paginate scope ---------------

func TestPaginate(t *testing.T) {
	tests := []struct {
		name    string
		page    int
		perPage int
	}{
		{"first page", 1, 10},
		{"second page", 2, 20},
		{"large page number", 100, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Paginate(tt.page, tt.perPage)(newScopeDB(t))
			if _, hasLimit := result.Statement.Clauses["LIMIT"]; !hasLimit {
				t.Error("expected LIMIT clause to be applied")
			}
		})
	}
}
