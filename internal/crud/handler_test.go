package crud

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/crudbase/internal/pkg"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newNoteRouter wires the full stack (repository, service, handler) over an
// in-memory database and registers it under /api/v1/notes.
func newNoteRouter(t *testing.T, hooks Hooks[note, *note]) *gin.Engine {
	t.Helper()
	db := newTestDB(t)
	repo := NewGormRepository[note, *note](db, noteOptions)
	svc := NewService[note, *note](repo, hooks, pkg.PageBounds{})
	h := NewHandler[note, *note](svc, "notes", pkg.PageBounds{})

	r := gin.New()
	h.Register(r.Group("/api/v1"))
	return r
}

func do(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v\nbody: %s", err, w.Body.String())
	}
	return body
}

func createNote(t *testing.T, r *gin.Engine, title string) uint {
	t.Helper()
	w := do(t, r, http.MethodPost, "/api/v1/notes", fmt.Sprintf(`{"title": %q}`, title))
	if w.Code != http.StatusCreated {
		t.Fatalf("create %q: got status %d: %s", title, w.Code, w.Body.String())
	}
	body := decode(t, w)
	data := body["data"].(map[string]any)
	return uint(data["id"].(float64))
}

func TestHandler_NewHandlerPanicsOnBadInput(t *testing.T) {
	t.Run("nil service", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic for nil service")
			}
		}()
		NewHandler[note, *note](nil, "notes", pkg.PageBounds{})
	})

	t.Run("empty resource", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic for empty resource")
			}
		}()
		svc := newTestService(&fakeRepository{}, Hooks[note, *note]{})
		NewHandler[note, *note](svc, "", pkg.PageBounds{})
	})
}

func TestHandler_CreateAndGet(t *testing.T) {
	r := newNoteRouter(t, Hooks[note, *note]{})

	w := do(t, r, http.MethodPost, "/api/v1/notes", `{"title": "first note", "body": "hello"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("got status %d, want 201: %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["message"] != "Item created successfully" {
		t.Errorf("got message %v", body["message"])
	}
	data := body["data"].(map[string]any)
	if data["id"].(float64) == 0 {
		t.Error("expected assigned id in response")
	}

	w = do(t, r, http.MethodGet, "/api/v1/notes/1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200: %s", w.Code, w.Body.String())
	}
	body = decode(t, w)
	if body["message"] != "Item retrieved successfully" {
		t.Errorf("got message %v", body["message"])
	}
}

func TestHandler_CreateIgnoresClientIdentity(t *testing.T) {
	r := newNoteRouter(t, Hooks[note, *note]{})

	// The payload claims an id and a deleted state; both are overridden.
	w := do(t, r, http.MethodPost, "/api/v1/notes", `{"id": 99, "is_deleted": true, "title": "sneaky"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("got status %d, want 201: %s", w.Code, w.Body.String())
	}
	data := decode(t, w)["data"].(map[string]any)
	if data["id"].(float64) == 99 {
		t.Error("client-supplied id must be ignored")
	}
	if data["is_deleted"].(bool) {
		t.Error("records must be born live")
	}
}

func TestHandler_CreateValidation(t *testing.T) {
	r := newNoteRouter(t, Hooks[note, *note]{})

	w := do(t, r, http.MethodPost, "/api/v1/notes", `{"body": "no title"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400: %s", w.Code, w.Body.String())
	}
	var resp pkg.ValidationErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Success {
		t.Error("expected success=false")
	}
	if _, ok := resp.Errors["title"]; !ok {
		t.Errorf("expected per-field error for 'title', got %v", resp.Errors)
	}
}

func TestHandler_GetByID_Errors(t *testing.T) {
	r := newNoteRouter(t, Hooks[note, *note]{})

	t.Run("missing record is 404", func(t *testing.T) {
		w := do(t, r, http.MethodGet, "/api/v1/notes/999", "")
		if w.Code != http.StatusNotFound {
			t.Fatalf("got status %d, want 404: %s", w.Code, w.Body.String())
		}
		body := decode(t, w)
		if body["message"] != "item with id 999 not found" {
			t.Errorf("got message %v", body["message"])
		}
	})

	t.Run("non-numeric id is 400", func(t *testing.T) {
		w := do(t, r, http.MethodGet, "/api/v1/notes/abc", "")
		if w.Code != http.StatusBadRequest {
			t.Fatalf("got status %d, want 400: %s", w.Code, w.Body.String())
		}
	})

	t.Run("zero id is 400", func(t *testing.T) {
		w := do(t, r, http.MethodGet, "/api/v1/notes/0", "")
		if w.Code != http.StatusBadRequest {
			t.Fatalf("got status %d, want 400: %s", w.Code, w.Body.String())
		}
	})
}

func TestHandler_SoftDeleteRestoreLifecycle(t *testing.T) {
	r := newNoteRouter(t, Hooks[note, *note]{})
	id := createNote(t, r, "lifecycle")
	path := fmt.Sprintf("/api/v1/notes/%d", id)

	// Delete hides the record from ordinary reads.
	w := do(t, r, http.MethodDelete, path, "")
	if w.Code != http.StatusOK {
		t.Fatalf("delete: got status %d: %s", w.Code, w.Body.String())
	}
	if msg := decode(t, w)["message"]; msg != "Item soft deleted successfully" {
		t.Errorf("got message %v", msg)
	}

	if w := do(t, r, http.MethodGet, path, ""); w.Code != http.StatusNotFound {
		t.Fatalf("get after delete: got status %d, want 404", w.Code)
	}

	// But it is still reachable with include_deleted.
	if w := do(t, r, http.MethodGet, path+"?include_deleted=true", ""); w.Code != http.StatusOK {
		t.Fatalf("get include_deleted: got status %d, want 200: %s", w.Code, w.Body.String())
	}

	// Deleting again is a 404: the live record no longer exists.
	if w := do(t, r, http.MethodDelete, path, ""); w.Code != http.StatusNotFound {
		t.Fatalf("second delete: got status %d, want 404: %s", w.Code, w.Body.String())
	}

	// Restore brings it back.
	w = do(t, r, http.MethodPost, path+"/restore", "")
	if w.Code != http.StatusOK {
		t.Fatalf("restore: got status %d: %s", w.Code, w.Body.String())
	}
	if w := do(t, r, http.MethodGet, path, ""); w.Code != http.StatusOK {
		t.Fatalf("get after restore: got status %d, want 200", w.Code)
	}

	// Restoring a live record is a 404.
	w = do(t, r, http.MethodPost, path+"/restore", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("second restore: got status %d, want 404: %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if !strings.Contains(body["message"].(string), "not found or not deleted") {
		t.Errorf("got message %v", body["message"])
	}
}

func TestHandler_ForceDelete(t *testing.T) {
	r := newNoteRouter(t, Hooks[note, *note]{})
	id := createNote(t, r, "doomed")
	path := fmt.Sprintf("/api/v1/notes/%d", id)

	w := do(t, r, http.MethodDelete, path+"/force", "")
	if w.Code != http.StatusOK {
		t.Fatalf("force delete: got status %d: %s", w.Code, w.Body.String())
	}
	if msg := decode(t, w)["message"]; msg != "Item permanently deleted successfully" {
		t.Errorf("got message %v", msg)
	}

	// Gone even past the soft-delete filter.
	w = do(t, r, http.MethodGet, path+"/exists?include_deleted=true", "")
	if w.Code != http.StatusOK {
		t.Fatalf("exists: got status %d: %s", w.Code, w.Body.String())
	}
	data := decode(t, w)["data"].(map[string]any)
	if data["exists"].(bool) {
		t.Error("force-deleted record must not exist in any view")
	}
}

func TestHandler_Update(t *testing.T) {
	r := newNoteRouter(t, Hooks[note, *note]{})
	id := createNote(t, r, "before")
	path := fmt.Sprintf("/api/v1/notes/%d", id)

	w := do(t, r, http.MethodPut, path, `{"title": "after"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update: got status %d: %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["message"] != "Item updated successfully" {
		t.Errorf("got message %v", body["message"])
	}
	data := body["data"].(map[string]any)
	if got := data["title"]; got != "after" {
		t.Errorf("got title %v, want after", got)
	}
	// The response reflects the stored row: timestamps survive the update
	// even though the request payload never carries them.
	createdAt, _ := data["created_at"].(string)
	if ts, err := time.Parse(time.RFC3339Nano, createdAt); err != nil || ts.IsZero() {
		t.Errorf("update response created_at = %q, want the stored timestamp", createdAt)
	}

	// Updating a missing record is 404, even with a valid payload.
	w = do(t, r, http.MethodPut, "/api/v1/notes/999", `{"title": "x"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("update missing: got status %d, want 404: %s", w.Code, w.Body.String())
	}
}

func TestHandler_ListAndPagination(t *testing.T) {
	r := newNoteRouter(t, Hooks[note, *note]{})
	for i := 1; i <= 15; i++ {
		createNote(t, r, fmt.Sprintf("note %02d", i))
	}

	w := do(t, r, http.MethodGet, "/api/v1/notes?page=2&per_page=5&sort=id:asc", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list: got status %d: %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["message"] != "Items retrieved successfully" {
		t.Errorf("got message %v", body["message"])
	}
	if body["total"].(float64) != 15 {
		t.Errorf("got total %v, want 15", body["total"])
	}
	if body["pages"].(float64) != 3 {
		t.Errorf("got pages %v, want 3", body["pages"])
	}
	items := body["items"].([]any)
	if len(items) != 5 {
		t.Fatalf("got %d items, want 5", len(items))
	}
	if first := items[0].(map[string]any)["title"]; first != "note 06" {
		t.Errorf("got first item %v, want 'note 06'", first)
	}

	// Out-of-range paging inputs are clamped, not rejected.
	w = do(t, r, http.MethodGet, "/api/v1/notes?page=0&per_page=100000", "")
	if w.Code != http.StatusOK {
		t.Fatalf("clamped list: got status %d: %s", w.Code, w.Body.String())
	}
	body = decode(t, w)
	if body["page"].(float64) != 1 {
		t.Errorf("got page %v, want 1", body["page"])
	}
	if body["per_page"].(float64) != float64(pkg.MaxPerPage) {
		t.Errorf("got per_page %v, want %d", body["per_page"], pkg.MaxPerPage)
	}
}

func TestHandler_GetAllCountSearchExists(t *testing.T) {
	r := newNoteRouter(t, Hooks[note, *note]{})
	id := createNote(t, r, "weekly report")
	createNote(t, r, "shopping list")

	// Static segments coexist with the :id parameter.
	w := do(t, r, http.MethodGet, "/api/v1/notes/count", "")
	if w.Code != http.StatusOK {
		t.Fatalf("count: got status %d: %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["message"] != "Found 2 items" {
		t.Errorf("got message %v", body["message"])
	}

	w = do(t, r, http.MethodGet, "/api/v1/notes/all", "")
	if w.Code != http.StatusOK {
		t.Fatalf("all: got status %d: %s", w.Code, w.Body.String())
	}
	if msg := decode(t, w)["message"]; msg != "Retrieved 2 items successfully" {
		t.Errorf("got message %v", msg)
	}

	w = do(t, r, http.MethodGet, "/api/v1/notes/search?query=report", "")
	if w.Code != http.StatusOK {
		t.Fatalf("search: got status %d: %s", w.Code, w.Body.String())
	}
	body = decode(t, w)
	if body["message"] != "Search completed successfully" {
		t.Errorf("got message %v", body["message"])
	}
	if body["total"].(float64) != 1 {
		t.Errorf("got total %v, want 1", body["total"])
	}

	w = do(t, r, http.MethodGet, fmt.Sprintf("/api/v1/notes/%d/exists", id), "")
	if w.Code != http.StatusOK {
		t.Fatalf("exists: got status %d: %s", w.Code, w.Body.String())
	}
	if msg := decode(t, w)["message"]; msg != "Item exists" {
		t.Errorf("got message %v", msg)
	}
}

func TestHandler_FilteredList(t *testing.T) {
	r := newNoteRouter(t, Hooks[note, *note]{})
	createNote(t, r, "alpha")
	createNote(t, r, "beta")

	w := do(t, r, http.MethodGet, "/api/v1/notes?title=alpha", "")
	if w.Code != http.StatusOK {
		t.Fatalf("filtered list: got status %d: %s", w.Code, w.Body.String())
	}
	if total := decode(t, w)["total"].(float64); total != 1 {
		t.Errorf("got total %v, want 1", total)
	}

	w = do(t, r, http.MethodGet, "/api/v1/notes?title__like=a", "")
	if w.Code != http.StatusOK {
		t.Fatalf("like-filtered list: got status %d: %s", w.Code, w.Body.String())
	}
	if total := decode(t, w)["total"].(float64); total != 2 {
		t.Errorf("got total %v, want 2", total)
	}
}

func TestHandler_BulkCreate(t *testing.T) {
	r := newNoteRouter(t, Hooks[note, *note]{})

	w := do(t, r, http.MethodPost, "/api/v1/notes/bulk", `[{"title": "a"}, {"title": "b"}, {"title": "c"}]`)
	if w.Code != http.StatusOK {
		t.Fatalf("bulk create: got status %d: %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["message"] != "Successfully created 3 items" {
		t.Errorf("got message %v", body["message"])
	}
	items := body["data"].([]any)
	if len(items) != 3 {
		t.Fatalf("got %d items, want 3", len(items))
	}
	for i, it := range items {
		if it.(map[string]any)["id"].(float64) == 0 {
			t.Errorf("item %d has no assigned id", i)
		}
	}

	// An invalid element rejects the whole batch.
	w = do(t, r, http.MethodPost, "/api/v1/notes/bulk", `[{"title": "ok"}, {"body": "missing title"}]`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid bulk create: got status %d, want 400: %s", w.Code, w.Body.String())
	}
	if w := do(t, r, http.MethodGet, "/api/v1/notes/count", ""); !strings.Contains(w.Body.String(), "Found 3 items") {
		t.Errorf("failed batch must not write partially: %s", w.Body.String())
	}
}

func TestHandler_BulkDelete(t *testing.T) {
	r := newNoteRouter(t, Hooks[note, *note]{})
	id1 := createNote(t, r, "one")
	id2 := createNote(t, r, "two")
	createNote(t, r, "survivor")

	w := do(t, r, http.MethodPost, "/api/v1/notes/bulk-delete",
		fmt.Sprintf(`{"ids": [%d, %d, 999]}`, id1, id2))
	if w.Code != http.StatusOK {
		t.Fatalf("bulk delete: got status %d: %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["message"] != "Successfully deleted 2 items" {
		t.Errorf("got message %v", body["message"])
	}
	if n := body["data"].(map[string]any)["count"].(float64); n != 2 {
		t.Errorf("got count %v, want 2", n)
	}

	// Empty id list fails binding.
	w = do(t, r, http.MethodPost, "/api/v1/notes/bulk-delete", `{"ids": []}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty bulk delete: got status %d, want 400: %s", w.Code, w.Body.String())
	}
}

func TestHandler_GetLogs(t *testing.T) {
	r := newNoteRouter(t, Hooks[note, *note]{})
	id := createNote(t, r, "audited")

	w := do(t, r, http.MethodPut, fmt.Sprintf("/api/v1/notes/%d", id),
		`{"title": "audited twice"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update: got status %d: %s", w.Code, w.Body.String())
	}
	w = do(t, r, http.MethodDelete, fmt.Sprintf("/api/v1/notes/%d", id), "")
	if w.Code != http.StatusOK {
		t.Fatalf("delete: got status %d: %s", w.Code, w.Body.String())
	}

	w = do(t, r, http.MethodGet, "/api/v1/notes/logs", "")
	if w.Code != http.StatusOK {
		t.Fatalf("logs: got status %d: %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["message"] != "Logs retrieved successfully" {
		t.Errorf("got message %v", body["message"])
	}
	if body["total"].(float64) != 3 {
		t.Errorf("got total %v, want 3", body["total"])
	}
	items := body["items"].([]any)
	if len(items) != 3 {
		t.Fatalf("got %d entries, want 3", len(items))
	}
	newest := items[0].(map[string]any)
	if newest["action"] != "delete" {
		t.Errorf("got newest action %v, want delete", newest["action"])
	}
	if newest["record_id"].(float64) != float64(id) {
		t.Errorf("got record_id %v, want %d", newest["record_id"], id)
	}

	// Entries narrow by action through the shared filter params.
	w = do(t, r, http.MethodGet, "/api/v1/notes/logs?action=update", "")
	if w.Code != http.StatusOK {
		t.Fatalf("filtered logs: got status %d: %s", w.Code, w.Body.String())
	}
	body = decode(t, w)
	if body["total"].(float64) != 1 {
		t.Errorf("got total %v, want 1", body["total"])
	}
}
