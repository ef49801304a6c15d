// Package crud implements the generic data-access and orchestration pipeline:
// a GORM-backed repository, a service layer with overridable hooks, and a gin
// handler, all parameterized by the entity type. Concrete resources supply an
// entity struct embedding domain.BaseModel plus optional hooks and get the
// full REST surface for free.
package crud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/simp-lee/crudbase/internal/domain"
	"github.com/simp-lee/crudbase/internal/pkg"
)

// Repository defines the data access contract for a managed entity type.
// It is the only component permitted to issue store queries; the soft-delete
// filter and paging math live here.
//
// Absence is a value, not an error: GetByID returns (nil, nil) when the id
// has no match. Store-level failures propagate unmodified; the service layer
// owns the error taxonomy.
type Repository[T any, P domain.Model[T]] interface {
	GetByID(ctx context.Context, id uint, includeDeleted bool) (P, error)
	GetAll(ctx context.Context, q domain.Query) ([]T, error)
	GetPage(ctx context.Context, req domain.PageRequest) (*domain.PageResult[T], error)
	GetMany(ctx context.Context, skip, limit int, q domain.Query) ([]T, error)
	Search(ctx context.Context, query string) (*domain.PageResult[T], error)
	Create(ctx context.Context, entity P) error
	Update(ctx context.Context, entity P) error
	SoftDelete(ctx context.Context, id uint) (bool, error)
	Restore(ctx context.Context, id uint) (bool, error)
	ForceDelete(ctx context.Context, id uint) (bool, error)
	Exists(ctx context.Context, id uint, includeDeleted bool) (bool, error)
	Count(ctx context.Context, q domain.Query) (int64, error)
	BulkCreate(ctx context.Context, entities []T) ([]T, error)
	BulkUpdate(ctx context.Context, entities []T) ([]T, error)
	BulkDelete(ctx context.Context, ids []uint) (int64, error)
	BulkForceDelete(ctx context.Context, ids []uint) (int64, error)
	GetLogs(ctx context.Context, req domain.PageRequest) (*domain.PageResult[domain.ChangeLog], error)
}

// Change-log rows expose a fixed, small field set for sorting and filtering.
var (
	logSortFields   = []string{"id", "record_id", "action", "created_at"}
	logFilterFields = []string{"record_id", "action"}
)

// Options configures the per-entity behavior of a repository: which fields
// may be sorted, filtered, and searched, and the paging bounds.
type Options struct {
	SortFields   []string
	FilterFields []string
	SearchFields []string
	Bounds       pkg.PageBounds
}

// GormRepository implements Repository using GORM. Every mutation writes a
// domain.ChangeLog row in the same transaction as the write itself, so the
// audit trail can never drift from the data.
type GormRepository[T any, P domain.Model[T]] struct {
	db    *gorm.DB
	opts  Options
	table string
}

// NewGormRepository creates a Repository for T backed by the given GORM database.
func NewGormRepository[T any, P domain.Model[T]](db *gorm.DB, opts Options) *GormRepository[T, P] {
	opts.Bounds = opts.Bounds.Normalize()
	return &GormRepository[T, P]{db: db, opts: opts, table: tableNameFor[T](db)}
}

// tableNameFor resolves the store table name for T through GORM's naming
// strategy, so change-log rows key on the same name the store uses.
func tableNameFor[T any](db *gorm.DB) string {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(new(T)); err != nil {
		var t T
		return fmt.Sprintf("%T", t)
	}
	return stmt.Schema.Table
}

// query builds the base statement for list-shaped reads: model selection plus
// the mandatory soft-delete scope and the allowlisted filter and search scopes.
func (r *GormRepository[T, P]) query(ctx context.Context, q domain.Query) *gorm.DB {
	return r.db.WithContext(ctx).Model(new(T)).Scopes(
		pkg.LiveOnly(q.IncludeDeleted),
		pkg.Filter(q.Filter, r.opts.FilterFields),
		pkg.Search(q.Search, r.opts.SearchFields),
	)
}

// GetByID retrieves a record by its primary key. A missing record yields
// (nil, nil).
func (r *GormRepository[T, P]) GetByID(ctx context.Context, id uint, includeDeleted bool) (P, error) {
	var item T
	err := r.db.WithContext(ctx).
		Scopes(pkg.LiveOnly(includeDeleted)).
		First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// GetAll returns all matching records, unbounded.
func (r *GormRepository[T, P]) GetAll(ctx context.Context, q domain.Query) ([]T, error) {
	var items []T
	if err := r.query(ctx, q).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// GetPage returns one page of matching records. The total is computed by a
// count query independent of the bounded fetch so the page count reflects the
// true dataset size. Page and per-page values are clamped here regardless of
// what callers already did.
func (r *GormRepository[T, P]) GetPage(ctx context.Context, req domain.PageRequest) (*domain.PageResult[T], error) {
	page := pkg.ClampPage(req.Page)
	perPage := r.opts.Bounds.ClampPerPage(req.PerPage)

	base := r.query(ctx, req.Query)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, err
	}

	sort := req.Sort
	if sort == "" {
		sort = r.opts.Bounds.DefaultSort
	}

	var items []T
	if err := base.Scopes(
		pkg.Sort(sort, r.opts.SortFields),
		pkg.Paginate(page, perPage),
	).Find(&items).Error; err != nil {
		return nil, err
	}

	return domain.NewPageResult(items, total, page, perPage), nil
}

// GetMany returns a flat window of matching records without page metadata,
// for callers that manage their own windowing.
func (r *GormRepository[T, P]) GetMany(ctx context.Context, skip, limit int, q domain.Query) ([]T, error) {
	if skip < 0 {
		skip = 0
	}
	if limit < 1 {
		limit = r.opts.Bounds.MaxPerPage
	}

	var items []T
	if err := r.query(ctx, q).Offset(skip).Limit(limit).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Search matches the query string against the configured search fields and
// returns all live matches as a single page.
func (r *GormRepository[T, P]) Search(ctx context.Context, query string) (*domain.PageResult[T], error) {
	var items []T
	err := r.db.WithContext(ctx).Model(new(T)).Scopes(
		pkg.LiveOnly(false),
		pkg.Search(query, r.opts.SearchFields),
	).Find(&items).Error
	if err != nil {
		return nil, err
	}

	total := int64(len(items))
	if items == nil {
		items = []T{}
	}
	return &domain.PageResult[T]{
		Success: true,
		Items:   items,
		Total:   total,
		Page:    1,
		PerPage: int(total),
		Pages:   1,
	}, nil
}

// Create inserts a new record and populates its assigned id.
func (r *GormRepository[T, P]) Create(ctx context.Context, entity P) error {
	return pkg.WithTx(ctx, r.db, func(tx *gorm.DB) error {
		if err := tx.Create(entity).Error; err != nil {
			return err
		}
		return r.logChange(tx, domain.ActionCreate, entity.GetID(), nil, entity)
	})
}

// Update persists a full replacement of an existing record, identified by its
// id. The creation timestamp and deletion flag are owned by the store and the
// delete/restore operations respectively, so they are excluded from the write.
func (r *GormRepository[T, P]) Update(ctx context.Context, entity P) error {
	return pkg.WithTx(ctx, r.db, func(tx *gorm.DB) error {
		var old T
		err := tx.First(&old, "id = ?", entity.GetID()).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := tx.Omit("created_at", "is_deleted").Save(entity).Error; err != nil {
			return err
		}
		return r.logChange(tx, domain.ActionUpdate, entity.GetID(), &old, entity)
	})
}

// SoftDelete marks a live record deleted. It reports whether a row actually
// changed: deleting an already-deleted or missing record returns false, not
// an error.
func (r *GormRepository[T, P]) SoftDelete(ctx context.Context, id uint) (bool, error) {
	return r.flagChange(ctx, id, true, domain.ActionDelete)
}

// Restore clears the deletion flag on a record that is currently deleted.
// It returns false when the record is missing or not deleted.
func (r *GormRepository[T, P]) Restore(ctx context.Context, id uint) (bool, error) {
	return r.flagChange(ctx, id, false, domain.ActionRestore)
}

// flagChange flips the deletion flag from !deleted to deleted and logs the
// action when a row actually changed.
func (r *GormRepository[T, P]) flagChange(ctx context.Context, id uint, deleted bool, action string) (bool, error) {
	var changed bool
	err := pkg.WithTx(ctx, r.db, func(tx *gorm.DB) error {
		res := tx.Model(new(T)).
			Where("id = ? AND is_deleted = ?", id, !deleted).
			Update("is_deleted", deleted)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		changed = true
		return r.logChange(tx, action, id, nil, nil)
	})
	return changed, err
}

// ForceDelete permanently removes a record. It looks past the soft-delete
// filter, since the caller may have soft-deleted the record already. The
// change log keeps the last snapshot of the removed row.
func (r *GormRepository[T, P]) ForceDelete(ctx context.Context, id uint) (bool, error) {
	var deleted bool
	err := pkg.WithTx(ctx, r.db, func(tx *gorm.DB) error {
		var old T
		err := tx.First(&old, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		res := tx.Delete(new(T), id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		deleted = true
		return r.logChange(tx, domain.ActionForceDelete, id, &old, nil)
	})
	return deleted, err
}

// Exists reports whether a record with the given id exists, honoring the
// soft-delete filter unless includeDeleted is set.
func (r *GormRepository[T, P]) Exists(ctx context.Context, id uint, includeDeleted bool) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(new(T)).
		Scopes(pkg.LiveOnly(includeDeleted)).
		Where("id = ?", id).
		Count(&n).Error
	return n > 0, err
}

// Count returns the number of matching records.
func (r *GormRepository[T, P]) Count(ctx context.Context, q domain.Query) (int64, error) {
	var n int64
	err := r.query(ctx, q).Count(&n).Error
	return n, err
}

// BulkCreate inserts all records in one transaction; ids are assigned on the
// returned slice. A failure leaves no partial writes.
func (r *GormRepository[T, P]) BulkCreate(ctx context.Context, entities []T) ([]T, error) {
	if len(entities) == 0 {
		return []T{}, nil
	}
	err := pkg.WithTx(ctx, r.db, func(tx *gorm.DB) error {
		if err := tx.Create(&entities).Error; err != nil {
			return err
		}
		for i := range entities {
			p := P(&entities[i])
			if err := r.logChange(tx, domain.ActionCreate, p.GetID(), nil, p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entities, nil
}

// BulkUpdate saves full replacements of all records in one transaction.
// Exposed at the repository level only; the service does not surface it.
func (r *GormRepository[T, P]) BulkUpdate(ctx context.Context, entities []T) ([]T, error) {
	if len(entities) == 0 {
		return []T{}, nil
	}
	err := pkg.WithTx(ctx, r.db, func(tx *gorm.DB) error {
		for i := range entities {
			if err := tx.Omit("created_at", "is_deleted").Save(&entities[i]).Error; err != nil {
				return err
			}
			p := P(&entities[i])
			if err := r.logChange(tx, domain.ActionUpdate, p.GetID(), nil, p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entities, nil
}

// BulkDelete soft-deletes all live records among the given ids and returns
// the count actually affected. Missing or already-deleted ids are skipped
// silently.
func (r *GormRepository[T, P]) BulkDelete(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var affected int64
	err := pkg.WithTx(ctx, r.db, func(tx *gorm.DB) error {
		var hit []uint
		if err := tx.Model(new(T)).
			Where("id IN ? AND is_deleted = ?", ids, false).
			Pluck("id", &hit).Error; err != nil {
			return err
		}
		if len(hit) == 0 {
			return nil
		}
		res := tx.Model(new(T)).
			Where("id IN ?", hit).
			Update("is_deleted", true)
		if res.Error != nil {
			return res.Error
		}
		affected = res.RowsAffected
		for _, id := range hit {
			if err := r.logChange(tx, domain.ActionDelete, id, nil, nil); err != nil {
				return err
			}
		}
		return nil
	})
	return affected, err
}

// BulkForceDelete permanently removes all records among the given ids, live
// or deleted, returning the count removed. Like BulkUpdate it is exposed at
// the repository level only.
func (r *GormRepository[T, P]) BulkForceDelete(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var affected int64
	err := pkg.WithTx(ctx, r.db, func(tx *gorm.DB) error {
		var old []T
		if err := tx.Where("id IN ?", ids).Find(&old).Error; err != nil {
			return err
		}
		if len(old) == 0 {
			return nil
		}
		res := tx.Delete(new(T), "id IN ?", ids)
		if res.Error != nil {
			return res.Error
		}
		affected = res.RowsAffected
		for i := range old {
			p := P(&old[i])
			if err := r.logChange(tx, domain.ActionForceDelete, p.GetID(), p, nil); err != nil {
				return err
			}
		}
		return nil
	})
	return affected, err
}

// GetLogs returns one page of this resource's change-log entries, newest
// first unless the request sorts otherwise. Filters are limited to the log's
// own fields (record_id, action).
func (r *GormRepository[T, P]) GetLogs(ctx context.Context, req domain.PageRequest) (*domain.PageResult[domain.ChangeLog], error) {
	page := pkg.ClampPage(req.Page)
	perPage := r.opts.Bounds.ClampPerPage(req.PerPage)

	base := r.db.WithContext(ctx).Model(&domain.ChangeLog{}).
		Where("table_name = ?", r.table).
		Scopes(pkg.Filter(req.Filter, logFilterFields))

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, err
	}

	sort := req.Sort
	if sort == "" {
		sort = "id:desc"
	}

	var items []domain.ChangeLog
	if err := base.Scopes(
		pkg.Sort(sort, logSortFields),
		pkg.Paginate(page, perPage),
	).Find(&items).Error; err != nil {
		return nil, err
	}

	return domain.NewPageResult(items, total, page, perPage), nil
}

// logChange appends one audit row inside the mutation's transaction. Data
// snapshots are marshalled to JSON; nil snapshots stay empty.
func (r *GormRepository[T, P]) logChange(tx *gorm.DB, action string, recordID uint, oldData, newData any) error {
	entry := &domain.ChangeLog{
		TableName: r.table,
		RecordID:  recordID,
		Action:    action,
		OldData:   marshalSnapshot(oldData),
		NewData:   marshalSnapshot(newData),
	}
	return tx.Create(entry).Error
}

func marshalSnapshot(v any) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
