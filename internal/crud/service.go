package crud

import (
	"context"
	"errors"
	"fmt"

	"github.com/simp-lee/crudbase/internal/domain"
	"github.com/simp-lee/crudbase/internal/pkg"
)

// ExistsResult is the payload of the exists operation.
type ExistsResult struct {
	Exists bool `json:"exists"`
}

// CountResult is the payload of the count and bulk-delete operations.
type CountResult struct {
	Count int64 `json:"count"`
}

// Service orchestrates repository calls for a managed entity type. It runs
// validation hooks before every mutation, applies the transform hook to
// results, wraps outcomes in the standard envelope with fixed messages, and
// converts failures into the error taxonomy. NotFound and Validation errors
// pass through unmodified; every other repository or store failure is wrapped
// as a Service error with the cause preserved.
type Service[T any, P domain.Model[T]] struct {
	repo   Repository[T, P]
	hooks  Hooks[T, P]
	bounds pkg.PageBounds
}

// NewService creates a Service over the given repository. Hook slots left nil
// default to no-ops.
func NewService[T any, P domain.Model[T]](repo Repository[T, P], hooks Hooks[T, P], bounds pkg.PageBounds) *Service[T, P] {
	return &Service[T, P]{
		repo:   repo,
		hooks:  hooks,
		bounds: bounds.Normalize(),
	}
}

// GetAll returns all matching records without pagination.
func (s *Service[T, P]) GetAll(ctx context.Context, q domain.Query) (*pkg.Envelope, error) {
	items, err := s.repo.GetAll(ctx, q)
	if err != nil {
		return nil, s.wrap(err, "error retrieving all items")
	}
	if err := s.hooks.transformMany(ctx, items); err != nil {
		return nil, s.wrap(err, "error transforming items")
	}
	if items == nil {
		items = []T{}
	}
	return success(items, fmt.Sprintf("Retrieved %d items successfully", len(items))), nil
}

// GetByID returns a single record or a NotFound error.
func (s *Service[T, P]) GetByID(ctx context.Context, id uint, includeDeleted bool) (*pkg.Envelope, error) {
	item, err := s.repo.GetByID(ctx, id, includeDeleted)
	if err != nil {
		return nil, s.wrap(err, "error retrieving item")
	}
	if item == nil {
		return nil, notFound(id)
	}
	if err := s.hooks.transformOne(ctx, item); err != nil {
		return nil, s.wrap(err, "error transforming item")
	}
	return success(item, "Item retrieved successfully"), nil
}

// GetPage returns one page of matching records. Page and per-page values are
// clamped here again as defense in depth; the repository protects itself too.
func (s *Service[T, P]) GetPage(ctx context.Context, req domain.PageRequest) (*domain.PageResult[T], error) {
	req.Page = pkg.ClampPage(req.Page)
	req.PerPage = s.bounds.ClampPerPage(req.PerPage)

	result, err := s.repo.GetPage(ctx, req)
	if err != nil {
		return nil, s.wrap(err, "error retrieving items list")
	}
	if err := s.hooks.transformMany(ctx, result.Items); err != nil {
		return nil, s.wrap(err, "error transforming items")
	}
	result.Message = "Items retrieved successfully"
	return result, nil
}

// GetMany returns a flat window of matching records without page metadata.
func (s *Service[T, P]) GetMany(ctx context.Context, skip, limit int, q domain.Query) (*pkg.Envelope, error) {
	items, err := s.repo.GetMany(ctx, skip, limit, q)
	if err != nil {
		return nil, s.wrap(err, "error retrieving items")
	}
	if err := s.hooks.transformMany(ctx, items); err != nil {
		return nil, s.wrap(err, "error transforming items")
	}
	if items == nil {
		items = []T{}
	}
	return success(items, fmt.Sprintf("Retrieved %d items successfully", len(items))), nil
}

// Search returns all live records matching the query string across the
// resource's search fields.
func (s *Service[T, P]) Search(ctx context.Context, query string) (*domain.PageResult[T], error) {
	result, err := s.repo.Search(ctx, query)
	if err != nil {
		return nil, s.wrap(err, "error searching items")
	}
	if err := s.hooks.transformMany(ctx, result.Items); err != nil {
		return nil, s.wrap(err, "error transforming items")
	}
	result.Message = "Search completed successfully"
	return result, nil
}

// Create validates and persists a new record.
func (s *Service[T, P]) Create(ctx context.Context, entity P) (*pkg.Envelope, error) {
	if err := s.hooks.validateCreate(ctx, entity); err != nil {
		return nil, asValidation(err)
	}
	if err := s.repo.Create(ctx, entity); err != nil {
		return nil, s.wrap(err, "error creating item")
	}
	if err := s.hooks.transformOne(ctx, entity); err != nil {
		return nil, s.wrap(err, "error transforming item")
	}
	return success(entity, "Item created successfully"), nil
}

// Update replaces an existing record. Existence is checked before the update
// hook runs, so a missing record raises NotFound before validation.
func (s *Service[T, P]) Update(ctx context.Context, id uint, entity P) (*pkg.Envelope, error) {
	existing, err := s.repo.GetByID(ctx, id, false)
	if err != nil {
		return nil, s.wrap(err, "error retrieving item")
	}
	if existing == nil {
		return nil, notFound(id)
	}

	if err := s.hooks.validateUpdate(ctx, id, entity, existing); err != nil {
		return nil, asValidation(err)
	}

	entity.SetID(id)
	entity.SetDeleted(false)
	if err := s.repo.Update(ctx, entity); err != nil {
		return nil, s.wrap(err, "error updating item")
	}

	// Re-read the row so the response carries store state, not request state:
	// the write preserves created_at and the store refreshes updated_at, and
	// neither is present on the bound entity.
	updated, err := s.repo.GetByID(ctx, id, false)
	if err != nil {
		return nil, s.wrap(err, "error retrieving item")
	}
	if updated == nil {
		return nil, notFound(id)
	}
	if err := s.hooks.transformOne(ctx, updated); err != nil {
		return nil, s.wrap(err, "error transforming item")
	}
	return success(updated, "Item updated successfully"), nil
}

// SoftDelete marks a live record deleted.
func (s *Service[T, P]) SoftDelete(ctx context.Context, id uint) (*pkg.Envelope, error) {
	existing, err := s.repo.GetByID(ctx, id, false)
	if err != nil {
		return nil, s.wrap(err, "error retrieving item")
	}
	if existing == nil {
		return nil, notFound(id)
	}

	if err := s.hooks.validateDelete(ctx, id, existing); err != nil {
		return nil, asValidation(err)
	}

	ok, err := s.repo.SoftDelete(ctx, id)
	if err != nil {
		return nil, s.wrap(err, "error soft deleting item")
	}
	if !ok {
		return nil, domain.NewAppError(domain.CodeOperation,
			fmt.Sprintf("failed to soft delete item with id %d", id), nil)
	}
	return success(nil, "Item soft deleted successfully"), nil
}

// Restore clears the deletion flag on a soft-deleted record. A record that is
// missing or not deleted yields NotFound without side effects.
func (s *Service[T, P]) Restore(ctx context.Context, id uint) (*pkg.Envelope, error) {
	ok, err := s.repo.Restore(ctx, id)
	if err != nil {
		return nil, s.wrap(err, "error restoring item")
	}
	if !ok {
		return nil, domain.NewAppError(domain.CodeNotFound,
			fmt.Sprintf("item with id %d not found or not deleted", id), nil)
	}
	return success(nil, "Item restored successfully"), nil
}

// ForceDelete permanently removes a record. The existence check looks past
// the soft-delete filter, since the caller may have soft-deleted it already.
func (s *Service[T, P]) ForceDelete(ctx context.Context, id uint) (*pkg.Envelope, error) {
	existing, err := s.repo.GetByID(ctx, id, true)
	if err != nil {
		return nil, s.wrap(err, "error retrieving item")
	}
	if existing == nil {
		return nil, notFound(id)
	}

	if err := s.hooks.validateForceDelete(ctx, id, existing); err != nil {
		return nil, asValidation(err)
	}

	ok, err := s.repo.ForceDelete(ctx, id)
	if err != nil {
		return nil, s.wrap(err, "error deleting item")
	}
	if !ok {
		return nil, domain.NewAppError(domain.CodeOperation,
			fmt.Sprintf("failed to delete item with id %d", id), nil)
	}
	return success(nil, "Item permanently deleted successfully"), nil
}

// Exists reports whether a record with the given id exists.
func (s *Service[T, P]) Exists(ctx context.Context, id uint, includeDeleted bool) (*pkg.Envelope, error) {
	exists, err := s.repo.Exists(ctx, id, includeDeleted)
	if err != nil {
		return nil, s.wrap(err, "error checking item existence")
	}
	msg := "Item does not exist"
	if exists {
		msg = "Item exists"
	}
	return success(ExistsResult{Exists: exists}, msg), nil
}

// Count returns the number of matching records.
func (s *Service[T, P]) Count(ctx context.Context, q domain.Query) (*pkg.Envelope, error) {
	n, err := s.repo.Count(ctx, q)
	if err != nil {
		return nil, s.wrap(err, "error counting items")
	}
	return success(CountResult{Count: n}, fmt.Sprintf("Found %d items", n)), nil
}

// BulkCreate validates every record first, then persists the batch in one
// transaction; a validation failure aborts before any store write.
func (s *Service[T, P]) BulkCreate(ctx context.Context, entities []T) (*pkg.Envelope, error) {
	for i := range entities {
		if err := s.hooks.validateCreate(ctx, P(&entities[i])); err != nil {
			return nil, asValidation(err)
		}
	}

	items, err := s.repo.BulkCreate(ctx, entities)
	if err != nil {
		return nil, s.wrap(err, "error in bulk creating items")
	}
	if err := s.hooks.transformMany(ctx, items); err != nil {
		return nil, s.wrap(err, "error transforming items")
	}
	return success(items, fmt.Sprintf("Successfully created %d items", len(items))), nil
}

// GetLogs returns one page of the resource's change-log entries.
func (s *Service[T, P]) GetLogs(ctx context.Context, req domain.PageRequest) (*domain.PageResult[domain.ChangeLog], error) {
	req.Page = pkg.ClampPage(req.Page)
	req.PerPage = s.bounds.ClampPerPage(req.PerPage)

	result, err := s.repo.GetLogs(ctx, req)
	if err != nil {
		return nil, s.wrap(err, "error retrieving logs")
	}
	result.Message = "Logs retrieved successfully"
	return result, nil
}

// BulkDelete soft-deletes all live records among the given ids, returning the
// count actually affected. Missing ids are skipped, not errored.
func (s *Service[T, P]) BulkDelete(ctx context.Context, ids []uint) (*pkg.Envelope, error) {
	n, err := s.repo.BulkDelete(ctx, ids)
	if err != nil {
		return nil, s.wrap(err, "error in bulk deleting items")
	}
	return success(CountResult{Count: n}, fmt.Sprintf("Successfully deleted %d items", n)), nil
}

// success builds a success envelope.
func success(data any, message string) *pkg.Envelope {
	return &pkg.Envelope{
		Success: true,
		Message: message,
		Data:    data,
	}
}

// notFound builds the standard NotFound error for an id.
func notFound(id uint) error {
	return domain.NewAppError(domain.CodeNotFound,
		fmt.Sprintf("item with id %d not found", id), nil)
}

// wrap converts a repository or store failure into a Service error with the
// cause preserved. NotFound and Validation errors pass through unmodified.
func (s *Service[T, P]) wrap(err error, message string) error {
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case domain.CodeNotFound, domain.CodeValidation:
			return err
		}
	}
	return domain.NewAppError(domain.CodeService, message, err)
}

// asValidation normalizes hook failures: an AppError keeps its code, anything
// else becomes a Validation error carrying the hook's message.
func asValidation(err error) error {
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return domain.NewAppError(domain.CodeValidation, err.Error(), err)
}
