package crud

import (
	"context"

	"github.com/simp-lee/crudbase/internal/domain"
)

// Hooks holds the named callback slots a resource may override to add
// business rules. Nil slots are no-ops, so a resource only fills what it
// needs. Validation hooks run before the corresponding repository mutation;
// a non-nil error aborts the operation before any store write.
//
// TransformOne runs on each record after a successful repository call and
// before the envelope is assembled. It may mutate the record in place
// (redact, derive, normalize); collections are transformed record by record.
type Hooks[T any, P domain.Model[T]] struct {
	ValidateCreate      func(ctx context.Context, entity P) error
	ValidateUpdate      func(ctx context.Context, id uint, entity P, existing P) error
	ValidateDelete      func(ctx context.Context, id uint, existing P) error
	ValidateForceDelete func(ctx context.Context, id uint, existing P) error
	TransformOne        func(ctx context.Context, entity P) error
}

func (h Hooks[T, P]) validateCreate(ctx context.Context, entity P) error {
	if h.ValidateCreate == nil {
		return nil
	}
	return h.ValidateCreate(ctx, entity)
}

func (h Hooks[T, P]) validateUpdate(ctx context.Context, id uint, entity, existing P) error {
	if h.ValidateUpdate == nil {
		return nil
	}
	return h.ValidateUpdate(ctx, id, entity, existing)
}

func (h Hooks[T, P]) validateDelete(ctx context.Context, id uint, existing P) error {
	if h.ValidateDelete == nil {
		return nil
	}
	return h.ValidateDelete(ctx, id, existing)
}

func (h Hooks[T, P]) validateForceDelete(ctx context.Context, id uint, existing P) error {
	if h.ValidateForceDelete == nil {
		return nil
	}
	return h.ValidateForceDelete(ctx, id, existing)
}

func (h Hooks[T, P]) transformOne(ctx context.Context, entity P) error {
	if h.TransformOne == nil {
		return nil
	}
	return h.TransformOne(ctx, entity)
}

func (h Hooks[T, P]) transformMany(ctx context.Context, items []T) error {
	if h.TransformOne == nil {
		return nil
	}
	for i := range items {
		if err := h.TransformOne(ctx, P(&items[i])); err != nil {
			return err
		}
	}
	return nil
}
