package database

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/finsight-ai/finsight/domain/store"
)

// ErrNotFound indicates the requested row does not exist.
var ErrNotFound = errors.New("entity not found")

// EntityMapper converts between a domain type D and its database model M.
type EntityMapper[D any, M any] interface {
	ToDomain(model M) D
	ToModel(domain D) M
}

// Repository provides shared persistence operations over a single
// model type. The concrete stores embed it and add domain-specific
// queries (upserts, joins, vector search) on top.
type Repository[D any, M any] struct {
	db     Database
	mapper EntityMapper[D, M]
	label  string
}

// NewRepository creates a Repository for model M. label names the
// entity in error messages ("company", "filing", "chunk").
func NewRepository[D any, M any](db Database, mapper EntityMapper[D, M], label string) Repository[D, M] {
	return Repository[D, M]{db: db, mapper: mapper, label: label}
}

// Find retrieves all rows matching the given options, mapped to domain
// values.
func (r Repository[D, M]) Find(ctx context.Context, options ...store.Option) ([]D, error) {
	var models []M
	db := ApplyOptions(r.db.Session(ctx).Model(new(M)), options...)
	if result := db.Find(&models); result.Error != nil {
		return nil, fmt.Errorf("find %s: %w", r.label, result.Error)
	}

	domains := make([]D, len(models))
	for i, m := range models {
		domains[i] = r.mapper.ToDomain(m)
	}
	return domains, nil
}

// FindOne retrieves the first row matching the given options. Returns
// an error wrapping ErrNotFound when no row matches.
func (r Repository[D, M]) FindOne(ctx context.Context, options ...store.Option) (D, error) {
	var (
		model M
		zero  D
	)
	db := ApplyOptions(r.db.Session(ctx), options...)
	if result := db.First(&model); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return zero, fmt.Errorf("%w: %s", ErrNotFound, r.label)
		}
		return zero, fmt.Errorf("find one %s: %w", r.label, result.Error)
	}
	return r.mapper.ToDomain(model), nil
}

// Exists reports whether any row matches the given options.
func (r Repository[D, M]) Exists(ctx context.Context, options ...store.Option) (bool, error) {
	var count int64
	db := ApplyOptions(r.db.Session(ctx).Model(new(M)), options...)
	if result := db.Count(&count); result.Error != nil {
		return false, fmt.Errorf("check %s exists: %w", r.label, result.Error)
	}
	return count > 0, nil
}

// DeleteBy removes all rows matching the given options.
func (r Repository[D, M]) DeleteBy(ctx context.Context, options ...store.Option) error {
	db := ApplyOptions(r.db.Session(ctx), options...)
	if result := db.Delete(new(M)); result.Error != nil {
		return fmt.Errorf("delete %s: %w", r.label, result.Error)
	}
	return nil
}

// DB exposes a GORM session for store methods that need queries the
// generic operations do not cover.
func (r Repository[D, M]) DB(ctx context.Context) *gorm.DB {
	return r.db.Session(ctx)
}

// Mapper returns the repository's entity mapper.
func (r Repository[D, M]) Mapper() EntityMapper[D, M] {
	return r.mapper
}
