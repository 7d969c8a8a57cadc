package postgres

import (
	"context"
	"fmt"
	"gw-ipn-relay/internal/custom_err"
	"gw-ipn-relay/internal/models"
	"gw-ipn-relay/internal/storage"
)

type PgRegistryRepository struct {
	db pgxQueryer
}

func NewRegistryRepository(db pgxQueryer) storage.RegistryRepository {
	return &PgRegistryRepository{db: db}
}

func (r *PgRegistryRepository) Add(ctx context.Context, registry models.Registry, member string) (bool, error) {
	const op = "storage.RegistryAdd"

	if !registry.IsValid() {
		return false, custom_err.ErrInvalidInput
	}

	tag, err := r.db.Exec(ctx, storage.AddRegistryMemberQuery, string(registry), member)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PgRegistryRepository) Remove(ctx context.Context, registry models.Registry, member string) (bool, error) {
	const op = "storage.RegistryRemove"

	if !registry.IsValid() {
		return false, custom_err.ErrInvalidInput
	}

	tag, err := r.db.Exec(ctx, storage.RemoveRegistryMemberQuery, string(registry), member)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PgRegistryRepository) Contains(ctx context.Context, registry models.Registry, member string) (bool, error) {
	const op = "storage.RegistryContains"

	var exists bool
	if err := r.db.QueryRow(ctx, storage.RegistryContainsQuery, string(registry), member).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

func (r *PgRegistryRepository) List(ctx context.Context, registry models.Registry) ([]string, error) {
	const op = "storage.RegistryList"

	rows, err := r.db.Query(ctx, storage.ListRegistryQuery, string(registry))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	members := []string{}
	for rows.Next() {
		var member string
		if err := rows.Scan(&member); err != nil {
			return nil, fmt.Errorf("%s: scan error: %w", op, err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return members, nil
}

func (r *PgRegistryRepository) Count(ctx context.Context, registry models.Registry) (int, error) {
	const op = "storage.RegistryCount"

	var count int
	if err := r.db.QueryRow(ctx, storage.CountRegistryQuery, string(registry)).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

func (r *PgRegistryRepository) Clear(ctx context.Context, registry models.Registry) (int, error) {
	const op = "storage.RegistryClear"

	tag, err := r.db.Exec(ctx, storage.ClearRegistryQuery, string(registry))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(tag.RowsAffected()), nil
}
