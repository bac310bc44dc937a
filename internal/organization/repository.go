package organization

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines methods for accessing organization data.
type Repository interface {
	Create(ctx context.Context, org *Organization) error
	GetByID(ctx context.Context, id string) (*Organization, error)
	List(ctx context.Context, filter Filter) ([]*Organization, int, error)
	Delete(ctx context.Context, id string) error

	GetMember(ctx context.Context, orgID, userID string) (*Member, error)
	AddMember(ctx context.Context, orgID, userID string, role Role) error
	RemoveMember(ctx context.Context, orgID, userID string) error
	ListMembers(ctx context.Context, orgID string, filter Filter) ([]*Member, int, error)
	// ManagedBy returns the organizations userID is an owner or admin of.
	ManagedBy(ctx context.Context, userID string) ([]string, error)
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// managedUniqueIndex backs the one-managed-organization rule against concurrent inserts.
const managedUniqueIndex = "organization_members_one_managed"

type pgxRepository struct {
	pool *pgxpool.Pool
}

// NewPgxRepository creates a new organization repository.
func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func pageOf(filter Filter) (limit, offset uint64) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	return uint64(filter.PageSize), uint64((filter.Page - 1) * filter.PageSize)
}

func (r *pgxRepository) Create(ctx context.Context, org *Organization) error {
	query, args, err := psql.Insert("public.organizations").
		Columns("name").
		Values(org.Name).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create organization query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&org.ID, &org.CreatedAt); err != nil {
		return fmt.Errorf("create organization failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Organization, error) {
	query, args, err := psql.Select("id", "name", "created_at").
		From("public.organizations").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get organization query failed: %w", err)
	}

	var org Organization
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&org.ID, &org.Name, &org.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get organization failed: %w", err)
	}
	return &org, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Organization, int, error) {
	limit, offset := pageOf(filter)
	query, args, err := psql.Select("id", "name", "created_at", "count(*) OVER() AS total_count").
		From("public.organizations").
		OrderBy("name ASC").
		Limit(limit).
		Offset(offset).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list organizations query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list organizations failed: %w", err)
	}
	defer rows.Close()

	var orgs []*Organization
	var total int
	for rows.Next() {
		var o Organization
		if err := rows.Scan(&o.ID, &o.Name, &o.CreatedAt, &total); err != nil {
			return nil, 0, fmt.Errorf("scan organization failed: %w", err)
		}
		orgs = append(orgs, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list organizations failed: %w", err)
	}
	return orgs, total, nil
}

func (r *pgxRepository) Delete(ctx context.Context, id string) error {
	query, args, err := psql.Delete("public.organizations").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete organization query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return ErrInUse
		}
		return fmt.Errorf("delete organization failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) GetMember(ctx context.Context, orgID, userID string) (*Member, error) {
	query, args, err := psql.Select("u.id", "u.email", "u.display_name", "m.role", "m.created_at").
		From("public.organization_members m").
		Join("public.users u ON m.user_id = u.id").
		Where(squirrel.Eq{"m.organization_id": orgID, "m.user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get member query failed: %w", err)
	}

	var m Member
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&m.UserID, &m.Email, &m.DisplayName, &m.Role, &m.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotMember
		}
		return nil, fmt.Errorf("get member failed: %w", err)
	}
	return &m, nil
}

func (r *pgxRepository) AddMember(ctx context.Context, orgID, userID string, role Role) error {
	query, args, err := psql.Insert("public.organization_members").
		Columns("organization_id", "user_id", "role").
		Values(orgID, userID, role).
		ToSql()
	if err != nil {
		return fmt.Errorf("build add member query failed: %w", err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgerrcode.UniqueViolation:
				if pgErr.ConstraintName == managedUniqueIndex {
					return ErrManagesOther
				}
				return ErrUserAlreadyMember
			case pgerrcode.ForeignKeyViolation:
				if pgErr.ConstraintName == "organization_members_organization_id_fkey" {
					return ErrNotFound
				}
				return ErrUserNotFound
			}
		}
		return fmt.Errorf("add member failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) RemoveMember(ctx context.Context, orgID, userID string) error {
	query, args, err := psql.Delete("public.organization_members").
		Where(squirrel.Eq{"organization_id": orgID, "user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build remove member query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("remove member failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrUserNotMember
	}
	return nil
}

func (r *pgxRepository) ListMembers(ctx context.Context, orgID string, filter Filter) ([]*Member, int, error) {
	limit, offset := pageOf(filter)
	query, args, err := psql.Select("u.id", "u.email", "u.display_name", "m.role", "m.created_at", "count(*) OVER() AS total_count").
		From("public.organization_members m").
		Join("public.users u ON m.user_id = u.id").
		Where(squirrel.Eq{"m.organization_id": orgID}).
		OrderBy("m.created_at ASC").
		Limit(limit).
		Offset(offset).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list members query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list members failed: %w", err)
	}
	defer rows.Close()

	var members []*Member
	var total int
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.UserID, &m.Email, &m.DisplayName, &m.Role, &m.CreatedAt, &total); err != nil {
			return nil, 0, fmt.Errorf("scan member failed: %w", err)
		}
		members = append(members, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list members failed: %w", err)
	}
	return members, total, nil
}

func (r *pgxRepository) ManagedBy(ctx context.Context, userID string) ([]string, error) {
	query, args, err := psql.Select("organization_id").
		From("public.organization_members").
		Where(squirrel.Eq{"user_id": userID, "role": []string{string(RoleOwner), string(RoleAdmin)}}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build managed organizations query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list managed organizations failed: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan managed organization failed: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
