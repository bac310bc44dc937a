package resource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/reservation-backend/internal/availability"
)

type Repository interface {
	Create(ctx context.Context, res *Resource) error
	GetByID(ctx context.Context, id string) (*Resource, error)
	List(ctx context.Context, filter Filter) ([]*Resource, int, error)
	Update(ctx context.Context, res *Resource) error
	Delete(ctx context.Context, id string) error

	// SetAvailability replaces the weekly windows. A nil slice clears them.
	SetAvailability(ctx context.Context, id string, windows []availability.Window) error

	AddMaintenance(ctx context.Context, m *availability.MaintenancePeriod) error
	// ListMaintenance returns periods of the resource intersecting [from, to); nil bounds are open.
	ListMaintenance(ctx context.Context, resourceID string, from, to *time.Time) ([]availability.MaintenancePeriod, error)
	DeleteMaintenance(ctx context.Context, resourceID, id string) error
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var resourceColumns = []string{
	"r.id", "r.organization_id", "o.name", "r.name", "r.description",
	"r.max_booking_hours", "r.requires_approval", "r.availability",
	"r.created_at", "r.updated_at",
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

// encodeWindows maps nil to SQL NULL so "not configured" survives a round trip.
func encodeWindows(windows []availability.Window) ([]byte, error) {
	if windows == nil {
		return nil, nil
	}
	return json.Marshal(windows)
}

func decodeWindows(raw []byte) ([]availability.Window, error) {
	if raw == nil {
		return nil, nil
	}
	windows := []availability.Window{}
	if err := json.Unmarshal(raw, &windows); err != nil {
		return nil, fmt.Errorf("decode availability failed: %w", err)
	}
	return windows, nil
}

func scanResource(row pgx.Row, extra ...any) (*Resource, error) {
	var res Resource
	var raw []byte
	dest := append([]any{
		&res.ID, &res.OrganizationID, &res.OrganizationName, &res.Name, &res.Description,
		&res.MaxBookingHours, &res.RequiresApproval, &raw,
		&res.CreatedAt, &res.UpdatedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	windows, err := decodeWindows(raw)
	if err != nil {
		return nil, err
	}
	res.Availability = windows
	return &res, nil
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation
}

func (r *pgxRepository) Create(ctx context.Context, res *Resource) error {
	raw, err := encodeWindows(res.Availability)
	if err != nil {
		return err
	}
	query, args, err := psql.Insert("public.resources").
		Columns("organization_id", "name", "description", "max_booking_hours", "requires_approval", "availability").
		Values(res.OrganizationID, res.Name, res.Description, res.MaxBookingHours, res.RequiresApproval, raw).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create resource query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&res.ID, &res.CreatedAt, &res.UpdatedAt); err != nil {
		if isForeignKeyViolation(err) {
			return ErrInvalidOrganization
		}
		return fmt.Errorf("create resource failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Resource, error) {
	query, args, err := psql.Select(resourceColumns...).
		From("public.resources r").
		Join("public.organizations o ON r.organization_id = o.id").
		Where(squirrel.Eq{"r.id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get resource query failed: %w", err)
	}

	res, err := scanResource(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get resource failed: %w", err)
	}
	return res, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Resource, int, error) {
	query := psql.Select(append(resourceColumns, "count(*) OVER() AS total_count")...).
		From("public.resources r").
		Join("public.organizations o ON r.organization_id = o.id")

	if filter.OrganizationID != "" {
		query = query.Where(squirrel.Eq{"r.organization_id": filter.OrganizationID})
	}
	if filter.Name != "" {
		query = query.Where(squirrel.ILike{"r.name": "%" + filter.Name + "%"})
	}

	orderBy := "r.created_at"
	if filter.SortBy != "" {
		orderBy = "r." + filter.SortBy
	}
	orderDir := "DESC"
	if filter.SortOrder != "" {
		orderDir = filter.SortOrder
	}
	query = query.OrderBy(orderBy + " " + orderDir)

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	query = query.Limit(uint64(filter.PageSize)).Offset(uint64((filter.Page - 1) * filter.PageSize))

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list resources query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list resources failed: %w", err)
	}
	defer rows.Close()

	var resources []*Resource
	var total int
	for rows.Next() {
		res, err := scanResource(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan resource failed: %w", err)
		}
		resources = append(resources, res)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list resources failed: %w", err)
	}
	return resources, total, nil
}

func (r *pgxRepository) Update(ctx context.Context, res *Resource) error {
	query, args, err := psql.Update("public.resources").
		Set("name", res.Name).
		Set("description", res.Description).
		Set("max_booking_hours", res.MaxBookingHours).
		Set("requires_approval", res.RequiresApproval).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": res.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update resource query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&res.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("update resource failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) Delete(ctx context.Context, id string) error {
	query, args, err := psql.Delete("public.resources").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete resource query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrInUse
		}
		return fmt.Errorf("delete resource failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) SetAvailability(ctx context.Context, id string, windows []availability.Window) error {
	raw, err := encodeWindows(windows)
	if err != nil {
		return err
	}
	query, args, err := psql.Update("public.resources").
		Set("availability", raw).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set availability query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("set availability failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) AddMaintenance(ctx context.Context, m *availability.MaintenancePeriod) error {
	query, args, err := psql.Insert("public.resource_maintenance").
		Columns("resource_id", "start_time", "end_time", "reason").
		Values(m.ResourceID, m.Start, m.End, m.Reason).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build add maintenance query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&m.ID, &m.CreatedAt); err != nil {
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("add maintenance failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) ListMaintenance(ctx context.Context, resourceID string, from, to *time.Time) ([]availability.MaintenancePeriod, error) {
	query := psql.Select("id", "resource_id", "start_time", "end_time", "reason", "created_at").
		From("public.resource_maintenance").
		Where(squirrel.Eq{"resource_id": resourceID})
	if from != nil {
		query = query.Where(squirrel.Gt{"end_time": *from})
	}
	if to != nil {
		query = query.Where(squirrel.Lt{"start_time": *to})
	}

	sql, args, err := query.OrderBy("start_time ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list maintenance query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list maintenance failed: %w", err)
	}
	defer rows.Close()

	periods := []availability.MaintenancePeriod{}
	for rows.Next() {
		var m availability.MaintenancePeriod
		if err := rows.Scan(&m.ID, &m.ResourceID, &m.Start, &m.End, &m.Reason, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan maintenance failed: %w", err)
		}
		periods = append(periods, m)
	}
	return periods, rows.Err()
}

func (r *pgxRepository) DeleteMaintenance(ctx context.Context, resourceID, id string) error {
	query, args, err := psql.Delete("public.resource_maintenance").
		Where(squirrel.Eq{"id": id, "resource_id": resourceID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete maintenance query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete maintenance failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrMaintenanceNotFound
	}
	return nil
}
