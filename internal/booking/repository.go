package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrContention marks a transient write race (serialization failure or deadlock).
// The service retries it once before reporting a conflict.
var ErrContention = errors.New("booking store contention")

type Repository interface {
	// CreateIfFree inserts b unless a live booking on the same resource overlaps
	// [b.StartTime, b.EndTime). The check and the insert are one atomic step.
	CreateIfFree(ctx context.Context, b *Booking) error
	GetByID(ctx context.Context, id string) (*Booking, error)
	List(ctx context.Context, filter Filter) ([]*Booking, int, error)
	// ListLive returns pending and approved bookings of a resource intersecting [from, to).
	ListLive(ctx context.Context, resourceID string, from, to time.Time) ([]*Booking, error)
	// UpdateStatus applies u only if the booking is still in u.From.
	// It returns ErrInvalidTransition when the booking has moved on.
	UpdateStatus(ctx context.Context, id string, u StatusUpdate) error
	// CompleteEnded marks approved bookings whose window ended by now as completed.
	CompleteEnded(ctx context.Context, now time.Time) (int64, error)
	// ArchivePast soft-archives terminal bookings whose window ended by now.
	ArchivePast(ctx context.Context, now time.Time) (int64, error)
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var bookingColumns = []string{
	"b.id", "b.resource_id", "r.name", "r.organization_id", "b.user_id", "u.display_name",
	"b.purpose", "b.start_time", "b.end_time", "b.status", "b.remarks",
	"b.decided_by", "b.decided_at", "b.archived_at", "b.created_at", "b.updated_at",
}

func liveStatuses() []string {
	out := make([]string, len(LiveStatuses))
	for i, s := range LiveStatuses {
		out[i] = string(s)
	}
	return out
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func (r *pgxRepository) selectBookings() squirrel.SelectBuilder {
	return psql.Select(bookingColumns...).
		From("public.bookings b").
		Join("public.resources r ON b.resource_id = r.id").
		Join("public.users u ON b.user_id = u.id")
}

func scanBooking(row pgx.Row, extra ...any) (*Booking, error) {
	var b Booking
	dest := append([]any{
		&b.ID, &b.ResourceID, &b.ResourceName, &b.OrganizationID, &b.UserID, &b.UserName,
		&b.Purpose, &b.StartTime, &b.EndTime, &b.Status, &b.Remarks,
		&b.DecidedBy, &b.DecidedAt, &b.ArchivedAt, &b.CreatedAt, &b.UpdatedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &b, nil
}

// classify maps Postgres failures onto booking errors.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgerrcode.ExclusionViolation:
		return ErrTimeConflict
	case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected, pgerrcode.LockNotAvailable:
		return fmt.Errorf("%w: %s", ErrContention, pgErr.Code)
	case pgerrcode.ForeignKeyViolation:
		return ErrResourceNotFound
	}
	return err
}

func (r *pgxRepository) CreateIfFree(ctx context.Context, b *Booking) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create booking failed: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Serializes admissions per resource; released at commit or rollback.
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))", b.ResourceID); err != nil {
		return classify(fmt.Errorf("lock resource timeline failed: %w", err))
	}

	sub, args, err := psql.Select("1").
		From("public.bookings").
		Where(squirrel.Eq{"resource_id": b.ResourceID}).
		Where(squirrel.Eq{"status": liveStatuses()}).
		Where(squirrel.Lt{"start_time": b.EndTime}).
		Where(squirrel.Gt{"end_time": b.StartTime}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build check overlap query failed: %w", err)
	}

	var exists bool
	if err := tx.QueryRow(ctx, "SELECT EXISTS ("+sub+")", args...).Scan(&exists); err != nil {
		return classify(fmt.Errorf("check overlap failed: %w", err))
	}
	if exists {
		return ErrTimeConflict
	}

	query, args, err := psql.Insert("public.bookings").
		Columns("resource_id", "user_id", "purpose", "start_time", "end_time", "status", "remarks", "decided_by", "decided_at").
		Values(b.ResourceID, b.UserID, b.Purpose, b.StartTime, b.EndTime, b.Status, b.Remarks, b.DecidedBy, b.DecidedAt).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create booking query failed: %w", err)
	}

	if err := tx.QueryRow(ctx, query, args...).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return classify(fmt.Errorf("create booking failed: %w", err))
	}

	if err := tx.Commit(ctx); err != nil {
		return classify(fmt.Errorf("commit booking failed: %w", err))
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Booking, error) {
	query, args, err := r.selectBookings().
		Where(squirrel.Eq{"b.id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get booking query failed: %w", err)
	}

	b, err := scanBooking(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get booking failed: %w", err)
	}
	return b, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Booking, int, error) {
	query := psql.Select(append(bookingColumns, "count(*) OVER() AS total_count")...).
		From("public.bookings b").
		Join("public.resources r ON b.resource_id = r.id").
		Join("public.users u ON b.user_id = u.id")

	if filter.UserID != "" {
		query = query.Where(squirrel.Eq{"b.user_id": filter.UserID})
	}
	if filter.ResourceID != "" {
		query = query.Where(squirrel.Eq{"b.resource_id": filter.ResourceID})
	}
	if filter.OrganizationID != "" {
		query = query.Where(squirrel.Eq{"r.organization_id": filter.OrganizationID})
	}
	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"b.status": filter.Status})
	}
	// Window intersection
	if filter.From != nil {
		query = query.Where(squirrel.Gt{"b.end_time": *filter.From})
	}
	if filter.To != nil {
		query = query.Where(squirrel.Lt{"b.start_time": *filter.To})
	}
	if !filter.IncludeArchived {
		query = query.Where(squirrel.Eq{"b.archived_at": nil})
	}

	orderBy := "b.start_time"
	if filter.SortBy != "" {
		orderBy = "b." + filter.SortBy
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
	offset := (filter.Page - 1) * filter.PageSize
	query = query.Limit(uint64(filter.PageSize)).Offset(uint64(offset))

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list bookings query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings failed: %w", err)
	}
	defer rows.Close()

	var bookings []*Booking
	var total int
	for rows.Next() {
		b, err := scanBooking(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan booking failed: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list bookings failed: %w", err)
	}

	return bookings, total, nil
}

func (r *pgxRepository) ListLive(ctx context.Context, resourceID string, from, to time.Time) ([]*Booking, error) {
	query, args, err := r.selectBookings().
		Where(squirrel.Eq{"b.resource_id": resourceID}).
		Where(squirrel.Eq{"b.status": liveStatuses()}).
		Where(squirrel.Lt{"b.start_time": to}).
		Where(squirrel.Gt{"b.end_time": from}).
		OrderBy("b.start_time ASC", "b.created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list live bookings query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list live bookings failed: %w", err)
	}
	defer rows.Close()

	var bookings []*Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking failed: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func (r *pgxRepository) UpdateStatus(ctx context.Context, id string, u StatusUpdate) error {
	q := psql.Update("public.bookings").
		Set("status", u.To).
		Set("updated_at", squirrel.Expr("now()"))
	if u.Remarks != nil {
		q = q.Set("remarks", *u.Remarks)
	}
	if u.DecidedBy != nil {
		q = q.Set("decided_by", *u.DecidedBy)
	}
	if u.DecidedAt != nil {
		q = q.Set("decided_at", *u.DecidedAt)
	}

	query, args, err := q.
		Where(squirrel.Eq{"id": id, "status": u.From}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update booking status query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return classify(fmt.Errorf("update booking status failed: %w", err))
	}
	if ct.RowsAffected() == 0 {
		return ErrInvalidTransition
	}
	return nil
}

func (r *pgxRepository) CompleteEnded(ctx context.Context, now time.Time) (int64, error) {
	query, args, err := psql.Update("public.bookings").
		Set("status", StatusCompleted).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"status": StatusApproved}).
		Where(squirrel.LtOrEq{"end_time": now}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build complete bookings query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("complete bookings failed: %w", err)
	}
	return ct.RowsAffected(), nil
}

func (r *pgxRepository) ArchivePast(ctx context.Context, now time.Time) (int64, error) {
	// Pending bookings that were never decided are archived as they are.
	archivable := []string{string(StatusPending)}
	for _, s := range TerminalStatuses {
		archivable = append(archivable, string(s))
	}

	query, args, err := psql.Update("public.bookings").
		Set("archived_at", now).
		Where(squirrel.Eq{"archived_at": nil, "status": archivable}).
		Where(squirrel.LtOrEq{"end_time": now}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build archive bookings query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("archive bookings failed: %w", err)
	}
	return ct.RowsAffected(), nil
}
