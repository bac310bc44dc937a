package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Create(ctx context.Context, n *Notification) error
	List(ctx context.Context, filter Filter) ([]*Notification, int, error)
	// MarkRead sets read_at on a notification owned by userID. Already read entries are left untouched.
	MarkRead(ctx context.Context, userID, id string) error
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func (r *pgxRepository) Create(ctx context.Context, n *Notification) error {
	query, args, err := psql.Insert("public.notifications").
		Columns("user_id", "kind", "booking_id", "title", "body").
		Values(n.UserID, n.Kind, n.BookingID, n.Title, n.Body).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create notification query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&n.ID, &n.CreatedAt); err != nil {
		return fmt.Errorf("create notification failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Notification, int, error) {
	query := psql.Select("id", "user_id", "kind", "booking_id", "title", "body", "read_at", "created_at", "count(*) OVER() AS total_count").
		From("public.notifications").
		Where(squirrel.Eq{"user_id": filter.UserID})
	if filter.UnreadOnly {
		query = query.Where(squirrel.Eq{"read_at": nil})
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize
	query = query.OrderBy("created_at DESC").Limit(uint64(filter.PageSize)).Offset(uint64(offset))

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list notifications query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list notifications failed: %w", err)
	}
	defer rows.Close()

	var out []*Notification
	var total int
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.BookingID, &n.Title, &n.Body, &n.ReadAt, &n.CreatedAt, &total); err != nil {
			return nil, 0, fmt.Errorf("scan notification failed: %w", err)
		}
		out = append(out, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list notifications failed: %w", err)
	}
	return out, total, nil
}

func (r *pgxRepository) MarkRead(ctx context.Context, userID, id string) error {
	query, args, err := psql.Update("public.notifications").
		Set("read_at", squirrel.Expr("COALESCE(read_at, now())")).
		Where(squirrel.Eq{"id": id, "user_id": userID}).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark notification read query failed: %w", err)
	}

	var got string
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&got); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("mark notification read failed: %w", err)
	}
	return nil
}
