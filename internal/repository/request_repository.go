package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hse-tools/permit-service/internal/domain"
)

// RequestFilter scopes request listings.
type RequestFilter struct {
	ContractorID *string
}

// RequestRepository stores HSE-to-contractor requests.
type RequestRepository interface {
	Create(ctx context.Context, request *domain.Request) error
	UpdateStatus(ctx context.Context, id string, status domain.RequestStatus) error
	GetByID(ctx context.Context, id string) (*domain.Request, error)
	List(ctx context.Context, filter RequestFilter) ([]domain.Request, error)
	CountByItem(ctx context.Context, itemID string) (int, error)
}

type requestRepository struct {
	pool *pgxpool.Pool
}

// NewRequestRepository builds repository.
func NewRequestRepository(pool *pgxpool.Pool) RequestRepository {
	return &requestRepository{pool: pool}
}

const requestSelect = `
        SELECT r.id, r.contractor_id, r.item_id, r.requested_by, r.status, r.created_at,
               i.title, i.type, i.description,
               c.username, c.email, c.role,
               q.username, q.email, q.role
        FROM requests r
        JOIN items i ON i.id = r.item_id
        JOIN users c ON c.id = r.contractor_id
        JOIN users q ON q.id = r.requested_by`

func (r *requestRepository) Create(ctx context.Context, request *domain.Request) error {
	const query = `
        INSERT INTO requests (contractor_id, item_id, requested_by, status)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		request.ContractorID,
		request.ItemID,
		request.RequestedBy,
		request.Status,
	).Scan(&request.ID, &request.CreatedAt)
}

func (r *requestRepository) UpdateStatus(ctx context.Context, id string, status domain.RequestStatus) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE requests SET status=$1 WHERE id=$2`, status, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *requestRepository) GetByID(ctx context.Context, id string) (*domain.Request, error) {
	return scanRequest(r.pool.QueryRow(ctx, requestSelect+` WHERE r.id=$1`, id))
}

func (r *requestRepository) List(ctx context.Context, filter RequestFilter) ([]domain.Request, error) {
	query, args := buildRequestListQuery(filter)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Request
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *request)
	}
	return result, rows.Err()
}

func (r *requestRepository) CountByItem(ctx context.Context, itemID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM requests WHERE item_id=$1`, itemID).Scan(&count)
	return count, err
}

func buildRequestListQuery(filter RequestFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.ContractorID != nil {
		args = append(args, *filter.ContractorID)
		clauses = append(clauses, fmt.Sprintf("r.contractor_id=$%d", len(args)))
	}
	return fmt.Sprintf(`%s WHERE %s ORDER BY r.created_at DESC`, requestSelect, strings.Join(clauses, " AND ")), args
}

func scanRequest(row pgx.Row) (*domain.Request, error) {
	var (
		request    domain.Request
		item       domain.ItemRef
		contractor domain.UserRef
		requester  domain.UserRef
	)
	if err := row.Scan(
		&request.ID,
		&request.ContractorID,
		&request.ItemID,
		&request.RequestedBy,
		&request.Status,
		&request.CreatedAt,
		&item.Title,
		&item.Type,
		&item.Description,
		&contractor.Username,
		&contractor.Email,
		&contractor.Role,
		&requester.Username,
		&requester.Email,
		&requester.Role,
	); err != nil {
		return nil, err
	}
	item.ID = request.ItemID
	contractor.ID = request.ContractorID
	requester.ID = request.RequestedBy
	request.Item = &item
	request.Contractor = &contractor
	request.Requester = &requester
	return &request, nil
}
