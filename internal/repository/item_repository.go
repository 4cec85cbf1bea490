package repository

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hse-tools/permit-service/internal/domain"
)

// ItemFilter captures item search parameters. Nil fields are ignored.
type ItemFilter struct {
	CreatedBy   *string
	CreatorRole *domain.Role
	Type        *domain.ItemType
	Status      *domain.ItemStatus
	MocID       *string
	// OwnerOrMocOwner matches items created by the user or permits issued against the user's MOCs.
	OwnerOrMocOwner *string
	SearchTerm      *string
}

// ItemRepository encapsulates item persistence.
type ItemRepository interface {
	Create(ctx context.Context, item *domain.Item) error
	Update(ctx context.Context, item *domain.Item) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Item, error)
	FindPTWByMoc(ctx context.Context, mocID string) (*domain.Item, error)
	CountByMoc(ctx context.Context, mocID string) (int, error)
	ListWithFilter(ctx context.Context, filter ItemFilter) ([]domain.Item, error)
}

type itemRepository struct {
	pool *pgxpool.Pool
}

// NewItemRepository instantiates repository.
func NewItemRepository(pool *pgxpool.Pool) ItemRepository {
	return &itemRepository{pool: pool}
}

const itemSelect = `
        SELECT i.id, i.title, i.description, i.type, i.status, i.created_by, i.assigned_to, i.moc_id,
               i.reason_for_change, i.pros, i.cons, i.risk_factor,
               i.submitted_at, i.reviewed_at, i.accepted_at, i.created_at,
               c.id, c.username, c.email, c.role,
               a.id, a.username, a.email, a.role,
               o.id, o.username, o.email, o.role
        FROM items i
        JOIN users c ON c.id = i.created_by
        LEFT JOIN users a ON a.id = i.assigned_to
        LEFT JOIN items m ON m.id = i.moc_id
        LEFT JOIN users o ON o.id = m.created_by`

func (r *itemRepository) Create(ctx context.Context, item *domain.Item) error {
	const query = `
        INSERT INTO items (title, description, type, status, created_by, assigned_to, moc_id,
                           reason_for_change, pros, cons, risk_factor)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		item.Title,
		item.Description,
		item.Type,
		item.Status,
		item.CreatedBy,
		item.AssignedTo,
		item.MocID,
		item.ReasonForChange,
		item.Pros,
		item.Cons,
		item.RiskFactor,
	).Scan(&item.ID, &item.CreatedAt)
}

// Update persists mutable fields. Type, creator and moc link are never rewritten.
func (r *itemRepository) Update(ctx context.Context, item *domain.Item) error {
	const query = `
        UPDATE items SET title=$1, description=$2, status=$3, assigned_to=$4,
            reason_for_change=$5, pros=$6, cons=$7, risk_factor=$8,
            submitted_at=$9, reviewed_at=$10, accepted_at=$11
        WHERE id=$12`
	cmd, err := r.pool.Exec(ctx, query,
		item.Title,
		item.Description,
		item.Status,
		item.AssignedTo,
		item.ReasonForChange,
		item.Pros,
		item.Cons,
		item.RiskFactor,
		item.SubmittedAt,
		item.ReviewedAt,
		item.AcceptedAt,
		item.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *itemRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM items WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *itemRepository) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	return scanItem(r.pool.QueryRow(ctx, itemSelect+` WHERE i.id=$1`, id))
}

func (r *itemRepository) FindPTWByMoc(ctx context.Context, mocID string) (*domain.Item, error) {
	query := itemSelect + ` WHERE i.type=$1 AND i.moc_id=$2 ORDER BY i.created_at DESC LIMIT 1`
	return scanItem(r.pool.QueryRow(ctx, query, domain.ItemTypePTW, mocID))
}

func (r *itemRepository) CountByMoc(ctx context.Context, mocID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM items WHERE moc_id=$1`, mocID).Scan(&count)
	return count, err
}

func (r *itemRepository) ListWithFilter(ctx context.Context, filter ItemFilter) ([]domain.Item, error) {
	query, args := buildItemListQuery(filter)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *item)
	}
	return result, rows.Err()
}

// buildItemListQuery renders the listing query for filter, numbering placeholders in argument order.
func buildItemListQuery(filter ItemFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}
	add := func(value any, clause string) {
		args = append(args, value)
		clauses = append(clauses, strings.ReplaceAll(clause, "?", fmt.Sprintf("$%d", len(args))))
	}

	if filter.CreatedBy != nil {
		add(*filter.CreatedBy, "i.created_by=?")
	}
	if filter.CreatorRole != nil {
		add(*filter.CreatorRole, "c.role=?")
	}
	if filter.Type != nil {
		add(*filter.Type, "i.type=?")
	}
	if filter.Status != nil {
		add(*filter.Status, "i.status=?")
	}
	if filter.MocID != nil {
		add(*filter.MocID, "i.moc_id=?")
	}
	if filter.OwnerOrMocOwner != nil {
		add(*filter.OwnerOrMocOwner, "(i.created_by=? OR m.created_by=?)")
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		// ~* matches case-insensitively; the term is quoted so it matches literally
		add(regexp.QuoteMeta(strings.TrimSpace(*filter.SearchTerm)), "i.title ~* ?")
	}

	return fmt.Sprintf(`%s WHERE %s ORDER BY i.created_at DESC`, itemSelect, strings.Join(clauses, " AND ")), args
}

// nullableUser receives the columns of a LEFT JOINed users row.
type nullableUser struct {
	ID       *string
	Username *string
	Email    *string
	Role     *string
}

func (n nullableUser) ref() *domain.UserRef {
	if n.ID == nil {
		return nil
	}
	ref := &domain.UserRef{ID: *n.ID}
	if n.Username != nil {
		ref.Username = *n.Username
	}
	if n.Email != nil {
		ref.Email = *n.Email
	}
	if n.Role != nil {
		ref.Role = domain.Role(*n.Role)
	}
	return ref
}

func scanItem(row pgx.Row) (*domain.Item, error) {
	var (
		item     domain.Item
		creator  domain.UserRef
		assignee nullableUser
		owner    nullableUser
	)
	if err := row.Scan(
		&item.ID,
		&item.Title,
		&item.Description,
		&item.Type,
		&item.Status,
		&item.CreatedBy,
		&item.AssignedTo,
		&item.MocID,
		&item.ReasonForChange,
		&item.Pros,
		&item.Cons,
		&item.RiskFactor,
		&item.SubmittedAt,
		&item.ReviewedAt,
		&item.AcceptedAt,
		&item.CreatedAt,
		&creator.ID,
		&creator.Username,
		&creator.Email,
		&creator.Role,
		&assignee.ID,
		&assignee.Username,
		&assignee.Email,
		&assignee.Role,
		&owner.ID,
		&owner.Username,
		&owner.Email,
		&owner.Role,
	); err != nil {
		return nil, err
	}
	item.Creator = &creator
	item.Assignee = assignee.ref()
	item.MocOwner = owner.ref()
	return &item, nil
}
