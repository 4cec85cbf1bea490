// Package memory holds map-backed implementations of the repository interfaces. It backs local runs
// without POSTGRES_DSN and the service and HTTP tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hse-tools/permit-service/internal/domain"
	"github.com/hse-tools/permit-service/internal/repository"
)

// Store is the shared state behind the in-memory repositories.
type Store struct {
	mu       sync.RWMutex
	last     time.Time
	users    map[string]domain.User
	items    map[string]domain.Item
	requests map[string]domain.Request
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		users:    make(map[string]domain.User),
		items:    make(map[string]domain.Item),
		requests: make(map[string]domain.Request),
	}
}

// Users returns the user repository view.
func (s *Store) Users() repository.UserRepository { return &userRepository{s} }

// Items returns the item repository view.
func (s *Store) Items() repository.ItemRepository { return &itemRepository{s} }

// Requests returns the request repository view.
func (s *Store) Requests() repository.RequestRepository { return &requestRepository{s} }

// stamp returns a strictly increasing creation time so newest-first ordering is stable. Callers hold mu.
func (s *Store) stamp() time.Time {
	now := time.Now().UTC()
	if !now.After(s.last) {
		now = s.last.Add(time.Microsecond)
	}
	s.last = now
	return now
}

// checkAssignee mirrors the assigned_to foreign key. Callers hold mu.
func (s *Store) checkAssignee(id *string) error {
	if id == nil {
		return nil
	}
	if _, ok := s.users[*id]; !ok {
		return fmt.Errorf("unknown assignee %s", *id)
	}
	return nil
}

func (s *Store) userRef(id string) *domain.UserRef {
	user, ok := s.users[id]
	if !ok {
		return nil
	}
	return user.Ref()
}

func (s *Store) expandItem(item domain.Item) domain.Item {
	item.Creator = s.userRef(item.CreatedBy)
	if item.AssignedTo != nil {
		item.Assignee = s.userRef(*item.AssignedTo)
	}
	if item.MocID != nil {
		if moc, ok := s.items[*item.MocID]; ok {
			item.MocOwner = s.userRef(moc.CreatedBy)
		}
	}
	return item
}

func (s *Store) expandRequest(request domain.Request) domain.Request {
	if item, ok := s.items[request.ItemID]; ok {
		request.Item = &domain.ItemRef{ID: item.ID, Title: item.Title, Type: item.Type, Description: item.Description}
	}
	request.Contractor = s.userRef(request.ContractorID)
	request.Requester = s.userRef(request.RequestedBy)
	return request
}

type userRepository struct{ s *Store }

func (r *userRepository) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if strings.EqualFold(existing.Email, user.Email) || existing.Username == user.Username {
			return fmt.Errorf("user %q already exists", user.Username)
		}
	}
	user.ID = uuid.NewString()
	user.CreatedAt = r.s.stamp()
	r.s.users[user.ID] = *user
	return nil
}

func (r *userRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	user, ok := r.s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *userRepository) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Username == username })
}

func (r *userRepository) find(match func(domain.User) bool) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, user := range r.s.users {
		if match(user) {
			found := user
			return &found, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *userRepository) ListByRole(_ context.Context, role domain.Role) ([]domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	users := make([]domain.User, 0)
	for _, user := range r.s.users {
		if user.Role == role {
			users = append(users, user)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

type itemRepository struct{ s *Store }

func (r *itemRepository) Create(_ context.Context, item *domain.Item) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[item.CreatedBy]; !ok {
		return fmt.Errorf("unknown creator %s", item.CreatedBy)
	}
	if err := r.s.checkAssignee(item.AssignedTo); err != nil {
		return err
	}
	item.ID = uuid.NewString()
	item.CreatedAt = r.s.stamp()
	stored := *item
	stored.Creator, stored.Assignee, stored.MocOwner = nil, nil, nil
	r.s.items[item.ID] = stored
	return nil
}

// Update persists mutable fields; type, creator and MOC link never change.
func (r *itemRepository) Update(_ context.Context, item *domain.Item) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.items[item.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if err := r.s.checkAssignee(item.AssignedTo); err != nil {
		return err
	}
	stored.Title = item.Title
	stored.Description = item.Description
	stored.Status = item.Status
	stored.AssignedTo = item.AssignedTo
	stored.ReasonForChange = item.ReasonForChange
	stored.Pros = item.Pros
	stored.Cons = item.Cons
	stored.RiskFactor = item.RiskFactor
	stored.SubmittedAt = item.SubmittedAt
	stored.ReviewedAt = item.ReviewedAt
	stored.AcceptedAt = item.AcceptedAt
	r.s.items[item.ID] = stored
	return nil
}

func (r *itemRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.items[id]; !ok {
		return pgx.ErrNoRows
	}
	for _, item := range r.s.items {
		if item.MocID != nil && *item.MocID == id {
			return fmt.Errorf("item %s is referenced by %s", id, item.ID)
		}
	}
	for _, request := range r.s.requests {
		if request.ItemID == id {
			return fmt.Errorf("item %s is referenced by request %s", id, request.ID)
		}
	}
	delete(r.s.items, id)
	return nil
}

func (r *itemRepository) GetByID(_ context.Context, id string) (*domain.Item, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	item, ok := r.s.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	expanded := r.s.expandItem(item)
	return &expanded, nil
}

func (r *itemRepository) FindPTWByMoc(ctx context.Context, mocID string) (*domain.Item, error) {
	ptwType := domain.ItemTypePTW
	items, err := r.ListWithFilter(ctx, repository.ItemFilter{Type: &ptwType, MocID: &mocID})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &items[0], nil
}

func (r *itemRepository) CountByMoc(ctx context.Context, mocID string) (int, error) {
	items, err := r.ListWithFilter(ctx, repository.ItemFilter{MocID: &mocID})
	return len(items), err
}

func (r *itemRepository) ListWithFilter(_ context.Context, filter repository.ItemFilter) ([]domain.Item, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.Item, 0)
	for _, stored := range r.s.items {
		item := r.s.expandItem(stored)
		if matchesItem(item, filter) {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func matchesItem(item domain.Item, filter repository.ItemFilter) bool {
	if filter.CreatedBy != nil && item.CreatedBy != *filter.CreatedBy {
		return false
	}
	if filter.CreatorRole != nil && (item.Creator == nil || item.Creator.Role != *filter.CreatorRole) {
		return false
	}
	if filter.Type != nil && item.Type != *filter.Type {
		return false
	}
	if filter.Status != nil && item.Status != *filter.Status {
		return false
	}
	if filter.MocID != nil && (item.MocID == nil || *item.MocID != *filter.MocID) {
		return false
	}
	if filter.OwnerOrMocOwner != nil {
		owner := *filter.OwnerOrMocOwner
		if item.CreatedBy != owner && (item.MocOwner == nil || item.MocOwner.ID != owner) {
			return false
		}
	}
	if filter.SearchTerm != nil && !strings.Contains(strings.ToLower(item.Title), strings.ToLower(*filter.SearchTerm)) {
		return false
	}
	return true
}

type requestRepository struct{ s *Store }

func (r *requestRepository) Create(_ context.Context, request *domain.Request) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.items[request.ItemID]; !ok {
		return fmt.Errorf("unknown item %s", request.ItemID)
	}
	request.ID = uuid.NewString()
	request.CreatedAt = r.s.stamp()
	stored := *request
	stored.Item, stored.Contractor, stored.Requester = nil, nil, nil
	r.s.requests[request.ID] = stored
	return nil
}

func (r *requestRepository) UpdateStatus(_ context.Context, id string, status domain.RequestStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	request, ok := r.s.requests[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if !status.Valid() {
		return fmt.Errorf("invalid request status %q", status)
	}
	request.Status = status
	r.s.requests[id] = request
	return nil
}

func (r *requestRepository) GetByID(_ context.Context, id string) (*domain.Request, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	request, ok := r.s.requests[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	expanded := r.s.expandRequest(request)
	return &expanded, nil
}

func (r *requestRepository) List(_ context.Context, filter repository.RequestFilter) ([]domain.Request, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.Request, 0)
	for _, request := range r.s.requests {
		if filter.ContractorID != nil && request.ContractorID != *filter.ContractorID {
			continue
		}
		out = append(out, r.s.expandRequest(request))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *requestRepository) CountByItem(_ context.Context, itemID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	count := 0
	for _, request := range r.s.requests {
		if request.ItemID == itemID {
			count++
		}
	}
	return count, nil
}
