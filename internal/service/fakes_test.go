package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hse-tools/permit-service/internal/domain"
	"github.com/hse-tools/permit-service/internal/events"
	"github.com/hse-tools/permit-service/internal/notifications"
	"github.com/hse-tools/permit-service/internal/repository"
	"github.com/hse-tools/permit-service/internal/repository/memory"
)

func addUser(t *testing.T, store *memory.Store, username string, role domain.Role) domain.Identity {
	t.Helper()
	user := &domain.User{Username: username, Email: username + "@example.com", PasswordHash: "x", Role: role}
	require.NoError(t, store.Users().Create(context.Background(), user))
	return domain.Identity{UserID: user.ID, Username: username, Role: role}
}

// failingItemRepo fails every read and write with err.
type failingItemRepo struct {
	repository.ItemRepository
	err error
}

func (r failingItemRepo) GetByID(context.Context, string) (*domain.Item, error) { return nil, r.err }

func (r failingItemRepo) Update(context.Context, *domain.Item) error { return r.err }

// recordingDispatcher keeps every published event and fans out like the in-memory dispatcher.
type recordingDispatcher struct {
	events.Dispatcher
	mu        sync.Mutex
	published []events.Event
}

func newRecordingDispatcher() *recordingDispatcher {
	return &recordingDispatcher{Dispatcher: events.NewInMemoryDispatcher(nil)}
}

func (d *recordingDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.mu.Lock()
	d.published = append(d.published, event)
	d.mu.Unlock()
	return d.Dispatcher.Publish(ctx, event)
}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.EventType, 0, len(d.published))
	for _, event := range d.published {
		out = append(out, event.Type)
	}
	return out
}

type sentNotification struct {
	userID string
	msg    notifications.Message
}

type recordingPublisher struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (p *recordingPublisher) PublishUser(_ context.Context, userID string, msg notifications.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, sentNotification{userID: userID, msg: msg})
	return nil
}
