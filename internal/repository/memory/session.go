package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rocketscienceinc/tictactoe-online/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-online/internal/entity"
	"github.com/rocketscienceinc/tictactoe-online/internal/repository"
)

// SessionStore is an in-process session store. Subscribers are notified
// synchronously on the writer's goroutine, after the lock is released.
type SessionStore struct {
	mu sync.RWMutex

	sessions    map[string]*entity.Session
	subscribers map[string]map[uint64]func(*entity.Session)
	nextSubID   uint64
}

var _ repository.SessionRepository = (*SessionStore)(nil)

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions:    make(map[string]*entity.Session),
		subscribers: make(map[string]map[uint64]func(*entity.Session)),
	}
}

func (that *SessionStore) Create(_ context.Context, session *entity.Session) (*entity.Session, error) {
	created := session.Clone()
	created.ID = uuid.NewString()

	that.mu.Lock()
	defer that.mu.Unlock()
	that.sessions[created.ID] = created.Clone()

	return created, nil
}

func (that *SessionStore) GetByID(_ context.Context, id string) (*entity.Session, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	session, ok := that.sessions[id]
	if !ok {
		return nil, apperror.ErrSessionNotFound
	}

	return session.Clone(), nil
}

func (that *SessionStore) Update(_ context.Context, id string, update entity.SessionUpdate) error {
	if update.IsEmpty() {
		return nil
	}

	that.mu.Lock()
	session, ok := that.sessions[id]
	if !ok {
		that.mu.Unlock()
		return apperror.ErrSessionNotFound
	}

	update.ApplyTo(session)
	merged := session.Clone()

	callbacks := make([]func(*entity.Session), 0, len(that.subscribers[id]))
	for _, callback := range that.subscribers[id] {
		callbacks = append(callbacks, callback)
	}
	that.mu.Unlock()

	for _, callback := range callbacks {
		callback(merged.Clone())
	}

	return nil
}

func (that *SessionStore) Subscribe(_ context.Context, id string, onUpdate func(*entity.Session)) (repository.Subscription, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.nextSubID++
	subID := that.nextSubID

	if that.subscribers[id] == nil {
		that.subscribers[id] = make(map[uint64]func(*entity.Session))
	}
	that.subscribers[id][subID] = onUpdate

	return &subscription{store: that, sessionID: id, subID: subID}, nil
}

func (that *SessionStore) unsubscribe(sessionID string, subID uint64) {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.subscribers[sessionID], subID)
	if len(that.subscribers[sessionID]) == 0 {
		delete(that.subscribers, sessionID)
	}
}

// Subscribers returns how many listeners a record has.
func (that *SessionStore) Subscribers(id string) int {
	that.mu.RLock()
	defer that.mu.RUnlock()
	return len(that.subscribers[id])
}

type subscription struct {
	store     *SessionStore
	sessionID string
	subID     uint64
	once      sync.Once
}

func (that *subscription) Unsubscribe() error {
	that.once.Do(func() {
		that.store.unsubscribe(that.sessionID, that.subID)
	})

	return nil
}
