package repository

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rocketscienceinc/tictactoe-online/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-online/internal/entity"
	"github.com/rocketscienceinc/tictactoe-online/testing/suite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const receiveTimeout = 2 * time.Second

func newTestSessionRepository(st *suite.Suite) SessionRepository {
	return NewSessionRepository(st.Logger, st.Storage, SessionOptions{KeyPrefix: "session", TTL: time.Hour})
}

func receive(t *testing.T, updates <-chan *entity.Session) *entity.Session {
	t.Helper()

	select {
	case session := <-updates:
		return session
	case <-time.After(receiveTimeout):
		t.Fatal("no session update received")
		return nil
	}
}

func TestSessionRepository_Create(t *testing.T) {
	ctx, st := suite.New(t)
	sessionRepo := newTestSessionRepository(st)

	// Given: a fresh record for player a
	initial := entity.NewSession("a")

	// When: Create is called
	created, err := sessionRepo.Create(ctx, initial)

	// Then: an id is assigned, the input is untouched and the key expires
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Empty(t, initial.ID)
	assert.Equal(t, time.Hour, st.Redis.TTL("session:"+created.ID))

	stored, err := sessionRepo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, stored)
}

func TestSessionRepository_GetByID(t *testing.T) {
	t.Run("GetByID_NotFound", func(t *testing.T) {
		ctx, st := suite.New(t)
		sessionRepo := newTestSessionRepository(st)

		// When: GetByID is called with an unknown id
		session, err := sessionRepo.GetByID(ctx, "9999999")

		// Then: ErrSessionNotFound is returned
		require.ErrorIs(t, err, apperror.ErrSessionNotFound)
		assert.Nil(t, session)
	})

	t.Run("GetByID_Malformed", func(t *testing.T) {
		ctx, st := suite.New(t)
		sessionRepo := newTestSessionRepository(st)

		// Given: a record written by someone else with a short board
		st.Redis.HSet("session:bad", "id", "bad", "board", `["X","O"]`, "turn", "X")

		// When: it is read
		_, err := sessionRepo.GetByID(ctx, "bad")

		// Then: it is rejected as malformed
		require.ErrorIs(t, err, apperror.ErrMalformedSession)
	})

	t.Run("GetByID_NullCellsAreEmpty", func(t *testing.T) {
		ctx, st := suite.New(t)
		sessionRepo := newTestSessionRepository(st)

		st.Redis.HSet("session:legacy", "id", "legacy",
			"board", `["X",null,null,null,null,null,null,null,null]`, "turn", "O", "player_x", "a")

		session, err := sessionRepo.GetByID(ctx, "legacy")

		require.NoError(t, err)
		assert.Equal(t, entity.Board{entity.PlayerX}, session.Board)
		assert.Empty(t, session.WinningCells)
	})
}

func TestSessionRepository_Update(t *testing.T) {
	t.Run("Update_MergesOnlySetFields", func(t *testing.T) {
		ctx, st := suite.New(t)
		sessionRepo := newTestSessionRepository(st)

		// Given: a stored record with a name for X
		initial := entity.NewSession("a")
		initial.PlayerXName = "Alice"
		created, err := sessionRepo.Create(ctx, initial)
		require.NoError(t, err)

		// When: only the O slot is written
		err = sessionRepo.Update(ctx, created.ID, entity.ClaimUpdate("b"))
		require.NoError(t, err)

		// Then: the other fields are kept
		stored, err := sessionRepo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "b", stored.PlayerO)
		assert.Equal(t, "a", stored.PlayerX)
		assert.Equal(t, "Alice", stored.PlayerXName)
		assert.Equal(t, entity.PlayerX, stored.Turn)
	})

	t.Run("Update_NotFound", func(t *testing.T) {
		ctx, st := suite.New(t)
		sessionRepo := newTestSessionRepository(st)

		// When: an unknown record is updated
		err := sessionRepo.Update(ctx, "missing", entity.ResetUpdate())

		// Then: ErrSessionNotFound is returned and nothing is created
		require.ErrorIs(t, err, apperror.ErrSessionNotFound)
		assert.False(t, st.Redis.Exists("session:missing"))
	})

	t.Run("Update_LastWriterWins", func(t *testing.T) {
		ctx, st := suite.New(t)
		sessionRepo := newTestSessionRepository(st)

		created, err := sessionRepo.Create(ctx, entity.NewSession("a"))
		require.NoError(t, err)

		// When: two joiners claim the O slot one after the other
		require.NoError(t, sessionRepo.Update(ctx, created.ID, entity.ClaimUpdate("b")))
		require.NoError(t, sessionRepo.Update(ctx, created.ID, entity.ClaimUpdate("c")))

		// Then: the later write is what the store keeps
		stored, err := sessionRepo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "c", stored.PlayerO)
	})
}

func TestSessionRepository_Subscribe(t *testing.T) {
	t.Run("Subscribe_ReceivesMergedRecord", func(t *testing.T) {
		ctx, st := suite.New(t)
		sessionRepo := newTestSessionRepository(st)

		created, err := sessionRepo.Create(ctx, entity.NewSession("a"))
		require.NoError(t, err)

		updates := make(chan *entity.Session, 4)
		subscription, err := sessionRepo.Subscribe(ctx, created.ID, func(session *entity.Session) {
			updates <- session
		})
		require.NoError(t, err)
		t.Cleanup(func() { _ = subscription.Unsubscribe() })

		// When: a partial update is written
		require.NoError(t, sessionRepo.Update(ctx, created.ID, entity.NameUpdate(entity.PlayerX, "Alice")))

		// Then: subscribers get the whole record
		pushed := receive(t, updates)
		assert.Equal(t, created.ID, pushed.ID)
		assert.Equal(t, "a", pushed.PlayerX)
		assert.Equal(t, "Alice", pushed.PlayerXName)
		assert.Equal(t, entity.PlayerX, pushed.Turn)
	})

	t.Run("Subscribe_IgnoresMalformedPayloads", func(t *testing.T) {
		ctx, st := suite.New(t)
		sessionRepo := newTestSessionRepository(st)

		created, err := sessionRepo.Create(ctx, entity.NewSession("a"))
		require.NoError(t, err)

		updates := make(chan *entity.Session, 4)
		subscription, err := sessionRepo.Subscribe(ctx, created.ID, func(session *entity.Session) {
			updates <- session
		})
		require.NoError(t, err)
		t.Cleanup(func() { _ = subscription.Unsubscribe() })

		// Given: garbage published on the record's channel
		require.NoError(t, st.Storage.Publish(ctx, "session:"+created.ID+":updates", `{"board":"nope"}`).Err())

		// When: a real update follows
		require.NoError(t, sessionRepo.Update(ctx, created.ID, entity.ClaimUpdate("b")))

		// Then: only the real update is delivered
		pushed := receive(t, updates)
		assert.Equal(t, "b", pushed.PlayerO)
	})

	t.Run("Unsubscribe_StopsDelivery", func(t *testing.T) {
		ctx, st := suite.New(t)
		sessionRepo := newTestSessionRepository(st)

		created, err := sessionRepo.Create(ctx, entity.NewSession("a"))
		require.NoError(t, err)

		updates := make(chan *entity.Session, 4)
		subscription, err := sessionRepo.Subscribe(ctx, created.ID, func(session *entity.Session) {
			updates <- session
		})
		require.NoError(t, err)

		// When: the subscription is closed before an update
		require.NoError(t, subscription.Unsubscribe())
		require.NoError(t, subscription.Unsubscribe())
		require.NoError(t, sessionRepo.Update(ctx, created.ID, entity.ClaimUpdate("b")))

		// Then: nothing is delivered
		select {
		case session := <-updates:
			t.Fatalf("unexpected update after unsubscribe: %+v", session)
		case <-time.After(200 * time.Millisecond):
		}
	})
}

func TestSessionRepository_UpdateOrdering(t *testing.T) {
	ctx, st := suite.New(t)
	sessionRepo := newTestSessionRepository(st)

	created, err := sessionRepo.Create(ctx, entity.NewSession("a"))
	require.NoError(t, err)

	const writes = 20

	var (
		mu     sync.Mutex
		pushes []*entity.Session
	)
	subscription, err := sessionRepo.Subscribe(ctx, created.ID, func(session *entity.Session) {
		mu.Lock()
		defer mu.Unlock()
		pushes = append(pushes, session)
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = subscription.Unsubscribe() })

	// Given: two clients writing different slots of the same record at the same time
	var wg sync.WaitGroup
	for _, mark := range []string{entity.PlayerX, entity.PlayerO} {
		mark := mark
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 1; i <= writes; i++ {
				assert.NoError(t, sessionRepo.Update(ctx, created.ID, entity.NameUpdate(mark, fmt.Sprintf("%s-%02d", mark, i))))
			}
		}()
	}
	wg.Wait()

	// When: every write has been announced
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(pushes) == 2*writes
	}, receiveTimeout, 10*time.Millisecond)

	stored, err := sessionRepo.GetByID(ctx, created.ID)
	require.NoError(t, err)

	// Then: announcements follow the write order and the last one is what the store holds
	mu.Lock()
	defer mu.Unlock()

	for i := 1; i < len(pushes); i++ {
		assert.LessOrEqual(t, pushes[i-1].PlayerXName, pushes[i].PlayerXName, "push %d went back in time", i)
		assert.LessOrEqual(t, pushes[i-1].PlayerOName, pushes[i].PlayerOName, "push %d went back in time", i)
	}
	assert.Equal(t, stored, pushes[len(pushes)-1])
	assert.Equal(t, "X-20", stored.PlayerXName)
	assert.Equal(t, "O-20", stored.PlayerOName)
}
