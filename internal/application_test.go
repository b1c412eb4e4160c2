package application

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rocketscienceinc/tictactoe-online/internal/config"
	"github.com/rocketscienceinc/tictactoe-online/internal/entity"
	"github.com/rocketscienceinc/tictactoe-online/internal/repository/memory"
	"github.com/rocketscienceinc/tictactoe-online/testing/suite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunApp(t *testing.T) {
	// Given: an in-memory store and a fresh identity file
	conf := &config.Config{
		Storage:       config.StorageMemory,
		InviteBaseURL: "http://localhost:3000/",
		Identity:      config.Identity{Path: filepath.Join(t.TempDir(), "identity.db")},
	}

	var out bytes.Buffer

	// When: a player names themselves, plays and quits
	err := RunApp(suite.NewLogger(), conf, "", strings.NewReader("Alice\n5\nquit\n"), &out)

	// Then: the board was drawn with the move and the invite link
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Invite a friend: http://localhost:3000/?gameId=")
	assert.Contains(t, out.String(), "Your turn")
}

func TestNewSessionRepository(t *testing.T) {
	t.Run("Memory storage", func(t *testing.T) {
		sessionRepo, closeStore, err := newSessionRepository(context.Background(), suite.NewLogger(), &config.Config{Storage: config.StorageMemory})
		require.NoError(t, err)
		defer closeStore()

		assert.IsType(t, &memory.SessionStore{}, sessionRepo)
	})

	t.Run("Redis storage", func(t *testing.T) {
		ctx, st := suite.New(t)

		conf := &config.Config{
			Storage: config.StorageRedis,
			Redis:   config.Redis{Host: st.Redis.Host(), Port: st.Redis.Port()},
			Session: config.Session{KeyPrefix: "game", TTL: time.Minute},
		}

		sessionRepo, closeStore, err := newSessionRepository(ctx, st.Logger, conf)
		require.NoError(t, err)
		defer closeStore()

		// When: a record is created
		created, err := sessionRepo.Create(ctx, entity.NewSession("a"))
		require.NoError(t, err)

		// Then: it lives under the configured prefix and expires
		assert.True(t, st.Redis.Exists("game:"+created.ID))
		assert.Equal(t, time.Minute, st.Redis.TTL("game:"+created.ID))
	})

	t.Run("Unreachable redis", func(t *testing.T) {
		conf := &config.Config{
			Storage: config.StorageRedis,
			Redis:   config.Redis{Host: "127.0.0.1", Port: "1"},
		}

		_, _, err := newSessionRepository(context.Background(), suite.NewLogger(), conf)

		require.Error(t, err)
	})
}
