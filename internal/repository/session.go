package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rocketscienceinc/tictactoe-online/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-online/internal/entity"
)

// SessionRepository is the shared store every client reads, writes and listens to.
// Writes are plain merges: there is no compare-and-swap between a read and a later write.
type SessionRepository interface {
	Create(ctx context.Context, session *entity.Session) (*entity.Session, error)
	GetByID(ctx context.Context, id string) (*entity.Session, error)
	Update(ctx context.Context, id string, update entity.SessionUpdate) error
	Subscribe(ctx context.Context, id string, onUpdate func(*entity.Session)) (Subscription, error)
}

// Subscription stops the delivery of updates for one record.
type Subscription interface {
	Unsubscribe() error
}

type SessionOptions struct {
	KeyPrefix string
	TTL       time.Duration
}

// updateScript merges fields into an existing hash only, refreshes the expiry and
// publishes the merged hash as a JSON object. Publishing inside the script keeps
// notifications in the order the writes were applied.
var updateScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return false
end
redis.call('HSET', KEYS[1], unpack(ARGV, 2))
local ttl = tonumber(ARGV[1])
if ttl > 0 then
	redis.call('PEXPIRE', KEYS[1], ttl)
end
local flat = redis.call('HGETALL', KEYS[1])
local merged = {}
for i = 1, #flat, 2 do
	merged[flat[i]] = flat[i + 1]
end
redis.call('PUBLISH', KEYS[2], cjson.encode(merged))
return 1
`)

type dbSession struct {
	logger  *slog.Logger
	client  *redis.Client
	options SessionOptions
}

func NewSessionRepository(logger *slog.Logger, client *redis.Client, options SessionOptions) SessionRepository {
	if options.KeyPrefix == "" {
		options.KeyPrefix = "session"
	}

	return &dbSession{
		logger:  logger.With("component", "sessionRepository"),
		client:  client,
		options: options,
	}
}

func (that *dbSession) sessionKey(id string) string {
	return that.options.KeyPrefix + ":" + id
}

func (that *dbSession) updatesChannel(id string) string {
	return that.options.KeyPrefix + ":" + id + ":updates"
}

func (that *dbSession) Create(ctx context.Context, session *entity.Session) (*entity.Session, error) {
	created := session.Clone()
	created.ID = uuid.NewString()

	fields, err := encodeSession(created)
	if err != nil {
		return nil, fmt.Errorf("could not encode session: %w", err)
	}

	key := that.sessionKey(created.ID)
	_, err = that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, fields...)
		if that.options.TTL > 0 {
			pipe.PExpire(ctx, key, that.options.TTL)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return created, nil
}

func (that *dbSession) GetByID(ctx context.Context, id string) (*entity.Session, error) {
	fields, err := that.client.HGetAll(ctx, that.sessionKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get session by id: %w", err)
	}

	if len(fields) == 0 {
		return nil, apperror.ErrSessionNotFound
	}

	session, err := decodeSession(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}

	return session, nil
}

// Update merges the set fields and notifies every subscriber with the full merged record
// in the same atomic step.
func (that *dbSession) Update(ctx context.Context, id string, update entity.SessionUpdate) error {
	if update.IsEmpty() {
		return nil
	}

	fields, err := encodeUpdate(update)
	if err != nil {
		return fmt.Errorf("could not encode update: %w", err)
	}

	args := append([]any{that.options.TTL.Milliseconds()}, fields...)
	keys := []string{that.sessionKey(id), that.updatesChannel(id)}

	err = updateScript.Run(ctx, that.client, keys, args...).Err()
	if errors.Is(err, redis.Nil) {
		return apperror.ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	return nil
}

// Subscribe returns once the subscription is confirmed, so no later update is missed.
func (that *dbSession) Subscribe(ctx context.Context, id string, onUpdate func(*entity.Session)) (Subscription, error) {
	log := that.logger.With("method", "Subscribe", "sessionID", id)

	pubsub := that.client.Subscribe(ctx, that.updatesChannel(id))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to session updates: %w", err)
	}

	subscription := &redisSubscription{pubsub: pubsub}

	go func() {
		for msg := range pubsub.Channel() {
			session, err := decodeNotification(msg.Payload)
			if err != nil {
				log.Warn("ignoring malformed session update", "error", err)
				continue
			}

			onUpdate(session)
		}

		log.Debug("session subscription closed")
	}()

	return subscription, nil
}

type redisSubscription struct {
	pubsub *redis.PubSub
	once   sync.Once
	err    error
}

func (that *redisSubscription) Unsubscribe() error {
	that.once.Do(func() {
		that.err = that.pubsub.Close()
	})

	return that.err
}
