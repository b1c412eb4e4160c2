//go:build integration

package suite

import (
	"context"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/redis/go-redis/v9"
)

const (
	containerTTL = 2 * time.Minute
	startTimeout = 2 * time.Minute
)

const (
	redisPort  = "6379/tcp"
	redisImage = "redis"
	redisTag   = "alpine"
)

// NewDocker runs the test against a real redis container.
func NewDocker(t *testing.T) (context.Context, *Suite) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
	t.Cleanup(cancel)

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("could not connect to docker: %v", err)
	}
	pool.MaxWait = startTimeout

	resource := startRedis(t, pool)

	redisClient, err := dialRedis(ctx, pool, resource.GetHostPort(redisPort))
	if err != nil {
		_ = pool.Purge(resource)
		t.Fatalf("redis container is not reachable: %v", err)
	}

	t.Cleanup(func() {
		_ = redisClient.Close()

		if err := pool.Purge(resource); err != nil {
			t.Errorf("could not remove redis container: %v", err)
		}
	})

	return ctx, &Suite{
		T:       t,
		Logger:  NewLogger(),
		Storage: redisClient,
	}
}

// startRedis starts a throwaway container that docker removes once it stops,
// and that is killed after containerTTL even if cleanup never runs.
func startRedis(t *testing.T, pool *dockertest.Pool) *dockertest.Resource {
	t.Helper()

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: redisImage,
		Tag:        redisTag,
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("could not start redis container: %v", err)
	}

	if err = resource.Expire(uint(containerTTL.Seconds())); err != nil {
		t.Logf("could not set container expiry: %v", err)
	}

	return resource
}

// dialRedis polls addr until the server answers PING or the pool gives up.
func dialRedis(ctx context.Context, pool *dockertest.Pool, addr string) (*redis.Client, error) {
	var client *redis.Client

	err := pool.Retry(func() error {
		candidate := redis.NewClient(&redis.Options{Addr: addr})
		if err := candidate.Ping(ctx).Err(); err != nil {
			_ = candidate.Close()
			return err
		}

		client = candidate
		return nil
	})
	if err != nil {
		return nil, err
	}

	return client, nil
}
