package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ErrLockTimeout is returned when a seat lock could not be acquired in time
var ErrLockTimeout = errors.New("timed out waiting for seat lock")

// releaseScript deletes the lock only if this holder still owns it
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// RedisSeatLocker is a SeatLocker shared by every process using the same
// Redis. A holder that outlives ttl loses the lock; the inventory version
// check still rejects its write.
type RedisSeatLocker struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	wait   time.Duration
	poll   time.Duration
	logger *logrus.Logger
}

// NewRedisSeatLocker creates a RedisSeatLocker. wait bounds how long Lock
// polls before giving up.
func NewRedisSeatLocker(client redis.UniversalClient, ttl, wait time.Duration, logger *logrus.Logger) *RedisSeatLocker {
	return &RedisSeatLocker{
		client: client,
		prefix: "seatlock:",
		ttl:    ttl,
		wait:   wait,
		poll:   20 * time.Millisecond,
		logger: logger,
	}
}

// Lock acquires key with SET NX PX, polling until it is free
func (l *RedisSeatLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := l.prefix + key
	token := uuid.New().String()

	if l.wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.wait)
		defer cancel()
	}

	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("failed to acquire seat lock: %w", err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, ErrLockTimeout
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.client, []string{redisKey}, token).Err(); err != nil {
			l.logger.WithFields(logrus.Fields{
				"key":   key,
				"error": err,
			}).Warn("Failed to release seat lock")
		}
	}, nil
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}
