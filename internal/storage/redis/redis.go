package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goodtune/frms/internal/config"
	"github.com/goodtune/frms/internal/storage"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Store implements the storage.Store and storage.Watcher interfaces using Redis
type Store struct {
	client  *redis.Client
	records *recordStore
	logger  zerolog.Logger
}

// Open creates a new Redis-backed storage instance
func Open(cfg config.RedisConfig, logger zerolog.Logger) (*Store, error) {
	dialTimeout, err := time.ParseDuration(cfg.DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid dial_timeout: %w", err)
	}

	readTimeout, err := time.ParseDuration(cfg.ReadTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid read_timeout: %w", err)
	}

	writeTimeout, err := time.ParseDuration(cfg.WriteTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid write_timeout: %w", err)
	}

	// Host may already carry the port
	addr := cfg.Host
	if cfg.Port > 0 && !strings.Contains(cfg.Host, ":") {
		addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  dialTimeout,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Store{
		client:  client,
		records: &recordStore{client: client},
		logger:  logger.With().Str("component", "redis").Logger(),
	}, nil
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

// Records returns the RecordStore implementation
func (s *Store) Records() storage.RecordStore {
	return s.records
}

// Watch subscribes to record changes for one pilot, or all pilots when
// pilotID is empty.
func (s *Store) Watch(ctx context.Context, pilotID string) (<-chan storage.Change, error) {
	var sub *redis.PubSub
	if pilotID == "" {
		sub = s.client.PSubscribe(ctx, changesChannel("*"))
	} else {
		sub = s.client.Subscribe(ctx, changesChannel(pilotID))
	}

	// Wait for the subscription to be confirmed so no change is missed
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to subscribe to record changes: %w", err)
	}

	changes := make(chan storage.Change, 16)
	go func() {
		defer close(changes)
		defer func() { _ = sub.Close() }()

		msgs := sub.Channel()
		prefix := changesChannel("")
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				change, err := storage.ParseChange(strings.TrimPrefix(msg.Channel, prefix), msg.Payload)
				if err != nil {
					s.logger.Warn().Err(err).Str("channel", msg.Channel).Msg("Ignoring malformed change notification")
					continue
				}
				select {
				case changes <- change:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return changes, nil
}
