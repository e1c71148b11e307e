package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/streamvault/upload-gateway/internal/domain/port"
	"github.com/streamvault/upload-gateway/internal/domain/vobj"
)

const redisKeyPrefix = "upload:"

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient connects and pings the server.
func NewRedisClient(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// RedisLedger stores one hash per upload under upload:<objectKey>.
type RedisLedger struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisLedger(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisLedger {
	return &RedisLedger{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func RedisKey(objectKey string) string {
	return redisKeyPrefix + objectKey
}

func (l *RedisLedger) Record(ctx context.Context, record port.UploadRecord) error {
	return l.write(ctx, record.ObjectKey, map[string]interface{}{
		"object_key":   record.ObjectKey,
		"folder":       record.Folder,
		"bucket":       record.Bucket,
		"content_id":   record.ContentID,
		"category":     string(record.Category),
		"is_episode":   strconv.FormatBool(record.IsEpisode),
		"size":         record.Size,
		"content_type": record.ContentType,
		"status":       string(record.Status),
		"created_at":   record.CreatedAt.Format(time.RFC3339Nano),
	})
}

func (l *RedisLedger) UpdateStatus(
	ctx context.Context,
	record port.UploadRecord,
	status vobj.UploadStatus,
	fields map[string]interface{},
) error {
	values := map[string]interface{}{
		"status":     string(status),
		"updated_at": time.Now().UTC().Format(time.RFC3339Nano),
	}
	for k, v := range fields {
		values[k] = flatten(v)
	}
	return l.write(ctx, record.ObjectKey, values)
}

func (l *RedisLedger) write(ctx context.Context, objectKey string, values map[string]interface{}) error {
	key := RedisKey(objectKey)
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, values)
		if l.ttl > 0 {
			pipe.Expire(ctx, key, l.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write upload %s to Redis: %w", objectKey, err)
	}
	return nil
}

// flatten turns list values into comma separated strings for hash fields.
func flatten(v interface{}) interface{} {
	switch t := v.(type) {
	case []string:
		return strings.Join(t, ",")
	case []vobj.Quality:
		parts := make([]string, len(t))
		for i, q := range t {
			parts[i] = string(q)
		}
		return strings.Join(parts, ",")
	default:
		return v
	}
}

func (l *RedisLedger) Close() error {
	return l.client.Close()
}

var _ port.UploadLedger = (*RedisLedger)(nil)
