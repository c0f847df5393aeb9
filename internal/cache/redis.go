// Package cache streams room event history to Redis for offline
// consumers. The server stays fully functional without a Redis
// connection; publishing simply becomes a no-op.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Rdb is the global Redis client. Connect it once at application startup.
var Rdb *redis.Client

// DefaultQueueName is the Redis list (queue) name for room event logs.
var DefaultQueueName = "dosip_events"

// RoomEventRecord holds the minimal info an offline consumer needs to
// reconstruct a room's timeline.
type RoomEventRecord struct {
	RoomCode  string                 `json:"room_code"`
	EventType string                 `json:"event_type"`
	ActorID   string                 `json:"actor_id,omitempty"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}

// ConnectRedis initializes the global Redis client with environment variables:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_DB (optional, default 0)
func ConnectRedis() error {
	addr := getEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := getEnvInt("REDIS_DB", 0)

	Rdb = redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Rdb.Ping(ctx).Err(); err != nil {
		Rdb = nil
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return nil
}

// PublishRoomEvent appends an event record to the history queue. Safe
// to call with no Redis connection; failures are logged, never
// propagated, since history is advisory.
func PublishRoomEvent(roomCode, eventType, actorID string, payload map[string]interface{}) {
	if Rdb == nil {
		return
	}
	record := RoomEventRecord{
		RoomCode:  roomCode,
		EventType: eventType,
		ActorID:   actorID,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}
	data, err := json.Marshal(record)
	if err != nil {
		logrus.Warnf("failed to marshal RoomEventRecord: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	queueName := getEnv("EVENT_QUEUE_NAME", DefaultQueueName)
	if err := Rdb.RPush(ctx, queueName, data).Err(); err != nil {
		logrus.Warnf("failed to RPush to Redis list '%s': %v", queueName, err)
	}
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
