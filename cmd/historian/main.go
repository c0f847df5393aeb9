// cmd/historian/main.go is an asynchronous service that pops room event
// records from the Redis queue and persists them to PostgreSQL for
// offline analysis.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"

	"github.com/dosip/dosip/internal/cache"
	"github.com/dosip/dosip/internal/database"
)

// HistorianService drains the event queue into the room_events table in
// batches.
type HistorianService struct {
	redisClient *redis.Client
	batchSize   int
	flushDelay  time.Duration

	batchMu  sync.Mutex
	batch    []cache.RoomEventRecord
	ctx      context.Context
	cancelFn context.CancelFunc
}

// NewHistorianService constructs the service from environment variables or defaults.
func NewHistorianService() *HistorianService {
	batchSize := getEnvInt("HISTORIAN_BATCH_SIZE", 20)
	flushMs := getEnvInt("HISTORIAN_FLUSH_MS", 500)

	rdb := redis.NewClient(&redis.Options{
		Addr: getEnv("REDIS_ADDR", "localhost:6379"),
	})

	ctx, cancel := context.WithCancel(context.Background())
	return &HistorianService{
		redisClient: rdb,
		batchSize:   batchSize,
		flushDelay:  time.Duration(flushMs) * time.Millisecond,
		batch:       make([]cache.RoomEventRecord, 0, batchSize),
		ctx:         ctx,
		cancelFn:    cancel,
	}
}

// Run blocks until the context is cancelled, flushing whatever remains.
func (hs *HistorianService) Run() {
	go hs.readRedisLoop()

	log.Println("dosip-historian service started.")
	<-hs.ctx.Done()
	hs.flushBatchToDB()
	log.Println("dosip-historian shutting down.")
}

// readRedisLoop continuously uses BLPop to retrieve records from the queue.
func (hs *HistorianService) readRedisLoop() {
	ticker := time.NewTicker(hs.flushDelay)
	defer ticker.Stop()

	queueName := getEnv("EVENT_QUEUE_NAME", cache.DefaultQueueName)

	for {
		select {
		case <-hs.ctx.Done():
			return

		case <-ticker.C:
			hs.flushBatchToDB()

		default:
			// BLPop with a short timeout so cancellation is handled.
			res, err := hs.redisClient.BLPop(hs.ctx, 3*time.Second, queueName).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				if hs.ctx.Err() != nil {
					return
				}
				log.Printf("[ERROR] BLPop: %v\n", err)
				continue
			}
			if len(res) < 2 {
				continue
			}

			// res[0] is the queue name and res[1] the payload.
			var record cache.RoomEventRecord
			if err := json.Unmarshal([]byte(res[1]), &record); err != nil {
				log.Printf("invalid event record: %v\n", err)
				continue
			}
			hs.appendToBatch(record)
		}
	}
}

// appendToBatch adds a record and flushes when the threshold is reached.
func (hs *HistorianService) appendToBatch(record cache.RoomEventRecord) {
	hs.batchMu.Lock()
	defer hs.batchMu.Unlock()

	hs.batch = append(hs.batch, record)
	if len(hs.batch) >= hs.batchSize {
		hs.flushBatchLocked()
	}
}

func (hs *HistorianService) flushBatchToDB() {
	hs.batchMu.Lock()
	defer hs.batchMu.Unlock()
	hs.flushBatchLocked()
}

// flushBatchLocked writes the current batch in one transaction. Assumes
// batchMu is held.
func (hs *HistorianService) flushBatchLocked() {
	if len(hs.batch) == 0 {
		return
	}
	batchCopy := make([]cache.RoomEventRecord, len(hs.batch))
	copy(batchCopy, hs.batch)
	hs.batch = hs.batch[:0]

	ctx := context.Background()
	err := pgx.BeginTxFunc(ctx, database.DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			INSERT INTO room_events (room_code, event_type, actor_id, payload, occurred_at)
			VALUES ($1, $2, $3, $4, to_timestamp($5 / 1000.0))
		`
		for _, rec := range batchCopy {
			payload, err := json.Marshal(rec.Payload)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, q, rec.RoomCode, rec.EventType, rec.ActorID, payload, rec.Timestamp); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("[ERROR] flush batch: %v\n", err)
	} else {
		log.Printf("Flushed %d events to DB.\n", len(batchCopy))
	}
}

func main() {
	if err := database.ConnectDB(); err != nil {
		log.Fatalf("database connect failed: %v", err)
	}
	defer database.Close()

	hs := NewHistorianService()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		hs.cancelFn()
	}()

	hs.Run()
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

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
