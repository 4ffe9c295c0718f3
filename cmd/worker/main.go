package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rollcall/internal/attendance"
	"rollcall/internal/config"
	"rollcall/internal/queue"
	"rollcall/internal/session"
	"rollcall/internal/store"
)

// Worker consumes submission events to keep the live-stats cache warm and
// periodically sweeps expired sessions closed.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "rollcall:events")
	}

	attRepo := attendance.NewRepository(db.Client)
	statsCache := attendance.NewStatsCache(redisClient.Client, time.Hour)
	sessions := session.NewService(session.NewRepository(db.Client), cfg.SessionTTL)

	go sweepLoop(ctx, sessions)

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for submission events...")
	for msg := range messages {
		if msg.Type != "submission" {
			continue
		}

		sessionID := string(msg.Body)
		stats, err := attRepo.Stats(ctx, sessionID)
		if err != nil {
			log.Printf("stats recompute failed for %s: %v", sessionID, err)
			continue
		}
		if err := statsCache.Put(ctx, sessionID, stats); err != nil {
			log.Printf("stats cache update failed for %s: %v", sessionID, err)
			continue
		}
		log.Printf("session %s: %d submissions, %d present", sessionID, stats.TotalSubmissions, stats.PresentCount)
	}

	log.Println("worker stopped")
}

// sweepLoop closes sessions whose window has passed.
func sweepLoop(ctx context.Context, sessions *session.Service) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.SweepExpired(ctx)
			if err != nil {
				log.Printf("session sweep failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("closed %d expired session(s)", n)
			}
		}
	}
}
