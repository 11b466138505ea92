package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	"classtrack/internal/broadcast"
	"classtrack/internal/config"
	"classtrack/internal/store"
)

// Monitor follows every session channel and prints issuance and commit
// events as they happen. Useful in ops shells during class hours; the
// stream is advisory, so missing events while disconnected is fine.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	redisClient := store.NewRedis(cfg.RedisAddr)
	if !redisClient.Healthy(ctx) {
		log.Fatalf("redis not reachable at %s", cfg.RedisAddr)
	}

	caster := broadcast.NewRedis(redisClient.Client)
	events, stop, err := caster.SubscribePattern(ctx)
	if err != nil {
		log.Fatalf("subscribe failed: %v", err)
	}
	defer stop()

	log.Println("monitor started, waiting for events...")
	for evt := range events {
		switch evt.Name {
		case broadcast.EventAttendanceCommitted:
			var payload struct {
				StudentID string `json:"student_id"`
			}
			_ = json.Unmarshal(evt.Payload, &payload)
			log.Printf("[%s] %s checked in (session %s)", evt.Timestamp.Format("15:04:05"), payload.StudentID, evt.Channel)
		case broadcast.EventCredentialIssued:
			log.Printf("[%s] new qr code issued (session %s)", evt.Timestamp.Format("15:04:05"), evt.Channel)
		default:
			log.Printf("[%s] %s (session %s)", evt.Timestamp.Format("15:04:05"), evt.Name, evt.Channel)
		}
	}

	log.Println("monitor stopped")
}
