package redis

import (
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"staar-quiz-service/internal/app"
	"staar-quiz-service/internal/infra/memory"
)

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewSessionStore(client, "quiz", time.Minute)
	session := app.NewSession(app.NewQuestionStore(memory.NewStaticSource(memory.DefaultQuestions()), 0))

	store.Register("conn-1", session)
	if !mr.Exists("quiz:session:conn-1") {
		t.Fatalf("expected redis key to be set")
	}
	if store.Count() != 1 {
		t.Fatalf("expected 1 live session, got %d", store.Count())
	}

	store.Remove("conn-1")
	if mr.Exists("quiz:session:conn-1") {
		t.Fatalf("expected redis key to be removed")
	}
	if _, ok := store.Get("conn-1"); ok {
		t.Fatalf("expected session gone")
	}
}

func TestSessionStoreTouchRenewsMarker(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewSessionStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "quiz", time.Minute)
	session := app.NewSession(app.NewQuestionStore(memory.NewStaticSource(memory.DefaultQuestions()), 0))
	store.Register("conn-1", session)
	defer store.Remove("conn-1")

	mr.FastForward(50 * time.Second)
	store.Touch("conn-1")
	mr.FastForward(50 * time.Second)
	if !mr.Exists("quiz:session:conn-1") {
		t.Fatalf("expected touched marker to survive past the original ttl")
	}

	mr.FastForward(time.Minute)
	if mr.Exists("quiz:session:conn-1") {
		t.Fatalf("expected idle marker to expire")
	}

	// unknown ids do not create markers
	store.Touch("ghost")
	if mr.Exists("quiz:session:ghost") {
		t.Fatalf("expected no marker for unregistered session")
	}
}
