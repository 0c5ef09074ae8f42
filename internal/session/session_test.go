package session_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"

	"prepwise/internal/model"
	"prepwise/internal/session"
)

// newRedis connects to REDIS_URL or skips; these tests touch a live server.
func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		t.Fatalf("redis.ParseURL: %v", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func TestKey(t *testing.T) {
	if got := session.Key("abc"); got != "prepwise:session:abc" {
		t.Errorf("Key = %q", got)
	}
}

func TestStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := session.NewStore(newRedis(t), time.Minute)

	user := model.User{ID: "g-1", Email: "ada@example.com", Name: "Ada"}
	sess, err := store.Create(ctx, user, &oauth2.Token{AccessToken: "a1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(func() { _ = store.Delete(ctx, sess.ID) })

	got, err := store.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.User != user || got.Token.AccessToken != "a1" {
		t.Errorf("Get = %+v", got)
	}

	if err := store.UpdateToken(ctx, sess.ID, &oauth2.Token{AccessToken: "a2"}); err != nil {
		t.Fatalf("UpdateToken: %v", err)
	}
	got, _ = store.Get(ctx, sess.ID)
	if got.Token.AccessToken != "a2" {
		t.Errorf("token after update = %q", got.Token.AccessToken)
	}

	if err := store.Delete(ctx, sess.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, sess.ID); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("Get after delete err = %v, want ErrNotFound", err)
	}
}

func TestStore_UnknownID(t *testing.T) {
	store := session.NewStore(newRedis(t), time.Minute)
	if _, err := store.Get(context.Background(), "does-not-exist"); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if err := store.UpdateToken(context.Background(), "does-not-exist", &oauth2.Token{}); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("UpdateToken err = %v, want ErrNotFound", err)
	}
}

func TestStore_EmptyIDNeedsNoServer(t *testing.T) {
	store := session.NewStore(nil, time.Minute)
	if _, err := store.Get(context.Background(), ""); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if err := store.Delete(context.Background(), ""); err != nil {
		t.Errorf("Delete(\"\") = %v", err)
	}
}
