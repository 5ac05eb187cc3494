package repository

import (
	"context"
	"errors"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

var fixedNow = time.Unix(1_700_000_000, 0)

func setupCacheMock(t *testing.T) (*PostgresCacheRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	repo := NewPostgresCacheRepository(db)
	repo.now = func() time.Time { return fixedNow }
	cleanup := func() { db.Close() }
	return repo, mock, cleanup
}

func TestPostgresGet_Hit(t *testing.T) {
	repo, mock, cleanup := setupCacheMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT body FROM catalog_cache WHERE key = $1 AND expires_at >= $2`)).
		WithArgs("k1", fixedNow.Unix()).
		WillReturnRows(sqlmock.NewRows([]string{"body"}).AddRow([]byte(`{"success":true}`)))

	body, ok, err := repo.Get(context.Background(), "k1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok || string(body) != `{"success":true}` {
		t.Errorf("Get = %q, %v; want body, true", body, ok)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresGet_Miss(t *testing.T) {
	repo, mock, cleanup := setupCacheMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT body FROM catalog_cache`)).
		WithArgs("k2", fixedNow.Unix()).
		WillReturnRows(sqlmock.NewRows([]string{"body"}))

	_, ok, err := repo.Get(context.Background(), "k2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected a miss")
	}
}

func TestPostgresGet_Error(t *testing.T) {
	repo, mock, cleanup := setupCacheMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT body FROM catalog_cache`)).
		WithArgs("k3", fixedNow.Unix()).
		WillReturnError(errors.New("query failed"))

	_, _, err := repo.Get(context.Background(), "k3")
	if err == nil || !regexp.MustCompile(`get cache entry`).MatchString(err.Error()) {
		t.Errorf("expected get cache entry error, got %v", err)
	}
}

func TestPostgresSet(t *testing.T) {
	repo, mock, cleanup := setupCacheMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO catalog_cache (key, body, expires_at)`)).
		WithArgs("k4", []byte("{}"), fixedNow.Add(time.Minute).Unix()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Set(context.Background(), "k4", []byte("{}"), time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresSet_Error(t *testing.T) {
	repo, mock, cleanup := setupCacheMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO catalog_cache`)).
		WillReturnError(errors.New("insert failed"))

	if err := repo.Set(context.Background(), "k5", []byte("{}"), time.Minute); err == nil {
		t.Error("expected error, got nil")
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	repo := NewMemoryCacheRepository()
	now := fixedNow
	repo.now = func() time.Time { return now }
	ctx := context.Background()

	src := []byte("body")
	if err := repo.Set(ctx, "k", src, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	src[0] = 'X'

	got, ok, _ := repo.Get(ctx, "k")
	if !ok || string(got) != "body" {
		t.Fatalf("Get = %q, %v; want stored copy", got, ok)
	}

	now = now.Add(2 * time.Minute)
	if _, ok, _ := repo.Get(ctx, "k"); ok {
		t.Error("expected entry to expire")
	}
}

func TestRedisCache_RoundTrip(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	client, err := ConnectRedis(url)
	if err != nil {
		t.Fatalf("ConnectRedis: %v", err)
	}
	defer client.Close()

	repo := NewRedisCacheRepository(client)
	ctx := context.Background()
	if err := repo.Set(ctx, "test-key", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := repo.Get(ctx, "test-key")
	if err != nil || !ok || string(got) != "v" {
		t.Errorf("Get = %q, %v, %v", got, ok, err)
	}
	if _, ok, _ := repo.Get(ctx, "absent-key"); ok {
		t.Error("expected miss for absent key")
	}
}

func TestConnectRedis(t *testing.T) {
	c, err := ConnectRedis("redis://localhost:6379/2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Options().DB != 2 {
		t.Errorf("DB = %d; want 2", c.Options().DB)
	}
	_ = c.Close()

	c, err = ConnectRedis("cache:6380")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Options().Addr != "cache:6380" {
		t.Errorf("Addr = %q", c.Options().Addr)
	}
	_ = c.Close()

	if _, err := ConnectRedis("redis://:bad:port:/x"); err == nil {
		t.Error("expected parse error")
	}
}
