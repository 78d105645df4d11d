package session

import (
	"testing"
	"time"

	"github.com/MrEthical07/opsauth/permission"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStoreTest(t *testing.T) (*RedisStore, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return NewRedisStore(rdb, "console"), mr, rdb
}

func testRecord() Record {
	created := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	last := time.Date(2024, 6, 15, 18, 0, 0, 0, time.UTC)
	return Record{
		Token:     "tok-abc.def.ghi",
		ExpiresAt: time.Now().Add(time.Hour).Truncate(time.Second),
		User: User{
			ID:        "u-42",
			Email:     "ops@x.com",
			Name:      "Ops Lead",
			Role:      permission.RoleOperator,
			Active:    true,
			CreatedAt: created,
			LastLogin: &last,
		},
	}
}

func assertSameRecord(t *testing.T, want, got Record) {
	t.Helper()
	if got.Token != want.Token {
		t.Fatalf("token mismatch: want %q got %q", want.Token, got.Token)
	}
	if !got.ExpiresAt.Equal(want.ExpiresAt) {
		t.Fatalf("expiry mismatch: want %v got %v", want.ExpiresAt, got.ExpiresAt)
	}
	wu, gu := want.User, got.User
	if wu.ID != gu.ID || wu.Email != gu.Email || wu.Name != gu.Name || wu.Role != gu.Role || wu.Active != gu.Active {
		t.Fatalf("user mismatch: want %+v got %+v", wu, gu)
	}
	if !wu.CreatedAt.Equal(gu.CreatedAt) {
		t.Fatalf("created_at mismatch: want %v got %v", wu.CreatedAt, gu.CreatedAt)
	}
	if (wu.LastLogin == nil) != (gu.LastLogin == nil) {
		t.Fatalf("last_login presence mismatch")
	}
	if wu.LastLogin != nil && !wu.LastLogin.Equal(*gu.LastLogin) {
		t.Fatalf("last_login mismatch: want %v got %v", *wu.LastLogin, *gu.LastLogin)
	}
}
