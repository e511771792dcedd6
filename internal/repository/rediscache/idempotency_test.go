package rediscache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupLedger(t *testing.T, retention time.Duration) (*IdempotencyLedger, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewIdempotencyLedger(client, retention), mr
}

func TestLedger_RecordThenHas(t *testing.T) {
	ledger, _ := setupLedger(t, 0)
	ctx := context.Background()

	ok, err := ledger.Has(ctx, "m1")
	if err != nil {
		t.Fatalf("Has: %v", err)
	}
	if ok {
		t.Error("unrecorded key must be a miss")
	}

	if err := ledger.Record(ctx, "m1"); err != nil {
		t.Fatalf("Record: %v", err)
	}

	ok, err = ledger.Has(ctx, "m1")
	if err != nil {
		t.Fatalf("Has: %v", err)
	}
	if !ok {
		t.Error("recorded key must be a hit")
	}
}

func TestLedger_ExpiryIsAMiss(t *testing.T) {
	ledger, mr := setupLedger(t, time.Hour)
	ctx := context.Background()

	if err := ledger.Record(ctx, "m1"); err != nil {
		t.Fatalf("Record: %v", err)
	}

	mr.FastForward(time.Hour + time.Minute)

	ok, err := ledger.Has(ctx, "m1")
	if err != nil {
		t.Fatalf("Has: %v", err)
	}
	if ok {
		t.Error("expired key must be a miss")
	}
}

func TestLedger_ConcurrentRecordKeepsFirstWrite(t *testing.T) {
	ledger, mr := setupLedger(t, time.Hour)
	ctx := context.Background()

	if err := ledger.Record(ctx, "m1"); err != nil {
		t.Fatalf("first Record: %v", err)
	}
	first, err := mr.Get("webhook:event:m1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	// A redelivered event records again; NX preserves the original value.
	if err := ledger.Record(ctx, "m1"); err != nil {
		t.Fatalf("second Record: %v", err)
	}
	second, err := mr.Get("webhook:event:m1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if first != second {
		t.Error("second Record must not overwrite the first")
	}
}
