package memory

import (
	"context"
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewCache()

	if _, ok, err := c.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	if err := c.Set(ctx, "k", []byte("v1")); err != nil {
		t.Fatalf("set: %v", err)
	}
	payload, ok, err := c.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if string(payload) != "v1" {
		t.Errorf("expected v1, got %q", payload)
	}

	if err := c.Set(ctx, "k", []byte("v2")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	payload, _, _ = c.Get(ctx, "k")
	if string(payload) != "v2" {
		t.Errorf("expected v2 after overwrite, got %q", payload)
	}

	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("expected miss after delete")
	}
}

func TestCachePurge(t *testing.T) {
	ctx := context.Background()
	c := NewCache()
	c.Set(ctx, "a", []byte("1"))
	c.Set(ctx, "b", []byte("2"))

	if err := c.Purge(ctx); err != nil {
		t.Fatalf("purge: %v", err)
	}
	if c.Size() != 0 {
		t.Errorf("expected empty cache, got %d entries", c.Size())
	}
}

func TestCacheCopiesPayloads(t *testing.T) {
	ctx := context.Background()
	c := NewCache()

	in := []byte("original")
	c.Set(ctx, "k", in)
	in[0] = 'X'

	out, _, _ := c.Get(ctx, "k")
	if string(out) != "original" {
		t.Errorf("stored payload shares memory with caller: %q", out)
	}

	out[0] = 'Y'
	again, _, _ := c.Get(ctx, "k")
	if string(again) != "original" {
		t.Errorf("returned payload shares memory with store: %q", again)
	}
}
