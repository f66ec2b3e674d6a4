package issues

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestCacheReturnsSameTableUntilFileChanges(t *testing.T) {
	path := writeFile(t, "issues.csv", sampleCSV)
	cache := NewCache(LoadOptions{}, nil)
	ctx := context.Background()

	first, err := cache.Get(ctx, path)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	second, err := cache.Get(ctx, path)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if first != second {
		t.Fatal("expected the cached table on repeated Get")
	}
	if cache.Loads() != 1 {
		t.Fatalf("expected 1 load, got %d", cache.Loads())
	}

	updated := sampleCSV + "OPS-5,New issue,access,Open,0,2024-03-01,\n"
	if err := os.WriteFile(path, []byte(updated), 0o600); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	later := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	third, err := cache.Get(ctx, path)
	if err != nil {
		t.Fatalf("Get after change: %v", err)
	}
	if third == first {
		t.Fatal("expected a reload after the file changed")
	}
	if third.Len() != first.Len()+1 {
		t.Fatalf("expected %d records after reload, got %d", first.Len()+1, third.Len())
	}
}

func TestCacheInvalidate(t *testing.T) {
	path := writeFile(t, "issues.csv", sampleCSV)
	cache := NewCache(LoadOptions{}, nil)
	ctx := context.Background()

	if _, err := cache.Get(ctx, path); err != nil {
		t.Fatalf("Get: %v", err)
	}
	cache.Invalidate(path)
	if _, err := cache.Get(ctx, path); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if cache.Loads() != 2 {
		t.Fatalf("expected reload after Invalidate, got %d loads", cache.Loads())
	}
}

func TestCacheMissingFile(t *testing.T) {
	cache := NewCache(LoadOptions{}, nil)
	if _, err := cache.Get(context.Background(), "/definitely/not/here.csv"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
