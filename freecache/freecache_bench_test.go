package freecache

import (
	"context"
	"testing"
	"time"

	"github.com/sandrolain/outputcache"
)

func BenchmarkSet(b *testing.B) {
	cache := New(256 * 1024 * 1024) // 256MB
	ctx := context.Background()
	key := "benchmark-key"
	entry := &outputcache.CacheEntry{StatusCode: 200, Body: make([]byte, 1024)}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cache.Set(ctx, key, entry, time.Minute)
	}
}

func BenchmarkGet(b *testing.B) {
	cache := New(256 * 1024 * 1024) // 256MB
	ctx := context.Background()
	key := "benchmark-key"
	entry := &outputcache.CacheEntry{StatusCode: 200, Body: make([]byte, 1024)}
	_ = cache.Set(ctx, key, entry, time.Minute)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = cache.Get(ctx, key)
	}
}

func BenchmarkSetParallel(b *testing.B) {
	cache := New(256 * 1024 * 1024) // 256MB
	ctx := context.Background()
	entry := &outputcache.CacheEntry{StatusCode: 200, Body: make([]byte, 1024)}

	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			key := string(rune('a' + i%26))
			_ = cache.Set(ctx, key, entry, time.Minute)
			i++
		}
	})
}

func BenchmarkGetParallel(b *testing.B) {
	cache := New(256 * 1024 * 1024) // 256MB
	ctx := context.Background()
	entry := &outputcache.CacheEntry{StatusCode: 200, Body: make([]byte, 1024)}

	for i := 0; i < 26; i++ {
		key := string(rune('a' + i))
		_ = cache.Set(ctx, key, entry, time.Minute)
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			key := string(rune('a' + i%26))
			_, _, _ = cache.Get(ctx, key)
			i++
		}
	})
}

// BenchmarkSetHTTPResponse uses a body size typical of an HTTP response with headers.
func BenchmarkSetHTTPResponse(b *testing.B) {
	cache := New(256 * 1024 * 1024)
	ctx := context.Background()
	entry := &outputcache.CacheEntry{StatusCode: 200, Body: make([]byte, 2048)}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := string(rune('a' + i%100))
		_ = cache.Set(ctx, key, entry, time.Minute)
	}
}

func BenchmarkGetHTTPResponse(b *testing.B) {
	cache := New(256 * 1024 * 1024)
	ctx := context.Background()
	entry := &outputcache.CacheEntry{StatusCode: 200, Body: make([]byte, 2048)}

	for i := 0; i < 100; i++ {
		key := string(rune('a' + i))
		_ = cache.Set(ctx, key, entry, time.Minute)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := string(rune('a' + i%100))
		_, _, _ = cache.Get(ctx, key)
	}
}

// BenchmarkSetLargeResponse uses a 100KB body.
func BenchmarkSetLargeResponse(b *testing.B) {
	cache := New(256 * 1024 * 1024)
	ctx := context.Background()
	entry := &outputcache.CacheEntry{StatusCode: 200, Body: make([]byte, 100*1024)}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := string(rune('a' + i%50))
		_ = cache.Set(ctx, key, entry, time.Minute)
	}
}

func BenchmarkGetLargeResponse(b *testing.B) {
	cache := New(256 * 1024 * 1024)
	ctx := context.Background()
	entry := &outputcache.CacheEntry{StatusCode: 200, Body: make([]byte, 100*1024)}

	for i := 0; i < 50; i++ {
		key := string(rune('a' + i))
		_ = cache.Set(ctx, key, entry, time.Minute)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := string(rune('a' + i%50))
		_, _, _ = cache.Get(ctx, key)
	}
}

func BenchmarkMixedOperations(b *testing.B) {
	cache := New(256 * 1024 * 1024)
	ctx := context.Background()
	entry := &outputcache.CacheEntry{StatusCode: 200, Body: make([]byte, 1024)}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := string(rune('a' + i%100))
		switch i % 2 {
		case 0:
			_ = cache.Set(ctx, key, entry, time.Minute)
		case 1:
			_, _, _ = cache.Get(ctx, key)
		}
	}
}
