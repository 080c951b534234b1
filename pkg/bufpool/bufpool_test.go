package bufpool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_TierSelection(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantCap int
	}{
		{name: "small", size: 100, wantCap: DefaultSmallSize},
		{name: "zero", size: 0, wantCap: DefaultSmallSize},
		{name: "small boundary", size: DefaultSmallSize, wantCap: DefaultSmallSize},
		{name: "just above small", size: DefaultSmallSize + 1, wantCap: DefaultMediumSize},
		{name: "medium", size: 10 * 1024, wantCap: DefaultMediumSize},
		{name: "medium boundary", size: DefaultMediumSize, wantCap: DefaultMediumSize},
		{name: "large", size: 100 * 1024, wantCap: DefaultLargeSize},
		{name: "large boundary", size: DefaultLargeSize, wantCap: DefaultLargeSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := Get(tt.size)
			defer Put(buf)

			assert.Equal(t, tt.size, len(buf))
			assert.Equal(t, tt.wantCap, cap(buf))
		})
	}
}

func TestGet_OversizedNotPooled(t *testing.T) {
	buf := Get(2 * DefaultLargeSize)

	assert.Equal(t, 2*DefaultLargeSize, len(buf))
	assert.Equal(t, len(buf), cap(buf))

	// Returning it is a no-op, not a panic
	require.NotPanics(t, func() { Put(buf) })
}

func TestPut_Tolerant(t *testing.T) {
	require.NotPanics(t, func() { Put(nil) })
	require.NotPanics(t, func() { Put([]byte{}) })
	// A foreign slice with a tier-sized capacity is simply adopted
	require.NotPanics(t, func() { Put(make([]byte, DefaultSmallSize)) })
}

func TestPool_Reuse(t *testing.T) {
	pool := NewPool(&Config{SmallSize: 64, MediumSize: 256, LargeSize: 1024})

	buf := pool.Get(32)
	buf[0] = 0xAB
	pool.Put(buf)

	again := pool.Get(32)
	defer pool.Put(again)
	assert.Equal(t, 64, cap(again))
}

func TestNewPool_Defaults(t *testing.T) {
	for _, pool := range []*Pool{NewPool(nil), NewPool(&Config{})} {
		buf := pool.Get(100)
		assert.Equal(t, DefaultSmallSize, cap(buf))
		pool.Put(buf)
	}
}

func TestPool_Concurrent(t *testing.T) {
	const goroutines = 16
	const iterations = 200

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				size := (id*131 + j*17) % (2 * DefaultMediumSize)
				buf := Get(size)
				if len(buf) > 0 {
					buf[0] = byte(id)
				}
				Put(buf)
			}
		}(i)
	}
	wg.Wait()
}

func BenchmarkGet(b *testing.B) {
	b.Run("small", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			Put(Get(1024))
		}
	})
	b.Run("medium", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			Put(Get(32 * 1024))
		}
	})
}
