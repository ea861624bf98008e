package idx_test

import (
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/tabtodo/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestNewIsValid(t *testing.T) {
	id := idx.New()

	require.Len(t, id, 26)
	require.True(t, idx.Valid(id))
}

func TestGeneratorOrdering(t *testing.T) {
	clock := time.Unix(1700000000, 0).UTC()
	gen := idx.NewGenerator(func() time.Time { return clock })

	// Same millisecond, so ordering comes from the monotonic entropy
	a := gen.New()
	b := gen.New()
	require.Less(t, a, b)

	clock = clock.Add(time.Second)
	c := gen.New()
	require.Less(t, b, c)
}

func TestTimeExtraction(t *testing.T) {
	tm := time.Unix(1700000000, 0).UTC()
	gen := idx.NewGenerator(func() time.Time { return tm })

	got, err := idx.Time(gen.New())
	require.NoError(t, err)
	require.WithinDuration(t, tm, got, time.Millisecond)

	_, err = idx.Time("nope")
	require.ErrorIs(t, err, idx.ErrInvalid)
}

func TestValid(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"valid", "01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZV", true},
		{"empty", "", false},
		{"padded", " 01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZV", false},
		{"too short", "01HQ7T3Z", false},
		{"bad alphabet", "01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZU!", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, idx.Valid(tt.in))
		})
	}
}

func TestNewConcurrent(t *testing.T) {
	const n = 64

	var (
		mu   sync.Mutex
		seen = make(map[string]struct{}, n)
		wg   sync.WaitGroup
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := idx.New()
			mu.Lock()
			seen[id] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, seen, n)
}
