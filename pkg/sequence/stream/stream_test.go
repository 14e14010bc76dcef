package stream

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astro-panda/queryable/pkg/sequence"
)

// counter yields 1..n and records how many pulls reached the source.
func counter(n int, pulls *int) Next[int] {
	i := 0
	return func(ctx context.Context) (int, bool, error) {
		*pulls++
		if i >= n {
			return 0, false, nil
		}
		i++
		return i, true, nil
	}
}

func TestMaterializeDrainsSource(t *testing.T) {
	var pulls int
	seq := FromFunc(counter(4, &pulls))

	items, err := seq.Materialize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4}, items)
}

func TestCountUnsupported(t *testing.T) {
	var pulls int
	seq := FromFunc(counter(10, &pulls))

	n, err := seq.Count(context.Background())
	assert.ErrorIs(t, err, sequence.ErrCountUnsupported)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, pulls, "count must not consume the stream")
}

func TestWhereFusesIntoPull(t *testing.T) {
	var pulls int
	seq := FromFunc(counter(6, &pulls)).Where(func(v int) bool { return v%2 == 0 })

	items, err := seq.Materialize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4, 6}, items)
}

func TestTakeStopsPullingUpstream(t *testing.T) {
	var pulls int
	seq := FromFunc(counter(1000, &pulls)).Take(3)

	items, err := seq.Materialize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, items)
	// 3 yielding pulls plus the end probe from the drain loop.
	assert.LessOrEqual(t, pulls, 4)
}

func TestSkipThenTake(t *testing.T) {
	var pulls int
	seq := FromFunc(counter(10, &pulls)).Skip(4).Take(2)

	items, err := seq.Materialize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{5, 6}, items)
}

func TestSortBuffersStream(t *testing.T) {
	ch := make(chan int, 4)
	for _, v := range []int{3, 1, 4, 2} {
		ch <- v
	}
	close(ch)

	seq := FromChannel(ch).SortBy(func(a, b int) int { return a - b })
	items, err := seq.Materialize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4}, items)
}

func TestOpsAfterSortApplyToBuffer(t *testing.T) {
	ch := make(chan int, 5)
	for _, v := range []int{5, 3, 1, 4, 2} {
		ch <- v
	}
	close(ch)

	seq := FromChannel(ch).
		SortBy(func(a, b int) int { return a - b }).
		Skip(1).
		Take(2)
	items, err := seq.Materialize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, items)
}

func TestStreamIsSingleUse(t *testing.T) {
	var pulls int
	seq := FromFunc(counter(2, &pulls))

	first, err := seq.Materialize(context.Background())
	require.NoError(t, err)
	assert.Len(t, first, 2)

	second, err := seq.Materialize(context.Background())
	require.NoError(t, err)
	assert.Empty(t, second)
}

func TestFromChannelHonorsContext(t *testing.T) {
	ch := make(chan int) // never fed, never closed
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := FromChannel(ch).Materialize(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNilPredicateAndComparatorAreNoOps(t *testing.T) {
	var pulls int
	seq := FromFunc(counter(3, &pulls)).Where(nil).SortBy(nil)

	items, err := seq.Materialize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, items)
}
