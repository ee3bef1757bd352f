package observe

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain[T any](ch <-chan T) []T {
	var out []T
	for {
		select {
		case v, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, v)
		default:
			return out
		}
	}
}

func TestHub_PublishInOrder(t *testing.T) {
	t.Parallel()

	h := NewHub[int]()
	ch, cancel := h.Subscribe(8)
	defer cancel()

	for i := 1; i <= 3; i++ {
		h.Publish(i)
	}
	assert.Equal(t, []int{1, 2, 3}, drain(ch))
}

func TestHub_DropsOldestWhenFull(t *testing.T) {
	t.Parallel()

	h := NewHub[int]()
	ch, cancel := h.Subscribe(2)
	defer cancel()

	for i := 1; i <= 5; i++ {
		h.Publish(i)
	}
	assert.Equal(t, []int{4, 5}, drain(ch))
}

func TestHub_MultipleSubscribers(t *testing.T) {
	t.Parallel()

	h := NewHub[string]()
	a, cancelA := h.Subscribe(4)
	b, cancelB := h.Subscribe(4)
	defer cancelA()
	defer cancelB()

	h.Publish("x")
	assert.Equal(t, []string{"x"}, drain(a))
	assert.Equal(t, []string{"x"}, drain(b))
	assert.Equal(t, 2, h.Len())
}

func TestHub_CancelClosesAndUnregisters(t *testing.T) {
	t.Parallel()

	h := NewHub[int]()
	ch, cancel := h.Subscribe(1)
	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)
	assert.Zero(t, h.Len())

	assert.NotPanics(t, func() { h.Publish(1) })
}

func TestHub_Close(t *testing.T) {
	t.Parallel()

	h := NewHub[int]()
	ch, cancel := h.Subscribe(1)
	h.Close()
	h.Close()

	_, ok := <-ch
	assert.False(t, ok)
	assert.NotPanics(t, cancel)
	assert.NotPanics(t, func() { h.Publish(2) })

	late, lateCancel := h.Subscribe(1)
	defer lateCancel()
	_, ok = <-late
	assert.False(t, ok)
}

func TestHub_ConcurrentPublish(t *testing.T) {
	t.Parallel()

	h := NewHub[int]()
	ch, cancel := h.Subscribe(1000)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				h.Publish(j)
			}
		}()
	}
	wg.Wait()
	require.Len(t, drain(ch), 500)
}
