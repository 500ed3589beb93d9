package async

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolExecute(t *testing.T) {
	var running, peak int32
	task := func(name string, value int) Task {
		return Task{
			Name: name,
			Execute: func() (interface{}, error) {
				n := atomic.AddInt32(&running, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&running, -1)
				return value, nil
			},
		}
	}

	pool := NewPool(2)
	results := pool.Execute(context.Background(), []Task{
		task("a", 1), task("b", 2), task("c", 3), task("d", 4), task("e", 5),
	})

	require.Len(t, results, 5)
	assert.Equal(t, 3, results["c"].Data.(int))
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestPoolIsReusable(t *testing.T) {
	pool := NewPool(3)
	ok := Task{Name: "ok", Execute: func() (interface{}, error) { return "done", nil }}

	for i := 0; i < 3; i++ {
		results := pool.Execute(context.Background(), []Task{ok})
		assert.Equal(t, "done", results["ok"].Data)
	}
}

func TestPoolCapturesErrorsAndPanics(t *testing.T) {
	pool := NewPool(2)
	results := pool.Execute(context.Background(), []Task{
		{Name: "fails", Execute: func() (interface{}, error) { return nil, errors.New("boom") }},
		{Name: "panics", Execute: func() (interface{}, error) { panic("kaboom") }},
		{Name: "fine", Execute: func() (interface{}, error) { return 1, nil }},
	})

	require.Len(t, results, 3)
	assert.EqualError(t, results["fails"].Err, "boom")
	assert.ErrorContains(t, results["panics"].Err, "kaboom")
	assert.NoError(t, results["fine"].Err)
}

func TestPoolEmpty(t *testing.T) {
	results := NewPool(4).Execute(context.Background(), nil)
	assert.Empty(t, results)
}
