package infra

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/Marti-code/pizzeria-operating-systems/seating/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAllocator(t *testing.T, small, medium, large, banquet int) *Allocator {
	t.Helper()
	a, err := NewAllocator(small, medium, large, banquet)
	require.NoError(t, err)
	return a
}

func waitForWaiting(t *testing.T, a *Allocator, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return a.Snapshot().Waiting() == n
	}, time.Second, time.Millisecond)
}

func TestAllocator_NewRejectsNegativeCount(t *testing.T) {
	_, err := NewAllocator(0, 0, -2, 1)
	require.ErrorIs(t, err, domain.ErrConfig)
}

func TestAllocator_NewRejectsNonIncreasingCapacities(t *testing.T) {
	_, err := NewAllocator(1, 1, 1, 1, WithCapacities([domain.ClassCount]int{2, 2, 6, 8}))
	require.ErrorIs(t, err, domain.ErrConfig)
}

func TestAllocator_SmallestSufficientTable(t *testing.T) {
	a := newTestAllocator(t, 1, 0, 1, 0)

	h, err := a.Acquire(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, h.Capacity())
	assert.Equal(t, domain.Small, h.Class())
	assert.Equal(t, 2, h.GroupSize())
}

func TestAllocator_UpgradesWhenNominalClassMissing(t *testing.T) {
	a := newTestAllocator(t, 1, 0, 1, 0)

	h, err := a.Acquire(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 6, h.Capacity())
}

func TestAllocator_InvalidSizeFailsFast(t *testing.T) {
	a := newTestAllocator(t, 1, 1, 1, 0)

	for _, size := range []int{0, -1, 7, 100} {
		done := make(chan error, 1)
		go func() {
			_, err := a.Acquire(context.Background(), size)
			done <- err
		}()
		select {
		case err := <-done:
			require.ErrorIs(t, err, domain.ErrInvalidSize, "size %d", size)
			var se *domain.InvalidSizeError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, 6, se.Max)
		case <-time.After(time.Second):
			t.Fatalf("acquire(%d) blocked", size)
		}
	}
	assert.Zero(t, a.Snapshot().Waiting())
}

func TestAllocator_EmptyPoolRejectsEverySize(t *testing.T) {
	a := newTestAllocator(t, 0, 0, 0, 0)

	_, err := a.Acquire(context.Background(), 1)
	require.ErrorIs(t, err, domain.ErrInvalidSize)
}

func TestAllocator_DoubleReleaseFails(t *testing.T) {
	a := newTestAllocator(t, 1, 0, 0, 0)

	h, err := a.Acquire(context.Background(), 1)
	require.NoError(t, err)
	require.NoError(t, a.Release(h))
	require.ErrorIs(t, a.Release(h), domain.ErrInvalidHandle)

	s := a.Snapshot().Classes[domain.Small]
	assert.Equal(t, 1, s.Free)
	assert.Equal(t, 0, s.Occupied)
}

func TestAllocator_RejectsForeignAndNilHandles(t *testing.T) {
	a := newTestAllocator(t, 1, 0, 0, 0)
	b := newTestAllocator(t, 1, 0, 0, 0)

	h, err := b.Acquire(context.Background(), 1)
	require.NoError(t, err)

	require.ErrorIs(t, a.Release(h), domain.ErrInvalidHandle)
	require.ErrorIs(t, a.Release(nil), domain.ErrInvalidHandle)

	forged := domain.NewHandle(domain.Table{ID: 1, Class: domain.Small, Capacity: 2}, 1)
	require.ErrorIs(t, b.Release(forged), domain.ErrInvalidHandle)
	require.NoError(t, b.Release(h))
}

func TestAllocator_TryAcquire(t *testing.T) {
	a := newTestAllocator(t, 1, 0, 0, 0)

	h, err := a.TryAcquire(2)
	require.NoError(t, err)

	_, err = a.TryAcquire(1)
	require.ErrorIs(t, err, domain.ErrNoTable)

	_, err = a.TryAcquire(3)
	require.ErrorIs(t, err, domain.ErrInvalidSize)

	require.NoError(t, a.Release(h))
	assert.Zero(t, a.Snapshot().Waiting())
}

func TestAllocator_FIFOWithinFeasibleSet(t *testing.T) {
	a := newTestAllocator(t, 0, 1, 0, 0)

	held, err := a.Acquire(context.Background(), 4)
	require.NoError(t, err)

	w1, err := a.Submit(3)
	require.NoError(t, err)
	w2, err := a.Submit(4)
	require.NoError(t, err)
	assert.False(t, w1.seated())
	assert.False(t, w2.seated())

	require.NoError(t, a.Release(held))
	assert.True(t, w1.seated())
	assert.False(t, w2.seated())

	h1, err := w1.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, h1.Capacity())

	require.NoError(t, a.Release(h1))
	h2, err := w2.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, held.Table(), h2.Table())
}

func TestAllocator_OneReleaseWakesOneWaiter(t *testing.T) {
	a := newTestAllocator(t, 1, 0, 0, 0)

	held, err := a.Acquire(context.Background(), 1)
	require.NoError(t, err)

	reqs := make([]*Request, 5)
	for i := range reqs {
		reqs[i], err = a.Submit(1)
		require.NoError(t, err)
	}

	require.NoError(t, a.Release(held))
	seated := 0
	for _, r := range reqs {
		if r.seated() {
			seated++
		}
	}
	assert.Equal(t, 1, seated)
	assert.True(t, reqs[0].seated())
	assert.Equal(t, 4, a.Snapshot().Waiting())
}

func TestAllocator_SmallWaiterTakesFreedLargerTable(t *testing.T) {
	a := newTestAllocator(t, 1, 0, 1, 0)

	small, err := a.Acquire(context.Background(), 2)
	require.NoError(t, err)
	large, err := a.Acquire(context.Background(), 5)
	require.NoError(t, err)

	w, err := a.Submit(2)
	require.NoError(t, err)
	assert.Equal(t, 1, a.Snapshot().Classes[domain.Small].Waiting)

	require.NoError(t, a.Release(large))
	h, err := w.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, h.Capacity())

	require.NoError(t, a.Release(small))
	require.NoError(t, a.Release(h))
}

func TestAllocator_OlderLargeGroupBeatsYoungerSmallGroup(t *testing.T) {
	a := newTestAllocator(t, 1, 0, 1, 0)

	small, err := a.Acquire(context.Background(), 1)
	require.NoError(t, err)
	large, err := a.Acquire(context.Background(), 6)
	require.NoError(t, err)

	big, err := a.Submit(6)
	require.NoError(t, err)
	little, err := a.Submit(2)
	require.NoError(t, err)

	// a mesa grande comporta os dois; vence quem chegou primeiro
	require.NoError(t, a.Release(large))
	assert.True(t, big.seated())
	assert.False(t, little.seated())

	// a mesa pequena não comporta o grupo grande, segue para o pequeno
	require.NoError(t, a.Release(small))
	assert.True(t, little.seated())
}

func TestAllocator_BlockingAcquireWakesOnRelease(t *testing.T) {
	a := newTestAllocator(t, 0, 0, 0, 1)

	held, err := a.Acquire(context.Background(), 8)
	require.NoError(t, err)

	got := make(chan *domain.Handle, 1)
	go func() {
		h, err := a.Acquire(context.Background(), 7)
		if err != nil {
			got <- nil
			return
		}
		got <- h
	}()
	waitForWaiting(t, a, 1)

	require.NoError(t, a.Release(held))
	select {
	case h := <-got:
		require.NotNil(t, h)
		assert.Equal(t, 7, h.GroupSize())
		assert.Equal(t, held.Table(), h.Table())
	case <-time.After(time.Second):
		t.Fatalf("waiter was not woken")
	}
}

func TestAllocator_CancelRemovesWaiter(t *testing.T) {
	a := newTestAllocator(t, 0, 1, 0, 0)

	held, err := a.Acquire(context.Background(), 4)
	require.NoError(t, err)

	first, err := a.Submit(4)
	require.NoError(t, err)
	second, err := a.Submit(2)
	require.NoError(t, err)

	require.NoError(t, a.Cancel(first.ID()))
	require.ErrorIs(t, a.Cancel(first.ID()), domain.ErrNotWaiting)

	_, err = first.Wait(context.Background())
	require.ErrorIs(t, err, domain.ErrCancelled)

	// a mesa vai para o próximo da fila, não para o cancelado
	require.NoError(t, a.Release(held))
	assert.False(t, first.seated())
	assert.True(t, second.seated())
}

func TestAllocator_CancelledTableStaysFree(t *testing.T) {
	a := newTestAllocator(t, 1, 0, 0, 0)

	held, err := a.Acquire(context.Background(), 2)
	require.NoError(t, err)
	r, err := a.Submit(2)
	require.NoError(t, err)

	require.NoError(t, a.Cancel(r.ID()))
	require.NoError(t, a.Release(held))

	s := a.Snapshot().Classes[domain.Small]
	assert.Equal(t, 1, s.Free)
	assert.Zero(t, s.Waiting)
}

func TestAllocator_CancelSeatedRequestFails(t *testing.T) {
	a := newTestAllocator(t, 1, 0, 0, 0)

	r, err := a.Submit(1)
	require.NoError(t, err)
	require.True(t, r.seated())
	require.ErrorIs(t, a.Cancel(r.ID()), domain.ErrNotWaiting)
}

func TestAllocator_ContextCancellationLeavesQueue(t *testing.T) {
	a := newTestAllocator(t, 1, 0, 0, 0)

	held, err := a.Acquire(context.Background(), 1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := a.Acquire(ctx, 1)
		done <- err
	}()
	waitForWaiting(t, a, 1)

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, domain.ErrCancelled)
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatalf("cancelled waiter did not return")
	}
	assert.Zero(t, a.Snapshot().Waiting())

	require.NoError(t, a.Release(held))
	assert.Equal(t, 1, a.Snapshot().Classes[domain.Small].Free)
}

func TestAllocator_CancelAll(t *testing.T) {
	a := newTestAllocator(t, 1, 0, 0, 0)

	held, err := a.Acquire(context.Background(), 1)
	require.NoError(t, err)

	reqs := make([]*Request, 3)
	for i := range reqs {
		reqs[i], err = a.Submit(2)
		require.NoError(t, err)
	}

	assert.Equal(t, 3, a.CancelAll())
	for _, r := range reqs {
		_, err := r.Wait(context.Background())
		require.ErrorIs(t, err, domain.ErrCancelled)
	}
	assert.Zero(t, a.CancelAll())

	// mesas ocupadas não são afetadas
	require.NoError(t, a.Release(held))
}

func TestAllocator_ConcurrentConservation(t *testing.T) {
	a := newTestAllocator(t, 3, 2, 2, 1)
	layout := a.Layout()

	const (
		workers    = 32
		iterations = 200
	)

	var (
		wg       sync.WaitGroup
		occupied sync.Map
		failures = make(chan string, workers*iterations)
	)

	checkSnapshot := func() {
		s := a.Snapshot()
		for _, c := range s.Classes {
			if c.Free+c.Occupied != layout.Counts[c.Class] || c.Free < 0 || c.Occupied < 0 {
				failures <- "conservation broken for " + c.Class.String()
				return
			}
		}
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rnd := rand.New(rand.NewSource(seed))
			for j := 0; j < iterations; j++ {
				size := 1 + rnd.Intn(layout.MaxCapacity())

				ctx := context.Background()
				var cancel context.CancelFunc = func() {}
				if rnd.Intn(10) == 0 {
					ctx, cancel = context.WithTimeout(ctx, time.Duration(rnd.Intn(200))*time.Microsecond)
				}
				h, err := a.Acquire(ctx, size)
				cancel()
				if errors.Is(err, domain.ErrCancelled) {
					continue
				}
				if err != nil {
					failures <- err.Error()
					return
				}
				if h.Capacity() < size {
					failures <- "table too small"
					return
				}
				if _, dup := occupied.LoadOrStore(h.Table(), struct{}{}); dup {
					failures <- "table handed out twice"
					return
				}

				checkSnapshot()
				time.Sleep(time.Duration(rnd.Intn(50)) * time.Microsecond)

				occupied.Delete(h.Table())
				if err := a.Release(h); err != nil {
					failures <- err.Error()
					return
				}
			}
		}(int64(i))
	}

	wg.Wait()
	close(failures)
	for f := range failures {
		t.Error(f)
	}

	s := a.Snapshot()
	assert.Zero(t, s.Waiting())
	for _, c := range s.Classes {
		assert.Equal(t, c.Total, c.Free, "class %s", c.Class)
	}
}

// Timeouts, Cancel concorrente e devoluções duplas disputando o mesmo salão.
// Ao final nenhuma mesa pode ficar presa e nenhum pedido pode sobrar.
func TestAllocator_CancellationStress(t *testing.T) {
	a := newTestAllocator(t, 1, 1, 1, 1)
	maxSize := a.Layout().MaxCapacity()

	const groups = 400

	var (
		wg       sync.WaitGroup
		failures = make(chan string, 2*groups)
	)

	for i := 0; i < groups; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rnd := rand.New(rand.NewSource(seed))

			req, err := a.Submit(1 + rnd.Intn(maxSize))
			if err != nil {
				failures <- err.Error()
				return
			}

			ctx := context.Background()
			var cancel context.CancelFunc = func() {}
			switch rnd.Intn(3) {
			case 0:
				ctx, cancel = context.WithTimeout(ctx, time.Duration(rnd.Intn(300))*time.Microsecond)
			case 1:
				delay := time.Duration(rnd.Intn(300)) * time.Microsecond
				wg.Add(1)
				go func() {
					defer wg.Done()
					time.Sleep(delay)
					if err := a.Cancel(req.ID()); err != nil && !errors.Is(err, domain.ErrNotWaiting) {
						failures <- "cancel: " + err.Error()
					}
				}()
			}

			h, err := req.Wait(ctx)
			cancel()
			if errors.Is(err, domain.ErrCancelled) {
				if h != nil {
					failures <- "cancelled request kept a handle"
				}
				return
			}
			if err != nil {
				failures <- err.Error()
				return
			}

			time.Sleep(time.Duration(rnd.Intn(100)) * time.Microsecond)
			if err := a.Release(h); err != nil {
				failures <- "release: " + err.Error()
				return
			}
			if err := a.Release(h); !errors.Is(err, domain.ErrInvalidHandle) {
				failures <- "second release should fail with ErrInvalidHandle"
			}
		}(int64(i))
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatalf("groups still blocked, snapshot: %+v", a.Snapshot())
	}

	close(failures)
	for f := range failures {
		t.Error(f)
	}

	s := a.Snapshot()
	assert.Zero(t, s.Waiting())
	for _, c := range s.Classes {
		assert.Equal(t, c.Total, c.Free, "class %s", c.Class)
		assert.Zero(t, c.Occupied, "class %s", c.Class)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	assert.Empty(t, a.live)
	assert.Empty(t, a.queue.byID)
}
