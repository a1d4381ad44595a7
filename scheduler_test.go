package whenly

import (
	"context"
	"math"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/whenly/runtime/cown"
	"github.com/viant/whenly/service/admission"
)

func newRuntime(t *testing.T, options ...Option) *Runtime {
	t.Helper()
	srv := New(options...)
	rt := srv.Runtime()
	require.NoError(t, rt.Start(context.Background()))
	t.Cleanup(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = rt.Shutdown(shutdownCtx)
	})
	return rt
}

// Behaviors contending on one cown run in scheduling order.
func TestWhen_SerialOnOneCown(t *testing.T) {
	rt := newRuntime(t)
	ctx := context.Background()

	counter := NewCown(0)
	var mu sync.Mutex
	var order []int
	for i := 1; i <= 6; i++ {
		i := i
		_, err := rt.When(ctx, []*cown.Cown{counter}, func(ctx context.Context, binding *cown.Binding) error {
			binding.SetPayload(0, binding.Payload(0).(int)+i)
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		})
		require.NoError(t, err)
	}

	quiesceCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, rt.RunToQuiescence(quiesceCtx))

	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, order)

	var total int
	done, err := rt.When(ctx, []*cown.Cown{counter}, func(ctx context.Context, binding *cown.Binding) error {
		total = binding.Payload(0).(int)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, done.Wait(quiesceCtx))
	assert.Equal(t, 21, total)
}

// Behaviors over disjoint cowns overlap in time.
func TestWhen_DisjointCownsRunInParallel(t *testing.T) {
	rt := newRuntime(t, WithProcessorWorkers(2))
	ctx := context.Background()

	left, right := NewCown("left"), NewCown("right")
	leftRunning := make(chan struct{})
	rightRunning := make(chan struct{})

	meet := func(announce chan<- struct{}, await <-chan struct{}) error {
		close(announce)
		select {
		case <-await:
			return nil
		case <-time.After(2 * time.Second):
			return context.DeadlineExceeded
		}
	}

	a, err := rt.When(ctx, []*cown.Cown{left}, func(ctx context.Context, binding *cown.Binding) error {
		return meet(leftRunning, rightRunning)
	})
	require.NoError(t, err)
	b, err := rt.When(ctx, []*cown.Cown{right}, func(ctx context.Context, binding *cown.Binding) error {
		return meet(rightRunning, leftRunning)
	})
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	assert.NoError(t, a.Wait(waitCtx))
	assert.NoError(t, b.Wait(waitCtx))
}

// Opposing acquisition orders on the same pair of cowns must never deadlock.
func TestWhen_OpposingOrdersNeverDeadlock(t *testing.T) {
	rt := newRuntime(t, WithProcessorWorkers(4))
	ctx := context.Background()

	a, b := NewCown(0), NewCown(0)
	var runs atomic.Int32
	const rounds = 100
	for i := 0; i < rounds; i++ {
		pair := []*cown.Cown{a, b}
		if i%2 == 1 {
			pair = []*cown.Cown{b, a}
		}
		_, err := rt.When(ctx, pair, func(ctx context.Context, binding *cown.Binding) error {
			runs.Add(1)
			return nil
		})
		require.NoError(t, err)
	}

	quiesceCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	require.NoError(t, rt.RunToQuiescence(quiesceCtx))
	assert.Equal(t, int32(rounds), runs.Load())
}

// A release cascade larger than the run queue buffer must not stall the
// pool: the sole worker publishes every behavior it promotes and then
// consumes them itself.
func TestWhen_ReleaseCascadePastQueueBuffer(t *testing.T) {
	rt := newRuntime(t, WithProcessorWorkers(1), WithConfig(&Config{Queue: QueueConfig{Buffer: 4}}))
	ctx := context.Background()

	const waiters = 8
	cowns := make([]*cown.Cown, waiters)
	for i := range cowns {
		cowns[i] = NewCown(0)
	}

	started := make(chan struct{})
	release := make(chan struct{})
	root, err := rt.When(ctx, cowns, func(ctx context.Context, binding *cown.Binding) error {
		close(started)
		<-release
		return nil
	})
	require.NoError(t, err)
	<-started

	// one waiter per held cown; releasing the root promotes all of them in
	// a single cascade, twice the queue buffer
	var ran atomic.Int32
	for i := 0; i < waiters; i++ {
		_, err := rt.When(ctx, []*cown.Cown{cowns[i]}, func(ctx context.Context, binding *cown.Binding) error {
			ran.Add(1)
			return nil
		})
		require.NoError(t, err)
	}
	close(release)

	quiesceCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, rt.RunToQuiescence(quiesceCtx))
	require.NoError(t, root.Wait(quiesceCtx))
	assert.Equal(t, int32(waiters), ran.Load())

	snapshot := rt.Progress()
	assert.Equal(t, waiters+1, snapshot.Completed)
	assert.True(t, snapshot.Quiescent())
	for _, c := range cowns {
		assert.False(t, c.Held())
	}
}

// When returns without blocking even when ready behaviors outnumber the run
// queue buffer while every worker is busy.
func TestWhen_SubmitPastQueueBufferDoesNotBlock(t *testing.T) {
	rt := newRuntime(t, WithProcessorWorkers(1), WithConfig(&Config{Queue: QueueConfig{Buffer: 2}}))
	ctx := context.Background()

	gate := NewCown(0)
	started := make(chan struct{})
	release := make(chan struct{})
	_, err := rt.When(ctx, []*cown.Cown{gate}, func(ctx context.Context, binding *cown.Binding) error {
		close(started)
		<-release
		return nil
	})
	require.NoError(t, err)
	<-started

	// every submission targets an idle cown, so each is ready on arrival
	const extra = 10
	var ran atomic.Int32
	submitted := make(chan struct{})
	go func() {
		defer close(submitted)
		for i := 0; i < extra; i++ {
			_, err := rt.When(ctx, []*cown.Cown{NewCown(i)}, func(ctx context.Context, binding *cown.Binding) error {
				ran.Add(1)
				return nil
			})
			assert.NoError(t, err)
		}
	}()
	select {
	case <-submitted:
	case <-time.After(2 * time.Second):
		t.Fatal("When blocked on a full run queue")
	}
	close(release)

	quiesceCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, rt.RunToQuiescence(quiesceCtx))
	assert.Equal(t, int32(extra), ran.Load())
}

// A request set naming the same cown twice is rejected synchronously.
func TestWhen_DuplicateCownRejected(t *testing.T) {
	rt := newRuntime(t)
	ctx := context.Background()

	c := NewCown(nil)
	_, err := rt.When(ctx, []*cown.Cown{c, c}, func(ctx context.Context, binding *cown.Binding) error {
		t.Error("body must not run")
		return nil
	})
	assert.ErrorIs(t, err, admission.ErrDuplicateCown)

	_, err = rt.When(ctx, nil, func(ctx context.Context, binding *cown.Binding) error {
		return nil
	})
	assert.ErrorIs(t, err, admission.ErrEmptyRequestSet)

	_, err = rt.When(ctx, []*cown.Cown{c, nil}, func(ctx context.Context, binding *cown.Binding) error {
		return nil
	})
	assert.ErrorIs(t, err, admission.ErrNilCown)

	// nothing was admitted
	assert.Equal(t, 0, rt.Progress().Total())
	assert.False(t, c.Held())
}

// A body scheduling a behavior on a cown it holds does not deadlock; the
// inner behavior runs after the outer one releases.
func TestWhen_NestedOnHeldCown(t *testing.T) {
	rt := newRuntime(t)
	ctx := context.Background()

	c := NewCown([]string(nil))
	outer, err := rt.When(ctx, []*cown.Cown{c}, func(ctx context.Context, binding *cown.Binding) error {
		if _, err := rt.When(ctx, []*cown.Cown{c}, func(ctx context.Context, binding *cown.Binding) error {
			binding.SetPayload(0, append(binding.Payload(0).([]string), "inner"))
			return nil
		}); err != nil {
			return err
		}
		binding.SetPayload(0, append(binding.Payload(0).([]string), "outer"))
		return nil
	})
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, outer.Wait(waitCtx))
	require.NoError(t, rt.RunToQuiescence(waitCtx))

	var observed []string
	final, err := rt.When(ctx, []*cown.Cown{c}, func(ctx context.Context, binding *cown.Binding) error {
		observed = binding.Payload(0).([]string)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, final.Wait(waitCtx))
	assert.Equal(t, []string{"outer", "inner"}, observed)
}

// Use random request sets to ensure multi-cown acquisition is atomic: the
// nonce toggle on every payload detects any overlap between behaviors that
// share a cown.
func TestWhen_Smoke(t *testing.T) {
	rt := newRuntime(t, WithProcessorWorkers(runtime.GOMAXPROCS(0)))
	ctx := context.Background()

	const numCowns = 16
	const numBehaviors = 400

	cowns := make([]*cown.Cown, numCowns)
	for i := range cowns {
		cowns[i] = NewCown(int64(0))
	}

	var collisions atomic.Int32
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < numBehaviors; i++ {
		perm := rng.Perm(numCowns)
		subset := make([]*cown.Cown, 2+rng.Intn(3))
		for j := range subset {
			subset[j] = cowns[perm[j]]
		}
		_, err := rt.When(ctx, subset, func(ctx context.Context, binding *cown.Binding) error {
			// the global source is locked, bodies run on many workers
			nonce := rand.Int63n(math.MaxInt64-1) + 1
			for j := 0; j < binding.Len(); j++ {
				if binding.Payload(j).(int64) != 0 {
					collisions.Add(1)
				}
				binding.SetPayload(j, nonce)
			}
			runtime.Gosched()
			for j := 0; j < binding.Len(); j++ {
				if binding.Payload(j).(int64) != nonce {
					collisions.Add(1)
				}
				binding.SetPayload(j, int64(0))
			}
			return nil
		})
		require.NoError(t, err)
	}

	quiesceCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	require.NoError(t, rt.RunToQuiescence(quiesceCtx))
	assert.Zero(t, collisions.Load())

	snapshot := rt.Progress()
	assert.Equal(t, numBehaviors, snapshot.Completed)
	for _, c := range cowns {
		assert.False(t, c.Held())
		assert.Zero(t, c.QueueLen())
	}
}

// RunToQuiescence returns immediately when nothing was ever scheduled.
func TestRunToQuiescence_Immediate(t *testing.T) {
	rt := newRuntime(t)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	assert.NoError(t, rt.RunToQuiescence(ctx))
	assert.True(t, rt.Quiescent())
}

// Shutdown drains admitted behaviors, keeps admitting nested ones and
// rejects new top-level work.
func TestShutdown_DrainsAndRejects(t *testing.T) {
	srv := New()
	rt := srv.Runtime()
	require.NoError(t, rt.Start(context.Background()))
	ctx := context.Background()

	c := NewCown(0)
	release := make(chan struct{})
	started := make(chan struct{})
	_, err := rt.When(ctx, []*cown.Cown{c}, func(ctx context.Context, binding *cown.Binding) error {
		close(started)
		<-release
		// scheduled while draining, must still be admitted
		_, err := rt.When(ctx, []*cown.Cown{c}, func(ctx context.Context, binding *cown.Binding) error {
			binding.SetPayload(0, binding.Payload(0).(int)+1)
			return nil
		})
		return err
	})
	require.NoError(t, err)
	<-started

	shutdownErr := make(chan error, 1)
	go func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		shutdownErr <- rt.Shutdown(shutdownCtx)
	}()

	// wait for intake to close, then let the behavior finish
	for !rt.Draining() {
		time.Sleep(time.Millisecond)
	}
	_, err = rt.When(ctx, []*cown.Cown{c}, func(ctx context.Context, binding *cown.Binding) error {
		return nil
	})
	assert.ErrorIs(t, err, admission.ErrShuttingDown)

	close(release)
	assert.NoError(t, <-shutdownErr)

	snapshot := rt.Progress()
	assert.Equal(t, 2, snapshot.Completed)
	assert.True(t, snapshot.Quiescent())
	assert.False(t, c.Held())
}
