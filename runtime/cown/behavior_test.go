package cown

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrantCountsDownToReady(t *testing.T) {
	a, b := New(0), New(0)
	behavior := NewBehavior("pair", []*Cown{a, b}, nil)
	assert.Equal(t, StatePending, behavior.State())
	assert.Equal(t, 2, behavior.Remaining())

	assert.False(t, behavior.Grant())
	assert.Equal(t, StatePending, behavior.State())

	assert.True(t, behavior.Grant())
	assert.Equal(t, StateReady, behavior.State())
	assert.Equal(t, 0, behavior.Remaining())
}

func TestOverGrantPanics(t *testing.T) {
	behavior := NewBehavior("", []*Cown{New(0)}, nil)
	behavior.Grant()
	assert.Panics(t, func() {
		behavior.Grant()
	})
}

func TestStartWithUngrantedRequestsPanics(t *testing.T) {
	behavior := NewBehavior("", []*Cown{New(0), New(0)}, nil)
	assert.Panics(t, behavior.Start)
}

func TestOutcomeAndWait(t *testing.T) {
	done := NewBehavior("ok", []*Cown{New(0)}, nil)
	done.Grant()
	done.Start()
	done.Complete()

	state, err := done.Outcome()
	assert.Equal(t, StateCompleted, state)
	assert.NoError(t, err)
	assert.NoError(t, done.Wait(context.Background()))

	boom := errors.New("boom")
	failed := NewBehavior("bad", []*Cown{New(0)}, nil)
	failed.Grant()
	failed.Start()
	failed.Fail(boom)

	state, err = failed.Outcome()
	assert.Equal(t, StateFailed, state)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, failed.Wait(context.Background()), boom)
}

func TestWaitHonorsContext(t *testing.T) {
	pending := NewBehavior("", []*Cown{New(0)}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := pending.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRecordSnapshot(t *testing.T) {
	a, b := New(0), New(0)
	behavior := NewBehavior("transfer", []*Cown{a, b}, nil)
	behavior.Grant()
	behavior.Grant()
	behavior.Start()
	behavior.Fail(errors.New("insufficient funds"))

	rec := behavior.Record()
	require.NotNil(t, rec)
	assert.Equal(t, behavior.ID, rec.ID)
	assert.Equal(t, "transfer", rec.Name)
	assert.Equal(t, []uint64{uint64(a.ID()), uint64(b.ID())}, rec.Cowns)
	assert.Equal(t, StateFailed, rec.State)
	assert.Equal(t, "insufficient funds", rec.Error)
	require.NotNil(t, rec.StartedAt)
	require.NotNil(t, rec.CompletedAt)

	clone := rec.Clone()
	clone.Cowns[0] = 999
	assert.NotEqual(t, rec.Cowns[0], clone.Cowns[0])
}

func TestCurrentBehaviorFromContext(t *testing.T) {
	assert.Nil(t, Current(context.Background()))
	behavior := NewBehavior("", []*Cown{New(0)}, nil)
	ctx := WithBehavior(context.Background(), behavior)
	assert.Same(t, behavior, Current(ctx))
}
