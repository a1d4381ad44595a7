package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/viant/whenly/runtime/cown"
	"github.com/viant/whenly/service/dao"
)

func TestService(t *testing.T) {
	service := New()
	ctx := context.Background()

	record := &cown.Record{ID: "b1", Name: "transfer", Cowns: []uint64{1, 2}, State: cown.StateRunning, ScheduledAt: time.Now()}
	assert.NoError(t, service.Save(ctx, record))

	loaded, err := service.Load(ctx, "b1")
	assert.NoError(t, err)
	assert.Equal(t, record, loaded)
	assert.NotSame(t, record, loaded)

	// the store keeps its own copy
	record.State = cown.StateCompleted
	loaded, _ = service.Load(ctx, "b1")
	assert.Equal(t, cown.StateRunning, loaded.State)

	list, _ := service.List(ctx)
	assert.Len(t, list, 1)

	assert.NoError(t, service.Delete(ctx, "b1"))
	_, err = service.Load(ctx, "b1")
	assert.ErrorIs(t, err, dao.ErrNotFound)
}

func TestServiceValidation(t *testing.T) {
	service := New()
	ctx := context.Background()

	assert.ErrorIs(t, service.Save(ctx, nil), dao.ErrNilEntity)
	assert.ErrorIs(t, service.Save(ctx, &cown.Record{}), dao.ErrInvalidID)
	_, err := service.Load(ctx, "")
	assert.ErrorIs(t, err, dao.ErrInvalidID)
	assert.ErrorIs(t, service.Delete(ctx, "missing"), dao.ErrNotFound)
}

func TestListByState(t *testing.T) {
	service := New()
	ctx := context.Background()

	for id, state := range map[string]cown.State{
		"b1": cown.StateCompleted,
		"b2": cown.StateFailed,
		"b3": cown.StateCompleted,
	} {
		assert.NoError(t, service.Save(ctx, &cown.Record{ID: id, State: state}))
	}

	completed, _ := service.List(ctx, dao.NewParameter("State", string(cown.StateCompleted)))
	assert.Len(t, completed, 2)

	terminal, _ := service.List(ctx, dao.NewParameter("State", string(cown.StateCompleted), string(cown.StateFailed)))
	assert.Len(t, terminal, 3)

	// unknown parameters are ignored
	all, _ := service.List(ctx, dao.NewParameter("Owner", "x"))
	assert.Len(t, all, 3)
}
