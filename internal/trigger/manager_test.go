package trigger

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingBackfiller struct {
	mu  sync.Mutex
	ids []int64
	wg  *sync.WaitGroup
}

func (b *recordingBackfiller) Backfill(_ context.Context, d Descriptor) error {
	defer b.wg.Done()
	b.mu.Lock()
	b.ids = append(b.ids, d.ID)
	b.mu.Unlock()
	return nil
}

func newTestManager() (*TableManager, *int) {
	clears := 0
	pool := NewPool(2, 4)
	m := NewTableManager(pool, func(Descriptor) Writer { return &countingWriter{} }, func() { clears++ })
	return m, &clears
}

func TestTableManagerInstallsTriggerForLiveDescriptor(t *testing.T) {
	m, clears := newTestManager()
	task, err := m.Update(context.Background(), []Descriptor{{ID: 1, State: StateLive}}, nil)
	require.NoError(t, err)
	require.NotNil(t, task)
	require.NotNil(t, m.Trigger(1))

	task()
	assert.Equal(t, 1, *clears)
}

func TestTableManagerNoChangeReturnsNilTask(t *testing.T) {
	m, _ := newTestManager()
	descs := []Descriptor{{ID: 1, State: StateLive}}

	_, err := m.Update(context.Background(), descs, nil)
	require.NoError(t, err)

	task, err := m.Update(context.Background(), descs, nil)
	require.NoError(t, err)
	assert.Nil(t, task)
}

func TestTableManagerBackfillStateSpawnsWorkerAndInstallsTrigger(t *testing.T) {
	m, _ := newTestManager()
	var wg sync.WaitGroup
	wg.Add(1)
	bf := &recordingBackfiller{wg: &wg}

	task, err := m.Update(context.Background(), []Descriptor{{ID: 7, State: StateBackfill}}, bf)
	require.NoError(t, err)
	require.NotNil(t, task)
	require.NotNil(t, m.Trigger(7))

	wg.Wait()
	assert.Equal(t, []int64{7}, bf.ids)
}

func TestTableManagerDeletingStateDropsTrigger(t *testing.T) {
	m, _ := newTestManager()
	_, err := m.Update(context.Background(), []Descriptor{{ID: 1, State: StateLive}}, nil)
	require.NoError(t, err)
	require.NotNil(t, m.Trigger(1))

	task, err := m.Update(context.Background(), []Descriptor{{ID: 1, State: StateDeleting}}, nil)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Nil(t, m.Trigger(1))
}

func TestTableManagerDropsDescriptorsNoLongerPresent(t *testing.T) {
	m, _ := newTestManager()
	_, err := m.Update(context.Background(), []Descriptor{{ID: 1, State: StateLive}, {ID: 2, State: StateLive}}, nil)
	require.NoError(t, err)

	task, err := m.Update(context.Background(), []Descriptor{{ID: 1, State: StateLive}}, nil)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.NotNil(t, m.Trigger(1))
	assert.Nil(t, m.Trigger(2))
}
