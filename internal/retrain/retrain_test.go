package retrain

import (
	"context"
	"sync"
	"testing"
	"time"

	rediscommon "github.com/divakargaba/Dehydration/common/redis"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeTrainer struct {
	mu       sync.Mutex
	personal map[string]int
	ensemble map[string]int
	ok       bool
}

func newFakeTrainer(ok bool) *fakeTrainer {
	return &fakeTrainer{personal: map[string]int{}, ensemble: map[string]int{}, ok: ok}
}

func (f *fakeTrainer) TrainPersonal(_ context.Context, userID string, _ int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.personal[userID]++
	return f.ok
}

func (f *fakeTrainer) TrainEnsemble(_ context.Context, userID string, _ int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensemble[userID]++
	return f.ok
}

func (f *fakeTrainer) calls(userID string) (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.personal[userID], f.ensemble[userID]
}

func TestExecutor_Run(t *testing.T) {
	tr := newFakeTrainer(false)
	exec := NewExecutor(tr, 50, zap.NewNop())

	out := exec.Run(context.Background(), "u1")

	assert.Equal(t, Outcome{}, out)
	p, e := tr.calls("u1")
	assert.Equal(t, 1, p)
	assert.Equal(t, 1, e)
	s := exec.Metrics().GetSnapshot()
	assert.Equal(t, int64(1), s.JobsRun)
	assert.Equal(t, int64(1), s.PersonalFailed)
	assert.Equal(t, int64(1), s.EnsembleFailed)
}

func TestQueue_CoalescesPendingJobs(t *testing.T) {
	tr := newFakeTrainer(true)
	q := NewQueue(NewExecutor(tr, 50, zap.NewNop()), 1, 4, zap.NewNop())
	ctx := context.Background()

	assert.True(t, q.Schedule(ctx, "u1"))
	assert.True(t, q.Schedule(ctx, "u1"))
	assert.True(t, q.Schedule(ctx, "u2"))
	assert.Equal(t, 2, q.Pending())

	q.Start(ctx)
	q.Stop()

	p, e := tr.calls("u1")
	assert.Equal(t, 1, p)
	assert.Equal(t, 1, e)
	p, _ = tr.calls("u2")
	assert.Equal(t, 1, p)
	assert.Equal(t, 0, q.Pending())
}

func TestQueue_FullAndClosed(t *testing.T) {
	tr := newFakeTrainer(true)
	q := NewQueue(NewExecutor(tr, 50, zap.NewNop()), 1, 1, zap.NewNop())
	ctx := context.Background()

	assert.True(t, q.Schedule(ctx, "u1"))
	assert.False(t, q.Schedule(ctx, "u2"))

	q.Start(ctx)
	q.Stop()
	assert.False(t, q.Schedule(ctx, "u3"))
	p, _ := tr.calls("u2")
	assert.Equal(t, 0, p)
}

func TestQueue_RunsAfterStart(t *testing.T) {
	tr := newFakeTrainer(true)
	q := NewQueue(NewExecutor(tr, 50, zap.NewNop()), 2, 8, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)
	defer q.Stop()

	require.True(t, q.Schedule(ctx, "u1"))
	assert.Eventually(t, func() bool {
		_, e := tr.calls("u1")
		return e == 1
	}, time.Second, 10*time.Millisecond)
}

func setupStream(t *testing.T) (*redis.Client, StreamConfig) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cfg := StreamConfig{
		Stream:        "hydration:retrain",
		ConsumerGroup: "hydration-retrainer",
		ConsumerName:  "test",
		BatchSize:     10,
		Block:         -1,
	}
	require.NoError(t, rediscommon.CreateConsumerGroup(context.Background(), client, cfg.Stream, cfg.ConsumerGroup))
	return client, cfg
}

func TestStream_PublishAndConsume(t *testing.T) {
	client, cfg := setupStream(t)
	ctx := context.Background()
	tr := newFakeTrainer(true)
	pub := NewStreamPublisher(client, cfg.Stream, zap.NewNop())
	consumer := NewStreamConsumer(cfg, client, NewExecutor(tr, 50, zap.NewNop()), zap.NewNop())

	require.True(t, pub.Schedule(ctx, "u1"))
	require.True(t, pub.Schedule(ctx, "u2"))

	n, err := consumer.ConsumeOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	p, e := tr.calls("u1")
	assert.Equal(t, 1, p)
	assert.Equal(t, 1, e)
	p, _ = tr.calls("u2")
	assert.Equal(t, 1, p)

	pending, err := client.XPending(ctx, cfg.Stream, cfg.ConsumerGroup).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending.Count)

	n, err = consumer.ConsumeOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestStream_MalformedMessageIsAcked(t *testing.T) {
	client, cfg := setupStream(t)
	ctx := context.Background()
	tr := newFakeTrainer(true)
	consumer := NewStreamConsumer(cfg, client, NewExecutor(tr, 50, zap.NewNop()), zap.NewNop())

	require.NoError(t, client.XAdd(ctx, &redis.XAddArgs{
		Stream: cfg.Stream,
		Values: map[string]interface{}{"data": "not-json"},
	}).Err())
	_, err := rediscommon.PublishJSONToStream(ctx, client, cfg.Stream, Job{})
	require.NoError(t, err)

	n, err := consumer.ConsumeOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Empty(t, tr.personal)
}

func TestStream_StartStopsOnCancel(t *testing.T) {
	client, cfg := setupStream(t)
	tr := newFakeTrainer(true)
	consumer := NewStreamConsumer(cfg, client, NewExecutor(tr, 50, zap.NewNop()), zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- consumer.Start(ctx) }()

	require.True(t, NewStreamPublisher(client, cfg.Stream, zap.NewNop()).Schedule(context.Background(), "u9"))
	assert.Eventually(t, func() bool {
		p, _ := tr.calls("u9")
		return p == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
}
