package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRevalidator(t *testing.T) (*RedisRevalidator, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisRevalidator(client, "revalidate-test", time.Minute), mr
}

func TestRevalidatePublishesPath(t *testing.T) {
	r, _ := setupTestRevalidator(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := r.Redis.Subscribe(ctx, r.Channel)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, r.Revalidate(ctx, "/course/abc/edit"))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "/course/abc/edit", msg.Payload)
}

func TestRevalidateDropsCachedView(t *testing.T) {
	r, mr := setupTestRevalidator(t)
	ctx := context.Background()

	require.NoError(t, r.Store(ctx, "/course/abc/edit", map[string]string{"title": "Go"}))
	assert.True(t, mr.Exists("view:/course/abc/edit"))
	assert.Equal(t, time.Minute, mr.TTL("view:/course/abc/edit"))

	var got map[string]string
	hit, err := r.Load(ctx, "/course/abc/edit", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "Go", got["title"])

	require.NoError(t, r.Revalidate(ctx, "/course/abc/edit"))
	assert.False(t, mr.Exists("view:/course/abc/edit"))

	hit, err = r.Load(ctx, "/course/abc/edit", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestSubscribeDeliversPaths(t *testing.T) {
	r, mr := setupTestRevalidator(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- r.Subscribe(ctx, func(path string) { received <- path })
	}()

	require.Eventually(t, func() bool {
		return mr.PubSubNumSub(r.Channel)[r.Channel] == 1
	}, 2*time.Second, 10*time.Millisecond)

	mr.Publish(r.Channel, "/course/xyz/edit")

	select {
	case path := <-received:
		assert.Equal(t, "/course/xyz/edit", path)
	case <-time.After(2 * time.Second):
		t.Fatal("revalidation not delivered")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not stop")
	}
}

func TestRevalidateReportsRedisFailure(t *testing.T) {
	r, mr := setupTestRevalidator(t)
	mr.Close()

	err := r.Revalidate(context.Background(), "/course/abc/edit")
	assert.Error(t, err)
}

func TestNilRevalidatorIsNoop(t *testing.T) {
	var r *RedisRevalidator
	assert.NoError(t, r.Revalidate(context.Background(), "/course/abc/edit"))
	hit, err := r.Load(context.Background(), "/x", &struct{}{})
	assert.NoError(t, err)
	assert.False(t, hit)
}
