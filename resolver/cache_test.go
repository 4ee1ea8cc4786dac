package resolver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

type memRemote struct {
	values map[string]string
	found  map[string]bool
	getErr error
}

func newMemRemote() *memRemote {
	return &memRemote{values: map[string]string{}, found: map[string]bool{}}
}

func (m *memRemote) Get(_ context.Context, key string) (string, bool, bool, error) {
	if m.getErr != nil {
		return "", false, false, m.getErr
	}
	v, ok := m.values[key]
	return v, m.found[key], ok, nil
}

func (m *memRemote) Set(_ context.Context, key, value string, found bool, _ time.Duration) error {
	m.values[key] = value
	m.found[key] = found
	return nil
}

func TestCache_ExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	c := NewCache(time.Hour, clock)

	c.Set(ctx, "ens:alice.eth", "0xabc", true)
	v, found, hit := c.Get(ctx, "ens:alice.eth")
	assert.True(t, hit)
	assert.True(t, found)
	assert.Equal(t, "0xabc", v)

	clock.Advance(59 * time.Minute)
	_, _, hit = c.Get(ctx, "ens:alice.eth")
	assert.True(t, hit)

	clock.Advance(time.Minute)
	_, _, hit = c.Get(ctx, "ens:alice.eth")
	assert.False(t, hit)
	assert.Equal(t, 0, c.Len())
}

func TestCache_NegativeResults(t *testing.T) {
	ctx := context.Background()
	c := NewCache(time.Hour, clockwork.NewFakeClock())

	c.Set(ctx, "ens:nobody.eth", "", false)
	v, found, hit := c.Get(ctx, "ens:nobody.eth")
	assert.True(t, hit)
	assert.False(t, found)
	assert.Empty(t, v)
}

func TestCache_KeysAreCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	c := NewCache(time.Hour, clockwork.NewFakeClock())

	c.Set(ctx, "ens:Alice.ETH", "0xabc", true)
	_, _, hit := c.Get(ctx, "ens:alice.eth")
	assert.True(t, hit)
}

func TestCache_Sweep(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	c := NewCache(time.Hour, clock)

	c.Set(ctx, "a", "1", true)
	clock.Advance(30 * time.Minute)
	c.Set(ctx, "b", "2", true)
	clock.Advance(45 * time.Minute)

	assert.Equal(t, 1, c.Sweep())
	assert.Equal(t, 1, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestCache_RemoteTier(t *testing.T) {
	ctx := context.Background()
	remote := newMemRemote()
	c := NewCache(time.Hour, clockwork.NewFakeClock(), WithRemote(remote))

	c.Set(ctx, "rev:0x1", "bob.eth", true)
	assert.Equal(t, "bob.eth", remote.values["rev:0x1"])

	// A fresh instance sharing the remote tier sees the value.
	other := NewCache(time.Hour, clockwork.NewFakeClock(), WithRemote(remote))
	v, found, hit := other.Get(ctx, "rev:0x1")
	assert.True(t, hit)
	assert.True(t, found)
	assert.Equal(t, "bob.eth", v)
	assert.Equal(t, 1, other.Len())
}

func TestCache_RemoteFailureIsAMiss(t *testing.T) {
	remote := newMemRemote()
	remote.getErr = errors.New("connection refused")
	c := NewCache(time.Hour, clockwork.NewFakeClock(), WithRemote(remote))

	_, _, hit := c.Get(context.Background(), "ens:x.eth")
	assert.False(t, hit)
}
