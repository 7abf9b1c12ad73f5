package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSetGetRoundtrip(t *testing.T) {
	c := New(true, 1, time.Minute)

	c.Set("key", []byte("value"))
	data, hit := c.Get("key")
	assert.True(t, hit)
	assert.Equal(t, []byte("value"), data)
}

func TestGetMissing(t *testing.T) {
	c := New(true, 1, time.Minute)

	_, hit := c.Get("absent")
	assert.False(t, hit)
}

func TestExpiredEntryMisses(t *testing.T) {
	c := New(true, 1, 10*time.Millisecond)

	c.Set("key", []byte("value"))
	time.Sleep(25 * time.Millisecond)

	_, hit := c.Get("key")
	assert.False(t, hit)
}

func TestDelete(t *testing.T) {
	c := New(true, 1, time.Minute)

	c.Set("key", []byte("value"))
	c.Delete("key")

	_, hit := c.Get("key")
	assert.False(t, hit)
}

func TestDisabledCacheIsPassThrough(t *testing.T) {
	c := New(false, 1, time.Minute)

	c.Set("key", []byte("value"))
	_, hit := c.Get("key")
	assert.False(t, hit)
}

func TestOversizedItemRefused(t *testing.T) {
	// 1 MB cache refuses anything above half its capacity.
	c := New(true, 1, time.Minute)

	c.Set("huge", make([]byte, 600*1024))
	_, hit := c.Get("huge")
	assert.False(t, hit)
}

func TestEvictionFreesRoom(t *testing.T) {
	c := New(true, 1, time.Minute)

	// Three ~400 KB entries cannot coexist under a 1 MB cap; the oldest
	// goes first.
	c.Set("first", make([]byte, 400*1024))
	time.Sleep(2 * time.Millisecond)
	c.Set("second", make([]byte, 400*1024))
	time.Sleep(2 * time.Millisecond)
	c.Set("third", make([]byte, 400*1024))

	_, hitFirst := c.Get("first")
	_, hitThird := c.Get("third")
	assert.False(t, hitFirst)
	assert.True(t, hitThird)
}
