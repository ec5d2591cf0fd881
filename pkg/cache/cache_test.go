package cache

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/odontogram-api/pkg/metrics"
)

func TestManager_GetSet(t *testing.T) {
	m := metrics.Nop()
	c := New(DefaultConfig(), m)

	_, ok := c.Get("conditions", "all")
	assert.False(t, ok)

	c.Set("conditions", "all", []string{"caries"}, 0)
	v, ok := c.Get("conditions", "all")
	require.True(t, ok)
	assert.Equal(t, []string{"caries"}, v)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("conditions", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("conditions", "miss")))
}

func TestManager_Expiry(t *testing.T) {
	c := New(Config{DefaultTTL: time.Minute}, nil)

	c.Set("odontogram", "p1", 1, 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	_, ok := c.Get("odontogram", "p1")
	assert.False(t, ok)
}

func TestManager_Invalidate(t *testing.T) {
	c := New(DefaultConfig(), nil)
	c.Set("conditions", "all", 1, 0)
	c.Set("conditions", "caries", 2, 0)
	c.Set("odontogram", "p1", 3, 0)

	assert.Equal(t, 2, c.Invalidate("conditions"))

	_, ok := c.Get("conditions", "all")
	assert.False(t, ok)
	_, ok = c.Get("odontogram", "p1")
	assert.True(t, ok)
	assert.Equal(t, 0, c.Invalidate("conditions"))
}

func TestManager_EvictsSoonestExpiring(t *testing.T) {
	c := New(Config{DefaultTTL: time.Hour, MaxEntries: 3}, nil)
	c.Set("a", "long", 1, time.Hour)
	c.Set("a", "short", 2, time.Minute)
	c.Set("a", "forever", 3, NoExpiration)

	c.Set("a", "new", 4, 30*time.Minute)

	assert.Equal(t, 3, c.Len())
	_, ok := c.Get("a", "short")
	assert.False(t, ok, "entry closest to expiry is evicted")
	for _, k := range []string{"long", "forever", "new"} {
		_, ok := c.Get("a", k)
		assert.True(t, ok, k)
	}

	// overwriting an existing key does not evict
	c.Set("a", "new", 5, 30*time.Minute)
	assert.Equal(t, 3, c.Len())
}

func TestEarlier(t *testing.T) {
	assert.True(t, earlier(1, 2))
	assert.False(t, earlier(2, 1))
	assert.True(t, earlier(5, 0))
	assert.False(t, earlier(0, 5))
	assert.False(t, earlier(0, 0))
}
