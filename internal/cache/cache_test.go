package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCache_MarkServed(t *testing.T) {
	c := New(10, time.Hour)
	defer c.Close()

	assert.Nil(t, c.Served(1, "07-03-2025"))

	c.MarkServed(1, "07-03-2025", []string{"a", "b"})
	c.MarkServed(1, "07-03-2025", []string{"b", "c"})
	assert.Equal(t, []string{"a", "b", "c"}, c.Served(1, "07-03-2025"))
	assert.Nil(t, c.Served(2, "07-03-2025"))
}

func TestCache_DateRollover(t *testing.T) {
	c := New(10, time.Hour)

	c.MarkServed(1, "07-03-2025", []string{"a"})
	assert.Nil(t, c.Served(1, "08-03-2025"))

	c.MarkServed(1, "08-03-2025", []string{"x"})
	assert.Equal(t, []string{"x"}, c.Served(1, "08-03-2025"))
}

func TestCache_ServedIsCopy(t *testing.T) {
	c := New(10, time.Hour)
	c.MarkServed(1, "d", []string{"a"})

	got := c.Served(1, "d")
	got[0] = "mutated"
	assert.Equal(t, []string{"a"}, c.Served(1, "d"))
}

func TestCache_Reset(t *testing.T) {
	c := New(10, time.Hour)
	c.MarkServed(1, "d", []string{"a"})
	c.Reset(1)
	assert.Nil(t, c.Served(1, "d"))
}

func TestCache_Expiry(t *testing.T) {
	c := New(10, 20*time.Millisecond)
	c.MarkServed(1, "d", []string{"a"})

	assert.Eventually(t, func() bool { return c.Served(1, "d") == nil }, time.Second, 10*time.Millisecond)
}

func TestCache_EvictsOldest(t *testing.T) {
	c := New(2, time.Hour)
	c.MarkServed(1, "d", []string{"a"})
	c.MarkServed(2, "d", []string{"b"})
	c.MarkServed(3, "d", []string{"c"})

	assert.Nil(t, c.Served(1, "d"))
	assert.Equal(t, 2, c.Stats()["sessions"])
}
