package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryAddLookupRemove(t *testing.T) {
	r := NewRegistry()
	conn := &fakeConn{id: "a"}

	r.Add(conn)
	got, ok := r.Lookup("a")
	assert.True(t, ok)
	assert.Same(t, conn, got)
	assert.Equal(t, 1, r.Count())

	r.Remove("a")
	_, ok = r.Lookup("a")
	assert.False(t, ok)
	assert.Zero(t, r.Count())
}

func TestRegistryRemoveAbsent(t *testing.T) {
	r := NewRegistry()
	r.Remove("ghost")
	assert.Zero(t, r.Count())
}

func TestRegistryReplaceSameID(t *testing.T) {
	r := NewRegistry()
	first := &fakeConn{id: "a"}
	second := &fakeConn{id: "a"}

	r.Add(first)
	r.Add(second)

	got, ok := r.Lookup("a")
	assert.True(t, ok)
	assert.Same(t, second, got)
	assert.Equal(t, 1, r.Count())
}
