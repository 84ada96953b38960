package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInMemoryStore_GetCreatesLazily(t *testing.T) {
	store := NewInMemoryStore()
	assert.Equal(t, 0, store.Len())

	sess := store.Get("s1")
	assert.Equal(t, "s1", sess.ID())
	assert.Equal(t, 1, store.Len())

	// Same id returns the same session by reference.
	sess.AppendUser("hello")
	assert.Equal(t, 1, store.Get("s1").Len())
}

func TestInMemoryStore_CreateOverwrites(t *testing.T) {
	store := NewInMemoryStore()
	store.Get("s1").AppendUser("hello")

	fresh := store.Create("s1")
	assert.Equal(t, 0, fresh.Len())
	assert.Equal(t, 1, store.Len())
}

func TestInMemoryStore_Delete(t *testing.T) {
	store := NewInMemoryStore()
	store.Get("s1")
	store.Delete("s1")
	assert.Equal(t, 0, store.Len())
}
