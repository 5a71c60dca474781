package reactive

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mathgraph/internal/value"
)

func TestStore_PlainMapSemantics(t *testing.T) {
	s := New(Hooks{})

	require.NoError(t, s.Set("b", value.Int(1)))
	require.NoError(t, s.Set("a", value.Int(2)))
	require.NoError(t, s.Set("b", value.Int(3)))

	v, ok := s.Get("b")
	require.True(t, ok)
	assert.Equal(t, value.Int(3), v)
	assert.Equal(t, []string{"b", "a"}, s.Keys(), "overwrite keeps insertion position")

	require.NoError(t, s.Delete("b"))
	assert.False(t, s.Has("b"))
	assert.Equal(t, 1, s.Len())

	require.NoError(t, s.Delete("missing"))
}

func TestStore_SetHookVeto(t *testing.T) {
	var seen []string
	s := New(Hooks{})
	s.SetHooks(Hooks{
		Set: func(key string, v value.Value) error {
			seen = append(seen, key)
			if key == "owned" {
				s.Put(key, value.String("hook wrote this"))
				return Veto
			}
			return nil
		},
	})

	require.NoError(t, s.Set("plain", value.Int(1)))
	require.NoError(t, s.Set("owned", value.Int(2)))

	v, _ := s.Get("owned")
	assert.Equal(t, value.String("hook wrote this"), v)
	v, _ = s.Get("plain")
	assert.Equal(t, value.Int(1), v)
	assert.Equal(t, []string{"plain", "owned"}, seen)
}

func TestStore_SetHookError(t *testing.T) {
	boom := errors.New("boom")
	s := New(Hooks{Set: func(string, value.Value) error { return boom }})

	err := s.Set("x", value.Int(1))
	assert.ErrorIs(t, err, boom)
	assert.False(t, s.Has("x"))
}

func TestStore_DeleteHookVeto(t *testing.T) {
	s := New(Hooks{Delete: func(string) error { return Veto }})
	s.Put("x", value.Int(1))

	require.NoError(t, s.Delete("x"))
	assert.True(t, s.Has("x"), "vetoed delete leaves the slot alone")
}

func TestStore_GetHook(t *testing.T) {
	s := New(Hooks{
		Get: func(key string, stored value.Value, ok bool) (value.Value, bool) {
			if !ok {
				return value.String("default:" + key), true
			}
			return stored, ok
		},
	})
	s.Put("x", value.Int(1))

	v, ok := s.Get("x")
	assert.True(t, ok)
	assert.Equal(t, value.Int(1), v)

	v, ok = s.Get("y")
	assert.True(t, ok)
	assert.Equal(t, value.String("default:y"), v)
}
