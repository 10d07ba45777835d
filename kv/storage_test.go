package kv

import (
	"testing"

	"github.com/indigo-web/iter"
	"github.com/indigo-web/utils/strcomp"
	"github.com/stretchr/testify/require"
)

func TestStorage(t *testing.T) {
	t.Run("case-insensitive lookup", func(t *testing.T) {
		s := New().Add("Hello", "world")
		require.Equal(t, "world", s.Value("hello"))
		require.Equal(t, "world", s.Value("HELLO"))
		require.True(t, s.Has("hELLO"))
		require.False(t, s.Has("olleh"))
	})

	t.Run("duplicates are preserved", func(t *testing.T) {
		s := New().
			Add("Accept", "one,two").
			Add("accept", "three")
		require.Equal(t, []string{"one,two", "three"}, s.Values("Accept"))
		require.Equal(t, "one,two", s.Value("accept"))
		require.Equal(t, 2, s.Len())
	})

	t.Run("joined", func(t *testing.T) {
		s := New().
			Add("Accept", "one").
			Add("Accept", "two")
		require.Equal(t, "one, two", s.Joined("accept"))
		require.Empty(t, s.Joined("nonexistent"))
	})

	t.Run("value or", func(t *testing.T) {
		s := New()
		require.Equal(t, "fallback", s.ValueOr("key", "fallback"))
	})

	t.Run("clear", func(t *testing.T) {
		s := New().Add("a", "b")
		s.Clear()
		require.Zero(t, s.Len())
		require.Nil(t, s.Values("a"))
	})

	t.Run("insertion order is preserved", func(t *testing.T) {
		s := New().
			Add("first", "1").
			Add("second", "2").
			Add("first", "3")

		require.Equal(t, []Pair{
			{"first", "1"}, {"second", "2"}, {"first", "3"},
		}, s.Expose())
	})

	t.Run("iterator walks pairs in insertion order", func(t *testing.T) {
		s := New().
			Add("Accept", "one").
			Add("Host", "localhost").
			Add("accept", "two")

		require.Equal(t, []Pair{
			{"Accept", "one"}, {"Host", "localhost"}, {"accept", "two"},
		}, iter.Extract(s.Iter(), nil))

		accepts := iter.Filter(func(pair Pair) bool {
			return strcomp.EqualFold(pair.Key, "accept")
		}, s.Iter())
		require.Equal(t, []Pair{
			{"Accept", "one"}, {"accept", "two"},
		}, iter.Extract(accepts, nil))
	})
}
