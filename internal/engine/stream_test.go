package engine

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStream_PublishInSubscriptionOrder(t *testing.T) {
	s := NewStream[int]()
	var got []string

	s.Subscribe(func(v int) error {
		got = append(got, "first")
		return nil
	})
	s.Subscribe(func(v int) error {
		got = append(got, "second")
		return nil
	})

	require.NoError(t, s.Publish(1))
	assert.Equal(t, []string{"first", "second"}, got)
}

func TestStream_ErrorStopsEmission(t *testing.T) {
	s := NewStream[int]()
	boom := errors.New("boom")
	called := false

	s.Subscribe(func(int) error { return boom })
	s.Subscribe(func(int) error {
		called = true
		return nil
	})

	err := s.Publish(1)
	assert.ErrorIs(t, err, boom)
	assert.False(t, called, "later listeners are skipped")
}

func TestStream_SubscribeChains(t *testing.T) {
	s := NewStream[string]()
	var seen []string

	derived := s.Subscribe(func(v string) error {
		if v == "bad" {
			return errors.New("rejected")
		}
		return nil
	})
	derived.Subscribe(func(v string) error {
		seen = append(seen, v)
		return nil
	})

	require.NoError(t, s.Publish("a"))
	require.Error(t, s.Publish("bad"))
	require.NoError(t, s.Publish("b"))

	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestMap_TransformsAndFilters(t *testing.T) {
	s := NewStream[string]()
	upper := Map(s, func(v string) (string, bool) {
		return strings.ToUpper(v), v != ""
	})
	lengths := Map(upper, func(v string) (int, bool) {
		return len(v), true
	})

	var got []int
	lengths.Subscribe(func(n int) error {
		got = append(got, n)
		return nil
	})

	require.NoError(t, s.Publish("hot"))
	require.NoError(t, s.Publish(""))
	require.NoError(t, s.Publish("cold"))

	assert.Equal(t, []int{3, 4}, got)
}

func TestStream_Disconnect(t *testing.T) {
	s := NewStream[int]()
	count := 0
	derived := s.Subscribe(func(int) error {
		count++
		return nil
	})

	require.NoError(t, s.Publish(1))
	derived.Disconnect()
	derived.Disconnect()
	require.NoError(t, s.Publish(2))

	assert.Equal(t, 1, count)
	assert.Equal(t, 0, s.Len())

	s.Disconnect() // root stream: no-op
}

func TestStream_DisconnectDuringPublish(t *testing.T) {
	s := NewStream[int]()
	var calls []string

	var first *Stream[int]
	first = s.Subscribe(func(int) error {
		calls = append(calls, "first")
		first.Disconnect()
		return nil
	})
	s.Subscribe(func(int) error {
		calls = append(calls, "second")
		return nil
	})

	require.NoError(t, s.Publish(1))
	require.NoError(t, s.Publish(2))

	assert.Equal(t, []string{"first", "second", "second"}, calls)
}
