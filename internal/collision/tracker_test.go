package collision

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewTracker(t *testing.T) {
	tracker := NewTracker()

	require.NotNil(t, tracker)
	require.Equal(t, 0, tracker.Count())
	require.Equal(t, 0, tracker.Collisions())
}

func TestTracker_Track(t *testing.T) {
	tracker := NewTracker()

	other, collided := tracker.Track("bw-1", 0x1234567890abcdef)
	require.False(t, collided)
	require.Empty(t, other)

	other, collided = tracker.Track("bw-2", 0xfedcba0987654321)
	require.False(t, collided)
	require.Empty(t, other)
	require.Equal(t, 2, tracker.Count())
}

func TestTracker_Track_SameText(t *testing.T) {
	tracker := NewTracker()

	tracker.Track("bw-1", 42)
	other, collided := tracker.Track("bw-1", 42)

	require.False(t, collided)
	require.Empty(t, other)
	require.Equal(t, 1, tracker.Count())
	require.Equal(t, 0, tracker.Collisions())
}

func TestTracker_Track_Collision(t *testing.T) {
	tracker := NewTracker()

	tracker.Track("42", 42)
	other, collided := tracker.Track("forty-two", 42)

	require.True(t, collided)
	require.Equal(t, "42", other)
	require.Equal(t, 1, tracker.Collisions())

	// the first text keeps the id
	other, collided = tracker.Track("another", 42)
	require.True(t, collided)
	require.Equal(t, "42", other)
	require.Equal(t, 2, tracker.Collisions())
	require.Equal(t, 1, tracker.Count())
}

func TestTracker_Reset(t *testing.T) {
	tracker := NewTracker()
	tracker.Track("a", 1)
	tracker.Track("b", 1)

	tracker.Reset()

	require.Equal(t, 0, tracker.Count())
	require.Equal(t, 0, tracker.Collisions())
	_, collided := tracker.Track("b", 1)
	require.False(t, collided)
}
