package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecentReturnsEntriesEvenWhenComponentDisabled(t *testing.T) {
	l := New(4)
	l.Infof(ComponentDevice, "hello %d", 1)

	recent := l.Recent(0)
	require.Len(t, recent, 1)
	require.Contains(t, recent[0], "hello 1")
}

func TestRecentWrapsRingBuffer(t *testing.T) {
	l := New(2)
	l.Infof(ComponentDevice, "one")
	l.Infof(ComponentDevice, "two")
	l.Infof(ComponentDevice, "three")

	recent := l.Recent(0)
	require.Len(t, recent, 2)
	require.Contains(t, recent[0], "two")
	require.Contains(t, recent[1], "three")
}

func TestRecentLimitsToN(t *testing.T) {
	l := New(8)
	l.Infof(ComponentIPC, "a")
	l.Infof(ComponentIPC, "b")
	l.Infof(ComponentIPC, "c")

	recent := l.Recent(1)
	require.Len(t, recent, 1)
	require.Contains(t, recent[0], "c")
}

func TestEnableDisableTogglesComponentGate(t *testing.T) {
	l := New(4)
	require.False(t, l.isEnabled(ComponentConfig))
	l.Enable(ComponentConfig)
	require.True(t, l.isEnabled(ComponentConfig))
	l.Disable(ComponentConfig)
	require.False(t, l.isEnabled(ComponentConfig))
}
