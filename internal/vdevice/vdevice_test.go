package vdevice

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeMouse records directional calls instead of touching /dev/uinput, so
// moveAxis's direction selection can be exercised without real hardware.
type fakeMouse struct {
	left, right, up, down []int32
	wheel                 []int32
}

func (f *fakeMouse) MoveLeft(p int32) error  { f.left = append(f.left, p); return nil }
func (f *fakeMouse) MoveRight(p int32) error { f.right = append(f.right, p); return nil }
func (f *fakeMouse) MoveUp(p int32) error    { f.up = append(f.up, p); return nil }
func (f *fakeMouse) MoveDown(p int32) error  { f.down = append(f.down, p); return nil }

func TestMoveAxisPicksDirectionByElectedSign(t *testing.T) {
	f := &fakeMouse{}
	s := &Sink{}

	s.moveAxis(5, f.MoveRight, f.MoveLeft)
	s.moveAxis(-5, f.MoveRight, f.MoveLeft)
	s.moveAxis(0, f.MoveRight, f.MoveLeft)

	require.Equal(t, []int32{5}, f.right)
	require.Equal(t, []int32{5}, f.left)
}

func TestSetScrollModeStoresModeAndSensitivity(t *testing.T) {
	s := &Sink{}
	require.False(t, s.scrollActive)

	s.SetScrollMode(true, 4)
	require.True(t, s.scrollActive)
	require.Equal(t, 4, s.sensitivity)

	s.SetScrollMode(false, 0)
	require.False(t, s.scrollActive)
}
