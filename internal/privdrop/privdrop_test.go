package privdrop

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"keyremapd/internal/keyboard"
)

func TestRunExecutesShellCommand(t *testing.T) {
	if os.Getuid() != 0 {
		t.Skip("dropping to the current uid/gid requires CAP_SETUID in most test sandboxes")
	}

	marker := t.TempDir() + "/ran"
	r := New([]keyboard.Command{
		{Shell: "touch " + marker, UID: uint32(os.Getuid()), GID: uint32(os.Getgid())},
	})

	require.NoError(t, r.Run(0))

	require.Eventually(t, func() bool {
		_, err := os.Stat(marker)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRunRejectsOutOfRangeIndex(t *testing.T) {
	r := New(nil)
	require.Error(t, r.Run(0))
}
