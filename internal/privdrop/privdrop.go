// Package privdrop implements keyboard.CommandRunner (and, via the same
// interface shape, macro.CommandRunner): it runs a config's shell commands
// detached, with output discarded and privileges dropped to a configured
// uid/gid before exec (spec §4.8, §7 "Macro command failure ... logged by
// the command runner"). Grounded on original_source/src/keyboard.cpp's
// execute_command (fork, setgid, setuid, dup2 onto /dev/null, execl
// "/bin/sh" -c), reimplemented with os/exec's SysProcAttr.Credential
// instead of a hand-rolled fork/setuid/dup2 sequence.
package privdrop

import (
	"fmt"
	"os/exec"
	"syscall"

	"keyremapd/internal/keyboard"
)

// Runner dispatches by index into a fixed command pool, exactly as
// execute_command's caller addresses kbd->config.commands[idx].
type Runner struct {
	Commands []keyboard.Command
}

// New builds a Runner over the command pool a parsed Config produced.
func New(commands []keyboard.Command) *Runner {
	return &Runner{Commands: commands}
}

// Run starts commands[idx] detached; it does not wait for completion, the
// same fire-and-forget behaviour as execute_command's forking parent
// returning immediately.
func (r *Runner) Run(idx int) error {
	if idx < 0 || idx >= len(r.Commands) {
		return fmt.Errorf("privdrop: command index %d out of range", idx)
	}
	cmd := r.Commands[idx]

	c := exec.Command("/bin/sh", "-c", cmd.Shell)
	c.Stdin = nil
	c.Stdout = nil
	c.Stderr = nil
	c.SysProcAttr = &syscall.SysProcAttr{
		Credential: &syscall.Credential{Uid: cmd.UID, Gid: cmd.GID},
	}

	if err := c.Start(); err != nil {
		return fmt.Errorf("privdrop: start %q: %w", cmd.Shell, err)
	}

	go func() {
		// Reap in the background; execute_command's child is orphaned to
		// init, but Go requires the parent to Wait or the process stays a
		// zombie until this one exits.
		_ = c.Wait()
	}()

	return nil
}
