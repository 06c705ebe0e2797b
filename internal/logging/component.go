package logging

// Component identifies which subsystem emitted a log entry, mirroring the
// teacher's debug.Component enum but renamed to this daemon's own
// subsystems (dispatcher, device, vdevice, ipc, config, macro, command)
// instead of an emulator's CPU/PPU/APU.
type Component string

const (
	ComponentDispatcher Component = "dispatcher"
	ComponentDevice     Component = "device"
	ComponentVDevice    Component = "vdevice"
	ComponentIPC        Component = "ipc"
	ComponentConfig     Component = "config"
	ComponentMacro      Component = "macro"
	ComponentCommand    Component = "command"
)
