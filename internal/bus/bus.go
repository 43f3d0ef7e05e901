// Package bus implements the system bus for communication between NES components.
package bus

import (
	"gones/internal/apu"
	"gones/internal/cartridge"
	"gones/internal/cpu"
	"gones/internal/input"
	"gones/internal/memory"
	"gones/internal/ppu"
)

// Bus wires the console's components together and drives the master clock.
type Bus struct {
	CPU    *cpu.CPU
	PPU    *ppu.PPU
	APU    *apu.APU
	Memory *memory.Memory
	Input  *input.InputState

	cart *cartridge.Cartridge

	totalCycles uint64 // composite ticks (one CPU cycle each)
	frameCount  uint64

	oamDMAPage    uint8
	oamDMAPending bool

	executionLog   []BusExecutionEvent
	loggingEnabled bool
}

// BusExecutionEvent records one composite tick for test introspection.
type BusExecutionEvent struct {
	Cycle    uint64
	PC       uint16
	Scanline int
	Dot      int
}

// CPUState is a snapshot of CPU registers/flags for tests.
type CPUState struct {
	A, X, Y, SP         uint8
	PC                  uint16
	C, Z, I, D, B, V, N bool
}

// PPUState is a snapshot of PPU timing for tests.
type PPUState struct {
	Scanline int
	Cycle    int
	Status   uint8
}

// New creates a fully wired Bus with no cartridge loaded.
func New() *Bus {
	b := &Bus{
		PPU:   ppu.New(),
		APU:   apu.New(),
		Input: input.NewInputState(),
	}
	b.Memory = memory.New(b.PPU, b.APU, nil)
	b.Memory.SetInputSystem(b.Input)
	b.CPU = cpu.New(b.Memory)

	b.wireCallbacks()
	b.Reset()
	return b
}

// wireCallbacks connects the component callbacks that are independent of
// whichever cartridge is currently loaded.
func (b *Bus) wireCallbacks() {
	b.PPU.SetNMICallback(func() { b.CPU.SetNMI(true) })
	b.PPU.SetFrameCompleteCallback(b.handleFrameComplete)
	b.Memory.SetDMACallback(b.TriggerOAMDMA)

	b.APU.SetFetchCallback(b.Memory.Read)
	b.APU.SetStallCallback(b.CPU.StallCycles)
	b.APU.SetFrameIRQCallbacks(
		func() { b.CPU.IRQ.Pull(cpu.IRQSourceFrameCounter) },
		func() { b.CPU.IRQ.Release(cpu.IRQSourceFrameCounter) },
	)
	b.APU.SetDMCIRQCallbacks(
		func() { b.CPU.IRQ.Pull(cpu.IRQSourceDMC) },
		func() { b.CPU.IRQ.Release(cpu.IRQSourceDMC) },
	)
}

// Reset resets every component to power-on state.
func (b *Bus) Reset() {
	b.CPU.Reset()
	b.PPU.Reset()
	b.APU.Reset()
	b.Input.Reset()

	b.totalCycles = 0
	b.frameCount = 0
	b.oamDMAPending = false
	b.executionLog = b.executionLog[:0]
}

// handleFrameComplete runs whenever the PPU publishes a completed frame.
func (b *Bus) handleFrameComplete() {
	b.frameCount = b.PPU.GetFrameCount()
}

// LoadCartridge installs a cartridge, rebuilding the PPU's memory map and the
// CPU's bus-facing Memory, then resets the system.
func (b *Bus) LoadCartridge(cart *cartridge.Cartridge) {
	b.cart = cart
	b.Memory = memory.New(b.PPU, b.APU, cart)
	b.Memory.SetInputSystem(b.Input)
	b.CPU = cpu.New(b.Memory)

	ppuMemory := memory.NewPPUMemory(cart, memory.MirrorMode(cart.GetMirrorMode()))
	b.PPU.SetMemory(ppuMemory)
	cart.OnMirrorChange(func(mode cartridge.MirrorMode) {
		ppuMemory.SetMirroring(memory.MirrorMode(mode))
	})

	b.PPU.SetScanlineTickCallback(cart.TickScanline)
	cart.SetIRQLine(
		func() { b.CPU.IRQ.Pull(cpu.IRQSourceMapper) },
		func() { b.CPU.IRQ.Release(cpu.IRQSourceMapper) },
	)

	b.wireCallbacks()
	b.Reset()
}

// Step advances the system by one composite tick: three PPU dots, one CPU
// cycle, one APU cycle, in that fixed order.
func (b *Bus) Step() {
	b.PPU.Step()
	b.PPU.Step()
	b.PPU.Step()

	if b.oamDMAPending {
		b.runOAMDMA()
	}

	b.CPU.Step()
	b.APU.Step()

	b.totalCycles++

	if b.loggingEnabled {
		b.executionLog = append(b.executionLog, BusExecutionEvent{
			Cycle:    b.totalCycles,
			PC:       b.CPU.PC,
			Scanline: b.PPU.GetScanline(),
			Dot:      b.PPU.GetCycle(),
		})
	}
}

// TriggerOAMDMA is invoked by Memory when $4014 is written. It stalls the CPU
// for 513 cycles (514 if the current cycle is odd); the 256-byte copy itself
// happens on the next Step, ahead of the stalled CPU's next instruction
// fetch.
func (b *Bus) TriggerOAMDMA(page uint8) {
	b.oamDMAPage = page
	b.oamDMAPending = true

	cycles := 513
	if b.totalCycles%2 == 1 {
		cycles = 514
	}
	b.CPU.StallCycles(cycles)
}

func (b *Bus) runOAMDMA() {
	b.oamDMAPending = false
	base := uint16(b.oamDMAPage) << 8
	for i := uint16(0); i < 256; i++ {
		value := b.Memory.Read(base + i)
		b.PPU.WriteRegister(0x2004, value)
	}
}

// Frame runs the system until one full frame has been published.
func (b *Bus) Frame() {
	target := b.frameCount + 1
	for b.frameCount < target {
		b.Step()
	}
}

// Run runs the system for the given number of frames.
func (b *Bus) Run(frames int) {
	for i := 0; i < frames; i++ {
		b.Frame()
	}
}

// RunCycles runs the system for the given number of composite ticks.
func (b *Bus) RunCycles(cycles uint64) {
	target := b.totalCycles + cycles
	for b.totalCycles < target {
		b.Step()
	}
}

// GetFrameBuffer returns the PPU's front (published) framebuffer as RGBA8.
func (b *Bus) GetFrameBuffer() []uint8 {
	return b.PPU.GetFrameBuffer()
}

// GetAudioSamples fills dst with queued audio samples and returns how many
// came from the ring buffer itself (less than len(dst) means underrun).
func (b *Bus) GetAudioSamples(dst []float32) int {
	return b.APU.ReadSamples(dst)
}

// SetAudioSampleRate changes the APU's target output sample rate.
func (b *Bus) SetAudioSampleRate(rate int) {
	b.APU.SetSampleRate(rate)
}

// SetControllerButton sets a single button on the given controller (1 or 2).
func (b *Bus) SetControllerButton(controller int, button input.Button, pressed bool) {
	switch controller {
	case 1:
		b.Input.Controller1.SetButton(button, pressed)
	case 2:
		b.Input.Controller2.SetButton(button, pressed)
	}
}

// SetControllerButtons sets all button states on the given controller at once.
func (b *Bus) SetControllerButtons(controller int, buttons [8]bool) {
	switch controller {
	case 1:
		b.Input.SetButtons1(buttons)
	case 2:
		b.Input.SetButtons2(buttons)
	}
}

// EnableExecutionLogging turns on per-tick BusExecutionEvent recording, used
// by tests that need to inspect tick-level trace history.
func (b *Bus) EnableExecutionLogging(enable bool) {
	b.loggingEnabled = enable
	if !enable {
		b.executionLog = b.executionLog[:0]
	}
}

// ExecutionLog returns the recorded execution trace.
func (b *Bus) ExecutionLog() []BusExecutionEvent {
	return b.executionLog
}

// GetCPUState snapshots the CPU's registers and flags for tests.
func (b *Bus) GetCPUState() CPUState {
	return CPUState{
		A: b.CPU.A, X: b.CPU.X, Y: b.CPU.Y, SP: b.CPU.SP, PC: b.CPU.PC,
		C: b.CPU.C, Z: b.CPU.Z, I: b.CPU.I, D: b.CPU.D, B: b.CPU.B, V: b.CPU.V, N: b.CPU.N,
	}
}

// GetPPUState snapshots PPU timing and status for tests. Reading $2002 here
// has the same side effect it would from CPU code: it clears VBlank.
func (b *Bus) GetPPUState() PPUState {
	return PPUState{
		Scanline: b.PPU.GetScanline(),
		Cycle:    b.PPU.GetCycle(),
		Status:   b.PPU.ReadRegister(0x2002),
	}
}

// TotalCycles returns the number of composite ticks executed since Reset.
func (b *Bus) TotalCycles() uint64 {
	return b.totalCycles
}

// FrameCount returns the number of frames published since Reset.
func (b *Bus) FrameCount() uint64 {
	return b.frameCount
}
