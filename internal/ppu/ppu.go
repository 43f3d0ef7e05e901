// Package ppu implements the Picture Processing Unit for the NES.
package ppu

import (
	"gones/internal/memory"
)

// PPU represents the NES Picture Processing Unit (2C02)
type PPU struct {
	// PPU Registers (CPU-visible)
	ppuCtrl   uint8
	ppuMask   uint8
	ppuStatus uint8
	oamAddr   uint8

	// Internal PPU State (Loopy registers)
	v uint16 // Current VRAM address (15 bits)
	t uint16 // Temporary VRAM address (15 bits) - address latch
	x uint8  // Fine X scroll (3 bits)
	w bool   // Write latch (toggles between first/second write)

	memory *memory.PPUMemory

	// Rendering State
	scanline   int // -1 (pre-render) to 260
	cycle      int // 0 to 340
	frameCount uint64
	oddFrame   bool
	readBuffer uint8

	// Background fetch pipeline
	bgNextTileID     uint8
	bgNextTileAttrib uint8
	bgNextTileLSB    uint8
	bgNextTileMSB    uint8

	bgShifterPatternLo uint16
	bgShifterPatternHi uint16
	bgShifterAttribLo  uint16
	bgShifterAttribHi  uint16

	// Sprite Data
	oam            [256]uint8
	secondaryOAM   [32]uint8 // 8 sprites x 4 bytes, for the scanline about to render
	spriteIndexes  [8]uint8  // original OAM index of each secondary OAM entry
	spriteCount    uint8
	sprite0Hit     bool
	spriteOverflow bool
	sprite0OnLine  bool // true if sprite 0 is present in secondaryOAM

	// Frame Buffers: double-buffered RGBA8, 256*240*4 bytes each.
	backBuffer  []uint8
	frontBuffer []uint8

	// Callbacks
	nmiCallback           func()
	frameCompleteCallback func()
	scanlineTickCallback  func()

	backgroundEnabled bool
	spritesEnabled    bool
	renderingEnabled  bool

	cycleCount uint64
}

// New creates a new PPU instance
func New() *PPU {
	p := &PPU{
		scanline: -1,
	}
	p.backBuffer = make([]uint8, 256*240*4)
	p.frontBuffer = make([]uint8, 256*240*4)
	return p
}

// Reset resets the PPU to initial state
func (p *PPU) Reset() {
	p.ppuCtrl = 0
	p.ppuMask = 0
	p.ppuStatus = 0
	p.oamAddr = 0

	p.v = 0
	p.t = 0
	p.x = 0
	p.w = false

	p.scanline = -1
	p.cycle = 0
	p.frameCount = 0
	p.oddFrame = false
	p.readBuffer = 0

	p.spriteCount = 0
	p.sprite0Hit = false
	p.spriteOverflow = false

	p.backgroundEnabled = false
	p.spritesEnabled = false
	p.renderingEnabled = false

	p.cycleCount = 0

	for i := range p.oam {
		p.oam[i] = 0
	}
	for i := range p.backBuffer {
		p.backBuffer[i] = 0
		p.frontBuffer[i] = 0
	}
}

// SetMemory sets the PPU memory interface
func (p *PPU) SetMemory(memory *memory.PPUMemory) {
	p.memory = memory
}

// SetNMICallback sets the NMI callback function
func (p *PPU) SetNMICallback(callback func()) {
	p.nmiCallback = callback
}

// SetFrameCompleteCallback sets the frame complete callback
func (p *PPU) SetFrameCompleteCallback(callback func()) {
	p.frameCompleteCallback = callback
}

// SetScanlineTickCallback wires the mapper's per-scanline tick hook (MMC3 IRQ).
func (p *PPU) SetScanlineTickCallback(callback func()) {
	p.scanlineTickCallback = callback
}

// ReadRegister reads from a PPU register (CPU $2000-$2007)
func (p *PPU) ReadRegister(address uint16) uint8 {
	switch address {
	case 0x2002: // PPUSTATUS
		status := p.ppuStatus
		p.ppuStatus &^= 0x80 // Clear VBlank only; sprite0/overflow clear at pre-render dot 1
		p.w = false
		return status
	case 0x2004: // OAMDATA
		return p.oam[p.oamAddr]
	case 0x2007: // PPUDATA
		return p.readPPUData()
	default: // 0x2000,0x2001,0x2003,0x2005,0x2006 are write-only
		return p.ppuStatus & 0x1F
	}
}

// WriteRegister writes to a PPU register (CPU $2000-$2007)
func (p *PPU) WriteRegister(address uint16, value uint8) {
	switch address {
	case 0x2000: // PPUCTRL
		p.ppuCtrl = value
		p.t = (p.t & 0xF3FF) | ((uint16(value) & 0x03) << 10)
		p.updateRenderingFlags()
		p.checkNMI()
	case 0x2001: // PPUMASK
		p.ppuMask = value
		p.updateRenderingFlags()
	case 0x2003: // OAMADDR
		p.oamAddr = value
	case 0x2004: // OAMDATA
		p.oam[p.oamAddr] = value
		p.oamAddr++
	case 0x2005: // PPUSCROLL
		p.writePPUScroll(value)
	case 0x2006: // PPUADDR
		p.writePPUAddr(value)
	case 0x2007: // PPUDATA
		p.writePPUData(value)
	}
}

// Step advances the PPU by exactly one dot.
func (p *PPU) Step() {
	p.cycleCount++

	if p.scanline == -1 && p.cycle == 1 {
		p.ppuStatus &^= 0x80 // VBlank
		p.ppuStatus &^= 0x60 // sprite-0-hit, sprite-overflow
		p.sprite0Hit = false
		p.spriteOverflow = false
	}

	if p.scanline >= -1 && p.scanline < 240 {
		p.renderScanlineDot()
	}

	if p.scanline == 241 && p.cycle == 1 {
		p.ppuStatus |= 0x80
		if p.ppuCtrl&0x80 != 0 && p.nmiCallback != nil {
			p.nmiCallback()
		}
	}

	p.advanceDot()
}

// advanceDot moves the dot/scanline counters, applying the odd-frame skip,
// publishing the frame at the end of Post-Render and signalling frame
// completion at the wrap.
func (p *PPU) advanceDot() {
	skip := p.scanline == -1 && p.cycle == 339 && p.oddFrame && p.renderingEnabled
	p.cycle++
	if skip {
		p.cycle++
	}
	if p.cycle > 340 {
		p.cycle = 0
		p.scanline++
		if p.scanline == 241 {
			p.publishFrame()
		}
		if p.scanline > 260 {
			p.scanline = -1
			p.frameCount++
			p.oddFrame = !p.oddFrame
			if p.frameCompleteCallback != nil {
				p.frameCompleteCallback()
			}
		}
	}
}

// publishFrame swaps the completed back buffer into the front buffer at the
// end of Post-Render (the only cross-consumer publication point).
func (p *PPU) publishFrame() {
	p.backBuffer, p.frontBuffer = p.frontBuffer, p.backBuffer
}

// renderScanlineDot implements one dot of the Pre-Render/Render pipeline.
func (p *PPU) renderScanlineDot() {
	if p.cycle == 0 {
		return
	}

	if p.cycle >= 1 && p.cycle <= 256 {
		p.renderPixel()
		p.fetchBackgroundByte()
		if p.cycle == 256 && p.renderingEnabled {
			p.incrementY()
		}
	} else if p.cycle == 257 {
		p.reloadShiftersFromLatch()
		if p.renderingEnabled {
			p.copyX()
		}
	} else if p.cycle >= 321 && p.cycle <= 336 {
		p.fetchBackgroundByte()
	} else if p.cycle == 260 && p.renderingEnabled && p.scanlineTickCallback != nil {
		p.scanlineTickCallback()
	} else if p.cycle == 340 {
		p.evaluateSpritesForNextLine()
	}

	if p.scanline == -1 && p.cycle >= 280 && p.cycle <= 304 && p.renderingEnabled {
		p.copyY()
	}
}

// fetchBackgroundByte performs the classical 8-dot nametable/attribute/pattern
// fetch sequence and shifts the background shift registers each dot.
func (p *PPU) fetchBackgroundByte() {
	p.shiftBackground()

	if p.memory == nil {
		return
	}

	switch p.cycle % 8 {
	case 1:
		p.reloadShiftersFromLatch()
		nametableAddr := 0x2000 | (p.v & 0x0FFF)
		p.bgNextTileID = p.memory.Read(nametableAddr)
	case 3:
		attrAddr := 0x23C0 | (p.v & 0x0C00) | ((p.v >> 4) & 0x38) | ((p.v >> 2) & 0x07)
		attr := p.memory.Read(attrAddr)
		shift := ((p.v >> 4) & 4) | (p.v & 2)
		p.bgNextTileAttrib = (attr >> shift) & 0x03
	case 5:
		base := p.bgPatternTableBase()
		fineY := uint16((p.v >> 12) & 0x07)
		p.bgNextTileLSB = p.memory.Read(base + uint16(p.bgNextTileID)*16 + fineY)
	case 7:
		base := p.bgPatternTableBase()
		fineY := uint16((p.v >> 12) & 0x07)
		p.bgNextTileMSB = p.memory.Read(base + uint16(p.bgNextTileID)*16 + fineY + 8)
	case 0:
		if p.renderingEnabled {
			p.incrementX()
		}
	}
}

func (p *PPU) bgPatternTableBase() uint16 {
	if p.ppuCtrl&0x10 != 0 {
		return 0x1000
	}
	return 0x0000
}

// reloadShiftersFromLatch loads the previously fetched tile into the low
// byte of each 16-bit shift register.
func (p *PPU) reloadShiftersFromLatch() {
	p.bgShifterPatternLo = (p.bgShifterPatternLo & 0xFF00) | uint16(p.bgNextTileLSB)
	p.bgShifterPatternHi = (p.bgShifterPatternHi & 0xFF00) | uint16(p.bgNextTileMSB)
	attrLo := uint16(0)
	attrHi := uint16(0)
	if p.bgNextTileAttrib&0x01 != 0 {
		attrLo = 0xFF
	}
	if p.bgNextTileAttrib&0x02 != 0 {
		attrHi = 0xFF
	}
	p.bgShifterAttribLo = (p.bgShifterAttribLo & 0xFF00) | attrLo
	p.bgShifterAttribHi = (p.bgShifterAttribHi & 0xFF00) | attrHi
}

func (p *PPU) shiftBackground() {
	if !p.renderingEnabled {
		return
	}
	p.bgShifterPatternLo <<= 1
	p.bgShifterPatternHi <<= 1
	p.bgShifterAttribLo <<= 1
	p.bgShifterAttribHi <<= 1
}

// renderPixel composes and writes the pixel for the current (cycle,scanline)
// into the back buffer, for visible scanlines and columns only.
func (p *PPU) renderPixel() {
	if p.scanline < 0 || p.scanline >= 240 {
		return
	}
	pixelX := p.cycle - 1
	if pixelX < 0 || pixelX > 255 {
		return
	}

	bgColorIndex, bgPalette := p.backgroundPixelAt(pixelX)
	spColorIndex, spPalette, spPriority, spIsSprite0 := p.spritePixelAt(pixelX)

	if bgColorIndex != 0 && spColorIndex != 0 && spIsSprite0 && p.backgroundEnabled && p.spritesEnabled && pixelX != 255 {
		p.sprite0Hit = true
		p.ppuStatus |= 0x40
	}

	var nesColor uint8
	switch {
	case bgColorIndex == 0 && spColorIndex == 0:
		nesColor = p.memory.Read(0x3F00)
	case bgColorIndex == 0:
		nesColor = p.memory.Read(0x3F10 + uint16(spPalette)*4 + uint16(spColorIndex))
	case spColorIndex == 0:
		nesColor = p.memory.Read(0x3F00 + uint16(bgPalette)*4 + uint16(bgColorIndex))
	case spPriority: // sprite behind background
		nesColor = p.memory.Read(0x3F00 + uint16(bgPalette)*4 + uint16(bgColorIndex))
	default:
		nesColor = p.memory.Read(0x3F10 + uint16(spPalette)*4 + uint16(spColorIndex))
	}

	p.putPixel(pixelX, p.scanline, NESColorToRGB(nesColor))
}

// backgroundPixelAt reads the composed color/palette index out of the
// shift registers for the given screen column, honoring fine-X and the
// leftmost-8-pixel clip mask.
func (p *PPU) backgroundPixelAt(pixelX int) (uint8, uint8) {
	if !p.backgroundEnabled {
		return 0, 0
	}
	if pixelX < 8 && p.ppuMask&0x02 == 0 {
		return 0, 0
	}
	mux := uint16(0x8000) >> p.x
	bit0 := uint8(0)
	bit1 := uint8(0)
	if p.bgShifterPatternLo&mux != 0 {
		bit0 = 1
	}
	if p.bgShifterPatternHi&mux != 0 {
		bit1 = 1
	}
	colorIndex := (bit1 << 1) | bit0

	pbit0 := uint8(0)
	pbit1 := uint8(0)
	if p.bgShifterAttribLo&mux != 0 {
		pbit0 = 1
	}
	if p.bgShifterAttribHi&mux != 0 {
		pbit1 = 1
	}
	palette := (pbit1 << 1) | pbit0
	return colorIndex, palette
}

// spritePixelAt scans the secondary OAM entries evaluated for this scanline
// and returns the first opaque pixel's color index, palette, priority and
// whether it belongs to sprite 0.
func (p *PPU) spritePixelAt(pixelX int) (uint8, uint8, bool, bool) {
	if !p.spritesEnabled {
		return 0, 0, false, false
	}
	if pixelX < 8 && p.ppuMask&0x04 == 0 {
		return 0, 0, false, false
	}

	spriteHeight := 8
	if p.ppuCtrl&0x20 != 0 {
		spriteHeight = 16
	}

	for i := 0; i < int(p.spriteCount); i++ {
		base := i * 4
		sY := int(p.secondaryOAM[base])
		tileIndex := p.secondaryOAM[base+1]
		attrib := p.secondaryOAM[base+2]
		sX := int(p.secondaryOAM[base+3])

		if pixelX < sX || pixelX >= sX+8 {
			continue
		}
		row := p.scanline - sY
		if row < 0 || row >= spriteHeight {
			continue
		}
		col := pixelX - sX
		if attrib&0x40 != 0 {
			col = 7 - col
		}
		if attrib&0x80 != 0 {
			row = spriteHeight - 1 - row
		}

		colorIndex := p.spriteTileColor(tileIndex, col, row, spriteHeight)
		if colorIndex == 0 {
			continue
		}
		return colorIndex, attrib & 0x03, attrib&0x20 != 0, p.spriteIndexes[i] == 0
	}
	return 0, 0, false, false
}

func (p *PPU) spriteTileColor(tileIndex uint8, col, row, spriteHeight int) uint8 {
	var base uint16
	if spriteHeight == 16 {
		if tileIndex&0x01 != 0 {
			base = 0x1000
		}
		tileIndex &= 0xFE
		if row >= 8 {
			tileIndex++
			row -= 8
		}
	} else {
		if p.ppuCtrl&0x08 != 0 {
			base = 0x1000
		}
	}
	addr := base + uint16(tileIndex)*16 + uint16(row)
	lo := p.memory.Read(addr)
	hi := p.memory.Read(addr + 8)
	shift := 7 - col
	bit0 := (lo >> shift) & 1
	bit1 := (hi >> shift) & 1
	return (bit1 << 1) | bit0
}

// evaluateSpritesForNextLine runs at dot 340, selecting up to 8 sprites
// visible on the scanline about to be rendered and flagging overflow.
func (p *PPU) evaluateSpritesForNextLine() {
	targetLine := p.scanline + 1
	if targetLine > 239 {
		return
	}

	for i := range p.secondaryOAM {
		p.secondaryOAM[i] = 0xFF
	}
	for i := range p.spriteIndexes {
		p.spriteIndexes[i] = 0xFF
	}

	spriteHeight := 8
	if p.ppuCtrl&0x20 != 0 {
		spriteHeight = 16
	}

	found := 0
	p.spriteOverflow = false
	p.sprite0OnLine = false
	for i := 0; i < 64; i++ {
		oamIdx := i * 4
		sY := int(p.oam[oamIdx])
		if targetLine < sY || targetLine >= sY+spriteHeight {
			continue
		}
		if found < 8 {
			dst := found * 4
			p.secondaryOAM[dst] = uint8(sY)
			p.secondaryOAM[dst+1] = p.oam[oamIdx+1]
			p.secondaryOAM[dst+2] = p.oam[oamIdx+2]
			p.secondaryOAM[dst+3] = p.oam[oamIdx+3]
			p.spriteIndexes[found] = uint8(i)
			if i == 0 {
				p.sprite0OnLine = true
			}
			found++
		} else {
			p.spriteOverflow = true
			p.ppuStatus |= 0x20
			break
		}
	}
	p.spriteCount = uint8(found)
}

func (p *PPU) putPixel(x, y int, rgb uint32) {
	offset := (y*256 + x) * 4
	p.backBuffer[offset] = uint8(rgb >> 16)
	p.backBuffer[offset+1] = uint8(rgb >> 8)
	p.backBuffer[offset+2] = uint8(rgb)
	p.backBuffer[offset+3] = 0xFF
}

// updateRenderingFlags updates internal rendering state based on PPUMASK
func (p *PPU) updateRenderingFlags() {
	p.backgroundEnabled = (p.ppuMask & 0x08) != 0
	p.spritesEnabled = (p.ppuMask & 0x10) != 0
	p.renderingEnabled = p.backgroundEnabled || p.spritesEnabled
}

// checkNMI re-fires an NMI edge if VBlank is already latched when NMI-enable
// is turned on mid-VBlank.
func (p *PPU) checkNMI() {
	if (p.ppuCtrl&0x80 != 0) && (p.ppuStatus&0x80 != 0) && p.nmiCallback != nil {
		p.nmiCallback()
	}
}

// writePPUScroll handles writes to PPUSCROLL ($2005)
func (p *PPU) writePPUScroll(value uint8) {
	if !p.w {
		p.t = (p.t & 0xFFE0) | (uint16(value) >> 3)
		p.x = value & 0x07
		p.w = true
	} else {
		p.t = (p.t & 0x8FFF) | ((uint16(value) & 0x07) << 12)
		p.t = (p.t & 0xFC1F) | ((uint16(value) & 0xF8) << 2)
		p.w = false
	}
}

// writePPUAddr handles writes to PPUADDR ($2006)
func (p *PPU) writePPUAddr(value uint8) {
	if !p.w {
		p.t = (p.t & 0x80FF) | ((uint16(value) & 0x3F) << 8)
		p.w = true
	} else {
		p.t = (p.t & 0xFF00) | uint16(value)
		p.v = p.t
		p.w = false
	}
}

// readPPUData handles reads from PPUDATA ($2007)
func (p *PPU) readPPUData() uint8 {
	var data uint8
	if p.memory == nil {
		data = 0
	} else if p.v >= 0x3F00 {
		data = p.memory.Read(p.v)
		p.readBuffer = p.memory.Read(p.v & 0x2FFF)
	} else {
		data = p.readBuffer
		p.readBuffer = p.memory.Read(p.v)
	}

	if p.ppuCtrl&0x04 != 0 {
		p.v += 32
	} else {
		p.v += 1
	}
	p.v &= 0x3FFF
	return data
}

// writePPUData handles writes to PPUDATA ($2007)
func (p *PPU) writePPUData(value uint8) {
	if p.memory != nil {
		p.memory.Write(p.v, value)
	}
	if p.ppuCtrl&0x04 != 0 {
		p.v += 32
	} else {
		p.v += 1
	}
	p.v &= 0x3FFF
}

// GetFrameBuffer returns the published (front) RGBA8 framebuffer, row-major,
// 4 bytes per pixel.
func (p *PPU) GetFrameBuffer() []uint8 {
	return p.frontBuffer
}

// ClearFrameBuffer fills both framebuffers with a packed 0x00RRGGBB color,
// forcing the alpha byte opaque. Used by tests to seed a known sentinel
// before exercising rendering.
func (p *PPU) ClearFrameBuffer(rgb uint32) {
	r, g, b := uint8(rgb>>16), uint8(rgb>>8), uint8(rgb)
	for i := 0; i+3 < len(p.backBuffer); i += 4 {
		p.backBuffer[i], p.backBuffer[i+1], p.backBuffer[i+2], p.backBuffer[i+3] = r, g, b, 0xFF
		p.frontBuffer[i], p.frontBuffer[i+1], p.frontBuffer[i+2], p.frontBuffer[i+3] = r, g, b, 0xFF
	}
}

func (p *PPU) GetFrameCount() uint64 {
	return p.frameCount
}

func (p *PPU) GetScanline() int {
	return p.scanline
}

func (p *PPU) GetCycle() int {
	return p.cycle
}

func (p *PPU) IsRenderingEnabled() bool {
	return p.renderingEnabled
}

func (p *PPU) IsVBlank() bool {
	return (p.ppuStatus & 0x80) != 0
}

func (p *PPU) GetCycleCount() uint64 {
	return p.cycleCount
}

// nesColorPalette is the NTSC 2C02 palette (Dendy-derived), ARGB8888.
var nesColorPalette = [64]uint32{
	0xFF666666, 0xFF002A88, 0xFF1412A7, 0xFF3B00A4, 0xFF5C007E, 0xFF6E0040, 0xFF6C0600, 0xFF561D00,
	0xFF333500, 0xFF0B4800, 0xFF005200, 0xFF004F08, 0xFF00404D, 0xFF000000, 0xFF000000, 0xFF000000,
	0xFFADADAD, 0xFF155FD9, 0xFF4240FF, 0xFF7527FE, 0xFFA01ACC, 0xFFB71E7B, 0xFFB53120, 0xFF994E00,
	0xFF6B6D00, 0xFF388700, 0xFF0C9300, 0xFF008F32, 0xFF007C8D, 0xFF000000, 0xFF000000, 0xFF000000,
	0xFFFFFEFF, 0xFF64B0FF, 0xFF9290FF, 0xFFC676FF, 0xFFF36AFF, 0xFFFE6ECC, 0xFFFE8170, 0xFFEA9E22,
	0xFFBCBE00, 0xFF88D800, 0xFF5CE430, 0xFF45E082, 0xFF48CDDE, 0xFF4F4F4F, 0xFF000000, 0xFF000000,
	0xFFFFFEFF, 0xFFC0DFFF, 0xFFD3D2FF, 0xFFE8C8FF, 0xFFFBC2FF, 0xFFFEC4EA, 0xFFFECCC5, 0xFFF7D8A5,
	0xFFE4E594, 0xFFCFF29B, 0xFFBEFBB3, 0xFFB8F8D8, 0xFFB8F8F8, 0xFF000000, 0xFF000000, 0xFF000000,
}

// NESColorToRGB converts a NES palette index to an RGB value (0x00RRGGBB).
func NESColorToRGB(colorIndex uint8) uint32 {
	if colorIndex >= 64 {
		return 0x000000
	}
	return nesColorPalette[colorIndex] & 0x00FFFFFF
}

// NESColorToRGB converts a NES color index to RGB value (PPU method form).
func (p *PPU) NESColorToRGB(colorIndex uint8) uint32 {
	return NESColorToRGB(colorIndex)
}

// incrementX increments the coarse X and wraps to next nametable if needed
func (p *PPU) incrementX() {
	if (p.v & 0x001F) == 31 {
		p.v &^= 0x001F
		p.v ^= 0x0400
	} else {
		p.v++
	}
}

// incrementY increments fine Y, and if it overflows, increments coarse Y
func (p *PPU) incrementY() {
	if (p.v & 0x7000) != 0x7000 {
		p.v += 0x1000
	} else {
		p.v &^= 0x7000
		y := (p.v & 0x03E0) >> 5
		if y == 29 {
			y = 0
			p.v ^= 0x0800
		} else if y == 31 {
			y = 0
		} else {
			y++
		}
		p.v = (p.v &^ 0x03E0) | (y << 5)
	}
}

// copyX copies all X-related bits from t to v (bits 10, 4-0)
func (p *PPU) copyX() {
	p.v = (p.v & 0xFBE0) | (p.t & 0x041F)
}

// copyY copies all Y-related bits from t to v (bits 11, 14-5)
func (p *PPU) copyY() {
	p.v = (p.v & 0x841F) | (p.t & 0x7BE0)
}
