package ppu

// Test helper methods for PPU testing

// SetFrameBufferForTesting sets the front frame buffer for testing purposes
func (p *PPU) SetFrameBufferForTesting(frameBuffer []uint8) {
	p.frontBuffer = frameBuffer
}

// pixelAt reads the packed 0x00RRGGBB color of pixel index i (row-major,
// y*256+x) out of a packed RGBA8 frame buffer.
func pixelAt(frameBuffer []uint8, i int) uint32 {
	o := i * 4
	return uint32(frameBuffer[o])<<16 | uint32(frameBuffer[o+1])<<8 | uint32(frameBuffer[o+2])
}