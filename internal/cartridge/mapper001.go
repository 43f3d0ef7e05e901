package cartridge

// Mapper001 implements MMC1. CPU writes trickle into a 5-bit serial shift
// register one bit at a time; the fifth write copies the assembled value
// into one of four internal registers selected by the write address. A
// write with bit7 set resets the shift register and forces PRG mode 3
// (fix-last) regardless of where it landed.
type Mapper001 struct {
	baseMapper
	cart *Cartridge

	shift      uint8
	shiftCount uint8

	control  uint8 // mirroring(1:0), prgMode(3:2), chrMode(4)
	chrBank0 uint8
	chrBank1 uint8
	prgBank  uint8

	prgBanks uint8
	chrBanks uint8
}

// NewMapper001 creates a new MMC1 mapper.
func NewMapper001(cart *Cartridge) *Mapper001 {
	m := &Mapper001{
		baseMapper: baseMapper{mirror: cart.mirror},
		cart:       cart,
		control:    0x0C, // PRG mode 3 (fix-last) on power-up
		prgBanks:   uint8(len(cart.prgROM) / 0x4000),
	}
	if len(cart.chrROM) > 0 {
		m.chrBanks = uint8(len(cart.chrROM) / 0x1000)
	}
	return m
}

func (m *Mapper001) prgMode() uint8 { return (m.control >> 2) & 3 }
func (m *Mapper001) chrMode() uint8 { return (m.control >> 4) & 1 }

func (m *Mapper001) ReadPRG(address uint16) uint8 {
	if address >= 0x6000 && address < 0x8000 {
		if m.prgBank&0x10 == 0 {
			return m.cart.sram[address-0x6000]
		}
		return 0
	}
	if address < 0x8000 {
		return 0
	}
	offset := address - 0x8000
	var bank uint32
	switch m.prgMode() {
	case 0, 1: // 32 KiB mode
		bank = uint32(m.prgBank>>1) * 0x8000
		offset = offset
	case 2: // fix-first: bank 0 fixed at 0x8000, selected bank at 0xC000
		if offset < 0x4000 {
			bank = 0
		} else {
			bank = uint32(m.prgBank&0x0F) * 0x4000
			offset -= 0x4000
		}
	default: // 3: fix-last: selected bank at 0x8000, last bank fixed at 0xC000
		if offset < 0x4000 {
			bank = uint32(m.prgBank&0x0F) * 0x4000
		} else {
			bank = uint32(m.prgBanks-1) * 0x4000
			offset -= 0x4000
		}
	}
	off := bank + uint32(offset)
	if int(off) < len(m.cart.prgROM) {
		return m.cart.prgROM[off]
	}
	return 0
}

func (m *Mapper001) WritePRG(address uint16, value uint8) {
	if address >= 0x6000 && address < 0x8000 {
		if m.prgBank&0x10 == 0 {
			m.cart.sram[address-0x6000] = value
		}
		return
	}
	if address < 0x8000 {
		return
	}

	if value&0x80 != 0 {
		m.shift = 0
		m.shiftCount = 0
		m.control |= 0x0C
		return
	}

	m.shift = (m.shift >> 1) | ((value & 1) << 4)
	m.shiftCount++
	if m.shiftCount < 5 {
		return
	}

	assembled := m.shift
	m.shift = 0
	m.shiftCount = 0

	switch {
	case address <= 0x9FFF:
		m.control = assembled
		switch assembled & 3 {
		case 0:
			m.setMirror(MirrorSingleScreen0)
		case 1:
			m.setMirror(MirrorSingleScreen1)
		case 2:
			m.setMirror(MirrorVertical)
		default:
			m.setMirror(MirrorHorizontal)
		}
	case address <= 0xBFFF:
		m.chrBank0 = assembled
	case address <= 0xDFFF:
		m.chrBank1 = assembled
	default:
		m.prgBank = assembled
	}
}

func (m *Mapper001) ReadCHR(address uint16) uint8 {
	off := m.chrOffset(address)
	if len(m.cart.chrROM) > 0 && int(off) < len(m.cart.chrROM) {
		return m.cart.chrROM[off]
	}
	return 0
}

func (m *Mapper001) WriteCHR(address uint16, value uint8) {
	if !m.cart.hasCHRRAM {
		return
	}
	off := m.chrOffset(address)
	if int(off) < len(m.cart.chrROM) {
		m.cart.chrROM[off] = value
	}
}

func (m *Mapper001) chrOffset(address uint16) uint32 {
	if m.chrMode() == 0 {
		bank := uint32(m.chrBank0 >> 1)
		return bank*0x2000 + uint32(address)
	}
	if address < 0x1000 {
		return uint32(m.chrBank0)*0x1000 + uint32(address)
	}
	return uint32(m.chrBank1)*0x1000 + uint32(address-0x1000)
}

// TickScanline is a no-op for MMC1.
func (m *Mapper001) TickScanline() {}
