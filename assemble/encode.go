package assemble

// encode resolves an IR instruction's immediate(s)/label(s) and
// produces its final 32-bit word, per spec §4.7 pass 2.
func encode(in instr, labels map[string]uint32) (uint32, error) {
	switch in.kind {
	case kindRRR:
		return in.opcode<<26 | in.rd<<21 | in.rs<<16 | in.rt<<11, nil

	case kindI:
		v, err := resolveImm(in.imm, labels)
		if err != nil {
			return 0, err
		}
		return encodeI(in.opcode, in.rd, in.rs, v), nil

	case kindLUI:
		v, err := resolveImm(in.imm, labels)
		if err != nil {
			return 0, err
		}
		return encodeI(in.opcode, in.rd, 0, v), nil

	case kindBranch:
		target, err := labelAddr(in.label, labels)
		if err != nil {
			return 0, err
		}
		disp := int64(target) - int64(in.addr+4)
		if disp%4 != 0 {
			return 0, &Error{Kind: InvalidImmediate, Msg: "branch target not 4-byte aligned"}
		}
		words := disp / 4
		if words < -32768 || words > 32767 {
			return 0, &Error{Kind: InvalidImmediate, Msg: "branch out of reach"}
		}
		return encodeI(in.opcode, in.rd, in.rs, uint32(uint16(words))), nil

	case kindJump:
		target, err := labelAddr(in.label, labels)
		if err != nil {
			return 0, err
		}
		return in.opcode<<26 | (target>>2)&0x03FF_FFFF, nil

	case kindJR:
		return in.opcode<<26 | in.rs<<16, nil

	case kindJALR:
		return in.opcode<<26 | in.rd<<21 | in.rs<<16, nil

	case kindNoOperand:
		return in.opcode << 26, nil

	default:
		return 0, &Error{Kind: ParseError, Msg: "internal: unencodable instruction kind"}
	}
}

func encodeI(opcode, rd, rs uint32, imm16 uint32) uint32 {
	return opcode<<26 | rd<<21 | rs<<16 | (imm16 & 0xFFFF)
}

func labelAddr(name string, labels map[string]uint32) (uint32, error) {
	addr, ok := labels[name]
	if !ok {
		return 0, &Error{Kind: UnknownLabel, Msg: "undefined label " + name}
	}
	return addr, nil
}

// resolveImm resolves an immediate to its final 16-bit field value. A
// literal must fit in 16 bits (signed or zero-extended, either is a
// valid bit pattern for the field). A label with half halfHi/halfLo
// yields LabelHi(name)/LabelLo(name); halfFull requires the whole
// address to fit the field directly (used when a label is given where
// a plain immediate was expected, outside the la/li pseudo-ops).
func resolveImm(v imm, labels map[string]uint32) (uint32, error) {
	if v.isLabel {
		addr, err := labelAddr(v.label, labels)
		if err != nil {
			return 0, err
		}
		switch v.half {
		case halfHi:
			return (addr >> 16) & 0xFFFF, nil
		case halfLo:
			return addr & 0xFFFF, nil
		default:
			if addr > 0x7FFF {
				return 0, &Error{Kind: InvalidImmediate, Msg: "label address does not fit a 16-bit immediate: " + v.label}
			}
			return addr & 0xFFFF, nil
		}
	}
	if v.value < -32768 || v.value > 0xFFFF {
		return 0, &Error{Kind: InvalidImmediate, Msg: "immediate out of 16-bit range"}
	}
	return uint32(uint16(v.value)), nil
}
