// Package assemble implements the Nova3201 two-pass assembler: source
// text in, an nvobj.Object out.
package assemble

import (
	"sort"
	"strings"

	"github.com/jaytaph/nova3201/isa"
	"github.com/jaytaph/nova3201/nvobj"
)

type dataWord struct {
	addr uint32
	word uint32
}

type bssReservation struct {
	base   uint32
	length uint32
}

// state accumulates pass 1's output.
type state struct {
	labels   map[string]uint32
	equates  map[string]int32
	instrs   []instr
	data     []dataWord
	bss      []bssReservation
	pc       uint32
}

// Assemble lowers source into an ordered list of NV32 segments.
func Assemble(source string) (*nvobj.Object, error) {
	st := &state{
		labels:  make(map[string]uint32),
		equates: make(map[string]int32),
	}

	for lineNo, raw := range strings.Split(source, "\n") {
		if err := st.processLine(lineNo+1, raw); err != nil {
			return nil, err
		}
	}

	mem := make(map[uint32]uint32, len(st.data)+len(st.instrs))
	for _, d := range st.data {
		mem[d.addr] = d.word
	}
	for _, in := range st.instrs {
		word, err := encode(in, st.labels)
		if err != nil {
			return nil, err
		}
		mem[in.addr] = word
	}

	return buildObject(mem, st.bss), nil
}

func (st *state) processLine(lineNo int, raw string) error {
	line := stripComment(raw)
	if strings.TrimSpace(line) == "" {
		return nil
	}

	rest := line
	if label, r, ok := splitLabel(line); ok {
		if label == "" {
			return newErr(ParseError, lineNo, "empty label")
		}
		if _, dup := st.labels[label]; dup {
			return newErr(ParseError, lineNo, "duplicate label %q", label)
		}
		st.labels[label] = st.pc
		rest = r
	}

	rest = strings.TrimSpace(rest)
	if rest == "" {
		return nil
	}

	if strings.HasPrefix(rest, ".") {
		return st.processDirective(lineNo, rest)
	}

	return st.processInstruction(lineNo, rest)
}

func (st *state) processDirective(lineNo int, rest string) error {
	fields := strings.Fields(rest)
	directive := strings.ToLower(fields[0])

	switch {
	case directive == ".equ":
		return st.directiveEqu(lineNo, rest)
	case directive == ".string":
		return st.directiveString(lineNo, rest, true)
	case directive == ".ascii":
		return st.directiveString(lineNo, rest, false)
	case directive == ".org":
		return st.directiveOrg(lineNo, fields)
	case directive == ".bss", directive == ".space":
		return st.directiveBSS(lineNo, fields)
	case directive == ".text", directive == ".data":
		return nil
	default:
		return newErr(ParseError, lineNo, "unknown directive %q", fields[0])
	}
}

func (st *state) directiveEqu(lineNo int, rest string) error {
	body := strings.TrimSpace(rest[len(".equ"):])
	parts := strings.SplitN(body, ",", 2)
	if len(parts) != 2 {
		return newErr(ParseError, lineNo, "invalid .equ directive: %s", rest)
	}
	name := strings.TrimSpace(parts[0])
	valTok := strings.TrimSpace(parts[1])
	if name == "" {
		return newErr(ParseError, lineNo, ".equ missing name")
	}

	v, ok := st.resolveEquateValue(valTok)
	if !ok {
		return newErr(InvalidImmediate, lineNo, "invalid .equ value %q", valTok)
	}
	st.equates[name] = v
	return nil
}

func (st *state) resolveEquateValue(tok string) (int32, bool) {
	if v, ok := parseIntLiteral(tok); ok {
		return v, true
	}
	if v, ok := st.equates[tok]; ok {
		return v, true
	}
	return 0, false
}

func (st *state) directiveString(lineNo int, rest string, nulTerminate bool) error {
	name := ".string"
	if !nulTerminate {
		name = ".ascii"
	}
	body := strings.TrimSpace(rest[len(name):])
	if len(body) < 2 || body[0] != '"' || body[len(body)-1] != '"' {
		return newErr(ParseError, lineNo, "expected quoted string in %s", name)
	}
	inner := body[1 : len(body)-1]

	bytes, err := unescapeString(inner)
	if err != nil {
		return newErr(LexError, lineNo, "%s", err.Error())
	}
	if nulTerminate {
		bytes = append(bytes, 0)
	}

	for i := 0; i < len(bytes); i += 4 {
		var word uint32
		for j := 0; j < 4; j++ {
			if i+j < len(bytes) {
				word |= uint32(bytes[i+j]) << (8 * j)
			}
		}
		st.data = append(st.data, dataWord{addr: st.pc, word: word})
		st.pc += 4
	}
	return nil
}

func unescapeString(s string) ([]byte, error) {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			out = append(out, c)
			continue
		}
		i++
		if i >= len(s) {
			return nil, errDanglingBackslash
		}
		switch s[i] {
		case 'n':
			out = append(out, '\n')
		case 't':
			out = append(out, '\t')
		case 'r':
			out = append(out, '\r')
		case '\\':
			out = append(out, '\\')
		case '"':
			out = append(out, '"')
		case '0':
			out = append(out, 0)
		default:
			return nil, errUnknownEscape(s[i])
		}
	}
	return out, nil
}

func (st *state) directiveOrg(lineNo int, fields []string) error {
	if len(fields) != 2 {
		return newErr(ParseError, lineNo, "invalid .org directive")
	}
	v, ok := st.resolveEquateValue(fields[1])
	if !ok {
		return newErr(InvalidImmediate, lineNo, "invalid .org address %q", fields[1])
	}
	st.pc = uint32(v)
	return nil
}

func (st *state) directiveBSS(lineNo int, fields []string) error {
	if len(fields) != 2 {
		return newErr(ParseError, lineNo, "invalid .bss directive")
	}
	v, ok := st.resolveEquateValue(fields[1])
	if !ok || v < 0 {
		return newErr(InvalidImmediate, lineNo, "invalid .bss count %q", fields[1])
	}
	n := uint32(v)
	st.bss = append(st.bss, bssReservation{base: st.pc, length: n})
	st.pc += 4 * n
	return nil
}

func (st *state) processInstruction(lineNo int, rest string) error {
	fields := strings.SplitN(rest, " ", 2)
	mnemonic := strings.ToLower(fields[0])
	operands := ""
	if len(fields) == 2 {
		operands = fields[1]
	}

	expanded, err := st.parseMnemonic(lineNo, mnemonic, operands)
	if err != nil {
		return err
	}
	for i := range expanded {
		expanded[i].addr = st.pc
		st.pc += 4
	}
	st.instrs = append(st.instrs, expanded...)
	return nil
}

func aluOpcode(mnemonic string) (uint32, bool) {
	m := map[string]uint32{
		"add": isa.ADD, "sub": isa.SUB, "and": isa.AND, "or": isa.OR, "xor": isa.XOR,
		"slt": isa.SLT, "sltu": isa.SLTU, "shl": isa.SHL, "shr": isa.SHR, "sar": isa.SAR,
	}
	op, ok := m[mnemonic]
	return op, ok
}

func aluImmOpcode(mnemonic string) (uint32, bool) {
	m := map[string]uint32{
		"addi": isa.ADDI, "andi": isa.ANDI, "ori": isa.ORI, "xori": isa.XORI,
		"slti": isa.SLTI, "sltiu": isa.SLTIU,
	}
	op, ok := m[mnemonic]
	return op, ok
}

func lsOpcode(mnemonic string) (uint32, bool) {
	m := map[string]uint32{"lw": isa.LW, "sw": isa.SW, "lb": isa.LB, "sb": isa.SB}
	op, ok := m[mnemonic]
	return op, ok
}

func branchOpcode(mnemonic string) (uint32, bool) {
	m := map[string]uint32{"beq": isa.BEQ, "bne": isa.BNE, "blt": isa.BLT, "bge": isa.BGE}
	op, ok := m[mnemonic]
	return op, ok
}

func (st *state) parseMnemonic(lineNo int, mnemonic, operands string) ([]instr, error) {
	if op, ok := aluOpcode(mnemonic); ok {
		args, ok := splitArgs(operands, 3)
		if !ok {
			return nil, newErr(ParseError, lineNo, "%s expects rd, rs, rt", mnemonic)
		}
		rd, rs, rt, err := regs3(lineNo, args)
		if err != nil {
			return nil, err
		}
		return []instr{{kind: kindRRR, opcode: op, rd: rd, rs: rs, rt: rt}}, nil
	}

	if op, ok := aluImmOpcode(mnemonic); ok {
		args, ok := splitArgs(operands, 3)
		if !ok {
			return nil, newErr(ParseError, lineNo, "%s expects rd, rs, imm", mnemonic)
		}
		rd, ok := parseRegister(args[0])
		if !ok {
			return nil, newErr(InvalidRegister, lineNo, "bad register %q", args[0])
		}
		rs, ok := parseRegister(args[1])
		if !ok {
			return nil, newErr(InvalidRegister, lineNo, "bad register %q", args[1])
		}
		v := st.parseImmOrLabel(args[2])
		return []instr{{kind: kindI, opcode: op, rd: rd, rs: rs, imm: v}}, nil
	}

	if op, ok := lsOpcode(mnemonic); ok {
		return st.parseLoadStore(lineNo, op, operands)
	}

	if op, ok := branchOpcode(mnemonic); ok {
		args, ok := splitArgs(operands, 3)
		if !ok {
			return nil, newErr(ParseError, lineNo, "%s expects a, b, label", mnemonic)
		}
		a, ok := parseRegister(args[0])
		if !ok {
			return nil, newErr(InvalidRegister, lineNo, "bad register %q", args[0])
		}
		b, ok := parseRegister(args[1])
		if !ok {
			return nil, newErr(InvalidRegister, lineNo, "bad register %q", args[1])
		}
		return []instr{{kind: kindBranch, opcode: op, rd: a, rs: b, label: args[2]}}, nil
	}

	switch mnemonic {
	case "lui":
		args, ok := splitArgs(operands, 2)
		if !ok {
			return nil, newErr(ParseError, lineNo, "lui expects rd, imm")
		}
		rd, ok := parseRegister(args[0])
		if !ok {
			return nil, newErr(InvalidRegister, lineNo, "bad register %q", args[0])
		}
		v := st.parseImmOrLabel(args[1])
		return []instr{{kind: kindLUI, opcode: isa.LUI, rd: rd, imm: v}}, nil

	case "j", "jal":
		args, ok := splitArgs(operands, 1)
		if !ok {
			return nil, newErr(ParseError, lineNo, "%s expects a label", mnemonic)
		}
		op := uint32(isa.J)
		if mnemonic == "jal" {
			op = isa.JAL
		}
		return []instr{{kind: kindJump, opcode: op, label: args[0]}}, nil

	case "jr":
		args, ok := splitArgs(operands, 1)
		if !ok {
			return nil, newErr(ParseError, lineNo, "jr expects rs")
		}
		rs, ok := parseRegister(args[0])
		if !ok {
			return nil, newErr(InvalidRegister, lineNo, "bad register %q", args[0])
		}
		return []instr{{kind: kindJR, opcode: isa.JR, rs: rs}}, nil

	case "jalr":
		args, ok := splitArgs(operands, 2)
		if !ok {
			return nil, newErr(ParseError, lineNo, "jalr expects rd, rs")
		}
		rd, ok := parseRegister(args[0])
		if !ok {
			return nil, newErr(InvalidRegister, lineNo, "bad register %q", args[0])
		}
		rs, ok := parseRegister(args[1])
		if !ok {
			return nil, newErr(InvalidRegister, lineNo, "bad register %q", args[1])
		}
		return []instr{{kind: kindJALR, opcode: isa.JALR, rd: rd, rs: rs}}, nil

	case "nop":
		return []instr{{kind: kindNoOperand, opcode: isa.NOP}}, nil
	case "halt":
		return []instr{{kind: kindNoOperand, opcode: isa.HALT}}, nil

	case "mv", "move":
		args, ok := splitArgs(operands, 2)
		if !ok {
			return nil, newErr(ParseError, lineNo, "%s expects rd, rs", mnemonic)
		}
		rd, ok := parseRegister(args[0])
		if !ok {
			return nil, newErr(InvalidRegister, lineNo, "bad register %q", args[0])
		}
		rs, ok := parseRegister(args[1])
		if !ok {
			return nil, newErr(InvalidRegister, lineNo, "bad register %q", args[1])
		}
		return []instr{{kind: kindI, opcode: isa.ADDI, rd: rd, rs: rs, imm: imm{value: 0}}}, nil

	case "li":
		args, ok := splitArgs(operands, 2)
		if !ok {
			return nil, newErr(ParseError, lineNo, "li expects rd, imm")
		}
		rd, ok := parseRegister(args[0])
		if !ok {
			return nil, newErr(InvalidRegister, lineNo, "bad register %q", args[0])
		}
		v, ok := parseIntLiteral(args[1])
		if !ok {
			if eq, eok := st.equates[args[1]]; eok {
				v, ok = eq, true
			}
		}
		if !ok {
			return nil, newErr(InvalidImmediate, lineNo, "li requires a resolvable immediate, got %q", args[1])
		}
		if v >= -32768 && v <= 32767 {
			return []instr{{kind: kindI, opcode: isa.ADDI, rd: rd, rs: 0, imm: imm{value: v}}}, nil
		}
		hi := int32(uint32(v) >> 16 & 0xFFFF)
		lo := int32(uint32(v) & 0xFFFF)
		return []instr{
			{kind: kindLUI, opcode: isa.LUI, rd: rd, imm: imm{value: hi}},
			{kind: kindI, opcode: isa.ORI, rd: rd, rs: rd, imm: imm{value: lo}},
		}, nil

	case "la":
		args, ok := splitArgs(operands, 2)
		if !ok {
			return nil, newErr(ParseError, lineNo, "la expects rd, label")
		}
		rd, ok := parseRegister(args[0])
		if !ok {
			return nil, newErr(InvalidRegister, lineNo, "bad register %q", args[0])
		}
		return []instr{
			{kind: kindLUI, opcode: isa.LUI, rd: rd, imm: imm{isLabel: true, label: args[1], half: halfHi}},
			{kind: kindI, opcode: isa.ORI, rd: rd, rs: rd, imm: imm{isLabel: true, label: args[1], half: halfLo}},
		}, nil

	default:
		return nil, newErr(ParseError, lineNo, "unknown mnemonic %q", mnemonic)
	}
}

func (st *state) parseLoadStore(lineNo int, op uint32, operands string) ([]instr, error) {
	args, ok := splitArgs(operands, 2)
	if !ok {
		return nil, newErr(ParseError, lineNo, "load/store expects rd, imm(rs)")
	}
	rd, ok := parseRegister(args[0])
	if !ok {
		return nil, newErr(InvalidRegister, lineNo, "bad register %q", args[0])
	}

	addr := strings.TrimSpace(args[1])
	open := strings.IndexByte(addr, '(')
	if open < 0 {
		return nil, newErr(ParseError, lineNo, "expected imm(base) addressing, got %q", addr)
	}
	closeIdx := strings.IndexByte(addr, ')')
	if closeIdx < 0 || closeIdx < open {
		return nil, newErr(ParseError, lineNo, "missing ')' in %q", addr)
	}

	immPart := strings.TrimSpace(addr[:open])
	regPart := strings.TrimSpace(addr[open+1 : closeIdx])

	rs, ok := parseRegister(regPart)
	if !ok {
		return nil, newErr(InvalidRegister, lineNo, "bad base register %q", regPart)
	}

	var v imm
	if immPart == "" {
		v = imm{value: 0}
	} else {
		v = st.parseImmOrLabel(immPart)
	}

	return []instr{{kind: kindI, opcode: op, rd: rd, rs: rs, imm: v}}, nil
}

func (st *state) parseImmOrLabel(tok string) imm {
	if v, ok := parseIntLiteral(tok); ok {
		return imm{value: v}
	}
	if v, ok := st.equates[tok]; ok {
		return imm{value: v}
	}
	return imm{isLabel: true, label: tok}
}

func regs3(lineNo int, args []string) (rd, rs, rt uint32, err error) {
	rd, ok := parseRegister(args[0])
	if !ok {
		return 0, 0, 0, newErr(InvalidRegister, lineNo, "bad register %q", args[0])
	}
	rs, ok = parseRegister(args[1])
	if !ok {
		return 0, 0, 0, newErr(InvalidRegister, lineNo, "bad register %q", args[1])
	}
	rt, ok = parseRegister(args[2])
	if !ok {
		return 0, 0, 0, newErr(InvalidRegister, lineNo, "bad register %q", args[2])
	}
	return rd, rs, rt, nil
}

func buildObject(mem map[uint32]uint32, bssSegs []bssReservation) *nvobj.Object {
	addrs := make([]uint32, 0, len(mem))
	for a := range mem {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })

	obj := &nvobj.Object{}

	if len(addrs) > 0 {
		curBase := addrs[0]
		var curWords []uint32
		prevAddr := addrs[0] - 4

		flush := func() {
			if len(curWords) > 0 {
				obj.Segments = append(obj.Segments, nvobj.Segment{
					Kind:        nvobj.KindData,
					BaseAddr:    curBase,
					LengthWords: uint32(len(curWords)),
					Words:       curWords,
				})
			}
		}

		for _, addr := range addrs {
			if addr != prevAddr+4 {
				flush()
				curBase = addr
				curWords = nil
			}
			curWords = append(curWords, mem[addr])
			prevAddr = addr
		}
		flush()
	}

	for _, b := range bssSegs {
		obj.Segments = append(obj.Segments, nvobj.Segment{
			Kind:        nvobj.KindBSS,
			BaseAddr:    b.base,
			LengthWords: b.length,
		})
	}

	sort.Slice(obj.Segments, func(i, j int) bool {
		return obj.Segments[i].BaseAddr < obj.Segments[j].BaseAddr
	})

	return obj
}
