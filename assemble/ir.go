package assemble

// half selects which 16 bits of a resolved label address an imm
// refers to, used by the la pseudo-op's LUI/ORI pair.
type half int

const (
	halfFull half = iota // use the resolved value as-is (literal, or whole label address)
	halfHi               // (addr >> 16) & 0xFFFF
	halfLo               // addr & 0xFFFF
)

// imm is an immediate operand that may still need label resolution.
type imm struct {
	isLabel bool
	value   int32
	label   string
	half    half
}

// kind enumerates the IR instruction shapes pass 2 knows how to
// encode. Pseudo-ops are expanded away in pass 1 and never appear
// here.
type kind int

const (
	kindRRR   kind = iota // op rd, rs, rt      (3-register ALU)
	kindI                 // op rd, rs, imm     (ALU-immediate, LW/SW/LB/SB base=rs)
	kindLUI               // lui rd, imm
	kindBranch            // beq/bne/blt/bge: operandA -> rd field, operandB -> rs field
	kindJump              // j/jal label
	kindJR                // jr rs
	kindJALR              // jalr rd, rs
	kindNoOperand         // nop/halt
)

// instr is one decoded, not-yet-encoded instruction, tagged with its
// byte address.
type instr struct {
	addr   uint32
	kind   kind
	opcode uint32
	rd     uint32
	rs     uint32
	rt     uint32
	imm    imm
	label  string // for kindJump and kindBranch
}
