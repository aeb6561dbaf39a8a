package op

import (
	"encoding/binary"
)

// Endian is the byte order of the file header and of memory operands.
var Endian = binary.LittleEndian

const (
	MaxArgsNumber = 4 // read has 4 operands.
)

const (
	RegisterCount = 16 // r0 <--> r15
	RegisterSize  = 8  // Size of each register in bytes.
)

// Operand encoding, in bits.
const (
	OperandTagBits = 1 // 0: register, 1: memory.
	MemSizeBits    = 2
	RegisterBits   = 4
	ConstantBits   = 64
	AddressBits    = 32

	RegisterOperandBits = OperandTagBits + RegisterBits
	MemoryOperandBits   = OperandTagBits + MemSizeBits + RegisterBits
)

// Kind identifies an instruction independently of its encoding.
type Kind int

// Kind values.
const (
	Mov Kind = iota
	LoadConst
	Add
	Sub
	Div
	Mod
	Mul
	Compare
	Jump
	JumpEqual
	Read
	Write
	ConsoleRead
	ConsoleWrite
	CreateThread
	JoinThread
	Hlt
	Sleep
	Call
	Ret
	Lock
	Unlock
)

// Tokens.
const (
	CommentChars      = "#;"
	LabelChar         = ':'
	RegisterChar      = 'r'
	SeparatorChar     = ','
	DirectiveChar     = '.'
	MemOpenChar       = '['
	MemCloseChar      = ']'
	LabelChars        = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz_0123456789"
	DataSizeCmdString = ".dataSize"
	DataCmdString     = ".data"
)
