package op

// OpCode is the definition of instructions.
type OpCode struct {
	Name       string
	ParamTypes []ParamType
	Code       byte // Right aligned.
	Width      int  // Number of bits of Code.
	Kind       Kind
	Comment    string
}

// Widths lists the opcode widths in matching order.
var Widths = []int{3, 4, 5, 6}

var OpCodeTable = []OpCode{
	{"mov", []ParamType{TArg, TArg}, 0b000, 3, Mov, "mov src, dst"},
	{"loadConst", []ParamType{TConst, TArg}, 0b001, 3, LoadConst, "loadConst value, dst"},

	{"call", []ParamType{TAddr}, 0b1100, 4, Call, "push pc, jump"},
	{"ret", nil, 0b1101, 4, Ret, "pop pc"},
	{"lock", []ParamType{TArg}, 0b1110, 4, Lock, "acquire named lock"},
	{"unlock", []ParamType{TArg}, 0b1111, 4, Unlock, "release named lock"},

	{"compare", []ParamType{TArg, TArg, TArg}, 0b01100, 5, Compare, "a<b -> -1, a==b -> 0, a>b -> 1"},
	{"jump", []ParamType{TAddr}, 0b01101, 5, Jump, "jump"},
	{"jumpEqual", []ParamType{TAddr, TArg, TArg}, 0b01110, 5, JumpEqual, "jump if a == b"},
	{"read", []ParamType{TArg, TArg, TArg, TArg}, 0b10000, 5, Read, "read offset, size, addr, count"},
	{"write", []ParamType{TArg, TArg, TArg}, 0b10001, 5, Write, "write offset, size, addr"},
	{"consoleRead", []ParamType{TArg}, 0b10010, 5, ConsoleRead, "read hex from stdin"},
	{"consoleWrite", []ParamType{TArg}, 0b10011, 5, ConsoleWrite, "print hex to stdout"},
	{"createThread", []ParamType{TAddr, TArg}, 0b10100, 5, CreateThread, "spawn thread, store id"},
	{"joinThread", []ParamType{TArg}, 0b10101, 5, JoinThread, "wait for thread"},
	{"hlt", nil, 0b10110, 5, Hlt, "halt thread"},
	{"sleep", []ParamType{TArg}, 0b10111, 5, Sleep, "sleep milliseconds"},

	{"add", []ParamType{TArg, TArg, TArg}, 0b010001, 6, Add, "a+b -> dst"},
	{"sub", []ParamType{TArg, TArg, TArg}, 0b010010, 6, Sub, "a-b -> dst"},
	{"div", []ParamType{TArg, TArg, TArg}, 0b010011, 6, Div, "a/b -> dst"},
	{"mod", []ParamType{TArg, TArg, TArg}, 0b010100, 6, Mod, "a%b -> dst"},
	{"mul", []ParamType{TArg, TArg, TArg}, 0b010101, 6, Mul, "a*b -> dst"},
}

type codeKey struct {
	width int
	code  byte
}

var (
	byCode = map[codeKey]OpCode{}
	byName = map[string]OpCode{}
)

func init() {
	for _, elem := range OpCodeTable {
		byCode[codeKey{elem.Width, elem.Code}] = elem
		byName[elem.Name] = elem
	}
}

// Find returns the opcode encoded as code on width bits.
func Find(width int, code byte) (OpCode, bool) {
	oc, ok := byCode[codeKey{width, code}]
	return oc, ok
}

// Lookup returns the opcode for the given mnemonic.
func Lookup(name string) (OpCode, bool) {
	oc, ok := byName[name]
	return oc, ok
}

func (k Kind) String() string {
	for _, elem := range OpCodeTable {
		if elem.Kind == k {
			return elem.Name
		}
	}
	return "unknown"
}
