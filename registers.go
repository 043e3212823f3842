// registers.go - x86-64 register table: the GPRs and XMM registers the
// scalar encoder and temporal runtime actually use. No AVX/ZMM forms:
// those belong to vector codegen this core does not implement.
package main

// Register describes one x86-64 register's encoding for ModR/M and REX
// purposes.
type Register struct {
	Name     string
	Size     int   // bits
	Encoding uint8 // 0-15; values >= 8 require REX.B/R/X
}

var x86Registers = map[string]Register{
	"rax": {"rax", 64, 0}, "rcx": {"rcx", 64, 1}, "rdx": {"rdx", 64, 2}, "rbx": {"rbx", 64, 3},
	"rsp": {"rsp", 64, 4}, "rbp": {"rbp", 64, 5}, "rsi": {"rsi", 64, 6}, "rdi": {"rdi", 64, 7},
	"r8": {"r8", 64, 8}, "r9": {"r9", 64, 9}, "r10": {"r10", 64, 10}, "r11": {"r11", 64, 11},
	"r12": {"r12", 64, 12}, "r13": {"r13", 64, 13}, "r14": {"r14", 64, 14}, "r15": {"r15", 64, 15},

	"eax": {"eax", 32, 0}, "ecx": {"ecx", 32, 1}, "edx": {"edx", 32, 2}, "ebx": {"ebx", 32, 3},
	"esp": {"esp", 32, 4}, "ebp": {"ebp", 32, 5}, "esi": {"esi", 32, 6}, "edi": {"edi", 32, 7},

	"xmm0": {"xmm0", 128, 0}, "xmm1": {"xmm1", 128, 1}, "xmm2": {"xmm2", 128, 2}, "xmm3": {"xmm3", 128, 3},
	"xmm4": {"xmm4", 128, 4}, "xmm5": {"xmm5", 128, 5}, "xmm6": {"xmm6", 128, 6}, "xmm7": {"xmm7", 128, 7},
	"xmm8": {"xmm8", 128, 8}, "xmm9": {"xmm9", 128, 9}, "xmm10": {"xmm10", 128, 10}, "xmm11": {"xmm11", 128, 11},
	"xmm12": {"xmm12", 128, 12}, "xmm13": {"xmm13", 128, 13}, "xmm14": {"xmm14", 128, 14}, "xmm15": {"xmm15", 128, 15},
}

// GetRegister looks up a register by name. ok is false for an unknown name.
func GetRegister(name string) (Register, bool) {
	r, ok := x86Registers[name]
	return r, ok
}

// IsExtended reports whether a register needs REX.B/R/X to address
// (encoding 8-15: R8-R15 / XMM8-XMM15).
func (r Register) IsExtended() bool { return r.Encoding >= 8 }

// GPCalleeSaved is the general-purpose register set variables are
// allocated from. Every runtime helper and codegen scratch sequence
// stays off these five; see regalloc.go.
var GPCalleeSaved = []string{"rbx", "r8", "r9", "r10", "r11"}

// TemporalCalleeSaved is the second bitmask: registers reserved for
// temporal-memory bookkeeping (zone/arena base pointers) during codegen of
// a temporal expression.
var TemporalCalleeSaved = []string{"r12", "r13", "r14", "r15"}
