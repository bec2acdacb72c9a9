package codegen

import (
	"fmt"
	"io"
	"strings"
)

// Register roles. Expressions leave their result in the accumulator; the
// scratch register holds the left operand of binary operators.
const (
	regAccum   = "%rax"
	regScratch = "%rcx"
)

// Integer argument registers of the System V AMD64 calling convention,
// in order. Arguments beyond the sixth travel on the stack.
var argRegisters = [...]string{"%rdi", "%rsi", "%rdx", "%rcx", "%r8", "%r9"}

// emitter writes assembly text with sticky error handling, so the
// generator can emit freely and check once at the end.
type emitter struct {
	w   io.Writer
	err error
}

func (e *emitter) printf(format string, args ...interface{}) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}

// instr writes one tab-indented instruction or directive line.
func (e *emitter) instr(format string, args ...interface{}) {
	e.printf("\t"+format+"\n", args...)
}

func (e *emitter) label(format string, args ...interface{}) {
	e.printf(format+":\n", args...)
}

func (e *emitter) blank() {
	e.printf("\n")
}

// offset formats a %rbp-relative memory operand.
func offset(n int64) string {
	return fmt.Sprintf("%d(%%rbp)", n)
}

// ascizEscape renders s as the body of an .asciz string constant,
// escaping the characters the GNU assembler treats specially.
func ascizEscape(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			sb.WriteString(`\\`)
		case '"':
			sb.WriteString(`\"`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&sb, `\%03o`, r)
			} else {
				sb.WriteRune(r)
			}
		}
	}
	return sb.String()
}
