// Package nsisvm is a small virtual machine that evaluates NSIS System
// plugin invocations (System::Call, System::Int64Op) found in installer
// script traces. It never runs real code; every API call resolves to a
// mocked result that is just faithful enough to keep static trace
// evaluation moving.
package nsisvm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// RegisterCount is the size of the flat register file: $0-$9 occupy slots
// 0-9 and $R0-$R9 occupy slots 10-19.
const RegisterCount = 20

// State is the scratch state of one evaluation pass. It must be reset
// between analyses; nothing in it survives an installer.
type State struct {
	stack   []string
	vars    [RegisterCount]string
	structs map[string][]string
	stored  []string
	notes   []string
	log     zerolog.Logger
}

// NewState returns a fresh VM state logging through log
func NewState(log *zerolog.Logger) *State {
	s := &State{log: zerolog.Nop()}
	if log != nil {
		s.log = *log
	}
	s.Reset()
	return s
}

// Reset clears the stack, registers, struct side table and notes
func (s *State) Reset() {
	s.stack = s.stack[:0]
	s.vars = [RegisterCount]string{}
	s.structs = map[string][]string{}
	s.stored = nil
	s.notes = nil
}

// Push places a value on top of the operand stack
func (s *State) Push(value string) {
	s.stack = append(s.stack, value)
}

// Pop removes and returns the top of the stack; ok is false when empty
func (s *State) Pop() (string, bool) {
	if len(s.stack) == 0 {
		return "", false
	}
	top := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	return top, true
}

// Peek returns the value depth entries below the top without popping
func (s *State) Peek(depth int) string {
	idx := len(s.stack) - 1 - depth
	if idx < 0 {
		return ""
	}
	return s.stack[idx]
}

// StackDepth returns the current operand stack depth
func (s *State) StackDepth() int {
	return len(s.stack)
}

// PeekInt parses the stack value at depth as an integer, zero on failure
func (s *State) PeekInt(depth int) int64 {
	return ParseInt(s.Peek(depth))
}

// Var returns the register at slot idx, empty for out-of-range slots
func (s *State) Var(idx int) string {
	if idx < 0 || idx >= RegisterCount {
		return ""
	}
	return s.vars[idx]
}

// SetVar writes the register at slot idx; out-of-range writes are dropped
func (s *State) SetVar(idx int, value string) {
	if idx < 0 || idx >= RegisterCount {
		return
	}
	s.vars[idx] = value
}

// Struct returns the mocked memory struct at addr
func (s *State) Struct(addr string) ([]string, bool) {
	fields, ok := s.structs[addr]
	return fields, ok
}

// SetStruct installs a mocked memory struct at addr
func (s *State) SetStruct(addr string, fields []string) {
	s.structs[addr] = fields
}

// setStructField grows the struct at addr as needed and sets one field
func (s *State) setStructField(addr string, idx int, value string) {
	fields := s.structs[addr]
	for len(fields) <= idx {
		fields = append(fields, "")
	}
	fields[idx] = value
	s.structs[addr] = fields
}

// note records a diagnostic for an unmapped or odd call; evaluation
// continues regardless.
func (s *State) note(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	s.notes = append(s.notes, msg)
	s.log.Debug().Msg(msg)
}

// Notes returns the diagnostics accumulated during evaluation
func (s *State) Notes() []string {
	return s.notes
}

// ParseInt reads a 64-bit integer in decimal, hex (0x) or octal (leading
// zero) notation, returning 0 for anything unparseable.
func ParseInt(raw string) int64 {
	str := strings.TrimSpace(raw)
	if str == "" {
		return 0
	}
	neg := false
	if strings.HasPrefix(str, "-") {
		neg = true
		str = str[1:]
	}
	var value uint64
	var err error
	switch {
	case strings.HasPrefix(str, "0x") || strings.HasPrefix(str, "0X"):
		value, err = strconv.ParseUint(str[2:], 16, 64)
	case len(str) > 1 && str[0] == '0' && isDigits(str[1:]):
		value, err = strconv.ParseUint(str[1:], 8, 64)
	default:
		if parsed, perr := strconv.ParseInt(str, 10, 64); perr == nil {
			if neg {
				return -parsed
			}
			return parsed
		}
		// wraparound for values that overflow int64 but fit uint64
		value, err = strconv.ParseUint(str, 10, 64)
	}
	if err != nil {
		return 0
	}
	result := int64(value)
	if neg {
		result = -result
	}
	return result
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}
