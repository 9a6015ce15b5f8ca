package nsisvm

import (
	"strconv"
	"strings"
)

// EvaluateInt64Op pops the operator from the stack and evaluates it over
// the front stack operands, returning the decimal result.
// https://github.com/NSIS-Dev/nsis/blob/v311/Contrib/System/Source/System.c#L444
func EvaluateInt64Op(state *State) string {
	operation, _ := state.Pop()
	arg1 := state.PeekInt(0)
	if isUnaryOp(operation) {
		return evaluateOperation(operation, arg1, 0, true)
	}
	arg2 := state.PeekInt(1)
	return evaluateOperation(operation, arg1, arg2, false)
}

func isUnaryOp(op string) bool {
	switch strings.TrimSpace(op) {
	case "~", "!":
		return true
	}
	return false
}

// evaluateOperation applies one operator with two's-complement wraparound
// semantics. Division and modulo by zero yield 0 rather than trapping;
// ">>>" is a logical (unsigned) shift while ">>" stays arithmetic.
func evaluateOperation(op string, arg1, arg2 int64, unary bool) string {
	if unary {
		var result int64
		switch strings.TrimSpace(op) {
		case "~":
			result = ^arg1
		case "!":
			if arg1 == 0 {
				result = 1
			}
		default:
			result = arg1
		}
		return strconv.FormatInt(result, 10)
	}

	var result int64
	switch strings.TrimSpace(op) {
	case "+":
		result = arg1 + arg2
	case "-":
		result = arg1 - arg2
	case "*":
		result = arg1 * arg2
	case "/":
		if arg2 != 0 {
			result = wrappingDiv(arg1, arg2)
		}
	case "%":
		if arg2 != 0 {
			result = wrappingRem(arg1, arg2)
		}
	case "<<":
		result = arg1 << (uint64(arg2) & 63)
	case ">>":
		result = arg1 >> (uint64(arg2) & 63)
	case ">>>":
		result = int64(uint64(arg1) >> (uint64(arg2) & 63))
	case "|":
		result = arg1 | arg2
	case "&":
		result = arg1 & arg2
	case "^":
		result = arg1 ^ arg2
	case "||":
		if arg1 != 0 || arg2 != 0 {
			result = 1
		}
	case "&&":
		if arg1 != 0 && arg2 != 0 {
			result = 1
		}
	case "<":
		if arg1 < arg2 {
			result = 1
		}
	case "=":
		if arg1 == arg2 {
			result = 1
		}
	case ">":
		if arg1 > arg2 {
			result = 1
		}
	default:
		result = arg1
	}
	return strconv.FormatInt(result, 10)
}

// wrappingDiv matches two's-complement division: MinInt64 / -1 wraps back
// to MinInt64 instead of panicking.
func wrappingDiv(a, b int64) int64 {
	if a == -1<<63 && b == -1 {
		return a
	}
	return a / b
}

func wrappingRem(a, b int64) int64 {
	if a == -1<<63 && b == -1 {
		return 0
	}
	return a % b
}
