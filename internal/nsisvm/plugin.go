package nsisvm

import (
	"strings"
)

// Evaluate dispatches one plugin invocation popped from the simulated
// operand stack. module/function are the `Module::Function` halves of the
// plugin call entry.
// https://nsis.sourceforge.io/System.html
func Evaluate(state *State, module, function string) {
	switch module {
	case "System":
		evaluateSystem(state, function)
	case "StdUtils":
		evaluateStdUtils(state, function)
	default:
		state.note("unimplemented plugin %s::%s", module, function)
	}
}

func evaluateSystem(state *State, function string) {
	switch function {
	case "Call":
		if args, ok := state.Pop(); ok {
			EvaluateCall(state, args)
		}
	case "Free":
		if addr, ok := state.Pop(); ok {
			state.log.Debug().Str("address", addr).Msg("System: freed address")
		}
	case "Int64Op":
		state.Push(EvaluateInt64Op(state))
	case "Store":
		if args, ok := state.Pop(); ok {
			evaluateStore(state, args)
		}
	default:
		// Alloc, StrAlloc, Copy, Get
		state.note("unimplemented System function %s", function)
	}
}

// evaluateStore saves (S) or restores (L) a register bank. With no
// registers named, the r0-r9 bank is used.
func evaluateStore(state *State, args string) {
	args = strings.TrimSpace(args)
	switch {
	case strings.HasPrefix(args, "S"):
		regs := storeRegisters(args[1:])
		state.stored = state.stored[:0]
		for _, idx := range regs {
			state.stored = append(state.stored, state.Var(idx))
		}
	case strings.HasPrefix(args, "L"):
		regs := storeRegisters(args[1:])
		for i, idx := range regs {
			if i < len(state.stored) {
				state.SetVar(idx, state.stored[i])
			}
		}
	}
}

func storeRegisters(spec string) []int {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		regs := make([]int, 10)
		for i := range regs {
			regs[i] = i
		}
		return regs
	}
	var regs []int
	for _, name := range strings.Fields(spec) {
		if idx, ok := parseRegister(name); ok {
			regs = append(regs, idx)
		} else if n := ParseInt(name); n > 0 || name == "0" {
			if int(n) < RegisterCount {
				regs = append(regs, int(n))
			}
		}
	}
	return regs
}

func evaluateStdUtils(state *State, function string) {
	switch function {
	case "TestParameter":
		state.Push("false")
	case "GetParentPath":
		state.Push(parentPath(state.Peek(0)))
	default:
		state.note("unimplemented StdUtils function %s", function)
	}
}

// parentPath trims the last path component, accepting both separators
// since script traces mix them.
func parentPath(path string) string {
	trimmed := strings.TrimRight(path, `\/`)
	idx := strings.LastIndexAny(trimmed, `\/`)
	if idx < 0 {
		return ""
	}
	return trimmed[:idx]
}
