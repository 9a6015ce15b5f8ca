package nsisvm

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// callContext is everything a mock handler may inspect about one call
type callContext struct {
	module   string
	function string
	spec     string // the raw "(params)return" tail
	params   []param
	popped   []string // values popped for stack-sourced params, in param order
}

// handler produces the mocked return value of one API call and applies any
// output-parameter side effects.
type handler func(state *State, call *callContext) string

// mockTable maps (module, function) to its handler. Modules are matched
// case-insensitively; anything unmapped falls through to defaultHandler.
var mockTable = map[string]map[string]handler{
	"advapi32": {
		"OpenSCManager":      constHandler("1"),
		"OpenService":        constHandler("1"),
		"QueryServiceStatus": constHandler("1"),
		"CloseServiceHandle": constHandler("1"),
	},
	"kernel32": {
		"GetTickCount":      constHandler("0"),
		"GetLocalTime":      constHandler("0"),
		"GetSystemTime":     constHandler("0"),
		"GetCurrentProcess": constHandler("-1"),
		"GetVersionEx":      handleGetVersionEx,
		"IsWow64Process":    handleIsWow64Process,
		"IsWow64Process2":   handleIsWow64Process2,
	},
	"shell32": {
		"SHChangeNotify":       constHandler("0"),
		"SHGetKnownFolderPath": handleKnownFolderPath,
	},
}

// knownFolders maps KNOWNFOLDERID GUIDs to the symbolic path the mocked
// SHGetKnownFolderPath writes through its output pointer.
var knownFolders = map[uuid.UUID]string{
	uuid.MustParse("5CD7AEE2-2219-4A67-B85D-6C9CE15660CB"): `%LocalAppData%\Programs`, // FOLDERID_UserProgramFiles
	uuid.MustParse("F1B32785-6FBA-4FCF-9D55-7B8E7F157091"): `%LocalAppData%`,          // FOLDERID_LocalAppData
	uuid.MustParse("3EB685DB-65F9-4CF6-A03A-E3EF65729F3D"): `%AppData%`,               // FOLDERID_RoamingAppData
	uuid.MustParse("905E63B6-C1BF-494E-B29C-65B732D3D21A"): `%ProgramFiles%`,          // FOLDERID_ProgramFiles
	uuid.MustParse("6D809377-6AF0-444B-8957-A3773F02200E"): `%ProgramFiles%`,          // FOLDERID_ProgramFilesX64
	uuid.MustParse("7C5A40EF-A0FB-4BFC-874A-C0F2E0B9FA8E"): `%ProgramFiles(x86)%`,     // FOLDERID_ProgramFilesX86
}

func constHandler(result string) handler {
	return func(*State, *callContext) string { return result }
}

func defaultHandler(state *State, call *callContext) string {
	if call.module == "" {
		state.note("unhandled call %s", call.function+call.spec)
	} else {
		state.note("unhandled %s function %s", call.module, call.function)
	}
	return "0"
}

// EvaluateCall interprets one System::Call invocation string and applies
// its side effects to the state. It never fails; unknown calls resolve to
// the fallback constant plus a diagnostic note.
func EvaluateCall(state *State, apiCall string) {
	apiCall = strings.TrimSpace(apiCall)
	if apiCall == "" {
		return
	}
	if strings.HasPrefix(apiCall, "*") && strings.Contains(apiCall, "(") {
		evaluateStructOp(state, apiCall)
		return
	}

	module, rest := "", apiCall
	if idx := strings.Index(apiCall, "::"); idx >= 0 {
		module, rest = apiCall[:idx], apiCall[idx+2:]
	}
	function, spec := rest, ""
	if idx := strings.Index(rest, "("); idx >= 0 {
		function, spec = rest[:idx], rest[idx:]
	}

	params, ret := parseParams(spec)

	// stack-sourced parameters are popped even when their value is never
	// used, to preserve stack depth
	popped := make([]string, len(params))
	for i, p := range params {
		if p.source == "s" {
			popped[i], _ = state.Pop()
		}
	}

	call := &callContext{
		module:   module,
		function: function,
		spec:     spec,
		params:   params,
		popped:   popped,
	}

	h := defaultHandler
	if funcs, ok := mockTable[strings.ToLower(module)]; ok {
		if mapped, ok := funcs[function]; ok {
			h = mapped
		}
	}
	result := h(state, call)

	if ret != nil && ret.destination != "" {
		storeTo(state, ret.destination, result)
	}
}

// handleGetVersionEx marks the OSVERSIONINFO struct pointed to by the first
// register parameter with a fixed Windows 10 build.
func handleGetVersionEx(state *State, call *callContext) string {
	if addr := firstRegisterValue(state, call); addr != "" {
		state.SetStruct(addr, []string{
			"284",   // dwOSVersionInfoSize
			"10",    // dwMajorVersion
			"0",     // dwMinorVersion
			"19041", // dwBuildNumber
			"2",     // dwPlatformId
			"",      // szCSDVersion
		})
	}
	return "1"
}

// handleIsWow64Process mocks a native 64-bit process: WOW64 = FALSE
func handleIsWow64Process(state *State, call *callContext) string {
	for _, p := range call.params {
		if p.isPointer() && p.destination != "" {
			storeTo(state, p.destination, "0")
		}
	}
	return "1"
}

// handleIsWow64Process2 writes IMAGE_FILE_MACHINE_AMD64 to both machine
// output parameters.
func handleIsWow64Process2(state *State, call *callContext) string {
	for _, p := range call.params {
		if p.isPointer() && p.destination != "" {
			storeTo(state, p.destination, "34404") // 0x8664
		}
	}
	return "1"
}

// handleKnownFolderPath resolves the requested KNOWNFOLDERID against the
// fixed table and writes the symbolic path through a minted pointer.
func handleKnownFolderPath(state *State, call *callContext) string {
	raw := extractGUID(call.spec)
	if raw == "" {
		state.note("SHGetKnownFolderPath: no GUID in %s", call.spec)
		return "1" // E_FAIL
	}
	id, err := uuid.Parse(strings.Trim(raw, "{}"))
	if err != nil {
		state.note("SHGetKnownFolderPath: bad GUID %s", raw)
		return "1"
	}
	path, ok := knownFolders[id]
	if !ok {
		state.note("SHGetKnownFolderPath: unknown GUID %s", raw)
		return "1"
	}
	for _, p := range call.params {
		if p.typ == "*p" && p.destination != "" {
			ptr := strconv.Itoa(state.StackDepth())
			state.SetStruct(ptr, []string{path})
			storeTo(state, p.destination, ptr)
		}
	}
	return "0" // S_OK
}

// firstRegisterValue reads the register named by the first parameter source
func firstRegisterValue(state *State, call *callContext) string {
	for _, p := range call.params {
		if len(p.source) >= 2 && (p.source[0] == 'r' || p.source[0] == 'R') {
			if idx, ok := parseRegister(p.source); ok {
				return state.Var(idx)
			}
		}
	}
	return ""
}

func extractGUID(spec string) string {
	start := strings.Index(spec, "{")
	if start < 0 {
		return ""
	}
	end := strings.Index(spec[start:], "}")
	if end < 0 {
		return ""
	}
	return spec[start : start+end+1]
}

// evaluateStructOp handles `*addr(field,…)return` struct reads/writes and
// `*(&…)return` allocations. Minted addresses equal the current stack
// depth, matching the pointer tokens handed out by mocked allocators.
func evaluateStructOp(state *State, apiCall string) {
	open := strings.Index(apiCall, "(")
	end := strings.LastIndex(apiCall, ")")
	if open < 0 || end < 0 || end < open {
		return
	}
	fieldSpec := apiCall[open+1 : end]
	retSpec := strings.TrimSpace(apiCall[end+1:])

	if strings.HasPrefix(apiCall, "*(&") {
		addr := strconv.Itoa(state.StackDepth())
		ret := parseParam(retSpec)
		if ret.destination != "" {
			storeTo(state, ret.destination, addr)
		}
		return
	}

	// *N literal address, *rN/*RN register-held address
	addrPart := apiCall[1:open]
	addr := addrPart
	if strings.HasPrefix(addrPart, "r") || strings.HasPrefix(addrPart, "R") {
		idx, ok := parseRegister(addrPart)
		if !ok {
			return
		}
		addr = state.Var(idx)
	}
	if addr == "" {
		return
	}

	fields, exists := state.Struct(addr)
	if !exists {
		state.note("no struct data at pointer %s", addr)
		return
	}
	for i, fieldStr := range splitParams(fieldSpec) {
		p := parseParam(fieldStr)
		if p.destination != "" && i < len(fields) {
			storeTo(state, p.destination, fields[i])
		}
		if p.source != "" && p.source != "s" && p.source != "n" {
			state.setStructField(addr, i, sourceValue(state, p.source, ""))
		}
	}
}
