package scripting

// SecurityPolicy describes which sandbox capabilities are disabled
// before user script evaluation begins (spec §4.3).
type SecurityPolicy struct {
	DeniedFunctions            []string
	DisableEval                bool
	DisableFunctionConstructor bool
	DisableModules             bool
	EnableStrictMode           bool
	MaxLoopIterations          int
	MaxRecursionDepth          int
	DisablePrototypePollution  bool
	EnableMemoryMonitoring     bool
}

// DefaultPolicy mirrors the "default" preset from spec §4.3: eval,
// Function, timers, fetch, Worker, require and importScripts disabled.
func DefaultPolicy() SecurityPolicy {
	return SecurityPolicy{
		DeniedFunctions: []string{
			"setTimeout", "setInterval", "setImmediate",
			"fetch", "XMLHttpRequest", "Worker", "importScripts",
		},
		DisableEval:                true,
		DisableFunctionConstructor: true,
		DisableModules:             true,
		EnableStrictMode:           true,
		MaxLoopIterations:          1_000_000,
		MaxRecursionDepth:          500,
		DisablePrototypePollution:  true,
		EnableMemoryMonitoring:     true,
	}
}

// PermissivePolicy loosens most restrictions; intended for tests.
func PermissivePolicy() SecurityPolicy {
	return SecurityPolicy{
		DeniedFunctions:            nil,
		DisableEval:                false,
		DisableFunctionConstructor: false,
		DisableModules:             false,
		EnableStrictMode:           false,
		MaxLoopIterations:          10_000_000,
		MaxRecursionDepth:          2000,
		DisablePrototypePollution:  false,
		EnableMemoryMonitoring:     false,
	}
}

// StrictPolicy additionally denies document/window/global(This)/process,
// storage APIs, and the caller/callee/arguments properties (spec §4.3).
func StrictPolicy() SecurityPolicy {
	p := DefaultPolicy()
	p.DeniedFunctions = append(p.DeniedFunctions,
		"document", "window", "global", "globalThis", "process",
		"localStorage", "sessionStorage", "indexedDB",
		"caller", "callee", "arguments",
	)
	p.MaxLoopIterations = 100_000
	p.MaxRecursionDepth = 100
	return p
}

// Preset resolves one of the three named presets from spec §4.3, falling
// back to default for an unrecognized name.
func Preset(name string) SecurityPolicy {
	switch name {
	case "permissive":
		return PermissivePolicy()
	case "strict":
		return StrictPolicy()
	default:
		return DefaultPolicy()
	}
}
