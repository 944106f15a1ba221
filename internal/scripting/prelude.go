package scripting

import (
	"fmt"
	"strconv"
	"strings"
)

// buildPrelude assembles the JS text evaluated before user code: the
// utility library spec §6 lists (log/assert/expect/parseJSON/time/
// performance.now()) plus the security-policy enforcement described in
// spec §4.3. Grounded on original_source/monitor-scripting/src/engine.rs,
// which embeds an equivalent helper-library string literal, and on
// cryguy-worker/internal/v8engine/pool.go's globalThisCleanupJS pattern
// of injecting setup JS ahead of user code.
func buildPrelude(policy SecurityPolicy) string {
	var b strings.Builder
	b.WriteString(utilityLibraryJS)
	b.WriteString(policyEnforcementJS(policy))
	return b.String()
}

const utilityLibraryJS = `
(function() {
  globalThis.__logs = [];
  function __log(level, message) {
    globalThis.__logs.push({ level: level, message: String(message) });
  }
  globalThis.log = {
    debug: function(m) { __log('debug', m); },
    info:  function(m) { __log('info', m); },
    warn:  function(m) { __log('warn', m); },
    error: function(m) { __log('error', m); },
  };

  globalThis.assert = function(cond, msg) {
    if (!cond) { throw new Error(msg || 'assertion failed'); }
    return true;
  };

  globalThis.expect = function(actual, expected, msg) {
    if (actual !== expected) {
      throw new Error(msg || ('expected ' + JSON.stringify(expected) + ' but got ' + JSON.stringify(actual)));
    }
    return true;
  };

  globalThis.assertType = function(value, typeName, msg) {
    if (typeof value !== typeName) {
      throw new Error(msg || ('expected type ' + typeName + ' but got ' + typeof value));
    }
    return true;
  };

  globalThis.assertInstanceOf = function(value, ctor, msg) {
    if (!(value instanceof ctor)) {
      throw new Error(msg || 'value is not an instance of the expected constructor');
    }
    return true;
  };

  globalThis.assertStatus = function(expected, msg) {
    if (!context || context.status_code !== expected) {
      throw new Error(msg || ('expected status ' + expected + ' but got ' + (context && context.status_code)));
    }
    return true;
  };

  globalThis.assertStatusRange = function(min, max, msg) {
    var code = context && context.status_code;
    if (typeof code !== 'number' || code < min || code > max) {
      throw new Error(msg || ('expected status in [' + min + ', ' + max + '] but got ' + code));
    }
    return true;
  };

  globalThis.assertContains = function(haystack, needle, msg) {
    if (typeof haystack !== 'string' || haystack.indexOf(needle) === -1) {
      throw new Error(msg || ('expected string to contain ' + JSON.stringify(needle)));
    }
    return true;
  };

  globalThis.assertMatches = function(value, pattern, msg) {
    var re = (pattern instanceof RegExp) ? pattern : new RegExp(pattern);
    if (!re.test(value)) {
      throw new Error(msg || ('expected ' + JSON.stringify(value) + ' to match ' + re));
    }
    return true;
  };

  globalThis.parseJSON = function(text, defaultValue) {
    try { return JSON.parse(text); } catch (e) { return defaultValue; }
  };

  globalThis.assertValidJSON = function(text, msg) {
    try { JSON.parse(text); return true; } catch (e) {
      throw new Error(msg || ('invalid JSON: ' + e.message));
    }
  };

  globalThis.time = function(label) {
    var start = Date.now();
    return {
      end: function() { return Date.now() - start; },
      label: label,
    };
  };

  if (typeof globalThis.performance === 'undefined' || typeof globalThis.performance.now !== 'function') {
    var __perfStart = Date.now();
    globalThis.performance = { now: function() { return Date.now() - __perfStart; } };
  }
})();
`

// policyEnforcementJS renders the JS that applies a SecurityPolicy to
// globalThis before user code runs (spec §4.3 security policy table).
func policyEnforcementJS(p SecurityPolicy) string {
	var b strings.Builder
	b.WriteString("(function() {\n")

	for _, name := range p.DeniedFunctions {
		fmt.Fprintf(&b, "  try { delete globalThis[%q]; } catch (e) {}\n", name)
		fmt.Fprintf(&b, "  try {\n    Object.defineProperty(globalThis, %q, {\n", name)
		fmt.Fprintf(&b, "      get: function() { throw new Error(%q); },\n", deniedMessage(name))
		b.WriteString("      configurable: false\n    });\n  } catch (e) {}\n")
	}

	if p.DisableEval {
		writeThrower(&b, "eval", deniedMessage("eval"))
	}
	if p.DisableFunctionConstructor {
		writeThrower(&b, "Function", deniedMessage("Function"))
	}
	if p.DisableModules {
		writeThrower(&b, "require", deniedMessage("require"))
		writeThrower(&b, "import", deniedMessage("import"))
	}
	if p.DisablePrototypePollution {
		b.WriteString("  try {\n")
		b.WriteString("    ['__proto__', 'prototype', 'constructor'].forEach(function(k) {\n")
		b.WriteString("      try {\n")
		b.WriteString("        Object.defineProperty(Object.prototype, k, { configurable: false, writable: false });\n")
		b.WriteString("      } catch (e) {}\n")
		b.WriteString("    });\n")
		b.WriteString("  } catch (e) {}\n")
	}
	if p.EnableMemoryMonitoring {
		b.WriteString("  globalThis.__checkMemory = function() { return { note: 'advisory only' }; };\n")
	}
	if p.MaxLoopIterations > 0 {
		fmt.Fprintf(&b, "  globalThis.__maxLoopIterations = %s;\n", strconv.Itoa(p.MaxLoopIterations))
	}
	if p.MaxRecursionDepth > 0 {
		fmt.Fprintf(&b, "  globalThis.__maxRecursionDepth = %s;\n", strconv.Itoa(p.MaxRecursionDepth))
	}

	b.WriteString("})();\n")
	return b.String()
}

func writeThrower(b *strings.Builder, name, message string) {
	fmt.Fprintf(b, "  try { delete globalThis[%q]; } catch (e) {}\n", name)
	fmt.Fprintf(b, "  try {\n    Object.defineProperty(globalThis, %q, {\n", name)
	fmt.Fprintf(b, "      value: function() { throw new Error(%q); },\n", message)
	b.WriteString("      writable: false, configurable: false\n    });\n  } catch (e) {}\n")
}
