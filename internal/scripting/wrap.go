package scripting

import "strings"

// declarationTokens are the tokens whose presence forces IIFE wrapping
// even for otherwise-short sources (spec §4.3 "Script wrapping").
var declarationTokens = []string{"function", "var", "let", "const"}

// needsWrapping decides between verbatim evaluation (preserving
// expression-result semantics) and IIFE wrapping, per spec §4.3: source
// that is short (<= 2 lines) and declaration-free is evaluated verbatim.
func needsWrapping(source string) bool {
	lines := strings.Split(strings.TrimRight(source, "\n"), "\n")
	if len(lines) > 2 {
		return true
	}
	return containsDeclaration(source)
}

func containsDeclaration(source string) bool {
	for _, tok := range declarationTokens {
		if wordPresent(source, tok) {
			return true
		}
	}
	return false
}

// wordPresent reports whether tok appears in source as a standalone
// identifier (not as a substring of a longer identifier).
func wordPresent(source, tok string) bool {
	idx := 0
	for {
		i := strings.Index(source[idx:], tok)
		if i < 0 {
			return false
		}
		pos := idx + i
		before := byte(0)
		if pos > 0 {
			before = source[pos-1]
		}
		after := byte(0)
		if pos+len(tok) < len(source) {
			after = source[pos+len(tok)]
		}
		if !isIdentByte(before) && !isIdentByte(after) {
			return true
		}
		idx = pos + len(tok)
		if idx >= len(source) {
			return false
		}
	}
}

func isIdentByte(b byte) bool {
	return b == '_' || b == '$' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// wrapSource wraps source in the IIFE the spec requires for
// declaration-bearing or multi-line input: it installs a cooperative
// deadline check, catches the top-level exception, enriches the error's
// line/column with "unknown" when absent, and re-raises.
func wrapSource(source string, deadlineMS int64) string {
	return "(function() {\n" +
		"  var __deadline = " + itoa(deadlineMS) + ";\n" +
		"  function __checkDeadline() {\n" +
		"    if (Date.now() > __deadline) { throw new Error('script exceeded cooperative time budget'); }\n" +
		"  }\n" +
		"  globalThis.__checkDeadline = __checkDeadline;\n" +
		"  try {\n" +
		"    return (function() {\n" + source + "\n    })();\n" +
		"  } catch (e) {\n" +
		"    if (e && typeof e === 'object') {\n" +
		"      if (typeof e.line === 'undefined') { e.line = 'unknown'; }\n" +
		"      if (typeof e.column === 'undefined') { e.column = 'unknown'; }\n" +
		"    }\n" +
		"    throw e;\n" +
		"  }\n" +
		"})();"
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
