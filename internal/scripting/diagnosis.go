package scripting

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/yeheng/monitor/internal/monitor"
)

const (
	kindSyntaxError    = "syntax_error"
	kindReferenceError = "reference_error"
	kindTypeError      = "type_error"
	kindRuntimeError   = "runtime_error"
	kindException      = "exception"
)

// classify scans the raised error message for the tokens the spec names
// and returns the matching diagnosis kind (spec §4.3 "Error diagnosis").
func classify(message string) string {
	switch {
	case strings.Contains(message, "SyntaxError"):
		return kindSyntaxError
	case strings.Contains(message, "ReferenceError"):
		return kindReferenceError
	case strings.Contains(message, "TypeError"):
		return kindTypeError
	case message == "":
		return kindException
	default:
		return kindRuntimeError
	}
}

func suggestionFor(kind string) string {
	switch kind {
	case kindSyntaxError:
		return "Check the script for unbalanced brackets, missing semicolons, or invalid syntax."
	case kindReferenceError:
		return "An identifier used in the script was never declared; check for typos or missing context fields."
	case kindTypeError:
		return "An operation was applied to a value of the wrong type; verify the shape of context before using it."
	case kindRuntimeError:
		return "The script raised during evaluation; check the condition that triggered the throw."
	default:
		return "The sandbox reported an exception with no further detail available."
	}
}

// preview renders up to the first 10 lines of source with 1-based line
// numbers (spec §4.3 "script_preview").
func preview(source string) string {
	lines := strings.Split(source, "\n")
	if len(lines) > 10 {
		lines = lines[:10]
	}
	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(": ")
		b.WriteString(line)
	}
	return b.String()
}

// diagnose builds the structured Diagnosis for a failed evaluation. When
// message is empty the engine has nothing more to report than "an
// exception occurred", which is the exception kind with no preview.
func diagnose(source, message string) *monitor.Diagnosis {
	if strings.TrimSpace(message) == "" {
		return &monitor.Diagnosis{
			Kind:    kindException,
			Message: "an exception occurred",
		}
	}
	kind := classify(message)
	d := &monitor.Diagnosis{
		Kind:       kind,
		Message:    message,
		Suggestion: suggestionFor(kind),
	}
	if kind != kindException {
		d.ScriptPreview = preview(source)
	}
	return d
}

func deniedMessage(name string) string {
	return fmt.Sprintf("Access to '%s' is denied for security reasons", name)
}
