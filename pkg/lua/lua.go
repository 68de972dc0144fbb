// Package lua builds the console command strings the bridge sends to the
// game. Commands are assembled from typed parameters through Quote and the
// number formatters, never by splicing raw text, so an operator-supplied
// value cannot terminate the enclosing literal or append statements.
package lua

import (
	"fmt"
	"strconv"
	"strings"
)

// commandPrefix is the console marker for executing a script chunk.
const commandPrefix = "/c "

// VersionCommand asks the server for its version string. It is a plain
// console command, not a script chunk.
const VersionCommand = "/version"

// Command prefixes a script body with the execute marker.
func Command(body string) string {
	return commandPrefix + body
}

// ScalarQuery wraps expr so the console echoes its printable value on one
// line. Used for counts, booleans, and single numbers or strings.
func ScalarQuery(expr string) string {
	return Command("rcon.print(" + expr + ")")
}

// TableQuery wraps expr in the table serializer so the reply comes back as
// a single line of brace/field syntax.
func TableQuery(expr string) string {
	return Command("rcon.print(serpent.line(" + expr + "))")
}

// Quote returns s as a double-quoted Lua string literal. Backslashes,
// quotes, and control bytes are escaped; control bytes use three-digit
// decimal escapes so a following digit cannot extend them.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\':
			b.WriteString(`\\`)
		case c == '"':
			b.WriteString(`\"`)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\r':
			b.WriteString(`\r`)
		case c == '\t':
			b.WriteString(`\t`)
		case c < 0x20 || c == 0x7f:
			fmt.Fprintf(&b, `\%03d`, c)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// Number formats f in fixed-point notation. Exponent forms are ambiguous
// once embedded in script source.
func Number(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Int formats n in decimal.
func Int(n int) string {
	return strconv.Itoa(n)
}

// Replies matching any of these mean the remote evaluation itself failed.
// The list mirrors the messages the game engine emits for script faults. A
// bare "error" marker would be wrong here: legitimate table replies can
// carry an error field, like the no-resource mining report.
var errorMarkers = []string{
	"cannot execute command",
	"attempt to",
	"expected",
	"syntax error",
}

// IsScriptError reports whether a console reply is a script failure rather
// than a value echo. Matching is case-insensitive substring search.
func IsScriptError(reply string) bool {
	lower := strings.ToLower(reply)
	for _, marker := range errorMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
