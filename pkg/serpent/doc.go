/*
Package serpent decodes the single-line table syntax the game's console
echoes for structured queries (the output of serpent.line on the Lua side).

Replies are parsed with a small recursive-descent parser into a tagged
Value: scalars, ordered records, sequences, or Absent. Projection into
domain records happens through defaulting accessors, so a field the remote
encoder omitted never fails the whole decode.

The parser is deliberately tolerant of whitespace and field order but
strict about structure: a reply that does not parse as value syntax at all
is reported as a domain.DecodeError carrying the raw text.
*/
package serpent
