package serpent

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nerdpudding/factorio-llm/pkg/domain"
)

// Decode parses one console reply into a Value. A blank reply decodes as an
// empty sequence, so "nothing found" stays distinguishable from a channel
// failure, which never reaches the decoder.
func Decode(raw string) (Value, error) {
	src := strings.TrimSpace(raw)
	if src == "" {
		return Seq(), nil
	}

	p := &parser{src: src}
	v, err := p.value()
	if err != nil {
		return Value{}, &domain.DecodeError{Raw: raw, Reason: err.Error()}
	}

	// Some command chains echo sibling table blocks back to back. Fold
	// them into one sequence instead of rejecting the reply.
	if v.kind == KindMapping || v.kind == KindSequence {
		siblings := []Value{v}
		for {
			p.space()
			if p.done() {
				break
			}
			if p.peek() == ',' {
				p.pos++
				p.space()
			}
			if p.done() || p.peek() != '{' {
				break
			}
			next, err := p.value()
			if err != nil {
				return Value{}, &domain.DecodeError{Raw: raw, Reason: err.Error()}
			}
			siblings = append(siblings, next)
		}
		if len(siblings) > 1 {
			v = Seq(siblings...)
		}
	}

	p.space()
	if !p.done() {
		return Value{}, &domain.DecodeError{Raw: raw, Reason: fmt.Sprintf("trailing data at offset %d", p.pos)}
	}
	return v, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) done() bool { return p.pos >= len(p.src) }

func (p *parser) peek() byte { return p.src[p.pos] }

func (p *parser) space() {
	for !p.done() {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) value() (Value, error) {
	p.space()
	if p.done() {
		return Value{}, fmt.Errorf("unexpected end of input at offset %d", p.pos)
	}
	switch c := p.peek(); {
	case c == '{':
		return p.table()
	case c == '"' || c == '\'':
		s, err := p.quoted()
		if err != nil {
			return Value{}, err
		}
		return Str(s), nil
	case c == '-' || c == '+' || (c >= '0' && c <= '9'):
		return p.number()
	case isIdentStart(c):
		return p.bareword(), nil
	default:
		return Value{}, fmt.Errorf("unexpected character %q at offset %d", c, p.pos)
	}
}

func (p *parser) table() (Value, error) {
	open := p.pos
	p.pos++
	var positional []Value
	var fields []Field
	for {
		p.space()
		if p.done() {
			return Value{}, fmt.Errorf("unterminated table opened at offset %d", open)
		}
		if p.peek() == '}' {
			p.pos++
			break
		}

		key, keyed, err := p.entryKey()
		if err != nil {
			return Value{}, err
		}
		val, err := p.value()
		if err != nil {
			return Value{}, err
		}
		if keyed {
			fields = append(fields, Field{Key: key, Val: val})
		} else {
			positional = append(positional, val)
		}

		p.space()
		if p.done() {
			return Value{}, fmt.Errorf("unterminated table opened at offset %d", open)
		}
		switch p.peek() {
		case ',', ';':
			p.pos++
		case '}':
		default:
			return Value{}, fmt.Errorf("expected ',' or '}' at offset %d", p.pos)
		}
	}

	// A table with no keyed entries is a sequence; an empty table decodes
	// as an empty sequence as well. Mixed tables keep their array part
	// under stringified one-based indices, matching the Lua layout.
	if len(fields) == 0 {
		return Seq(positional...), nil
	}
	v := Value{kind: KindMapping, keys: []string{}, rec: map[string]Value{}}
	for i, item := range positional {
		v.put(strconv.Itoa(i+1), item)
	}
	for _, f := range fields {
		v.put(f.Key, f.Val)
	}
	return v, nil
}

// entryKey reports whether the next table entry is keyed. When it is, the
// key and its '=' are consumed; otherwise the position is left untouched so
// value() re-reads the token as a positional element.
func (p *parser) entryKey() (string, bool, error) {
	start := p.pos
	c := p.peek()

	if c == '[' {
		p.pos++
		p.space()
		lit, err := p.value()
		if err != nil {
			return "", false, err
		}
		var key string
		switch lit.kind {
		case KindString:
			key = lit.str
		case KindNumber:
			key = strconv.FormatFloat(lit.num, 'f', -1, 64)
		case KindBool:
			key = strconv.FormatBool(lit.b)
		default:
			return "", false, fmt.Errorf("unsupported table key at offset %d", start)
		}
		p.space()
		if p.done() || p.peek() != ']' {
			return "", false, fmt.Errorf("expected ']' at offset %d", p.pos)
		}
		p.pos++
		p.space()
		if p.done() || p.peek() != '=' {
			return "", false, fmt.Errorf("expected '=' at offset %d", p.pos)
		}
		p.pos++
		return key, true, nil
	}

	if isIdentStart(c) {
		word := p.scanIdent()
		p.space()
		if !p.done() && p.peek() == '=' {
			p.pos++
			return word, true, nil
		}
		p.pos = start
	}
	return "", false, nil
}

func (p *parser) quoted() (string, error) {
	quote := p.src[p.pos]
	start := p.pos
	p.pos++
	var b strings.Builder
	for !p.done() {
		c := p.src[p.pos]
		switch c {
		case quote:
			p.pos++
			return b.String(), nil
		case '\\':
			p.pos++
			if p.done() {
				return "", fmt.Errorf("unterminated string opened at offset %d", start)
			}
			e := p.src[p.pos]
			switch {
			case e == 'n':
				b.WriteByte('\n')
				p.pos++
			case e == 't':
				b.WriteByte('\t')
				p.pos++
			case e == 'r':
				b.WriteByte('\r')
				p.pos++
			case e == 'a':
				b.WriteByte(7)
				p.pos++
			case e == 'b':
				b.WriteByte(8)
				p.pos++
			case e == 'v':
				b.WriteByte(11)
				p.pos++
			case e == 'f':
				b.WriteByte(12)
				p.pos++
			case e >= '0' && e <= '9':
				// Lua decimal escape, up to three digits.
				code := 0
				for n := 0; n < 3 && !p.done() && p.src[p.pos] >= '0' && p.src[p.pos] <= '9'; n++ {
					code = code*10 + int(p.src[p.pos]-'0')
					p.pos++
				}
				if code > 255 {
					return "", fmt.Errorf("escape out of range ending at offset %d", p.pos)
				}
				b.WriteByte(byte(code))
			default:
				b.WriteByte(e)
				p.pos++
			}
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
	return "", fmt.Errorf("unterminated string opened at offset %d", start)
}

func (p *parser) number() (Value, error) {
	start := p.pos
	if c := p.peek(); c == '-' || c == '+' {
		p.pos++
		// Signed barewords like -inf come back from arithmetic overflow.
		if !p.done() && isIdentStart(p.peek()) {
			word := p.scanIdent()
			return Str(p.src[start:start+1] + word), nil
		}
	}
	for !p.done() {
		c := p.src[p.pos]
		if (c >= '0' && c <= '9') || c == '.' {
			p.pos++
			continue
		}
		if c == 'e' || c == 'E' {
			save := p.pos
			p.pos++
			if !p.done() && (p.peek() == '-' || p.peek() == '+') {
				p.pos++
			}
			if p.done() || p.peek() < '0' || p.peek() > '9' {
				p.pos = save
				break
			}
			continue
		}
		break
	}
	text := p.src[start:p.pos]
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Value{}, fmt.Errorf("bad number %q at offset %d", text, start)
	}
	return Number(f), nil
}

func (p *parser) bareword() Value {
	switch word := p.scanIdent(); word {
	case "true":
		return Boolean(true)
	case "false":
		return Boolean(false)
	case "nil":
		return Value{}
	default:
		return Str(word)
	}
}

func (p *parser) scanIdent() string {
	start := p.pos
	for !p.done() && isIdentChar(p.src[p.pos]) {
		p.pos++
	}
	return p.src[start:p.pos]
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || c == '.' || (c >= '0' && c <= '9')
}
