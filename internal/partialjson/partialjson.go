// Package partialjson parses JSON that may be truncated at any byte, as
// happens when decoding a token stream incrementally. Unterminated objects,
// arrays, and strings yield whatever content is complete so far instead of an
// error; dangling keys and half-written literals are discarded. Definite
// malformations (a token that could never become valid JSON) still fail.
package partialjson

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
)

// ErrEmpty is returned when the input holds no parseable value at all.
var ErrEmpty = errors.New("partialjson: no value")

// noValue marks a position where a value was started but nothing usable
// exists yet (e.g. the input ends inside "tru").
type noValue struct{}

// Parse decodes s tolerantly. Values decode to map[string]any, []any, string,
// float64, bool, and nil, mirroring encoding/json's generic decoding.
func Parse(s string) (any, error) {
	p := &parser{s: s}
	p.skipSpace()
	if p.eof() {
		return nil, ErrEmpty
	}
	v, err := p.value()
	if err != nil {
		return nil, err
	}
	if _, ok := v.(noValue); ok {
		return nil, ErrEmpty
	}
	return v, nil
}

type parser struct {
	s string
	i int
}

func (p *parser) eof() bool { return p.i >= len(p.s) }

func (p *parser) skipSpace() {
	for !p.eof() {
		switch p.s[p.i] {
		case ' ', '\t', '\n', '\r':
			p.i++
		default:
			return
		}
	}
}

func (p *parser) value() (any, error) {
	p.skipSpace()
	if p.eof() {
		return noValue{}, nil
	}
	switch c := p.s[p.i]; {
	case c == '{':
		return p.object()
	case c == '[':
		return p.array()
	case c == '"':
		v, _ := p.str()
		return v, nil
	case c == 't':
		return p.literal("true", true)
	case c == 'f':
		return p.literal("false", false)
	case c == 'n':
		return p.literal("null", nil)
	case c == '-' || (c >= '0' && c <= '9'):
		return p.number()
	default:
		return nil, fmt.Errorf("partialjson: unexpected character %q at offset %d", c, p.i)
	}
}

// object parses from '{'. On truncation it returns the pairs completed so
// far; a pair whose key or value never materialized is dropped.
func (p *parser) object() (any, error) {
	p.i++ // '{'
	obj := map[string]any{}
	for {
		p.skipSpace()
		if p.eof() {
			return obj, nil
		}
		if p.s[p.i] == '}' {
			p.i++
			return obj, nil
		}
		if p.s[p.i] != '"' {
			return nil, fmt.Errorf("partialjson: expected object key at offset %d", p.i)
		}
		key, complete := p.str()
		if !complete {
			return obj, nil
		}
		p.skipSpace()
		if p.eof() {
			return obj, nil
		}
		if p.s[p.i] != ':' {
			return nil, fmt.Errorf("partialjson: expected ':' at offset %d", p.i)
		}
		p.i++
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		if _, none := v.(noValue); !none {
			obj[key] = v
		}
		p.skipSpace()
		if p.eof() {
			return obj, nil
		}
		switch p.s[p.i] {
		case ',':
			p.i++
		case '}':
			p.i++
			return obj, nil
		default:
			return nil, fmt.Errorf("partialjson: expected ',' or '}' at offset %d", p.i)
		}
	}
}

func (p *parser) array() (any, error) {
	p.i++ // '['
	arr := []any{}
	for {
		p.skipSpace()
		if p.eof() {
			return arr, nil
		}
		if p.s[p.i] == ']' {
			p.i++
			return arr, nil
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		if _, none := v.(noValue); none {
			return arr, nil
		}
		arr = append(arr, v)
		p.skipSpace()
		if p.eof() {
			return arr, nil
		}
		switch p.s[p.i] {
		case ',':
			p.i++
		case ']':
			p.i++
			return arr, nil
		default:
			return nil, fmt.Errorf("partialjson: expected ',' or ']' at offset %d", p.i)
		}
	}
}

// str parses from '"'. complete is false when the closing quote never
// arrives; the content decoded so far is still returned, since a partially
// streamed string value is useful to callers that tolerate it.
func (p *parser) str() (value string, complete bool) {
	p.i++ // opening '"'
	var b strings.Builder
	for !p.eof() {
		c := p.s[p.i]
		switch c {
		case '"':
			p.i++
			return b.String(), true
		case '\\':
			if p.i+1 >= len(p.s) {
				// Dangling escape at end of stream.
				return b.String(), false
			}
			p.i++
			switch e := p.s[p.i]; e {
			case '"', '\\', '/':
				b.WriteByte(e)
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case 'b':
				b.WriteByte('\b')
			case 'f':
				b.WriteByte('\f')
			case 'u':
				if p.i+4 >= len(p.s) {
					return b.String(), false
				}
				n, err := strconv.ParseUint(p.s[p.i+1:p.i+5], 16, 32)
				if err == nil {
					b.WriteRune(decodeRune(rune(n)))
				}
				p.i += 4
			}
			p.i++
		default:
			b.WriteByte(c)
			p.i++
		}
	}
	return b.String(), false
}

func decodeRune(r rune) rune {
	if utf16.IsSurrogate(r) {
		return '�'
	}
	return r
}

func (p *parser) literal(word string, v any) (any, error) {
	rest := p.s[p.i:]
	if strings.HasPrefix(rest, word) {
		p.i += len(word)
		return v, nil
	}
	// A strict prefix of the literal at end of input is just truncation.
	if strings.HasPrefix(word, rest) {
		p.i = len(p.s)
		return noValue{}, nil
	}
	return nil, fmt.Errorf("partialjson: invalid literal at offset %d", p.i)
}

func (p *parser) number() (any, error) {
	start := p.i
	for !p.eof() {
		c := p.s[p.i]
		if c == '-' || c == '+' || c == '.' || c == 'e' || c == 'E' || (c >= '0' && c <= '9') {
			p.i++
			continue
		}
		break
	}
	tok := p.s[start:p.i]
	// A truncated stream can end mid-number ("12.", "1e"); trim back to the
	// longest parseable prefix instead of failing.
	for len(tok) > 0 {
		if f, err := strconv.ParseFloat(tok, 64); err == nil {
			return f, nil
		}
		tok = tok[:len(tok)-1]
	}
	return noValue{}, nil
}
