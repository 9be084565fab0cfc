// Package upl parses view descriptors.
//
// A descriptor names a component and lists its attributes:
//
//	!ui-textfield key:userName caption:'User Name' maxLen:32
//
// Values containing spaces are single quoted; a doubled quote inside a
// quoted value stands for one quote.
package upl

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// ErrEmptyDescriptor is returned for a blank descriptor.
var ErrEmptyDescriptor = errors.New("empty view descriptor")

// KeyAttribute is the attribute that names a compiled view for later lookup.
const KeyAttribute = "key"

// SyntaxError reports a malformed descriptor.
type SyntaxError struct {
	Descriptor string
	Pos        int
	Msg        string
}

func (e SyntaxError) Error() string {
	return fmt.Sprintf("view descriptor %q: %s at offset %d", e.Descriptor, e.Msg, e.Pos)
}

// Element is a parsed descriptor.
type Element struct {
	Component  string
	Attributes map[string]string
}

// Key returns the element's key attribute, or its component name.
func (e *Element) Key() string {
	if k, ok := e.Attributes[KeyAttribute]; ok && k != "" {
		return k
	}
	return e.Component
}

// String formats the element back into canonical descriptor form with
// attributes in name order.
func (e *Element) String() string {
	var b strings.Builder
	b.WriteByte('!')
	b.WriteString(e.Component)

	names := make([]string, 0, len(e.Attributes))
	for name := range e.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		b.WriteByte(' ')
		b.WriteString(name)
		b.WriteByte(':')
		b.WriteString(quote(e.Attributes[name]))
	}
	return b.String()
}

// Parse parses a descriptor.
func Parse(descriptor string) (*Element, error) {
	p := &parser{src: descriptor}
	p.skipSpace()
	if p.done() {
		return nil, ErrEmptyDescriptor
	}

	if p.peek() != '!' {
		return nil, p.errorf("expected '!'")
	}
	p.pos++

	component := p.word()
	if component == "" {
		return nil, p.errorf("expected component name")
	}

	el := &Element{Component: component, Attributes: make(map[string]string)}
	for {
		p.skipSpace()
		if p.done() {
			return el, nil
		}

		start := p.pos
		name := p.name()
		if name == "" {
			return nil, p.errorf("expected attribute name")
		}
		if p.done() || p.peek() != ':' {
			return nil, p.errorf("expected ':' after attribute %q", name)
		}
		p.pos++

		value, err := p.value()
		if err != nil {
			return nil, err
		}

		if _, dup := el.Attributes[name]; dup {
			p.pos = start
			return nil, p.errorf("duplicate attribute %q", name)
		}
		el.Attributes[name] = value
	}
}

type parser struct {
	src string
	pos int
}

func (p *parser) done() bool { return p.pos >= len(p.src) }

func (p *parser) peek() byte { return p.src[p.pos] }

func (p *parser) errorf(format string, args ...any) error {
	return SyntaxError{Descriptor: p.src, Pos: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) skipSpace() {
	for !p.done() && unicode.IsSpace(rune(p.peek())) {
		p.pos++
	}
}

// word reads up to the next space.
func (p *parser) word() string {
	start := p.pos
	for !p.done() && !unicode.IsSpace(rune(p.peek())) {
		p.pos++
	}
	return p.src[start:p.pos]
}

// name reads an attribute name.
func (p *parser) name() string {
	start := p.pos
	for !p.done() {
		c := p.peek()
		if c == ':' || unicode.IsSpace(rune(c)) {
			break
		}
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *parser) value() (string, error) {
	if p.done() || p.peek() != '\'' {
		return p.word(), nil
	}

	p.pos++
	var b strings.Builder
	for !p.done() {
		c := p.peek()
		p.pos++
		if c != '\'' {
			b.WriteByte(c)
			continue
		}
		if !p.done() && p.peek() == '\'' {
			b.WriteByte('\'')
			p.pos++
			continue
		}
		return b.String(), nil
	}
	return "", p.errorf("unterminated quoted value")
}

func quote(v string) string {
	if v != "" && !strings.ContainsAny(v, " \t\n'") {
		return v
	}
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}
