// Package token parses the value tokens accepted in component settings.
//
// A setting value is one of:
//
//	$c{capability}   every registered component implementing the named capability
//	$s{text}         the literal text, never treated as a component name
//	anything else    a literal value or component name
package token

import "strings"

// Kind identifies how a raw setting value should be expanded.
type Kind int

const (
	// Literal is a plain value or component name.
	Literal Kind = iota

	// Components expands to the names of all components implementing a capability.
	Components

	// String is an escaped literal.
	String
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case Literal:
		return "Literal"
	case Components:
		return "Components"
	case String:
		return "String"
	default:
		return "Unknown"
	}
}

const (
	componentsPrefix = "$c{"
	stringPrefix     = "$s{"
	suffix           = "}"
)

// Token is a parsed setting value.
type Token struct {
	Kind  Kind
	Value string
}

// Parse classifies a raw setting value.
func Parse(raw string) Token {
	trimmed := strings.TrimSpace(raw)
	if inner, ok := unwrap(trimmed, componentsPrefix); ok {
		return Token{Kind: Components, Value: strings.TrimSpace(inner)}
	}

	if inner, ok := unwrap(trimmed, stringPrefix); ok {
		return Token{Kind: String, Value: inner}
	}

	return Token{Kind: Literal, Value: raw}
}

// IsToken reports whether raw is a $c{} or $s{} token.
func IsToken(raw string) bool {
	return Parse(raw).Kind != Literal
}

// ComponentsOf returns the $c{} token for the given capability name.
func ComponentsOf(capability string) string {
	return componentsPrefix + capability + suffix
}

func unwrap(s, prefix string) (string, bool) {
	if len(s) < len(prefix)+len(suffix) {
		return "", false
	}

	if !strings.HasPrefix(s, prefix) || !strings.HasSuffix(s, suffix) {
		return "", false
	}

	return s[len(prefix) : len(s)-len(suffix)], true
}
