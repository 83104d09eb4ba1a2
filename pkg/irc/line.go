// Package irc implements the transport and dispatch core of an IRC
// client: one connection per server, a read loop that classifies each
// inbound line as a numeric reply or a textual command, and ordered
// dispatch to externally supplied handlers.
//
// The model is server-authoritative: outgoing operations only transmit
// requests, and no local state changes until a handler acts on the
// server's response line.
package irc

import (
	"strconv"
	"strings"
)

// Kind classifies a protocol line.
type Kind int

const (
	// KindNumeric is a reply whose classifying token is an integer code.
	KindNumeric Kind = iota
	// KindCommand is a textual protocol verb (PING, NOTICE, ...).
	KindCommand
)

// Line is one inbound protocol line together with its classification.
// It is ephemeral: not retained after dispatch.
type Line struct {
	Raw    string
	Tokens []string

	Kind    Kind
	Numeric int    // valid when Kind == KindNumeric
	Command string // valid when Kind == KindCommand
}

// ParseLine tokenizes a raw line on whitespace and classifies it.
// After skipping an optional leading ":"-prefixed origin token, an
// integer token classifies the line as numeric, anything else as a
// command. Classification is total: every line yields exactly one
// kind. An origin-prefixed line with nothing following classifies as
// a command with an empty name, which no reasonable handler matches.
func ParseLine(raw string) Line {
	tokens := strings.Fields(raw)

	var name string
	if len(tokens) > 0 {
		if strings.HasPrefix(tokens[0], ":") {
			if len(tokens) > 1 {
				name = tokens[1]
			}
		} else {
			name = tokens[0]
		}
	}

	if code, err := strconv.Atoi(name); err == nil {
		return Line{
			Raw:     raw,
			Tokens:  tokens,
			Kind:    KindNumeric,
			Numeric: code,
		}
	}

	return Line{
		Raw:     raw,
		Tokens:  tokens,
		Kind:    KindCommand,
		Command: name,
	}
}
