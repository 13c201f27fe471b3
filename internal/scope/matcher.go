// Package scope decides which addresses the discovery process may record.
package scope

import (
	"fmt"
	"net/netip"
	"strings"
)

// Definition types.
const (
	TypeInclude = "include"
	TypeExclude = "exclude"
)

// Definition is one include or exclude entry: a single address, a CIDR
// prefix, or an inclusive "start-end" range.
type Definition struct {
	Definition string
	Type       string
}

type rule struct {
	def    Definition
	prefix netip.Prefix
	start  netip.Addr
	end    netip.Addr
}

func (r rule) contains(addr netip.Addr) bool {
	if r.prefix.IsValid() {
		return r.prefix.Contains(addr)
	}
	return addr.BitLen() == r.start.BitLen() && addr.Compare(r.start) >= 0 && addr.Compare(r.end) <= 0
}

// Matcher evaluates addresses against includes and excludes. Excludes win.
type Matcher struct {
	includes            []rule
	excludes            []rule
	includeAllByDefault bool
}

// NewMatcher compiles definitions. With includeAllByDefault and no include
// rules every address not excluded is in scope.
func NewMatcher(defs []Definition, includeAllByDefault bool) (*Matcher, error) {
	m := &Matcher{includeAllByDefault: includeAllByDefault}
	for _, def := range defs {
		r, err := parseRule(def)
		if err != nil {
			return nil, err
		}
		switch def.Type {
		case TypeInclude:
			m.includes = append(m.includes, r)
		case TypeExclude:
			m.excludes = append(m.excludes, r)
		default:
			return nil, fmt.Errorf("scope definition %q: unknown type %q", def.Definition, def.Type)
		}
	}
	return m, nil
}

// FromLists builds definitions from plain include and exclude lists.
func FromLists(includes, excludes []string) []Definition {
	defs := make([]Definition, 0, len(includes)+len(excludes))
	for _, s := range includes {
		defs = append(defs, Definition{Definition: s, Type: TypeInclude})
	}
	for _, s := range excludes {
		defs = append(defs, Definition{Definition: s, Type: TypeExclude})
	}
	return defs
}

// Validate reports whether a single definition string parses.
func Validate(definition string) error {
	_, err := parseRule(Definition{Definition: definition, Type: TypeInclude})
	return err
}

// InScope reports whether ip is in scope. An unparsable ip is an error.
func (m *Matcher) InScope(ip string) (bool, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return false, fmt.Errorf("parse address %q: %w", ip, err)
	}
	addr = addr.Unmap()

	for _, r := range m.excludes {
		if r.contains(addr) {
			return false, nil
		}
	}
	if len(m.includes) == 0 {
		return m.includeAllByDefault, nil
	}
	for _, r := range m.includes {
		if r.contains(addr) {
			return true, nil
		}
	}
	return false, nil
}

func parseRule(def Definition) (rule, error) {
	text := strings.TrimSpace(def.Definition)
	r := rule{def: def}

	if strings.Contains(text, "/") {
		prefix, err := netip.ParsePrefix(text)
		if err != nil {
			return rule{}, fmt.Errorf("scope definition %q: %w", text, err)
		}
		r.prefix = prefix.Masked()
		return r, nil
	}

	if startText, endText, ok := strings.Cut(text, "-"); ok {
		start, err := netip.ParseAddr(strings.TrimSpace(startText))
		if err != nil {
			return rule{}, fmt.Errorf("scope definition %q: %w", text, err)
		}
		end, err := netip.ParseAddr(strings.TrimSpace(endText))
		if err != nil {
			return rule{}, fmt.Errorf("scope definition %q: %w", text, err)
		}
		if start.BitLen() != end.BitLen() || end.Less(start) {
			return rule{}, fmt.Errorf("scope definition %q: invalid range", text)
		}
		r.start, r.end = start.Unmap(), end.Unmap()
		return r, nil
	}

	addr, err := netip.ParseAddr(text)
	if err != nil {
		return rule{}, fmt.Errorf("scope definition %q: %w", text, err)
	}
	r.start, r.end = addr.Unmap(), addr.Unmap()
	return r, nil
}
