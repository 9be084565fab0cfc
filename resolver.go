package unify

import "strings"

// nameResolver maps requested names to canonical component names. It is
// built during startup and read-only afterwards.
type nameResolver struct {
	// overrides maps customized names (name_suffix) to the base name they replaced.
	overrides map[string]string
	aliases   map[string]string
	known     map[string]bool
}

func newNameResolver(aliases map[string]string) *nameResolver {
	return &nameResolver{
		overrides: make(map[string]string),
		aliases:   aliases,
		known:     make(map[string]bool),
	}
}

// resolve returns the canonical name: override map first, then the
// component table, then aliases.
func (r *nameResolver) resolve(name string) (string, bool) {
	if base, ok := r.overrides[name]; ok {
		return base, true
	}

	if r.known[name] {
		return name, true
	}

	if target, ok := r.aliases[name]; ok {
		if base, ok := r.overrides[target]; ok {
			return base, true
		}
		if r.known[target] {
			return target, true
		}
	}

	return "", false
}

// applyCustomizations moves every descriptor named <base>_<suffix> onto
// <base>. Suffixes are applied last to first so that earlier suffixes take
// precedence. The replaced descriptor keeps the base name's registration
// position when one exists.
func applyCustomizations(descriptors []*Descriptor, suffixes []string, overrides map[string]string) []*Descriptor {
	if len(suffixes) == 0 {
		return descriptors
	}

	out := append([]*Descriptor(nil), descriptors...)
	for i := len(suffixes) - 1; i >= 0; i-- {
		tail := "_" + strings.TrimSpace(suffixes[i])
		if tail == "_" {
			continue
		}

		var customized []*Descriptor
		kept := out[:0:0]
		for _, d := range out {
			if strings.HasSuffix(d.Name, tail) && len(d.Name) > len(tail) {
				customized = append(customized, d)
				continue
			}
			kept = append(kept, d)
		}

		for _, d := range customized {
			original := d.Name
			base := strings.TrimSuffix(original, tail)

			moved := d.clone()
			moved.Name = base

			replaced := false
			for j, k := range kept {
				if k.Name == base {
					kept[j] = moved
					replaced = true
					break
				}
			}
			if !replaced {
				kept = append(kept, moved)
			}

			overrides[original] = base
		}

		out = kept
	}

	return out
}

// trail is the chain of components being initialized by one top-level
// request. It replaces goroutine-local state: nested resolutions receive
// the trail explicitly.
type trail struct {
	entries []trailEntry
}

type trailEntry struct {
	name   string
	holder *instanceHolder
}

func (t *trail) push(name string, h *instanceHolder) {
	t.entries = append(t.entries, trailEntry{name: name, holder: h})
}

func (t *trail) pop() {
	t.entries = t.entries[:len(t.entries)-1]
}

func (t *trail) find(name string) *instanceHolder {
	for i := len(t.entries) - 1; i >= 0; i-- {
		if t.entries[i].name == name {
			return t.entries[i].holder
		}
	}
	return nil
}

func (t *trail) names() []string {
	names := make([]string, len(t.entries))
	for i, e := range t.entries {
		names[i] = e.name
	}
	return names
}
