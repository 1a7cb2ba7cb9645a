package hotkey

import (
	"fmt"
	"strings"
)

// Manager defines the interface for global hotkey management
type Manager interface {
	Register(accel string, callback func(pressed bool)) error
	Unregister(accel string) error
	Close() error
}

// Modifier keys, named the same on every platform.
const (
	ModCtrl  = "Ctrl"
	ModAlt   = "Alt"
	ModShift = "Shift"
	ModSuper = "Super"
)

// Accelerator is a parsed hotkey such as "Ctrl+Alt+R".
type Accelerator struct {
	Modifiers []string
	Key       string
}

// Has reports whether mod is part of the accelerator.
func (a Accelerator) Has(mod string) bool {
	for _, m := range a.Modifiers {
		if m == mod {
			return true
		}
	}
	return false
}

// Parse reads an accelerator of the form "Mod+Mod+Key". Modifier names are
// case-insensitive and accept the macOS spellings (Option, Cmd). Single
// character keys are upper-cased; named keys keep their capitalized form.
func Parse(accel string) (Accelerator, error) {
	parts := strings.Split(accel, "+")
	if len(parts) == 0 || strings.TrimSpace(accel) == "" {
		return Accelerator{}, fmt.Errorf("empty hotkey")
	}

	var a Accelerator
	seen := map[string]bool{}
	for _, p := range parts[:len(parts)-1] {
		mod, ok := modifierName(strings.TrimSpace(p))
		if !ok {
			return Accelerator{}, fmt.Errorf("unknown modifier %q in hotkey %q", p, accel)
		}
		if !seen[mod] {
			seen[mod] = true
			a.Modifiers = append(a.Modifiers, mod)
		}
	}

	key := strings.TrimSpace(parts[len(parts)-1])
	if key == "" {
		return Accelerator{}, fmt.Errorf("missing key in hotkey %q", accel)
	}
	if _, ok := modifierName(key); ok {
		return Accelerator{}, fmt.Errorf("hotkey %q has no key besides modifiers", accel)
	}
	if len(key) == 1 {
		a.Key = strings.ToUpper(key)
	} else {
		a.Key = strings.ToUpper(key[:1]) + strings.ToLower(key[1:])
	}
	return a, nil
}

func modifierName(s string) (string, bool) {
	switch strings.ToLower(s) {
	case "ctrl", "control":
		return ModCtrl, true
	case "alt", "option", "opt":
		return ModAlt, true
	case "shift":
		return ModShift, true
	case "super", "cmd", "command", "meta", "win":
		return ModSuper, true
	}
	return "", false
}
