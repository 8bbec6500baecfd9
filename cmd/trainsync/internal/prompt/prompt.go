// Package prompt wraps huh forms for the few interactive inputs the CLI needs.
package prompt

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
)

// ErrNonInteractive is returned when a value is missing and prompting is disabled.
var ErrNonInteractive = errors.New("input required but prompts are disabled")

// Field describes one input.
type Field struct {
	Title       string
	Placeholder string
	Default     string
	Secret      bool
	Required    bool
}

// String prompts for a single value.
func String(f Field) (string, error) {
	value := f.Default
	input := huh.NewInput().
		Title(f.Title).
		Placeholder(f.Placeholder).
		Value(&value)
	if f.Secret {
		input = input.EchoMode(huh.EchoModePassword)
	}
	if f.Required {
		input = input.Validate(func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("%s is required", strings.ToLower(f.Title))
			}
			return nil
		})
	}

	if err := huh.NewForm(huh.NewGroup(input)).Run(); err != nil {
		return "", fmt.Errorf("prompt failed: %w", err)
	}
	return strings.TrimSpace(value), nil
}

// Confirm asks a yes/no question.
func Confirm(title string, def bool) (bool, error) {
	confirmed := def
	field := huh.NewConfirm().Title(title).Value(&confirmed)
	if err := huh.NewForm(huh.NewGroup(field)).Run(); err != nil {
		return false, fmt.Errorf("prompt failed: %w", err)
	}
	return confirmed, nil
}

// Fill returns current when set, otherwise prompts for it unless
// nonInteractive is true.
func Fill(current string, nonInteractive bool, f Field) (string, error) {
	if strings.TrimSpace(current) != "" {
		return strings.TrimSpace(current), nil
	}
	if nonInteractive || !IsTerminal(os.Stdin) {
		if f.Required {
			return "", fmt.Errorf("%w: %s", ErrNonInteractive, strings.ToLower(f.Title))
		}
		return f.Default, nil
	}
	return String(f)
}

// IsTerminal reports whether f is a character device.
func IsTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
