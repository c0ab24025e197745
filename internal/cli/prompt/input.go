// Package prompt provides interactive terminal prompts for CLI commands.
package prompt

import (
	"errors"

	"github.com/manifoldco/promptui"
)

// ErrAborted is returned when the user abandons a prompt with Ctrl+C or
// Ctrl+D.
var ErrAborted = errors.New("aborted")

// IsAborted reports whether the error means the user abandoned the
// prompt rather than answered it.
func IsAborted(err error) bool {
	return errors.Is(err, promptui.ErrInterrupt) ||
		errors.Is(err, promptui.ErrAbort) ||
		errors.Is(err, promptui.ErrEOF) ||
		errors.Is(err, ErrAborted)
}

// wrapError converts promptui interrupt/abort/EOF errors to ErrAborted
// for consistent handling.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if IsAborted(err) {
		return ErrAborted
	}
	return err
}

// Input prompts for one line of text. The default value is used when
// the user just presses Enter.
func Input(label string, defaultValue string) (string, error) {
	p := promptui.Prompt{
		Label:   label,
		Default: defaultValue,
	}

	result, err := p.Run()
	return result, wrapError(err)
}

// Line prompts for one line of raw input rendered as a bare
// "<label> " prompt, the shape a command loop wants. Unlike Input it
// applies no styling and accepts empty lines.
func Line(label string) (string, error) {
	p := promptui.Prompt{
		Label: label,
		Templates: &promptui.PromptTemplates{
			Prompt:  "{{ . }} ",
			Valid:   "{{ . }} ",
			Invalid: "{{ . }} ",
			Success: "{{ . }} ",
		},
	}

	result, err := p.Run()
	return result, wrapError(err)
}
