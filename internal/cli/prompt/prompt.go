// Package prompt wraps promptui with the interactions the guided setup
// needs: confirmations, validated text input and list selection. All
// prompts report Ctrl+C as ErrAborted so callers can exit quietly.
package prompt

import (
	"errors"

	"github.com/manifoldco/promptui"
)

// ErrAborted reports that the user backed out of a prompt with Ctrl+C.
var ErrAborted = errors.New("aborted")

// IsAborted reports whether err means the user backed out.
func IsAborted(err error) bool {
	return errors.Is(err, ErrAborted) ||
		errors.Is(err, promptui.ErrInterrupt) ||
		errors.Is(err, promptui.ErrAbort)
}

// wrapErr folds promptui's interrupt and abort errors into ErrAborted.
func wrapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case IsAborted(err):
		return ErrAborted
	}
	return err
}
