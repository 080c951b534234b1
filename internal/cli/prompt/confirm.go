package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
)

// Confirm asks label as a yes/no question. Plain Enter picks the default
// and a "n" answer comes back as false, nil.
func Confirm(label string, defaultYes bool) (bool, error) {
	hint, fallback := "y/N", ""
	if defaultYes {
		hint, fallback = "Y/n", "y"
	}

	p := promptui.Prompt{
		Label:     fmt.Sprintf("%s [%s]", label, hint),
		IsConfirm: true,
		Default:   fallback,
	}

	answer, err := p.Run()
	switch {
	case errors.Is(err, promptui.ErrAbort):
		// promptui signals a negative answer as an error
		return false, nil
	case errors.Is(err, promptui.ErrInterrupt):
		return false, ErrAborted
	case err != nil:
		return false, err
	}

	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes", nil
}

// ConfirmWithForce skips the prompt and answers yes when force is set.
func ConfirmWithForce(label string, force bool) (bool, error) {
	if force {
		return true, nil
	}
	return Confirm(label, false)
}
