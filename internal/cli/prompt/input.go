package prompt

import (
	"errors"
	"strconv"

	"github.com/manifoldco/promptui"
)

// Input asks for one line of free text, offering fallback as the default.
func Input(label, fallback string) (string, error) {
	return run(promptui.Prompt{Label: label, Default: fallback})
}

// InputValidated asks for text that must pass validate before it is
// accepted.
func InputValidated(label, fallback string, validate func(string) error) (string, error) {
	return run(promptui.Prompt{Label: label, Default: fallback, Validate: validate})
}

// InputPort asks for a TCP port, rejecting anything outside 1-65535.
func InputPort(label string, fallback int) (int, error) {
	answer, err := run(promptui.Prompt{
		Label:    label,
		Default:  strconv.Itoa(fallback),
		Validate: validatePort,
	})
	if err != nil {
		return 0, err
	}
	port, _ := strconv.Atoi(answer)
	return port, nil
}

func run(p promptui.Prompt) (string, error) {
	answer, err := p.Run()
	return answer, wrapErr(err)
}

func validatePort(s string) error {
	port, err := strconv.Atoi(s)
	if err != nil || port < 1 || port > 65535 {
		return errors.New("port must be between 1 and 65535")
	}
	return nil
}
