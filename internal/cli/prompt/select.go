package prompt

import "github.com/manifoldco/promptui"

// SelectOption is one entry in a selection list.
type SelectOption struct {
	Label       string
	Value       string
	Description string
}

// Select asks the user to pick one option from the list and returns its
// Value. Lists whose first option carries a Description render a detail
// pane under the cursor.
func Select(label string, options []SelectOption) (string, error) {
	tpl := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "> {{ .Label | cyan }}",
		Inactive: "  {{ .Label | white }}",
		Selected: "* {{ .Label | green }}",
	}
	if len(options) > 0 && options[0].Description != "" {
		tpl.Details = "\n{{ \"Description:\" | faint }}\t{{ .Description }}"
	}

	sel := promptui.Select{
		Label:     label,
		Items:     options,
		Templates: tpl,
		Size:      10,
	}

	i, _, err := sel.Run()
	if err != nil {
		return "", wrapErr(err)
	}
	return options[i].Value, nil
}
