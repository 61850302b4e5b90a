package forms

import "strings"

// Required trims s and fails when nothing is left.
func Required(field, s string) (string, error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return "", fieldErr(field, ErrEmpty)
	}
	return t, nil
}
