package types

import (
	"strings"
)

// NormalizeVendorName maps a user-supplied vendor filter to the stored form:
// spaces stripped, lowercased.
func NormalizeVendorName(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", ""))
}

// NormalizeProductName maps a user-supplied product filter to the stored
// form: spaces become underscores, lowercased. The asymmetry with vendors is
// kept on purpose so existing links do not break.
func NormalizeProductName(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", "_"))
}

// HumanName renders a stored vendor or product name for display,
// e.g. "palo_alto" -> "Palo Alto".
func HumanName(name string) string {
	words := strings.Split(name, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
