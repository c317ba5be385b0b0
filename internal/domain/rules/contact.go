package rules

import "strings"

// WhatsAppLink builds a wa.me link from a free-form phone number.
func WhatsAppLink(phone string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
	if digits == "" {
		return ""
	}
	return "https://wa.me/" + digits
}
