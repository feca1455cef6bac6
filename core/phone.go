package core

import "strings"

// NormalizePhone canonicalizes a raw phone string into the domestic
// 0-prefixed mobile format (e.g. "09123456789"). Accepted spellings of the
// same subscriber all normalize identically:
//
//	+98 912 345 6789 -> 09123456789
//	00989123456789   -> 09123456789
//	09123456789      -> 09123456789
//	9123456789       -> 09123456789
//
// The function is idempotent and has no side effects. Anything else is
// rejected with KindInvalidPhone.
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case len(digits) == 12 && strings.HasPrefix(digits, "989"):
		return "0" + digits[2:], nil
	case len(digits) == 14 && strings.HasPrefix(digits, "00989"):
		return "0" + digits[4:], nil
	case len(digits) == 11 && strings.HasPrefix(digits, "09"):
		return digits, nil
	case len(digits) == 10 && strings.HasPrefix(digits, "9"):
		return "0" + digits, nil
	}
	return "", NewError(KindInvalidPhone)
}
