// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package notify

import (
	"errors"
	"strings"
)

// ErrInvalidPhone reports a number that cannot be normalized to the
// Ugandan international format the gateway expects.
var ErrInvalidPhone = errors.New("notify: invalid phone number")

// NormalizePhone converts a phone number to gateway format.
//
// Description:
//
//	Strips everything except digits and a leading plus, then maps
//	"+2567...", "2567..." and local "07..." forms to "2567...". The
//	gateway takes the country code without the plus.
//
// Outputs:
//
//	string - The normalized number, digits only.
//	error - ErrInvalidPhone when the number fits no known form.
func NormalizePhone(phone string) (string, error) {
	var b strings.Builder
	for i, c := range phone {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
		} else if c == '+' && i == 0 {
			b.WriteRune(c)
		}
	}
	cleaned := b.String()

	switch {
	case strings.HasPrefix(cleaned, "+256"):
		return cleaned[1:], nil
	case strings.HasPrefix(cleaned, "256"):
		return cleaned, nil
	case strings.HasPrefix(cleaned, "0") && len(cleaned) > 1:
		return "256" + cleaned[1:], nil
	default:
		return "", ErrInvalidPhone
	}
}
