package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ucpCodePattern matches a prefix followed by a zero-padded number,
// e.g. UCP000123
var ucpCodePattern = regexp.MustCompile(`^([A-Z]+)(\d{6,})$`)

// FormatUcpCode renders a sequence number as a Ucp code, zero-padded to six
// digits. Numbers above 999999 keep all their digits.
func FormatUcpCode(prefix string, n int64) string {
	return fmt.Sprintf("%s%06d", prefix, n)
}

// ParseUcpCode splits a Ucp code into prefix and sequence number.
func ParseUcpCode(code string) (prefix string, n int64, err error) {
	m := ucpCodePattern.FindStringSubmatch(strings.TrimSpace(code))
	if m == nil {
		return "", 0, fmt.Errorf("invalid ucp code %q", code)
	}
	n, err = strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("invalid ucp code %q: %w", code, err)
	}
	return m[1], n, nil
}
