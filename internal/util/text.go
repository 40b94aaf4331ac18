package util

import "strings"

var keyReplacer = strings.NewReplacer("-", "", "_", "", " ", "")

// Normalize lowercases the input and strips hyphen, underscore and
// space, so "A-100", "a_100" and "a 100" all compare as "a100".
// Applying it twice yields the same result as applying it once.
func Normalize(input string) string {
	return keyReplacer.Replace(strings.ToLower(input))
}

// Tokenize splits the input into maximal runs of ASCII alphanumeric
// characters; every other character is a separator.
func Tokenize(input string) []string {
	out := []string{}
	start := -1
	for i := 0; i < len(input); i++ {
		if isAlnum(input[i]) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			out = append(out, input[start:i])
			start = -1
		}
	}
	if start >= 0 {
		out = append(out, input[start:])
	}
	return out
}

func isAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func StringPtr(v string) *string { return &v }

func FloatPtr(v float64) *float64 { return &v }
