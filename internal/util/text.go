package util

import (
	"regexp"
	"strings"
)

var (
	reSlugNonAllowed = regexp.MustCompile(`[^a-z0-9]+`)
	reSheetInvalid   = regexp.MustCompile(`[\[\]:*?/\\]`)
	reSpaces         = regexp.MustCompile(`\s+`)
)

const maxSheetNameLen = 31

// CleanField trims whitespace and surrounding double quotes.
func CleanField(input string) string {
	s := strings.TrimSpace(input)
	s = strings.Trim(s, `"`)
	return strings.TrimSpace(s)
}

func Slugify(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	s = reSlugNonAllowed.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// StripCodeFence removes a surrounding markdown code fence such as ```json ... ```.
func StripCodeFence(content string) string {
	s := strings.TrimSpace(content)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func SheetName(input string) string {
	s := reSheetInvalid.ReplaceAllString(input, " ")
	s = strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
	s = strings.Trim(s, "'")
	if s == "" {
		s = "Sheet"
	}
	r := []rune(s)
	if len(r) > maxSheetNameLen {
		s = strings.TrimSpace(string(r[:maxSheetNameLen]))
	}
	return s
}

func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// LongestLine returns the rune length of the longest line in s.
func LongestLine(s string) int {
	longest := 0
	for _, line := range strings.Split(s, "\n") {
		if n := len([]rune(line)); n > longest {
			longest = n
		}
	}
	return longest
}
