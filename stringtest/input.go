package stringtest

import "strings"

// Input dedents a multi-line string written as an indented raw string
// literal in test source, so fixture bodies can be indented to match
// surrounding code without that indentation becoming part of the value
// under test.
//
// It strips at most one leading and one trailing newline (so a fixture can
// start and end on their own lines inside the literal), then removes the
// longest common leading whitespace prefix shared by every non-blank line.
// Blank (or whitespace-only) lines are preserved as empty lines and never
// participate in the common-prefix calculation.
func Input(s string) string {
	s = strings.TrimPrefix(s, "\n")
	s = strings.TrimSuffix(s, "\n")

	lines := strings.Split(s, "\n")

	indent := -1

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}

		n := leadingWhitespace(line)
		if indent == -1 || n < indent {
			indent = n
		}
	}

	if indent < 0 {
		indent = 0
	}

	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			lines[i] = ""

			continue
		}

		if len(line) >= indent {
			lines[i] = line[indent:]
		}
	}

	return strings.Join(lines, "\n")
}

func leadingWhitespace(s string) int {
	n := 0
	for n < len(s) && (s[n] == ' ' || s[n] == '\t') {
		n++
	}

	return n
}
