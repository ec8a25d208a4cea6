package tabular

import "strings"

// SplitMulti splits a multi-valued cell on commas and semicolons into
// trimmed, non-empty sub-values. Separators enclosed in parentheses are part
// of the sub-value: "Health (child, adult), Education" splits into two
// values, not three. The scan tracks nesting depth and tolerates unbalanced
// input — an unmatched opening parenthesis simply keeps the rest of the cell
// together, and a stray closing one is kept verbatim.
func SplitMulti(value string) []string {
	if value == "" {
		return nil
	}

	var result []string
	var buffer strings.Builder
	depth := 0

	flush := func() {
		if trimmed := strings.TrimSpace(buffer.String()); trimmed != "" {
			result = append(result, trimmed)
		}
		buffer.Reset()
	}

	for _, char := range value {
		switch {
		case char == '(':
			depth++
			buffer.WriteRune(char)
		case char == ')' && depth > 0:
			depth--
			buffer.WriteRune(char)
		case (char == ',' || char == ';') && depth == 0:
			flush()
		default:
			buffer.WriteRune(char)
		}
	}
	flush()

	return result
}
