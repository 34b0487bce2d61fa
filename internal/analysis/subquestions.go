package analysis

import "strings"

// minFragmentLen is the shortest fragment kept by the splitter.
const minFragmentLen = 4

// SplitSubQuestions decomposes a compound question into its ordered
// sub-questions. Splitters are tried in order: comma, semicolon, " and ",
// multiple question marks. Fragments shorter than four characters are
// dropped and every fragment gets a trailing question mark. The function
// is total: it always returns at least one entry.
func SplitSubQuestions(query string) []string {
	q := strings.TrimSpace(query)
	if q == "" {
		return []string{"?"}
	}

	var fragments []string
	switch {
	case strings.Contains(q, ","):
		fragments = strings.Split(q, ",")
	case strings.Contains(q, ";"):
		fragments = strings.Split(q, ";")
	case strings.Contains(q, " and "):
		fragments = strings.Split(q, " and ")
	case strings.Count(q, "?") > 1:
		fragments = strings.Split(q, "?")
	default:
		fragments = []string{q}
	}

	out := make([]string, 0, len(fragments))
	for _, frag := range fragments {
		frag = strings.TrimSpace(frag)
		if len(frag) < minFragmentLen {
			continue
		}
		if !strings.HasSuffix(frag, "?") {
			frag += "?"
		}
		out = append(out, frag)
	}

	if len(out) == 0 {
		if !strings.HasSuffix(q, "?") {
			q += "?"
		}
		return []string{q}
	}

	return out
}
