package markdownify

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	fenceMarker     = "```"
	lineNumbersFlag = "showLineNumbers"
)

// markerFormat is a LiaScript editor marker spanning whole rows:
// start row, start column, end row, end column, colour, marker type.
const markerFormat = `<!-- data-marker="%d 0 %d 80 yellow fullLine" -->`

type fence struct {
	line        string
	markers     []string
	unsupported string
}

// sanitizeFence reduces an opening fence to "```lang". Highlighted line
// ranges given with showLineNumbers become marker comments; any other
// annotation is returned in unsupported.
func sanitizeFence(line string) fence {
	rest := line[len(fenceMarker):]
	idx := strings.IndexAny(rest, " \t")
	if idx < 0 {
		return fence{line: line}
	}
	lang := rest[:idx]
	flags := strings.TrimSpace(rest[idx:])
	f := fence{line: fenceMarker + lang}
	if flags == "" {
		return f
	}

	pos := strings.Index(flags, lineNumbersFlag)
	if pos < 0 {
		f.unsupported = flags
		return f
	}
	remaining := strings.TrimSpace(flags[:pos] + flags[pos+len(lineNumbersFlag):])
	if remaining == "" {
		return f
	}

	ranges, ok := parseRanges(remaining)
	if !ok {
		f.unsupported = flags
		return f
	}
	for _, r := range ranges {
		f.markers = append(f.markers, fmt.Sprintf(markerFormat, r[0]-1, r[1]-1))
	}
	return f
}

// parseRanges parses "{1,3-5}" or "[1,3-5]" into inclusive 1-based ranges.
func parseRanges(s string) ([][2]int, bool) {
	if len(s) < 2 {
		return nil, false
	}
	switch {
	case s[0] == '{' && s[len(s)-1] == '}':
	case s[0] == '[' && s[len(s)-1] == ']':
	default:
		return nil, false
	}

	var out [][2]int
	for _, part := range strings.Split(s[1:len(s)-1], ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		start, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil || start < 1 {
			return nil, false
		}
		end := start
		if isRange {
			end, err = strconv.Atoi(strings.TrimSpace(hi))
			if err != nil || end < start {
				return nil, false
			}
		}
		out = append(out, [2]int{start, end})
	}
	return out, len(out) > 0
}
