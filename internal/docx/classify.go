package docx

import "strings"

// LineKind is the block type a line of generated text maps to.
type LineKind int

const (
	LineBlank LineKind = iota
	LineHeading1
	LineHeading2
	LineBody
)

func (k LineKind) String() string {
	switch k {
	case LineBlank:
		return "blank"
	case LineHeading1:
		return "heading1"
	case LineHeading2:
		return "heading2"
	default:
		return "body"
	}
}

// HeadingMarker prefixes heading lines; repeated once for level 2.
const HeadingMarker = '#'

var headingRules = []struct {
	prefix string
	kind   LineKind
}{
	{prefix: strings.Repeat(string(HeadingMarker), 2) + " ", kind: LineHeading2},
	{prefix: string(HeadingMarker) + " ", kind: LineHeading1},
}

// ClassifyLine maps one line to its block kind and the text to render.
// Surrounding whitespace is ignored. Three or more markers are body text.
func ClassifyLine(line string) (LineKind, string) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return LineBlank, ""
	}
	for _, rule := range headingRules {
		if strings.HasPrefix(trimmed, rule.prefix) {
			if text := strings.TrimSpace(trimmed[len(rule.prefix):]); text != "" {
				return rule.kind, text
			}
		}
	}
	return LineBody, trimmed
}
