package todo

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ParseDraft reads one line of text into a Draft. A trailing "(#1, #2)"
// suffix becomes the prerequisite set, keeping only ids that lookup knows.
// If no id survives, the suffix stays part of the description.
// The bool is false for blank input.
func ParseDraft(text string, lookup Lookup) (Draft, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Draft{}, false
	}

	literal := Draft{Description: text, DependsOn: []int{}}
	if !strings.HasSuffix(text, ")") {
		return literal, true
	}

	open := strings.LastIndexByte(text[:len(text)-1], '(')
	if open < 0 {
		return literal, true
	}

	deps := parseRefs(text[open+1:len(text)-1], lookup)
	if len(deps) == 0 {
		return literal, true
	}

	desc := trimOneTrailingSpace(text[:open])
	if strings.TrimSpace(desc) == "" {
		return literal, true
	}
	return Draft{Description: desc, DependsOn: deps}, true
}

// parseRefs returns the existing ids named by a comma separated "#n" list,
// deduplicated in first-seen order.
func parseRefs(list string, lookup Lookup) []int {
	seen := make(map[int]struct{})
	ids := make([]int, 0)
	for _, tok := range strings.Split(list, ",") {
		tok = strings.TrimSpace(tok)
		if !strings.HasPrefix(tok, "#") {
			continue
		}
		id, err := strconv.Atoi(tok[1:])
		if err != nil {
			continue
		}
		if lookup == nil || !lookup.Exists(id) {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

func trimOneTrailingSpace(s string) string {
	r, size := utf8.DecodeLastRuneInString(s)
	if size > 0 && unicode.IsSpace(r) {
		return s[:len(s)-size]
	}
	return s
}
