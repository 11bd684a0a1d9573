package generator

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// DiffType classifies a single localized edit
type DiffType string

const (
	DiffAdd     DiffType = "add"
	DiffRemove  DiffType = "remove"
	DiffReplace DiffType = "replace"
	DiffModify  DiffType = "modify"
)

// CodeDiff is one localized edit to existing source. Exactly one anchoring
// strategy is used: a text searchPattern or start/end line positions.
type CodeDiff struct {
	Type          DiffType `json:"type"`
	SearchPattern string   `json:"searchPattern,omitempty"`
	StartLine     int      `json:"startLine,omitempty"` // 1-based
	EndLine       int      `json:"endLine,omitempty"`   // 1-based, inclusive
	Content       string   `json:"content,omitempty"`
	Description   string   `json:"description"`
}

// Valid checks the per-type anchoring invariants
func (d *CodeDiff) Valid() bool {
	switch d.Type {
	case DiffAdd, DiffRemove, DiffReplace, DiffModify:
	default:
		return false
	}
	if d.Description == "" {
		return false
	}
	if d.Type != DiffRemove && d.Content == "" {
		return false
	}

	hasPattern := d.SearchPattern != ""
	hasRange := d.StartLine > 0 && d.EndLine >= d.StartLine

	switch d.Type {
	case DiffRemove:
		return hasPattern || hasRange
	case DiffModify:
		return hasPattern
	case DiffReplace:
		return hasPattern || hasRange
	default: // add: anchor optional, appends at file end when absent
		return true
	}
}

// iterationKeywords signal an edit request rather than a new app
var iterationKeywords = []string{
	"change", "modify", "fix", "update", "adjust", "tweak", "edit",
	"add ", "remove", "delete", "replace", "rename", "make the",
	"make it", "instead", "bigger", "smaller", "darker", "lighter",
	"different color", "improve", "refactor",
}

// IsIterationRequest reports whether the prompt is an edit to existing code.
// Without existing code there is nothing to iterate on.
func IsIterationRequest(prompt, existingCode string) bool {
	if existingCode == "" {
		return false
	}
	p := strings.ToLower(prompt)
	for _, kw := range iterationKeywords {
		if strings.Contains(p, kw) {
			return true
		}
	}
	return false
}

var identifierRe = regexp.MustCompile(`\b[A-Z][a-zA-Z0-9]{2,}\b`)

var (
	uiKeywords    = []string{"button", "header", "footer", "form", "input", "nav", "card", "title", "modal", "sidebar", "menu", "image", "link"}
	styleKeywords = []string{"color", "colour", "style", "background", "font", "size", "spacing", "margin", "padding", "theme", "border", "shadow", "round"}
	funcKeywords  = []string{"api", "fetch", "submit", "handler", "state", "click", "save", "load", "validate", "count", "sort", "filter"}
)

// identifySections scans the prompt for edit targets: identifiers shared
// with the existing code, UI elements, style concerns, and functionality
// concerns. Confidence is additive per matched category, capped at 1.
func identifySections(prompt, existingCode string) ([]string, float64) {
	p := strings.ToLower(prompt)
	seen := map[string]bool{}
	var sections []string
	confidence := 0.0

	add := func(tag string) {
		if !seen[tag] {
			seen[tag] = true
			sections = append(sections, tag)
		}
	}

	matched := false
	for _, ident := range identifierRe.FindAllString(prompt, -1) {
		if strings.Contains(existingCode, ident) {
			add(ident)
			matched = true
		}
	}
	if matched {
		confidence += 0.4
	}

	matched = false
	for _, kw := range uiKeywords {
		if strings.Contains(p, kw) {
			add(kw)
			matched = true
		}
	}
	if matched {
		confidence += 0.25
	}

	matched = false
	for _, kw := range styleKeywords {
		if strings.Contains(p, kw) {
			add("style:" + kw)
			matched = true
			break
		}
	}
	if matched {
		confidence += 0.2
	}

	matched = false
	for _, kw := range funcKeywords {
		if strings.Contains(p, kw) {
			add("logic:" + kw)
			matched = true
			break
		}
	}
	if matched {
		confidence += 0.15
	}

	if confidence > 1 {
		confidence = 1
	}
	return sections, confidence
}

// parseDiffs extracts the first JSON-array-shaped substring from the raw
// backend response and keeps only well-formed diffs. Zero valid diffs is a
// fallback trigger, not an error.
func parseDiffs(raw string) []CodeDiff {
	arr := firstJSONArray(raw)
	if arr == "" {
		return nil
	}

	var candidates []CodeDiff
	if err := json.Unmarshal([]byte(arr), &candidates); err != nil {
		return nil
	}

	var diffs []CodeDiff
	for _, d := range candidates {
		if d.Valid() {
			diffs = append(diffs, d)
		}
	}
	return diffs
}

// firstJSONArray finds the first balanced top-level JSON array in text,
// respecting string literals and escapes
func firstJSONArray(s string) string {
	start := strings.IndexByte(s, '[')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// topLevelDeclRe matches a column-zero declaration that terminates a modify
// block scan
var topLevelDeclRe = regexp.MustCompile(`^(func|function|const|class|def|export|var|let|import)\b`)

// ApplyDiffs applies each diff to the source, best-effort. Line-anchored
// diffs are applied from the bottom up so earlier offsets are not shifted by
// later mutations. A failed diff is recorded and skipped, never fatal;
// overall success is an empty error list.
func ApplyDiffs(source string, diffs []CodeDiff) (string, []string) {
	ordered := append([]CodeDiff(nil), diffs...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].StartLine > ordered[j].StartLine
	})

	var errs []string
	for _, d := range ordered {
		next, err := applyDiff(source, d)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s (%s): %v", d.Type, d.Description, err))
			continue
		}
		source = next
	}
	return source, errs
}

func applyDiff(source string, d CodeDiff) (string, error) {
	// Callers may hand-construct diffs, so anchoring invariants are
	// enforced here too, not only at parse time
	if !d.Valid() {
		return "", fmt.Errorf("malformed diff")
	}

	lines := strings.Split(source, "\n")

	switch d.Type {
	case DiffAdd:
		content := strings.Split(d.Content, "\n")
		switch {
		case d.StartLine > 0:
			idx := d.StartLine - 1
			if idx > len(lines) {
				idx = len(lines)
			}
			out := append([]string{}, lines[:idx]...)
			out = append(out, content...)
			out = append(out, lines[idx:]...)
			return strings.Join(out, "\n"), nil
		case d.SearchPattern != "":
			for i, line := range lines {
				if strings.Contains(line, d.SearchPattern) {
					out := append([]string{}, lines[:i+1]...)
					out = append(out, content...)
					out = append(out, lines[i+1:]...)
					return strings.Join(out, "\n"), nil
				}
			}
			return "", fmt.Errorf("pattern %q not found", d.SearchPattern)
		default:
			return source + "\n" + d.Content, nil
		}

	case DiffRemove:
		if d.SearchPattern != "" {
			var out []string
			removed := 0
			for _, line := range lines {
				if strings.Contains(line, d.SearchPattern) {
					removed++
					continue
				}
				out = append(out, line)
			}
			if removed == 0 {
				return "", fmt.Errorf("pattern %q not found", d.SearchPattern)
			}
			return strings.Join(out, "\n"), nil
		}
		if d.EndLine > len(lines) {
			return "", fmt.Errorf("line range %d-%d out of bounds", d.StartLine, d.EndLine)
		}
		out := append([]string{}, lines[:d.StartLine-1]...)
		out = append(out, lines[d.EndLine:]...)
		return strings.Join(out, "\n"), nil

	case DiffReplace:
		if d.SearchPattern != "" {
			if !strings.Contains(source, d.SearchPattern) {
				return "", fmt.Errorf("pattern %q not found", d.SearchPattern)
			}
			return strings.ReplaceAll(source, d.SearchPattern, d.Content), nil
		}
		if d.EndLine > len(lines) {
			return "", fmt.Errorf("line range %d-%d out of bounds", d.StartLine, d.EndLine)
		}
		out := append([]string{}, lines[:d.StartLine-1]...)
		out = append(out, strings.Split(d.Content, "\n")...)
		out = append(out, lines[d.EndLine:]...)
		return strings.Join(out, "\n"), nil

	case DiffModify:
		start := -1
		for i, line := range lines {
			if strings.Contains(line, d.SearchPattern) {
				start = i
				break
			}
		}
		if start < 0 {
			return "", fmt.Errorf("pattern %q not found", d.SearchPattern)
		}
		// Block extends to the next blank line or top-level declaration
		end := len(lines)
		for i := start + 1; i < len(lines); i++ {
			if strings.TrimSpace(lines[i]) == "" || topLevelDeclRe.MatchString(lines[i]) {
				end = i
				break
			}
		}
		out := append([]string{}, lines[:start]...)
		out = append(out, strings.Split(d.Content, "\n")...)
		out = append(out, lines[end:]...)
		return strings.Join(out, "\n"), nil

	default:
		return "", fmt.Errorf("unknown diff type %q", d.Type)
	}
}

// buildDiffPrompt constructs the instruction for the diff-generation request,
// scoped to the identified sections
func buildDiffPrompt(prompt, existingCode string, sections []string) string {
	var b strings.Builder
	b.WriteString("You are modifying existing application code. Respond with ONLY a JSON array of diff objects, no prose.\n")
	b.WriteString("Each object: {\"type\": \"add|remove|replace|modify\", \"searchPattern\": \"...\" or \"startLine\"/\"endLine\", \"content\": \"...\", \"description\": \"...\"}.\n")
	b.WriteString("Keep each diff minimal and precise.\n\n")
	if len(sections) > 0 {
		fmt.Fprintf(&b, "Focus on these sections: %s\n\n", strings.Join(sections, ", "))
	}
	fmt.Fprintf(&b, "Requested change: %s\n\nExisting code:\n%s\n", prompt, existingCode)
	return b.String()
}

// buildRegeneratePrompt is the diff-engine fallback: a full "modify this
// code" request rather than the from-scratch pipeline
func buildRegeneratePrompt(prompt, existingCode string) string {
	return fmt.Sprintf("Modify the following application code as requested. "+
		"Output the complete updated file, nothing else.\n\n"+
		"Request: %s\n\nCurrent code:\n%s\n", prompt, existingCode)
}
