package parser

import (
	"regexp"
	"strings"
)

// Cleaning rules applied by RuleCleaner, selectable by tag. Without tags
// every rule runs.
const (
	RuleWhitespace = "whitespace"
	RuleComments   = "comments"
	RuleArtifacts  = "artifacts"
)

var (
	htmlCommentRe   = regexp.MustCompile(`(?s)<!--.*?-->`)
	pageArtifactRe  = regexp.MustCompile(`(?m)^[ \t]*(?:Page[ \t]+\d+(?:[ \t]+of[ \t]+\d+)?|\d+[ \t]*/[ \t]*\d+)[ \t]*\n?`)
	blankRunRe      = regexp.MustCompile(`\n{3,}`)
	trailingSpaceRe = regexp.MustCompile(`(?m)[ \t]+$`)
)

// RuleCleaner normalizes converted Markdown with deterministic rules:
// whitespace normalization, HTML comment removal and stripping of page
// artifacts left over from PDF conversion.
type RuleCleaner struct{}

// Clean applies the selected rules. Unknown tags are ignored, so callers
// can mix cleaner rule tags with unrelated file tags.
func (RuleCleaner) Clean(content string, tags []string) (string, error) {
	run := func(rule string) bool {
		if len(tags) == 0 {
			return true
		}
		for _, t := range tags {
			if t == rule {
				return true
			}
		}
		return false
	}

	out := strings.ReplaceAll(content, "\r\n", "\n")

	if run(RuleComments) {
		out = htmlCommentRe.ReplaceAllString(out, "")
	}
	if run(RuleArtifacts) {
		out = pageArtifactRe.ReplaceAllString(out, "")
		// Soft hyphens survive PDF extraction as invisible breaks.
		out = strings.ReplaceAll(out, "­", "")
	}
	if run(RuleWhitespace) {
		out = trailingSpaceRe.ReplaceAllString(out, "")
		out = blankRunRe.ReplaceAllString(out, "\n\n")
		out = strings.TrimLeft(out, "\n")
		out = strings.TrimRight(out, "\n") + "\n"
		if strings.TrimSpace(out) == "" {
			out = ""
		}
	}

	return out, nil
}
