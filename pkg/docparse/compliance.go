package docparse

import "regexp"

type regulation struct {
	name    string
	pattern *regexp.Regexp
}

var regulations = []regulation{
	{"GDPR", regexp.MustCompile(`(?i)\bGDPR\b`)},
	{"FDA", regexp.MustCompile(`(?i)\bFDA\b`)},
	{"HIPAA", regexp.MustCompile(`(?i)\bHIPAA\b`)},
	{"CCPA", regexp.MustCompile(`(?i)\b(?:CCPA|California Consumer Privacy Act)\b`)},
}

// ComplianceMentions returns each regulation named in text, in a fixed
// order, matched whole-word and case-insensitively.
func ComplianceMentions(text string) []string {
	mentions := make([]string, 0, len(regulations))
	for _, r := range regulations {
		if r.pattern.MatchString(text) {
			mentions = append(mentions, r.name)
		}
	}
	return mentions
}
