package classify

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	emailPattern      = regexp.MustCompile(`(?is)Subject:.*?\n|From:.*?\n|To:.*?\n|Dear\s+\w+`)
	documentPattern   = regexp.MustCompile(`(?i)\b(?:invoice|bill|document|policy|regulation)\b`)
	pdfMentionPattern = regexp.MustCompile(`(?i)\b(?:PDF|PDF document|document analysis)\b`)
)

// Heuristic infers a classification without the model. Intent is always
// IntentUnknown.
func Heuristic(in Input) Classification {
	format := heuristicFormat(in)
	return Classification{
		Format:      format,
		Intent:      IntentUnknown,
		RoutedAgent: AgentFor(format),
	}
}

func heuristicFormat(in Input) Format {
	if in.IsStructured || in.Structured != nil {
		return FormatJSON
	}

	if f := formatFromName(in.Filename); f != FormatUnknown {
		return f
	}

	if emailPattern.MatchString(in.Text) {
		return FormatEmail
	}

	if documentPattern.MatchString(in.Text) && pdfMentionPattern.MatchString(in.Text) {
		return FormatPDF
	}

	return formatFromName(strings.TrimSpace(in.Text))
}

func formatFromName(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return FormatPDF
	case ".eml", ".msg":
		return FormatEmail
	default:
		return FormatUnknown
	}
}
