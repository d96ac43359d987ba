// Package prompts holds the instructions and output specifications sent to
// the generative model at each pipeline stage.
package prompts

import (
	"fmt"
	"strings"
)

// Compose builds a prompt from the stage instructions, its output
// specification, and the input content under analysis.
func Compose(stage Stage, content string) (string, error) {
	instructions, err := Instructions(stage)
	if err != nil {
		return "", fmt.Errorf("load instructions for %s: %w", stage, err)
	}

	spec, err := Spec(stage)
	if err != nil {
		return "", fmt.Errorf("load spec for %s: %w", stage, err)
	}

	var sb strings.Builder
	sb.WriteString(instructions)
	sb.WriteString("\n\n")
	sb.WriteString(spec)
	sb.WriteString("\n\nInput content:\n\n")
	sb.WriteString(content)

	return sb.String(), nil
}
