package prompts

import "errors"

// ErrInvalidStage indicates a stage outside the known set.
var ErrInvalidStage = errors.New("stage must be classify or email")

// Stage identifies the pipeline step a prompt is composed for.
type Stage string

// Valid pipeline stages.
const (
	StageClassify Stage = "classify"
	StageEmail    Stage = "email"
)

// Stages returns the stages that have instructions and an output spec.
func Stages() []Stage {
	return []Stage{StageClassify, StageEmail}
}
