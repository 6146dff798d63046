package mos

// Stage is a step of the evaluation pipeline. Stages run once, in order.
type Stage int

const (
	StageLoading Stage = iota
	StageNormalizing
	StageAligning
	StageValidating
	StageScoring
	StageMapping
)

var stageNames = [...]string{
	StageLoading:     "loading",
	StageNormalizing: "normalizing",
	StageAligning:    "aligning",
	StageValidating:  "validating",
	StageScoring:     "scoring",
	StageMapping:     "mapping",
}

func (s Stage) String() string {
	if s >= 0 && int(s) < len(stageNames) {
		return stageNames[s]
	}
	return "unknown"
}
