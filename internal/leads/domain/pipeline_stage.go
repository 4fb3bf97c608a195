package domain

// Pipeline stages in funnel order.
const (
	PipelineStageNewLead      = "new_lead"
	PipelineStageContacted    = "contacted"
	PipelineStageQualified    = "qualified"
	PipelineStageProposalSent = "proposal_sent"
	PipelineStageNegotiation  = "negotiation"
	PipelineStageWon          = "won"
	PipelineStageLost         = "lost"
)

// PipelineStages lists every stage in Kanban column order.
var PipelineStages = []string{
	PipelineStageNewLead,
	PipelineStageContacted,
	PipelineStageQualified,
	PipelineStageProposalSent,
	PipelineStageNegotiation,
	PipelineStageWon,
	PipelineStageLost,
}

var knownPipelineStages = func() map[string]int {
	m := make(map[string]int, len(PipelineStages))
	for i, s := range PipelineStages {
		m[s] = i
	}
	return m
}()

// IsKnownPipelineStage reports whether stage is one of the enumerated stages.
func IsKnownPipelineStage(stage string) bool {
	_, ok := knownPipelineStages[stage]
	return ok
}

// PipelineStageOrder returns the funnel position of stage, or -1.
func PipelineStageOrder(stage string) int {
	if i, ok := knownPipelineStages[stage]; ok {
		return i
	}
	return -1
}

// IsTerminalPipelineStage returns true for won and lost.
func IsTerminalPipelineStage(stage string) bool {
	return stage == PipelineStageWon || stage == PipelineStageLost
}
