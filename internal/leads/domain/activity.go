package domain

// Activity log actions.
const (
	ActionLeadCreated         = "lead_created"
	ActionLeadUpdated         = "lead_updated"
	ActionLeadDeleted         = "lead_deleted"
	ActionScoreUpdated        = "score_updated"
	ActionStageChanged        = "stage_changed"
	ActionLeadsMerged         = "leads_merged"
	ActionLeadAssigned        = "lead_assigned"
	ActionLeadConverted       = "lead_converted"
	ActionFollowUpLogged      = "follow_up_logged"
	ActionFollowUpCompleted   = "follow_up_completed"
	ActionNoteAdded           = "note_added"
	ActionCallLogged          = "call_logged"
	ActionDistributionToggled = "distribution_toggled"
)

// Activity log entity types.
const (
	EntityLead         = "lead"
	EntityDistribution = "distribution"
)

// ActorSystem attributes entries written by jobs and automation.
const ActorSystem = "system"
