package email

const (
	subjectLeadAssignedFmt      = "New lead assigned: %s"
	subjectFollowUpScheduledFmt = "Follow-up scheduled with %s"
)
