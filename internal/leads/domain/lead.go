// Package domain provides core business vocabulary for the leads bounded context.
package domain

// Lead statuses.
const (
	LeadStatusNew           = "new"
	LeadStatusInterested    = "interested"
	LeadStatusFollowUp      = "follow_up"
	LeadStatusConverted     = "converted"
	LeadStatusNotInterested = "not_interested"
)

var knownStatuses = map[string]bool{
	LeadStatusNew:           true,
	LeadStatusInterested:    true,
	LeadStatusFollowUp:      true,
	LeadStatusConverted:     true,
	LeadStatusNotInterested: true,
}

// IsKnownStatus reports whether status is an enumerated lead status.
func IsKnownStatus(status string) bool { return knownStatuses[status] }

// Lead sources.
const (
	SourceWebsite   = "website"
	SourceFacebook  = "facebook"
	SourceGoogle    = "google"
	SourceInstagram = "instagram"
	SourceReferral  = "referral"
	SourceWalkIn    = "walk_in"
	SourceOther     = "other"
)

var knownSources = map[string]bool{
	SourceWebsite:   true,
	SourceFacebook:  true,
	SourceGoogle:    true,
	SourceInstagram: true,
	SourceReferral:  true,
	SourceWalkIn:    true,
	SourceOther:     true,
}

// IsKnownSource reports whether source is an enumerated lead source.
func IsKnownSource(source string) bool { return knownSources[source] }

// Declared interest levels. The empty string means unset.
const (
	InterestUnset  = ""
	InterestLow    = "low"
	InterestMedium = "medium"
	InterestHigh   = "high"
)

// IsKnownInterest reports whether level is an interest level or unset.
func IsKnownInterest(level string) bool {
	switch level {
	case InterestUnset, InterestLow, InterestMedium, InterestHigh:
		return true
	}
	return false
}

// Temperature tiers derived from the score.
const (
	TemperatureHot  = "hot"
	TemperatureWarm = "warm"
	TemperatureCold = "cold"
)

// Tier boundaries.
const (
	HotThreshold  = 70
	WarmThreshold = 40
)

// TemperatureFor maps a clamped score to its tier.
func TemperatureFor(score int) string {
	switch {
	case score >= HotThreshold:
		return TemperatureHot
	case score >= WarmThreshold:
		return TemperatureWarm
	default:
		return TemperatureCold
	}
}

// Note types.
const (
	NoteTypeNote     = "note"
	NoteTypeCall     = "call"
	NoteTypeWhatsApp = "whatsapp"
	NoteTypeEmail    = "email"
	NoteTypeSystem   = "system"
)

var knownNoteTypes = map[string]bool{
	NoteTypeNote:     true,
	NoteTypeCall:     true,
	NoteTypeWhatsApp: true,
	NoteTypeEmail:    true,
	NoteTypeSystem:   true,
}

// IsKnownNoteType reports whether t is an enumerated note type.
func IsKnownNoteType(t string) bool { return knownNoteTypes[t] }

// MergedNotePrefix marks notes copied from a merged duplicate.
const MergedNotePrefix = "[Merged] "

// User roles.
const (
	RoleAdmin  = "admin"
	RoleSales  = "sales"
	RoleClient = "client"
)

// Distribution methods.
const DistributionRoundRobin = "round_robin"

// Contact fields guarded for uniqueness.
const (
	FieldMobile = "mobile"
	FieldEmail  = "email"
)
