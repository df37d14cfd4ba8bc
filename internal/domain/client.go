package domain

import "time"

// FunnelStage enumerates pipeline stages in funnel order, terminal last.
type FunnelStage string

const (
	StageContact   FunnelStage = "CONTACT"
	StageDiagnosis FunnelStage = "DIAGNOSIS"
	StageScheduled FunnelStage = "SCHEDULED"
	StageVisited   FunnelStage = "VISITED"
	StageProposal  FunnelStage = "PROPOSAL"
	StageContract  FunnelStage = "CONTRACT"
)

// FunnelStages returns every stage in display order.
func FunnelStages() []FunnelStage {
	return []FunnelStage{
		StageContact,
		StageDiagnosis,
		StageScheduled,
		StageVisited,
		StageProposal,
		StageContract,
	}
}

// ParseFunnelStage validates an externally supplied stage value.
func ParseFunnelStage(value string) (FunnelStage, bool) {
	switch FunnelStage(value) {
	case StageContact, StageDiagnosis, StageScheduled, StageVisited, StageProposal, StageContract:
		return FunnelStage(value), true
	default:
		return "", false
	}
}

// Client is a prospect moving through the sales funnel. UserID references the
// owning agent; managers and directors only ever view, never own.
type Client struct {
	ID                   string
	FullName             string
	Phone                *string
	Email                *string
	FunnelStatus         FunnelStage
	Notes                *string
	UserID               string
	PropertyOfInterestID *string
	ClosedAt             *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}
