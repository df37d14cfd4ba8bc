package dto

// StageCount pairs a funnel stage with its client count, in funnel order.
type StageCount struct {
	Stage string `json:"stage"`
	Count int    `json:"count"`
}

// DashboardResponse summarizes the viewer's pipeline.
type DashboardResponse struct {
	TotalClients        int              `json:"total_clients"`
	StageCounts         []StageCount     `json:"stage_counts"`
	ContractsClosedYear int              `json:"contracts_closed_year"`
	Year                int              `json:"year"`
	InactivePreview     []ClientResponse `json:"inactive_preview"`
}
