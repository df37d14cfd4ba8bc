// Package funnel maintains the client pipeline state machine and its derived
// aggregates. The kanban board allows dropping a card on any column, so every
// stage may move to every other stage; only unknown stage values are rejected.
package funnel

import (
	"sort"
	"time"

	"github.com/spec-kit/realty-crm/internal/domain"
	"github.com/spec-kit/realty-crm/pkg/util"
)

// Transition applies a stage change to a copy of the client. UpdatedAt is
// always refreshed, even when the stage is unchanged. Entering CONTRACT stamps
// ClosedAt, leaving it clears ClosedAt again.
func Transition(client domain.Client, stage domain.FunnelStage, now time.Time) (domain.Client, error) {
	if _, ok := domain.ParseFunnelStage(string(stage)); !ok {
		return client, util.NewInvalidStage(string(stage))
	}

	// UpdatedAt must move strictly forward even with coarse clocks.
	if !now.After(client.UpdatedAt) {
		now = client.UpdatedAt.Add(time.Nanosecond)
	}

	if stage == domain.StageContract {
		if client.FunnelStatus != domain.StageContract || client.ClosedAt == nil {
			closedAt := now
			client.ClosedAt = &closedAt
		}
	} else {
		client.ClosedAt = nil
	}

	client.FunnelStatus = stage
	client.UpdatedAt = now
	return client, nil
}

// StageCounts tallies clients per stage. Every stage appears in the result,
// stages without clients report zero.
func StageCounts(clients []domain.Client) map[domain.FunnelStage]int {
	counts := make(map[domain.FunnelStage]int, len(domain.FunnelStages()))
	for _, stage := range domain.FunnelStages() {
		counts[stage] = 0
	}
	for _, c := range clients {
		if _, ok := counts[c.FunnelStatus]; ok {
			counts[c.FunnelStatus]++
		}
	}
	return counts
}

// ContractsClosedInYear counts contract clients closed in the given year.
// Clients persisted before ClosedAt existed fall back to UpdatedAt, which
// approximates the close year by the last touch.
func ContractsClosedInYear(clients []domain.Client, year int) int {
	count := 0
	for _, c := range clients {
		if c.FunnelStatus != domain.StageContract {
			continue
		}
		closedAt := c.UpdatedAt
		if c.ClosedAt != nil {
			closedAt = *c.ClosedAt
		}
		if closedAt.Year() == year {
			count++
		}
	}
	return count
}

// InactiveClients returns non-contract clients untouched for longer than the
// threshold, oldest-stalled first. Ties keep input order.
func InactiveClients(clients []domain.Client, now time.Time, threshold time.Duration) []domain.Client {
	cutoff := now.Add(-threshold)
	out := make([]domain.Client, 0, len(clients))
	for _, c := range clients {
		if c.FunnelStatus == domain.StageContract {
			continue
		}
		if c.UpdatedAt.Before(cutoff) {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.Before(out[j].UpdatedAt)
	})
	return out
}

// InactivePreview bounds the inactive listing for dashboard display.
func InactivePreview(clients []domain.Client, now time.Time, threshold time.Duration, limit int) []domain.Client {
	inactive := InactiveClients(clients, now, threshold)
	if limit > 0 && len(inactive) > limit {
		inactive = inactive[:limit]
	}
	return inactive
}
