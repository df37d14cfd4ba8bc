package funnel

import (
	"errors"
	"testing"
	"time"

	"github.com/spec-kit/realty-crm/internal/domain"
	"github.com/spec-kit/realty-crm/pkg/util"
)

var t0 = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

func client(stage domain.FunnelStage, updatedAt time.Time) domain.Client {
	return domain.Client{ID: "c1", FullName: "Prospect", UserID: "a1", FunnelStatus: stage, UpdatedAt: updatedAt}
}

func TestTransitionAppliesStage(t *testing.T) {
	for _, target := range domain.FunnelStages() {
		got, err := Transition(client(domain.StageContact, t0), target, t0.Add(time.Minute))
		if err != nil {
			t.Fatalf("transition to %s: %v", target, err)
		}
		if got.FunnelStatus != target {
			t.Fatalf("expected stage %s, got %s", target, got.FunnelStatus)
		}
		if !got.UpdatedAt.After(t0) {
			t.Fatalf("UpdatedAt must be strictly newer after moving to %s", target)
		}
	}
}

func TestTransitionBackwardIsAllowed(t *testing.T) {
	got, err := Transition(client(domain.StageContract, t0), domain.StageContact, t0.Add(time.Minute))
	if err != nil {
		t.Fatalf("backward move rejected: %v", err)
	}
	if got.FunnelStatus != domain.StageContact {
		t.Fatalf("expected CONTACT, got %s", got.FunnelStatus)
	}
	if got.ClosedAt != nil {
		t.Fatal("leaving CONTRACT must clear ClosedAt")
	}
}

func TestTransitionNoOpRefreshesUpdatedAt(t *testing.T) {
	got, err := Transition(client(domain.StageProposal, t0), domain.StageProposal, t0.Add(time.Second))
	if err != nil {
		t.Fatalf("no-op transition: %v", err)
	}
	if got.FunnelStatus != domain.StageProposal {
		t.Fatalf("stage changed on no-op: %s", got.FunnelStatus)
	}
	if !got.UpdatedAt.After(t0) {
		t.Fatal("no-op transition must still refresh UpdatedAt")
	}
}

func TestTransitionStaleClockStillMovesForward(t *testing.T) {
	got, err := Transition(client(domain.StageContact, t0), domain.StageVisited, t0)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if !got.UpdatedAt.After(t0) {
		t.Fatal("UpdatedAt must be strictly newer even when now equals the previous timestamp")
	}
}

func TestTransitionUnknownStage(t *testing.T) {
	original := client(domain.StageContact, t0)
	got, err := Transition(original, domain.FunnelStage("NotAStage"), t0.Add(time.Minute))
	if err == nil {
		t.Fatal("expected error for unknown stage")
	}
	var domainErr *util.DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "INVALID_STAGE" {
		t.Fatalf("expected INVALID_STAGE, got %v", err)
	}
	if got.FunnelStatus != original.FunnelStatus || !got.UpdatedAt.Equal(original.UpdatedAt) {
		t.Fatal("failed transition must leave the client unchanged")
	}
}

func TestTransitionContractStampsClosedAt(t *testing.T) {
	got, err := Transition(client(domain.StageProposal, t0), domain.StageContract, t0.Add(time.Hour))
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if got.ClosedAt == nil {
		t.Fatal("entering CONTRACT must set ClosedAt")
	}
	if !got.ClosedAt.Equal(got.UpdatedAt) {
		t.Fatalf("ClosedAt %v should match UpdatedAt %v", got.ClosedAt, got.UpdatedAt)
	}

	// A later no-op on a closed contract keeps the original close time.
	again, err := Transition(got, domain.StageContract, t0.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("second transition: %v", err)
	}
	if !again.ClosedAt.Equal(*got.ClosedAt) {
		t.Fatal("re-dropping a contract on its column must not move ClosedAt")
	}
}

func TestTransitionRoundTripMatchesDirectMove(t *testing.T) {
	start := client(domain.StageContact, t0)

	viaProposal, err := Transition(start, domain.StageProposal, t0.Add(time.Minute))
	if err != nil {
		t.Fatalf("first hop: %v", err)
	}
	roundTrip, err := Transition(viaProposal, domain.StageContact, t0.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("second hop: %v", err)
	}
	direct, err := Transition(start, domain.StageContact, t0.Add(time.Minute))
	if err != nil {
		t.Fatalf("direct move: %v", err)
	}
	if roundTrip.FunnelStatus != direct.FunnelStatus {
		t.Fatalf("round trip stage %s differs from direct %s", roundTrip.FunnelStatus, direct.FunnelStatus)
	}
}

func TestStageCountsCoversEveryStage(t *testing.T) {
	clients := []domain.Client{
		client(domain.StageContact, t0),
		client(domain.StageContact, t0),
		client(domain.StageContract, t0),
	}
	counts := StageCounts(clients)
	if len(counts) != len(domain.FunnelStages()) {
		t.Fatalf("expected %d entries, got %d", len(domain.FunnelStages()), len(counts))
	}
	total := 0
	for _, stage := range domain.FunnelStages() {
		n, ok := counts[stage]
		if !ok {
			t.Fatalf("stage %s missing from counts", stage)
		}
		total += n
	}
	if total != len(clients) {
		t.Fatalf("counts sum %d, want %d", total, len(clients))
	}
	if counts[domain.StageContact] != 2 || counts[domain.StageContract] != 1 || counts[domain.StageVisited] != 0 {
		t.Fatalf("unexpected distribution: %v", counts)
	}
}

func TestStageCountsEmptyInput(t *testing.T) {
	counts := StageCounts(nil)
	if len(counts) != len(domain.FunnelStages()) {
		t.Fatalf("expected all stages present for empty input, got %d", len(counts))
	}
	for stage, n := range counts {
		if n != 0 {
			t.Fatalf("stage %s should be zero, got %d", stage, n)
		}
	}
}

func TestContractsClosedInYear(t *testing.T) {
	closed2024 := time.Date(2024, time.November, 2, 0, 0, 0, 0, time.UTC)
	closed2025 := time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC)

	a := client(domain.StageContract, closed2025)
	a.ClosedAt = &closed2024
	b := client(domain.StageContract, closed2025)
	b.ClosedAt = &closed2025
	c := client(domain.StageContract, closed2024) // legacy row, no ClosedAt
	d := client(domain.StageProposal, closed2024)

	clients := []domain.Client{a, b, c, d}

	if got := ContractsClosedInYear(clients, 2024); got != 2 {
		t.Fatalf("2024: got %d, want 2", got)
	}
	if got := ContractsClosedInYear(clients, 2025); got != 1 {
		t.Fatalf("2025: got %d, want 1", got)
	}
}

func TestInactiveClientsThresholdAndOrdering(t *testing.T) {
	now := t0.Add(8 * 24 * time.Hour)
	threshold := 7 * 24 * time.Hour

	stale := client(domain.StageContact, t0)
	staler := client(domain.StageDiagnosis, t0.Add(-24*time.Hour))
	staler.ID = "c2"
	fresh := client(domain.StageVisited, now.Add(-time.Hour))
	fresh.ID = "c3"
	closedStale := client(domain.StageContract, t0)
	closedStale.ID = "c4"

	got := InactiveClients([]domain.Client{stale, staler, fresh, closedStale}, now, threshold)
	if len(got) != 2 {
		t.Fatalf("expected 2 inactive clients, got %d", len(got))
	}
	if got[0].ID != "c2" || got[1].ID != "c1" {
		t.Fatalf("expected oldest-stalled first [c2 c1], got [%s %s]", got[0].ID, got[1].ID)
	}
}

func TestInactiveClientsExactThresholdExcluded(t *testing.T) {
	now := t0.Add(7 * 24 * time.Hour)
	got := InactiveClients([]domain.Client{client(domain.StageContact, t0)}, now, 7*24*time.Hour)
	if len(got) != 0 {
		t.Fatal("client at exactly the threshold is not yet inactive")
	}
}

func TestInactivePreviewBounded(t *testing.T) {
	now := t0.Add(30 * 24 * time.Hour)
	clients := make([]domain.Client, 0, 8)
	for i := 0; i < 8; i++ {
		c := client(domain.StageContact, t0.Add(time.Duration(i)*time.Hour))
		c.ID = string(rune('a' + i))
		clients = append(clients, c)
	}

	got := InactivePreview(clients, now, 7*24*time.Hour, 5)
	if len(got) != 5 {
		t.Fatalf("preview should cap at 5, got %d", len(got))
	}
	if got[0].ID != "a" {
		t.Fatalf("preview should keep oldest-stalled first, got %s", got[0].ID)
	}

	full := InactiveClients(clients, now, 7*24*time.Hour)
	if len(full) != 8 {
		t.Fatalf("unbounded computation should keep all 8, got %d", len(full))
	}
}
