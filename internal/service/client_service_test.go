package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/realty-crm/internal/domain"
	"github.com/spec-kit/realty-crm/internal/events"
	"github.com/spec-kit/realty-crm/internal/repository"
	apperrors "github.com/spec-kit/realty-crm/pkg/util"
)

type fakeClientRepo struct {
	clients map[string]domain.Client
	nextID  int
}

func newFakeClientRepo(clients ...domain.Client) *fakeClientRepo {
	repo := &fakeClientRepo{clients: map[string]domain.Client{}, nextID: 100}
	for _, c := range clients {
		repo.clients[c.ID] = c
	}
	return repo
}

func (r *fakeClientRepo) Create(_ context.Context, client *domain.Client) error {
	r.nextID++
	client.ID = fmt.Sprintf("client-%d", r.nextID)
	now := time.Now()
	client.CreatedAt = now
	client.UpdatedAt = now
	r.clients[client.ID] = *client
	return nil
}

func (r *fakeClientRepo) Update(_ context.Context, client *domain.Client) error {
	if _, ok := r.clients[client.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.clients[client.ID] = *client
	return nil
}

func (r *fakeClientRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.clients[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.clients, id)
	return nil
}

func (r *fakeClientRepo) GetByID(_ context.Context, id string) (*domain.Client, error) {
	client, ok := r.clients[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := client
	return &copied, nil
}

func (r *fakeClientRepo) List(_ context.Context, filter repository.ClientFilter) ([]domain.Client, error) {
	var out []domain.Client
	for _, c := range r.clients {
		if filter.OwnerID != nil && c.UserID != *filter.OwnerID {
			continue
		}
		if filter.Stage != nil && c.FunnelStatus != *filter.Stage {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

type fakeUserRepo struct {
	users []domain.User
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.users = append(r.users, *user)
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	for i := range r.users {
		if r.users[i].ID == user.ID {
			r.users[i] = *user
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *fakeUserRepo) Delete(_ context.Context, id string) error {
	for i := range r.users {
		if r.users[i].ID == id {
			r.users = append(r.users[:i], r.users[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	for i := range r.users {
		if r.users[i].ID == id {
			copied := r.users[i]
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for i := range r.users {
		if r.users[i].Email == email {
			copied := r.users[i]
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) List(_ context.Context) ([]domain.User, error) {
	out := make([]domain.User, len(r.users))
	copy(out, r.users)
	return out, nil
}

type fakeNoteRepo struct {
	notes  []domain.ClientNote
	nextID int
}

func (r *fakeNoteRepo) Create(_ context.Context, note *domain.ClientNote) error {
	r.nextID++
	note.ID = fmt.Sprintf("note-%d", r.nextID)
	note.CreatedAt = time.Now()
	r.notes = append(r.notes, *note)
	return nil
}

func (r *fakeNoteRepo) ListByClient(_ context.Context, clientID string) ([]domain.ClientNote, error) {
	var out []domain.ClientNote
	for i := len(r.notes) - 1; i >= 0; i-- {
		if r.notes[i].ClientID == clientID {
			out = append(out, r.notes[i])
		}
	}
	return out, nil
}

type fakePropertyRepo struct {
	properties map[string]domain.Property
}

func (r *fakePropertyRepo) Create(_ context.Context, property *domain.Property) error {
	r.properties[property.ID] = *property
	return nil
}

func (r *fakePropertyRepo) Update(_ context.Context, property *domain.Property) error {
	r.properties[property.ID] = *property
	return nil
}

func (r *fakePropertyRepo) Delete(_ context.Context, id string) error {
	delete(r.properties, id)
	return nil
}

func (r *fakePropertyRepo) GetByID(_ context.Context, id string) (*domain.Property, error) {
	property, ok := r.properties[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := property
	return &copied, nil
}

func (r *fakePropertyRepo) ListByOwner(_ context.Context, userID string) ([]domain.Property, error) {
	var out []domain.Property
	for _, p := range r.properties {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

type capturingDispatcher struct {
	published []events.Event
}

func (d *capturingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.published = append(d.published, event)
	return nil
}

func (d *capturingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func strPtr(s string) *string { return &s }

// teamUsers mirrors a small agency: one director, one manager with a single
// direct report, and a second agent reporting straight to the director.
func teamUsers() []domain.User {
	return []domain.User{
		{ID: "u-director", Name: "Dana", Email: "dana@agency.test", Role: domain.RoleDirector},
		{ID: "u-manager", Name: "Mia", Email: "mia@agency.test", Role: domain.RoleManager, ManagerID: strPtr("u-director")},
		{ID: "u-agent-1", Name: "Ana", Email: "ana@agency.test", Role: domain.RoleAgent, ManagerID: strPtr("u-manager")},
		{ID: "u-agent-2", Name: "Bo", Email: "bo@agency.test", Role: domain.RoleAgent, ManagerID: strPtr("u-director")},
	}
}

func userByID(users []domain.User, id string) *domain.User {
	for i := range users {
		if users[i].ID == id {
			return &users[i]
		}
	}
	return nil
}

type serviceFixture struct {
	service    *ClientService
	clients    *fakeClientRepo
	users      []domain.User
	dispatcher *capturingDispatcher
	notes      *fakeNoteRepo
}

func newServiceFixture(t *testing.T, clients ...domain.Client) *serviceFixture {
	t.Helper()
	clientRepo := newFakeClientRepo(clients...)
	noteRepo := &fakeNoteRepo{}
	users := teamUsers()
	dispatcher := &capturingDispatcher{}
	svc := NewClientService(ClientDependencies{
		ClientRepo:   clientRepo,
		NoteRepo:     noteRepo,
		UserRepo:     &fakeUserRepo{users: users},
		PropertyRepo: &fakePropertyRepo{properties: map[string]domain.Property{}},
		Dispatcher:   dispatcher,
	})
	return &serviceFixture{service: svc, clients: clientRepo, users: users, dispatcher: dispatcher, notes: noteRepo}
}

func domainCode(t *testing.T, err error) string {
	t.Helper()
	var de *apperrors.DomainError
	if !errors.As(err, &de) {
		t.Fatalf("expected DomainError, got %T: %v", err, err)
	}
	return de.Code
}

func TestChangeStagePersistsAndPublishes(t *testing.T) {
	start := time.Now().Add(-48 * time.Hour)
	fx := newServiceFixture(t, domain.Client{
		ID: "c-1", FullName: "Ivan", FunnelStatus: domain.StageDiagnosis,
		UserID: "u-agent-1", CreatedAt: start, UpdatedAt: start,
	})
	viewer := userByID(fx.users, "u-manager")

	updated, err := fx.service.ChangeStage(context.Background(), viewer, "c-1", domain.StageProposal)
	if err != nil {
		t.Fatalf("change stage: %v", err)
	}
	if updated.FunnelStatus != domain.StageProposal {
		t.Fatalf("expected PROPOSAL, got %s", updated.FunnelStatus)
	}
	if !updated.UpdatedAt.After(start) {
		t.Fatal("stage change must refresh updated_at")
	}

	stored, _ := fx.clients.GetByID(context.Background(), "c-1")
	if stored.FunnelStatus != domain.StageProposal {
		t.Fatalf("stage not persisted, got %s", stored.FunnelStatus)
	}

	if len(fx.dispatcher.published) != 1 {
		t.Fatalf("expected 1 event, got %d", len(fx.dispatcher.published))
	}
	event := fx.dispatcher.published[0]
	if event.Type != events.EventClientStageChanged {
		t.Fatalf("expected stage-changed event, got %s", event.Type)
	}
	payload, ok := event.Payload.(events.ClientStageChangedPayload)
	if !ok {
		t.Fatalf("unexpected payload type %T", event.Payload)
	}
	if payload.OldStage != domain.StageDiagnosis || payload.NewStage != domain.StageProposal {
		t.Fatalf("payload %+v does not record the move", payload)
	}
}

func TestChangeStageSameColumnIsSilentNoOp(t *testing.T) {
	start := time.Now().Add(-time.Hour)
	fx := newServiceFixture(t, domain.Client{
		ID: "c-1", FullName: "Ivan", FunnelStatus: domain.StageVisited,
		UserID: "u-agent-1", CreatedAt: start, UpdatedAt: start,
	})
	viewer := userByID(fx.users, "u-agent-1")

	updated, err := fx.service.ChangeStage(context.Background(), viewer, "c-1", domain.StageVisited)
	if err != nil {
		t.Fatalf("same-stage move must succeed: %v", err)
	}
	if !updated.UpdatedAt.After(start) {
		t.Fatal("same-stage move must still refresh updated_at")
	}
	if len(fx.dispatcher.published) != 0 {
		t.Fatalf("same-stage move must not publish events, got %d", len(fx.dispatcher.published))
	}
}

func TestChangeStageInvalidStageLeavesClientUntouched(t *testing.T) {
	start := time.Now().Add(-time.Hour)
	fx := newServiceFixture(t, domain.Client{
		ID: "c-1", FullName: "Ivan", FunnelStatus: domain.StageContact,
		UserID: "u-agent-1", CreatedAt: start, UpdatedAt: start,
	})
	viewer := userByID(fx.users, "u-director")

	_, err := fx.service.ChangeStage(context.Background(), viewer, "c-1", domain.FunnelStage("ARCHIVED"))
	if err == nil {
		t.Fatal("unknown stage must be rejected")
	}
	if code := domainCode(t, err); code != "INVALID_STAGE" {
		t.Fatalf("expected INVALID_STAGE, got %s", code)
	}

	stored, _ := fx.clients.GetByID(context.Background(), "c-1")
	if stored.FunnelStatus != domain.StageContact || !stored.UpdatedAt.Equal(start) {
		t.Fatal("rejected move must not mutate the stored client")
	}
	if len(fx.dispatcher.published) != 0 {
		t.Fatal("rejected move must not publish events")
	}
}

func TestGetClientOutsideScopeIsForbidden(t *testing.T) {
	fx := newServiceFixture(t, domain.Client{
		ID: "c-far", FullName: "Nadia", FunnelStatus: domain.StageContact,
		UserID: "u-agent-2", UpdatedAt: time.Now(),
	})
	// u-agent-2 reports to the director, so the manager cannot see c-far.
	viewer := userByID(fx.users, "u-manager")

	_, err := fx.service.GetClient(context.Background(), viewer, "c-far")
	if err == nil {
		t.Fatal("client outside the viewer's scope must be hidden")
	}
	if code := domainCode(t, err); code != "FORBIDDEN" {
		t.Fatalf("expected FORBIDDEN, got %s", code)
	}
}

func TestGetClientUnknownIDIsNotFound(t *testing.T) {
	fx := newServiceFixture(t)
	viewer := userByID(fx.users, "u-director")

	_, err := fx.service.GetClient(context.Background(), viewer, "missing")
	if code := domainCode(t, err); code != "NOT_FOUND" {
		t.Fatalf("expected NOT_FOUND, got %s", code)
	}
}

func TestListClientsNarrowedToViewer(t *testing.T) {
	now := time.Now()
	fx := newServiceFixture(t,
		domain.Client{ID: "c-a", FullName: "A", FunnelStatus: domain.StageContact, UserID: "u-agent-1", UpdatedAt: now},
		domain.Client{ID: "c-b", FullName: "B", FunnelStatus: domain.StageContact, UserID: "u-agent-2", UpdatedAt: now},
	)

	manager := userByID(fx.users, "u-manager")
	visible, err := fx.service.ListClients(context.Background(), manager, ClientListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(visible) != 1 || visible[0].ID != "c-a" {
		t.Fatalf("manager must see exactly the direct report's client, got %+v", visible)
	}

	director := userByID(fx.users, "u-director")
	visible, err = fx.service.ListClients(context.Background(), director, ClientListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(visible) != 2 {
		t.Fatalf("director must see both clients, got %d", len(visible))
	}
}

func TestListClientsPaginatesVisibleSet(t *testing.T) {
	now := time.Now()
	fx := newServiceFixture(t,
		domain.Client{ID: "c-1", FullName: "A", FunnelStatus: domain.StageContact, UserID: "u-agent-1", UpdatedAt: now},
		domain.Client{ID: "c-2", FullName: "B", FunnelStatus: domain.StageContact, UserID: "u-agent-1", UpdatedAt: now},
		domain.Client{ID: "c-3", FullName: "C", FunnelStatus: domain.StageContact, UserID: "u-agent-2", UpdatedAt: now},
	)
	director := userByID(fx.users, "u-director")

	page, err := fx.service.ListClients(context.Background(), director, ClientListFilter{Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected 2 clients on the first page, got %d", len(page))
	}

	page, err = fx.service.ListClients(context.Background(), director, ClientListFilter{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 1 {
		t.Fatalf("expected 1 client on the second page, got %d", len(page))
	}

	page, err = fx.service.ListClients(context.Background(), director, ClientListFilter{Offset: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 0 {
		t.Fatalf("offset past the end must return an empty page, got %d", len(page))
	}
}

func TestCreateClientAgentAlwaysOwnsOwnRecords(t *testing.T) {
	fx := newServiceFixture(t)
	viewer := userByID(fx.users, "u-agent-1")

	created, err := fx.service.CreateClient(context.Background(), viewer, ClientCreateInput{
		FullName: "Olga",
		OwnerID:  "u-agent-2", // ignored for agents
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.UserID != "u-agent-1" {
		t.Fatalf("agent-created client must belong to the agent, got %s", created.UserID)
	}
	if created.FunnelStatus != domain.StageContact {
		t.Fatalf("default stage must be CONTACT, got %s", created.FunnelStatus)
	}
	if len(fx.dispatcher.published) != 1 || fx.dispatcher.published[0].Type != events.EventClientCreated {
		t.Fatal("creation must publish a created event")
	}
}

func TestCreateClientRejectsNonAgentOwner(t *testing.T) {
	fx := newServiceFixture(t)
	viewer := userByID(fx.users, "u-director")

	_, err := fx.service.CreateClient(context.Background(), viewer, ClientCreateInput{
		FullName: "Olga",
		OwnerID:  "u-manager",
	})
	if code := domainCode(t, err); code != "VALIDATION_FAILED" {
		t.Fatalf("expected VALIDATION_FAILED, got %s", code)
	}
}

func TestCreateClientRejectsUnknownOwner(t *testing.T) {
	fx := newServiceFixture(t)
	viewer := userByID(fx.users, "u-director")

	_, err := fx.service.CreateClient(context.Background(), viewer, ClientCreateInput{
		FullName: "Olga",
		OwnerID:  "ghost",
	})
	if code := domainCode(t, err); code != "UNKNOWN_REFERENCE" {
		t.Fatalf("expected UNKNOWN_REFERENCE, got %s", code)
	}
}

func TestReassignClientScopeEnforced(t *testing.T) {
	now := time.Now()
	fx := newServiceFixture(t, domain.Client{
		ID: "c-1", FullName: "Ivan", FunnelStatus: domain.StageContact,
		UserID: "u-agent-1", UpdatedAt: now,
	})
	manager := userByID(fx.users, "u-manager")

	// u-agent-2 is outside the manager's branch.
	_, err := fx.service.ReassignClient(context.Background(), manager, "c-1", "u-agent-2")
	if code := domainCode(t, err); code != "FORBIDDEN" {
		t.Fatalf("expected FORBIDDEN for out-of-scope agent, got %s", code)
	}

	director := userByID(fx.users, "u-director")
	updated, err := fx.service.ReassignClient(context.Background(), director, "c-1", "u-agent-2")
	if err != nil {
		t.Fatalf("director reassign: %v", err)
	}
	if updated.UserID != "u-agent-2" {
		t.Fatalf("expected owner u-agent-2, got %s", updated.UserID)
	}

	event := fx.dispatcher.published[len(fx.dispatcher.published)-1]
	if event.Type != events.EventClientReassigned {
		t.Fatalf("expected reassigned event, got %s", event.Type)
	}
	payload := event.Payload.(events.ClientReassignedPayload)
	if payload.OldOwnerID != "u-agent-1" || payload.NewOwnerID != "u-agent-2" {
		t.Fatalf("payload %+v does not record the handoff", payload)
	}
}

func TestAddNoteTouchesClient(t *testing.T) {
	start := time.Now().Add(-72 * time.Hour)
	fx := newServiceFixture(t, domain.Client{
		ID: "c-1", FullName: "Ivan", FunnelStatus: domain.StageScheduled,
		UserID: "u-agent-1", UpdatedAt: start,
	})
	viewer := userByID(fx.users, "u-agent-1")

	note, err := fx.service.AddNote(context.Background(), viewer, "c-1", "  called, will visit Saturday  ")
	if err != nil {
		t.Fatalf("add note: %v", err)
	}
	if note.Note != "called, will visit Saturday" {
		t.Fatalf("note text must be trimmed, got %q", note.Note)
	}
	if note.UserName != viewer.Name {
		t.Fatalf("note must carry the author name, got %q", note.UserName)
	}

	stored, _ := fx.clients.GetByID(context.Background(), "c-1")
	if !stored.UpdatedAt.After(start) {
		t.Fatal("adding a note must touch the client's updated_at")
	}
}

func TestAddNoteRejectsBlankText(t *testing.T) {
	fx := newServiceFixture(t, domain.Client{
		ID: "c-1", FullName: "Ivan", FunnelStatus: domain.StageContact,
		UserID: "u-agent-1", UpdatedAt: time.Now(),
	})
	viewer := userByID(fx.users, "u-agent-1")

	_, err := fx.service.AddNote(context.Background(), viewer, "c-1", "   ")
	if code := domainCode(t, err); code != "VALIDATION_FAILED" {
		t.Fatalf("expected VALIDATION_FAILED, got %s", code)
	}
}

func TestListNotesNewestFirst(t *testing.T) {
	fx := newServiceFixture(t, domain.Client{
		ID: "c-1", FullName: "Ivan", FunnelStatus: domain.StageContact,
		UserID: "u-agent-1", UpdatedAt: time.Now(),
	})
	viewer := userByID(fx.users, "u-agent-1")

	for _, text := range []string{"first", "second", "third"} {
		if _, err := fx.service.AddNote(context.Background(), viewer, "c-1", text); err != nil {
			t.Fatalf("add note %q: %v", text, err)
		}
	}

	notes, err := fx.service.ListNotes(context.Background(), viewer, "c-1")
	if err != nil {
		t.Fatalf("list notes: %v", err)
	}
	if len(notes) != 3 {
		t.Fatalf("expected 3 notes, got %d", len(notes))
	}
	if notes[0].Note != "third" || notes[2].Note != "first" {
		t.Fatalf("notes must come back newest first, got %+v", notes)
	}
}

func TestDeleteClientRequiresVisibility(t *testing.T) {
	fx := newServiceFixture(t, domain.Client{
		ID: "c-far", FullName: "Nadia", FunnelStatus: domain.StageContact,
		UserID: "u-agent-2", UpdatedAt: time.Now(),
	})

	agent := userByID(fx.users, "u-agent-1")
	err := fx.service.DeleteClient(context.Background(), agent, "c-far")
	if code := domainCode(t, err); code != "FORBIDDEN" {
		t.Fatalf("expected FORBIDDEN, got %s", code)
	}

	director := userByID(fx.users, "u-director")
	if err := fx.service.DeleteClient(context.Background(), director, "c-far"); err != nil {
		t.Fatalf("director delete: %v", err)
	}
	if _, err := fx.clients.GetByID(context.Background(), "c-far"); err == nil {
		t.Fatal("client must be gone after delete")
	}
}

func TestNilViewerIsUnauthorized(t *testing.T) {
	fx := newServiceFixture(t)
	_, err := fx.service.GetClient(context.Background(), nil, "c-1")
	if code := domainCode(t, err); code != "UNAUTHORIZED" {
		t.Fatalf("expected UNAUTHORIZED, got %s", code)
	}
}
