package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/realty-crm/internal/domain"
	"github.com/spec-kit/realty-crm/internal/events"
	"github.com/spec-kit/realty-crm/internal/funnel"
	"github.com/spec-kit/realty-crm/internal/hierarchy"
	"github.com/spec-kit/realty-crm/internal/repository"
	apperrors "github.com/spec-kit/realty-crm/pkg/util"
)

// ClientService coordinates client-record workflows. Every operation takes
// the viewer explicitly and narrows reads to the viewer's visibility scope
// before touching anything; writes are gated the same way before persisting.
type ClientService struct {
	clients    repository.ClientRepository
	notes      repository.ClientNoteRepository
	users      repository.UserRepository
	properties repository.PropertyRepository
	dispatcher events.Dispatcher
}

// ClientDependencies bundles repositories for the client service.
type ClientDependencies struct {
	ClientRepo   repository.ClientRepository
	NoteRepo     repository.ClientNoteRepository
	UserRepo     repository.UserRepository
	PropertyRepo repository.PropertyRepository
	Dispatcher   events.Dispatcher
}

// ClientCreateInput describes client creation payload.
type ClientCreateInput struct {
	FullName             string
	Phone                *string
	Email                *string
	FunnelStatus         domain.FunnelStage
	Notes                *string
	OwnerID              string
	PropertyOfInterestID *string
}

// ClientUpdateInput describes client edit payload.
type ClientUpdateInput struct {
	FullName             string
	Phone                *string
	Email                *string
	FunnelStatus         domain.FunnelStage
	Notes                *string
	PropertyOfInterestID *string
}

// ClientListFilter describes optional listing controls. Limit and Offset
// paginate the visible result set, not the raw table, so page boundaries stay
// stable regardless of who is asking.
type ClientListFilter struct {
	OwnerID    *string
	Stage      *domain.FunnelStage
	SearchTerm *string
	Limit      int
	Offset     int
}

// NewClientService constructs the service.
func NewClientService(deps ClientDependencies) *ClientService {
	return &ClientService{
		clients:    deps.ClientRepo,
		notes:      deps.NoteRepo,
		users:      deps.UserRepo,
		properties: deps.PropertyRepo,
		dispatcher: deps.Dispatcher,
	}
}

// ListClients returns the clients inside the viewer's visibility scope,
// additionally narrowed by the explicit filter controls.
func (s *ClientService) ListClients(ctx context.Context, viewer *domain.User, filter ClientListFilter) ([]domain.Client, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	clients, err := s.clients.List(ctx, repository.ClientFilter{
		OwnerID:    filter.OwnerID,
		Stage:      filter.Stage,
		SearchTerm: filter.SearchTerm,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return paginate(hierarchy.VisibleClients(viewer, users, clients), filter.Limit, filter.Offset), nil
}

func paginate(clients []domain.Client, limit, offset int) []domain.Client {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(clients) {
		return []domain.Client{}
	}
	clients = clients[offset:]
	if limit > 0 && limit < len(clients) {
		clients = clients[:limit]
	}
	return clients
}

// GetClient fetches a client ensuring visibility.
func (s *ClientService) GetClient(ctx context.Context, viewer *domain.User, clientID string) (*domain.Client, error) {
	return s.getVisibleClient(ctx, viewer, clientID)
}

// CreateClient records a new prospect owned by an agent the viewer may
// assign to.
func (s *ClientService) CreateClient(ctx context.Context, viewer *domain.User, input ClientCreateInput) (*domain.Client, error) {
	if viewer == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}

	ownerID := input.OwnerID
	if viewer.Role == domain.RoleAgent {
		ownerID = viewer.ID
	}
	if ownerID == "" {
		return nil, apperrors.NewValidationError("user_id required", nil)
	}

	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	owner := findUser(users, ownerID)
	if owner == nil {
		return nil, apperrors.NewUnknownReference("user_id", ownerID)
	}
	if owner.Role != domain.RoleAgent {
		return nil, apperrors.NewValidationError("clients must be owned by an agent", map[string]any{"user_id": ownerID})
	}
	if !isAssignable(viewer, users, ownerID) {
		return nil, apperrors.NewForbidden("agent outside your scope")
	}

	stage := input.FunnelStatus
	if stage == "" {
		stage = domain.StageContact
	}
	if _, ok := domain.ParseFunnelStage(string(stage)); !ok {
		return nil, apperrors.NewInvalidStage(string(stage))
	}

	if input.PropertyOfInterestID != nil {
		if err := s.requireProperty(ctx, *input.PropertyOfInterestID); err != nil {
			return nil, err
		}
	}

	client := &domain.Client{
		FullName:             strings.TrimSpace(input.FullName),
		Phone:                input.Phone,
		Email:                input.Email,
		FunnelStatus:         stage,
		Notes:                input.Notes,
		UserID:               ownerID,
		PropertyOfInterestID: input.PropertyOfInterestID,
	}
	if stage == domain.StageContract {
		now := time.Now()
		client.ClosedAt = &now
	}
	if err := s.clients.Create(ctx, client); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventClientCreated,
		ClientID: client.ID,
		ActorID:  viewer.ID,
		Payload: events.ClientCreatedPayload{
			OwnerID:      client.UserID,
			FunnelStatus: client.FunnelStatus,
			FullName:     client.FullName,
		},
	})
	return client, nil
}

// UpdateClient edits a visible client. The funnel stage travels through the
// same transition path as ChangeStage so UpdatedAt and ClosedAt stay honest.
func (s *ClientService) UpdateClient(ctx context.Context, viewer *domain.User, clientID string, input ClientUpdateInput) (*domain.Client, error) {
	client, err := s.getVisibleClient(ctx, viewer, clientID)
	if err != nil {
		return nil, err
	}

	if input.PropertyOfInterestID != nil {
		if err := s.requireProperty(ctx, *input.PropertyOfInterestID); err != nil {
			return nil, err
		}
	}

	oldStage := client.FunnelStatus
	updated, err := funnel.Transition(*client, input.FunnelStatus, time.Now())
	if err != nil {
		return nil, err
	}
	updated.FullName = strings.TrimSpace(input.FullName)
	updated.Phone = input.Phone
	updated.Email = input.Email
	updated.Notes = input.Notes
	updated.PropertyOfInterestID = input.PropertyOfInterestID

	if err := s.clients.Update(ctx, &updated); err != nil {
		return nil, apperrors.MapError(err)
	}
	if updated.FunnelStatus != oldStage {
		s.publishStageChange(ctx, viewer.ID, updated.ID, oldStage, updated.FunnelStatus)
	}
	return &updated, nil
}

// ChangeStage moves a visible client to another funnel stage. Moving a card
// onto its current column is a valid no-op that still refreshes UpdatedAt.
func (s *ClientService) ChangeStage(ctx context.Context, viewer *domain.User, clientID string, stage domain.FunnelStage) (*domain.Client, error) {
	client, err := s.getVisibleClient(ctx, viewer, clientID)
	if err != nil {
		return nil, err
	}

	oldStage := client.FunnelStatus
	updated, err := funnel.Transition(*client, stage, time.Now())
	if err != nil {
		return nil, err
	}
	if err := s.clients.Update(ctx, &updated); err != nil {
		return nil, apperrors.MapError(err)
	}
	if updated.FunnelStatus != oldStage {
		s.publishStageChange(ctx, viewer.ID, updated.ID, oldStage, updated.FunnelStatus)
	}
	return &updated, nil
}

// ReassignClient hands a visible client to another agent within the viewer's
// assignable set.
func (s *ClientService) ReassignClient(ctx context.Context, viewer *domain.User, clientID, newOwnerID string) (*domain.Client, error) {
	client, err := s.getVisibleClient(ctx, viewer, clientID)
	if err != nil {
		return nil, err
	}

	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	owner := findUser(users, newOwnerID)
	if owner == nil {
		return nil, apperrors.NewUnknownReference("user_id", newOwnerID)
	}
	if owner.Role != domain.RoleAgent {
		return nil, apperrors.NewValidationError("clients must be owned by an agent", map[string]any{"user_id": newOwnerID})
	}
	if !isAssignable(viewer, users, newOwnerID) {
		return nil, apperrors.NewForbidden("agent outside your scope")
	}

	oldOwnerID := client.UserID
	client.UserID = newOwnerID
	client.UpdatedAt = time.Now()
	if err := s.clients.Update(ctx, client); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventClientReassigned,
		ClientID: client.ID,
		ActorID:  viewer.ID,
		Payload: events.ClientReassignedPayload{
			OldOwnerID: oldOwnerID,
			NewOwnerID: newOwnerID,
		},
	})
	return client, nil
}

// DeleteClient removes a visible client. Notes cascade with the record.
func (s *ClientService) DeleteClient(ctx context.Context, viewer *domain.User, clientID string) error {
	client, err := s.getVisibleClient(ctx, viewer, clientID)
	if err != nil {
		return err
	}
	if err := s.clients.Delete(ctx, client.ID); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// AddNote appends an annotation to a visible client and touches the client
// record so inactivity tracking sees the activity.
func (s *ClientService) AddNote(ctx context.Context, viewer *domain.User, clientID, text string) (*domain.ClientNote, error) {
	client, err := s.getVisibleClient(ctx, viewer, clientID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.NewValidationError("note required", nil)
	}

	note := &domain.ClientNote{
		ClientID: client.ID,
		UserID:   viewer.ID,
		UserName: viewer.Name,
		Note:     strings.TrimSpace(text),
	}
	if err := s.notes.Create(ctx, note); err != nil {
		return nil, apperrors.MapError(err)
	}

	client.UpdatedAt = time.Now()
	if err := s.clients.Update(ctx, client); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventClientNoteAdded,
		ClientID: client.ID,
		ActorID:  viewer.ID,
		Payload: events.ClientNoteAddedPayload{
			NoteID:      note.ID,
			AuthorID:    viewer.ID,
			NotePreview: stringPreview(note.Note, 120),
		},
	})
	return note, nil
}

// ListNotes returns a visible client's annotations, newest first.
func (s *ClientService) ListNotes(ctx context.Context, viewer *domain.User, clientID string) ([]domain.ClientNote, error) {
	client, err := s.getVisibleClient(ctx, viewer, clientID)
	if err != nil {
		return nil, err
	}
	notes, err := s.notes.ListByClient(ctx, client.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return notes, nil
}

func (s *ClientService) getVisibleClient(ctx context.Context, viewer *domain.User, clientID string) (*domain.Client, error) {
	if viewer == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	client, err := s.clients.GetByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("client", map[string]any{"client_id": clientID})
		}
		return nil, apperrors.MapError(err)
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !hierarchy.CanViewClient(viewer, users, client) {
		return nil, apperrors.NewForbidden("client outside your scope")
	}
	return client, nil
}

func (s *ClientService) requireProperty(ctx context.Context, propertyID string) error {
	if _, err := s.properties.GetByID(ctx, propertyID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnknownReference("property_of_interest_id", propertyID)
		}
		return apperrors.MapError(err)
	}
	return nil
}

func (s *ClientService) publishStageChange(ctx context.Context, actorID, clientID string, oldStage, newStage domain.FunnelStage) {
	s.publishEvent(ctx, events.Event{
		Type:     events.EventClientStageChanged,
		ClientID: clientID,
		ActorID:  actorID,
		Payload: events.ClientStageChangedPayload{
			OldStage: oldStage,
			NewStage: newStage,
		},
	})
}

func (s *ClientService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func findUser(users []domain.User, id string) *domain.User {
	for i := range users {
		if users[i].ID == id {
			return &users[i]
		}
	}
	return nil
}

func isAssignable(viewer *domain.User, users []domain.User, agentID string) bool {
	for _, agent := range hierarchy.AssignableAgents(viewer, users) {
		if agent.ID == agentID {
			return true
		}
	}
	return false
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
