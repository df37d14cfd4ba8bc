package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/realty-crm/internal/auth"
	"github.com/spec-kit/realty-crm/internal/config"
	"github.com/spec-kit/realty-crm/internal/domain"
	"github.com/spec-kit/realty-crm/internal/events"
	"github.com/spec-kit/realty-crm/internal/hierarchy"
	"github.com/spec-kit/realty-crm/internal/repository"
	apperrors "github.com/spec-kit/realty-crm/pkg/util"
)

// UserService manages the sales-team hierarchy.
type UserService struct {
	users      repository.UserRepository
	dispatcher events.Dispatcher
	bcryptCost int
}

// UserCreateInput describes user creation payload.
type UserCreateInput struct {
	Name      string
	Email     string
	Password  string
	Role      domain.Role
	ManagerID *string
}

// UserUpdateInput describes user edit payload.
type UserUpdateInput struct {
	Name      string
	Email     string
	Role      domain.Role
	ManagerID *string
}

// NewUserService constructs the service.
func NewUserService(cfg config.Config, users repository.UserRepository, dispatcher events.Dispatcher) *UserService {
	return &UserService{
		users:      users,
		dispatcher: dispatcher,
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// ListVisibleUsers returns the users inside the viewer's visibility scope.
func (s *UserService) ListVisibleUsers(ctx context.Context, viewer *domain.User) ([]domain.User, error) {
	all, err := s.users.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return hierarchy.VisibleUsers(viewer, all), nil
}

// ListAssignableAgents returns the agents the viewer may assign clients to.
func (s *UserService) ListAssignableAgents(ctx context.Context, viewer *domain.User) ([]domain.User, error) {
	all, err := s.users.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return hierarchy.AssignableAgents(viewer, all), nil
}

// CreateUser registers a new team member under the viewer's authority.
func (s *UserService) CreateUser(ctx context.Context, viewer *domain.User, input UserCreateInput) (*domain.User, error) {
	if viewer == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if viewer.Role == domain.RoleAgent {
		return nil, apperrors.NewForbidden("agents cannot manage users")
	}
	if viewer.Role == domain.RoleManager && input.Role != domain.RoleAgent {
		return nil, apperrors.NewForbidden("managers may only create agents")
	}

	if _, err := s.users.GetByEmail(ctx, input.Email); err == nil {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"email": input.Email})
	} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	all, err := s.users.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.validateReportingLine(input.Role, input.ManagerID, all); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	user := &domain.User{
		Name:         strings.TrimSpace(input.Name),
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		PasswordHash: hash,
		Role:         input.Role,
		ManagerID:    input.ManagerID,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:    events.EventUserCreated,
		ActorID: viewer.ID,
		Payload: events.UserCreatedPayload{
			UserID:    user.ID,
			Role:      user.Role,
			ManagerID: user.ManagerID,
		},
	})
	return user, nil
}

// UpdateUser edits a team member the viewer is allowed to manage.
func (s *UserService) UpdateUser(ctx context.Context, viewer *domain.User, targetID string, input UserUpdateInput) (*domain.User, error) {
	target, err := s.getManagedTarget(ctx, viewer, targetID)
	if err != nil {
		return nil, err
	}

	all, err := s.users.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.validateReportingLine(input.Role, input.ManagerID, all); err != nil {
		return nil, err
	}

	target.Name = strings.TrimSpace(input.Name)
	target.Email = strings.ToLower(strings.TrimSpace(input.Email))
	target.Role = input.Role
	target.ManagerID = input.ManagerID
	if err := s.users.Update(ctx, target); err != nil {
		return nil, apperrors.MapError(err)
	}
	return target, nil
}

// DeleteUser removes a team member the viewer is allowed to manage.
func (s *UserService) DeleteUser(ctx context.Context, viewer *domain.User, targetID string) error {
	target, err := s.getManagedTarget(ctx, viewer, targetID)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, target.ID); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

func (s *UserService) getManagedTarget(ctx context.Context, viewer *domain.User, targetID string) (*domain.User, error) {
	if viewer == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": targetID})
		}
		return nil, apperrors.MapError(err)
	}
	if !hierarchy.CanManageUser(viewer, target) {
		return nil, apperrors.NewForbidden("not allowed to manage this user")
	}
	return target, nil
}

func (s *UserService) validateReportingLine(role domain.Role, managerID *string, all []domain.User) error {
	if _, ok := domain.ParseRole(string(role)); !ok {
		return apperrors.NewInvalidRole(string(role))
	}
	ok, expected := hierarchy.ValidateReportsTo(role, managerID, all)
	if ok {
		return nil
	}
	if role == domain.RoleDirector {
		return apperrors.NewValidationError("directors report to nobody", nil)
	}
	if managerID == nil {
		return apperrors.NewValidationError("manager_id required", map[string]any{"expected_superior": expected})
	}
	for _, u := range all {
		if u.ID == *managerID {
			return apperrors.NewValidationError("superior has wrong role", map[string]any{
				"manager_id":        *managerID,
				"expected_superior": expected,
				"actual_superior":   u.Role,
			})
		}
	}
	return apperrors.NewUnknownReference("manager_id", *managerID)
}

func (s *UserService) publishEvent(ctx context.Context, event events.Event) {
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
