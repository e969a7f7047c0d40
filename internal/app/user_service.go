package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"userapi/internal/model"
	"userapi/internal/pkg/metrics"
	"userapi/internal/repository"
)

var (
	ErrMissingFields    = errors.New("missing required fields")
	ErrNoFieldsToUpdate = errors.New("no fields to update")
	ErrEmptyField       = errors.New("fields must not be empty")
	ErrUserNotFound     = errors.New("user not found")
)

// StoreError reports a persistence failure. Any unit of work that ends in a
// StoreError has been rolled back.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return e.Err.Error() }

func (e *StoreError) Unwrap() error { return e.Err }

type EventPublisher interface {
	PublishUserEvent(ctx context.Context, event model.UserEvent) error
}

type UserService struct {
	users  *repository.UserRepository
	events EventPublisher
	log    zerolog.Logger
	now    func() time.Time
}

// CreateUserInput and UpdateUserInput carry nil for fields absent from the
// request body.
type CreateUserInput struct {
	Username *string
	Email    *string
}

type UpdateUserInput struct {
	Username *string
	Email    *string
}

// NewUserService wires the service. events may be nil, in which case no
// lifecycle events are emitted.
func NewUserService(users *repository.UserRepository, events EventPublisher, log zerolog.Logger) *UserService {
	return &UserService{
		users:  users,
		events: events,
		log:    log,
		now:    time.Now,
	}
}

func (s *UserService) CreateUser(ctx context.Context, input CreateUserInput) (*model.User, error) {
	username, hasUsername := supplied(input.Username)
	email, hasEmail := supplied(input.Email)
	if !hasUsername || !hasEmail {
		return nil, ErrMissingFields
	}

	user := &model.User{Username: username, Email: email}
	err := s.unitOfWork(ctx, "create", func(tx *repository.UserRepository) error {
		return tx.Create(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, model.UserCreated, *user)
	return user, nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := s.read("list", func() error {
		var err error
		users, err = s.users.List(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (s *UserService) GetUser(ctx context.Context, id uint) (*model.User, error) {
	var user *model.User
	err := s.read("get", func() error {
		var err error
		user, err = s.users.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// UpdateUser applies each supplied field independently. Existence is checked
// before the input, so an unknown id wins over an empty body. A supplied but
// empty field rejects the whole update.
func (s *UserService) UpdateUser(ctx context.Context, id uint, input UpdateUserInput) (*model.User, error) {
	var updated *model.User
	err := s.unitOfWork(ctx, "update", func(tx *repository.UserRepository) error {
		user, err := tx.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}

		if input.Username == nil && input.Email == nil {
			return ErrNoFieldsToUpdate
		}
		if isEmpty(input.Username) || isEmpty(input.Email) {
			return ErrEmptyField
		}
		if input.Username != nil {
			user.Username = *input.Username
		}
		if input.Email != nil {
			user.Email = *input.Email
		}

		if err := tx.Update(ctx, user); err != nil {
			return err
		}
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, model.UserUpdated, *updated)
	return updated, nil
}

func (s *UserService) DeleteUser(ctx context.Context, id uint) error {
	var deleted model.User
	err := s.unitOfWork(ctx, "delete", func(tx *repository.UserRepository) error {
		user, err := tx.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}
		deleted = *user
		return tx.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, model.UserDeleted, deleted)
	return nil
}

func (s *UserService) unitOfWork(ctx context.Context, op string, fn func(tx *repository.UserRepository) error) error {
	start := time.Now()
	err := classify(op, s.users.Transaction(ctx, fn))
	metrics.RecordDatabaseOperation(op, storeFailure(err), time.Since(start))
	return err
}

func (s *UserService) read(op string, fn func() error) error {
	start := time.Now()
	err := classify(op, fn())
	metrics.RecordDatabaseOperation(op, storeFailure(err), time.Since(start))
	return err
}

func (s *UserService) publish(ctx context.Context, eventType model.UserEventType, user model.User) {
	if s.events == nil {
		return
	}
	err := s.events.PublishUserEvent(ctx, model.UserEvent{
		Type:       eventType,
		User:       user,
		OccurredAt: s.now().UTC(),
	})
	metrics.RecordEvent(string(eventType), err)
	if err != nil {
		s.log.Warn().Err(err).Str("event", string(eventType)).Uint("user_id", user.ID).Msg("publish user event failed")
	}
}

// classify keeps domain outcomes as they are and turns everything else into
// a StoreError.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrNoFieldsToUpdate) ||
		errors.Is(err, ErrEmptyField) || errors.Is(err, ErrMissingFields) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

func storeFailure(err error) error {
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return storeErr
	}
	return nil
}

func supplied(value *string) (string, bool) {
	if value == nil || *value == "" {
		return "", false
	}
	return *value, true
}

func isEmpty(value *string) bool {
	return value != nil && *value == ""
}
