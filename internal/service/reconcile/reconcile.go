package reconcile

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/syncwire/clerk-sync/internal/model"
	"github.com/syncwire/clerk-sync/internal/repository"
	"github.com/syncwire/clerk-sync/internal/util"
)

// ErrEmptySubject means a create/update event carried neither a clerk id
// nor an email, so no record could ever be resolved or keyed.
var ErrEmptySubject = errors.New("event subject has no clerk id or email")

// Outcome is the terminal state of one reconciled event.
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeUpdated Outcome = "updated"
	OutcomeSkipped Outcome = "skipped"
	OutcomeIgnored Outcome = "ignored"
)

func (o Outcome) String() string { return string(o) }

// Service applies verified events to the customer store: exactly one of
// create, update, or no-op per event. Redelivery converges to the same
// record, so no internal retry is needed or performed.
type Service struct {
	customers repository.CustomersRepository
	log       *zap.Logger
}

func New(customers repository.CustomersRepository, log *zap.Logger) *Service {
	return &Service{customers: customers, log: log}
}

// Apply routes a verified event to the matching reconciliation path.
func (s *Service) Apply(ctx context.Context, evt *model.Event) (Outcome, error) {
	switch evt.Type {
	case model.EventUserCreated, model.EventUserUpdated:
		return s.upsert(ctx, evt)
	case model.EventUserDeleted:
		return s.softSkip(ctx, evt)
	default:
		s.log.Debug("ignoring unsupported event type",
			zap.String("type", evt.Type.String()), zap.String("message_id", evt.ID))
		return OutcomeIgnored, nil
	}
}

// resolve runs the two-tier lookup: clerk id first, email only when the
// first tier finds nothing. First match wins.
func (s *Service) resolve(ctx context.Context, clerkID, email string) (*model.Customer, error) {
	if clerkID != "" {
		c, err := s.customers.FindByClerkID(ctx, clerkID)
		if err != nil {
			return nil, fmt.Errorf("find by clerk id: %w", err)
		}
		if c != nil {
			return c, nil
		}
	}
	if email != "" {
		c, err := s.customers.FindByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("find by email: %w", err)
		}
		if c != nil {
			return c, nil
		}
	}
	return nil, nil
}

func (s *Service) upsert(ctx context.Context, evt *model.Event) (Outcome, error) {
	clerkID := evt.User.ClerkID
	email := util.NormalizeEmail(evt.User.Email)
	if clerkID == "" && email == "" {
		return "", ErrEmptySubject
	}

	existing, err := s.resolve(ctx, clerkID, email)
	if err != nil {
		return "", err
	}

	if existing != nil {
		// clerk_id and email are only overwritten by non-empty values;
		// the rest of the mutable fields always follow the payload.
		if clerkID != "" {
			existing.ClerkID = &clerkID
		}
		if email != "" {
			existing.Email = &email
		}
		existing.FirstName = evt.User.FirstName
		existing.LastName = evt.User.LastName
		existing.Username = evt.User.Username
		existing.Avatar = optional(evt.User.Avatar)

		if err := s.customers.Update(ctx, *existing); err != nil {
			return "", fmt.Errorf("update customer: %w", err)
		}
		s.log.Info("customer updated",
			zap.String("clerk_id", clerkID), zap.String("customer_id", existing.ID))
		return OutcomeUpdated, nil
	}

	c := model.Customer{
		ID:        util.New(),
		ClerkID:   optional(clerkID),
		Email:     optional(email),
		FirstName: evt.User.FirstName,
		LastName:  evt.User.LastName,
		Username:  evt.User.Username,
		Avatar:    optional(evt.User.Avatar),
	}
	if err := s.customers.Create(ctx, c); err != nil {
		return "", fmt.Errorf("create customer: %w", err)
	}
	s.log.Info("customer created",
		zap.String("clerk_id", clerkID), zap.String("customer_id", c.ID))
	return OutcomeCreated, nil
}

// softSkip resolves the record for a delete event but performs no
// mutation. Physical deletion is deferred until the deleted_at column is
// actually wired up.
func (s *Service) softSkip(ctx context.Context, evt *model.Event) (Outcome, error) {
	existing, err := s.resolve(ctx, evt.User.ClerkID, util.NormalizeEmail(evt.User.Email))
	if err != nil {
		return "", err
	}
	if existing != nil {
		s.log.Info("user deleted upstream, keeping customer record",
			zap.String("clerk_id", evt.User.ClerkID), zap.String("customer_id", existing.ID))
	} else {
		s.log.Debug("delete event for unknown user",
			zap.String("clerk_id", evt.User.ClerkID))
	}
	return OutcomeSkipped, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
