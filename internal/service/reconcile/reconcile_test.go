package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/syncwire/clerk-sync/internal/model"
)

// stubStore is an in-memory CustomersRepository that counts calls.
type stubStore struct {
	customers []model.Customer
	finds     int
	creates   int
	updates   int
	err       error
}

func (s *stubStore) FindByClerkID(_ context.Context, clerkID string) (*model.Customer, error) {
	s.finds++
	if s.err != nil {
		return nil, s.err
	}
	for i := range s.customers {
		if s.customers[i].ClerkID != nil && *s.customers[i].ClerkID == clerkID {
			c := s.customers[i]
			return &c, nil
		}
	}
	return nil, nil
}

func (s *stubStore) FindByEmail(_ context.Context, email string) (*model.Customer, error) {
	s.finds++
	if s.err != nil {
		return nil, s.err
	}
	for i := range s.customers {
		if s.customers[i].Email != nil && *s.customers[i].Email == email {
			c := s.customers[i]
			return &c, nil
		}
	}
	return nil, nil
}

func (s *stubStore) Create(_ context.Context, c model.Customer) error {
	s.creates++
	if s.err != nil {
		return s.err
	}
	s.customers = append(s.customers, c)
	return nil
}

func (s *stubStore) Update(_ context.Context, c model.Customer) error {
	s.updates++
	if s.err != nil {
		return s.err
	}
	for i := range s.customers {
		if s.customers[i].ID == c.ID {
			s.customers[i] = c
			return nil
		}
	}
	return errors.New("update: no such customer")
}

func ptr(s string) *string { return &s }

func newService(store *stubStore) *Service {
	return New(store, zap.NewNop())
}

func createdEvent() *model.Event {
	return &model.Event{
		ID:   "msg_1",
		Type: model.EventUserCreated,
		User: model.UserPayload{
			ClerkID:   "user_u1",
			Email:     "a@x.com",
			FirstName: "A",
			LastName:  "B",
			Username:  "A B",
			Avatar:    "https://img.example/a.png",
		},
	}
}

func TestApplyCreatesWhenNoMatch(t *testing.T) {
	store := &stubStore{}
	svc := newService(store)

	out, err := svc.Apply(context.Background(), createdEvent())
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, out)

	require.Len(t, store.customers, 1)
	c := store.customers[0]
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "user_u1", *c.ClerkID)
	assert.Equal(t, "a@x.com", *c.Email)
	assert.Equal(t, "A", c.FirstName)
	assert.Equal(t, "B", c.LastName)
	assert.Equal(t, "A B", c.Username)
	assert.Equal(t, "https://img.example/a.png", *c.Avatar)
}

func TestApplyUpdatesByClerkID(t *testing.T) {
	store := &stubStore{customers: []model.Customer{{
		ID:        "01CUST",
		ClerkID:   ptr("user_u1"),
		Email:     ptr("old@x.com"),
		FirstName: "Old",
	}}}
	svc := newService(store)

	evt := createdEvent()
	evt.Type = model.EventUserUpdated

	out, err := svc.Apply(context.Background(), evt)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, out)
	assert.Equal(t, 0, store.creates, "matching clerk id must never create")

	require.Len(t, store.customers, 1)
	c := store.customers[0]
	assert.Equal(t, "01CUST", c.ID)
	assert.Equal(t, "a@x.com", *c.Email)
	assert.Equal(t, "A", c.FirstName)
}

func TestApplyEmailFallbackAdoptsClerkID(t *testing.T) {
	// record created before the clerk_id field existed
	store := &stubStore{customers: []model.Customer{{
		ID:    "01LEGACY",
		Email: ptr("a@x.com"),
	}}}
	svc := newService(store)

	out, err := svc.Apply(context.Background(), createdEvent())
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, out)

	require.Len(t, store.customers, 1)
	assert.Equal(t, "user_u1", *store.customers[0].ClerkID)
}

func TestApplyEmptyClerkIDMatchesByEmail(t *testing.T) {
	store := &stubStore{customers: []model.Customer{{
		ID:    "01LEGACY",
		Email: ptr("a@x.com"),
	}}}
	svc := newService(store)

	evt := createdEvent()
	evt.User.ClerkID = ""

	out, err := svc.Apply(context.Background(), evt)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, out)
	assert.Equal(t, 0, store.creates)
	assert.Nil(t, store.customers[0].ClerkID) // nothing to adopt
}

func TestApplyIdempotentUnderRedelivery(t *testing.T) {
	store := &stubStore{}
	svc := newService(store)
	ctx := context.Background()

	out, err := svc.Apply(ctx, createdEvent())
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, out)

	out, err = svc.Apply(ctx, createdEvent())
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, out)

	require.Len(t, store.customers, 1)
	c := store.customers[0]
	assert.Equal(t, "user_u1", *c.ClerkID)
	assert.Equal(t, "a@x.com", *c.Email)
	assert.Equal(t, "A B", c.Username)
}

func TestApplyNormalizesEmail(t *testing.T) {
	store := &stubStore{customers: []model.Customer{{
		ID:    "01LEGACY",
		Email: ptr("a@x.com"),
	}}}
	svc := newService(store)

	evt := createdEvent()
	evt.User.ClerkID = ""
	evt.User.Email = "  A@X.COM "

	out, err := svc.Apply(context.Background(), evt)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, out)
	assert.Equal(t, "a@x.com", *store.customers[0].Email)
}

func TestApplyKeepsEmailWhenEventOmitsIt(t *testing.T) {
	store := &stubStore{customers: []model.Customer{{
		ID:      "01CUST",
		ClerkID: ptr("user_u1"),
		Email:   ptr("keep@x.com"),
	}}}
	svc := newService(store)

	evt := createdEvent()
	evt.Type = model.EventUserUpdated
	evt.User.Email = ""

	_, err := svc.Apply(context.Background(), evt)
	require.NoError(t, err)
	assert.Equal(t, "keep@x.com", *store.customers[0].Email)
}

func TestApplyDeleteIsSoftSkip(t *testing.T) {
	existing := model.Customer{
		ID:        "01CUST",
		ClerkID:   ptr("user_u1"),
		Email:     ptr("a@x.com"),
		FirstName: "A",
	}
	store := &stubStore{customers: []model.Customer{existing}}
	svc := newService(store)

	out, err := svc.Apply(context.Background(), &model.Event{
		ID:   "msg_del",
		Type: model.EventUserDeleted,
		User: model.UserPayload{ClerkID: "user_u1"},
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, out)

	// record count never drops, record stays untouched
	require.Len(t, store.customers, 1)
	assert.Equal(t, existing, store.customers[0])
	assert.Equal(t, 0, store.updates)
	assert.Equal(t, 0, store.creates)
}

func TestApplyDeleteForUnknownUser(t *testing.T) {
	store := &stubStore{}
	svc := newService(store)

	out, err := svc.Apply(context.Background(), &model.Event{
		ID:   "msg_del",
		Type: model.EventUserDeleted,
		User: model.UserPayload{ClerkID: "user_ghost"},
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, out)
}

func TestApplyIgnoresUnknownTypesWithoutStoreAccess(t *testing.T) {
	store := &stubStore{}
	svc := newService(store)

	out, err := svc.Apply(context.Background(), &model.Event{
		ID:   "msg_x",
		Type: model.EventType("organization.created"),
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, out)
	assert.Equal(t, 0, store.finds)
	assert.Equal(t, 0, store.creates)
	assert.Equal(t, 0, store.updates)
}

func TestApplyEmptySubjectRejectedBeforeStore(t *testing.T) {
	store := &stubStore{}
	svc := newService(store)

	_, err := svc.Apply(context.Background(), &model.Event{
		ID:   "msg_bad",
		Type: model.EventUserCreated,
	})
	assert.ErrorIs(t, err, ErrEmptySubject)
	assert.Equal(t, 0, store.finds)
	assert.Equal(t, 0, store.creates)
}

func TestApplySurfacesStoreErrors(t *testing.T) {
	boom := errors.New("connection refused")
	store := &stubStore{err: boom}
	svc := newService(store)

	_, err := svc.Apply(context.Background(), createdEvent())
	assert.ErrorIs(t, err, boom)
}
