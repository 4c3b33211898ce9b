package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pscheid92/timecapsule/internal/domain"
)

type responseSlot struct {
	capsuleID    uuid.UUID
	questionDate time.Time
}

// Store holds capsules, responses and users behind a single mutex. It satisfies
// domain.CapsuleRepository, domain.ResponseRepository and domain.UserRepository;
// use Capsules, Responses and Users to get each view.
type Store struct {
	mu        sync.Mutex
	capsules  map[uuid.UUID]domain.Capsule
	responses map[uuid.UUID]domain.Response
	slots     map[responseSlot]uuid.UUID
	users     map[uuid.UUID]domain.User
	now       func() time.Time
}

func NewStore(now func() time.Time) *Store {
	return &Store{
		capsules:  make(map[uuid.UUID]domain.Capsule),
		responses: make(map[uuid.UUID]domain.Response),
		slots:     make(map[responseSlot]uuid.UUID),
		users:     make(map[uuid.UUID]domain.User),
		now:       now,
	}
}

func (s *Store) Capsules() *CapsuleRepo   { return &CapsuleRepo{s: s} }
func (s *Store) Responses() *ResponseRepo { return &ResponseRepo{s: s} }
func (s *Store) Users() *UserRepo         { return &UserRepo{s: s} }

func cloneCapsule(c domain.Capsule) *domain.Capsule {
	c.MediaRefs = slices.Clone(c.MediaRefs)
	if c.InitialSentiment != nil {
		sentiment := *c.InitialSentiment
		c.InitialSentiment = &sentiment
	}
	if c.RevealedAt != nil {
		at := *c.RevealedAt
		c.RevealedAt = &at
	}
	return &c
}

func cloneResponse(r domain.Response) *domain.Response {
	if r.ResponseSentiment != nil {
		sentiment := *r.ResponseSentiment
		r.ResponseSentiment = &sentiment
	}
	return &r
}

type CapsuleRepo struct{ s *Store }

var _ domain.CapsuleRepository = (*CapsuleRepo)(nil)

func (r *CapsuleRepo) Create(_ context.Context, c *domain.Capsule) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.capsules[c.ID] = *cloneCapsule(*c)
	return nil
}

func (r *CapsuleRepo) GetByID(_ context.Context, capsuleID uuid.UUID) (*domain.Capsule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.capsules[capsuleID]
	if !ok {
		return nil, domain.ErrCapsuleNotFound
	}
	return cloneCapsule(c), nil
}

func (r *CapsuleRepo) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]*domain.Capsule, error) {
	return r.filter(func(c domain.Capsule) bool { return c.OwnerID == ownerID }, newestFirst), nil
}

func (r *CapsuleRepo) ListActiveByOwner(_ context.Context, ownerID uuid.UUID, after, until time.Time) ([]*domain.Capsule, error) {
	return r.filter(func(c domain.Capsule) bool {
		return c.OwnerID == ownerID && !c.IsRevealed && c.RevealAt.After(after) && !c.RevealAt.After(until)
	}, newestFirst), nil
}

func (r *CapsuleRepo) ListDue(_ context.Context, now time.Time) ([]*domain.Capsule, error) {
	return r.filter(func(c domain.Capsule) bool {
		return !c.IsRevealed && !c.RevealAt.After(now)
	}, func(a, b *domain.Capsule) int { return a.RevealAt.Compare(b.RevealAt) }), nil
}

func (r *CapsuleRepo) MarkRevealed(_ context.Context, capsuleID uuid.UUID, now time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.capsules[capsuleID]
	if !ok || c.IsRevealed || c.RevealAt.After(now) {
		return false, nil
	}
	c.IsRevealed = true
	c.RevealedAt = &now
	r.s.capsules[capsuleID] = c
	return true, nil
}

func (r *CapsuleRepo) Delete(_ context.Context, capsuleID, ownerID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.capsules[capsuleID]
	if !ok || c.OwnerID != ownerID {
		return domain.ErrCapsuleNotFound
	}
	delete(r.s.capsules, capsuleID)

	for id, resp := range r.s.responses {
		if resp.CapsuleID == capsuleID {
			delete(r.s.responses, id)
			delete(r.s.slots, responseSlot{capsuleID: capsuleID, questionDate: resp.QuestionDate})
		}
	}
	return nil
}

func newestFirst(a, b *domain.Capsule) int { return b.CreatedAt.Compare(a.CreatedAt) }

func (r *CapsuleRepo) filter(keep func(domain.Capsule) bool, order func(a, b *domain.Capsule) int) []*domain.Capsule {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*domain.Capsule
	for _, c := range r.s.capsules {
		if keep(c) {
			out = append(out, cloneCapsule(c))
		}
	}
	slices.SortStableFunc(out, order)
	return out
}

type ResponseRepo struct{ s *Store }

var _ domain.ResponseRepository = (*ResponseRepo)(nil)

func (r *ResponseRepo) Create(_ context.Context, resp *domain.Response) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.capsules[resp.CapsuleID]; !ok {
		return domain.ErrCapsuleNotFound
	}
	slot := responseSlot{capsuleID: resp.CapsuleID, questionDate: resp.QuestionDate}
	if _, taken := r.s.slots[slot]; taken {
		return domain.ErrDuplicateResponse
	}
	r.s.slots[slot] = resp.ID
	r.s.responses[resp.ID] = *cloneResponse(*resp)
	return nil
}

func (r *ResponseRepo) ListByCapsule(_ context.Context, capsuleID uuid.UUID) ([]*domain.Response, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*domain.Response
	for _, resp := range r.s.responses {
		if resp.CapsuleID == capsuleID {
			out = append(out, cloneResponse(resp))
		}
	}
	slices.SortFunc(out, func(a, b *domain.Response) int { return a.QuestionDate.Compare(b.QuestionDate) })
	return out, nil
}

func (r *ResponseRepo) CountByCapsule(_ context.Context, capsuleID uuid.UUID) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n := 0
	for _, resp := range r.s.responses {
		if resp.CapsuleID == capsuleID {
			n++
		}
	}
	return n, nil
}

func (r *ResponseRepo) ExistsForOwnerBetween(_ context.Context, ownerID uuid.UUID, from, to time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, resp := range r.s.responses {
		if resp.OwnerID == ownerID && !resp.CreatedAt.Before(from) && resp.CreatedAt.Before(to) {
			return true, nil
		}
	}
	return false, nil
}

type UserRepo struct{ s *Store }

var _ domain.UserRepository = (*UserRepo)(nil)

func (r *UserRepo) GetByID(_ context.Context, userID uuid.UUID) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (r *UserRepo) Upsert(_ context.Context, userID uuid.UUID, email, displayName string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	u, ok := r.s.users[userID]
	if !ok {
		u = domain.User{ID: userID, CreatedAt: now}
	}
	u.Email = email
	u.DisplayName = displayName
	u.UpdatedAt = now
	r.s.users[userID] = u
	return &u, nil
}
