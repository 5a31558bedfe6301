package store

import (
	"context"
	"sync"
	"time"

	"github.com/coverledger/internal/identity"
	"github.com/coverledger/internal/model"
)

// MemoryIdentities is an in-memory identity.Store. A single mutex makes
// every mutation an atomic read-modify-write, the same contract the
// Postgres store provides with row locks. Used by the test suites and for
// running the API tier without a database in development.
type MemoryIdentities struct {
	mu   sync.Mutex
	seq  int64
	recs map[string]*model.Identity // keyed by lowercase email
}

func NewMemoryIdentities() *MemoryIdentities {
	return &MemoryIdentities{recs: make(map[string]*model.Identity)}
}

func (s *MemoryIdentities) Create(ctx context.Context, rec *model.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := identity.NormalizeEmail(rec.Email)
	if _, ok := s.recs[key]; ok {
		return identity.ErrEmailTaken
	}
	s.seq++
	rec.ID = s.seq
	rec.Email = key
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	cp := *rec
	s.recs[key] = &cp
	return nil
}

func (s *MemoryIdentities) GetByEmail(ctx context.Context, email string) (*model.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.recs[identity.NormalizeEmail(email)]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryIdentities) GetByID(ctx context.Context, id int64) (*model.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.recs {
		if rec.ID == id {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, identity.ErrUserNotFound
}

func (s *MemoryIdentities) List(ctx context.Context) ([]model.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Identity, 0, len(s.recs))
	for _, rec := range s.recs {
		out = append(out, *rec)
	}
	return out, nil
}

func (s *MemoryIdentities) CountByRole(ctx context.Context, role model.Role) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countLocked(role), nil
}

func (s *MemoryIdentities) countLocked(role model.Role) int {
	n := 0
	for _, rec := range s.recs {
		if rec.Role == role {
			n++
		}
	}
	return n
}

// lockedView exposes reads to a MutateFunc while the store mutex is held.
type lockedView struct {
	s *MemoryIdentities
}

func (v lockedView) CountByRole(ctx context.Context, role model.Role) (int, error) {
	return v.s.countLocked(role), nil
}

func (s *MemoryIdentities) mutate(ctx context.Context, find func() *model.Identity, notFound error, fn identity.MutateFunc) (*model.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := find()
	if rec == nil {
		return nil, notFound
	}
	// fn edits a copy; the stored record only changes if fn succeeds.
	cp := *rec
	if err := fn(ctx, lockedView{s}, &cp); err != nil {
		return nil, err
	}
	*rec = cp
	out := cp
	return &out, nil
}

func (s *MemoryIdentities) Mutate(ctx context.Context, email string, fn identity.MutateFunc) (*model.Identity, error) {
	key := identity.NormalizeEmail(email)
	return s.mutate(ctx, func() *model.Identity {
		return s.recs[key]
	}, identity.ErrUserNotFound, fn)
}

func (s *MemoryIdentities) MutateByToken(ctx context.Context, token string, fn identity.MutateFunc) (*model.Identity, error) {
	return s.mutate(ctx, func() *model.Identity {
		if token == "" {
			return nil
		}
		for _, rec := range s.recs {
			if rec.PendingToken == token {
				return rec
			}
		}
		return nil
	}, identity.ErrTokenNotFound, fn)
}

func (s *MemoryIdentities) MutateByVerifyCode(ctx context.Context, code string, fn identity.MutateFunc) (*model.Identity, error) {
	return s.mutate(ctx, func() *model.Identity {
		if code == "" {
			return nil
		}
		for _, rec := range s.recs {
			if rec.VerifyCode == code {
				return rec
			}
		}
		return nil
	}, identity.ErrCodeNotFound, fn)
}

func (s *MemoryIdentities) MutateByResetToken(ctx context.Context, token string, fn identity.MutateFunc) (*model.Identity, error) {
	return s.mutate(ctx, func() *model.Identity {
		if token == "" {
			return nil
		}
		for _, rec := range s.recs {
			if rec.ResetToken == token {
				return rec
			}
		}
		return nil
	}, identity.ErrTokenNotFound, fn)
}

func (s *MemoryIdentities) Delete(ctx context.Context, id int64, guard identity.MutateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, rec := range s.recs {
		if rec.ID != id {
			continue
		}
		cp := *rec
		if guard != nil {
			if err := guard(ctx, lockedView{s}, &cp); err != nil {
				return err
			}
		}
		delete(s.recs, key)
		return nil
	}
	return identity.ErrUserNotFound
}
