package service

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/coursekit/course-service/internal/domain"
	"github.com/coursekit/course-service/internal/repository"
)

// memStore is an in-memory repository.Store. Transactions are serialized by
// txMu, which stands in for the row locks taken by the Postgres store, and a
// failed transaction restores the snapshot taken when it began.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex
	seq  int

	users    map[string]*domain.User
	courses  map[string]*domain.Course
	history  []domain.CourseHistory
	payments map[string]*domain.Payment
	assets   []domain.Asset
	resets   map[string]*domain.PasswordResetToken

	failCourseUpdate error
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[string]*domain.User{},
		courses:  map[string]*domain.Course{},
		payments: map[string]*domain.Payment{},
		resets:   map[string]*domain.PasswordResetToken{},
	}
}

func (s *memStore) Repos() repository.Repositories {
	return repository.Repositories{
		Users:          memUsers{s},
		Courses:        memCourses{s},
		History:        memHistory{s},
		Payments:       memPayments{s},
		Assets:         memAssets{s},
		PasswordResets: memResets{s},
	}
}

func (s *memStore) WithTx(_ context.Context, fn func(repository.Repositories) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(s.Repos()); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type memSnapshot struct {
	users    map[string]*domain.User
	courses  map[string]*domain.Course
	history  []domain.CourseHistory
	payments map[string]*domain.Payment
	assets   []domain.Asset
	resets   map[string]*domain.PasswordResetToken
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := memSnapshot{
		users:    map[string]*domain.User{},
		courses:  map[string]*domain.Course{},
		history:  append([]domain.CourseHistory(nil), s.history...),
		payments: map[string]*domain.Payment{},
		assets:   append([]domain.Asset(nil), s.assets...),
		resets:   map[string]*domain.PasswordResetToken{},
	}
	for k, v := range s.users {
		snap.users[k] = cloneUser(v)
	}
	for k, v := range s.courses {
		snap.courses[k] = cloneCourse(v)
	}
	for k, v := range s.payments {
		p := *v
		snap.payments[k] = &p
	}
	for k, v := range s.resets {
		r := *v
		snap.resets[k] = &r
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users, s.courses, s.history = snap.users, snap.courses, snap.history
	s.payments, s.assets, s.resets = snap.payments, snap.assets, snap.resets
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return prefix + "-" + strconv.Itoa(s.seq)
}

// seed helpers bypass transactions.

func (s *memStore) putUser(u *domain.User) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.Status == "" {
		u.Status = domain.UserStatusActive
	}
	s.users[u.ID] = cloneUser(u)
	return u
}

func (s *memStore) putCourse(c *domain.Course) *domain.Course {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.courses[c.ID] = cloneCourse(c)
	return c
}

func (s *memStore) user(id string) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		return cloneUser(u)
	}
	return nil
}

func (s *memStore) course(id string) *domain.Course {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.courses[id]; ok {
		return cloneCourse(c)
	}
	return nil
}

func (s *memStore) historyTypes(courseID string) []domain.CourseChangeType {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.CourseChangeType
	for _, h := range s.history {
		if h.CourseID == courseID {
			out = append(out, h.ChangeType)
		}
	}
	return out
}

type memUsers struct{ s *memStore }

func (r memUsers) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user.ID = r.s.nextID("user")
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	r.s.users[user.ID] = cloneUser(user)
	return nil
}

func (r memUsers) Update(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	user.UpdatedAt = time.Now()
	r.s.users[user.ID] = cloneUser(user)
	return nil
}

func (r memUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u, ok := r.s.users[id]; ok {
		return cloneUser(u), nil
	}
	return nil, pgx.ErrNoRows
}

func (r memUsers) GetByIDForUpdate(ctx context.Context, id string) (*domain.User, error) {
	return r.GetByID(ctx, id)
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, pgx.ErrNoRows
}

type memCourses struct{ s *memStore }

func (r memCourses) Create(_ context.Context, course *domain.Course) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	course.ID = r.s.nextID("course")
	course.CreatedAt = time.Now()
	course.UpdatedAt = course.CreatedAt
	r.s.courses[course.ID] = cloneCourse(course)
	return nil
}

func (r memCourses) Update(_ context.Context, course *domain.Course) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failCourseUpdate != nil {
		return r.s.failCourseUpdate
	}
	if _, ok := r.s.courses[course.ID]; !ok {
		return pgx.ErrNoRows
	}
	course.UpdatedAt = time.Now()
	r.s.courses[course.ID] = cloneCourse(course)
	return nil
}

func (r memCourses) GetByID(_ context.Context, id string) (*domain.Course, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c, ok := r.s.courses[id]; ok {
		return cloneCourse(c), nil
	}
	return nil, pgx.ErrNoRows
}

func (r memCourses) GetByIDForUpdate(ctx context.Context, id string) (*domain.Course, error) {
	return r.GetByID(ctx, id)
}

func (r memCourses) GetByActiveCodeForUpdate(_ context.Context, code string) (*domain.Course, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var found *domain.Course
	for _, c := range r.s.courses {
		if c.ActiveCode == nil || c.ActiveCode.Code != code {
			continue
		}
		if found == nil || c.ActiveCode.IssuedAt.After(found.ActiveCode.IssuedAt) {
			found = c
		}
	}
	if found == nil {
		return nil, pgx.ErrNoRows
	}
	return cloneCourse(found), nil
}

func (r memCourses) ActiveCodeInUse(_ context.Context, code, excludeCourseID string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, c := range r.s.courses {
		if id == excludeCourseID || c.ActiveCode == nil {
			continue
		}
		if c.ActiveCode.Code == code && !c.ActiveCode.ExpiresAt.Before(at) {
			return true, nil
		}
	}
	return false, nil
}

func (r memCourses) List(_ context.Context, limit, offset int) ([]domain.Course, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := make([]domain.Course, 0, len(r.s.courses))
	for _, c := range r.s.courses {
		all = append(all, *cloneCourse(c))
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CourseDate.Equal(all[j].CourseDate) {
			return all[i].CourseDate.Before(all[j].CourseDate)
		}
		return all[i].ID < all[j].ID
	})
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

type memHistory struct{ s *memStore }

func (r memHistory) Create(_ context.Context, h *domain.CourseHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	h.ID = r.s.nextID("history")
	h.CreatedAt = time.Now()
	r.s.history = append(r.s.history, *h)
	return nil
}

func (r memHistory) ListByCourse(_ context.Context, courseID string) ([]domain.CourseHistory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.CourseHistory
	for _, h := range r.s.history {
		if h.CourseID == courseID {
			out = append(out, h)
		}
	}
	return out, nil
}

type memPayments struct{ s *memStore }

func (r memPayments) Create(_ context.Context, p *domain.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.payments {
		if existing.UserID == p.UserID && existing.CourseID == p.CourseID && isOpenPayment(existing.Status) {
			return &pgconn.PgError{Code: "23505", ConstraintName: "payments_open_per_course"}
		}
	}
	p.ID = r.s.nextID("payment")
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	r.s.payments[p.ID] = &cp
	return nil
}

func (r memPayments) UpdateStatus(_ context.Context, p *domain.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.payments[p.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.Status, stored.ProviderPaymentID, stored.ReceiptURL = p.Status, p.ProviderPaymentID, p.ReceiptURL
	return nil
}

func (r memPayments) GetByIdempotencyKey(_ context.Context, key string) (*domain.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.payments {
		if p.IdempotencyKey == key {
			cp := *p
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r memPayments) GetCompleted(_ context.Context, userID, courseID string) (*domain.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.payments {
		if p.UserID == userID && p.CourseID == courseID && p.Status == domain.PaymentStatusCompleted {
			cp := *p
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r memPayments) GetOpen(_ context.Context, userID, courseID string) (*domain.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.payments {
		if p.UserID == userID && p.CourseID == courseID && isOpenPayment(p.Status) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func isOpenPayment(status domain.PaymentStatus) bool {
	return status == domain.PaymentStatusPending || status == domain.PaymentStatusCompleted
}

type memAssets struct{ s *memStore }

func (r memAssets) Create(_ context.Context, a *domain.Asset) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a.ID = r.s.nextID("asset")
	a.CreatedAt = time.Now()
	r.s.assets = append(r.s.assets, *a)
	return nil
}

func (r memAssets) ListByCourse(_ context.Context, courseID string) ([]domain.Asset, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Asset
	for _, a := range r.s.assets {
		if a.CourseID == courseID {
			out = append(out, a)
		}
	}
	return out, nil
}

type memResets struct{ s *memStore }

func (r memResets) Create(_ context.Context, t *domain.PasswordResetToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t.ID = r.s.nextID("reset")
	t.CreatedAt = time.Now()
	cp := *t
	r.s.resets[t.Token] = &cp
	return nil
}

func (r memResets) GetByToken(_ context.Context, token string) (*domain.PasswordResetToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t, ok := r.s.resets[token]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, pgx.ErrNoRows
}

func (r memResets) MarkUsed(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.resets {
		if t.ID == id {
			now := time.Now()
			t.UsedAt = &now
		}
	}
	return nil
}
