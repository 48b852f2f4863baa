package service

import (
	"context"
	"sync"
	"time"

	"github.com/coursekit/course-service/internal/domain"
	"github.com/coursekit/course-service/internal/enrollment"
	"github.com/coursekit/course-service/internal/events"
	"github.com/coursekit/course-service/internal/payments"
	"github.com/coursekit/course-service/internal/storage"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type fixedCodes struct {
	mu    sync.Mutex
	codes []string
	next  int
}

func (f *fixedCodes) NextCode() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	code := f.codes[f.next%len(f.codes)]
	f.next++
	return code, nil
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) handle(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeLimiter struct {
	mu      sync.Mutex
	limit   int
	counts  map[string]int
	resets  int
	failing error
}

func (l *fakeLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failing != nil {
		return false, 0, l.failing
	}
	if l.counts == nil {
		l.counts = map[string]int{}
	}
	l.counts[key]++
	if l.counts[key] > l.limit {
		return false, 42 * time.Second, nil
	}
	return true, 0, nil
}

func (l *fakeLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.counts, key)
	l.resets++
	return nil
}

type fakeGateway struct {
	mu     sync.Mutex
	calls  []payments.ChargeParams
	result *payments.ChargeResult
	err    error
	// entered and release, when set, hold Charge until the test lets it go.
	entered chan struct{}
	release chan struct{}
}

func (g *fakeGateway) Charge(_ context.Context, params payments.ChargeParams) (*payments.ChargeResult, error) {
	g.mu.Lock()
	g.calls = append(g.calls, params)
	g.mu.Unlock()
	if g.entered != nil {
		g.entered <- struct{}{}
		<-g.release
	}
	if g.err != nil {
		return nil, g.err
	}
	return g.result, nil
}

func (g *fakeGateway) chargeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

type fakeUploader struct {
	keys []string
	err  error
}

func (u *fakeUploader) Put(_ context.Context, key string, data []byte, contentType string) (*storage.Object, error) {
	if u.err != nil {
		return nil, u.err
	}
	u.keys = append(u.keys, key)
	return &storage.Object{
		Key:       key,
		PublicURL: "https://cdn.example.com/" + key,
		MimeType:  contentType,
		Size:      int64(len(data)),
	}, nil
}

type harness struct {
	store      *memStore
	clock      *testClock
	dispatcher events.Dispatcher
	events     *recorder
	deps       Dependencies
}

func newHarness(now time.Time) *harness {
	h := &harness{
		store:      newMemStore(),
		clock:      &testClock{now: now},
		dispatcher: events.NewInMemoryDispatcher(),
		events:     &recorder{},
	}
	for _, t := range []events.EventType{
		events.EventUserRegistered,
		events.EventAttendanceCodeIssued,
		events.EventAttendanceValidated,
		events.EventAttendanceApproved,
		events.EventAttendanceRejected,
		events.EventPaymentCompleted,
		events.EventPasswordResetRequested,
	} {
		h.dispatcher.Subscribe(t, h.events.handle)
	}
	h.deps = Dependencies{Store: h.store, Dispatcher: h.dispatcher, Clock: h.clock}
	return h
}

func (h *harness) attendance(codes ...string) enrollment.Attendance {
	return enrollment.Attendance{Source: &fixedCodes{codes: codes}, MaxDraws: 5}
}

func at(year int, month time.Month, day, hour int) time.Time {
	return time.Date(year, month, day, hour, 0, 0, 0, time.UTC)
}

func seedCourse(s *memStore, id string, limit int) *domain.Course {
	return s.putCourse(&domain.Course{
		ID:              id,
		Name:            "First Aid " + id,
		Location:        "Room 1",
		Currency:        "THB",
		EnrollmentLimit: limit,
		CourseDate:      at(2024, time.January, 1, 9),
		Hours:           2,
		ApplicationPeriod: domain.ApplicationPeriod{
			StartDate: at(2023, time.December, 1, 0),
			EndDate:   at(2023, time.December, 31, 0),
		},
		RegisteredUsers: []domain.UserSummary{},
		WaitingList:     []domain.WaitingEntry{},
	})
}

func seedUser(s *memStore, id string) *domain.User {
	return s.putUser(&domain.User{
		ID:           id,
		Name:         "User " + id,
		Email:        id + "@example.com",
		Role:         domain.RoleUser,
		TrainingInfo: []domain.TrainingRecord{},
	})
}
