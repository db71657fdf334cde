package services

import (
	"context"
	"strconv"
	"sync"
	"time"

	"delivery-tracking-service/internal/domain"
)

type fakeRegistry struct {
	drivers map[string]*domain.Driver
	orders  map[string][]*domain.Order
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		drivers: make(map[string]*domain.Driver),
		orders:  make(map[string][]*domain.Order),
	}
}

func (r *fakeRegistry) FindDriver(_ context.Context, driverID string) (*domain.Driver, error) {
	return r.drivers[driverID], nil
}

func (r *fakeRegistry) ActiveOrdersForDriver(_ context.Context, driverID string) ([]*domain.Order, error) {
	active := make([]*domain.Order, 0)
	for _, order := range r.orders[driverID] {
		if !order.Status.Terminal() {
			active = append(active, order)
		}
	}
	return active, nil
}

type fakeTrackingStore struct {
	mu        sync.Mutex
	samples   []*domain.TrackingSample
	nextSeq   int64
	appendErr error
}

func (s *fakeTrackingStore) Append(_ context.Context, sample *domain.TrackingSample) (*domain.TrackingSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.appendErr != nil {
		return nil, s.appendErr
	}

	s.nextSeq++
	stored := *sample
	stored.IngestSequence = s.nextSeq
	stored.ID = strconv.FormatInt(s.nextSeq, 10)
	s.samples = append(s.samples, &stored)
	return &stored, nil
}

func (s *fakeTrackingStore) ListRecent(_ context.Context, orderID string, limit int) ([]*domain.TrackingSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.TrackingSample, 0, limit)
	for i := len(s.samples) - 1; i >= 0 && len(out) < limit; i-- {
		if s.samples[i].OrderID == orderID {
			out = append(out, s.samples[i])
		}
	}
	return out, nil
}

func (s *fakeTrackingStore) LatestForDriver(_ context.Context, driverID string) (*domain.TrackingSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.samples) - 1; i >= 0; i-- {
		if s.samples[i].DriverID == driverID {
			return s.samples[i], nil
		}
	}
	return nil, nil
}

type fakePlanStore struct {
	mu      sync.Mutex
	plans   []*domain.RoutePlan
	nextID  int64
	saveErr error
}

func (s *fakePlanStore) Save(_ context.Context, plan *domain.RoutePlan) (*domain.RoutePlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.saveErr != nil {
		return nil, s.saveErr
	}

	s.nextID++
	stored := *plan
	stored.ID = s.nextID
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	s.plans = append(s.plans, &stored)
	return &stored, nil
}

func (s *fakePlanStore) LatestFor(_ context.Context, driverID string) (*domain.RoutePlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *domain.RoutePlan
	for _, plan := range s.plans {
		if plan.DriverID != driverID {
			continue
		}
		if latest == nil || plan.CreatedAt.After(latest.CreatedAt) || (plan.CreatedAt.Equal(latest.CreatedAt) && plan.ID > latest.ID) {
			latest = plan
		}
	}
	return latest, nil
}
