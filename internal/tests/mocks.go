package tests

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"hyre/internal/domain"
	"hyre/internal/payments"
	"hyre/internal/redis"
	"hyre/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK CAR REPOSITORY
// ──────────────────────────────────────────────

// MockCarRepository is a mock implementation of CarRepository.
type MockCarRepository struct {
	mu   sync.RWMutex
	cars map[string]*domain.Car

	// Error injection
	GetByIDError error
}

// NewMockCarRepository creates a new mock car repository.
func NewMockCarRepository() *MockCarRepository {
	return &MockCarRepository{
		cars: make(map[string]*domain.Car),
	}
}

// AddCar adds a car to the mock repository.
func (m *MockCarRepository) AddCar(car *domain.Car) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cars[car.ID] = car
}

func (m *MockCarRepository) Create(ctx context.Context, car *domain.Car) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cars[car.ID] = car
	return nil
}

func (m *MockCarRepository) GetByID(ctx context.Context, id string) (*domain.Car, error) {
	if m.GetByIDError != nil {
		return nil, m.GetByIDError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	car, ok := m.cars[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	// Return a copy to avoid mutation issues.
	copy := *car
	return &copy, nil
}

func (m *MockCarRepository) GetAll(ctx context.Context) ([]*domain.Car, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Car, 0, len(m.cars))
	for _, c := range m.cars {
		copy := *c
		result = append(result, &copy)
	}
	return result, nil
}

// ──────────────────────────────────────────────
// MOCK BOOKING REPOSITORY
// ──────────────────────────────────────────────

// MockBookingRepository is a mock implementation of BookingRepository.
type MockBookingRepository struct {
	mu       sync.RWMutex
	bookings map[string]*domain.Booking

	// EffectiveEnds overrides a booking's end date in CompleteDue, standing
	// in for the paid-extension subquery the real store runs.
	EffectiveEnds map[string]time.Time

	// Counters for verification
	CreateCallCount         int32
	UpdateStatusIfCallCount int32

	// Error injection
	CreateError          error
	FindOverlappingError error
	UpdateStatusIfError  error
}

// NewMockBookingRepository creates a new mock booking repository.
func NewMockBookingRepository() *MockBookingRepository {
	return &MockBookingRepository{
		bookings:      make(map[string]*domain.Booking),
		EffectiveEnds: make(map[string]time.Time),
	}
}

// AddBooking adds a booking to the mock repository.
func (m *MockBookingRepository) AddBooking(booking *domain.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings[booking.ID] = booking
}

func (m *MockBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings[booking.ID] = booking
	return nil
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	booking, ok := m.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	// Return a copy to avoid mutation issues.
	copy := *booking
	return &copy, nil
}

func (m *MockBookingRepository) GetByReference(ctx context.Context, reference string) (*domain.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, b := range m.bookings {
		if b.BookingReference == reference {
			copy := *b
			return &copy, nil
		}
	}
	return nil, nil
}

func (m *MockBookingRepository) GetAll(ctx context.Context) ([]*domain.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Booking, 0, len(m.bookings))
	for _, b := range m.bookings {
		copy := *b
		result = append(result, &copy)
	}
	return result, nil
}

func (m *MockBookingRepository) FindOverlapping(ctx context.Context, filter repository.OverlapFilter) ([]*domain.Booking, error) {
	if m.FindOverlappingError != nil {
		return nil, m.FindOverlappingError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*domain.Booking
	for _, b := range m.bookings {
		if b.CarID != filter.CarID || b.ID == filter.ExcludeBookingID {
			continue
		}
		if b.PaymentStatus != filter.PaymentStatus {
			continue
		}
		statusMatch := false
		for _, s := range filter.Statuses {
			if b.Status == s {
				statusMatch = true
				break
			}
		}
		if !statusMatch {
			continue
		}
		// Strict-inequality overlap, same as the SQL query.
		if b.StartDate.Before(filter.WindowEnd) && b.EndDate.After(filter.WindowStart) {
			copy := *b
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m *MockBookingRepository) UpdateStatusIf(ctx context.Context, id string, from domain.BookingStatus, to domain.BookingStatus, paymentStatus domain.PaymentStatus) (bool, error) {
	atomic.AddInt32(&m.UpdateStatusIfCallCount, 1)
	if m.UpdateStatusIfError != nil {
		return false, m.UpdateStatusIfError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	booking, ok := m.bookings[id]
	if !ok || booking.Status != from {
		return false, nil
	}
	booking.Status = to
	booking.PaymentStatus = paymentStatus
	return true, nil
}

func (m *MockBookingRepository) Cancel(ctx context.Context, id string, reason string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	booking, ok := m.bookings[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	if !booking.IsCancellable() {
		return false, nil
	}
	booking.Status = domain.BookingStatusCancelled
	booking.CancelReason = reason
	booking.CancelledAt = at
	return true, nil
}

func (m *MockBookingRepository) ActivateDue(ctx context.Context, now time.Time) ([]*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*domain.Booking
	for _, b := range m.bookings {
		if b.Status != domain.BookingStatusConfirmed || b.PaymentStatus != domain.PaymentStatusPaid {
			continue
		}
		if b.StartDate.After(now) {
			continue
		}
		b.Status = domain.BookingStatusActive
		copy := *b
		result = append(result, &copy)
	}
	return result, nil
}

func (m *MockBookingRepository) CompleteDue(ctx context.Context, now time.Time) ([]*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*domain.Booking
	for _, b := range m.bookings {
		if b.Status != domain.BookingStatusActive || b.PaymentStatus != domain.PaymentStatusPaid {
			continue
		}
		effectiveEnd := b.EndDate
		if override, ok := m.EffectiveEnds[b.ID]; ok {
			effectiveEnd = override
		}
		if effectiveEnd.After(now) {
			continue
		}
		b.Status = domain.BookingStatusCompleted
		copy := *b
		result = append(result, &copy)
	}
	return result, nil
}

// GetBooking returns the booking by ID (for test assertions).
func (m *MockBookingRepository) GetBooking(id string) *domain.Booking {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bookings[id]
}

// ──────────────────────────────────────────────
// MOCK BOOKING LEG REPOSITORY
// ──────────────────────────────────────────────

// MockBookingLegRepository is a mock implementation of BookingLegRepository.
type MockBookingLegRepository struct {
	mu   sync.RWMutex
	legs map[string]*domain.BookingLeg
}

// NewMockBookingLegRepository creates a new mock leg repository.
func NewMockBookingLegRepository() *MockBookingLegRepository {
	return &MockBookingLegRepository{
		legs: make(map[string]*domain.BookingLeg),
	}
}

// AddLeg adds a leg to the mock repository.
func (m *MockBookingLegRepository) AddLeg(leg *domain.BookingLeg) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.legs[leg.ID] = leg
}

func (m *MockBookingLegRepository) Create(ctx context.Context, leg *domain.BookingLeg) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.legs[leg.ID] = leg
	return nil
}

func (m *MockBookingLegRepository) GetByBookingID(ctx context.Context, bookingID string) ([]*domain.BookingLeg, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.BookingLeg
	for _, l := range m.legs {
		if l.BookingID == bookingID {
			copy := *l
			result = append(result, &copy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].LegDate.Before(result[j].LegDate)
	})
	return result, nil
}

// ──────────────────────────────────────────────
// MOCK EXTENSION REPOSITORY
// ──────────────────────────────────────────────

// MockExtensionRepository is a mock implementation of ExtensionRepository.
type MockExtensionRepository struct {
	mu         sync.RWMutex
	extensions map[string]*domain.Extension

	// Counters for verification
	CreateCallCount         int32
	UpdateWindowIfCallCount int32

	// Error injection
	CreateError error

	// ForceUpdateWindowMiss makes UpdateWindowIf report a guard miss, as if
	// a concurrent writer confirmed the row first.
	ForceUpdateWindowMiss bool
}

// NewMockExtensionRepository creates a new mock extension repository.
func NewMockExtensionRepository() *MockExtensionRepository {
	return &MockExtensionRepository{
		extensions: make(map[string]*domain.Extension),
	}
}

// AddExtension adds an extension to the mock repository.
func (m *MockExtensionRepository) AddExtension(ext *domain.Extension) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.extensions[ext.ID] = ext
}

func (m *MockExtensionRepository) Create(ctx context.Context, ext *domain.Extension) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.extensions[ext.ID] = ext
	return nil
}

func (m *MockExtensionRepository) GetByID(ctx context.Context, id string) (*domain.Extension, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ext, ok := m.extensions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *ext
	return &copy, nil
}

func (m *MockExtensionRepository) GetByPaymentIntentID(ctx context.Context, intentID string) (*domain.Extension, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.extensions {
		if e.PaymentIntentID == intentID {
			copy := *e
			return &copy, nil
		}
	}
	return nil, nil
}

func (m *MockExtensionRepository) GetByLegID(ctx context.Context, legID string) ([]*domain.Extension, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Extension
	for _, e := range m.extensions {
		if e.BookingLegID == legID {
			copy := *e
			result = append(result, &copy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartTime.Before(result[j].StartTime)
	})
	return result, nil
}

func (m *MockExtensionRepository) UpdateWindowIf(ctx context.Context, id string, endTime time.Time, totalAmount float64, paymentIntentID string) (bool, error) {
	atomic.AddInt32(&m.UpdateWindowIfCallCount, 1)
	if m.ForceUpdateWindowMiss {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ext, ok := m.extensions[id]
	if !ok {
		return false, nil
	}
	if ext.Status != domain.ExtensionStatusPending || ext.PaymentStatus != domain.PaymentStatusUnpaid {
		return false, nil
	}
	ext.EndTime = endTime
	ext.TotalAmount = totalAmount
	ext.PaymentIntentID = paymentIntentID
	return true, nil
}

func (m *MockExtensionRepository) UpdateStatusIf(ctx context.Context, id string, from domain.ExtensionStatus, to domain.ExtensionStatus, paymentStatus domain.PaymentStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ext, ok := m.extensions[id]
	if !ok || ext.Status != from {
		return false, nil
	}
	ext.Status = to
	ext.PaymentStatus = paymentStatus
	return true, nil
}

// GetExtension returns the extension by ID (for test assertions).
func (m *MockExtensionRepository) GetExtension(id string) *domain.Extension {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.extensions[id]
}

// CountExtensions returns the number of stored extensions.
func (m *MockExtensionRepository) CountExtensions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.extensions)
}

// ExtensionsForLeg returns the stored extensions on a leg for assertions.
func (m *MockExtensionRepository) ExtensionsForLeg(legID string) []*domain.Extension {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Extension
	for _, e := range m.extensions {
		if e.BookingLegID == legID {
			result = append(result, e)
		}
	}
	return result
}

// ──────────────────────────────────────────────
// MOCK PAYMENT REPOSITORY
// ──────────────────────────────────────────────

// MockPaymentRepository is a mock implementation of PaymentRepository keyed
// by tx_ref, mirroring the unique constraint the real store relies on.
type MockPaymentRepository struct {
	mu       sync.RWMutex
	payments map[string]*domain.Payment // keyed by tx_ref

	// Counters
	UpsertCallCount int32

	// Error injection
	UpsertError error
}

// NewMockPaymentRepository creates a new mock payment repository.
func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{
		payments: make(map[string]*domain.Payment),
	}
}

func (m *MockPaymentRepository) Upsert(ctx context.Context, payment *domain.Payment) (*domain.Payment, error) {
	atomic.AddInt32(&m.UpsertCallCount, 1)
	if m.UpsertError != nil {
		return nil, m.UpsertError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.payments[payment.TxRef]
	if ok {
		existing.ProviderChargeID = payment.ProviderChargeID
		existing.Amount = payment.Amount
		existing.Status = payment.Status
		copy := *existing
		return &copy, nil
	}
	stored := *payment
	m.payments[payment.TxRef] = &stored
	copy := stored
	return &copy, nil
}

func (m *MockPaymentRepository) GetByTxRef(ctx context.Context, txRef string) (*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	payment, ok := m.payments[txRef]
	if !ok {
		return nil, nil
	}
	copy := *payment
	return &copy, nil
}

// CountPayments returns the number of stored payments.
func (m *MockPaymentRepository) CountPayments() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.payments)
}

// ──────────────────────────────────────────────
// MOCK PAYMENT PROVIDER
// ──────────────────────────────────────────────

// MockPaymentProvider is a mock implementation of the payment provider
// client.
type MockPaymentProvider struct {
	mu sync.Mutex

	// Verification is returned by VerifyTransaction.
	Verification *payments.Verification

	// Error injection
	CreateIntentError error
	VerifyError       error

	// Counters
	CreateIntentCallCount int32
	VerifyCallCount       int32

	// Recorded calls for assertions
	CreatedIntents []payments.IntentMetadata
	CreatedAmounts []float64
}

// NewMockPaymentProvider creates a new mock payment provider.
func NewMockPaymentProvider() *MockPaymentProvider {
	return &MockPaymentProvider{}
}

func (m *MockPaymentProvider) CreatePaymentIntent(ctx context.Context, amount float64, meta payments.IntentMetadata) (*payments.Intent, error) {
	atomic.AddInt32(&m.CreateIntentCallCount, 1)
	if m.CreateIntentError != nil {
		return nil, m.CreateIntentError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreatedIntents = append(m.CreatedIntents, meta)
	m.CreatedAmounts = append(m.CreatedAmounts, amount)
	return &payments.Intent{
		PaymentIntentID: meta.TxRef,
		CheckoutURL:     "https://checkout.test/" + meta.TxRef,
	}, nil
}

func (m *MockPaymentProvider) VerifyTransaction(ctx context.Context, providerChargeID string) (*payments.Verification, error) {
	atomic.AddInt32(&m.VerifyCallCount, 1)
	if m.VerifyError != nil {
		return nil, m.VerifyError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Verification == nil {
		return nil, errors.New("mock: no verification configured")
	}
	copy := *m.Verification
	return &copy, nil
}

// LastIntent returns the most recently created intent metadata.
func (m *MockPaymentProvider) LastIntent() payments.IntentMetadata {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.CreatedIntents) == 0 {
		return payments.IntentMetadata{}
	}
	return m.CreatedIntents[len(m.CreatedIntents)-1]
}

// ──────────────────────────────────────────────
// MOCK EVENT PUBLISHER
// ──────────────────────────────────────────────

// PublishedEvent is one event captured by the mock publisher.
type PublishedEvent struct {
	Key   string
	Value any
}

// MockEventPublisher is a mock implementation of EventPublisher.
type MockEventPublisher struct {
	mu     sync.Mutex
	events []PublishedEvent

	// Error injection
	PublishError error
}

// NewMockEventPublisher creates a new mock event publisher.
func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{}
}

func (m *MockEventPublisher) PublishJSON(ctx context.Context, key string, v any) error {
	if m.PublishError != nil {
		return m.PublishError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, PublishedEvent{Key: key, Value: v})
	return nil
}

// Events returns all captured events.
func (m *MockEventPublisher) Events() []PublishedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]PublishedEvent, len(m.events))
	copy(result, m.events)
	return result
}

// CountByKey returns how many events were published under a routing key.
func (m *MockEventPublisher) CountByKey(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, e := range m.events {
		if e.Key == key {
			count++
		}
	}
	return count
}

// ──────────────────────────────────────────────
// MOCK SESSION STORE
// ──────────────────────────────────────────────

// MockSessionStore is a mock implementation of SessionStore.
type MockSessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*redis.CheckoutSession

	// Counters
	DeleteCallCount int32
}

// NewMockSessionStore creates a new mock session store.
func NewMockSessionStore() *MockSessionStore {
	return &MockSessionStore{
		sessions: make(map[string]*redis.CheckoutSession),
	}
}

func (m *MockSessionStore) Put(ctx context.Context, session *redis.CheckoutSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.TxRef] = session
	return nil
}

func (m *MockSessionStore) Get(ctx context.Context, txRef string) (*redis.CheckoutSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[txRef]
	if !ok {
		return nil, nil
	}
	copy := *session
	return &copy, nil
}

func (m *MockSessionStore) Delete(ctx context.Context, txRef string) error {
	atomic.AddInt32(&m.DeleteCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, txRef)
	return nil
}

// HasSession reports whether a session exists (for test assertions).
func (m *MockSessionStore) HasSession(txRef string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.sessions[txRef]
	return ok
}

// ──────────────────────────────────────────────
// HELPER ERRORS
// ──────────────────────────────────────────────

var (
	ErrMockDBDown       = errors.New("mock: database unavailable")
	ErrMockProviderDown = errors.New("mock: provider unreachable")
)
