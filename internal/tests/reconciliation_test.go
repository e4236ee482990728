package tests

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hyre/internal/domain"
	"hyre/internal/payments"
	"hyre/internal/redis"
	"hyre/internal/service"
)

// ──────────────────────────────────────────────
// 4. PAYMENT RECONCILIATION
// ──────────────────────────────────────────────

// reconcileFixture wires a ReconciliationService with real confirmers over
// mocked stores: one PENDING+UNPAID booking and one PENDING+UNPAID extension.
type reconcileFixture struct {
	svc         *service.ReconciliationService
	bookingRepo *MockBookingRepository
	extRepo     *MockExtensionRepository
	paymentRepo *MockPaymentRepository
	provider    *MockPaymentProvider
	publisher   *MockEventPublisher
	sessions    *MockSessionStore
	booking     *domain.Booking
	ext         *domain.Extension
}

func newReconcileFixture() *reconcileFixture {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	booking := &domain.Booking{
		ID:               "booking-1",
		CarID:            "car-1",
		Status:           domain.BookingStatusPending,
		PaymentStatus:    domain.PaymentStatusUnpaid,
		Type:             domain.BookingTypeDay,
		StartDate:        now.AddDate(0, 0, 1),
		EndDate:          now.AddDate(0, 0, 1).Add(8 * time.Hour),
		BookingReference: "HYR-AAAA1111",
		TotalAmount:      45000,
	}
	ext := &domain.Extension{
		ID:              "ext-1",
		BookingLegID:    "leg-1",
		StartTime:       now,
		EndTime:         now.Add(2 * time.Hour),
		Status:          domain.ExtensionStatusPending,
		PaymentStatus:   domain.PaymentStatusUnpaid,
		TotalAmount:     11250,
		PaymentIntentID: "HYX-BBBB2222",
	}

	bookingRepo := NewMockBookingRepository()
	legRepo := NewMockBookingLegRepository()
	extRepo := NewMockExtensionRepository()
	carRepo := NewMockCarRepository()
	paymentRepo := NewMockPaymentRepository()
	provider := NewMockPaymentProvider()
	publisher := NewMockEventPublisher()
	sessions := NewMockSessionStore()

	bookingRepo.AddBooking(booking)
	extRepo.AddExtension(ext)
	carRepo.AddCar(newTestCar("car-1"))

	rates := service.NewStaticRatesProvider(domain.PlatformRates{
		VATRatePercent:         7.5,
		PlatformFeeRatePercent: 5,
		CommissionRatePercent:  15,
	})
	notifier := service.NewNotificationService(publisher, fixedClock(now))
	validator := service.NewDateValidator(11, fixedClock(now))
	availability := service.NewAvailabilityService(carRepo, bookingRepo, 2)

	bookingService := service.NewBookingService(nil, bookingRepo, legRepo, carRepo,
		validator, availability, rates, provider, sessions, notifier, fixedClock(now))
	extensionService := service.NewExtensionService(bookingRepo, legRepo, extRepo, carRepo,
		rates, provider, notifier, fixedClock(now))

	svc := service.NewReconciliationService(provider, bookingRepo, extRepo, paymentRepo,
		bookingService, extensionService, fixedClock(now))

	return &reconcileFixture{
		svc:         svc,
		bookingRepo: bookingRepo,
		extRepo:     extRepo,
		paymentRepo: paymentRepo,
		provider:    provider,
		publisher:   publisher,
		sessions:    sessions,
		booking:     booking,
		ext:         ext,
	}
}

func (f *reconcileFixture) verifyAs(txRef string, amount float64, status string) {
	f.provider.Verification = &payments.Verification{
		ProviderChargeID: "charge-1",
		TxRef:            txRef,
		Status:           status,
		Amount:           amount,
		Currency:         "NGN",
	}
}

func TestReconcile_BookingCharge_Confirms(t *testing.T) {
	t.Parallel()

	f := newReconcileFixture()
	f.verifyAs("HYR-AAAA1111", 45000, "successful")

	err := f.svc.HandleChargeCompleted(context.Background(), service.ChargeCompletedEvent{
		TxRef:            "HYR-AAAA1111",
		ProviderChargeID: "charge-1",
		Amount:           45000,
	})
	require.NoError(t, err)

	booking := f.bookingRepo.GetBooking("booking-1")
	assert.Equal(t, domain.BookingStatusConfirmed, booking.Status)
	assert.Equal(t, domain.PaymentStatusPaid, booking.PaymentStatus)
	assert.Equal(t, 1, f.paymentRepo.CountPayments())
	assert.Equal(t, 1, f.publisher.CountByKey("booking.confirmed"))
}

func TestReconcile_DuplicateEvent_OnePaymentOneConfirmation(t *testing.T) {
	t.Parallel()

	f := newReconcileFixture()
	f.verifyAs("HYR-AAAA1111", 45000, "successful")

	event := service.ChargeCompletedEvent{
		TxRef:            "HYR-AAAA1111",
		ProviderChargeID: "charge-1",
		Amount:           45000,
	}

	require.NoError(t, f.svc.HandleChargeCompleted(context.Background(), event))
	require.NoError(t, f.svc.HandleChargeCompleted(context.Background(), event))

	// The upsert keys by tx_ref, so the replay lands on the same row, and
	// the status guard makes the second confirmation a no-op.
	assert.Equal(t, 1, f.paymentRepo.CountPayments())
	assert.Equal(t, domain.BookingStatusConfirmed, f.bookingRepo.GetBooking("booking-1").Status)
	assert.Equal(t, 1, f.publisher.CountByKey("booking.confirmed"))
}

func TestReconcile_ExtensionCharge_Activates(t *testing.T) {
	t.Parallel()

	f := newReconcileFixture()
	f.verifyAs("HYX-BBBB2222", 11250, "successful")

	err := f.svc.HandleChargeCompleted(context.Background(), service.ChargeCompletedEvent{
		TxRef:            "HYX-BBBB2222",
		ProviderChargeID: "charge-1",
		Amount:           11250,
	})
	require.NoError(t, err)

	ext := f.extRepo.GetExtension("ext-1")
	assert.Equal(t, domain.ExtensionStatusActive, ext.Status)
	assert.Equal(t, domain.PaymentStatusPaid, ext.PaymentStatus)
	assert.Equal(t, 1, f.paymentRepo.CountPayments())
	assert.Equal(t, 1, f.publisher.CountByKey("extension.activated"))
}

func TestReconcile_UnknownTxRef_AcknowledgedWithoutEffect(t *testing.T) {
	t.Parallel()

	f := newReconcileFixture()
	f.verifyAs("HYR-UNKNOWN1", 100, "successful")

	err := f.svc.HandleChargeCompleted(context.Background(), service.ChargeCompletedEvent{
		TxRef:            "HYR-UNKNOWN1",
		ProviderChargeID: "charge-1",
		Amount:           100,
	})

	// Acknowledged: redelivering cannot make the reference known.
	require.NoError(t, err)
	assert.Equal(t, 0, f.paymentRepo.CountPayments())
	assert.Equal(t, domain.BookingStatusPending, f.bookingRepo.GetBooking("booking-1").Status)
}

func TestReconcile_FailedCharge_Ignored(t *testing.T) {
	t.Parallel()

	f := newReconcileFixture()
	f.verifyAs("HYR-AAAA1111", 45000, "failed")

	err := f.svc.HandleChargeCompleted(context.Background(), service.ChargeCompletedEvent{
		TxRef:            "HYR-AAAA1111",
		ProviderChargeID: "charge-1",
		Amount:           45000,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, f.paymentRepo.CountPayments())
	assert.Equal(t, domain.BookingStatusPending, f.bookingRepo.GetBooking("booking-1").Status)
}

func TestReconcile_TxRefMismatch_Ignored(t *testing.T) {
	t.Parallel()

	f := newReconcileFixture()
	// The provider's verified record names a different reference than the
	// webhook claimed.
	f.verifyAs("HYR-OTHER999", 45000, "successful")

	err := f.svc.HandleChargeCompleted(context.Background(), service.ChargeCompletedEvent{
		TxRef:            "HYR-AAAA1111",
		ProviderChargeID: "charge-1",
		Amount:           45000,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, f.paymentRepo.CountPayments())
	assert.Equal(t, domain.BookingStatusPending, f.bookingRepo.GetBooking("booking-1").Status)
}

func TestReconcile_AmbiguousTxRef_NeitherConfirmed(t *testing.T) {
	t.Parallel()

	f := newReconcileFixture()

	// Corrupt state: an extension carrying the booking's reference.
	f.extRepo.AddExtension(&domain.Extension{
		ID:              "ext-dup",
		BookingLegID:    "leg-1",
		Status:          domain.ExtensionStatusPending,
		PaymentStatus:   domain.PaymentStatusUnpaid,
		PaymentIntentID: "HYR-AAAA1111",
	})
	f.verifyAs("HYR-AAAA1111", 45000, "successful")

	err := f.svc.HandleChargeCompleted(context.Background(), service.ChargeCompletedEvent{
		TxRef:            "HYR-AAAA1111",
		ProviderChargeID: "charge-1",
		Amount:           45000,
	})

	// Acknowledged but fully inert.
	require.NoError(t, err)
	assert.Equal(t, 0, f.paymentRepo.CountPayments())
	assert.Equal(t, domain.BookingStatusPending, f.bookingRepo.GetBooking("booking-1").Status)
	assert.Equal(t, domain.ExtensionStatusPending, f.extRepo.GetExtension("ext-dup").Status)
}

func TestReconcile_ProviderDown_ReturnsError(t *testing.T) {
	t.Parallel()

	f := newReconcileFixture()
	f.provider.VerifyError = ErrMockProviderDown

	err := f.svc.HandleChargeCompleted(context.Background(), service.ChargeCompletedEvent{
		TxRef:            "HYR-AAAA1111",
		ProviderChargeID: "charge-1",
		Amount:           45000,
	})

	// Transient: the caller must see an error so the event is redelivered.
	require.Error(t, err)
	assert.Equal(t, 0, f.paymentRepo.CountPayments())
}

func TestReconcile_AmountMismatch_AcknowledgedWithoutConfirm(t *testing.T) {
	t.Parallel()

	f := newReconcileFixture()
	// Verified amount differs from the booking's priced total.
	f.verifyAs("HYR-AAAA1111", 10, "successful")

	err := f.svc.HandleChargeCompleted(context.Background(), service.ChargeCompletedEvent{
		TxRef:            "HYR-AAAA1111",
		ProviderChargeID: "charge-1",
		Amount:           10,
	})
	require.NoError(t, err)

	// The payment row is recorded for audit, but the booking stays PENDING.
	assert.Equal(t, 1, f.paymentRepo.CountPayments())
	assert.Equal(t, domain.BookingStatusPending, f.bookingRepo.GetBooking("booking-1").Status)
	assert.Equal(t, 0, f.publisher.CountByKey("booking.confirmed"))
}

func TestReconcile_GuestSession_ConsumedOnConfirm(t *testing.T) {
	t.Parallel()

	f := newReconcileFixture()
	f.verifyAs("HYR-AAAA1111", 45000, "successful")

	require.NoError(t, f.sessions.Put(context.Background(), &redis.CheckoutSession{
		TxRef:      "HYR-AAAA1111",
		GuestName:  "Ada",
		GuestEmail: "ada@example.com",
	}))

	err := f.svc.HandleChargeCompleted(context.Background(), service.ChargeCompletedEvent{
		TxRef:            "HYR-AAAA1111",
		ProviderChargeID: "charge-1",
		Amount:           45000,
	})
	require.NoError(t, err)

	assert.False(t, f.sessions.HasSession("HYR-AAAA1111"), "expected the checkout session to be consumed")
}
