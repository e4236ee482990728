package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"hyre/internal/domain"
	"hyre/internal/service"
)

// ──────────────────────────────────────────────
// 3. EXTENSION LIFECYCLE AND MERGE RULES
// ──────────────────────────────────────────────

// extensionFixture wires an ExtensionService around mocks with one ACTIVE
// DAY booking whose single leg runs 08:00-18:00 "today".
type extensionFixture struct {
	svc         *service.ExtensionService
	bookingRepo *MockBookingRepository
	legRepo     *MockBookingLegRepository
	extRepo     *MockExtensionRepository
	provider    *MockPaymentProvider
	publisher   *MockEventPublisher
	now         time.Time
	booking     *domain.Booking
	leg         *domain.BookingLeg
}

func newExtensionFixture() *extensionFixture {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	now := day.Add(12 * time.Hour)

	booking := &domain.Booking{
		ID:            "booking-1",
		CarID:         "car-1",
		Status:        domain.BookingStatusActive,
		PaymentStatus: domain.PaymentStatusPaid,
		Type:          domain.BookingTypeDay,
		StartDate:     day.Add(8 * time.Hour),
		EndDate:       day.Add(18 * time.Hour),
	}
	leg := &domain.BookingLeg{
		ID:           "leg-1",
		BookingID:    booking.ID,
		LegDate:      day,
		LegStartTime: booking.StartDate,
		LegEndTime:   booking.EndDate,
	}

	bookingRepo := NewMockBookingRepository()
	legRepo := NewMockBookingLegRepository()
	extRepo := NewMockExtensionRepository()
	carRepo := NewMockCarRepository()
	provider := NewMockPaymentProvider()
	publisher := NewMockEventPublisher()

	bookingRepo.AddBooking(booking)
	legRepo.AddLeg(leg)
	carRepo.AddCar(newTestCar("car-1"))

	rates := service.NewStaticRatesProvider(domain.PlatformRates{
		VATRatePercent:         7.5,
		PlatformFeeRatePercent: 5,
		CommissionRatePercent:  15,
	})
	notifier := service.NewNotificationService(publisher, fixedClock(now))

	svc := service.NewExtensionService(bookingRepo, legRepo, extRepo, carRepo,
		rates, provider, notifier, fixedClock(now))

	return &extensionFixture{
		svc:         svc,
		bookingRepo: bookingRepo,
		legRepo:     legRepo,
		extRepo:     extRepo,
		provider:    provider,
		publisher:   publisher,
		now:         now,
		booking:     booking,
		leg:         leg,
	}
}

// Rate 5000/h grossed up by VAT 7.5% + platform fee 5%.
const grossHourly = 5000 * 1.125

func TestExtension_FirstExtension_CreatesPendingRow(t *testing.T) {
	t.Parallel()

	f := newExtensionFixture()

	result, err := f.svc.CreateExtension(context.Background(), "booking-1", 2)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if result.CheckoutURL == "" || result.PaymentIntentID == "" {
		t.Error("expected a checkout link and payment intent id")
	}

	if f.extRepo.CountExtensions() != 1 {
		t.Fatalf("expected 1 extension, got %d", f.extRepo.CountExtensions())
	}

	ext := f.extRepo.GetExtension(result.ExtensionID)
	if ext == nil {
		t.Fatal("extension not stored")
	}
	if !ext.StartTime.Equal(f.leg.LegEndTime) {
		t.Errorf("expected start at leg end %v, got %v", f.leg.LegEndTime, ext.StartTime)
	}
	if !ext.EndTime.Equal(f.leg.LegEndTime.Add(2 * time.Hour)) {
		t.Errorf("expected end at 20:00, got %v", ext.EndTime)
	}
	if ext.Status != domain.ExtensionStatusPending || ext.PaymentStatus != domain.PaymentStatusUnpaid {
		t.Errorf("expected PENDING+UNPAID, got %s+%s", ext.Status, ext.PaymentStatus)
	}
	if ext.TotalAmount != 2*grossHourly {
		t.Errorf("expected amount %.2f, got %.2f", 2*grossHourly, ext.TotalAmount)
	}
}

func TestExtension_SecondUnpaidExtension_MergesInPlace(t *testing.T) {
	t.Parallel()

	f := newExtensionFixture()

	first, err := f.svc.CreateExtension(context.Background(), "booking-1", 2)
	if err != nil {
		t.Fatalf("first extension: %v", err)
	}
	firstIntent := f.extRepo.GetExtension(first.ExtensionID).PaymentIntentID

	second, err := f.svc.CreateExtension(context.Background(), "booking-1", 1)
	if err != nil {
		t.Fatalf("second extension: %v", err)
	}

	// Same row, not a second one.
	if second.ExtensionID != first.ExtensionID {
		t.Errorf("expected merge into extension %s, got new row %s", first.ExtensionID, second.ExtensionID)
	}
	if f.extRepo.CountExtensions() != 1 {
		t.Fatalf("expected 1 extension after merge, got %d", f.extRepo.CountExtensions())
	}

	ext := f.extRepo.GetExtension(first.ExtensionID)
	if !ext.EndTime.Equal(f.leg.LegEndTime.Add(3 * time.Hour)) {
		t.Errorf("expected merged end at 21:00, got %v", ext.EndTime)
	}
	if ext.TotalAmount != 3*grossHourly {
		t.Errorf("expected merged amount %.2f, got %.2f", 3*grossHourly, ext.TotalAmount)
	}
	if ext.PaymentIntentID == firstIntent {
		t.Error("expected the merge to point the row at a fresh payment intent")
	}
}

func TestExtension_AfterPaidExtension_CreatesNewRow(t *testing.T) {
	t.Parallel()

	f := newExtensionFixture()

	// A paid, active extension 18:00-20:00 already exists.
	f.extRepo.AddExtension(&domain.Extension{
		ID:            "ext-1",
		BookingLegID:  "leg-1",
		StartTime:     f.leg.LegEndTime,
		EndTime:       f.leg.LegEndTime.Add(2 * time.Hour),
		Status:        domain.ExtensionStatusActive,
		PaymentStatus: domain.PaymentStatusPaid,
		TotalAmount:   2 * grossHourly,
	})

	result, err := f.svc.CreateExtension(context.Background(), "booking-1", 1)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if result.ExtensionID == "ext-1" {
		t.Fatal("a paid extension must never be repriced in place")
	}
	if f.extRepo.CountExtensions() != 2 {
		t.Fatalf("expected 2 extensions, got %d", f.extRepo.CountExtensions())
	}

	ext := f.extRepo.GetExtension(result.ExtensionID)
	// The new window starts where the paid extension ends.
	if !ext.StartTime.Equal(f.leg.LegEndTime.Add(2 * time.Hour)) {
		t.Errorf("expected start at 20:00, got %v", ext.StartTime)
	}
	if !ext.EndTime.Equal(f.leg.LegEndTime.Add(3 * time.Hour)) {
		t.Errorf("expected end at 21:00, got %v", ext.EndTime)
	}
	if ext.TotalAmount != grossHourly {
		t.Errorf("expected delta amount %.2f, got %.2f", grossHourly, ext.TotalAmount)
	}
}

func TestExtension_MidnightBoundary_Rejected(t *testing.T) {
	t.Parallel()

	f := newExtensionFixture()

	// Leg ends 18:00; 7 hours would land at 01:00 the next day.
	_, err := f.svc.CreateExtension(context.Background(), "booking-1", 7)

	var tooLong *service.ExtensionTooLongError
	if !errors.As(err, &tooLong) {
		t.Fatalf("expected ExtensionTooLongError, got: %v", err)
	}
	if tooLong.RemainingHours != 6 {
		t.Errorf("expected 6 remaining hours, got %d", tooLong.RemainingHours)
	}

	// Rejection leaves no rows and no provider calls behind.
	if f.extRepo.CountExtensions() != 0 {
		t.Errorf("expected no extensions after rejection, got %d", f.extRepo.CountExtensions())
	}
	if f.provider.CreateIntentCallCount != 0 {
		t.Errorf("expected no payment intents after rejection, got %d", f.provider.CreateIntentCallCount)
	}
}

func TestExtension_MidnightBoundary_CountsPendingWindow(t *testing.T) {
	t.Parallel()

	f := newExtensionFixture()

	// 18:00 + 4h pending pushes the effective end to 22:00...
	if _, err := f.svc.CreateExtension(context.Background(), "booking-1", 4); err != nil {
		t.Fatalf("first extension: %v", err)
	}

	// ...so another 3h (01:00) crosses midnight with only 2h remaining.
	_, err := f.svc.CreateExtension(context.Background(), "booking-1", 3)
	var tooLong *service.ExtensionTooLongError
	if !errors.As(err, &tooLong) {
		t.Fatalf("expected ExtensionTooLongError, got: %v", err)
	}
	if tooLong.RemainingHours != 2 {
		t.Errorf("expected 2 remaining hours, got %d", tooLong.RemainingHours)
	}

	// The pending row stays exactly as it was.
	exts := f.extRepo.ExtensionsForLeg("leg-1")
	if len(exts) != 1 {
		t.Fatalf("expected 1 extension, got %d", len(exts))
	}
	if !exts[0].EndTime.Equal(f.leg.LegEndTime.Add(4 * time.Hour)) {
		t.Errorf("expected pending end unchanged at 22:00, got %v", exts[0].EndTime)
	}
}

func TestExtension_ExactlyToMidnight_Allowed(t *testing.T) {
	t.Parallel()

	f := newExtensionFixture()

	// 18:00 + 6h is exactly midnight, which is still inside the leg's day.
	result, err := f.svc.CreateExtension(context.Background(), "booking-1", 6)
	if err != nil {
		t.Fatalf("expected extension ending exactly at midnight to pass, got: %v", err)
	}

	ext := f.extRepo.GetExtension(result.ExtensionID)
	if !ext.EndTime.Equal(f.leg.MidnightBoundary()) {
		t.Errorf("expected end at midnight, got %v", ext.EndTime)
	}
}

func TestExtension_GuardRejections(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		mutate  func(*extensionFixture)
		hours   int
		wantErr error
	}{
		{
			name:    "zero hours",
			mutate:  func(f *extensionFixture) {},
			hours:   0,
			wantErr: service.ErrInvalidExtensionHours,
		},
		{
			name: "booking not active",
			mutate: func(f *extensionFixture) {
				f.booking.Status = domain.BookingStatusConfirmed
			},
			hours:   1,
			wantErr: service.ErrBookingNotActive,
		},
		{
			name: "night booking",
			mutate: func(f *extensionFixture) {
				f.booking.Type = domain.BookingTypeNight
			},
			hours:   1,
			wantErr: service.ErrOnlyDayBookingsExtendable,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newExtensionFixture()
			tc.mutate(f)

			_, err := f.svc.CreateExtension(context.Background(), "booking-1", tc.hours)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("expected %v, got: %v", tc.wantErr, err)
			}
		})
	}
}

func TestExtension_UnknownBooking_NotActive(t *testing.T) {
	t.Parallel()

	f := newExtensionFixture()

	_, err := f.svc.CreateExtension(context.Background(), "no-such-booking", 1)
	if !errors.Is(err, service.ErrBookingNotActive) {
		t.Errorf("expected ErrBookingNotActive, got: %v", err)
	}
}

func TestExtension_ConcurrentConfirm_Conflict(t *testing.T) {
	t.Parallel()

	f := newExtensionFixture()

	if _, err := f.svc.CreateExtension(context.Background(), "booking-1", 2); err != nil {
		t.Fatalf("first extension: %v", err)
	}

	// Another writer confirms the pending row between our read and update.
	f.extRepo.ForceUpdateWindowMiss = true

	_, err := f.svc.CreateExtension(context.Background(), "booking-1", 1)
	if !errors.Is(err, service.ErrExtensionConflict) {
		t.Errorf("expected ErrExtensionConflict, got: %v", err)
	}
}

func TestExtension_ConfirmFromPayment_ActivatesOnce(t *testing.T) {
	t.Parallel()

	f := newExtensionFixture()

	result, err := f.svc.CreateExtension(context.Background(), "booking-1", 2)
	if err != nil {
		t.Fatalf("create extension: %v", err)
	}

	payment := &domain.Payment{
		ID:          "payment-1",
		TxRef:       result.PaymentIntentID,
		Amount:      2 * grossHourly,
		Status:      domain.PaymentTxStatusSuccessful,
		ExtensionID: result.ExtensionID,
	}

	confirmed, err := f.svc.ConfirmFromPayment(context.Background(), payment)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if !confirmed {
		t.Fatal("expected first confirmation to succeed")
	}

	ext := f.extRepo.GetExtension(result.ExtensionID)
	if ext.Status != domain.ExtensionStatusActive || ext.PaymentStatus != domain.PaymentStatusPaid {
		t.Errorf("expected ACTIVE+PAID, got %s+%s", ext.Status, ext.PaymentStatus)
	}
	if f.publisher.CountByKey("extension.activated") != 1 {
		t.Errorf("expected 1 activation event, got %d", f.publisher.CountByKey("extension.activated"))
	}

	// Replay is a no-op.
	confirmed, err = f.svc.ConfirmFromPayment(context.Background(), payment)
	if err != nil {
		t.Fatalf("replay confirm: %v", err)
	}
	if confirmed {
		t.Error("expected replay confirmation to be a no-op")
	}
	if f.publisher.CountByKey("extension.activated") != 1 {
		t.Errorf("expected no extra activation event on replay, got %d", f.publisher.CountByKey("extension.activated"))
	}
}

func TestExtension_ConfirmFromPayment_AmountMismatch(t *testing.T) {
	t.Parallel()

	f := newExtensionFixture()

	result, err := f.svc.CreateExtension(context.Background(), "booking-1", 2)
	if err != nil {
		t.Fatalf("create extension: %v", err)
	}

	payment := &domain.Payment{
		ID:          "payment-1",
		TxRef:       result.PaymentIntentID,
		Amount:      1, // way off
		Status:      domain.PaymentTxStatusSuccessful,
		ExtensionID: result.ExtensionID,
	}

	confirmed, err := f.svc.ConfirmFromPayment(context.Background(), payment)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed {
		t.Error("expected mismatched amount not to confirm")
	}

	ext := f.extRepo.GetExtension(result.ExtensionID)
	if ext.Status != domain.ExtensionStatusPending {
		t.Errorf("expected extension to stay PENDING, got %s", ext.Status)
	}
}
