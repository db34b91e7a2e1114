package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/glowbook/appointments/internal/domain"
	"github.com/glowbook/appointments/internal/platform/mailer"
	"github.com/glowbook/appointments/internal/repo"
	"github.com/glowbook/appointments/internal/token"
	"github.com/glowbook/appointments/pkg/config"
	"github.com/glowbook/appointments/pkg/events"
	"github.com/glowbook/appointments/pkg/logger"
)

// BookingService drives the two-phase booking flow: a request yields a signed
// verification token (the only place the pending booking exists), and
// presenting the token commits the appointment through the store's atomic
// conflict check.
type BookingService interface {
	RequestBooking(ctx context.Context, req *domain.BookingRequest) (string, error)
	ConfirmBooking(ctx context.Context, tokenString string) (*domain.Appointment, error)
	ListAppointments(ctx context.Context, date string, limit, offset int) ([]domain.Appointment, error)
}

type bookingService struct {
	store  repo.ReservationStore
	codec  *token.Codec
	mailer mailer.Service
	bus    events.Publisher
	cfg    *config.Config
}

func NewBookingService(
	store repo.ReservationStore,
	codec *token.Codec,
	mailSvc mailer.Service,
	bus events.Publisher,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		store:  store,
		codec:  codec,
		mailer: mailSvc,
		bus:    bus,
		cfg:    cfg,
	}
}

func (s *bookingService) RequestBooking(ctx context.Context, req *domain.BookingRequest) (string, error) {
	if err := s.validateBookingRequest(req); err != nil {
		return "", err
	}

	// Advisory only; Commit re-checks under the store's lock.
	if err := s.store.Precheck(ctx, req.Email, req.Date, req.TimeSlot); err != nil {
		if domain.IsConflict(err) {
			s.publishRejected(ctx, req.Email, req.Date, err)
			return "", err
		}
		return "", fmt.Errorf("precheck booking: %w", err)
	}

	tok, err := s.codec.Encode(req.ToPayload())
	if err != nil {
		return "", fmt.Errorf("encode booking token: %w", err)
	}

	logger.InfoContext(ctx, "Booking requested",
		"email", req.Email, "date", req.Date, "time", req.TimeIdentity())

	s.publish(ctx, events.BookingRequested, events.BookingRequestedEvent{
		Email:          req.Email,
		Date:           req.Date,
		TimeSlot:       req.TimeSlot,
		TimePreference: req.TimePreference,
		RequestedAt:    time.Now(),
	})

	verifyURL := s.cfg.Server.PublicBaseURL + "/bookings/verify/" + tok
	if err := s.mailer.SendVerification(req.Email, req.Name, req.Date, verifyURL); err != nil {
		logger.ErrorContext(ctx, "Failed to send verification email",
			"error", err, "email", req.Email)
	} else {
		s.publishNotification(ctx, "verification", req.Email, "Verify Your Appointment Email", map[string]interface{}{
			"date": req.Date,
		})
	}

	return tok, nil
}

func (s *bookingService) ConfirmBooking(ctx context.Context, tokenString string) (*domain.Appointment, error) {
	payload, err := s.codec.Decode(tokenString, s.cfg.Booking.TokenTTL)
	if err != nil {
		return nil, domain.ErrLinkInvalidOrExpired
	}

	req := domain.RequestFromPayload(payload)
	if err := s.validateBookingRequest(req); err != nil {
		return nil, err
	}

	appt, err := s.store.Commit(ctx, req)
	if err != nil {
		if domain.IsConflict(err) {
			s.publishRejected(ctx, req.Email, req.Date, err)
			return nil, err
		}
		return nil, fmt.Errorf("commit appointment: %w", err)
	}

	logger.InfoContext(ctx, "Booking confirmed",
		"appointment_id", appt.ID, "email", appt.Email, "date", appt.Date)

	s.publish(ctx, events.BookingConfirmed, events.BookingConfirmedEvent{
		AppointmentID:  appt.ID,
		Name:           appt.Name,
		Email:          appt.Email,
		Date:           appt.Date,
		TimeSlot:       appt.TimeSlot,
		TimePreference: appt.TimePreference,
		ConfirmedAt:    time.Now(),
	})

	if s.cfg.Email.OwnerEmail != "" {
		if err := s.mailer.SendOwnerNotice(s.cfg.Email.OwnerEmail, appt); err != nil {
			logger.ErrorContext(ctx, "Failed to send owner notice",
				"error", err, "appointment_id", appt.ID)
		} else {
			s.publishNotification(ctx, "owner_notice", s.cfg.Email.OwnerEmail, "New Appointment Booked", map[string]interface{}{
				"appointment_id": appt.ID,
				"date":           appt.Date,
			})
		}
	}

	return appt, nil
}

func (s *bookingService) ListAppointments(ctx context.Context, date string, limit, offset int) ([]domain.Appointment, error) {
	if date != "" {
		if _, err := time.Parse(domain.DateLayout, date); err != nil {
			return nil, domain.NewValidationError("date", "must be YYYY-MM-DD")
		}
	}
	return s.store.List(ctx, date, limit, offset)
}

func (s *bookingService) validateBookingRequest(req *domain.BookingRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return domain.NewValidationError("name", "required")
	}
	if strings.TrimSpace(req.Email) == "" || !strings.Contains(req.Email, "@") {
		return domain.NewValidationError("email", "must be a valid email address")
	}
	if _, err := time.Parse(domain.DateLayout, req.Date); err != nil {
		return domain.NewValidationError("date", "must be YYYY-MM-DD")
	}

	switch domain.ConflictPolicy(s.cfg.Booking.Policy) {
	case domain.PolicySlotUniqueness:
		if req.TimeSlot == "" {
			return domain.NewValidationError("time_slot", "required")
		}
		if _, err := time.Parse(domain.SlotLayout, req.TimeSlot); err != nil {
			return domain.NewValidationError("time_slot", "must be HH:MM")
		}
	default:
		if strings.TrimSpace(req.TimePreference) == "" {
			return domain.NewValidationError("time_preference", "required")
		}
	}
	return nil
}

func (s *bookingService) publish(ctx context.Context, subject string, event interface{}) {
	if err := s.bus.Publish(ctx, subject, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish event", "error", err, "subject", subject)
	}
}

// publishNotification mirrors each outbound email onto the notify.send
// subject so downstream consumers get an audit trail of what was sent.
func (s *bookingService) publishNotification(ctx context.Context, kind, recipient, subject string, data map[string]interface{}) {
	s.publish(ctx, events.NotifySend, events.NotificationEvent{
		Type:      kind,
		Recipient: recipient,
		Subject:   subject,
		Data:      data,
	})
}

func (s *bookingService) publishRejected(ctx context.Context, email, date string, reason error) {
	s.publish(ctx, events.BookingRejected, events.BookingRejectedEvent{
		Email:      email,
		Date:       date,
		Reason:     reason.Error(),
		RejectedAt: time.Now(),
	})
}
