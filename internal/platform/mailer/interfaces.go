package mailer

import "github.com/glowbook/appointments/internal/domain"

type Service interface {
	Send(toEmail, toName, subject, text, html string) (string, error)
	SendVerification(toEmail, toName, date, verifyURL string) error
	SendOwnerNotice(toEmail string, appt *domain.Appointment) error
}
