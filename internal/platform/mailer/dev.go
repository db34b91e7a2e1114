package mailer

import (
	"github.com/glowbook/appointments/internal/domain"
	"github.com/glowbook/appointments/pkg/logger"
)

// DevMailer prints emails to the log instead of sending them.
type DevMailer struct{}

func NewDevMailer() *DevMailer {
	return &DevMailer{}
}

func (d *DevMailer) Send(toEmail, toName, subject, text, html string) (string, error) {
	logger.Info("[DEV MAIL]",
		"to", toEmail,
		"name", toName,
		"subject", subject,
		"text", text,
	)
	return "dev", nil
}

func (d *DevMailer) SendVerification(toEmail, toName, date, verifyURL string) error {
	logger.Info("[DEV MAIL] Verification Email",
		"to", toEmail,
		"name", toName,
		"date", date,
		"verify_url", verifyURL,
	)
	return nil
}

func (d *DevMailer) SendOwnerNotice(toEmail string, appt *domain.Appointment) error {
	logger.Info("[DEV MAIL] Owner Notice",
		"to", toEmail,
		"appointment_id", appt.ID,
		"name", appt.Name,
		"date", appt.Date,
	)
	return nil
}

var _ Service = (*DevMailer)(nil)
