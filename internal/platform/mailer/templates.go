package mailer

import (
	"fmt"

	"github.com/glowbook/appointments/internal/domain"
)

func verificationBodies(date, verifyURL string) (subject, text, html string) {
	subject = "Verify Your Appointment Email"
	text = fmt.Sprintf("Please verify your appointment for %s.\nConfirm it here: %s\n\nThe link expires soon, so don't wait too long.", date, verifyURL)
	html = fmt.Sprintf(`<div style="max-width:600px;margin:auto;font-family:Arial,sans-serif;border:1px solid #f3c0cb;border-radius:8px;padding:20px;">
  <h2 style="color:#b85778;">Verify Your Appointment</h2>
  <p>Please verify your appointment details:</p>
  <p><strong>Date:</strong> %s</p>
  <p>Click the link below to confirm your appointment:</p>
  <p><a href="%s" style="color:#b85778;word-break:break-word;">%s</a></p>
  <p style="font-size:14px;color:#666;">Thank you!</p>
</div>`, date, verifyURL, verifyURL)
	return subject, text, html
}

func ownerNoticeBodies(appt *domain.Appointment) (subject, text, html string) {
	phone := appt.Phone
	if phone == "" {
		phone = "N/A"
	}
	when := appt.TimeSlot
	if when == "" {
		when = appt.TimePreference
	}

	subject = "New Appointment Booked"
	text = fmt.Sprintf("New appointment confirmed.\nName: %s\nEmail: %s\nPhone: %s\nDate: %s\nTime: %s\nInstagram: %s",
		appt.Name, appt.Email, phone, appt.Date, when, appt.Instagram)
	html = fmt.Sprintf(`<div style="max-width:600px;margin:auto;font-family:Arial,sans-serif;border:1px solid #f3c0cb;border-radius:8px;padding:20px;">
  <h2 style="color:#b85778;">New Appointment Confirmed</h2>
  <p><strong>Name:</strong> %s</p>
  <p><strong>Email:</strong> %s</p>
  <p><strong>Phone #:</strong> %s</p>
  <p><strong>Date:</strong> %s</p>
  <p><strong>Time:</strong> %s</p>
  <p><strong>Instagram:</strong> %s</p>
</div>`, appt.Name, appt.Email, phone, appt.Date, when, appt.Instagram)
	return subject, text, html
}
