package domain

import "time"

// ConflictPolicy selects which cross-row invariant the store enforces for a
// date, in addition to the always-on one-appointment-per-email-per-day rule.
type ConflictPolicy string

const (
	// PolicySlotUniqueness allows at most one appointment per (date, time slot).
	PolicySlotUniqueness ConflictPolicy = "slot"
	// PolicyDailyCapacity allows at most K appointments per date, no fixed slots.
	PolicyDailyCapacity ConflictPolicy = "capacity"
)

func ParseConflictPolicy(s string) (ConflictPolicy, bool) {
	switch ConflictPolicy(s) {
	case PolicySlotUniqueness, PolicyDailyCapacity:
		return ConflictPolicy(s), true
	default:
		return "", false
	}
}

const (
	DateLayout = "2006-01-02"
	SlotLayout = "15:04"
)

// BookingRequest is the booking intent as submitted by the client. It is never
// persisted; between request and confirmation it lives only inside the signed
// verification token.
type BookingRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Date           string `json:"date"`
	TimeSlot       string `json:"time_slot,omitempty"`
	TimePreference string `json:"time_preference,omitempty"`
	Phone          string `json:"phone,omitempty"`
	Instagram      string `json:"instagram,omitempty"`
}

// TimeIdentity is the slot under the slot policy, the free-text preference
// otherwise.
func (r *BookingRequest) TimeIdentity() string {
	if r.TimeSlot != "" {
		return r.TimeSlot
	}
	return r.TimePreference
}

// ToPayload flattens the request for the token codec.
func (r *BookingRequest) ToPayload() map[string]string {
	return map[string]string{
		"name":            r.Name,
		"email":           r.Email,
		"date":            r.Date,
		"time_slot":       r.TimeSlot,
		"time_preference": r.TimePreference,
		"phone":           r.Phone,
		"instagram":       r.Instagram,
	}
}

func RequestFromPayload(p map[string]string) *BookingRequest {
	return &BookingRequest{
		Name:           p["name"],
		Email:          p["email"],
		Date:           p["date"],
		TimeSlot:       p["time_slot"],
		TimePreference: p["time_preference"],
		Phone:          p["phone"],
		Instagram:      p["instagram"],
	}
}

// Appointment is a confirmed booking. Rows are immutable once created.
type Appointment struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Date           string    `json:"date"`
	TimeSlot       string    `json:"time_slot,omitempty"`
	TimePreference string    `json:"time_preference,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	Instagram      string    `json:"instagram,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
