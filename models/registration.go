package models

import "time"

// RegistrationStatus mirrors the registration_status ENUM in the database.
type RegistrationStatus string

const (
	RegistrationPending    RegistrationStatus = "pending"
	RegistrationConfirmed  RegistrationStatus = "confirmed"
	RegistrationWaitlisted RegistrationStatus = "waitlisted"
	RegistrationRejected   RegistrationStatus = "rejected"
	RegistrationWithdrawn  RegistrationStatus = "withdrawn"
)

// PaymentStatus mirrors the payment_status ENUM in the database.
type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPending  PaymentStatus = "pending"
	PaymentVerified PaymentStatus = "verified"
	PaymentRejected PaymentStatus = "rejected"
)

// Registration links a tournament to an entrant: exactly one of UserID
// or TeamID is set (chk_registration_entrant). At most one non-withdrawn
// registration may exist per (tournament, entrant), enforced by partial
// unique indexes.
type Registration struct {
	ID            int                `json:"id" db:"id"`
	TournamentID  int                `json:"tournament_id" db:"tournament_id"`
	UserID        *int               `json:"user_id,omitempty" db:"user_id"`
	TeamID        *int               `json:"team_id,omitempty" db:"team_id"`
	Status        RegistrationStatus `json:"status" db:"status"`
	PaymentStatus PaymentStatus      `json:"payment_status" db:"payment_status"`
	Seed          *int               `json:"seed,omitempty" db:"seed"`
	CreatedAt     time.Time          `json:"created_at" db:"created_at"`

	User *User `json:"user,omitempty" db:"-"`
	Team *Team `json:"team,omitempty" db:"-"`
}

// Terminal reports whether the registration can no longer change status.
func (r *Registration) Terminal() bool {
	return r.Status == RegistrationRejected || r.Status == RegistrationWithdrawn
}
