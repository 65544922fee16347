package model

import "time"

type TransmissionStatus string

const (
	StatusQueued TransmissionStatus = "queued"
	StatusSent   TransmissionStatus = "sent"
	StatusFailed TransmissionStatus = "failed"
)

func (s TransmissionStatus) String() string { return string(s) }

func (s TransmissionStatus) Valid() bool {
	return s == StatusQueued || s == StatusSent || s == StatusFailed
}

type TransmissionDirection string

const (
	TransmissionInbound  TransmissionDirection = "inbound"  // fax in, email out
	TransmissionOutbound TransmissionDirection = "outbound" // email in, fax out
)

func (d TransmissionDirection) String() string { return string(d) }

// Transmission is the DB entity persisted in the transmissions table,
// one row per bridged fax/email pair.
type Transmission struct {
	ID        string                `db:"id"`
	Direction TransmissionDirection `db:"direction"`
	FaxID     string                `db:"fax_id"`
	FromPhone string                `db:"from_phone"`
	ToPhone   string                `db:"to_phone"`
	Email     string                `db:"email"`
	FileName  string                `db:"file_name"`
	Status    TransmissionStatus    `db:"status"`
	CreatedAt time.Time             `db:"created_at"`
	UpdatedAt time.Time             `db:"updated_at"`
}
