package model

import "encoding/json"

type JobKind string

const (
	JobSendFax   JobKind = "send-fax"
	JobSendEmail JobKind = "send-email"
	JobPurgeBlob JobKind = "purge-remote-blob"
)

func (k JobKind) String() string { return string(k) }

func (k JobKind) Valid() bool {
	return k == JobSendFax || k == JobSendEmail || k == JobPurgeBlob
}

// Job is the envelope pushed onto the redis queue. Attempt counts the
// executions so far; the queue re-schedules until MaxAttempts is reached.
type Job struct {
	ID          string          `json:"id"`
	Kind        JobKind         `json:"kind"`
	Payload     json.RawMessage `json:"payload"`
	Attempt     int             `json:"attempt"`
	MaxAttempts int             `json:"max_attempts"`
	CreatedAt   int64           `json:"created_at"`
}

type SendFaxPayload struct {
	TransmissionID string `json:"transmission_id,omitempty"`
	FilePath       string `json:"file_path"`
	FileName       string `json:"file_name"`
	To             string `json:"to"`
	From           string `json:"from"`
	ConnectionID   string `json:"connection_id"`
}

type SendEmailPayload struct {
	TransmissionID string `json:"transmission_id,omitempty"`
	FilePath       string `json:"file_path"`
	FromNumber     string `json:"from_number"`
	ToNumber       string `json:"to_number"`
	Email          string `json:"email"`
}

type PurgeBlobPayload struct {
	ObjectKey string `json:"object_key"`
}
