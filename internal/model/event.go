package model

// Fax lifecycle event types delivered by the carrier webhook.
const (
	EventFaxReceived       = "fax.received"
	EventFaxDelivered      = "fax.delivered"
	EventFaxEmailDelivered = "fax.email.delivered"
)

const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// FaxWebhook is the carrier webhook body posted to /faxes.
type FaxWebhook struct {
	Data FaxEventData `json:"data"`
}

type FaxEventData struct {
	EventType string     `json:"event_type"`
	Payload   FaxPayload `json:"payload"`
}

type FaxPayload struct {
	FaxID     string `json:"fax_id"`
	Direction string `json:"direction"`
	To        string `json:"to"`
	From      string `json:"from"`
	MediaURL  string `json:"media_url"`
	Status    string `json:"status"`
}

// LifecycleEvent is the audit record published to Kafka for each
// webhook or job outcome.
type LifecycleEvent struct {
	Event     string `json:"event"`
	FaxID     string `json:"fax_id,omitempty"`
	Direction string `json:"direction,omitempty"`
	Detail    string `json:"detail,omitempty"`
	At        int64  `json:"at"`
}
