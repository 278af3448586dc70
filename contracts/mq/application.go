package mq

import "time"

// Routing keys on the sciencehub.events exchange.
const (
	RoutingKeyApplicationAccepted = "application.accepted"
)

// Aggregate types recorded on outbox rows.
const (
	AggregateApplication = "application"
)

// ApplicationAcceptedPayload is published once an application moves to
// accepted. Consumers open the engagement chat from it.
type ApplicationAcceptedPayload struct {
	ApplicationID string    `json:"application_id"`
	ProjectID     string    `json:"project_id"`
	CompanyID     string    `json:"company_id"`
	ResearcherID  string    `json:"researcher_id"`
	AcceptedAt    time.Time `json:"accepted_at"`
	TraceID       string    `json:"trace_id,omitempty"`
}
