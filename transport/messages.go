package transport

import (
	"strings"

	"github.com/hupe1980/negotiate/core"
)

// Subject prefixes.
const (
	StartPrefix    = "negotiation.start"
	CounterPrefix  = "negotiation.counter"
	AcceptPrefix   = "negotiation.accept"
	ResponsePrefix = "negotiation.response"
)

// StartSubject returns the inbound subject opening a negotiation for subjectID.
func StartSubject(subjectID string) string { return StartPrefix + "." + subjectID }

// CounterSubject returns the inbound subject for requester offers.
func CounterSubject(subjectID string) string { return CounterPrefix + "." + subjectID }

// AcceptSubject returns the inbound subject for manual acceptance.
func AcceptSubject(subjectID string) string { return AcceptPrefix + "." + subjectID }

// ResponseSubject returns the outbound subject answering requests for subjectID.
func ResponseSubject(subjectID string) string { return ResponsePrefix + "." + subjectID }

// SubjectID extracts the subject id following prefix. It returns false when
// subject does not start with prefix or carries no id.
func SubjectID(prefix, subject string) (string, bool) {
	id, ok := strings.CutPrefix(subject, prefix+".")
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// StartMessage opens a negotiation with the counterparty's initial offer.
type StartMessage struct {
	RequestID      string  `json:"requestId,omitempty"`
	CounterpartyID string  `json:"counterpartyId"`
	Offer          float64 `json:"offer"`
	Message        string  `json:"message"`
	Category       string  `json:"category"`
	Location       string  `json:"location"`
	GuestCount     int     `json:"guestCount,omitempty"`
}

// CounterMessage carries a requester offer. A positive Version makes the
// offer conditional on the negotiation still being at that version.
type CounterMessage struct {
	RequestID     string  `json:"requestId,omitempty"`
	NegotiationID string  `json:"negotiationId"`
	Offer         float64 `json:"offer"`
	Message       string  `json:"message"`
	Version       int64   `json:"version,omitempty"`
}

// AcceptMessage concludes a negotiation at its last offer.
type AcceptMessage struct {
	RequestID     string `json:"requestId,omitempty"`
	NegotiationID string `json:"negotiationId"`
	ActorID       string `json:"actorId"`
}

// ErrorPayload describes a failed request.
type ErrorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ResponseMessage answers every inbound request.
type ResponseMessage struct {
	RequestID      string        `json:"requestId,omitempty"`
	NegotiationID  string        `json:"negotiationId,omitempty"`
	Status         core.Status   `json:"status,omitempty"`
	Offer          float64       `json:"offer"`
	Message        string        `json:"message"`
	Accepted       bool          `json:"accepted"`
	FinalOffer     bool          `json:"finalOffer"`
	ConcessionRate float64       `json:"concessionRate"`
	Progress       float64       `json:"progress,omitempty"`
	Round          int           `json:"round,omitempty"`
	Version        int64         `json:"version,omitempty"`
	Error          *ErrorPayload `json:"error,omitempty"`
}

func errorResponse(requestID, negotiationID string, err error) ResponseMessage {
	return ResponseMessage{
		RequestID:     requestID,
		NegotiationID: negotiationID,
		Error:         &ErrorPayload{Kind: core.KindOf(err), Message: err.Error()},
	}
}
