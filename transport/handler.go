package transport

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hupe1980/negotiate"
	"github.com/hupe1980/negotiate/core"
	"github.com/hupe1980/negotiate/logging"
)

// Negotiator is the part of negotiate.Service the handler drives.
type Negotiator interface {
	Start(ctx context.Context, subjectID, counterpartyID string, initialOffer float64, meta negotiate.Meta) (string, error)
	Counter(ctx context.Context, negotiationID string, offer float64, message string, optFns ...func(o *negotiate.CounterOptions)) (*negotiate.CounterResult, error)
	Accept(ctx context.Context, negotiationID, actorID string) (*negotiate.AcceptResult, error)
	Status(ctx context.Context, negotiationID string) (*negotiate.Snapshot, error)
}

var _ Negotiator = (*negotiate.Service)(nil)

// HandlerOptions configures a Handler.
type HandlerOptions struct {
	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Handler translates bus requests into service calls and publishes responses.
type Handler struct {
	bus    Bus
	svc    Negotiator
	logger logging.Logger
	subs   []Subscription
}

// NewHandler creates a Handler. Call Serve to start consuming.
func NewHandler(bus Bus, svc Negotiator, optFns ...func(o *HandlerOptions)) *Handler {
	opts := HandlerOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Handler{bus: bus, svc: svc, logger: opts.Logger}
}

// Serve subscribes to the start, counter and accept subjects.
func (h *Handler) Serve() error {
	routes := []struct {
		prefix string
		fn     func(ctx context.Context, subjectID string, data []byte) ResponseMessage
	}{
		{StartPrefix, h.handleStart},
		{CounterPrefix, h.handleCounter},
		{AcceptPrefix, h.handleAccept},
	}
	for _, r := range routes {
		sub, err := h.bus.Subscribe(r.prefix+".>", h.route(r.prefix, r.fn))
		if err != nil {
			_ = h.Close()
			return fmt.Errorf("subscribe %s: %w", r.prefix, err)
		}
		h.subs = append(h.subs, sub)
	}
	return nil
}

// Close removes all subscriptions made by Serve.
func (h *Handler) Close() error {
	var first error
	for _, s := range h.subs {
		if err := s.Unsubscribe(); err != nil && first == nil {
			first = err
		}
	}
	h.subs = nil
	return first
}

func (h *Handler) route(prefix string, fn func(ctx context.Context, subjectID string, data []byte) ResponseMessage) MsgHandler {
	return func(ctx context.Context, msg Message) {
		subjectID, ok := SubjectID(prefix, msg.Subject)
		if !ok {
			h.logger.Warn("Dropping message without subject id", "subject", msg.Subject)
			return
		}
		resp := fn(ctx, subjectID, msg.Data)
		h.respond(ctx, subjectID, resp)
	}
}

func (h *Handler) respond(ctx context.Context, subjectID string, resp ResponseMessage) {
	data, err := json.Marshal(resp)
	if err != nil {
		h.logger.Error("Failed to encode response", "subject_id", subjectID, "error", err)
		return
	}
	if err := h.bus.Publish(ctx, ResponseSubject(subjectID), data); err != nil {
		h.logger.Error("Failed to publish response", "subject_id", subjectID, "error", err)
	}
}

func (h *Handler) handleStart(ctx context.Context, subjectID string, data []byte) ResponseMessage {
	var req StartMessage
	if err := decode(data, &req); err != nil {
		return errorResponse(requestID(data), "", err)
	}
	id, err := h.svc.Start(ctx, subjectID, req.CounterpartyID, req.Offer, negotiate.Meta{
		Category:   req.Category,
		Location:   req.Location,
		Message:    req.Message,
		GuestCount: req.GuestCount,
	})
	if err != nil {
		h.logger.Debug("Start rejected", "subject_id", subjectID, "error", err)
		return errorResponse(req.RequestID, "", err)
	}
	return ResponseMessage{
		RequestID:     req.RequestID,
		NegotiationID: id,
		Status:        core.StatusAwaitingRequester,
		Offer:         req.Offer,
		Message:       req.Message,
		Round:         1,
		Version:       1,
	}
}

func (h *Handler) handleCounter(ctx context.Context, subjectID string, data []byte) ResponseMessage {
	var req CounterMessage
	if err := decode(data, &req); err != nil {
		return errorResponse(requestID(data), "", err)
	}
	if err := h.checkOwner(ctx, subjectID, req.NegotiationID); err != nil {
		h.logger.Debug("Counter rejected", "subject_id", subjectID, "negotiation_id", req.NegotiationID, "error", err)
		return errorResponse(req.RequestID, req.NegotiationID, err)
	}
	var optFns []func(o *negotiate.CounterOptions)
	if req.Version > 0 {
		optFns = append(optFns, negotiate.IfVersion(req.Version))
	}
	res, err := h.svc.Counter(ctx, req.NegotiationID, req.Offer, req.Message, optFns...)
	if err != nil {
		h.logger.Debug("Counter rejected", "negotiation_id", req.NegotiationID, "error", err)
		return errorResponse(req.RequestID, req.NegotiationID, err)
	}
	return ResponseMessage{
		RequestID:      req.RequestID,
		NegotiationID:  res.NegotiationID,
		Status:         res.Status,
		Offer:          res.LastOffer.Amount,
		Message:        res.LastOffer.Message,
		Accepted:       res.Accepted,
		FinalOffer:     res.IsFinal,
		ConcessionRate: res.ConcessionRate,
		Progress:       res.Progress,
		Round:          res.Round,
		Version:        res.Version,
	}
}

func (h *Handler) handleAccept(ctx context.Context, subjectID string, data []byte) ResponseMessage {
	var req AcceptMessage
	if err := decode(data, &req); err != nil {
		return errorResponse(requestID(data), "", err)
	}
	if err := h.checkOwner(ctx, subjectID, req.NegotiationID); err != nil {
		return errorResponse(req.RequestID, req.NegotiationID, err)
	}
	res, err := h.svc.Accept(ctx, req.NegotiationID, req.ActorID)
	if err != nil {
		return errorResponse(req.RequestID, req.NegotiationID, err)
	}
	return ResponseMessage{
		RequestID:     req.RequestID,
		NegotiationID: res.NegotiationID,
		Status:        res.Status,
		Offer:         res.FinalAmount,
		Accepted:      true,
	}
}

// checkOwner fails with ErrInvalidArgument unless the negotiation belongs to
// the subject named in the topic.
func (h *Handler) checkOwner(ctx context.Context, subjectID, negotiationID string) error {
	snap, err := h.svc.Status(ctx, negotiationID)
	if err != nil {
		return err
	}
	if snap.Negotiation.SubjectID != subjectID {
		return fmt.Errorf("%w: negotiation %s does not belong to subject %s", core.ErrInvalidArgument, negotiationID, subjectID)
	}
	return nil
}

// requestID extracts the correlation id from a payload that failed to decode.
func requestID(data []byte) string {
	var envelope struct {
		RequestID string `json:"requestId"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return ""
	}
	return envelope.RequestID
}

func decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: malformed payload: %v", core.ErrInvalidArgument, err)
	}
	return nil
}
