package engine

import (
	"context"
	"fmt"

	"github.com/hupe1980/negotiate/core"
)

// CallbackType defines the lifecycle points where callbacks can be executed.
//
// Callbacks hook into the state machine without modifying its rules:
//   - BeforeCounter: runs before a requester offer is applied and may veto it
//   - AfterCounter: runs after a counter round has been committed
//   - OnConclude: runs after a negotiation reached CONCLUDED
//   - OnExpire: runs after a negotiation reached EXPIRED
//
// Callbacks are executed synchronously while the negotiation is held, so
// they must be fast and must not call back into the engine for the same id.
type CallbackType string

const (
	// CallbackBeforeCounter is triggered before a requester offer is applied.
	// Returning an error rejects the offer; nothing is persisted.
	CallbackBeforeCounter CallbackType = "before_counter"

	// CallbackAfterCounter is triggered after a counter round was persisted.
	CallbackAfterCounter CallbackType = "after_counter"

	// CallbackOnConclude is triggered after a negotiation concluded.
	CallbackOnConclude CallbackType = "on_conclude"

	// CallbackOnExpire is triggered after a negotiation expired.
	CallbackOnExpire CallbackType = "on_expire"
)

// CallbackContext carries what a callback may inspect. Negotiation is a
// snapshot; changing it has no effect on the stored record.
type CallbackContext struct {
	// Negotiation is the record before (BeforeCounter) or after the change.
	Negotiation *core.Negotiation

	// Offer is the requester offer under evaluation. Nil for lifecycle callbacks.
	Offer *core.Offer

	// CallbackType indicates which hook triggered this execution.
	CallbackType CallbackType

	// Metadata provides extensible storage for custom callback data.
	Metadata map[string]any
}

// Callback defines the interface for lifecycle hooks.
type Callback interface {
	// Type returns the callback type this implementation handles.
	Type() CallbackType

	// Execute performs the callback logic with the provided context.
	Execute(ctx context.Context, callbackCtx *CallbackContext) error
}

// FunctionCallback wraps a function as a callback implementation.
//
// Example:
//
//	audit := NewFunctionCallback(
//	    CallbackOnConclude,
//	    func(ctx context.Context, cc *CallbackContext) error {
//	        log.Printf("concluded %s at %v", cc.Negotiation.ID, *cc.Negotiation.FinalAmount)
//	        return nil
//	    },
//	)
type FunctionCallback struct {
	callbackType CallbackType
	fn           func(ctx context.Context, callbackCtx *CallbackContext) error
}

// NewFunctionCallback creates a new function-based callback.
func NewFunctionCallback(
	callbackType CallbackType,
	fn func(ctx context.Context, callbackCtx *CallbackContext) error,
) *FunctionCallback {
	return &FunctionCallback{
		callbackType: callbackType,
		fn:           fn,
	}
}

// Type returns the callback type this function handles.
func (c *FunctionCallback) Type() CallbackType {
	return c.callbackType
}

// Execute calls the wrapped function with the provided context.
func (c *FunctionCallback) Execute(ctx context.Context, callbackCtx *CallbackContext) error {
	return c.fn(ctx, callbackCtx)
}

// CallbackManager keeps registered callbacks per type and runs them in
// registration order; the first error stops the chain.
//
// Registration is not synchronized. Register everything before the engine
// starts serving; execution is safe for concurrent use afterwards.
type CallbackManager struct {
	callbacks map[CallbackType][]Callback
}

// NewCallbackManager creates a new callback manager instance.
func NewCallbackManager() *CallbackManager {
	return &CallbackManager{
		callbacks: make(map[CallbackType][]Callback),
	}
}

// RegisterCallback adds a callback to the manager for its type.
func (cm *CallbackManager) RegisterCallback(callback Callback) {
	callbackType := callback.Type()
	cm.callbacks[callbackType] = append(cm.callbacks[callbackType], callback)
}

// ExecuteCallbacks executes all registered callbacks for the specified type.
func (cm *CallbackManager) ExecuteCallbacks(
	ctx context.Context,
	callbackType CallbackType,
	callbackCtx *CallbackContext,
) error {
	callbacks, exists := cm.callbacks[callbackType]
	if !exists {
		return nil // No callbacks registered for this type
	}

	for _, callback := range callbacks {
		if err := callback.Execute(ctx, callbackCtx); err != nil {
			return err
		}
	}

	return nil
}

// LoggingCallback forwards lifecycle events to a logging function.
//
// Example:
//
//	callback := NewLoggingCallback(CallbackOnExpire, func(m string) { log.Print(m) })
type LoggingCallback struct {
	callbackType CallbackType
	logger       func(message string)
}

// NewLoggingCallback creates a new logging callback.
func NewLoggingCallback(callbackType CallbackType, logger func(message string)) *LoggingCallback {
	return &LoggingCallback{
		callbackType: callbackType,
		logger:       logger,
	}
}

// Type returns the callback type this logger handles.
func (c *LoggingCallback) Type() CallbackType {
	return c.callbackType
}

// Execute logs the negotiation id, status and round.
func (c *LoggingCallback) Execute(_ context.Context, callbackCtx *CallbackContext) error {
	if c.logger != nil && callbackCtx.Negotiation != nil {
		n := callbackCtx.Negotiation
		c.logger(fmt.Sprintf("[%s] negotiation: %s, status: %s, round: %d",
			c.callbackType, n.ID, n.Status, n.CurrentRound))
	}
	return nil
}

// OfferValidationCallback rejects requester offers failing a business rule,
// e.g. a budget ceiling enforced by the caller.
//
// Example:
//
//	ceiling := NewOfferValidationCallback(func(n *core.Negotiation, amount float64) error {
//	    if amount > 2_000_000 {
//	        return fmt.Errorf("%w: offer above ceiling", core.ErrInvalidArgument)
//	    }
//	    return nil
//	})
type OfferValidationCallback struct {
	validator func(n *core.Negotiation, amount float64) error
}

// NewOfferValidationCallback creates a new offer validation callback.
func NewOfferValidationCallback(validator func(n *core.Negotiation, amount float64) error) *OfferValidationCallback {
	return &OfferValidationCallback{
		validator: validator,
	}
}

// Type returns the callback type (always CallbackBeforeCounter).
func (c *OfferValidationCallback) Type() CallbackType {
	return CallbackBeforeCounter
}

// Execute validates the pending requester offer.
func (c *OfferValidationCallback) Execute(_ context.Context, callbackCtx *CallbackContext) error {
	if c.validator != nil && callbackCtx.Offer != nil {
		return c.validator(callbackCtx.Negotiation, callbackCtx.Offer.Amount)
	}
	return nil
}
