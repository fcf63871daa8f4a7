// Package transport connects the negotiation service to a message bus.
//
// Inbound subjects carry requests keyed by the subject (event) id:
//
//	negotiation.start.<subjectId>    StartMessage
//	negotiation.counter.<subjectId>  CounterMessage
//	negotiation.accept.<subjectId>   AcceptMessage
//
// Every request is answered with a ResponseMessage on
// negotiation.response.<subjectId>. Failures are reported in the response's
// error field with a stable kind; they never stop the handler.
//
// The Bus interface is deliberately small so the same Handler runs on the
// in-process InMemoryBus (tests, single binary) and on NATS via natsbus.
package transport
