// Package natsbus adapts a NATS connection to transport.Bus.
package natsbus

import (
	"context"
	"fmt"

	"github.com/hupe1980/negotiate/logging"
	"github.com/hupe1980/negotiate/transport"
	"github.com/nats-io/nats.go"
)

// Options configures a Bus.
type Options struct {
	// Queue, when set, joins every subscription to this queue group so that
	// several workers share the inbound load.
	Queue string

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Bus publishes and subscribes over core NATS.
type Bus struct {
	conn *nats.Conn
	opts Options
}

var _ transport.Bus = (*Bus)(nil)

// New wraps an established connection. The caller owns conn.
func New(conn *nats.Conn, optFns ...func(o *Options)) *Bus {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Bus{conn: conn, opts: opts}
}

// Connect dials url and wraps the connection.
func Connect(url string, optFns ...func(o *Options)) (*Bus, error) {
	conn, err := nats.Connect(url, nats.Name("negotiate"))
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return New(conn, optFns...), nil
}

// Publish sends data on subject.
func (b *Bus) Publish(ctx context.Context, subject string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Subscribe delivers matching messages to handler on the connection's
// dispatch goroutine.
func (b *Bus) Subscribe(pattern string, handler transport.MsgHandler) (transport.Subscription, error) {
	cb := func(m *nats.Msg) {
		handler(context.Background(), transport.Message{Subject: m.Subject, Data: m.Data})
	}

	var (
		sub *nats.Subscription
		err error
	)
	if b.opts.Queue != "" {
		sub, err = b.conn.QueueSubscribe(pattern, b.opts.Queue, cb)
	} else {
		sub, err = b.conn.Subscribe(pattern, cb)
	}
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", pattern, err)
	}
	b.opts.Logger.Debug("Subscribed", "pattern", pattern, "queue", b.opts.Queue)
	return sub, nil
}

// Drain flushes pending deliveries and closes the connection.
func (b *Bus) Drain() error {
	return b.conn.Drain()
}
