// SPDX-License-Identifier: MPL-2.0

package thermal

import (
	"context"
	"errors"
	"io"

	"github.com/charmbracelet/log"
)

const (
	msgHighApplied     = "Apply the new high threshold successfully."
	msgHighCritApplied = "Apply the new high critical threshold successfully."
)

type (
	// Client applies the local threshold rules and talks to the platform
	// API through a Transport. Calls are sequential.
	Client struct {
		transport Transport
		logger    *log.Logger
	}

	// ClientOption configures a Client.
	ClientOption func(*Client)
)

// WithLogger sets the logger for validation records.
func WithLogger(logger *log.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient returns a Client using t.
func NewClient(t Transport, opts ...ClientOption) *Client {
	c := &Client{transport: t, logger: log.New(io.Discard)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// List returns every chassis thermal name followed by every PSU thermal
// name, in platform order.
func (c *Client) List(ctx context.Context) ([]string, error) {
	resp, err := c.transport.Call(ctx, Request{Method: MethodList})
	if err != nil {
		return nil, err
	}
	return resp.Names, nil
}

// HighThreshold reads the persisted high threshold of name.
func (c *Client) HighThreshold(ctx context.Context, name string) (float64, error) {
	return c.read(ctx, MethodHighThreshold, name)
}

// HighCriticalThreshold reads the persisted high-critical threshold of name.
func (c *Client) HighCriticalThreshold(ctx context.Context, name string) (float64, error) {
	return c.read(ctx, MethodHighCriticalThreshold, name)
}

// SetThresholds writes the given sides of name's threshold pair, high
// first, and returns one confirmation message per write.
//
// Values are range-checked before any call. When both sides are given
// they are checked against each other only. When one side is given it is
// checked against the persisted partner; if the partner cannot be read
// because it is unavailable, the check is skipped.
func (c *Client) SetThresholds(ctx context.Context, name string, high, highCrit *float64) ([]string, error) {
	for _, v := range []*float64{high, highCrit} {
		if v != nil {
			if err := DefaultRange.Check(*v); err != nil {
				return nil, err
			}
		}
	}

	switch {
	case high != nil && highCrit != nil:
		if *high >= *highCrit {
			return nil, &ThresholdOrderError{Changing: MethodSetHighThreshold, High: *high, HighCritical: *highCrit}
		}
	case high != nil:
		persisted, err := c.partner(ctx, MethodHighCriticalThreshold, name)
		if err != nil {
			return nil, err
		}
		if persisted != nil && *high >= *persisted {
			return nil, &ThresholdOrderError{Changing: MethodSetHighThreshold, High: *high, HighCritical: *persisted}
		}
	case highCrit != nil:
		persisted, err := c.partner(ctx, MethodHighThreshold, name)
		if err != nil {
			return nil, err
		}
		if persisted != nil && *highCrit <= *persisted {
			return nil, &ThresholdOrderError{Changing: MethodSetHighCriticalThreshold, High: *persisted, HighCritical: *highCrit}
		}
	default:
		return nil, nil
	}

	var applied []string
	if high != nil {
		if err := c.write(ctx, MethodSetHighThreshold, name, *high); err != nil {
			return applied, err
		}
		applied = append(applied, msgHighApplied)
	}
	if highCrit != nil {
		if err := c.write(ctx, MethodSetHighCriticalThreshold, name, *highCrit); err != nil {
			return applied, err
		}
		applied = append(applied, msgHighCritApplied)
	}
	return applied, nil
}

// partner reads the persisted value of the other side. An unavailable
// partner yields nil and no error.
func (c *Client) partner(ctx context.Context, method Method, name string) (*float64, error) {
	v, err := c.read(ctx, method, name)
	if errors.Is(err, ErrUnavailable) {
		c.logger.Debug("order check skipped", "thermal", name, "method", method, "reason", err)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *Client) read(ctx context.Context, method Method, name string) (float64, error) {
	req := Request{Method: method, Thermal: name}
	resp, err := c.transport.Call(ctx, req)
	if err != nil {
		return 0, err
	}
	if resp.Value == nil {
		return 0, &CallError{Request: req, Err: ErrMalformedResponse, Message: "no value in reply"}
	}
	return *resp.Value, nil
}

func (c *Client) write(ctx context.Context, method Method, name string, v float64) error {
	_, err := c.transport.Call(ctx, Request{Method: method, Thermal: name, Value: &v})
	return err
}
