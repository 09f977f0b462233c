package hooks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/fivetwenty-io/crm-client/pkg/crm"
)

// DefaultSubject is used when no subject is configured.
const DefaultSubject = "crm.executions"

// Static errors for err113 compliance.
var (
	ErrNoPublisher = errors.New("no publisher configured")
)

// Publisher is the part of a NATS connection the event hook needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// ExecutionEvent is published once per dispatched call.
type ExecutionEvent struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Endpoint   string    `json:"endpoint"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	StatusCode int       `json:"status_code,omitempty"`
	Bytes      int       `json:"bytes"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// NATSPublisher publishes execution events. Publish failures are logged and
// never fail the execution.
type NATSPublisher struct {
	publisher Publisher
	subject   string
	logger    crm.Logger
	conn      *nats.Conn
}

// NewNATSPublisher creates an event hook on top of an existing publisher.
func NewNATSPublisher(publisher Publisher, subject string, logger crm.Logger) (*NATSPublisher, error) {
	if publisher == nil {
		return nil, ErrNoPublisher
	}

	if subject == "" {
		subject = DefaultSubject
	}

	return &NATSPublisher{publisher: publisher, subject: subject, logger: logger}, nil
}

// ConnectNATS connects to a NATS server and returns an event hook owning the
// connection.
func ConnectNATS(ctx context.Context, url, subject string, logger crm.Logger) (*NATSPublisher, error) {
	err := ctx.Err()
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}

	conn, err := nats.Connect(url, nats.Name("crm-client"))
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}

	publisher, err := NewNATSPublisher(conn, subject, logger)
	if err != nil {
		conn.Close()

		return nil, err
	}

	publisher.conn = conn

	return publisher, nil
}

// Subject returns the subject events are published to.
func (p *NATSPublisher) Subject() string {
	return p.subject
}

// PostExecute is a crm.PostExecuteHook.
func (p *NATSPublisher) PostExecute(_ context.Context, req *crm.Request, resp *crm.RawResponse, err error) {
	event := ExecutionEvent{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Endpoint:  string(req.Endpoint().ID),
		Method:    string(req.Method()),
		Path:      req.Path(),
	}

	if resp != nil {
		event.StatusCode = resp.StatusCode
		event.Bytes = len(resp.Body)
	}

	if err != nil {
		event.ErrorKind = string(crm.KindOf(err))
		event.Error = crm.RedactSecrets(err.Error())
	}

	data, marshalErr := json.Marshal(event)
	if marshalErr != nil {
		p.logWarn("encoding execution event failed", marshalErr)

		return
	}

	publishErr := p.publisher.Publish(p.subject, data)
	if publishErr != nil {
		p.logWarn("publishing execution event failed", publishErr)
	}
}

// Close drains the owned connection, if any.
func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}

	err := p.conn.Drain()
	if err != nil {
		return fmt.Errorf("draining NATS connection: %w", err)
	}

	return nil
}

func (p *NATSPublisher) logWarn(msg string, err error) {
	if p.logger == nil {
		return
	}

	p.logger.Warn(msg, map[string]interface{}{
		"subject": p.subject,
		"error":   err.Error(),
	})
}
