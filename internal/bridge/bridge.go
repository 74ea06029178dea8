package bridge

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/thomascantrellsea/companion-module-christie-dhd800/internal/infrastructure/mqtt"
	"github.com/thomascantrellsea/companion-module-christie-dhd800/internal/projector"
)

// Messaging is the MQTT capability the bridge needs. Implemented by
// *mqtt.Client; narrowed to an interface so tests can fake the broker.
type Messaging interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	IsConnected() bool
}

// Controller is the slice of the projector instance the bridge drives.
type Controller interface {
	ExecuteAction(id projector.ActionID)
	DeviceState() projector.DeviceState
	Stats() projector.InstanceStats
}

// Logger is the optional logging interface, compatible with
// logging.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Options holds construction parameters for a Bridge.
type Options struct {
	// InstanceID scopes the MQTT topics. Required.
	InstanceID string

	// Messaging is the MQTT client. Required.
	Messaging Messaging

	// QoS for all bridge publishes and the command subscription. The
	// bridge floor is 1 (config validation rejects 0); the zero value
	// here falls back to it.
	QoS byte

	// Logger is optional.
	Logger Logger
}

// Bridge connects a projector instance to MQTT. It implements
// projector.Host so the instance's outbound callbacks land on the
// broker.
type Bridge struct {
	instanceID string
	messaging  Messaging
	qos        byte
	topics     mqtt.Topics
	logger     Logger

	mu         sync.RWMutex
	controller Controller
}

var _ projector.Host = (*Bridge)(nil)

// New creates a bridge. Attach a controller with SetController before
// calling Start.
func New(opts Options) *Bridge {
	qos := opts.QoS
	if qos == 0 {
		qos = 1
	}
	return &Bridge{
		instanceID: opts.InstanceID,
		messaging:  opts.Messaging,
		qos:        qos,
		logger:     opts.Logger,
	}
}

// SetController attaches the projector instance. Must be called before
// Start. Separate from New because the instance needs the bridge as its
// Host at construction time.
func (b *Bridge) SetController(c Controller) {
	b.mu.Lock()
	b.controller = c
	b.mu.Unlock()
}

// Start subscribes to the command topic and publishes the capability
// schema retained. The subscription survives broker reconnects via the
// MQTT client's re-subscription tracking.
func (b *Bridge) Start() error {
	if b.getController() == nil {
		return ErrNoController
	}

	if err := b.messaging.Subscribe(b.topics.Command(b.instanceID), b.qos, b.handleCommand); err != nil {
		return fmt.Errorf("subscribing to command topic: %w", err)
	}

	if err := b.publishSchema(); err != nil {
		return fmt.Errorf("publishing schema: %w", err)
	}

	b.logInfo("bridge started", "instance", b.instanceID)
	return nil
}

// ReportConnectivityStatus publishes a retained status message.
// Part of the projector.Host interface.
func (b *Bridge) ReportConnectivityStatus(status projector.Status, message string) {
	msg := StatusMessage{
		Timestamp: time.Now().UTC(),
		Status:    string(status),
		Message:   message,
	}
	b.publishJSON(b.topics.Status(b.instanceID), msg, true)
}

// ReportVariableValues publishes a retained state message with the
// current variable values. Part of the projector.Host interface.
func (b *Bridge) ReportVariableValues(values map[string]string) {
	msg := StateMessage{
		Timestamp: time.Now().UTC(),
		Values:    values,
	}
	b.publishJSON(b.topics.State(b.instanceID), msg, true)
}

// RequestFeedbackReevaluation publishes the current token for each
// requested feedback kind. Part of the projector.Host interface.
func (b *Bridge) RequestFeedbackReevaluation(kinds ...projector.FeedbackKind) {
	controller := b.getController()
	if controller == nil {
		return
	}
	state := controller.DeviceState()

	feedbacks := make([]FeedbackValue, 0, len(kinds))
	for _, kind := range kinds {
		var value string
		switch kind {
		case projector.FeedbackPowerState:
			value = state.Power
		case projector.FeedbackInputSource:
			value = state.Input
		default:
			continue
		}
		feedbacks = append(feedbacks, FeedbackValue{Kind: string(kind), Value: value})
	}
	if len(feedbacks) == 0 {
		return
	}

	msg := FeedbackMessage{
		Timestamp: time.Now().UTC(),
		Feedbacks: feedbacks,
	}
	b.publishJSON(b.topics.Feedback(b.instanceID), msg, false)
}

// handleCommand parses an inbound command payload and dispatches the
// action. Malformed payloads are logged and dropped; the instance
// ignores unknown action IDs itself.
func (b *Bridge) handleCommand(topic string, payload []byte) error {
	var msg CommandMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		b.logWarn("dropping malformed command", "topic", topic, "error", err)
		return fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}
	if msg.Action == "" {
		b.logWarn("dropping command with no action", "topic", topic)
		return ErrInvalidCommand
	}

	controller := b.getController()
	if controller == nil {
		return ErrNoController
	}

	b.logDebug("command received", "action", msg.Action, "source", msg.Source)
	controller.ExecuteAction(projector.ActionID(msg.Action))
	return nil
}

// publishSchema publishes the retained capability schema.
func (b *Bridge) publishSchema() error {
	msg := SchemaMessage{
		Timestamp:    time.Now().UTC(),
		ConfigFields: projector.ConfigFieldSchema(),
		Actions:      projector.ActionDefinitions(),
		Feedbacks:    projector.FeedbackDefinitions(),
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return b.messaging.Publish(b.topics.Schema(b.instanceID), payload, b.qos, true)
}

// publishJSON marshals and publishes, logging failures. Outbound host
// callbacks have no error path so publish errors terminate here.
func (b *Bridge) publishJSON(topic string, msg any, retained bool) {
	payload, err := json.Marshal(msg)
	if err != nil {
		b.logError("failed to marshal message", "topic", topic, "error", err)
		return
	}
	if err := b.messaging.Publish(topic, payload, b.qos, retained); err != nil {
		b.logWarn("failed to publish", "topic", topic, "error", err)
	}
}

func (b *Bridge) getController() Controller {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.controller
}

func (b *Bridge) logDebug(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Debug(msg, args...)
	}
}

func (b *Bridge) logInfo(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Info(msg, args...)
	}
}

func (b *Bridge) logWarn(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Warn(msg, args...)
	}
}

func (b *Bridge) logError(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Error(msg, args...)
	}
}
