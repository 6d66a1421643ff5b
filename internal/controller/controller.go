package controller

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/png"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/visionflow-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/visionflow-core/internal/task"
)

// Transport is the MQTT surface the controller needs. Satisfied by
// *mqtt.Client; abstracted for unit testing.
type Transport interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Logger defines the logging interface used by the controller.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Config contains agent controller settings.
type Config struct {
	// Device is the agent's device identifier in the topic scheme.
	Device string

	// ScreencapTimeout bounds how long a capture may take.
	ScreencapTimeout time.Duration

	// CommandTimeout bounds input command acknowledgements.
	CommandTimeout time.Duration

	// QoS for command publishes.
	QoS byte
}

// reply is the wire shape of agent replies. Screencap replies fill
// Format and Data; input replies fill Ok and optionally Error.
type reply struct {
	ID     string `json:"id"`
	Ok     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
	Format string `json:"format,omitempty"`
	Data   string `json:"data,omitempty"`
}

// AgentController implements the engine's Controller interface over an
// MQTT device agent. Safe for concurrent use.
type AgentController struct {
	transport Transport
	cfg       Config
	topics    mqtt.Topics
	logger    Logger

	mu      sync.Mutex
	pending map[string]chan reply
}

// New creates a controller for one device agent and subscribes to its
// reply topics.
func New(transport Transport, cfg Config) (*AgentController, error) {
	if cfg.Device == "" {
		return nil, fmt.Errorf("controller: device is required")
	}
	if cfg.ScreencapTimeout <= 0 {
		cfg.ScreencapTimeout = 10 * time.Second
	}
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = 5 * time.Second
	}

	c := &AgentController{
		transport: transport,
		cfg:       cfg,
		logger:    noopLogger{},
		pending:   make(map[string]chan reply),
	}

	for _, channel := range []string{"screencap", "input"} {
		topic := c.topics.Reply(cfg.Device, channel)
		if err := transport.Subscribe(topic, cfg.QoS, c.handleReply); err != nil {
			return nil, fmt.Errorf("subscribing to %s: %w", topic, err)
		}
	}
	return c, nil
}

// SetLogger sets the logger for the controller.
func (c *AgentController) SetLogger(logger Logger) {
	c.logger = logger
}

// Screencap requests a frame from the agent and decodes the PNG reply.
func (c *AgentController) Screencap(ctx context.Context) (task.Frame, error) {
	rep, err := c.roundTrip(ctx, "screencap", map[string]any{}, c.cfg.ScreencapTimeout)
	if err != nil {
		return task.Frame{}, err
	}

	if rep.Format != "" && rep.Format != "png" {
		return task.Frame{}, fmt.Errorf("%w: unsupported format %q", ErrBadReply, rep.Format)
	}
	raw, err := base64.StdEncoding.DecodeString(rep.Data)
	if err != nil {
		return task.Frame{}, fmt.Errorf("%w: %v", ErrBadReply, err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return task.Frame{}, fmt.Errorf("%w: %v", ErrBadReply, err)
	}
	return task.Frame{Image: img}, nil
}

// Tap sends a tap at the given point.
func (c *AgentController) Tap(ctx context.Context, x, y int) error {
	_, err := c.roundTrip(ctx, "input", map[string]any{
		"type": "tap", "x": x, "y": y,
	}, c.cfg.CommandTimeout)
	return err
}

// Swipe sends a drag gesture.
func (c *AgentController) Swipe(ctx context.Context, x1, y1, x2, y2 int, duration time.Duration) error {
	_, err := c.roundTrip(ctx, "input", map[string]any{
		"type": "swipe",
		"x1":   x1, "y1": y1, "x2": x2, "y2": y2,
		"duration_ms": duration.Milliseconds(),
	}, c.cfg.CommandTimeout)
	return err
}

// PressKey sends a key press.
func (c *AgentController) PressKey(ctx context.Context, key int) error {
	_, err := c.roundTrip(ctx, "input", map[string]any{
		"type": "press_key", "key": key,
	}, c.cfg.CommandTimeout)
	return err
}

// roundTrip publishes a command and waits for the correlated reply.
func (c *AgentController) roundTrip(ctx context.Context, channel string, body map[string]any, timeout time.Duration) (reply, error) {
	id := uuid.NewString()
	body["id"] = id

	payload, err := json.Marshal(body)
	if err != nil {
		return reply{}, fmt.Errorf("encoding command: %w", err)
	}

	ch := make(chan reply, 1)
	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	topic := c.topics.Command(c.cfg.Device, channel)
	if err := c.transport.Publish(topic, payload, c.cfg.QoS, false); err != nil {
		return reply{}, fmt.Errorf("publishing command: %w", err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case rep := <-ch:
		if !rep.Ok {
			if rep.Error != "" {
				return reply{}, fmt.Errorf("%w: %s", ErrRejected, rep.Error)
			}
			return reply{}, ErrRejected
		}
		return rep, nil
	case <-timer.C:
		c.logger.Warn("agent reply timeout", "device", c.cfg.Device, "channel", channel, "id", id)
		return reply{}, ErrTimeout
	case <-ctx.Done():
		return reply{}, ctx.Err()
	}
}

// handleReply routes an agent reply to the waiting caller. Replies with
// no waiter (late answers after a timeout) are dropped.
func (c *AgentController) handleReply(topic string, payload []byte) error {
	var rep reply
	if err := json.Unmarshal(payload, &rep); err != nil {
		return fmt.Errorf("%w: %v", ErrBadReply, err)
	}
	if rep.ID == "" {
		return fmt.Errorf("%w: missing id", ErrBadReply)
	}

	c.mu.Lock()
	ch, ok := c.pending[rep.ID]
	c.mu.Unlock()

	if !ok {
		c.logger.Debug("dropping unmatched reply", "topic", topic, "id", rep.ID)
		return nil
	}

	select {
	case ch <- rep:
	default:
	}
	return nil
}
