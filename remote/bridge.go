// Package remote drives a loaded animation from MQTT messages.
//
// Topics below the configured prefix map onto handle operations:
//
//	<prefix>/play                 resume playback
//	<prefix>/pause                pause playback
//	<prefix>/input/<name>         "true"/"false" sets a bool input,
//	                              a number sets a number input,
//	                              an empty payload fires a trigger
//
// Messages arrive on paho's goroutines and are only queued there; Apply
// runs them on the caller's goroutine.
package remote

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

const queueSize = 64

// Config describes the broker connection.
type Config struct {
	URL      string `yaml:"url"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Prefix   string `yaml:"prefix"`
}

// Target is what commands are applied to; *surface.Handle satisfies it.
type Target interface {
	Play() error
	Pause() error
	SetBool(name string, v bool) error
	SetNumber(name string, v float64) error
	Fire(name string) error
}

// Op is the kind of a Command.
type Op int

const (
	OpPlay Op = iota
	OpPause
	OpBool
	OpNumber
	OpTrigger
)

func (o Op) String() string {
	switch o {
	case OpPlay:
		return "play"
	case OpPause:
		return "pause"
	case OpBool:
		return "bool"
	case OpNumber:
		return "number"
	case OpTrigger:
		return "trigger"
	}
	return "unknown"
}

// Command is one parsed message.
type Command struct {
	Op     Op
	Input  string
	Bool   bool
	Number float64
}

// ParseCommand maps a topic and payload to a command.
func ParseCommand(prefix, topic string, payload []byte) (Command, error) {
	prefix = strings.TrimSuffix(prefix, "/")
	rest, ok := strings.CutPrefix(topic, prefix+"/")
	if !ok {
		return Command{}, fmt.Errorf("topic %q is outside %q", topic, prefix)
	}

	switch rest {
	case "play":
		return Command{Op: OpPlay}, nil
	case "pause":
		return Command{Op: OpPause}, nil
	}

	name, ok := strings.CutPrefix(rest, "input/")
	if !ok || name == "" {
		return Command{}, fmt.Errorf("unknown topic %q", topic)
	}
	body := strings.TrimSpace(string(payload))
	if body == "" {
		return Command{Op: OpTrigger, Input: name}, nil
	}
	switch body {
	case "true":
		return Command{Op: OpBool, Input: name, Bool: true}, nil
	case "false":
		return Command{Op: OpBool, Input: name}, nil
	}
	n, err := strconv.ParseFloat(body, 64)
	if err != nil {
		return Command{}, fmt.Errorf("input %q: payload %q is not a bool or number", name, body)
	}
	return Command{Op: OpNumber, Input: name, Number: n}, nil
}

// Apply runs the command against t.
func (c Command) Apply(t Target) error {
	switch c.Op {
	case OpPlay:
		return t.Play()
	case OpPause:
		return t.Pause()
	case OpBool:
		return t.SetBool(c.Input, c.Bool)
	case OpNumber:
		return t.SetNumber(c.Input, c.Number)
	case OpTrigger:
		return t.Fire(c.Input)
	}
	return fmt.Errorf("unknown op %d", c.Op)
}

// Bridge subscribes to the command topics and queues what it receives.
type Bridge struct {
	cfg    Config
	log    *zap.Logger
	client mqtt.Client
	queue  chan Command
}

// New creates an unconnected bridge.
func New(cfg Config, log *zap.Logger) *Bridge {
	if log == nil {
		log = zap.NewNop()
	}
	cfg.Prefix = strings.TrimSuffix(cfg.Prefix, "/")
	if cfg.Prefix == "" {
		cfg.Prefix = "animsurface"
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "animsurface"
	}
	return &Bridge{
		cfg:   cfg,
		log:   log.With(zap.String("broker", cfg.URL), zap.String("prefix", cfg.Prefix)),
		queue: make(chan Command, queueSize),
	}
}

// Connect dials the broker and subscribes on every (re)connect.
func (b *Bridge) Connect() error {
	options := mqtt.NewClientOptions().
		AddBroker(b.cfg.URL).
		SetClientID(b.cfg.ClientID).
		SetUsername(b.cfg.Username).
		SetPassword(b.cfg.Password).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(5 * time.Second).
		SetAutoReconnect(true).
		SetOnConnectHandler(b.handleOnConnect).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			b.log.Warn("mqtt connection lost", zap.Error(err))
		})
	b.client = mqtt.NewClient(options)

	token := b.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("remote: connect to %s timed out", b.cfg.URL)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("remote: connect to %s: %w", b.cfg.URL, err)
	}
	return nil
}

func (b *Bridge) handleOnConnect(client mqtt.Client) {
	topic := b.cfg.Prefix + "/#"
	token := client.Subscribe(topic, 0, b.handleMessage)
	if token.Wait() && token.Error() != nil {
		b.log.Error("mqtt subscribe failed", zap.String("topic", topic), zap.Error(token.Error()))
		return
	}
	b.log.Info("mqtt connected", zap.String("topic", topic))
}

func (b *Bridge) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	if strings.HasPrefix(msg.Topic(), b.cfg.Prefix+"/state") {
		return
	}
	cmd, err := ParseCommand(b.cfg.Prefix, msg.Topic(), msg.Payload())
	if err != nil {
		b.log.Warn("ignoring mqtt message", zap.String("topic", msg.Topic()), zap.Error(err))
		return
	}
	select {
	case b.queue <- cmd:
	default:
		b.log.Warn("command queue full, dropping", zap.Stringer("op", cmd.Op), zap.String("input", cmd.Input))
	}
}

// Apply runs every queued command against t and returns how many ran.
// Failing commands are logged and skipped.
func (b *Bridge) Apply(t Target) int {
	n := 0
	for {
		select {
		case cmd := <-b.queue:
			if t == nil {
				continue
			}
			if err := cmd.Apply(t); err != nil {
				b.log.Warn("remote command failed",
					zap.Stringer("op", cmd.Op),
					zap.String("input", cmd.Input),
					zap.Error(err))
				continue
			}
			n++
		default:
			return n
		}
	}
}

// PublishState reports a state machine's active state on
// <prefix>/state/<stateMachine>, retained.
func (b *Bridge) PublishState(stateMachine, state string) {
	if b.client == nil || !b.client.IsConnected() {
		return
	}
	topic := b.cfg.Prefix + "/state/" + stateMachine
	b.client.Publish(topic, 0, true, state)
}

// Close disconnects from the broker.
func (b *Bridge) Close() {
	if b.client != nil && b.client.IsConnected() {
		b.client.Disconnect(250)
	}
}
