// Package bridge exposes one relay card over MQTT.
package bridge

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/relaykit/k8090.go/pkg/k8090"
)

// Broker is the message transport the bridge publishes to and receives
// commands from. Implemented by *Queue; tests substitute a fake.
type Broker interface {
	Pub(topic string, payload []byte, retain bool) error
	Sub(topic string, handler Handler) error
}

// Bridge mirrors board state to the broker and drives the board from
// command topics:
//
//	relay/<n>/state   retained state, published on every change
//	button/<n>/event  press/release edges
//	card/meta         retained firmware/jumper info
//	relay/<n>/set     accepts "on", "off", "toggle"
//	relay/<n>/timer   accepts the delay in seconds
type Bridge struct {
	session *k8090.Session
	broker  Broker
	now     func() time.Time
}

// New creates a Bridge over an open session.
func New(session *k8090.Session, broker Broker) *Bridge {
	return &Bridge{session: session, broker: broker, now: time.Now}
}

// Run publishes the initial snapshot, subscribes the command topics and
// mirrors events until the context is canceled or the session closes.
func (b *Bridge) Run(ctx context.Context) error {
	if err := b.publishMeta(); err != nil {
		return err
	}
	for i := 0; i < k8090.ChannelCount; i++ {
		if err := b.publishRelay(i); err != nil {
			return err
		}
	}
	if err := b.broker.Sub("relay/+/set", b.handleSet); err != nil {
		return err
	}
	if err := b.broker.Sub("relay/+/timer", b.handleTimer); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-b.session.Events():
			if !ok {
				return nil
			}
			b.publishEvent(ev)
		}
	}
}

func (b *Bridge) publishEvent(ev k8090.Event) {
	switch ev := ev.(type) {
	case k8090.RelayEvent:
		if err := b.publishRelay(ev.Index); err != nil {
			glog.Warningf("publish relay %d: %v", ev.Index, err)
		}
	case k8090.ButtonEvent:
		payload, err := FormatButtonPayload(ev, b.now())
		if err != nil {
			glog.Warningf("format button event: %v", err)
			return
		}
		topic := fmt.Sprintf("button/%d/event", ev.Index)
		if err := b.broker.Pub(topic, payload, false); err != nil {
			glog.Warningf("publish %s: %v", topic, err)
		}
	}
}

func (b *Bridge) publishRelay(index int) error {
	r, err := b.session.Relay(index)
	if err != nil {
		return err
	}
	payload, err := FormatRelayPayload(r.State(), b.now())
	if err != nil {
		return err
	}
	return b.broker.Pub(fmt.Sprintf("relay/%d/state", index), payload, true)
}

func (b *Bridge) publishMeta() error {
	payload, err := FormatMetaPayload(b.session.CardInfo())
	if err != nil {
		return err
	}
	return b.broker.Pub("card/meta", payload, true)
}

// relayFromTopic extracts the relay index from topics like relay/3/set.
func relayFromTopic(topic string) (int, error) {
	tokens := strings.Split(topic, "/")
	if len(tokens) != 3 || tokens[0] != "relay" {
		return 0, fmt.Errorf("unexpected topic %q", topic)
	}
	return strconv.Atoi(tokens[1])
}

func (b *Bridge) handleSet(topic string, payload []byte) {
	index, err := relayFromTopic(topic)
	if err != nil {
		glog.Warningf("%v", err)
		return
	}
	r, err := b.session.Relay(index)
	if err != nil {
		glog.Warningf("%s: %v", topic, err)
		return
	}
	switch action := string(payload); action {
	case "on":
		err = r.On()
	case "off":
		err = r.Off()
	case "toggle":
		err = r.Toggle()
	default:
		glog.Warningf("%s: unknown action %q", topic, action)
		return
	}
	if err != nil {
		glog.Warningf("%s: %v", topic, err)
	}
}

func (b *Bridge) handleTimer(topic string, payload []byte) {
	index, err := relayFromTopic(topic)
	if err != nil {
		glog.Warningf("%v", err)
		return
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(string(payload)))
	if err != nil {
		glog.Warningf("%s: bad delay %q", topic, payload)
		return
	}
	r, err := b.session.Relay(index)
	if err != nil {
		glog.Warningf("%s: %v", topic, err)
		return
	}
	if err := r.StartTimer(seconds); err != nil {
		glog.Warningf("%s: %v", topic, err)
	}
}
