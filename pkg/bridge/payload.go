package bridge

import (
	"encoding/json"
	"time"

	"github.com/relaykit/k8090.go/pkg/k8090"
)

// RelayPayload is the JSON body published on relay/<n>/state.
type RelayPayload struct {
	On          bool   `json:"on"`
	TimerActive bool   `json:"timer_active"`
	Delay       uint16 `json:"delay"`
	Timestamp   string `json:"timestamp"`
}

// ButtonPayload is the JSON body published on button/<n>/event.
type ButtonPayload struct {
	Pressed   bool   `json:"pressed"`
	Action    string `json:"action"`
	Timestamp string `json:"timestamp"`
}

// MetaPayload is the JSON body published retained on card/meta.
type MetaPayload struct {
	Firmware string `json:"firmware"`
	Jumper   bool   `json:"jumper"`
}

// FormatRelayPayload builds the relay state body.
func FormatRelayPayload(st k8090.RelayState, now time.Time) ([]byte, error) {
	return json.Marshal(RelayPayload{
		On:          st.On,
		TimerActive: st.TimerActive,
		Delay:       st.Delay,
		Timestamp:   now.UTC().Format(time.RFC3339),
	})
}

// FormatButtonPayload builds the button event body.
func FormatButtonPayload(ev k8090.ButtonEvent, now time.Time) ([]byte, error) {
	return json.Marshal(ButtonPayload{
		Pressed:   ev.Pressed,
		Action:    ev.Action.String(),
		Timestamp: now.UTC().Format(time.RFC3339),
	})
}

// FormatMetaPayload builds the card metadata body.
func FormatMetaPayload(info k8090.CardInfo) ([]byte, error) {
	return json.Marshal(MetaPayload{Firmware: info.Firmware, Jumper: info.Jumper})
}
