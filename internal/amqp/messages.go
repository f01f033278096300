package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// Change kinds carried by PeriodChangedMessage.
const (
	KindExpense      = "expense"
	KindContribution = "contribution"
	KindRefresh      = "refresh"
)

// PeriodChangedMessage announces that the records of a period changed and
// its report must be regenerated. An empty Period asks for every period.
type PeriodChangedMessage struct {
	Period    string    `json:"period"`
	Kind      string    `json:"kind"`
	Ref       string    `json:"ref,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewPeriodChangedMessage(period, kind, ref string) *PeriodChangedMessage {
	return &PeriodChangedMessage{
		Period:    period,
		Kind:      kind,
		Ref:       ref,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *PeriodChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// PeriodChangedMessageFromJSON decodes a message and checks its kind.
func PeriodChangedMessageFromJSON(data []byte) (*PeriodChangedMessage, error) {
	var msg PeriodChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Kind {
	case KindExpense, KindContribution, KindRefresh:
	default:
		return nil, errors.New("unknown message kind " + msg.Kind)
	}
	return &msg, nil
}
