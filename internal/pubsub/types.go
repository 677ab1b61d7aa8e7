package pubsub

import "cloud.google.com/go/pubsub"

type client struct {
	client   *pubsub.Client
	teardown func()
}

// EventType represents the type of event/message sent via pubsub.
type EventType string

const (
	EventMatchCreated   EventType = "match-created"
	EventMatchActivated EventType = "match-activated"
	EventMatchFinished  EventType = "match-finished"
	EventMatchCancelled EventType = "match-cancelled"
)

// MatchEvent is the payload published for every match lifecycle transition.
// Downstream consumers (stats exporters, chat relays) decode it with
// ProcessMessage.
type MatchEvent struct {
	MatchID  string         `msgpack:"match_id"`
	Mode     string         `msgpack:"mode"`
	Status   string         `msgpack:"status"`
	TeamA    []string       `msgpack:"team_a"`
	TeamB    []string       `msgpack:"team_b"`
	Winner   string         `msgpack:"winner,omitempty"`
	Deltas   map[string]int `msgpack:"deltas,omitempty"`
	UnixTime int64          `msgpack:"unix_time"`
}
