package traffic

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message is one decoded report from the Stratux /traffic websocket.
// Only the fields the companion uses are kept.
type Message struct {
	IcaoAddr      uint32
	Reg           string
	Tail          string
	PositionValid bool
	Lat           float64
	Lng           float64
	Alt           int32  // pressure altitude, feet
	Speed         uint16 // knots
	SpeedValid    bool
	Track         float64 // degrees true
	Timestamp     time.Time
}

// wireMessage mirrors Stratux's TrafficInfo JSON. Pointers mark the fields
// a report cannot be used without.
type wireMessage struct {
	IcaoAddr      *uint32   `json:"Icao_addr"`
	Reg           string    `json:"Reg"`
	Tail          string    `json:"Tail"`
	PositionValid *bool     `json:"Position_valid"`
	Lat           *float64  `json:"Lat"`
	Lng           *float64  `json:"Lng"`
	Alt           int32     `json:"Alt"`
	Speed         uint16    `json:"Speed"`
	SpeedValid    bool      `json:"Speed_valid"`
	Track         float64   `json:"Track"`
	Timestamp     time.Time `json:"Timestamp"`
}

// DecodeMessage parses a traffic report. It fails on malformed JSON and on
// reports missing the address, position validity flag or coordinates.
func DecodeMessage(data []byte) (Message, error) {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return Message{}, fmt.Errorf("failed to decode traffic message: %w", err)
	}

	switch {
	case w.IcaoAddr == nil:
		return Message{}, fmt.Errorf("traffic message missing Icao_addr")
	case w.PositionValid == nil:
		return Message{}, fmt.Errorf("traffic message missing Position_valid")
	case *w.PositionValid && (w.Lat == nil || w.Lng == nil):
		return Message{}, fmt.Errorf("traffic message %06X missing coordinates", *w.IcaoAddr)
	}

	m := Message{
		IcaoAddr:      *w.IcaoAddr,
		Reg:           w.Reg,
		Tail:          w.Tail,
		PositionValid: *w.PositionValid,
		Alt:           w.Alt,
		Speed:         w.Speed,
		SpeedValid:    w.SpeedValid,
		Track:         w.Track,
		Timestamp:     w.Timestamp,
	}
	if w.Lat != nil {
		m.Lat = *w.Lat
	}
	if w.Lng != nil {
		m.Lng = *w.Lng
	}
	return m, nil
}
