// Package protocol defines the line-oriented request/response records
// the game server speaks: one JSON object per line, one response per
// request, in order.
package protocol

import (
	"encoding/json"
	"errors"
	"strings"
)

// Recognized actions (with their accepted aliases).
const (
	ActionInit      = "init"
	ActionTick      = "tick"
	ActionStatus    = "status"
	ActionWater     = "water"
	ActionFertilize = "fertilize"
	ActionSimulate  = "simulate"
)

// Canonical resolves an action alias onto its canonical name; ok is
// false for unknown actions.
func Canonical(action string) (string, bool) {
	switch strings.ToLower(action) {
	case "init", "initialize", "reset":
		return ActionInit, true
	case "tick", "step", "advance":
		return ActionTick, true
	case "status", "state":
		return ActionStatus, true
	case "water":
		return ActionWater, true
	case "fertilize", "fertilise":
		return ActionFertilize, true
	case "simulate":
		return ActionSimulate, true
	default:
		return "", false
	}
}

// Request is one client record. Fields that accept either a number or
// a named preset (fertilizer, irrigation) and the date-ish fields stay
// untyped; the dispatcher validates them.
type Request struct {
	Action string `json:"action"`

	// init / simulate
	Date                 any      `json:"date,omitempty"`
	Crop                 string   `json:"crop,omitempty"`
	Variety              string   `json:"variety,omitempty"`
	Fertilizer           any      `json:"fertilizer,omitempty"`
	Irrigation           any      `json:"irrigation,omitempty"`
	IrrigationEfficiency *float64 `json:"irrigation_efficiency,omitempty"`
	Lat                  *float64 `json:"lat,omitempty"`
	Lon                  *float64 `json:"lon,omitempty"`
	Elev                 *float64 `json:"elev,omitempty"`

	// tick
	Steps *int `json:"steps,omitempty"`

	// water / fertilize
	AmountCm    *float64 `json:"amount_cm,omitempty"`
	Efficiency  *float64 `json:"efficiency,omitempty"`
	AmountKgHa  *float64 `json:"amount_kg_ha,omitempty"`
	NH4Fraction *float64 `json:"nh4_fraction,omitempty"`
	Day         any      `json:"day,omitempty"`
	When        any      `json:"when,omitempty"`
	AutoSteps   *int     `json:"auto_steps,omitempty"`
}

// ErrEmptyPayload is returned for a blank request line.
var ErrEmptyPayload = errors.New("empty payload")

// Parse decodes one request line. A line that is not a JSON object
// falls back to the four comma-separated init fields
// "date,fertilizer,irrigation,crop".
func Parse(line []byte) (Request, error) {
	content := strings.TrimSpace(string(line))
	if content == "" {
		return Request{}, ErrEmptyPayload
	}

	if strings.HasPrefix(content, "{") {
		var req Request
		if err := json.Unmarshal([]byte(content), &req); err != nil {
			return Request{}, errors.New("payload JSON must be an object")
		}
		return req, nil
	}
	if strings.HasPrefix(content, "[") || strings.HasPrefix(content, "\"") {
		return Request{}, errors.New("payload JSON must be an object")
	}

	parts := strings.Split(content, ",")
	if len(parts) != 4 {
		return Request{}, errors.New("expected date,fertilizer,irrigation,crop")
	}
	return Request{
		Action:     ActionInit,
		Date:       strings.TrimSpace(parts[0]),
		Fertilizer: strings.TrimSpace(parts[1]),
		Irrigation: strings.TrimSpace(parts[2]),
		Crop:       strings.TrimSpace(parts[3]),
	}, nil
}

// Response is one server record: ok plus either a result or an error
// message (and machine code).
type Response struct {
	OK     bool   `json:"ok"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
	Code   string `json:"code,omitempty"`
}

func Success(result any) Response { return Response{OK: true, Result: result} }

func Failure(code, message string) Response {
	return Response{OK: false, Error: message, Code: code}
}

// Greeting is sent once, immediately after connect.
type Greeting struct {
	OK        bool   `json:"ok"`
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}
