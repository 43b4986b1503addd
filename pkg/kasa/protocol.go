package kasa

import (
	"encoding/json"
	"fmt"
)

// sysinfoQuery is the fixed system query every bulb answers, both unicast
// and as the discovery broadcast.
const sysinfoQuery = `{"system":{"get_sysinfo":{}}}`

// LightState mirrors the bulb's light_state JSON object.
type LightState struct {
	OnOff            int `json:"on_off"`
	Hue              int `json:"hue,omitempty"`
	Saturation       int `json:"saturation,omitempty"`
	ColorTemp        int `json:"color_temp,omitempty"`
	Brightness       int `json:"brightness,omitempty"`
	TransitionPeriod int `json:"transition_period,omitempty"`
}

// Transition is a partial light-state change. Nil fields are omitted from
// the wire payload so the bulb keeps its current value for them.
type Transition struct {
	OnOff            *int `json:"on_off,omitempty"`
	Hue              *int `json:"hue,omitempty"`
	Saturation       *int `json:"saturation,omitempty"`
	ColorTemp        *int `json:"color_temp,omitempty"`
	Brightness       *int `json:"brightness,omitempty"`
	TransitionPeriod *int `json:"transition_period,omitempty"`
}

// IntP is a convenience for building Transition literals.
func IntP(v int) *int { return &v }

type sysinfo struct {
	Alias          string       `json:"alias"`
	Model          string       `json:"model,omitempty"`
	SWVersion      string       `json:"sw_ver,omitempty"`
	LightState     LightState   `json:"light_state"`
	PreferredState []LightState `json:"preferred_state,omitempty"`
	ErrCode        int          `json:"err_code"`
}

type sysinfoEnvelope struct {
	System struct {
		GetSysinfo sysinfo `json:"get_sysinfo"`
	} `json:"system"`
}

type transitionResult struct {
	Service struct {
		Transition struct {
			ErrCode int    `json:"err_code"`
			ErrMsg  string `json:"err_msg,omitempty"`
		} `json:"transition_light_state"`
	} `json:"smartlife.iot.smartbulb.lightingservice"`
}

// encodeTransition frames a transition as the lighting-service envelope the
// firmware expects.
func encodeTransition(tr Transition) ([]byte, error) {
	inner, err := json.Marshal(tr)
	if err != nil {
		return nil, fmt.Errorf("kasa: marshal transition: %w", err)
	}
	payload := `{"smartlife.iot.smartbulb.lightingservice":{"transition_light_state":` + string(inner) + `}}`
	return []byte(payload), nil
}

// parseSysinfo decodes a sysinfo response (plaintext, already decrypted).
func parseSysinfo(data []byte) (sysinfo, error) {
	var env sysinfoEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return sysinfo{}, fmt.Errorf("kasa: decode sysinfo: %w", err)
	}
	si := env.System.GetSysinfo
	if si.ErrCode != 0 {
		return sysinfo{}, fmt.Errorf("kasa: sysinfo err_code %d", si.ErrCode)
	}
	return si, nil
}

// parseTransitionResult decodes the bulb's acknowledgement of a transition.
func parseTransitionResult(data []byte) error {
	var res transitionResult
	if err := json.Unmarshal(data, &res); err != nil {
		return fmt.Errorf("kasa: decode transition result: %w", err)
	}
	if code := res.Service.Transition.ErrCode; code != 0 {
		msg := res.Service.Transition.ErrMsg
		if msg == "" {
			msg = "unspecified"
		}
		return fmt.Errorf("kasa: transition rejected: err_code %d (%s)", code, msg)
	}
	return nil
}
