package kasa

import (
	"strings"
	"testing"
)

func TestEncodeTransitionEnvelope(t *testing.T) {
	payload, err := encodeTransition(Transition{OnOff: IntP(1), Brightness: IntP(40), TransitionPeriod: IntP(250)})
	if err != nil {
		t.Fatalf("encodeTransition: %v", err)
	}
	s := string(payload)
	if !strings.HasPrefix(s, `{"smartlife.iot.smartbulb.lightingservice":{"transition_light_state":`) {
		t.Fatalf("wrong envelope: %s", s)
	}
	for _, frag := range []string{`"on_off":1`, `"brightness":40`, `"transition_period":250`} {
		if !strings.Contains(s, frag) {
			t.Fatalf("payload missing %s: %s", frag, s)
		}
	}
	// Unset fields must be absent so the bulb keeps its current values.
	for _, frag := range []string{"hue", "saturation", "color_temp"} {
		if strings.Contains(s, frag) {
			t.Fatalf("payload must omit unset field %s: %s", frag, s)
		}
	}
}

func TestEncodeTransitionOffKeepsZero(t *testing.T) {
	payload, err := encodeTransition(Transition{OnOff: IntP(0)})
	if err != nil {
		t.Fatalf("encodeTransition: %v", err)
	}
	if !strings.Contains(string(payload), `"on_off":0`) {
		t.Fatalf("explicit off must survive marshaling: %s", payload)
	}
}

func TestParseSysinfo(t *testing.T) {
	raw := []byte(`{"system":{"get_sysinfo":{
		"alias":"desk lamp","model":"LB130",
		"light_state":{"on_off":1,"hue":120,"saturation":80,"color_temp":0,"brightness":55},
		"err_code":0}}}`)
	si, err := parseSysinfo(raw)
	if err != nil {
		t.Fatalf("parseSysinfo: %v", err)
	}
	if si.Alias != "desk lamp" {
		t.Fatalf("alias = %q", si.Alias)
	}
	if si.LightState.OnOff != 1 || si.LightState.Hue != 120 || si.LightState.Brightness != 55 {
		t.Fatalf("light state = %+v", si.LightState)
	}
}

func TestParseSysinfoErrCode(t *testing.T) {
	raw := []byte(`{"system":{"get_sysinfo":{"err_code":-1}}}`)
	if _, err := parseSysinfo(raw); err == nil {
		t.Fatal("nonzero err_code must fail")
	}
	if _, err := parseSysinfo([]byte("not json")); err == nil {
		t.Fatal("garbage must fail")
	}
}

func TestParseTransitionResult(t *testing.T) {
	ok := []byte(`{"smartlife.iot.smartbulb.lightingservice":{"transition_light_state":{"err_code":0}}}`)
	if err := parseTransitionResult(ok); err != nil {
		t.Fatalf("parseTransitionResult: %v", err)
	}
	rejected := []byte(`{"smartlife.iot.smartbulb.lightingservice":{"transition_light_state":{"err_code":-3,"err_msg":"invalid argument"}}}`)
	err := parseTransitionResult(rejected)
	if err == nil || !strings.Contains(err.Error(), "invalid argument") {
		t.Fatalf("err = %v, want rejection with message", err)
	}
}
