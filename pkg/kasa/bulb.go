package kasa

import (
	"errors"
	"fmt"
	"net"
	"time"

	"golang.org/x/time/rate"

	logx "github.com/nepthar/smart-party/pkg/logx"
)

// ErrRateLimited is returned when a command would exceed the bulb's rate
// budget. Frame-loop callers should treat it as "skip this frame", not as a
// failure.
var ErrRateLimited = errors.New("kasa: command rate limit exceeded")

const (
	defaultTimeout    = 1 * time.Second
	defaultRatePerSec = 20
	maxDatagram       = 2048
)

// Options tunes a bulb client.
type Options struct {
	// Timeout bounds a single request/response exchange.
	Timeout time.Duration
	// RatePerSec caps outgoing commands. Zero means the default.
	RatePerSec float64
	// Burst is the token bucket depth. Zero means 1.
	Burst int
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.RatePerSec <= 0 {
		o.RatePerSec = defaultRatePerSec
	}
	if o.Burst <= 0 {
		o.Burst = 1
	}
	return o
}

// Bulb is a client for one smart bulb. It caches the last known alias and
// light state; Refresh and every acknowledged transition keep the cache in
// step with the device.
type Bulb struct {
	conn    net.PacketConn
	addr    net.Addr
	limiter *rate.Limiter
	timeout time.Duration
	log     logx.Logger

	alias string
	power bool
	state LightState
}

// NewBulb builds a client for the bulb at addr, sharing the caller's socket.
func NewBulb(conn net.PacketConn, addr net.Addr, opts Options, log logx.Logger) *Bulb {
	opts = opts.withDefaults()
	return &Bulb{
		conn:    conn,
		addr:    addr,
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSec), opts.Burst),
		timeout: opts.Timeout,
		log:     log.With(logx.String("comp", "kasa"), logx.String("bulb", addr.String())),
	}
}

func (b *Bulb) Addr() net.Addr    { return b.addr }
func (b *Bulb) Alias() string     { return b.alias }
func (b *Bulb) Power() bool       { return b.power }
func (b *Bulb) State() LightState { return b.state }

func (b *Bulb) String() string {
	alias := b.alias
	if alias == "" {
		alias = "unknown"
	}
	return fmt.Sprintf("Bulb %q @ %s", alias, b.addr)
}

// Refresh queries sysinfo and updates the cached alias/state.
func (b *Bulb) Refresh() error {
	resp, err := b.roundTrip([]byte(sysinfoQuery))
	if err != nil {
		return err
	}
	si, err := parseSysinfo(resp)
	if err != nil {
		return err
	}
	b.applySysinfo(si)
	return nil
}

// applySysinfo mirrors the firmware's reporting quirk: a powered-off bulb
// reports its resting preferred state, not the zeroed live one.
func (b *Bulb) applySysinfo(si sysinfo) {
	b.alias = si.Alias
	b.power = si.LightState.OnOff == 1
	if b.power || len(si.PreferredState) == 0 {
		b.state = si.LightState
	} else {
		b.state = si.PreferredState[0]
	}
}

// SetState pushes a transition and folds the acknowledged fields into the
// cached state.
func (b *Bulb) SetState(tr Transition) error {
	payload, err := encodeTransition(tr)
	if err != nil {
		return err
	}
	resp, err := b.roundTrip(payload)
	if err != nil {
		return err
	}
	if err := parseTransitionResult(resp); err != nil {
		return err
	}
	b.applyTransition(tr)
	return nil
}

func (b *Bulb) applyTransition(tr Transition) {
	if tr.OnOff != nil {
		b.power = *tr.OnOff == 1
		b.state.OnOff = *tr.OnOff
	}
	if tr.Hue != nil {
		b.state.Hue = *tr.Hue
	}
	if tr.Saturation != nil {
		b.state.Saturation = *tr.Saturation
	}
	if tr.ColorTemp != nil {
		b.state.ColorTemp = *tr.ColorTemp
	}
	if tr.Brightness != nil {
		b.state.Brightness = *tr.Brightness
	}
}

// SetBrightness sets brightness percent with an optional transition period.
func (b *Bulb) SetBrightness(pct int, transition time.Duration) error {
	if pct < 0 {
		pct = 0
	} else if pct > 100 {
		pct = 100
	}
	tr := Transition{Brightness: IntP(pct)}
	if transition > 0 {
		tr.TransitionPeriod = IntP(int(transition.Milliseconds()))
	}
	return b.SetState(tr)
}

// SetHue sets the hue in degrees (0..360).
func (b *Bulb) SetHue(hue int) error {
	return b.SetState(Transition{Hue: IntP(hue % 360)})
}

// Toggle flips the power state.
func (b *Bulb) Toggle() error {
	next := 1
	if b.power {
		next = 0
	}
	return b.SetState(Transition{OnOff: IntP(next)})
}

// Off powers the bulb down if it is on.
func (b *Bulb) Off() error {
	if !b.power {
		return nil
	}
	return b.SetState(Transition{OnOff: IntP(0)})
}

// roundTrip runs one encrypted request/response exchange. It never waits for
// limiter tokens: in a cooperative frame loop, blocking here would stall
// every other task, so an exhausted bucket surfaces as ErrRateLimited.
func (b *Bulb) roundTrip(payload []byte) ([]byte, error) {
	if !b.limiter.Allow() {
		return nil, ErrRateLimited
	}

	deadline := time.Now().Add(b.timeout)
	if err := b.conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("kasa: set deadline: %w", err)
	}

	if _, err := b.conn.WriteTo(Encrypt(payload), b.addr); err != nil {
		return nil, fmt.Errorf("kasa: send to %s: %w", b.addr, err)
	}

	buf := make([]byte, maxDatagram)
	for {
		n, from, err := b.conn.ReadFrom(buf)
		if err != nil {
			return nil, fmt.Errorf("kasa: recv from %s: %w", b.addr, err)
		}
		// The socket is shared; skip datagrams from other devices.
		if from.String() != b.addr.String() {
			b.log.Debug("dropping stray datagram", logx.String("from", from.String()))
			continue
		}
		return Decrypt(buf[:n]), nil
	}
}
