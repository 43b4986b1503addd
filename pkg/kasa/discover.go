package kasa

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	logx "github.com/nepthar/smart-party/pkg/logx"
)

// DefaultBroadcast is where bulbs listen on a typical home network.
const DefaultBroadcast = "255.255.255.255:9999"

// Discover broadcasts the sysinfo query to dst and collects every reply that
// arrives within timeout. Most bulbs answer in well under 100ms; the timeout
// exists for the stragglers. Each reply becomes a ready-to-use Bulb sharing
// the given socket and options.
func Discover(ctx context.Context, conn net.PacketConn, dst net.Addr, timeout time.Duration, opts Options, log logx.Logger) ([]*Bulb, error) {
	if timeout <= 0 {
		timeout = 1 * time.Second
	}
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	if _, err := conn.WriteTo(Encrypt([]byte(sysinfoQuery)), dst); err != nil {
		return nil, fmt.Errorf("kasa: discovery broadcast: %w", err)
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("kasa: set deadline: %w", err)
	}

	var bulbs []*Bulb
	buf := make([]byte, maxDatagram)
	for {
		if ctx.Err() != nil {
			break
		}
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			// The deadline expiring is the normal end of discovery.
			if errors.Is(err, os.ErrDeadlineExceeded) {
				break
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				break
			}
			return bulbs, fmt.Errorf("kasa: discovery recv: %w", err)
		}

		si, perr := parseSysinfo(Decrypt(buf[:n]))
		if perr != nil {
			log.Debug("ignoring malformed discovery reply",
				logx.String("from", from.String()), logx.Err(perr))
			continue
		}

		b := NewBulb(conn, from, opts, log)
		b.applySysinfo(si)
		log.Info("found bulb",
			logx.String("alias", b.Alias()),
			logx.String("addr", from.String()),
			logx.Bool("power", b.Power()))
		bulbs = append(bulbs, b)
	}

	return bulbs, nil
}
