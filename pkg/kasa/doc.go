// Package kasa speaks the TP-Link smart bulb protocol over UDP.
//
// Commands are JSON envelopes obfuscated with the firmware's autokey XOR
// stream cipher. Discovery is a broadcast of the sysinfo query to port 9999;
// every bulb on the segment answers with its state. Each request/response is
// a single datagram exchange.
//
// The package owns no sockets: callers inject a net.PacketConn so tests can
// point it at a loopback fake and the daemon can share one socket across
// bulbs. Commands to a single bulb go through a token-bucket limiter so a
// high-frequency caller (the frame loop) cannot flood the bulb firmware.
package kasa
