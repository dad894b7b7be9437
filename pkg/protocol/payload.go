// Package protocol decodes the delimited payload strings the core packs
// into event fields. Payload content originates from remote peers and is
// untrusted free text: every decoder here is a total function that falls
// back to documented placeholders instead of failing.
package protocol

import (
	"strconv"
	"strings"
)

// RequestMarker prefixes the Data1 payload of an incoming-request event.
const RequestMarker = "[[REQUEST]]"

// Placeholders used when a payload field is missing or malformed.
const (
	UnknownFile   = "Unknown File"
	UnknownSender = "Unknown Sender"
	UnknownDevice = "Unknown-Device"
)

// Request holds the decoded fields of an incoming-request payload:
// "[[REQUEST]]|<filename>|<size>|<sender>|<device>".
type Request struct {
	Filename string
	Size     uint64
	Sender   string
	Device   string
}

// ParseRequest decodes an incoming-request payload. Missing trailing
// fields default to placeholders; an unparseable size decodes as zero.
// It never fails, whatever the input.
func ParseRequest(payload string) Request {
	req := Request{
		Filename: UnknownFile,
		Sender:   UnknownSender,
		Device:   UnknownDevice,
	}

	// Everything after the first delimiter; the marker itself is not
	// validated so that older cores with a different prefix still decode.
	i := strings.IndexByte(payload, '|')
	if i < 0 {
		return req
	}

	parts := strings.Split(payload[i+1:], "|")
	if parts[0] != "" {
		req.Filename = parts[0]
	}
	if len(parts) > 1 {
		if n, err := strconv.ParseUint(parts[1], 10, 64); err == nil {
			req.Size = n
		}
	}
	if len(parts) > 2 && parts[2] != "" {
		req.Sender = parts[2]
	}
	if len(parts) > 3 && parts[3] != "" {
		req.Device = parts[3]
	}

	return req
}

// Peer holds the decoded fields of a peer-found payload:
// "<name>|<ip>|<port>|<ssid>|<transport>". SSID may be empty.
type Peer struct {
	Name      string
	IP        string
	Port      uint16
	SSID      string
	Transport string
}

// ParsePeer decodes a peer-found payload. Missing fields default to
// empty strings and the transport defaults to TCP, matching what older
// cores emitted before the transport field existed.
func ParsePeer(payload string) Peer {
	peer := Peer{Transport: "TCP"}

	parts := strings.Split(payload, "|")
	peer.Name = parts[0]
	if len(parts) > 1 {
		peer.IP = parts[1]
	}
	if len(parts) > 2 {
		if n, err := strconv.ParseUint(parts[2], 10, 16); err == nil {
			peer.Port = uint16(n)
		}
	}
	if len(parts) > 3 {
		peer.SSID = parts[3]
	}
	if len(parts) > 4 && parts[4] != "" {
		peer.Transport = parts[4]
	}

	return peer
}

// FormatRequest packs request fields into the wire payload. Pipes inside
// fields are stripped so the result always splits back into the same
// fields.
func FormatRequest(filename string, size uint64, sender, device string) string {
	clean := func(s string) string { return strings.ReplaceAll(s, "|", "") }
	return RequestMarker + "|" + clean(filename) + "|" + strconv.FormatUint(size, 10) +
		"|" + clean(sender) + "|" + clean(device)
}
