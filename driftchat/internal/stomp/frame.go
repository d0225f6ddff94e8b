// Package stomp implements the minimal subset of STOMP 1.2 framing the SDK
// speaks over a WebSocket: CONNECT/CONNECTED handshake, SUBSCRIBE/UNSUBSCRIBE,
// SEND, MESSAGE, ERROR, DISCONNECT and the newline heartbeat frame.
package stomp

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
)

// Frame commands used by the client and expected from the server.
const (
	CommandConnect     = "CONNECT"
	CommandConnected   = "CONNECTED"
	CommandSubscribe   = "SUBSCRIBE"
	CommandUnsubscribe = "UNSUBSCRIBE"
	CommandSend        = "SEND"
	CommandMessage     = "MESSAGE"
	CommandReceipt     = "RECEIPT"
	CommandError       = "ERROR"
	CommandDisconnect  = "DISCONNECT"
)

var knownCommands = map[string]struct{}{
	CommandConnect:     {},
	CommandConnected:   {},
	CommandSubscribe:   {},
	CommandUnsubscribe: {},
	CommandSend:        {},
	CommandMessage:     {},
	CommandReceipt:     {},
	CommandError:       {},
	CommandDisconnect:  {},
}

// Frame is one unit of protocol traffic. A Frame with an empty Command is a
// heartbeat.
type Frame struct {
	Command string
	Headers map[string]string
	Body    []byte
}

// NewFrame constructs an empty frame for the given command.
func NewFrame(command string) *Frame {
	return &Frame{Command: command, Headers: map[string]string{}}
}

// Heartbeat returns the heartbeat frame (a bare EOL on the wire).
func Heartbeat() *Frame {
	return &Frame{}
}

// IsHeartbeat reports whether the frame is a heartbeat.
func (f *Frame) IsHeartbeat() bool {
	return f.Command == ""
}

// Set assigns a header value.
func (f *Frame) Set(key, value string) {
	if f.Headers == nil {
		f.Headers = map[string]string{}
	}
	f.Headers[key] = value
}

// Header returns the value for key, or "" when absent.
func (f *Frame) Header(key string) string {
	return f.Headers[key]
}

// Marshal encodes the frame to its wire representation. Headers are emitted
// in sorted order so output is deterministic.
func (f *Frame) Marshal() []byte {
	if f.IsHeartbeat() {
		return []byte("\n")
	}
	var buf bytes.Buffer
	buf.WriteString(f.Command)
	buf.WriteByte('\n')
	keys := make([]string, 0, len(f.Headers))
	for k := range f.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		buf.WriteString(escapeHeader(k))
		buf.WriteByte(':')
		buf.WriteString(escapeHeader(f.Headers[k]))
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	buf.Write(f.Body)
	buf.WriteByte(0)
	return buf.Bytes()
}

// ParseError reports a malformed frame. Callers drop such frames rather than
// treating them as transport failures.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "malformed stomp frame: " + e.Reason
}

// Parse decodes a single frame from raw. A payload consisting only of EOLs
// parses as a heartbeat.
func Parse(raw []byte) (*Frame, error) {
	trimmed := bytes.TrimLeft(raw, "\r\n")
	if len(trimmed) == 0 {
		return Heartbeat(), nil
	}

	head, body, found := bytes.Cut(trimmed, []byte("\n\n"))
	if !found {
		return nil, &ParseError{Reason: "missing header terminator"}
	}
	lines := strings.Split(strings.TrimSuffix(string(head), "\r"), "\n")
	command := strings.TrimSuffix(lines[0], "\r")
	if _, ok := knownCommands[command]; !ok {
		return nil, &ParseError{Reason: fmt.Sprintf("unknown command %q", command)}
	}

	f := NewFrame(command)
	for _, line := range lines[1:] {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, &ParseError{Reason: fmt.Sprintf("header without colon: %q", line)}
		}
		uk, err := unescapeHeader(key)
		if err != nil {
			return nil, err
		}
		uv, err := unescapeHeader(value)
		if err != nil {
			return nil, err
		}
		// first occurrence wins per STOMP 1.2
		if _, exists := f.Headers[uk]; !exists {
			f.Headers[uk] = uv
		}
	}

	if i := bytes.IndexByte(body, 0); i >= 0 {
		body = body[:i]
	}
	if len(body) > 0 {
		f.Body = append([]byte(nil), body...)
	}
	return f, nil
}

func escapeHeader(s string) string {
	r := strings.NewReplacer("\\", "\\\\", "\r", "\\r", "\n", "\\n", ":", "\\c")
	return r.Replace(s)
}

func unescapeHeader(s string) (string, error) {
	if !strings.ContainsRune(s, '\\') {
		return s, nil
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' {
			b.WriteByte(s[i])
			continue
		}
		i++
		if i >= len(s) {
			return "", &ParseError{Reason: "dangling escape in header"}
		}
		switch s[i] {
		case '\\':
			b.WriteByte('\\')
		case 'r':
			b.WriteByte('\r')
		case 'n':
			b.WriteByte('\n')
		case 'c':
			b.WriteByte(':')
		default:
			return "", &ParseError{Reason: fmt.Sprintf("invalid escape \\%c", s[i])}
		}
	}
	return b.String(), nil
}
