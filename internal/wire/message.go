// Package wire implements the text datagram format shared by the sender and
// the receiver: an address token, an optional chunk-index suffix, and a
// space-separated payload. Messages degrade gracefully — unparseable payload
// tokens are skipped, whole messages are only dropped when nothing usable
// remains.
package wire

import (
	"fmt"
	"strconv"
	"strings"
)

// Protocol defaults. A 128-sample chunk formatted at 3 decimals stays well
// under the ~1400 byte UDP-safe payload size.
const (
	DefaultChunkSize = 128
	DefaultMaxChunks = 32
)

// Class identifies the logical channel a message belongs to.
type Class int

const (
	ClassUnknown Class = iota
	ClassAudio
	ClassText
	ClassAnalysis
)

// String returns a human-readable channel class name.
func (c Class) String() string {
	switch c {
	case ClassAudio:
		return "audio"
	case ClassText:
		return "text"
	case ClassAnalysis:
		return "analysis"
	default:
		return "unknown"
	}
}

// Classify maps a channel address to its class by ordered substring match;
// the first matching pattern wins. Addresses with no known substring are
// Unknown and their messages are dropped before dispatch.
func Classify(address string) Class {
	switch {
	case strings.Contains(address, "audio"):
		return ClassAudio
	case strings.Contains(address, "text"):
		return ClassText
	case strings.Contains(address, "analysis"), strings.Contains(address, "features"):
		return ClassAnalysis
	default:
		return ClassUnknown
	}
}

// Message is one parsed datagram.
type Message struct {
	Address string    // channel address with any chunk suffix removed
	Chunk   int       // chunk index from the address suffix, -1 when absent
	Class   Class     // classification of Address
	Floats  []float32 // payload for audio and analysis messages
	Text    string    // verbatim payload for text messages
	Valid   bool      // false means drop without dispatch
}

// SplitAddress separates a trailing "_<digits>" chunk suffix from an address
// token. The chunk index is -1 when the token carries no numeric suffix.
func SplitAddress(token string) (address string, chunk int) {
	i := strings.LastIndexByte(token, '_')
	if i <= 0 || i == len(token)-1 {
		return token, -1
	}
	n, err := strconv.Atoi(token[i+1:])
	if err != nil || n < 0 {
		return token, -1
	}
	return token[:i], n
}

// Parse tokenizes one datagram. Audio and analysis payload tokens that fail
// float parsing are skipped rather than failing the message; a message is
// valid only if its payload is non-empty after parsing. Text payloads are
// taken verbatim after the address token and its separating space.
func Parse(line string) Message {
	trimmed := strings.TrimLeft(line, " \t\r\n")
	fields := strings.Fields(trimmed)
	if len(fields) == 0 {
		return Message{Chunk: -1}
	}

	token := fields[0]
	address, chunk := SplitAddress(token)
	msg := Message{
		Address: address,
		Chunk:   chunk,
		Class:   Classify(address),
	}

	switch msg.Class {
	case ClassAudio, ClassAnalysis:
		floats := make([]float32, 0, len(fields)-1)
		for _, tok := range fields[1:] {
			f, err := strconv.ParseFloat(tok, 32)
			if err != nil {
				continue
			}
			floats = append(floats, float32(f))
		}
		msg.Floats = floats
		msg.Valid = len(floats) > 0

	case ClassText:
		rest := trimmed[len(token):]
		if rest != "" && (rest[0] == ' ' || rest[0] == '\t') {
			rest = rest[1:]
		}
		msg.Text = rest
		msg.Valid = rest != ""
	}

	return msg
}

// FormatMessage renders a single float-payload datagram with no chunk
// suffix. Values are clamped to [-1, 1] and printed at fixed 3-decimal
// precision.
func FormatMessage(address string, values []float32) string {
	var b strings.Builder
	b.Grow(len(address) + 1 + 7*len(values))
	b.WriteString(address)
	b.WriteByte(' ')
	writeSamples(&b, values)
	return b.String()
}

// FormatText renders a text datagram; the payload travels verbatim.
func FormatText(address, text string) string {
	return address + " " + text
}

// FormatAudioChunks splits samples into datagrams of at most chunkSize
// samples each. The chunk-index suffix is appended only when the send needs
// more than one chunk. A send that would exceed maxChunks is refused
// outright rather than partially transmitted. Non-positive chunkSize and
// maxChunks fall back to the protocol defaults.
func FormatAudioChunks(address string, samples []float32, chunkSize, maxChunks int) ([]string, error) {
	if len(samples) == 0 {
		return nil, nil
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if maxChunks <= 0 {
		maxChunks = DefaultMaxChunks
	}

	total := (len(samples) + chunkSize - 1) / chunkSize
	if total > maxChunks {
		return nil, fmt.Errorf("wire: %d samples need %d chunks, over the %d chunk cap",
			len(samples), total, maxChunks)
	}

	msgs := make([]string, 0, total)
	for chunk := 0; chunk < total; chunk++ {
		start := chunk * chunkSize
		end := start + chunkSize
		if end > len(samples) {
			end = len(samples)
		}

		var b strings.Builder
		b.Grow(len(address) + 8 + 7*(end-start))
		b.WriteString(address)
		if total > 1 {
			b.WriteByte('_')
			b.WriteString(strconv.Itoa(chunk))
		}
		b.WriteByte(' ')
		writeSamples(&b, samples[start:end])
		msgs = append(msgs, b.String())
	}
	return msgs, nil
}

// writeSamples appends clamped 3-decimal samples, each followed by a space.
// The trailing space matches the original protocol emitter; parsers treat it
// as insignificant whitespace.
func writeSamples(b *strings.Builder, samples []float32) {
	for _, s := range samples {
		b.WriteString(strconv.FormatFloat(float64(clampSample(s)), 'f', 3, 32))
		b.WriteByte(' ')
	}
}

func clampSample(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
