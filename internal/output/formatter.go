package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// ReceivedMessage represents one classified datagram worth logging (text or
// analysis; audio goes to the playback sink, not the log)
type ReceivedMessage struct {
	Index     int       `json:"index"`
	Channel   string    `json:"channel"`
	Kind      string    `json:"kind"`
	Text      string    `json:"text,omitempty"`
	Features  []float32 `json:"features,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Payload renders the message body for display: text verbatim, feature
// vectors as a compact bracketed list like "[0.500 -0.250]".
func (m ReceivedMessage) Payload() string {
	if m.Kind == "text" {
		return m.Text
	}

	var b strings.Builder
	b.WriteByte('[')
	for i, f := range m.Features {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'f', 3, 32))
	}
	b.WriteByte(']')
	return b.String()
}

// Event represents a system event
type Event struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Formatter is the interface for message log formatters
type Formatter interface {
	// WriteMessage writes a received message
	WriteMessage(msg ReceivedMessage) error

	// WriteEvent writes a system event (e.g., receiver start/stop)
	WriteEvent(eventType, message string) error

	// Flush ensures all buffered output is written
	Flush() error

	// Close closes the formatter and releases resources
	Close() error
}

// JSONFormatter logs received messages as a JSON stream
type JSONFormatter struct {
	writer   io.Writer
	encoder  *json.Encoder
	messages []ReceivedMessage
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(writer io.Writer) *JSONFormatter {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")

	return &JSONFormatter{
		writer:   writer,
		encoder:  encoder,
		messages: make([]ReceivedMessage, 0),
	}
}

// WriteMessage writes a received message in JSON format
func (j *JSONFormatter) WriteMessage(msg ReceivedMessage) error {
	j.messages = append(j.messages, msg)
	return j.encoder.Encode(msg)
}

// WriteEvent writes a system event
func (j *JSONFormatter) WriteEvent(eventType, message string) error {
	event := Event{
		Type:      eventType,
		Message:   message,
		Timestamp: time.Now(),
	}
	return j.encoder.Encode(event)
}

// Flush ensures all buffered output is written
func (j *JSONFormatter) Flush() error {
	// JSON encoder writes immediately, nothing to flush
	return nil
}

// Close closes the formatter
func (j *JSONFormatter) Close() error {
	return nil
}

// GetMessages returns all messages written so far
func (j *JSONFormatter) GetMessages() []ReceivedMessage {
	return j.messages
}

// PlainTextFormatter logs received messages as timestamped text lines
type PlainTextFormatter struct {
	writer io.Writer
}

// NewPlainTextFormatter creates a new plain text formatter
func NewPlainTextFormatter(writer io.Writer) *PlainTextFormatter {
	return &PlainTextFormatter{
		writer: writer,
	}
}

// WriteMessage writes a received message in plain text
func (p *PlainTextFormatter) WriteMessage(msg ReceivedMessage) error {
	timestamp := msg.Timestamp.Format("15:04:05")
	text := fmt.Sprintf("[%s] [%d] %s %s\n", timestamp, msg.Index, msg.Channel, msg.Payload())

	_, err := p.writer.Write([]byte(text))
	return err
}

// WriteEvent writes a system event
func (p *PlainTextFormatter) WriteEvent(eventType, message string) error {
	timestamp := time.Now().Format("15:04:05")
	text := fmt.Sprintf("[%s] [%s] %s\n", timestamp, eventType, message)
	_, err := p.writer.Write([]byte(text))
	return err
}

// Flush ensures all buffered output is written
func (p *PlainTextFormatter) Flush() error {
	return nil
}

// Close closes the formatter
func (p *PlainTextFormatter) Close() error {
	return nil
}
