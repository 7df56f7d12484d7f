package output

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONFormatterEncodesMessages(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	f := NewJSONFormatter(&buf)

	msg := ReceivedMessage{
		Index:     1,
		Channel:   "/chat/text",
		Kind:      "text",
		Text:      "hello world",
		Timestamp: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, f.WriteMessage(msg))
	require.NoError(t, f.WriteEvent("receiver", "started"))
	require.NoError(t, f.Flush())
	require.NoError(t, f.Close())

	dec := json.NewDecoder(&buf)

	var gotMsg ReceivedMessage
	require.NoError(t, dec.Decode(&gotMsg))
	assert.Equal(t, msg, gotMsg)

	var gotEvent Event
	require.NoError(t, dec.Decode(&gotEvent))
	assert.Equal(t, "receiver", gotEvent.Type)
	assert.Equal(t, "started", gotEvent.Message)

	assert.Len(t, f.GetMessages(), 1)
}

func TestJSONFormatterOmitsEmptyPayloadFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	f := NewJSONFormatter(&buf)
	require.NoError(t, f.WriteMessage(ReceivedMessage{
		Index:    2,
		Channel:  "/analysis/features",
		Kind:     "analysis",
		Features: []float32{0.1, 0.2},
	}))

	assert.NotContains(t, buf.String(), `"text"`)
	assert.Contains(t, buf.String(), `"features"`)
}

func TestPlainTextFormatterRendersPayloads(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	f := NewPlainTextFormatter(&buf)

	ts := time.Date(2024, 3, 1, 9, 30, 15, 0, time.Local)
	require.NoError(t, f.WriteMessage(ReceivedMessage{
		Index: 1, Channel: "/chat/text", Kind: "text", Text: "hi there", Timestamp: ts,
	}))
	require.NoError(t, f.WriteMessage(ReceivedMessage{
		Index: 2, Channel: "/analysis/features", Kind: "analysis",
		Features: []float32{0.5, -0.25}, Timestamp: ts,
	}))

	out := buf.String()
	assert.Contains(t, out, "[09:30:15] [1] /chat/text hi there")
	assert.Contains(t, out, "[09:30:15] [2] /analysis/features [0.500 -0.250]")
}

func TestPlainTextFormatterEvents(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	f := NewPlainTextFormatter(&buf)
	require.NoError(t, f.WriteEvent("shutdown", "received 42 messages"))
	assert.Contains(t, buf.String(), "[shutdown] received 42 messages")
}
