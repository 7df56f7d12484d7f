package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/emmett/wavelink/internal/app"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

type StreamStartArgs struct{}

type StreamStopArgs struct{}

type SetFrequencyArgs struct {
	Hz float64 `json:"hz" jsonschema:"required,description=Oscillator frequency in Hz (0 silences the tone)"`
}

type SetAmplitudeArgs struct {
	Amplitude float64 `json:"amplitude" jsonschema:"required,description=Peak amplitude; values outside 0..1 are clamped"`
}

type SetDestinationArgs struct {
	Host string `json:"host" jsonschema:"required,description=Destination host or IP"`
	Port int    `json:"port" jsonschema:"required,description=Destination UDP port"`
}

type SetAddressArgs struct {
	Address string `json:"address" jsonschema:"required,description=Channel address; the receiver classifies by substring (audio/text/analysis)"`
}

type SendTextArgs struct {
	Text string `json:"text" jsonschema:"required,description=Text payload sent verbatim on the text channel"`
}

type EngineStatusArgs struct{}

func (s *Server) handleStreamStart(ctx context.Context, req *sdk.CallToolRequest, args StreamStartArgs) (*sdk.CallToolResult, any, error) {
	s.engine.SetStreaming(true)
	return textResult("streaming enabled"), nil, nil
}

func (s *Server) handleStreamStop(ctx context.Context, req *sdk.CallToolRequest, args StreamStopArgs) (*sdk.CallToolResult, any, error) {
	s.engine.SetStreaming(false)
	return textResult("streaming paused"), nil, nil
}

func (s *Server) handleSetFrequency(ctx context.Context, req *sdk.CallToolRequest, args SetFrequencyArgs) (*sdk.CallToolResult, any, error) {
	if err := s.engine.SetFrequency(args.Hz); err != nil {
		return nil, nil, fmt.Errorf("failed to set frequency: %w", err)
	}
	return textResult(fmt.Sprintf("frequency set to %.1f Hz", args.Hz)), nil, nil
}

func (s *Server) handleSetAmplitude(ctx context.Context, req *sdk.CallToolRequest, args SetAmplitudeArgs) (*sdk.CallToolResult, any, error) {
	if err := s.engine.SetAmplitude(args.Amplitude); err != nil {
		return nil, nil, fmt.Errorf("failed to set amplitude: %w", err)
	}
	return textResult(fmt.Sprintf("amplitude set to %.2f", s.engine.Status().Amplitude)), nil, nil
}

func (s *Server) handleSetDestination(ctx context.Context, req *sdk.CallToolRequest, args SetDestinationArgs) (*sdk.CallToolResult, any, error) {
	if err := s.engine.UpdateDestination(args.Host, args.Port); err != nil {
		return nil, nil, fmt.Errorf("failed to update destination: %w", err)
	}
	return textResult(fmt.Sprintf("destination set to %s:%d", args.Host, args.Port)), nil, nil
}

func (s *Server) handleSetAddress(ctx context.Context, req *sdk.CallToolRequest, args SetAddressArgs) (*sdk.CallToolResult, any, error) {
	if err := s.engine.SetAddress(args.Address); err != nil {
		return nil, nil, fmt.Errorf("failed to set address: %w", err)
	}
	return textResult(fmt.Sprintf("address set to %s", args.Address)), nil, nil
}

func (s *Server) handleSendText(ctx context.Context, req *sdk.CallToolRequest, args SendTextArgs) (*sdk.CallToolResult, any, error) {
	if err := s.engine.SendText(args.Text); err != nil {
		return nil, nil, fmt.Errorf("failed to send text: %w", err)
	}
	return textResult("text sent"), nil, nil
}

func (s *Server) handleEngineStatus(ctx context.Context, req *sdk.CallToolRequest, args EngineStatusArgs) (*sdk.CallToolResult, any, error) {
	st := s.engine.Status()

	streaming := "paused"
	if st.Streaming {
		streaming = "streaming"
	}

	content := []sdk.Content{
		&sdk.TextContent{Text: fmt.Sprintf("destination: %s:%d", st.Host, st.Port)},
		&sdk.TextContent{Text: fmt.Sprintf("address: %s", st.Address)},
		&sdk.TextContent{Text: fmt.Sprintf("source: %s", st.Source)},
		&sdk.TextContent{Text: fmt.Sprintf("state: %s", streaming)},
		&sdk.TextContent{Text: fmt.Sprintf("sent: %d messages, uptime %s", st.Sent, st.Uptime.Round(time.Second))},
	}
	if st.Source == app.SourceSine {
		content = append(content,
			&sdk.TextContent{Text: fmt.Sprintf("frequency: %.1f Hz, amplitude %.2f", st.Frequency, st.Amplitude)})
	}

	return &sdk.CallToolResult{Content: content}, nil, nil
}

func textResult(text string) *sdk.CallToolResult {
	return &sdk.CallToolResult{
		Content: []sdk.Content{&sdk.TextContent{Text: text}},
	}
}
