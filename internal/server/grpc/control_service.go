package grpc

import (
	"context"

	"github.com/emmett/wavelink/internal/app"
)

// Request/response types for the engine control service.
// These will be updated to use generated proto types once protoc runs.

// UpdateDestinationRequest redirects the outgoing stream
type UpdateDestinationRequest struct {
	Host string
	Port int32
}

// SetAddressRequest changes the outgoing channel address
type SetAddressRequest struct {
	Address string
}

// SetFrequencyRequest retunes the sine source
type SetFrequencyRequest struct {
	Hz float64
}

// SetAmplitudeRequest adjusts the sine source's peak amplitude
type SetAmplitudeRequest struct {
	Amplitude float64
}

// SetStreamingRequest gates sending on or off
type SetStreamingRequest struct {
	Enabled bool
}

// SendTextRequest publishes one text datagram
type SendTextRequest struct {
	Text string
}

// ControlReply reports whether a mutation was applied
type ControlReply struct {
	Ok    bool
	Error string
}

// StatusRequest asks for an engine snapshot
type StatusRequest struct{}

// StatusReply is the engine snapshot
type StatusReply struct {
	Host      string
	Port      int32
	Address   string
	Source    string
	Frequency float64
	Amplitude float64
	Streaming bool
	Running   bool
	SentCount uint64
	UptimeMs  int64
}

// ControlService exposes the engine's mutators over gRPC
type ControlService struct {
	engine *app.Engine
}

// NewControlService creates a new engine control service
func NewControlService(engine *app.Engine) *ControlService {
	return &ControlService{engine: engine}
}

// UpdateDestination redirects the stream to a new host and port
func (s *ControlService) UpdateDestination(ctx context.Context, req *UpdateDestinationRequest) (*ControlReply, error) {
	return reply(s.engine.UpdateDestination(req.Host, int(req.Port))), nil
}

// SetAddress changes the channel address outgoing audio is published on
func (s *ControlService) SetAddress(ctx context.Context, req *SetAddressRequest) (*ControlReply, error) {
	return reply(s.engine.SetAddress(req.Address)), nil
}

// SetFrequency retunes the sine source
func (s *ControlService) SetFrequency(ctx context.Context, req *SetFrequencyRequest) (*ControlReply, error) {
	return reply(s.engine.SetFrequency(req.Hz)), nil
}

// SetAmplitude adjusts the sine source's peak amplitude
func (s *ControlService) SetAmplitude(ctx context.Context, req *SetAmplitudeRequest) (*ControlReply, error) {
	return reply(s.engine.SetAmplitude(req.Amplitude)), nil
}

// SetStreaming gates sending without stopping the render loop
func (s *ControlService) SetStreaming(ctx context.Context, req *SetStreamingRequest) (*ControlReply, error) {
	s.engine.SetStreaming(req.Enabled)
	return reply(nil), nil
}

// SendText publishes one verbatim text datagram on the text channel
func (s *ControlService) SendText(ctx context.Context, req *SendTextRequest) (*ControlReply, error) {
	return reply(s.engine.SendText(req.Text)), nil
}

// GetStatus reports the engine's current state
func (s *ControlService) GetStatus(ctx context.Context, req *StatusRequest) (*StatusReply, error) {
	st := s.engine.Status()
	return &StatusReply{
		Host:      st.Host,
		Port:      int32(st.Port),
		Address:   st.Address,
		Source:    st.Source,
		Frequency: st.Frequency,
		Amplitude: st.Amplitude,
		Streaming: st.Streaming,
		Running:   st.Running,
		SentCount: st.Sent,
		UptimeMs:  st.Uptime.Milliseconds(),
	}, nil
}

func reply(err error) *ControlReply {
	if err != nil {
		return &ControlReply{Ok: false, Error: err.Error()}
	}
	return &ControlReply{Ok: true}
}
