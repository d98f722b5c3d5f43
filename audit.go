package authform

import (
	"io"

	internalaudit "github.com/MrEthical07/authform/internal/audit"
)

// NewChannelSink returns a sink that buffers up to buffer events in a channel.
// Consumers read from Events().
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a sink that writes one JSON object per line to w.
// This is the diagnostic channel used by the demo server (stderr).
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
