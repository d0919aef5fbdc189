package transport

import (
	"fmt"

	"github.com/minidsp-audio/minidsp-go/pkg/codec"
	"github.com/minidsp-audio/minidsp-go/pkg/protocol"
)

// reframer accumulates a byte stream and splits it into complete
// LEN|PAYLOAD|CRC8 frames, the way device.go's parseResponse resyncs on
// a marker byte and waits for a complete payload. Shared by the TCP and
// HID backends, whose only difference is how bytes arrive (a raw
// stream vs fixed-size HID reports with trailing 0xFF padding and a
// leading report-id byte).
type reframer struct {
	buf []byte
}

// Feed appends newly received bytes to the internal buffer.
func (r *reframer) Feed(b []byte) {
	r.buf = append(r.buf, b...)
}

// Next extracts one complete frame from the buffer, if present. It
// returns ok=false when more bytes are needed. A corrupt frame (bad
// CRC) is reported as an error but the reframer still advances past the
// declared length so the stream can resynchronize on the next frame.
func (r *reframer) Next() (codecPayload []byte, ok bool, err error) {
	if len(r.buf) == 0 {
		return nil, false, nil
	}

	length := int(r.buf[0])
	if length < 3 {
		// Not a plausible LEN byte; drop it and let the caller retry
		// once more bytes arrive, resynchronizing byte-by-byte.
		r.buf = r.buf[1:]
		return nil, false, fmt.Errorf("%w: implausible frame length %d", codec.ErrFrameCorrupt, length)
	}
	if len(r.buf) < length {
		return nil, false, nil
	}

	frame := r.buf[:length]
	r.buf = r.buf[length:]

	payload, decodeErr := codec.Decode(frame)
	return payload, true, decodeErr
}

func isUnsolicited(payload []byte) bool {
	return len(payload) > 0 && protocol.Opcode(payload[0]) == protocol.OpEvent
}
