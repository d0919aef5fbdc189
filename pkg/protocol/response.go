package protocol

import "fmt"

// Response is a decoded frame: an opcode echo plus its payload. The
// multiplexer matches Response.Opcode against the opcode of the command
// at the head of its pending queue (spec.md §4.6).
type Response struct {
	Opcode  Opcode
	Payload []byte
}

// DecodeFrame reconstructs a Response from a frame payload (already
// stripped of LEN/CRC8 by pkg/codec). The first byte is the opcode
// echo; the remainder is the response payload.
func DecodeFrame(framePayload []byte) (Response, error) {
	if len(framePayload) == 0 {
		return Response{}, fmt.Errorf("protocol: empty frame payload")
	}
	return Response{
		Opcode:  Opcode(framePayload[0]),
		Payload: framePayload[1:],
	}, nil
}

// EncodeCommandFrame lowers a Command into the bytes to pass to
// pkg/codec.Encode: the opcode byte followed by the command's own
// encoding.
func EncodeCommandFrame(c Command) ([]byte, error) {
	body, err := c.Encode()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 1, 1+len(body))
	out[0] = byte(c.Opcode())
	return append(out, body...), nil
}

// CheckNack returns ErrDeviceNack if resp is a nack frame.
func CheckNack(resp Response) error {
	if resp.Opcode == OpNack {
		return fmt.Errorf("%w: %v", ErrDeviceNack, resp.Payload)
	}
	return nil
}
