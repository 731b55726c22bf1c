package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Wire header: 4 magic bytes, 1 type id, 4 byte payload length, 4 byte
// sequence, all big-endian. HeaderSize bytes precede every payload.
const HeaderSize = 13

// Magic identifies the start of a frame: "CNET".
var Magic = [4]byte{0x43, 0x4E, 0x45, 0x54}

// Codec errors. Classify with errors.Is.
var (
	ErrInvalidMagic    = errors.New("protocol: invalid magic")
	ErrMessageTooLarge = errors.New("protocol: message too large")
	ErrSerialization   = errors.New("protocol: serialization error")
	ErrIncomplete      = errors.New("protocol: incomplete frame")
)

// Frame is one sequenced message as it appears on (or comes off) the wire.
type Frame struct {
	Sequence uint32
	Message  Message
}

// Encoder assigns a monotonically increasing (wrapping) sequence number to
// every frame it produces, independently per direction per connection.
type Encoder struct {
	seq uint32
}

// NewEncoder returns an Encoder starting at sequence 0.
func NewEncoder() *Encoder { return &Encoder{} }

// Encode serializes msg into a complete frame (header + payload), advancing
// the sequence counter. Fails with ErrMessageTooLarge if the payload would
// exceed MaxMessageSize.
func (e *Encoder) Encode(msg Message) ([]byte, error) {
	payload, err := marshalPayload(msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	if len(payload) > MaxMessageSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, len(payload))
	}
	seq := e.seq
	e.seq++

	out := make([]byte, HeaderSize+len(payload))
	copy(out[0:4], Magic[:])
	out[4] = msg.TypeID()
	binary.BigEndian.PutUint32(out[5:9], uint32(len(payload)))
	binary.BigEndian.PutUint32(out[9:13], seq)
	copy(out[HeaderSize:], payload)
	return out, nil
}

// decodeState is the streaming decoder's state.
type decodeState int

const (
	stateHeader decodeState = iota
	statePayload
)

// Decoder is a streaming frame decoder: feed it arbitrarily-chunked bytes
// and pull complete frames back out. Once a full header has arrived it is
// consumed and its fields are held in the decoder while the payload is
// awaited; a frame is returned only when its whole payload is buffered.
type Decoder struct {
	buf   []byte
	state decodeState

	// pending header fields, valid once state == statePayload
	typeID uint8
	length uint32
	seq    uint32
}

// NewDecoder returns an empty streaming decoder.
func NewDecoder() *Decoder { return &Decoder{state: stateHeader} }

// Feed appends newly-received bytes to the decoder's internal buffer.
func (d *Decoder) Feed(b []byte) {
	d.buf = append(d.buf, b...)
}

// Next attempts to decode one frame from the buffered bytes. It returns
// ErrIncomplete (wrapped) when more bytes are needed. A partial header stays
// in the buffer; a complete header is consumed and remembered, so a later
// Feed+Next picks up where this left off.
func (d *Decoder) Next() (*Frame, error) {
	for {
		switch d.state {
		case stateHeader:
			if len(d.buf) < HeaderSize {
				return nil, fmt.Errorf("%w: need header", ErrIncomplete)
			}
			if d.buf[0] != Magic[0] || d.buf[1] != Magic[1] || d.buf[2] != Magic[2] || d.buf[3] != Magic[3] {
				return nil, ErrInvalidMagic
			}
			length := binary.BigEndian.Uint32(d.buf[5:9])
			if length > MaxMessageSize {
				return nil, fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, length)
			}
			d.typeID = d.buf[4]
			d.length = length
			d.seq = binary.BigEndian.Uint32(d.buf[9:13])
			d.buf = d.buf[HeaderSize:]
			d.state = statePayload
		case statePayload:
			if uint32(len(d.buf)) < d.length {
				return nil, fmt.Errorf("%w: need payload", ErrIncomplete)
			}
			payload := d.buf[:d.length]
			d.buf = d.buf[d.length:]
			d.state = stateHeader
			msg, err := unmarshalPayload(d.typeID, payload)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
			}
			return &Frame{Sequence: d.seq, Message: msg}, nil
		}
	}
}

// --- deterministic, length-prefixed binary serialization ---

func marshalPayload(msg Message) ([]byte, error) {
	var w byteWriter
	switch m := msg.(type) {
	case Hello:
		w.u32(m.ProtocolVersion)
		w.screenInfo(m.ScreenInfo)
	case HelloAck:
		w.u32(m.ProtocolVersion)
		w.screenInfo(m.ScreenInfo)
		w.boolean(m.Accepted)
		w.optString(m.Reason)
	case MouseMoveRelative:
		w.i32(m.DX)
		w.i32(m.DY)
	case MouseMoveAbsolute:
		w.i32(m.X)
		w.i32(m.Y)
	case MouseButtonMsg:
		w.u8(uint8(m.Button))
		w.boolean(m.Pressed)
	case MouseScroll:
		w.i32(m.DX)
		w.i32(m.DY)
	case KeyDown:
		w.u32(m.Keycode)
		w.optChar(m.Character)
		w.u8(m.Modifiers.Bits())
	case KeyUp:
		w.u32(m.Keycode)
		w.u8(m.Modifiers.Bits())
	case EnterScreen:
		w.u8(uint8(m.Edge))
		w.f32(m.Position)
	case LeaveScreen:
		w.u8(uint8(m.Edge))
		w.f32(m.Position)
	case ClipboardData:
		w.str(m.MimeType)
		w.bytes(m.Data)
	case ClipboardRequest:
		// no payload
	case GrabKeyboard:
		// no payload
	case ReleaseKeyboard:
		// no payload
	case Heartbeat:
		w.u64(m.TimestampUs)
	case HeartbeatAck:
		w.u64(m.TimestampUs)
	case Disconnect:
		w.str(m.Reason)
	case ErrorMsg:
		w.u32(m.Code)
		w.str(m.Message)
	default:
		return nil, fmt.Errorf("unknown message type %T", msg)
	}
	if w.err != nil {
		return nil, w.err
	}
	return w.buf, nil
}

func unmarshalPayload(typeID uint8, payload []byte) (Message, error) {
	r := byteReader{buf: payload}
	var msg Message
	switch typeID {
	case TypeHello:
		m := Hello{}
		m.ProtocolVersion = r.u32()
		m.ScreenInfo = r.screenInfo()
		msg = m
	case TypeHelloAck:
		m := HelloAck{}
		m.ProtocolVersion = r.u32()
		m.ScreenInfo = r.screenInfo()
		m.Accepted = r.boolean()
		m.Reason = r.optString()
		msg = m
	case TypeMouseMoveRelative:
		msg = MouseMoveRelative{DX: r.i32(), DY: r.i32()}
	case TypeMouseMoveAbsolute:
		msg = MouseMoveAbsolute{X: r.i32(), Y: r.i32()}
	case TypeMouseButton:
		btn := MouseButton(r.u8())
		msg = MouseButtonMsg{Button: btn, Pressed: r.boolean()}
	case TypeMouseScroll:
		msg = MouseScroll{DX: r.i32(), DY: r.i32()}
	case TypeKeyDown:
		m := KeyDown{}
		m.Keycode = r.u32()
		m.Character = r.optChar()
		m.Modifiers = ModifiersFromBits(r.u8())
		msg = m
	case TypeKeyUp:
		m := KeyUp{}
		m.Keycode = r.u32()
		m.Modifiers = ModifiersFromBits(r.u8())
		msg = m
	case TypeEnterScreen:
		msg = EnterScreen{Edge: ScreenEdge(r.u8()), Position: r.f32()}
	case TypeLeaveScreen:
		msg = LeaveScreen{Edge: ScreenEdge(r.u8()), Position: r.f32()}
	case TypeClipboardData:
		m := ClipboardData{}
		m.MimeType = r.str()
		m.Data = r.bytesField()
		msg = m
	case TypeClipboardRequest:
		msg = ClipboardRequest{}
	case TypeGrabKeyboard:
		msg = GrabKeyboard{}
	case TypeReleaseKeyboard:
		msg = ReleaseKeyboard{}
	case TypeHeartbeat:
		msg = Heartbeat{TimestampUs: r.u64()}
	case TypeHeartbeatAck:
		msg = HeartbeatAck{TimestampUs: r.u64()}
	case TypeDisconnect:
		msg = Disconnect{Reason: r.str()}
	case TypeError:
		m := ErrorMsg{}
		m.Code = r.u32()
		m.Message = r.str()
		msg = m
	default:
		return nil, fmt.Errorf("unknown type id 0x%02X", typeID)
	}
	if r.err != nil {
		return nil, r.err
	}
	return msg, nil
}

// byteWriter appends fixed- and variable-width fields in wire order,
// latching the first error so call sites can chain without checking each
// write.
type byteWriter struct {
	buf []byte
	err error
}

func (w *byteWriter) u8(v uint8)   { w.buf = append(w.buf, v) }
func (w *byteWriter) boolean(v bool) {
	if v {
		w.u8(1)
	} else {
		w.u8(0)
	}
}
func (w *byteWriter) u32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}
func (w *byteWriter) i32(v int32) { w.u32(uint32(v)) }
func (w *byteWriter) u64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}
func (w *byteWriter) f32(v float32) { w.u32(math.Float32bits(v)) }

func (w *byteWriter) bytes(v []byte) {
	w.u32(uint32(len(v)))
	w.buf = append(w.buf, v...)
}

func (w *byteWriter) str(s string) { w.bytes([]byte(s)) }

func (w *byteWriter) optString(s string) {
	if s == "" {
		w.boolean(false)
		return
	}
	w.boolean(true)
	w.str(s)
}

func (w *byteWriter) optChar(r rune) {
	if r == 0 {
		w.boolean(false)
		return
	}
	w.boolean(true)
	w.u32(uint32(r))
}

func (w *byteWriter) screenInfo(s ScreenInfo) {
	w.str(s.HostID)
	w.str(s.HostName)
	w.u32(s.Width)
	w.u32(s.Height)
	w.f32(s.DPIX)
	w.f32(s.DPIY)
}

// byteReader is the mirror-image cursor over a single payload's bytes.
type byteReader struct {
	buf []byte
	pos int
	err error
}

func (r *byteReader) need(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.pos+n > len(r.buf) {
		r.err = fmt.Errorf("payload truncated: need %d bytes at offset %d of %d", n, r.pos, len(r.buf))
		return nil
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *byteReader) u8() uint8 {
	b := r.need(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *byteReader) boolean() bool { return r.u8() != 0 }

func (r *byteReader) u32() uint32 {
	b := r.need(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (r *byteReader) i32() int32 { return int32(r.u32()) }

func (r *byteReader) u64() uint64 {
	b := r.need(8)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

func (r *byteReader) f32() float32 { return math.Float32frombits(r.u32()) }

func (r *byteReader) bytesField() []byte {
	n := r.u32()
	b := r.need(int(n))
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func (r *byteReader) str() string {
	b := r.bytesField()
	return string(b)
}

func (r *byteReader) optString() string {
	if !r.boolean() {
		return ""
	}
	return r.str()
}

func (r *byteReader) optChar() rune {
	if !r.boolean() {
		return 0
	}
	return rune(r.u32())
}

func (r *byteReader) screenInfo() ScreenInfo {
	var s ScreenInfo
	s.HostID = r.str()
	s.HostName = r.str()
	s.Width = r.u32()
	s.Height = r.u32()
	s.DPIX = r.f32()
	s.DPIY = r.f32()
	return s
}
