package wspipe

import "net/http"

type Kind int

const (
	KindText Kind = iota + 1
	KindBinary
	KindPing
	KindPong
	KindClose
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindBinary:
		return "binary"
	case KindPing:
		return "ping"
	case KindPong:
		return "pong"
	case KindClose:
		return "close"
	}
	return "unknown"
}

// IsControl reports whether the kind is a protocol control frame kind.
func (k Kind) IsControl() bool {
	return k == KindPing || k == KindPong || k == KindClose
}

// Message is the payload carried through the message pipeline. Status and
// Reason are meaningful only for KindClose. Meta is scratch space for
// middlewares and is nil until one of them populates it.
type Message struct {
	Kind   Kind
	Data   []byte
	Status Status
	Reason string
	Meta   map[string]any
}

func NewMessage(kind Kind, data []byte) *Message {
	return &Message{
		Kind: kind,
		Data: data,
	}
}

func NewTextMessage(text string) *Message {
	return NewMessage(KindText, []byte(text))
}

func NewCloseMessage(status Status, reason string) *Message {
	return &Message{
		Kind:   KindClose,
		Status: status,
		Reason: reason,
	}
}

// CloseStatus returns the close status code, substituting a normal closure
// for close messages that carry no code.
func (m *Message) CloseStatus() Status {
	if m.Status == 0 {
		return StatusNormalClosure
	}
	return m.Status
}

func (m *Message) SetMeta(key string, value any) {
	if m.Meta == nil {
		m.Meta = map[string]any{}
	}
	m.Meta[key] = value
}

func (m *Message) GetMeta(key string) (any, bool) {
	if m.Meta == nil {
		return nil, false
	}
	v, ok := m.Meta[key]
	return v, ok
}

// Handshake is the HTTP message exchanged during the upgrade phase, either
// the client's upgrade request or the server's response.
type Handshake struct {
	Method string
	Path   string
	Status int
	Header http.Header
	Body   []byte
	Meta   map[string]any
}

func NewHandshakeRequest(method, path string) *Handshake {
	return &Handshake{
		Method: method,
		Path:   path,
		Header: http.Header{},
	}
}

func NewHandshakeResponse(status int) *Handshake {
	return &Handshake{
		Status: status,
		Header: http.Header{},
	}
}

// IsResponse reports whether the handshake message is a response.
func (h *Handshake) IsResponse() bool {
	return h.Status != 0
}

func (h *Handshake) SetMeta(key string, value any) {
	if h.Meta == nil {
		h.Meta = map[string]any{}
	}
	h.Meta[key] = value
}

func (h *Handshake) GetMeta(key string) (any, bool) {
	if h.Meta == nil {
		return nil, false
	}
	v, ok := h.Meta[key]
	return v, ok
}
