package chat

// Payload is an immutable outbound message. One Payload may sit in many
// clients' outboxes at once; each outbox keeps its own write offset.
type Payload struct {
	data []byte
}

// NewPayload takes ownership of b. The caller must not modify b afterwards.
func NewPayload(b []byte) *Payload {
	return &Payload{data: b}
}

func (p *Payload) Len() int { return len(p.data) }

func (p *Payload) String() string { return string(p.data) }
