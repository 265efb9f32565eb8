package chat

import (
	"bytes"
	"unicode/utf8"

	"github.com/hongjun500/chat-relay/internal/observe"
)

const prompt = "\n> "

var (
	nickPrefix = []byte("/nick ")

	welcome         = NewPayload([]byte("Welcome to Simple Chat!\nUse /nick <nick> to set your nick." + prompt))
	invalidNick     = NewPayload([]byte("invalid nick" + prompt))
	lineTooLongNote = NewPayload([]byte("line too long" + prompt))
)

// processLine handles one complete line from c: either a /nick command,
// answered to c alone, or a chat message relayed to everyone else.
func (s *Server) processLine(c *Client, line []byte) {
	if name, ok := bytes.CutPrefix(line, nickPrefix); ok {
		s.changeNick(c, name)
		return
	}
	p := renderChat(c.Name, line)
	n := s.hub.Broadcast(c.Handle, p, func(r *Client, err error) {
		s.kill(r, reasonFor(err), err)
	})
	observe.IncMessage("chat")
	observe.ObserveFanout(n)
}

func (s *Server) changeNick(c *Client, name []byte) {
	if !utf8.Valid(name) {
		observe.IncMessage("nick_invalid")
		s.reply(c, invalidNick)
		return
	}
	old := c.Name
	c.Name = string(name)
	observe.IncMessage("nick")
	s.log.Debugw("nick_changed", "handle", c.Handle, "old", old, "new", c.Name)
	s.reply(c, renderNickChanged(c.Name))
}

func renderChat(name string, line []byte) *Payload {
	b := make([]byte, 0, len(name)+2+len(line)+len(prompt))
	b = append(b, name...)
	b = append(b, "> "...)
	b = append(b, line...)
	b = append(b, prompt...)
	return NewPayload(b)
}

func renderNickChanged(name string) *Payload {
	return NewPayload([]byte("nick changed to " + name + prompt))
}
