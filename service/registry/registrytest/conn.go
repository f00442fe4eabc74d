// Package registrytest provides an in-memory registry.Conn that records what
// was emitted to it.
package registrytest

import (
	"errors"
	"sync"
)

var ErrBroken = errors.New("registrytest: conn broken")

type Emitted struct {
	Event   string
	Payload any
}

type Conn struct {
	id   string
	user string

	mu     sync.Mutex
	events []Emitted
	broken bool
}

func NewConn(id, user string) *Conn {
	return &Conn{id: id, user: user}
}

func (c *Conn) ID() string     { return c.id }
func (c *Conn) UserID() string { return c.user }

func (c *Conn) Emit(event string, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broken {
		return ErrBroken
	}
	c.events = append(c.events, Emitted{Event: event, Payload: payload})
	return nil
}

// Break makes every later Emit fail.
func (c *Conn) Break() {
	c.mu.Lock()
	c.broken = true
	c.mu.Unlock()
}

func (c *Conn) Events() []Emitted {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Emitted, len(c.events))
	copy(out, c.events)
	return out
}

// Named returns the emissions of one event name, in order.
func (c *Conn) Named(event string) []Emitted {
	var out []Emitted
	for _, e := range c.Events() {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

func (c *Conn) Reset() {
	c.mu.Lock()
	c.events = nil
	c.mu.Unlock()
}
