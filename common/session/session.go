// Package session carries the ambient metadata attached to every event.
package session

import (
	"time"

	"yacl/common/emitter"

	"github.com/satori/go.uuid"
)

type Context struct {
	ID        string
	StartedAt time.Time
}

func New() *Context {
	return &Context{
		ID:        uuid.NewV4().String(),
		StartedAt: time.Now(),
	}
}

func (c *Context) Attrs() emitter.Attrs {
	return emitter.Attrs{
		"session.id":         c.ID,
		"session.start_time": c.StartedAt.Format(time.RFC3339),
	}
}
