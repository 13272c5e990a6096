// Package core holds the per-tick context shared by the control thread
// components.
package core

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/sirupsen/logrus"
)

// WorldContext is passed by value to every control-thread update. It replaces
// process-global state: each component reads the player position, the tick
// counter and the shutdown flag from here.
type WorldContext struct {
	Tick           uint64
	Delta          time.Duration
	PlayerPosition mgl64.Vec3
	Stopping       bool
	Log            *logrus.Entry
}

// Logger returns the context logger, falling back to the standard logger.
func (c WorldContext) Logger() *logrus.Entry {
	if c.Log != nil {
		return c.Log
	}
	return logrus.NewEntry(logrus.StandardLogger())
}
