package world

import (
	"github.com/sirupsen/logrus"
)

// TransitionObserver is told about every successful status change. It may be
// called from any goroutine.
type TransitionObserver interface {
	TileTransition(index int, pos TilePos, from, to Status)
}

// Registry owns the fixed pool of tile slots.
type Registry struct {
	tiles    []*Tile
	observer TransitionObserver
	log      *logrus.Entry
}

func NewRegistry(size int, log *logrus.Entry) *Registry {
	tiles := make([]*Tile, size)
	for i := range tiles {
		tiles[i] = &Tile{index: i}
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Registry{tiles: tiles, log: log}
}

// SetObserver installs o. It must be called before any goroutine uses the
// registry.
func (r *Registry) SetObserver(o TransitionObserver) {
	r.observer = o
}

// Tiles returns the slots in index order.
func (r *Registry) Tiles() []*Tile { return r.tiles }

// Len returns the pool size.
func (r *Registry) Len() int { return len(r.tiles) }

// Transition moves t from -> to with a compare-and-swap. Illegal edges are
// refused. A lost race returns false without logging; callers decide whether
// that is expected.
func (r *Registry) Transition(t *Tile, from, to Status) bool {
	if !Legal(from, to) {
		r.log.WithFields(logrus.Fields{"tile": t.index, "from": from, "to": to}).Error("illegal tile transition refused")
		return false
	}
	if !t.status.CompareAndSwap(int32(from), int32(to)) {
		return false
	}
	if r.observer != nil {
		r.observer.TileTransition(t.index, t.pos, from, to)
	}
	return true
}

// mustTransition is Transition for edges only the caller can take; a failed
// swap there is a logic error.
func (r *Registry) mustTransition(t *Tile, from, to Status) bool {
	if r.Transition(t, from, to) {
		return true
	}
	r.log.WithFields(logrus.Fields{
		"tile":   t.index,
		"pos":    t.pos.String(),
		"from":   from,
		"to":     to,
		"actual": t.Status(),
	}).Error("tile status changed underneath its owner")
	return false
}

// Counts returns the number of slots per status.
func (r *Registry) Counts() map[Status]int {
	counts := make(map[Status]int, 6)
	for _, t := range r.tiles {
		counts[t.Status()]++
	}
	return counts
}

// AllInit reports whether every slot is free.
func (r *Registry) AllInit() bool {
	for _, t := range r.tiles {
		if t.Status() != StatusInit {
			return false
		}
	}
	return true
}
