package render

import "sync/atomic"

// Names hands out process-unique asset names. Zero is reserved for "no
// asset" and is skipped on wrap-around.
type Names struct {
	next atomic.Uint32
}

func (n *Names) GenerateName() uint32 {
	for {
		if v := n.next.Add(1); v != 0 {
			return v
		}
	}
}
