package lod

import (
	"github.com/Faultbox/dunestream/pkg/math"
)

// fakeHost records every lifecycle call. Chunks become ready readyAfter
// ticks after they were spawned; readyAfter < 0 means never.
type fakeHost struct {
	next       ChunkID
	now        int
	readyAfter int
	refuse     bool

	live      map[ChunkID]*fakeChunk
	spawned   []ChunkRequest
	despawned []ChunkID
}

type fakeChunk struct {
	req     ChunkRequest
	born    int
	ready   bool
	vis     Visibility
	visSets int
}

func newFakeHost(readyAfter int) *fakeHost {
	return &fakeHost{readyAfter: readyAfter, live: make(map[ChunkID]*fakeChunk)}
}

func (h *fakeHost) Spawn(req ChunkRequest) ChunkID {
	if h.refuse {
		return NoChunk
	}
	h.next++
	h.live[h.next] = &fakeChunk{req: req, born: h.now}
	h.spawned = append(h.spawned, req)
	return h.next
}

func (h *fakeHost) Despawn(id ChunkID) {
	if _, ok := h.live[id]; !ok {
		panic("despawn of unknown chunk")
	}
	delete(h.live, id)
	h.despawned = append(h.despawned, id)
}

func (h *fakeHost) Ready(id ChunkID) bool {
	c, ok := h.live[id]
	if !ok {
		return false
	}
	if c.ready {
		return true
	}
	return h.readyAfter >= 0 && h.now-c.born >= h.readyAfter
}

func (h *fakeHost) SetVisibility(id ChunkID, v Visibility) {
	c, ok := h.live[id]
	if !ok {
		panic("visibility set on unknown chunk")
	}
	c.vis = v
	c.visSets++
}

func (h *fakeHost) chunk(id ChunkID) *fakeChunk {
	return h.live[id]
}

func (h *fakeHost) resetLog() {
	h.spawned = nil
	h.despawned = nil
}

func cellPos(cfg Config, x, y int32) math.Vec2 {
	return math.IVec2{X: x, Y: y}.Vec2().Scale(cfg.CellSize)
}
