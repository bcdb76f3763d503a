package lod

import (
	"errors"
	stdmath "math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/Faultbox/dunestream/pkg/math"
)

func testConfig() Config {
	return Config{Extent: 2, LODExtent: 2, CellSize: 10}
}

func newTestGrid(t *testing.T, cfg Config, h *fakeHost) *Grid {
	t.Helper()
	g, err := NewGrid(cfg, h)
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}
	return g
}

func TestNewGridValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		host Host
	}{
		{"negative extent", Config{Extent: -1, LODExtent: 1, CellSize: 1}, newFakeHost(0)},
		{"negative lod extent", Config{LODExtent: -1, CellSize: 1}, newFakeHost(0)},
		{"zero lod extent", Config{Extent: 2, CellSize: 1}, newFakeHost(0)},
		{"zero cell size", Config{Extent: 1, LODExtent: 1}, newFakeHost(0)},
		{"negative stall", Config{LODExtent: 1, CellSize: 1, StallTicks: -1}, newFakeHost(0)},
		{"nil host", testConfig(), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGrid(tt.cfg, tt.host)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("NewGrid error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestInitialTick(t *testing.T) {
	cfg := testConfig()
	h := newFakeHost(0)
	g := newTestGrid(t, cfg, h)

	if g.PendingLen() != 25 {
		t.Fatalf("new grid pending = %d, want 25", g.PendingLen())
	}

	rep := g.Tick()
	if rep.Update.Steps != 0 {
		t.Errorf("steps = %d, want 0", rep.Update.Steps)
	}
	if rep.Spawned != 25 {
		t.Errorf("spawned = %d, want 25", rep.Spawned)
	}
	if rep.Swapped != 25 || rep.Pending != 0 {
		t.Errorf("swapped = %d pending = %d, want 25 and 0", rep.Swapped, rep.Pending)
	}

	g.Walk(func(offset math.IVec2, s *Slot) {
		c := h.chunk(s.Current())
		if c == nil {
			t.Fatalf("slot %v has no live chunk", offset)
		}
		if c.req.Coord != offset {
			t.Errorf("slot %v chunk coord = %v", offset, c.req.Coord)
		}
		if c.req.LOD != uint32(offset.Chebyshev()) {
			t.Errorf("slot %v chunk lod = %d, want %d", offset, c.req.LOD, offset.Chebyshev())
		}
		if c.vis != Visible {
			t.Errorf("slot %v chunk not visible", offset)
		}
	})
}

func TestSwapWaitsForReady(t *testing.T) {
	h := newFakeHost(-1)
	g := newTestGrid(t, testConfig(), h)

	rep := g.Tick()
	if rep.Swapped != 0 || rep.Pending != 25 {
		t.Fatalf("swapped = %d pending = %d, want 0 and 25", rep.Swapped, rep.Pending)
	}
	for id, c := range h.live {
		if c.visSets != 0 {
			t.Errorf("chunk %d got a visibility update before ready", id)
		}
	}

	center, _ := g.SlotAt(math.IVec2{})
	h.chunk(center.Current()).ready = true

	if n := g.SwapChunks(); n != 1 {
		t.Errorf("SwapChunks = %d, want 1", n)
	}
	if g.IsPending(math.IVec2{}) {
		t.Error("centre still pending after its chunk became ready")
	}
	if g.PendingLen() != 24 {
		t.Errorf("pending = %d, want 24", g.PendingLen())
	}
}

// Anchor moves from (0,0) to (3,0) on a 5x5 grid.
func TestMoveThreeCells(t *testing.T) {
	cfg := testConfig()
	h := newFakeHost(0)
	g := newTestGrid(t, cfg, h)
	g.Tick()
	h.resetLog()

	spawnedAt := make(map[ChunkID]math.IVec2)
	for id, c := range h.live {
		spawnedAt[id] = c.req.Coord
	}

	g.SetViewer(cellPos(cfg, 3, 0))
	rep := g.Update()

	if rep.Steps != 3 {
		t.Errorf("steps = %d, want 3", rep.Steps)
	}
	if rep.Despawned != 15 {
		t.Errorf("despawned = %d, want 15", rep.Despawned)
	}
	// Surviving cells change distance by at most two steps in one
	// direction, which the 5-wide LOD ring absorbs.
	for id, coord := range spawnedAt {
		_, alive := h.live[id]
		if want := coord.X >= 1; alive != want {
			t.Errorf("chunk %d at %v alive = %v, want %v", id, coord, alive, want)
		}
	}

	if spawned := g.SpawnChunks(); spawned < 15 {
		t.Errorf("spawned = %d, want at least 15", spawned)
	}
	exposed := 0
	for _, req := range h.spawned {
		if req.Coord.X >= 3 {
			exposed++
		}
	}
	if exposed != 15 {
		t.Errorf("requests for newly exposed cells = %d, want 15", exposed)
	}

	s, _ := g.SlotAt(math.IVec2{})
	if s.Coord() != (math.IVec2{X: 3}) {
		t.Errorf("slot (0,0) coord = %v, want (3,0)", s.Coord())
	}
	if got := h.chunk(s.Current()).req.Coord; got != (math.IVec2{X: 3}) {
		t.Errorf("slot (0,0) chunk coord = %v, want (3,0)", got)
	}
	if g.Anchor() != (math.IVec2{X: 3}) {
		t.Errorf("anchor = %v, want (3,0)", g.Anchor())
	}
}

// Follows the world cell (2,2) through a series of moves. Its distance only
// changes on the last, diagonal-ending move.
func TestInvalidationFollowsDistance(t *testing.T) {
	cfg := testConfig()
	h := newFakeHost(-1)
	g := newTestGrid(t, cfg, h)
	g.Tick()
	for _, c := range h.live {
		c.ready = true
	}
	g.SwapChunks()
	if g.PendingLen() != 0 {
		t.Fatalf("pending = %d after initial swap, want 0", g.PendingLen())
	}

	cell := math.IVec2{X: 2, Y: 2}
	s, _ := g.SlotAt(cell)
	oldChunk := s.Current()

	readyAll := func() {
		for _, c := range h.live {
			c.ready = true
		}
	}

	moves := []struct {
		anchor      math.IVec2
		wantPending bool
	}{
		{math.IVec2{X: 1}, false},
		{math.IVec2{X: 2}, false},
		{math.IVec2{X: 2, Y: 2}, true},
	}

	for _, m := range moves {
		g.SetViewer(cellPos(cfg, m.anchor.X, m.anchor.Y))
		g.Update()

		offset := cell.Sub(m.anchor)
		s, ok := g.SlotAt(offset)
		if !ok {
			t.Fatalf("cell %v fell out of the window at anchor %v", cell, m.anchor)
		}
		if s.Coord() != cell {
			t.Fatalf("slot at %v represents %v, want %v", offset, s.Coord(), cell)
		}
		if got := g.IsPending(offset); got != m.wantPending {
			t.Fatalf("anchor %v: pending(%v) = %v, want %v", m.anchor, offset, got, m.wantPending)
		}
		if m.wantPending {
			break
		}
		g.SpawnChunks()
		readyAll()
		g.SwapChunks()
	}

	// Distance went 2 -> 0: the LOD-2 chunk moved two steps up the ring.
	s, _ = g.SlotAt(math.IVec2{})
	if s.Current() != NoChunk {
		t.Fatalf("current binding should be empty until spawn, got %d", s.Current())
	}
	if s.At(cfg.Current()+2) != oldChunk {
		t.Fatalf("old chunk not at ring index %d", cfg.Current()+2)
	}

	g.SpawnChunks()
	newChunk := s.Current()
	if h.chunk(newChunk).req.LOD != 0 {
		t.Errorf("new chunk lod = %d, want 0", h.chunk(newChunk).req.LOD)
	}

	// Not ready yet: the old chunk stays visible.
	g.SwapChunks()
	if h.chunk(oldChunk).vis != Visible {
		t.Error("old chunk hidden before the replacement was ready")
	}
	if !g.IsPending(math.IVec2{}) {
		t.Error("offset dropped from pending before the replacement was ready")
	}

	h.chunk(newChunk).ready = true
	g.SwapChunks()
	if h.chunk(newChunk).vis != Visible {
		t.Error("replacement not visible after ready")
	}
	if h.chunk(oldChunk).vis != Hidden {
		t.Error("old chunk still visible after swap")
	}
	if g.IsPending(math.IVec2{}) {
		t.Error("offset still pending after swap")
	}
}

func TestMovingBackReusesChunk(t *testing.T) {
	cfg := testConfig()
	h := newFakeHost(0)
	g := newTestGrid(t, cfg, h)
	g.Tick()

	cell := math.IVec2{X: 1}
	s, _ := g.SlotAt(cell)
	first := s.Current()

	// Step away: (1,0) goes from distance 1 to 2.
	g.SetViewer(cellPos(cfg, -1, 0))
	g.Tick()
	s, _ = g.SlotAt(cell.Sub(math.IVec2{X: -1}))
	if s.At(cfg.Current()-1) != first {
		t.Fatal("finer chunk not kept one index below current")
	}
	if h.chunk(first).vis != Hidden {
		t.Error("finer chunk should be hidden once the coarser one is ready")
	}

	// Step back: the finer chunk returns to the current index.
	h.resetLog()
	g.SetViewer(cellPos(cfg, 0, 0))
	g.Tick()
	s, _ = g.SlotAt(cell)
	if s.Current() != first {
		t.Fatalf("current = %d, want reused chunk %d", s.Current(), first)
	}
	for _, req := range h.spawned {
		if req.Coord == cell {
			t.Errorf("cell %v respawned although its former chunk was reusable", cell)
		}
	}
	if h.chunk(first).vis != Visible {
		t.Error("reused chunk not visible")
	}
}

func TestLargeJump(t *testing.T) {
	cfg := testConfig()
	h := newFakeHost(0)
	g := newTestGrid(t, cfg, h)
	g.Tick()
	before := len(h.live)

	g.SetViewer(cellPos(cfg, 10, -7))
	rep := g.Tick()

	if rep.Update.Steps != 17 {
		t.Errorf("steps = %d, want 17", rep.Update.Steps)
	}
	if rep.Update.Despawned != before {
		t.Errorf("despawned = %d, want every chunk (%d)", rep.Update.Despawned, before)
	}
	if rep.Spawned != 25 || rep.Pending != 0 {
		t.Errorf("spawned = %d pending = %d", rep.Spawned, rep.Pending)
	}
	assertConverged(t, g, h)
}

func TestJumpRebindsEveryCell(t *testing.T) {
	cfg := testConfig()
	h := newFakeHost(0)
	g := newTestGrid(t, cfg, h)
	g.Tick()

	g.SetViewer(cellPos(cfg, 5, 1))
	rep := g.Update()
	if rep.Steps != 6 || rep.Despawned != 25 || rep.Invalidated != 25 {
		t.Errorf("jump report = %+v", rep)
	}
	if g.Anchor() != (math.IVec2{X: 5, Y: 1}) {
		t.Errorf("anchor = %v, want (5,1)", g.Anchor())
	}
	g.Walk(func(offset math.IVec2, s *Slot) {
		if s.Coord() != g.Anchor().Add(offset) {
			t.Errorf("slot %v represents %v", offset, s.Coord())
		}
		if s.Current() != NoChunk {
			t.Errorf("slot %v kept a chunk across the jump", offset)
		}
	})
	if g.PendingLen() != 25 {
		t.Errorf("pending = %d, want 25", g.PendingLen())
	}

	g.SpawnChunks()
	g.SwapChunks()
	assertConverged(t, g, h)
}

func TestFarViewerUpdatesPromptly(t *testing.T) {
	cfg := testConfig()
	h := newFakeHost(0)
	g := newTestGrid(t, cfg, h)
	g.Tick()

	g.SetViewer(math.Vec2{X: 1e12, Y: -3e11})
	done := make(chan UpdateReport, 1)
	go func() { done <- g.Update() }()

	select {
	case rep := <-done:
		if rep.Despawned != 25 {
			t.Errorf("despawned = %d, want 25", rep.Despawned)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Update did not return for a distant viewer")
	}
}

func TestNonFiniteViewerIgnored(t *testing.T) {
	inf := float32(stdmath.Inf(1))
	nan := float32(stdmath.NaN())
	tests := []struct {
		name string
		pos  math.Vec2
	}{
		{"nan x", math.Vec2{X: nan}},
		{"nan y", math.Vec2{Y: nan}},
		{"positive inf", math.Vec2{X: inf}},
		{"negative inf", math.Vec2{Y: -inf}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			h := newFakeHost(0)
			g := newTestGrid(t, cfg, h)
			g.SetViewer(cellPos(cfg, 1, 0))
			g.Tick()

			g.SetViewer(tt.pos)
			if g.Viewer() != (math.Vec2{X: 1}) {
				t.Errorf("viewer = %+v, want the last finite position", g.Viewer())
			}
			if rep := g.Tick(); rep.Update.Steps != 0 || rep.Update.Despawned != 0 {
				t.Errorf("tick after non-finite viewer = %+v", rep.Update)
			}
			if g.Anchor() != (math.IVec2{X: 1}) {
				t.Errorf("anchor = %v, want (1,0)", g.Anchor())
			}
		})
	}
}

func TestSetViewerUsesCellSize(t *testing.T) {
	cfg := Config{Extent: 1, LODExtent: 1, CellSize: 512}
	g := newTestGrid(t, cfg, newFakeHost(0))

	g.SetViewer(math.Vec2{X: 700, Y: -300})
	g.Update()
	if g.Anchor() != (math.IVec2{X: 1, Y: -1}) {
		t.Errorf("anchor = %v, want (1,-1)", g.Anchor())
	}

	g.SetViewer(math.Vec2{X: 760, Y: -400})
	if rep := g.Update(); rep.Steps != 0 {
		t.Errorf("move within a cell took %d steps", rep.Steps)
	}
}

func TestSpawnDeferredByHost(t *testing.T) {
	h := newFakeHost(0)
	h.refuse = true
	g := newTestGrid(t, testConfig(), h)

	if rep := g.Tick(); rep.Spawned != 0 || rep.Pending != 25 {
		t.Fatalf("spawned = %d pending = %d, want 0 and 25", rep.Spawned, rep.Pending)
	}

	h.refuse = false
	if rep := g.Tick(); rep.Spawned != 25 || rep.Pending != 0 {
		t.Errorf("spawned = %d pending = %d, want 25 and 0", rep.Spawned, rep.Pending)
	}
}

func TestClear(t *testing.T) {
	cfg := testConfig()
	h := newFakeHost(0)
	g := newTestGrid(t, cfg, h)
	g.SetViewer(cellPos(cfg, 4, 4))
	g.Tick()

	if n := g.Clear(); n != 25 {
		t.Errorf("Clear despawned %d, want 25", n)
	}
	if len(h.live) != 0 {
		t.Errorf("%d chunks alive after Clear", len(h.live))
	}
	if g.PendingLen() != 25 {
		t.Errorf("pending = %d after Clear, want 25", g.PendingLen())
	}

	g.Tick()
	assertConverged(t, g, h)
}

func TestStalled(t *testing.T) {
	cfg := testConfig()
	cfg.StallTicks = 3
	h := newFakeHost(-1)
	g := newTestGrid(t, cfg, h)

	g.Tick()
	if len(g.Stalled()) != 0 {
		t.Fatal("slots stalled after one tick")
	}
	for i := 0; i < 3; i++ {
		g.Tick()
	}
	if got := len(g.Stalled()); got != 25 {
		t.Errorf("stalled = %d, want 25", got)
	}
	if g.PendingLen() != 25 {
		t.Errorf("stalled slots must stay pending, got %d", g.PendingLen())
	}
}

func TestRandomWalkConverges(t *testing.T) {
	cfg := Config{Extent: 3, LODExtent: 2, CellSize: 1}
	h := newFakeHost(2)
	g := newTestGrid(t, cfg, h)
	rng := rand.New(rand.NewPCG(7, 11))

	pos := math.Vec2{}
	for tick := 0; tick < 300; tick++ {
		h.now++
		pos = pos.Add(math.Vec2{
			X: float32(rng.IntN(5)-2) * 0.7,
			Y: float32(rng.IntN(5)-2) * 0.7,
		})
		g.SetViewer(pos)
		g.Tick()
		assertBindings(t, g, h)
	}

	for i := 0; i < 10 && g.PendingLen() > 0; i++ {
		h.now++
		g.Tick()
	}
	if g.PendingLen() != 0 {
		t.Fatalf("pending = %d after settling", g.PendingLen())
	}
	assertConverged(t, g, h)
}

// assertBindings checks that after a spawn pass every slot holds a live
// current chunk, no chunk is bound twice and no live chunk is unbound.
func assertBindings(t *testing.T, g *Grid, h *fakeHost) {
	t.Helper()
	anchor := g.Anchor()
	seen := make(map[ChunkID]bool)
	g.Walk(func(offset math.IVec2, s *Slot) {
		if s.Coord() != anchor.Add(offset) {
			t.Fatalf("slot %v represents %v, anchor %v", offset, s.Coord(), anchor)
		}
		if s.Current() == NoChunk {
			t.Fatalf("slot %v has no current chunk after spawn", offset)
		}
		for i := 0; i < s.Len(); i++ {
			id := s.At(i)
			if id == NoChunk {
				continue
			}
			if seen[id] {
				t.Fatalf("chunk %d bound twice", id)
			}
			seen[id] = true
			c := h.chunk(id)
			if c == nil {
				t.Fatalf("slot %v binds despawned chunk %d", offset, id)
			}
			if c.req.Coord != s.Coord() {
				t.Fatalf("slot %v for %v binds chunk of %v", offset, s.Coord(), c.req.Coord)
			}
		}
	})
	if len(seen) != len(h.live) {
		t.Fatalf("%d live chunks but %d bound", len(h.live), len(seen))
	}
}

// assertConverged checks the settled state: every slot shows exactly its
// current chunk at the LOD its distance calls for.
func assertConverged(t *testing.T, g *Grid, h *fakeHost) {
	t.Helper()
	assertBindings(t, g, h)
	g.Walk(func(offset math.IVec2, s *Slot) {
		for i := 0; i < s.Len(); i++ {
			id := s.At(i)
			if id == NoChunk {
				continue
			}
			c := h.chunk(id)
			if i == g.Config().Current() {
				if c.vis != Visible {
					t.Errorf("slot %v current chunk hidden", offset)
				}
				if c.req.LOD != uint32(offset.Chebyshev()) {
					t.Errorf("slot %v shows lod %d, want %d", offset, c.req.LOD, offset.Chebyshev())
				}
			} else if c.vis != Hidden {
				t.Errorf("slot %v index %d chunk visible", offset, i)
			}
		}
	})
}
