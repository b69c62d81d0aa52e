// Package spatial implements the 3D grid hash used by sensory queries
// over neuron positions (spec §4.B). It is modeled on the teacher's
// registry-style spatial lookups in extracellular/astrocyte_network.go,
// but replaces the teacher's linear scan with true cell bucketing so
// find-neighbor queries stay O(1)-amortized per candidate instead of
// O(n) over the whole population.
//
// Not safe for concurrent mutation; callers serialize access under the
// World's lock and rebuild the hash once per tick when sensory queries
// are needed.
package spatial

import "math"

// Position is a 3D point in the same coordinate space as neuron
// positions.
type Position struct {
	X, Y, Z float64
}

func (p Position) sub(o Position) Position {
	return Position{p.X - o.X, p.Y - o.Y, p.Z - o.Z}
}

func (p Position) length() float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
}

// Distance returns the Euclidean distance between two positions.
func Distance(a, b Position) float64 {
	return a.sub(b).length()
}

// Entry is a single indexed neuron reference: an opaque id and its
// position at the time of insertion.
type Entry struct {
	ID  uint64
	Pos Position
}

type cellKey struct {
	x, y, z int32
}

// Hash is a fixed-cell-size grid hash over Entry values.
type Hash struct {
	cellSize float64
	buckets  map[cellKey][]Entry

	// pool backs buckets' backing slices so clear() can reset without
	// freeing; entries are reused by truncating to length 0 rather than
	// reallocated, matching the "reset, not freed" contract of spec §4.B.
	pool map[cellKey][]Entry
}

// New constructs a grid hash with the given cell size. A non-positive
// cell size is replaced with 1.0 to avoid division by zero on insert.
func New(cellSize float64) *Hash {
	if cellSize <= 0 {
		cellSize = 1.0
	}
	return &Hash{
		cellSize: cellSize,
		buckets:  make(map[cellKey][]Entry),
		pool:     make(map[cellKey][]Entry),
	}
}

func (h *Hash) keyFor(p Position) cellKey {
	return cellKey{
		x: int32(math.Floor(p.X / h.cellSize)),
		y: int32(math.Floor(p.Y / h.cellSize)),
		z: int32(math.Floor(p.Z / h.cellSize)),
	}
}

// Clear empties the hash. Bucket backing arrays are moved into the pool
// and truncated rather than discarded, so a subsequent burst of inserts
// in the next tick reuses the same allocations.
func (h *Hash) Clear() {
	for k, b := range h.buckets {
		h.pool[k] = b[:0]
		delete(h.buckets, k)
	}
}

// Insert adds a neuron reference at its current position.
func (h *Hash) Insert(id uint64, pos Position) {
	k := h.keyFor(pos)
	b, ok := h.buckets[k]
	if !ok {
		if pooled, found := h.pool[k]; found {
			b = pooled
			delete(h.pool, k)
		}
	}
	h.buckets[k] = append(b, Entry{ID: id, Pos: pos})
}

// FindNeighbors returns every distinct entry within radius r of center
// (inclusive). No entry is excluded, so an entry located at center
// itself is part of the result; FindNeighborsExcludingID is the
// id-excluding variant. Cells are scanned over the inclusive cube
// [center-r, center+r].
func (h *Hash) FindNeighbors(center Position, r float64) []Entry {
	return h.findNeighbors(center, r, 0, false)
}

// FindNeighborsExcludingID behaves like FindNeighbors but excludes the
// entry whose ID matches excludeID, which is how sensory queries in
// practice exclude the querying neuron itself.
func (h *Hash) FindNeighborsExcludingID(center Position, r float64, excludeID uint64) []Entry {
	return h.findNeighbors(center, r, excludeID, true)
}

func (h *Hash) findNeighbors(center Position, r float64, excludeID uint64, exclude bool) []Entry {
	if r < 0 {
		return nil
	}
	minCell := h.keyFor(Position{center.X - r, center.Y - r, center.Z - r})
	maxCell := h.keyFor(Position{center.X + r, center.Y + r, center.Z + r})

	var out []Entry
	for x := minCell.x; x <= maxCell.x; x++ {
		for y := minCell.y; y <= maxCell.y; y++ {
			for z := minCell.z; z <= maxCell.z; z++ {
				bucket, ok := h.buckets[cellKey{x, y, z}]
				if !ok {
					continue
				}
				for _, e := range bucket {
					if exclude && e.ID == excludeID {
						continue
					}
					if Distance(e.Pos, center) <= r {
						out = append(out, e)
					}
				}
			}
		}
	}
	return out
}

// Len reports how many entries are currently indexed (for metrics and
// tests, not part of the hot path).
func (h *Hash) Len() int {
	n := 0
	for _, b := range h.buckets {
		n += len(b)
	}
	return n
}
