package positions

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"kgraph-atlas/backend/internal/constants"
	"kgraph-atlas/backend/internal/layout"
)

// Store is the authoritative node coordinate map of one view.
//
// Layout strategies only fill missing entries through Seed; Set is the single
// explicit override path (manual drags). Store is not safe for concurrent use.
type Store struct {
	positions map[int64]layout.Position
	epoch     uint64
}

// New creates an empty store at epoch 0
func New() *Store {
	return &Store{positions: make(map[int64]layout.Position)}
}

// Seed inserts computed coordinates for ids that have no stored position and
// returns how many entries were added. Existing entries are never replaced.
func (s *Store) Seed(nodeIDs []int64, computed map[int64]layout.Position) int {
	added := 0
	for _, id := range nodeIDs {
		if _, ok := s.positions[id]; ok {
			continue
		}
		pos, ok := computed[id]
		if !ok {
			continue
		}
		s.positions[id] = clamp(pos)
		added++
	}
	return added
}

// Set records an explicit position for id. Moves smaller than the drag
// epsilon on both axes are dropped; the return value reports whether the
// stored position changed.
func (s *Store) Set(id int64, pos layout.Position) bool {
	pos = clamp(pos)
	if cur, ok := s.positions[id]; ok &&
		math.Abs(cur.X-pos.X) < constants.DragEpsilon &&
		math.Abs(cur.Y-pos.Y) < constants.DragEpsilon {
		return false
	}
	s.positions[id] = pos
	return true
}

// Prune drops entries whose id is not in valid and reports whether anything
// was removed.
func (s *Store) Prune(valid []int64) bool {
	keep := make(map[int64]struct{}, len(valid))
	for _, id := range valid {
		keep[id] = struct{}{}
	}
	changed := false
	for id := range s.positions {
		if _, ok := keep[id]; !ok {
			delete(s.positions, id)
			changed = true
		}
	}
	return changed
}

// Reset clears every entry and advances the layout epoch
func (s *Store) Reset() {
	s.positions = make(map[int64]layout.Position)
	s.epoch++
}

// Get returns the stored position for id
func (s *Store) Get(id int64) (layout.Position, bool) {
	pos, ok := s.positions[id]
	return pos, ok
}

// Len returns the number of stored positions
func (s *Store) Len() int { return len(s.positions) }

// Epoch returns the layout epoch; it increases on every Reset
func (s *Store) Epoch() uint64 { return s.epoch }

// Snapshot returns a copy of the stored positions
func (s *Store) Snapshot() map[int64]layout.Position {
	out := make(map[int64]layout.Position, len(s.positions))
	for id, pos := range s.positions {
		out[id] = pos
	}
	return out
}

type storeJSON struct {
	Epoch     uint64                     `json:"epoch"`
	Positions map[string]layout.Position `json:"positions"`
}

// MarshalJSON encodes the store as {"epoch":n,"positions":{"<id>":{"x":..,"y":..}}}
func (s *Store) MarshalJSON() ([]byte, error) {
	out := storeJSON{Epoch: s.epoch, Positions: make(map[string]layout.Position, len(s.positions))}
	for id, pos := range s.positions {
		out.Positions[strconv.FormatInt(id, 10)] = pos
	}
	return json.Marshal(out)
}

// UnmarshalJSON replaces the store contents with the encoded snapshot
func (s *Store) UnmarshalJSON(data []byte) error {
	decoded, epoch, err := decode(data)
	if err != nil {
		return err
	}
	s.positions = decoded
	s.epoch = epoch
	return nil
}

// Restore loads an encoded snapshot, keeping only ids listed in valid. The
// epoch never moves backwards. It returns how many positions were loaded.
func (s *Store) Restore(data []byte, valid []int64) (int, error) {
	decoded, epoch, err := decode(data)
	if err != nil {
		return 0, err
	}

	s.positions = make(map[int64]layout.Position, len(decoded))
	if epoch > s.epoch {
		s.epoch = epoch
	}
	s.Seed(valid, decoded)
	return len(s.positions), nil
}

func decode(data []byte) (map[int64]layout.Position, uint64, error) {
	var in storeJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, 0, fmt.Errorf("failed to decode positions: %w", err)
	}
	out := make(map[int64]layout.Position, len(in.Positions))
	for key, pos := range in.Positions {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid node id %q: %w", key, err)
		}
		out[id] = clamp(pos)
	}
	return out, in.Epoch, nil
}

func clamp(p layout.Position) layout.Position {
	return layout.Position{X: clampAxis(p.X), Y: clampAxis(p.Y)}
}

func clampAxis(v float64) float64 {
	if math.IsNaN(v) {
		return constants.PlaneCenter
	}
	return math.Max(constants.PlaneMin, math.Min(constants.PlaneMax, v))
}
