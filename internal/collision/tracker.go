// Package collision detects feature ids that hash to the same tile feature id.
package collision

// Tracker records which id text produced each hashed feature id of a tile.
//
// Repeated ids with the same text are not collisions: multi-part features and
// paged inputs legitimately repeat them.
type Tracker struct {
	ids        map[uint64]string
	collisions int
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{ids: make(map[uint64]string)}
}

// Track records that text was encoded as id.
//
// Returns:
//   - string: the text that was first encoded as id when it differs from text
//   - bool: true when id was already taken by a different text
func (t *Tracker) Track(text string, id uint64) (string, bool) {
	existing, ok := t.ids[id]
	if !ok {
		t.ids[id] = text
		return "", false
	}
	if existing == text {
		return "", false
	}
	t.collisions++

	return existing, true
}

// Collisions returns the number of collisions detected since the last Reset.
func (t *Tracker) Collisions() int { return t.collisions }

// Count returns the number of distinct ids tracked.
func (t *Tracker) Count() int { return len(t.ids) }

// Reset clears the tracker, keeping the map capacity.
func (t *Tracker) Reset() {
	clear(t.ids)
	t.collisions = 0
}
