package constants

// PackStatus is the lifecycle state of a card pack.
type PackStatus string

// Stable values (stored as-is in the packs document).
const (
	PackStatusProcessing PackStatus = "processing" // member files still being ingested
	PackStatusReady      PackStatus = "ready"      // ingestion finished, cards hidden
	PackStatusOpened     PackStatus = "opened"     // cards revealed
)

// rank orders statuses so transitions can be checked for monotonicity.
func (s PackStatus) rank() int {
	switch s {
	case PackStatusProcessing:
		return 0
	case PackStatusReady:
		return 1
	case PackStatusOpened:
		return 2
	default:
		return -1
	}
}

func (s PackStatus) Valid() bool {
	return s.rank() >= 0
}

// CanAdvanceTo reports whether next is the single step after s:
// processing to ready, or ready to opened.
func (s PackStatus) CanAdvanceTo(next PackStatus) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	return next.rank() == s.rank()+1
}
