package records

// Detection is the result of comparing a fresh fetch against the
// signature of the last stored history entry.
type Detection int

const (
	// Changed means the last record differs from the stored signature
	// (or there was no stored signature yet).
	Changed Detection = iota
	// Unchanged means the last record matches the stored signature.
	Unchanged
	// Empty means the fetch succeeded but produced no rows, e.g. an
	// expediente with no movement yet. Never a history mutation.
	Empty
)

func (d Detection) String() string {
	switch d {
	case Changed:
		return "changed"
	case Unchanged:
		return "unchanged"
	case Empty:
		return "empty"
	}
	return "unknown"
}

// Detect compares a freshly fetched set against the previously stored
// signature. prevSignature == "" means no history exists yet.
//
// The returned signature is only meaningful for Changed; callers
// persist it alongside the appended history entry.
//
// Known limitation, kept from the source system's semantics: if two
// different fetches end in a textually identical last row (a repeated
// status line), Detect reports Unchanged even though earlier rows may
// differ.
func Detect(prevSignature string, rs RecordSet) (Detection, string) {
	if len(rs) == 0 {
		return Empty, ""
	}
	sig := rs.Signature()
	if prevSignature == "" || prevSignature != sig {
		return Changed, sig
	}
	return Unchanged, ""
}
