package stats

import "context"

// Location names one of the two places a record can live in.
type Location int

const (
	// LocationCanonical is where the record is read from and written to.
	LocationCanonical Location = iota
	// LocationLegacy is only read once, migrated and then removed.
	LocationLegacy
)

func (l Location) String() string {
	switch l {
	case LocationCanonical:
		return "canonical"
	case LocationLegacy:
		return "legacy"
	}
	return "unknown"
}

// Backend stores whole records. Implementations never merge: Write replaces
// whatever was stored at the location.
type Backend interface {
	// Read returns the stored bytes; found is false when nothing is stored.
	Read(ctx context.Context, loc Location) (data []byte, found bool, err error)
	Write(ctx context.Context, loc Location, data []byte) error
	Delete(ctx context.Context, loc Location) error
	// Name identifies the backend in logs.
	Name() string
}
