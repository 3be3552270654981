package model

import "github.com/rotisserie/eris"

// Recoverable, user-facing failure states. Callers match them with eris.Is
// and present a message; none of them is fatal.
var (
	// ErrNotReady is returned when a query arrives before the dataset has loaded.
	ErrNotReady = eris.New("candidate data is not loaded yet")

	// ErrNoCandidates is returned when no point meets the effective threshold.
	ErrNoCandidates = eris.New("no centers meet the current score threshold")

	// ErrLookupEmpty is returned when an address search matched nothing.
	ErrLookupEmpty = eris.New("no results found, try a more specific address")

	// ErrLookupFailed is returned on a network or parse failure during an
	// address search or the dataset load.
	ErrLookupFailed = eris.New("lookup failed")
)

// UserMessage returns the text shown to a user for err.
func UserMessage(err error) string {
	switch {
	case eris.Is(err, ErrNotReady):
		return "Grid data is still loading. Try again in a moment."
	case eris.Is(err, ErrNoCandidates):
		return "No grid centers meet the current score filter."
	case eris.Is(err, ErrLookupEmpty):
		return "No results found. Try a more specific address."
	case eris.Is(err, ErrLookupFailed):
		return "Search failed. Please try again."
	default:
		return "Something went wrong."
	}
}
