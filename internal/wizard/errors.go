package wizard

import "errors"

// Sentinel errors returned by the wizard. Callers match them with errors.Is.
var (
	ErrInvalidTransition    = errors.New("invalid step transition")
	ErrSelectionRequired    = errors.New("at least one option must be selected to continue")
	ErrUnknownField         = errors.New("unknown field")
	ErrUnknownOption        = errors.New("unknown option")
	ErrGenerating           = errors.New("recommendations are already being generated")
	ErrNoScanner            = errors.New("photo scanning is not available")
	ErrNoIngredients        = errors.New("no ingredients detected")
	ErrMalformedSuggestions = errors.New("malformed suggestion set")
)

// AdvisoryMessage is shown next to the fallback suggestions whenever the
// recommendation call fails.
const AdvisoryMessage = "Unable to generate recommendations. Please try again."
