package keysig

import "github.com/rs/zerolog"

var logger = zerolog.Nop()

// SetLogger installs the logger used by this package. Matching and codec
// calls log at trace level, lookups at debug level. Call it before any
// concurrent use of the package.
func SetLogger(l zerolog.Logger) {
	logger = l.With().Str("module", "keysig").Logger()
}
