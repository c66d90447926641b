package guard

import "errors"

// Sentinel errors returned by guard operations. The API layer maps these
// to response codes.
var (
	ErrUnknownSite        = errors.New("guard: unknown site")
	ErrLastSite           = errors.New("guard: cannot delete the last site")
	ErrInvalidSite        = errors.New("guard: invalid site configuration")
	ErrInvalidSettings    = errors.New("guard: invalid settings")
	ErrBreakGlassDisabled = errors.New("guard: break-glass is disabled")
	ErrPINNotConfigured   = errors.New("guard: break-glass PIN is not configured")
	ErrInvalidPIN         = errors.New("guard: invalid PIN")
	ErrPINTooShort        = errors.New("guard: PIN must be at least 4 characters")
	ErrQuotaExhausted     = errors.New("guard: break-glass daily quota exhausted")
)
