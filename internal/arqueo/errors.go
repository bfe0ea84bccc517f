package arqueo

import "strings"

// ValidationError carries blocking rule failures (and the warnings computed in
// the same pass) back to the caller so they can be rendered inline.
type ValidationError struct {
	Errores      []string
	Advertencias []string
}

func (e *ValidationError) Error() string {
	return "validación: " + strings.Join(e.Errores, "; ")
}
