package materialize

import (
	"fmt"
	"strings"
)

// UnknownParameterError is returned when a construction request carries a
// key its target does not accept.
type UnknownParameterError struct {
	Key    string
	Target string
	// Legal is every name the target accepts, in resolution order.
	Legal []string
}

func (e *UnknownParameterError) Error() string {
	return fmt.Sprintf("%s does not accept %q; valid parameters are: %s", e.Target, e.Key, strings.Join(e.Legal, ", "))
}

// MissingMarkerError is returned when Instantiate is asked to construct a
// node that is not a construction request.
type MissingMarkerError struct {
	Marker string
}

func (e *MissingMarkerError) Error() string {
	return fmt.Sprintf("there is no %s key to specify the function or class path of the node", e.Marker)
}
