package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ErrImproperlyConfigured is wrapped by every configuration error the engine
// raises: unknown directives, wrong types, relative destinations, duplicate
// aliases, unresolvable backends, and renders with no destination to fall
// back to.
var ErrImproperlyConfigured = errors.New("improperly configured")

// TemplateNotFoundError is returned when no configured backend resolves a
// template name. Chain holds one miss per consulted backend, in declared
// precedence order.
type TemplateNotFoundError struct {
	Name  string
	Chain []error
}

func (e *TemplateNotFoundError) Error() string {
	if len(e.Chain) == 0 {
		return fmt.Sprintf("engine: template %q does not exist", e.Name)
	}
	causes := make([]string, 0, len(e.Chain))
	for _, cause := range e.Chain {
		causes = append(causes, cause.Error())
	}
	return fmt.Sprintf("engine: template %q does not exist: %s", e.Name, strings.Join(causes, "; "))
}

// Unwrap exposes the per-backend misses to errors.Is and errors.As.
func (e *TemplateNotFoundError) Unwrap() []error {
	return e.Chain
}

// InvalidBackendError is returned by indexed backend lookup when no backend
// is configured under the requested alias.
type InvalidBackendError struct {
	Alias string
}

func (e *InvalidBackendError) Error() string {
	return fmt.Sprintf("engine: could not find config for %q in STATIC_TEMPLATES", e.Alias)
}
