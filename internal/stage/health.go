package stage

import "github.com/CivicActions/Drupal-ACR/internal/textutil"

// Health reports whether a stage's inputs and dependencies are in place.
// Detail explains a stage that is not ready.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy constructs a ready Health record.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy constructs a not-ready Health record.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Detail: detail}
}

func (h Health) String() string {
	if h.Ready {
		return h.Name + ": ready"
	}
	return h.Name + ": not ready" + textutil.Ternary(h.Detail == "", "", " ("+h.Detail+")")
}
