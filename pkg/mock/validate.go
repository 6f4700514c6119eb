package mock

import (
	"errors"
	"fmt"
	"strings"
)

// Validate reports every structural problem of ns. An empty result means the
// namespace can be registered.
func Validate(ns *Namespace) []error {
	if ns == nil {
		return []error{errors.New("namespace is nil")}
	}

	var errs []error
	if strings.TrimSpace(ns.Feature) == "" {
		errs = append(errs, errors.New("feature must be a non-empty string"))
	}
	for i, r := range ns.Routes {
		prefix := fmt.Sprintf("routes[%d]", i)
		if strings.TrimSpace(r.Method) == "" {
			errs = append(errs, fmt.Errorf("%s: method is required", prefix))
		}
		switch {
		case r.Path == "" && r.Pattern == nil:
			errs = append(errs, fmt.Errorf("%s: path or pattern is required", prefix))
		case r.Path != "" && r.Pattern != nil:
			errs = append(errs, fmt.Errorf("%s: path and pattern are mutually exclusive", prefix))
		}
		if r.Handler == nil {
			errs = append(errs, fmt.Errorf("%s: handler is required", prefix))
		}
		if r.Status != 0 && (r.Status < 100 || r.Status > 599) {
			errs = append(errs, fmt.Errorf("%s: status %d out of range", prefix, r.Status))
		}
	}
	return errs
}
