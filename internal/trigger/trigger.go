// Package trigger matches wait and start conditions against UI events
// reported by the driver.
package trigger

import (
	"slices"

	"github.com/petrijr/waypoint/pkg/api"
)

// Kind is the kind of UI event.
type Kind string

const (
	// KindElement reports that the set of present elements changed.
	KindElement Kind = "element"
	KindClick   Kind = "click"
	KindSubmit  Kind = "submit"
	KindChange  Kind = "change"
	// KindLocation reports a navigation to a new pathname.
	KindLocation Kind = "location"
)

// Event is a UI event together with the page state observed with it.
type Event struct {
	Kind Kind
	// Target lists the selectors the event target matches. Used by click,
	// submit and change events.
	Target []string
	// Present lists the selectors currently present in the document.
	Present []string
	// Values maps field selectors to their current values.
	Values map[string]string
	// Location is the current pathname.
	Location string
}

// Match reports whether ev satisfies every populated field of opts.
// Click, form and change conditions only match events of their kind; element
// and location conditions inspect page state and match any event. An empty
// condition never matches.
func Match(opts api.WaitOptions, ev Event) bool {
	populated := false

	if opts.Location != "" {
		populated = true
		if !MatchString(opts.Location, ev.Location) {
			return false
		}
	}
	if opts.Element != "" {
		populated = true
		if !slices.Contains(ev.Present, opts.Element) {
			return false
		}
	}
	if opts.ClickElement != "" {
		populated = true
		if ev.Kind != KindClick || !slices.Contains(ev.Target, opts.ClickElement) {
			return false
		}
	}
	if opts.Form != nil {
		populated = true
		if ev.Kind != KindSubmit || !slices.Contains(ev.Target, opts.Form.FormElement) {
			return false
		}
		if !fieldsMatch(opts.Form.Values, ev.Values) {
			return false
		}
	}
	if len(opts.Change) > 0 {
		populated = true
		if ev.Kind != KindChange || !fieldsMatch(opts.Change, ev.Values) {
			return false
		}
	}
	return populated
}

// MatchAny returns the first condition in list that ev satisfies.
func MatchAny(list api.WaitList, ev Event) (api.WaitOptions, bool) {
	for _, opts := range list {
		if Match(opts, ev) {
			return opts, true
		}
	}
	return api.WaitOptions{}, false
}

func fieldsMatch(fields []api.FieldMatch, values map[string]string) bool {
	for _, f := range fields {
		v, ok := values[f.Element]
		if !ok || !MatchString(f.Value, v) {
			return false
		}
	}
	return true
}

// Validate reports the first invalid pattern in opts.
func Validate(opts api.WaitOptions) error {
	patterns := []string{}
	if opts.Location != "" {
		patterns = append(patterns, opts.Location)
	}
	if opts.Form != nil {
		for _, f := range opts.Form.Values {
			patterns = append(patterns, f.Value)
		}
	}
	for _, f := range opts.Change {
		patterns = append(patterns, f.Value)
	}
	for _, p := range patterns {
		if _, err := Compile(p); err != nil {
			return err
		}
	}
	return nil
}
