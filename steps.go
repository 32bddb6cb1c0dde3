package waypoint

import "github.com/petrijr/waypoint/pkg/api"

// ModalStep returns a modal step.
func ModalStep(title, body string) Slot {
	return api.StepSlot(api.Step{Title: title, Body: body})
}

// TooltipStep returns a tooltip attached to the element matching target.
func TooltipStep(target, title, body string) Slot {
	return api.StepSlot(api.Step{TargetElement: target, Title: title, Body: body})
}

// BannerStep returns a banner shown at position, one of top-left,
// top-right, bottom-left or bottom-right.
func BannerStep(title, body, position string) Slot {
	return api.StepSlot(api.Step{Type: "banner", Title: title, Body: body, BannerPosition: position})
}

// FeedbackStep returns a feedback form with the given fields.
func FeedbackStep(title string, fields ...FeedbackField) Slot {
	return api.StepSlot(api.Step{Type: "feedback", Title: title, Fields: fields})
}

// WaitStep returns a step that renders nothing and advances as soon as one
// of the conditions is met.
func WaitStep(conditions ...WaitOptions) Slot {
	return api.StepSlot(api.Step{Wait: conditions})
}

// StepOf wraps a fully specified step.
func StepOf(s Step) Slot {
	return api.StepSlot(s)
}

// Fork returns a fork whose branches the user chooses between with a
// targetBranch.
func Fork(branches ...Branch) Slot {
	return api.ForkSlot(branches...)
}

// NewBranch returns a branch made of the given steps.
func NewBranch(steps ...Slot) Branch {
	return Branch(steps)
}

// OnClick waits for a click on the element matching selector.
func OnClick(selector string) WaitOptions {
	return WaitOptions{ClickElement: selector}
}

// OnElement waits for an element matching selector to be present.
func OnElement(selector string) WaitOptions {
	return WaitOptions{Element: selector}
}

// OnLocation waits for a pathname matching the regular expression pattern.
func OnLocation(pattern string) WaitOptions {
	return WaitOptions{Location: pattern}
}

// OnSubmit waits for a submit of form whose fields match values.
func OnSubmit(form string, values ...FieldMatch) WaitOptions {
	return WaitOptions{Form: &FormWait{FormElement: form, Values: values}}
}

// OnChange waits for the fields to hold matching values after a change.
func OnChange(values ...FieldMatch) WaitOptions {
	return WaitOptions{Change: values}
}

// Field matches the value of the field element against pattern.
func Field(element, pattern string) FieldMatch {
	return FieldMatch{Element: element, Value: pattern}
}

// ToBranch returns w with a target branch set.
func ToBranch(w WaitOptions, branch int) WaitOptions {
	w.TargetBranch = &branch
	return w
}
