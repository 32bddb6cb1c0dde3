package api

// Frequency controls how often a flow may be shown to the same user.
type Frequency string

const (
	FrequencyOnce         Frequency = "once"
	FrequencyEverySession Frequency = "every-session"
	FrequencyEveryTime    Frequency = "every-time"
)

// StepKind classifies a step by how it is presented.
type StepKind string

const (
	KindTooltip  StepKind = "tooltip"
	KindModal    StepKind = "modal"
	KindBanner   StepKind = "banner"
	KindFeedback StepKind = "feedback"
	KindWait     StepKind = "wait"
)

// IsStopping reports whether the user can rest on a step of this kind.
// Non-stopping steps are skipped when navigating backwards.
func (k StepKind) IsStopping() bool {
	return k == KindTooltip || k == KindModal
}

// Flow is an immutable, author-supplied walkthrough definition.
type Flow struct {
	// ID identifies the flow for programmatic control and analytics.
	ID string `json:"id" yaml:"id"`

	// Steps is the top-level sequence of step slots.
	Steps []Slot `json:"steps" yaml:"steps"`

	// Frequency defaults to FrequencyOnce when empty.
	Frequency Frequency `json:"frequency,omitempty" yaml:"frequency,omitempty"`

	// Start lists the conditions that start the flow automatically. The flow
	// starts when any one of them is met. Without start conditions the flow
	// can only be started explicitly.
	Start WaitList `json:"start,omitempty" yaml:"start,omitempty"`

	// UserProperties is a list of matcher groups. At least one group must
	// match (every matcher in it) for the flow to start automatically.
	UserProperties UserPropertyGroups `json:"userProperties,omitempty" yaml:"userProperties,omitempty"`

	// Draft flows only start with StartOptions.StartDraft and never emit
	// tracking or debug events.
	Draft bool `json:"draft,omitempty" yaml:"draft,omitempty"`

	// RootElement overrides the runtime-wide boundary element selector.
	RootElement string `json:"rootElement,omitempty" yaml:"rootElement,omitempty"`

	// IncompleteSteps marks a definition whose steps are still arriving
	// asynchronously.
	IncompleteSteps bool `json:"_incompleteSteps,omitempty" yaml:"_incompleteSteps,omitempty"`
}

// EffectiveFrequency returns Frequency, defaulting to FrequencyOnce.
func (f *Flow) EffectiveFrequency() Frequency {
	if f.Frequency == "" {
		return FrequencyOnce
	}
	return f.Frequency
}

// Slot is one position in a step sequence. Exactly one of Step or Fork is set.
type Slot struct {
	Step *Step
	Fork []Branch
}

// Branch is one alternative of a fork.
type Branch []Slot

// StepSlot wraps a step into a slot.
func StepSlot(s Step) Slot {
	return Slot{Step: &s}
}

// ForkSlot builds a fork slot from the given branches.
func ForkSlot(branches ...Branch) Slot {
	return Slot{Fork: branches}
}

// IsFork reports whether the slot holds branches instead of a step.
func (s Slot) IsFork() bool {
	return s.Step == nil
}

// Step is a single interactive or wait-only unit of a flow.
type Step struct {
	// StepID optionally identifies the step for programmatic control.
	StepID string `json:"stepId,omitempty" yaml:"stepId,omitempty"`

	// Type is "banner" or "feedback" for those kinds; other kinds are
	// inferred from the populated fields.
	Type string `json:"type,omitempty" yaml:"type,omitempty"`

	Title string `json:"title,omitempty" yaml:"title,omitempty"`
	Body  string `json:"body,omitempty" yaml:"body,omitempty"`

	// TargetElement is the selector a tooltip is attached to.
	TargetElement string `json:"targetElement,omitempty" yaml:"targetElement,omitempty"`
	// ScrollElement is scrolled into view before the step renders.
	ScrollElement string `json:"scrollElement,omitempty" yaml:"scrollElement,omitempty"`
	Placement     string `json:"placement,omitempty" yaml:"placement,omitempty"`
	Overlay       bool   `json:"overlay,omitempty" yaml:"overlay,omitempty"`

	CloseOnOverlayClick bool `json:"closeOnOverlayClick,omitempty" yaml:"closeOnOverlayClick,omitempty"`

	HideClose bool   `json:"hideClose,omitempty" yaml:"hideClose,omitempty"`
	HidePrev  bool   `json:"hidePrev,omitempty" yaml:"hidePrev,omitempty"`
	HideNext  bool   `json:"hideNext,omitempty" yaml:"hideNext,omitempty"`
	PrevLabel string `json:"prevLabel,omitempty" yaml:"prevLabel,omitempty"`
	NextLabel string `json:"nextLabel,omitempty" yaml:"nextLabel,omitempty"`

	FooterActions *FooterActions `json:"footerActions,omitempty" yaml:"footerActions,omitempty"`

	// Fields are the inputs of a feedback step.
	Fields []FeedbackField `json:"fields,omitempty" yaml:"fields,omitempty"`

	// BannerPosition is one of top-left, top-right, bottom-left, bottom-right.
	BannerPosition string `json:"bannerPosition,omitempty" yaml:"bannerPosition,omitempty"`

	// Wait lists conditions that advance the flow past this step. Any one
	// of them is sufficient.
	Wait WaitList `json:"wait,omitempty" yaml:"wait,omitempty"`

	// hasContent is set by the decoders when the definition carried a title
	// or body key, even an empty one.
	hasContent bool
}

// Kind derives the presentation kind of the step.
func (s *Step) Kind() StepKind {
	switch {
	case s.Type == "banner":
		return KindBanner
	case s.Type == "feedback":
		return KindFeedback
	case s.TargetElement != "":
		return KindTooltip
	case s.Title != "" || s.Body != "" || s.hasContent:
		return KindModal
	default:
		return KindWait
	}
}

// FooterActions groups custom footer buttons by alignment.
type FooterActions struct {
	Left   []FooterActionItem `json:"left,omitempty" yaml:"left,omitempty"`
	Center []FooterActionItem `json:"center,omitempty" yaml:"center,omitempty"`
	Right  []FooterActionItem `json:"right,omitempty" yaml:"right,omitempty"`
}

// All returns the buttons in left, center, right order.
func (f *FooterActions) All() []FooterActionItem {
	if f == nil {
		return nil
	}
	out := make([]FooterActionItem, 0, len(f.Left)+len(f.Center)+len(f.Right))
	out = append(out, f.Left...)
	out = append(out, f.Center...)
	return append(out, f.Right...)
}

// ActionType is what a footer button does when clicked.
type ActionType string

const (
	ActionNone   ActionType = ""
	ActionPrev   ActionType = "prev"
	ActionNext   ActionType = "next"
	ActionCancel ActionType = "cancel"
	ActionLink   ActionType = "link"
)

// FooterActionItem is a custom footer button.
type FooterActionItem struct {
	Label string `json:"label" yaml:"label"`
	// TargetBranch is the branch entered when the button advances the flow.
	TargetBranch *int   `json:"targetBranch,omitempty" yaml:"targetBranch,omitempty"`
	Prev         bool   `json:"prev,omitempty" yaml:"prev,omitempty"`
	Next         bool   `json:"next,omitempty" yaml:"next,omitempty"`
	Cancel       bool   `json:"cancel,omitempty" yaml:"cancel,omitempty"`
	Variant      string `json:"variant,omitempty" yaml:"variant,omitempty"`
	Href         string `json:"href,omitempty" yaml:"href,omitempty"`
	External     bool   `json:"external,omitempty" yaml:"external,omitempty"`
}

// Action classifies the button. A targetBranch implies next.
func (a FooterActionItem) Action() ActionType {
	switch {
	case a.Prev:
		return ActionPrev
	case a.Next || a.TargetBranch != nil:
		return ActionNext
	case a.Cancel:
		return ActionCancel
	case a.Href != "":
		return ActionLink
	default:
		return ActionNone
	}
}

// FeedbackField is one input of a feedback form.
type FeedbackField struct {
	Label       string `json:"label" yaml:"label"`
	Placeholder string `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	// Type is text, email or number.
	Type     string `json:"type,omitempty" yaml:"type,omitempty"`
	Required bool   `json:"required,omitempty" yaml:"required,omitempty"`
}

// WaitOptions describes a condition observed by the trigger watcher.
// All populated fields must hold for the condition to match.
type WaitOptions struct {
	// Element waits for an element matching the selector to appear.
	Element string `json:"element,omitempty" yaml:"element,omitempty"`
	// ClickElement waits for a click on the selector.
	ClickElement string `json:"clickElement,omitempty" yaml:"clickElement,omitempty"`
	// Form waits for a submit of the form with matching field values.
	Form *FormWait `json:"form,omitempty" yaml:"form,omitempty"`
	// Change waits for field values to match after a change.
	Change []FieldMatch `json:"change,omitempty" yaml:"change,omitempty"`
	// Location is a regular expression matched against the pathname.
	Location string `json:"location,omitempty" yaml:"location,omitempty"`
	// TargetBranch is the branch entered when the condition is met.
	TargetBranch *int `json:"targetBranch,omitempty" yaml:"targetBranch,omitempty"`
}

// FormWait waits for a form submit.
type FormWait struct {
	FormElement string       `json:"formElement" yaml:"formElement"`
	Values      []FieldMatch `json:"values,omitempty" yaml:"values,omitempty"`
}

// FieldMatch matches the value of a field against a regular expression.
type FieldMatch struct {
	Element string `json:"element" yaml:"element"`
	Value   string `json:"value" yaml:"value"`
}

// UserPropertyGroup is a set of matchers that must all match.
type UserPropertyGroup []UserPropertyMatch

// UserPropertyGroups is a list of groups of which at least one must match.
type UserPropertyGroups []UserPropertyGroup

// WaitList is a list of wait conditions of which any one suffices.
type WaitList []WaitOptions

// UserPropertyMatch matches a single user property.
//
// Eq and Ne accept a scalar or a list of scalars. Gt, Gte, Lt and Lte compare
// numbers or dates (time.Time or an RFC 3339 string). Contains and
// NotContains accept a string or a list of strings.
type UserPropertyMatch struct {
	Key         string `json:"key" yaml:"key"`
	Regex       string `json:"regex,omitempty" yaml:"regex,omitempty"`
	Eq          any    `json:"eq,omitempty" yaml:"eq,omitempty"`
	Ne          any    `json:"ne,omitempty" yaml:"ne,omitempty"`
	Gt          any    `json:"gt,omitempty" yaml:"gt,omitempty"`
	Gte         any    `json:"gte,omitempty" yaml:"gte,omitempty"`
	Lt          any    `json:"lt,omitempty" yaml:"lt,omitempty"`
	Lte         any    `json:"lte,omitempty" yaml:"lte,omitempty"`
	Contains    any    `json:"contains,omitempty" yaml:"contains,omitempty"`
	NotContains any    `json:"notContains,omitempty" yaml:"notContains,omitempty"`
}
