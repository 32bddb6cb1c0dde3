package definition

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/petrijr/waypoint/pkg/api"
)

const onboardingYAML = `
id: onboarding
frequency: every-session
start:
  location: ^/dashboard$
userProperties:
  - key: role
    eq: admin
steps:
  - title: Welcome
    body: Let's get you started.
    footerActions:
      right:
        - label: Create a project
          targetBranch: 0
        - label: Browse
          targetBranch: 1
  - - - targetElement: "#new-project"
        title: Click here
      - wait:
          clickElement: "#create"
    - - title: Explore the catalogue
  - type: banner
    title: Done
    bannerPosition: bottom-right
`

func TestParse_SingleFlow(t *testing.T) {
	flows, err := Parse([]byte(onboardingYAML), "onboarding.yaml")
	require.NoError(t, err)
	require.Len(t, flows, 1)

	f := flows[0]
	require.Equal(t, "onboarding", f.ID)
	require.Equal(t, api.FrequencyEverySession, f.Frequency)
	require.Len(t, f.Start, 1)
	require.Equal(t, "^/dashboard$", f.Start[0].Location)
	require.Len(t, f.UserProperties, 1)
	require.Len(t, f.Steps, 3)

	require.False(t, f.Steps[0].IsFork())
	require.Len(t, f.Steps[0].Step.FooterActions.All(), 2)

	require.True(t, f.Steps[1].IsFork())
	require.Len(t, f.Steps[1].Fork, 2)

	step, ok := api.Resolve(f, api.Path(1, 0, 1))
	require.True(t, ok)
	require.Equal(t, api.KindWait, step.Kind())
	require.Equal(t, "#create", step.Wait[0].ClickElement)

	step, ok = api.Resolve(f, api.Scalar(2))
	require.True(t, ok)
	require.Equal(t, api.KindBanner, step.Kind())
}

func TestParse_ListAndJSON(t *testing.T) {
	data := `[{"id":"a","steps":[{"title":"A"}]},{"id":"b","steps":[[[{"title":"B1"}],[{"title":"C1"}]]]}]`

	flows, err := Parse([]byte(data), "flows.json")
	require.NoError(t, err)
	require.Len(t, flows, 2)
	require.Equal(t, "b", flows[1].ID)
	require.True(t, flows[1].Steps[0].IsFork())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		line    int
		wantErr error
	}{
		{name: "empty", data: "", line: 1},
		{name: "scalar document", data: "hello", line: 1},
		{name: "missing id", data: "steps:\n  - title: A\n", line: 1},
		{name: "no steps", data: "id: x\n", line: 1},
		{name: "bad frequency", data: "id: x\nfrequency: hourly\nsteps:\n  - title: A\n", line: 2},
		{
			name: "nested fork",
			data: "id: x\nsteps:\n  - - - title: B\n      - - - title: deep\n",
			line: 4, wantErr: api.ErrNestedFork,
		},
		{name: "bad pattern", data: "id: x\nsteps:\n  - wait:\n      location: \"(\"\n", line: 3},
		{name: "bad banner position", data: "id: x\nsteps:\n  - type: banner\n    bannerPosition: middle\n", line: 3},
		{name: "duplicate id", data: "- id: x\n  steps: [{title: A}]\n- id: x\n  steps: [{title: B}]\n", line: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), "f.yaml")
			require.Error(t, err)

			var perr *ParseError
			require.True(t, errors.As(err, &perr), "expected ParseError, got %T: %v", err, err)
			require.Equal(t, "f.yaml", perr.Path)
			require.Equal(t, tt.line, perr.Line, "error: %v", err)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(onboardingYAML), 0o600))

	flows, err := ParseFile(path)
	require.NoError(t, err)
	require.Len(t, flows, 1)

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
