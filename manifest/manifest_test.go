package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
version: "1"
components:
  - name: rainfall
    type: finam.examples.ConstOutput
    config:
      value: 5.0
  - name: river
    type: finam.examples.SumOverTime
links:
  - from: rainfall
    output: out
    to: river
    input: in
    adapters:
      - type: LinearTime
`

func TestParse_ValidManifest(t *testing.T) {
	m, err := Parse([]byte(validYAML))
	require.NoError(t, err)
	assert.Equal(t, "1", m.Version)
	assert.Len(t, m.Components, 2)
	assert.Len(t, m.Links, 1)
	assert.Equal(t, []string{"rainfall", "river"}, m.ComponentNames())
}

func TestManifest_Validate_AcceptsWellFormedTopology(t *testing.T) {
	m, err := Parse([]byte(validYAML))
	require.NoError(t, err)
	assert.NoError(t, m.Validate())
}

func TestManifest_Validate_RejectsDuplicateComponentName(t *testing.T) {
	m := Manifest{
		Version: "1",
		Components: []ComponentSpec{
			{Name: "a", Type: "t"},
			{Name: "a", Type: "t"},
		},
	}
	assert.Error(t, m.Validate())
}

func TestManifest_Validate_RejectsLinkToUnknownComponent(t *testing.T) {
	m := Manifest{
		Version:    "1",
		Components: []ComponentSpec{{Name: "a", Type: "t"}},
		Links:      []LinkSpec{{From: "a", Output: "out", To: "missing", Input: "in"}},
	}
	assert.Error(t, m.Validate())
}

func TestManifest_Validate_RejectsComponentWithoutType(t *testing.T) {
	m := Manifest{Components: []ComponentSpec{{Name: "a"}}}
	assert.Error(t, m.Validate())
}

func TestValidateSchema_AcceptsWellFormedManifest(t *testing.T) {
	assert.NoError(t, ValidateSchema([]byte(validYAML)))
}

func TestValidateSchema_RejectsMissingRequiredField(t *testing.T) {
	bad := `
version: "1"
components:
  - name: rainfall
`
	assert.Error(t, ValidateSchema([]byte(bad)))
}

func TestValidateSchema_RejectsLinkMissingInput(t *testing.T) {
	bad := `
version: "1"
components:
  - name: a
    type: t
  - name: b
    type: t
links:
  - from: a
    output: out
    to: b
`
	assert.Error(t, ValidateSchema([]byte(bad)))
}
