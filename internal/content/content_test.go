package content

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consult-assist-server/internal/domain"
)

func TestDefault(t *testing.T) {
	c := Default()

	assert.Len(t, c.KeyFindings, 4)
	assert.Equal(t, "Patient reports medication non-adherence (missing doses)", c.KeyFindings[0])

	require.Len(t, c.RecommendedActions, 4)
	assert.Equal(t, domain.RecommendedAction{
		Action:  "Order HbA1c test and comprehensive metabolic panel",
		Urgency: "Within 1 week",
		Reason:  "Assess long-term glucose control",
	}, c.RecommendedActions[0])

	require.Len(t, c.ClinicalPathways, 2)
	assert.Equal(t, "Suspected Diabetic Neuropathy", c.ClinicalPathways[1].Pathway)
	assert.Equal(t, []string{"Nerve conduction studies", "Monofilament test", "Pain management plan"}, c.ClinicalPathways[1].Actions)
}

func TestLoad(t *testing.T) {
	t.Run("Empty_Path_Uses_Default", func(t *testing.T) {
		c, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, Default(), c)
	})

	t.Run("From_File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "content.yaml")
		data := []byte("key_findings:\n  - BP stable\nclinical_pathways:\n  - pathway: Hypertension follow-up\n    actions: [Recheck in 3 months]\n")
		require.NoError(t, os.WriteFile(path, data, 0o600))

		c, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"BP stable"}, c.KeyFindings)
		assert.Empty(t, c.RecommendedActions)
		assert.Equal(t, "Hypertension follow-up", c.ClinicalPathways[0].Pathway)
	})

	t.Run("Missing_File", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"Malformed_YAML", "key_findings: [unterminated"},
		{"Unnamed_Action", "recommended_actions:\n  - urgency: Now\n"},
		{"Unnamed_Pathway", "clinical_pathways:\n  - actions: [x]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestClone(t *testing.T) {
	c := Default()
	clone := c.Clone()

	clone.KeyFindings[0] = "changed"
	clone.ClinicalPathways[0].Actions[0] = "changed"

	assert.NotEqual(t, "changed", c.KeyFindings[0])
	assert.NotEqual(t, "changed", c.ClinicalPathways[0].Actions[0])
}
