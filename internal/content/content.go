// Package content loads the static clinical content attached to consultation summaries.
package content

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/consult-assist-server/internal/domain"
)

//go:embed default.yaml
var defaultContent []byte

// ClinicalContent is the illustrative findings, actions and pathways block of a summary.
// It does not depend on the conversation.
type ClinicalContent struct {
	KeyFindings        []string                   `yaml:"key_findings" json:"key_findings"`
	RecommendedActions []domain.RecommendedAction `yaml:"recommended_actions" json:"recommended_actions"`
	ClinicalPathways   []domain.ClinicalPathway   `yaml:"clinical_pathways" json:"clinical_pathways"`
}

// Default returns the built-in content.
func Default() *ClinicalContent {
	c, err := Parse(defaultContent)
	if err != nil {
		panic(fmt.Sprintf("embedded clinical content is invalid: %v", err))
	}
	return c
}

// Load reads content from a YAML file. An empty path yields the built-in content.
func Load(path string) (*ClinicalContent, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read clinical content %s: %w", path, err)
	}

	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load clinical content %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates YAML content.
func Parse(data []byte) (*ClinicalContent, error) {
	var c ClinicalContent
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse clinical content: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks that every action and pathway is named.
func (c *ClinicalContent) Validate() error {
	for i, a := range c.RecommendedActions {
		if a.Action == "" {
			return domain.NewValidationError("recommended_actions", "action is required", fmt.Sprintf("index %d", i))
		}
	}
	for i, p := range c.ClinicalPathways {
		if p.Pathway == "" {
			return domain.NewValidationError("clinical_pathways", "pathway is required", fmt.Sprintf("index %d", i))
		}
	}
	return nil
}

// Clone returns a deep copy so callers can hand it out without sharing slices.
func (c *ClinicalContent) Clone() *ClinicalContent {
	if c == nil {
		return &ClinicalContent{}
	}
	out := &ClinicalContent{
		KeyFindings:        append([]string{}, c.KeyFindings...),
		RecommendedActions: append([]domain.RecommendedAction{}, c.RecommendedActions...),
		ClinicalPathways:   make([]domain.ClinicalPathway, len(c.ClinicalPathways)),
	}
	for i, p := range c.ClinicalPathways {
		out.ClinicalPathways[i] = domain.ClinicalPathway{
			Pathway: p.Pathway,
			Actions: append([]string{}, p.Actions...),
		}
	}
	return out
}
