package protocol

import (
	"net/http"

	"github.com/a2a-labs/agent-runtime/internal/a2a/errors"
	"github.com/a2a-labs/agent-runtime/internal/a2a/policy"
)

// AgentCard describes the agent served at /v1/card (shape grounded on the
// teacher's runtime/a2a/types.AgentCard).
type AgentCard struct {
	ProtocolVersion    string                     `json:"protocolVersion"`
	Name               string                     `json:"name"`
	Description        string                     `json:"description,omitempty"`
	URL                string                     `json:"url"`
	Version            string                     `json:"version"`
	Capabilities       map[string]any             `json:"capabilities,omitempty"`
	DefaultInputModes  []string                   `json:"defaultInputModes,omitempty"`
	DefaultOutputModes []string                   `json:"defaultOutputModes,omitempty"`
	Skills             []Skill                    `json:"skills"`
	SecuritySchemes    map[string]*SecurityScheme `json:"securitySchemes,omitempty"`
	Extensions         map[string]any             `json:"extensions,omitempty"`
}

// Skill is one capability the agent advertises. Security is populated only
// on the authenticated extended card (spec.md §4.8/SPEC_FULL.md §4.8): the
// base card carries scheme *declarations*, the extended card carries
// per-skill *requirements*.
type Skill struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Tags        []string            `json:"tags,omitempty"`
	InputModes  []string            `json:"inputModes,omitempty"`
	OutputModes []string            `json:"outputModes,omitempty"`
	Security    []map[string][]string `json:"security,omitempty"`
}

// SecurityScheme is one entry of AgentCard.SecuritySchemes.
type SecurityScheme struct {
	Type   string `json:"type"`
	Scheme string `json:"scheme,omitempty"`
	In     string `json:"in,omitempty"`
	Name   string `json:"name,omitempty"`
}

// CardSource supplies the card material a Server serves and, optionally,
// the extended-card policy. Leaving ExtendedPolicy nil means the extended
// card endpoint is entirely unconfigured.
type CardSource struct {
	Base            AgentCard
	ExtendedSkills  []Skill
	ExtendedPolicy  *ExtendedCardPolicy
}

// ExtendedCardPolicy gates agent/getAuthenticatedExtendedCard. Authenticate
// inspects the request for credentials matching one of Base's declared
// security schemes; it is the caller's job to know how those credentials
// are carried (header, query, etc.) for the schemes it configured.
type ExtendedCardPolicy struct {
	Authenticate func(r *http.Request) bool
	Extensions   map[string]any
}

// publicCard applies skill policy filtering and returns the card shape the
// unauthenticated /v1/card surface exposes: skills plus scheme declarations,
// never per-skill security requirements or extension metadata.
func (cs *CardSource) publicCard(p *policy.Policy) AgentCard {
	card := cs.Base
	card.Extensions = nil
	ids := make([]policy.SkillID, len(card.Skills))
	bySkill := make(map[policy.SkillID]Skill, len(card.Skills))
	for i, s := range card.Skills {
		ids[i] = policy.SkillID(s.ID)
		bySkill[policy.SkillID(s.ID)] = Skill{ID: s.ID, Name: s.Name, Description: s.Description, Tags: s.Tags, InputModes: s.InputModes, OutputModes: s.OutputModes}
	}
	allowed := policy.FilterSkills(ids, p)
	filtered := make([]Skill, 0, len(allowed))
	for _, id := range allowed {
		filtered = append(filtered, bySkill[id])
	}
	card.Skills = filtered
	return card
}

// extendedCard returns the authenticated extended card: the base card's
// fields plus per-skill security requirements and extension metadata
// (SPEC_FULL.md §4.8). It returns ExtendedAgentCardNotConfigured when no
// policy was set up at all, and AuthenticationRequired when a policy exists
// but r does not carry satisfying credentials.
func (cs *CardSource) extendedCard(r *http.Request, p *policy.Policy) (*AgentCard, error) {
	if cs.ExtendedPolicy == nil {
		return nil, errors.New(errors.KindExtendedAgentCardNotConfigured, "no extended agent card policy is configured")
	}
	if cs.ExtendedPolicy.Authenticate == nil || !cs.ExtendedPolicy.Authenticate(r) {
		return nil, errors.New(errors.KindAuthenticationRequired, "request does not carry credentials for a declared security scheme")
	}

	card := cs.Base
	card.Extensions = cs.ExtendedPolicy.Extensions
	skills := cs.ExtendedSkills
	if skills == nil {
		skills = cs.Base.Skills
	}
	ids := make([]policy.SkillID, len(skills))
	for i, s := range skills {
		ids[i] = policy.SkillID(s.ID)
	}
	allowed := make(map[policy.SkillID]struct{})
	for _, id := range policy.FilterSkills(ids, p) {
		allowed[id] = struct{}{}
	}
	filtered := make([]Skill, 0, len(skills))
	for _, s := range skills {
		if _, ok := allowed[policy.SkillID(s.ID)]; ok {
			filtered = append(filtered, s)
		}
	}
	card.Skills = filtered
	return &card, nil
}
