// Package policy implements per-request skill-level access control for the
// A2A agent card and message dispatch surfaces (SPEC_FULL.md §4.8): a caller
// sends the X-A2A-Allow-Skills/X-A2A-Deny-Skills headers, protocol.requestPolicy
// turns them into a Policy, and the card code narrows the skill set
// (protocol.CardSource.Skills' IDs) a request is permitted to see. No
// message or task dispatch path calls CanInvoke.
package policy

import (
	"context"
	"strings"
)

// SkillID identifies one entry in an AgentCard's Skills list. It is a
// distinct type from a bare string so a caller can't accidentally pass a
// task or context ID where a skill filter expects a skill ID.
type SkillID string

// requestPolicyKey is the unexported context key under which a resolved
// Policy is stored for the lifetime of one inbound request.
type requestPolicyKey struct{}

const (
	// AllowSkillsHeader lists the skill IDs a request is permitted to reach,
	// comma-separated. Absent or empty means no allow-list restriction.
	AllowSkillsHeader = "X-A2A-Allow-Skills"
	// DenySkillsHeader lists skill IDs a request may never reach, comma-separated.
	// Deny always wins over an overlapping entry in AllowSkillsHeader.
	DenySkillsHeader = "X-A2A-Deny-Skills"
)

// Policy is the resolved allow/deny rule set for one request's view of the
// agent's skills.
type Policy struct {
	// AllowList, when non-empty, is the exhaustive set of reachable skill IDs.
	AllowList []SkillID
	// DenyList is always subtracted, even from a non-empty AllowList.
	DenyList []SkillID
}

// ExtractPolicyFromHeaders parses the two policy header values into a Policy.
func ExtractPolicyFromHeaders(allowHeader, denyHeader string) *Policy {
	return &Policy{
		AllowList: parseSkillIDs(allowHeader),
		DenyList:  parseSkillIDs(denyHeader),
	}
}

// parseSkillIDs splits a comma-separated header value into trimmed, non-empty
// skill IDs.
func parseSkillIDs(header string) []SkillID {
	if header == "" {
		return nil
	}
	fields := strings.Split(header, ",")
	ids := make([]SkillID, 0, len(fields))
	for _, f := range fields {
		if id := strings.TrimSpace(f); id != "" {
			ids = append(ids, SkillID(id))
		}
	}
	return ids
}

// InjectPolicyToContext returns a context carrying p for downstream handler
// code to consult via PolicyFromContext.
func InjectPolicyToContext(ctx context.Context, p *Policy) context.Context {
	return context.WithValue(ctx, requestPolicyKey{}, p)
}

// PolicyFromContext returns the Policy injected by InjectPolicyToContext, or
// nil if none was set (meaning: no restriction).
func PolicyFromContext(ctx context.Context) *Policy {
	p, _ := ctx.Value(requestPolicyKey{}).(*Policy)
	return p
}

// FilterSkills narrows ids to those p permits: deny always excludes, and a
// non-empty AllowList further restricts to its members. A nil Policy permits
// everything.
func FilterSkills(ids []SkillID, p *Policy) []SkillID {
	if p == nil {
		return ids
	}

	deny := toSet(p.DenyList)
	allow := toSet(p.AllowList)

	permitted := make([]SkillID, 0, len(ids))
	for _, id := range ids {
		if _, denied := deny[id]; denied {
			continue
		}
		if len(allow) > 0 {
			if _, ok := allow[id]; !ok {
				continue
			}
		}
		permitted = append(permitted, id)
	}
	return permitted
}

// CanInvoke reports whether p permits dispatching to skill id. A nil Policy
// permits everything.
func CanInvoke(id SkillID, p *Policy) bool {
	if p == nil {
		return true
	}
	for _, denied := range p.DenyList {
		if denied == id {
			return false
		}
	}
	if len(p.AllowList) == 0 {
		return true
	}
	for _, allowed := range p.AllowList {
		if allowed == id {
			return true
		}
	}
	return false
}

func toSet(ids []SkillID) map[SkillID]struct{} {
	set := make(map[SkillID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
