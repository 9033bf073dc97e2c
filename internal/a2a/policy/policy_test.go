package policy

import (
	"context"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func runProperties(t *testing.T, build func(*gopter.Properties)) {
	t.Helper()
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)
	build(properties)
	properties.TestingRun(t)
}

func TestExtractPolicyFromHeaders(t *testing.T) {
	runProperties(t, func(properties *gopter.Properties) {
		properties.Property("empty headers produce an empty policy", prop.ForAll(
			func(_ int) bool {
				p := ExtractPolicyFromHeaders("", "")
				return len(p.AllowList) == 0 && len(p.DenyList) == 0
			},
			gen.Int(),
		))

		properties.Property("a single skill ID round-trips", prop.ForAll(
			func(id string) bool {
				if id == "" || strings.ContainsAny(id, ", \t\n") {
					return true
				}
				p := ExtractPolicyFromHeaders(id, "")
				return len(p.AllowList) == 1 && p.AllowList[0] == SkillID(id)
			},
			gen.AlphaString(),
		))

		properties.Property("comma-separated skill IDs all parse", prop.ForAll(
			func(ids []string) bool {
				valid := make([]string, 0, len(ids))
				for _, id := range ids {
					id = strings.TrimSpace(id)
					if id != "" && !strings.Contains(id, ",") {
						valid = append(valid, id)
					}
				}
				if len(valid) == 0 {
					return true
				}
				p := ExtractPolicyFromHeaders(strings.Join(valid, ","), "")
				return len(p.AllowList) == len(valid)
			},
			gen.SliceOf(gen.AlphaString()),
		))

		properties.Property("surrounding whitespace is trimmed", prop.ForAll(
			func(id string) bool {
				if id == "" || strings.ContainsAny(id, ", \t\n") {
					return true
				}
				p := ExtractPolicyFromHeaders("  "+id+"  ,  "+id+"  ", "")
				return len(p.AllowList) == 2 && p.AllowList[0] == SkillID(id) && p.AllowList[1] == SkillID(id)
			},
			gen.AlphaString(),
		))

		properties.Property("allow and deny headers parse independently", prop.ForAll(
			func(allow, deny string) bool {
				if allow == "" || deny == "" || strings.ContainsAny(allow, ", \t\n") || strings.ContainsAny(deny, ", \t\n") {
					return true
				}
				p := ExtractPolicyFromHeaders(allow, deny)
				return len(p.AllowList) == 1 && p.AllowList[0] == SkillID(allow) &&
					len(p.DenyList) == 1 && p.DenyList[0] == SkillID(deny)
			},
			gen.AlphaString(),
			gen.AlphaString(),
		))
	})
}

func toSkillIDs(ss []string) []SkillID {
	ids := make([]SkillID, len(ss))
	for i, s := range ss {
		ids[i] = SkillID(s)
	}
	return ids
}

func TestFilterSkills(t *testing.T) {
	runProperties(t, func(properties *gopter.Properties) {
		properties.Property("nil policy permits every skill", prop.ForAll(
			func(skills []string) bool {
				return len(FilterSkills(toSkillIDs(skills), nil)) == len(skills)
			},
			gen.SliceOf(gen.AlphaString()),
		))

		properties.Property("an empty policy permits every skill", prop.ForAll(
			func(skills []string) bool {
				return len(FilterSkills(toSkillIDs(skills), &Policy{})) == len(skills)
			},
			gen.SliceOf(gen.AlphaString()),
		))

		properties.Property("a denied skill ID is removed", prop.ForAll(
			func(skills []string) bool {
				if len(skills) == 0 {
					return true
				}
				ids := toSkillIDs(skills)
				p := &Policy{DenyList: []SkillID{ids[0]}}
				result := FilterSkills(ids, p)

				denied := 0
				for _, id := range ids {
					if id == ids[0] {
						denied++
					}
				}
				return len(result) == len(ids)-denied
			},
			gen.SliceOfN(3, gen.AlphaString()),
		))

		properties.Property("a non-empty allow list restricts to its members", prop.ForAll(
			func(skills []string) bool {
				if len(skills) < 2 {
					return true
				}
				ids := toSkillIDs(skills)
				p := &Policy{AllowList: []SkillID{ids[0]}}
				for _, id := range FilterSkills(ids, p) {
					if id != ids[0] {
						return false
					}
				}
				return true
			},
			gen.SliceOfN(3, gen.AlphaString()),
		))

		properties.Property("deny overrides an overlapping allow entry", prop.ForAll(
			func(skill string) bool {
				if skill == "" {
					return true
				}
				id := SkillID(skill)
				p := &Policy{AllowList: []SkillID{id}, DenyList: []SkillID{id}}
				return len(FilterSkills([]SkillID{id}, p)) == 0
			},
			gen.AlphaString(),
		))
	})
}

func TestCanInvoke(t *testing.T) {
	runProperties(t, func(properties *gopter.Properties) {
		properties.Property("nil policy permits invocation", prop.ForAll(
			func(skill string) bool {
				return CanInvoke(SkillID(skill), nil)
			},
			gen.AlphaString(),
		))

		properties.Property("an empty policy permits invocation", prop.ForAll(
			func(skill string) bool {
				return CanInvoke(SkillID(skill), &Policy{})
			},
			gen.AlphaString(),
		))

		properties.Property("a denied skill cannot be invoked", prop.ForAll(
			func(skill string) bool {
				if skill == "" {
					return true
				}
				id := SkillID(skill)
				return !CanInvoke(id, &Policy{DenyList: []SkillID{id}})
			},
			gen.AlphaString(),
		))

		properties.Property("an allow-listed skill can be invoked", prop.ForAll(
			func(skill string) bool {
				if skill == "" {
					return true
				}
				id := SkillID(skill)
				return CanInvoke(id, &Policy{AllowList: []SkillID{id}})
			},
			gen.AlphaString(),
		))

		properties.Property("a skill absent from a non-empty allow list is refused", prop.ForAll(
			func(skill, other string) bool {
				if skill == "" || other == "" || skill == other {
					return true
				}
				return !CanInvoke(SkillID(skill), &Policy{AllowList: []SkillID{SkillID(other)}})
			},
			gen.AlphaString(),
			gen.AlphaString(),
		))

		properties.Property("deny overrides an overlapping allow entry", prop.ForAll(
			func(skill string) bool {
				if skill == "" {
					return true
				}
				id := SkillID(skill)
				return !CanInvoke(id, &Policy{AllowList: []SkillID{id}, DenyList: []SkillID{id}})
			},
			gen.AlphaString(),
		))
	})
}

func TestPolicyContextRoundTrip(t *testing.T) {
	runProperties(t, func(properties *gopter.Properties) {
		properties.Property("an injected policy survives round-trip", prop.ForAll(
			func(allow, deny []string) bool {
				p := &Policy{AllowList: toSkillIDs(allow), DenyList: toSkillIDs(deny)}
				ctx := InjectPolicyToContext(context.Background(), p)
				retrieved := PolicyFromContext(ctx)
				return retrieved != nil &&
					len(retrieved.AllowList) == len(allow) &&
					len(retrieved.DenyList) == len(deny)
			},
			gen.SliceOf(gen.AlphaString()),
			gen.SliceOf(gen.AlphaString()),
		))

		properties.Property("an empty context carries no policy", prop.ForAll(
			func(_ int) bool {
				return PolicyFromContext(context.Background()) == nil
			},
			gen.Int(),
		))
	})
}
