package policy

import (
	"reflect"
	"testing"

	"github.com/converge-access/converge/server/internal/converge/types"
)

func testContext() types.PolicyContext {
	return types.PolicyContext{
		NowMin:             840,
		AllowedScheduleIDs: []string{"sched-weekday"},
		RequiredModifier:   "booking",
		PolicyFacts: []types.PolicyFact{
			{
				ProfileID:  "member",
				AreaID:     "area-3",
				ScheduleID: "sched-weekday",
				Modifiers:  []string{"booking", "cleaning"},
			},
		},
	}
}

func TestBuildDocument_Native(t *testing.T) {
	principal := types.Principal{
		ID: "alice",
		Profiles: []types.Profile{
			{ID: "member", ValidFromMin: 0, ValidToMin: 1440},
		},
	}
	resource := types.Resource{ID: "lock-7", AreaID: "area-3"}

	doc := BuildDocument(principal, resource, testContext(), "open")
	native := doc.Native()

	want := map[string]any{
		"principal": map[string]any{
			"id": "alice",
			"profiles": []any{
				map[string]any{
					"id":             "member",
					"valid_from_min": float64(0),
					"valid_to_min":   float64(1440),
				},
			},
		},
		"resource": map[string]any{
			"id":      "lock-7",
			"area_id": "area-3",
		},
		"context": map[string]any{
			"now_min":              float64(840),
			"allowed_schedule_ids": []any{"sched-weekday"},
			"required_modifier":    "booking",
			"policy_facts": []any{
				map[string]any{
					"profile_id":  "member",
					"area_id":     "area-3",
					"schedule_id": "sched-weekday",
					"modifiers":   []any{"booking", "cleaning"},
				},
			},
		},
		"action": "open",
	}

	if !reflect.DeepEqual(native, want) {
		t.Errorf("document mismatch:\n got %#v\nwant %#v", native, want)
	}
}

func TestBuildDocument_EmptyCollections(t *testing.T) {
	doc := BuildDocument(
		types.Principal{ID: "bob"},
		types.Resource{ID: "lock-1", AreaID: "area-1"},
		types.PolicyContext{NowMin: 10},
		"open",
	)
	native := doc.Native()

	principal := native["principal"].(map[string]any)
	if profiles := principal["profiles"].([]any); len(profiles) != 0 {
		t.Errorf("expected empty profiles, got %v", profiles)
	}

	contextAttrs := native["context"].(map[string]any)
	if facts := contextAttrs["policy_facts"].([]any); len(facts) != 0 {
		t.Errorf("expected empty policy_facts, got %v", facts)
	}
	if ids := contextAttrs["allowed_schedule_ids"].([]any); len(ids) != 0 {
		t.Errorf("expected empty allowed_schedule_ids, got %v", ids)
	}
}
