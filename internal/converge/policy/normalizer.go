package policy

import (
	"github.com/converge-access/converge/server/internal/converge/types"
)

// Document is the normalized attribute document handed to the external
// evaluator: principal, resource, and context attribute trees plus the
// requested action.
type Document struct {
	Principal AttributeValue
	Resource  AttributeValue
	Context   AttributeValue
	Action    string
}

// BuildDocument losslessly converts the domain inputs of a policy-path
// decision into a Document. Every conversion is total: any principal,
// resource, and context combination produces a document.
func BuildDocument(p types.Principal, r types.Resource, c types.PolicyContext, action string) Document {
	return Document{
		Principal: principalAttributes(p),
		Resource:  resourceAttributes(r),
		Context:   contextAttributes(c),
		Action:    action,
	}
}

// Native renders the document as one JSON-shaped tree. Top-level keys:
// principal, resource, context, action.
func (d Document) Native() map[string]any {
	return map[string]any{
		"principal": d.Principal.Native(),
		"resource":  d.Resource.Native(),
		"context":   d.Context.Native(),
		"action":    d.Action,
	}
}

func principalAttributes(p types.Principal) AttributeValue {
	profiles := make([]AttributeValue, len(p.Profiles))
	for i, profile := range p.Profiles {
		profiles[i] = Record(map[string]AttributeValue{
			"id":             String(profile.ID),
			"valid_from_min": Int(profile.ValidFromMin),
			"valid_to_min":   Int(profile.ValidToMin),
		})
	}
	return Record(map[string]AttributeValue{
		"id":       String(p.ID),
		"profiles": Set(profiles...),
	})
}

func resourceAttributes(r types.Resource) AttributeValue {
	return Record(map[string]AttributeValue{
		"id":      String(r.ID),
		"area_id": String(r.AreaID),
	})
}

func contextAttributes(c types.PolicyContext) AttributeValue {
	facts := make([]AttributeValue, len(c.PolicyFacts))
	for i, fact := range c.PolicyFacts {
		facts[i] = Record(map[string]AttributeValue{
			"profile_id":  String(fact.ProfileID),
			"area_id":     String(fact.AreaID),
			"schedule_id": String(fact.ScheduleID),
			"modifiers":   StringSet(fact.Modifiers),
		})
	}
	return Record(map[string]AttributeValue{
		"now_min":              Int(c.NowMin),
		"allowed_schedule_ids": StringSet(c.AllowedScheduleIDs),
		"required_modifier":    String(c.RequiredModifier),
		"policy_facts":         Set(facts...),
	})
}
