package types

// Decision modes. A response always states which path produced it.
const (
	ModePolicy     = "policy"
	ModeCapability = "capability"
)

// DefaultAction is assumed when a decision request does not name an
// action. Physical lock controllers only ever request "open".
const DefaultAction = "open"

// Profile is a named validity window (in minutes) under which a
// principal is recognized for some purpose.
type Profile struct {
	ID           string `json:"id"`
	ValidFromMin int64  `json:"valid_from_min"`
	ValidToMin   int64  `json:"valid_to_min"`
}

type Principal struct {
	ID       string    `json:"id"`
	Profiles []Profile `json:"profiles"`
}

// Resource is a controllable endpoint (a specific lock) grouped under
// an area. The resource id doubles as the controller identity that
// capability tokens are audience-bound to.
type Resource struct {
	ID     string `json:"id"`
	AreaID string `json:"area_id"`
}

// PolicyFact is a rule input describing one profile/area/schedule/
// modifier combination the policy document may consider.
type PolicyFact struct {
	ProfileID  string   `json:"profile_id"`
	AreaID     string   `json:"area_id"`
	ScheduleID string   `json:"schedule_id"`
	Modifiers  []string `json:"modifiers"`
}

// PolicyContext carries the situational inputs for the policy path.
type PolicyContext struct {
	NowMin             int64        `json:"now_min"`
	AllowedScheduleIDs []string     `json:"allowed_schedule_ids"`
	RequiredModifier   string       `json:"required_modifier"`
	PolicyFacts        []PolicyFact `json:"policy_facts"`
}

// DecisionRequest selects one of two decision paths: a capability token
// when present, otherwise policy evaluation against the context.
type DecisionRequest struct {
	Principal  Principal      `json:"principal"`
	Resource   Resource       `json:"resource"`
	Context    *PolicyContext `json:"context,omitempty"`
	Observe    bool           `json:"observe,omitempty"`
	Capability string         `json:"capability,omitempty"`
	Action     string         `json:"action,omitempty"`
}

type DecisionResponse struct {
	Allow  bool   `json:"allow"`
	Reason string `json:"reason,omitempty"`
	Mode   string `json:"mode"`
}
