package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/converge-access/converge/server/internal/converge/capability"
	"github.com/converge-access/converge/server/internal/converge/policy"
	"github.com/converge-access/converge/server/internal/converge/store"
	"github.com/converge-access/converge/server/internal/converge/types"
)

var (
	ErrInvalidResourceID  = errors.New("resource.id is required")
	ErrInvalidPrincipalID = errors.New("principal.id is required")
)

// MissingInputReason is the one denial reason the dispatcher discloses:
// the request carried neither a capability token nor a policy context.
const MissingInputReason = "missing context or capability"

// DecisionService is the dispatcher between the two decision paths. A
// capability token, when present, is authoritative on its own; the
// policy path hands a normalized attribute document to the external
// evaluator. Both paths append to the decision audit log best-effort.
type DecisionService struct {
	verifier   *capability.Verifier
	evaluator  policy.Evaluator
	events     store.DecisionEventStore
	lastAccess store.LastAccessStore

	lastAccessTTL  time.Duration
	observeTimeout time.Duration
	logger         *log.Logger
	now            func() time.Time
}

// DecisionServiceOptions groups DecisionService dependencies. Events,
// LastAccess, and Now are optional.
type DecisionServiceOptions struct {
	Verifier  *capability.Verifier
	Evaluator policy.Evaluator

	// Events receives every decision, allow and deny, from both
	// paths. Write failures never affect the decision.
	Events store.DecisionEventStore

	// LastAccess holds the advisory per-principal projection written
	// on observed Allows. Never read back to influence an outcome.
	LastAccess store.LastAccessStore

	// LastAccessTTL bounds the projection's lifetime. 0 keeps entries
	// until overwritten.
	LastAccessTTL time.Duration

	Logger *log.Logger
	Now    func() time.Time
}

func NewDecisionService(opts DecisionServiceOptions) *DecisionService {
	if opts.Verifier == nil {
		panic("service: DecisionService requires a Verifier")
	}
	if opts.Evaluator == nil {
		panic("service: DecisionService requires an Evaluator")
	}
	if opts.Logger == nil {
		panic("service: DecisionService requires a Logger")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &DecisionService{
		verifier:       opts.Verifier,
		evaluator:      opts.Evaluator,
		events:         opts.Events,
		lastAccess:     opts.LastAccess,
		lastAccessTTL:  opts.LastAccessTTL,
		observeTimeout: 2 * time.Second,
		logger:         opts.Logger,
		now:            now,
	}
}

// Decide resolves one decision request. A present capability token
// selects the capability path exclusively; the context is never merged
// into it, except that the required-modifier binding check reads the
// context's required_modifier when one is supplied.
func (s *DecisionService) Decide(ctx context.Context, req types.DecisionRequest) (types.DecisionResponse, error) {
	if strings.TrimSpace(req.Principal.ID) == "" {
		return types.DecisionResponse{}, ErrInvalidPrincipalID
	}
	if strings.TrimSpace(req.Resource.ID) == "" {
		return types.DecisionResponse{}, ErrInvalidResourceID
	}

	action := strings.TrimSpace(req.Action)
	if action == "" {
		action = types.DefaultAction
	}

	var resp types.DecisionResponse
	switch {
	case strings.TrimSpace(req.Capability) != "":
		resp = s.decideCapability(ctx, req, action)
	case req.Context == nil:
		resp = types.DecisionResponse{
			Allow:  false,
			Reason: MissingInputReason,
			Mode:   types.ModePolicy,
		}
	default:
		resp = s.decidePolicy(ctx, req, action)
	}

	s.recordDecision(ctx, req, action, resp)

	if resp.Allow && req.Observe {
		s.observeAccess(ctx, req)
	}

	return resp, nil
}

// decideCapability runs the ordered verification checks. The response
// never names the failing check; the specific failure is logged
// server-side only.
func (s *DecisionService) decideCapability(ctx context.Context, req types.DecisionRequest, action string) types.DecisionResponse {
	requiredModifier := ""
	if req.Context != nil {
		requiredModifier = req.Context.RequiredModifier
	}

	_, err := s.verifier.Verify(ctx, req.Capability, capability.CheckRequest{
		ResourceID:       req.Resource.ID,
		AreaID:           req.Resource.AreaID,
		Action:           action,
		RequiredModifier: requiredModifier,
	})
	if err != nil {
		s.logger.Printf("capability deny for principal=%s resource=%s: %v",
			req.Principal.ID, req.Resource.ID, err)
		return types.DecisionResponse{Allow: false, Mode: types.ModeCapability}
	}

	return types.DecisionResponse{Allow: true, Mode: types.ModeCapability}
}

func (s *DecisionService) decidePolicy(ctx context.Context, req types.DecisionRequest, action string) types.DecisionResponse {
	// Advisory read of the previous access projection. The result
	// never influences the outcome; a store failure is logged and the
	// evaluation proceeds.
	if s.lastAccess != nil {
		if _, err := s.lastAccess.Fetch(ctx, req.Principal.ID); err != nil {
			s.logger.Printf("last-access fetch for principal=%s: %v", req.Principal.ID, err)
		}
	}

	doc := policy.BuildDocument(req.Principal, req.Resource, *req.Context, action)

	outcome, err := s.evaluator.Evaluate(ctx, doc)
	if err != nil {
		// Evaluator unreachable or broken fails closed.
		s.logger.Printf("policy evaluation for principal=%s resource=%s: %v",
			req.Principal.ID, req.Resource.ID, err)
		return types.DecisionResponse{
			Allow:  false,
			Reason: "policy evaluation failed",
			Mode:   types.ModePolicy,
		}
	}

	return types.DecisionResponse{
		Allow:  outcome.Allow,
		Reason: outcome.Reason,
		Mode:   types.ModePolicy,
	}
}

// recordDecision appends to the audit log. A failed audit write never
// prevents the controller from receiving its decision.
func (s *DecisionService) recordDecision(ctx context.Context, req types.DecisionRequest, action string, resp types.DecisionResponse) {
	if s.events == nil {
		return
	}

	err := s.events.RecordDecision(ctx, store.DecisionEventRecord{
		PrincipalID: req.Principal.ID,
		ResourceID:  req.Resource.ID,
		AreaID:      req.Resource.AreaID,
		Action:      action,
		Mode:        resp.Mode,
		Allow:       resp.Allow,
		Reason:      resp.Reason,
		DecidedAt:   s.now().UTC(),
	})
	if err != nil {
		s.logger.Printf("decision audit write: %v", err)
	}
}

// observeAccess writes the last-access projection under its own
// timeout so a slow store cannot delay decision delivery.
func (s *DecisionService) observeAccess(ctx context.Context, req types.DecisionRequest) {
	if s.lastAccess == nil {
		return
	}

	now := s.now().UTC()
	rec := store.LastAccessRecord{
		DoorID:    req.Resource.ID,
		TimeOfDay: now.Format("15:04"),
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.observeTimeout)
	defer cancel()

	if err := s.lastAccess.Write(writeCtx, req.Principal.ID, rec, s.lastAccessTTL); err != nil {
		s.logger.Printf("last-access write for principal=%s: %v", req.Principal.ID, err)
	}
}
