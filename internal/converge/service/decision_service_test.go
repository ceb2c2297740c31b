package service_test

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/converge-access/converge/server/internal/converge/capability"
	"github.com/converge-access/converge/server/internal/converge/policy"
	"github.com/converge-access/converge/server/internal/converge/service"
	"github.com/converge-access/converge/server/internal/converge/store/memory"
	"github.com/converge-access/converge/server/internal/converge/types"
)

func silentLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// evaluatorFunc adapts a function to policy.Evaluator.
type evaluatorFunc func(ctx context.Context, doc policy.Document) (policy.Outcome, error)

func (f evaluatorFunc) Evaluate(ctx context.Context, doc policy.Document) (policy.Outcome, error) {
	return f(ctx, doc)
}

func allowAll() evaluatorFunc {
	return func(context.Context, policy.Document) (policy.Outcome, error) {
		return policy.Outcome{Allow: true, Reason: "ok"}, nil
	}
}

type decisionFixture struct {
	svc        *service.DecisionService
	tokens     *service.TokenService
	events     *memory.DecisionEventStore
	lastAccess *memory.LastAccessStore
}

// newDecisionFixture wires a DecisionService over a fresh keypair and
// in-memory stores. now is the verifier's clock.
func newDecisionFixture(t *testing.T, eval policy.Evaluator, now time.Time) decisionFixture {
	t.Helper()

	public, private, err := capability.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}

	events := memory.NewDecisionEventStore()
	lastAccess := memory.NewLastAccessStore()

	verifier := capability.NewVerifier(capability.VerifierOptions{
		Key: capability.NewVerifyKey(public),
		Now: func() time.Time { return now },
	})

	svc := service.NewDecisionService(service.DecisionServiceOptions{
		Verifier:   verifier,
		Evaluator:  eval,
		Events:     events,
		LastAccess: lastAccess,
		Logger:     silentLogger(),
		Now:        func() time.Time { return now },
	})

	issuer := capability.NewIssuer(capability.NewSigner(private))
	tokens := service.NewTokenService(issuer, capability.NewVerifyKey(public))

	return decisionFixture{svc: svc, tokens: tokens, events: events, lastAccess: lastAccess}
}

func mintToken(t *testing.T, tokens *service.TokenService, req types.IssueRequest) string {
	t.Helper()
	resp, err := tokens.Issue(req)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return resp.Capability
}

func baseRequest() types.DecisionRequest {
	return types.DecisionRequest{
		Principal: types.Principal{ID: "user-1"},
		Resource:  types.Resource{ID: "lock-7", AreaID: "area-3"},
	}
}

func TestDecide_ValidCapability_Allows(t *testing.T) {
	now := time.Unix(1500, 0)
	fx := newDecisionFixture(t, allowAll(), now)

	req := baseRequest()
	req.Capability = mintToken(t, fx.tokens, types.IssueRequest{
		Sub: "user-1", Aud: "lock-7", Res: "lock-7", Act: "open",
		NbfEpoch: 1000, ExpEpoch: 2000,
	})

	resp, err := fx.svc.Decide(context.Background(), req)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if !resp.Allow {
		t.Fatalf("expected allow, got deny (reason %q)", resp.Reason)
	}
	if resp.Mode != types.ModeCapability {
		t.Fatalf("mode = %q, want capability", resp.Mode)
	}
}

func TestDecide_ExpiredCapability_DeniesWithoutReason(t *testing.T) {
	now := time.Unix(2500, 0)
	fx := newDecisionFixture(t, allowAll(), now)

	req := baseRequest()
	req.Capability = mintToken(t, fx.tokens, types.IssueRequest{
		Sub: "user-1", Aud: "lock-7", Res: "lock-7", Act: "open",
		NbfEpoch: 1000, ExpEpoch: 2000,
	})

	resp, err := fx.svc.Decide(context.Background(), req)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if resp.Allow {
		t.Fatal("expected deny for expired token")
	}
	if resp.Mode != types.ModeCapability {
		t.Fatalf("mode = %q, want capability", resp.Mode)
	}
	if resp.Reason != "" {
		t.Fatalf("capability deny must not disclose a reason, got %q", resp.Reason)
	}
}

func TestDecide_CapabilityForOtherLock_Denies(t *testing.T) {
	now := time.Unix(1500, 0)
	fx := newDecisionFixture(t, allowAll(), now)

	req := baseRequest()
	req.Capability = mintToken(t, fx.tokens, types.IssueRequest{
		Sub: "user-1", Aud: "lock-8", Res: "lock-8", Act: "open",
		NbfEpoch: 1000, ExpEpoch: 2000,
	})

	resp, err := fx.svc.Decide(context.Background(), req)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if resp.Allow {
		t.Fatal("expected deny for token bound to a different lock")
	}
	if resp.Reason != "" {
		t.Fatalf("capability deny must not disclose a reason, got %q", resp.Reason)
	}
}

func TestDecide_CapabilityTakesPrecedenceOverContext(t *testing.T) {
	// The evaluator would allow, but the expired token decides alone.
	now := time.Unix(2500, 0)
	fx := newDecisionFixture(t, allowAll(), now)

	req := baseRequest()
	req.Context = &types.PolicyContext{NowMin: 41}
	req.Capability = mintToken(t, fx.tokens, types.IssueRequest{
		Sub: "user-1", Aud: "lock-7", Res: "lock-7", Act: "open",
		NbfEpoch: 1000, ExpEpoch: 2000,
	})

	resp, err := fx.svc.Decide(context.Background(), req)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if resp.Allow {
		t.Fatal("expected deny: context must not rescue a failed capability")
	}
	if resp.Mode != types.ModeCapability {
		t.Fatalf("mode = %q, want capability", resp.Mode)
	}
}

func TestDecide_RequiredModifierReadFromContext(t *testing.T) {
	now := time.Unix(1500, 0)
	fx := newDecisionFixture(t, allowAll(), now)

	token := mintToken(t, fx.tokens, types.IssueRequest{
		Sub: "user-1", Aud: "lock-7", Res: "lock-7", Act: "open",
		NbfEpoch: 1000, ExpEpoch: 2000,
		Modifiers: []string{"escort"},
	})

	req := baseRequest()
	req.Capability = token
	req.Context = &types.PolicyContext{RequiredModifier: "escort"}

	resp, err := fx.svc.Decide(context.Background(), req)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if !resp.Allow {
		t.Fatal("token carrying the required modifier should allow")
	}

	req.Context = &types.PolicyContext{RequiredModifier: "after-hours"}
	resp, err = fx.svc.Decide(context.Background(), req)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if resp.Allow {
		t.Fatal("token missing the required modifier should deny")
	}
}

func TestDecide_PolicyPath_SurfacesEvaluatorOutcome(t *testing.T) {
	eval := evaluatorFunc(func(_ context.Context, doc policy.Document) (policy.Outcome, error) {
		if doc.Action != "open" {
			return policy.Outcome{Allow: false, Reason: "unexpected action"}, nil
		}
		return policy.Outcome{Allow: true, Reason: "schedule matched"}, nil
	})
	fx := newDecisionFixture(t, eval, time.Unix(1500, 0))

	req := baseRequest()
	req.Context = &types.PolicyContext{NowMin: 41}

	resp, err := fx.svc.Decide(context.Background(), req)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if !resp.Allow {
		t.Fatalf("expected allow, got deny (reason %q)", resp.Reason)
	}
	if resp.Mode != types.ModePolicy {
		t.Fatalf("mode = %q, want policy", resp.Mode)
	}
	if resp.Reason != "schedule matched" {
		t.Fatalf("reason = %q, want evaluator diagnostic verbatim", resp.Reason)
	}
}

func TestDecide_MissingContextAndCapability_Denies(t *testing.T) {
	fx := newDecisionFixture(t, allowAll(), time.Unix(1500, 0))

	resp, err := fx.svc.Decide(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if resp.Allow {
		t.Fatal("expected deny with no inputs")
	}
	if resp.Reason != service.MissingInputReason {
		t.Fatalf("reason = %q, want %q", resp.Reason, service.MissingInputReason)
	}
	if resp.Mode != types.ModePolicy {
		t.Fatalf("mode = %q, want policy", resp.Mode)
	}
}

func TestDecide_EvaluatorError_FailsClosed(t *testing.T) {
	eval := evaluatorFunc(func(context.Context, policy.Document) (policy.Outcome, error) {
		return policy.Outcome{}, errors.New("evaluator down")
	})
	fx := newDecisionFixture(t, eval, time.Unix(1500, 0))

	req := baseRequest()
	req.Context = &types.PolicyContext{NowMin: 41}

	resp, err := fx.svc.Decide(context.Background(), req)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if resp.Allow {
		t.Fatal("evaluator failure must deny")
	}
	if resp.Mode != types.ModePolicy {
		t.Fatalf("mode = %q, want policy", resp.Mode)
	}
}

func TestDecide_RecordsAuditEvents(t *testing.T) {
	fx := newDecisionFixture(t, allowAll(), time.Unix(1500, 0))

	req := baseRequest()
	req.Context = &types.PolicyContext{NowMin: 41}
	if _, err := fx.svc.Decide(context.Background(), req); err != nil {
		t.Fatalf("Decide allow: %v", err)
	}

	if _, err := fx.svc.Decide(context.Background(), baseRequest()); err != nil {
		t.Fatalf("Decide deny: %v", err)
	}

	events := fx.events.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 audit events, got %d", len(events))
	}

	if !events[0].Allow || events[0].Mode != types.ModePolicy {
		t.Fatalf("first event = %+v, want policy allow", events[0])
	}
	if events[1].Allow || events[1].Reason != service.MissingInputReason {
		t.Fatalf("second event = %+v, want missing-input deny", events[1])
	}
	if events[0].ResourceID != "lock-7" || events[0].AreaID != "area-3" {
		t.Fatalf("event binding = %s/%s", events[0].ResourceID, events[0].AreaID)
	}
	if events[0].DecidedAt.IsZero() {
		t.Fatal("expected decided_at to be set")
	}
}

func TestDecide_ObserveWritesLastAccess(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 15, 0, 0, time.UTC)
	fx := newDecisionFixture(t, allowAll(), now)

	req := baseRequest()
	req.Context = &types.PolicyContext{NowMin: 495}
	req.Observe = true

	resp, err := fx.svc.Decide(context.Background(), req)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if !resp.Allow {
		t.Fatalf("expected allow, got deny (reason %q)", resp.Reason)
	}

	rec, err := fx.lastAccess.Fetch(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if rec == nil {
		t.Fatal("expected a last-access record after observed allow")
	}
	if rec.DoorID != "lock-7" {
		t.Fatalf("door_id = %q, want lock-7", rec.DoorID)
	}
	if rec.TimeOfDay != "08:15" {
		t.Fatalf("time_of_day = %q, want 08:15", rec.TimeOfDay)
	}
}

func TestDecide_DenyDoesNotWriteLastAccess(t *testing.T) {
	fx := newDecisionFixture(t, allowAll(), time.Unix(1500, 0))

	req := baseRequest()
	req.Observe = true

	if _, err := fx.svc.Decide(context.Background(), req); err != nil {
		t.Fatalf("Decide: %v", err)
	}

	rec, err := fx.lastAccess.Fetch(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if rec != nil {
		t.Fatal("deny must not record an access")
	}
}

func TestDecide_ValidatesIdentity(t *testing.T) {
	fx := newDecisionFixture(t, allowAll(), time.Unix(1500, 0))

	req := baseRequest()
	req.Principal.ID = " "
	if _, err := fx.svc.Decide(context.Background(), req); !errors.Is(err, service.ErrInvalidPrincipalID) {
		t.Fatalf("err = %v, want ErrInvalidPrincipalID", err)
	}

	req = baseRequest()
	req.Resource.ID = ""
	if _, err := fx.svc.Decide(context.Background(), req); !errors.Is(err, service.ErrInvalidResourceID) {
		t.Fatalf("err = %v, want ErrInvalidResourceID", err)
	}
}
