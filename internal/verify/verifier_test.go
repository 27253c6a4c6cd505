package verify

import (
	"strings"
	"testing"

	"speclens/internal/parse"
)

const subjectSrc = `class Account:
    # @invariant self.balance >= -10

    def touch(self):
        return self.balance

    def drain(self):
        # @ensures result == self.balance
        self.balance = self.balance - 100
        return self.balance


def add(a: int, b: int):
    # @ensures result == a + b
    return a + b


def off_by_one(a: int):
    # @ensures result == a
    # @ensures result == a + 1
    return a


def recip(a: int):
    # @requires a > 0
    # @ensures result >= 0
    return 10 // a


def gated(a: int):
    # @requires a.size > 0
    return a


def tag(a: int):
    # @ensures result.size > 0
    return a


def boom(a: int):
    return missing


def plain(a: int):
    return a
`

func verifyFixture(t *testing.T, id string) *Report {
	t.Helper()
	mod, err := parse.Source("subject.py", []byte(subjectSrc))
	if err != nil {
		t.Fatalf("Source: %v", err)
	}
	t.Cleanup(mod.Close)

	for _, u := range mod.Units {
		if u.ID() == id {
			rep, err := Unit(u, mod.Source, Options{Trials: 20, Seed: 7, StepBudget: 10000})
			if err != nil {
				t.Fatalf("Unit(%s): %v", id, err)
			}
			return rep
		}
	}
	t.Fatalf("unit %s not found", id)
	return nil
}

func TestHoldingContractsLabelSafe(t *testing.T) {
	rep := verifyFixture(t, "add")
	if rep.Label != Safe {
		t.Fatalf("label = %s, want SAFE", rep.Label)
	}
	if rep.Attempted != 20 || rep.Excluded != 0 || rep.Violations != 0 {
		t.Fatalf("counts = %d/%d/%d, want 20/0/0",
			rep.Attempted, rep.Excluded, rep.Violations)
	}
	for i, trial := range rep.Trials {
		if trial.Outcome != Pass {
			t.Fatalf("trial %d: outcome %s, want pass", i, trial.Outcome)
		}
		if !trial.HasResult {
			t.Fatalf("trial %d: missing result", i)
		}
	}
}

func TestFalsifiedPostconditionLabelsRisky(t *testing.T) {
	rep := verifyFixture(t, "off_by_one")
	if rep.Label != Risky {
		t.Fatalf("label = %s, want RISKY", rep.Label)
	}
	if rep.Violations != 20 {
		t.Fatalf("violations = %d, want 20", rep.Violations)
	}
	// The trial records the first failing contract, in declaration order.
	for i, trial := range rep.Trials {
		if trial.Outcome != ViolationContract {
			t.Fatalf("trial %d: outcome %s, want violation(contract)", i, trial.Outcome)
		}
		if trial.Detail != "result == a + 1" {
			t.Fatalf("trial %d: detail = %q", i, trial.Detail)
		}
	}
}

func TestRuntimeFaultLabelsRisky(t *testing.T) {
	rep := verifyFixture(t, "boom")
	if rep.Label != Risky {
		t.Fatalf("label = %s, want RISKY", rep.Label)
	}
	for i, trial := range rep.Trials {
		if trial.Outcome != ViolationFault {
			t.Fatalf("trial %d: outcome %s, want violation(fault)", i, trial.Outcome)
		}
		if !strings.Contains(trial.Detail, "missing") {
			t.Fatalf("trial %d: detail %q does not name the unbound name", i, trial.Detail)
		}
		if trial.HasResult {
			t.Fatalf("trial %d: faulting trial carries a result", i)
		}
	}
}

func TestPreconditionGateExcludesTrials(t *testing.T) {
	rep := verifyFixture(t, "recip")
	if rep.Label != Safe {
		t.Fatalf("label = %s, want SAFE", rep.Label)
	}
	if rep.Attempted+rep.Excluded != 20 {
		t.Fatalf("attempted %d + excluded %d != 20", rep.Attempted, rep.Excluded)
	}
	for i, trial := range rep.Trials {
		switch trial.Outcome {
		case Pass:
		case Excluded:
			if trial.Detail != "a > 0" {
				t.Fatalf("trial %d: detail = %q", i, trial.Detail)
			}
		default:
			t.Fatalf("trial %d: unexpected outcome %s", i, trial.Outcome)
		}
	}
}

// A unit whose preconditions reject every input is vacuously SAFE.
func TestAllExcludedIsVacuouslySafe(t *testing.T) {
	rep := verifyFixture(t, "gated")
	if rep.Label != Safe {
		t.Fatalf("label = %s, want SAFE", rep.Label)
	}
	if rep.Attempted != 0 || rep.Excluded != 20 {
		t.Fatalf("attempted/excluded = %d/%d, want 0/20", rep.Attempted, rep.Excluded)
	}
}

// An unevaluable precondition cannot admit the inputs, so the trial is
// excluded — never counted as a violation. This is the opposite of the
// postcondition policy and deliberate: preconditions gate the caller,
// postconditions judge the unit.
func TestUnevaluablePreconditionExcludes(t *testing.T) {
	rep := verifyFixture(t, "gated")
	if rep.Violations != 0 {
		t.Fatalf("violations = %d, want 0", rep.Violations)
	}
	for i, trial := range rep.Trials {
		if trial.Outcome != Excluded {
			t.Fatalf("trial %d: outcome %s, want excluded", i, trial.Outcome)
		}
		if trial.Detail != "a.size > 0" {
			t.Fatalf("trial %d: detail = %q, want the gating precondition", i, trial.Detail)
		}
		if trial.HasResult {
			t.Fatalf("trial %d: excluded trial carries a result", i)
		}
	}
}

func TestUnevaluablePostconditionCountsAsViolation(t *testing.T) {
	rep := verifyFixture(t, "tag")
	if rep.Label != Risky {
		t.Fatalf("label = %s, want RISKY", rep.Label)
	}
	for i, trial := range rep.Trials {
		if trial.Outcome != ViolationContract {
			t.Fatalf("trial %d: outcome %s, want violation(contract)", i, trial.Outcome)
		}
	}
}

func TestContractFreeUnitIsSafe(t *testing.T) {
	rep := verifyFixture(t, "plain")
	if rep.Label != Safe {
		t.Fatalf("label = %s, want SAFE", rep.Label)
	}
	if rep.Attempted != 20 {
		t.Fatalf("attempted = %d, want 20", rep.Attempted)
	}
}

// Class invariants attach to every method; receivers are synthesized with
// the attributes the class's contracts reference, seeded with small ints.
func TestInheritedInvariantHolds(t *testing.T) {
	rep := verifyFixture(t, "Account.touch")
	if rep.Label != Safe {
		t.Fatalf("label = %s, want SAFE", rep.Label)
	}
	if rep.Violations != 0 {
		t.Fatalf("violations = %d, want 0", rep.Violations)
	}
}

func TestInheritedInvariantViolatedAfterMutation(t *testing.T) {
	rep := verifyFixture(t, "Account.drain")
	if rep.Label != Risky {
		t.Fatalf("label = %s, want RISKY", rep.Label)
	}
	for i, trial := range rep.Trials {
		if trial.Outcome != ViolationContract {
			t.Fatalf("trial %d: outcome %s, want violation(contract)", i, trial.Outcome)
		}
		if trial.Detail != "self.balance >= -10" {
			t.Fatalf("trial %d: detail = %q", i, trial.Detail)
		}
	}
}

func TestSeededRunsAgree(t *testing.T) {
	a := verifyFixture(t, "recip")
	b := verifyFixture(t, "recip")
	if a.Attempted != b.Attempted || a.Excluded != b.Excluded {
		t.Fatalf("seeded runs diverged: %d/%d vs %d/%d",
			a.Attempted, a.Excluded, b.Attempted, b.Excluded)
	}
	for i := range a.Trials {
		if a.Trials[i].Outcome != b.Trials[i].Outcome {
			t.Fatalf("trial %d outcome diverged", i)
		}
	}
}
