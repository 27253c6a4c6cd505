// Package verify runs the dynamic verification state machine: for each
// synthesized trial it gates on preconditions, invokes the unit inside the
// interpreter's fault boundary, checks postconditions and inherited
// invariants against the live result, and reduces all trials to a single
// SAFE/RISKY label. Subject failures of every sort are converted into
// violation data; only engine-internal faults propagate as errors.
package verify

import (
	"errors"
	"fmt"

	"speclens/internal/contract"
	"speclens/internal/interp"
	"speclens/internal/logging"
	"speclens/internal/parse"
	"speclens/internal/synth"
	"speclens/internal/value"
)

// Label is the aggregate classification of a unit.
type Label string

const (
	Safe  Label = "SAFE"
	Risky Label = "RISKY"
)

// Outcome classifies one trial.
type Outcome int

const (
	// Pass: the call completed and every checked contract held.
	Pass Outcome = iota
	// Excluded: a precondition rejected the inputs; the call was not
	// attempted and the trial does not count against the unit.
	Excluded
	// ViolationFault: the unit raised a runtime fault.
	ViolationFault
	// ViolationContract: a postcondition or invariant evaluated false,
	// or its evaluation itself failed (counted conservatively).
	ViolationContract
)

func (o Outcome) String() string {
	switch o {
	case Pass:
		return "pass"
	case Excluded:
		return "excluded"
	case ViolationFault:
		return "violation(fault)"
	case ViolationContract:
		return "violation(contract)"
	default:
		return "unknown"
	}
}

// Trial records one synthesized execution attempt. Trials are ephemeral:
// the assembler consumes only the aggregate label, the CLI may render them.
type Trial struct {
	Args    []value.Value
	Outcome Outcome
	// Detail names the failed contract or the fault message.
	Detail string
	// Result is the returned value when the call completed.
	Result    value.Value
	HasResult bool
}

// Report is the terminal state of the verifier for one unit.
type Report struct {
	Unit       *parse.Unit
	Label      Label
	Trials     []Trial
	Attempted  int
	Excluded   int
	Violations int
}

// Options configures a verification run.
type Options struct {
	Trials     int
	Seed       int64
	StepBudget int
}

// Unit drives all trials for one unit and aggregates the label.
// The returned error is reserved for engine-internal faults; everything
// the subject code does wrong is data inside the Report.
func Unit(u *parse.Unit, src []byte, opts Options) (*Report, error) {
	logger := logging.New("verify")
	seq := synth.New(u, src, synth.Options{Trials: opts.Trials, Seed: opts.Seed})

	rep := &Report{Unit: u, Trials: make([]Trial, 0, seq.Len())}

	for {
		args, ok := seq.Next()
		if !ok {
			break
		}
		trial, err := runTrial(u, src, args, opts.StepBudget)
		if err != nil {
			return nil, fmt.Errorf("verify: unit %s: %w", u.ID(), err)
		}
		rep.Trials = append(rep.Trials, trial)

		switch trial.Outcome {
		case Excluded:
			rep.Excluded++
		case Pass:
			rep.Attempted++
		case ViolationFault, ViolationContract:
			rep.Attempted++
			rep.Violations++
		}
	}

	// RISKY on any observed violation. A unit whose every trial was
	// excluded by its own preconditions is SAFE by vacuous satisfaction;
	// that is a policy default, not a proof.
	if rep.Violations > 0 {
		rep.Label = Risky
	} else {
		rep.Label = Safe
	}

	logger.Debug("unit verified",
		"unit", u.ID(),
		"label", string(rep.Label),
		"attempted", rep.Attempted,
		"excluded", rep.Excluded,
		"violations", rep.Violations,
	)
	return rep, nil
}

// runTrial executes the per-trial state machine.
func runTrial(u *parse.Unit, src []byte, args []value.Value, budget int) (Trial, error) {
	trial := Trial{Args: args}

	env := make(value.Env, len(args)+1)
	for i, p := range u.Params {
		env[p.Name] = args[i]
	}

	// Precondition gate. An unmet precondition is the caller's fault, so
	// the trial is excluded; an unevaluable precondition cannot admit the
	// inputs either and excludes likewise.
	for _, pre := range u.Requires {
		ok, err := pre.Eval(env)
		if err != nil || !ok {
			trial.Outcome = Excluded
			trial.Detail = pre.Raw
			return trial, nil
		}
	}

	// Invoke inside the fault boundary.
	result, err := interp.Invoke(u, src, args, budget)
	if err != nil {
		var fault *interp.SubjectFault
		if errors.As(err, &fault) {
			trial.Outcome = ViolationFault
			trial.Detail = fault.Msg
			return trial, nil
		}
		// Anything else is the engine's own bug and escalates.
		return Trial{}, err
	}
	trial.Result = result
	trial.HasResult = true
	env["result"] = result

	// Postconditions, then inherited invariants, in declaration order.
	// A contract that fails to evaluate counts as a violation: the
	// conservative choice, made explicitly.
	for _, group := range [][]*contract.Expression{u.Ensures, u.Invariants} {
		for _, post := range group {
			ok, err := post.Eval(env)
			if err != nil {
				trial.Outcome = ViolationContract
				trial.Detail = err.Error()
				return trial, nil
			}
			if !ok {
				trial.Outcome = ViolationContract
				trial.Detail = post.Raw
				return trial, nil
			}
		}
	}

	trial.Outcome = Pass
	return trial, nil
}
