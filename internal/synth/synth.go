// Package synth produces randomized argument tuples for a unit's parameter
// list. Randomness is an explicit *rand.Rand threaded through the sequence,
// never package-global: with a seed, the same unit signature always yields
// the identical trial sequence, no matter how files are scheduled; without
// one, the engine runs in randomized-labeling mode.
package synth

import (
	"hash/fnv"
	"math/rand"
	"regexp"
	"sort"
	"strings"

	"speclens/internal/contract"
	"speclens/internal/parse"
	"speclens/internal/value"
)

// DefaultTrials is the default number of trials per unit.
const DefaultTrials = 20

// Options configures trial generation.
type Options struct {
	Trials int
	// Seed derives per-unit sequences when nonzero; zero selects a
	// nondeterministic seed.
	Seed int64
}

// Sequence is a lazy, restartable, finite sequence of argument tuples for
// one unit.
type Sequence struct {
	unit   *parse.Unit
	attrs  []string
	trials int
	seed   int64

	rng      *rand.Rand
	produced int
}

// New builds the trial sequence for u. src is the unit's source text, used
// to discover which attributes a synthesized receiver needs.
func New(u *parse.Unit, src []byte, opts Options) *Sequence {
	trials := opts.Trials
	if trials <= 0 {
		trials = DefaultTrials
	}

	var seed int64
	if opts.Seed != 0 {
		seed = deriveSeed(opts.Seed, u.Signature())
	} else {
		seed = rand.Int63()
	}

	s := &Sequence{
		unit:   u,
		attrs:  receiverAttrs(u, src),
		trials: trials,
		seed:   seed,
	}
	s.Restart()
	return s
}

// deriveSeed folds the global seed and the unit signature so per-unit
// sequences are stable regardless of file scheduling.
func deriveSeed(seed int64, signature string) int64 {
	h := fnv.New64a()
	var buf [8]byte
	for i := range buf {
		buf[i] = byte(seed >> (8 * i))
	}
	h.Write(buf[:])
	h.Write([]byte(signature))
	derived := int64(h.Sum64())
	if derived == 0 {
		derived = 1
	}
	return derived
}

// Restart rewinds the sequence to its first trial.
func (s *Sequence) Restart() {
	s.rng = rand.New(rand.NewSource(s.seed))
	s.produced = 0
}

// Next produces the next argument tuple, or false when the sequence is
// exhausted. Receiver objects are freshly built per trial so one trial's
// mutations cannot leak into the next.
func (s *Sequence) Next() ([]value.Value, bool) {
	if s.produced >= s.trials {
		return nil, false
	}
	trial := s.produced
	s.produced++

	args := make([]value.Value, len(s.unit.Params))
	for i, p := range s.unit.Params {
		args[i] = s.sample(p, i, trial)
	}
	return args, true
}

// Len returns the total number of trials in the sequence.
func (s *Sequence) Len() int { return s.trials }

func (s *Sequence) sample(p parse.Param, idx, trial int) value.Value {
	if s.unit.Class != "" && (p.Name == "self" || p.Name == "other") {
		return value.Obj(s.sampleObject())
	}

	switch hintDomain(p.Hint) {
	case "int":
		return s.sampleInt()
	case "float":
		return s.sampleFloat()
	case "bool":
		return value.Bool(s.rng.Intn(2) == 0)
	case "str":
		return s.sampleStr()
	case "list":
		return s.sampleList()
	default:
		return s.sampleMixed(idx, trial)
	}
}

// sampleMixed rotates across primitive domains for untyped parameters,
// weighted toward integers since most contracts are arithmetic.
func (s *Sequence) sampleMixed(idx, trial int) value.Value {
	switch (idx + trial) % 7 {
	case 0, 1, 3:
		return s.sampleInt()
	case 2:
		return s.sampleFloat()
	case 4:
		return value.Bool(s.rng.Intn(2) == 0)
	case 5:
		return s.sampleStr()
	default:
		return s.sampleList()
	}
}

// sampleInt draws small integers spanning zero and negatives.
func (s *Sequence) sampleInt() value.Value {
	return value.Int(int64(s.rng.Intn(11) - 5))
}

func (s *Sequence) sampleFloat() value.Value {
	// One decimal place in [-5.0, 5.0], zero included.
	return value.Float(float64(s.rng.Intn(101)-50) / 10)
}

func (s *Sequence) sampleStr() value.Value {
	const letters = "abcxyz"
	n := s.rng.Intn(4)
	b := make([]byte, n)
	for i := range b {
		b[i] = letters[s.rng.Intn(len(letters))]
	}
	return value.Str(string(b))
}

func (s *Sequence) sampleList() value.Value {
	n := s.rng.Intn(5)
	elems := make([]value.Value, n)
	for i := range elems {
		elems[i] = s.sampleInt()
	}
	return value.List(elems)
}

// sampleObject builds a receiver instance whose attributes are the names
// the unit's contracts and body actually reference, each seeded with a
// small integer.
func (s *Sequence) sampleObject() *value.Object {
	obj := value.NewObject(s.unit.Class)
	for _, attr := range s.attrs {
		obj.Set(attr, s.sampleInt())
	}
	return obj
}

// hintDomain normalizes a type hint to one of the sampler domains.
func hintDomain(hint string) string {
	h := strings.ToLower(strings.TrimSpace(hint))
	if i := strings.IndexByte(h, '['); i >= 0 {
		h = h[:i]
	}
	switch h {
	case "int":
		return "int"
	case "float":
		return "float"
	case "bool":
		return "bool"
	case "str":
		return "str"
	case "list":
		return "list"
	default:
		return ""
	}
}

var attrRefPattern = regexp.MustCompile(`\b(?:self|other)\.([A-Za-z_][A-Za-z0-9_]*)`)

// receiverAttrs discovers the attribute names a synthesized receiver must
// carry: every self.X / other.X reference in the unit's contracts and its
// body text, sorted for determinism.
func receiverAttrs(u *parse.Unit, src []byte) []string {
	seen := make(map[string]bool)

	addExpr := func(e *contract.Expression) {
		for _, m := range attrRefPattern.FindAllStringSubmatch(e.Raw, -1) {
			seen[m[1]] = true
		}
	}
	for _, e := range u.Requires {
		addExpr(e)
	}
	for _, e := range u.Ensures {
		addExpr(e)
	}
	for _, e := range u.Invariants {
		addExpr(e)
	}

	if u.Body != nil && len(src) > 0 {
		body := src[u.Body.StartByte():u.Body.EndByte()]
		for _, m := range attrRefPattern.FindAllSubmatch(body, -1) {
			seen[string(m[1])] = true
		}
	}

	attrs := make([]string, 0, len(seen))
	for a := range seen {
		attrs = append(attrs, a)
	}
	sort.Strings(attrs)
	return attrs
}
