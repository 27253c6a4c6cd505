package interp

import (
	"errors"
	"testing"

	"speclens/internal/parse"
	"speclens/internal/value"
)

// mod parses src and returns the module plus a lookup helper; units stay
// valid until test cleanup closes the module.
func mod(t *testing.T, src string) (*parse.Module, func(string) *parse.Unit) {
	t.Helper()
	m, err := parse.Source("test.py", []byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	t.Cleanup(m.Close)
	return m, func(id string) *parse.Unit {
		for _, u := range m.Units {
			if u.ID() == id {
				return u
			}
		}
		t.Fatalf("no unit %q", id)
		return nil
	}
}

func TestInvoke_IntegerDivision(t *testing.T) {
	m, unit := mod(t, "def div(a, b):\n    return a // b\n")
	u := unit("div")

	got, err := Invoke(u, m.Source, []value.Value{value.Int(6), value.Int(3)}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got.AsInt() != 2 {
		t.Errorf("div(6,3) = %s", got)
	}

	got, err = Invoke(u, m.Source, []value.Value{value.Int(6), value.Int(4)}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got.AsInt() != 1 {
		t.Errorf("div(6,4) = %s", got)
	}

	_, err = Invoke(u, m.Source, []value.Value{value.Int(6), value.Int(0)}, 0)
	var fault *SubjectFault
	if !errors.As(err, &fault) {
		t.Errorf("div(6,0): expected SubjectFault, got %v", err)
	}
}

func TestInvoke_Branches(t *testing.T) {
	src := `def clamp(x, lo, hi):
    if x < lo:
        return lo
    elif x > hi:
        return hi
    else:
        return x
`
	m, unit := mod(t, src)
	u := unit("clamp")

	cases := []struct{ x, lo, hi, want int64 }{
		{-5, 0, 10, 0},
		{15, 0, 10, 10},
		{7, 0, 10, 7},
	}
	for _, c := range cases {
		got, err := Invoke(u, m.Source, []value.Value{value.Int(c.x), value.Int(c.lo), value.Int(c.hi)}, 0)
		if err != nil {
			t.Fatal(err)
		}
		if got.AsInt() != c.want {
			t.Errorf("clamp(%d,%d,%d) = %s, want %d", c.x, c.lo, c.hi, got, c.want)
		}
	}
}

func TestInvoke_LoopsAndBuiltins(t *testing.T) {
	src := `def total(n):
    acc = 0
    for i in range(n):
        acc += i
    return acc

def stats(values):
    return max(values) - min(values) + len(values) + sum(values) + abs(-1)

def root(x):
    return math.sqrt(x)
`
	m, unit := mod(t, src)

	got, err := Invoke(unit("total"), m.Source, []value.Value{value.Int(5)}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got.AsInt() != 10 {
		t.Errorf("total(5) = %s", got)
	}

	list := value.List([]value.Value{value.Int(2), value.Int(7), value.Int(4)})
	got, err = Invoke(unit("stats"), m.Source, []value.Value{list}, 0)
	if err != nil {
		t.Fatal(err)
	}
	// (7-2) + 3 + 13 + 1
	if got.AsInt() != 22 {
		t.Errorf("stats = %s", got)
	}

	got, err = Invoke(unit("root"), m.Source, []value.Value{value.Int(9)}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got.AsFloat() != 3.0 {
		t.Errorf("root(9) = %s", got)
	}

	_, err = Invoke(unit("root"), m.Source, []value.Value{value.Int(-1)}, 0)
	var fault *SubjectFault
	if !errors.As(err, &fault) {
		t.Errorf("sqrt(-1): expected SubjectFault, got %v", err)
	}
}

func TestInvoke_WhileWithBudget(t *testing.T) {
	src := `def spin():
    while True:
        pass
`
	m, unit := mod(t, src)

	_, err := Invoke(unit("spin"), m.Source, nil, 500)
	var fault *SubjectFault
	if !errors.As(err, &fault) {
		t.Fatalf("expected budget fault, got %v", err)
	}
}

func TestInvoke_MethodMutatesReceiver(t *testing.T) {
	src := `class Account:
    def withdraw(self, amount):
        if amount > self.balance:
            amount = self.balance
        self.balance -= amount
        return amount
`
	m, unit := mod(t, src)
	u := unit("Account.withdraw")

	acct := value.NewObject("Account")
	acct.Set("balance", value.Int(10))

	got, err := Invoke(u, m.Source, []value.Value{value.Obj(acct), value.Int(30)}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got.AsInt() != 10 {
		t.Errorf("withdraw returned %s", got)
	}
	if bal, _ := acct.Get("balance"); bal.AsInt() != 0 {
		t.Errorf("balance after withdraw = %s", bal)
	}
}

func TestInvoke_ImplicitNoneReturn(t *testing.T) {
	m, unit := mod(t, "def noop(x):\n    x = x + 1\n")
	got, err := Invoke(unit("noop"), m.Source, []value.Value{value.Int(1)}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsNone() {
		t.Errorf("expected None, got %s", got)
	}
}

func TestInvoke_UnsupportedConstructIsFault(t *testing.T) {
	m, unit := mod(t, "def weird(x):\n    yield x\n")
	_, err := Invoke(unit("weird"), m.Source, []value.Value{value.Int(1)}, 0)
	var fault *SubjectFault
	if !errors.As(err, &fault) {
		t.Errorf("expected SubjectFault for unsupported construct, got %v", err)
	}
}

func TestInvoke_UnknownNameIsFault(t *testing.T) {
	m, unit := mod(t, "def f(x):\n    return x + ghost\n")
	_, err := Invoke(unit("f"), m.Source, []value.Value{value.Int(1)}, 0)
	var fault *SubjectFault
	if !errors.As(err, &fault) {
		t.Errorf("expected SubjectFault, got %v", err)
	}
}

func TestInvoke_ArgCountMismatchIsInternal(t *testing.T) {
	m, unit := mod(t, "def f(a, b):\n    return a\n")
	_, err := Invoke(unit("f"), m.Source, []value.Value{value.Int(1)}, 0)
	var internal *InternalError
	if !errors.As(err, &internal) {
		t.Errorf("expected InternalError, got %v", err)
	}
}

func TestInvoke_ChainedComparison(t *testing.T) {
	m, unit := mod(t, "def within(x, lo, hi):\n    return lo <= x <= hi\n")
	u := unit("within")

	got, err := Invoke(u, m.Source, []value.Value{value.Int(5), value.Int(0), value.Int(10)}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !got.AsBool() {
		t.Error("within(5,0,10) should be true")
	}

	got, err = Invoke(u, m.Source, []value.Value{value.Int(50), value.Int(0), value.Int(10)}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got.AsBool() {
		t.Error("within(50,0,10) should be false")
	}
}
