package matcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/regexflow/regexflow/pkg/pattern"
)

func newTestMatcher(t *testing.T, opts ...Option) *BoundedMatcher {
	t.Helper()
	m := New(2, opts...)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestRun_NamedGroup(t *testing.T) {
	m := newTestMatcher(t)

	res := m.Run(context.Background(), `Rs\.(?<amount>[\d,]+)`, "Debited Rs.5000 from your account")
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if !res.Matched {
		t.Fatal("expected match")
	}
	if got := res.Fields["amount"]; got != "5000" {
		t.Errorf("amount = %q, want %q", got, "5000")
	}
	if len(res.Fields) != 1 {
		t.Errorf("fields = %v, want single amount key", res.Fields)
	}
}

func TestRun_MultipleNamedGroups(t *testing.T) {
	m := newTestMatcher(t)

	pat := `(?<type>debited|credited) with Rs\.(?<amount>[\d,.]+)\. Avl bal Rs\.(?<balance>[\d,.]+)`
	text := "Your a/c was DEBITED with Rs.1,200.50. Avl Bal Rs.8,799.50"

	res := m.Run(context.Background(), pat, text)
	if res.Err != nil || !res.Matched {
		t.Fatalf("matched=%v err=%v", res.Matched, res.Err)
	}
	want := map[string]string{"type": "DEBITED", "amount": "1,200.50", "balance": "8,799.50"}
	for k, v := range want {
		if res.Fields[k] != v {
			t.Errorf("fields[%q] = %q, want %q", k, res.Fields[k], v)
		}
	}
	if len(res.Fields) != len(want) {
		t.Errorf("fields = %v, want exactly %d keys", res.Fields, len(want))
	}
}

func TestRun_PositionalFallback(t *testing.T) {
	m := newTestMatcher(t)

	res := m.Run(context.Background(), `(\d+) sent to (\w+)`, "500 sent to grocer")
	if res.Err != nil || !res.Matched {
		t.Fatalf("matched=%v err=%v", res.Matched, res.Err)
	}
	if res.Fields["group1"] != "500" || res.Fields["group2"] != "grocer" {
		t.Errorf("fields = %v, want group1=500 group2=grocer", res.Fields)
	}
}

func TestRun_NoMatchIsNotAnError(t *testing.T) {
	m := newTestMatcher(t)

	res := m.Run(context.Background(), `Rs\.(?<amount>\d+)`, "nothing financial here")
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.Matched {
		t.Error("expected no match")
	}
	if len(res.Fields) != 0 {
		t.Errorf("fields = %v, want empty", res.Fields)
	}
}

func TestRun_TrimsAndOmitsEmptyValues(t *testing.T) {
	m := newTestMatcher(t)

	res := m.Run(context.Background(), `ref (?<ref>[A-Z0-9 ]*?) done(?: by (?<mode>\w+))?`, "ref  TXN99  done")
	if res.Err != nil || !res.Matched {
		t.Fatalf("matched=%v err=%v", res.Matched, res.Err)
	}
	if got := res.Fields["ref"]; got != "TXN99" {
		t.Errorf("ref = %q, want trimmed %q", got, "TXN99")
	}
	if _, ok := res.Fields["mode"]; ok {
		t.Errorf("mode should be omitted when group did not participate: %v", res.Fields)
	}
}

func TestRun_ValidationShortCircuits(t *testing.T) {
	m := newTestMatcher(t)

	res := m.Run(context.Background(), `(.*)*`, "anything")
	var verr *pattern.ValidationError
	if !errors.As(res.Err, &verr) || verr.Kind != pattern.DangerousConstruct {
		t.Fatalf("expected DangerousConstruct, got %v", res.Err)
	}

	res = m.Run(context.Background(), "", "anything")
	if !errors.As(res.Err, &verr) || verr.Kind != pattern.EmptyPattern {
		t.Fatalf("expected EmptyPattern, got %v", res.Err)
	}
}

func TestRun_CaseInsensitive(t *testing.T) {
	m := newTestMatcher(t)

	res := m.Run(context.Background(), `debited rs\.(?<amount>\d+)`, "DEBITED RS.750 from a/c")
	if res.Err != nil || !res.Matched {
		t.Fatalf("matched=%v err=%v", res.Matched, res.Err)
	}
	if res.Fields["amount"] != "750" {
		t.Errorf("fields = %v", res.Fields)
	}
}

func TestRunWithTimeout_PathologicalPattern(t *testing.T) {
	// The pattern below backtracks exponentially on this input but does not
	// appear on the validation denylist (false negative by design).
	deadline := 100 * time.Millisecond
	m := newTestMatcher(t, WithTimeout(deadline))

	pat := `(x+x+)+y`
	text := "xxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx"

	start := time.Now()
	res := m.RunWithTimeout(context.Background(), pat, text, deadline)
	elapsed := time.Since(start)

	if !errors.Is(res.Err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got matched=%v err=%v", res.Matched, res.Err)
	}
	// Bounded margin over the deadline, not indefinite.
	if elapsed > deadline+2*time.Second {
		t.Errorf("timeout took %s, want within bounded margin of %s", elapsed, deadline)
	}
}

func TestRun_ElapsedIsRecorded(t *testing.T) {
	m := newTestMatcher(t)

	res := m.Run(context.Background(), `(?<amount>\d+)`, "amount 42")
	if res.Elapsed <= 0 {
		t.Errorf("elapsed = %v, want > 0", res.Elapsed)
	}
}

func TestMatches(t *testing.T) {
	m := newTestMatcher(t)

	ok, err := m.Matches(`rs\.\d+`, "Rs.500 debited")
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	ok, err = m.Matches(`rs\.\d+`, "no money mentioned")
	if err != nil || ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
}

func TestNamedGroupNames(t *testing.T) {
	names := namedGroupNames(`(?<amount>\d+) (?P<date>\S+) (\d+) (?<amount>\d+)`)
	if len(names) != 2 || names[0] != "amount" || names[1] != "date" {
		t.Errorf("names = %v, want [amount date]", names)
	}
}
