package labels

import "testing"

func fp(v float64) *float64 { return &v }
func cp(v int16) *int16     { return &v }

// Fill-once-then-frozen: NULLs accept a value exactly once, and after that a
// recompute must reproduce what is stored.
func TestCompareHorizon_FillAndFreeze(t *testing.T) {
	// NULL -> value is a fill, never a conflict
	if err := compareHorizon(nil, nil, nil, nil, fp(0.01), fp(0.5), fp(0.5), cp(1)); err != nil {
		t.Errorf("filling nulls flagged as conflict: %v", err)
	}

	// value -> NULL leaves the frozen value alone
	if err := compareHorizon(fp(0.01), fp(0.5), fp(0.5), cp(1), nil, nil, nil, nil); err != nil {
		t.Errorf("recompute that lost an input flagged as conflict: %v", err)
	}

	// identical recompute is a no-op
	if err := compareHorizon(fp(0.01), fp(0.5), fp(0.5), cp(1), fp(0.01), fp(0.5), fp(0.5), cp(1)); err != nil {
		t.Errorf("identical recompute flagged: %v", err)
	}

	// float noise below the tolerance is not a disagreement
	if err := compareHorizon(fp(0.01), nil, nil, nil, fp(0.01+freezeTolerance/2), nil, nil, nil); err != nil {
		t.Errorf("sub-tolerance drift flagged: %v", err)
	}

	// a changed value is a conflict
	if err := compareHorizon(fp(0.01), nil, nil, nil, fp(0.02), nil, nil, nil); err == nil {
		t.Error("changed raw return accepted")
	}
	if err := compareHorizon(nil, nil, nil, cp(1), nil, nil, nil, cp(-1)); err == nil {
		t.Error("changed class accepted")
	}
}
