package conversation

import "testing"

func TestAdvanceCompilation_CompilesInBoundedBatches(t *testing.T) {
	c := NewCompiler()
	total := c.Total()
	if total == 0 {
		t.Fatal("expected a non-empty seed pattern set")
	}

	compiled := 0
	done := false
	for i := 0; i < total+1; i++ {
		var n int
		n, done = c.AdvanceCompilation(2)
		compiled += n
		if done {
			break
		}
	}
	if !done {
		t.Fatal("expected compilation to finish")
	}
	if compiled != total {
		t.Errorf("expected %d patterns compiled, got %d", total, compiled)
	}

	if n, done := c.AdvanceCompilation(2); n != 0 || !done {
		t.Errorf("expected no-op after full compilation, got n=%d done=%v", n, done)
	}
}

func TestMatch_ExactTemplateWins(t *testing.T) {
	c := NewCompiler()
	for done := false; !done; {
		_, done = c.AdvanceCompilation(4)
	}

	handled, resp := c.Match("what is axiom")
	if !handled || resp == "" {
		t.Fatalf("expected an exact match, got handled=%v resp=%q", handled, resp)
	}
}

func TestMatch_SlotTemplateMatchesViaRegex(t *testing.T) {
	c := NewCompiler()
	for done := false; !done; {
		_, done = c.AdvanceCompilation(4)
	}

	handled, resp := c.Match("what is Germany")
	if !handled {
		t.Fatal("expected the slot template 'what is <topic>' to match")
	}
	if resp == "" {
		t.Error("expected a non-empty response")
	}
}

func TestMatch_UnrelatedQueryFallsThrough(t *testing.T) {
	c := NewCompiler()
	for done := false; !done; {
		_, done = c.AdvanceCompilation(4)
	}

	if handled, _ := c.Match("the treaty entered into force in 2024"); handled {
		t.Error("expected an unrelated factual query not to match any canned pattern")
	}
}

func TestMatch_BeforeCompilationFallsThrough(t *testing.T) {
	c := NewCompiler()
	if handled, _ := c.Match("what is axiom"); handled {
		t.Error("expected no match before any pattern has been compiled")
	}
}
