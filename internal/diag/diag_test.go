package diag

import (
	"errors"
	"fmt"
	"testing"
)

func TestList_AddAndOfKind(t *testing.T) {
	var l List
	l.Add(KindRetrieval, "Algebra", 0, errors.New("status 404"))
	l.Add(KindOverlayMerge, "Algebra", 3, errors.New("no media box"))
	l.Add(KindRetrieval, "Physics", 0, errors.New("timeout"))

	if len(l) != 3 {
		t.Fatalf("expected 3 diagnostics, got %d", len(l))
	}
	got := l.OfKind(KindRetrieval)
	if len(got) != 2 {
		t.Fatalf("expected 2 retrieval diagnostics, got %d", len(got))
	}
	if got[1].Subject != "Physics" {
		t.Errorf("expected order preserved, got %q second", got[1].Subject)
	}
	if l[1].Message != "no media box" {
		t.Errorf("expected message from error, got %q", l[1].Message)
	}
	if c := l.Counts()[KindOverlayMerge]; c != 1 {
		t.Errorf("expected 1 overlay diagnostic, got %d", c)
	}
}

func TestKindOf(t *testing.T) {
	malformed := fmt.Errorf("count: %w", &MalformedSourceError{Path: "x.pdf", Err: errors.New("zero pages")})
	if k := KindOf(malformed); k != KindMalformedSource {
		t.Errorf("expected %s, got %s", KindMalformedSource, k)
	}
	retrieval := &RetrievalError{Locator: "https://example.com/a.pdf", Err: errors.New("status 500")}
	if k := KindOf(retrieval); k != KindRetrieval {
		t.Errorf("expected %s, got %s", KindRetrieval, k)
	}
}

func TestDiagnostic_String(t *testing.T) {
	d := Diagnostic{Kind: KindOverlayMerge, Subject: "Algebra", Page: 4, Message: "no media box"}
	want := "overlay_merge: Algebra (page 4): no media box"
	if d.String() != want {
		t.Errorf("expected %q, got %q", want, d.String())
	}
}
