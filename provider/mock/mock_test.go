package mock

import (
	"context"
	"errors"
	"testing"
)

func TestGenerate_CyclesResponses(t *testing.T) {
	p := New("one", "two")
	ctx := context.Background()

	want := []string{"one", "two", "one"}
	for i, w := range want {
		got, err := p.Generate(ctx, "sys", "prompt")
		if err != nil {
			t.Fatalf("Generate #%d: %v", i, err)
		}
		if got != w {
			t.Errorf("Generate #%d = %q, want %q", i, got, w)
		}
	}
}

func TestGenerate_DefaultResponse(t *testing.T) {
	p := New()
	got, err := p.Generate(context.Background(), "", "")
	if err != nil {
		t.Fatal(err)
	}
	if got != defaultResponse {
		t.Errorf("Generate = %q, want default", got)
	}
}

func TestFailWith(t *testing.T) {
	p := New("fine")
	boom := errors.New("backend down")
	p.FailWith(boom)

	if _, err := p.Generate(context.Background(), "", ""); !errors.Is(err, boom) {
		t.Errorf("Generate error = %v, want %v", err, boom)
	}

	p.FailWith(nil)
	got, err := p.Generate(context.Background(), "", "")
	if err != nil {
		t.Fatalf("Generate after recovery: %v", err)
	}
	if got != "fine" {
		t.Errorf("Generate = %q", got)
	}
}
