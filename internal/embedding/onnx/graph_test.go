package onnx

import (
	"testing"

	ort "github.com/yalue/onnxruntime_go"
)

func TestPickOutput(t *testing.T) {
	got, err := pickOutput([]ort.InputOutputInfo{{Name: "last_hidden_state"}, {Name: "pooler_output"}})
	if err != nil {
		t.Fatalf("pickOutput() failed: %v", err)
	}
	if got != "pooler_output" {
		t.Fatalf("expected pooled output, got %q", got)
	}

	got, err = pickOutput([]ort.InputOutputInfo{{Name: "Identity"}})
	if err != nil || got != "Identity" {
		t.Fatalf("expected sole output, got %q (%v)", got, err)
	}

	if _, err := pickOutput(nil); err == nil {
		t.Fatalf("expected error for model without outputs")
	}
}

func TestWiden(t *testing.T) {
	got := widen([]int32{101, 0, -1})
	if len(got) != 3 || got[0] != 101 || got[2] != -1 {
		t.Fatalf("unexpected widen result %v", got)
	}
}
