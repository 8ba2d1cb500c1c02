package observability

import (
	"context"
	"errors"
	"testing"
)

func TestClampRatio(t *testing.T) {
	cases := map[string]float64{"": 0.1, "abc": 0.1, "0.5": 0.5, "-1": 0, "7": 1}
	for raw, want := range cases {
		if got := clampRatio(raw); got != want {
			t.Fatalf("clampRatio(%q): want=%v got=%v", raw, want, got)
		}
	}
}

func TestParseHeaders(t *testing.T) {
	got := parseHeaders(" api-key = abc ,broken, =x,team=sched")
	if len(got) != 2 || got["api-key"] != "abc" || got["team"] != "sched" {
		t.Fatalf("parseHeaders: got=%v", got)
	}
	if parseHeaders("") != nil {
		t.Fatalf("parseHeaders(empty): want nil")
	}
}

func TestInitOTelDisabledIsNoop(t *testing.T) {
	shutdown := InitOTel(context.Background(), nil, OtelConfig{}, OtelSettings{})
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	_, span := StartSpan(context.Background(), "test")
	EndSpan(span, errors.New("boom"))
}
