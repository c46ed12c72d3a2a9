package domain

import (
	"errors"
	"testing"
)

func TestParseMetric(t *testing.T) {
	tests := []struct {
		in      string
		want    Metric
		wantErr bool
	}{
		{"cosine", MetricCosine, false},
		{"", MetricCosine, false},
		{"l2", MetricL2, false},
		{"ip", MetricIP, false},
		{"manhattan", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMetric(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidConfiguration) {
				t.Errorf("ParseMetric(%q): expected ErrInvalidConfiguration, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseMetric(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestCollectionSpec_Validate(t *testing.T) {
	ok := CollectionSpec{Name: "kb", Dimensions: 384, Metric: MetricCosine}
	if err := ok.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bad := []CollectionSpec{
		{Name: "", Dimensions: 384},
		{Name: "kb", Dimensions: 0},
		{Name: "kb", Dimensions: 4, Metric: "bogus"},
		{Name: "kb:x", Dimensions: 4},
		{Name: "kb*", Dimensions: 4},
		{Name: "my kb", Dimensions: 4},
	}
	for _, s := range bad {
		if err := s.Validate(); !errors.Is(err, ErrInvalidConfiguration) {
			t.Errorf("Validate(%+v): expected ErrInvalidConfiguration, got %v", s, err)
		}
	}
}

func TestCheckDimensions(t *testing.T) {
	if err := CheckDimensions([][]float32{{1, 2}, {3, 4}}, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := CheckDimensions(nil, 2); err != nil {
		t.Fatalf("empty batch: %v", err)
	}

	err := CheckDimensions([][]float32{{1, 2}, {3}}, 2)
	if !errors.Is(err, ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
	}
}

func TestCollectionSpec_CheckStored(t *testing.T) {
	want := CollectionSpec{Name: "kb", Dimensions: 384, Metric: MetricCosine}
	if err := want.CheckStored(want); err != nil {
		t.Fatalf("matching spec: %v", err)
	}
	for _, stored := range []CollectionSpec{
		{Name: "kb", Dimensions: 768, Metric: MetricCosine},
		{Name: "kb", Dimensions: 384, Metric: MetricIP},
	} {
		if err := want.CheckStored(stored); !errors.Is(err, ErrInvalidConfiguration) {
			t.Errorf("CheckStored(%+v): expected ErrInvalidConfiguration, got %v", stored, err)
		}
	}
}

func TestHitTexts(t *testing.T) {
	hits := []SearchHit{
		{Payload: Payload{Text: "first"}, Score: 0.9},
		{Payload: Payload{Text: "second"}, Score: 0.5},
	}
	got := HitTexts(hits)
	if len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Errorf("unexpected texts %v", got)
	}
	if len(HitTexts(nil)) != 0 {
		t.Error("expected empty slice for nil hits")
	}
}
