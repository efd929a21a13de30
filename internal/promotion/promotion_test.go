package promotion

import (
	"testing"
	"time"
)

func TestNewPlanNo(t *testing.T) {
	at := time.UnixMilli(1700000000000)

	got := NewPlanNo("KR", at)
	want := "PLNDP-KR-1700000000000"
	if got != want {
		t.Errorf("NewPlanNo = %q, want %q", got, want)
	}
}

func TestNewPlanNo_CountryDisambiguates(t *testing.T) {
	at := time.Now()
	if NewPlanNo("KR", at) == NewPlanNo("JP", at) {
		t.Error("same-instant plan numbers for different countries must differ")
	}
}
