package model

import "testing"

func TestTierIndex(t *testing.T) {
	if TierIndex(BasicSchool) != 0 {
		t.Error("basic_school should be the first tier")
	}
	if TierIndex(Researcher) != 5 {
		t.Error("researcher should be the last tier")
	}
	if TierIndex(SeniorHigh) <= TierIndex(JuniorHigh) {
		t.Error("tier order broken between junior_high and senior_high")
	}
	if TierIndex("astronaut") != -1 {
		t.Error("unknown tier should index to -1")
	}
}

func TestPreviousTier(t *testing.T) {
	if prev, ok := PreviousTier(SeniorHigh); !ok || prev != JuniorHigh {
		t.Errorf("previous of senior_high: %s, %v", prev, ok)
	}
	if _, ok := PreviousTier(BasicSchool); ok {
		t.Error("first tier has no previous")
	}
	if _, ok := PreviousTier("astronaut"); ok {
		t.Error("unknown tier has no previous")
	}
}
