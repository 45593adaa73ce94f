package models

import "testing"

func TestEvaluateTransferRulesDefaultOpen(t *testing.T) {
	// no rules for the fromStore: every destination is allowed
	if !EvaluateTransferRules(nil, 42) {
		t.Fatal("expected no rules to allow any destination")
	}
	if !EvaluateTransferRules([]*StoreTransferRule{}, 42) {
		t.Fatal("expected empty rule set to allow any destination")
	}
}

func TestEvaluateTransferRulesAllowListFlip(t *testing.T) {
	rules := []*StoreTransferRule{
		{FromStoreId: 1, ToStoreId: 2},
		{FromStoreId: 1, ToStoreId: 3},
	}

	cases := []struct {
		toStoreId int
		expected  bool
	}{
		{2, true},
		{3, true},
		// the first rule row flips the fromStore to allow-list mode;
		// unlisted destinations are now denied
		{4, false},
		{1, false},
	}
	for _, tc := range cases {
		if got := EvaluateTransferRules(rules, tc.toStoreId); got != tc.expected {
			t.Fatalf("EvaluateTransferRules(rules, %d) expected %v, got %v", tc.toStoreId, tc.expected, got)
		}
	}
}
