package models

import "testing"

func TestReplacementStatusTransitions(t *testing.T) {
	cases := []struct {
		from     ReplacementStatus
		to       ReplacementStatus
		expected bool
	}{
		{ReplacementStatusOpen, ReplacementStatusSentToVendor, true},
		{ReplacementStatusOpen, ReplacementStatusClosed, true},
		{ReplacementStatusSentToVendor, ReplacementStatusClosed, true},
		// re-issue corrections are the only same-status transition allowed
		{ReplacementStatusSentToVendor, ReplacementStatusSentToVendor, true},
		{ReplacementStatusOpen, ReplacementStatusOpen, false},
		{ReplacementStatusClosed, ReplacementStatusClosed, false},
		// never backwards
		{ReplacementStatusSentToVendor, ReplacementStatusOpen, false},
		{ReplacementStatusClosed, ReplacementStatusSentToVendor, false},
		{ReplacementStatusClosed, ReplacementStatusOpen, false},
		// unknown statuses never transition
		{ReplacementStatus("Bogus"), ReplacementStatusClosed, false},
		{ReplacementStatusOpen, ReplacementStatus("Bogus"), false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.expected {
			t.Fatalf("%s -> %s expected %v, got %v", tc.from, tc.to, tc.expected, got)
		}
	}
}

func TestRequisitionReviewTransitions(t *testing.T) {
	reviewable := []RequisitionStatus{RequisitionStatusPending, RequisitionStatusOnHold}
	outcomes := []RequisitionStatus{RequisitionStatusApproved, RequisitionStatusRejected, RequisitionStatusOnHold}

	for _, from := range reviewable {
		for _, to := range outcomes {
			if err := from.ValidateReviewTransition(to); err != nil {
				t.Fatalf("%s -> %s expected ok, got %v", from, to, err)
			}
		}
	}

	// processed requisitions cannot be re-reviewed
	terminal := []RequisitionStatus{RequisitionStatusApproved, RequisitionStatusRejected, RequisitionStatusPoCreated, RequisitionStatusGrnCreated}
	for _, from := range terminal {
		if err := from.ValidateReviewTransition(RequisitionStatusApproved); err == nil {
			t.Fatalf("%s -> Approved expected error, got nil", from)
		}
	}

	// the workflow-owned statuses are not valid review outcomes
	for _, to := range []RequisitionStatus{RequisitionStatusPending, RequisitionStatusPoCreated, RequisitionStatusGrnCreated} {
		if err := RequisitionStatusPending.ValidateReviewTransition(to); err == nil {
			t.Fatalf("Pending -> %s expected error, got nil", to)
		}
	}
}
