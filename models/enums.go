package models

import "errors"

type ConsumptionType string

const (
	ConsumptionTypeLumpsum       ConsumptionType = "LUMPSUM"
	ConsumptionTypeRecipeLumpsum ConsumptionType = "RECIPE_LUMPSUM"
	ConsumptionTypeRecipePortion ConsumptionType = "RECIPE_PORTION"
	ConsumptionTypeReplacement   ConsumptionType = "REPLACEMENT"
)

func (t ConsumptionType) IsValid() bool {
	switch t {
	case ConsumptionTypeLumpsum, ConsumptionTypeRecipeLumpsum, ConsumptionTypeRecipePortion, ConsumptionTypeReplacement:
		return true
	}
	return false
}

// IsRecipeBased reports whether posting the document requires recipe expansion.
func (t ConsumptionType) IsRecipeBased() bool {
	return t == ConsumptionTypeRecipeLumpsum || t == ConsumptionTypeRecipePortion
}

type ConsumptionStatus string

const (
	ConsumptionStatusDraft  ConsumptionStatus = "Draft"
	ConsumptionStatusPosted ConsumptionStatus = "Posted"
)

type ConsumptionLineType string

const (
	ConsumptionLineTypeDirect ConsumptionLineType = "D"
	ConsumptionLineTypeRecipe ConsumptionLineType = "R"
)

type ReplacementStatus string

const (
	ReplacementStatusOpen         ReplacementStatus = "Open"
	ReplacementStatusSentToVendor ReplacementStatus = "SentToVendor"
	ReplacementStatusClosed       ReplacementStatus = "Closed"
)

// rank orders replacement statuses for the forward-only transition check.
func (s ReplacementStatus) rank() int {
	switch s {
	case ReplacementStatusOpen:
		return 0
	case ReplacementStatusSentToVendor:
		return 1
	case ReplacementStatusClosed:
		return 2
	}
	return -1
}

// CanTransitionTo reports whether s -> next is a forward transition.
// Re-issuing an already sent replacement is the only same-rank transition allowed.
func (s ReplacementStatus) CanTransitionTo(next ReplacementStatus) bool {
	from, to := s.rank(), next.rank()
	if from < 0 || to < 0 {
		return false
	}
	if from == to {
		return s == ReplacementStatusSentToVendor
	}
	return to > from
}

type RequisitionStatus string

const (
	RequisitionStatusPending    RequisitionStatus = "Pending"
	RequisitionStatusApproved   RequisitionStatus = "Approved"
	RequisitionStatusRejected   RequisitionStatus = "Rejected"
	RequisitionStatusOnHold     RequisitionStatus = "OnHold"
	RequisitionStatusPoCreated  RequisitionStatus = "PoCreated"
	RequisitionStatusGrnCreated RequisitionStatus = "GrnCreated"
)

// ValidateReviewTransition checks the PENDING -> {APPROVED|REJECTED|ON_HOLD}
// stage of the requisition chain. PoCreated/GrnCreated are set by the
// procurement workflow, never through review.
func (s RequisitionStatus) ValidateReviewTransition(next RequisitionStatus) error {
	switch next {
	case RequisitionStatusApproved, RequisitionStatusRejected, RequisitionStatusOnHold:
	default:
		return errors.New("invalid requisition review status")
	}
	switch s {
	case RequisitionStatusPending, RequisitionStatusOnHold:
		return nil
	}
	return errors.New("requisition has already been processed")
}

type RequisitionType string

const (
	RequisitionTypeInternal RequisitionType = "INTERNAL"
	RequisitionTypeVendor   RequisitionType = "VENDOR"
)

func (t RequisitionType) IsValid() bool {
	return t == RequisitionTypeInternal || t == RequisitionTypeVendor
}

type StockReferenceType string

const (
	StockReferenceTypeConsumption        StockReferenceType = "CS"
	StockReferenceTypeReplacement        StockReferenceType = "RP"
	StockReferenceTypeReplacementReceipt StockReferenceType = "RR"
	StockReferenceTypeGrn                StockReferenceType = "GR"
	StockReferenceTypeOpeningStock       StockReferenceType = "OS"
)

type UserRole string

const (
	UserRoleOwner UserRole = "Owner"
	UserRoleStaff UserRole = "Staff"
)
