package models

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
)

func TestBusinessErrorDetection(t *testing.T) {
	insufficient := &InsufficientStockError{
		StoreId:   1,
		ItemId:    2,
		Requested: decimal.NewFromInt(10),
		Available: decimal.NewFromInt(3),
	}
	if !IsInsufficientStock(insufficient) {
		t.Fatal("expected IsInsufficientStock to match")
	}
	// wrapped errors must still be detected
	if !IsInsufficientStock(fmt.Errorf("posting failed: %w", insufficient)) {
		t.Fatal("expected IsInsufficientStock to match wrapped error")
	}
	if IsTransferNotAllowed(insufficient) || IsStateConflict(insufficient) {
		t.Fatal("insufficient stock misdetected as another business error")
	}

	notAllowed := &TransferNotAllowedError{ResortId: "r1", FromStoreId: 1, ToStoreId: 2}
	if !IsTransferNotAllowed(notAllowed) {
		t.Fatal("expected IsTransferNotAllowed to match")
	}

	conflict := &StateConflictError{Entity: "replacement", Id: 9, From: "Closed", To: "Open"}
	if !IsStateConflict(conflict) {
		t.Fatal("expected IsStateConflict to match")
	}

	if IsInsufficientStock(fmt.Errorf("plain error")) {
		t.Fatal("plain error misdetected as insufficient stock")
	}
}

func TestBusinessErrorMessagesNameTheOffendingLine(t *testing.T) {
	err := &InsufficientStockError{
		StoreId:   4,
		ItemId:    7,
		Requested: decimal.RequireFromString("2.5"),
		Available: decimal.RequireFromString("1.75"),
	}
	expected := "insufficient stock for item 7 at store 4: requested 2.5, available 1.75"
	if err.Error() != expected {
		t.Fatalf("expected %q, got %q", expected, err.Error())
	}

	conflict := &StateConflictError{Entity: "consumption", Id: 3, From: "Posted", To: "Posted"}
	expected = "consumption 3 cannot transition from Posted to Posted"
	if conflict.Error() != expected {
		t.Fatalf("expected %q, got %q", expected, conflict.Error())
	}
}
