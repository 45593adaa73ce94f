package models

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Business rejections are typed so handlers can map them to the right status
// code and so callers can see exactly which line failed. Storage errors are
// returned verbatim from gorm and must never be wrapped into these types.

type InsufficientStockError struct {
	StoreId   int
	ItemId    int
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for item %d at store %d: requested %s, available %s",
		e.ItemId, e.StoreId, e.Requested.String(), e.Available.String())
}

func IsInsufficientStock(err error) bool {
	var target *InsufficientStockError
	return errors.As(err, &target)
}

type TransferNotAllowedError struct {
	ResortId    string
	FromStoreId int
	ToStoreId   int
}

func (e *TransferNotAllowedError) Error() string {
	return fmt.Sprintf("transfer from store %d to store %d is not allowed; ask an administrator to add a transfer rule",
		e.FromStoreId, e.ToStoreId)
}

func IsTransferNotAllowed(err error) bool {
	var target *TransferNotAllowedError
	return errors.As(err, &target)
}

type StateConflictError struct {
	Entity string
	Id     int
	From   string
	To     string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("%s %d cannot transition from %s to %s", e.Entity, e.Id, e.From, e.To)
}

func IsStateConflict(err error) bool {
	var target *StateConflictError
	return errors.As(err, &target)
}
