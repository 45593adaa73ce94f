package workflow

import (
	"context"
	"errors"
	"sort"

	"github.com/serenia-hospitality/procure_backend/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StockLedger is the sole authority for quantity-on-hand per (store, item).
// Every workflow mutates stock through it; nothing else touches stock_entries.
//
// Mutations run inside the caller's transaction. DecrementBatch locks all
// touched rows in (store_id, item_id) order before validating, so two batches
// over overlapping keys serialize instead of deadlocking, and an insufficiency
// on any line leaves every line unapplied.
type StockLedger struct {
	db *gorm.DB
}

func NewStockLedger(db *gorm.DB) *StockLedger {
	return &StockLedger{db: db}
}

// StockLine is one (store, item, qty) movement inside a batch. Qty is always
// positive; direction comes from the operation.
type StockLine struct {
	StoreId int
	ItemId  int
	Qty     decimal.Decimal
}

// StockReference ties a ledger mutation back to the document that caused it.
type StockReference struct {
	Type      models.StockReferenceType
	Id        int
	CreatedBy int
}

// Get returns the quantity on hand, zero when no entry exists.
func (l *StockLedger) Get(ctx context.Context, storeId int, itemId int) (decimal.Decimal, error) {
	return models.GetStockOnHand(ctx, storeId, itemId)
}

// Increment adds qty (> 0) to (store, item), creating the entry if absent.
// There is no upper bound.
func (l *StockLedger) Increment(tx *gorm.DB, ctx context.Context, resortId string, storeId int, itemId int, qty decimal.Decimal, ref StockReference) error {

	if !qty.IsPositive() {
		return errors.New("qty must be positive")
	}

	stockEntry, _, err := models.FirstOrCreateStockEntry(tx, resortId, storeId, itemId)
	if err != nil {
		return err
	}

	if err := tx.Exec("UPDATE stock_entries SET received_qty = received_qty + ?, current_qty = current_qty + ? WHERE id = ?",
		qty, qty, stockEntry.ID).Error; err != nil {
		return err
	}

	movement := models.StockMovement{
		ResortId:      resortId,
		StoreId:       storeId,
		ItemId:        itemId,
		Qty:           qty,
		ClosingQty:    stockEntry.CurrentQty.Add(qty),
		ReferenceType: ref.Type,
		ReferenceId:   ref.Id,
		CreatedBy:     ref.CreatedBy,
	}
	return tx.WithContext(ctx).Create(&movement).Error
}

// Decrement removes qty (> 0) from a single (store, item).
func (l *StockLedger) Decrement(tx *gorm.DB, ctx context.Context, resortId string, storeId int, itemId int, qty decimal.Decimal, ref StockReference) error {
	return l.DecrementBatch(tx, ctx, resortId, []StockLine{{StoreId: storeId, ItemId: itemId, Qty: qty}}, ref)
}

// DecrementBatch applies a list of decrements as one all-or-nothing unit.
// Duplicate (store, item) lines are merged first; rows are then locked FOR
// UPDATE in key order and every line validated against the locked quantity
// before any write. An InsufficientStockError aborts the whole batch.
func (l *StockLedger) DecrementBatch(tx *gorm.DB, ctx context.Context, resortId string, lines []StockLine, ref StockReference) error {

	if len(lines) == 0 {
		return errors.New("at least one line is required")
	}
	for _, line := range lines {
		if !line.Qty.IsPositive() {
			return errors.New("qty must be positive")
		}
	}

	merged := MergeStockLines(lines)

	storeIds := make([]int, 0, len(merged))
	itemIds := make([]int, 0, len(merged))
	for _, line := range merged {
		storeIds = append(storeIds, line.StoreId)
		itemIds = append(itemIds, line.ItemId)
	}

	// Existing rows are locked here; missing rows mean zero on hand and fail
	// the check below without ever being created.
	entries, err := models.LockStockEntries(tx, resortId, storeIds, itemIds)
	if err != nil {
		return err
	}
	type key struct{ storeId, itemId int }
	locked := make(map[key]*models.StockEntry, len(entries))
	for i := range entries {
		e := &entries[i]
		locked[key{e.StoreId, e.ItemId}] = e
	}

	// validate all lines before touching anything
	for _, line := range merged {
		available := decimal.Zero
		if entry, ok := locked[key{line.StoreId, line.ItemId}]; ok {
			available = entry.CurrentQty
		}
		if available.LessThan(line.Qty) {
			return &models.InsufficientStockError{
				StoreId:   line.StoreId,
				ItemId:    line.ItemId,
				Requested: line.Qty,
				Available: available,
			}
		}
	}

	// apply
	for _, line := range merged {
		entry := locked[key{line.StoreId, line.ItemId}]
		if err := tx.Exec("UPDATE stock_entries SET consumed_qty = consumed_qty + ?, current_qty = current_qty - ? WHERE id = ?",
			line.Qty, line.Qty, entry.ID).Error; err != nil {
			return err
		}

		movement := models.StockMovement{
			ResortId:      resortId,
			StoreId:       line.StoreId,
			ItemId:        line.ItemId,
			Qty:           line.Qty.Neg(),
			ClosingQty:    entry.CurrentQty.Sub(line.Qty),
			ReferenceType: ref.Type,
			ReferenceId:   ref.Id,
			CreatedBy:     ref.CreatedBy,
		}
		if err := tx.WithContext(ctx).Create(&movement).Error; err != nil {
			return err
		}
	}
	return nil
}

// MergeStockLines collapses duplicate (store, item) lines by summing their
// quantities and returns the result sorted by (store_id, item_id), the lock
// acquisition order for batches.
func MergeStockLines(lines []StockLine) []StockLine {
	type key struct{ storeId, itemId int }
	sums := make(map[key]decimal.Decimal, len(lines))
	for _, line := range lines {
		k := key{line.StoreId, line.ItemId}
		sums[k] = sums[k].Add(line.Qty)
	}

	merged := make([]StockLine, 0, len(sums))
	for k, qty := range sums {
		merged = append(merged, StockLine{StoreId: k.storeId, ItemId: k.itemId, Qty: qty})
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].StoreId != merged[j].StoreId {
			return merged[i].StoreId < merged[j].StoreId
		}
		return merged[i].ItemId < merged[j].ItemId
	})
	return merged
}
