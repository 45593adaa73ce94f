package models

import (
	"context"
	"errors"
	"time"

	"github.com/serenia-hospitality/procure_backend/config"
	"github.com/serenia-hospitality/procure_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StockEntry holds the authoritative quantity-on-hand per (store, item).
// Rows are created lazily on first movement and never deleted; zero is a
// valid terminal state. CurrentQty never goes negative: every decrement is
// validated under a row lock before it commits.
type StockEntry struct {
	ID          int             `gorm:"primary_key" json:"id"`
	ResortId    string          `gorm:"index;not null;uniqueIndex:idx_stock_entry" json:"resort_id"`
	StoreId     int             `gorm:"index;not null;uniqueIndex:idx_stock_entry" json:"store_id"`
	ItemId      int             `gorm:"index;not null;uniqueIndex:idx_stock_entry" json:"item_id"`
	ReceivedQty decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"received_qty"`
	ConsumedQty decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"consumed_qty"`
	CurrentQty  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"current_qty"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// FirstOrCreateStockEntry finds or creates the (store, item) row and takes a
// FOR UPDATE lock on it for the remainder of tx.
func FirstOrCreateStockEntry(tx *gorm.DB, resortId string, storeId int, itemId int) (*StockEntry, bool, error) {
	isNew := false
	stockEntry := StockEntry{
		ResortId: resortId,
		StoreId:  storeId,
		ItemId:   itemId,
	}
	// FirstOrCreate will try to find a record matching the conditions, and if it doesn't find one, it will create a new record
	result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("resort_id = ? AND store_id = ? AND item_id = ?", resortId, storeId, itemId).
		FirstOrCreate(&stockEntry)
	if result.Error != nil {
		tx.Rollback()
		return nil, isNew, result.Error
	}
	if result.RowsAffected == 1 {
		isNew = true
	}

	return &stockEntry, isNew, nil
}

// LockStockEntries takes FOR UPDATE locks on the existing rows for the given
// (store, item) pairs. Pairs with no row yet are simply absent from the result
// (their on-hand quantity is zero).
func LockStockEntries(tx *gorm.DB, resortId string, storeIds []int, itemIds []int) ([]StockEntry, error) {
	var entries []StockEntry
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("resort_id = ? AND store_id IN (?) AND item_id IN (?)", resortId, storeIds, itemIds).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// GetStockOnHand returns the current quantity for (store, item), zero when no
// entry exists. Reading a missing pair is never an error.
func GetStockOnHand(ctx context.Context, storeId int, itemId int) (decimal.Decimal, error) {
	resortId, ok := utils.GetResortIdFromContext(ctx)
	if !ok || resortId == "" {
		return decimal.Zero, errors.New("resort id is required")
	}

	db := config.GetDB()
	var entry StockEntry
	err := db.WithContext(ctx).
		Where("resort_id = ? AND store_id = ? AND item_id = ?", resortId, storeId, itemId).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return entry.CurrentQty, nil
}

func ListStoreStocks(ctx context.Context, storeId int) ([]*StockEntry, error) {
	resortId, ok := utils.GetResortIdFromContext(ctx)
	if !ok || resortId == "" {
		return nil, errors.New("resort id is required")
	}

	// check if store is not owned by other resort
	if err := utils.ValidateResourceId[Store](ctx, resortId, storeId); err != nil {
		return nil, errors.New("store not found")
	}

	db := config.GetDB()
	var results []*StockEntry
	err := db.WithContext(ctx).
		Where("resort_id = ? AND store_id = ?", resortId, storeId).
		Order("item_id").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
