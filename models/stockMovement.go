package models

import (
	"context"
	"errors"
	"time"

	"github.com/serenia-hospitality/procure_backend/config"
	"github.com/serenia-hospitality/procure_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StockMovement is the append-only audit trail behind StockEntry: one row per
// ledger mutation, qty signed (negative = outgoing). Rows are never updated
// or deleted.
type StockMovement struct {
	ID            int                `gorm:"primary_key" json:"id"`
	ResortId      string             `gorm:"index;not null" json:"resort_id"`
	StoreId       int                `gorm:"index;not null" json:"store_id"`
	ItemId        int                `gorm:"index;not null" json:"item_id"`
	Qty           decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"qty"`
	ClosingQty    decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"closing_qty"`
	ReferenceType StockReferenceType `gorm:"type:enum('CS','RP','RR','GR','OS')" json:"reference_type"`
	ReferenceId   int                `json:"reference_id"`
	IsOutgoing    *bool              `gorm:"not null;default:false" json:"is_outgoing"`
	CreatedBy     int                `json:"created_by"`
	CreatedAt     time.Time          `gorm:"autoCreateTime" json:"created_at"`
}

// BeforeSave keeps IsOutgoing consistent with the sign of Qty.
func (m *StockMovement) BeforeSave(tx *gorm.DB) error {
	if m.Qty.IsNegative() {
		m.IsOutgoing = utils.NewTrue()
	} else {
		m.IsOutgoing = utils.NewFalse()
	}
	return nil
}

func ListStockMovements(ctx context.Context, storeId int, itemId *int) ([]*StockMovement, error) {
	resortId, ok := utils.GetResortIdFromContext(ctx)
	if !ok || resortId == "" {
		return nil, errors.New("resort id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("resort_id = ? AND store_id = ?", resortId, storeId)
	if itemId != nil {
		dbCtx = dbCtx.Where("item_id = ?", *itemId)
	}

	var results []*StockMovement
	err := dbCtx.Order("id DESC").Limit(500).Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
