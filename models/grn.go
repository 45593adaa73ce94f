package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/serenia-hospitality/procure_backend/config"
	"github.com/serenia-hospitality/procure_backend/utils"
	"github.com/shopspring/decimal"
)

// Grn records physically received goods against a requisition/PO. Creating a
// GRN is the sole procurement-side stock increment; its lines carry the
// quantities actually received, which may differ from what was ordered.
type Grn struct {
	ID              int       `gorm:"primary_key" json:"id"`
	ResortId        string    `gorm:"index;not null" json:"resort_id"`
	Code            string    `gorm:"size:30;not null" json:"code"`
	RequisitionId   int       `gorm:"index;not null" json:"requisition_id"`
	PurchaseOrderId *int      `json:"purchase_order_id"`
	StoreId         int       `gorm:"not null" json:"store_id"`
	Remark          string    `gorm:"type:text" json:"remark"`
	Lines           []GrnLine `gorm:"constraint:OnDelete:CASCADE" json:"lines"`
	CreatedBy       int       `json:"created_by"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type GrnLine struct {
	ID          int             `gorm:"primary_key" json:"id"`
	GrnId       int             `gorm:"index;not null" json:"grn_id"`
	ItemId      int             `gorm:"not null" json:"item_id"`
	ReceivedQty decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"received_qty"`
	Uom         string          `gorm:"size:20" json:"uom"`
}

// GrnReceiptLine is one reported receipt when creating a GRN.
type GrnReceiptLine struct {
	ItemId      int             `json:"item_id" binding:"required"`
	ReceivedQty decimal.Decimal `json:"received_qty" binding:"required"`
	Uom         string          `json:"uom"`
}

// NextGrnCode generates "GRN-<n>" per resort; callers hold the resort
// posting lock so the count is stable.
func NextGrnCode(ctx context.Context, resortId string) (string, error) {
	count, err := utils.ResourceCountWhere[Grn](ctx, resortId, "1 = 1")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("GRN-%06d", count+1), nil
}

func GetGrn(ctx context.Context, id int) (*Grn, error) {
	return GetResource[Grn](ctx, id, "Lines")
}

func ListGrn(ctx context.Context, storeId *int) ([]*Grn, error) {
	resortId, ok := utils.GetResortIdFromContext(ctx)
	if !ok || resortId == "" {
		return nil, errors.New("resort id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Preload("Lines").Where("resort_id = ?", resortId)
	if storeId != nil {
		dbCtx = dbCtx.Where("store_id = ?", *storeId)
	}

	var results []*Grn
	err := dbCtx.Order("id DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
