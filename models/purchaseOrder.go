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

// PurchaseOrder is generated from an approved vendor requisition; it copies
// the requisition's vendor, store and lines and is fulfilled by one GRN.
// It is never created free-standing.
type PurchaseOrder struct {
	ID            int                 `gorm:"primary_key" json:"id"`
	ResortId      string              `gorm:"index;not null" json:"resort_id"`
	Code          string              `gorm:"size:30;not null" json:"code"`
	RequisitionId int                 `gorm:"index;not null" json:"requisition_id"`
	VendorId      int                 `gorm:"not null" json:"vendor_id"`
	StoreId       int                 `gorm:"not null" json:"store_id"`
	Remark        string              `gorm:"type:text" json:"remark"`
	Lines         []PurchaseOrderLine `gorm:"constraint:OnDelete:CASCADE" json:"lines"`
	CreatedBy     int                 `json:"created_by"`
	CreatedAt     time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

type PurchaseOrderLine struct {
	ID              int             `gorm:"primary_key" json:"id"`
	PurchaseOrderId int             `gorm:"index;not null" json:"purchase_order_id"`
	ItemId          int             `gorm:"not null" json:"item_id"`
	Qty             decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"qty"`
	Uom             string          `gorm:"size:20" json:"uom"`
}

// NextPurchaseOrderCode generates "PO-<n>" per resort; callers hold the
// resort posting lock so the count is stable.
func NextPurchaseOrderCode(ctx context.Context, resortId string) (string, error) {
	count, err := utils.ResourceCountWhere[PurchaseOrder](ctx, resortId, "1 = 1")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("PO-%06d", count+1), nil
}

func GetPurchaseOrder(ctx context.Context, id int) (*PurchaseOrder, error) {
	return GetResource[PurchaseOrder](ctx, id, "Lines")
}

func ListPurchaseOrder(ctx context.Context, vendorId *int) ([]*PurchaseOrder, error) {
	resortId, ok := utils.GetResortIdFromContext(ctx)
	if !ok || resortId == "" {
		return nil, errors.New("resort id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Preload("Lines").Where("resort_id = ?", resortId)
	if vendorId != nil {
		dbCtx = dbCtx.Where("vendor_id = ?", *vendorId)
	}

	var results []*PurchaseOrder
	err := dbCtx.Order("id DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
