package models

import (
	"context"
	"errors"
	"time"

	"github.com/serenia-hospitality/procure_backend/config"
	"github.com/serenia-hospitality/procure_backend/utils"
	"github.com/shopspring/decimal"
)

// Requisition heads the linear procurement chain: it is reviewed
// (Pending -> Approved/Rejected/OnHold), an approved VENDOR requisition
// becomes one purchase order, and the purchase order is fulfilled by one GRN.
// The Po*/Grn* fields are back-references filled by the procurement workflow.
type Requisition struct {
	ID           int               `gorm:"primary_key" json:"id"`
	ResortId     string            `gorm:"index;not null" json:"resort_id"`
	StoreId      int               `gorm:"not null" json:"store_id"`
	VendorId     *int              `json:"vendor_id"`
	Type         RequisitionType   `gorm:"type:enum('INTERNAL','VENDOR');not null" json:"type"`
	Status       RequisitionStatus `gorm:"type:enum('Pending','Approved','Rejected','OnHold','PoCreated','GrnCreated');default:'Pending'" json:"status"`
	Remark       string            `gorm:"type:text" json:"remark"`
	ReviewRemark string            `gorm:"type:text" json:"review_remark"`
	PoId         *int              `json:"po_id"`
	PoCode       string            `gorm:"size:30" json:"po_code"`
	GrnId        *int              `json:"grn_id"`
	GrnCode      string            `gorm:"size:30" json:"grn_code"`
	Lines        []RequisitionLine `gorm:"constraint:OnDelete:CASCADE" json:"lines"`
	CreatedBy    int               `json:"created_by"`
	CreatedAt    time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

type RequisitionLine struct {
	ID            int             `gorm:"primary_key" json:"id"`
	RequisitionId int             `gorm:"index;not null" json:"requisition_id"`
	ItemId        int             `gorm:"not null" json:"item_id"`
	Qty           decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"qty"`
	Uom           string          `gorm:"size:20" json:"uom"`
}

type NewRequisition struct {
	StoreId  int                  `json:"store_id" binding:"required"`
	VendorId *int                 `json:"vendor_id"`
	Type     RequisitionType      `json:"type" binding:"required"`
	Remark   string               `json:"remark"`
	Lines    []NewRequisitionLine `json:"lines" binding:"required,dive"`
}

type NewRequisitionLine struct {
	ItemId int             `json:"item_id" binding:"required"`
	Qty    decimal.Decimal `json:"qty" binding:"required"`
	Uom    string          `json:"uom"`
}

func (input *NewRequisition) validate(ctx context.Context, resortId string) error {

	if !input.Type.IsValid() {
		return errors.New("invalid requisition type")
	}
	if len(input.Lines) == 0 {
		return errors.New("at least one line is required")
	}
	// check if store is not owned by other resort
	if err := utils.ValidateResourceId[Store](ctx, resortId, input.StoreId); err != nil {
		return errors.New("store not found")
	}
	// vendor requisitions must name their vendor up front
	if input.Type == RequisitionTypeVendor {
		if input.VendorId == nil || *input.VendorId == 0 {
			return errors.New("vendor is required")
		}
		if err := utils.ValidateResourceId[Vendor](ctx, resortId, *input.VendorId); err != nil {
			return errors.New("vendor not found")
		}
	}

	itemIds := make([]int, 0, len(input.Lines))
	for _, line := range input.Lines {
		if !line.Qty.IsPositive() {
			return errors.New("line qty must be positive")
		}
		itemIds = append(itemIds, line.ItemId)
	}
	if err := utils.ValidateResourcesId[Item](ctx, resortId, itemIds); err != nil {
		return errors.New("item not found")
	}
	return nil
}

// BuildRequisition turns validated input into the persistable document.
func BuildRequisition(ctx context.Context, resortId string, input *NewRequisition) (*Requisition, error) {

	if err := input.validate(ctx, resortId); err != nil {
		return nil, err
	}

	lines := make([]RequisitionLine, 0, len(input.Lines))
	for _, l := range input.Lines {
		lines = append(lines, RequisitionLine{
			ItemId: l.ItemId,
			Qty:    l.Qty,
			Uom:    l.Uom,
		})
	}

	createdBy, _ := utils.GetUserIdFromContext(ctx)

	return &Requisition{
		ResortId:  resortId,
		StoreId:   input.StoreId,
		VendorId:  input.VendorId,
		Type:      input.Type,
		Status:    RequisitionStatusPending,
		Remark:    input.Remark,
		Lines:     lines,
		CreatedBy: createdBy,
	}, nil
}

func GetRequisition(ctx context.Context, id int) (*Requisition, error) {
	return GetResource[Requisition](ctx, id, "Lines")
}

func ListRequisition(ctx context.Context, storeId *int, status *RequisitionStatus) ([]*Requisition, error) {
	resortId, ok := utils.GetResortIdFromContext(ctx)
	if !ok || resortId == "" {
		return nil, errors.New("resort id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Preload("Lines").Where("resort_id = ?", resortId)
	if storeId != nil {
		dbCtx = dbCtx.Where("store_id = ?", *storeId)
	}
	if status != nil {
		dbCtx = dbCtx.Where("status = ?", *status)
	}

	var results []*Requisition
	err := dbCtx.Order("id DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
