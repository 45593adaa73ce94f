package models

import (
	"context"
	"errors"
	"time"

	"github.com/serenia-hospitality/procure_backend/config"
	"github.com/serenia-hospitality/procure_backend/utils"
	"github.com/shopspring/decimal"
)

// StoreReplacement drives the three-stage vendor-exchange lifecycle:
// stock leaves the store at Open, the goods go to a vendor at SentToVendor,
// and exchanged stock re-enters at Closed using whatever was actually
// received. Closed documents are audit records and are never deleted.
type StoreReplacement struct {
	ID        int                    `gorm:"primary_key" json:"id"`
	ResortId  string                 `gorm:"index;not null" json:"resort_id"`
	StoreId   int                    `gorm:"index;not null" json:"store_id"`
	VendorId  *int                   `json:"vendor_id"`
	Status    ReplacementStatus      `gorm:"type:enum('Open','SentToVendor','Closed');default:'Open'" json:"status"`
	Remark    string                 `gorm:"type:text" json:"remark"`
	Lines     []StoreReplacementLine `gorm:"constraint:OnDelete:CASCADE" json:"lines"`
	CreatedBy int                    `json:"created_by"`
	ClosedAt  *time.Time             `json:"closed_at"`
	CreatedAt time.Time              `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time              `gorm:"autoUpdateTime" json:"updated_at"`
}

type StoreReplacementLine struct {
	ID                 int             `gorm:"primary_key" json:"id"`
	StoreReplacementId int             `gorm:"index;not null" json:"store_replacement_id"`
	ItemId             int             `gorm:"not null" json:"item_id"`
	RequestedQty       decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"requested_qty"`
	IssuedQty          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"issued_qty"`
	ReceivedQty        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"received_qty"`
	Remark             string          `gorm:"size:255" json:"remark"`
}

type NewStoreReplacement struct {
	StoreId int                       `json:"store_id" binding:"required"`
	Remark  string                    `json:"remark"`
	Lines   []NewStoreReplacementLine `json:"lines" binding:"required,dive"`
}

type NewStoreReplacementLine struct {
	ItemId       int             `json:"item_id" binding:"required"`
	RequestedQty decimal.Decimal `json:"requested_qty" binding:"required"`
}

// ReplacementLineAdjustment carries per-line issue updates; lines not listed
// are left unchanged.
type ReplacementLineAdjustment struct {
	LineId    int              `json:"line_id" binding:"required"`
	IssuedQty *decimal.Decimal `json:"issued_qty"`
	Remark    *string          `json:"remark"`
}

// ReplacementLineReceipt reports what the vendor actually sent back.
type ReplacementLineReceipt struct {
	LineId      int             `json:"line_id" binding:"required"`
	ReceivedQty decimal.Decimal `json:"received_qty"`
	Remark      *string         `json:"remark"`
}

func (input *NewStoreReplacement) validate(ctx context.Context, resortId string) error {

	if len(input.Lines) == 0 {
		return errors.New("at least one line is required")
	}
	// check if store is not owned by other resort
	if err := utils.ValidateResourceId[Store](ctx, resortId, input.StoreId); err != nil {
		return errors.New("store not found")
	}

	itemIds := make([]int, 0, len(input.Lines))
	for _, line := range input.Lines {
		if !line.RequestedQty.IsPositive() {
			return errors.New("requested qty must be positive")
		}
		itemIds = append(itemIds, line.ItemId)
	}
	if err := utils.ValidateResourcesId[Item](ctx, resortId, itemIds); err != nil {
		return errors.New("item not found")
	}
	return nil
}

// BuildStoreReplacement turns validated input into the persistable document.
// Stock posting lives in the replacement workflow.
func BuildStoreReplacement(ctx context.Context, resortId string, input *NewStoreReplacement) (*StoreReplacement, error) {

	if err := input.validate(ctx, resortId); err != nil {
		return nil, err
	}

	lines := make([]StoreReplacementLine, 0, len(input.Lines))
	for _, l := range input.Lines {
		lines = append(lines, StoreReplacementLine{
			ItemId:       l.ItemId,
			RequestedQty: l.RequestedQty,
		})
	}

	createdBy, _ := utils.GetUserIdFromContext(ctx)

	return &StoreReplacement{
		ResortId:  resortId,
		StoreId:   input.StoreId,
		Status:    ReplacementStatusOpen,
		Remark:    input.Remark,
		Lines:     lines,
		CreatedBy: createdBy,
	}, nil
}

func GetStoreReplacement(ctx context.Context, id int) (*StoreReplacement, error) {
	return GetResource[StoreReplacement](ctx, id, "Lines")
}

func ListStoreReplacement(ctx context.Context, storeId *int, status *ReplacementStatus) ([]*StoreReplacement, error) {
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

	var results []*StoreReplacement
	err := dbCtx.Order("id DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
