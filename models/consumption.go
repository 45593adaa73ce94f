package models

import (
	"context"
	"errors"
	"time"

	"github.com/serenia-hospitality/procure_backend/config"
	"github.com/serenia-hospitality/procure_backend/utils"
	"github.com/shopspring/decimal"
)

// Consumption records stock leaving a store: directly (LUMPSUM), via recipe
// expansion (RECIPE_LUMPSUM / RECIPE_PORTION), or as replacement-exchange
// intent (REPLACEMENT, no stock effect). Lines are tagged: a direct line
// carries (item, qty, uom), a recipe line carries (recipe, qty); the derived
// ingredient deductions of a recipe line are never persisted, only their
// effect on stock entries is.
type Consumption struct {
	ID           int               `gorm:"primary_key" json:"id"`
	ResortId     string            `gorm:"index;not null" json:"resort_id"`
	DepartmentId *int              `json:"department_id"`
	StoreFromId  int               `gorm:"not null" json:"store_from_id"`
	StoreToId    *int              `json:"store_to_id"`
	Type         ConsumptionType   `gorm:"type:enum('LUMPSUM','RECIPE_LUMPSUM','RECIPE_PORTION','REPLACEMENT');not null" json:"type"`
	Status       ConsumptionStatus `gorm:"type:enum('Draft','Posted');default:'Draft'" json:"status"`
	Date         time.Time         `gorm:"not null" json:"date"`
	Remark       string            `gorm:"type:text" json:"remark"`
	Lines        []ConsumptionLine `gorm:"constraint:OnDelete:CASCADE" json:"lines"`
	CreatedBy    int               `json:"created_by"`
	CreatedAt    time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

type ConsumptionLine struct {
	ID            int                 `gorm:"primary_key" json:"id"`
	ConsumptionId int                 `gorm:"index;not null" json:"consumption_id"`
	LineType      ConsumptionLineType `gorm:"type:enum('D','R');default:'D'" json:"line_type"`
	ItemId        *int                `json:"item_id"`
	RecipeId      *int                `json:"recipe_id"`
	Qty           decimal.Decimal     `gorm:"type:decimal(20,4);not null" json:"qty"`
	Uom           string              `gorm:"size:20" json:"uom"`
}

type NewConsumption struct {
	Type         ConsumptionType      `json:"type" binding:"required"`
	DepartmentId *int                 `json:"department_id"`
	StoreFromId  int                  `json:"store_from_id"`
	StoreToId    *int                 `json:"store_to_id"`
	Date         time.Time            `json:"date"`
	Remark       string               `json:"remark"`
	Draft        bool                 `json:"draft"`
	Lines        []NewConsumptionLine `json:"lines" binding:"required,dive"`
}

type NewConsumptionLine struct {
	ItemId   *int            `json:"item_id"`
	RecipeId *int            `json:"recipe_id"`
	Qty      decimal.Decimal `json:"qty" binding:"required"`
	Uom      string          `json:"uom"`
}

// UpdateConsumption is the whitelist of fields a posted document may correct.
// Stock effects are never re-triggered by an update.
type UpdateConsumptionInput struct {
	DepartmentId *int       `json:"department_id"`
	StoreFromId  *int       `json:"store_from_id"`
	StoreToId    *int       `json:"store_to_id"`
	Date         *time.Time `json:"date"`
	Remark       *string    `json:"remark"`
}

func (input *NewConsumption) validate(ctx context.Context, resortId string) error {

	if !input.Type.IsValid() {
		return errors.New("invalid consumption type")
	}
	if len(input.Lines) == 0 {
		return errors.New("at least one line is required")
	}

	// storeFrom required for all but legacy REPLACEMENT intents
	if input.Type != ConsumptionTypeReplacement && input.StoreFromId == 0 {
		return errors.New("store is required")
	}
	// REPLACEMENT moves between two distinct stores
	if input.Type == ConsumptionTypeReplacement {
		if input.StoreFromId == 0 || input.StoreToId == nil || *input.StoreToId == 0 {
			return errors.New("from and to store are required")
		}
		if input.StoreFromId == *input.StoreToId {
			return errors.New("from and to store must differ")
		}
	}

	storeIds := []int{}
	if input.StoreFromId != 0 {
		storeIds = append(storeIds, input.StoreFromId)
	}
	if input.StoreToId != nil && *input.StoreToId != 0 {
		storeIds = append(storeIds, *input.StoreToId)
	}
	if len(storeIds) > 0 {
		if err := utils.ValidateResourcesId[Store](ctx, resortId, storeIds); err != nil {
			return errors.New("store not found")
		}
	}
	if input.DepartmentId != nil && *input.DepartmentId != 0 {
		if err := utils.ValidateResourceId[Department](ctx, resortId, *input.DepartmentId); err != nil {
			return errors.New("department not found")
		}
	}

	itemIds := []int{}
	for _, line := range input.Lines {
		if !line.Qty.IsPositive() {
			return errors.New("line qty must be positive")
		}
		isRecipeLine := line.RecipeId != nil && *line.RecipeId != 0
		isDirectLine := line.ItemId != nil && *line.ItemId != 0
		if isRecipeLine == isDirectLine {
			return errors.New("line must reference either an item or a recipe")
		}
		if isRecipeLine && !input.Type.IsRecipeBased() {
			return errors.New("recipe lines need a recipe consumption type")
		}
		if isDirectLine {
			itemIds = append(itemIds, *line.ItemId)
		}
	}
	if len(itemIds) > 0 {
		if err := utils.ValidateResourcesId[Item](ctx, resortId, itemIds); err != nil {
			return errors.New("item not found")
		}
	}
	return nil
}

// BuildConsumption turns validated input into the persistable document.
// Validation and stock posting live in the consumption workflow.
func BuildConsumption(ctx context.Context, resortId string, input *NewConsumption) (*Consumption, error) {

	if err := input.validate(ctx, resortId); err != nil {
		return nil, err
	}

	lines := make([]ConsumptionLine, 0, len(input.Lines))
	for _, l := range input.Lines {
		lineType := ConsumptionLineTypeDirect
		if l.RecipeId != nil && *l.RecipeId != 0 {
			lineType = ConsumptionLineTypeRecipe
		}
		lines = append(lines, ConsumptionLine{
			LineType: lineType,
			ItemId:   l.ItemId,
			RecipeId: l.RecipeId,
			Qty:      l.Qty,
			Uom:      l.Uom,
		})
	}

	date := input.Date
	if date.IsZero() {
		date = time.Now()
	}
	status := ConsumptionStatusPosted
	if input.Draft {
		status = ConsumptionStatusDraft
	}
	createdBy, _ := utils.GetUserIdFromContext(ctx)

	return &Consumption{
		ResortId:     resortId,
		DepartmentId: input.DepartmentId,
		StoreFromId:  input.StoreFromId,
		StoreToId:    input.StoreToId,
		Type:         input.Type,
		Status:       status,
		Date:         date,
		Remark:       input.Remark,
		Lines:        lines,
		CreatedBy:    createdBy,
	}, nil
}

func GetConsumption(ctx context.Context, id int) (*Consumption, error) {
	return GetResource[Consumption](ctx, id, "Lines")
}

func ListConsumption(ctx context.Context, storeId *int, consumptionType *ConsumptionType) ([]*Consumption, error) {
	resortId, ok := utils.GetResortIdFromContext(ctx)
	if !ok || resortId == "" {
		return nil, errors.New("resort id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Preload("Lines").Where("resort_id = ?", resortId)
	if storeId != nil {
		dbCtx = dbCtx.Where("store_from_id = ?", *storeId)
	}
	if consumptionType != nil {
		dbCtx = dbCtx.Where("type = ?", *consumptionType)
	}

	var results []*Consumption
	err := dbCtx.Order("id DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
