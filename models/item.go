package models

import (
	"context"
	"errors"
	"time"

	"github.com/serenia-hospitality/procure_backend/config"
	"github.com/serenia-hospitality/procure_backend/utils"
)

// Item is a stockable good. Unit is a free-form UOM string ("kg", "pcs", "ltr");
// quantities are always recorded in the item's own unit.
type Item struct {
	ID        int       `gorm:"primary_key" json:"id"`
	ResortId  string    `gorm:"index;not null" json:"resort_id"`
	Sku       string    `gorm:"size:100;not null" json:"sku" binding:"required"`
	Name      string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Unit      string    `gorm:"size:20;not null" json:"unit" binding:"required"`
	Category  string    `gorm:"size:100" json:"category"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewItem struct {
	Sku      string `json:"sku" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Unit     string `json:"unit" binding:"required"`
	Category string `json:"category"`
}

// validate input for both create & update. (id = 0 for create)

func (input *NewItem) validate(ctx context.Context, resortId string, id int) error {
	// sku
	if err := utils.ValidateUnique[Item](ctx, resortId, "sku", input.Sku, id); err != nil {
		return err
	}
	return nil
}

func CreateItem(ctx context.Context, input *NewItem) (*Item, error) {

	resortId, ok := utils.GetResortIdFromContext(ctx)
	if !ok || resortId == "" {
		return nil, errors.New("resort id is required")
	}

	if err := input.validate(ctx, resortId, 0); err != nil {
		return nil, err
	}

	item := Item{
		ResortId: resortId,
		Sku:      input.Sku,
		Name:     input.Name,
		Unit:     input.Unit,
		Category: input.Category,
		IsActive: utils.NewTrue(),
	}

	// db action
	db := config.GetDB()
	err := db.WithContext(ctx).Create(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func UpdateItem(ctx context.Context, id int, input *NewItem) (*Item, error) {

	resortId, ok := utils.GetResortIdFromContext(ctx)
	if !ok || resortId == "" {
		return nil, errors.New("resort id is required")
	}

	if err := input.validate(ctx, resortId, id); err != nil {
		return nil, err
	}

	item, err := utils.FetchModel[Item](ctx, resortId, id)
	if err != nil {
		return nil, err
	}

	// db action
	db := config.GetDB()
	err = db.WithContext(ctx).Model(&item).Updates(map[string]interface{}{
		"Sku":      input.Sku,
		"Name":     input.Name,
		"Unit":     input.Unit,
		"Category": input.Category,
	}).Error
	if err != nil {
		return nil, err
	}

	return item, nil
}

func DeleteItem(ctx context.Context, id int) (*Item, error) {

	resortId, ok := utils.GetResortIdFromContext(ctx)
	if !ok || resortId == "" {
		return nil, errors.New("resort id is required")
	}

	db := config.GetDB()
	result, err := utils.FetchModel[Item](ctx, resortId, id)
	if err != nil {
		return nil, err
	}

	// an item with stock entries has history; keep the row
	var count int64
	if err := db.WithContext(ctx).Model(&StockEntry{}).
		Where("item_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("item has stock history")
	}

	// db action
	err = db.WithContext(ctx).Delete(&result).Error
	if err != nil {
		return nil, err
	}
	return result, nil
}

func GetItem(ctx context.Context, id int) (*Item, error) {
	return GetResource[Item](ctx, id)
}

func ListItem(ctx context.Context, name *string) ([]*Item, error) {
	resortId, ok := utils.GetResortIdFromContext(ctx)
	if !ok || resortId == "" {
		return nil, errors.New("resort id is required")
	}

	db := config.GetDB()
	var results []*Item

	dbCtx := db.WithContext(ctx).Where("resort_id = ?", resortId)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ? OR sku LIKE ?", "%"+*name+"%", "%"+*name+"%")
	}
	// db query
	err := dbCtx.Order("name").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func ToggleActiveItem(ctx context.Context, id int, isActive bool) (*Item, error) {
	resortId, ok := utils.GetResortIdFromContext(ctx)
	if !ok || resortId == "" {
		return nil, errors.New("resort id is required")
	}
	return ToggleActiveModel[Item](ctx, resortId, id, isActive)
}
