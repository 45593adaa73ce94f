package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/serenia-hospitality/procure_backend/config"
	"github.com/serenia-hospitality/procure_backend/utils"
)

// Store is a physical stock-holding location within a resort.
type Store struct {
	ID           int       `gorm:"primary_key" json:"id"`
	ResortId     string    `gorm:"index;not null" json:"resort_id"`
	DepartmentId int       `gorm:"not null" json:"department_id"`
	Name         string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Phone        string    `gorm:"size:20" json:"phone"`
	Address      string    `gorm:"type:text" json:"address"`
	IsActive     *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewStore struct {
	DepartmentId int    `json:"department_id" binding:"required"`
	Name         string `json:"name" binding:"required"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
}

// validate input for both create & update. (id = 0 for create)

func (input *NewStore) validate(ctx context.Context, resortId string, id int) error {
	// name
	if err := utils.ValidateUnique[Store](ctx, resortId, "name", input.Name, id); err != nil {
		return err
	}
	// check if department is not owned by other resort
	if err := utils.ValidateResourceId[Department](ctx, resortId, input.DepartmentId); err != nil {
		return errors.New("department not found")
	}
	// phone
	if len(strings.TrimSpace(input.Phone)) > 0 {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return err
		}
	}
	return nil
}

func CreateStore(ctx context.Context, input *NewStore) (*Store, error) {

	resortId, ok := utils.GetResortIdFromContext(ctx)
	if !ok || resortId == "" {
		return nil, errors.New("resort id is required")
	}

	if err := input.validate(ctx, resortId, 0); err != nil {
		return nil, err
	}

	store := Store{
		ResortId:     resortId,
		DepartmentId: input.DepartmentId,
		Name:         input.Name,
		Phone:        input.Phone,
		Address:      input.Address,
		IsActive:     utils.NewTrue(),
	}

	// db action
	db := config.GetDB()
	err := db.WithContext(ctx).Create(&store).Error
	if err != nil {
		return nil, err
	}
	return &store, nil
}

func UpdateStore(ctx context.Context, id int, input *NewStore) (*Store, error) {

	resortId, ok := utils.GetResortIdFromContext(ctx)
	if !ok || resortId == "" {
		return nil, errors.New("resort id is required")
	}

	if err := input.validate(ctx, resortId, id); err != nil {
		return nil, err
	}

	store, err := utils.FetchModel[Store](ctx, resortId, id)
	if err != nil {
		return nil, err
	}

	// db action
	db := config.GetDB()
	err = db.WithContext(ctx).Model(&store).Updates(map[string]interface{}{
		"DepartmentId": input.DepartmentId,
		"Name":         input.Name,
		"Phone":        input.Phone,
		"Address":      input.Address,
	}).Error
	if err != nil {
		return nil, err
	}

	return store, nil
}

func DeleteStore(ctx context.Context, id int) (*Store, error) {

	resortId, ok := utils.GetResortIdFromContext(ctx)
	if !ok || resortId == "" {
		return nil, errors.New("resort id is required")
	}

	db := config.GetDB()
	result, err := utils.FetchModel[Store](ctx, resortId, id)
	if err != nil {
		return nil, err
	}

	// check if store has stock
	var count int64
	if err := db.WithContext(ctx).Model(&StockEntry{}).
		Where("store_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("store has stock")
	}

	// db action
	err = db.WithContext(ctx).Delete(&result).Error
	if err != nil {
		return nil, err
	}
	return result, nil
}

func GetStore(ctx context.Context, id int) (*Store, error) {
	return GetResource[Store](ctx, id)
}

func ListStore(ctx context.Context, name *string) ([]*Store, error) {
	resortId, ok := utils.GetResortIdFromContext(ctx)
	if !ok || resortId == "" {
		return nil, errors.New("resort id is required")
	}

	db := config.GetDB()
	var results []*Store

	dbCtx := db.WithContext(ctx).Where("resort_id = ?", resortId)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	// db query
	err := dbCtx.Order("name").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func ToggleActiveStore(ctx context.Context, id int, isActive bool) (*Store, error) {
	resortId, ok := utils.GetResortIdFromContext(ctx)
	if !ok || resortId == "" {
		return nil, errors.New("resort id is required")
	}
	return ToggleActiveModel[Store](ctx, resortId, id, isActive)
}
