package models

import (
	"context"
	"errors"
	"time"

	"github.com/serenia-hospitality/procure_backend/config"
	"github.com/serenia-hospitality/procure_backend/utils"
)

type Department struct {
	ID        int       `gorm:"primary_key" json:"id"`
	ResortId  string    `gorm:"index;not null" json:"resort_id"`
	Name      string    `gorm:"size:100;not null" json:"name" binding:"required"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewDepartment struct {
	Name string `json:"name" binding:"required"`
}

// validate input for both create & update. (id = 0 for create)

func (input *NewDepartment) validate(ctx context.Context, resortId string, id int) error {
	// name
	if err := utils.ValidateUnique[Department](ctx, resortId, "name", input.Name, id); err != nil {
		return err
	}
	return nil
}

func CreateDepartment(ctx context.Context, input *NewDepartment) (*Department, error) {

	resortId, ok := utils.GetResortIdFromContext(ctx)
	if !ok || resortId == "" {
		return nil, errors.New("resort id is required")
	}

	if err := input.validate(ctx, resortId, 0); err != nil {
		return nil, err
	}

	department := Department{
		ResortId: resortId,
		Name:     input.Name,
		IsActive: utils.NewTrue(),
	}

	// db action
	db := config.GetDB()
	err := db.WithContext(ctx).Create(&department).Error
	if err != nil {
		return nil, err
	}
	return &department, nil
}

func UpdateDepartment(ctx context.Context, id int, input *NewDepartment) (*Department, error) {

	resortId, ok := utils.GetResortIdFromContext(ctx)
	if !ok || resortId == "" {
		return nil, errors.New("resort id is required")
	}

	if err := input.validate(ctx, resortId, id); err != nil {
		return nil, err
	}

	department, err := utils.FetchModel[Department](ctx, resortId, id)
	if err != nil {
		return nil, err
	}

	// db action
	db := config.GetDB()
	err = db.WithContext(ctx).Model(&department).Updates(map[string]interface{}{
		"Name": input.Name,
	}).Error
	if err != nil {
		return nil, err
	}

	return department, nil
}

func DeleteDepartment(ctx context.Context, id int) (*Department, error) {

	resortId, ok := utils.GetResortIdFromContext(ctx)
	if !ok || resortId == "" {
		return nil, errors.New("resort id is required")
	}

	db := config.GetDB()
	result, err := utils.FetchModel[Department](ctx, resortId, id)
	if err != nil {
		return nil, err
	}

	// check if department still owns stores
	var count int64
	if err := db.WithContext(ctx).Model(&Store{}).
		Where("department_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("department has stores")
	}

	// db action
	err = db.WithContext(ctx).Delete(&result).Error
	if err != nil {
		return nil, err
	}
	return result, nil
}

func GetDepartment(ctx context.Context, id int) (*Department, error) {
	return GetResource[Department](ctx, id)
}

func ListDepartment(ctx context.Context, name *string) ([]*Department, error) {
	resortId, ok := utils.GetResortIdFromContext(ctx)
	if !ok || resortId == "" {
		return nil, errors.New("resort id is required")
	}

	db := config.GetDB()
	var results []*Department

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

func ToggleActiveDepartment(ctx context.Context, id int, isActive bool) (*Department, error) {
	resortId, ok := utils.GetResortIdFromContext(ctx)
	if !ok || resortId == "" {
		return nil, errors.New("resort id is required")
	}
	return ToggleActiveModel[Department](ctx, resortId, id, isActive)
}
