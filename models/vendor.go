package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/serenia-hospitality/procure_backend/config"
	"github.com/serenia-hospitality/procure_backend/utils"
)

type Vendor struct {
	ID            int       `gorm:"primary_key" json:"id"`
	ResortId      string    `gorm:"index;not null" json:"resort_id"`
	Name          string    `gorm:"size:100;not null" json:"name" binding:"required"`
	ContactPerson string    `gorm:"size:100" json:"contact_person"`
	Email         string    `gorm:"size:100" json:"email"`
	Phone         string    `gorm:"size:20" json:"phone"`
	Address       string    `gorm:"type:text" json:"address"`
	IsActive      *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewVendor struct {
	Name          string `json:"name" binding:"required"`
	ContactPerson string `json:"contact_person"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
}

// validate input for both create & update. (id = 0 for create)

func (input *NewVendor) validate(ctx context.Context, resortId string, id int) error {
	// name
	if err := utils.ValidateUnique[Vendor](ctx, resortId, "name", input.Name, id); err != nil {
		return err
	}
	// email
	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return errors.New("invalid email address")
	}
	// phone
	if len(strings.TrimSpace(input.Phone)) > 0 {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return err
		}
	}
	return nil
}

func CreateVendor(ctx context.Context, input *NewVendor) (*Vendor, error) {

	resortId, ok := utils.GetResortIdFromContext(ctx)
	if !ok || resortId == "" {
		return nil, errors.New("resort id is required")
	}

	if err := input.validate(ctx, resortId, 0); err != nil {
		return nil, err
	}

	vendor := Vendor{
		ResortId:      resortId,
		Name:          input.Name,
		ContactPerson: input.ContactPerson,
		Email:         strings.ToLower(input.Email),
		Phone:         input.Phone,
		Address:       input.Address,
		IsActive:      utils.NewTrue(),
	}

	// db action
	db := config.GetDB()
	err := db.WithContext(ctx).Create(&vendor).Error
	if err != nil {
		return nil, err
	}
	return &vendor, nil
}

func UpdateVendor(ctx context.Context, id int, input *NewVendor) (*Vendor, error) {

	resortId, ok := utils.GetResortIdFromContext(ctx)
	if !ok || resortId == "" {
		return nil, errors.New("resort id is required")
	}

	if err := input.validate(ctx, resortId, id); err != nil {
		return nil, err
	}

	vendor, err := utils.FetchModel[Vendor](ctx, resortId, id)
	if err != nil {
		return nil, err
	}

	// db action
	db := config.GetDB()
	err = db.WithContext(ctx).Model(&vendor).Updates(map[string]interface{}{
		"Name":          input.Name,
		"ContactPerson": input.ContactPerson,
		"Email":         strings.ToLower(input.Email),
		"Phone":         input.Phone,
		"Address":       input.Address,
	}).Error
	if err != nil {
		return nil, err
	}

	return vendor, nil
}

func DeleteVendor(ctx context.Context, id int) (*Vendor, error) {

	resortId, ok := utils.GetResortIdFromContext(ctx)
	if !ok || resortId == "" {
		return nil, errors.New("resort id is required")
	}

	db := config.GetDB()
	result, err := utils.FetchModel[Vendor](ctx, resortId, id)
	if err != nil {
		return nil, err
	}

	// check if vendor is referenced by open replacements
	var count int64
	if err := db.WithContext(ctx).Model(&StoreReplacement{}).
		Where("vendor_id = ? AND status <> ?", id, ReplacementStatusClosed).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("vendor has open replacements")
	}

	// db action
	err = db.WithContext(ctx).Delete(&result).Error
	if err != nil {
		return nil, err
	}
	return result, nil
}

func GetVendor(ctx context.Context, id int) (*Vendor, error) {
	return GetResource[Vendor](ctx, id)
}

func ListVendor(ctx context.Context, name *string) ([]*Vendor, error) {
	resortId, ok := utils.GetResortIdFromContext(ctx)
	if !ok || resortId == "" {
		return nil, errors.New("resort id is required")
	}

	db := config.GetDB()
	var results []*Vendor

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

func ToggleActiveVendor(ctx context.Context, id int, isActive bool) (*Vendor, error) {
	resortId, ok := utils.GetResortIdFromContext(ctx)
	if !ok || resortId == "" {
		return nil, errors.New("resort id is required")
	}
	return ToggleActiveModel[Vendor](ctx, resortId, id, isActive)
}
