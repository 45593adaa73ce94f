package models

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/serenia-hospitality/procure_backend/config"
	"github.com/serenia-hospitality/procure_backend/utils"
)

// Resort is the top-level tenant: every store, department, vendor, item and
// document is scoped by resort_id.
type Resort struct {
	ID                  uuid.UUID `gorm:"type:char(36);primary_key" json:"id"`
	Name                string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Email               string    `gorm:"size:100" json:"email"`
	Country             string    `gorm:"size:100" json:"country"`
	City                string    `gorm:"size:100" json:"city"`
	PrimaryDepartmentId int       `json:"primary_department_id"`
	PrimaryStoreId      int       `json:"primary_store_id"`
	IsActive            *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt           time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewResort struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required"`
	Country string `json:"country"`
	City    string `json:"city"`
}

// CreateResort creates the tenant row plus the defaults every resort needs:
// a main department, a primary store and an owner login.
func CreateResort(ctx context.Context, input *NewResort) (*Resort, error) {

	if !utils.IsValidEmail(input.Email) {
		return nil, errors.New("invalid email")
	}

	resort := Resort{
		ID:       uuid.New(),
		Name:     input.Name,
		Email:    input.Email,
		Country:  input.Country,
		City:     input.City,
		IsActive: utils.NewTrue(),
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Create(&resort).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	resortId := resort.ID.String()

	department := Department{
		ResortId: resortId,
		Name:     "Main Department",
		IsActive: utils.NewTrue(),
	}
	if err := tx.WithContext(ctx).Create(&department).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	store := Store{
		ResortId:     resortId,
		DepartmentId: department.ID,
		Name:         "Primary Store",
		IsActive:     utils.NewTrue(),
	}
	if err := tx.WithContext(ctx).Create(&store).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if _, err := createDefaultOwner(tx, ctx, resortId, input.Email, input.Name); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Model(&resort).Updates(map[string]interface{}{
		"PrimaryDepartmentId": department.ID,
		"PrimaryStoreId":      store.ID,
	}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &resort, nil
}

func GetResortById(ctx context.Context, resortId string) (*Resort, error) {
	db := config.GetDB()
	var resort Resort
	if err := db.WithContext(ctx).Where("id = ?", resortId).First(&resort).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &resort, nil
}

func GetResort(ctx context.Context) (*Resort, error) {
	resortId, ok := utils.GetResortIdFromContext(ctx)
	if !ok || resortId == "" {
		return nil, errors.New("resort id is required")
	}
	return GetResortById(ctx, resortId)
}
