package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/serenia-hospitality/procure_backend/config"
	"github.com/serenia-hospitality/procure_backend/utils"
)

// StoreTransferRule restricts store-to-store replacement movements.
// ResortId may be empty for a global rule that applies to every resort.
// Semantics are default-open: no rules for a fromStore means every destination
// is allowed; the first rule row flips that fromStore to allow-list mode.
type StoreTransferRule struct {
	ID          int       `gorm:"primary_key" json:"id"`
	ResortId    string    `gorm:"size:36;not null;default:'';uniqueIndex:idx_transfer_rule" json:"resort_id"`
	FromStoreId int       `gorm:"not null;uniqueIndex:idx_transfer_rule" json:"from_store_id"`
	ToStoreId   int       `gorm:"not null;uniqueIndex:idx_transfer_rule" json:"to_store_id"`
	IsAllowed   *bool     `gorm:"not null;default:true" json:"is_allowed"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewStoreTransferRule struct {
	FromStoreId int   `json:"from_store_id" binding:"required"`
	ToStoreId   int   `json:"to_store_id" binding:"required"`
	IsAllowed   *bool `json:"is_allowed" binding:"required"`
	// Global applies the rule across all resorts (admin only).
	Global bool `json:"global"`
}

/*
caches:
	TransferRules:$resortId:$fromStoreId
*/

func transferRuleCacheKey(resortId string, fromStoreId int) string {
	return fmt.Sprintf("TransferRules:%s:%d", resortId, fromStoreId)
}

// removeTransferRuleCache invalidates gate reads for one fromStore. A global
// rule (empty resortId) sits in every resort's cache entry for that fromStore,
// so it clears by pattern.
func removeTransferRuleCache(ruleResortId string, fromStoreId int) error {
	if ruleResortId == "" {
		return config.DeleteRedisKeysByPattern(fmt.Sprintf("TransferRules:*:%d", fromStoreId))
	}
	return config.DeleteRedisKey(transferRuleCacheKey(ruleResortId, fromStoreId))
}

// EvaluateTransferRules applies the allow-list check to an already fetched
// rule set. rules must be the isAllowed=true rows for one (resort, fromStore);
// an empty set allows every destination.
func EvaluateTransferRules(rules []*StoreTransferRule, toStoreId int) bool {
	if len(rules) == 0 {
		return true
	}
	for _, rule := range rules {
		if rule.ToStoreId == toStoreId {
			return true
		}
	}
	return false
}

// FetchAllowedTransferRules returns the isAllowed=true rules matching
// (resort-or-global, fromStore), redis-cached per (resort, fromStore).
func FetchAllowedTransferRules(ctx context.Context, resortId string, fromStoreId int) ([]*StoreTransferRule, error) {

	var rules []*StoreTransferRule

	cacheKey := transferRuleCacheKey(resortId, fromStoreId)
	exists, err := config.GetRedisObject(cacheKey, &rules)
	if err == nil && exists {
		return rules, nil
	}

	db := config.GetDB()
	err = db.WithContext(ctx).
		Where("(resort_id = ? OR resort_id = '') AND from_store_id = ? AND is_allowed = ?", resortId, fromStoreId, true).
		Find(&rules).Error
	if err != nil {
		return nil, err
	}

	if err := config.SetRedisObject(cacheKey, rules, time.Minute*10); err != nil {
		return rules, nil
	}
	return rules, nil
}

// validate input for both create & update. (id = 0 for create)

func (input *NewStoreTransferRule) validate(ctx context.Context, resortId string, id int) error {

	if input.FromStoreId == input.ToStoreId {
		return errors.New("from and to store must differ")
	}
	// check if stores are not owned by other resort
	if err := utils.ValidateResourcesId[Store](ctx, resortId, []int{input.FromStoreId, input.ToStoreId}); err != nil {
		return errors.New("store not found")
	}

	// unique per (resort, fromStore, toStore)
	ruleResort := resortId
	if input.Global {
		ruleResort = ""
	}
	db := config.GetDB()
	var count int64
	dbCtx := db.WithContext(ctx).Model(&StoreTransferRule{}).
		Where("resort_id = ? AND from_store_id = ? AND to_store_id = ?", ruleResort, input.FromStoreId, input.ToStoreId)
	if id != 0 {
		dbCtx = dbCtx.Where("NOT id = ?", id)
	}
	if err := dbCtx.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return errors.New("duplicate transfer rule")
	}
	return nil
}

func CreateStoreTransferRule(ctx context.Context, input *NewStoreTransferRule) (*StoreTransferRule, error) {

	resortId, ok := utils.GetResortIdFromContext(ctx)
	if !ok || resortId == "" {
		return nil, errors.New("resort id is required")
	}

	if input.Global {
		isAdmin, _ := utils.GetIsAdminFromContext(ctx)
		if !isAdmin {
			return nil, errors.New("global rules require admin")
		}
	}

	if err := input.validate(ctx, resortId, 0); err != nil {
		return nil, err
	}

	ruleResortId := resortId
	if input.Global {
		ruleResortId = ""
	}
	rule := StoreTransferRule{
		ResortId:    ruleResortId,
		FromStoreId: input.FromStoreId,
		ToStoreId:   input.ToStoreId,
		IsAllowed:   input.IsAllowed,
	}

	// db action
	db := config.GetDB()
	err := db.WithContext(ctx).Create(&rule).Error
	if err != nil {
		return nil, err
	}

	// gate reads must see the change
	if err := removeTransferRuleCache(rule.ResortId, input.FromStoreId); err != nil {
		return &rule, nil
	}
	return &rule, nil
}

func UpdateStoreTransferRule(ctx context.Context, id int, input *NewStoreTransferRule) (*StoreTransferRule, error) {

	resortId, ok := utils.GetResortIdFromContext(ctx)
	if !ok || resortId == "" {
		return nil, errors.New("resort id is required")
	}

	if err := input.validate(ctx, resortId, id); err != nil {
		return nil, err
	}

	rule, err := utils.FetchModel[StoreTransferRule](ctx, resortId, id)
	if err != nil {
		return nil, err
	}
	prevFromStoreId := rule.FromStoreId

	// db action
	db := config.GetDB()
	err = db.WithContext(ctx).Model(&rule).Updates(map[string]interface{}{
		"FromStoreId": input.FromStoreId,
		"ToStoreId":   input.ToStoreId,
		"IsAllowed":   input.IsAllowed,
	}).Error
	if err != nil {
		return nil, err
	}

	_ = removeTransferRuleCache(rule.ResortId, prevFromStoreId)
	_ = removeTransferRuleCache(rule.ResortId, input.FromStoreId)
	return rule, nil
}

func DeleteStoreTransferRule(ctx context.Context, id int) (*StoreTransferRule, error) {

	resortId, ok := utils.GetResortIdFromContext(ctx)
	if !ok || resortId == "" {
		return nil, errors.New("resort id is required")
	}

	result, err := utils.FetchModel[StoreTransferRule](ctx, resortId, id)
	if err != nil {
		return nil, err
	}

	// db action
	db := config.GetDB()
	err = db.WithContext(ctx).Delete(&result).Error
	if err != nil {
		return nil, err
	}

	_ = removeTransferRuleCache(result.ResortId, result.FromStoreId)
	return result, nil
}

func GetStoreTransferRule(ctx context.Context, id int) (*StoreTransferRule, error) {
	return GetResource[StoreTransferRule](ctx, id)
}

func ListStoreTransferRule(ctx context.Context, fromStoreId *int) ([]*StoreTransferRule, error) {
	resortId, ok := utils.GetResortIdFromContext(ctx)
	if !ok || resortId == "" {
		return nil, errors.New("resort id is required")
	}

	db := config.GetDB()
	var results []*StoreTransferRule

	dbCtx := db.WithContext(ctx).Where("resort_id = ? OR resort_id = ''", resortId)
	if fromStoreId != nil {
		dbCtx = dbCtx.Where("from_store_id = ?", *fromStoreId)
	}
	// db query
	err := dbCtx.Order("from_store_id, to_store_id").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
