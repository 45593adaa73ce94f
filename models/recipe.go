package models

import (
	"context"
	"errors"
	"time"

	"github.com/serenia-hospitality/procure_backend/config"
	"github.com/serenia-hospitality/procure_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Recipe maps one produced item to the ingredient quantities consumed per
// YieldQty of output. YieldQty may be zero for legacy recipes; see ExpandRecipe.
type Recipe struct {
	ID           int                `gorm:"primary_key" json:"id"`
	ResortId     string             `gorm:"index;not null" json:"resort_id"`
	Name         string             `gorm:"size:100;not null" json:"name" binding:"required"`
	OutputItemId int                `json:"output_item_id"`
	YieldQty     decimal.Decimal    `gorm:"type:decimal(20,4);not null;default:0" json:"yield_qty"`
	Ingredients  []RecipeIngredient `gorm:"constraint:OnDelete:CASCADE" json:"ingredients"`
	IsActive     *bool              `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

type RecipeIngredient struct {
	ID       int             `gorm:"primary_key" json:"id"`
	RecipeId int             `gorm:"index;not null" json:"recipe_id"`
	ItemId   int             `gorm:"not null" json:"item_id"`
	Qty      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"qty"`
}

type NewRecipe struct {
	Name         string                `json:"name" binding:"required"`
	OutputItemId int                   `json:"output_item_id"`
	YieldQty     decimal.Decimal       `json:"yield_qty"`
	Ingredients  []NewRecipeIngredient `json:"ingredients" binding:"required,dive"`
}

type NewRecipeIngredient struct {
	ItemId int             `json:"item_id" binding:"required"`
	Qty    decimal.Decimal `json:"qty" binding:"required"`
}

// ItemQty is one concrete (item, qty) deduction derived from a recipe line.
type ItemQty struct {
	ItemId int
	Qty    decimal.Decimal
}

// ExpandRecipe scales the recipe's ingredient lines for requestedQty of output.
// When YieldQty > 0 the factor is requestedQty/YieldQty; a zero yield falls
// back to treating requestedQty as a direct batch multiplier.
func ExpandRecipe(recipe *Recipe, requestedQty decimal.Decimal) []ItemQty {

	factor := requestedQty
	if recipe.YieldQty.IsPositive() {
		factor = requestedQty.Div(recipe.YieldQty)
	}

	out := make([]ItemQty, 0, len(recipe.Ingredients))
	for _, ing := range recipe.Ingredients {
		out = append(out, ItemQty{
			ItemId: ing.ItemId,
			Qty:    ing.Qty.Mul(factor),
		})
	}
	return out
}

// validate input for both create & update. (id = 0 for create)

func (input *NewRecipe) validate(ctx context.Context, resortId string, id int) error {
	// name
	if err := utils.ValidateUnique[Recipe](ctx, resortId, "name", input.Name, id); err != nil {
		return err
	}
	if len(input.Ingredients) == 0 {
		return errors.New("recipe needs at least one ingredient")
	}
	if input.YieldQty.IsNegative() {
		return errors.New("yield qty cannot be negative")
	}
	itemIds := make([]int, 0, len(input.Ingredients)+1)
	for _, ing := range input.Ingredients {
		if !ing.Qty.IsPositive() {
			return errors.New("ingredient qty must be positive")
		}
		itemIds = append(itemIds, ing.ItemId)
	}
	if input.OutputItemId != 0 {
		itemIds = append(itemIds, input.OutputItemId)
	}
	// check if items are not owned by other resort
	if err := utils.ValidateResourcesId[Item](ctx, resortId, itemIds); err != nil {
		return errors.New("item not found")
	}
	return nil
}

func CreateRecipe(ctx context.Context, input *NewRecipe) (*Recipe, error) {

	resortId, ok := utils.GetResortIdFromContext(ctx)
	if !ok || resortId == "" {
		return nil, errors.New("resort id is required")
	}

	if err := input.validate(ctx, resortId, 0); err != nil {
		return nil, err
	}

	ingredients := make([]RecipeIngredient, 0, len(input.Ingredients))
	for _, ing := range input.Ingredients {
		ingredients = append(ingredients, RecipeIngredient{
			ItemId: ing.ItemId,
			Qty:    ing.Qty,
		})
	}

	recipe := Recipe{
		ResortId:     resortId,
		Name:         input.Name,
		OutputItemId: input.OutputItemId,
		YieldQty:     input.YieldQty,
		Ingredients:  ingredients,
		IsActive:     utils.NewTrue(),
	}

	// db action
	db := config.GetDB()
	err := db.WithContext(ctx).Create(&recipe).Error
	if err != nil {
		return nil, err
	}
	return &recipe, nil
}

func UpdateRecipe(ctx context.Context, id int, input *NewRecipe) (*Recipe, error) {

	resortId, ok := utils.GetResortIdFromContext(ctx)
	if !ok || resortId == "" {
		return nil, errors.New("resort id is required")
	}

	if err := input.validate(ctx, resortId, id); err != nil {
		return nil, err
	}

	recipe, err := utils.FetchModel[Recipe](ctx, resortId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()

	if err := tx.WithContext(ctx).Model(&recipe).Updates(map[string]interface{}{
		"Name":         input.Name,
		"OutputItemId": input.OutputItemId,
		"YieldQty":     input.YieldQty,
	}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	// replace ingredient lines
	if err := tx.WithContext(ctx).Where("recipe_id = ?", id).Delete(&RecipeIngredient{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	ingredients := make([]RecipeIngredient, 0, len(input.Ingredients))
	for _, ing := range input.Ingredients {
		ingredients = append(ingredients, RecipeIngredient{
			RecipeId: id,
			ItemId:   ing.ItemId,
			Qty:      ing.Qty,
		})
	}
	if err := tx.WithContext(ctx).Create(&ingredients).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	recipe.Ingredients = ingredients
	return recipe, nil
}

func DeleteRecipe(ctx context.Context, id int) (*Recipe, error) {

	resortId, ok := utils.GetResortIdFromContext(ctx)
	if !ok || resortId == "" {
		return nil, errors.New("resort id is required")
	}

	result, err := utils.FetchModel[Recipe](ctx, resortId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Where("recipe_id = ?", id).Delete(&RecipeIngredient{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.WithContext(ctx).Delete(&result).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return result, nil
}

func GetRecipe(ctx context.Context, id int) (*Recipe, error) {
	return GetResource[Recipe](ctx, id, "Ingredients")
}

// GetRecipeForExpansion reads the current recipe definition at posting time.
// Consumption posting always uses the live definition, never a snapshot.
// Only a genuinely missing recipe maps to ErrorRecordNotFound; storage faults
// are returned verbatim so posting fails instead of silently skipping lines.
func GetRecipeForExpansion(ctx context.Context, resortId string, id int) (*Recipe, error) {
	db := config.GetDB()
	var recipe Recipe
	err := db.WithContext(ctx).Preload("Ingredients").
		Where("resort_id = ?", resortId).First(&recipe, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &recipe, nil
}

func ListRecipe(ctx context.Context, name *string) ([]*Recipe, error) {
	resortId, ok := utils.GetResortIdFromContext(ctx)
	if !ok || resortId == "" {
		return nil, errors.New("resort id is required")
	}

	db := config.GetDB()
	var results []*Recipe

	dbCtx := db.WithContext(ctx).Preload("Ingredients").Where("resort_id = ?", resortId)
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
