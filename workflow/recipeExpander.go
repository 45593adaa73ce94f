package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/serenia-hospitality/procure_backend/config"
	"github.com/serenia-hospitality/procure_backend/models"
	"github.com/serenia-hospitality/procure_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// RecipeExpander resolves recipe consumption lines into concrete ingredient
// deductions at posting time, always against the live recipe definition.
type RecipeExpander struct {
	logger *logrus.Logger
}

func NewRecipeExpander(logger *logrus.Logger) *RecipeExpander {
	return &RecipeExpander{logger: logger}
}

// Expand resolves one recipe line. A missing recipe is skipped, not an error
// (legacy documents may reference recipes that were deleted since).
// STRICT_RECIPE_LINES turns the skip into a rejection.
func (e *RecipeExpander) Expand(ctx context.Context, resortId string, recipeId int, requestedQty decimal.Decimal) ([]models.ItemQty, error) {

	recipe, err := models.GetRecipeForExpansion(ctx, resortId, recipeId)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			if config.StrictRecipeLines() {
				return nil, fmt.Errorf("recipe %d not found", recipeId)
			}
			config.LogError(e.logger, "recipeExpander.go", "Expand", "RecipeNotFound", recipeId, err)
			return nil, nil
		}
		return nil, err
	}

	return models.ExpandRecipe(recipe, requestedQty), nil
}
