package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestExpandRecipeScalesByYield(t *testing.T) {
	recipe := &Recipe{
		YieldQty: decimal.NewFromInt(10),
		Ingredients: []RecipeIngredient{
			{ItemId: 1, Qty: decimal.NewFromInt(2)},
			{ItemId: 2, Qty: decimal.RequireFromString("0.5")},
		},
	}

	// 25 portions of a 10-portion recipe: factor 2.5
	out := ExpandRecipe(recipe, decimal.NewFromInt(25))
	if len(out) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(out))
	}
	if out[0].ItemId != 1 || out[0].Qty.Cmp(decimal.NewFromInt(5)) != 0 {
		t.Fatalf("line 0: expected item 1 qty 5, got item %d qty %s", out[0].ItemId, out[0].Qty.String())
	}
	if out[1].ItemId != 2 || out[1].Qty.Cmp(decimal.RequireFromString("1.25")) != 0 {
		t.Fatalf("line 1: expected item 2 qty 1.25, got item %d qty %s", out[1].ItemId, out[1].Qty.String())
	}
}

func TestExpandRecipeZeroYieldUsesRequestedQtyAsMultiplier(t *testing.T) {
	recipe := &Recipe{
		YieldQty: decimal.Zero,
		Ingredients: []RecipeIngredient{
			{ItemId: 7, Qty: decimal.NewFromInt(3)},
		},
	}

	out := ExpandRecipe(recipe, decimal.NewFromInt(4))
	if len(out) != 1 {
		t.Fatalf("expected 1 line, got %d", len(out))
	}
	if out[0].Qty.Cmp(decimal.NewFromInt(12)) != 0 {
		t.Fatalf("expected qty 12 (3 * 4 batches), got %s", out[0].Qty.String())
	}
}

func TestExpandRecipeFractionalRequestedQty(t *testing.T) {
	recipe := &Recipe{
		YieldQty: decimal.NewFromInt(4),
		Ingredients: []RecipeIngredient{
			{ItemId: 3, Qty: decimal.NewFromInt(8)},
		},
	}

	// half a batch
	out := ExpandRecipe(recipe, decimal.NewFromInt(2))
	if out[0].Qty.Cmp(decimal.NewFromInt(4)) != 0 {
		t.Fatalf("expected qty 4, got %s", out[0].Qty.String())
	}
}
