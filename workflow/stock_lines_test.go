package workflow

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestMergeStockLinesSumsDuplicates(t *testing.T) {
	lines := []StockLine{
		{StoreId: 1, ItemId: 5, Qty: decimal.NewFromInt(2)},
		{StoreId: 1, ItemId: 5, Qty: decimal.RequireFromString("0.5")},
		{StoreId: 1, ItemId: 6, Qty: decimal.NewFromInt(1)},
	}

	merged := MergeStockLines(lines)
	if len(merged) != 2 {
		t.Fatalf("expected 2 merged lines, got %d", len(merged))
	}
	if merged[0].ItemId != 5 || merged[0].Qty.Cmp(decimal.RequireFromString("2.5")) != 0 {
		t.Fatalf("expected item 5 qty 2.5, got item %d qty %s", merged[0].ItemId, merged[0].Qty.String())
	}
	if merged[1].ItemId != 6 || merged[1].Qty.Cmp(decimal.NewFromInt(1)) != 0 {
		t.Fatalf("expected item 6 qty 1, got item %d qty %s", merged[1].ItemId, merged[1].Qty.String())
	}
}

func TestMergeStockLinesOrdersByStoreThenItem(t *testing.T) {
	lines := []StockLine{
		{StoreId: 2, ItemId: 1, Qty: decimal.NewFromInt(1)},
		{StoreId: 1, ItemId: 9, Qty: decimal.NewFromInt(1)},
		{StoreId: 1, ItemId: 3, Qty: decimal.NewFromInt(1)},
		{StoreId: 2, ItemId: 8, Qty: decimal.NewFromInt(1)},
	}

	merged := MergeStockLines(lines)

	// lock acquisition order: (store_id, item_id) ascending
	expected := []struct{ storeId, itemId int }{
		{1, 3}, {1, 9}, {2, 1}, {2, 8},
	}
	if len(merged) != len(expected) {
		t.Fatalf("expected %d lines, got %d", len(expected), len(merged))
	}
	for i, e := range expected {
		if merged[i].StoreId != e.storeId || merged[i].ItemId != e.itemId {
			t.Fatalf("position %d: expected (%d,%d), got (%d,%d)", i, e.storeId, e.itemId, merged[i].StoreId, merged[i].ItemId)
		}
	}
}
