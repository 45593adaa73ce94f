package models

import (
	"log"

	"github.com/serenia-hospitality/procure_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Resort{}, &Department{}, &Store{}, &Vendor{}, &Item{},
		&Recipe{}, &RecipeIngredient{},
		&StoreTransferRule{},
		&StockEntry{}, &StockMovement{},
		&Consumption{}, &ConsumptionLine{},
		&StoreReplacement{}, &StoreReplacementLine{},
		&Requisition{}, &RequisitionLine{},
		&PurchaseOrder{}, &PurchaseOrderLine{},
		&Grn{}, &GrnLine{},
		&User{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
