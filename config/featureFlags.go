package config

import (
	"os"
	"strings"
)

// StrictRecipeLines aborts consumption posting when a referenced recipe is
// missing, instead of silently skipping the line (the legacy behavior).
//
// Set via env:
// - STRICT_RECIPE_LINES=true
func StrictRecipeLines() bool {
	return boolFromEnv("STRICT_RECIPE_LINES")
}

// StrictReceiptQty caps replacement receipt quantities at the issued quantity.
// By default the reported receivedQty is applied as-is, under- or over-receipt
// included (the legacy behavior).
//
// Set via env:
// - STRICT_RECEIPT_QTY=true
func StrictReceiptQty() bool {
	return boolFromEnv("STRICT_RECEIPT_QTY")
}

func boolFromEnv(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
