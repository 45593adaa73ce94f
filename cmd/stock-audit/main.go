// stock-audit cross-checks the stock ledger: for every stock entry it verifies
// current_qty == received_qty - consumed_qty, and that the signed sum of the
// movement rows reproduces current_qty. Report-only; it never writes.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//     go run ./cmd/stock-audit [--resort-id <uuid>]
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/serenia-hospitality/procure_backend/config"
	"github.com/shopspring/decimal"
)

type auditRow struct {
	ResortId    string
	StoreId     int
	ItemId      int
	ReceivedQty decimal.Decimal
	ConsumedQty decimal.Decimal
	CurrentQty  decimal.Decimal
	MovementSum decimal.Decimal
}

func main() {
	resortId := flag.String("resort-id", "", "Limit the audit to one resort")
	flag.Parse()

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	query := `
		SELECT se.resort_id, se.store_id, se.item_id,
		       se.received_qty, se.consumed_qty, se.current_qty,
		       COALESCE(SUM(sm.qty), 0) AS movement_sum
		FROM stock_entries se
		LEFT JOIN stock_movements sm
		  ON sm.resort_id = se.resort_id AND sm.store_id = se.store_id AND sm.item_id = se.item_id`
	args := []interface{}{}
	if strings.TrimSpace(*resortId) != "" {
		query += " WHERE se.resort_id = ?"
		args = append(args, *resortId)
	}
	query += " GROUP BY se.id"

	var rows []auditRow
	if err := db.Raw(query, args...).Scan(&rows).Error; err != nil {
		fmt.Fprintf(os.Stderr, "audit query failed: %v\n", err)
		os.Exit(1)
	}

	var mismatches int
	for _, r := range rows {
		derived := r.ReceivedQty.Sub(r.ConsumedQty)
		if r.CurrentQty.Cmp(derived) != 0 {
			mismatches++
			fmt.Printf("ENTRY MISMATCH resort=%s store=%d item=%d: current=%s received-consumed=%s\n",
				r.ResortId, r.StoreId, r.ItemId, r.CurrentQty.String(), derived.String())
		}
		if r.CurrentQty.Cmp(r.MovementSum) != 0 {
			mismatches++
			fmt.Printf("MOVEMENT MISMATCH resort=%s store=%d item=%d: current=%s movement_sum=%s\n",
				r.ResortId, r.StoreId, r.ItemId, r.CurrentQty.String(), r.MovementSum.String())
		}
		if r.CurrentQty.IsNegative() {
			mismatches++
			fmt.Printf("NEGATIVE STOCK resort=%s store=%d item=%d: current=%s\n",
				r.ResortId, r.StoreId, r.ItemId, r.CurrentQty.String())
		}
	}

	fmt.Printf("audited %d stock entries, %d problems\n", len(rows), mismatches)
	if mismatches > 0 {
		os.Exit(2)
	}
}
