package workflow

import (
	"context"

	"github.com/serenia-hospitality/procure_backend/models"
)

// TransferRuleGate authorizes store-to-store movements against the
// StoreTransferRule table. The policy is default-open: with no rules for a
// fromStore any destination is allowed; once a rule exists for that fromStore
// only destinations with an explicit isAllowed=true row pass.
type TransferRuleGate struct{}

func NewTransferRuleGate() *TransferRuleGate {
	return &TransferRuleGate{}
}

// IsAllowed decides whether moving stock fromStore -> toStore is permitted
// for the resort. An absent from/to store allows the move; partial legacy
// documents are not gated.
func (g *TransferRuleGate) IsAllowed(ctx context.Context, resortId string, fromStoreId int, toStoreId int) (bool, error) {

	if fromStoreId == 0 || toStoreId == 0 {
		return true, nil
	}

	rules, err := models.FetchAllowedTransferRules(ctx, resortId, fromStoreId)
	if err != nil {
		return false, err
	}
	return models.EvaluateTransferRules(rules, toStoreId), nil
}
