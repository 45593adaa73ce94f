package workflow

import (
	"context"
	"errors"

	"github.com/serenia-hospitality/procure_backend/config"
	"github.com/serenia-hospitality/procure_backend/models"
	"github.com/serenia-hospitality/procure_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConsumptionWorkflow validates and posts consumption documents. A posted
// document's stock effect is applied exactly once, inside one transaction;
// update and delete never re-trigger or reverse stock movements.
type ConsumptionWorkflow struct {
	db       *gorm.DB
	logger   *logrus.Logger
	ledger   *StockLedger
	expander *RecipeExpander
	gate     *TransferRuleGate
}

func NewConsumptionWorkflow(db *gorm.DB, logger *logrus.Logger, ledger *StockLedger, expander *RecipeExpander, gate *TransferRuleGate) *ConsumptionWorkflow {
	return &ConsumptionWorkflow{db: db, logger: logger, ledger: ledger, expander: expander, gate: gate}
}

// Create validates, persists and (unless draft) posts the document. The
// decrement batch and the document row commit or roll back together.
func (w *ConsumptionWorkflow) Create(ctx context.Context, input *models.NewConsumption) (*models.Consumption, error) {

	resortId, ok := utils.GetResortIdFromContext(ctx)
	if !ok || resortId == "" {
		return nil, errors.New("resort id is required")
	}

	doc, err := models.BuildConsumption(ctx, resortId, input)
	if err != nil {
		return nil, err
	}

	// replacement intents move between two stores; gate before anything is written
	if doc.Type == models.ConsumptionTypeReplacement {
		allowed, err := w.gate.IsAllowed(ctx, resortId, doc.StoreFromId, derefInt(doc.StoreToId))
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, &models.TransferNotAllowedError{
				ResortId:    resortId,
				FromStoreId: doc.StoreFromId,
				ToStoreId:   derefInt(doc.StoreToId),
			}
		}
	}

	if doc.Status == models.ConsumptionStatusDraft {
		if err := w.db.WithContext(ctx).Create(doc).Error; err != nil {
			return nil, err
		}
		return doc, nil
	}

	release, err := TryRedisPostingLock(resortId)
	if err != nil {
		return nil, err
	}
	if release != nil {
		defer release()
	}

	tx := w.db.Begin()
	if err := AcquireResortPostingLock(tx, resortId); err != nil {
		tx.Rollback()
		return nil, err
	}
	defer ReleaseResortPostingLock(tx, resortId)

	if err := tx.WithContext(ctx).Create(doc).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := w.post(tx, ctx, resortId, doc); err != nil {
		tx.Rollback()
		if !models.IsInsufficientStock(err) {
			config.LogError(w.logger, "consumptionWorkflow.go", "Create", "post", doc.ID, err)
		}
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return doc, nil
}

// Post transitions an existing Draft document to Posted and applies its
// stock effect. Posting is one-way.
func (w *ConsumptionWorkflow) Post(ctx context.Context, id int) (*models.Consumption, error) {

	resortId, ok := utils.GetResortIdFromContext(ctx)
	if !ok || resortId == "" {
		return nil, errors.New("resort id is required")
	}

	doc, err := models.GetConsumption(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.Status != models.ConsumptionStatusDraft {
		return nil, &models.StateConflictError{
			Entity: "consumption",
			Id:     doc.ID,
			From:   string(doc.Status),
			To:     string(models.ConsumptionStatusPosted),
		}
	}

	release, err := TryRedisPostingLock(resortId)
	if err != nil {
		return nil, err
	}
	if release != nil {
		defer release()
	}

	tx := w.db.Begin()
	if err := AcquireResortPostingLock(tx, resortId); err != nil {
		tx.Rollback()
		return nil, err
	}
	defer ReleaseResortPostingLock(tx, resortId)

	// re-check under the lock; a concurrent post may already have won
	var current models.Consumption
	if err := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&current, doc.ID).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if current.Status != models.ConsumptionStatusDraft {
		tx.Rollback()
		return nil, &models.StateConflictError{
			Entity: "consumption",
			Id:     doc.ID,
			From:   string(current.Status),
			To:     string(models.ConsumptionStatusPosted),
		}
	}

	if err := w.post(tx, ctx, resortId, doc); err != nil {
		tx.Rollback()
		if !models.IsInsufficientStock(err) {
			config.LogError(w.logger, "consumptionWorkflow.go", "Post", "post", doc.ID, err)
		}
		return nil, err
	}

	if err := tx.Model(doc).Update("status", models.ConsumptionStatusPosted).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	doc.Status = models.ConsumptionStatusPosted
	return doc, nil
}

// post resolves the document's lines into one decrement batch and applies it.
// REPLACEMENT documents record intent only and touch no stock.
func (w *ConsumptionWorkflow) post(tx *gorm.DB, ctx context.Context, resortId string, doc *models.Consumption) error {

	if doc.Type == models.ConsumptionTypeReplacement {
		return nil
	}

	lines := make([]StockLine, 0, len(doc.Lines))
	for _, line := range doc.Lines {
		switch line.LineType {
		case models.ConsumptionLineTypeDirect:
			lines = append(lines, StockLine{
				StoreId: doc.StoreFromId,
				ItemId:  derefInt(line.ItemId),
				Qty:     line.Qty,
			})
		case models.ConsumptionLineTypeRecipe:
			expanded, err := w.expander.Expand(ctx, resortId, derefInt(line.RecipeId), line.Qty)
			if err != nil {
				return err
			}
			for _, iq := range expanded {
				lines = append(lines, StockLine{
					StoreId: doc.StoreFromId,
					ItemId:  iq.ItemId,
					Qty:     iq.Qty,
				})
			}
		}
	}
	// every recipe line was skipped; nothing to deduct
	if len(lines) == 0 {
		return nil
	}

	ref := StockReference{
		Type:      models.StockReferenceTypeConsumption,
		Id:        doc.ID,
		CreatedBy: doc.CreatedBy,
	}
	return w.ledger.DecrementBatch(tx, ctx, resortId, lines, ref)
}

// Update applies whitelisted metadata corrections. It never re-triggers the
// stock effect; a REPLACEMENT document is re-gated when its stores change.
func (w *ConsumptionWorkflow) Update(ctx context.Context, id int, input *models.UpdateConsumptionInput) (*models.Consumption, error) {

	resortId, ok := utils.GetResortIdFromContext(ctx)
	if !ok || resortId == "" {
		return nil, errors.New("resort id is required")
	}

	doc, err := models.GetConsumption(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.DepartmentId != nil {
		if err := utils.ValidateResourceId[models.Department](ctx, resortId, *input.DepartmentId); err != nil {
			return nil, errors.New("department not found")
		}
		updates["DepartmentId"] = *input.DepartmentId
	}
	storeFromId := doc.StoreFromId
	if input.StoreFromId != nil {
		if err := utils.ValidateResourceId[models.Store](ctx, resortId, *input.StoreFromId); err != nil {
			return nil, errors.New("store not found")
		}
		storeFromId = *input.StoreFromId
		updates["StoreFromId"] = storeFromId
	}
	storeToId := derefInt(doc.StoreToId)
	if input.StoreToId != nil {
		if err := utils.ValidateResourceId[models.Store](ctx, resortId, *input.StoreToId); err != nil {
			return nil, errors.New("store not found")
		}
		storeToId = *input.StoreToId
		updates["StoreToId"] = storeToId
	}
	if input.Date != nil {
		updates["Date"] = *input.Date
	}
	if input.Remark != nil {
		updates["Remark"] = *input.Remark
	}
	if len(updates) == 0 {
		return doc, nil
	}

	if doc.Type == models.ConsumptionTypeReplacement {
		if storeFromId == storeToId {
			return nil, errors.New("from and to store must differ")
		}
		allowed, err := w.gate.IsAllowed(ctx, resortId, storeFromId, storeToId)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, &models.TransferNotAllowedError{
				ResortId:    resortId,
				FromStoreId: storeFromId,
				ToStoreId:   storeToId,
			}
		}
	}

	if err := w.db.WithContext(ctx).Model(doc).Updates(updates).Error; err != nil {
		return nil, err
	}
	return models.GetConsumption(ctx, id)
}

// Delete removes the document and its lines. Stock already deducted by
// posting stays deducted; reversal is an explicit separate operation this
// system does not offer.
func (w *ConsumptionWorkflow) Delete(ctx context.Context, id int) (*models.Consumption, error) {

	doc, err := models.GetConsumption(ctx, id)
	if err != nil {
		return nil, err
	}

	tx := w.db.Begin()
	if err := tx.WithContext(ctx).Where("consumption_id = ?", id).Delete(&models.ConsumptionLine{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.WithContext(ctx).Delete(&models.Consumption{}, id).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return doc, nil
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
