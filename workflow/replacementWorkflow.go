package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/serenia-hospitality/procure_backend/config"
	"github.com/serenia-hospitality/procure_backend/models"
	"github.com/serenia-hospitality/procure_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReplacementWorkflow drives the vendor-exchange lifecycle
// Open -> SentToVendor -> Closed. Stock leaves the store once, at creation,
// using the requested quantities; it re-enters once, at closure, using the
// received quantities — whatever the vendor actually sent back.
type ReplacementWorkflow struct {
	db     *gorm.DB
	logger *logrus.Logger
	ledger *StockLedger
}

func NewReplacementWorkflow(db *gorm.DB, logger *logrus.Logger, ledger *StockLedger) *ReplacementWorkflow {
	return &ReplacementWorkflow{db: db, logger: logger, ledger: ledger}
}

// Create persists the document as Open and deducts every requested quantity
// in one all-or-nothing batch. Insufficient stock on any line means no
// document and no deduction.
func (w *ReplacementWorkflow) Create(ctx context.Context, input *models.NewStoreReplacement) (*models.StoreReplacement, error) {

	resortId, ok := utils.GetResortIdFromContext(ctx)
	if !ok || resortId == "" {
		return nil, errors.New("resort id is required")
	}

	doc, err := models.BuildStoreReplacement(ctx, resortId, input)
	if err != nil {
		return nil, err
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

	lines := make([]StockLine, 0, len(doc.Lines))
	for _, l := range doc.Lines {
		lines = append(lines, StockLine{
			StoreId: doc.StoreId,
			ItemId:  l.ItemId,
			Qty:     l.RequestedQty,
		})
	}
	ref := StockReference{
		Type:      models.StockReferenceTypeReplacement,
		Id:        doc.ID,
		CreatedBy: doc.CreatedBy,
	}
	if err := w.ledger.DecrementBatch(tx, ctx, resortId, lines, ref); err != nil {
		tx.Rollback()
		if !models.IsInsufficientStock(err) {
			config.LogError(w.logger, "replacementWorkflow.go", "Create", "DecrementBatch", doc.ID, err)
		}
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return doc, nil
}

// IssueToVendor marks the replacement as sent and records per-line issued
// quantities and remarks. Lines not listed in adjustments stay unchanged.
// Re-issuing an already sent replacement is allowed (idempotent corrections);
// anything else backward is a state conflict. No stock moves here.
func (w *ReplacementWorkflow) IssueToVendor(ctx context.Context, id int, vendorId int, adjustments []models.ReplacementLineAdjustment) (*models.StoreReplacement, error) {

	resortId, ok := utils.GetResortIdFromContext(ctx)
	if !ok || resortId == "" {
		return nil, errors.New("resort id is required")
	}

	doc, err := models.GetStoreReplacement(ctx, id)
	if err != nil {
		return nil, err
	}
	if !doc.Status.CanTransitionTo(models.ReplacementStatusSentToVendor) {
		return nil, &models.StateConflictError{
			Entity: "replacement",
			Id:     doc.ID,
			From:   string(doc.Status),
			To:     string(models.ReplacementStatusSentToVendor),
		}
	}
	if err := utils.ValidateResourceId[models.Vendor](ctx, resortId, vendorId); err != nil {
		return nil, errors.New("vendor not found")
	}

	lineById := make(map[int]*models.StoreReplacementLine, len(doc.Lines))
	for i := range doc.Lines {
		lineById[doc.Lines[i].ID] = &doc.Lines[i]
	}
	for _, adj := range adjustments {
		if _, ok := lineById[adj.LineId]; !ok {
			return nil, utils.ErrorRecordNotFound
		}
		if adj.IssuedQty != nil && adj.IssuedQty.IsNegative() {
			return nil, errors.New("issued qty cannot be negative")
		}
	}

	tx := w.db.Begin()

	// re-check under a row lock; a concurrent receive may have closed the
	// document, and Closed never goes back to SentToVendor
	var current models.StoreReplacement
	if err := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&current, doc.ID).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if !current.Status.CanTransitionTo(models.ReplacementStatusSentToVendor) {
		tx.Rollback()
		return nil, &models.StateConflictError{
			Entity: "replacement",
			Id:     doc.ID,
			From:   string(current.Status),
			To:     string(models.ReplacementStatusSentToVendor),
		}
	}

	if err := tx.WithContext(ctx).Model(doc).Updates(map[string]interface{}{
		"VendorId": vendorId,
		"Status":   models.ReplacementStatusSentToVendor,
	}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	for _, adj := range adjustments {
		line := lineById[adj.LineId]
		updates := map[string]interface{}{}
		if adj.IssuedQty != nil {
			updates["IssuedQty"] = *adj.IssuedQty
		}
		if adj.Remark != nil {
			updates["Remark"] = *adj.Remark
		}
		if len(updates) == 0 {
			continue
		}
		if err := tx.WithContext(ctx).Model(line).Updates(updates).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return models.GetStoreReplacement(ctx, id)
}

// ReceiveGrn closes the replacement and returns stock to the store. Every
// line with receivedQty > 0 is incremented with the quantity as reported;
// under- and over-receipt are accepted as-is unless STRICT_RECEIPT_QTY caps
// the receipt at the issued quantity.
func (w *ReplacementWorkflow) ReceiveGrn(ctx context.Context, id int, storeId int, receipts []models.ReplacementLineReceipt) (*models.StoreReplacement, error) {

	resortId, ok := utils.GetResortIdFromContext(ctx)
	if !ok || resortId == "" {
		return nil, errors.New("resort id is required")
	}

	doc, err := models.GetStoreReplacement(ctx, id)
	if err != nil {
		return nil, err
	}
	if !doc.Status.CanTransitionTo(models.ReplacementStatusClosed) {
		return nil, &models.StateConflictError{
			Entity: "replacement",
			Id:     doc.ID,
			From:   string(doc.Status),
			To:     string(models.ReplacementStatusClosed),
		}
	}
	if storeId == 0 {
		storeId = doc.StoreId
	}
	if err := utils.ValidateResourceId[models.Store](ctx, resortId, storeId); err != nil {
		return nil, errors.New("store not found")
	}

	lineById := make(map[int]*models.StoreReplacementLine, len(doc.Lines))
	for i := range doc.Lines {
		lineById[doc.Lines[i].ID] = &doc.Lines[i]
	}
	for _, rec := range receipts {
		if _, ok := lineById[rec.LineId]; !ok {
			return nil, utils.ErrorRecordNotFound
		}
		if rec.ReceivedQty.IsNegative() {
			return nil, errors.New("received qty cannot be negative")
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

	// re-check under the lock; a concurrent receive may already have closed
	// the document, and stock must re-enter exactly once
	var current models.StoreReplacement
	if err := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&current, doc.ID).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if !current.Status.CanTransitionTo(models.ReplacementStatusClosed) {
		tx.Rollback()
		return nil, &models.StateConflictError{
			Entity: "replacement",
			Id:     doc.ID,
			From:   string(current.Status),
			To:     string(models.ReplacementStatusClosed),
		}
	}

	ref := StockReference{
		Type:      models.StockReferenceTypeReplacementReceipt,
		Id:        doc.ID,
		CreatedBy: doc.CreatedBy,
	}
	for _, rec := range receipts {
		line := lineById[rec.LineId]

		receivedQty := rec.ReceivedQty
		if config.StrictReceiptQty() && receivedQty.GreaterThan(line.IssuedQty) {
			receivedQty = line.IssuedQty
		}

		updates := map[string]interface{}{"ReceivedQty": receivedQty}
		if rec.Remark != nil {
			updates["Remark"] = *rec.Remark
		}
		if err := tx.WithContext(ctx).Model(line).Updates(updates).Error; err != nil {
			tx.Rollback()
			return nil, err
		}

		if receivedQty.IsPositive() {
			if err := w.ledger.Increment(tx, ctx, resortId, storeId, line.ItemId, receivedQty, ref); err != nil {
				tx.Rollback()
				config.LogError(w.logger, "replacementWorkflow.go", "ReceiveGrn", "Increment", doc.ID, err)
				return nil, err
			}
		}
	}

	now := time.Now()
	if err := tx.WithContext(ctx).Model(doc).Updates(map[string]interface{}{
		"Status":   models.ReplacementStatusClosed,
		"ClosedAt": &now,
	}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return models.GetStoreReplacement(ctx, id)
}
