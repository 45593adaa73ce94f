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

// ProcurementWorkflow drives the linear requisition -> purchase order -> GRN
// chain. A requisition holds at most one PO and one GRN; stock increments
// exactly once, at GRN creation.
type ProcurementWorkflow struct {
	db     *gorm.DB
	logger *logrus.Logger
	ledger *StockLedger
}

func NewProcurementWorkflow(db *gorm.DB, logger *logrus.Logger, ledger *StockLedger) *ProcurementWorkflow {
	return &ProcurementWorkflow{db: db, logger: logger, ledger: ledger}
}

func (w *ProcurementWorkflow) CreateRequisition(ctx context.Context, input *models.NewRequisition) (*models.Requisition, error) {

	resortId, ok := utils.GetResortIdFromContext(ctx)
	if !ok || resortId == "" {
		return nil, errors.New("resort id is required")
	}

	doc, err := models.BuildRequisition(ctx, resortId, input)
	if err != nil {
		return nil, err
	}

	if err := w.db.WithContext(ctx).Create(doc).Error; err != nil {
		return nil, err
	}
	return doc, nil
}

// SetRequisitionStatus reviews a pending (or on-hold) requisition:
// Approved, Rejected or OnHold. Requisitions already turned into a PO or GRN
// cannot be re-reviewed.
func (w *ProcurementWorkflow) SetRequisitionStatus(ctx context.Context, id int, status models.RequisitionStatus, reviewRemark string) (*models.Requisition, error) {

	doc, err := models.GetRequisition(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := doc.Status.ValidateReviewTransition(status); err != nil {
		return nil, &models.StateConflictError{
			Entity: "requisition",
			Id:     doc.ID,
			From:   string(doc.Status),
			To:     string(status),
		}
	}

	// the status predicate keeps a racing review from overwriting a
	// requisition that was turned into a PO or GRN in the meantime
	res := w.db.WithContext(ctx).Model(doc).
		Where("status IN ?", []models.RequisitionStatus{models.RequisitionStatusPending, models.RequisitionStatusOnHold}).
		Updates(map[string]interface{}{
			"Status":       status,
			"ReviewRemark": reviewRemark,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		fresh, ferr := models.GetRequisition(ctx, id)
		from := string(doc.Status)
		if ferr == nil {
			from = string(fresh.Status)
		}
		return nil, &models.StateConflictError{
			Entity: "requisition",
			Id:     doc.ID,
			From:   from,
			To:     string(status),
		}
	}
	doc.Status = status
	doc.ReviewRemark = reviewRemark
	return doc, nil
}

// CreatePOFromRequisition turns an approved vendor requisition into a
// purchase order, copying vendor, store and lines, and links it back.
// No stock moves here.
func (w *ProcurementWorkflow) CreatePOFromRequisition(ctx context.Context, requisitionId int) (*models.PurchaseOrder, error) {

	resortId, ok := utils.GetResortIdFromContext(ctx)
	if !ok || resortId == "" {
		return nil, errors.New("resort id is required")
	}

	requisition, err := models.GetRequisition(ctx, requisitionId)
	if err != nil {
		return nil, err
	}
	if requisition.Status != models.RequisitionStatusApproved {
		return nil, &models.StateConflictError{
			Entity: "requisition",
			Id:     requisition.ID,
			From:   string(requisition.Status),
			To:     string(models.RequisitionStatusPoCreated),
		}
	}
	if requisition.Type != models.RequisitionTypeVendor {
		return nil, errors.New("purchase orders need a vendor requisition")
	}
	if requisition.VendorId == nil || *requisition.VendorId == 0 {
		return nil, errors.New("requisition has no vendor")
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

	// re-check under the lock; a concurrent call may already have created
	// the PO for this requisition
	var current models.Requisition
	if err := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&current, requisition.ID).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if current.Status != models.RequisitionStatusApproved {
		tx.Rollback()
		return nil, &models.StateConflictError{
			Entity: "requisition",
			Id:     requisition.ID,
			From:   string(current.Status),
			To:     string(models.RequisitionStatusPoCreated),
		}
	}

	code, err := models.NextPurchaseOrderCode(ctx, resortId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	lines := make([]models.PurchaseOrderLine, 0, len(requisition.Lines))
	for _, l := range requisition.Lines {
		lines = append(lines, models.PurchaseOrderLine{
			ItemId: l.ItemId,
			Qty:    l.Qty,
			Uom:    l.Uom,
		})
	}
	createdBy, _ := utils.GetUserIdFromContext(ctx)

	po := models.PurchaseOrder{
		ResortId:      resortId,
		Code:          code,
		RequisitionId: requisition.ID,
		VendorId:      *requisition.VendorId,
		StoreId:       requisition.StoreId,
		Remark:        requisition.Remark,
		Lines:         lines,
		CreatedBy:     createdBy,
	}
	if err := tx.WithContext(ctx).Create(&po).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.WithContext(ctx).Model(requisition).Updates(map[string]interface{}{
		"Status": models.RequisitionStatusPoCreated,
		"PoId":   po.ID,
		"PoCode": po.Code,
	}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &po, nil
}

// CreateGrnFromRequisition records the physical receipt against a
// requisition/PO and increments stock per reported line — the sole
// procurement-side stock-increasing operation.
func (w *ProcurementWorkflow) CreateGrnFromRequisition(ctx context.Context, requisitionId int, receiptLines []models.GrnReceiptLine, remark string) (*models.Grn, error) {

	resortId, ok := utils.GetResortIdFromContext(ctx)
	if !ok || resortId == "" {
		return nil, errors.New("resort id is required")
	}

	requisition, err := models.GetRequisition(ctx, requisitionId)
	if err != nil {
		return nil, err
	}
	switch requisition.Status {
	case models.RequisitionStatusApproved, models.RequisitionStatusPoCreated:
	default:
		return nil, &models.StateConflictError{
			Entity: "requisition",
			Id:     requisition.ID,
			From:   string(requisition.Status),
			To:     string(models.RequisitionStatusGrnCreated),
		}
	}
	if len(receiptLines) == 0 {
		return nil, errors.New("at least one receipt line is required")
	}

	itemIds := make([]int, 0, len(receiptLines))
	for _, line := range receiptLines {
		if !line.ReceivedQty.IsPositive() {
			return nil, errors.New("received qty must be positive")
		}
		itemIds = append(itemIds, line.ItemId)
	}
	if err := utils.ValidateResourcesId[models.Item](ctx, resortId, itemIds); err != nil {
		return nil, errors.New("item not found")
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

	// re-check under the lock; stock increments exactly once per requisition
	var current models.Requisition
	if err := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&current, requisition.ID).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	switch current.Status {
	case models.RequisitionStatusApproved, models.RequisitionStatusPoCreated:
	default:
		tx.Rollback()
		return nil, &models.StateConflictError{
			Entity: "requisition",
			Id:     requisition.ID,
			From:   string(current.Status),
			To:     string(models.RequisitionStatusGrnCreated),
		}
	}

	code, err := models.NextGrnCode(ctx, resortId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	lines := make([]models.GrnLine, 0, len(receiptLines))
	for _, l := range receiptLines {
		lines = append(lines, models.GrnLine{
			ItemId:      l.ItemId,
			ReceivedQty: l.ReceivedQty,
			Uom:         l.Uom,
		})
	}
	createdBy, _ := utils.GetUserIdFromContext(ctx)

	grn := models.Grn{
		ResortId:        resortId,
		Code:            code,
		RequisitionId:   requisition.ID,
		PurchaseOrderId: requisition.PoId,
		StoreId:         requisition.StoreId,
		Remark:          remark,
		Lines:           lines,
		CreatedBy:       createdBy,
	}
	if err := tx.WithContext(ctx).Create(&grn).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	ref := StockReference{
		Type:      models.StockReferenceTypeGrn,
		Id:        grn.ID,
		CreatedBy: createdBy,
	}
	for _, l := range receiptLines {
		if err := w.ledger.Increment(tx, ctx, resortId, requisition.StoreId, l.ItemId, l.ReceivedQty, ref); err != nil {
			tx.Rollback()
			config.LogError(w.logger, "procurementWorkflow.go", "CreateGrnFromRequisition", "Increment", grn.ID, err)
			return nil, err
		}
	}

	if err := tx.WithContext(ctx).Model(requisition).Updates(map[string]interface{}{
		"Status":  models.RequisitionStatusGrnCreated,
		"GrnId":   grn.ID,
		"GrnCode": grn.Code,
	}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &grn, nil
}
