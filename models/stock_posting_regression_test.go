package models_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/serenia-hospitality/procure_backend/config"
	"github.com/serenia-hospitality/procure_backend/models"
	"github.com/serenia-hospitality/procure_backend/utils"
	"github.com/serenia-hospitality/procure_backend/workflow"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// setupIntegrationEnv starts mysql + redis containers, connects the config
// globals, migrates a fresh schema and bootstraps one resort. It returns a
// context carrying that resort's session.
func setupIntegrationEnv(t *testing.T) (context.Context, *models.Resort) {
	t.Helper()
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	// Wire env for config.Connect* helpers.
	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "procure_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	ctx := context.Background()
	ctx = utils.SetUserIdInContext(ctx, 1)

	resort, err := models.CreateResort(ctx, &models.NewResort{
		Name:  "Test Resort",
		Email: "owner@test.local",
	})
	if err != nil {
		t.Fatalf("CreateResort: %v", err)
	}
	ctx = utils.SetResortIdInContext(ctx, resort.ID.String())
	return ctx, resort
}

func mustCreateItem(t *testing.T, ctx context.Context, sku, name string) *models.Item {
	t.Helper()
	item, err := models.CreateItem(ctx, &models.NewItem{Sku: sku, Name: name, Unit: "kg"})
	if err != nil {
		t.Fatalf("CreateItem(%s): %v", sku, err)
	}
	return item
}

func mustStockOnHand(t *testing.T, ctx context.Context, storeId, itemId int) decimal.Decimal {
	t.Helper()
	qty, err := models.GetStockOnHand(ctx, storeId, itemId)
	if err != nil {
		t.Fatalf("GetStockOnHand(store=%d item=%d): %v", storeId, itemId, err)
	}
	return qty
}

// seedStockViaGrn walks the requisition -> approve -> GRN chain to put qty of
// the item into the store, exercising the sole stock-increasing path.
func seedStockViaGrn(t *testing.T, ctx context.Context, wf *workflow.ProcurementWorkflow, storeId, itemId int, qty decimal.Decimal) {
	t.Helper()
	req, err := wf.CreateRequisition(ctx, &models.NewRequisition{
		StoreId: storeId,
		Type:    models.RequisitionTypeInternal,
		Lines:   []models.NewRequisitionLine{{ItemId: itemId, Qty: qty, Uom: "kg"}},
	})
	if err != nil {
		t.Fatalf("CreateRequisition: %v", err)
	}
	if _, err := wf.SetRequisitionStatus(ctx, req.ID, models.RequisitionStatusApproved, "ok"); err != nil {
		t.Fatalf("SetRequisitionStatus: %v", err)
	}
	if _, err := wf.CreateGrnFromRequisition(ctx, req.ID, []models.GrnReceiptLine{{ItemId: itemId, ReceivedQty: qty, Uom: "kg"}}, ""); err != nil {
		t.Fatalf("CreateGrnFromRequisition: %v", err)
	}
}

func TestProcurementChainAndRecipeConsumption(t *testing.T) {
	ctx, resort := setupIntegrationEnv(t)

	db := config.GetDB()
	logger := logrus.New()
	ledger := workflow.NewStockLedger(db)
	procurement := workflow.NewProcurementWorkflow(db, logger, ledger)
	consumption := workflow.NewConsumptionWorkflow(db, logger, ledger, workflow.NewRecipeExpander(logger), workflow.NewTransferRuleGate())

	storeId := resort.PrimaryStoreId
	flour := mustCreateItem(t, ctx, "FLOUR-001", "Flour")
	butter := mustCreateItem(t, ctx, "BUTTER-001", "Butter")

	// 1) Vendor requisition -> approve -> PO -> GRN.
	vendor, err := models.CreateVendor(ctx, &models.NewVendor{Name: "Farm Supplies"})
	if err != nil {
		t.Fatalf("CreateVendor: %v", err)
	}
	req, err := procurement.CreateRequisition(ctx, &models.NewRequisition{
		StoreId:  storeId,
		VendorId: &vendor.ID,
		Type:     models.RequisitionTypeVendor,
		Lines: []models.NewRequisitionLine{
			{ItemId: flour.ID, Qty: decimal.NewFromInt(50), Uom: "kg"},
			{ItemId: butter.ID, Qty: decimal.NewFromInt(20), Uom: "kg"},
		},
	})
	if err != nil {
		t.Fatalf("CreateRequisition: %v", err)
	}
	if req.Status != models.RequisitionStatusPending {
		t.Fatalf("expected Pending requisition, got %s", req.Status)
	}

	// creating a PO before approval must be rejected
	if _, err := procurement.CreatePOFromRequisition(ctx, req.ID); !models.IsStateConflict(err) {
		t.Fatalf("expected state conflict creating PO on Pending requisition, got %v", err)
	}

	if _, err := procurement.SetRequisitionStatus(ctx, req.ID, models.RequisitionStatusApproved, "go ahead"); err != nil {
		t.Fatalf("SetRequisitionStatus: %v", err)
	}
	po, err := procurement.CreatePOFromRequisition(ctx, req.ID)
	if err != nil {
		t.Fatalf("CreatePOFromRequisition: %v", err)
	}
	if po.Code != "PO-000001" {
		t.Fatalf("expected PO-000001, got %s", po.Code)
	}

	// no stock before the GRN
	if q := mustStockOnHand(t, ctx, storeId, flour.ID); !q.IsZero() {
		t.Fatalf("expected zero flour before GRN, got %s", q.String())
	}

	// under-receipt: vendor delivered less flour than ordered
	grn, err := procurement.CreateGrnFromRequisition(ctx, req.ID, []models.GrnReceiptLine{
		{ItemId: flour.ID, ReceivedQty: decimal.NewFromInt(40), Uom: "kg"},
		{ItemId: butter.ID, ReceivedQty: decimal.NewFromInt(20), Uom: "kg"},
	}, "partial delivery")
	if err != nil {
		t.Fatalf("CreateGrnFromRequisition: %v", err)
	}
	if grn.Code != "GRN-000001" {
		t.Fatalf("expected GRN-000001, got %s", grn.Code)
	}
	if q := mustStockOnHand(t, ctx, storeId, flour.ID); q.Cmp(decimal.NewFromInt(40)) != 0 {
		t.Fatalf("expected 40 flour after GRN, got %s", q.String())
	}

	// a second GRN against the same requisition must be rejected
	if _, err := procurement.CreateGrnFromRequisition(ctx, req.ID, []models.GrnReceiptLine{
		{ItemId: flour.ID, ReceivedQty: decimal.NewFromInt(10)},
	}, ""); !models.IsStateConflict(err) {
		t.Fatalf("expected state conflict on second GRN, got %v", err)
	}

	// 2) Recipe consumption: 10-portion recipe, post 25 portions.
	recipe, err := models.CreateRecipe(ctx, &models.NewRecipe{
		Name:     "Croissant",
		YieldQty: decimal.NewFromInt(10),
		Ingredients: []models.NewRecipeIngredient{
			{ItemId: flour.ID, Qty: decimal.NewFromInt(4)},
			{ItemId: butter.ID, Qty: decimal.NewFromInt(2)},
		},
	})
	if err != nil {
		t.Fatalf("CreateRecipe: %v", err)
	}

	doc, err := consumption.Create(ctx, &models.NewConsumption{
		Type:        models.ConsumptionTypeRecipePortion,
		StoreFromId: storeId,
		Date:        time.Now(),
		Lines: []models.NewConsumptionLine{
			{RecipeId: &recipe.ID, Qty: decimal.NewFromInt(25)},
		},
	})
	if err != nil {
		t.Fatalf("consumption.Create: %v", err)
	}
	if doc.Status != models.ConsumptionStatusPosted {
		t.Fatalf("expected Posted consumption, got %s", doc.Status)
	}

	// factor 2.5: flour 40-10=30, butter 20-5=15
	if q := mustStockOnHand(t, ctx, storeId, flour.ID); q.Cmp(decimal.NewFromInt(30)) != 0 {
		t.Fatalf("expected 30 flour after posting, got %s", q.String())
	}
	if q := mustStockOnHand(t, ctx, storeId, butter.ID); q.Cmp(decimal.NewFromInt(15)) != 0 {
		t.Fatalf("expected 15 butter after posting, got %s", q.String())
	}

	// movement audit: one row per touched (store, item) per posting
	movements, err := models.ListStockMovements(ctx, storeId, &flour.ID)
	if err != nil {
		t.Fatalf("ListStockMovements: %v", err)
	}
	if len(movements) != 2 {
		t.Fatalf("expected 2 flour movements (GRN + consumption), got %d", len(movements))
	}
	latest := movements[0]
	if latest.Qty.Cmp(decimal.NewFromInt(-10)) != 0 || latest.ClosingQty.Cmp(decimal.NewFromInt(30)) != 0 {
		t.Fatalf("expected latest movement qty=-10 closing=30, got qty=%s closing=%s", latest.Qty.String(), latest.ClosingQty.String())
	}
	if latest.ReferenceType != models.StockReferenceTypeConsumption {
		t.Fatalf("expected reference type CS, got %s", latest.ReferenceType)
	}

	// 3) a recipe deleted after drafting is skipped at posting, not an error
	draft, err := consumption.Create(ctx, &models.NewConsumption{
		Type:        models.ConsumptionTypeRecipePortion,
		StoreFromId: storeId,
		Date:        time.Now(),
		Draft:       true,
		Lines: []models.NewConsumptionLine{
			{RecipeId: &recipe.ID, Qty: decimal.NewFromInt(5)},
		},
	})
	if err != nil {
		t.Fatalf("consumption.Create draft: %v", err)
	}
	if _, err := models.DeleteRecipe(ctx, recipe.ID); err != nil {
		t.Fatalf("DeleteRecipe: %v", err)
	}
	if _, err := models.GetRecipeForExpansion(ctx, resort.ID.String(), recipe.ID); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("expected record-not-found for deleted recipe, got %v", err)
	}
	posted, err := consumption.Post(ctx, draft.ID)
	if err != nil {
		t.Fatalf("consumption.Post with deleted recipe: %v", err)
	}
	if posted.Status != models.ConsumptionStatusPosted {
		t.Fatalf("expected Posted, got %s", posted.Status)
	}
	// nothing deducted for the skipped line
	if q := mustStockOnHand(t, ctx, storeId, flour.ID); q.Cmp(decimal.NewFromInt(30)) != 0 {
		t.Fatalf("expected flour unchanged at 30, got %s", q.String())
	}
}

func TestConsumptionBatchIsAllOrNothing(t *testing.T) {
	ctx, resort := setupIntegrationEnv(t)

	db := config.GetDB()
	logger := logrus.New()
	ledger := workflow.NewStockLedger(db)
	procurement := workflow.NewProcurementWorkflow(db, logger, ledger)
	consumption := workflow.NewConsumptionWorkflow(db, logger, ledger, workflow.NewRecipeExpander(logger), workflow.NewTransferRuleGate())

	storeId := resort.PrimaryStoreId
	rice := mustCreateItem(t, ctx, "RICE-001", "Rice")
	oil := mustCreateItem(t, ctx, "OIL-001", "Oil")

	seedStockViaGrn(t, ctx, procurement, storeId, rice.ID, decimal.NewFromInt(100))
	// oil intentionally left at zero

	_, err := consumption.Create(ctx, &models.NewConsumption{
		Type:        models.ConsumptionTypeLumpsum,
		StoreFromId: storeId,
		Date:        time.Now(),
		Lines: []models.NewConsumptionLine{
			{ItemId: &rice.ID, Qty: decimal.NewFromInt(10)},
			{ItemId: &oil.ID, Qty: decimal.NewFromInt(1)},
		},
	})
	if !models.IsInsufficientStock(err) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	// the rice line must not have been applied
	if q := mustStockOnHand(t, ctx, storeId, rice.ID); q.Cmp(decimal.NewFromInt(100)) != 0 {
		t.Fatalf("expected rice untouched at 100, got %s", q.String())
	}
	// and the failed document must not exist
	docs, err := models.ListConsumption(ctx, &storeId, nil)
	if err != nil {
		t.Fatalf("ListConsumption: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("expected no consumption documents after failed posting, got %d", len(docs))
	}
}

func TestReplacementLifecycleWithUnderReceipt(t *testing.T) {
	ctx, resort := setupIntegrationEnv(t)

	db := config.GetDB()
	logger := logrus.New()
	ledger := workflow.NewStockLedger(db)
	procurement := workflow.NewProcurementWorkflow(db, logger, ledger)
	replacement := workflow.NewReplacementWorkflow(db, logger, ledger)

	storeId := resort.PrimaryStoreId
	glass := mustCreateItem(t, ctx, "GLASS-001", "Wine Glass")

	// creation against an empty store must fail and leave no document behind
	if _, err := replacement.Create(ctx, &models.NewStoreReplacement{
		StoreId: storeId,
		Lines: []models.NewStoreReplacementLine{
			{ItemId: glass.ID, RequestedQty: decimal.NewFromInt(10)},
		},
	}); !models.IsInsufficientStock(err) {
		t.Fatalf("expected insufficient stock on empty store, got %v", err)
	}
	docs, err := models.ListStoreReplacement(ctx, &storeId, nil)
	if err != nil {
		t.Fatalf("ListStoreReplacement: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("expected no replacement documents after failed creation, got %d", len(docs))
	}

	seedStockViaGrn(t, ctx, procurement, storeId, glass.ID, decimal.NewFromInt(30))

	vendor, err := models.CreateVendor(ctx, &models.NewVendor{Name: "Glassworks"})
	if err != nil {
		t.Fatalf("CreateVendor: %v", err)
	}

	doc, err := replacement.Create(ctx, &models.NewStoreReplacement{
		StoreId: storeId,
		Remark:  "chipped rims",
		Lines: []models.NewStoreReplacementLine{
			{ItemId: glass.ID, RequestedQty: decimal.NewFromInt(10)},
		},
	})
	if err != nil {
		t.Fatalf("replacement.Create: %v", err)
	}
	if doc.Status != models.ReplacementStatusOpen {
		t.Fatalf("expected Open, got %s", doc.Status)
	}
	// stock left the store at creation
	if q := mustStockOnHand(t, ctx, storeId, glass.ID); q.Cmp(decimal.NewFromInt(20)) != 0 {
		t.Fatalf("expected 20 after replacement creation, got %s", q.String())
	}

	issued := decimal.NewFromInt(9)
	doc, err = replacement.IssueToVendor(ctx, doc.ID, vendor.ID, []models.ReplacementLineAdjustment{
		{LineId: doc.Lines[0].ID, IssuedQty: &issued},
	})
	if err != nil {
		t.Fatalf("IssueToVendor: %v", err)
	}
	if doc.Status != models.ReplacementStatusSentToVendor {
		t.Fatalf("expected SentToVendor, got %s", doc.Status)
	}

	// re-issue is an allowed correction
	if _, err := replacement.IssueToVendor(ctx, doc.ID, vendor.ID, nil); err != nil {
		t.Fatalf("re-issue: %v", err)
	}

	// vendor sent back fewer than issued
	doc, err = replacement.ReceiveGrn(ctx, doc.ID, 0, []models.ReplacementLineReceipt{
		{LineId: doc.Lines[0].ID, ReceivedQty: decimal.NewFromInt(7)},
	})
	if err != nil {
		t.Fatalf("ReceiveGrn: %v", err)
	}
	if doc.Status != models.ReplacementStatusClosed {
		t.Fatalf("expected Closed, got %s", doc.Status)
	}
	// 30 - 10 + 7
	if q := mustStockOnHand(t, ctx, storeId, glass.ID); q.Cmp(decimal.NewFromInt(27)) != 0 {
		t.Fatalf("expected 27 after under-receipt, got %s", q.String())
	}

	// closed documents cannot be received again
	if _, err := replacement.ReceiveGrn(ctx, doc.ID, 0, []models.ReplacementLineReceipt{
		{LineId: doc.Lines[0].ID, ReceivedQty: decimal.NewFromInt(1)},
	}); !models.IsStateConflict(err) {
		t.Fatalf("expected state conflict on closed replacement, got %v", err)
	}
}

func TestReplacementIntentGatedByTransferRules(t *testing.T) {
	ctx, resort := setupIntegrationEnv(t)

	db := config.GetDB()
	logger := logrus.New()
	ledger := workflow.NewStockLedger(db)
	consumption := workflow.NewConsumptionWorkflow(db, logger, ledger, workflow.NewRecipeExpander(logger), workflow.NewTransferRuleGate())

	kitchen, err := models.CreateStore(ctx, &models.NewStore{DepartmentId: resort.PrimaryDepartmentId, Name: "Kitchen"})
	if err != nil {
		t.Fatalf("CreateStore: %v", err)
	}
	bar, err := models.CreateStore(ctx, &models.NewStore{DepartmentId: resort.PrimaryDepartmentId, Name: "Bar"})
	if err != nil {
		t.Fatalf("CreateStore: %v", err)
	}
	plate := mustCreateItem(t, ctx, "PLATE-001", "Plate")

	newIntent := func(from, to int) *models.NewConsumption {
		return &models.NewConsumption{
			Type:        models.ConsumptionTypeReplacement,
			StoreFromId: from,
			StoreToId:   &to,
			Date:        time.Now(),
			Lines:       []models.NewConsumptionLine{{ItemId: &plate.ID, Qty: decimal.NewFromInt(2)}},
		}
	}

	// default-open: no rules, any destination allowed
	if _, err := consumption.Create(ctx, newIntent(kitchen.ID, bar.ID)); err != nil {
		t.Fatalf("expected default-open transfer to pass, got %v", err)
	}

	// first rule flips the kitchen to allow-list mode, listing only the primary store
	if _, err := models.CreateStoreTransferRule(ctx, &models.NewStoreTransferRule{
		FromStoreId: kitchen.ID,
		ToStoreId:   resort.PrimaryStoreId,
		IsAllowed:   utils.NewTrue(),
	}); err != nil {
		t.Fatalf("CreateStoreTransferRule: %v", err)
	}

	if _, err := consumption.Create(ctx, newIntent(kitchen.ID, bar.ID)); !models.IsTransferNotAllowed(err) {
		t.Fatalf("expected transfer rejection after allow-list flip, got %v", err)
	}
	if _, err := consumption.Create(ctx, newIntent(kitchen.ID, resort.PrimaryStoreId)); err != nil {
		t.Fatalf("expected listed destination to pass, got %v", err)
	}
	// other fromStores stay default-open
	if _, err := consumption.Create(ctx, newIntent(bar.ID, kitchen.ID)); err != nil {
		t.Fatalf("expected unrelated fromStore to stay open, got %v", err)
	}
}

// Two racing posters must resolve to exactly one stock effect: the loser sees
// a state conflict after the winner's transition commits.
func TestConcurrentPostingIsSingleShot(t *testing.T) {
	ctx, resort := setupIntegrationEnv(t)

	db := config.GetDB()
	logger := logrus.New()
	ledger := workflow.NewStockLedger(db)
	procurement := workflow.NewProcurementWorkflow(db, logger, ledger)
	consumption := workflow.NewConsumptionWorkflow(db, logger, ledger, workflow.NewRecipeExpander(logger), workflow.NewTransferRuleGate())
	replacement := workflow.NewReplacementWorkflow(db, logger, ledger)

	storeId := resort.PrimaryStoreId
	rice := mustCreateItem(t, ctx, "RICE-001", "Rice")
	seedStockViaGrn(t, ctx, procurement, storeId, rice.ID, decimal.NewFromInt(100))

	raceTwo := func(t *testing.T, name string, op func() error) {
		t.Helper()
		errs := make([]error, 2)
		var wg sync.WaitGroup
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = op()
			}(i)
		}
		wg.Wait()
		var successes, conflicts int
		for _, err := range errs {
			switch {
			case err == nil:
				successes++
			case models.IsStateConflict(err):
				conflicts++
			default:
				t.Fatalf("%s: unexpected error %v", name, err)
			}
		}
		if successes != 1 || conflicts != 1 {
			t.Fatalf("%s: expected one winner and one conflict, got %d winners / %d conflicts", name, successes, conflicts)
		}
	}

	// double-post of one draft consumption deducts once
	draft, err := consumption.Create(ctx, &models.NewConsumption{
		Type:        models.ConsumptionTypeLumpsum,
		StoreFromId: storeId,
		Date:        time.Now(),
		Draft:       true,
		Lines:       []models.NewConsumptionLine{{ItemId: &rice.ID, Qty: decimal.NewFromInt(10)}},
	})
	if err != nil {
		t.Fatalf("consumption.Create: %v", err)
	}
	raceTwo(t, "post", func() error {
		_, err := consumption.Post(ctx, draft.ID)
		return err
	})
	if q := mustStockOnHand(t, ctx, storeId, rice.ID); q.Cmp(decimal.NewFromInt(90)) != 0 {
		t.Fatalf("expected 90 rice after single post, got %s", q.String())
	}

	// double-receive of one sent replacement increments once
	vendor, err := models.CreateVendor(ctx, &models.NewVendor{Name: "Rice Traders"})
	if err != nil {
		t.Fatalf("CreateVendor: %v", err)
	}
	doc, err := replacement.Create(ctx, &models.NewStoreReplacement{
		StoreId: storeId,
		Lines: []models.NewStoreReplacementLine{
			{ItemId: rice.ID, RequestedQty: decimal.NewFromInt(10)},
		},
	})
	if err != nil {
		t.Fatalf("replacement.Create: %v", err)
	}
	issued := decimal.NewFromInt(10)
	doc, err = replacement.IssueToVendor(ctx, doc.ID, vendor.ID, []models.ReplacementLineAdjustment{
		{LineId: doc.Lines[0].ID, IssuedQty: &issued},
	})
	if err != nil {
		t.Fatalf("IssueToVendor: %v", err)
	}
	raceTwo(t, "receive", func() error {
		_, err := replacement.ReceiveGrn(ctx, doc.ID, 0, []models.ReplacementLineReceipt{
			{LineId: doc.Lines[0].ID, ReceivedQty: decimal.NewFromInt(10)},
		})
		return err
	})
	// 90 - 10 at creation + 10 received exactly once
	if q := mustStockOnHand(t, ctx, storeId, rice.ID); q.Cmp(decimal.NewFromInt(90)) != 0 {
		t.Fatalf("expected 90 rice after single receive, got %s", q.String())
	}

	// double-GRN on one approved requisition increments once
	req, err := procurement.CreateRequisition(ctx, &models.NewRequisition{
		StoreId: storeId,
		Type:    models.RequisitionTypeInternal,
		Lines:   []models.NewRequisitionLine{{ItemId: rice.ID, Qty: decimal.NewFromInt(5), Uom: "kg"}},
	})
	if err != nil {
		t.Fatalf("CreateRequisition: %v", err)
	}
	if _, err := procurement.SetRequisitionStatus(ctx, req.ID, models.RequisitionStatusApproved, "ok"); err != nil {
		t.Fatalf("SetRequisitionStatus: %v", err)
	}
	raceTwo(t, "grn", func() error {
		_, err := procurement.CreateGrnFromRequisition(ctx, req.ID, []models.GrnReceiptLine{
			{ItemId: rice.ID, ReceivedQty: decimal.NewFromInt(5), Uom: "kg"},
		}, "")
		return err
	})
	if q := mustStockOnHand(t, ctx, storeId, rice.ID); q.Cmp(decimal.NewFromInt(95)) != 0 {
		t.Fatalf("expected 95 rice after single GRN, got %s", q.String())
	}
}

func TestGlobalTransferRuleInvalidatesEveryResortCache(t *testing.T) {
	ctx, resort := setupIntegrationEnv(t)

	kitchen, err := models.CreateStore(ctx, &models.NewStore{DepartmentId: resort.PrimaryDepartmentId, Name: "Kitchen"})
	if err != nil {
		t.Fatalf("CreateStore: %v", err)
	}

	otherResort, err := models.CreateResort(utils.SetUserIdInContext(context.Background(), 1), &models.NewResort{
		Name:  "Other Resort",
		Email: "owner-b@test.local",
	})
	if err != nil {
		t.Fatalf("CreateResort: %v", err)
	}
	otherId := otherResort.ID.String()
	otherCtx := utils.SetResortIdInContext(utils.SetUserIdInContext(context.Background(), 1), otherId)

	// warm the other resort's cache entry for this fromStore
	rules, err := models.FetchAllowedTransferRules(otherCtx, otherId, kitchen.ID)
	if err != nil {
		t.Fatalf("FetchAllowedTransferRules: %v", err)
	}
	if len(rules) != 0 {
		t.Fatalf("expected no rules before the global rule, got %d", len(rules))
	}

	adminCtx := utils.SetIsAdminInContext(ctx, true)
	if _, err := models.CreateStoreTransferRule(adminCtx, &models.NewStoreTransferRule{
		FromStoreId: kitchen.ID,
		ToStoreId:   resort.PrimaryStoreId,
		IsAllowed:   utils.NewTrue(),
		Global:      true,
	}); err != nil {
		t.Fatalf("CreateStoreTransferRule: %v", err)
	}

	// the cached empty set must be gone for every resort, not just the writer's
	rules, err = models.FetchAllowedTransferRules(otherCtx, otherId, kitchen.ID)
	if err != nil {
		t.Fatalf("FetchAllowedTransferRules after global rule: %v", err)
	}
	if len(rules) != 1 {
		t.Fatalf("expected the global rule to be visible, got %d rules", len(rules))
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ctx, _ := setupIntegrationEnv(t)

	if _, err := models.Login(ctx, "owner@test.local", "wrong-password"); err == nil {
		t.Fatalf("expected login rejection on wrong password")
	}
	if _, err := models.Login(ctx, "owner@test.local", "default123"); err != nil {
		t.Fatalf("expected owner login to succeed: %v", err)
	}

	// a stored hash bcrypt cannot read must deny the login, never pass it
	db := config.GetDB()
	if err := db.Exec("UPDATE users SET password = ? WHERE username = ?", "not-a-bcrypt-hash", "owner@test.local").Error; err != nil {
		t.Fatalf("corrupt stored hash: %v", err)
	}
	if err := config.DeleteRedisKey("User:owner@test.local"); err != nil {
		t.Fatalf("DeleteRedisKey: %v", err)
	}
	if _, err := models.Login(ctx, "owner@test.local", "default123"); err == nil {
		t.Fatalf("expected login rejection on unreadable stored hash")
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("procure-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("procure-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=procure_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
