package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	sqlmysql "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/serenia-hospitality/procure_backend/config"
	"github.com/serenia-hospitality/procure_backend/middlewares"
	"github.com/serenia-hospitality/procure_backend/models"
	"github.com/serenia-hospitality/procure_backend/utils"
	"github.com/serenia-hospitality/procure_backend/workflow"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

// Workflow singletons, constructed in main once the DB is connected.
// Until then the readiness gate answers 503.
var (
	consumptionWF *workflow.ConsumptionWorkflow
	replacementWF *workflow.ReplacementWorkflow
	procurementWF *workflow.ProcurementWorkflow
	stockLedger   *workflow.StockLedger
)

func workflowsReady() bool {
	return consumptionWF != nil && replacementWF != nil && procurementWF != nil && stockLedger != nil
}

func initWorkflows(logger *logrus.Logger) {
	db := config.GetDB()
	stockLedger = workflow.NewStockLedger(db)
	expander := workflow.NewRecipeExpander(logger)
	gate := workflow.NewTransferRuleGate()
	consumptionWF = workflow.NewConsumptionWorkflow(db, logger, stockLedger, expander, gate)
	replacementWF = workflow.NewReplacementWorkflow(db, logger, stockLedger)
	procurementWF = workflow.NewProcurementWorkflow(db, logger, stockLedger)
}

// writeError maps an error to the HTTP contract: 404 for missing records,
// 409 for business rejections (insufficient stock, transfer denied, state
// conflicts), 500 for storage faults, 400 for everything a client can fix.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case models.IsInsufficientStock(err), models.IsTransferNotAllowed(err), models.IsStateConflict(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": utils.ProcessValidationErrors(err)})
			return
		}
		var mysqlErr *sqlmysql.MySQLError
		if errors.As(err, &mysqlErr) {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		writeError(c, err)
		return false
	}
	return true
}

func pathId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func queryIntPtr(c *gin.Context, name string) *int {
	v := c.Query(name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil
	}
	return &n
}

func queryStrPtr(c *gin.Context, name string) *string {
	v := c.Query(name)
	if v == "" {
		return nil
	}
	return &v
}

/* auth */

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func loginHandler(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	info, err := models.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, info)
}

func createResortHandler(c *gin.Context) {
	var input models.NewResort
	if !bindJSON(c, &input) {
		return
	}
	resort, err := models.CreateResort(c.Request.Context(), &input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resort)
}

/* masters */

type toggleActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

func registerDepartmentRoutes(api *gin.RouterGroup) {
	api.GET("/departments", func(c *gin.Context) {
		results, err := models.ListDepartment(c.Request.Context(), queryStrPtr(c, "name"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, results)
	})
	api.POST("/departments", func(c *gin.Context) {
		var input models.NewDepartment
		if !bindJSON(c, &input) {
			return
		}
		result, err := models.CreateDepartment(c.Request.Context(), &input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, result)
	})
	api.GET("/departments/:id", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		result, err := models.GetDepartment(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	})
	api.PATCH("/departments/:id", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewDepartment
		if !bindJSON(c, &input) {
			return
		}
		result, err := models.UpdateDepartment(c.Request.Context(), id, &input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	})
	api.DELETE("/departments/:id", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		result, err := models.DeleteDepartment(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	})
	api.POST("/departments/:id/toggle-active", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var req toggleActiveRequest
		if !bindJSON(c, &req) {
			return
		}
		result, err := models.ToggleActiveDepartment(c.Request.Context(), id, *req.IsActive)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	})
}

func registerStoreRoutes(api *gin.RouterGroup) {
	api.GET("/stores", func(c *gin.Context) {
		results, err := models.ListStore(c.Request.Context(), queryStrPtr(c, "name"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, results)
	})
	api.POST("/stores", func(c *gin.Context) {
		var input models.NewStore
		if !bindJSON(c, &input) {
			return
		}
		result, err := models.CreateStore(c.Request.Context(), &input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, result)
	})
	api.GET("/stores/:id", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		result, err := models.GetStore(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	})
	api.PATCH("/stores/:id", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewStore
		if !bindJSON(c, &input) {
			return
		}
		result, err := models.UpdateStore(c.Request.Context(), id, &input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	})
	api.DELETE("/stores/:id", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		result, err := models.DeleteStore(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	})
	api.POST("/stores/:id/toggle-active", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var req toggleActiveRequest
		if !bindJSON(c, &req) {
			return
		}
		result, err := models.ToggleActiveStore(c.Request.Context(), id, *req.IsActive)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	})
}

func registerVendorRoutes(api *gin.RouterGroup) {
	api.GET("/vendors", func(c *gin.Context) {
		results, err := models.ListVendor(c.Request.Context(), queryStrPtr(c, "name"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, results)
	})
	api.POST("/vendors", func(c *gin.Context) {
		var input models.NewVendor
		if !bindJSON(c, &input) {
			return
		}
		result, err := models.CreateVendor(c.Request.Context(), &input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, result)
	})
	api.GET("/vendors/:id", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		result, err := models.GetVendor(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	})
	api.PATCH("/vendors/:id", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewVendor
		if !bindJSON(c, &input) {
			return
		}
		result, err := models.UpdateVendor(c.Request.Context(), id, &input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	})
	api.DELETE("/vendors/:id", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		result, err := models.DeleteVendor(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	})
	api.POST("/vendors/:id/toggle-active", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var req toggleActiveRequest
		if !bindJSON(c, &req) {
			return
		}
		result, err := models.ToggleActiveVendor(c.Request.Context(), id, *req.IsActive)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	})
}

func registerItemRoutes(api *gin.RouterGroup) {
	api.GET("/items", func(c *gin.Context) {
		results, err := models.ListItem(c.Request.Context(), queryStrPtr(c, "name"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, results)
	})
	api.POST("/items", func(c *gin.Context) {
		var input models.NewItem
		if !bindJSON(c, &input) {
			return
		}
		result, err := models.CreateItem(c.Request.Context(), &input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, result)
	})
	api.GET("/items/:id", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		result, err := models.GetItem(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	})
	api.PATCH("/items/:id", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewItem
		if !bindJSON(c, &input) {
			return
		}
		result, err := models.UpdateItem(c.Request.Context(), id, &input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	})
	api.DELETE("/items/:id", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		result, err := models.DeleteItem(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	})
	api.POST("/items/:id/toggle-active", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var req toggleActiveRequest
		if !bindJSON(c, &req) {
			return
		}
		result, err := models.ToggleActiveItem(c.Request.Context(), id, *req.IsActive)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	})
}

func registerRecipeRoutes(api *gin.RouterGroup) {
	api.GET("/recipes", func(c *gin.Context) {
		results, err := models.ListRecipe(c.Request.Context(), queryStrPtr(c, "name"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, results)
	})
	api.POST("/recipes", func(c *gin.Context) {
		var input models.NewRecipe
		if !bindJSON(c, &input) {
			return
		}
		result, err := models.CreateRecipe(c.Request.Context(), &input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, result)
	})
	api.GET("/recipes/:id", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		result, err := models.GetRecipe(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	})
	api.PATCH("/recipes/:id", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewRecipe
		if !bindJSON(c, &input) {
			return
		}
		result, err := models.UpdateRecipe(c.Request.Context(), id, &input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	})
	api.DELETE("/recipes/:id", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		result, err := models.DeleteRecipe(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	})
}

func registerTransferRuleRoutes(api *gin.RouterGroup) {
	api.GET("/transfer-rules", func(c *gin.Context) {
		results, err := models.ListStoreTransferRule(c.Request.Context(), queryIntPtr(c, "from_store_id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, results)
	})
	api.POST("/transfer-rules", func(c *gin.Context) {
		var input models.NewStoreTransferRule
		if !bindJSON(c, &input) {
			return
		}
		result, err := models.CreateStoreTransferRule(c.Request.Context(), &input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, result)
	})
	api.PATCH("/transfer-rules/:id", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewStoreTransferRule
		if !bindJSON(c, &input) {
			return
		}
		result, err := models.UpdateStoreTransferRule(c.Request.Context(), id, &input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	})
	api.DELETE("/transfer-rules/:id", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		result, err := models.DeleteStoreTransferRule(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	})
}

func registerUserRoutes(api *gin.RouterGroup) {
	api.GET("/users", func(c *gin.Context) {
		results, err := models.ListUsers(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, results)
	})
	api.POST("/users", func(c *gin.Context) {
		var input models.NewUser
		if !bindJSON(c, &input) {
			return
		}
		result, err := models.CreateUser(c.Request.Context(), &input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, result)
	})
	api.GET("/users/:id", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		result, err := models.GetUser(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	})
	api.POST("/users/:id/toggle-active", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var req toggleActiveRequest
		if !bindJSON(c, &req) {
			return
		}
		result, err := models.ToggleActiveUser(c.Request.Context(), id, *req.IsActive)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	})
	api.POST("/users/password", func(c *gin.Context) {
		var req struct {
			OldPassword string `json:"old_password" binding:"required"`
			NewPassword string `json:"new_password" binding:"required"`
		}
		if !bindJSON(c, &req) {
			return
		}
		ok, err := models.ChangePassword(c.Request.Context(), req.OldPassword, req.NewPassword)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": ok})
	})
}

/* engine */

func registerConsumptionRoutes(api *gin.RouterGroup) {
	api.GET("/consumptions", func(c *gin.Context) {
		var consumptionType *models.ConsumptionType
		if v := c.Query("type"); v != "" {
			t := models.ConsumptionType(v)
			consumptionType = &t
		}
		results, err := models.ListConsumption(c.Request.Context(), queryIntPtr(c, "store_id"), consumptionType)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, results)
	})
	api.POST("/consumptions", func(c *gin.Context) {
		var input models.NewConsumption
		if !bindJSON(c, &input) {
			return
		}
		result, err := consumptionWF.Create(c.Request.Context(), &input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, result)
	})
	api.GET("/consumptions/:id", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		result, err := models.GetConsumption(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	})
	api.POST("/consumptions/:id/post", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		result, err := consumptionWF.Post(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	})
	api.PATCH("/consumptions/:id", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.UpdateConsumptionInput
		if !bindJSON(c, &input) {
			return
		}
		result, err := consumptionWF.Update(c.Request.Context(), id, &input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	})
	api.DELETE("/consumptions/:id", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		result, err := consumptionWF.Delete(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	})
}

type issueReplacementRequest struct {
	VendorId    int                                `json:"vendor_id" binding:"required"`
	Adjustments []models.ReplacementLineAdjustment `json:"adjustments"`
}

type receiveReplacementRequest struct {
	StoreId  int                             `json:"store_id"`
	Receipts []models.ReplacementLineReceipt `json:"receipts" binding:"required,dive"`
}

func registerReplacementRoutes(api *gin.RouterGroup) {
	api.GET("/replacements", func(c *gin.Context) {
		var status *models.ReplacementStatus
		if v := c.Query("status"); v != "" {
			s := models.ReplacementStatus(v)
			status = &s
		}
		results, err := models.ListStoreReplacement(c.Request.Context(), queryIntPtr(c, "store_id"), status)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, results)
	})
	api.POST("/replacements", func(c *gin.Context) {
		var input models.NewStoreReplacement
		if !bindJSON(c, &input) {
			return
		}
		result, err := replacementWF.Create(c.Request.Context(), &input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, result)
	})
	api.GET("/replacements/:id", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		result, err := models.GetStoreReplacement(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	})
	api.POST("/replacements/:id/issue", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var req issueReplacementRequest
		if !bindJSON(c, &req) {
			return
		}
		result, err := replacementWF.IssueToVendor(c.Request.Context(), id, req.VendorId, req.Adjustments)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	})
	api.POST("/replacements/:id/receive", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var req receiveReplacementRequest
		if !bindJSON(c, &req) {
			return
		}
		result, err := replacementWF.ReceiveGrn(c.Request.Context(), id, req.StoreId, req.Receipts)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	})
}

type requisitionStatusRequest struct {
	Status models.RequisitionStatus `json:"status" binding:"required"`
	Remark string                   `json:"remark"`
}

type createGrnRequest struct {
	Lines  []models.GrnReceiptLine `json:"lines" binding:"required,dive"`
	Remark string                  `json:"remark"`
}

func registerProcurementRoutes(api *gin.RouterGroup) {
	api.GET("/requisitions", func(c *gin.Context) {
		var status *models.RequisitionStatus
		if v := c.Query("status"); v != "" {
			s := models.RequisitionStatus(v)
			status = &s
		}
		results, err := models.ListRequisition(c.Request.Context(), queryIntPtr(c, "store_id"), status)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, results)
	})
	api.POST("/requisitions", func(c *gin.Context) {
		var input models.NewRequisition
		if !bindJSON(c, &input) {
			return
		}
		result, err := procurementWF.CreateRequisition(c.Request.Context(), &input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, result)
	})
	api.GET("/requisitions/:id", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		result, err := models.GetRequisition(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	})
	api.POST("/requisitions/:id/status", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var req requisitionStatusRequest
		if !bindJSON(c, &req) {
			return
		}
		result, err := procurementWF.SetRequisitionStatus(c.Request.Context(), id, req.Status, req.Remark)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	})
	api.POST("/requisitions/:id/purchase-order", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		result, err := procurementWF.CreatePOFromRequisition(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, result)
	})
	api.POST("/requisitions/:id/grn", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var req createGrnRequest
		if !bindJSON(c, &req) {
			return
		}
		result, err := procurementWF.CreateGrnFromRequisition(c.Request.Context(), id, req.Lines, req.Remark)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, result)
	})
	api.GET("/purchase-orders", func(c *gin.Context) {
		results, err := models.ListPurchaseOrder(c.Request.Context(), queryIntPtr(c, "vendor_id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, results)
	})
	api.GET("/purchase-orders/:id", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		result, err := models.GetPurchaseOrder(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	})
	api.GET("/grns", func(c *gin.Context) {
		results, err := models.ListGrn(c.Request.Context(), queryIntPtr(c, "store_id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, results)
	})
	api.GET("/grns/:id", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		result, err := models.GetGrn(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	})
}

func registerStockRoutes(api *gin.RouterGroup) {
	api.GET("/stocks", func(c *gin.Context) {
		storeId := queryIntPtr(c, "store_id")
		if storeId == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "store_id is required"})
			return
		}
		results, err := models.ListStoreStocks(c.Request.Context(), *storeId)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, results)
	})
	api.GET("/stocks/on-hand", func(c *gin.Context) {
		storeId := queryIntPtr(c, "store_id")
		itemId := queryIntPtr(c, "item_id")
		if storeId == nil || itemId == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "store_id and item_id are required"})
			return
		}
		qty, err := stockLedger.Get(c.Request.Context(), *storeId, *itemId)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"store_id": *storeId, "item_id": *itemId, "qty": qty})
	})
	api.GET("/stocks/movements", func(c *gin.Context) {
		storeId := queryIntPtr(c, "store_id")
		if storeId == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "store_id is required"})
			return
		}
		results, err := models.ListStockMovements(c.Request.Context(), *storeId, queryIntPtr(c, "item_id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, results)
	})
}

func registerResortRoutes(api *gin.RouterGroup) {
	api.GET("/resort", func(c *gin.Context) {
		result, err := models.GetResort(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	})
}

// customErrorLogger is a custom Gin middleware that logs only errors
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only log when there are errors
		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP so the platform considers the revision
	// healthy. Until DB/Redis are ready, app endpoints answer 503.
	r := gin.New()
	// Correlation IDs: generate once per request and attach to context.
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		// Always allow the startup probe.
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		// Gate critical endpoints on dependency readiness.
		if config.GetDB() == nil || !workflowsReady() {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// Production-safe CORS: explicit allowlist via CORS_ALLOWED_ORIGINS in
	// production, allow-all for developer convenience otherwise.
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PATCH", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	r.Use(middlewares.AuthMiddleware())
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	r.POST("/login", loginHandler)
	r.POST("/resorts", createResortHandler)

	api := r.Group("/api", middlewares.RequireAuth())
	registerResortRoutes(api)
	registerDepartmentRoutes(api)
	registerStoreRoutes(api)
	registerVendorRoutes(api)
	registerItemRoutes(api)
	registerRecipeRoutes(api)
	registerTransferRuleRoutes(api)
	registerUserRoutes(api)
	registerConsumptionRoutes(api)
	registerReplacementRoutes(api)
	registerProcurementRoutes(api)
	registerStockRoutes(api)

	// Start listening immediately (startup probe is TCP based).
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// AutoMigrate can run DDL that blocks tables; allow disabling migrations
	// on startup and running them as a separate job instead.
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	initWorkflows(logger)

	// Set the session isolation level to READ COMMITTED
	for attempt := 1; ; attempt++ {
		err := db.Exec("SET SESSION TRANSACTION ISOLATION LEVEL READ COMMITTED").Error
		if err == nil {
			break
		}
		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		logger.WithFields(logrus.Fields{
			"field":   "database",
			"attempt": attempt,
		}).Warn("failed to set isolation level; retrying in " + sleep.String() + ": " + err.Error())
		time.Sleep(sleep)
	}

	log.Println("Server started successfully on port " + port)

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Drain HTTP requests.
	shutdownTimeout := 30 * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	// Close Redis (best-effort).
	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}
