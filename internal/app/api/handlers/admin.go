package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lumostore/topup/internal/app/service/apilog"
	"github.com/lumostore/topup/internal/app/service/catalog"
	"github.com/lumostore/topup/internal/app/service/statistics"
	"github.com/lumostore/topup/internal/app/service/sysconfig"
	"github.com/lumostore/topup/internal/app/service/transaction"
	"github.com/lumostore/topup/pkg/response"
)

// ApiScanTransactions backs the admin transaction list pages.
func ApiScanTransactions(mgr transaction.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req transaction.ScanTransactionsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := mgr.ScanTransactions(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// ApiTransactionCallTrail returns the full provider call trail of one
// transaction, for reconciliation.
func ApiTransactionCallTrail(ledger *apilog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		entries, err := ledger.ListByTransaction(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(entries))
	}
}

func ApiGetStatistics(stats *statistics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statistics.StatisticRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := stats.GetStatistics(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

type setConfigRequest struct {
	Key         string  `json:"key" binding:"required"`
	Value       string  `json:"value" binding:"required"`
	Description *string `json:"description"`
	IsSecret    bool    `json:"is_secret"`
}

func ApiListSystemConfig(svc *sysconfig.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		entries, err := svc.List(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(entries))
	}
}

func ApiGetSystemConfig(svc *sysconfig.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		entry, err := svc.Get(c.Request.Context(), c.Param("key"))
		if err != nil {
			if errors.Is(err, sysconfig.ErrNotFound) {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
				return
			}
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(entry))
	}
}

func ApiSetSystemConfig(svc *sysconfig.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req setConfigRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if err := svc.Set(c.Request.Context(), req.Key, req.Value, req.Description, req.IsSecret); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(gin.H{"status": "ok"}))
	}
}

// ApiRefreshGameSnapshot drops the cached pricing snapshot of a game so
// catalog edits take effect before the cache TTL expires.
func ApiRefreshGameSnapshot(cat *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		gameID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "invalid game id"))
			return
		}
		cat.Refresh(uint(gameID))
		c.JSON(http.StatusOK, response.OKT(gin.H{"status": "ok"}))
	}
}

func RegisterAdminRoutes(r gin.IRouter, mgr transaction.Manager, ledger *apilog.Service, stats *statistics.Service, cfgSvc *sysconfig.Service, cat *catalog.Service) {
	r.POST("/transactions/scan", ApiScanTransactions(mgr))
	r.GET("/transactions/:id/api-logs", ApiTransactionCallTrail(ledger))
	r.POST("/statistics", ApiGetStatistics(stats))
	r.GET("/config", ApiListSystemConfig(cfgSvc))
	r.GET("/config/:key", ApiGetSystemConfig(cfgSvc))
	r.PUT("/config", ApiSetSystemConfig(cfgSvc))
	r.POST("/catalog/games/:id/refresh", ApiRefreshGameSnapshot(cat))
}
