package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lumostore/topup/internal/app/service/catalog"
	"github.com/lumostore/topup/pkg/response"
)

func ApiListGames(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		games, err := svc.ListGames(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(games))
	}
}

func ApiListGameProducts(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		game, err := svc.GetGameBySlug(c.Request.Context(), c.Param("slug"))
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
				return
			}
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		products, err := svc.ListProducts(c.Request.Context(), game.ID)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(gin.H{"game": game, "products": products}))
	}
}

func ApiListPaymentMethods(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		methods, err := svc.ListPaymentMethods(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(methods))
	}
}

func RegisterCatalogRoutes(r gin.IRouter, svc *catalog.Service) {
	r.GET("/games", ApiListGames(svc))
	r.GET("/games/:slug/products", ApiListGameProducts(svc))
	r.GET("/payment-methods", ApiListPaymentMethods(svc))
}
