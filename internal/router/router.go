package router

import (
	"github.com/paycore/internal/http/handlers"

	"github.com/gin-gonic/gin"
)

// New builds the gin engine and mounts the API.
func New(mode string, handler *handlers.Handler) *gin.Engine {
	if mode != "" {
		gin.SetMode(mode)
	}
	engine := gin.New()
	engine.Use(RequestLog(), Recovery())

	api := engine.Group("/api")
	{
		payments := api.Group("/payments")
		{
			payments.POST("/authorize", handler.Authorize)
			payments.POST("/sale", handler.Sale)
			payments.GET("", handler.ListPayments)
			payments.GET("/:id", handler.GetPayment)
			payments.GET("/ref/:ref", handler.GetPaymentByRef)
			payments.POST("/:id/capture", handler.Capture)
			payments.POST("/:id/cancel", handler.Cancel)
			payments.POST("/:id/refund", handler.Refund)
		}

		methods := api.Group("/payment-methods")
		{
			methods.POST("/:id/primary", handler.SetPrimaryMethod)
			methods.PUT("/:id/billing", handler.UpdateBillingDetails)
			methods.POST("/:id/refresh", handler.RefreshPaymentMethod)
			methods.DELETE("/:id", handler.DeletePaymentMethod)
		}
		api.GET("/accounts/:account_id/payment-methods", handler.ListPaymentMethods)

		operator := api.Group("/operator")
		{
			operator.POST("/payments/:id/terminate", handler.Terminate)
			operator.GET("/dead-letter", handler.ArchivedCount)
			operator.POST("/dead-letter/retry", handler.RetryArchived)
			operator.POST("/billing/run", handler.RunBilling)
			operator.POST("/billing/refunds", handler.RunRefundDiscovery)
			operator.POST("/billing/ach-polls", handler.RunAchPolls)
		}
	}

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	return engine
}
