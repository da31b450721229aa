package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"geomarket/internal/service"
)

// Services зависимости HTTP-слоя
type Services struct {
	Catalog   *service.CatalogService
	Products  *service.ProductService
	Inventory *service.InventoryService
	Orders    *service.OrderService
	Search    *service.SearchService
	Priority  *service.PriorityService
}

type Server struct {
	engine    *gin.Engine
	catalog   *service.CatalogService
	products  *service.ProductService
	inventory *service.InventoryService
	orders    *service.OrderService
	search    *service.SearchService
	priority  *service.PriorityService
}

func NewServer(svc Services) *Server {
	r := gin.New()
	r.Use(requestID(), accessLog(), gin.Recovery())
	s := &Server{
		engine:    r,
		catalog:   svc.Catalog,
		products:  svc.Products,
		inventory: svc.Inventory,
		orders:    svc.Orders,
		search:    svc.Search,
		priority:  svc.Priority,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) registerRoutes() {
	// Swagger UI
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	s.engine.GET("/health", s.health)

	v1 := s.engine.Group("/api/v1")
	{
		addresses := v1.Group("/addresses")
		addresses.POST("", requireUser(), s.createAddress)
		addresses.GET("/:id", s.getAddress)

		categories := v1.Group("/categories")
		categories.POST("", requireUser(), s.createCategory)
		categories.GET("", s.listCategories)
		categories.DELETE("/:id", requireUser(), s.deleteCategory)

		zones := v1.Group("/delivery-zones")
		zones.POST("", requireUser(), s.createDeliveryZone)
		zones.GET("", s.listDeliveryZones)
		zones.GET("/:id", s.getDeliveryZone)
		zones.DELETE("/:id", requireUser(), s.deleteDeliveryZone)

		merchants := v1.Group("/merchants")
		merchants.POST("", requireUser(), s.createMerchant)
		merchants.GET("", s.listMerchants)
		merchants.GET("/:id", s.getMerchant)
		merchants.PUT("/:id", requireUser(), s.updateMerchant)
		merchants.DELETE("/:id", requireUser(), s.deleteMerchant)

		products := v1.Group("/products")
		products.POST("", requireUser(), s.createProduct)
		products.GET("", s.listProducts)
		products.GET("/:id", s.getProduct)
		products.PUT("/:id", requireUser(), s.updateProduct)
		products.DELETE("/:id", requireUser(), s.deleteProduct)
		products.POST("/:id/publish", requireUser(), s.publishProduct)
		products.POST("/:id/unpublish", requireUser(), s.unpublishProduct)

		inventories := v1.Group("/inventories")
		inventories.PUT("", requireUser(), s.setStock)
		inventories.GET("", s.listStock)

		orders := v1.Group("/orders")
		orders.POST("", requireUser(), s.createOrder)
		orders.GET("", s.listOrders)
		orders.GET("/:id", s.getOrder)
		orders.PATCH("/:id/status", requireUser(), s.updateOrderStatus)

		custom := v1.Group("/custom")
		custom.GET("/products/nearby", s.nearbyProducts)
		custom.POST("/orders/priority-assignment", requireUser(), s.priorityAssignment)
		custom.GET("/orders/analytics", s.orderAnalytics)
	}
}

// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /health [get]
func (s *Server) health(c *gin.Context) {
	if err := s.catalog.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
