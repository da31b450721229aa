package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"geomarket/internal/domain"
	"geomarket/internal/repository"
	"geomarket/internal/service"
)

// Product handlers
type productReq struct {
	Merchant    int64           `json:"merchant"`
	Category    int64           `json:"category"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	IsPublished *bool           `json:"is_published"`
}

// toDomain published подставляется, если is_published не пришёл
func (r productReq) toDomain(id int64, published bool) domain.Product {
	if r.IsPublished != nil {
		published = *r.IsPublished
	}
	return domain.Product{
		ID:          id,
		MerchantID:  r.Merchant,
		CategoryID:  r.Category,
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		IsPublished: published,
	}
}

// @Summary Create product
// @Description Без is_published товар создаётся опубликованным.
// @Tags products
// @Accept json
// @Produce json
// @Param X-User-ID header int true "User ID"
// @Param input body productReq true "Product"
// @Success 201 {object} domain.Product
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /products [post]
func (s *Server) createProduct(c *gin.Context) {
	var req productReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	p, err := s.products.Create(c.Request.Context(), req.toDomain(0, true))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// @Summary Get product by id
// @Tags products
// @Produce json
// @Param id path int true "Product ID"
// @Success 200 {object} domain.Product
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /products/{id} [get]
func (s *Server) getProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p, err := s.products.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary Update product
// @Description Без is_published флаг публикации не меняется.
// @Tags products
// @Accept json
// @Produce json
// @Param X-User-ID header int true "User ID"
// @Param id path int true "Product ID"
// @Param input body productReq true "Update"
// @Success 200 {object} domain.Product
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /products/{id} [put]
func (s *Server) updateProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req productReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	published := true
	if req.IsPublished == nil {
		cur, err := s.products.GetByID(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		published = cur.IsPublished
	}
	p, err := s.products.Update(c.Request.Context(), req.toDomain(id, published))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary Delete product
// @Tags products
// @Param X-User-ID header int true "User ID"
// @Param id path int true "Product ID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /products/{id} [delete]
func (s *Server) deleteProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.products.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary Publish product
// @Tags products
// @Produce json
// @Param X-User-ID header int true "User ID"
// @Param id path int true "Product ID"
// @Success 200 {object} domain.Product
// @Failure 404 {object} map[string]string
// @Router /products/{id}/publish [post]
func (s *Server) publishProduct(c *gin.Context) { s.setPublished(c, true) }

// @Summary Unpublish product
// @Tags products
// @Produce json
// @Param X-User-ID header int true "User ID"
// @Param id path int true "Product ID"
// @Success 200 {object} domain.Product
// @Failure 404 {object} map[string]string
// @Router /products/{id}/unpublish [post]
func (s *Server) unpublishProduct(c *gin.Context) { s.setPublished(c, false) }

func (s *Server) setPublished(c *gin.Context, published bool) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var (
		p   *domain.Product
		err error
	)
	if published {
		p, err = s.products.Publish(c.Request.Context(), id)
	} else {
		p, err = s.products.Unpublish(c.Request.Context(), id)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary List products
// @Tags products
// @Produce json
// @Param merchant query int false "Merchant ID"
// @Param category query int false "Category ID"
// @Param q query string false "Name contains"
// @Param published query bool false "Only published"
// @Param min_price query number false "Min price"
// @Param max_price query number false "Max price"
// @Success 200 {array} domain.Product
// @Router /products [get]
func (s *Server) listProducts(c *gin.Context) {
	var f repository.ProductFilter
	var ok bool
	if f.MerchantID, ok = queryID(c, "merchant"); !ok {
		return
	}
	if f.CategoryID, ok = queryID(c, "category"); !ok {
		return
	}
	f.NameSubstring = c.Query("q")
	if v := c.Query("published"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			badRequest(c, "invalid published")
			return
		}
		f.PublishedOnly = b
	}
	if v := c.Query("min_price"); v != "" {
		x, err := decimal.NewFromString(v)
		if err != nil {
			badRequest(c, "invalid min_price")
			return
		}
		f.MinPrice = &x
	}
	if v := c.Query("max_price"); v != "" {
		x, err := decimal.NewFromString(v)
		if err != nil {
			badRequest(c, "invalid max_price")
			return
		}
		f.MaxPrice = &x
	}
	list, err := s.products.List(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Inventory handlers
type setStockReq struct {
	MerchantID int64 `json:"merchant_id"`
	ProductID  int64 `json:"product_id"`
	Stock      int64 `json:"stock"`
}

// @Summary Set stock
// @Tags inventories
// @Accept json
// @Produce json
// @Param X-User-ID header int true "User ID"
// @Param input body setStockReq true "Stock"
// @Success 200 {object} domain.Inventory
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /inventories [put]
func (s *Server) setStock(c *gin.Context) {
	var req setStockReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	inv, err := s.inventory.SetStock(c.Request.Context(), req.MerchantID, req.ProductID, req.Stock)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

// @Summary List stock
// @Description С product_id возвращает одну строку остатка, иначе все строки мерчанта.
// @Tags inventories
// @Produce json
// @Param merchant_id query int true "Merchant ID"
// @Param product_id query int false "Product ID"
// @Success 200 {array} domain.Inventory
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /inventories [get]
func (s *Server) listStock(c *gin.Context) {
	merchantID, ok := queryID(c, "merchant_id")
	if !ok {
		return
	}
	productID, ok := queryID(c, "product_id")
	if !ok {
		return
	}
	if productID != 0 {
		inv, err := s.inventory.GetStock(c.Request.Context(), merchantID, productID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, inv)
		return
	}
	list, err := s.inventory.ListByMerchant(c.Request.Context(), merchantID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Order handlers
type createOrderReq struct {
	MerchantID int64             `json:"merchant_id"`
	AddressID  int64             `json:"address_id"`
	Items      []domain.LineItem `json:"items"`
}

// @Summary Place order
// @Description Списывает остатки по всем позициям атомарно; при нехватке любой позиции заказ не создаётся.
// @Tags orders
// @Accept json
// @Produce json
// @Param X-User-ID header int true "User ID"
// @Param input body createOrderReq true "Order"
// @Success 201 {object} domain.Order
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /orders [post]
func (s *Server) createOrder(c *gin.Context) {
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	o, err := s.orders.PlaceOrder(c.Request.Context(), service.PlaceOrderRequest{
		UserID:     userID(c),
		MerchantID: req.MerchantID,
		AddressID:  req.AddressID,
		Items:      req.Items,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

// @Summary Get order by id
// @Tags orders
// @Produce json
// @Param id path int true "Order ID"
// @Success 200 {object} domain.Order
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /orders/{id} [get]
func (s *Server) getOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	o, err := s.orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// @Summary List orders
// @Tags orders
// @Produce json
// @Param user query int false "User ID"
// @Param merchant query int false "Merchant ID"
// @Param status query string false "Status"
// @Success 200 {array} domain.Order
// @Failure 400 {object} map[string]string
// @Router /orders [get]
func (s *Server) listOrders(c *gin.Context) {
	var f repository.OrderFilter
	var ok bool
	if f.UserID, ok = queryID(c, "user"); !ok {
		return
	}
	if f.MerchantID, ok = queryID(c, "merchant"); !ok {
		return
	}
	f.Status = domain.OrderStatus(c.Query("status"))
	list, err := s.orders.ListOrders(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

type updateStatusReq struct {
	Status domain.OrderStatus `json:"status"`
}

// @Summary Update order status
// @Tags orders
// @Accept json
// @Produce json
// @Param X-User-ID header int true "User ID"
// @Param id path int true "Order ID"
// @Param input body updateStatusReq true "Status"
// @Success 200 {object} domain.Order
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /orders/{id}/status [patch]
func (s *Server) updateOrderStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req updateStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	o, err := s.orders.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}
