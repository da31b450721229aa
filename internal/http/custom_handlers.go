package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"geomarket/internal/domain"
	"geomarket/internal/repository"
	"geomarket/internal/service"
)

func queryFloat(c *gin.Context, name string) (float64, bool) {
	v, err := strconv.ParseFloat(c.Query(name), 64)
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

// @Summary Nearby products
// @Description Опубликованные товары в радиусе (км) от точки, по возрастанию расстояния, не больше 30.
// @Tags search
// @Produce json
// @Param lat query number true "Latitude"
// @Param lng query number true "Longitude"
// @Param radius query number true "Radius, km"
// @Param product_name query string false "Name contains (case-insensitive)"
// @Success 200 {array} domain.NearbyProduct
// @Failure 400 {object} map[string]string
// @Router /custom/products/nearby [get]
func (s *Server) nearbyProducts(c *gin.Context) {
	lat, ok := queryFloat(c, "lat")
	if !ok {
		return
	}
	lng, ok := queryFloat(c, "lng")
	if !ok {
		return
	}
	radius, ok := queryFloat(c, "radius")
	if !ok {
		return
	}
	params := service.NearbyParams{Center: domain.GeoPoint{Lat: lat, Lng: lng}, RadiusKm: radius}
	if name, present := c.GetQuery("product_name"); present {
		params.Name = &name
	}
	list, err := s.search.Nearby(c.Request.Context(), params)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

type priorityReq struct {
	OrderID          int64              `json:"order_id"`
	CourierLocations []domain.Candidate `json:"courier_locations"`
}

// @Summary Priority assignment
// @Description Ближайший к мерчанту заказа курьер; candidate null, если курьеров нет.
// @Tags orders
// @Accept json
// @Produce json
// @Param X-User-ID header int true "User ID"
// @Param input body priorityReq true "Order and courier locations"
// @Success 200 {object} domain.Assignment
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /custom/orders/priority-assignment [post]
func (s *Server) priorityAssignment(c *gin.Context) {
	var req priorityReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json: "+err.Error())
		return
	}
	a, err := s.priority.Assign(c.Request.Context(), req.OrderID, req.CourierLocations)
	if err != nil {
		writeError(c, err)
		return
	}
	if a == nil {
		c.JSON(http.StatusOK, gin.H{"order_id": req.OrderID, "candidate": nil})
		return
	}
	c.JSON(http.StatusOK, a)
}

// @Summary Order analytics
// @Description Сумма заказанного количества по товарам, по убыванию.
// @Tags orders
// @Produce json
// @Param merchant query int false "Merchant ID"
// @Param status query string false "Order status"
// @Success 200 {array} domain.ProductSales
// @Failure 400 {object} map[string]string
// @Router /custom/orders/analytics [get]
func (s *Server) orderAnalytics(c *gin.Context) {
	var f repository.SalesFilter
	var ok bool
	if f.MerchantID, ok = queryID(c, "merchant"); !ok {
		return
	}
	f.Status = domain.OrderStatus(c.Query("status"))
	list, err := s.orders.SalesByProduct(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
