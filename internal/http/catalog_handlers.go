package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"geomarket/internal/domain"
)

type addressReq struct {
	Line1      string           `json:"line1"`
	Line2      string           `json:"line2"`
	City       string           `json:"city"`
	State      string           `json:"state"`
	PostalCode string           `json:"postal_code"`
	Country    string           `json:"country"`
	Location   *domain.GeoPoint `json:"location" swaggertype:"object"`
}

// toDomain location обязателен: без него адрес оказался бы в точке (0, 0)
func (r addressReq) toDomain() (domain.Address, error) {
	if r.Location == nil {
		return domain.Address{}, fmt.Errorf("%w: location is required", domain.ErrInvalidGeometry)
	}
	return domain.Address{
		Line1:      r.Line1,
		Line2:      r.Line2,
		City:       r.City,
		State:      r.State,
		PostalCode: r.PostalCode,
		Country:    r.Country,
		Location:   *r.Location,
	}, nil
}

// @Summary Create address
// @Tags addresses
// @Accept json
// @Produce json
// @Param X-User-ID header int true "User ID"
// @Param input body addressReq true "Address with GeoJSON location"
// @Success 201 {object} domain.Address
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /addresses [post]
func (s *Server) createAddress(c *gin.Context) {
	var req addressReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json: "+err.Error())
		return
	}
	addr, err := req.toDomain()
	if err != nil {
		writeError(c, err)
		return
	}
	a, err := s.catalog.CreateAddress(c.Request.Context(), addr)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

// @Summary Get address by id
// @Tags addresses
// @Produce json
// @Param id path int true "Address ID"
// @Success 200 {object} domain.Address
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /addresses/{id} [get]
func (s *Server) getAddress(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	a, err := s.catalog.GetAddress(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

type createCategoryReq struct {
	Name string `json:"name"`
}

// @Summary Create category
// @Tags categories
// @Accept json
// @Produce json
// @Param X-User-ID header int true "User ID"
// @Param input body createCategoryReq true "Category"
// @Success 201 {object} domain.Category
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /categories [post]
func (s *Server) createCategory(c *gin.Context) {
	var req createCategoryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	cat, err := s.catalog.CreateCategory(c.Request.Context(), req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cat)
}

// @Summary List categories
// @Tags categories
// @Produce json
// @Success 200 {array} domain.Category
// @Router /categories [get]
func (s *Server) listCategories(c *gin.Context) {
	list, err := s.catalog.ListCategories(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary Delete category
// @Tags categories
// @Param X-User-ID header int true "User ID"
// @Param id path int true "Category ID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /categories/{id} [delete]
func (s *Server) deleteCategory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.catalog.DeleteCategory(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type deliveryZoneReq struct {
	Name string             `json:"name"`
	Area *domain.GeoPolygon `json:"area" swaggertype:"object"`
}

// @Summary Create delivery zone
// @Tags delivery-zones
// @Accept json
// @Produce json
// @Param X-User-ID header int true "User ID"
// @Param input body deliveryZoneReq true "Zone with GeoJSON polygon"
// @Success 201 {object} domain.DeliveryZone
// @Failure 400 {object} map[string]string
// @Router /delivery-zones [post]
func (s *Server) createDeliveryZone(c *gin.Context) {
	var req deliveryZoneReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
		return
	}
	if req.Area == nil {
		writeError(c, fmt.Errorf("%w: area is required", domain.ErrInvalidGeometry))
		return
	}
	z, err := s.catalog.CreateDeliveryZone(c.Request.Context(), domain.DeliveryZone{Name: req.Name, Area: *req.Area})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, z)
}

// @Summary List delivery zones
// @Tags delivery-zones
// @Produce json
// @Success 200 {array} domain.DeliveryZone
// @Router /delivery-zones [get]
func (s *Server) listDeliveryZones(c *gin.Context) {
	list, err := s.catalog.ListDeliveryZones(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary Get delivery zone by id
// @Tags delivery-zones
// @Produce json
// @Param id path int true "Zone ID"
// @Success 200 {object} domain.DeliveryZone
// @Failure 404 {object} map[string]string
// @Router /delivery-zones/{id} [get]
func (s *Server) getDeliveryZone(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	z, err := s.catalog.GetDeliveryZone(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, z)
}

// @Summary Delete delivery zone
// @Description Зона отвязывается от всех мерчантов.
// @Tags delivery-zones
// @Param X-User-ID header int true "User ID"
// @Param id path int true "Zone ID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /delivery-zones/{id} [delete]
func (s *Server) deleteDeliveryZone(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.catalog.DeleteDeliveryZone(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type merchantReq struct {
	Name          string     `json:"name"`
	Address       addressReq `json:"address"`
	Categories    []int64    `json:"categories"`
	DeliveryZones []int64    `json:"delivery_zones"`
}

func (r merchantReq) toDomain(id, userID int64) (domain.Merchant, error) {
	addr, err := r.Address.toDomain()
	if err != nil {
		return domain.Merchant{}, err
	}
	return domain.Merchant{
		ID:              id,
		UserID:          userID,
		Name:            r.Name,
		Address:         addr,
		CategoryIDs:     r.Categories,
		DeliveryZoneIDs: r.DeliveryZones,
	}, nil
}

// @Summary Create merchant
// @Description Один мерчант на пользователя; повторная регистрация даёт 409.
// @Tags merchants
// @Accept json
// @Produce json
// @Param X-User-ID header int true "User ID"
// @Param input body merchantReq true "Merchant"
// @Success 201 {object} domain.Merchant
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /merchants [post]
func (s *Server) createMerchant(c *gin.Context) {
	var req merchantReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json: "+err.Error())
		return
	}
	m, err := req.toDomain(0, userID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	created, err := s.catalog.CreateMerchant(c.Request.Context(), m)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// @Summary Get merchant by id
// @Tags merchants
// @Produce json
// @Param id path int true "Merchant ID"
// @Success 200 {object} domain.Merchant
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /merchants/{id} [get]
func (s *Server) getMerchant(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	m, err := s.catalog.GetMerchant(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// @Summary List merchants
// @Tags merchants
// @Produce json
// @Success 200 {array} domain.Merchant
// @Router /merchants [get]
func (s *Server) listMerchants(c *gin.Context) {
	list, err := s.catalog.ListMerchants(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary Update merchant
// @Tags merchants
// @Accept json
// @Produce json
// @Param X-User-ID header int true "User ID"
// @Param id path int true "Merchant ID"
// @Param input body merchantReq true "Merchant"
// @Success 200 {object} domain.Merchant
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /merchants/{id} [put]
func (s *Server) updateMerchant(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req merchantReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json: "+err.Error())
		return
	}
	m, err := req.toDomain(id, 0)
	if err != nil {
		writeError(c, err)
		return
	}
	updated, err := s.catalog.UpdateMerchant(c.Request.Context(), m)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// @Summary Delete merchant
// @Description Каскадно удаляет товары, остатки, заказы и адрес мерчанта.
// @Tags merchants
// @Param X-User-ID header int true "User ID"
// @Param id path int true "Merchant ID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /merchants/{id} [delete]
func (s *Server) deleteMerchant(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.catalog.DeleteMerchant(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
