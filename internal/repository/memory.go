package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"geomarket/internal/domain"
)

const defaultLockWait = 5 * time.Second

type invKey struct {
	merchantID int64
	productID  int64
}

type merchantRow struct {
	ID          int64
	UserID      int64
	Name        string
	AddressID   int64
	CategoryIDs []int64
	ZoneIDs     []int64
}

// MemoryStore объединённое in-memory хранилище и простой генератор ID.
//
// Транзакционными являются остатки и заказы: их изменения внутри WithTransaction
// буферизуются и применяются при коммите. Строки остатков защищены построчными
// блокировками, которые держатся до конца транзакции.
type MemoryStore struct {
	mu       sync.RWMutex
	lockWait time.Duration

	nextAddrID  int64
	nextCatID   int64
	nextZoneID  int64
	nextMerchID int64
	nextProdID  int64
	nextInvID   int64
	nextOrderID int64
	nextItemID  int64

	addresses    map[int64]domain.Address
	categories   map[int64]domain.Category
	zones        map[int64]domain.DeliveryZone
	merchants    map[int64]merchantRow
	productsByID map[int64]domain.Product
	inventory    map[invKey]domain.Inventory
	ordersByID   map[int64]domain.Order
	itemsByOrder map[int64][]domain.OrderItem
	rowLocks     map[invKey]chan struct{}
}

// MemoryOption настройка MemoryStore
type MemoryOption func(*MemoryStore)

// WithLockWait сколько ждать блокировку строки остатка до ErrLockTimeout
func WithLockWait(d time.Duration) MemoryOption {
	return func(m *MemoryStore) {
		if d > 0 {
			m.lockWait = d
		}
	}
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{
		lockWait:     defaultLockWait,
		nextAddrID:   1,
		nextCatID:    1,
		nextZoneID:   1,
		nextMerchID:  1,
		nextProdID:   1,
		nextInvID:    1,
		nextOrderID:  1,
		nextItemID:   1,
		addresses:    make(map[int64]domain.Address),
		categories:   make(map[int64]domain.Category),
		zones:        make(map[int64]domain.DeliveryZone),
		merchants:    make(map[int64]merchantRow),
		productsByID: make(map[int64]domain.Product),
		inventory:    make(map[invKey]domain.Inventory),
		ordersByID:   make(map[int64]domain.Order),
		itemsByOrder: make(map[int64][]domain.OrderItem),
		rowLocks:     make(map[invKey]chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Ensure interfaces
var (
	_ Store               = (*MemoryStore)(nil)
	_ CatalogRepository   = (*MemoryStore)(nil)
	_ ProductRepository   = (*MemoryStore)(nil)
	_ SpatialIndex        = (*MemoryStore)(nil)
	_ InventoryRepository = (*MemoryInventory)(nil)
	_ OrderRepository     = (*MemoryOrders)(nil)
	_ TxManager           = (*MemoryTx)(nil)
)

func (m *MemoryStore) Catalog() CatalogRepository { return m }
func (m *MemoryStore) Products() ProductRepository { return m }
func (m *MemoryStore) Spatial() SpatialIndex { return m }
func (m *MemoryStore) Inventory() InventoryRepository { return NewMemoryInventory(m) }
func (m *MemoryStore) Orders() OrderRepository { return NewMemoryOrders(m) }
func (m *MemoryStore) Tx() TxManager { return NewMemoryTx(m) }

// состояние транзакции живёт в контексте
type txKey struct{}

type memTx struct {
	locks  map[invKey]chan struct{}
	stock  map[invKey]domain.Inventory
	orders map[int64]domain.Order
	items  map[int64][]domain.OrderItem
}

func newMemTx() *memTx {
	return &memTx{
		locks:  make(map[invKey]chan struct{}),
		stock:  make(map[invKey]domain.Inventory),
		orders: make(map[int64]domain.Order),
		items:  make(map[int64][]domain.OrderItem),
	}
}

func txFrom(ctx context.Context) *memTx {
	tx, _ := ctx.Value(txKey{}).(*memTx)
	return tx
}

// lockRow ждёт эксклюзивный доступ к строке остатка; повторный захват в той же транзакции no-op
func (m *MemoryStore) lockRow(ctx context.Context, tx *memTx, key invKey) error {
	if _, ok := tx.locks[key]; ok {
		return nil
	}
	m.mu.Lock()
	ch, ok := m.rowLocks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		m.rowLocks[key] = ch
	}
	m.mu.Unlock()

	timer := time.NewTimer(m.lockWait)
	defer timer.Stop()
	select {
	case ch <- struct{}{}:
		tx.locks[key] = ch
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("%w: inventory merchant=%d product=%d", domain.ErrLockTimeout, key.merchantID, key.productID)
	}
}

// commit применяет буфер. Ссылки перепроверяются под общим замком: товар или
// мерчант мог быть удалён, пока транзакция шла, и тогда она откатывается целиком.
func (m *MemoryStore) commit(tx *memTx) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range tx.stock {
		if p, ok := m.productsByID[k.productID]; !ok || p.MerchantID != k.merchantID {
			return fmt.Errorf("%w: %d", domain.ErrProductNotFound, k.productID)
		}
	}
	for _, o := range tx.orders {
		if _, ok := m.merchants[o.MerchantID]; !ok {
			return fmt.Errorf("%w: %d", domain.ErrMerchantNotFound, o.MerchantID)
		}
		if _, ok := m.addresses[o.AddressID]; !ok {
			return fmt.Errorf("%w: %d", domain.ErrAddressNotFound, o.AddressID)
		}
	}
	for _, items := range tx.items {
		for _, it := range items {
			if _, ok := m.productsByID[it.ProductID]; !ok {
				return fmt.Errorf("%w: %d", domain.ErrProductNotFound, it.ProductID)
			}
		}
	}
	for k, inv := range tx.stock {
		m.inventory[k] = inv
	}
	for id, o := range tx.orders {
		m.ordersByID[id] = o
	}
	for id, items := range tx.items {
		m.itemsByOrder[id] = append(m.itemsByOrder[id], items...)
	}
	return nil
}

func (m *MemoryStore) release(tx *memTx) {
	for _, ch := range tx.locks {
		<-ch
	}
	tx.locks = nil
}

// inTx выполняет fn в текущей транзакции или в собственной, если её нет
func (m *MemoryStore) inTx(ctx context.Context, fn func(ctx context.Context, tx *memTx) error) error {
	return NewMemoryTx(m).WithTransaction(ctx, func(ctx context.Context) error {
		return fn(ctx, txFrom(ctx))
	})
}

// Tx manager: буфер изменений + построчные блокировки остатков
type MemoryTx struct{ store *MemoryStore }

func NewMemoryTx(store *MemoryStore) *MemoryTx { return &MemoryTx{store: store} }

func (t *MemoryTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	// вложенный вызов присоединяется к внешней транзакции
	if txFrom(ctx) != nil {
		return fn(ctx)
	}
	tx := newMemTx()
	// блокировки отпускаются и при ошибке, и при панике; буфер просто выбрасывается
	defer t.store.release(tx)
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	return t.store.commit(tx)
}

// CatalogRepository implementation

func (m *MemoryStore) Ping(ctx context.Context) error { return nil }

func (m *MemoryStore) CreateAddress(ctx context.Context, a *domain.Address) error {
	if err := a.Location.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = m.nextAddrID
	m.nextAddrID++
	m.addresses[a.ID] = *a
	return nil
}

func (m *MemoryStore) GetAddress(ctx context.Context, id int64) (*domain.Address, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.addresses[id]
	if !ok {
		return nil, domain.ErrAddressNotFound
	}
	return &a, nil
}

func (m *MemoryStore) CreateCategory(ctx context.Context, c *domain.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.categories {
		if existing.Name == c.Name {
			return fmt.Errorf("%w: category %q exists", domain.ErrConflict, c.Name)
		}
	}
	c.ID = m.nextCatID
	m.nextCatID++
	m.categories[c.ID] = *c
	return nil
}

func (m *MemoryStore) ListCategories(ctx context.Context) ([]domain.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Category, 0, len(m.categories))
	for _, c := range m.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) DeleteCategory(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.categories[id]; !ok {
		return domain.ErrCategoryNotFound
	}
	for _, p := range m.productsByID {
		if p.CategoryID == id {
			return fmt.Errorf("%w: category %d has products", domain.ErrInUse, id)
		}
	}
	delete(m.categories, id)
	for mid, row := range m.merchants {
		row.CategoryIDs = removeID(row.CategoryIDs, id)
		m.merchants[mid] = row
	}
	return nil
}

func (m *MemoryStore) CreateDeliveryZone(ctx context.Context, z *domain.DeliveryZone) error {
	if err := z.Area.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	z.ID = m.nextZoneID
	m.nextZoneID++
	m.zones[z.ID] = *z
	return nil
}

func (m *MemoryStore) GetDeliveryZone(ctx context.Context, id int64) (*domain.DeliveryZone, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	z, ok := m.zones[id]
	if !ok {
		return nil, domain.ErrZoneNotFound
	}
	return &z, nil
}

func (m *MemoryStore) ListDeliveryZones(ctx context.Context) ([]domain.DeliveryZone, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.DeliveryZone, 0, len(m.zones))
	for _, z := range m.zones {
		out = append(out, z)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) DeleteDeliveryZone(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.zones[id]; !ok {
		return domain.ErrZoneNotFound
	}
	delete(m.zones, id)
	for mid, row := range m.merchants {
		row.ZoneIDs = removeID(row.ZoneIDs, id)
		m.merchants[mid] = row
	}
	return nil
}

func (m *MemoryStore) checkZonesLocked(ids []int64) error {
	for _, id := range ids {
		if _, ok := m.zones[id]; !ok {
			return fmt.Errorf("%w: %d", domain.ErrZoneNotFound, id)
		}
	}
	return nil
}

func (m *MemoryStore) checkCategoriesLocked(ids []int64) error {
	for _, id := range ids {
		if _, ok := m.categories[id]; !ok {
			return fmt.Errorf("%w: %d", domain.ErrCategoryNotFound, id)
		}
	}
	return nil
}

func (m *MemoryStore) CreateMerchant(ctx context.Context, mr *domain.Merchant) error {
	if err := mr.Address.Location.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.merchants {
		if row.UserID == mr.UserID {
			return fmt.Errorf("%w: user %d already has merchant %d", domain.ErrConflict, mr.UserID, row.ID)
		}
	}
	if err := m.checkCategoriesLocked(mr.CategoryIDs); err != nil {
		return err
	}
	if err := m.checkZonesLocked(mr.DeliveryZoneIDs); err != nil {
		return err
	}
	mr.Address.ID = m.nextAddrID
	m.nextAddrID++
	m.addresses[mr.Address.ID] = mr.Address

	mr.ID = m.nextMerchID
	m.nextMerchID++
	m.merchants[mr.ID] = merchantRow{
		ID:          mr.ID,
		UserID:      mr.UserID,
		Name:        mr.Name,
		AddressID:   mr.Address.ID,
		CategoryIDs: append([]int64(nil), mr.CategoryIDs...),
		ZoneIDs:     append([]int64(nil), mr.DeliveryZoneIDs...),
	}
	return nil
}

func (m *MemoryStore) merchantLocked(row merchantRow) domain.Merchant {
	return domain.Merchant{
		ID:              row.ID,
		UserID:          row.UserID,
		Name:            row.Name,
		Address:         m.addresses[row.AddressID],
		CategoryIDs:     append([]int64{}, row.CategoryIDs...),
		DeliveryZoneIDs: append([]int64{}, row.ZoneIDs...),
	}
}

func (m *MemoryStore) GetMerchant(ctx context.Context, id int64) (*domain.Merchant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	row, ok := m.merchants[id]
	if !ok {
		return nil, domain.ErrMerchantNotFound
	}
	mr := m.merchantLocked(row)
	return &mr, nil
}

func (m *MemoryStore) ListMerchants(ctx context.Context) ([]domain.Merchant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Merchant, 0, len(m.merchants))
	for _, row := range m.merchants {
		out = append(out, m.merchantLocked(row))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) UpdateMerchant(ctx context.Context, mr *domain.Merchant) error {
	if err := mr.Address.Location.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.merchants[mr.ID]
	if !ok {
		return domain.ErrMerchantNotFound
	}
	if err := m.checkCategoriesLocked(mr.CategoryIDs); err != nil {
		return err
	}
	if err := m.checkZonesLocked(mr.DeliveryZoneIDs); err != nil {
		return err
	}
	mr.UserID = row.UserID
	mr.Address.ID = row.AddressID
	m.addresses[row.AddressID] = mr.Address
	row.Name = mr.Name
	row.CategoryIDs = append([]int64(nil), mr.CategoryIDs...)
	row.ZoneIDs = append([]int64(nil), mr.DeliveryZoneIDs...)
	m.merchants[mr.ID] = row
	return nil
}

// DeleteMerchant сначала блокирует строки остатков всех товаров мерчанта: идущее
// оформление заказа успевает закоммититься, и его позиции видны проверке ссылок.
func (m *MemoryStore) DeleteMerchant(ctx context.Context, id int64) error {
	return m.inTx(ctx, func(ctx context.Context, tx *memTx) error {
		m.mu.RLock()
		_, ok := m.merchants[id]
		keys := make([]invKey, 0)
		for pid, p := range m.productsByID {
			if p.MerchantID == id {
				keys = append(keys, invKey{merchantID: id, productID: pid})
			}
		}
		m.mu.RUnlock()
		if !ok {
			return domain.ErrMerchantNotFound
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i].productID < keys[j].productID })
		for _, k := range keys {
			if err := m.lockRow(ctx, tx, k); err != nil {
				return err
			}
		}
		return m.deleteMerchantLocked(tx, id)
	})
}

func (m *MemoryStore) deleteMerchantLocked(tx *memTx, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.merchants[id]
	if !ok {
		return domain.ErrMerchantNotFound
	}
	// заказы мерчанта уходят каскадом; чужие заказы держат его товары и адрес
	for oid, o := range m.ordersByID {
		if o.MerchantID == id {
			continue
		}
		if o.AddressID == row.AddressID {
			return fmt.Errorf("%w: address %d referenced by order %d", domain.ErrInUse, row.AddressID, oid)
		}
		for _, it := range m.itemsByOrder[oid] {
			if p, ok := m.productsByID[it.ProductID]; ok && p.MerchantID == id {
				return fmt.Errorf("%w: product %d referenced by order %d", domain.ErrInUse, p.ID, oid)
			}
		}
	}
	for oid, items := range tx.items {
		if o, staged := tx.orders[oid]; staged && o.MerchantID == id {
			continue
		}
		for _, it := range items {
			if p, ok := m.productsByID[it.ProductID]; ok && p.MerchantID == id {
				return fmt.Errorf("%w: product %d referenced by order %d", domain.ErrInUse, p.ID, oid)
			}
		}
	}
	for oid, o := range m.ordersByID {
		if o.MerchantID == id {
			delete(m.ordersByID, oid)
			delete(m.itemsByOrder, oid)
		}
	}
	for k := range m.inventory {
		if k.merchantID == id {
			delete(m.inventory, k)
		}
	}
	for k := range tx.stock {
		if k.merchantID == id {
			delete(tx.stock, k)
		}
	}
	for pid, p := range m.productsByID {
		if p.MerchantID == id {
			delete(m.productsByID, pid)
		}
	}
	delete(m.addresses, row.AddressID)
	delete(m.merchants, id)
	return nil
}

// ProductRepository implementation

func (m *MemoryStore) checkProductRefsLocked(p *domain.Product) error {
	if _, ok := m.merchants[p.MerchantID]; !ok {
		return domain.ErrMerchantNotFound
	}
	if _, ok := m.categories[p.CategoryID]; !ok {
		return domain.ErrCategoryNotFound
	}
	for _, other := range m.productsByID {
		if other.ID != p.ID && other.Name == p.Name && other.MerchantID == p.MerchantID && other.CategoryID == p.CategoryID {
			return fmt.Errorf("%w: product %q already exists for merchant %d", domain.ErrConflict, p.Name, p.MerchantID)
		}
	}
	return nil
}

func (m *MemoryStore) Create(ctx context.Context, p *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkProductRefsLocked(p); err != nil {
		return err
	}
	p.ID = m.nextProdID
	m.nextProdID++
	p.CreatedAt = time.Now().UTC()
	m.productsByID[p.ID] = *p
	return nil
}

func (m *MemoryStore) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.productsByID[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	// return copy
	cp := p
	return &cp, nil
}

func (m *MemoryStore) Update(ctx context.Context, p *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.productsByID[p.ID]
	if !ok {
		return domain.ErrProductNotFound
	}
	if err := m.checkProductRefsLocked(p); err != nil {
		return err
	}
	p.CreatedAt = old.CreatedAt
	m.productsByID[p.ID] = *p
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id int64) error {
	return m.inTx(ctx, func(ctx context.Context, tx *memTx) error {
		m.mu.RLock()
		p, ok := m.productsByID[id]
		m.mu.RUnlock()
		if !ok {
			return domain.ErrProductNotFound
		}
		key := invKey{merchantID: p.MerchantID, productID: id}
		if err := m.lockRow(ctx, tx, key); err != nil {
			return err
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		if _, ok := m.productsByID[id]; !ok {
			return domain.ErrProductNotFound
		}
		for _, orders := range []map[int64][]domain.OrderItem{m.itemsByOrder, tx.items} {
			for oid, items := range orders {
				for _, it := range items {
					if it.ProductID == id {
						return fmt.Errorf("%w: product %d referenced by order %d", domain.ErrInUse, id, oid)
					}
				}
			}
		}
		delete(m.inventory, key)
		delete(tx.stock, key)
		delete(m.productsByID, id)
		return nil
	})
}

func (m *MemoryStore) List(ctx context.Context, f ProductFilter) ([]domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Product, 0)
	for _, p := range m.productsByID {
		if f.MerchantID != 0 && p.MerchantID != f.MerchantID {
			continue
		}
		if f.CategoryID != 0 && p.CategoryID != f.CategoryID {
			continue
		}
		if f.PublishedOnly && !p.IsPublished {
			continue
		}
		if !containsIgnoreCase(p.Name, f.NameSubstring) {
			continue
		}
		if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
			continue
		}
		if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SpatialIndex implementation: полный перебор с haversine

func (m *MemoryStore) Nearby(ctx context.Context, q NearbyQuery) ([]domain.NearbyProduct, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.NearbyProduct, 0)
	for _, p := range m.productsByID {
		if !p.IsPublished || !containsIgnoreCase(p.Name, q.NameContains) {
			continue
		}
		row, ok := m.merchants[p.MerchantID]
		if !ok {
			continue
		}
		d := q.Center.DistanceKm(m.addresses[row.AddressID].Location)
		if d > q.RadiusKm {
			continue
		}
		out = append(out, domain.NearbyProduct{Product: p, MerchantName: row.Name, DistanceKm: d})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DistanceKm != out[j].DistanceKm {
			return out[i].DistanceKm < out[j].DistanceKm
		}
		return out[i].ID < out[j].ID
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// InventoryRepository implementation on wrapper type
type MemoryInventory struct{ store *MemoryStore }

func NewMemoryInventory(store *MemoryStore) *MemoryInventory { return &MemoryInventory{store: store} }

func (mi *MemoryInventory) read(tx *memTx, key invKey) (domain.Inventory, bool) {
	if tx != nil {
		if inv, ok := tx.stock[key]; ok {
			return inv, true
		}
	}
	mi.store.mu.RLock()
	defer mi.store.mu.RUnlock()
	inv, ok := mi.store.inventory[key]
	return inv, ok
}

func (mi *MemoryInventory) Get(ctx context.Context, merchantID, productID int64) (*domain.Inventory, error) {
	inv, ok := mi.read(txFrom(ctx), invKey{merchantID, productID})
	if !ok {
		return nil, domain.ErrInventoryNotFound
	}
	return &inv, nil
}

func (mi *MemoryInventory) GetForUpdate(ctx context.Context, merchantID, productID int64) (*domain.Inventory, error) {
	tx := txFrom(ctx)
	if tx == nil {
		return nil, ErrNoTransaction
	}
	key := invKey{merchantID, productID}
	if err := mi.store.lockRow(ctx, tx, key); err != nil {
		return nil, err
	}
	inv, ok := mi.read(tx, key)
	if !ok {
		return nil, domain.ErrInventoryNotFound
	}
	return &inv, nil
}

func (mi *MemoryInventory) UpdateStock(ctx context.Context, inv *domain.Inventory) error {
	if inv.Stock < 0 {
		return domain.ErrInvalidQuantity
	}
	return mi.store.inTx(ctx, func(ctx context.Context, tx *memTx) error {
		key := invKey{inv.MerchantID, inv.ProductID}
		if err := mi.store.lockRow(ctx, tx, key); err != nil {
			return err
		}
		cur, ok := mi.read(tx, key)
		if !ok {
			return domain.ErrInventoryNotFound
		}
		cur.Stock = inv.Stock
		cur.UpdatedAt = time.Now().UTC()
		tx.stock[key] = cur
		*inv = cur
		return nil
	})
}

func (mi *MemoryInventory) SetStock(ctx context.Context, merchantID, productID, stock int64) (*domain.Inventory, error) {
	if stock < 0 {
		return nil, domain.ErrInvalidQuantity
	}
	var out domain.Inventory
	err := mi.store.inTx(ctx, func(ctx context.Context, tx *memTx) error {
		key := invKey{merchantID, productID}
		if err := mi.store.lockRow(ctx, tx, key); err != nil {
			return err
		}
		inv, ok := mi.read(tx, key)
		if !ok {
			mi.store.mu.Lock()
			p, exists := mi.store.productsByID[productID]
			if !exists || p.MerchantID != merchantID {
				mi.store.mu.Unlock()
				return domain.ErrProductNotFound
			}
			inv = domain.Inventory{ID: mi.store.nextInvID, MerchantID: merchantID, ProductID: productID}
			mi.store.nextInvID++
			mi.store.mu.Unlock()
		}
		inv.Stock = stock
		inv.UpdatedAt = time.Now().UTC()
		tx.stock[key] = inv
		out = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (mi *MemoryInventory) ListByMerchant(ctx context.Context, merchantID int64) ([]domain.Inventory, error) {
	mi.store.mu.RLock()
	defer mi.store.mu.RUnlock()
	out := make([]domain.Inventory, 0)
	for k, inv := range mi.store.inventory {
		if k.merchantID == merchantID {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

// OrderRepository implementation on wrapper type
type MemoryOrders struct{ store *MemoryStore }

func NewMemoryOrders(store *MemoryStore) *MemoryOrders { return &MemoryOrders{store: store} }

func (mo *MemoryOrders) Create(ctx context.Context, o *domain.Order) error {
	mo.store.mu.Lock()
	if _, ok := mo.store.merchants[o.MerchantID]; !ok {
		mo.store.mu.Unlock()
		return domain.ErrMerchantNotFound
	}
	if _, ok := mo.store.addresses[o.AddressID]; !ok {
		mo.store.mu.Unlock()
		return domain.ErrAddressNotFound
	}
	o.ID = mo.store.nextOrderID
	mo.store.nextOrderID++
	o.CreatedAt = time.Now().UTC()
	o.UpdatedAt = o.CreatedAt
	row := *o
	row.Items = nil
	if tx := txFrom(ctx); tx != nil {
		mo.store.mu.Unlock()
		tx.orders[o.ID] = row
		return nil
	}
	mo.store.ordersByID[o.ID] = row
	mo.store.mu.Unlock()
	return nil
}

func (mo *MemoryOrders) exists(tx *memTx, id int64) bool {
	if tx != nil {
		if _, ok := tx.orders[id]; ok {
			return true
		}
	}
	mo.store.mu.RLock()
	defer mo.store.mu.RUnlock()
	_, ok := mo.store.ordersByID[id]
	return ok
}

// AddItems присваивает ID позициям прямо в переданном срезе
func (mo *MemoryOrders) AddItems(ctx context.Context, orderID int64, items []domain.OrderItem) error {
	tx := txFrom(ctx)
	if !mo.exists(tx, orderID) {
		return domain.ErrOrderNotFound
	}
	mo.store.mu.Lock()
	for i := range items {
		if _, ok := mo.store.productsByID[items[i].ProductID]; !ok {
			mo.store.mu.Unlock()
			return fmt.Errorf("%w: %d", domain.ErrProductNotFound, items[i].ProductID)
		}
	}
	for i := range items {
		items[i].ID = mo.store.nextItemID
		items[i].OrderID = orderID
		mo.store.nextItemID++
	}
	if tx == nil {
		mo.store.itemsByOrder[orderID] = append(mo.store.itemsByOrder[orderID], items...)
		mo.store.mu.Unlock()
		return nil
	}
	mo.store.mu.Unlock()
	tx.items[orderID] = append(tx.items[orderID], items...)
	return nil
}

func (mo *MemoryOrders) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	tx := txFrom(ctx)
	mo.store.mu.RLock()
	o, ok := mo.store.ordersByID[id]
	items := append([]domain.OrderItem{}, mo.store.itemsByOrder[id]...)
	mo.store.mu.RUnlock()
	if tx != nil {
		if staged, found := tx.orders[id]; found {
			o, ok = staged, true
		}
		items = append(items, tx.items[id]...)
	}
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	o.Items = items
	return &o, nil
}

// Update меняет только статус и сумму; позиции неизменны
func (mo *MemoryOrders) Update(ctx context.Context, o *domain.Order) error {
	tx := txFrom(ctx)
	if tx != nil {
		if cur, ok := tx.orders[o.ID]; ok {
			cur.Status = o.Status
			cur.Total = o.Total
			cur.UpdatedAt = time.Now().UTC()
			tx.orders[o.ID] = cur
			o.UpdatedAt = cur.UpdatedAt
			return nil
		}
	}
	mo.store.mu.Lock()
	defer mo.store.mu.Unlock()
	cur, ok := mo.store.ordersByID[o.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	cur.Status = o.Status
	cur.Total = o.Total
	cur.UpdatedAt = time.Now().UTC()
	o.UpdatedAt = cur.UpdatedAt
	if tx != nil {
		tx.orders[o.ID] = cur
		return nil
	}
	mo.store.ordersByID[o.ID] = cur
	return nil
}

func (mo *MemoryOrders) List(ctx context.Context, f OrderFilter) ([]domain.Order, error) {
	mo.store.mu.RLock()
	defer mo.store.mu.RUnlock()
	out := make([]domain.Order, 0)
	for id, o := range mo.store.ordersByID {
		if f.UserID != 0 && o.UserID != f.UserID {
			continue
		}
		if f.MerchantID != 0 && o.MerchantID != f.MerchantID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		o.Items = append([]domain.OrderItem{}, mo.store.itemsByOrder[id]...)
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (mo *MemoryOrders) SalesByProduct(ctx context.Context, f SalesFilter) ([]domain.ProductSales, error) {
	mo.store.mu.RLock()
	defer mo.store.mu.RUnlock()
	byProduct := make(map[int64]*domain.ProductSales)
	seen := make(map[[2]int64]struct{})
	for oid, o := range mo.store.ordersByID {
		if f.MerchantID != 0 && o.MerchantID != f.MerchantID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		for _, it := range mo.store.itemsByOrder[oid] {
			row, ok := byProduct[it.ProductID]
			if !ok {
				row = &domain.ProductSales{ProductID: it.ProductID, ProductName: mo.store.productsByID[it.ProductID].Name}
				byProduct[it.ProductID] = row
			}
			row.TotalQuantity += it.Quantity
			if _, dup := seen[[2]int64{oid, it.ProductID}]; !dup {
				seen[[2]int64{oid, it.ProductID}] = struct{}{}
				row.OrderCount++
			}
		}
	}
	out := make([]domain.ProductSales, 0, len(byProduct))
	for _, row := range byProduct {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalQuantity != out[j].TotalQuantity {
			return out[i].TotalQuantity > out[j].TotalQuantity
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out, nil
}

func removeID(ids []int64, id int64) []int64 {
	out := ids[:0:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
