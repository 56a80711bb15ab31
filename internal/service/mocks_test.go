package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/flicky/storefront-api/internal/model"
	"github.com/flicky/storefront-api/internal/repository"
)

type mockUserRepo struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{byID: make(map[int64]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Username == user.Username || u.Email == user.Email {
			return repository.ErrConflict
		}
	}
	m.nextID++
	user.ID = m.nextID
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	cp := *user
	m.byID[user.ID] = &cp
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) ExistsByUsernameOrEmail(_ context.Context, username, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Username == username || u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockUserRepo) Update(_ context.Context, id int64, upd repository.ProfileUpdate) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	if upd.Email != nil {
		for _, other := range m.byID {
			if other.ID != id && other.Email == *upd.Email {
				return nil, repository.ErrConflict
			}
		}
		u.Email = *upd.Email
	}
	if upd.PasswordHash != nil {
		u.Password = *upd.PasswordHash
	}
	if upd.Address != nil {
		u.Address = upd.Address
	}
	if upd.Phone != nil {
		u.Phone = upd.Phone
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.byID, id)
	return nil
}

type mockProductRepo struct {
	mu       sync.Mutex
	nextID   int64
	products map[int64]*model.Product
	// referenced marks products that cart items point at.
	referenced map[int64]bool
	categories map[int64]string
}

func newMockProductRepo() *mockProductRepo {
	return &mockProductRepo{
		products:   make(map[int64]*model.Product),
		referenced: make(map[int64]bool),
		categories: make(map[int64]string),
	}
}

func (m *mockProductRepo) add(p model.Product) *model.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	p.ID = m.nextID
	m.products[p.ID] = &p
	return &p
}

func (m *mockProductRepo) stock(id int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id].Stock
}

// maxPrice is the largest value a NUMERIC(12,2) column holds.
var maxPrice = decimal.RequireFromString("9999999999.99")

// overflows reports prices the products columns would reject with 22003.
func overflows(prices ...*decimal.Decimal) bool {
	for _, p := range prices {
		if p != nil && p.GreaterThan(maxPrice) {
			return true
		}
	}
	return false
}

func (m *mockProductRepo) Create(_ context.Context, product *model.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if overflows(&product.Price, &product.Discount.Decimal) {
		return repository.ErrOutOfRange
	}
	if product.CategoryID != nil {
		if _, ok := m.categories[*product.CategoryID]; !ok {
			return repository.ErrInvalidReference
		}
	}
	m.nextID++
	product.ID = m.nextID
	product.CreatedAt = time.Now()
	cp := *product
	m.products[product.ID] = &cp
	return nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id int64) (*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	if cp.CategoryID != nil {
		name := m.categories[*cp.CategoryID]
		cp.CategoryName = &name
	}
	return &cp, nil
}

func (m *mockProductRepo) List(_ context.Context, f repository.ProductFilter) ([]model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Product{}
	for _, p := range m.products {
		if f.CategoryName != "" && (p.CategoryID == nil || m.categories[*p.CategoryID] != f.CategoryName) {
			continue
		}
		if f.MinPrice != nil && !p.Price.GreaterThan(*f.MinPrice) {
			continue
		}
		if f.MaxPrice != nil && !p.Price.LessThan(*f.MaxPrice) {
			continue
		}
		if f.Name != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Name)) {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockProductRepo) Update(_ context.Context, id int64, upd repository.ProductUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if overflows(upd.Price, upd.Discount) {
		return repository.ErrOutOfRange
	}
	if upd.CategoryID != nil {
		if _, ok := m.categories[*upd.CategoryID]; !ok {
			return repository.ErrInvalidReference
		}
		p.CategoryID = upd.CategoryID
	}
	if upd.Name != nil {
		p.Name = *upd.Name
	}
	if upd.Price != nil {
		p.Price = *upd.Price
	}
	if upd.Stock != nil {
		p.Stock = *upd.Stock
	}
	return nil
}

func (m *mockProductRepo) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return pgx.ErrNoRows
	}
	if m.referenced[id] {
		return repository.ErrInvalidReference
	}
	delete(m.products, id)
	return nil
}

// mockCartRepo keeps the cart rules of the real store: one cart per user, at
// most one unpaid row per product, and all-or-nothing checkout.
type mockCartRepo struct {
	mu       sync.Mutex
	products *mockProductRepo
	nextCart int64
	nextItem int64
	carts    map[int64]*model.Cart // by user id
	items    []*model.CartItem
	// deletedUsers fail cart creation the way the users foreign key does.
	deletedUsers map[int64]bool
}

func newMockCartRepo(products *mockProductRepo) *mockCartRepo {
	return &mockCartRepo{
		products:     products,
		deletedUsers: make(map[int64]bool),
		carts:        make(map[int64]*model.Cart),
	}
}

func (m *mockCartRepo) GetOrCreateCart(_ context.Context, userID int64) (*model.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deletedUsers[userID] {
		return nil, repository.ErrInvalidReference
	}
	return m.cartLocked(userID), nil
}

func (m *mockCartRepo) cartLocked(userID int64) *model.Cart {
	if c, ok := m.carts[userID]; ok {
		return c
	}
	m.nextCart++
	c := &model.Cart{ID: m.nextCart, UserID: userID, CreatedAt: time.Now()}
	m.carts[userID] = c
	return c
}

func (m *mockCartRepo) GetCartByUserID(_ context.Context, userID int64) (*model.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.carts[userID], nil
}

func (m *mockCartRepo) AddItem(_ context.Context, item *model.CartItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.items {
		if existing.CartID == item.CartID && existing.ProductID == item.ProductID &&
			existing.Status == model.CartItemUnpaid {
			existing.Quantity += item.Quantity
			item.ID = existing.ID
			item.Quantity = existing.Quantity
			return nil
		}
	}
	m.nextItem++
	item.ID = m.nextItem
	item.Status = model.CartItemUnpaid
	cp := *item
	m.items = append(m.items, &cp)
	return nil
}

func (m *mockCartRepo) ListLines(ctx context.Context, userID int64, status model.CartItemStatus) ([]model.CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines := []model.CartLine{}
	cart, ok := m.carts[userID]
	if !ok {
		return lines, nil
	}
	for _, item := range m.items {
		if item.CartID != cart.ID || item.Status != status {
			continue
		}
		line := model.CartLine{CartItem: *item}
		if p, _ := m.products.GetByID(ctx, item.ProductID); p != nil {
			line.ProductName = p.Name
			line.Price = p.Price
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func (m *mockCartRepo) Checkout(_ context.Context, userID int64) (*model.CheckoutResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cart, ok := m.carts[userID]
	if !ok {
		return nil, nil
	}

	var pending []*model.CartItem
	for _, item := range m.items {
		if item.CartID == cart.ID && item.Status == model.CartItemUnpaid {
			pending = append(pending, item)
		}
	}
	result := &model.CheckoutResult{CartID: cart.ID, Items: []model.CartItem{}}
	if len(pending) == 0 {
		return result, nil
	}

	m.products.mu.Lock()
	defer m.products.mu.Unlock()
	for _, item := range pending {
		if m.products.products[item.ProductID].Stock < item.Quantity {
			return nil, repository.ErrInsufficientStock
		}
	}
	now := time.Now().UTC()
	for _, item := range pending {
		m.products.products[item.ProductID].Stock -= item.Quantity
		m.products.referenced[item.ProductID] = true
		item.Status = model.CartItemPaid
		item.PurchasedAt = &now
		result.Items = append(result.Items, *item)
	}
	result.PurchasedAt = now
	return result, nil
}

func (m *mockCartRepo) RemoveItem(_ context.Context, userID, itemID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cart, ok := m.carts[userID]
	if !ok {
		return pgx.ErrNoRows
	}
	for i, item := range m.items {
		if item.ID != itemID || item.CartID != cart.ID {
			continue
		}
		if item.Status == model.CartItemPaid {
			return repository.ErrItemPaid
		}
		m.items = append(m.items[:i], m.items[i+1:]...)
		return nil
	}
	return pgx.ErrNoRows
}

func (m *mockCartRepo) rows() []model.CartItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.CartItem, 0, len(m.items))
	for _, item := range m.items {
		out = append(out, *item)
	}
	return out
}

type mockCategoryRepo struct {
	mu         sync.Mutex
	nextID     int64
	categories []model.Category
}

func (m *mockCategoryRepo) Create(_ context.Context, category *model.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.categories {
		if c.Name == category.Name {
			return repository.ErrConflict
		}
	}
	m.nextID++
	category.ID = m.nextID
	m.categories = append(m.categories, *category)
	return nil
}

func (m *mockCategoryRepo) List(context.Context) ([]model.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Category{}, m.categories...), nil
}

type mockAdminRepo struct {
	totals  []model.PaidTotal
	users   []model.UserCart
	filters []repository.UserFilter
}

func (m *mockAdminRepo) PaidTotals(context.Context) ([]model.PaidTotal, error) {
	return m.totals, nil
}

func (m *mockAdminRepo) UsersWithCarts(_ context.Context, f repository.UserFilter) ([]model.UserCart, error) {
	m.filters = append(m.filters, f)
	return m.users, nil
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages []model.CheckoutMessage
	err      error
}

func (p *recordingPublisher) PublishCheckout(_ context.Context, msg model.CheckoutMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, msg)
	return nil
}
