package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Fintoc-PepeStore2-0/Backend/internal/domain/model"
	eventModel "github.com/Fintoc-PepeStore2-0/Backend/internal/domain/model/event"
	"github.com/Fintoc-PepeStore2-0/Backend/internal/infra/payment"
	"github.com/Fintoc-PepeStore2-0/Backend/internal/infra/repository/db"
	"github.com/shopspring/decimal"
)

// memStore backs every repository interface with maps behind one mutex.
type memStore struct {
	mu sync.Mutex

	products map[uint]*model.Product
	users    map[uint]*model.User
	carts    map[uint]*model.Cart // by user id
	items    map[uint]*model.CartItem
	orders   map[uint]*model.Order

	nextCartID  uint
	nextItemID  uint
	nextOrderID uint

	// forcedConflicts makes the next n compare-and-set calls lose.
	forcedConflicts int
	casCalls        int
	// beforeApply runs once inside ApplyReconciliation, before the write.
	beforeApply func()
	// beforeCAS runs once at the start of CompareAndSetQuantity, unlocked.
	beforeCAS func()
}

func newMemStore() *memStore {
	return &memStore{
		products: map[uint]*model.Product{},
		users:    map[uint]*model.User{},
		carts:    map[uint]*model.Cart{},
		items:    map[uint]*model.CartItem{},
		orders:   map[uint]*model.Order{},
	}
}

func (m *memStore) addProduct(id uint, price int64, stock int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[id] = &model.Product{
		ID:       id,
		Name:     fmt.Sprintf("product-%d", id),
		Price:    decimal.NewFromInt(price),
		Stock:    stock,
		ImageURL: fmt.Sprintf("https://img.example/%d.png", id),
	}
}

func (m *memStore) addUser(id uint, email string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id] = &model.User{ID: id, Email: email, Role: "client"}
}

func (m *memStore) quantity(userID, productID uint) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	cart, ok := m.carts[userID]
	if !ok {
		return 0
	}
	if item := m.findItem(cart.ID, productID); item != nil {
		return item.Quantity
	}
	return 0
}

func (m *memStore) orderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

func (m *memStore) findItem(cartID, productID uint) *model.CartItem {
	for _, item := range m.items {
		if item.CartID == cartID && item.ProductID == productID {
			return item
		}
	}
	return nil
}

// products

func (m *memStore) GetProductByID(ctx context.Context, productID uint) (*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	if !ok {
		return nil, db.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) GetReservedTotal(ctx context.Context, productID uint) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, item := range m.items {
		if item.ProductID == productID {
			total += item.Quantity
		}
	}
	return total, nil
}

func (m *memStore) UpsertProductByName(ctx context.Context, product *model.Product) error {
	return fmt.Errorf("not supported")
}

func (m *memStore) UpdateStock(ctx context.Context, productID uint, stock int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	if !ok {
		return db.ErrProductNotFound
	}
	p.Stock = stock
	return nil
}

// carts

func (m *memStore) EnsureCart(ctx context.Context, userID uint) (*model.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ensureCart(userID), nil
}

func (m *memStore) ensureCart(userID uint) *model.Cart {
	cart, ok := m.carts[userID]
	if !ok {
		m.nextCartID++
		cart = &model.Cart{ID: m.nextCartID, UserID: userID}
		m.carts[userID] = cart
	}
	cp := *cart
	return &cp
}

func (m *memStore) GetCartWithItems(ctx context.Context, userID uint) (*model.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cart := m.ensureCart(userID)
	for _, item := range m.items {
		if item.CartID != cart.ID {
			continue
		}
		cp := *item
		if p, ok := m.products[item.ProductID]; ok {
			cp.Product = *p
		}
		cart.Items = append(cart.Items, cp)
	}
	sort.Slice(cart.Items, func(i, j int) bool { return cart.Items[i].ID < cart.Items[j].ID })
	return cart, nil
}

func (m *memStore) GetItemQuantity(ctx context.Context, cartID, productID uint) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item := m.findItem(cartID, productID); item != nil {
		return item.Quantity, nil
	}
	return 0, nil
}

func (m *memStore) GetItem(ctx context.Context, cartID, itemID uint) (*model.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[itemID]
	if !ok || item.CartID != cartID {
		return nil, db.ErrCartItemNotFound
	}
	cp := *item
	return &cp, nil
}

func (m *memStore) CompareAndSetQuantity(ctx context.Context, cartID, productID uint, prevQty, newQty int) error {
	m.mu.Lock()
	hook := m.beforeCAS
	m.beforeCAS = nil
	m.mu.Unlock()
	if hook != nil {
		hook()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.casCalls++
	if m.forcedConflicts > 0 {
		m.forcedConflicts--
		return db.ErrQuantityConflict
	}

	item := m.findItem(cartID, productID)
	current := 0
	if item != nil {
		current = item.Quantity
	}
	if current != prevQty {
		return db.ErrQuantityConflict
	}
	if newQty > prevQty {
		p, ok := m.products[productID]
		if !ok || newQty > p.Stock {
			return db.ErrQuantityConflict
		}
	}
	switch {
	case prevQty == 0 && newQty == 0:
	case prevQty == 0:
		m.nextItemID++
		m.items[m.nextItemID] = &model.CartItem{ID: m.nextItemID, CartID: cartID, ProductID: productID, Quantity: newQty}
	case newQty == 0:
		delete(m.items, item.ID)
	default:
		item.Quantity = newQty
	}
	return nil
}

func (m *memStore) DeleteItem(ctx context.Context, cartID, itemID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[itemID]
	if !ok || item.CartID != cartID {
		return db.ErrCartItemNotFound
	}
	delete(m.items, itemID)
	return nil
}

func (m *memStore) ClearCart(ctx context.Context, cartID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, item := range m.items {
		if item.CartID == cartID {
			delete(m.items, id)
		}
	}
	return nil
}

// orders

func (m *memStore) CreateOrder(ctx context.Context, order *model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextOrderID++
	order.ID = m.nextOrderID
	cp := *order
	m.orders[order.ID] = &cp
	return nil
}

func (m *memStore) GetOrderByID(ctx context.Context, id uint) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, db.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memStore) GetOrderBySessionRef(ctx context.Context, ref string) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.SessionRef != nil && *o.SessionRef == ref {
			cp := *o
			return &cp, nil
		}
	}
	return nil, db.ErrOrderNotFound
}

func (m *memStore) GetOrdersByUserID(ctx context.Context, userID uint) ([]model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memStore) AttachSession(ctx context.Context, id uint, ref string, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return db.ErrOrderNotFound
	}
	if o.SessionRef != nil {
		return db.ErrSessionAlreadyAttached
	}
	o.SessionRef = &ref
	if token != "" {
		o.SessionToken = &token
	}
	return nil
}

func (m *memStore) ApplyReconciliation(ctx context.Context, id uint, status model.OrderStatus, paymentIntentID string) error {
	m.mu.Lock()
	hook := m.beforeApply
	m.beforeApply = nil
	m.mu.Unlock()
	if hook != nil {
		hook()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return db.ErrOrderNotFound
	}
	if o.Status != model.OrderStatusPending {
		return db.ErrOrderNotPending
	}
	o.Status = status
	if paymentIntentID != "" {
		o.PaymentIntentID = &paymentIntentID
	}
	return nil
}

func (m *memStore) setOrderStatus(id uint, status model.OrderStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[id].Status = status
}

// users

func (m *memStore) GetUserByID(ctx context.Context, id uint) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, db.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) CreateUser(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

var (
	_ db.IProductRepository = (*memStore)(nil)
	_ db.ICartRepository    = (*memStore)(nil)
	_ db.IOrderRepository   = (*memStore)(nil)
	_ db.IUserRepository    = (*memStore)(nil)
)

type fakeGateway struct {
	mu         sync.Mutex
	sessions   map[string]*payment.Session
	lastOpen   payment.OpenSessionRequest
	openErr    error
	fetchErr   error
	hang       bool
	openCalls  int
	fetchCalls int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{sessions: map[string]*payment.Session{}}
}

func (g *fakeGateway) Name() string { return "fake" }

func (g *fakeGateway) OpenSession(ctx context.Context, req payment.OpenSessionRequest) (*payment.Session, error) {
	g.mu.Lock()
	g.openCalls++
	g.lastOpen = req
	hang, err := g.hang, g.openErr
	g.mu.Unlock()

	if hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	ref := fmt.Sprintf("cs_%d", g.openCalls)
	s := &payment.Session{
		Reference: ref,
		Token:     "tok_" + ref,
		Status:    "created",
		Contract:  payment.ContractCheckoutSession,
	}
	g.sessions[ref] = s
	cp := *s
	return &cp, nil
}

func (g *fakeGateway) FetchSession(ctx context.Context, ref string) (*payment.Session, error) {
	g.mu.Lock()
	g.fetchCalls++
	hang, err := g.hang, g.fetchErr
	g.mu.Unlock()

	if hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.sessions[ref]
	if !ok {
		return nil, payment.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

// settle moves a provider session to the given states.
func (g *fakeGateway) settle(ref, status string, intent *payment.PaymentIntent) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s := g.sessions[ref]
	s.Status = status
	s.PaymentIntent = intent
}

func (g *fakeGateway) calls() (open, fetch int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.openCalls, g.fetchCalls
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*eventModel.OrderEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, evt *eventModel.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) types() []eventModel.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]eventModel.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType)
	}
	return out
}
