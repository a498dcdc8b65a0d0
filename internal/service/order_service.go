package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/Fintoc-PepeStore2-0/Backend/internal/domain/model"
	eventModel "github.com/Fintoc-PepeStore2-0/Backend/internal/domain/model/event"
	"github.com/Fintoc-PepeStore2-0/Backend/internal/infra/payment"
	"github.com/Fintoc-PepeStore2-0/Backend/internal/infra/repository/db"
	"github.com/Fintoc-PepeStore2-0/Backend/internal/pkg/apperr"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultCurrency       = "CLP"
	defaultGatewayTimeout = 10 * time.Second
	publishTimeout        = 3 * time.Second
)

// OrderEventPublisher receives order lifecycle events. Failures are logged,
// never returned to the caller.
type OrderEventPublisher interface {
	Publish(ctx context.Context, evt *eventModel.OrderEvent) error
}

type CheckoutConfig struct {
	Currency       string
	SuccessURL     string
	CancelURL      string
	ReturnURL      string
	PublicKey      string
	GatewayTimeout time.Duration
}

type CheckoutResult struct {
	CheckoutSession *payment.Session `json:"checkoutSession"`
	Order           *model.Order     `json:"order"`
	PublicKey       string           `json:"publicKey,omitempty"`
}

type ReconcileResult struct {
	Order           *model.Order      `json:"order"`
	Status          model.OrderStatus `json:"status"`
	CheckoutSession *payment.Session  `json:"checkoutSession,omitempty"`
}

type OrderService struct {
	carts      db.ICartRepository
	orders     db.IOrderRepository
	users      db.IUserRepository
	gateway    payment.Gateway
	publishers []OrderEventPublisher
	cfg        CheckoutConfig
	logger     zerolog.Logger
	now        func() time.Time
}

func NewOrderService(
	carts db.ICartRepository,
	orders db.IOrderRepository,
	users db.IUserRepository,
	gateway payment.Gateway,
	cfg CheckoutConfig,
	logger zerolog.Logger,
	publishers ...OrderEventPublisher,
) *OrderService {
	cfg.Currency = strings.ToUpper(strings.TrimSpace(cfg.Currency))
	if cfg.Currency == "" {
		cfg.Currency = defaultCurrency
	}
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = defaultGatewayTimeout
	}
	if cfg.SuccessURL == "" {
		cfg.SuccessURL = cfg.ReturnURL
	}
	if cfg.CancelURL == "" {
		cfg.CancelURL = cfg.ReturnURL
	}
	return &OrderService{
		carts:      carts,
		orders:     orders,
		users:      users,
		gateway:    gateway,
		publishers: publishers,
		cfg:        cfg,
		logger:     logger.With().Str("component", "order_service").Str("provider", gateway.Name()).Logger(),
		now:        time.Now,
	}
}

// StartCheckout snapshots the cart total into a pending order and opens a
// payment session for it.
// 錯誤:
//   - EmptyCart: 購物車總額 <= 0, 不建立訂單
//   - MissingContactInfo: 使用者沒有 email
//   - Upstream: 金流失敗, 訂單維持 pending, Details 帶 orderId
func (s *OrderService) StartCheckout(ctx context.Context, userID uint) (*CheckoutResult, error) {
	cart, err := s.carts.GetCartWithItems(ctx, userID)
	if err != nil {
		return nil, repoError(err, "load cart")
	}
	total := cart.Total()
	if !total.IsPositive() {
		return nil, apperr.EmptyCart()
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if errors.Is(err, db.ErrUserNotFound) {
		return nil, apperr.MissingContactInfo()
	}
	if err != nil {
		return nil, repoError(err, "load user")
	}
	email := strings.TrimSpace(user.Email)
	if email == "" {
		return nil, apperr.MissingContactInfo()
	}

	order := &model.Order{
		UserID:   userID,
		Amount:   total,
		Currency: s.cfg.Currency,
		Status:   model.OrderStatusPending,
		Provider: s.gateway.Name(),
	}
	if err := s.orders.CreateOrder(ctx, order); err != nil {
		return nil, repoError(err, "create order")
	}
	s.emit(ctx, eventModel.OrderCreatedEventName, order)

	orderID := strconv.FormatUint(uint64(order.ID), 10)
	req := payment.OpenSessionRequest{
		Amount:        order.Amount,
		Currency:      order.Currency,
		CustomerEmail: email,
		Description:   "Order #" + orderID,
		SuccessURL:    s.cfg.SuccessURL,
		CancelURL:     s.cfg.CancelURL,
		Metadata: map[string]string{
			"order_id":    "#" + orderID,
			"order_db_id": orderID,
			"user_id":     strconv.FormatUint(uint64(userID), 10),
		},
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()
	session, err := s.gateway.OpenSession(callCtx, req)
	if err == nil && session.Reference == "" {
		err = errors.New("payment provider returned a session without reference")
	}
	if err != nil {
		ae := gatewayError(err, "open payment session")
		ae.Details = map[string]any{"orderId": order.ID, "provider": ae.Details}
		s.logger.Error().Err(err).Uint("order_id", order.ID).Bool("retryable", ae.Retryable()).Msg("open payment session failed")
		return nil, ae
	}

	if err := s.orders.AttachSession(ctx, order.ID, session.Reference, session.Token); err != nil {
		return nil, repoError(err, "attach payment session")
	}
	order.SessionRef = &session.Reference
	if session.Token != "" {
		order.SessionToken = &session.Token
	}
	s.emit(ctx, eventModel.OrderSessionOpenedEventName, order)

	s.logger.Info().Uint("order_id", order.ID).Str("session_ref", session.Reference).Str("amount", order.Amount.String()).Msg("checkout started")
	return &CheckoutResult{
		CheckoutSession: session,
		Order:           order,
		PublicKey:       s.cfg.PublicKey,
	}, nil
}

// Reconcile brings the order behind a session reference up to date with the
// provider. Terminal orders are returned as stored without a provider call.
func (s *OrderService) Reconcile(ctx context.Context, sessionRef string) (*ReconcileResult, error) {
	return s.reconcile(ctx, sessionRef, nil)
}

// ReconcileOwned is Reconcile restricted to orders owned by userID.
func (s *OrderService) ReconcileOwned(ctx context.Context, userID uint, sessionRef string) (*ReconcileResult, error) {
	return s.reconcile(ctx, sessionRef, &userID)
}

func (s *OrderService) reconcile(ctx context.Context, sessionRef string, owner *uint) (*ReconcileResult, error) {
	sessionRef = strings.TrimSpace(sessionRef)
	if sessionRef == "" {
		return nil, apperr.Validation("session reference is required")
	}

	order, err := s.orders.GetOrderBySessionRef(ctx, sessionRef)
	if err != nil {
		return nil, repoError(err, "load order")
	}
	if owner != nil && order.UserID != *owner {
		return nil, apperr.NotFound("order not found")
	}
	if order.Status.IsTerminal() {
		return &ReconcileResult{Order: order, Status: order.Status}, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()
	session, err := s.gateway.FetchSession(callCtx, sessionRef)
	if err != nil {
		ae := gatewayError(err, "fetch payment session")
		s.logger.Warn().Err(err).Uint("order_id", order.ID).Bool("retryable", ae.Retryable()).Msg("fetch payment session failed")
		return nil, ae
	}

	status := payment.MapStatus(session)
	intentID := session.PaymentIntentID()
	knownIntent := order.PaymentIntentID != nil && *order.PaymentIntentID == intentID
	if status == model.OrderStatusPending && (intentID == "" || knownIntent) {
		return &ReconcileResult{Order: order, Status: order.Status, CheckoutSession: session}, nil
	}

	err = s.orders.ApplyReconciliation(ctx, order.ID, status, intentID)
	if errors.Is(err, db.ErrOrderNotPending) {
		// another reconcile finished first; report what it stored
		stored, err := s.orders.GetOrderByID(ctx, order.ID)
		if err != nil {
			return nil, repoError(err, "reload order")
		}
		return &ReconcileResult{Order: stored, Status: stored.Status, CheckoutSession: session}, nil
	}
	if err != nil {
		return nil, repoError(err, "apply reconciliation")
	}

	order.Status = status
	if intentID != "" {
		order.PaymentIntentID = &intentID
	}
	switch status {
	case model.OrderStatusSucceeded:
		s.emit(ctx, eventModel.OrderSucceededEventName, order)
	case model.OrderStatusFailed:
		s.emit(ctx, eventModel.OrderFailedEventName, order)
	}
	s.logger.Info().Uint("order_id", order.ID).Str("status", string(status)).Msg("order reconciled")

	return &ReconcileResult{Order: order, Status: status, CheckoutSession: session}, nil
}

func (s *OrderService) ListOrders(ctx context.Context, userID uint) ([]model.Order, error) {
	orders, err := s.orders.GetOrdersByUserID(ctx, userID)
	if err != nil {
		return nil, repoError(err, "list orders")
	}
	if orders == nil {
		orders = []model.Order{}
	}
	return orders, nil
}

func (s *OrderService) emit(ctx context.Context, eventType eventModel.EventType, order *model.Order) {
	if len(s.publishers) == 0 {
		return
	}
	evt := &eventModel.OrderEvent{
		EventID:   uuid.NewString(),
		EventType: eventType,
		OrderID:   order.ID,
		UserID:    order.UserID,
		Amount:    order.Amount,
		Currency:  order.Currency,
		Status:    string(order.Status),
		CreatedAt: s.now().UTC(),
	}
	if order.SessionRef != nil {
		evt.SessionRef = *order.SessionRef
	}
	if order.PaymentIntentID != nil {
		evt.PaymentIntentID = *order.PaymentIntentID
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	for _, p := range s.publishers {
		if err := p.Publish(pubCtx, evt); err != nil {
			s.logger.Warn().Err(err).Uint("order_id", order.ID).Str("event_type", string(eventType)).Msg("order event not published")
		}
	}
}
