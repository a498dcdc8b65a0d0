package db

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Fintoc-PepeStore2-0/Backend/internal/domain/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

type RepoTestSuite struct {
	suite.Suite
	container   *postgres.PostgresContainer
	dao         *DbDao
	productRepo *ProductDBRepo
	cartRepo    *CartRepo
	orderRepo   *OrderRepo
	userRepo    *UserRepo
}

func TestRepoSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("postgres container tests skipped in short mode")
	}
	suite.Run(t, new(RepoTestSuite))
}

func (s *RepoTestSuite) SetupSuite() {
	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("storefront"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(s.T(), err)
	s.container = container

	host, err := container.Host(ctx)
	require.NoError(s.T(), err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(s.T(), err)

	conn, err := GetDbConn("storefront", host, port.Port(), "testuser", "testpass")
	require.NoError(s.T(), err)

	s.dao = NewDbDao(conn)
	require.NoError(s.T(), s.dao.InitMigrate())

	s.productRepo = NewProductDBRepo(s.dao)
	s.cartRepo = NewCartRepo(s.dao)
	s.orderRepo = NewOrderRepo(s.dao)
	s.userRepo = NewUserRepo(s.dao)
}

func (s *RepoTestSuite) TearDownSuite() {
	if s.dao != nil {
		s.dao.Close()
	}
	if s.container != nil {
		if err := s.container.Terminate(context.Background()); err != nil {
			s.T().Logf("failed to terminate container: %s", err)
		}
	}
}

func (s *RepoTestSuite) SetupTest() {
	s.dao.Exec("DELETE FROM cart_items")
	s.dao.Exec("DELETE FROM carts")
	s.dao.Exec("DELETE FROM orders")
	s.dao.Exec("DELETE FROM products")
	s.dao.Exec("DELETE FROM users")
}

func (s *RepoTestSuite) createProduct(name string, stock int, price int64) *model.Product {
	product := &model.Product{Name: name, Stock: stock, Price: decimal.NewFromInt(price)}
	require.NoError(s.T(), s.productRepo.UpsertProductByName(context.Background(), product))
	require.NotZero(s.T(), product.ID)
	return product
}

func (s *RepoTestSuite) TestGetProductByID_NotFound() {
	_, err := s.productRepo.GetProductByID(context.Background(), 999999)
	require.ErrorIs(s.T(), err, ErrProductNotFound)
}

func (s *RepoTestSuite) TestUpsertProductByName_OverwritesStock() {
	ctx := context.Background()
	first := s.createProduct("Mate", 5, 1000)

	again := &model.Product{Name: "Mate", Stock: 9, Price: decimal.NewFromInt(1200)}
	require.NoError(s.T(), s.productRepo.UpsertProductByName(ctx, again))

	got, err := s.productRepo.GetProductByID(ctx, first.ID)
	require.NoError(s.T(), err)
	require.Equal(s.T(), 9, got.Stock)
	require.True(s.T(), decimal.NewFromInt(1200).Equal(got.Price))
}

func (s *RepoTestSuite) TestEnsureCart_Idempotent() {
	ctx := context.Background()
	a, err := s.cartRepo.EnsureCart(ctx, 7)
	require.NoError(s.T(), err)
	b, err := s.cartRepo.EnsureCart(ctx, 7)
	require.NoError(s.T(), err)
	require.Equal(s.T(), a.ID, b.ID)
}

func (s *RepoTestSuite) TestCompareAndSetQuantity_Transitions() {
	ctx := context.Background()
	product := s.createProduct("Yerba", 10, 500)
	cart, err := s.cartRepo.EnsureCart(ctx, 1)
	require.NoError(s.T(), err)

	require.NoError(s.T(), s.cartRepo.CompareAndSetQuantity(ctx, cart.ID, product.ID, 0, 3))
	// absent precondition no longer holds
	require.ErrorIs(s.T(), s.cartRepo.CompareAndSetQuantity(ctx, cart.ID, product.ID, 0, 1), ErrQuantityConflict)

	require.NoError(s.T(), s.cartRepo.CompareAndSetQuantity(ctx, cart.ID, product.ID, 3, 5))
	require.ErrorIs(s.T(), s.cartRepo.CompareAndSetQuantity(ctx, cart.ID, product.ID, 3, 6), ErrQuantityConflict)

	qty, err := s.cartRepo.GetItemQuantity(ctx, cart.ID, product.ID)
	require.NoError(s.T(), err)
	require.Equal(s.T(), 5, qty)

	require.NoError(s.T(), s.cartRepo.CompareAndSetQuantity(ctx, cart.ID, product.ID, 5, 0))
	qty, err = s.cartRepo.GetItemQuantity(ctx, cart.ID, product.ID)
	require.NoError(s.T(), err)
	require.Zero(s.T(), qty)
}

func (s *RepoTestSuite) TestCompareAndSetQuantity_BoundedByStoredStock() {
	ctx := context.Background()
	product := s.createProduct("Chirimoya", 4, 800)
	cart, err := s.cartRepo.EnsureCart(ctx, 3)
	require.NoError(s.T(), err)

	require.ErrorIs(s.T(), s.cartRepo.CompareAndSetQuantity(ctx, cart.ID, product.ID, 0, 5), ErrQuantityConflict)
	require.NoError(s.T(), s.cartRepo.CompareAndSetQuantity(ctx, cart.ID, product.ID, 0, 4))

	// stock lowered after the caller's check
	require.NoError(s.T(), s.productRepo.UpdateStock(ctx, product.ID, 2))
	require.ErrorIs(s.T(), s.cartRepo.CompareAndSetQuantity(ctx, cart.ID, product.ID, 4, 5), ErrQuantityConflict)
	// shrinking is always allowed
	require.NoError(s.T(), s.cartRepo.CompareAndSetQuantity(ctx, cart.ID, product.ID, 4, 3))
	require.NoError(s.T(), s.cartRepo.CompareAndSetQuantity(ctx, cart.ID, product.ID, 3, 2))
	require.ErrorIs(s.T(), s.cartRepo.CompareAndSetQuantity(ctx, cart.ID, product.ID, 2, 3), ErrQuantityConflict)

	qty, err := s.cartRepo.GetItemQuantity(ctx, cart.ID, product.ID)
	require.NoError(s.T(), err)
	require.Equal(s.T(), 2, qty)

	other, err := s.cartRepo.EnsureCart(ctx, 4)
	require.NoError(s.T(), err)
	require.ErrorIs(s.T(), s.cartRepo.CompareAndSetQuantity(ctx, other.ID, product.ID+1000, 0, 1), ErrQuantityConflict)
}

func (s *RepoTestSuite) TestCompareAndSetQuantity_ConcurrentWritersOneWins() {
	ctx := context.Background()
	product := s.createProduct("Alfajor", 10, 300)
	cart, err := s.cartRepo.EnsureCart(ctx, 2)
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.cartRepo.CompareAndSetQuantity(ctx, cart.ID, product.ID, 0, 2))

	var wg sync.WaitGroup
	results := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- s.cartRepo.CompareAndSetQuantity(ctx, cart.ID, product.ID, 2, 4)
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		require.ErrorIs(s.T(), err, ErrQuantityConflict)
	}
	require.Equal(s.T(), 1, wins)
}

func (s *RepoTestSuite) TestGetItem_ScopedToCart() {
	ctx := context.Background()
	product := s.createProduct("Empanada", 10, 900)
	owner, err := s.cartRepo.EnsureCart(ctx, 10)
	require.NoError(s.T(), err)
	other, err := s.cartRepo.EnsureCart(ctx, 11)
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.cartRepo.CompareAndSetQuantity(ctx, owner.ID, product.ID, 0, 1))

	cart, err := s.cartRepo.GetCartWithItems(ctx, 10)
	require.NoError(s.T(), err)
	require.Len(s.T(), cart.Items, 1)
	itemID := cart.Items[0].ID
	require.Equal(s.T(), "Empanada", cart.Items[0].Product.Name)

	_, err = s.cartRepo.GetItem(ctx, other.ID, itemID)
	require.ErrorIs(s.T(), err, ErrCartItemNotFound)
	require.ErrorIs(s.T(), s.cartRepo.DeleteItem(ctx, other.ID, itemID), ErrCartItemNotFound)

	require.NoError(s.T(), s.cartRepo.DeleteItem(ctx, owner.ID, itemID))
	require.ErrorIs(s.T(), s.cartRepo.DeleteItem(ctx, owner.ID, itemID), ErrCartItemNotFound)
}

func (s *RepoTestSuite) TestGetReservedTotal_AcrossCarts() {
	ctx := context.Background()
	product := s.createProduct("Pisco", 10, 7000)
	for userID, qty := range map[uint]int{20: 2, 21: 3} {
		cart, err := s.cartRepo.EnsureCart(ctx, userID)
		require.NoError(s.T(), err)
		require.NoError(s.T(), s.cartRepo.CompareAndSetQuantity(ctx, cart.ID, product.ID, 0, qty))
	}

	total, err := s.productRepo.GetReservedTotal(ctx, product.ID)
	require.NoError(s.T(), err)
	require.Equal(s.T(), 5, total)

	none, err := s.productRepo.GetReservedTotal(ctx, product.ID+1000)
	require.NoError(s.T(), err)
	require.Zero(s.T(), none)
}

func (s *RepoTestSuite) TestOrderSessionAndReconciliation() {
	ctx := context.Background()
	order := &model.Order{UserID: 1, Amount: decimal.NewFromInt(1000), Currency: "CLP", Provider: "fintoc"}
	require.NoError(s.T(), s.orderRepo.CreateOrder(ctx, order))
	require.Equal(s.T(), model.OrderStatusPending, order.Status)

	require.NoError(s.T(), s.orderRepo.AttachSession(ctx, order.ID, "cs_123", "tok"))
	require.ErrorIs(s.T(), s.orderRepo.AttachSession(ctx, order.ID, "cs_456", ""), ErrSessionAlreadyAttached)

	found, err := s.orderRepo.GetOrderBySessionRef(ctx, "cs_123")
	require.NoError(s.T(), err)
	require.Equal(s.T(), order.ID, found.ID)

	require.NoError(s.T(), s.orderRepo.ApplyReconciliation(ctx, order.ID, model.OrderStatusSucceeded, "pi_1"))
	require.ErrorIs(s.T(), s.orderRepo.ApplyReconciliation(ctx, order.ID, model.OrderStatusFailed, ""), ErrOrderNotPending)

	stored, err := s.orderRepo.GetOrderByID(ctx, order.ID)
	require.NoError(s.T(), err)
	require.Equal(s.T(), model.OrderStatusSucceeded, stored.Status)
	require.Equal(s.T(), "pi_1", *stored.PaymentIntentID)
	require.True(s.T(), decimal.NewFromInt(1000).Equal(stored.Amount))

	_, err = s.orderRepo.GetOrderBySessionRef(ctx, "missing")
	require.ErrorIs(s.T(), err, ErrOrderNotFound)
}

func (s *RepoTestSuite) TestGetUserByID() {
	ctx := context.Background()
	user := &model.User{Email: "buyer@example.com"}
	require.NoError(s.T(), s.userRepo.CreateUser(ctx, user))

	got, err := s.userRepo.GetUserByID(ctx, user.ID)
	require.NoError(s.T(), err)
	require.Equal(s.T(), "buyer@example.com", got.Email)

	_, err = s.userRepo.GetUserByID(ctx, user.ID+100)
	require.ErrorIs(s.T(), err, ErrUserNotFound)
}

func (s *RepoTestSuite) TestCreateUser_EmptyEmailsDoNotCollide() {
	ctx := context.Background()
	require.NoError(s.T(), s.userRepo.CreateUser(ctx, &model.User{}))
	require.NoError(s.T(), s.userRepo.CreateUser(ctx, &model.User{}))

	require.NoError(s.T(), s.userRepo.CreateUser(ctx, &model.User{Email: "twice@example.com"}))
	err := s.userRepo.CreateUser(ctx, &model.User{Email: "twice@example.com"})
	require.ErrorIs(s.T(), err, gorm.ErrDuplicatedKey)
}
