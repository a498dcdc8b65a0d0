package redis_repo

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/Fintoc-PepeStore2-0/Backend/internal/domain/model"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

type IProductCacheRepository interface {
	GetProduct(ctx context.Context, productID uint) (*model.Product, error)
	SetProduct(ctx context.Context, product *model.Product) error
	DeleteProduct(ctx context.Context, productID uint) error
}

var (
	ErrCacheMiss   = errors.New("product cache miss")
	ErrCacheFormat = errors.New("product cache entry malformed")
)

const productKeyPattern = "product:%d"

/*
商品快照以 hash 儲存:

	product:{id} {
		name: "...",
		price: "1990.00",
		stock: 5,
		image_url: "...",
	}
*/
type ProductCacheRepo struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewProductCacheRepo(client redis.Cmdable, ttl time.Duration) *ProductCacheRepo {
	return &ProductCacheRepo{client: client, ttl: ttl}
}

func productKey(productID uint) string {
	return fmt.Sprintf(productKeyPattern, productID)
}

func (r *ProductCacheRepo) GetProduct(ctx context.Context, productID uint) (*model.Product, error) {
	fields, err := r.client.HGetAll(ctx, productKey(productID)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, ErrCacheMiss
	}
	return convertRedisMapToProduct(productID, fields)
}

func (r *ProductCacheRepo) SetProduct(ctx context.Context, product *model.Product) error {
	key := productKey(product.ID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"name", product.Name,
			"category", product.Category,
			"price", product.Price.String(),
			"stock", product.Stock,
			"image_url", product.ImageURL,
		)
		pipe.Expire(ctx, key, r.jitteredTTL())
		return nil
	})
	return err
}

func (r *ProductCacheRepo) DeleteProduct(ctx context.Context, productID uint) error {
	return r.client.Del(ctx, productKey(productID)).Err()
}

// jitteredTTL spreads expiry up to 10% past the base TTL.
func (r *ProductCacheRepo) jitteredTTL() time.Duration {
	if r.ttl <= 0 {
		return time.Minute
	}
	spread := int64(r.ttl / 10)
	if spread <= 0 {
		return r.ttl
	}
	return r.ttl + time.Duration(rand.Int64N(spread))
}

func convertRedisMapToProduct(productID uint, fields map[string]string) (*model.Product, error) {
	stock, err := strconv.Atoi(fields["stock"])
	if err != nil {
		return nil, fmt.Errorf("%w: stock: %v", ErrCacheFormat, err)
	}
	price, err := decimal.NewFromString(fields["price"])
	if err != nil {
		return nil, fmt.Errorf("%w: price: %v", ErrCacheFormat, err)
	}
	return &model.Product{
		ID:       productID,
		Name:     fields["name"],
		Category: fields["category"],
		Price:    price,
		Stock:    stock,
		ImageURL: fields["image_url"],
	}, nil
}

var _ IProductCacheRepository = (*ProductCacheRepo)(nil)
