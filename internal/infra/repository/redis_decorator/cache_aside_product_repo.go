package redis_decorator

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/Fintoc-PepeStore2-0/Backend/internal/domain/model"
	"github.com/Fintoc-PepeStore2-0/Backend/internal/infra/repository/db"
	"github.com/Fintoc-PepeStore2-0/Backend/internal/infra/repository/redis_repo"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

/*
商品快照走 cache-aside:
讀取先查 redis, miss 才查 db 並回填
庫存異動先寫 db 再刪除 redis key, 下次讀取重新載入
reserved 加總永遠直接查 db
只給顯示用, 庫存檢查請直接讀 db
*/
type CacheAsideProductRepo struct {
	db.IProductRepository
	cache  redis_repo.IProductCacheRepository
	group  singleflight.Group
	logger zerolog.Logger

	// generations counts invalidations per product in this process. A fill
	// that started before an invalidation must not write its snapshot.
	mu          sync.Mutex
	generations map[uint]uint64
}

const loadTimeout = 5 * time.Second

func NewCacheAsideProductRepo(repo db.IProductRepository, cache redis_repo.IProductCacheRepository, logger zerolog.Logger) *CacheAsideProductRepo {
	return &CacheAsideProductRepo{
		IProductRepository: repo,
		cache:              cache,
		generations:        map[uint]uint64{},
		logger:             logger.With().Str("component", "product_cache").Logger(),
	}
}

func (p *CacheAsideProductRepo) GetProductByID(ctx context.Context, productID uint) (*model.Product, error) {
	product, err := p.cache.GetProduct(ctx, productID)
	if err == nil {
		return product, nil
	}
	if !errors.Is(err, redis_repo.ErrCacheMiss) {
		p.logger.Warn().Err(err).Uint("product_id", productID).Msg("product cache read failed, falling back to db")
	}

	v, err, _ := p.group.Do(strconv.FormatUint(uint64(productID), 10), func() (any, error) {
		// the flight is shared, one caller's cancel must not fail the others
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		generation := p.generation(productID)
		product, err := p.IProductRepository.GetProductByID(loadCtx, productID)
		if err != nil {
			return nil, err
		}
		p.fill(loadCtx, product, generation)
		return product, nil
	})
	if err != nil {
		return nil, err
	}

	// callers may mutate the result, so shared flights hand out copies
	shared := *v.(*model.Product)
	return &shared, nil
}

func (p *CacheAsideProductRepo) UpsertProductByName(ctx context.Context, product *model.Product) error {
	if err := p.IProductRepository.UpsertProductByName(ctx, product); err != nil {
		return err
	}
	p.invalidate(ctx, product.ID)
	return nil
}

func (p *CacheAsideProductRepo) UpdateStock(ctx context.Context, productID uint, stock int) error {
	if err := p.IProductRepository.UpdateStock(ctx, productID, stock); err != nil {
		return err
	}
	p.invalidate(ctx, productID)
	return nil
}

func (p *CacheAsideProductRepo) generation(productID uint) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.generations[productID]
}

// fill writes the snapshot unless the product was invalidated after
// generation was read.
func (p *CacheAsideProductRepo) fill(ctx context.Context, product *model.Product, generation uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.generations[product.ID] != generation {
		p.logger.Debug().Uint("product_id", product.ID).Msg("product changed while loading, cache fill skipped")
		return
	}
	if err := p.cache.SetProduct(ctx, product); err != nil {
		p.logger.Warn().Err(err).Uint("product_id", product.ID).Msg("product cache fill failed")
	}
}

func (p *CacheAsideProductRepo) invalidate(ctx context.Context, productID uint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.generations[productID]++
	if err := p.cache.DeleteProduct(ctx, productID); err != nil {
		p.logger.Error().Err(err).Uint("product_id", productID).Msg("product cache invalidation failed")
	}
}

var _ db.IProductRepository = (*CacheAsideProductRepo)(nil)
