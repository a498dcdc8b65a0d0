package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Fintoc-PepeStore2-0/Backend/internal/config"
	"github.com/Fintoc-PepeStore2-0/Backend/internal/domain/model"
	"github.com/Fintoc-PepeStore2-0/Backend/internal/infra/repository/db"
	"github.com/Fintoc-PepeStore2-0/Backend/internal/infra/repository/redis_decorator"
	"github.com/Fintoc-PepeStore2-0/Backend/internal/infra/repository/redis_repo"
	"github.com/Fintoc-PepeStore2-0/Backend/internal/logger"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	flag "github.com/spf13/pflag"
)

// catalogEntry is one product of the seed file.
type catalogEntry struct {
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price_value"`
	Stock       int             `json:"stock_units"`
	ImageURL    string          `json:"image_url"`
}

type productUpserter interface {
	UpsertProductByName(ctx context.Context, product *model.Product) error
}

func main() {
	file := flag.StringP("file", "f", "cmd/seed/products.json", "catalog file to load")
	dryRun := flag.Bool("dry-run", false, "validate the catalog without writing")
	noCache := flag.Bool("no-cache", false, "write to postgres only, skip redis invalidation")
	flag.Parse()

	cf := config.GetConfig()
	log := logger.New(logger.Options{Level: cf.LogLevel, Development: cf.IsDevelopment(), Service: "seed"})

	entries, err := readCatalog(*file)
	if err != nil {
		log.Fatal().Err(err).Str("file", *file).Msg("read catalog")
	}
	if *dryRun {
		log.Info().Int("products", len(entries)).Msg("catalog is valid")
		return
	}

	conn, err := db.GetDbConn(cf.DbName, cf.DbHost, cf.DbPort, cf.DbUser, cf.DbPas)
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}
	dao := db.NewDbDao(conn)
	defer dao.Close()
	if err := dao.InitMigrate(); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	var repo productUpserter = db.NewProductDBRepo(dao)
	if !*noCache {
		client := redis.NewClient(&redis.Options{Addr: cf.RedisAddr, Password: cf.RedisPassword, DB: cf.RedisDB})
		defer client.Close()
		cache := redis_repo.NewProductCacheRepo(client, cf.ProductCacheTTL)
		repo = redis_decorator.NewCacheAsideProductRepo(db.NewProductDBRepo(dao), cache, log)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	n, err := seed(ctx, repo, entries, log)
	if err != nil {
		log.Fatal().Err(err).Int("seeded", n).Msg("seed products")
	}
	log.Info().Int("seeded", n).Msg("seed completed")
}

func readCatalog(path string) ([]catalogEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []catalogEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	for i, e := range entries {
		if err := e.validate(); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return entries, nil
}

func (e catalogEntry) validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if e.Price.IsNegative() {
		return fmt.Errorf("%s: negative price %s", e.Name, e.Price)
	}
	if e.Stock < 0 {
		return fmt.Errorf("%s: negative stock %d", e.Name, e.Stock)
	}
	return nil
}

func (e catalogEntry) toProduct() *model.Product {
	return &model.Product{
		Name:        strings.TrimSpace(e.Name),
		Category:    e.Category,
		Description: e.Description,
		Price:       e.Price,
		Stock:       e.Stock,
		ImageURL:    e.ImageURL,
	}
}

// seed stops at the first failing product and reports how many were written.
func seed(ctx context.Context, repo productUpserter, entries []catalogEntry, log zerolog.Logger) (int, error) {
	for i, e := range entries {
		product := e.toProduct()
		if err := repo.UpsertProductByName(ctx, product); err != nil {
			return i, fmt.Errorf("upsert %q: %w", product.Name, err)
		}
		log.Debug().Uint("product_id", product.ID).Str("name", product.Name).Int("stock", product.Stock).Msg("upserted")
	}
	return len(entries), nil
}
