// Command seed-db prepares a database for local development and demos: it
// runs migrations, loads the product catalog from JSON, installs a default
// delivery policy and a few coupons, and provisions an admin API key.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/craftkart/checkout/internal/domain/auth"
	"github.com/craftkart/checkout/internal/domain/coupon"
	"github.com/craftkart/checkout/internal/domain/delivery"
	"github.com/craftkart/checkout/internal/repository"
)

type productJSON struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
	ImageURL string          `json:"image_url"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&apiKey, "api-key", "", "admin API key to seed (or SHOP_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or SHOP_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("SHOP_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or SHOP_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("SHOP_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, pool, productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedDeliverySettings(ctx, pool); err != nil {
		return errors.Wrap(err, "seed delivery settings")
	}
	if err := seedCoupons(ctx, pool); err != nil {
		return errors.Wrap(err, "seed coupons")
	}
	if err := seedAPIKey(ctx, pool, apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

const upsertProductSQL = `INSERT INTO products (id, name, price, category, image_url)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		price = EXCLUDED.price,
		category = EXCLUDED.category,
		image_url = EXCLUDED.image_url`

func seedProducts(ctx context.Context, pool *pgxpool.Pool, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		if _, err := pool.Exec(ctx, upsertProductSQL, p.ID, p.Name, p.Price, p.Category, p.ImageURL); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}
		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}

	return nil
}

// seedDeliverySettings installs a FREE_ABOVE policy only when no policy
// exists yet; an operator-tuned policy is never overwritten.
func seedDeliverySettings(ctx context.Context, pool *pgxpool.Pool) error {
	repo := repository.NewDeliveryRepository(pool)

	if _, err := repo.Active(ctx); err == nil {
		slog.Info("delivery settings already present, skipping")
		return nil
	} else if !errors.Is(err, delivery.ErrNoActiveSettings) {
		return err
	}

	s, err := repo.Replace(ctx, &delivery.Settings{
		Type:                    delivery.FreeAbove,
		MinOrderForFreeDelivery: decimal.NewFromInt(1000),
		StandardDeliveryCharge:  decimal.NewFromInt(100),
	})
	if err != nil {
		return err
	}

	slog.Info("seeded delivery settings",
		slog.String("type", string(s.Type)),
		slog.String("free_above", s.MinOrderForFreeDelivery.String()),
	)
	return nil
}

func seedCoupons(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding demo coupons")

	repo := repository.NewCouponRepository(pool)
	expiry := time.Now().AddDate(1, 0, 0)

	rules := []coupon.Rule{
		{
			Code:             "WELCOME10",
			DiscountPercent:  decimal.NewFromInt(10),
			MinOrderValue:    decimal.NewFromInt(500),
			MaxDiscountValue: decimal.NewFromInt(200),
			ExpiresAt:        expiry,
			Active:           true,
		},
		{
			Code:             "BIG20",
			DiscountPercent:  decimal.NewFromInt(20),
			MinOrderValue:    decimal.NewFromInt(1000),
			MaxDiscountValue: decimal.NewFromInt(500),
			ExpiresAt:        expiry,
			Active:           true,
		},
	}

	for i := range rules {
		if err := repo.Create(ctx, &rules[i]); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", rules[i].Code)
		}
		slog.Info("upserted coupon", slog.String("code", rules[i].Code))
	}

	return nil
}

const upsertAPIKeySQL = `INSERT INTO api_keys (id, key_hash, name, scopes, active)
	VALUES ($1, $2, $3, $4, TRUE)
	ON CONFLICT (key_hash) DO UPDATE SET
		name = EXCLUDED.name,
		scopes = EXCLUDED.scopes,
		active = TRUE`

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, apiKey, pepper string) error {
	slog.Info("seeding admin API key")

	keyHash := auth.HashKey([]byte(pepper), apiKey)

	_, err := pool.Exec(ctx, upsertAPIKeySQL,
		uuid.New().String(), keyHash, "Default admin key", []string{"admin"},
	)
	if err != nil {
		return errors.Wrap(err, "upsert admin API key")
	}

	slog.Info("upserted API key", slog.String("name", "Default admin key"))
	return nil
}
