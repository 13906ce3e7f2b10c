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
	"github.com/shopspring/decimal"

	"github.com/xenking/drinkhub/internal/domain/discount"
	"github.com/xenking/drinkhub/internal/domain/product"
	"github.com/xenking/drinkhub/internal/domain/user"
	"github.com/xenking/drinkhub/internal/storage/postgres"
)

type seedFile struct {
	Users []struct {
		ID    int64  `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
		Role  string `json:"role"`

		MembershipLevel int   `json:"membership_level"`
		StoredBalance   int64 `json:"stored_balance"`
		Active          bool  `json:"is_active"`
		Verified        bool  `json:"is_verified"`
	} `json:"users"`
	Products []struct {
		ID          int64            `json:"id"`
		VendorID    int64            `json:"vendor_id"`
		Name        string           `json:"name"`
		Image       string           `json:"image"`
		Price       int64            `json:"price"`
		SizeOptions map[string]int64 `json:"size_options"`
	} `json:"products"`
	Policies []struct {
		ID                 int64           `json:"id"`
		VendorID           int64           `json:"vendor_id"`
		Kind               string          `json:"kind"`
		Value              decimal.Decimal `json:"value"`
		MinPurchase        int64           `json:"min_purchase"`
		MaxDiscount        *int64          `json:"max_discount"`
		MinMembershipLevel int             `json:"min_membership_level"`
		Available          bool            `json:"is_available"`
		StartsAt           *time.Time      `json:"starts_at"`
		ExpiresAt          *time.Time      `json:"expires_at"`
		Description        string          `json:"description"`
	} `json:"policies"`
}

func main() {
	var (
		databaseURL string
		seedPath    string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&seedPath, "seed-file", "db/seed/seed.json", "path to the seed JSON file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, seedPath); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, seedPath string) error {
	slog.Info("reading seed file", slog.String("path", seedPath))

	raw, err := os.ReadFile(seedPath)
	if err != nil {
		return errors.Wrap(err, "read seed file")
	}
	data, err := parseSeed(raw)
	if err != nil {
		return errors.Wrap(err, "parse seed file")
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := postgres.NewSeeder(pool).Seed(ctx, data); err != nil {
		return errors.Wrap(err, "seed")
	}

	slog.Info("seeded",
		slog.Int("users", len(data.Users)),
		slog.Int("products", len(data.Products)),
		slog.Int("policies", len(data.Policies)),
	)
	return nil
}

func parseSeed(raw []byte) (postgres.SeedData, error) {
	var f seedFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return postgres.SeedData{}, err
	}

	var data postgres.SeedData
	for _, u := range f.Users {
		su := user.User{ID: u.ID, Email: u.Email, Name: u.Name, Role: user.Role(u.Role)}
		switch su.Role {
		case user.RoleCustomer:
			su.Customer = &user.Customer{MembershipLevel: u.MembershipLevel, StoredBalance: u.StoredBalance}
		case user.RoleVendor:
			su.Vendor = &user.Vendor{Active: u.Active, Verified: u.Verified}
		case user.RoleAdmin:
			su.Admin = &user.Admin{}
		default:
			return postgres.SeedData{}, errors.Errorf("user %d: unknown role %q", u.ID, u.Role)
		}
		data.Users = append(data.Users, su)
	}
	for _, p := range f.Products {
		data.Products = append(data.Products, product.Product{
			ID:          p.ID,
			VendorID:    p.VendorID,
			Name:        p.Name,
			Image:       p.Image,
			Price:       p.Price,
			SizeOptions: product.SizeOptions(p.SizeOptions),
		})
	}
	for _, p := range f.Policies {
		kind := discount.Kind(p.Kind)
		if kind != discount.KindPercentage && kind != discount.KindFixed {
			return postgres.SeedData{}, errors.Errorf("policy %d: unknown kind %q", p.ID, p.Kind)
		}
		data.Policies = append(data.Policies, discount.Policy{
			ID:                 p.ID,
			VendorID:           p.VendorID,
			Kind:               kind,
			Value:              p.Value,
			MinPurchase:        p.MinPurchase,
			MaxDiscount:        p.MaxDiscount,
			MinMembershipLevel: p.MinMembershipLevel,
			Available:          p.Available,
			StartsAt:           p.StartsAt,
			ExpiresAt:          p.ExpiresAt,
			Description:        p.Description,
		})
	}
	return data, nil
}
