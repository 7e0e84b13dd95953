package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"vilatur/internal/cache"
	"vilatur/internal/config"
	"vilatur/internal/database"
	"vilatur/internal/logger"
	"vilatur/internal/model"
	"vilatur/internal/queue"
	"vilatur/internal/redis"
	"vilatur/internal/repository"
	"vilatur/internal/service"
	"vilatur/internal/storage"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	var err error
	switch command {
	case "migrate":
		err = run(func(ctx context.Context, a *app) error { return nil })
	case "seed":
		err = run(seed)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "%s failed: %v\n", command, err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Usage: vilatur <command>

Commands:
  migrate   create missing tables and indexes
  seed      migrate, then insert the demo users and listings
  help      show this message`)
}

type app struct {
	users    *service.UserService
	listings *service.ListingService
	log      *zap.Logger
}

// run connects, ensures the schema and hands the wired services to fn.
func run(fn func(ctx context.Context, a *app) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel, "console")
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := database.Connect(cfg.DSN(), log)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.EnsureSchema(ctx, db, log); err != nil {
		return err
	}

	var directory cache.DirectoryCache = cache.NoopDirectoryCache{}
	if cfg.RedisURL != "" {
		rc, err := redis.Connect(ctx, cfg.RedisURL, log)
		if err != nil {
			return err
		}
		defer rc.Close()
		directory = cache.NewDirectoryCache(rc.Client, cfg.DirectoryCacheTTL, log)
	}

	userRepo := repository.NewUserRepository(db)
	listingRepo := repository.NewListingRepository(db)
	janitor := service.NewImageJanitor(repository.NewImageRepository(db), storage.NewMemoryStore(), queue.DisabledPublisher{}, log)

	return fn(ctx, &app{
		users:    service.NewUserService(userRepo, listingRepo, cfg.MinPasswordLength, log),
		listings: service.NewListingService(listingRepo, userRepo, directory, janitor, cfg.SearchFallbackToAll, log),
		log:      log,
	})
}

type seedAccount struct {
	user    model.RegisterRequest
	listing model.ListingForm
}

var seedAccounts = []seedAccount{
	{
		user: model.RegisterRequest{Email: "ale@pizza.com", Username: "alepizza", Name: "Ale", Password: "123456789"},
		listing: model.ListingForm{
			Title:     "Ale & Thalita Pizza",
			Content:   "Pizzaria e lanchonete com variedade de lanches para você e sua família.",
			Phone:     "22998856358",
			Site:      "https://app.anota.ai/m/Y7l3fjIJw",
			Open:      "18:00",
			Close:     "0:30",
			Delivery:  "on",
			Latitude:  "-22.9301906",
			Longitude: "-42.4119475",
			Keywords:  "pizza, lanche, hamburger, delivery",
		},
	},
	{
		user: model.RegisterRequest{Email: "delicias@vila.com", Username: "delicias", Name: "Delicias Vila", Password: "123456789"},
		listing: model.ListingForm{
			Title:     "Delícias da Vila",
			Content:   "Salgados especiais e recheados, pratos caseiros e típicos da região, múltiplas opções para todos.",
			Phone:     "22997997690",
			Site:      "https://deliciasdavila.ola.click/products",
			Open:      "9:00",
			Close:     "18:00",
			Delivery:  "on",
			Latitude:  "-22.9301906",
			Longitude: "-42.4119475",
			Keywords:  "salgado, lanche, almoço, delivery",
		},
	},
}

// seed is idempotent per account: existing usernames are left untouched.
func seed(ctx context.Context, a *app) error {
	for _, acc := range seedAccounts {
		req := acc.user
		user, err := a.users.Register(ctx, &req)
		var conflict *model.ConflictError
		if errors.As(err, &conflict) {
			a.log.Info("seed user exists, skipping", zap.String("username", req.Username))
			continue
		}
		if err != nil {
			return fmt.Errorf("register %s: %w", req.Username, err)
		}

		res, err := a.listings.Submit(ctx, user.ID, acc.listing)
		if err != nil {
			return fmt.Errorf("create listing for %s: %w", req.Username, err)
		}
		a.log.Info("seeded",
			zap.String("username", user.Username),
			zap.Int64("listing_id", res.Listing.ID),
			zap.String("url", res.RedirectTo))
	}
	return nil
}
