package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jaswdr/faker"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tablekit/restaurant-api/internal/auth"
	"github.com/tablekit/restaurant-api/internal/config"
	"github.com/tablekit/restaurant-api/internal/database"
	"github.com/tablekit/restaurant-api/internal/enum"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	cfgFile   string
	email     string
	password  string
	fullName  string
	menuCount int
	seed      int64
)

var rootCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed an organization, restaurant, owner and demo menu",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(viper.New(), cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		defer logger.Sync()
		return run(cmd.Context(), cfg, logger)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file")
	rootCmd.Flags().StringVar(&email, "email", "owner@tablekit.dev", "Owner email address")
	rootCmd.Flags().StringVar(&password, "password", "password123", "Owner password")
	rootCmd.Flags().StringVar(&fullName, "name", "Demo Owner", "Owner full name")
	rootCmd.Flags().IntVar(&menuCount, "menu-items", 8, "Number of demo menu items")
	rootCmd.Flags().Int64Var(&seed, "seed", 42, "Random seed for demo data")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if password == "password123" {
		logger.Warn("using default password, change immediately in production")
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("unable to connect to database: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("unable to ping database: %w", err)
	}

	// Seed in a transaction: tenant, owner and menu or nothing
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)
	q := database.New(tx)

	if existing, err := q.GetUserByEmail(ctx, email); err == nil {
		logger.Info("owner already exists, skipping", zap.String("email", email), zap.Stringer("user_id", existing.ID))
		return nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("check user: %w", err)
	}

	fake := faker.NewWithSeed(rand.NewSource(seed))

	orgID, err := q.CreateOrganization(ctx, fake.Company().Name())
	if err != nil {
		return fmt.Errorf("create organization: %w", err)
	}
	restaurantID, err := q.CreateRestaurant(ctx, database.CreateRestaurantParams{
		OrganizationID: orgID,
		Name:           fake.Address().City() + " Kitchen",
	})
	if err != nil {
		return fmt.Errorf("create restaurant: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	owner, err := q.CreateUser(ctx, database.CreateUserParams{
		OrganizationID: orgID,
		RestaurantID:   restaurantID,
		Email:          email,
		HashedPassword: string(hashed),
		FullName:       fullName,
		Role:           enum.UserRoleOwner,
	})
	if err != nil {
		return fmt.Errorf("create owner: %w", err)
	}

	if err := seedMenu(ctx, q, fake, orgID, restaurantID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	token, err := auth.GenerateToken(cfg.JWTSecret, owner.ID, orgID, restaurantID, owner.Role)
	if err != nil {
		return fmt.Errorf("generate token: %w", err)
	}

	logger.Info("seed completed",
		zap.Stringer("organization_id", orgID),
		zap.Stringer("restaurant_id", restaurantID),
		zap.Stringer("owner_id", owner.ID),
	)
	fmt.Println(token)
	return nil
}

var dishes = []string{
	"Margherita Pizza", "Cheeseburger", "Caesar Salad", "Pad Thai", "Fish Tacos",
	"Ramen", "Club Sandwich", "Mushroom Risotto", "Chicken Wings", "Lemonade",
	"Iced Latte", "Chocolate Cake",
}

var extras = []struct {
	name  string
	price string
}{
	{"Extra Cheese", "1.50"},
	{"Bacon", "2.00"},
	{"Avocado", "2.25"},
	{"Gluten Free Base", "3.00"},
	{"No Onions", "0"},
}

func seedMenu(ctx context.Context, q *database.Queries, fake faker.Faker, orgID, restaurantID uuid.UUID) error {
	n := menuCount
	if n > len(dishes) {
		n = len(dishes)
	}
	for _, name := range dishes[:n] {
		price := decimal.NewFromFloat(fake.Float64(2, 4, 28)).Round(2)
		_, err := q.CreateMenuItem(ctx, database.CreateMenuItemParams{
			OrganizationID:  orgID,
			RestaurantID:    restaurantID,
			Name:            name,
			Description:     pgtype.Text{String: fake.Lorem().Sentence(8), Valid: true},
			Price:           numeric(price.StringFixed(2)),
			PrepTimeMinutes: pgtype.Int4{Int32: int32(fake.IntBetween(3, 25)), Valid: true},
			IsAvailable:     true,
		})
		if err != nil {
			return fmt.Errorf("create menu item %q: %w", name, err)
		}
	}
	for _, m := range extras {
		_, err := q.CreateModifier(ctx, database.CreateModifierParams{
			OrganizationID: orgID,
			RestaurantID:   restaurantID,
			Name:           m.name,
			Price:          numeric(m.price),
		})
		if err != nil {
			return fmt.Errorf("create modifier %q: %w", m.name, err)
		}
	}
	return nil
}

func numeric(s string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(s)
	return n
}
