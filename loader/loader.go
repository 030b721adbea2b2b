package loader

import (
	"context"
	_ "embed"
	"fmt"
	"math/rand"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"salesboard/config"
)

//go:embed schema.sql
var schemaSQL string

type seedProduct struct {
	Name  string
	Price string
}

// Catalogue seeded into a fresh store.
var seedProducts = []seedProduct{
	{"Ordinateur portable", "999.99"},
	{"Téléphone", "599.99"},
	{"Casque audio", "99.99"},
	{"Souris sans fil", "25.99"},
	{"Clavier mécanique", "89.99"},
	{"Écran 4K", "299.99"},
	{"Disque dur SSD", "120.50"},
	{"Webcam HD", "75.00"},
}

var seedCustomers = []string{
	"Jean Dupont",
	"Marie Martin",
}

type SeedOptions struct {
	// Transactions is the number of random sales to generate.
	Transactions int
	// Seed makes the generated sales reproducible.
	Seed int64
	// Now anchors the 365-day date window.
	Now time.Time
	// Reset drops existing tables first.
	Reset bool
}

func DefaultSeedOptions() SeedOptions {
	return SeedOptions{
		Transactions: 50,
		Seed:         time.Now().UnixNano(),
		Now:          time.Now(),
		Reset:        true,
	}
}

type SeedResult struct {
	Products     int `json:"products"`
	Customers    int `json:"customers"`
	Transactions int `json:"transactions"`
}

// ApplySchema creates the sales tables when they do not exist.
func ApplySchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

// SeedSales fills the store with the catalogue, the customers and
// opts.Transactions random sales, all in one transaction.
func SeedSales(ctx context.Context, db *sqlx.DB, opts SeedOptions) (res SeedResult, err error) {
	log := config.GetLogger()
	if opts.Transactions < 0 {
		return res, fmt.Errorf("transaction count must not be negative, got %d", opts.Transactions)
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	if opts.Reset {
		for _, table := range []string{"transactions", "products", "customers"} {
			if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
				return res, fmt.Errorf("failed to drop %s: %w", table, err)
			}
		}
	}
	if err := ApplySchema(ctx, db); err != nil {
		return res, err
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			log.WithError(err).Warn("rolling back seed")
			tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	productIDs := make([]int64, 0, len(seedProducts))
	for _, p := range seedProducts {
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return res, fmt.Errorf("bad catalogue price %q: %w", p.Price, err)
		}
		r, err := tx.ExecContext(ctx, `INSERT INTO products (name, price) VALUES (?, ?)`, p.Name, price.InexactFloat64())
		if err != nil {
			return res, fmt.Errorf("failed to insert product %s: %w", p.Name, err)
		}
		id, err := r.LastInsertId()
		if err != nil {
			return res, err
		}
		productIDs = append(productIDs, id)
	}

	customerIDs := make([]int64, 0, len(seedCustomers))
	for _, name := range seedCustomers {
		r, err := tx.ExecContext(ctx, `INSERT INTO customers (name) VALUES (?)`, name)
		if err != nil {
			return res, fmt.Errorf("failed to insert customer %s: %w", name, err)
		}
		id, err := r.LastInsertId()
		if err != nil {
			return res, err
		}
		customerIDs = append(customerIDs, id)
	}

	stmt, err := tx.PreparexContext(ctx, `INSERT INTO transactions (product_id, customer_id, date, quantity) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return res, fmt.Errorf("failed to prepare transaction insert: %w", err)
	}
	defer stmt.Close()

	rng := rand.New(rand.NewSource(opts.Seed))
	for i := 0; i < opts.Transactions; i++ {
		productID := productIDs[rng.Intn(len(productIDs))]
		customerID := customerIDs[rng.Intn(len(customerIDs))]
		date := opts.Now.AddDate(0, 0, -rng.Intn(366)).Format("2006-01-02")
		quantity := rng.Intn(3) + 1
		if _, err := stmt.ExecContext(ctx, productID, customerID, date, quantity); err != nil {
			return res, fmt.Errorf("failed to insert transaction %d: %w", i+1, err)
		}
	}

	res = SeedResult{
		Products:     len(productIDs),
		Customers:    len(customerIDs),
		Transactions: opts.Transactions,
	}
	log.WithField("module", "loader").Infof("seeded %d products, %d customers, %d transactions", res.Products, res.Customers, res.Transactions)
	return res, nil
}
