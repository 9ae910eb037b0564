package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/noah-isme/checkout-core/internal/cart"
	"github.com/noah-isme/checkout-core/internal/price"
	"github.com/noah-isme/checkout-core/internal/rule"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	seedShippingMethods(ctx, pool)
	seedShippingPrices(ctx, pool)
	seedRules(ctx, pool)

	log.Println("Seeding completed successfully!")
}

func seedShippingMethods(ctx context.Context, pool *pgxpool.Pool) {
	methods := []struct {
		ID           string
		Name         string
		TaxType      cart.ShippingTaxType
		FixedTaxRate *float64
	}{
		{"standard", "Standard Shipping", cart.ShippingTaxHighest, nil},
		{"express", "Express Shipping", cart.ShippingTaxAuto, nil},
		{"bulky", "Bulky Goods Freight", cart.ShippingTaxFixed, fptr(19)},
	}

	fmt.Println("Seeding Shipping Methods...")
	for _, m := range methods {
		_, err := pool.Exec(ctx, `
			INSERT INTO shipping_methods (id, name, tax_type, fixed_tax_rate, active)
			VALUES ($1, $2, $3, $4, true)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, tax_type = EXCLUDED.tax_type, fixed_tax_rate = EXCLUDED.fixed_tax_rate;
		`, m.ID, m.Name, m.TaxType, m.FixedTaxRate)
		if err != nil {
			log.Printf("Failed to seed shipping method %s: %v", m.ID, err)
		}
	}
}

func seedShippingPrices(ctx context.Context, pool *pgxpool.Pool) {
	type tier struct {
		ID          string
		MethodID    string
		Calculation cart.CalculationBasis
		Start, End  *float64
		Gross, Net  float64
	}
	tiers := []tier{
		{"standard-small", "standard", cart.CalculationByPrice, fptr(0), fptr(50), 4.99, 4.19},
		{"standard-large", "standard", cart.CalculationByPrice, fptr(50), nil, 0, 0},
		{"express-flat", "express", cart.CalculationByLineItemCount, fptr(0), nil, 9.99, 8.39},
		{"bulky-light", "bulky", cart.CalculationByWeight, fptr(0), fptr(30), 19.90, 16.72},
		{"bulky-heavy", "bulky", cart.CalculationByWeight, fptr(30), nil, 49.90, 41.93},
	}

	fmt.Println("Seeding Shipping Prices...")
	for _, t := range tiers {
		prices, err := json.Marshal(price.CurrencyCollection{
			{CurrencyID: price.DefaultCurrencyID, Gross: t.Gross, Net: t.Net, Linked: false},
		})
		if err != nil {
			log.Fatalf("Failed to encode currency prices for %s: %v", t.ID, err)
		}
		_, err = pool.Exec(ctx, `
			INSERT INTO shipping_method_prices (id, shipping_method_id, calculation, quantity_start, quantity_end, currency_prices)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET currency_prices = EXCLUDED.currency_prices, quantity_start = EXCLUDED.quantity_start, quantity_end = EXCLUDED.quantity_end;
		`, t.ID, t.MethodID, t.Calculation, t.Start, t.End, prices)
		if err != nil {
			log.Printf("Failed to seed shipping price %s: %v", t.ID, err)
		}
	}
}

func seedRules(ctx context.Context, pool *pgxpool.Pool) {
	rules := []struct {
		ID       string
		Name     string
		Priority int
		Payload  rule.Config
	}{
		{
			ID: "bulk-order", Name: "Five or more goods", Priority: 100,
			Payload: rule.Config{Type: "goodsCount", Value: rawJSON(`{"operator":">=","count":5}`)},
		},
		{
			ID: "heavy-cart", Name: "Cart heavier than 30kg", Priority: 50,
			Payload: rule.Config{Type: "cartWeight", Value: rawJSON(`{"operator":">=","weight":30}`)},
		},
		{
			ID: "has-product", Name: "Cart contains a product", Priority: 0,
			Payload: rule.Config{Type: "lineItemOfType", Value: rawJSON(`{"operator":"=","lineItemType":"product"}`)},
		},
	}

	fmt.Println("Seeding Rules...")
	for _, r := range rules {
		payload, err := json.Marshal(r.Payload)
		if err != nil {
			log.Fatalf("Failed to encode rule payload %s: %v", r.ID, err)
		}
		if _, err := rule.Decode(r.Payload); err != nil {
			log.Fatalf("Refusing to seed invalid rule %s: %v", r.ID, err)
		}
		_, err = pool.Exec(ctx, `
			INSERT INTO rules (id, name, priority, payload, active)
			VALUES ($1, $2, $3, $4, true)
			ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload, priority = EXCLUDED.priority;
		`, r.ID, r.Name, r.Priority, payload)
		if err != nil {
			log.Printf("Failed to seed rule %s: %v", r.ID, err)
		}
	}
}

func fptr(v float64) *float64 { return &v }

func rawJSON(s string) json.RawMessage { return json.RawMessage(s) }
