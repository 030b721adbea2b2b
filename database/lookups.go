package database

import (
	"context"
	"fmt"

	"salesboard/model"
)

func GetAllProducts(ctx context.Context, db DBTX) ([]model.Product, error) {
	products := []model.Product{}
	if err := db.SelectContext(ctx, &products, `SELECT id, name, price FROM products ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to get all products: %w", storeError(err))
	}
	return products, nil
}

func GetAllCustomers(ctx context.Context, db DBTX) ([]model.Customer, error) {
	customers := []model.Customer{}
	if err := db.SelectContext(ctx, &customers, `SELECT id, name FROM customers ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to get all customers: %w", storeError(err))
	}
	return customers, nil
}

// GetProductMap returns product id -> name.
func GetProductMap(ctx context.Context, db DBTX) (map[int64]string, error) {
	products, err := GetAllProducts(ctx, db)
	if err != nil {
		return nil, err
	}
	m := make(map[int64]string, len(products))
	for _, p := range products {
		m[p.ID] = p.Name
	}
	return m, nil
}

func GetCustomerMap(ctx context.Context, db DBTX) (map[int64]string, error) {
	customers, err := GetAllCustomers(ctx, db)
	if err != nil {
		return nil, err
	}
	m := make(map[int64]string, len(customers))
	for _, c := range customers {
		m[c.ID] = c.Name
	}
	return m, nil
}

func CountTransactions(ctx context.Context, db DBTX) (int, error) {
	var n int
	if err := db.GetContext(ctx, &n, `SELECT COUNT(*) FROM transactions`); err != nil {
		return 0, storeError(err)
	}
	return n, nil
}
