package database

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"salesboard/model"
)

const testDDL = `
CREATE TABLE products (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL, price REAL NOT NULL);
CREATE TABLE customers (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL);
CREATE TABLE transactions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	product_id INTEGER,
	customer_id INTEGER,
	date TEXT NOT NULL,
	quantity INTEGER NOT NULL
);`

// newTestDB opens a file-backed store without foreign key enforcement so
// tests can plant orphan transactions.
func newTestDB(t *testing.T, ddl string) *sqlx.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sales.db")
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := db.Exec(ddl); err != nil {
		t.Fatalf("ddl: %v", err)
	}
	return db
}

func seedScenario(t *testing.T, db *sqlx.DB) {
	t.Helper()
	stmts := []string{
		`INSERT INTO products (name, price) VALUES ('A', 10.00), ('B', 20.00)`,
		`INSERT INTO customers (name) VALUES ('X')`,
		`INSERT INTO transactions (product_id, customer_id, date, quantity) VALUES (1, 1, '2024-01-01', 2), (2, 1, '2024-01-01', 1)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("seed %q: %v", s, err)
		}
	}
}

func TestValidateSchemaAcceptsCompleteStore(t *testing.T) {
	db := newTestDB(t, testDDL)
	if err := ValidateSchema(context.Background(), db, SalesSchema); err != nil {
		t.Fatalf("ValidateSchema: %v", err)
	}
}

func TestValidateSchemaReportsMissingQuantityColumn(t *testing.T) {
	db := newTestDB(t, `
CREATE TABLE products (id INTEGER PRIMARY KEY, name TEXT, price REAL);
CREATE TABLE customers (id INTEGER PRIMARY KEY, name TEXT);
CREATE TABLE transactions (id INTEGER PRIMARY KEY, product_id INTEGER, customer_id INTEGER, date TEXT);`)

	err := ValidateSchema(context.Background(), db, SalesSchema)
	var schemaErr *model.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected *model.SchemaError, got %T: %v", err, err)
	}
	if len(schemaErr.MissingTables) != 0 {
		t.Errorf("MissingTables = %v, want none", schemaErr.MissingTables)
	}
	want := map[string][]string{"transactions": {"quantity"}}
	if !reflect.DeepEqual(schemaErr.MissingColumns, want) {
		t.Errorf("MissingColumns = %v, want %v", schemaErr.MissingColumns, want)
	}
}

func TestValidateSchemaReportsEverythingAtOnce(t *testing.T) {
	db := newTestDB(t, `
CREATE TABLE products (id INTEGER PRIMARY KEY, label TEXT);`)

	err := ValidateSchema(context.Background(), db, SalesSchema)
	var schemaErr *model.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected *model.SchemaError, got %T: %v", err, err)
	}
	if want := []string{"customers", "transactions"}; !reflect.DeepEqual(schemaErr.MissingTables, want) {
		t.Errorf("MissingTables = %v, want %v", schemaErr.MissingTables, want)
	}
	if want := []string{"name", "price"}; !reflect.DeepEqual(schemaErr.MissingColumns["products"], want) {
		t.Errorf("MissingColumns[products] = %v, want %v", schemaErr.MissingColumns["products"], want)
	}
}

func TestLoadSalesScenario(t *testing.T) {
	db := newTestDB(t, testDDL)
	seedScenario(t, db)

	load, err := LoadSales(context.Background(), db)
	if err != nil {
		t.Fatalf("LoadSales: %v", err)
	}
	if load.Dropped != 0 {
		t.Errorf("Dropped = %d, want 0", load.Dropped)
	}
	if len(load.Rows) != 2 {
		t.Fatalf("len(Rows) = %d, want 2", len(load.Rows))
	}
	first := load.Rows[0]
	if first.ProductName != "A" || first.CustomerName != "X" {
		t.Errorf("aliases not applied: %+v", first)
	}
	if first.Revenue.StringFixed(2) != "20.00" {
		t.Errorf("Revenue = %s, want 20.00", first.Revenue.StringFixed(2))
	}
	if first.Month != "2024-01" {
		t.Errorf("Month = %q, want 2024-01", first.Month)
	}
}

func TestLoadSalesDropsUnresolvedReferences(t *testing.T) {
	db := newTestDB(t, testDDL)
	seedScenario(t, db)
	if _, err := db.Exec(`INSERT INTO transactions (product_id, customer_id, date, quantity) VALUES (99, 1, '2024-02-01', 1), (1, 42, '2024-02-01', 1)`); err != nil {
		t.Fatal(err)
	}

	load, err := LoadSales(context.Background(), db)
	if err != nil {
		t.Fatalf("LoadSales: %v", err)
	}
	if load.Dropped != 2 {
		t.Errorf("Dropped = %d, want 2", load.Dropped)
	}
	if len(load.Rows) != 2 {
		t.Errorf("len(Rows) = %d, want 2", len(load.Rows))
	}
}

func TestLoadSalesRejectsMalformedDate(t *testing.T) {
	db := newTestDB(t, testDDL)
	seedScenario(t, db)
	if _, err := db.Exec(`INSERT INTO transactions (product_id, customer_id, date, quantity) VALUES (1, 1, '01/03/2024', 1)`); err != nil {
		t.Fatal(err)
	}

	_, err := LoadSales(context.Background(), db)
	var integrity *model.DataIntegrityError
	if !errors.As(err, &integrity) {
		t.Fatalf("expected *model.DataIntegrityError, got %T: %v", err, err)
	}
	if integrity.TransactionID != 3 {
		t.Errorf("TransactionID = %d, want 3", integrity.TransactionID)
	}
	if integrity.Field != "date" {
		t.Errorf("Field = %q, want date", integrity.Field)
	}
}

func TestLoadSalesEmptyIsValid(t *testing.T) {
	db := newTestDB(t, testDDL)
	load, err := LoadSales(context.Background(), db)
	if err != nil {
		t.Fatalf("LoadSales: %v", err)
	}
	if len(load.Rows) != 0 || load.Dropped != 0 {
		t.Errorf("got %+v, want empty load", load)
	}
}

func TestLoadSalesIsIdempotent(t *testing.T) {
	db := newTestDB(t, testDDL)
	seedScenario(t, db)

	first, err := LoadSales(context.Background(), db)
	if err != nil {
		t.Fatal(err)
	}
	second, err := LoadSales(context.Background(), db)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("loads differ:\n%+v\n%+v", first, second)
	}
}

func TestLoadSalesHaltsOnSchemaError(t *testing.T) {
	db := newTestDB(t, `CREATE TABLE products (id INTEGER PRIMARY KEY, name TEXT, price REAL);`)
	_, err := LoadSales(context.Background(), db)
	var schemaErr *model.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected *model.SchemaError, got %T: %v", err, err)
	}
}

func TestOpenReadOnlyMissingFile(t *testing.T) {
	_, err := OpenReadOnly(filepath.Join(t.TempDir(), "nope.db"))
	var connErr *model.StoreConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected *model.StoreConnectionError, got %T: %v", err, err)
	}
}

func TestDeriveRowRejectsNonPositiveQuantity(t *testing.T) {
	r := model.SalesRow{TransactionID: 7, Date: "2024-05-06", Quantity: 0}
	err := DeriveRow(&r)
	var integrity *model.DataIntegrityError
	if !errors.As(err, &integrity) || integrity.Field != "quantity" {
		t.Fatalf("expected quantity integrity error, got %v", err)
	}
}

func TestLoadSalesRejectsMalformedNumbers(t *testing.T) {
	tests := []struct {
		name  string
		stmt  string
		field string
		value string
	}{
		{
			name:  "quantity text",
			stmt:  `INSERT INTO transactions (product_id, customer_id, date, quantity) VALUES (1, 1, '2024-01-02', 'two')`,
			field: "quantity",
			value: "two",
		},
		{
			name:  "fractional quantity",
			stmt:  `INSERT INTO transactions (product_id, customer_id, date, quantity) VALUES (1, 1, '2024-01-02', 1.5)`,
			field: "quantity",
			value: "1.5",
		},
		{
			name:  "comma price",
			stmt:  `UPDATE products SET price = '10,50' WHERE id = 1`,
			field: "price",
			value: "10,50",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newTestDB(t, testDDL)
			seedScenario(t, db)
			if _, err := db.Exec(tt.stmt); err != nil {
				t.Fatal(err)
			}

			_, err := LoadSales(context.Background(), db)
			var integrity *model.DataIntegrityError
			if !errors.As(err, &integrity) {
				t.Fatalf("expected *model.DataIntegrityError, got %T: %v", err, err)
			}
			if integrity.TransactionID == 0 {
				t.Errorf("TransactionID not set")
			}
			if integrity.Field != tt.field || integrity.Value != tt.value {
				t.Errorf("got %s=%q, want %s=%q", integrity.Field, integrity.Value, tt.field, tt.value)
			}
		})
	}
}

func TestStoreErrorClassifiesClosedHandle(t *testing.T) {
	db := newTestDB(t, testDDL)
	db.Close()

	_, err := LoadSales(context.Background(), db)
	var sc *model.StoreConnectionError
	if !errors.As(err, &sc) {
		t.Fatalf("expected *model.StoreConnectionError, got %T: %v", err, err)
	}
}
