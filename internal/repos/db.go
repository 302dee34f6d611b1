package repos

import (
	"log"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer; a single pooled connection avoids
	// SQLITE_BUSY under concurrent transactions and keeps :memory:
	// databases on one connection.
	db.SetMaxOpenConns(1)

	if err = db.Ping(); err != nil {
		return nil, err
	}

	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	// Seed baseline catalog data if DB is empty (products/customers)
	if err := seedIfEmpty(db); err != nil {
		return nil, err
	}

	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
PRAGMA foreign_keys = ON;

-- Products own the authoritative stock counters. reserved may never exceed
-- on_hand at rest; the ledger and the expiry sweep keep that true.
CREATE TABLE IF NOT EXISTS products(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  category TEXT NOT NULL,
  sale_price NUMERIC NOT NULL CHECK (sale_price > 0),
  cost_price NUMERIC NOT NULL CHECK (cost_price > 0),
  on_hand INTEGER NOT NULL DEFAULT 0 CHECK (on_hand >= 0),
  reserved INTEGER NOT NULL DEFAULT 0 CHECK (reserved >= 0),
  active INTEGER NOT NULL DEFAULT 1,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT,
  CHECK (sale_price >= cost_price),
  CHECK (reserved <= on_hand)
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_products_name_category ON products(LOWER(name), category);
CREATE INDEX IF NOT EXISTS idx_products_active_category ON products(active, category);

-- Customers
CREATE TABLE IF NOT EXISTS customers(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  tax_id TEXT NOT NULL UNIQUE CHECK (LENGTH(tax_id) = 11),
  active INTEGER NOT NULL DEFAULT 1,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_customers_active ON customers(active);

-- Reservations: advisory holds against availability, one session each.
CREATE TABLE IF NOT EXISTS reservations(
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
  session_id TEXT NOT NULL,
  qty INTEGER NOT NULL CHECK (qty > 0),
  created_at TEXT NOT NULL,
  expires_at TEXT NOT NULL,
  active INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS idx_reservations_active_expires ON reservations(active, expires_at);
CREATE INDEX IF NOT EXISTS idx_reservations_product_session ON reservations(product_id, session_id, active);
CREATE INDEX IF NOT EXISTS idx_reservations_session ON reservations(session_id, active);

-- Carts: retained after they leave ACTIVE, for audit.
CREATE TABLE IF NOT EXISTS carts(
  id TEXT PRIMARY KEY,
  session_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'ACTIVE' CHECK (status IN ('ACTIVE','FINALIZED','CANCELLED','EXPIRED')),
  subtotal NUMERIC NOT NULL DEFAULT 0 CHECK (subtotal >= 0),
  expires_at TEXT NOT NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_carts_one_active_per_session
  ON carts(session_id) WHERE status = 'ACTIVE';
CREATE INDEX IF NOT EXISTS idx_carts_status_expires ON carts(status, expires_at);

CREATE TABLE IF NOT EXISTS cart_items(
  cart_id TEXT NOT NULL REFERENCES carts(id) ON DELETE CASCADE,
  product_id TEXT NOT NULL REFERENCES products(id) ON DELETE RESTRICT,
  qty INTEGER NOT NULL CHECK (qty >= 1),
  unit_price NUMERIC NOT NULL CHECK (unit_price > 0),
  subtotal NUMERIC NOT NULL CHECK (subtotal >= 0),
  created_at TEXT,
  updated_at TEXT,
  PRIMARY KEY (cart_id, product_id)
);

-- Sales
CREATE TABLE IF NOT EXISTS sales(
  id TEXT PRIMARY KEY,
  session_id TEXT NOT NULL,
  customer_id TEXT REFERENCES customers(id) ON DELETE SET NULL,
  subtotal NUMERIC NOT NULL CHECK (subtotal >= 0),
  discount NUMERIC NOT NULL DEFAULT 0 CHECK (discount >= 0),
  total NUMERIC NOT NULL CHECK (total >= 0),
  payment_method TEXT NOT NULL CHECK (payment_method IN ('CASH','DEBIT','CREDIT','PIX')),
  status TEXT NOT NULL DEFAULT 'COMPLETED' CHECK (status IN ('COMPLETED','CANCELLED')),
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  CHECK (discount <= subtotal)
);
CREATE INDEX IF NOT EXISTS idx_sales_created_at ON sales(created_at);
CREATE INDEX IF NOT EXISTS idx_sales_session ON sales(session_id);

CREATE TABLE IF NOT EXISTS sale_items(
  sale_id TEXT NOT NULL REFERENCES sales(id) ON DELETE CASCADE,
  product_id TEXT NOT NULL REFERENCES products(id),
  product_name TEXT NOT NULL,
  qty INTEGER NOT NULL CHECK (qty > 0),
  unit_price NUMERIC NOT NULL CHECK (unit_price > 0),
  subtotal NUMERIC NOT NULL CHECK (subtotal >= 0),
  PRIMARY KEY (sale_id, product_id)
);

-- Stock movements: append-only. No UPDATE or DELETE is issued anywhere.
CREATE TABLE IF NOT EXISTS stock_movements(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
  type TEXT NOT NULL CHECK (type IN ('ENTRY','EXIT','ADJUSTMENT','RESERVE','RELEASE')),
  qty INTEGER NOT NULL CHECK (qty != 0),
  on_hand_before INTEGER NOT NULL CHECK (on_hand_before >= 0),
  on_hand_after INTEGER NOT NULL CHECK (on_hand_after >= 0),
  session_id TEXT,
  sale_id TEXT,
  note TEXT NOT NULL DEFAULT '',
  created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_movements_product_date ON stock_movements(product_id, created_at);
CREATE INDEX IF NOT EXISTS idx_movements_type ON stock_movements(type, created_at);
`
	_, err := db.Exec(schema)
	return err
}

func seedIfEmpty(db *sqlx.DB) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM products`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	log.Println("[seed] inserting demo products/customers")

	tx := db.MustBegin()
	tx.MustExec(`INSERT INTO products(id,name,category,sale_price,cost_price,on_hand,reserved) VALUES
	  ('tv-55-4k','55in 4K TV','electronics','3000.00','2100.00',10,0),
	  ('bt-speaker','Bluetooth Speaker','electronics','80.00','45.00',25,0),
	  ('espresso-m1','Espresso Machine','appliances','450.00','310.00',8,0)`)

	tx.MustExec(`INSERT INTO customers(id,name,tax_id) VALUES
	  ('c-ana','Ana Souza','39053344705'),
	  ('c-rui','Rui Lima','11144477735')`)

	return tx.Commit()
}
