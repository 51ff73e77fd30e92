package database

var schema = []string{
	`CREATE TABLE IF NOT EXISTS products (
    id          UUID PRIMARY KEY,
    name        TEXT NOT NULL,
    brand       TEXT NOT NULL DEFAULT '',
    category    TEXT NOT NULL DEFAULT '',
    barcode     TEXT,
    image_url   TEXT,
    unit        TEXT NOT NULL DEFAULT '',
    status      TEXT NOT NULL DEFAULT 'active',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE INDEX IF NOT EXISTS products_category_idx ON products (category) WHERE status = 'active'`,

	`CREATE TABLE IF NOT EXISTS stores (
    id          UUID PRIMARY KEY,
    name        TEXT NOT NULL,
    chain       TEXT NOT NULL DEFAULT '',
    type        TEXT NOT NULL DEFAULT '',
    address     TEXT NOT NULL DEFAULT '',
    city        TEXT NOT NULL DEFAULT '',
    region      TEXT NOT NULL DEFAULT '',
    latitude    DOUBLE PRECISION NOT NULL DEFAULT 0,
    longitude   DOUBLE PRECISION NOT NULL DEFAULT 0,
    status      TEXT NOT NULL DEFAULT 'active',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`,

	`CREATE TABLE IF NOT EXISTS prices (
    id               UUID PRIMARY KEY,
    product_id       UUID NOT NULL REFERENCES products (id),
    store_id         UUID NOT NULL REFERENCES stores (id),
    price            NUMERIC(12,2) NOT NULL CHECK (price >= 0),
    currency         TEXT NOT NULL DEFAULT 'MYR',
    is_on_sale       BOOLEAN NOT NULL DEFAULT false,
    original_price   NUMERIC(12,2),
    sale_description TEXT,
    valid_from       TIMESTAMPTZ NOT NULL,
    valid_until      TIMESTAMPTZ,
    source           TEXT NOT NULL DEFAULT 'manual',
    submitted_by     TEXT,
    status           TEXT NOT NULL DEFAULT 'active',
    created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE INDEX IF NOT EXISTS prices_product_valid_from_idx ON prices (product_id, valid_from DESC) WHERE status = 'active'`,

	`CREATE TABLE IF NOT EXISTS wishlist_items (
    id                UUID PRIMARY KEY,
    user_id           TEXT NOT NULL,
    product_id        TEXT NOT NULL,
    product_name      TEXT NOT NULL,
    product_image_url TEXT,
    target_price      NUMERIC(12,2) NOT NULL CHECK (target_price >= 0),
    currency          TEXT NOT NULL DEFAULT 'MYR',
    preferred_stores  TEXT[] NOT NULL DEFAULT '{}',
    notes             TEXT,
    status            TEXT NOT NULL DEFAULT 'active',
    last_notified_at  TIMESTAMPTZ,
    target_reached    BOOLEAN NOT NULL DEFAULT false,
    created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE INDEX IF NOT EXISTS wishlist_items_user_idx ON wishlist_items (user_id, created_at DESC) WHERE status = 'active'`,

	`CREATE TABLE IF NOT EXISTS expenses (
    id          UUID PRIMARY KEY,
    user_id     TEXT NOT NULL,
    category    TEXT NOT NULL,
    amount      NUMERIC(12,2) NOT NULL CHECK (amount >= 0),
    currency    TEXT NOT NULL DEFAULT 'MYR',
    description TEXT NOT NULL,
    date        TIMESTAMPTZ NOT NULL,
    receipt_id  TEXT,
    store_id    TEXT,
    store_name  TEXT,
    tags        TEXT[] NOT NULL DEFAULT '{}',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE INDEX IF NOT EXISTS expenses_user_date_idx ON expenses (user_id, date DESC)`,

	`CREATE TABLE IF NOT EXISTS receipts (
    id            UUID PRIMARY KEY,
    user_id       TEXT NOT NULL,
    store_id      TEXT NOT NULL DEFAULT '',
    store_name    TEXT NOT NULL DEFAULT '',
    image_url     TEXT NOT NULL,
    total_amount  NUMERIC(12,2) NOT NULL DEFAULT 0,
    currency      TEXT NOT NULL DEFAULT 'MYR',
    purchase_date TIMESTAMPTZ NOT NULL,
    items         JSONB NOT NULL DEFAULT '[]',
    status        TEXT NOT NULL DEFAULT 'pending',
    ocr_text      TEXT,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE INDEX IF NOT EXISTS receipts_user_date_idx ON receipts (user_id, purchase_date DESC)`,
}
