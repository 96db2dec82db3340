package journal

const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	base_currency TEXT NOT NULL DEFAULT 'USD',
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS instruments (
	id TEXT PRIMARY KEY,
	symbol TEXT NOT NULL,
	exchange TEXT NOT NULL DEFAULT '',
	asset_type TEXT NOT NULL,
	currency TEXT NOT NULL,
	UNIQUE (symbol, asset_type)
);

CREATE TABLE IF NOT EXISTS import_batches (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	filename TEXT NOT NULL,
	account_id TEXT NOT NULL DEFAULT '',
	rows_seen INTEGER NOT NULL,
	rows_imported INTEGER NOT NULL,
	rows_skipped INTEGER NOT NULL,
	notes TEXT NOT NULL DEFAULT '',
	imported_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS executions (
	id TEXT PRIMARY KEY,
	dedupe_key TEXT NOT NULL UNIQUE,
	account_id TEXT NOT NULL,
	instrument_id TEXT NOT NULL,
	batch_id TEXT NOT NULL DEFAULT '',
	executed_at DATETIME NOT NULL,
	side TEXT NOT NULL CHECK (side IN ('BUY', 'SELL')),
	quantity REAL NOT NULL,
	price REAL NOT NULL,
	commission REAL NOT NULL DEFAULT 0,
	fees REAL NOT NULL DEFAULT 0,
	currency TEXT NOT NULL,
	order_id TEXT NOT NULL DEFAULT '',
	strategy TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_executions_time ON executions(executed_at);
CREATE INDEX IF NOT EXISTS idx_executions_scope ON executions(account_id, instrument_id, executed_at);

CREATE TABLE IF NOT EXISTS positions (
	account_id TEXT NOT NULL,
	instrument_id TEXT NOT NULL,
	quantity REAL NOT NULL,
	avg_cost REAL NOT NULL,
	unrealized_pnl REAL,
	currency TEXT NOT NULL,
	updated_at DATETIME NOT NULL,
	PRIMARY KEY (account_id, instrument_id)
);

CREATE TABLE IF NOT EXISTS position_snapshots (
	account_id TEXT NOT NULL,
	instrument_id TEXT NOT NULL,
	snapshot_date TEXT NOT NULL,
	quantity REAL NOT NULL,
	avg_cost REAL NOT NULL,
	unrealized_pnl REAL,
	currency TEXT NOT NULL,
	PRIMARY KEY (account_id, instrument_id, snapshot_date)
);

CREATE TABLE IF NOT EXISTS account_snapshots (
	account_id TEXT NOT NULL,
	snapshot_date TEXT NOT NULL,
	equity REAL,
	realized_pnl REAL,
	unrealized_pnl REAL,
	currency TEXT NOT NULL,
	PRIMARY KEY (account_id, snapshot_date)
);

CREATE TABLE IF NOT EXISTS closed_trades (
	trade_id TEXT PRIMARY KEY,
	account_id TEXT NOT NULL,
	instrument_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL CHECK (side IN ('LONG', 'SHORT')),
	open_time DATETIME NOT NULL,
	close_time DATETIME NOT NULL,
	trade_date TEXT NOT NULL,
	total_quantity REAL NOT NULL,
	avg_entry_price REAL NOT NULL,
	avg_exit_price REAL NOT NULL,
	gross_realized_pnl REAL NOT NULL,
	realized_pnl REAL NOT NULL,
	total_commission REAL NOT NULL,
	opening_quantity REAL NOT NULL,
	closing_quantity REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_closed_trades_close ON closed_trades(close_time);

CREATE TABLE IF NOT EXISTS closed_trade_executions (
	trade_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	execution_id TEXT NOT NULL,
	executed_at DATETIME NOT NULL,
	side TEXT NOT NULL,
	quantity REAL NOT NULL,
	fraction REAL NOT NULL,
	price REAL NOT NULL,
	commission REAL NOT NULL,
	fees REAL NOT NULL,
	PRIMARY KEY (trade_id, seq)
);

CREATE TABLE IF NOT EXISTS day_notes (
	account_id TEXT NOT NULL,
	note_date TEXT NOT NULL,
	body TEXT NOT NULL,
	updated_at DATETIME NOT NULL,
	PRIMARY KEY (account_id, note_date)
);

CREATE TABLE IF NOT EXISTS closed_trade_notes (
	trade_id TEXT PRIMARY KEY,
	body TEXT NOT NULL,
	updated_at DATETIME NOT NULL
);
`
