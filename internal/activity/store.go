package activity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/yolodolo42/walletconnector/internal/wallet"
)

var ErrNotInitialized = errors.New("activity store not initialized")

// Store is an append-only log of transactions submitted through connected
// wallets, keyed by family, chain and transaction id.
type Store struct {
	db *sql.DB
}

// Entry is one submitted transaction. TxID is the 0x hash (EVM) or the
// base58 signature (Solana).
type Entry struct {
	WalletKey string
	Family    wallet.ChainFamily
	ChainID   uint64
	Account   string
	TxID      string
	To        string
	Amount    string
	CreatedAt time.Time
}

// Open opens (or creates) the activity DB under dataDir/activity.db.
func Open(dataDir string) (*Store, error) {
	return OpenDSN(filepath.Join(dataDir, "activity.db"))
}

// OpenDSN opens (or creates) an activity DB using the given sqlite DSN/path.
// Tests may pass ":memory:" to avoid touching disk.
func OpenDSN(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open activity db: %w", err)
	}
	// :memory: databases are per connection.
	db.SetMaxOpenConns(1)

	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func ensureSchema(db *sql.DB) error {
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS transactions (
	family TEXT NOT NULL,
	chain_id INTEGER NOT NULL,
	tx_id TEXT NOT NULL,
	wallet TEXT NOT NULL,
	account TEXT NOT NULL,
	recipient TEXT,
	amount TEXT,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (family, chain_id, tx_id)
);
`)
	if err != nil {
		return fmt.Errorf("create transactions table: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record stores e. Recording the same transaction twice keeps the first entry.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if s == nil || s.db == nil {
		return ErrNotInitialized
	}
	if e.WalletKey == "" || e.Family == "" || e.TxID == "" {
		return errors.New("wallet, family and transaction id are required")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO transactions (family, chain_id, tx_id, wallet, account, recipient, amount, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(family, chain_id, tx_id) DO NOTHING
`, string(e.Family), e.ChainID, e.TxID, e.WalletKey, e.Account, e.To, e.Amount, e.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("persist transaction: %w", err)
	}
	return nil
}

// List returns up to limit entries, newest first. A non-empty account
// restricts the result to that sender.
func (s *Store) List(ctx context.Context, account string, limit int) ([]Entry, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotInitialized
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT family, chain_id, tx_id, wallet, account, COALESCE(recipient, ''), COALESCE(amount, ''), created_at
FROM transactions
WHERE ? = '' OR account = ?
ORDER BY created_at DESC, rowid DESC
LIMIT ?
`, account, account, limit)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			family  string
			created int64
		)
		if err := rows.Scan(&family, &e.ChainID, &e.TxID, &e.WalletKey, &e.Account, &e.To, &e.Amount, &created); err != nil {
			return nil, err
		}
		e.Family = wallet.ChainFamily(family)
		e.CreatedAt = time.UnixMilli(created)
		out = append(out, e)
	}
	return out, rows.Err()
}
