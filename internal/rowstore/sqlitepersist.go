package rowstore

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mutecomm/go-sqlcipher/v4"
)

// SQLCipherPersister is a Persister backed by a SQLCipher-encrypted
// SQLite database: one row of the underlying "rows" table per live
// engine row, keyed by file position. It is the encrypted snapshot a
// Table writes to on Close (pragma_key set from the
// DSN when a passphrase is supplied, plain SQLite otherwise).
type SQLCipherPersister struct {
	db *sql.DB
}

// OpenSQLCipherPersister opens (creating if absent) an encrypted
// persister at path. An empty passphrase opens the database
// unencrypted, for development and testing.
func OpenSQLCipherPersister(path, passphrase string) (*SQLCipherPersister, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL", path)
	if passphrase != "" {
		dsn = fmt.Sprintf("file:%s?_pragma_key=%s&_journal_mode=WAL&_synchronous=NORMAL", path, passphrase)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlcipher persister: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open sqlcipher persister: invalid passphrase or corrupted database: %w", err)
	}

	const schema = `CREATE TABLE IF NOT EXISTS rows (
		pos  INTEGER PRIMARY KEY,
		data TEXT NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("open sqlcipher persister: %w", err)
	}

	return &SQLCipherPersister{db: db}, nil
}

// Persist satisfies rowstore.Persister.
func (p *SQLCipherPersister) Persist(pos int64, row *Row) error {
	buf, err := json.Marshal(row.Data)
	if err != nil {
		return fmt.Errorf("encode row %d: %w", pos, err)
	}
	_, err = p.db.Exec(`INSERT INTO rows (pos, data) VALUES (?, ?)
		ON CONFLICT(pos) DO UPDATE SET data = excluded.data`, pos, string(buf))
	return err
}

// Load satisfies rowstore.Persister.
func (p *SQLCipherPersister) Load(pos int64) (*Row, error) {
	var data string
	err := p.db.QueryRow(`SELECT data FROM rows WHERE pos = ?`, pos).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load row %d: %w", pos, err)
	}

	var values []any
	if err := json.Unmarshal([]byte(data), &values); err != nil {
		return nil, fmt.Errorf("decode row %d: %w", pos, err)
	}
	return NewRow(pos, values, 0), nil
}

// Delete satisfies rowstore.Persister.
func (p *SQLCipherPersister) Delete(pos int64) error {
	_, err := p.db.Exec(`DELETE FROM rows WHERE pos = ?`, pos)
	return err
}

// Close releases the underlying database handle.
func (p *SQLCipherPersister) Close() error {
	return p.db.Close()
}
