// Package vault is the password-protected store for shards and their
// media assets: a directory holding a SQLite database, a key-derivation
// salt, an AES-GCM key check probe and the encrypted asset files.
package vault

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/argon2"

	"shardkeep/internal/storage/fs"
)

// argon2id parameters for deriving the asset key from the vault password.
const (
	keyMemory     = 64 * 1024
	keyIterations = 3
	keyThreads    = 1
	saltLength    = 16
	keyLength     = 32
	nonceLength   = 12
)

const (
	dbFileName       = "shards.db"
	saltFileName     = ".salt"
	keycheckFileName = "keycheck"
	assetsDirName    = "assets"
	lockFileName     = ".lock"
)

// keycheckPlain is the known plaintext sealed into the keycheck file at
// init time; a successful unseal on open proves the derived key.
var keycheckPlain = []byte("shardkeep keycheck v1")

var (
	ErrWrongPassword = errors.New("wrong password")
	ErrNotFound      = errors.New("not found")
	ErrVaultExists   = errors.New("vault already exists")
)

// Status of a vault directory.
type Status string

const (
	StatusNew      Status = "new"
	StatusExisting Status = "existing"
)

// StatusOf reports whether dir already holds a vault.
func StatusOf(dir string) Status {
	if _, err := os.Stat(filepath.Join(dir, dbFileName)); err == nil {
		return StatusExisting
	}
	return StatusNew
}

// Vault is an unlocked vault. One process holds it at a time, guarded by
// a file lock on the vault directory.
type Vault struct {
	dir         string
	db          *sql.DB
	gcm         cipher.AEAD
	flock       *fs.FileLock
	locker      *fs.Locker
	busyTimeout time.Duration
}

// Init creates a new vault in dir and returns it unlocked.
func Init(dir, password string) (*Vault, error) {
	if password == "" {
		return nil, errors.New("password must not be empty")
	}
	if StatusOf(dir) == StatusExisting {
		return nil, ErrVaultExists
	}
	if err := os.MkdirAll(filepath.Join(dir, assetsDirName), 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	if err := fs.WriteFileAtomic(filepath.Join(dir, saltFileName), salt, 0o600); err != nil {
		return nil, fmt.Errorf("write salt: %w", err)
	}

	gcm, err := newGCM(deriveKey(password, salt))
	if err != nil {
		return nil, err
	}
	probe, err := seal(gcm, keycheckPlain)
	if err != nil {
		return nil, fmt.Errorf("seal keycheck: %w", err)
	}
	if err := fs.WriteFileAtomic(filepath.Join(dir, keycheckFileName), probe, 0o600); err != nil {
		return nil, fmt.Errorf("write keycheck: %w", err)
	}

	return openUnlocked(dir, gcm)
}

// Open unlocks an existing vault. A wrong password fails the keycheck
// probe and returns ErrWrongPassword.
func Open(dir, password string) (*Vault, error) {
	salt, err := os.ReadFile(filepath.Join(dir, saltFileName))
	if err != nil {
		return nil, fmt.Errorf("read salt: %w", err)
	}
	gcm, err := newGCM(deriveKey(password, salt))
	if err != nil {
		return nil, err
	}
	probe, err := os.ReadFile(filepath.Join(dir, keycheckFileName))
	if err != nil {
		return nil, fmt.Errorf("read keycheck: %w", err)
	}
	plain, err := unseal(gcm, probe)
	if err != nil {
		return nil, ErrWrongPassword
	}
	if subtle.ConstantTimeCompare(plain, keycheckPlain) != 1 {
		return nil, ErrWrongPassword
	}
	return openUnlocked(dir, gcm)
}

func openUnlocked(dir string, gcm cipher.AEAD) (*Vault, error) {
	flock, err := fs.AcquireFileLockWithTimeout(filepath.Join(dir, lockFileName), 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("lock vault: %w", err)
	}
	db, err := sql.Open("sqlite3", filepath.Join(dir, dbFileName))
	if err != nil {
		_ = flock.Release()
		return nil, fmt.Errorf("open database: %w", err)
	}
	v := &Vault{
		dir:    dir,
		db:     db,
		gcm:    gcm,
		flock:  flock,
		locker: fs.NewLocker(),
	}
	if err := v.migrate(context.Background()); err != nil {
		_ = db.Close()
		_ = flock.Release()
		return nil, err
	}
	return v, nil
}

// Close releases the vault. The derived key is dropped with the Vault.
func (v *Vault) Close() error {
	var first error
	if v.db != nil {
		first = v.db.Close()
	}
	if err := v.flock.Release(); err != nil && first == nil {
		first = err
	}
	return first
}

// SetBusyTimeout bounds how long busy SQLite operations are retried.
func (v *Vault) SetBusyTimeout(d time.Duration) {
	v.busyTimeout = d
}

// Dir returns the vault directory.
func (v *Vault) Dir() string {
	return v.dir
}

func (v *Vault) migrate(ctx context.Context) error {
	if _, err := v.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	var version int
	err := v.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		version = 0
	} else if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version == schemaVersion {
		return nil
	}
	if _, err := v.db.ExecContext(ctx, "DELETE FROM schema_version"); err != nil {
		return err
	}
	_, err = v.db.ExecContext(ctx, "INSERT INTO schema_version(version) VALUES(?)", schemaVersion)
	return err
}

func deriveKey(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, keyIterations, keyMemory, keyThreads, keyLength)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}
	return gcm, nil
}

// seal encrypts plain and prepends the random nonce to the ciphertext.
func seal(gcm cipher.AEAD, plain []byte) ([]byte, error) {
	nonce := make([]byte, nonceLength)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plain, nil), nil
}

func unseal(gcm cipher.AEAD, sealed []byte) ([]byte, error) {
	if len(sealed) < nonceLength {
		return nil, errors.New("ciphertext too short")
	}
	return gcm.Open(nil, sealed[:nonceLength], sealed[nonceLength:], nil)
}
