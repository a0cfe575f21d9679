// ABOUTME: End-to-end encryption setup for the Matrix bot
// ABOUTME: cryptohelper over a per-user SQLite store, reset when the device changes

package matrix

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/hkdf"
	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/crypto/cryptohelper"
)

// CryptoManager owns the bot's E2EE state.
type CryptoManager struct {
	helper *cryptohelper.CryptoHelper
}

// SetupCrypto enables encryption on client and stores keys under dataDir.
// A crypto database left over from a different device ID is reset first.
func SetupCrypto(ctx context.Context, client *mautrix.Client, userID, recoveryKey, dataDir string, logger *slog.Logger) (*CryptoManager, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := cryptoDBPath(dataDir, userID)
	logger.Info("setting up encryption", "db", dbPath, "device", client.DeviceID)

	// Must run before cryptohelper opens and locks the database.
	reset, err := resetStaleCryptoStore(dbPath, client.DeviceID.String())
	if err != nil {
		return nil, err
	}
	if reset {
		logger.Warn("crypto database belonged to another device, starting fresh", "db", dbPath)
	}

	storeKey, err := deriveStoreKey(userID)
	if err != nil {
		return nil, err
	}
	helper, err := cryptohelper.NewCryptoHelper(client, storeKey, dbPath)
	if err != nil {
		return nil, fmt.Errorf("creating crypto helper: %w", err)
	}
	if err := helper.Init(ctx); err != nil {
		return nil, fmt.Errorf("initializing crypto helper: %w", err)
	}
	client.Crypto = helper

	manager := &CryptoManager{helper: helper}
	if recoveryKey == "" {
		return manager, nil
	}

	// Without cross-signing the bot still encrypts; clients just show it unverified.
	if machine := helper.Machine(); machine == nil {
		logger.Warn("crypto machine not initialized, skipping recovery key")
	} else if err := machine.VerifyWithRecoveryKey(ctx, recoveryKey); err != nil {
		logger.Warn("failed to verify with recovery key", "error", err)
	} else {
		logger.Info("device verified with recovery key")
	}
	return manager, nil
}

// Close releases the crypto store.
func (cm *CryptoManager) Close() error {
	if cm.helper != nil {
		return cm.helper.Close()
	}
	return nil
}

// cryptoDBPath isolates each bot account in its own database file.
func cryptoDBPath(dataDir, userID string) string {
	return filepath.Join(dataDir, fmt.Sprintf("modclock-crypto-%s.db", slugify(userID)))
}

// slugify keeps the filesystem-safe ASCII of a Matrix user ID and turns the
// server separator into an underscore: @modclock:matrix.org -> modclock_matrix.org
func slugify(userID string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == ':':
			return '_'
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return -1
		}
	}, strings.TrimPrefix(userID, "@"))
}

// deriveStoreKey derives a deterministic 32-byte pickle key for userID.
func deriveStoreKey(userID string) ([]byte, error) {
	key := make([]byte, 32)
	r := hkdf.New(sha256.New, []byte(userID), []byte("modclock"), []byte("matrix crypto store"))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("deriving store key: %w", err)
	}
	return key, nil
}

// resetStaleCryptoStore removes the crypto database and its SQLite sidecar
// files when they were written for a different device. It reports whether
// anything was removed.
func resetStaleCryptoStore(dbPath, deviceID string) (bool, error) {
	stale, err := checkDeviceIDMismatch(dbPath, deviceID)
	if err != nil {
		return false, fmt.Errorf("reading crypto database device: %w", err)
	}
	if !stale {
		return false, nil
	}
	for _, path := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return false, fmt.Errorf("removing stale crypto database: %w", err)
		}
	}
	return true, nil
}

// checkDeviceIDMismatch reports whether an existing crypto database belongs
// to a different device than currentDeviceID.
func checkDeviceIDMismatch(dbPath, currentDeviceID string) (bool, error) {
	if _, err := os.Stat(dbPath); errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return false, err
	}
	defer db.Close()

	var storedDeviceID string
	err = db.QueryRow("SELECT device_id FROM crypto_account LIMIT 1").Scan(&storedDeviceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return storedDeviceID != currentDeviceID, nil
}
