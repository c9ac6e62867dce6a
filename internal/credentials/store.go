// Package credentials persists the encrypted session token on disk,
// scoped to the current machine.
//
// SECURITY: the store handles the only credential this tool holds. The
// storage directory is created 0700, the record and salt files 0600,
// and token values are never logged.
package credentials

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/paygit/paygit-cli/internal/cryptoutil"
)

const (
	recordVersion = 1
	saltLen       = 32

	recordFile = "credentials.json"
	saltFile   = "salt"

	dirPerm  = 0o700
	filePerm = 0o600
)

// ErrCorrupted indicates the on-disk record or salt cannot be used:
// missing fields, unparseable JSON, a wrong-length salt, or a failed
// decryption. The remediation is to discard and re-authenticate.
var ErrCorrupted = errors.New("credential store corrupted")

// Record is the on-disk shape of the encrypted credential.
// Ciphertext, IV, and AuthTag are hex encoded.
type Record struct {
	Version    int       `json:"version"`
	Ciphertext string    `json:"ciphertext"`
	IV         string    `json:"iv"`
	AuthTag    string    `json:"authTag"`
	CreatedAt  time.Time `json:"createdAt"`
	MachineID  string    `json:"machineId"`
}

// Store owns the credential record and salt files inside dir.
type Store struct {
	dir    string
	logger *slog.Logger
}

// NewStore creates a store rooted at dir. The directory is not created
// until EnsureReady or SaveToken.
func NewStore(dir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{dir: dir, logger: logger}
}

// EnsureReady idempotently creates the storage directory with owner-only
// permissions. An existing directory with looser permissions is
// tightened and a warning is logged; that is never a failure.
func (s *Store) EnsureReady() error {
	info, err := os.Stat(s.dir)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(s.dir, dirPerm); err != nil {
			return fmt.Errorf("creating credential directory: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("checking credential directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("credential path %s is not a directory", s.dir)
	}

	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		s.logger.Warn("credential directory had loose permissions, tightening",
			"dir", s.dir, "had", fmt.Sprintf("%04o", perm))
		if err := os.Chmod(s.dir, dirPerm); err != nil {
			return fmt.Errorf("fixing credential directory permissions: %w", err)
		}
	}
	return nil
}

// SaveToken encrypts token under the machine key and writes the record
// atomically with owner-only permissions.
func (s *Store) SaveToken(token string) error {
	if token == "" {
		return errors.New("token must not be empty")
	}
	if err := s.EnsureReady(); err != nil {
		return err
	}

	salt, err := s.loadOrCreateSalt()
	if err != nil {
		return err
	}

	key := cryptoutil.DeriveKey([]byte(MachineID()), salt)
	defer cryptoutil.ZeroKey(key)

	sealed, err := cryptoutil.Encrypt([]byte(token), key)
	if err != nil {
		return fmt.Errorf("encrypting token: %w", err)
	}

	record := Record{
		Version:    recordVersion,
		Ciphertext: hex.EncodeToString(sealed.Ciphertext),
		IV:         hex.EncodeToString(sealed.IV),
		AuthTag:    hex.EncodeToString(sealed.AuthTag),
		CreatedAt:  time.Now().UTC(),
		MachineID:  MachineID(),
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding credential record: %w", err)
	}

	return s.writeFileAtomic(s.recordPath(), data)
}

// LoadToken loads and decrypts the stored token. A missing record is
// reported as found=false with a nil error; a present but unusable
// record returns an error wrapping ErrCorrupted (and, for decryption
// failures, cryptoutil.ErrAuthentication).
func (s *Store) LoadToken() (token string, found bool, err error) {
	data, err := os.ReadFile(s.recordPath())
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading credential record: %w", err)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return "", false, fmt.Errorf("%w: unparseable record: %w", ErrCorrupted, err)
	}
	if record.Ciphertext == "" || record.IV == "" || record.AuthTag == "" {
		return "", false, fmt.Errorf("%w: record is missing required fields", ErrCorrupted)
	}

	// A record written on another machine is a provenance hint, not a
	// hard failure: decryption is attempted regardless and will fail on
	// its own if the key genuinely differs.
	if record.MachineID != "" && record.MachineID != MachineID() {
		s.logger.Warn("credential record was written on a different machine",
			"recordMachineId", record.MachineID)
	}

	sealed, err := decodeRecord(&record)
	if err != nil {
		return "", false, fmt.Errorf("%w: %w", ErrCorrupted, err)
	}

	salt, err := s.loadOrCreateSalt()
	if err != nil {
		return "", false, err
	}

	key := cryptoutil.DeriveKey([]byte(MachineID()), salt)
	defer cryptoutil.ZeroKey(key)

	plaintext, err := cryptoutil.Decrypt(sealed, key)
	if err != nil {
		return "", false, fmt.Errorf("%w: %w", ErrCorrupted, err)
	}

	return string(plaintext), true, nil
}

// DeleteToken removes the record and reports whether anything was
// deleted. Deleting an absent record is not an error.
func (s *Store) DeleteToken() (bool, error) {
	err := os.Remove(s.recordPath())
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("deleting credential record: %w", err)
	}
	return true, nil
}

// HasToken reports whether a credential record exists on disk.
func (s *Store) HasToken() bool {
	_, err := os.Stat(s.recordPath())
	return err == nil
}

// Validate performs a read-only integrity check of the store: file
// permissions, required record fields, and salt length. It never
// mutates anything; returned problems are informational.
func (s *Store) Validate() []string {
	var problems []string

	if info, err := os.Stat(s.dir); err == nil {
		if perm := info.Mode().Perm(); perm&0o077 != 0 {
			problems = append(problems, fmt.Sprintf("directory permissions too loose: %04o", perm))
		}
	}

	for _, name := range []string{recordFile, saltFile} {
		info, err := os.Stat(filepath.Join(s.dir, name))
		if err != nil {
			continue
		}
		if perm := info.Mode().Perm(); perm&0o077 != 0 {
			problems = append(problems, fmt.Sprintf("%s permissions too loose: %04o", name, perm))
		}
	}

	if data, err := os.ReadFile(filepath.Join(s.dir, saltFile)); err == nil && len(data) != saltLen {
		problems = append(problems, fmt.Sprintf("salt has unexpected length %d (expected %d)", len(data), saltLen))
	}

	if data, err := os.ReadFile(s.recordPath()); err == nil {
		var record Record
		if err := json.Unmarshal(data, &record); err != nil {
			problems = append(problems, "credential record is not valid JSON")
		} else if record.Ciphertext == "" || record.IV == "" || record.AuthTag == "" {
			problems = append(problems, "credential record is missing required fields")
		}
	}

	return problems
}

// Repair fixes what can be fixed without data: permission bits on the
// directory and files. It never reconstructs lost ciphertext or salt.
func (s *Store) Repair() error {
	if _, err := os.Stat(s.dir); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := os.Chmod(s.dir, dirPerm); err != nil {
		return fmt.Errorf("fixing directory permissions: %w", err)
	}
	for _, name := range []string{recordFile, saltFile} {
		path := filepath.Join(s.dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := os.Chmod(path, filePerm); err != nil {
			return fmt.Errorf("fixing %s permissions: %w", name, err)
		}
	}
	return nil
}

// Dir returns the storage directory path.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) recordPath() string {
	return filepath.Join(s.dir, recordFile)
}

// loadOrCreateSalt reads the per-machine salt, generating and persisting
// it on first use. A salt of unexpected length is corruption and must
// not be silently used.
func (s *Store) loadOrCreateSalt() ([]byte, error) {
	path := filepath.Join(s.dir, saltFile)

	data, err := os.ReadFile(path)
	if err == nil {
		if len(data) != saltLen {
			return nil, fmt.Errorf("%w: salt has unexpected length %d (expected %d)", ErrCorrupted, len(data), saltLen)
		}
		return data, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading salt: %w", err)
	}

	if err := s.EnsureReady(); err != nil {
		return nil, err
	}

	salt, err := randomBytes(saltLen)
	if err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}
	if err := s.writeFileAtomic(path, salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// writeFileAtomic writes to a temp file in the same directory and
// renames it into place so readers never observe a partial record.
func (s *Store) writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := tmp.Chmod(filePerm); err != nil {
		tmp.Close()
		return fmt.Errorf("setting file permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replacing %s: %w", filepath.Base(path), err)
	}
	return nil
}

func decodeRecord(record *Record) (*cryptoutil.Sealed, error) {
	ciphertext, err := hex.DecodeString(record.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("decoding ciphertext: %w", err)
	}
	iv, err := hex.DecodeString(record.IV)
	if err != nil {
		return nil, fmt.Errorf("decoding iv: %w", err)
	}
	tag, err := hex.DecodeString(record.AuthTag)
	if err != nil {
		return nil, fmt.Errorf("decoding authTag: %w", err)
	}
	return &cryptoutil.Sealed{Ciphertext: ciphertext, IV: iv, AuthTag: tag}, nil
}
