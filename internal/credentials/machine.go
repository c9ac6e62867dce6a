package credentials

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"os/user"
)

// MachineID derives a stable identity for the current machine/user
// pairing: hex(SHA-256(hostname + ":" + username)). It scopes the local
// encryption key to this machine and is never sent to a remote service.
func MachineID() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown-host"
	}

	username := currentUsername()

	sum := sha256.Sum256([]byte(hostname + ":" + username))
	return hex.EncodeToString(sum[:])
}

func currentUsername() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	// user.Current can fail in minimal environments (static binaries,
	// containers without passwd entries).
	for _, key := range []string{"USER", "USERNAME", "LOGNAME"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return "unknown-user"
}

func randomBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
