package dispatch

import "fmt"

// Mode names a payment-gating policy.
type Mode string

const (
	// ModeMinimal gates only the publishing operations.
	ModeMinimal Mode = "minimal"

	// ModeUniversal gates every operation.
	ModeUniversal Mode = "universal"
)

// DefaultMode applies when no mode has been configured or the stored
// setting is unreadable.
const DefaultMode = ModeMinimal

// minimalGated is the fixed set of operations charged under the
// minimal policy.
var minimalGated = map[string]bool{
	"push":   true,
	"commit": true,
}

// publishAfter marks operations that run the tool first and pay
// afterwards, embedding the produced content identifier in the note.
var publishAfter = map[string]bool{
	"commit": true,
}

// ParseMode validates a user-supplied mode name. The set of modes is
// closed.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeMinimal, ModeUniversal:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown payment mode %q (expected %q or %q)", s, ModeMinimal, ModeUniversal)
	}
}

// Gates reports whether operation op requires a payment under this
// mode.
func (m Mode) Gates(op string) bool {
	switch m {
	case ModeUniversal:
		return true
	case ModeMinimal:
		return minimalGated[op]
	default:
		return minimalGated[op]
	}
}
