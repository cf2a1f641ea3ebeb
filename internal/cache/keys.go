package cache

import (
	"fmt"

	"github.com/google/uuid"
)

// attemptAnswersKey returns the redis key holding the autosaved answer
// hash of one section attempt.
func attemptAnswersKey(attemptID uuid.UUID) string {
	return fmt.Sprintf("attempt:%s:answers", attemptID)
}
