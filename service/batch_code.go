package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// batchCodePrefix keys batch codes to the engine so they stay recognizable
// in support tooling next to other identifiers.
const batchCodePrefix = "YLD"

// maxCodeAttempts bounds the collision retry when generating batch codes.
const maxCodeAttempts = 5

// generateBatchCode builds a human-readable, sortable batch code of the
// form YLD-YYYYMM-XXXXXX. The random suffix keeps codes unique within a
// month; the unique constraint on the column catches the rare collision,
// which the executor retries with a fresh suffix.
func generateBatchCode(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:6]
	return fmt.Sprintf("%s-%s-%s", batchCodePrefix, at.UTC().Format("200601"), suffix)
}
