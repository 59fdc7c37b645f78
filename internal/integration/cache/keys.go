package cache

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/finance-tracker/ledger/internal/domain/entity"
)

const keyPrefix = "analytics"

func snapshotKey(userID uuid.UUID, kind entity.SnapshotKind, variant string) string {
	return fmt.Sprintf("%s:%s:%s:v:%s", keyPrefix, userID, kind, variant)
}

func generationKey(userID uuid.UUID, kind entity.SnapshotKind) string {
	return fmt.Sprintf("%s:%s:%s:gen", keyPrefix, userID, kind)
}
