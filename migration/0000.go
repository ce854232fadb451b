package migration

import (
	"context"

	"github.com/chesscast/backend/internal/entity"
	"github.com/chesscast/backend/pkg/xcontext"
)

// migrate0000 creates the full schema for a fresh database.
func migrate0000(ctx context.Context) error {
	return entity.MigrateTable(xcontext.DB(ctx))
}
