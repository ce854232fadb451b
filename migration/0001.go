package migration

import (
	"context"

	"github.com/chesscast/backend/pkg/xcontext"
)

// migrate0001 adds the covering index for the cooldown lookup on share
// events, which AutoMigrate cannot express.
func migrate0001(ctx context.Context) error {
	return xcontext.DB(ctx).Exec(
		"CREATE INDEX idx_share_events_cooldown ON share_events (campaign_id, user_id, created_at)",
	).Error
}
