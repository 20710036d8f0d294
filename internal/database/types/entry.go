package types

import (
	"encoding/json"
	"time"

	"github.com/uptrace/bun"
)

// LifecycleEntry is one row of a lifecycle collection.
type LifecycleEntry struct {
	bun.BaseModel `bun:"table:lifecycle_entries,alias:le"`

	Collection string          `bun:",pk,type:varchar(64)"`
	UserID     uint64          `bun:",pk"`
	Seq        int64           `bun:",nullzero,notnull,type:bigserial"`
	Data       json.RawMessage `bun:",type:jsonb,notnull"`
	UpdatedAt  time.Time       `bun:",notnull,default:current_timestamp"`
}
