package aggregates

import (
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/famspace-backend/internal/platform/dbctx"
	"gorm.io/gorm"
)

// VersionGuard applies optimistic updates to rows carrying a version column. The plant
// row is the only one written this way today.
type VersionGuard struct {
	db  *gorm.DB
	now func() time.Time
}

func NewVersionGuard(db *gorm.DB) VersionGuard {
	return VersionGuard{db: db, now: time.Now}
}

// Advance applies updates to table row id if it is still at version from, bumping the
// version and updated_at. It returns the new version, or a conflict when the row moved on.
func (g VersionGuard) Advance(dbc dbctx.Context, table string, id uuid.UUID, from int, updates map[string]any) (int, error) {
	if table == "" || id == uuid.Nil {
		return 0, validationf("versioned update needs a table and id")
	}
	if from < 0 {
		return 0, validationf("version %d is negative", from)
	}
	db := dbc.DB(g.db)
	if db == nil {
		return 0, validationf("versioned update without a database handle")
	}

	set := make(map[string]any, len(updates)+2)
	for k, v := range updates {
		set[k] = v
	}
	set["version"] = from + 1
	if _, ok := set["updated_at"]; !ok {
		now := time.Now
		if g.now != nil {
			now = g.now
		}
		set["updated_at"] = now().UTC()
	}

	res := db.Table(table).Where("id = ? AND version = ?", id, from).Updates(set)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, conflictf("%s %s changed concurrently (expected version %d)", table, id, from)
	}
	return from + 1, nil
}
