package db

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/famspace-backend/internal/domain/plans"
	"github.com/yungbote/famspace-backend/internal/platform/logger"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type catalogFile struct {
	Plans []catalogPlan `yaml:"plans"`
}

type catalogPlan struct {
	plans.Plan `yaml:",inline"`
	Tags       []string `yaml:"tags"`
}

// DefaultCatalog parses the embedded plan catalog.
func DefaultCatalog() ([]*plans.Plan, error) {
	return ParseCatalog(defaultCatalog)
}

func ParseCatalog(raw []byte) ([]*plans.Plan, error) {
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	out := make([]*plans.Plan, 0, len(file.Plans))
	for i := range file.Plans {
		p := file.Plans[i].Plan
		if p.ID == "" {
			return nil, fmt.Errorf("catalog entry %d: missing id", i)
		}
		tags, err := json.Marshal(file.Plans[i].Tags)
		if err != nil {
			return nil, fmt.Errorf("catalog entry %s: %w", p.ID, err)
		}
		p.Tags = datatypes.JSON(tags)
		out = append(out, &p)
	}
	return out, nil
}

// SeedCatalog inserts the default catalog when the plan table is empty.
func SeedCatalog(db *gorm.DB, log *logger.Logger) error {
	var count int64
	if err := db.Model(&plans.Plan{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count plans: %w", err)
	}
	if count > 0 {
		return nil
	}
	catalog, err := DefaultCatalog()
	if err != nil {
		return err
	}
	if err := db.Create(&catalog).Error; err != nil {
		return fmt.Errorf("seed plans: %w", err)
	}
	if log != nil {
		log.Info("Seeded plan catalog", "plans", len(catalog))
	}
	return nil
}
