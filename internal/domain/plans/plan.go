package plans

import (
	"gorm.io/datatypes"
)

// Plan is a read-only catalog entry.
type Plan struct {
	ID            string         `gorm:"column:id;primaryKey" json:"id" yaml:"id"`
	Name          string         `gorm:"column:name;not null" json:"name" yaml:"name"`
	Price         int            `gorm:"column:price;not null" json:"price" yaml:"price"`
	DiscountPrice int            `gorm:"column:discount_price;not null" json:"discount_price" yaml:"discount_price"`
	Benefit       string         `gorm:"column:benefit" json:"benefit" yaml:"benefit"`
	Link          string         `gorm:"column:link" json:"link" yaml:"link"`
	Tags          datatypes.JSON `gorm:"column:tags" json:"tags,omitempty" yaml:"-"`
}

func (Plan) TableName() string { return "plan" }

// DiscountFraction is the share of the list price removed by the discount, in [0, 1].
func (p *Plan) DiscountFraction() float64 {
	if p == nil || p.Price <= 0 || p.DiscountPrice >= p.Price {
		return 0
	}
	if p.DiscountPrice <= 0 {
		return 1
	}
	return float64(p.Price-p.DiscountPrice) / float64(p.Price)
}
