package services

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/smgk/agency-erp/internal/models"
)

// monthPrefix builds the {BASE}-{YY}-{MM} part of sequential document codes,
// e.g. "SMGK-26-08" or "CH-26-08".
func monthPrefix(base string, now time.Time) string {
	return fmt.Sprintf("%s-%02d-%02d", base, now.Year()%100, int(now.Month()))
}

// nextCode yields the next code under prefix by counting existing rows whose
// codeColumn starts with it. Count-then-format is racy under concurrent
// creates; the unique index on the code column is the backstop and collisions
// surface as a store error on insert.
func nextCode(tx *gorm.DB, model any, codeColumn, prefix string, width int) (string, error) {
	var count int64
	if err := tx.Model(model).Where(codeColumn+" LIKE ?", prefix+"%").Count(&count).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%0*d", prefix, width, count+1), nil
}

var hundred = decimal.NewFromInt(100)

// jsonAttachment wraps a single attachment for JSON-typed columns.
func jsonAttachment(att models.Attachment) *datatypes.JSONType[models.Attachment] {
	v := datatypes.NewJSONType(att)
	return &v
}

// percentAmount computes total × pct / 100 rounded to 2 decimals.
func percentAmount(total, pct decimal.Decimal) decimal.Decimal {
	return total.Mul(pct).Div(hundred).Round(2)
}
