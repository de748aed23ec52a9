package detection

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Detection is one classified text in a user's history.
type Detection struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	PublicID    string         `json:"public_id" gorm:"size:36;uniqueIndex"`
	UserID      uint           `json:"user_id" gorm:"index;not null"`
	NewsText    string         `json:"news_text" gorm:"type:text;not null"`
	SourceURL   string         `json:"source_url,omitempty"`
	Title       string         `json:"title,omitempty" gorm:"size:512"`
	Label       string         `json:"label" gorm:"size:16;index"`
	Score       float64        `json:"score"`
	Scores      datatypes.JSON `json:"scores,omitempty"`
	Explanation string         `json:"explanation,omitempty" gorm:"type:text"`
	CreatedAt   time.Time      `json:"created_at" gorm:"index"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// Stats summarizes a user's history.
type Stats struct {
	Total int64 `json:"total"`
	Fake  int64 `json:"fake"`
	Real  int64 `json:"real"`
}
