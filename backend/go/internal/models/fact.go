package models

import "time"

// FactCategory 标记一条键值记忆的类别。
type FactCategory string

const (
	CategoryPreference FactCategory = "preference"
	CategoryFact       FactCategory = "fact"
	CategoryContext    FactCategory = "context"
	CategorySkill      FactCategory = "skill"
)

// Valid 判断类别是否属于允许的枚举值。
func (c FactCategory) Valid() bool {
	switch c {
	case CategoryPreference, CategoryFact, CategoryContext, CategorySkill:
		return true
	}
	return false
}

// Fact 是用户的一条持久化键值记忆，(user_id, key) 唯一。
type Fact struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	UserID    uint         `gorm:"not null;uniqueIndex:idx_user_memories_user_key,priority:1;index" json:"user_id"`
	Key       string       `gorm:"size:255;not null;uniqueIndex:idx_user_memories_user_key,priority:2" json:"key"`
	Value     string       `gorm:"type:text;not null" json:"value"`
	Category  FactCategory `gorm:"type:varchar(20);not null;default:'fact'" json:"category"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func (Fact) TableName() string {
	return "user_memories"
}
