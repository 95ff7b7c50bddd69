package model

import "time"

// Post 博文；AuthorID 仅在创建时由服务端写入
type Post struct {
	ID        uint      `gorm:"primaryKey"`
	Title     string    `gorm:"type:varchar(255);not null"`
	Content   string    `gorm:"type:text;not null"`
	AuthorID  uint      `gorm:"index:idx_post_author;not null"`
	Author    User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Post) TableName() string { return "posts" }

// IsAuthoredBy 判断 u 是否为作者，匿名用户返回 false
func (p *Post) IsAuthoredBy(u *User) bool {
	return u != nil && p.AuthorID == u.ID
}
