package domain

import "time"

// Room represents a collaborative canvas session. RoomID is an opaque,
// client-chosen string and is the routing key for all relay traffic.
type Room struct {
	RoomID       string    `gorm:"primaryKey;size:64" json:"roomId"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
	LastActivity time.Time `gorm:"index;not null" json:"lastActivity"`
	ActiveUsers  uint      `gorm:"not null;default:0" json:"activeUsers"`

	DrawingHistory []DrawingCommand `gorm:"foreignKey:RoomID;references:RoomID" json:"drawingHistory,omitempty"`
}
