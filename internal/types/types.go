package types

// DailyQuota is one user's media allowance inside one chat for one UTC day.
type DailyQuota struct {
	ChatID int64  `json:"chat_id"`
	UserID int64  `json:"user_id"`
	Date   string `json:"date"` // YYYY-MM-DD, UTC
	Count  int    `json:"count"`
}
