package model

import "fmt"

// StorageInfo reports how much a user keeps in their channel. Telegram does
// not cap channel storage, so there is no limit.
type StorageInfo struct {
	UserID  TelegramID   `json:"user_id"`
	Storage StorageUsage `json:"storage"`
}

type StorageUsage struct {
	Used      int64  `json:"used"`
	UsedGB    string `json:"used_gb"`
	Limit     *int64 `json:"limit"`
	LimitText string `json:"limit_text"`
	Provider  string `json:"provider"`
}

func NewStorageInfo(user *User) *StorageInfo {
	return &StorageInfo{
		UserID: user.TelegramID,
		Storage: StorageUsage{
			Used:      user.StorageUsed,
			UsedGB:    fmt.Sprintf("%.2f", float64(user.StorageUsed)/(1<<30)),
			LimitText: "Unlimited",
			Provider:  "Telegram",
		},
	}
}
