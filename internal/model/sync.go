package model

// SyncStats summarizes one channel sync run.
type SyncStats struct {
	ChannelID     string `json:"channel_id"`
	TotalMessages int    `json:"total_messages"`
	Synced        int    `json:"synced"`
	Skipped       int    `json:"skipped"`
	Errors        int    `json:"errors"`
}
