package model

// NoticeKind distinguishes the two notices the expiry scanner can send.
type NoticeKind string

const (
	NoticeReminder NoticeKind = "reminder"
	NoticeExpired  NoticeKind = "expired"
)
