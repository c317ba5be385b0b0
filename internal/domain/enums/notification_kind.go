package enums

type NotificationKind string

const (
	NotificationSignup        NotificationKind = "signup"
	NotificationMatch         NotificationKind = "match"
	NotificationPasswordReset NotificationKind = "password_reset"
)
