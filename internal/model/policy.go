package model

// HandlerName is the connector/module name under which the password change
// policy registers itself on the event bus and in tenant configuration.
const HandlerName = "passwordChange"

// Claim URIs agreed with the user-attribute store schema.
const (
	LastPasswordChangeClaimURI = "http://wso2.org/claims/lastPasswordChangedTimestamp"
	EmailAddressClaimURI       = "http://wso2.org/claims/emailaddress"
)

// Connector property identifiers exposed to configuration UIs.
const (
	SettingMinLifetimeInDays   = "password.policy.minLifetimeInDays"
	SettingExpiryInDays        = "password.policy.expiryInDays"
	SettingEnableNotifications = "password.policy.enableNotifications"
	SettingReminderLeadDays    = "password.policy.reminderLeadDays"
)

// Documented defaults, applied whenever a tenant carries no override.
const (
	DefaultMinLifetimeInDays   = 0
	DefaultExpiryInDays        = 30
	DefaultEnableNotifications = true
	DefaultReminderLeadDays    = 2
)

// SettingMeta carries the display strings a configuration UI renders next to
// a connector property.
type SettingMeta struct {
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	Default     string `json:"default"`
}

var settingMeta = map[string]SettingMeta{
	SettingMinLifetimeInDays: {
		DisplayName: "Minimum Password Lifetime (days)",
		Description: "Shortest interval allowed between consecutive password changes made by the account owner.",
		Default:     "0",
	},
	SettingExpiryInDays: {
		DisplayName: "Password Expiry (days)",
		Description: "Age in days at which a password is considered expired.",
		Default:     "30",
	},
	SettingEnableNotifications: {
		DisplayName: "Enable Expiry Notifications",
		Description: "Whether reminder and expiry notices should be emailed to users.",
		Default:     "true",
	},
	SettingReminderLeadDays: {
		DisplayName: "Expiry Reminder Lead Time (days)",
		Description: "How many days before expiry the reminder notice should be sent.",
		Default:     "2",
	},
}

// SettingNames returns the recognized connector property identifiers in
// their documented order.
func SettingNames() []string {
	return []string{
		SettingMinLifetimeInDays,
		SettingExpiryInDays,
		SettingEnableNotifications,
		SettingReminderLeadDays,
	}
}

// SettingMetadata returns the display metadata for a recognized setting name.
func SettingMetadata(name string) (SettingMeta, bool) {
	meta, ok := settingMeta[name]
	return meta, ok
}

// DefaultValue returns the string-encoded documented default for a
// recognized setting name.
func DefaultValue(name string) (string, bool) {
	meta, ok := settingMeta[name]
	if !ok {
		return "", false
	}
	return meta.Default, true
}

// PolicySettings is a typed snapshot of the four connector properties for
// one tenant. Values are already parsed; malformed overrides fall back to
// the documented defaults at resolution time.
type PolicySettings struct {
	MinLifetimeInDays   int  `json:"min_lifetime_in_days"`
	ExpiryInDays        int  `json:"expiry_in_days"`
	EnableNotifications bool `json:"enable_notifications"`
	ReminderLeadDays    int  `json:"reminder_lead_days"`
}
