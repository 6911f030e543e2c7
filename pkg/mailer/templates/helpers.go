package templates

import (
	"time"

	"github.com/oksasatya/go-ddd-auth-core/config"
)

// Option pattern
type Option func(*EmailData)

func WithIP(ip string) Option        { return func(d *EmailData) { d.IP = ip } }
func WithUserAgent(ua string) Option { return func(d *EmailData) { d.UserAgent = ua } }
func WithTime(t time.Time) Option {
	return func(d *EmailData) {
		utc := t.UTC()
		d.TimeAt = utc
		d.Time = utc.Format("02 January 2006, 15:04")
	}
}
func WithChanges(ch map[string]string) Option {
	return func(d *EmailData) { d.Changes = ch }
}

// WithBrand fills company fields from cfg, keeping values already set.
func WithBrand(cfg *config.Config) Option {
	return func(d *EmailData) {
		d.CompanyName = firstNonEmpty(d.CompanyName, cfg.CompanyName)
		d.CompanyAddress = firstNonEmpty(d.CompanyAddress, cfg.CompanyAddress)
		d.AppName = firstNonEmpty(d.AppName, cfg.AppName)
		d.LogoURL = firstNonEmpty(d.LogoURL, cfg.LogoURL)
		d.SupportURL = firstNonEmpty(d.SupportURL, cfg.SupportURL)
		d.PrivacyURL = firstNonEmpty(d.PrivacyURL, cfg.PrivacyURL)
	}
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// NewBaseEmailData builds template data for typ and applies opts in order.
func NewBaseEmailData(typ, name, email, recipient string, opts ...Option) EmailData {
	d := EmailData{
		Name:           name,
		Email:          email,
		RecipientEmail: recipient,
		Type:           typ,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func NewWelcomeData(name, email string, opts ...Option) map[string]any {
	return ToMap(NewBaseEmailData(Welcome, name, email, email, opts...))
}

func NewLoginNotificationData(name, email string, opts ...Option) map[string]any {
	return ToMap(NewBaseEmailData(LoginNotification, name, email, email, opts...))
}

func NewProfileUpdatedData(name, email string, changes map[string]string, opts ...Option) map[string]any {
	opts = append([]Option{WithChanges(changes), WithTime(time.Now())}, opts...)
	return ToMap(NewBaseEmailData(ProfileUpdated, name, email, email, opts...))
}
