package templates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-ddd-auth-core/config"
)

func TestRender_AllTemplates(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{AppName: "Auth Core", CompanyName: "Acme", SupportURL: "https://support.test"}
	cases := map[string]map[string]any{
		Welcome:           NewWelcomeData("Ann", "ann@x.com", WithBrand(cfg)),
		LoginNotification: NewLoginNotificationData("Ann", "ann@x.com", WithBrand(cfg), WithIP("10.0.0.1"), WithUserAgent("curl/8"), WithTime(time.Date(2024, 1, 2, 3, 4, 0, 0, time.UTC))),
		ProfileUpdated:    NewProfileUpdatedData("Ann", "ann@x.com", map[string]string{"password": "changed"}, WithBrand(cfg)),
	}
	for name, data := range cases {
		require.True(t, Known(name))
		d, err := FromMap(data)
		require.NoError(t, err)

		subject, text, html, err := Render(name, d)
		require.NoError(t, err, name)
		assert.NotEmpty(t, subject)
		assert.NotContains(t, subject, "\n")
		assert.Contains(t, text, "Ann")
		assert.Contains(t, html, "ann@x.com")
	}
}

func TestRender_LoginNotificationFields(t *testing.T) {
	t.Parallel()

	d, err := FromMap(NewLoginNotificationData("Ann", "ann@x.com", WithIP("10.0.0.1"), WithTime(time.Date(2024, 1, 2, 3, 4, 0, 0, time.UTC))))
	require.NoError(t, err)
	_, text, _, err := Render(LoginNotification, d)
	require.NoError(t, err)
	assert.Contains(t, text, "10.0.0.1")
	assert.Contains(t, text, "02 January 2024, 03:04")
	assert.Contains(t, text, "Device: unknown")
}

func TestRender_UnknownTemplate(t *testing.T) {
	t.Parallel()

	assert.False(t, Known("forgot_password"))
	_, _, _, err := Render("forgot_password", EmailData{})
	assert.Error(t, err)
}

func TestWithBrand_KeepsExplicitValues(t *testing.T) {
	t.Parallel()

	d := NewBaseEmailData(Welcome, "Ann", "ann@x.com", "ann@x.com", func(d *EmailData) { d.AppName = "Custom" }, WithBrand(&config.Config{AppName: "Auth Core", CompanyName: "Acme"}))
	assert.Equal(t, "Custom", d.AppName)
	assert.Equal(t, "Acme", d.CompanyName)
}
