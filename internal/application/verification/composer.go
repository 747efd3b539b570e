package verification

import (
	"fmt"
	"time"

	"github.com/lumos-api/internal/application/dispatch"
	"github.com/lumos-api/internal/domain"
)

// trialDateLayout matches the month/day/year dates shown in the welcome email.
const trialDateLayout = "1/2/2006"

// Composer builds the email for a verification request. user is nil when the
// directory has no record for the identifier.
type Composer interface {
	Compose(p Params, user *domain.User) (dispatch.Request, error)
}

// PostmarkComposer picks a hosted template by verification status: the
// sign-in template for verified users, the activation template otherwise.
type PostmarkComposer struct {
	SignInTemplate     string
	ActivationTemplate string
	ProductName        string
}

func (c PostmarkComposer) Compose(p Params, user *domain.User) (dispatch.Request, error) {
	tmpl, kind := c.ActivationTemplate, "activation"
	if user != nil && user.EmailVerified != nil {
		tmpl, kind = c.SignInTemplate, "sign-in"
	}
	if tmpl == "" {
		return dispatch.Request{}, fmt.Errorf("missing %s template id: %w", kind, domain.ErrConfiguration)
	}
	return dispatch.Request{
		To:       []string{p.Identifier},
		Template: tmpl,
		Variables: map[string]any{
			"action_url":   p.URL,
			"product_name": c.ProductName,
		},
	}, nil
}

// WelcomeComposer always sends the welcome template with trial details,
// whatever the verification status of the user.
type WelcomeComposer struct {
	CompanyName  string
	ProductName  string
	LoginURL     string
	SupportEmail string
	TrialDays    int
	Subject      string
	Now          func() time.Time
}

func (c WelcomeComposer) Compose(p Params, _ *domain.User) (dispatch.Request, error) {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	start := now()
	return dispatch.Request{
		To:       []string{p.Identifier},
		Template: dispatch.WelcomeTemplate,
		Subject:  c.Subject,
		Variables: map[string]any{
			"CompanyName":      c.CompanyName,
			"ProductName":      c.ProductName,
			"username":         p.Identifier,
			"action_url":       p.URL,
			"login_url":        c.LoginURL,
			"trial_length":     fmt.Sprintf(" %d Days", c.TrialDays),
			"trial_start_date": start.Format(trialDateLayout),
			"trial_end_date":   start.AddDate(0, 0, c.TrialDays).Format(trialDateLayout),
			"support_mail":     c.SupportEmail,
		},
	}, nil
}
