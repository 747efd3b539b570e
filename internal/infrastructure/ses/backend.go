package sesinfra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/smithy-go"
	"github.com/cbroglie/mustache"
	"github.com/lumos-api/internal/application/dispatch"
	"github.com/lumos-api/internal/config"
	"github.com/lumos-api/internal/domain"
	"github.com/lumos-api/internal/infrastructure/awsconf"
)

const (
	charset = "UTF-8"
	// placeholderText is sent as the plain-text part; it is not rendered from the template data.
	placeholderText = "TEXT_FORMAT_BODY"
)

// API is the subset of the SES client used by Backend.
type API interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
	SendTemplatedEmail(ctx context.Context, params *ses.SendTemplatedEmailInput, optFns ...func(*ses.Options)) (*ses.SendTemplatedEmailOutput, error)
}

// Backend renders local mustache HTML templates and sends them through SES.
type Backend struct {
	client    API
	from      string
	templates map[string]*mustache.Template
}

// NewClient creates an SES client in the configured SES region.
func NewClient(cfg *config.Config) (*ses.Client, error) {
	awsCfg, err := awsconf.Load(context.Background(), cfg, cfg.SES.Region)
	if err != nil {
		return nil, err
	}
	var opts []func(*ses.Options)
	if cfg.AWSEndpointURL != "" {
		opts = append(opts, func(o *ses.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
		})
	}
	return ses.NewFromConfig(awsCfg, opts...), nil
}

// NewBackend parses every template body up front so a broken template fails at startup.
func NewBackend(client API, from string, templates map[string]string) (*Backend, error) {
	parsed := make(map[string]*mustache.Template, len(templates))
	for name, body := range templates {
		t, err := mustache.ParseString(body)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		parsed[name] = t
	}
	return &Backend{client: client, from: from, templates: parsed}, nil
}

func (b *Backend) Name() string { return "ses" }

// Send renders req.Template with req.Variables. An unknown template fails with
// domain.ErrConfiguration before SES is called. SES API errors are reported in the
// Result; anything else is returned as an error.
func (b *Backend) Send(ctx context.Context, req dispatch.Request) (dispatch.Result, error) {
	tmpl, ok := b.templates[req.Template]
	if !ok {
		return dispatch.Result{}, fmt.Errorf("ses template %q: %w", req.Template, domain.ErrConfiguration)
	}
	if len(req.To) == 0 {
		return dispatch.Result{}, fmt.Errorf("no recipient: %w", domain.ErrBadRequest)
	}
	html, err := tmpl.Render(req.Variables)
	if err != nil {
		return dispatch.Result{}, fmt.Errorf("render template %s: %w", req.Template, err)
	}

	out, err := b.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: req.To,
			CcAddresses: req.Cc,
		},
		Message: &types.Message{
			Body: &types.Body{
				Html: &types.Content{Charset: aws.String(charset), Data: aws.String(html)},
				Text: &types.Content{Charset: aws.String(charset), Data: aws.String(placeholderText)},
			},
			Subject: &types.Content{Charset: aws.String(charset), Data: aws.String(req.Subject)},
		},
		Source:           aws.String(b.from),
		ReplyToAddresses: []string{b.from},
	})
	if err != nil {
		return apiResult(err)
	}
	return dispatch.Result{MessageID: aws.ToString(out.MessageId)}, nil
}

// SendReminder sends an SES-stored template addressed to a contact by first name.
func (b *Backend) SendReminder(ctx context.Context, to, firstName, templateName string) (dispatch.Result, error) {
	if strings.TrimSpace(templateName) == "" {
		return dispatch.Result{}, fmt.Errorf("reminder template: %w", domain.ErrConfiguration)
	}
	data, err := json.Marshal(map[string]any{"contact": map[string]string{"firstName": firstName}})
	if err != nil {
		return dispatch.Result{}, err
	}
	out, err := b.client.SendTemplatedEmail(ctx, &ses.SendTemplatedEmailInput{
		Destination:  &types.Destination{ToAddresses: []string{to}},
		Source:       aws.String(b.from),
		Template:     aws.String(templateName),
		TemplateData: aws.String(string(data)),
	})
	if err != nil {
		return apiResult(err)
	}
	return dispatch.Result{MessageID: aws.ToString(out.MessageId)}, nil
}

func apiResult(err error) (dispatch.Result, error) {
	var ae smithy.APIError
	if errors.As(err, &ae) {
		return dispatch.Result{ErrorCode: ae.ErrorCode(), Message: ae.ErrorMessage()}, nil
	}
	return dispatch.Result{}, fmt.Errorf("ses send: %w", err)
}
