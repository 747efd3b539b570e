package postmarkinfra

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/lumos-api/internal/application/dispatch"
	"github.com/lumos-api/internal/domain"
	"github.com/lumos-api/internal/pkg/id"
	"github.com/mrz1836/postmark"
)

// entityRefHeader stops Gmail from threading successive sign-in emails together.
const entityRefHeader = "X-Entity-Ref-ID"

// API is the subset of the Postmark client used by Backend.
type API interface {
	SendTemplatedEmail(ctx context.Context, email postmark.TemplatedEmail) (postmark.EmailResponse, error)
}

// Backend sends emails from Postmark-hosted templates.
type Backend struct {
	client API
	from   string
	refID  func() string
}

func NewClient(serverToken string) *postmark.Client {
	return postmark.NewClient(serverToken, "")
}

func NewBackend(client API, from string) *Backend {
	return &Backend{client: client, from: from, refID: id.New}
}

func (b *Backend) Name() string { return "postmark" }

// Send parses req.Template as a numeric template id; a missing or malformed id fails
// with domain.ErrConfiguration before any request is made.
func (b *Backend) Send(ctx context.Context, req dispatch.Request) (dispatch.Result, error) {
	templateID, err := strconv.ParseInt(strings.TrimSpace(req.Template), 10, 64)
	if err != nil {
		return dispatch.Result{}, fmt.Errorf("postmark template id %q: %w", req.Template, domain.ErrConfiguration)
	}
	if len(req.To) == 0 {
		return dispatch.Result{}, fmt.Errorf("no recipient: %w", domain.ErrBadRequest)
	}

	res, err := b.client.SendTemplatedEmail(ctx, postmark.TemplatedEmail{
		TemplateID:    templateID,
		To:            strings.Join(req.To, ","),
		Cc:            strings.Join(req.Cc, ","),
		From:          b.from,
		TemplateModel: req.Variables,
		Headers: []postmark.Header{
			{Name: entityRefHeader, Value: b.refID()},
		},
	})
	// API-level failures carry both an error and a response code; the code wins.
	if res.ErrorCode != 0 {
		return dispatch.Result{
			ErrorCode: strconv.FormatInt(res.ErrorCode, 10),
			Message:   res.Message,
		}, nil
	}
	if err != nil {
		return dispatch.Result{}, fmt.Errorf("postmark send: %w", err)
	}
	return dispatch.Result{MessageID: res.MessageID, Message: res.Message}, nil
}
