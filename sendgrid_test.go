package supervisor

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sendgrid/rest"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSendGridAPI struct {
	resp *rest.Response
	err  error
	got  []*sgmail.SGMailV3
}

func (s *stubSendGridAPI) SendWithContext(_ context.Context, m *sgmail.SGMailV3) (*rest.Response, error) {
	s.got = append(s.got, m)
	return s.resp, s.err
}

func validSendGridSettings() SendGridSettings {
	return SendGridSettings{
		APIKey:      "SG.test-key",
		FromAddress: "noreply@example.com",
		ToAddresses: []string{"ops@example.com"},
	}
}

func newStubbedSendGridHandler(settings SendGridSettings, api *stubSendGridAPI) *SendGridHandler {
	h := NewSendGridHandler(settings, slog.New(slog.NewTextHandler(io.Discard, nil)))
	h.api = api
	return h
}

func accepted() *rest.Response {
	return &rest.Response{StatusCode: http.StatusAccepted}
}

func TestSendGridHandlerGuardsMissingAddresses(t *testing.T) {
	cases := map[string]func(*SendGridSettings){
		"missing from": func(s *SendGridSettings) { s.FromAddress = "" },
		"missing to":   func(s *SendGridSettings) { s.ToAddresses = nil },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			settings := validSendGridSettings()
			mutate(&settings)
			api := &stubSendGridAPI{resp: accepted()}
			h := newStubbedSendGridHandler(settings, api)

			err := h.SendMessage(context.Background(), NewMessageDetails())

			require.NoError(t, err)
			assert.Empty(t, api.got, "network client must not be touched")
		})
	}
}

func TestSendGridHandlerBuildsPayload(t *testing.T) {
	settings := validSendGridSettings()
	settings.Prefix = "Example on host: "
	settings.ToAddresses = []string{"a@x.com", "b@x.com", "c@x.com"}
	settings.Client = "nightly-loader"
	api := &stubSendGridAPI{resp: accepted()}
	h := newStubbedSendGridHandler(settings, api)

	d := NewMessageDetails()
	d.Subject = "nightly run failed"
	d.Message = "details here"

	require.NoError(t, h.SendMessage(context.Background(), d))
	require.Len(t, api.got, 1)
	m := api.got[0]

	assert.Equal(t, "Example on host: nightly run failed", m.Subject)
	assert.Equal(t, "noreply@example.com", m.From.Address)

	require.Len(t, m.Personalizations, 1)
	tos := m.Personalizations[0].To
	require.Len(t, tos, 3)
	assert.Equal(t, "a@x.com", tos[0].Address)
	assert.Equal(t, "b@x.com", tos[1].Address)
	assert.Equal(t, "c@x.com", tos[2].Address)

	require.Len(t, m.Content, 1)
	assert.Equal(t, "text/plain", m.Content[0].Type)
	assert.True(t, strings.HasPrefix(m.Content[0].Value, "details here"))
	assert.Contains(t, m.Content[0].Value, "nightly-loader version: "+Version)
}

func TestSendGridHandlerZipsValidAttachmentsAndBannersMissing(t *testing.T) {
	dir := t.TempDir()
	var valid []string
	for _, name := range []string{"one.txt", "two.txt", "three.txt"} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(name), 0600))
		valid = append(valid, p)
	}
	missing := filepath.Join(dir, "nope.csv")

	api := &stubSendGridAPI{resp: accepted()}
	h := newStubbedSendGridHandler(validSendGridSettings(), api)

	d := NewMessageDetails()
	d.Message = "body"
	d.AddAttachments(valid[0], valid[1], missing, valid[2], "")

	require.NoError(t, h.SendMessage(context.Background(), d))
	require.Len(t, api.got, 1)
	m := api.got[0]

	body := m.Content[0].Value
	assert.Equal(t, 1, strings.Count(body, "does not exist"))
	assert.Contains(t, body, `* Attachment "`+missing+`" does not exist`)
	// Banner comes before the body text.
	assert.Less(t, strings.Index(body, "does not exist"), strings.Index(body, "body"))

	require.Len(t, m.Attachments, 3)
	assert.Equal(t, "one.txt.zip", m.Attachments[0].Filename)
	assert.Equal(t, "two.txt.zip", m.Attachments[1].Filename)
	assert.Equal(t, "three.txt.zip", m.Attachments[2].Filename)
	for _, a := range m.Attachments {
		assert.Equal(t, "application/zip", a.Type)
		assert.Equal(t, "attachment", a.Disposition)
	}

	// Each attachment is a single-entry archive named after the original.
	data, err := base64.StdEncoding.DecodeString(m.Attachments[0].Content)
	require.NoError(t, err)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)
	assert.Equal(t, "one.txt", zr.File[0].Name)
}

func TestSendGridHandlerOmitsBannerWhenAllAttachmentsValid(t *testing.T) {
	p := filepath.Join(t.TempDir(), "fine.txt")
	require.NoError(t, os.WriteFile(p, []byte("ok"), 0600))

	api := &stubSendGridAPI{resp: accepted()}
	h := newStubbedSendGridHandler(validSendGridSettings(), api)

	d := NewMessageDetails()
	d.Message = "body"
	d.AddAttachments(p)

	require.NoError(t, h.SendMessage(context.Background(), d))
	require.Len(t, api.got, 1)
	assert.NotContains(t, api.got[0].Content[0].Value, "=====")
}

func TestSendGridHandlerStatusDecisionTable(t *testing.T) {
	cases := []struct {
		name    string
		resp    *rest.Response
		err     error
		wantErr bool
	}{
		{name: "accepted", resp: accepted()},
		{name: "bad request downgraded", resp: &rest.Response{StatusCode: http.StatusBadRequest}},
		{name: "unauthorized downgraded", resp: &rest.Response{StatusCode: http.StatusUnauthorized}},
		{name: "server error propagates", resp: &rest.Response{StatusCode: http.StatusInternalServerError, Body: "oops"}, wantErr: true},
		{name: "forbidden propagates", resp: &rest.Response{StatusCode: http.StatusForbidden}, wantErr: true},
		{name: "transport error propagates", err: errors.New("connection refused"), wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := &stubSendGridAPI{resp: tc.resp, err: tc.err}
			h := newStubbedSendGridHandler(validSendGridSettings(), api)

			err := h.SendMessage(context.Background(), NewMessageDetails())

			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestSendGridHandlerStatusErrorDetails(t *testing.T) {
	api := &stubSendGridAPI{resp: &rest.Response{StatusCode: http.StatusInternalServerError, Body: "oops"}}
	h := newStubbedSendGridHandler(validSendGridSettings(), api)

	err := h.SendMessage(context.Background(), NewMessageDetails())

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.Equal(t, "sendgrid", statusErr.Service)
	assert.Contains(t, statusErr.Error(), "oops")
}

func TestVerifyAttachmentsClassification(t *testing.T) {
	p := filepath.Join(t.TempDir(), "here.txt")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0600))

	valid, warnings := verifyAttachments([]string{"", p, "/no/such/file.txt"})

	assert.Equal(t, []string{p}, valid)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "does not exist")
}
