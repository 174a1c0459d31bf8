package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workcal/internal/config"
	"workcal/internal/errs"
)

func TestPostMessageSendsBlocksJSON(t *testing.T) {
	var gotBody []byte
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(config.SlackConfig{WebhookURL: srv.URL})
	msg := &Message{Blocks: []Block{{Type: "section", Text: &Text{Type: "mrkdwn", Text: "hi"}}}}
	require.NoError(t, client.PostMessage(context.Background(), msg))

	assert.Equal(t, "application/json", gotContentType)
	var decoded Message
	require.NoError(t, json.Unmarshal(gotBody, &decoded))
	require.Len(t, decoded.Blocks, 1)
	assert.Equal(t, "hi", decoded.Blocks[0].Text.Text)
}

func TestPostMessageNon2xxIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no_service", http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(config.SlackConfig{WebhookURL: srv.URL})
	err := client.PostMessage(context.Background(), &Message{})
	require.Error(t, err)
	assert.Equal(t, errs.CodeTransport, errs.CodeOf(err))
}

func TestPostMessageWithoutWebhookIsConfigurationError(t *testing.T) {
	client := NewClient(config.SlackConfig{})
	err := client.PostMessage(context.Background(), &Message{})
	require.Error(t, err)
	assert.Equal(t, errs.CodeConfiguration, errs.CodeOf(err))
}

func TestUploadFileSendsMultipartWithBearerToken(t *testing.T) {
	var gotAuth, gotTitle, gotChannels, gotFiletype, gotFilename string
	var gotFile []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotTitle = r.FormValue("title")
		gotChannels = r.FormValue("channels")
		gotFiletype = r.FormValue("filetype")
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		gotFilename = header.Filename
		gotFile, _ = io.ReadAll(file)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := NewClient(config.SlackConfig{
		BotToken:      "xoxb-test",
		ChannelName:   "#worklog",
		FileUploadURL: srv.URL,
	})
	require.NoError(t, client.UploadFile(context.Background(), "Summary", "summary.png", []byte("png-bytes")))

	assert.Equal(t, "Bearer xoxb-test", gotAuth)
	assert.Equal(t, "Summary", gotTitle)
	assert.Equal(t, "#worklog", gotChannels)
	assert.Equal(t, "png", gotFiletype)
	assert.Equal(t, "summary.png", gotFilename)
	assert.Equal(t, []byte("png-bytes"), gotFile)
}

func TestUploadFileSlackLevelFailureIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":false,"error":"invalid_auth"}`))
	}))
	defer srv.Close()

	client := NewClient(config.SlackConfig{
		BotToken:      "xoxb-test",
		ChannelName:   "#worklog",
		FileUploadURL: srv.URL,
	})
	err := client.UploadFile(context.Background(), "Summary", "summary.png", []byte("x"))
	require.Error(t, err)
	assert.Equal(t, errs.CodeTransport, errs.CodeOf(err))
	assert.Contains(t, err.Error(), "invalid_auth")
}

func TestUploadFileWithoutTokenIsConfigurationError(t *testing.T) {
	client := NewClient(config.SlackConfig{ChannelName: "#worklog"})
	err := client.UploadFile(context.Background(), "Summary", "summary.png", nil)
	require.Error(t, err)
	assert.Equal(t, errs.CodeConfiguration, errs.CodeOf(err))
}
