package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gemchat/model"
)

type fakeBlobStore struct {
	objects   map[string][]byte
	mimeTypes map[string]string
	putErr    error
	signErr   error
	getErr    error
	removeErr error
	removed   [][]string
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{
		objects:   make(map[string][]byte),
		mimeTypes: make(map[string]string),
	}
}

func (f *fakeBlobStore) Put(path string, data []byte, contentType string) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.objects[path] = data
	f.mimeTypes[path] = contentType
	return nil
}

func (f *fakeBlobStore) SignedURL(path string, ttlSeconds int) (string, error) {
	if f.signErr != nil {
		return "", f.signErr
	}
	return "https://signed.example/" + path, nil
}

func (f *fakeBlobStore) PublicURL(path string) string {
	return "https://public.example/" + path
}

func (f *fakeBlobStore) Get(path string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.objects[path]
	if !ok {
		return nil, errors.New("object not found")
	}
	return data, nil
}

func (f *fakeBlobStore) Remove(paths []string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removed = append(f.removed, paths)
	for _, p := range paths {
		delete(f.objects, p)
	}
	return nil
}

type fakeRecordStore struct {
	user       *model.User
	session    *model.ChatSession
	history    []model.ChatMessage
	historyErr error
	appendErr  error
	appended   []*model.ChatMessage
	fetches    int
}

func (f *fakeRecordStore) FetchUser(userID uint) (*model.User, error) {
	if f.user != nil && f.user.ID == userID {
		return f.user, nil
	}
	return nil, nil
}

func (f *fakeRecordStore) FetchSession(sessionID string, userID uint) (*model.ChatSession, error) {
	if f.session != nil && f.session.ID == sessionID && f.session.UserID == userID {
		return f.session, nil
	}
	return nil, nil
}

func (f *fakeRecordStore) FetchHistory(sessionID string) ([]model.ChatMessage, error) {
	f.fetches++
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return f.history, nil
}

func (f *fakeRecordStore) AppendMessage(msg *model.ChatMessage) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appended = append(f.appended, msg)
	return nil
}

func (f *fakeRecordStore) byRole(role string) []*model.ChatMessage {
	var out []*model.ChatMessage
	for _, m := range f.appended {
		if m.Role == role {
			out = append(out, m)
		}
	}
	return out
}

type fakeModelClient struct {
	output       *ModelOutput
	image        []byte
	contentErr   error
	imageErr     error
	lastModel    string
	lastTurns    []Turn
	lastPrompt   string
	imageCalls   int
	contentCalls int
}

func (f *fakeModelClient) GenerateContent(ctx context.Context, modelID string, turns []Turn) (*ModelOutput, error) {
	f.contentCalls++
	f.lastModel = modelID
	f.lastTurns = turns
	if f.contentErr != nil {
		return nil, f.contentErr
	}
	return f.output, nil
}

func (f *fakeModelClient) GenerateImage(ctx context.Context, modelID, prompt string) ([]byte, error) {
	f.imageCalls++
	f.lastModel = modelID
	f.lastPrompt = prompt
	if f.imageErr != nil {
		return nil, f.imageErr
	}
	return f.image, nil
}

func newChatFixture() (*ChatService, *fakeModelClient, *fakeBlobStore, *fakeRecordStore) {
	mc := &fakeModelClient{output: &ModelOutput{Parts: []Part{{Text: "hi there"}}}}
	blobs := newFakeBlobStore()
	records := &fakeRecordStore{
		user:    &model.User{ID: 7, Username: "ada"},
		session: &model.ChatSession{ID: "sess-1", UserID: 7, Model: ""},
	}
	return NewChatService(mc, blobs, records), mc, blobs, records
}

func TestHandleTurnValidation(t *testing.T) {
	tests := []struct {
		name string
		req  *ChatRequest
		want error
	}{
		{
			name: "empty submission",
			req:  &ChatRequest{UserID: 7, SessionID: "sess-1"},
			want: ErrEmptySubmission,
		},
		{
			name: "missing session id",
			req:  &ChatRequest{UserID: 7, Message: "hello"},
			want: ErrMissingSession,
		},
		{
			name: "too many files",
			req: &ChatRequest{UserID: 7, SessionID: "sess-1", Attachments: []Attachment{
				{}, {}, {}, {}, {}, {},
			}},
			want: ErrTooManyFiles,
		},
		{
			name: "oversized file",
			req: &ChatRequest{UserID: 7, SessionID: "sess-1", Attachments: []Attachment{
				{OriginalName: "big.png", MIMEType: "image/png", Size: MaxAttachmentSize + 1},
			}},
			want: ErrFileTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mc, blobs, records := newChatFixture()
			_, err := svc.HandleTurn(context.Background(), tt.req)
			require.ErrorIs(t, err, tt.want)

			// Rejection happens before any persistence or model call.
			assert.Empty(t, records.appended)
			assert.Empty(t, blobs.objects)
			assert.Zero(t, mc.contentCalls)
			assert.Zero(t, mc.imageCalls)
		})
	}
}

func TestHandleTurnUnknownUser(t *testing.T) {
	svc, _, _, records := newChatFixture()
	records.user = nil

	_, err := svc.HandleTurn(context.Background(), &ChatRequest{UserID: 7, SessionID: "sess-1", Message: "hi"})
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestHandleTurnSessionNotOwned(t *testing.T) {
	svc, _, _, records := newChatFixture()
	records.session.UserID = 99

	_, err := svc.HandleTurn(context.Background(), &ChatRequest{UserID: 7, SessionID: "sess-1", Message: "hi"})
	require.ErrorIs(t, err, ErrSessionAccess)
	assert.Empty(t, records.appended)
}

func TestHandleTurnTextRoundTrip(t *testing.T) {
	svc, mc, _, records := newChatFixture()
	records.history = []model.ChatMessage{
		userTextRecord("sess-1", "earlier question"),
		modelTextRecord("sess-1", "earlier answer"),
	}

	resp, err := svc.HandleTurn(context.Background(), &ChatRequest{
		UserID:    7,
		SessionID: "sess-1",
		Message:   "hello",
		Model:     "gemini-1.5-flash",
	})
	require.NoError(t, err)

	// Exactly one user record and one model record persisted.
	require.Len(t, records.byRole("user"), 1)
	require.Len(t, records.byRole("model"), 1)
	assert.Equal(t, "hello", *records.byRole("user")[0].Content)
	assert.Equal(t, model.MessageTypeText, records.byRole("user")[0].MessageType)

	// Context window is prior turns plus the current one.
	require.Len(t, mc.lastTurns, 3)
	last := mc.lastTurns[len(mc.lastTurns)-1]
	assert.Equal(t, RoleUser, last.Role)
	require.Len(t, last.Parts, 1)
	assert.Equal(t, "hello", last.Parts[0].Text)

	// Text chat answers through the legacy field.
	assert.Equal(t, "hi there", resp.Response)
	assert.Empty(t, resp.Images)
	assert.Empty(t, resp.Image)
}

func TestHandleTurnDefaultModelDefersToSession(t *testing.T) {
	tests := []struct {
		name      string
		requested string
		session   string
		want      string
	}{
		{"default defers to session", "gemini-1.5-flash", "gemini-2.0-pro", "gemini-2.0-pro"},
		{"empty defers to session", "", "gemini-2.0-pro", "gemini-2.0-pro"},
		{"explicit model wins", "gemini-2.0-flash", "gemini-2.0-pro", "gemini-2.0-flash"},
		{"default kept without session model", "gemini-1.5-flash", "", "gemini-1.5-flash"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mc, _, records := newChatFixture()
			records.session.Model = tt.session

			_, err := svc.HandleTurn(context.Background(), &ChatRequest{
				UserID: 7, SessionID: "sess-1", Message: "hi", Model: tt.requested,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, mc.lastModel)
		})
	}
}

func TestHandleTurnImageGeneration(t *testing.T) {
	svc, mc, blobs, records := newChatFixture()
	records.session.Model = "imagen-2.0"
	mc.image = []byte("png-bytes")

	resp, err := svc.HandleTurn(context.Background(), &ChatRequest{
		UserID:    7,
		SessionID: "sess-1",
		Message:   "draw a cat",
	})
	require.NoError(t, err)

	// Stateless per turn: the prompt goes out, history does not.
	assert.Equal(t, 1, mc.imageCalls)
	assert.Zero(t, mc.contentCalls)
	assert.Zero(t, records.fetches)
	assert.Equal(t, "draw a cat", mc.lastPrompt)

	// Image persisted before the URL was derived.
	var storedPath string
	for p := range blobs.objects {
		storedPath = p
	}
	require.True(t, strings.HasPrefix(storedPath, "chat/sess-1/generated_"), "unexpected path %q", storedPath)
	assert.Equal(t, []byte("png-bytes"), blobs.objects[storedPath])

	require.NotNil(t, resp.IsStoredImage)
	assert.True(t, *resp.IsStoredImage)
	assert.Equal(t, "https://signed.example/"+storedPath, resp.Image)

	modelRecords := records.byRole("model")
	require.Len(t, modelRecords, 1)
	assert.Equal(t, model.MessageTypeImage, modelRecords[0].MessageType)
	assert.Equal(t, storedPath, *modelRecords[0].FilePath)
}

func TestHandleTurnImageGenerationNeedsPrompt(t *testing.T) {
	svc, mc, _, _ := newChatFixture()

	_, err := svc.HandleTurn(context.Background(), &ChatRequest{
		UserID:    7,
		SessionID: "sess-1",
		Model:     "imagen-2.0",
		Attachments: []Attachment{
			{OriginalName: "ref.png", MIMEType: "image/png", Data: []byte("x"), Size: 1},
		},
	})
	require.ErrorIs(t, err, ErrPromptRequired)
	assert.Zero(t, mc.imageCalls)
}

func TestHandleTurnPersistsAttachmentsIndividually(t *testing.T) {
	svc, mc, blobs, records := newChatFixture()

	_, err := svc.HandleTurn(context.Background(), &ChatRequest{
		UserID:    7,
		SessionID: "sess-1",
		Message:   "two files",
		Attachments: []Attachment{
			{OriginalName: "cat.png", MIMEType: "image/png", Data: []byte("img"), Size: 3},
			{OriginalName: "notes.zip", MIMEType: "application/zip", Data: []byte("zip"), Size: 3},
		},
	})
	require.NoError(t, err)

	userRecords := records.byRole("user")
	require.Len(t, userRecords, 2)
	assert.Equal(t, model.MessageTypeImage, userRecords[0].MessageType)
	assert.Equal(t, model.MessageTypeFile, userRecords[1].MessageType)
	assert.Equal(t, 0, userRecords[0].Metadata["fileIndex"])
	assert.Equal(t, 1, userRecords[1].Metadata["fileIndex"])
	assert.True(t, strings.HasPrefix(*userRecords[0].FilePath, "chat/sess-1/user_"))
	assert.Len(t, blobs.objects, 2)

	// The unsupported zip is recorded but kept away from the model.
	last := mc.lastTurns[len(mc.lastTurns)-1]
	require.Len(t, last.Parts, 2)
	assert.Equal(t, "two files", last.Parts[0].Text)
	assert.Equal(t, "image/png", last.Parts[1].Inline.MIMEType)
}

func TestHandleTurnFallsBackToTextRecordWhenUploadsFail(t *testing.T) {
	svc, _, blobs, records := newChatFixture()
	blobs.putErr = errors.New("bucket unavailable")

	_, err := svc.HandleTurn(context.Background(), &ChatRequest{
		UserID:    7,
		SessionID: "sess-1",
		Message:   "hello",
		Attachments: []Attachment{
			{OriginalName: "cat.png", MIMEType: "image/png", Data: []byte("img"), Size: 3},
		},
	})
	require.NoError(t, err)

	userRecords := records.byRole("user")
	require.Len(t, userRecords, 1)
	assert.Equal(t, model.MessageTypeText, userRecords[0].MessageType)
	assert.Nil(t, userRecords[0].FilePath)
}

func TestHandleTurnUpstreamFailure(t *testing.T) {
	svc, mc, _, _ := newChatFixture()
	mc.contentErr = errors.New("model unavailable")

	_, err := svc.HandleTurn(context.Background(), &ChatRequest{
		UserID: 7, SessionID: "sess-1", Message: "hi",
	})
	require.ErrorIs(t, err, ErrUpstream)
}

func TestHandleTurnHistoryFetchFailure(t *testing.T) {
	svc, _, _, records := newChatFixture()
	records.historyErr = errors.New("db down")

	_, err := svc.HandleTurn(context.Background(), &ChatRequest{
		UserID: 7, SessionID: "sess-1", Message: "hi",
	})
	require.ErrorIs(t, err, ErrUpstream)
}

func userTextRecord(sessionID, content string) model.ChatMessage {
	return model.ChatMessage{
		SessionID:   sessionID,
		Role:        string(RoleUser),
		Content:     &content,
		MessageType: model.MessageTypeText,
	}
}

func modelTextRecord(sessionID, content string) model.ChatMessage {
	return model.ChatMessage{
		SessionID:   sessionID,
		Role:        string(RoleModel),
		Content:     &content,
		MessageType: model.MessageTypeText,
	}
}
