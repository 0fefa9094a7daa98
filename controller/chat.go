package controller

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"gemchat/service"
)

type ChatController struct {
	Chat   *service.ChatService
	Models service.ModelCatalog
}

func NewChatController(chat *service.ChatService, models service.ModelCatalog) *ChatController {
	return &ChatController{Chat: chat, Models: models}
}

// HandleChat accepts a multipart chat submission: message, model and
// sessionId fields plus up to five files. Any history field the client
// sends along is ignored; the persisted history is authoritative.
func (ctrl *ChatController) HandleChat(c *gin.Context) {
	requestId := c.GetString("requestId")
	userID := uint(c.GetInt64("UserId"))

	message := c.PostForm("message")
	modelID := c.PostForm("model")
	sessionID := c.PostForm("sessionId")

	attachments, err := readAttachments(c)
	if err != nil {
		logger.Warnf("[%s] Rejecting upload: %s", requestId, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := ctrl.Chat.HandleTurn(c.Request.Context(), &service.ChatRequest{
		UserID:      userID,
		SessionID:   sessionID,
		Message:     message,
		Model:       modelID,
		Attachments: attachments,
	})
	if err != nil {
		respondServiceError(c, requestId, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (ctrl *ChatController) ListModels(c *gin.Context) {
	models, err := ctrl.Models.ListModels(c.Request.Context())
	if err != nil {
		logger.Warnf("[%s] Failed to list models: %s", c.GetString("requestId"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list models"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"models": models})
}

func readAttachments(c *gin.Context) ([]service.Attachment, error) {
	form, err := c.MultipartForm()
	if err != nil {
		// A plain form or JSON body carries no files.
		return nil, nil
	}
	files := form.File["files"]
	if len(files) > service.MaxAttachments {
		return nil, errors.New("a submission may carry at most 5 files")
	}

	attachments := make([]service.Attachment, 0, len(files))
	for _, header := range files {
		if header.Size > service.MaxAttachmentSize {
			return nil, errors.New("each file must be 5 MB or smaller")
		}
		f, err := header.Open()
		if err != nil {
			return nil, errors.New("failed to read uploaded file")
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, errors.New("failed to read uploaded file")
		}
		attachments = append(attachments, service.Attachment{
			OriginalName: header.Filename,
			MIMEType:     header.Header.Get("Content-Type"),
			Data:         data,
			Size:         header.Size,
		})
	}
	return attachments, nil
}

// respondServiceError maps the service error taxonomy onto HTTP statuses.
// Upstream causes stay in the log; the client only sees a generic message.
func respondServiceError(c *gin.Context, requestId string, err error) {
	switch {
	case errors.Is(err, service.ErrEmptySubmission),
		errors.Is(err, service.ErrMissingSession),
		errors.Is(err, service.ErrPromptRequired),
		errors.Is(err, service.ErrTooManyFiles),
		errors.Is(err, service.ErrFileTooLarge):
		logger.Warnf("[%s] Invalid chat submission: %s", requestId, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUserNotFound):
		logger.Warnf("[%s] Unknown user: %s", requestId, err)
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrSessionAccess):
		logger.Warnf("[%s] Session access denied: %s", requestId, err)
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		logger.Errorf("[%s] Chat request failed: %s", requestId, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process the chat request"})
	}
}
