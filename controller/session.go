package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gemchat/service"
)

type SessionController struct {
	Sessions *service.SessionService
}

func NewSessionController(sessions *service.SessionService) *SessionController {
	return &SessionController{Sessions: sessions}
}

func (ctrl *SessionController) List(c *gin.Context) {
	requestId := c.GetString("requestId")
	userID := uint(c.GetInt64("UserId"))

	sessions, err := ctrl.Sessions.List(userID)
	if err != nil {
		respondServiceError(c, requestId, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func (ctrl *SessionController) Create(c *gin.Context) {
	requestId := c.GetString("requestId")
	userID := uint(c.GetInt64("UserId"))

	var input struct {
		Title string `json:"title"`
		Model string `json:"model"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		logger.Warnf("[%s] Invalid input, %s", requestId, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	sessionID, err := ctrl.Sessions.Create(userID, input.Title, input.Model)
	if err != nil {
		respondServiceError(c, requestId, err)
		return
	}

	logger.Infof("[%s] Created session %s", requestId, sessionID)
	c.JSON(http.StatusOK, gin.H{"sessionId": sessionID})
}

func (ctrl *SessionController) History(c *gin.Context) {
	requestId := c.GetString("requestId")
	userID := uint(c.GetInt64("UserId"))
	sessionID := c.Param("sessionId")

	messages, err := ctrl.Sessions.History(userID, sessionID)
	if err != nil {
		respondServiceError(c, requestId, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

func (ctrl *SessionController) Rename(c *gin.Context) {
	requestId := c.GetString("requestId")
	userID := uint(c.GetInt64("UserId"))
	sessionID := c.Param("sessionId")

	var input struct {
		Title string `json:"title" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		logger.Warnf("[%s] Invalid input, %s", requestId, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	if err := ctrl.Sessions.Rename(userID, sessionID, input.Title); err != nil {
		respondServiceError(c, requestId, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (ctrl *SessionController) Delete(c *gin.Context) {
	requestId := c.GetString("requestId")
	userID := uint(c.GetInt64("UserId"))
	sessionID := c.Param("sessionId")

	if err := ctrl.Sessions.Delete(userID, sessionID); err != nil {
		respondServiceError(c, requestId, err)
		return
	}

	logger.Infof("[%s] Deleted session %s", requestId, sessionID)
	c.JSON(http.StatusOK, gin.H{"success": true})
}
