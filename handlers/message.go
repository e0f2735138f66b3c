package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"mentorchat/chat"
	"mentorchat/models"
)

type SendMessageRequest struct {
	Content     string              `json:"content"`
	Type        string              `json:"type"`
	Attachments []models.Attachment `json:"attachments"`
}

// SendMessage appends a message to the room and returns its final form,
// including the assigned id and sequence number.
func (a *API) SendMessage(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	roomID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := a.Dispatcher.Send(c.Request.Context(), chat.SendInput{
		RoomID:      roomID,
		SenderID:    userID,
		Content:     req.Content,
		Type:        models.MessageType(req.Type),
		Attachments: req.Attachments,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": view})
}

// GetMessages is the catch-up fetch: live messages after the `after` cursor,
// oldest first. Without a cursor it returns the room's history from the start.
func (a *API) GetMessages(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	roomID, ok := pathID(c, "id")
	if !ok {
		return
	}

	afterID := primitive.NilObjectID
	if raw := c.Query("after"); raw != "" {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid after cursor"})
			return
		}
		afterID = id
	}

	var limit int64
	if raw := c.Query("limit"); raw != "" {
		limit, _ = strconv.ParseInt(raw, 10, 64)
	}

	views, err := a.Dispatcher.History(c.Request.Context(), roomID, userID, afterID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": views})
}

type MarkReadRequest struct {
	UpToMessageID string `json:"upToMessageId" binding:"required"`
}

// MarkRead advances the caller's read marker. Safe to retry: an older or
// repeated marker is a no-op and the response still carries the live count.
func (a *API) MarkRead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	roomID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	msgID, err := primitive.ObjectIDFromHex(req.UpToMessageID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message id"})
		return
	}

	count, err := a.ReadState.MarkRead(c.Request.Context(), roomID, userID, msgID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unreadCount": count})
}

func (a *API) UnreadCount(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	roomID, ok := pathID(c, "id")
	if !ok {
		return
	}
	count, err := a.ReadState.UnreadCount(c.Request.Context(), roomID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unreadCount": count})
}

type EditMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

func (a *API) EditMessage(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	msgID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	view, err := a.Dispatcher.Edit(c.Request.Context(), msgID, userID, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": view})
}

func (a *API) DeleteMessage(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	msgID, ok := pathID(c, "id")
	if !ok {
		return
	}
	view, err := a.Dispatcher.Delete(c.Request.Context(), msgID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": view})
}
