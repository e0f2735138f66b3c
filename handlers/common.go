package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"mentorchat/chat"
	"mentorchat/store"
)

const fallbackAvatar = "https://upload.wikimedia.org/wikipedia/commons/8/89/Portrait_Placeholder.png"

// API bundles the services the HTTP handlers dispatch into. Everything is
// injected so tests can run the handlers against in-memory fakes.
type API struct {
	Users      store.UserStore
	Push       store.PushStore
	Dispatcher *chat.Dispatcher
	ReadState  *chat.ReadState
	Projector  *chat.Projector
	Rooms      *chat.RoomService

	VAPIDPublicKey string
}

// currentUserID reads the authenticated user id set by the JWT middleware.
func currentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	raw, exists := c.Get("userId")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(raw.(string))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user id in token"})
		return primitive.NilObjectID, false
	}
	return id, true
}

func pathID(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return primitive.NilObjectID, false
	}
	return id, true
}

// respondError maps service errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, chat.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, chat.ErrPermission):
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not a participant of this room"})
	case errors.Is(err, chat.ErrNotFound), errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, chat.ErrAttachmentUpload):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Attachment upload failed"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
