package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"mentorchat/models"
)

type CreateRoomRequest struct {
	Type           string   `json:"type" binding:"required"`
	Name           string   `json:"name"`
	ParticipantIDs []string `json:"participantIds"`
}

// CreateRoom opens a DIRECT or GROUP room. DIRECT creation is idempotent:
// posting the same pair twice returns the existing room with a 200.
func (a *API) CreateRoom(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	memberIDs := make([]primitive.ObjectID, 0, len(req.ParticipantIDs))
	for _, raw := range req.ParticipantIDs {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid participant id"})
			return
		}
		memberIDs = append(memberIDs, id)
	}

	switch models.RoomType(req.Type) {
	case models.RoomDirect:
		if len(memberIDs) != 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "A direct room needs exactly one other participant"})
			return
		}
		room, created, err := a.Rooms.CreateDirect(c.Request.Context(), userID, memberIDs[0])
		if err != nil {
			respondError(c, err)
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		c.JSON(status, gin.H{"room": room})

	case models.RoomGroup:
		room, err := a.Rooms.CreateGroup(c.Request.Context(), userID, req.Name, memberIDs)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"room": room})

	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Room type must be DIRECT or GROUP"})
	}
}

// ListRooms returns the caller's room list, newest activity first.
func (a *API) ListRooms(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	rooms, err := a.Projector.ListRooms(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

func (a *API) ArchiveRoom(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	roomID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := a.Rooms.Archive(c.Request.Context(), roomID, userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Room archived"})
}

type AddParticipantRequest struct {
	UserID string `json:"userId" binding:"required"`
}

func (a *API) AddParticipant(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	roomID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req AddParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	target, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}
	if err := a.Rooms.AddParticipant(c.Request.Context(), roomID, userID, target); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Participant added"})
}

func (a *API) RemoveParticipant(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	roomID, ok := pathID(c, "id")
	if !ok {
		return
	}
	target, ok := pathID(c, "userId")
	if !ok {
		return
	}
	if err := a.Rooms.RemoveParticipant(c.Request.Context(), roomID, userID, target); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Participant removed"})
}
