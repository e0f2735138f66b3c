package models

// SenderView carries the resolved display fields attached to every message
// the API or the realtime channel hands to a client.
type SenderView struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Avatar string   `json:"avatar"`
	Role   UserRole `json:"role"`
}

// MessageView is the wire shape of a message. The realtime payload and the
// REST history use the same shape so a client reducer can merge the two
// streams keyed by message id.
type MessageView struct {
	ID          string       `json:"id"`
	RoomID      string       `json:"roomId"`
	Seq         int64        `json:"seq"`
	Sender      SenderView   `json:"sender"`
	Content     string       `json:"content"`
	Type        MessageType  `json:"type"`
	Attachments []Attachment `json:"attachments,omitempty"`
	IsEdited    bool         `json:"isEdited"`
	IsDeleted   bool         `json:"isDeleted"`
	CreatedAt   int64        `json:"createdAt"`
	UpdatedAt   int64        `json:"updatedAt"`
}

// NewMessageView resolves a message and its sender into the wire shape.
// A nil sender falls back to placeholder display fields.
func NewMessageView(msg *Message, sender *User) MessageView {
	view := MessageView{
		ID:          msg.ID.Hex(),
		RoomID:      msg.RoomID.Hex(),
		Seq:         msg.Seq,
		Content:     msg.Content,
		Type:        msg.Type,
		Attachments: msg.Attachments,
		IsEdited:    msg.IsEdited,
		IsDeleted:   msg.Deleted(),
		CreatedAt:   msg.CreatedAt,
		UpdatedAt:   msg.UpdatedAt,
		Sender: SenderView{
			ID:   msg.SenderID.Hex(),
			Name: "Unknown",
		},
	}
	if sender != nil {
		view.Sender.Name = sender.Name
		view.Sender.Avatar = sender.Avatar
		view.Sender.Role = sender.Role
	}
	return view
}
