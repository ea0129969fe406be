package models

// OutboundMessageRequest is an operator message pushed to a WhatsApp number,
// outside the automatic collection receipts and statements.
type OutboundMessageRequest struct {
	To         string `json:"to" binding:"required"`
	Message    string `json:"message" binding:"required"`
	PreviewURL bool   `json:"previewUrl"`
}
