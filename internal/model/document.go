package model

import "time"

// Document links an original upload, its QR-watermarked copy and the
// identifier used to verify it. Records are created once and never updated.
//
// JSON and BSON names follow the record layout the verification UI and the
// Mongo collection already use.
type Document struct {
	ID               string    `json:"id" bson:"_id"`
	PublicID         string    `json:"publicId" bson:"publicId"`
	OriginalImageURL string    `json:"originalImageUrl" bson:"originalImageUrl"`
	QRCodeData       string    `json:"qrCodeData" bson:"qrCodeData"`
	QRCodeImageURL   string    `json:"qrCodeImage" bson:"qrCodeImage"`
	Verified         bool      `json:"verified" bson:"verified"`
	CreatedAt        time.Time `json:"createdAt" bson:"createdAt"`
}
