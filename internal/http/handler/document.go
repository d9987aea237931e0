package handler

import (
	"errors"
	"io"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"qrverify/internal/imaging"
	"qrverify/internal/service"
)

const (
	uploadFormField = "image"

	msgUploaded      = "Image uploaded & QR embedded & saved to database"
	msgNoImage       = "No image uploaded"
	msgProcessFailed = "Failed to process image"
	msgTooLarge      = "Image dimensions too large"
	msgVerified      = "Document Verified"
	msgNotFound      = "Document not found"
	msgVerifyFailed  = "Failed to verify document"
)

var stageMessages = map[service.Stage]string{
	service.StageDecode:         "Invalid image",
	service.StagePlacement:      "Image too small for QR placement",
	service.StageUploadOriginal: "Original image upload failed",
	service.StageRenderQR:       "QR code generation failed",
	service.StageComposite:      msgProcessFailed,
	service.StageUploadModified: "Modified image upload failed",
	service.StagePersist:        "Failed to save document",
}

// UploadResponse is returned when an image was watermarked and recorded.
type UploadResponse struct {
	Success       bool   `json:"success" example:"true"`
	Message       string `json:"message" example:"Image uploaded & QR embedded & saved to database"`
	OriginalImage string `json:"originalImage" example:"https://cdn.example.com/originals/3f1c.png"`
	QRCodeImage   string `json:"qrCodeImage" example:"https://cdn.example.com/watermarked/9a2e.png"`
	QRRedirectURL string `json:"qrRedirectUrl" example:"https://verify.example.com/verify/3f1c"`
}

// UploadErrorResponse is returned when an upload is rejected or fails.
type UploadErrorResponse struct {
	Success bool   `json:"success" example:"false"`
	Message string `json:"message" example:"No image uploaded"`
}

type VerifyResponse struct {
	Message  string `json:"message" example:"Document Verified"`
	ImageURL string `json:"imageUrl" example:"https://cdn.example.com/originals/3f1c.png"`
}

type MessageResponse struct {
	Message string `json:"message" example:"Document not found"`
}

func uploadFailed(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(UploadErrorResponse{Success: false, Message: message})
}

// UploadFailureMessage maps a pipeline error to the text shown to the client.
func UploadFailureMessage(err error) string {
	if errors.Is(err, imaging.ErrImageTooLarge) {
		return msgTooLarge
	}
	if stage, ok := service.StageOf(err); ok {
		if msg, ok := stageMessages[stage]; ok {
			return msg
		}
	}
	return msgProcessFailed
}

// UploadImage godoc
// @Summary      Watermark an image with a verification QR code
// @Description  Uploads the original, embeds a QR code linking to /verify/{identifier} in the bottom-right corner, uploads the result and records both.
// @Tags         documents
// @Accept       multipart/form-data
// @Produce      json
// @Param        image  formData  file  true  "Image to watermark"
// @Success      200  {object}  UploadResponse
// @Failure      400  {object}  UploadErrorResponse
// @Failure      429  {object}  UploadErrorResponse
// @Failure      500  {object}  UploadErrorResponse
// @Router       /upload [post]
func UploadImage(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile(uploadFormField)
		if err != nil {
			return uploadFailed(c, fiber.StatusBadRequest, msgNoImage)
		}

		f, err := fh.Open()
		if err != nil {
			return uploadFailed(c, fiber.StatusBadRequest, msgNoImage)
		}
		defer f.Close()

		data, err := io.ReadAll(f)
		if err != nil {
			return uploadFailed(c, fiber.StatusBadRequest, msgNoImage)
		}
		if len(data) == 0 {
			return uploadFailed(c, fiber.StatusBadRequest, msgNoImage)
		}

		res, err := docSvc.Upload(c.UserContext(), data, fh.Filename)
		if err != nil {
			if errors.Is(err, service.ErrEmptyImage) {
				return uploadFailed(c, fiber.StatusBadRequest, msgNoImage)
			}
			return uploadFailed(c, fiber.StatusInternalServerError, UploadFailureMessage(err))
		}

		return c.Status(fiber.StatusOK).JSON(UploadResponse{
			Success:       true,
			Message:       msgUploaded,
			OriginalImage: res.OriginalImageURL,
			QRCodeImage:   res.QRCodeImageURL,
			QRRedirectURL: res.QRRedirectURL,
		})
	}
}

// VerifyDocument godoc
// @Summary      Verify a document
// @Description  Returns the original image URL recorded for the identifier encoded in the QR code.
// @Tags         documents
// @Produce      json
// @Param        identifier  path  string  true  "Identifier issued at upload"
// @Success      200  {object}  VerifyResponse
// @Failure      404  {object}  MessageResponse
// @Failure      500  {object}  MessageResponse
// @Router       /verify/{identifier} [get]
func VerifyDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// params alias fasthttp's request buffer; the id outlives the request in spans
		id := utils.CopyString(c.Params("identifier"))
		if unescaped, err := url.PathUnescape(id); err == nil {
			id = unescaped
		}

		doc, err := docSvc.Verify(c.UserContext(), id)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(MessageResponse{Message: msgNotFound})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(MessageResponse{Message: msgVerifyFailed})
		}
		return c.Status(fiber.StatusOK).JSON(VerifyResponse{Message: msgVerified, ImageURL: doc.OriginalImageURL})
	}
}
