package utils

import "github.com/gofiber/fiber/v2"

// Envelope wraps every REST payload of the API: the metric catalog, the
// evaluation history and request rejections all ship in the same shape.
// Websocket events bypass it and use their own event envelope.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message"`
}

// SendSuccess writes a 200 envelope around data.
func SendSuccess(c *fiber.Ctx, message string, data interface{}) error {
	return SendSuccessWithStatus(c, fiber.StatusOK, message, data)
}

// SendSuccessWithStatus writes a success envelope with a caller-chosen
// status code. Zero values fall back to 200 and the generic message.
func SendSuccessWithStatus(c *fiber.Ctx, status int, message string, data interface{}) error {
	if status == 0 {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(Envelope{
		Success: true,
		Data:    data,
		Message: orDefault(message, "success"),
	})
}

// SendError writes a failure envelope. The data field is omitted so clients
// never mistake a rejection for a payload.
func SendError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(Envelope{
		Success: false,
		Message: orDefault(message, "error"),
	})
}

func orDefault(message, fallback string) string {
	if message == "" {
		return fallback
	}
	return message
}
