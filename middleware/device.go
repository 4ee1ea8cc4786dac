package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// DeviceIDHeader carries the browser installation id on every request.
const DeviceIDHeader = "X-Device-ID"

const deviceIDLocal = "device_id"

// DeviceContext reads the caller's device id from the X-Device-ID header, or the
// device_id query parameter for links opened outside the app, and stores it in the
// request locals. It never rejects a request; handlers decide whether they need it.
func DeviceContext() fiber.Handler {
	return func(c *fiber.Ctx) error {
		deviceID := strings.TrimSpace(c.Get(DeviceIDHeader))
		if deviceID == "" {
			deviceID = strings.TrimSpace(c.Query("device_id"))
		}
		c.Locals(deviceIDLocal, deviceID)
		return c.Next()
	}
}

// DeviceID returns the device id stored by DeviceContext, or "".
func DeviceID(c *fiber.Ctx) string {
	id, _ := c.Locals(deviceIDLocal).(string)
	return id
}
