package handlers

import (
	"yourland-onboarding/services"

	"github.com/gofiber/fiber/v2"
)

type linkRequest struct {
	AccountID  string `json:"accountId"`
	Identifier string `json:"identifier"`
}

func SetupProfileRoutes(app *fiber.App, profiles *services.ProfileService) {
	app.Get("/profile/:identifier", func(c *fiber.Ctx) error {
		p, err := profiles.GetProfile(c.UserContext(), c.Params("identifier"))
		if err != nil {
			return respondError(c, "failed to fetch profile", err)
		}
		return c.JSON(p)
	})

	app.Post("/profile/link", func(c *fiber.Ctx) error {
		var req linkRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		acc, err := profiles.LinkIdentity(c.UserContext(), req.AccountID, req.Identifier)
		if err != nil {
			return respondError(c, "failed to link account", err)
		}
		return c.JSON(fiber.Map{
			"success":         true,
			"accountId":       acc.ID,
			"ethereumAddress": acc.EthereumAddress,
			"ensDomain":       acc.EnsDomain,
			"message":         "Account linked successfully",
		})
	})
}
