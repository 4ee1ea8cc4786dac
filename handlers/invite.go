package handlers

import (
	"yourland-onboarding/services"

	"github.com/gofiber/fiber/v2"
)

type generateInviteRequest struct {
	AccountID string `json:"accountId"`
	Realm     string `json:"realm"`
	QuestType string `json:"questType"`
}

func SetupInviteRoutes(app *fiber.App, invites *services.InviteService) {
	// Unknown referrers still get a 200 with the generic greeting.
	app.Get("/invite/:code", func(c *fiber.Ctx) error {
		inv, err := invites.Lookup(c.UserContext(), c.Params("code"))
		if err != nil {
			return respondError(c, "invalid invite code", err)
		}
		return c.JSON(inv)
	})

	app.Post("/invite/generate", func(c *fiber.Ctx) error {
		var req generateInviteRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		gen, err := invites.Generate(c.UserContext(), req.AccountID, req.Realm, req.QuestType)
		if err != nil {
			return respondError(c, "failed to generate invite code", err)
		}
		return c.JSON(gen)
	})
}
