package handlers

import (
	"yourland-onboarding/economy"
	"yourland-onboarding/middleware"
	"yourland-onboarding/services"

	"github.com/gofiber/fiber/v2"
)

type claimRequest struct {
	AccountID string `json:"accountId"`
}

func SetupLandRoutes(app *fiber.App, claims *services.ClaimService) {
	app.Get("/land/allocation", func(c *fiber.Ctx) error {
		alloc := economy.CalculateLandAllocation(
			int64(c.QueryInt("referrals", 0)),
			int64(c.QueryInt("irl", 0)),
			c.QueryBool("seasonal", false),
		)
		return c.JSON(fiber.Map{
			"allocation": alloc,
			"tier":       economy.Info(alloc.Tier),
		})
	})

	// The claim is made by the device that owns the account.
	app.Post("/land/claim", func(c *fiber.Ctx) error {
		var req claimRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		claim, err := claims.ProcessClaim(c.UserContext(), req.AccountID, middleware.DeviceID(c))
		if err != nil {
			return respondError(c, "failed to claim land", err)
		}
		return c.Status(fiber.StatusCreated).JSON(claim)
	})

	app.Get("/land/claims/:accountId", func(c *fiber.Ctx) error {
		list, err := claims.ListClaims(c.UserContext(), c.Params("accountId"))
		if err != nil {
			return respondError(c, "failed to list land claims", err)
		}
		return c.JSON(fiber.Map{"land_claims": list})
	})
}
