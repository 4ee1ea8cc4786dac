package handlers

import (
	"yourland-onboarding/economy"
	"yourland-onboarding/services"

	"github.com/gofiber/fiber/v2"
)

type trackRequest struct {
	ReferrerID string `json:"referrerId"`
	Event      string `json:"event"`
	AccountID  string `json:"accountId"`
}

func SetupReferralRoutes(app *fiber.App, referrals *services.ReferralService) {
	app.Post("/referral/track", func(c *fiber.Ctx) error {
		var req trackRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		if req.Event == "" {
			return respondError(c, "missing required fields", &services.ValidationError{Fields: []string{"event"}})
		}

		m := economy.Milestone(req.Event)
		rel, err := referrals.TrackEvent(c.UserContext(), req.ReferrerID, req.AccountID, m)
		if err != nil {
			return respondError(c, "failed to track referral event", err)
		}
		return c.JSON(fiber.Map{
			"success":  true,
			"event":    m,
			"reward":   economy.RewardFor(m),
			"referral": rel,
			"message":  "Referral event tracked",
		})
	})

	app.Get("/referral/:referrerId", func(c *fiber.Ctx) error {
		stats, err := referrals.Stats(c.UserContext(), c.Params("referrerId"))
		if err != nil {
			return respondError(c, "failed to list referrals", err)
		}
		return c.JSON(stats)
	})
}
