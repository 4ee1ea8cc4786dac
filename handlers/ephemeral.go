package handlers

import (
	"time"

	"yourland-onboarding/middleware"
	"yourland-onboarding/models"
	"yourland-onboarding/services"

	"github.com/gofiber/fiber/v2"
)

type syncAccountRequest struct {
	AccountID    string     `json:"accountId"`
	DisplayName  string     `json:"displayName"`
	Email        string     `json:"email"`
	ReferrerID   string     `json:"referrerId"`
	DeviceID     string     `json:"deviceId"`
	ReferralCode string     `json:"referralCode"`
	Realm        string     `json:"realm"`
	QuestType    string     `json:"questType"`
	CreatedAt    *time.Time `json:"createdAt"`
	UpdatedAt    *time.Time `json:"updatedAt"`
}

type createAccountRequest struct {
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	ReferrerID  string `json:"referrerId"`
	Realm       string `json:"realm"`
	QuestType   string `json:"questType"`
}

type quoteClaimRequest struct {
	IRLEncounters int64 `json:"irlEncounters"`
	Seasonal      bool  `json:"seasonal"`
}

type pendingClaimRequest struct {
	Amount        *int64 `json:"amount"`
	ReferrerBonus *int64 `json:"referrerBonus"`
}

type mergeRequest struct {
	EphemeralAccountID string `json:"ephemeralAccountId"`
	PermanentAccountID string `json:"permanentAccountId"`
	DeviceID           string `json:"deviceId"`
}

// SetupEphemeralRoutes registers the account endpoints. Writes to an account must come
// from the device that owns it. serviceAuth guards the calls made by the app backend.
func SetupEphemeralRoutes(app *fiber.App, accounts *services.AccountService, serviceAuth fiber.Handler) {
	g := app.Group("/ephemeral")

	// Client-side accounts are mirrored here for referral tracking.
	g.Post("/create", func(c *fiber.Ctx) error {
		var req syncAccountRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		if req.DeviceID == "" {
			req.DeviceID = middleware.DeviceID(c)
		}

		acc, created, err := accounts.Sync(c.UserContext(), services.SyncAccountInput{
			CreateAccountInput: services.CreateAccountInput{
				DisplayName: req.DisplayName,
				Email:       req.Email,
				ReferrerID:  req.ReferrerID,
				Realm:       req.Realm,
				QuestType:   req.QuestType,
				DeviceID:    req.DeviceID,
			},
			ID:           req.AccountID,
			ReferralCode: req.ReferralCode,
			CreatedAt:    req.CreatedAt,
			UpdatedAt:    req.UpdatedAt,
		})
		if err != nil {
			return respondError(c, "failed to sync account", err)
		}

		message := "Ephemeral account synced"
		if !created {
			message = "Account already exists"
		}
		return c.JSON(fiber.Map{
			"success":   true,
			"accountId": acc.ID,
			"message":   message,
		})
	})

	g.Post("/account", func(c *fiber.Ctx) error {
		var req createAccountRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		acc, err := accounts.Create(c.UserContext(), services.CreateAccountInput{
			DisplayName: req.DisplayName,
			Email:       req.Email,
			ReferrerID:  req.ReferrerID,
			Realm:       req.Realm,
			QuestType:   req.QuestType,
			DeviceID:    middleware.DeviceID(c),
		})
		if err != nil {
			return respondError(c, "failed to create account", err)
		}
		c.Set(middleware.DeviceIDHeader, acc.DeviceID)
		return c.Status(fiber.StatusCreated).JSON(accountView(acc))
	})

	g.Get("/me", func(c *fiber.Ctx) error {
		acc, err := accounts.GetByDevice(c.UserContext(), middleware.DeviceID(c))
		if err != nil {
			return respondError(c, "no account on this device", err)
		}
		return c.JSON(accountView(acc))
	})

	g.Get("/by-email", func(c *fiber.Ctx) error {
		acc, err := accounts.GetByEmail(c.UserContext(), c.Query("email"))
		if err != nil {
			return respondError(c, "account not found", err)
		}
		return c.JSON(accountView(acc))
	})

	g.Post("/merge", serviceAuth, func(c *fiber.Ctx) error {
		var req mergeRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		res, err := accounts.Merge(c.UserContext(), services.MergeInput{
			EphemeralAccountID: req.EphemeralAccountID,
			PermanentAccountID: req.PermanentAccountID,
			DeviceID:           req.DeviceID,
		})
		if err != nil {
			return respondError(c, "failed to merge accounts", err)
		}
		return c.JSON(fiber.Map{
			"success":            true,
			"permanentAccountId": res.Account.ID,
			"account":            accountView(res.Account),
			"landClaim":          res.Claim,
		})
	})

	g.Get("/:id", func(c *fiber.Ctx) error {
		acc, err := accounts.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, "account not found", err)
		}
		return c.JSON(accountView(acc))
	})

	g.Patch("/:id", func(c *fiber.Ctx) error {
		var patch services.AccountPatch
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&patch); err != nil {
				return badRequest(c, "invalid request body")
			}
		}
		if patch.PendingLandClaim != nil {
			return badRequest(c, "pending land claims are quoted through /pending-claim")
		}
		id := c.Params("id")
		if _, err := accounts.Authorize(c.UserContext(), id, middleware.DeviceID(c)); err != nil {
			return respondError(c, "failed to update account", err)
		}
		acc, err := accounts.Update(c.UserContext(), id, patch)
		if err != nil {
			return respondError(c, "failed to update account", err)
		}
		return c.JSON(accountView(acc))
	})

	// The pending claim is quoted from the account's referrals.
	g.Post("/:id/pending-claim", func(c *fiber.Ctx) error {
		var req quoteClaimRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return badRequest(c, "invalid request body")
			}
		}
		id := c.Params("id")
		if _, err := accounts.Authorize(c.UserContext(), id, middleware.DeviceID(c)); err != nil {
			return respondError(c, "failed to quote pending claim", err)
		}

		acc, alloc, err := accounts.QuotePendingClaim(c.UserContext(), id, req.IRLEncounters, req.Seasonal)
		if err != nil {
			return respondError(c, "failed to quote pending claim", err)
		}
		return c.JSON(fiber.Map{
			"account":    accountView(acc),
			"allocation": alloc,
		})
	})

	// The app backend stores an allocation it computed itself.
	g.Put("/:id/pending-claim", serviceAuth, func(c *fiber.Ctx) error {
		var req pendingClaimRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		if req.Amount == nil {
			return badRequest(c, "amount is required")
		}
		acc, err := accounts.SetPendingClaim(c.UserContext(), c.Params("id"), *req.Amount, req.ReferrerBonus)
		if err != nil {
			return respondError(c, "failed to set pending claim", err)
		}
		return c.JSON(accountView(acc))
	})
}

type accountResponse struct {
	*models.Account
	PendingLandClaim *models.PendingLandClaim `json:"pending_land_claim,omitempty"`
}

func accountView(acc *models.Account) accountResponse {
	return accountResponse{Account: acc, PendingLandClaim: acc.PendingClaim()}
}
