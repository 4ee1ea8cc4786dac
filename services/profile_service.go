package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"yourland-onboarding/models"
	"yourland-onboarding/resolver"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ProfileService struct {
	DB       *gorm.DB
	Resolver resolver.Resolver
	Clock    clockwork.Clock
	Log      *zap.Logger
}

func NewProfileService(db *gorm.DB, r resolver.Resolver, clock clockwork.Clock, log *zap.Logger) *ProfileService {
	return &ProfileService{DB: db, Resolver: r, Clock: clock, Log: log.Named("profiles")}
}

type Blockchain struct {
	Address   string            `json:"address"`
	ENSDomain *string           `json:"ens_domain"`
	Metadata  resolver.Metadata `json:"metadata"`
}

type ProfileStats struct {
	ReferralCount   int64 `json:"referral_count"`
	LandClaimCount  int   `json:"land_claim_count"`
	TotalLandAmount int64 `json:"total_land_amount"`
}

// Profile is the public view of a blockchain identity and the account linked to it.
// Account is nil when no account has linked the identity yet.
type Profile struct {
	Account    *models.Account    `json:"account"`
	Blockchain Blockchain         `json:"blockchain"`
	Stats      ProfileStats       `json:"stats"`
	LandClaims []models.LandClaim `json:"land_claims"`
}

// GetProfile resolves identifier (address or ENS name) and aggregates the linked
// account's referrals and land claims. An identifier that does not resolve to an
// address is ErrNotFound.
func (s *ProfileService) GetProfile(ctx context.Context, identifier string) (*Profile, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, &ValidationError{Fields: []string{"identifier"}}
	}

	id := s.Resolver.ResolveIdentifier(ctx, identifier)
	if id.Address == "" {
		return nil, fmt.Errorf("identifier %s does not resolve to an address: %w", identifier, ErrNotFound)
	}

	var metadata resolver.Metadata
	if id.ENSDomain != "" {
		metadata = s.Resolver.Metadata(ctx, id.ENSDomain)
	} else {
		_, metadata = s.Resolver.AddressMetadata(ctx, id.Address)
	}
	if metadata == nil {
		metadata = resolver.Metadata{}
	}

	db := s.DB.WithContext(ctx)
	acc, err := findLinkedAccount(db, id, strings.ToLower(identifier))
	if err != nil {
		return nil, err
	}

	p := &Profile{
		Account:    acc,
		Blockchain: Blockchain{Address: id.Address, Metadata: metadata},
		LandClaims: []models.LandClaim{},
	}
	switch {
	case id.ENSDomain != "":
		p.Blockchain.ENSDomain = &id.ENSDomain
	case acc != nil && acc.EnsDomain != nil:
		p.Blockchain.ENSDomain = acc.EnsDomain
	}
	if acc == nil {
		return p, nil
	}

	if p.Stats.ReferralCount, err = countReferrals(db, acc.ID); err != nil {
		return nil, err
	}
	claims, err := listClaims(db, acc.ID)
	if err != nil {
		return nil, err
	}
	p.LandClaims = claims
	p.Stats.LandClaimCount = len(claims)
	for _, c := range claims {
		p.Stats.TotalLandAmount += c.Amount
	}
	return p, nil
}

// findLinkedAccount matches by address or the identifier as a domain first, then by
// the resolved domain.
func findLinkedAccount(db *gorm.DB, id resolver.Identity, identifier string) (*models.Account, error) {
	var acc models.Account
	err := db.Where("ethereum_address = ?", id.Address).
		Or("ens_domain = ?", identifier).
		Order("created_at ASC").
		First(&acc).Error
	if err == nil {
		return &acc, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if id.ENSDomain == "" {
		return nil, nil
	}

	err = db.Where("ens_domain = ?", strings.ToLower(id.ENSDomain)).Order("created_at ASC").First(&acc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

// LinkIdentity attaches an Ethereum address, and the ENS name when there is one, to
// the account. Signatures are not verified.
func (s *ProfileService) LinkIdentity(ctx context.Context, accountID, identifier string) (*models.Account, error) {
	if err := requireFields(map[string]string{"account_id": accountID, "identifier": identifier}); err != nil {
		return nil, err
	}
	identifier = strings.TrimSpace(identifier)

	id := s.Resolver.ResolveIdentifier(ctx, identifier)
	if id.Address == "" {
		return nil, &ValidationError{Fields: []string{"identifier"}, Reason: "could not resolve identifier to an Ethereum address"}
	}

	domain := id.ENSDomain
	if domain == "" && !resolver.IsValidAddress(identifier) {
		domain = strings.ToLower(identifier)
	}

	now := s.Clock.Now().UTC()
	var acc models.Account
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", accountID).First(&acc).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("account %s: %w", accountID, ErrNotFound)
			}
			return err
		}

		var owner models.Account
		err := tx.Where("ethereum_address = ? AND id <> ?", id.Address, accountID).First(&owner).Error
		switch {
		case err == nil:
			return fmt.Errorf("address %s already linked to account %s: %w", id.Address, owner.ID, ErrConflict)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		acc.EthereumAddress = &id.Address
		acc.EnsDomain = optional(domain)
		acc.UpdatedAt = now
		return tx.Save(&acc).Error
	})
	if err != nil {
		return nil, err
	}

	s.Log.Info("identity linked",
		zap.String("account_id", accountID),
		zap.String("address", id.Address),
		zap.String("ens_domain", domain))
	return &acc, nil
}
