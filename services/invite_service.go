package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"yourland-onboarding/models"

	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GenericReferrerName is shown when an invite's referrer cannot be found.
const GenericReferrerName = "A YourLand user"

type InviteService struct {
	DB  *gorm.DB
	Log *zap.Logger
}

func NewInviteService(db *gorm.DB, log *zap.Logger) *InviteService {
	return &InviteService{DB: db, Log: log.Named("invites")}
}

// InviteCode is the parsed form of code[-realm[-quest]].
type InviteCode struct {
	Referrer  string `json:"referrer"`
	Realm     string `json:"realm,omitempty"`
	QuestType string `json:"quest_type,omitempty"`
}

// Invite is what the landing page shows for an invite code.
type Invite struct {
	Name         string `json:"name"`
	ReferralCode string `json:"referralCode"`
	ReferrerID   string `json:"referrerId,omitempty"`
	Realm        string `json:"realm,omitempty"`
	QuestType    string `json:"questType,omitempty"`
}

// Generated is a freshly built invite code and the path it is shared under.
type Generated struct {
	Code string `json:"code"`
	Path string `json:"path"`
}

func ParseInviteCode(code string) InviteCode {
	parts := strings.SplitN(strings.TrimSpace(code), "-", 3)
	ic := InviteCode{Referrer: parts[0]}
	if len(parts) > 1 {
		ic.Realm = parts[1]
	}
	if len(parts) > 2 {
		ic.QuestType = parts[2]
	}
	return ic
}

// BuildInviteCode joins the segments with "-". Realm and quest are slugged with "_"
// so they never introduce another separator.
func BuildInviteCode(referralCode, realm, quest string) string {
	code := strings.ToUpper(strings.TrimSpace(referralCode))
	realm = segment(realm)
	quest = segment(quest)
	switch {
	case realm == "" && quest == "":
		return code
	case quest == "":
		return code + "-" + realm
	case realm == "":
		// A quest without a realm keeps an empty realm segment.
		return code + "--" + quest
	}
	return code + "-" + realm + "-" + quest
}

func segment(s string) string {
	return strings.ReplaceAll(slug.Make(s), "-", "_")
}

// Lookup resolves the referrer of an invite code. A bare account id matches first;
// otherwise the code is split into segments and its referrer segment is tried as an
// account id and then as a referral code. Unknown referrers and lookup failures yield
// the generic greeting.
func (s *InviteService) Lookup(ctx context.Context, code string) (*Invite, error) {
	code = strings.TrimSpace(code)
	ic := ParseInviteCode(code)
	if ic.Referrer == "" {
		return nil, &ValidationError{Fields: []string{"code"}, Reason: "invalid invite code"}
	}

	db := s.DB.WithContext(ctx)
	var acc models.Account
	err := db.Where("id = ?", code).First(&acc).Error
	if err == nil {
		return inviteFrom(&acc, InviteCode{Referrer: code}), nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = db.Where("id = ?", ic.Referrer).First(&acc).Error
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = db.Where("referral_code = ?", strings.ToUpper(ic.Referrer)).Order("created_at ASC").First(&acc).Error
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return inviteFrom(nil, ic), nil
	case err != nil:
		s.Log.Warn("invite referrer lookup failed", zap.String("code", code), zap.Error(err))
		return inviteFrom(nil, ic), nil
	}
	return inviteFrom(&acc, ic), nil
}

func inviteFrom(acc *models.Account, ic InviteCode) *Invite {
	inv := &Invite{
		Name:         GenericReferrerName,
		ReferralCode: ic.Referrer,
		Realm:        ic.Realm,
		QuestType:    ic.QuestType,
	}
	if acc == nil {
		return inv
	}
	inv.Name = acc.DisplayName
	inv.ReferrerID = acc.ID
	if acc.ReferralCode != "" {
		inv.ReferralCode = acc.ReferralCode
	}
	return inv
}

// Generate builds an invite code for the account, optionally scoped to a realm and
// quest.
func (s *InviteService) Generate(ctx context.Context, accountID, realm, quest string) (*Generated, error) {
	if err := requireFields(map[string]string{"account_id": accountID}); err != nil {
		return nil, err
	}
	var acc models.Account
	if err := s.DB.WithContext(ctx).Where("id = ?", accountID).First(&acc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("account %s: %w", accountID, ErrNotFound)
		}
		return nil, err
	}

	code := BuildInviteCode(acc.ReferralCode, realm, quest)
	return &Generated{Code: code, Path: "/invite/" + code}, nil
}
