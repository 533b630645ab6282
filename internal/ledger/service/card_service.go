package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/xxz807/betikbank/internal/ledger/domain"
)

// cardValidity 卡片有效期 3*365 天
const cardValidity = 3 * 365 * 24 * time.Hour

// IssueCardRequest 开卡请求；CreditLimit 仅对信用卡生效，nil 时取默认额度
type IssueCardRequest struct {
	IdentityID  int64
	AccountID   int64
	Kind        domain.CardKind
	CreditLimit *decimal.Decimal
}

type CardService struct {
	db    *gorm.DB
	repos Repositories
	opts  Options
}

func NewCardService(db *gorm.DB, repos Repositories, opts Options) *CardService {
	return &CardService{db: db, repos: repos, opts: opts.withDefaults()}
}

// IssueCard 为用户名下账户开卡，新卡总是 Active
func (s *CardService) IssueCard(ctx context.Context, req IssueCardRequest) (_ *domain.Card, err error) {
	start := time.Now()
	defer func() {
		finish(s.opts, "issue_card", start, err,
			zap.Int64("identity_id", req.IdentityID),
			zap.Int64("account_id", req.AccountID),
			zap.String("kind", string(req.Kind)),
		)
	}()

	if !req.Kind.IsValid() {
		return nil, domain.ErrInvalidCardKind
	}
	if req.CreditLimit != nil && (req.CreditLimit.IsNegative() || !domain.FitsMoneyScale(*req.CreditLimit)) {
		return nil, domain.ErrInvalidAmount
	}

	var card *domain.Card
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		identity, err := s.repos.Identities.FindByID(ctx, tx, req.IdentityID)
		if err != nil {
			return err
		}
		account, err := s.repos.Accounts.FindByID(ctx, tx, req.AccountID)
		if err != nil {
			return err
		}
		if account.IdentityID != identity.ID {
			return domain.ErrAccountNotOwned
		}

		number, err := uniqueNumber(ctx, s.opts,
			func() string { return s.opts.IDs.Digits(cardNumberLen) },
			func(ctx context.Context, n string) (bool, error) {
				return s.repos.Cards.ExistsByNumber(ctx, tx, n)
			})
		if err != nil {
			return err
		}

		limit := decimal.Zero
		if req.Kind == domain.CreditCard {
			limit = *s.opts.DefaultCreditLimit
			if req.CreditLimit != nil {
				limit = *req.CreditLimit
			}
		}

		c := &domain.Card{
			CardNumber:   number,
			IdentityID:   identity.ID,
			AccountID:    account.ID,
			Kind:         req.Kind,
			Expiry:       s.opts.Now().Add(cardValidity).Format("01/06"),
			SecurityCode: s.opts.IDs.Digits(securityCodeLen),
			HolderName:   identity.FullName(),
			CreditLimit:  limit,
			Status:       domain.StatusActive,
		}
		if err := s.repos.Cards.Create(ctx, tx, c); err != nil {
			return err
		}
		card = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return card, nil
}

// ListCards 最新的卡在前
func (s *CardService) ListCards(ctx context.Context, identityID int64, activeOnly bool) ([]domain.Card, error) {
	return s.repos.Cards.ListByIdentity(ctx, s.db, identityID, activeOnly)
}

func (s *CardService) GetCard(ctx context.Context, identityID, cardID int64) (*domain.Card, error) {
	card, err := s.repos.Cards.FindByID(ctx, s.db, cardID)
	if err != nil {
		return nil, err
	}
	if card.IdentityID != identityID {
		return nil, domain.ErrCardNotOwned
	}
	return card, nil
}
