package reviews

import (
	"context"
	"fmt"
	"strings"

	pkgauth "github.com/deorejayesh9663/UniTrade/pkg/auth"
	"github.com/deorejayesh9663/UniTrade/pkg/db/models"
	pkgerrors "github.com/deorejayesh9663/UniTrade/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	DefaultBuyerName = "Anonymous"
	MinRating        = 1
	MaxRating        = 5
	maxTextLength    = 2000
)

type AddReviewInput struct {
	Rating int    `json:"rating" validate:"required,min=1,max=5"`
	Text   string `json:"text" validate:"required,max=2000"`
}

// Summary aggregates a seller's reviews. Average is rounded to one decimal.
type Summary struct {
	Count   int64           `json:"count"`
	Average decimal.Decimal `json:"average"`
}

type Service interface {
	AddReview(ctx context.Context, actor pkgauth.Principal, sellerID uuid.UUID, rating int, text string) (*models.Review, error)
	ReviewsFor(ctx context.Context, sellerID uuid.UUID) ([]models.Review, error)
	SellerSummary(ctx context.Context, sellerID uuid.UUID) (Summary, error)
}

type reviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	ListForSeller(ctx context.Context, sellerID uuid.UUID) ([]models.Review, error)
	Summary(ctx context.Context, sellerID uuid.UUID) (int64, int64, error)
}

type service struct {
	repo reviewRepository
}

func NewService(repo reviewRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("review repository is required")
	}
	return &service{repo: repo}, nil
}

func (s *service) AddReview(ctx context.Context, actor pkgauth.Principal, sellerID uuid.UUID, rating int, text string) (*models.Review, error) {
	if !actor.IsAuthenticated() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to leave a review")
	}
	if rating < MinRating || rating > MaxRating {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("rating must be between %d and %d", MinRating, MaxRating))
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "review text is required")
	}
	if len([]rune(text)) > maxTextLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("review must be at most %d characters", maxTextLength))
	}
	if actor.UserID == sellerID {
		return nil, pkgerrors.New(pkgerrors.CodeSelfReview, "you cannot review yourself")
	}

	review := &models.Review{
		ID:        uuid.New(),
		SellerID:  sellerID,
		BuyerID:   actor.UserID,
		BuyerName: actor.NameOr(DefaultBuyerName),
		Rating:    rating,
		Text:      text,
	}
	if err := s.repo.Create(ctx, review); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create review")
	}
	return review, nil
}

func (s *service) ReviewsFor(ctx context.Context, sellerID uuid.UUID) ([]models.Review, error) {
	rows, err := s.repo.ListForSeller(ctx, sellerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reviews")
	}
	return rows, nil
}

func (s *service) SellerSummary(ctx context.Context, sellerID uuid.UUID) (Summary, error) {
	count, total, err := s.repo.Summary(ctx, sellerID)
	if err != nil {
		return Summary{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "summarize reviews")
	}
	if count == 0 {
		return Summary{Average: decimal.Zero}, nil
	}
	avg := decimal.NewFromInt(total).Div(decimal.NewFromInt(count)).Round(1)
	return Summary{Count: count, Average: avg}, nil
}
