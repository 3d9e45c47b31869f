package conversations

import (
	"context"
	"fmt"
	"time"

	"github.com/deorejayesh9663/UniTrade/internal/live"
	pkgauth "github.com/deorejayesh9663/UniTrade/pkg/auth"
	"github.com/deorejayesh9663/UniTrade/pkg/db"
	"github.com/deorejayesh9663/UniTrade/pkg/db/models"
	pkgerrors "github.com/deorejayesh9663/UniTrade/pkg/errors"
	"github.com/deorejayesh9663/UniTrade/pkg/logger"
	"github.com/deorejayesh9663/UniTrade/pkg/metrics"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultBuyerName  = "Anonymous"
	DefaultSellerName = "Student"
)

// View is a conversation as shown to a participant.
type View struct {
	models.Conversation
	// ItemAvailable is false once the listing was sold or deleted.
	ItemAvailable bool `json:"item_available"`
}

// Service is the conversation registry.
type Service interface {
	FindOrCreate(ctx context.Context, actor pkgauth.Principal, itemID uuid.UUID) (*models.Conversation, error)
	Get(ctx context.Context, actor pkgauth.Principal, id uuid.UUID) (*View, error)
	// Authorize loads the conversation when actor is a participant or an admin.
	Authorize(ctx context.Context, actor pkgauth.Principal, id uuid.UUID) (*models.Conversation, error)
	// Touch bumps updated_at inside tx and returns the locked conversation.
	// Callers publish with NotifyChanged once tx commits.
	Touch(ctx context.Context, tx *gorm.DB, id uuid.UUID, at time.Time) (*models.Conversation, error)
	NotifyChanged(ctx context.Context, conv models.Conversation)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error)
	SubscribeForUser(ctx context.Context, actor pkgauth.Principal) (*Feed, error)
}

// ListingReader resolves the item a conversation is about.
type ListingReader interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Listing, error)
}

type ServiceParams struct {
	DB       *gorm.DB
	Listings ListingReader
	Broker   live.Broker
	Logger   *logger.Logger
	Metrics  *metrics.MarketplaceMetrics
}

type service struct {
	db       *gorm.DB
	repo     *Repository
	listings ListingReader
	broker   live.Broker
	logg     *logger.Logger
	metrics  *metrics.MarketplaceMetrics
}

func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db is required")
	}
	if params.Listings == nil {
		return nil, fmt.Errorf("listing reader is required")
	}
	if params.Broker == nil {
		return nil, fmt.Errorf("live broker is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		db:       params.DB,
		repo:     NewRepository(params.DB),
		listings: params.Listings,
		broker:   params.Broker,
		logg:     logg,
		metrics:  params.Metrics,
	}, nil
}

// FindOrCreate returns the thread for (item, actor), creating it on first
// contact. Concurrent callers converge on the row that won the insert.
func (s *service) FindOrCreate(ctx context.Context, actor pkgauth.Principal, itemID uuid.UUID) (*models.Conversation, error) {
	if !actor.IsAuthenticated() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to message a seller")
	}

	existing, err := s.repo.FindByItemAndBuyer(ctx, itemID, actor.UserID)
	if err == nil {
		return existing, nil
	}
	if !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup conversation")
	}

	item, err := s.listings.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.SellerID == actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeSelfMessage, "you cannot message yourself about your own listing")
	}

	sellerName := item.SellerName
	if sellerName == "" {
		sellerName = DefaultSellerName
	}
	conv := &models.Conversation{
		ID:         uuid.New(),
		ItemID:     item.ID,
		ItemTitle:  item.Title,
		ItemImage:  item.ImageURL,
		ItemPrice:  item.Price,
		BuyerID:    actor.UserID,
		BuyerName:  actor.NameOr(DefaultBuyerName),
		SellerID:   item.SellerID,
		SellerName: sellerName,
		UpdatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
	created, err := s.repo.CreateIfAbsent(ctx, conv)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create conversation")
	}

	stored, err := s.repo.FindByItemAndBuyer(ctx, itemID, actor.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload conversation")
	}
	if created {
		s.logg.Info(s.logg.WithConversationID(ctx, stored.ID.String()), "conversation opened")
		s.NotifyChanged(ctx, *stored)
	}
	return stored, nil
}

func (s *service) Get(ctx context.Context, actor pkgauth.Principal, id uuid.UUID) (*View, error) {
	conv, err := s.Authorize(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	view := &View{Conversation: *conv}
	item, err := s.listings.Get(ctx, conv.ItemID)
	switch {
	case err == nil:
		view.ItemAvailable = !item.Sold
	case pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
	default:
		return nil, err
	}
	return view, nil
}

func (s *service) Authorize(ctx context.Context, actor pkgauth.Principal, id uuid.UUID) (*models.Conversation, error) {
	if !actor.IsAuthenticated() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	conv, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "conversation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load conversation")
	}
	if !conv.HasParticipant(actor.UserID) && !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not a participant in this conversation")
	}
	return conv, nil
}

func (s *service) Touch(ctx context.Context, tx *gorm.DB, id uuid.UUID, at time.Time) (*models.Conversation, error) {
	repo := s.repo.WithTx(tx)
	touched, err := repo.Touch(ctx, id, at.UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "touch conversation")
	}
	if !touched {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "conversation not found")
	}
	conv, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load conversation")
	}
	return conv, nil
}

// NotifyChanged wakes both participants' inbox subscriptions. Publish
// failures are logged only.
func (s *service) NotifyChanged(ctx context.Context, conv models.Conversation) {
	for _, topic := range []string{live.BuyerInboxTopic(conv.BuyerID), live.SellerInboxTopic(conv.SellerID)} {
		if err := s.broker.Publish(ctx, topic); err != nil {
			s.logg.Error(s.logg.WithField(ctx, "topic", topic), "publish inbox change", err)
		}
	}
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error) {
	buying, err := s.repo.ListByBuyer(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list buyer conversations")
	}
	selling, err := s.repo.ListBySeller(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list seller conversations")
	}
	merger := NewMerger()
	merger.Apply(buying)
	return merger.Apply(selling), nil
}

func (s *service) SubscribeForUser(ctx context.Context, actor pkgauth.Principal) (*Feed, error) {
	if !actor.IsAuthenticated() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	userID := actor.UserID
	logCtx := s.logg.WithUserID(ctx, userID.String())
	onErr := func(err error) {
		s.logg.Error(logCtx, "inbox snapshot failed", err)
	}

	buyer := live.Watch(ctx, s.broker, []string{live.BuyerInboxTopic(userID)},
		func(ctx context.Context) ([]models.Conversation, error) {
			return s.repo.ListByBuyer(ctx, userID)
		}, onErr)
	seller := live.Watch(ctx, s.broker, []string{live.SellerInboxTopic(userID)},
		func(ctx context.Context) ([]models.Conversation, error) {
			return s.repo.ListBySeller(ctx, userID)
		}, onErr)

	return newFeed(ctx, buyer, seller, s.metrics.SubscriberOpened("inbox")), nil
}
