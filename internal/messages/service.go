package messages

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/deorejayesh9663/UniTrade/internal/live"
	pkgauth "github.com/deorejayesh9663/UniTrade/pkg/auth"
	"github.com/deorejayesh9663/UniTrade/pkg/db/models"
	pkgerrors "github.com/deorejayesh9663/UniTrade/pkg/errors"
	"github.com/deorejayesh9663/UniTrade/pkg/logger"
	"github.com/deorejayesh9663/UniTrade/pkg/metrics"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const MaxTextLength = 2000

// Service is the message stream of a conversation.
type Service interface {
	Append(ctx context.Context, actor pkgauth.Principal, conversationID uuid.UUID, text string) (*models.Message, error)
	List(ctx context.Context, actor pkgauth.Principal, conversationID uuid.UUID) ([]models.Message, error)
	Subscribe(ctx context.Context, actor pkgauth.Principal, conversationID uuid.UUID) (*Subscription, error)
}

// Conversations is the slice of the conversation registry messages depend on.
type Conversations interface {
	Authorize(ctx context.Context, actor pkgauth.Principal, id uuid.UUID) (*models.Conversation, error)
	Touch(ctx context.Context, tx *gorm.DB, id uuid.UUID, at time.Time) (*models.Conversation, error)
	NotifyChanged(ctx context.Context, conv models.Conversation)
}

// RateLimiter caps message sends per user within a fixed window.
type RateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

type RateLimit struct {
	Limit  int
	Window time.Duration
}

type ServiceParams struct {
	DB            *gorm.DB
	Conversations Conversations
	Broker        live.Broker
	Limiter       RateLimiter
	RateLimit     RateLimit
	Logger        *logger.Logger
	Metrics       *metrics.MarketplaceMetrics
	Now           func() time.Time
}

type service struct {
	db            *gorm.DB
	repo          *Repository
	conversations Conversations
	broker        live.Broker
	limiter       RateLimiter
	rateLimit     RateLimit
	ids           *idSource
	logg          *logger.Logger
	metrics       *metrics.MarketplaceMetrics
	now           func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db is required")
	}
	if params.Conversations == nil {
		return nil, fmt.Errorf("conversation registry is required")
	}
	if params.Broker == nil {
		return nil, fmt.Errorf("live broker is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		db:            params.DB,
		repo:          NewRepository(params.DB),
		conversations: params.Conversations,
		broker:        params.Broker,
		limiter:       params.Limiter,
		rateLimit:     params.RateLimit,
		ids:           newIDSource(),
		logg:          logg,
		metrics:       params.Metrics,
		now:           now,
	}, nil
}

// Append stores a message from a participant. Timestamps strictly increase
// within a conversation: the touch update holds the conversation row while
// the next timestamp is derived from the latest message.
func (s *service) Append(ctx context.Context, actor pkgauth.Principal, conversationID uuid.UUID, text string) (*models.Message, error) {
	if !actor.IsAuthenticated() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message text is required")
	}
	if utf8.RuneCountInString(text) > MaxTextLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("message must be at most %d characters", MaxTextLength))
	}
	ctx = s.logg.WithConversationID(ctx, conversationID.String())
	if err := s.checkRate(ctx, actor); err != nil {
		return nil, err
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	var msg models.Message
	var conv *models.Conversation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		touched, err := s.conversations.Touch(ctx, tx, conversationID, now)
		if err != nil {
			return err
		}
		if !touched.HasParticipant(actor.UserID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "not a participant in this conversation")
		}

		repo := s.repo.WithTx(tx)
		last, err := repo.Latest(ctx, conversationID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load latest message")
		}
		at := now
		if last != nil && !at.After(last.CreatedAt) {
			at = last.CreatedAt.UTC().Add(time.Microsecond)
		}

		msg = models.Message{
			ID:             s.ids.next(at),
			ConversationID: conversationID,
			SenderID:       actor.UserID,
			Text:           text,
			CreatedAt:      at,
		}
		if err := repo.Create(ctx, &msg); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert message")
		}

		if !at.Equal(now) {
			if touched, err = s.conversations.Touch(ctx, tx, conversationID, at); err != nil {
				return err
			}
		}
		conv = touched
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.MessageSent()
	if err := s.broker.Publish(ctx, live.ConversationTopic(conversationID)); err != nil {
		s.logg.Error(ctx, "publish conversation change", err)
	}
	s.conversations.NotifyChanged(ctx, *conv)
	return &msg, nil
}

func (s *service) List(ctx context.Context, actor pkgauth.Principal, conversationID uuid.UUID) ([]models.Message, error) {
	if _, err := s.conversations.Authorize(ctx, actor, conversationID); err != nil {
		return nil, err
	}
	rows, err := s.repo.List(ctx, conversationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list messages")
	}
	return rows, nil
}

func (s *service) Subscribe(ctx context.Context, actor pkgauth.Principal, conversationID uuid.UUID) (*Subscription, error) {
	if _, err := s.conversations.Authorize(ctx, actor, conversationID); err != nil {
		return nil, err
	}
	logCtx := s.logg.WithConversationID(ctx, conversationID.String())
	stream := live.Watch(ctx, s.broker, []string{live.ConversationTopic(conversationID)},
		func(ctx context.Context) ([]models.Message, error) {
			return s.repo.List(ctx, conversationID)
		},
		func(err error) {
			s.logg.Error(logCtx, "message snapshot failed", err)
		})
	return &Subscription{stream: stream, onClose: s.metrics.SubscriberOpened("chat")}, nil
}

// checkRate fails open when the limiter is unreachable.
func (s *service) checkRate(ctx context.Context, actor pkgauth.Principal) error {
	if s.limiter == nil || s.rateLimit.Limit <= 0 || s.rateLimit.Window <= 0 {
		return nil
	}
	scope := "messages:" + actor.UserID.String()
	allowed, _, err := s.limiter.FixedWindowAllow(ctx, scope, int64(s.rateLimit.Limit), s.rateLimit.Window)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "message rate limiter unavailable")
		return nil
	}
	if !allowed {
		return pkgerrors.New(pkgerrors.CodeRateLimit, "too many messages, slow down")
	}
	return nil
}
