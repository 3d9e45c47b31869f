package wishlist

import (
	"context"
	"fmt"

	"github.com/deorejayesh9663/UniTrade/pkg/db/models"
	pkgerrors "github.com/deorejayesh9663/UniTrade/pkg/errors"
	"github.com/google/uuid"
)

type Service interface {
	// ToggleSave saves the item, or unsaves it when already saved. A nil
	// snapshot is filled from the current listing.
	ToggleSave(ctx context.Context, userID, itemID uuid.UUID, snapshot *Snapshot) (bool, error)
	IsSaved(ctx context.Context, userID, itemID uuid.UUID) (bool, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]SavedItem, error)
}

type ListingReader interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Listing, error)
}

type wishlistRepository interface {
	Add(ctx context.Context, entry *models.WishlistEntry) error
	Remove(ctx context.Context, userID, itemID uuid.UUID) (bool, error)
	Exists(ctx context.Context, userID, itemID uuid.UUID) (bool, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]SavedItem, error)
}

type service struct {
	repo     wishlistRepository
	listings ListingReader
}

func NewService(repo wishlistRepository, listings ListingReader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wishlist repository is required")
	}
	if listings == nil {
		return nil, fmt.Errorf("listing reader is required")
	}
	return &service{repo: repo, listings: listings}, nil
}

func (s *service) ToggleSave(ctx context.Context, userID, itemID uuid.UUID, snapshot *Snapshot) (bool, error) {
	if userID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to save items")
	}
	removed, err := s.repo.Remove(ctx, userID, itemID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove wishlist entry")
	}
	if removed {
		return false, nil
	}

	if snapshot == nil {
		item, err := s.listings.Get(ctx, itemID)
		if err != nil {
			return false, err
		}
		snapshot = &Snapshot{Title: item.Title, Price: item.Price, Image: item.ImageURL}
	}
	entry := &models.WishlistEntry{
		ID:     uuid.New(),
		UserID: userID,
		ItemID: itemID,
		Title:  snapshot.Title,
		Price:  snapshot.Price,
		Image:  snapshot.Image,
	}
	if err := s.repo.Add(ctx, entry); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add wishlist entry")
	}
	return true, nil
}

func (s *service) IsSaved(ctx context.Context, userID, itemID uuid.UUID) (bool, error) {
	if userID == uuid.Nil {
		return false, nil
	}
	saved, err := s.repo.Exists(ctx, userID, itemID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check wishlist")
	}
	return saved, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID) ([]SavedItem, error) {
	items, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wishlist")
	}
	return items, nil
}
