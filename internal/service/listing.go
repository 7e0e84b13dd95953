package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"vilatur/internal/cache"
	"vilatur/internal/keyword"
	"vilatur/internal/model"
	"vilatur/internal/observability/metrics"
	"vilatur/internal/queue"
	"vilatur/internal/repository"
	"vilatur/internal/search"
)

// ListingService runs the owner-gated listing workflows and the public directory.
type ListingService struct {
	listings      repository.ListingRepository
	users         repository.UserRepository
	cache         cache.DirectoryCache
	janitor       *ImageJanitor
	fallbackToAll bool
	log           *zap.Logger
}

func NewListingService(
	listings repository.ListingRepository,
	users repository.UserRepository,
	directory cache.DirectoryCache,
	janitor *ImageJanitor,
	fallbackToAll bool,
	log *zap.Logger,
) *ListingService {
	return &ListingService{
		listings:      listings,
		users:         users,
		cache:         directory,
		janitor:       janitor,
		fallbackToAll: fallbackToAll,
		log:           log.Named("listing_service"),
	}
}

// ServicesPath is the owner's listing index.
func ServicesPath(username string) string {
	return "/users/" + url.PathEscape(username) + "/services"
}

// ServicePath is a single listing's page.
func ServicePath(username string, id int64) string {
	return fmt.Sprintf("%s/%d", ServicesPath(username), id)
}

// Submit validates the note-editor form and creates or updates the listing.
// An id naming a listing the owner does not have yields model.ErrListingNotFound
// and nothing is written.
func (s *ListingService) Submit(ctx context.Context, ownerID int64, form model.ListingForm) (*model.SubmitResult, error) {
	id, fields, err := ParseListingForm(form)
	if err != nil {
		metrics.ObserveListingMutation("submit", "invalid")
		return nil, err
	}

	owner, err := s.users.GetByID(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	var (
		listing *model.Listing
		created = id == 0
		op      = "update"
	)
	if created {
		op = "create"
		listing, err = s.listings.Create(ctx, ownerID, fields)
	} else {
		listing, err = s.listings.Update(ctx, id, ownerID, model.PatchFromFields(fields))
	}
	if err != nil {
		metrics.ObserveListingMutation(op, resultLabel(err))
		return nil, err
	}
	metrics.ObserveListingMutation(op, "ok")

	s.invalidate(ctx)
	s.log.Info("listing saved",
		zap.String("op", op),
		zap.Int64("listing_id", listing.ID),
		zap.Int64("owner_id", ownerID))

	return &model.SubmitResult{
		Listing:    listing,
		Created:    created,
		RedirectTo: ServicePath(owner.Username, listing.ID),
	}, nil
}

// Delete removes the owner's listing. Zero deleted rows is model.ErrListingNotFound.
// The listing's image is cleaned up after the delete commits.
func (s *ListingService) Delete(ctx context.Context, ownerID, listingID int64) (*model.DeleteListingResult, error) {
	owner, err := s.users.GetByID(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	res, err := s.listings.Delete(ctx, listingID, ownerID)
	if err != nil {
		metrics.ObserveListingMutation("delete", resultLabel(err))
		return nil, err
	}
	if res.Deleted == 0 {
		metrics.ObserveListingMutation("delete", "not_found")
		return nil, model.ErrListingNotFound
	}
	metrics.ObserveListingMutation("delete", "ok")

	s.invalidate(ctx)
	if res.ImageObjectKey != nil {
		s.janitor.Discard(ctx, "", *res.ImageObjectKey, queue.OwnerListing, listingID)
	}

	s.log.Info("listing deleted", zap.Int64("listing_id", listingID), zap.Int64("owner_id", ownerID))
	return &model.DeleteListingResult{Deleted: res.Deleted, RedirectTo: ServicesPath(owner.Username)}, nil
}

// SaveKeywords normalizes raw and overwrites only the listing's keywords.
func (s *ListingService) SaveKeywords(ctx context.Context, ownerID, listingID int64, raw string) (*model.Listing, error) {
	if len(raw) > maxKeywordsRawLength {
		return nil, model.NewFieldError("keywords", msgKeywordsTooLong)
	}

	normalized := keyword.Normalize(raw)
	listing, err := s.listings.Update(ctx, listingID, ownerID, model.ListingPatch{Keywords: &normalized})
	if err != nil {
		metrics.ObserveListingMutation("keywords", resultLabel(err))
		return nil, err
	}
	metrics.ObserveListingMutation("keywords", "ok")

	s.invalidate(ctx)
	return listing, nil
}

// Get returns listing id of the user named username.
func (s *ListingService) Get(ctx context.Context, username string, id int64) (*model.Listing, error) {
	owner, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.listings.GetByID(ctx, id, owner.ID)
}

// ListByUsername returns the {id, title} summaries of a user's listings.
func (s *ListingService) ListByUsername(ctx context.Context, username string) ([]model.ListingSummary, error) {
	owner, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.listings.ListSummaries(ctx, owner.ID)
}

// Browse filters the whole directory by query. The directory is served from the
// cache when possible; a cache failure falls through to the database.
func (s *ListingService) Browse(ctx context.Context, query string) (search.Result, error) {
	all, err := s.directory(ctx)
	if err != nil {
		return search.Result{}, err
	}

	result := search.Filter(all, query, s.fallbackToAll)
	metrics.ObserveSearch(string(result.Outcome))
	if result.Outcome == search.OutcomeFallback {
		s.log.Info("search matched nothing, returning all listings",
			zap.String("query", result.Query),
			zap.Int("listings", len(result.Listings)))
	}
	return result, nil
}

func (s *ListingService) directory(ctx context.Context) ([]model.Listing, error) {
	cached, found, err := s.cache.GetAll(ctx)
	switch {
	case err != nil:
		metrics.ObserveDirectoryCache("error")
		s.log.Warn("directory cache read failed", zap.Error(err))
	case found:
		metrics.ObserveDirectoryCache("hit")
		return cached, nil
	default:
		metrics.ObserveDirectoryCache("miss")
	}

	// read before ListAll so a write landing in between keeps the result out of the cache
	gen, genErr := s.cache.Generation(ctx)

	all, err := s.listings.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	if genErr != nil {
		s.log.Warn("directory cache generation read failed", zap.Error(genErr))
		return all, nil
	}
	if err := s.cache.SetAll(ctx, all, gen); err != nil {
		s.log.Warn("directory cache write failed", zap.Error(err))
	}
	return all, nil
}

func (s *ListingService) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn("directory cache invalidation failed", zap.Error(err))
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case isNotFound(err):
		return "not_found"
	default:
		return "error"
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, model.ErrListingNotFound) || errors.Is(err, model.ErrUserNotFound)
}
