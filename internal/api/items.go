package api

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/lapmarkt/lapcli/internal/cache"
	"github.com/lapmarkt/lapcli/internal/errs"
	"github.com/lapmarkt/lapcli/internal/httpclient"
	"github.com/lapmarkt/lapcli/internal/model"
)

// UserSource reports the username the cache partitions listings by.
// An empty string means anonymous.
type UserSource interface {
	Username() string
}

// ListParams parameterize a paginated item search. Each distinct combination
// is cached and invalidated independently.
type ListParams struct {
	Page     int
	Size     int
	Category string
	Search   string
	SortBy   string
	SortDir  string
}

// query renders the parameters with backend defaults filled in.
func (p ListParams) query() url.Values {
	if p.Size <= 0 {
		p.Size = 10
	}
	if p.SortBy == "" {
		p.SortBy = "createdAt"
	}
	if p.SortDir == "" {
		p.SortDir = "desc"
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(p.Page))
	q.Set("size", strconv.Itoa(p.Size))
	q.Set("sortBy", p.SortBy)
	q.Set("sortDir", p.SortDir)
	if p.Category != "" {
		q.Set("category", p.Category)
	}
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	return q
}

// Items binds the item endpoints through the server cache.
type Items struct {
	client *httpclient.Client
	cache  *cache.Cache
	user   UserSource
}

// NewItems constructs the item bindings.
func NewItems(client *httpclient.Client, c *cache.Cache, user UserSource) *Items {
	return &Items{client: client, cache: c, user: user}
}

func (s *Items) username() string {
	if s.user == nil {
		return ""
	}
	return s.user.Username()
}

// List returns one page of listings matching the parameters.
func (s *Items) List(ctx context.Context, p ListParams) (model.Page, error) {
	q := p.query()
	key := cache.Key{Kind: cache.KindItems, Username: s.username(), Filter: q.Encode()}
	v, err := s.cache.Get(ctx, key, func(ctx context.Context) (any, error) {
		var page model.Page
		if err := s.client.GetJSON(ctx, "/items", q, &page); err != nil {
			return nil, err
		}
		return page, nil
	})
	if err != nil {
		return model.Page{}, err
	}
	return v.(model.Page), nil
}

// Get returns a single item. The cached value is the live one: a concurrent
// edit observed through any view lands here before a snapshot taken earlier.
func (s *Items) Get(ctx context.Context, id int64) (model.Item, error) {
	key := cache.Key{Kind: cache.KindItem, ID: id, Username: s.username()}
	v, err := s.cache.Get(ctx, key, func(ctx context.Context) (any, error) {
		var item model.Item
		if err := s.client.GetJSON(ctx, fmt.Sprintf("/items/%d", id), nil, &item); err != nil {
			return nil, err
		}
		return item, nil
	})
	if err != nil {
		var apiErr *errs.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == 404 {
			return model.Item{}, fmt.Errorf("item %d: %w", id, errs.ErrNotFound)
		}
		return model.Item{}, err
	}
	return v.(model.Item), nil
}

// MyItems returns the signed-in user's own listings.
func (s *Items) MyItems(ctx context.Context) ([]model.Item, error) {
	key := cache.Key{Kind: cache.KindMyItems, Username: s.username()}
	v, err := s.cache.Get(ctx, key, func(ctx context.Context) (any, error) {
		var items []model.Item
		if err := s.client.GetJSON(ctx, "/items/my-items", nil, &items); err != nil {
			return nil, err
		}
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.Item), nil
}

// AllItems returns the unpaginated listing available to signed-in users.
func (s *Items) AllItems(ctx context.Context) ([]model.Item, error) {
	key := cache.Key{Kind: cache.KindAllItems, Username: s.username()}
	v, err := s.cache.Get(ctx, key, func(ctx context.Context) (any, error) {
		var items []model.Item
		if err := s.client.GetJSON(ctx, "/items/all", nil, &items); err != nil {
			return nil, err
		}
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.Item), nil
}

// Create posts a new listing. Invalidation runs only after the backend
// confirms the write.
func (s *Items) Create(ctx context.Context, draft model.ItemDraft) (model.Item, error) {
	if err := checkValid(draft); err != nil {
		return model.Item{}, err
	}
	if err := checkImages(draft.Images); err != nil {
		return model.Item{}, err
	}
	var item model.Item
	if err := s.client.PostMultipart(ctx, "/items/create", draftForm(draft), &item); err != nil {
		return model.Item{}, err
	}
	s.cache.Invalidate(cache.InvalidationsFor(cache.MutCreateItem, 0)...)
	return item, nil
}

// Update replaces a listing's fields and optionally appends images.
func (s *Items) Update(ctx context.Context, id int64, draft model.ItemDraft) (model.Item, error) {
	if err := checkValid(draft); err != nil {
		return model.Item{}, err
	}
	if err := checkImages(draft.Images); err != nil {
		return model.Item{}, err
	}
	var item model.Item
	if err := s.client.PutMultipart(ctx, fmt.Sprintf("/items/%d", id), draftForm(draft), &item); err != nil {
		return model.Item{}, err
	}
	s.cache.Invalidate(cache.InvalidationsFor(cache.MutUpdateItem, id)...)
	return item, nil
}

// Delete removes a listing.
func (s *Items) Delete(ctx context.Context, id int64) error {
	if err := s.client.Delete(ctx, fmt.Sprintf("/items/%d", id), nil, nil); err != nil {
		return err
	}
	s.cache.Invalidate(cache.InvalidationsFor(cache.MutDeleteItem, id)...)
	return nil
}

// DeleteImage removes a single image from a listing.
func (s *Items) DeleteImage(ctx context.Context, id int64, imageURL string) error {
	if imageURL == "" {
		return &errs.ValidationError{Field: "imageUrl", Message: "is required"}
	}
	q := url.Values{}
	q.Set("imageUrl", imageURL)
	if err := s.client.Delete(ctx, fmt.Sprintf("/items/%d/image", id), q, nil); err != nil {
		return err
	}
	s.cache.Invalidate(cache.InvalidationsFor(cache.MutDeleteImage, id)...)
	return nil
}

// ToggleReservation flips the reserved flag on a listing.
func (s *Items) ToggleReservation(ctx context.Context, id int64) error {
	if err := s.client.Post(ctx, fmt.Sprintf("/items/%d/reserve", id), nil); err != nil {
		return err
	}
	s.cache.Invalidate(cache.InvalidationsFor(cache.MutToggleReservation, id)...)
	return nil
}

func draftForm(draft model.ItemDraft) *httpclient.Form {
	form := httpclient.NewForm().
		Set("title", draft.Title).
		Set("description", draft.Description).
		Set("category", draft.Category).
		Set("location", draft.Location).
		Set("condition", draft.Condition)
	for _, img := range draft.Images {
		form.AddFile("images", img.Filename, img.Data)
	}
	return form
}
