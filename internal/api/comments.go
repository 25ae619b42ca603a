package api

import (
	"context"
	"fmt"
	"strconv"

	"github.com/lapmarkt/lapcli/internal/cache"
	"github.com/lapmarkt/lapcli/internal/httpclient"
	"github.com/lapmarkt/lapcli/internal/model"
)

// Comments binds the comment endpoints through the server cache.
type Comments struct {
	client *httpclient.Client
	cache  *cache.Cache
}

// NewComments constructs the comment bindings.
func NewComments(client *httpclient.Client, c *cache.Cache) *Comments {
	return &Comments{client: client, cache: c}
}

// ListByItem returns the comments attached to one item.
func (s *Comments) ListByItem(ctx context.Context, itemID int64) ([]model.Comment, error) {
	key := cache.Key{Kind: cache.KindComments, ID: itemID}
	v, err := s.cache.Get(ctx, key, func(ctx context.Context) (any, error) {
		var comments []model.Comment
		if err := s.client.GetJSON(ctx, fmt.Sprintf("/comments/item/%d", itemID), nil, &comments); err != nil {
			return nil, err
		}
		return comments, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.Comment), nil
}

// Add posts a new comment and invalidates the item's comment list.
func (s *Comments) Add(ctx context.Context, draft model.CommentDraft) (model.Comment, error) {
	if err := checkValid(draft); err != nil {
		return model.Comment{}, err
	}
	form := httpclient.NewForm().
		Set("text", draft.Text).
		Set("itemId", strconv.FormatInt(draft.ItemID, 10))
	var comment model.Comment
	if err := s.client.PostMultipart(ctx, "/comments/create", form, &comment); err != nil {
		return model.Comment{}, err
	}
	s.cache.Invalidate(cache.InvalidationsFor(cache.MutAddComment, draft.ItemID)...)
	return comment, nil
}
