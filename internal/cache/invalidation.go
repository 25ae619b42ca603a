package cache

// Mutation enumerates the write operations that touch cached state.
type Mutation int

const (
	MutCreateItem Mutation = iota
	MutUpdateItem
	MutDeleteItem
	MutDeleteImage
	MutToggleReservation
	MutAddComment
)

// InvalidationsFor is the static mutation-to-invalidation relation. Every
// item mutation clears the listing kinds and, when it targets a specific
// item, that item's exact-id entry. itemID is ignored for mutations that do
// not target an existing item.
func InvalidationsFor(m Mutation, itemID int64) []Prefix {
	listings := []Prefix{
		{Kind: KindItems},
		{Kind: KindMyItems},
		{Kind: KindAllItems},
	}
	switch m {
	case MutCreateItem:
		return listings
	case MutUpdateItem, MutDeleteItem, MutDeleteImage, MutToggleReservation:
		return append(listings, Prefix{Kind: KindItem, ID: itemID})
	case MutAddComment:
		return []Prefix{{Kind: KindComments, ID: itemID}}
	default:
		return nil
	}
}
