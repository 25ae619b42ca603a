package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lapmarkt/lapcli/internal/api"
	"github.com/lapmarkt/lapcli/internal/model"
)

// multiFlag collects a repeatable -image flag.
type multiFlag []string

func (m *multiFlag) String() string { return fmt.Sprint(*m) }
func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}

func (a *app) cmdItems(args []string) {
	fs := flag.NewFlagSet("items", flag.ExitOnError)
	page := fs.Int("page", 0, "page number")
	size := fs.Int("size", 10, "page size")
	category := fs.String("category", "", "category filter")
	search := fs.String("search", "", "free-text search")
	sortBy := fs.String("sort", "createdAt", "sort field")
	sortDir := fs.String("dir", "desc", "sort direction")
	_ = fs.Parse(args)

	ctx, cancel := a.ctx()
	defer cancel()
	pageResp, err := a.items.List(ctx, api.ListParams{
		Page:     *page,
		Size:     *size,
		Category: *category,
		Search:   *search,
		SortBy:   *sortBy,
		SortDir:  *sortDir,
	})
	if err != nil {
		fail(err)
	}
	printJSON(pageResp)
}

func (a *app) cmdItem(args []string) {
	fs := flag.NewFlagSet("item", flag.ExitOnError)
	id := fs.Int64("id", 0, "item id")
	_ = fs.Parse(args)
	if *id <= 0 {
		fmt.Fprintln(os.Stderr, "need -id")
		os.Exit(1)
	}

	ctx, cancel := a.ctx()
	defer cancel()
	item, err := a.items.Get(ctx, *id)
	if err != nil {
		fail(err)
	}
	printJSON(item)
}

func (a *app) cmdMyItems() {
	if err := a.requireAuth("/my-items"); err != nil {
		fail(err)
	}
	ctx, cancel := a.ctx()
	defer cancel()
	items, err := a.items.MyItems(ctx)
	if err != nil {
		fail(err)
	}
	printJSON(items)
}

func (a *app) cmdAllItems() {
	if err := a.requireAuth("/items"); err != nil {
		fail(err)
	}
	ctx, cancel := a.ctx()
	defer cancel()
	items, err := a.items.AllItems(ctx)
	if err != nil {
		fail(err)
	}
	printJSON(items)
}

// parseDraft reads the shared create/update flags and loads image files.
func parseDraft(name string, args []string) (model.ItemDraft, int64) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	id := fs.Int64("id", 0, "item id (update only)")
	title := fs.String("title", "", "title")
	desc := fs.String("desc", "", "description")
	category := fs.String("category", "", "category")
	location := fs.String("location", "", "location")
	condition := fs.String("condition", "", "condition")
	var images multiFlag
	fs.Var(&images, "image", "image file (repeatable, max 5)")
	_ = fs.Parse(args)

	draft := model.ItemDraft{
		Title:       *title,
		Description: *desc,
		Category:    *category,
		Location:    *location,
		Condition:   *condition,
	}
	for _, path := range images {
		data, err := os.ReadFile(path)
		if err != nil {
			fail(err)
		}
		draft.Images = append(draft.Images, model.ImageUpload{
			Filename: filepath.Base(path),
			Data:     data,
		})
	}
	return draft, *id
}

func (a *app) cmdCreate(args []string) {
	if err := a.requireAuth("/items/new"); err != nil {
		fail(err)
	}
	draft, _ := parseDraft("create", args)

	ctx, cancel := a.ctx()
	defer cancel()
	item, err := a.items.Create(ctx, draft)
	if err != nil {
		fail(err)
	}
	printJSON(item)
}

func (a *app) cmdUpdate(args []string) {
	if err := a.requireAuth("/items/edit"); err != nil {
		fail(err)
	}
	draft, id := parseDraft("update", args)
	if id <= 0 {
		fmt.Fprintln(os.Stderr, "need -id")
		os.Exit(1)
	}

	ctx, cancel := a.ctx()
	defer cancel()
	item, err := a.items.Update(ctx, id, draft)
	if err != nil {
		fail(err)
	}
	printJSON(item)
}

func (a *app) cmdDelete(args []string) {
	fs := flag.NewFlagSet("rm", flag.ExitOnError)
	id := fs.Int64("id", 0, "item id")
	_ = fs.Parse(args)
	if *id <= 0 {
		fmt.Fprintln(os.Stderr, "need -id")
		os.Exit(1)
	}
	if err := a.requireAuth("/items/edit"); err != nil {
		fail(err)
	}

	ctx, cancel := a.ctx()
	defer cancel()
	if err := a.items.Delete(ctx, *id); err != nil {
		fail(err)
	}
	fmt.Println("ok")
}

func (a *app) cmdDeleteImage(args []string) {
	fs := flag.NewFlagSet("rm-image", flag.ExitOnError)
	id := fs.Int64("id", 0, "item id")
	imageURL := fs.String("url", "", "image url to remove")
	_ = fs.Parse(args)
	if *id <= 0 || *imageURL == "" {
		fmt.Fprintln(os.Stderr, "need -id and -url")
		os.Exit(1)
	}
	if err := a.requireAuth("/items/edit"); err != nil {
		fail(err)
	}

	ctx, cancel := a.ctx()
	defer cancel()
	if err := a.items.DeleteImage(ctx, *id, *imageURL); err != nil {
		fail(err)
	}
	fmt.Println("ok")
}

func (a *app) cmdReserve(args []string) {
	fs := flag.NewFlagSet("reserve", flag.ExitOnError)
	id := fs.Int64("id", 0, "item id")
	_ = fs.Parse(args)
	if *id <= 0 {
		fmt.Fprintln(os.Stderr, "need -id")
		os.Exit(1)
	}
	if err := a.requireAuth("/items"); err != nil {
		fail(err)
	}

	ctx, cancel := a.ctx()
	defer cancel()
	if err := a.items.ToggleReservation(ctx, *id); err != nil {
		fail(err)
	}
	fmt.Println("ok")
}

func (a *app) cmdComments(args []string) {
	fs := flag.NewFlagSet("comments", flag.ExitOnError)
	id := fs.Int64("id", 0, "item id")
	_ = fs.Parse(args)
	if *id <= 0 {
		fmt.Fprintln(os.Stderr, "need -id")
		os.Exit(1)
	}

	ctx, cancel := a.ctx()
	defer cancel()
	comments, err := a.comments.ListByItem(ctx, *id)
	if err != nil {
		fail(err)
	}
	printJSON(comments)
}

func (a *app) cmdAddComment(args []string) {
	fs := flag.NewFlagSet("comment", flag.ExitOnError)
	id := fs.Int64("id", 0, "item id")
	text := fs.String("text", "", "comment text")
	_ = fs.Parse(args)
	if *id <= 0 || *text == "" {
		fmt.Fprintln(os.Stderr, "need -id and -text")
		os.Exit(1)
	}
	if err := a.requireAuth("/items"); err != nil {
		fail(err)
	}

	ctx, cancel := a.ctx()
	defer cancel()
	comment, err := a.comments.Add(ctx, model.CommentDraft{ItemID: *id, Text: *text})
	if err != nil {
		fail(err)
	}
	printJSON(comment)
}
