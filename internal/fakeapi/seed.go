package fakeapi

import (
	"context"
	"fmt"
	"net/url"

	"placeholder-cli/internal/resource"

	"go.uber.org/zap"
)

// Lister fetches a collection from a remote API (implemented by *api.Client).
type Lister interface {
	List(ctx context.Context, segments []string, q url.Values, out any) error
}

// SeedFrom copies every known collection from remote into the store.
func SeedFrom(ctx context.Context, st *Store, remote Lister, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	for _, name := range resource.Names() {
		var recs []map[string]any
		if err := remote.List(ctx, []string{name}, nil, &recs); err != nil {
			return fmt.Errorf("seed %s: %w", name, err)
		}
		n, err := st.Import(ctx, name, recs)
		if err != nil {
			return fmt.Errorf("seed %s: %w", name, err)
		}
		log.Info("seeded", zap.String("resource", name), zap.Int("count", n))
	}
	return nil
}

// SeedDemo fills an empty store with a small, deterministic data set:
// 2 users, each with 2 posts, 2 albums and 2 todos; every post has 2 comments
// and every album 2 photos.
func SeedDemo(ctx context.Context, st *Store) error {
	var users, posts, comments, albums, photos, todos []map[string]any
	for u := 1; u <= 2; u++ {
		users = append(users, map[string]any{
			"id":       u,
			"name":     fmt.Sprintf("User %d", u),
			"username": fmt.Sprintf("user%d", u),
			"email":    fmt.Sprintf("user%d@example.com", u),
			"address": map[string]any{
				"street":  fmt.Sprintf("%d Main St", u),
				"suite":   fmt.Sprintf("Apt. %d", 100+u),
				"city":    "Springfield",
				"zipcode": fmt.Sprintf("0000%d", u),
				"geo":     map[string]any{"lat": "0", "lng": "0"},
			},
			"phone":   fmt.Sprintf("555-010%d", u),
			"website": fmt.Sprintf("user%d.example.com", u),
			"company": map[string]any{
				"name":        fmt.Sprintf("Company %d", u),
				"catchPhrase": "Synergize scalable paradigms",
				"bs":          "harness real-time e-markets",
			},
		})
		for i := 1; i <= 2; i++ {
			pid := (u-1)*2 + i
			posts = append(posts, map[string]any{
				"id": pid, "userId": u,
				"title": fmt.Sprintf("Post %d", pid),
				"body":  fmt.Sprintf("Body of post %d", pid),
			})
			aid := pid
			albums = append(albums, map[string]any{
				"id": aid, "userId": u,
				"title": fmt.Sprintf("Album %d", aid),
			})
			todos = append(todos, map[string]any{
				"id": pid, "userId": u,
				"title":     fmt.Sprintf("Todo %d", pid),
				"completed": i%2 == 0,
			})
			for c := 1; c <= 2; c++ {
				cid := (pid-1)*2 + c
				comments = append(comments, map[string]any{
					"id": cid, "postId": pid,
					"name":  fmt.Sprintf("Comment %d", cid),
					"email": fmt.Sprintf("c%d@example.com", cid),
					"body":  fmt.Sprintf("Comment %d on post %d", cid, pid),
				})
				photos = append(photos, map[string]any{
					"id": cid, "albumId": aid,
					"title":        fmt.Sprintf("Photo %d", cid),
					"url":          fmt.Sprintf("https://via.placeholder.com/600/%06d", cid),
					"thumbnailUrl": fmt.Sprintf("https://via.placeholder.com/150/%06d", cid),
				})
			}
		}
	}

	for _, set := range []struct {
		name string
		recs []map[string]any
	}{
		{resource.Users.Name, users},
		{resource.Posts.Name, posts},
		{resource.Comments.Name, comments},
		{resource.Albums.Name, albums},
		{resource.Photos.Name, photos},
		{resource.Todos.Name, todos},
	} {
		if _, err := st.Import(ctx, set.name, set.recs); err != nil {
			return fmt.Errorf("seed %s: %w", set.name, err)
		}
	}
	return nil
}
