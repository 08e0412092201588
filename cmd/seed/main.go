// Command seed populates a development instance with demo content:
// taxonomy rows directly in the database, then users, posts and comments
// through the public API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"

	"github.com/inkwell-press/inkwell/internal/client"
	"github.com/inkwell-press/inkwell/internal/model"
	"github.com/inkwell-press/inkwell/internal/slug"
	"github.com/inkwell-press/inkwell/internal/store"
	"github.com/inkwell-press/inkwell/internal/store/sqlite"
)

var categories = []string{"Engineering", "Design", "Product", "Culture"}

var tags = []string{"go", "databases", "writing", "tooling", "opinion", "tutorial"}

var authors = []struct {
	email    string
	username string
	display  string
}{
	{"ada@example.com", "ada", "Ada L."},
	{"basil@example.com", "basil", "Basil Q."},
	{"clio@example.com", "clio", "Clio M."},
}

var posts = []struct {
	title   string
	excerpt string
}{
	{"Shipping a Blog Backend in a Weekend", "Notes from building a small CMS core."},
	{"Offset Pagination Is Fine, Actually", "Why the simplest pagination keeps winning."},
	{"Full-Text Search Without a Search Cluster", "The index your database already ships with."},
	{"Drafts, Edits and the Publish Button", "How a post's lifecycle really works."},
	{"On Writing Useful Excerpts", "Summaries that make people click for the right reason."},
	{"Migrating Password Hashes Without a Flag Day", "Supporting two digest formats at once."},
}

var comments = []string{
	"Great write-up, thanks for sharing.",
	"We do it almost the same way, with one twist.",
	"Could you expand on the migration part?",
	"Bookmarked. This saved me an afternoon.",
	"Not sure I agree, but well argued.",
	"The pagination section alone was worth it.",
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Inkwell server URL")
	dbPath := flag.String("db", "inkwell.db", "Database path (for taxonomy rows)")
	flag.Parse()

	if err := seedTaxonomy(*dbPath); err != nil {
		log.Fatalf("seed taxonomy: %v", err)
	}
	if err := seedContent(*baseURL); err != nil {
		log.Fatalf("seed content: %v", err)
	}
	log.Println("done")
}

// seedTaxonomy writes categories and tags straight into the store; there is
// no HTTP surface for creating them.
func seedTaxonomy(dbPath string) error {
	st, err := sqlite.Open(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	for _, name := range categories {
		_, err := st.CreateCategory(ctx, &model.Category{Name: name, Slug: slug.Make(name)})
		if err != nil && !errors.Is(err, store.ErrDuplicateSlug) {
			return err
		}
	}
	for _, name := range tags {
		_, err := st.CreateTag(ctx, &model.Tag{Name: name, Slug: slug.Make(name)})
		if err != nil && !errors.Is(err, store.ErrDuplicateSlug) {
			return err
		}
	}
	log.Printf("✓ Seeded %d categories, %d tags", len(categories), len(tags))
	return nil
}

func seedContent(baseURL string) error {
	var clients []*client.Client
	for _, a := range authors {
		c := client.New(baseURL)
		if _, err := c.Register(a.email, "password123", a.username, a.display); err != nil {
			// Already registered on a previous run; logging in is enough.
			if client.StatusCode(err) != 400 {
				return fmt.Errorf("register %s: %w", a.username, err)
			}
		}
		if _, err := c.Login(a.email, "password123"); err != nil {
			return fmt.Errorf("login %s: %w", a.username, err)
		}
		log.Printf("✓ Logged in as %s", a.username)
		clients = append(clients, c)
	}

	cats, err := clients[0].Categories()
	if err != nil {
		return err
	}
	tagList, err := clients[0].Tags()
	if err != nil {
		return err
	}

	var postIDs []int64
	for i, p := range posts {
		c := clients[i%len(clients)]
		fields := client.PostFields{
			Title:   p.title,
			Content: loremBody(p.title),
			Excerpt: p.excerpt,
			Status:  model.StatusPublished,
		}
		if len(cats) > 0 {
			fields.CategoryIDs = []int64{cats[i%len(cats)].ID}
		}
		if len(tagList) > 1 {
			fields.TagIDs = []int64{tagList[i%len(tagList)].ID, tagList[(i+1)%len(tagList)].ID}
		}
		id, err := c.CreatePost(fields)
		if err != nil {
			return fmt.Errorf("create post %q: %w", p.title, err)
		}
		postIDs = append(postIDs, id)
		log.Printf("✓ Created post %d: %s", id, p.title)
	}

	for _, postID := range postIDs {
		n := 1 + rand.Intn(3)
		for i := 0; i < n; i++ {
			c := clients[rand.Intn(len(clients))]
			if _, err := c.CreateComment(postID, comments[rand.Intn(len(comments))], nil); err != nil {
				return fmt.Errorf("comment on post %d: %w", postID, err)
			}
		}
	}
	log.Printf("✓ Commented on %d posts", len(postIDs))
	return nil
}

func loremBody(title string) string {
	return fmt.Sprintf(`# %s

This is demo content generated by the seed tool. It exists so local
development starts with something to read, filter and search.

Lorem ipsum dolor sit amet, consectetur adipiscing elit. Integer nec odio
nulla. Curabitur blandit tempus porttitor, sed posuere consectetur est at
lobortis.`, title)
}
