package main

import (
	"context"
	"fmt"

	"github.com/threespace/site-backend/handlers"
)

var sampleBlogs = []map[string]any{
	{
		"title": "Shipping a design system in six weeks", "author": "Dana Ortiz", "readingTime": 6,
		"category": "Engineering", "excerpt": "What we kept, what we cut and what we would do again.",
		"content": "<p>We started with an audit of every button on the site.</p>",
	},
	{
		"title": "Notes from our first client workshop", "author": "Sam Lee", "readingTime": 3,
		"category": "Company", "content": "<p>Three days, forty sticky notes, one roadmap.</p>",
	},
}

var sampleCareers = []map[string]any{
	{
		"jobTitle": "Senior Backend Engineer", "field": "Engineering", "workType": "Remote",
		"employmentType": "Full Time", "description": "Own the APIs behind our client products.",
		"responsibilities": []any{"Design and run services", "Review code"},
		"requirements":     []any{"5+ years of backend work", "Go or a similar language"},
	},
}

var sampleProducts = []map[string]any{
	{"name": "Starter Site", "description": "A five page marketing site.", "price": 1500.0, "isNew": true, "tags": []any{"web", "starter"}},
	{"name": "Brand Refresh", "description": "Logo, palette and type system.", "price": 2400.0, "oldPrice": 3000.0},
}

func seedContent(ctx context.Context, s handlers.Services) error {
	for _, in := range sampleBlogs {
		if _, err := s.Blogs.Create(ctx, in, nil); err != nil {
			return fmt.Errorf("blog %q: %w", in["title"], err)
		}
	}
	for _, in := range sampleCareers {
		if _, err := s.Careers.Create(ctx, in, nil); err != nil {
			return fmt.Errorf("career %q: %w", in["jobTitle"], err)
		}
	}
	for _, in := range sampleProducts {
		if _, err := s.Products.Create(ctx, in, nil); err != nil {
			return fmt.Errorf("product %q: %w", in["name"], err)
		}
	}
	return nil
}
