//go:build property
// +build property

// Package repository_test contains property-based tests for traversal
// completeness and version stamping.
package repository_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/goliatone/go-repository-engine/pagination"
	"github.com/goliatone/go-repository-engine/repository"
	"github.com/goliatone/go-repository-engine/store/memstore"
)

type entry struct {
	repository.Model

	Bucket int64 `bun:"bucket" json:"bucket"`
}

func newEntryRepo() (*repository.Base[*entry], *repository.Paginated[*entry]) {
	db := memstore.NewDB()
	st := memstore.New[*entry](db)
	repo := repository.New[*entry](st, repository.WithTxRunner(db))
	return repo, repository.NewPaginated[*entry](repo)
}

// TestTraversalCompleteness verifies cursor paging drains the full set with
// no duplicates and no omissions, for any page size, even when the sort
// field has heavy duplication and only the id tiebreak separates rows.
func TestTraversalCompleteness(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("forward traversal visits each row exactly once", prop.ForAll(
		func(limit int, total int) bool {
			repo, paged := newEntryRepo()
			ctx := context.Background()

			for i := 0; i < total; i++ {
				rec := &entry{Bucket: int64(i % 4)}
				rec.ID = fmt.Sprintf("e-%03d", i)
				if _, err := repo.Create(ctx, rec); err != nil {
					return false
				}
			}

			req := pagination.PageRequest{Limit: limit, SortField: "bucket"}
			seen := make(map[string]bool)
			for page := 0; page <= total+1; page++ {
				result, err := paged.CursorList(ctx, req)
				if err != nil {
					return false
				}
				for _, row := range result.Data {
					if seen[row.ID] {
						return false
					}
					seen[row.ID] = true
				}
				if !result.PageInfo.HasNextPage {
					break
				}
				req.Cursor = result.PageInfo.EndCursor
			}
			return len(seen) == total
		},
		gen.IntRange(1, 20),
		gen.IntRange(0, 55),
	))

	properties.TestingRun(t)
}

// TestVersionMonotonicity verifies every successful update stamps exactly
// the next version.
func TestVersionMonotonicity(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("n updates produce version n", prop.ForAll(
		func(updates int) bool {
			repo, _ := newEntryRepo()
			ctx := context.Background()

			rec, err := repo.Create(ctx, &entry{Bucket: 1})
			if err != nil || rec.Version != 0 {
				return false
			}
			for i := 0; i < updates; i++ {
				rec.Bucket++
				rec, err = repo.Update(ctx, rec)
				if err != nil || rec.Version != int64(i+1) {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 10),
	))

	properties.TestingRun(t)
}
