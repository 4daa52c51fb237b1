package pagination

import (
	"context"
	"testing"

	"github.com/goliatone/go-repository-engine/pkg/testsupport"
	"github.com/goliatone/go-repository-engine/store/memstore"
)

// seedStore loads the fixture rows, three of which share a created_at value
// so the id tiebreak actually matters.
func seedStore(t *testing.T) *memstore.Store[*account] {
	t.Helper()

	var rows []*account
	testsupport.LoadFixtureJSON(t, testsupport.FixturePath("accounts.json"), &rows)

	st := memstore.New[*account](memstore.NewDB())
	for _, row := range rows {
		if err := st.Insert(context.Background(), row); err != nil {
			t.Fatalf("seed %s: %v", row.ID, err)
		}
	}
	return st
}

func TestTraversal_ForwardVisitsEveryRowOnce(t *testing.T) {
	st := seedStore(t)

	req := PageRequest{Limit: 3}
	seen := make(map[string]bool)
	var visited []string

	for page := 0; ; page++ {
		if page > 10 {
			t.Fatal("traversal did not terminate")
		}

		rows, err := st.Select(context.Background(), BuildOptions(req))
		if err != nil {
			t.Fatalf("select: %v", err)
		}
		result := ProcessResults(rows, req)

		for _, row := range result.Data {
			if seen[row.ID] {
				t.Fatalf("row %s visited twice", row.ID)
			}
			seen[row.ID] = true
			visited = append(visited, row.ID)
		}
		if !result.PageInfo.HasNextPage {
			break
		}
		req.Cursor = result.PageInfo.EndCursor
	}

	want := []string{"acc-01", "acc-02", "acc-03", "acc-04", "acc-05", "acc-06", "acc-07"}
	if len(visited) != len(want) {
		t.Fatalf("visited %d rows, want %d: %v", len(visited), len(want), visited)
	}
	for i, id := range want {
		if visited[i] != id {
			t.Errorf("position %d: got %s, want %s", i, visited[i], id)
		}
	}
}

func TestTraversal_TerminalPageYieldsNothingFurther(t *testing.T) {
	st := seedStore(t)

	// Drain to the last page, then ask for one more with its end cursor.
	req := PageRequest{Limit: 4}
	var last PageResult[*account]
	for {
		rows, err := st.Select(context.Background(), BuildOptions(req))
		if err != nil {
			t.Fatalf("select: %v", err)
		}
		last = ProcessResults(rows, req)
		if !last.PageInfo.HasNextPage {
			break
		}
		req.Cursor = last.PageInfo.EndCursor
	}

	req.Cursor = last.PageInfo.EndCursor
	rows, err := st.Select(context.Background(), BuildOptions(req))
	if err != nil {
		t.Fatalf("select past the end: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected no rows past the terminal page, got %d", len(rows))
	}
	final := ProcessResults(rows, req)
	if final.PageInfo.HasNextPage {
		t.Error("expected HasNextPage false past the terminal page")
	}
}

func TestTraversal_BackwardVisitsEveryRowOnce(t *testing.T) {
	st := seedStore(t)

	// No cursor plus backward direction means "the last page".
	req := PageRequest{Limit: 3, Direction: DirectionBackward}
	seen := make(map[string]bool)
	var pages [][]string

	for page := 0; ; page++ {
		if page > 10 {
			t.Fatal("traversal did not terminate")
		}

		rows, err := st.Select(context.Background(), BuildOptions(req))
		if err != nil {
			t.Fatalf("select: %v", err)
		}
		result := ProcessResults(rows, req)

		pages = append(pages, ids(result.Data))
		for _, row := range result.Data {
			if seen[row.ID] {
				t.Fatalf("row %s visited twice", row.ID)
			}
			seen[row.ID] = true
		}
		if !result.PageInfo.HasPreviousPage {
			break
		}
		req.Cursor = result.PageInfo.StartCursor
	}

	if len(pages) != 3 {
		t.Fatalf("expected 3 pages walking backward, got %d: %v", len(pages), pages)
	}
	// Each page is in display order even though the walk goes backward.
	wantPages := [][]string{
		{"acc-05", "acc-06", "acc-07"},
		{"acc-02", "acc-03", "acc-04"},
		{"acc-01"},
	}
	for i, want := range wantPages {
		got := pages[i]
		if len(got) != len(want) {
			t.Fatalf("page %d: got %v, want %v", i, got, want)
		}
		for j := range want {
			if got[j] != want[j] {
				t.Errorf("page %d position %d: got %s, want %s", i, j, got[j], want[j])
			}
		}
	}
}

// pageSnapshot is the golden-file projection of one visited page.
type pageSnapshot struct {
	IDs             []string `json:"ids"`
	HasNextPage     bool     `json:"has_next_page"`
	HasPreviousPage bool     `json:"has_previous_page"`
}

func TestTraversal_ForwardWalkMatchesGolden(t *testing.T) {
	st := seedStore(t)

	req := PageRequest{Limit: 3}
	var walk []pageSnapshot
	for page := 0; ; page++ {
		if page > 10 {
			t.Fatal("traversal did not terminate")
		}
		rows, err := st.Select(context.Background(), BuildOptions(req))
		if err != nil {
			t.Fatalf("select: %v", err)
		}
		result := ProcessResults(rows, req)
		walk = append(walk, pageSnapshot{
			IDs:             ids(result.Data),
			HasNextPage:     result.PageInfo.HasNextPage,
			HasPreviousPage: result.PageInfo.HasPreviousPage,
		})
		if !result.PageInfo.HasNextPage {
			break
		}
		req.Cursor = result.PageInfo.EndCursor
	}

	testsupport.GoldenJSON(t, testsupport.GoldenPath("forward_walk.json"), walk)
}

func TestTraversal_TiebreakKeepsDuplicateSortValuesStable(t *testing.T) {
	st := seedStore(t)

	// Page size 1 forces a cursor seek between each of the three rows
	// sharing created_at 10:02.
	req := PageRequest{Limit: 1}
	var visited []string
	for page := 0; ; page++ {
		if page > 10 {
			t.Fatal("traversal did not terminate")
		}
		rows, err := st.Select(context.Background(), BuildOptions(req))
		if err != nil {
			t.Fatalf("select: %v", err)
		}
		result := ProcessResults(rows, req)
		visited = append(visited, ids(result.Data)...)
		if !result.PageInfo.HasNextPage {
			break
		}
		req.Cursor = result.PageInfo.EndCursor
	}

	want := []string{"acc-01", "acc-02", "acc-03", "acc-04", "acc-05", "acc-06", "acc-07"}
	if len(visited) != len(want) {
		t.Fatalf("visited %v, want %v", visited, want)
	}
	for i := range want {
		if visited[i] != want[i] {
			t.Fatalf("visited %v, want %v", visited, want)
		}
	}
}
