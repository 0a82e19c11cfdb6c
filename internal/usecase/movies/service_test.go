package movies

import (
	"context"
	"errors"
	"testing"

	"github.com/reelrag/reelrag/internal/domain"
)

// --- Mocks ---

type mockRepo struct {
	listMovies []domain.Movie
	listErr    error
	getMovie   domain.Movie
	getErr     error

	gotLimit, gotSkip int
}

func (m *mockRepo) List(_ context.Context, limit, skip int) ([]domain.Movie, error) {
	m.gotLimit, m.gotSkip = limit, skip
	return m.listMovies, m.listErr
}

func (m *mockRepo) Get(_ context.Context, _ string) (domain.Movie, error) {
	return m.getMovie, m.getErr
}

// --- Tests ---

func TestList_Bounds(t *testing.T) {
	svc := New(&mockRepo{})

	cases := []struct {
		limit, skip int
	}{
		{0, 0}, {-5, 0}, {101, 0}, {10, -1},
	}
	for _, tc := range cases {
		if _, err := svc.List(context.Background(), tc.limit, tc.skip); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("limit=%d skip=%d: expected ErrValidation, got %v", tc.limit, tc.skip, err)
		}
	}
}

func TestList_PassesPagination(t *testing.T) {
	repo := &mockRepo{listMovies: []domain.Movie{{ID: "a"}, {ID: "b"}}}
	svc := New(repo)

	movies, err := svc.List(context.Background(), 25, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.gotLimit != 25 || repo.gotSkip != 50 {
		t.Errorf("pagination passed = (%d, %d), want (25, 50)", repo.gotLimit, repo.gotSkip)
	}
	if len(movies) != 2 {
		t.Errorf("got %d movies, want 2", len(movies))
	}
}

func TestGet_NotFoundPassesThrough(t *testing.T) {
	repo := &mockRepo{getErr: domain.ErrMovieNotFound}
	svc := New(repo)

	_, err := svc.Get(context.Background(), "64f0c2a5e4b0a1b2c3d4e5f6")
	if !errors.Is(err, domain.ErrMovieNotFound) {
		t.Errorf("expected ErrMovieNotFound, got %v", err)
	}
}

func TestGet_MalformedIDDistinctFromNotFound(t *testing.T) {
	repo := &mockRepo{getErr: domain.ErrMalformedID}
	svc := New(repo)

	_, err := svc.Get(context.Background(), "zzz")
	if !errors.Is(err, domain.ErrMalformedID) {
		t.Errorf("expected ErrMalformedID, got %v", err)
	}
	if errors.Is(err, domain.ErrMovieNotFound) {
		t.Error("malformed id must not look like not-found")
	}
}

func TestGet_Success(t *testing.T) {
	repo := &mockRepo{getMovie: domain.Movie{ID: "abc", Title: "Solaris"}}
	svc := New(repo)

	m, err := svc.Get(context.Background(), "abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Title != "Solaris" {
		t.Errorf("title = %q", m.Title)
	}
}
