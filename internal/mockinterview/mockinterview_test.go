package mockinterview_test

import (
	"errors"
	"testing"

	"prepwise/internal/mockinterview"
)

func TestNormalize_Valid(t *testing.T) {
	cases := []struct {
		in   mockinterview.StartRequest
		want mockinterview.StartRequest
	}{
		{
			in:   mockinterview.StartRequest{Type: "technical", Difficulty: "hard"},
			want: mockinterview.StartRequest{Type: "technical", Difficulty: "hard"},
		},
		{
			in:   mockinterview.StartRequest{Type: " Behavioral "},
			want: mockinterview.StartRequest{Type: "behavioral", Difficulty: "medium"},
		},
		{
			in:   mockinterview.StartRequest{Type: "TECHNICAL", Difficulty: "Easy"},
			want: mockinterview.StartRequest{Type: "technical", Difficulty: "easy"},
		},
	}
	for _, c := range cases {
		got, err := c.in.Normalize()
		if err != nil {
			t.Errorf("Normalize(%+v) error: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("Normalize(%+v) = %+v, want %+v", c.in, got, c.want)
		}
	}
}

func TestNormalize_Errors(t *testing.T) {
	cases := []struct {
		in   mockinterview.StartRequest
		want error
	}{
		{mockinterview.StartRequest{}, mockinterview.ErrTypeRequired},
		{mockinterview.StartRequest{Difficulty: "hard"}, mockinterview.ErrTypeRequired},
		{mockinterview.StartRequest{Type: "system-design"}, mockinterview.ErrUnknownType},
		{mockinterview.StartRequest{Type: "technical", Difficulty: "insane"}, mockinterview.ErrUnknownDifficulty},
	}
	for _, c := range cases {
		if _, err := c.in.Normalize(); !errors.Is(err, c.want) {
			t.Errorf("Normalize(%+v) err = %v, want %v", c.in, err, c.want)
		}
	}
}

func TestCatalogueIsCopied(t *testing.T) {
	ts := mockinterview.Types()
	if len(ts) != 2 || ts[0].ID != "technical" || ts[1].ID != "behavioral" {
		t.Fatalf("Types = %+v", ts)
	}
	ts[0].ID = "mutated"
	if mockinterview.Types()[0].ID != "technical" {
		t.Error("Types exposes internal slice")
	}

	ds := mockinterview.Difficulties()
	if len(ds) != 3 || ds[0] != "easy" || ds[2] != "hard" {
		t.Errorf("Difficulties = %v", ds)
	}
}
