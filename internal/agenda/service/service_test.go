package service

import (
	"testing"
	"time"

	"event_messaging_backend/internal/agenda/repository"
)

func strPtr(s string) *string { return &s }

func TestRichness(t *testing.T) {
	cases := []struct {
		name    string
		session repository.Session
		want    float64
	}{
		{
			name:    "bare record",
			session: repository.Session{},
			want:    0,
		},
		{
			name: "synopsis only",
			session: repository.Session{
				Synopsis: strPtr("How to price residential jobs"),
			},
			want: 0.25,
		},
		{
			name: "empty synopsis does not count",
			session: repository.Session{
				Synopsis: strPtr(""),
				Keywords: []string{"pricing"},
			},
			want: 0.25,
		},
		{
			name: "half enriched",
			session: repository.Session{
				FocusAreas: []string{"sales"},
				Takeaways:  []string{"follow up within 24h"},
			},
			want: 0.5,
		},
		{
			name: "fully enriched",
			session: repository.Session{
				Synopsis:   strPtr("x"),
				FocusAreas: []string{"a"},
				Takeaways:  []string{"b"},
				Keywords:   []string{"c"},
			},
			want: 1,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Richness(tc.session); got != tc.want {
				t.Fatalf("expected richness %v, got %v", tc.want, got)
			}
		})
	}
}

func TestSortRichestFirst(t *testing.T) {
	base := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

	sparseEarly := SessionView{
		Session:           repository.Session{Title: "sparse-early", StartsAt: base},
		DataRichnessScore: 0.25,
	}
	richLate := SessionView{
		Session:           repository.Session{Title: "rich-late", StartsAt: base.Add(3 * time.Hour)},
		DataRichnessScore: 1,
	}
	richEarly := SessionView{
		Session:           repository.Session{Title: "rich-early", StartsAt: base.Add(time.Hour)},
		DataRichnessScore: 1,
	}

	talks := []SessionView{sparseEarly, richLate, richEarly}
	sortRichestFirst(talks)

	want := []string{"rich-early", "rich-late", "sparse-early"}
	for i, title := range want {
		if talks[i].Title != title {
			t.Fatalf("position %d: expected %q, got %q", i, title, talks[i].Title)
		}
	}
}

func TestSpeakerlessSessionIsUsable(t *testing.T) {
	s := repository.Session{Title: "Unassigned slot", Kind: repository.KindSession}

	v := view(s)
	if v.HasSpeakerData {
		t.Fatalf("expected HasSpeakerData=false for speakerless session")
	}
	if v.DataRichnessScore != 0 {
		t.Fatalf("expected zero richness, got %v", v.DataRichnessScore)
	}
}
