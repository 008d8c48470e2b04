package scoring

import (
	"testing"

	"github.com/google/uuid"

	"github.com/afetops/coordcore/core/model"
)

func baseLocation() model.Location {
	return model.Location{
		ID:         uuid.New(),
		DisasterID: uuid.New(),
		Name:       "Merkez Mahallesi",
		Type:       model.LocationNeighborhood,
		Priority:   model.LevelMedium,
		Accessibility: model.Accessibility{
			ByRoad: true,
		},
	}
}

func TestScoreClampedWorstCase(t *testing.T) {
	// priority critical 40 + population cap 20 + 3 pending x2 + 1 critical x5
	// + destroyed 20 + no road 10 + no team 15 = 116, clamped to 100.
	loc := baseLocation()
	loc.Priority = model.LevelCritical
	loc.AffectedPopulation = 5000
	loc.DamageAssessment.Level = model.DamageDestroyed
	loc.Accessibility.ByRoad = false
	loc.AssignedTeams = nil

	s := New(DefaultWeights())
	if got := s.Score(loc, 3, 1); got != 100 {
		t.Fatalf("got %d, want 100", got)
	}
}

func TestScoreComponents(t *testing.T) {
	s := New(DefaultWeights())
	cases := []struct {
		name     string
		mutate   func(*model.Location)
		pending  int
		critical int
		want     int
	}{
		{
			name:   "quiet area",
			mutate: func(l *model.Location) { l.AssignedTeams = []uuid.UUID{uuid.New()} },
			want:   20, // medium priority only
		},
		{
			name: "population capped",
			mutate: func(l *model.Location) {
				l.AffectedPopulation = 1000000
				l.AssignedTeams = []uuid.UUID{uuid.New()}
			},
			want: 40, // 20 + capped 20
		},
		{
			name: "requests weighted",
			mutate: func(l *model.Location) {
				l.AssignedTeams = []uuid.UUID{uuid.New()}
			},
			pending:  4,
			critical: 2,
			want:     38, // 20 + 8 + 10
		},
		{
			name: "no team penalty",
			want: 35, // 20 + 15
		},
		{
			name: "moderate damage no road",
			mutate: func(l *model.Location) {
				l.DamageAssessment.Level = model.DamageModerate
				l.Accessibility.ByRoad = false
				l.AssignedTeams = []uuid.UUID{uuid.New()}
			},
			want: 40, // 20 + 10 + 10
		},
	}
	for _, c := range cases {
		loc := baseLocation()
		if c.mutate != nil {
			c.mutate(&loc)
		}
		if got := s.Score(loc, c.pending, c.critical); got != c.want {
			t.Errorf("%s: got %d want %d", c.name, got, c.want)
		}
	}
}

func TestScoreDeterministic(t *testing.T) {
	loc := baseLocation()
	loc.AffectedPopulation = 1234
	loc.DamageAssessment.Level = model.DamageHeavy
	s := New(DefaultWeights())
	first := s.Score(loc, 2, 1)
	for i := 0; i < 10; i++ {
		if got := s.Score(loc, 2, 1); got != first {
			t.Fatalf("score changed between identical calls: %d vs %d", first, got)
		}
	}
}

func TestScoreTunableWeights(t *testing.T) {
	w := DefaultWeights()
	w.NoTeam = 50
	s := New(w)
	loc := baseLocation()
	if got := s.Score(loc, 0, 0); got != 70 { // 20 medium + 50 no team
		t.Fatalf("got %d, want 70", got)
	}
}

func TestRecommend(t *testing.T) {
	loc := baseLocation()
	loc.DamageAssessment.Level = model.DamageDestroyed
	loc.Accessibility.ByRoad = false

	s := New(DefaultWeights())
	recs := s.Recommend(loc, 2)
	want := []string{
		RecommendUrgentResponse,
		RecommendAssignTeam,
		RecommendAlternateTransport,
		RecommendSearchRescue,
	}
	if len(recs) != len(want) {
		t.Fatalf("got %d recommendations, want %d", len(recs), len(want))
	}
	for i := range want {
		if recs[i] != want[i] {
			t.Errorf("recommendation %d: got %q want %q", i, recs[i], want[i])
		}
	}

	calm := baseLocation()
	calm.AssignedTeams = []uuid.UUID{uuid.New()}
	if recs := s.Recommend(calm, 0); len(recs) != 0 {
		t.Errorf("calm location should yield no recommendations, got %v", recs)
	}
}
