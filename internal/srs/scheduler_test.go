package srs

import (
	"math"
	"testing"
	"time"
)

func ptrFloat(v float64) *float64 { return &v }
func ptrInt(v int) *int           { return &v }
func ptrTime(t time.Time) *time.Time {
	return &t
}

func TestReviewCardFirstGoodReview(t *testing.T) {
	s := NewScheduler(time.UTC)
	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	// 全空卡片：stability/difficulty/step/due/last_review 均未设置
	updated, log := s.ReviewCard(Card{ID: 1, State: StateLearning}, RatingGood, at, nil)

	if log.ElapsedSeconds != 0 {
		t.Fatalf("expected elapsed 0, got %f", log.ElapsedSeconds)
	}
	if *updated.Stability != 0.1 {
		t.Fatalf("expected stability 0.1, got %f", *updated.Stability)
	}
	// interval_days = max(1, round(0.1*1.5)) = 1
	wantDue := at.Add(24 * time.Hour)
	if !updated.Due.Equal(wantDue) {
		t.Fatalf("expected due %v, got %v", wantDue, *updated.Due)
	}
	if updated.State != StateReview {
		t.Fatalf("expected review state, got %v", updated.State)
	}
	if *updated.Step != 1 {
		t.Fatalf("expected step 1, got %d", *updated.Step)
	}
}

func TestReviewCardGoodWithElapsed(t *testing.T) {
	s := NewScheduler(time.UTC)
	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	card := Card{
		ID:         2,
		State:      StateReview,
		Step:       ptrInt(1),
		Stability:  ptrFloat(1.0),
		Difficulty: ptrFloat(0.3),
		LastReview: ptrTime(at.Add(-48 * time.Hour)),
	}

	updated, log := s.ReviewCard(card, RatingGood, at, nil)

	// elapsed_days=2 -> factor=4.0 -> stability=4.0 -> interval=round(6.0)=6
	if log.ElapsedSeconds != 172800 {
		t.Fatalf("expected elapsed 172800, got %f", log.ElapsedSeconds)
	}
	if *updated.Stability != 4.0 {
		t.Fatalf("expected stability 4.0, got %f", *updated.Stability)
	}
	wantDue := at.Add(6 * 24 * time.Hour)
	if !updated.Due.Equal(wantDue) {
		t.Fatalf("expected due %v, got %v", wantDue, *updated.Due)
	}
}

func TestReviewCardAgain(t *testing.T) {
	s := NewScheduler(time.UTC)
	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	card := Card{
		ID:         3,
		State:      StateReview,
		Step:       ptrInt(4),
		Stability:  ptrFloat(2.0),
		Difficulty: ptrFloat(0.5),
		LastReview: ptrTime(at.Add(-time.Hour)),
	}

	updated, log := s.ReviewCard(card, RatingAgain, at, nil)

	if updated.State != StateLearning {
		t.Fatalf("expected learning state, got %v", updated.State)
	}
	if *updated.Step != 1 {
		t.Fatalf("expected step reset to 1, got %d", *updated.Step)
	}
	if *updated.Stability != 1.0 {
		t.Fatalf("expected stability 1.0, got %f", *updated.Stability)
	}
	wantDue := at.Add(10 * time.Minute)
	if !updated.Due.Equal(wantDue) {
		t.Fatalf("expected due %v, got %v", wantDue, *updated.Due)
	}
	if log.PrevStability != 2.0 || log.NewStability != 1.0 {
		t.Fatalf("unexpected log snapshot: %+v", log)
	}
}

func TestReviewCardEasy(t *testing.T) {
	s := NewScheduler(time.UTC)
	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	card := Card{
		ID:         4,
		State:      StateReview,
		Step:       ptrInt(2),
		Stability:  ptrFloat(1.5),
		Difficulty: ptrFloat(0.4),
		LastReview: ptrTime(at.Add(-24 * time.Hour)),
	}

	updated, _ := s.ReviewCard(card, RatingEasy, at, nil)

	if updated.State != StateMature {
		t.Fatalf("expected mature state, got %v", updated.State)
	}
	if *updated.Step != 4 {
		t.Fatalf("expected step 4, got %d", *updated.Step)
	}
	if *updated.Stability != 4.5 {
		t.Fatalf("expected stability 4.5, got %f", *updated.Stability)
	}
	// interval = max(2, round(4.5*2.0)) = 9
	wantDue := at.Add(9 * 24 * time.Hour)
	if !updated.Due.Equal(wantDue) {
		t.Fatalf("expected due %v, got %v", wantDue, *updated.Due)
	}
}

func TestReviewCardInvariants(t *testing.T) {
	s := NewScheduler(time.UTC)
	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	cards := []Card{
		{ID: 1},
		{ID: 2, State: StateLearning, Stability: ptrFloat(0.0), Difficulty: ptrFloat(0.05)},
		{ID: 3, State: StateReview, Step: ptrInt(3), Stability: ptrFloat(8.0), Difficulty: ptrFloat(0.95), LastReview: ptrTime(at.Add(-72 * time.Hour))},
		{ID: 4, State: StateMature, Step: ptrInt(9), Stability: ptrFloat(30.0), Difficulty: ptrFloat(2.0), LastReview: ptrTime(at.Add(-time.Minute))},
	}

	for _, card := range cards {
		for rating := RatingAgain; rating <= RatingEasy; rating++ {
			updated, log := s.ReviewCard(card, rating, at, nil)

			if updated.Due.Before(at) {
				t.Fatalf("card %d rating %v: due %v before review time", card.ID, rating, *updated.Due)
			}
			if *updated.Difficulty < 0.05 || *updated.Difficulty > 0.95 {
				t.Fatalf("card %d rating %v: difficulty %f out of bounds", card.ID, rating, *updated.Difficulty)
			}
			if *updated.Stability <= 0 {
				t.Fatalf("card %d rating %v: stability %f not positive", card.ID, rating, *updated.Stability)
			}
			if !updated.LastReview.Equal(at) {
				t.Fatalf("card %d rating %v: last review not set", card.ID, rating)
			}
			if log.NewState != updated.State {
				t.Fatalf("log state mismatch: %v vs %v", log.NewState, updated.State)
			}
		}
	}
}

func TestReviewCardAgainShrinksStability(t *testing.T) {
	s := NewScheduler(time.UTC)
	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	for _, stab := range []float64{0.05, 0.5, 2.0, 10.0} {
		card := Card{ID: 1, State: StateReview, Stability: ptrFloat(stab), Difficulty: ptrFloat(0.3)}
		updated, _ := s.ReviewCard(card, RatingAgain, at, nil)
		// 减半但不低于 0.05 的下限
		want := math.Max(0.05, stab*0.5)
		if math.Abs(*updated.Stability-want) > 1e-9 {
			t.Fatalf("stability %f: got %f, want %f", stab, *updated.Stability, want)
		}
		if updated.State != StateLearning || *updated.Step != 1 {
			t.Fatalf("again must reset to learning/step 1")
		}
	}
}

func TestReviewCardEasyGrowsStability(t *testing.T) {
	s := NewScheduler(time.UTC)
	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	for _, stab := range []float64{0.1, 1.0, 5.0} {
		card := Card{ID: 1, State: StateReview, Stability: ptrFloat(stab), Difficulty: ptrFloat(0.3)}
		updated, _ := s.ReviewCard(card, RatingEasy, at, nil)
		if *updated.Stability < stab*3.0-1e-9 {
			t.Fatalf("stability %f not tripled: got %f", stab, *updated.Stability)
		}
		if updated.State != StateMature {
			t.Fatalf("easy must set mature state")
		}
	}
}

func TestReviewCardDoesNotMutateInput(t *testing.T) {
	s := NewScheduler(time.UTC)
	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	card := Card{
		ID:         7,
		State:      StateReview,
		Step:       ptrInt(2),
		Stability:  ptrFloat(1.0),
		Difficulty: ptrFloat(0.3),
		LastReview: ptrTime(at.Add(-24 * time.Hour)),
	}

	s.ReviewCard(card, RatingGood, at, nil)

	if *card.Step != 2 || *card.Stability != 1.0 || *card.Difficulty != 0.3 {
		t.Fatal("input card was mutated")
	}
	if card.State != StateReview {
		t.Fatal("input state was mutated")
	}
}

func TestReviewCardDeterministic(t *testing.T) {
	s := NewScheduler(time.UTC)
	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	card := Card{ID: 1, State: StateLearning, Stability: ptrFloat(0.7), Difficulty: ptrFloat(0.4)}

	a, _ := s.ReviewCard(card, RatingGood, at, nil)
	b, _ := s.ReviewCard(card, RatingGood, at, nil)

	if *a.Stability != *b.Stability || !a.Due.Equal(*b.Due) {
		t.Fatal("same input produced different output")
	}
}

func TestReviewCardUserZoneOutput(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Fatalf("failed to load zone: %v", err)
	}
	s := NewScheduler(loc)

	// 复习时刻以 UTC 提供，结果必须落在用户时区
	at := time.Date(2025, 3, 10, 23, 30, 0, 0, time.UTC)
	updated, log := s.ReviewCard(Card{ID: 1, State: StateLearning}, RatingAgain, at, nil)

	if updated.Due.Location() != loc {
		t.Fatalf("due not in user zone: %v", updated.Due.Location())
	}
	if log.ReviewedAt.Location() != loc {
		t.Fatalf("log time not in user zone: %v", log.ReviewedAt.Location())
	}
	if !updated.Due.Equal(at.Add(10 * time.Minute)) {
		t.Fatalf("zone conversion changed the instant")
	}
}

func TestParseRating(t *testing.T) {
	for v := 1; v <= 4; v++ {
		if _, err := ParseRating(v); err != nil {
			t.Fatalf("rating %d rejected: %v", v, err)
		}
	}
	for _, v := range []int{0, 5, -1, 42} {
		if _, err := ParseRating(v); err == nil {
			t.Fatalf("rating %d accepted", v)
		}
	}
}

func TestClampDifficulty(t *testing.T) {
	cases := map[float64]float64{
		-1.0: 0.05,
		0.0:  0.05,
		0.3:  0.3,
		0.95: 0.95,
		2.0:  0.95,
	}
	for in, want := range cases {
		if got := clampDifficulty(in); math.Abs(got-want) > 1e-12 {
			t.Fatalf("clamp(%f) = %f, want %f", in, got, want)
		}
	}
}
