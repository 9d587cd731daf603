package telemetry

import (
	"slices"
	"testing"
)

func TestBookmarkDetector_FirstPipeAndMilestones(t *testing.T) {
	bd := NewBookmarkDetector(10)

	if got := bd.Check(GenerationStats{Generation: 1, MaxScore: 0, NewChampion: true}); len(got) != 0 {
		t.Errorf("unexpected bookmarks: %v", Types(got))
	}

	got := Types(bd.Check(GenerationStats{Generation: 2, MaxScore: 12, NewChampion: true}))
	want := []BookmarkType{BookmarkFirstPipe, BookmarkScoreMilestone}
	if !slices.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	// Crossing two milestones at once reports both, and each only once.
	got = Types(bd.Check(GenerationStats{Generation: 3, MaxScore: 120, NewChampion: true}))
	want = []BookmarkType{BookmarkScoreMilestone, BookmarkScoreMilestone}
	if !slices.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if got := bd.Check(GenerationStats{Generation: 4, MaxScore: 130, NewChampion: true}); len(got) != 0 {
		t.Errorf("milestones repeated: %v", Types(got))
	}
}

func TestBookmarkDetector_FitnessJump(t *testing.T) {
	bd := NewBookmarkDetector(10)
	for i := 1; i <= 5; i++ {
		bd.Check(GenerationStats{Generation: i, BestFitness: 100, NewChampion: true})
	}

	bookmarks := bd.Check(GenerationStats{Generation: 6, BestFitness: 450, NewChampion: true})
	if !slices.Contains(Types(bookmarks), BookmarkFitnessJump) {
		t.Error("expected fitness_jump bookmark")
	}

	bookmarks = bd.Check(GenerationStats{Generation: 7, BestFitness: 150, NewChampion: true})
	if slices.Contains(Types(bookmarks), BookmarkFitnessJump) {
		t.Error("unexpected fitness_jump bookmark")
	}
}

func TestBookmarkDetector_Stagnation(t *testing.T) {
	bd := NewBookmarkDetector(4)
	bd.Check(GenerationStats{Generation: 1, NewChampion: true})

	var fired []int
	for g := 2; g <= 12; g++ {
		for _, b := range bd.Check(GenerationStats{Generation: g}) {
			if b.Type == BookmarkStagnation {
				fired = append(fired, b.Generation)
			}
		}
	}
	if !slices.Equal(fired, []int{5}) {
		t.Errorf("stagnation fired at %v, want [5]", fired)
	}

	// A new champion resets the window.
	bd.Check(GenerationStats{Generation: 13, NewChampion: true})
	fired = fired[:0]
	for g := 14; g <= 17; g++ {
		for _, b := range bd.Check(GenerationStats{Generation: g}) {
			if b.Type == BookmarkStagnation {
				fired = append(fired, b.Generation)
			}
		}
	}
	if !slices.Equal(fired, []int{17}) {
		t.Errorf("stagnation after reset fired at %v, want [17]", fired)
	}
}

func TestBookmarkDetector_Nil(t *testing.T) {
	var bd *BookmarkDetector
	if got := bd.Check(GenerationStats{MaxScore: 100}); got != nil {
		t.Errorf("nil detector returned %v", got)
	}
}
