package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkFirstPipe      BookmarkType = "first_pipe"
	BookmarkScoreMilestone BookmarkType = "score_milestone"
	BookmarkFitnessJump    BookmarkType = "fitness_jump"
	BookmarkStagnation     BookmarkType = "stagnation"
)

// scoreMilestones are the max-score thresholds reported once each.
var scoreMilestones = []int{10, 50, 100, 500, 1000}

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType
	Generation  int
	Description string
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"generation", b.Generation,
		"description", b.Description,
	)
}

// BookmarkDetector detects notable generations in a run.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []GenerationStats
	historySize int
	historyIdx  int
	historyFull bool

	// State tracking
	passedPipe       bool
	milestone        int // index of the next score milestone
	sinceImprovement int // generations since the last new champion
}

// NewBookmarkDetector creates a detector with the given history size.
// The history size is also the stagnation window.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 3 {
		historySize = 3
	}
	return &BookmarkDetector{
		history:     make([]GenerationStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest generation and returns any triggered bookmarks.
// A nil detector never triggers.
func (bd *BookmarkDetector) Check(stats GenerationStats) []Bookmark {
	if bd == nil {
		return nil
	}
	var bookmarks []Bookmark

	if b := bd.checkFirstPipe(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	bookmarks = append(bookmarks, bd.checkMilestones(stats)...)
	if b := bd.checkFitnessJump(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkStagnation(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	bd.addToHistory(stats)
	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats GenerationStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []GenerationStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

func (bd *BookmarkDetector) checkFirstPipe(stats GenerationStats) *Bookmark {
	if bd.passedPipe || stats.MaxScore < 1 {
		return nil
	}
	bd.passedPipe = true
	return &Bookmark{
		Type:        BookmarkFirstPipe,
		Generation:  stats.Generation,
		Description: fmt.Sprintf("Slot %d passed the first pipe", stats.BestSlot),
	}
}

func (bd *BookmarkDetector) checkMilestones(stats GenerationStats) []Bookmark {
	var out []Bookmark
	for bd.milestone < len(scoreMilestones) && stats.MaxScore >= scoreMilestones[bd.milestone] {
		out = append(out, Bookmark{
			Type:        BookmarkScoreMilestone,
			Generation:  stats.Generation,
			Description: fmt.Sprintf("Max score reached %d (score %d)", scoreMilestones[bd.milestone], stats.MaxScore),
		})
		bd.milestone++
	}
	return out
}

// checkFitnessJump fires when the generation best is more than twice the
// rolling average of recent generation bests.
func (bd *BookmarkDetector) checkFitnessJump(stats GenerationStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var total float64
	for _, h := range history {
		total += h.BestFitness
	}
	avg := total / float64(len(history))
	if avg <= 0 {
		return nil
	}

	if stats.BestFitness > avg*2.0 {
		return &Bookmark{
			Type:        BookmarkFitnessJump,
			Generation:  stats.Generation,
			Description: fmt.Sprintf("Best fitness %.0f is %.1fx recent average (%.0f)", stats.BestFitness, stats.BestFitness/avg, avg),
		}
	}
	return nil
}

// checkStagnation fires once when no champion has been set for a full
// history window.
func (bd *BookmarkDetector) checkStagnation(stats GenerationStats) *Bookmark {
	if stats.NewChampion {
		bd.sinceImprovement = 0
		return nil
	}
	bd.sinceImprovement++
	if bd.sinceImprovement != bd.historySize {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkStagnation,
		Generation:  stats.Generation,
		Description: fmt.Sprintf("No new champion for %d generations (champion %.0f from generation %d)", bd.historySize, stats.ChampionFitness, stats.ChampionGeneration),
	}
}

// Types returns the bookmark types in bookmarks, in order.
func Types(bookmarks []Bookmark) []BookmarkType {
	types := make([]BookmarkType, 0, len(bookmarks))
	for _, b := range bookmarks {
		types = append(types, b.Type)
	}
	return types
}
