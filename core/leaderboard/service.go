package leaderboard

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/hatua/core"
	"github.com/trezcool/hatua/core/catalog"
	"github.com/trezcool/hatua/core/progress"
	"github.com/trezcool/hatua/core/user"
)

var (
	// errors
	ErrEntryNotFound  = core.NewNotFoundError("leaderboard entry not found")
	ErrUnknownScope   = core.NewInvalidArgumentError("unknown leaderboard scope")
	ErrScopeIDMissing = core.NewInvalidArgumentError("course scope requires a course id")
)

type (
	Repository interface {
		// Atomic runs fn within a single transaction; the transaction is
		// handed to fn so the other methods can run on it via exec.
		Atomic(ctx context.Context, fn func(tx core.DBExecutor) error) error

		// ReplaceEntries overwrites the scope's rows with entries.
		ReplaceEntries(ctx context.Context, scope Scope, scopeID string, entries []Entry, exec ...core.DBExecutor) error
		// QueryEntries returns the scope's rows ordered by rank ascending;
		// limit <= 0 returns all.
		QueryEntries(ctx context.Context, scope Scope, scopeID string, limit int, exec ...core.DBExecutor) ([]Entry, error)
		GetEntry(ctx context.Context, scope Scope, scopeID, subjectID string, exec ...core.DBExecutor) (Entry, error)
	}

	Service struct {
		repo     Repository
		progRepo progress.Repository
		usrSvc   *user.Service
		catSvc   *catalog.Service
		logger   core.Logger
		conf     *core.Config
	}
)

func NewService(
	repo Repository,
	progRepo progress.Repository,
	usrSvc *user.Service,
	catSvc *catalog.Service,
	logger core.Logger,
	conf *core.Config,
) *Service {
	return &Service{
		repo:     repo,
		progRepo: progRepo,
		usrSvc:   usrSvc,
		catSvc:   catSvc,
		logger:   logger,
		conf:     conf,
	}
}

// Recalculate recomputes the ranking for a scope and overwrites its stored
// entries. courseID is only used for ScopeCourse. Progress rows are read and
// entries written in a single transaction so the ranking never mixes pre- and
// post-update scores. Recalculating twice with no intervening writes yields
// identical rank assignments.
func (svc *Service) Recalculate(ctx context.Context, scope Scope, courseID string) ([]Entry, error) {
	if !scope.Valid() {
		return nil, ErrUnknownScope
	}
	scopeID := ""
	if scope == ScopeCourse {
		if courseID == "" {
			return nil, ErrScopeIDMissing
		}
		if _, err := svc.catSvc.GetCourse(ctx, courseID); err != nil {
			return nil, err
		}
		scopeID = courseID
	}

	now := time.Now().UTC()
	var entries []Entry
	err := svc.repo.Atomic(ctx, func(tx core.DBExecutor) error {
		var err error
		switch scope {
		case ScopeTeam:
			entries, err = svc.teamEntries(ctx, tx, now)
		default:
			entries, err = svc.userEntries(ctx, tx, scope, scopeID, now)
		}
		if err != nil {
			return err
		}
		rank(entries)
		return svc.repo.ReplaceEntries(ctx, scope, scopeID, entries, tx)
	})
	if err != nil {
		return nil, err
	}
	svc.logger.Info("leaderboard recalculated", "scope", scope, "scope_id", scopeID, "entries", len(entries))
	return entries, nil
}

// Top returns the scope's stored ranking, best first; limit <= 0 returns all.
// This is a cached read of the last Recalculate run.
func (svc *Service) Top(ctx context.Context, scope Scope, scopeID string, limit int) ([]Entry, error) {
	if !scope.Valid() {
		return nil, ErrUnknownScope
	}
	return svc.repo.QueryEntries(ctx, scope, scopeID, limit)
}

// SubjectRank returns the stored entry for one subject within a scope.
func (svc *Service) SubjectRank(ctx context.Context, scope Scope, scopeID, subjectID string) (Entry, error) {
	if !scope.Valid() {
		return Entry{}, ErrUnknownScope
	}
	return svc.repo.GetEntry(ctx, scope, scopeID, subjectID)
}

// userEntries builds unranked entries for global or course scope. Global
// scope covers every active trainee, including those with no activity yet;
// course scope covers the users holding a progress row for the course.
func (svc *Service) userEntries(ctx context.Context, tx core.DBExecutor, scope Scope, courseID string, now time.Time) ([]Entry, error) {
	filter := progress.CourseProgressFilter{CourseID: courseID}
	rows, err := svc.progRepo.QueryCourseProgress(ctx, filter, tx)
	if err != nil {
		return nil, err
	}
	type totals struct{ points, modules, minutes, quizC, quizT int }
	byUser := make(map[string]*totals)
	for _, cp := range rows {
		t, ok := byUser[cp.UserID]
		if !ok {
			t = &totals{}
			byUser[cp.UserID] = t
		}
		t.points += cp.PointsEarned
		t.modules += cp.ModulesCompleted
		t.minutes += cp.TimeSpentMinutes
		t.quizC += cp.QuizCorrect
		t.quizT += cp.QuizTotal
	}

	var candidates []user.User
	if scope == ScopeGlobal {
		if candidates, err = svc.usrSvc.QueryTrainees(ctx); err != nil {
			return nil, err
		}
	} else {
		all, err := svc.usrSvc.Query(ctx, nil)
		if err != nil {
			return nil, err
		}
		for _, usr := range all {
			if _, ok := byUser[usr.ID]; ok {
				candidates = append(candidates, usr)
			}
		}
	}

	entries := make([]Entry, 0, len(candidates))
	for _, usr := range candidates {
		t := byUser[usr.ID]
		if t == nil {
			t = &totals{} // zero-scorers still appear
		}
		accuracy := 0.0
		if t.quizT > 0 {
			accuracy = float64(t.quizC) / float64(t.quizT)
		}
		entries = append(entries, Entry{
			ID:               uuid.New().String(),
			Scope:            scope,
			ScopeID:          courseID,
			SubjectID:        usr.ID,
			SubjectName:      usr.Name,
			Points:           t.points,
			ModulesCompleted: t.modules,
			TimeSpentMinutes: t.minutes,
			QuizCorrect:      t.quizC,
			QuizTotal:        t.quizT,
			Score:            svc.userScore(t.points, t.modules, accuracy),
			CalculatedAt:     now,
		})
	}
	return entries, nil
}

// teamEntries builds unranked entries for every team with at least one
// member. A team's score blends the members' average completion rate with
// the per-member points so it is never driven by a single member's number.
func (svc *Service) teamEntries(ctx context.Context, tx core.DBExecutor, now time.Time) ([]Entry, error) {
	teams, err := svc.catSvc.QueryTeams(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := svc.progRepo.QueryCourseProgress(ctx, progress.CourseProgressFilter{}, tx)
	if err != nil {
		return nil, err
	}
	type totals struct {
		points, modules, minutes, quizC, quizT int
		completionSum                          float64
		courses                                int
	}
	byUser := make(map[string]*totals)
	for _, cp := range rows {
		t, ok := byUser[cp.UserID]
		if !ok {
			t = &totals{}
			byUser[cp.UserID] = t
		}
		t.points += cp.PointsEarned
		t.modules += cp.ModulesCompleted
		t.minutes += cp.TimeSpentMinutes
		t.quizC += cp.QuizCorrect
		t.quizT += cp.QuizTotal
		t.completionSum += float64(cp.CompletionPercent)
		t.courses++
	}

	var entries []Entry
	for _, team := range teams {
		if len(team.MemberIDs) == 0 {
			continue
		}
		var (
			completionSum float64
			entry         = Entry{
				ID:           uuid.New().String(),
				Scope:        ScopeTeam,
				SubjectID:    team.ID,
				SubjectName:  team.Name,
				MemberCount:  len(team.MemberIDs),
				CalculatedAt: now,
			}
		)
		for _, memberID := range team.MemberIDs {
			t := byUser[memberID]
			if t == nil {
				continue
			}
			entry.Points += t.points
			entry.ModulesCompleted += t.modules
			entry.TimeSpentMinutes += t.minutes
			entry.QuizCorrect += t.quizC
			entry.QuizTotal += t.quizT
			if t.courses > 0 {
				completionSum += t.completionSum / float64(t.courses)
			}
		}
		avgCompletion := completionSum / float64(len(team.MemberIDs))
		pointsPerMember := float64(entry.Points) / float64(len(team.MemberIDs))
		w := svc.conf.Leaderboard
		entry.Score = avgCompletion*w.TeamCompletionWeight + pointsPerMember*w.TeamPointsWeight
		entries = append(entries, entry)
	}
	return entries, nil
}

func (svc *Service) userScore(points, modulesCompleted int, accuracy float64) float64 {
	w := svc.conf.Leaderboard
	return float64(points)*w.PointsWeight +
		float64(modulesCompleted)*w.ModulesWeight +
		accuracy*w.AccuracyWeight
}

// rank sorts entries by score descending (subject ID ascending on ties for a
// stable order) and assigns dense ranks starting at 1.
func rank(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].SubjectID < entries[j].SubjectID
	})
	current := 0
	var prevScore float64
	for i := range entries {
		if current == 0 || entries[i].Score != prevScore {
			current++
			prevScore = entries[i].Score
		}
		entries[i].Rank = current
	}
}
