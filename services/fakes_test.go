package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/deltacrown/deltacrown/models"
	"github.com/deltacrown/deltacrown/repositories"
)

// In-memory repository implementations used across the service tests.
// They mirror the behavior the SQL schema enforces: active-registration
// uniqueness, dedupe keys, ordered listings.

type fakeTournamentRepo struct {
	mu          sync.Mutex
	nextID      int
	tournaments map[int]*models.Tournament
	settings    map[int]*models.TournamentSettings
}

func newFakeTournamentRepo() *fakeTournamentRepo {
	return &fakeTournamentRepo{
		nextID:      1,
		tournaments: make(map[int]*models.Tournament),
		settings:    make(map[int]*models.TournamentSettings),
	}
}

func (f *fakeTournamentRepo) Create(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.tournaments {
		if existing.Slug == t.Slug {
			return repositories.ErrTournamentSlugConflict
		}
	}
	t.ID = f.nextID
	f.nextID++
	t.CreatedAt = time.Now()
	copied := *t
	f.tournaments[t.ID] = &copied
	return nil
}

func (f *fakeTournamentRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	copied := *t
	return &copied, nil
}

func (f *fakeTournamentRepo) GetBySlug(ctx context.Context, slug string) (*models.Tournament, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tournaments {
		if t.Slug == slug {
			copied := *t
			return &copied, nil
		}
	}
	return nil, repositories.ErrTournamentNotFound
}

func (f *fakeTournamentRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	return f.GetByID(ctx, exec, id)
}

func (f *fakeTournamentRepo) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]models.Tournament, 0)
	for _, t := range f.tournaments {
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if filter.Game != nil && t.Game != *filter.Game {
			continue
		}
		if filter.OrganizerID != nil && t.OrganizerID != *filter.OrganizerID {
			continue
		}
		result = append(result, *t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return nil, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (f *fakeTournamentRepo) Update(ctx context.Context, t *models.Tournament) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tournaments[t.ID]; !ok {
		return repositories.ErrTournamentNotFound
	}
	copied := *t
	f.tournaments[t.ID] = &copied
	return nil
}

func (f *fakeTournamentRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.TournamentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = status
	return nil
}

func (f *fakeTournamentRepo) SetWinner(ctx context.Context, exec repositories.SQLExecutor, id int, winnerRegistrationID *int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.WinnerID = winnerRegistrationID
	return nil
}

func (f *fakeTournamentRepo) ListDueForStart(ctx context.Context, now time.Time) ([]*models.Tournament, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	due := make([]*models.Tournament, 0)
	for _, t := range f.tournaments {
		if t.Status == models.StatusPublished && !t.StartAt.After(now) {
			copied := *t
			due = append(due, &copied)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ID < due[j].ID })
	return due, nil
}

func (f *fakeTournamentRepo) ListByStatus(ctx context.Context, status models.TournamentStatus) ([]*models.Tournament, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]*models.Tournament, 0)
	for _, t := range f.tournaments {
		if t.Status == status {
			copied := *t
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (f *fakeTournamentRepo) CreateSettings(ctx context.Context, exec repositories.SQLExecutor, s *models.TournamentSettings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *s
	f.settings[s.TournamentID] = &copied
	return nil
}

func (f *fakeTournamentRepo) GetSettings(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (*models.TournamentSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.settings[tournamentID]
	if !ok {
		return nil, repositories.ErrSettingsNotFound
	}
	copied := *s
	return &copied, nil
}

func (f *fakeTournamentRepo) UpdateSettings(ctx context.Context, s *models.TournamentSettings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.settings[s.TournamentID]
	if !ok || existing.Locked {
		return repositories.ErrSettingsNotFound
	}
	locked := existing.Locked
	copied := *s
	copied.Locked = locked
	f.settings[s.TournamentID] = &copied
	return nil
}

func (f *fakeTournamentRepo) LockSettings(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.settings[tournamentID]
	if !ok {
		return repositories.ErrSettingsNotFound
	}
	s.Locked = true
	return nil
}

type fakeRegistrationRepo struct {
	mu            sync.Mutex
	nextID        int
	registrations map[int]*models.Registration
}

func newFakeRegistrationRepo() *fakeRegistrationRepo {
	return &fakeRegistrationRepo{
		nextID:        1,
		registrations: make(map[int]*models.Registration),
	}
}

func (f *fakeRegistrationRepo) Create(ctx context.Context, exec repositories.SQLExecutor, reg *models.Registration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if (reg.UserID == nil) == (reg.TeamID == nil) {
		return repositories.ErrRegistrationEntrantViolation
	}
	for _, existing := range f.registrations {
		if existing.TournamentID != reg.TournamentID || existing.Status == models.RegistrationWithdrawn {
			continue
		}
		if reg.UserID != nil && existing.UserID != nil && *existing.UserID == *reg.UserID {
			return repositories.ErrRegistrationConflict
		}
		if reg.TeamID != nil && existing.TeamID != nil && *existing.TeamID == *reg.TeamID {
			return repositories.ErrRegistrationConflict
		}
	}
	reg.ID = f.nextID
	f.nextID++
	reg.CreatedAt = time.Now()
	copied := *reg
	f.registrations[reg.ID] = &copied
	return nil
}

func (f *fakeRegistrationRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	reg, ok := f.registrations[id]
	if !ok {
		return nil, repositories.ErrRegistrationNotFound
	}
	copied := *reg
	return &copied, nil
}

func (f *fakeRegistrationRepo) FindActiveByUser(ctx context.Context, tournamentID, userID int) (*models.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, reg := range f.registrations {
		if reg.TournamentID == tournamentID && reg.Status != models.RegistrationWithdrawn &&
			reg.UserID != nil && *reg.UserID == userID {
			copied := *reg
			return &copied, nil
		}
	}
	return nil, repositories.ErrRegistrationNotFound
}

func (f *fakeRegistrationRepo) FindActiveByTeam(ctx context.Context, tournamentID, teamID int) (*models.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, reg := range f.registrations {
		if reg.TournamentID == tournamentID && reg.Status != models.RegistrationWithdrawn &&
			reg.TeamID != nil && *reg.TeamID == teamID {
			copied := *reg
			return &copied, nil
		}
	}
	return nil, repositories.ErrRegistrationNotFound
}

func (f *fakeRegistrationRepo) ListByTournament(ctx context.Context, tournamentID int, statusFilter *models.RegistrationStatus) ([]*models.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]*models.Registration, 0)
	for _, reg := range f.registrations {
		if reg.TournamentID != tournamentID {
			continue
		}
		if statusFilter != nil && reg.Status != *statusFilter {
			continue
		}
		copied := *reg
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		switch {
		case a.Seed != nil && b.Seed != nil && *a.Seed != *b.Seed:
			return *a.Seed < *b.Seed
		case a.Seed != nil && b.Seed == nil:
			return true
		case a.Seed == nil && b.Seed != nil:
			return false
		}
		return a.ID < b.ID
	})
	return result, nil
}

func (f *fakeRegistrationRepo) CountByStatus(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, status models.RegistrationStatus) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, reg := range f.registrations {
		if reg.TournamentID == tournamentID && reg.Status == status {
			count++
		}
	}
	return count, nil
}

func (f *fakeRegistrationRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.RegistrationStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	reg, ok := f.registrations[id]
	if !ok {
		return repositories.ErrRegistrationNotFound
	}
	reg.Status = status
	return nil
}

func (f *fakeRegistrationRepo) UpdatePaymentStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.PaymentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	reg, ok := f.registrations[id]
	if !ok {
		return repositories.ErrRegistrationNotFound
	}
	reg.PaymentStatus = status
	return nil
}

func (f *fakeRegistrationRepo) OldestWaitlisted(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (*models.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var oldest *models.Registration
	for _, reg := range f.registrations {
		if reg.TournamentID != tournamentID || reg.Status != models.RegistrationWaitlisted ||
			reg.PaymentStatus != models.PaymentVerified {
			continue
		}
		if oldest == nil || reg.ID < oldest.ID {
			oldest = reg
		}
	}
	if oldest == nil {
		return nil, repositories.ErrRegistrationNotFound
	}
	copied := *oldest
	return &copied, nil
}

type fakeMatchRepo struct {
	mu      sync.Mutex
	nextID  int
	matches map[int]*models.Match
	regRepo *fakeRegistrationRepo
}

func newFakeMatchRepo(regRepo *fakeRegistrationRepo) *fakeMatchRepo {
	return &fakeMatchRepo{
		nextID:  1,
		matches: make(map[int]*models.Match),
		regRepo: regRepo,
	}
}

func (f *fakeMatchRepo) Create(ctx context.Context, exec repositories.SQLExecutor, m *models.Match) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.matches {
		if existing.TournamentID == m.TournamentID && existing.SlotUID == m.SlotUID {
			return repositories.ErrMatchSlotUIDConflict
		}
	}
	m.ID = f.nextID
	f.nextID++
	m.CreatedAt = time.Now()
	copied := *m
	f.matches[m.ID] = &copied
	return nil
}

func (f *fakeMatchRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	copied := *m
	return &copied, nil
}

func (f *fakeMatchRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	return f.GetByID(ctx, exec, id)
}

func (f *fakeMatchRepo) ListByTournament(ctx context.Context, tournamentID int, roundFilter *int, stateFilter *models.MatchState) ([]*models.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]*models.Match, 0)
	for _, m := range f.matches {
		if m.TournamentID != tournamentID {
			continue
		}
		if roundFilter != nil && m.RoundNo != *roundFilter {
			continue
		}
		if stateFilter != nil && m.State != *stateFilter {
			continue
		}
		copied := *m
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].RoundNo != result[j].RoundNo {
			return result[i].RoundNo < result[j].RoundNo
		}
		return result[i].Position < result[j].Position
	})
	return result, nil
}

func (f *fakeMatchRepo) ListUnscheduled(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]*models.Match, error) {
	all, err := f.ListByTournament(ctx, tournamentID, nil, nil)
	if err != nil {
		return nil, err
	}
	result := make([]*models.Match, 0)
	for _, m := range all {
		if m.StartAt == nil && !m.IsBye {
			result = append(result, m)
		}
	}
	return result, nil
}

func (f *fakeMatchRepo) ListResolvedByTeam(ctx context.Context, teamID int) ([]*models.Match, error) {
	f.mu.Lock()
	matches := make([]*models.Match, 0)
	for _, m := range f.matches {
		if m.IsBye || !m.Resolved() {
			continue
		}
		copied := *m
		matches = append(matches, &copied)
	}
	f.mu.Unlock()

	result := make([]*models.Match, 0)
	for _, m := range matches {
		for _, regID := range []*int{m.EntrantAID, m.EntrantBID} {
			if regID == nil {
				continue
			}
			reg, err := f.regRepo.GetByID(ctx, nil, *regID)
			if err != nil {
				continue
			}
			if reg.TeamID != nil && *reg.TeamID == teamID {
				result = append(result, m)
				break
			}
		}
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		switch {
		case a.StartAt != nil && b.StartAt != nil && !a.StartAt.Equal(*b.StartAt):
			return a.StartAt.Before(*b.StartAt)
		case a.StartAt != nil && b.StartAt == nil:
			return true
		case a.StartAt == nil && b.StartAt != nil:
			return false
		}
		return a.ID < b.ID
	})
	return result, nil
}

func (f *fakeMatchRepo) HasProgressed(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.matches {
		if m.TournamentID == tournamentID && !m.IsBye && m.State != models.MatchScheduled {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeMatchRepo) CountByStates(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, states ...models.MatchState) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, m := range f.matches {
		if m.TournamentID != tournamentID {
			continue
		}
		for _, state := range states {
			if m.State == state {
				count++
				break
			}
		}
	}
	return count, nil
}

func (f *fakeMatchRepo) DeleteByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, m := range f.matches {
		if m.TournamentID == tournamentID {
			delete(f.matches, id)
		}
	}
	return nil
}

func (f *fakeMatchRepo) UpdateLinks(ctx context.Context, exec repositories.SQLExecutor, id int, nextMatchID, nextSlot *int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.NextMatchID, m.NextSlot = nextMatchID, nextSlot
	return nil
}

func (f *fakeMatchRepo) SetEntrant(ctx context.Context, exec repositories.SQLExecutor, id int, slot int, registrationID *int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	if slot == 2 {
		m.EntrantBID = registrationID
	} else {
		m.EntrantAID = registrationID
	}
	return nil
}

func (f *fakeMatchRepo) UpdateState(ctx context.Context, exec repositories.SQLExecutor, id int, state models.MatchState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.State = state
	return nil
}

func (f *fakeMatchRepo) SaveReport(ctx context.Context, exec repositories.SQLExecutor, id int, side string, report models.ScoreReport, state models.MatchState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	saved := report
	if side == "a" {
		m.ReportA = &saved
	} else {
		m.ReportB = &saved
	}
	m.State = state
	return nil
}

func (f *fakeMatchRepo) SetOutcome(ctx context.Context, exec repositories.SQLExecutor, id int, state models.MatchState, scoreA, scoreB, winnerID *int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.State = state
	m.ScoreA, m.ScoreB, m.WinnerID = scoreA, scoreB, winnerID
	return nil
}

func (f *fakeMatchRepo) UpdateStartAt(ctx context.Context, exec repositories.SQLExecutor, id int, startAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	at := startAt
	m.StartAt = &at
	return nil
}

type fakeDisputeRepo struct {
	mu       sync.Mutex
	nextID   int
	disputes map[int]*models.MatchDispute
	evidence map[int][]models.DisputeEvidence
}

func newFakeDisputeRepo() *fakeDisputeRepo {
	return &fakeDisputeRepo{
		nextID:   1,
		disputes: make(map[int]*models.MatchDispute),
		evidence: make(map[int][]models.DisputeEvidence),
	}
}

func (f *fakeDisputeRepo) Create(ctx context.Context, exec repositories.SQLExecutor, d *models.MatchDispute) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d.ID = f.nextID
	f.nextID++
	d.CreatedAt = time.Now()
	copied := *d
	f.disputes[d.ID] = &copied
	return nil
}

func (f *fakeDisputeRepo) GetByID(ctx context.Context, id int) (*models.MatchDispute, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.disputes[id]
	if !ok {
		return nil, repositories.ErrDisputeNotFound
	}
	copied := *d
	return &copied, nil
}

func (f *fakeDisputeRepo) FindOpenByMatch(ctx context.Context, exec repositories.SQLExecutor, matchID int) (*models.MatchDispute, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.disputes {
		if d.MatchID == matchID && d.Status == models.DisputeOpen {
			copied := *d
			return &copied, nil
		}
	}
	return nil, repositories.ErrDisputeNotFound
}

func (f *fakeDisputeRepo) ListByTournament(ctx context.Context, tournamentID int, statusFilter *models.DisputeStatus) ([]*models.MatchDispute, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]*models.MatchDispute, 0)
	for _, d := range f.disputes {
		if d.TournamentID != tournamentID {
			continue
		}
		if statusFilter != nil && d.Status != *statusFilter {
			continue
		}
		copied := *d
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (f *fakeDisputeRepo) Resolve(ctx context.Context, exec repositories.SQLExecutor, id int, resolution string, resolvedByID int, resolvedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.disputes[id]
	if !ok || d.Status != models.DisputeOpen {
		return repositories.ErrDisputeNotFound
	}
	d.Status = models.DisputeResolved
	d.Resolution = &resolution
	d.ResolvedByID = &resolvedByID
	at := resolvedAt
	d.ResolvedAt = &at
	return nil
}

func (f *fakeDisputeRepo) AddEvidence(ctx context.Context, e *models.DisputeEvidence) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e.ID = len(f.evidence[e.DisputeID]) + 1
	e.CreatedAt = time.Now()
	f.evidence[e.DisputeID] = append(f.evidence[e.DisputeID], *e)
	return nil
}

func (f *fakeDisputeRepo) ListEvidence(ctx context.Context, disputeID int) ([]models.DisputeEvidence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.DisputeEvidence(nil), f.evidence[disputeID]...), nil
}

type fakeNotificationRepo struct {
	mu            sync.Mutex
	nextID        int
	notifications []*models.Notification
	dedupeKeys    map[string]bool
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{
		nextID:     1,
		dedupeKeys: make(map[string]bool),
	}
}

func (f *fakeNotificationRepo) Create(ctx context.Context, exec repositories.SQLExecutor, n *models.Notification) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n.DedupeKey != nil {
		if f.dedupeKeys[*n.DedupeKey] {
			return false, nil
		}
		f.dedupeKeys[*n.DedupeKey] = true
	}
	n.ID = f.nextID
	f.nextID++
	n.CreatedAt = time.Now()
	copied := *n
	f.notifications = append(f.notifications, &copied)
	return true, nil
}

func (f *fakeNotificationRepo) ListByRecipient(ctx context.Context, recipientID int, unreadOnly bool, limit int) ([]*models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]*models.Notification, 0)
	for _, n := range f.notifications {
		if n.RecipientID != recipientID {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		copied := *n
		result = append(result, &copied)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

func (f *fakeNotificationRepo) MarkRead(ctx context.Context, id, recipientID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.notifications {
		if n.ID == id && n.RecipientID == recipientID {
			n.IsRead = true
			return nil
		}
	}
	return repositories.ErrNotificationNotFound
}

func (f *fakeNotificationRepo) byType(nType models.NotificationType) []*models.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]*models.Notification, 0)
	for _, n := range f.notifications {
		if n.Type == nType {
			copied := *n
			result = append(result, &copied)
		}
	}
	return result
}

type fakeTeamRepo struct {
	mu    sync.Mutex
	teams map[int]*models.Team
}

func newFakeTeamRepo() *fakeTeamRepo {
	return &fakeTeamRepo{teams: make(map[int]*models.Team)}
}

func (f *fakeTeamRepo) put(team *models.Team) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *team
	f.teams[team.ID] = &copied
}

func (f *fakeTeamRepo) Create(ctx context.Context, team *models.Team) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	team.ID = len(f.teams) + 1
	copied := *team
	f.teams[team.ID] = &copied
	return nil
}

func (f *fakeTeamRepo) GetByID(ctx context.Context, id int) (*models.Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	team, ok := f.teams[id]
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	copied := *team
	return &copied, nil
}

func (f *fakeTeamRepo) ListByGame(ctx context.Context, game string) ([]*models.Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]*models.Team, 0)
	for _, team := range f.teams {
		if team.Game == game {
			copied := *team
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[int]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int]*models.User)}
}

func (f *fakeUserRepo) put(user *models.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *user
	f.users[user.ID] = &copied
}

func (f *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user.ID = len(f.users) + 1
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (f *fakeUserRepo) ListByTeam(ctx context.Context, teamID int) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]models.User, 0)
	for _, user := range f.users {
		if user.TeamID != nil && *user.TeamID == teamID {
			result = append(result, *user)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

type fakeStatsRepo struct {
	mu        sync.Mutex
	nextID    int
	snapshots []*models.TeamStats
}

func newFakeStatsRepo() *fakeStatsRepo {
	return &fakeStatsRepo{nextID: 1}
}

func (f *fakeStatsRepo) InsertSnapshot(ctx context.Context, s *models.TeamStats) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s.ID = f.nextID
	f.nextID++
	copied := *s
	f.snapshots = append(f.snapshots, &copied)
	return nil
}

func (f *fakeStatsRepo) LatestByTeam(ctx context.Context, teamID int) (*models.TeamStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.snapshots) - 1; i >= 0; i-- {
		if f.snapshots[i].TeamID == teamID {
			copied := *f.snapshots[i]
			return &copied, nil
		}
	}
	return nil, repositories.ErrStatsNotFound
}

func (f *fakeStatsRepo) HistoryByTeam(ctx context.Context, teamID int, limit int) ([]*models.TeamStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]*models.TeamStats, 0)
	for i := len(f.snapshots) - 1; i >= 0; i-- {
		if f.snapshots[i].TeamID == teamID {
			copied := *f.snapshots[i]
			result = append(result, &copied)
			if limit > 0 && len(result) == limit {
				break
			}
		}
	}
	return result, nil
}
