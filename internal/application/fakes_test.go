package application_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ikidnapmyself/pp-api/internal/application"
	"github.com/ikidnapmyself/pp-api/internal/domain"
	"github.com/ikidnapmyself/pp-api/internal/ports"
)

// memStore is the shared in-memory backing for all fake repositories so that
// cross-entity lookups (unread threads, eager loads) see one consistent state.
type memStore struct {
	mu           sync.Mutex
	users        map[uuid.UUID]domain.User
	threads      map[uuid.UUID]domain.Thread
	participants map[uuid.UUID]domain.Participant
	messages     map[uuid.UUID]domain.Message
	clients      map[uuid.UUID]domain.Client
}

func newMemStore() *memStore {
	return &memStore{
		users:        map[uuid.UUID]domain.User{},
		threads:      map[uuid.UUID]domain.Thread{},
		participants: map[uuid.UUID]domain.Participant{},
		messages:     map[uuid.UUID]domain.Message{},
		clients:      map[uuid.UUID]domain.Client{},
	}
}

type fakeUsers struct{ store *memStore }

func (f *fakeUsers) Create(_ context.Context, params ports.UserCreateParams) (domain.User, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	for _, existing := range f.store.users {
		if existing.ProviderName == params.ProviderName && existing.ProviderID == params.ProviderID {
			return domain.User{}, domain.ErrConflict
		}
	}
	user := domain.User{
		UserID:       uuid.New(),
		Name:         params.Name,
		Email:        params.Email,
		ProviderName: params.ProviderName,
		ProviderID:   params.ProviderID,
		AccessToken:  params.AccessToken,
		Profile:      params.Profile,
		NotifyVia:    params.NotifyVia,
		CreatedAt:    params.CreatedAt,
		UpdatedAt:    params.CreatedAt,
	}
	if params.RefreshToken != "" {
		token := params.RefreshToken
		user.RefreshToken = &token
	}
	f.store.users[user.UserID] = user
	return user, nil
}

func (f *fakeUsers) Update(_ context.Context, params ports.UserUpdateParams) (domain.User, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	user, ok := f.store.users[params.UserID]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	user.Name = params.Name
	user.Email = params.Email
	user.AccessToken = params.AccessToken
	user.Profile = params.Profile
	user.UpdatedAt = params.UpdatedAt
	if params.RefreshToken != "" {
		token := params.RefreshToken
		user.RefreshToken = &token
	}
	f.store.users[user.UserID] = user
	return user, nil
}

func (f *fakeUsers) GetByID(_ context.Context, userID uuid.UUID) (domain.User, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	user, ok := f.store.users[userID]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return user, nil
}

func (f *fakeUsers) GetByProviderIdentity(_ context.Context, providerName, providerID string) (domain.User, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	for _, user := range f.store.users {
		if user.ProviderName == providerName && user.ProviderID == providerID {
			return user, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (f *fakeUsers) ListByIDs(_ context.Context, ids []uuid.UUID) ([]domain.User, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	result := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		if user, ok := f.store.users[id]; ok {
			result = append(result, user)
		}
	}
	return result, nil
}

func (f *fakeUsers) ListByIDsPaged(ctx context.Context, ids []uuid.UUID, page, pageSize int) ([]domain.User, int, error) {
	users, err := f.ListByIDs(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	total := len(users)
	start := (page - 1) * pageSize
	if start >= total {
		return nil, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return users[start:end], total, nil
}

type fakeThreads struct{ store *memStore }

func (f *fakeThreads) Create(_ context.Context, subject string, createdAt time.Time) (domain.Thread, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	thread := domain.Thread{
		ThreadID:  uuid.New(),
		Subject:   subject,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	f.store.threads[thread.ThreadID] = thread
	return thread, nil
}

func (f *fakeThreads) GetByID(_ context.Context, threadID uuid.UUID) (domain.Thread, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	thread, ok := f.store.threads[threadID]
	if !ok {
		return domain.Thread{}, domain.ErrNotFound
	}
	return thread, nil
}

func (f *fakeThreads) GetWithRelations(_ context.Context, threadID uuid.UUID) (domain.Thread, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	thread, ok := f.store.threads[threadID]
	if !ok {
		return domain.Thread{}, domain.ErrNotFound
	}
	for _, participant := range f.store.participants {
		if participant.ThreadID != threadID || participant.Archived() {
			continue
		}
		if user, ok := f.store.users[participant.UserID]; ok {
			participant.User = &user
		}
		thread.Participants = append(thread.Participants, participant)
	}
	for _, message := range f.store.messages {
		if message.ThreadID == threadID {
			thread.Messages = append(thread.Messages, message)
		}
	}
	sort.Slice(thread.Messages, func(i, j int) bool {
		return thread.Messages[i].CreatedAt.Before(thread.Messages[j].CreatedAt)
	})
	return thread, nil
}

func (f *fakeThreads) ListLatest(_ context.Context, page, pageSize int) ([]domain.Thread, int, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return pageThreads(allThreads(f.store), page, pageSize)
}

func (f *fakeThreads) ListForUser(_ context.Context, userID uuid.UUID, page, pageSize int) ([]domain.Thread, int, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	threads := make([]domain.Thread, 0)
	for _, thread := range allThreads(f.store) {
		if participant, ok := findParticipant(f.store, thread.ThreadID, userID); ok && !participant.Archived() {
			threads = append(threads, thread)
		}
	}
	return pageThreads(threads, page, pageSize)
}

func (f *fakeThreads) ListUnreadForUser(_ context.Context, userID uuid.UUID) ([]domain.Thread, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	threads := make([]domain.Thread, 0)
	for _, thread := range allThreads(f.store) {
		participant, ok := findParticipant(f.store, thread.ThreadID, userID)
		if !ok || participant.Archived() {
			continue
		}
		for _, message := range f.store.messages {
			if message.ThreadID != thread.ThreadID {
				continue
			}
			if participant.LastRead == nil || message.CreatedAt.After(*participant.LastRead) {
				threads = append(threads, thread)
				break
			}
		}
	}
	return threads, nil
}

func (f *fakeThreads) Touch(_ context.Context, threadID uuid.UUID, at time.Time) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	thread, ok := f.store.threads[threadID]
	if !ok {
		return domain.ErrNotFound
	}
	thread.UpdatedAt = at
	f.store.threads[threadID] = thread
	return nil
}

func allThreads(store *memStore) []domain.Thread {
	threads := make([]domain.Thread, 0, len(store.threads))
	for _, thread := range store.threads {
		threads = append(threads, thread)
	}
	sort.Slice(threads, func(i, j int) bool {
		return threads[i].UpdatedAt.After(threads[j].UpdatedAt)
	})
	return threads
}

func pageThreads(threads []domain.Thread, page, pageSize int) ([]domain.Thread, int, error) {
	total := len(threads)
	start := (page - 1) * pageSize
	if start >= total {
		return nil, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return threads[start:end], total, nil
}

func findParticipant(store *memStore, threadID, userID uuid.UUID) (domain.Participant, bool) {
	for _, participant := range store.participants {
		if participant.ThreadID == threadID && participant.UserID == userID {
			return participant, true
		}
	}
	return domain.Participant{}, false
}

type fakeParticipants struct{ store *memStore }

func (f *fakeParticipants) Upsert(_ context.Context, params ports.ParticipantUpsertParams) (domain.Participant, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	if existing, ok := findParticipant(f.store, params.ThreadID, params.UserID); ok {
		existing.ArchivedAt = nil
		existing.UpdatedAt = params.At
		if params.SetLastRead {
			at := params.At
			existing.LastRead = &at
		}
		f.store.participants[existing.ParticipantID] = existing
		return existing, nil
	}
	participant := domain.Participant{
		ParticipantID: uuid.New(),
		ThreadID:      params.ThreadID,
		UserID:        params.UserID,
		CreatedAt:     params.At,
		UpdatedAt:     params.At,
	}
	if params.SetLastRead {
		at := params.At
		participant.LastRead = &at
	}
	f.store.participants[participant.ParticipantID] = participant
	return participant, nil
}

func (f *fakeParticipants) ListByThread(_ context.Context, threadID uuid.UUID, includeArchived bool) ([]domain.Participant, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	result := make([]domain.Participant, 0)
	for _, participant := range f.store.participants {
		if participant.ThreadID != threadID {
			continue
		}
		if !includeArchived && participant.Archived() {
			continue
		}
		result = append(result, participant)
	}
	return result, nil
}

func (f *fakeParticipants) ActivateAllByThread(_ context.Context, threadID uuid.UUID, at time.Time) ([]domain.Participant, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	result := make([]domain.Participant, 0)
	for id, participant := range f.store.participants {
		if participant.ThreadID != threadID {
			continue
		}
		if participant.Archived() {
			participant.ArchivedAt = nil
			participant.UpdatedAt = at
			f.store.participants[id] = participant
		}
		result = append(result, participant)
	}
	return result, nil
}

func (f *fakeParticipants) MarkRead(_ context.Context, threadID, userID uuid.UUID, at time.Time) (domain.Participant, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	participant, ok := findParticipant(f.store, threadID, userID)
	if !ok {
		return domain.Participant{}, domain.ErrNotFound
	}
	participant.LastRead = &at
	participant.UpdatedAt = at
	f.store.participants[participant.ParticipantID] = participant
	return participant, nil
}

func (f *fakeParticipants) MarkAllReadByUser(_ context.Context, userID uuid.UUID, at time.Time) (bool, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	updated := false
	for id, participant := range f.store.participants {
		if participant.UserID != userID {
			continue
		}
		participant.LastRead = &at
		participant.UpdatedAt = at
		f.store.participants[id] = participant
		updated = true
	}
	return updated, nil
}

func (f *fakeParticipants) ListThreadIDsByUser(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	ids := make([]uuid.UUID, 0)
	for _, participant := range f.store.participants {
		if participant.UserID == userID {
			ids = append(ids, participant.ThreadID)
		}
	}
	return ids, nil
}

func (f *fakeParticipants) ListUserIDsByThreads(_ context.Context, threadIDs []uuid.UUID) ([]uuid.UUID, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	wanted := map[uuid.UUID]bool{}
	for _, id := range threadIDs {
		wanted[id] = true
	}
	seen := map[uuid.UUID]bool{}
	ids := make([]uuid.UUID, 0)
	for _, participant := range f.store.participants {
		if !wanted[participant.ThreadID] || seen[participant.UserID] {
			continue
		}
		seen[participant.UserID] = true
		ids = append(ids, participant.UserID)
	}
	return ids, nil
}

type fakeMessages struct{ store *memStore }

func (f *fakeMessages) Create(_ context.Context, params ports.MessageCreateParams) (domain.Message, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	message := domain.Message{
		MessageID: uuid.New(),
		ThreadID:  params.ThreadID,
		UserID:    params.UserID,
		Body:      params.Body,
		CreatedAt: params.CreatedAt,
		UpdatedAt: params.CreatedAt,
	}
	f.store.messages[message.MessageID] = message
	return message, nil
}

func (f *fakeMessages) ListByThread(_ context.Context, threadID uuid.UUID) ([]domain.Message, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	result := make([]domain.Message, 0)
	for _, message := range f.store.messages {
		if message.ThreadID == threadID {
			result = append(result, message)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

type fakeClients struct{ store *memStore }

func (f *fakeClients) Create(_ context.Context, client domain.Client) (domain.Client, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	for _, existing := range f.store.clients {
		if existing.Name == client.Name {
			return domain.Client{}, domain.ErrConflict
		}
	}
	client.ClientID = uuid.New()
	f.store.clients[client.ClientID] = client
	return client, nil
}

func (f *fakeClients) GetByName(_ context.Context, name string) (domain.Client, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	for _, client := range f.store.clients {
		if client.Name == name {
			return client, nil
		}
	}
	return domain.Client{}, domain.ErrNotFound
}

type dispatchedEvent struct {
	recipients []domain.User
	event      domain.Event
}

type fakeDispatcher struct {
	mu     sync.Mutex
	events []dispatchedEvent
}

func (f *fakeDispatcher) Notify(_ context.Context, recipients []domain.User, event domain.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, dispatchedEvent{recipients: recipients, event: event})
	return nil
}

func (f *fakeDispatcher) last() (dispatchedEvent, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.events) == 0 {
		return dispatchedEvent{}, false
	}
	return f.events[len(f.events)-1], true
}

func (f *fakeDispatcher) byType(eventType string) []dispatchedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	matched := make([]dispatchedEvent, 0)
	for _, d := range f.events {
		if d.event.Type == eventType {
			matched = append(matched, d)
		}
	}
	return matched
}

type fakeStateStore struct {
	mu     sync.Mutex
	states map[string]ports.LoginState
}

func newFakeStateStore() *fakeStateStore {
	return &fakeStateStore{states: map[string]ports.LoginState{}}
}

func (f *fakeStateStore) Put(_ context.Context, state string, value ports.LoginState, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[state] = value
	return nil
}

func (f *fakeStateStore) Get(_ context.Context, state string) (*ports.LoginState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.states[state]
	if !ok {
		return nil, nil
	}
	return &value, nil
}

func (f *fakeStateStore) Delete(_ context.Context, state string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.states, state)
	return nil
}

type fakeLimiter struct {
	mu     sync.Mutex
	counts map[string]int
}

func newFakeLimiter() *fakeLimiter {
	return &fakeLimiter{counts: map[string]int{}}
}

func (f *fakeLimiter) Incr(_ context.Context, key string, _ time.Duration) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[key]++
	return f.counts[key], nil
}

type fakeProvider struct {
	profiles map[string]ports.ExternalProfile
}

func (f *fakeProvider) AuthorizeURL(_ context.Context, provider, state string) (string, error) {
	return fmt.Sprintf("https://%s.example.com/oauth/authorize?state=%s", provider, state), nil
}

func (f *fakeProvider) Exchange(_ context.Context, _, code string) (ports.ExternalProfile, error) {
	profile, ok := f.profiles[code]
	if !ok {
		return ports.ExternalProfile{}, errors.New("invalid code")
	}
	return profile, nil
}

// fakeSigner serializes claims as JSON; good enough to round-trip token use
// and user id without real crypto.
type fakeSigner struct{}

func (fakeSigner) Sign(claims ports.AuthClaims) (string, error) {
	raw, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (fakeSigner) ParseAndValidate(token string) (ports.AuthClaims, error) {
	var claims ports.AuthClaims
	if err := json.Unmarshal([]byte(token), &claims); err != nil {
		return ports.AuthClaims{}, errors.New("malformed token")
	}
	return claims, nil
}

type fakeHasher struct{}

func (fakeHasher) Hash(secret string) (string, error) { return "hashed:" + secret, nil }

func (fakeHasher) Compare(hash, secret string) error {
	if hash != "hashed:"+secret {
		return errors.New("mismatch")
	}
	return nil
}

type fixture struct {
	store        *memStore
	users        *fakeUsers
	participants *fakeParticipants
	dispatcher   *fakeDispatcher
	states       *fakeStateStore
	provider     *fakeProvider
	messaging    *application.MessagingService
	login        *application.LoginService
}

func newFixture() *fixture {
	store := newMemStore()
	users := &fakeUsers{store: store}
	participants := &fakeParticipants{store: store}
	dispatcher := &fakeDispatcher{}
	states := newFakeStateStore()
	provider := &fakeProvider{profiles: map[string]ports.ExternalProfile{}}

	messaging := application.NewMessagingService(application.Dependencies{
		Config:       application.Config{PageSize: 15},
		Users:        users,
		Threads:      &fakeThreads{store: store},
		Participants: participants,
		Messages:     &fakeMessages{store: store},
		Dispatcher:   dispatcher,
	})
	login := application.NewLoginService(application.LoginDependencies{
		Config: application.LoginConfig{
			Providers:               []string{"github", "gitlab"},
			StateTTL:                10 * time.Minute,
			AccessTokenTTL:          time.Hour,
			RefreshTokenTTL:         24 * time.Hour,
			RedirectRateThreshold:   5,
			RedirectRateLimitWindow: time.Minute,
		},
		Users:    users,
		Clients:  &fakeClients{store: store},
		State:    states,
		Limiter:  newFakeLimiter(),
		Provider: provider,
		Signer:   fakeSigner{},
		Hasher:   fakeHasher{},
	})

	return &fixture{
		store:        store,
		users:        users,
		participants: participants,
		dispatcher:   dispatcher,
		states:       states,
		provider:     provider,
		messaging:    messaging,
		login:        login,
	}
}

func (f *fixture) newUser(name string) domain.User {
	user, err := f.users.Create(context.Background(), ports.UserCreateParams{
		Name:         name,
		Email:        name + "@example.com",
		ProviderName: "github",
		ProviderID:   name + "-id",
		NotifyVia:    []string{"mail"},
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		panic(err)
	}
	return user
}

// archiveParticipant flips the membership row to archived directly in the store.
func (f *fixture) archiveParticipant(threadID, userID uuid.UUID) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	for id, participant := range f.store.participants {
		if participant.ThreadID == threadID && participant.UserID == userID {
			at := time.Now().UTC()
			participant.ArchivedAt = &at
			f.store.participants[id] = participant
			return
		}
	}
}
