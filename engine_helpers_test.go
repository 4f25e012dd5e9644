package authgate

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeAttempt struct {
	ip        string
	userAgent string
	email     string
	success   bool
	at        time.Time
	expiresAt time.Time
}

// fakeStore is the in-memory CredentialStore used by engine tests. Setting
// failAll makes every call return that error, simulating an outage.
type fakeStore struct {
	mu       sync.Mutex
	users    map[string]UserRecord
	byEmail  map[string]string
	codes    map[string][]RecoveryCodeRecord
	attempts []fakeAttempt
	nextID   int
	failAll  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:   make(map[string]UserRecord),
		byEmail: make(map[string]string),
		codes:   make(map[string][]RecoveryCodeRecord),
	}
}

func (s *fakeStore) CreateUser(_ context.Context, input CreateUserInput) (UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll != nil {
		return UserRecord{}, s.failAll
	}

	key := strings.ToLower(input.Email)
	if _, exists := s.byEmail[key]; exists {
		return UserRecord{}, ErrAccountExists
	}
	s.nextID++
	record := UserRecord{
		ID:           fmt.Sprintf("u%d", s.nextID),
		Email:        input.Email,
		PasswordHash: input.PasswordHash,
		Status:       AccountActive,
		Role:         input.Role,
		Profile:      input.Profile,
		CreatedAt:    time.Now().UTC(),
	}
	s.users[record.ID] = record
	s.byEmail[key] = record.ID
	return record, nil
}

func (s *fakeStore) GetUserByEmail(_ context.Context, email string) (UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll != nil {
		return UserRecord{}, s.failAll
	}
	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return s.users[id], nil
}

func (s *fakeStore) GetUserByID(_ context.Context, id string) (UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll != nil {
		return UserRecord{}, s.failAll
	}
	record, ok := s.users[id]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return record, nil
}

func (s *fakeStore) setStatus(t *testing.T, id string, status AccountStatus) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.users[id]
	if !ok {
		t.Fatalf("no such user %q", id)
	}
	record.Status = status
	s.users[id] = record
}

func (s *fakeStore) SetTwoFactorSecret(_ context.Context, userID, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll != nil {
		return s.failAll
	}
	record, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	record.TwoFactorSecret = secret
	record.TwoFactorStatus = TwoFactorPending
	s.users[userID] = record
	return nil
}

func (s *fakeStore) ActivateTwoFactor(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll != nil {
		return s.failAll
	}
	record, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	record.TwoFactorStatus = TwoFactorActive
	s.users[userID] = record
	return nil
}

func (s *fakeStore) ReplaceRecoveryCodes(_ context.Context, userID string, codes []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll != nil {
		return s.failAll
	}
	records := make([]RecoveryCodeRecord, 0, len(codes))
	now := time.Now().UTC()
	for i, code := range codes {
		records = append(records, RecoveryCodeRecord{
			ID:        fmt.Sprintf("%s-rc%d", userID, i),
			UserID:    userID,
			Code:      code,
			CreatedAt: now,
		})
	}
	s.codes[userID] = records
	return nil
}

func (s *fakeStore) RecoveryCodes(_ context.Context, userID string) ([]RecoveryCodeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll != nil {
		return nil, s.failAll
	}
	out := make([]RecoveryCodeRecord, len(s.codes[userID]))
	copy(out, s.codes[userID])
	return out, nil
}

func (s *fakeStore) RecordLoginAttempt(_ context.Context, ip, userAgent, email string, success bool, at, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll != nil {
		return s.failAll
	}
	s.attempts = append(s.attempts, fakeAttempt{ip, userAgent, email, success, at, expiresAt})
	return nil
}

func (s *fakeStore) CountFailedAttempts(_ context.Context, ip string, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll != nil {
		return 0, s.failAll
	}
	count := 0
	for _, a := range s.attempts {
		if a.ip == ip && !a.success && !a.at.Before(since) {
			count++
		}
	}
	return count, nil
}

func (s *fakeStore) OldestFailedAttempt(_ context.Context, ip string, since time.Time) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll != nil {
		return time.Time{}, false, s.failAll
	}
	var (
		oldest time.Time
		found  bool
	)
	for _, a := range s.attempts {
		if a.ip != ip || a.success || a.at.Before(since) {
			continue
		}
		if !found || a.at.Before(oldest) {
			oldest = a.at
			found = true
		}
	}
	return oldest, found, nil
}

func (s *fakeStore) LastAttemptTime(_ context.Context, ip string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll != nil {
		return time.Time{}, false, s.failAll
	}
	var (
		last  time.Time
		found bool
	)
	for _, a := range s.attempts {
		if a.ip != ip {
			continue
		}
		if !found || a.at.After(last) {
			last = a.at
			found = true
		}
	}
	return last, found, nil
}

func (s *fakeStore) PurgeAttemptsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll != nil {
		return 0, s.failAll
	}
	kept := s.attempts[:0]
	var purged int64
	for _, a := range s.attempts {
		if a.at.Before(cutoff) {
			purged++
			continue
		}
		kept = append(kept, a)
	}
	s.attempts = kept
	return purged, nil
}

func testConfig() Config {
	cfg := defaultConfig()
	cfg.JWT.Secret = []byte("0123456789abcdef0123456789abcdef")
	// Cheap argon2 parameters keep the suite fast.
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	return cfg
}

func newTestEngine(t *testing.T) (*Engine, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	engine, err := New().
		WithConfig(testConfig()).
		WithStore(store).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine, store
}

func registerTestUser(t *testing.T, engine *Engine, email, pass string) *RegisterResult {
	t.Helper()
	result, err := engine.Register(context.Background(), RegisterRequest{
		Email:     email,
		Password:  pass,
		FirstName: "Test",
		LastName:  "User",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return result
}

// currentCode computes the TOTP code for a stored base32 secret at time now.
func currentCode(t *testing.T, secretBase32 string, cfg TOTPConfig, now time.Time) string {
	t.Helper()
	raw, err := decodeTOTPSecret(secretBase32)
	if err != nil {
		t.Fatalf("decode secret: %v", err)
	}
	code, err := hotpCode(raw, now.Unix()/int64(cfg.Period), cfg.Digits, cfg.Algorithm)
	if err != nil {
		t.Fatalf("hotpCode: %v", err)
	}
	return code
}
