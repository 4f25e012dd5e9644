// Package memory implements the credential store on in-process maps. It
// backs tests and the example binary; nothing survives a restart.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dawmanager/authgate"
)

type attempt struct {
	ip        string
	userAgent string
	email     string
	success   bool
	at        time.Time
	expiresAt time.Time
}

// Store is a mutex-guarded [authgate.CredentialStore].
type Store struct {
	mu       sync.RWMutex
	users    map[string]authgate.UserRecord
	byEmail  map[string]string
	codes    map[string][]authgate.RecoveryCodeRecord
	attempts []attempt
}

var _ authgate.CredentialStore = (*Store)(nil)

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		users:   make(map[string]authgate.UserRecord),
		byEmail: make(map[string]string),
		codes:   make(map[string][]authgate.RecoveryCodeRecord),
	}
}

func (s *Store) CreateUser(_ context.Context, input authgate.CreateUserInput) (authgate.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(input.Email)
	if _, exists := s.byEmail[key]; exists {
		return authgate.UserRecord{}, authgate.ErrAccountExists
	}

	record := authgate.UserRecord{
		ID:           uuid.NewString(),
		Email:        input.Email,
		PasswordHash: input.PasswordHash,
		Status:       authgate.AccountActive,
		Role:         input.Role,
		Profile:      input.Profile,
		CreatedAt:    time.Now().UTC(),
	}
	s.users[record.ID] = record
	s.byEmail[key] = record.ID
	return record, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (authgate.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return authgate.UserRecord{}, authgate.ErrUserNotFound
	}
	return s.users[id], nil
}

func (s *Store) GetUserByID(_ context.Context, id string) (authgate.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.users[id]
	if !ok {
		return authgate.UserRecord{}, authgate.ErrUserNotFound
	}
	return record, nil
}

// SetStatus flips an account between ACTIVE and BLOCKED. Admin tooling and
// tests use it; the engine never does.
func (s *Store) SetStatus(id string, status authgate.AccountStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.users[id]
	if !ok {
		return authgate.ErrUserNotFound
	}
	record.Status = status
	s.users[id] = record
	return nil
}

func (s *Store) SetTwoFactorSecret(_ context.Context, userID, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.users[userID]
	if !ok {
		return authgate.ErrUserNotFound
	}
	record.TwoFactorSecret = secret
	record.TwoFactorStatus = authgate.TwoFactorPending
	s.users[userID] = record
	return nil
}

func (s *Store) ActivateTwoFactor(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.users[userID]
	if !ok {
		return authgate.ErrUserNotFound
	}
	record.TwoFactorStatus = authgate.TwoFactorActive
	s.users[userID] = record
	return nil
}

func (s *Store) ReplaceRecoveryCodes(_ context.Context, userID string, codes []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return authgate.ErrUserNotFound
	}

	now := time.Now().UTC()
	records := make([]authgate.RecoveryCodeRecord, 0, len(codes))
	for _, code := range codes {
		records = append(records, authgate.RecoveryCodeRecord{
			ID:        uuid.NewString(),
			UserID:    userID,
			Code:      code,
			CreatedAt: now,
		})
	}
	s.codes[userID] = records
	return nil
}

func (s *Store) RecoveryCodes(_ context.Context, userID string) ([]authgate.RecoveryCodeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.codes[userID]
	out := make([]authgate.RecoveryCodeRecord, len(records))
	copy(out, records)
	return out, nil
}

func (s *Store) RecordLoginAttempt(_ context.Context, ip, userAgent, email string, success bool, at, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attempts = append(s.attempts, attempt{
		ip:        ip,
		userAgent: userAgent,
		email:     email,
		success:   success,
		at:        at,
		expiresAt: expiresAt,
	})
	return nil
}

func (s *Store) CountFailedAttempts(_ context.Context, ip string, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, a := range s.attempts {
		if a.ip == ip && !a.success && !a.at.Before(since) {
			count++
		}
	}
	return count, nil
}

func (s *Store) OldestFailedAttempt(_ context.Context, ip string, since time.Time) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

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

func (s *Store) LastAttemptTime(_ context.Context, ip string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

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

func (s *Store) PurgeAttemptsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

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

// AttemptIPs lists the distinct IPs with recorded attempts, sorted. Test
// helper.
func (s *Store) AttemptIPs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, a := range s.attempts {
		seen[a.ip] = struct{}{}
	}
	ips := make([]string, 0, len(seen))
	for ip := range seen {
		ips = append(ips, ip)
	}
	sort.Strings(ips)
	return ips
}
