package authprovider

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type memoryAccount struct {
	user         User
	passwordHash []byte
}

// Memory is an in-process Provider. ID tokens are registered explicitly with
// IssueToken; there is no signing.
type Memory struct {
	mu       sync.RWMutex
	accounts map[string]*memoryAccount // uid -> account
	byEmail  map[string]string         // lower(email) -> uid
	tokens   map[string]*Token
}

func NewMemory() *Memory {
	return &Memory{
		accounts: make(map[string]*memoryAccount),
		byEmail:  make(map[string]string),
		tokens:   make(map[string]*Token),
	}
}

func (m *Memory) GetUserByEmail(_ context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	uid, ok := m.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, email)
	}
	u := m.accounts[uid].user
	return &u, nil
}

func (m *Memory) CreateUser(_ context.Context, email, password, displayName string) (*User, error) {
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: %s", ErrInvalidEmail, email)
	}
	if len(password) < 6 {
		return nil, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(email)
	if _, exists := m.byEmail[key]; exists {
		return nil, fmt.Errorf("%w: %s", ErrEmailExists, email)
	}
	u := User{UID: uuid.NewString(), Email: email, DisplayName: displayName}
	m.accounts[u.UID] = &memoryAccount{user: u, passwordHash: hash}
	m.byEmail[key] = u.UID
	return &u, nil
}

func (m *Memory) UpdatePassword(_ context.Context, uid, password string) error {
	if len(password) < 6 {
		return ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	acc, ok := m.accounts[uid]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUserNotFound, uid)
	}
	acc.passwordHash = hash
	return nil
}

func (m *Memory) VerifyIDToken(_ context.Context, idToken string) (*Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tok, ok := m.tokens[idToken]
	if !ok {
		return nil, ErrInvalidToken
	}
	return tok, nil
}

// IssueToken registers idToken for uid with the given custom claims.
func (m *Memory) IssueToken(idToken, uid string, claims map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if claims == nil {
		claims = map[string]interface{}{}
	}
	email := ""
	if acc, ok := m.accounts[uid]; ok {
		email = acc.user.Email
	}
	m.tokens[idToken] = &Token{UID: uid, Email: email, Claims: claims}
}

// CheckPassword reports whether password matches the account for email.
func (m *Memory) CheckPassword(email, password string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	uid, ok := m.byEmail[strings.ToLower(email)]
	if !ok {
		return false
	}
	return bcrypt.CompareHashAndPassword(m.accounts[uid].passwordHash, []byte(password)) == nil
}

// Count returns the number of accounts.
func (m *Memory) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.accounts)
}
