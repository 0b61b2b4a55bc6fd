package tools

import (
	"context"
	"slices"
	"sync"
)

// User is a record in the mock directory.
type User struct {
	UserID     int      `json:"user_id"`
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	Role       string   `json:"role"`
	Department string   `json:"department"`
	Joined     string   `json:"joined"`
	Active     bool     `json:"active"`
	Projects   []string `json:"projects"`
}

// UserStore is the in-memory user directory. It is seeded once and mutated by
// create_user for the lifetime of the owning registry.
type UserStore struct {
	mu    sync.Mutex
	users map[string]User
	order []string
}

func seedUsers() []User {
	return []User{
		{UserID: 42, Name: "John Doe", Email: "john@example.com", Role: "developer", Department: "Engineering", Joined: "2023-01-15", Active: true, Projects: []string{"Project A", "Project C"}},
		{UserID: 43, Name: "Jane Smith", Email: "jane@example.com", Role: "manager", Department: "Product", Joined: "2022-11-01", Active: true, Projects: []string{"Project B", "Project D"}},
		{UserID: 44, Name: "Alice Johnson", Email: "alice@company.com", Role: "director", Department: "Executive", Joined: "2021-06-20", Active: true, Projects: []string{"All Projects"}},
		{UserID: 45, Name: "Bob Wilson", Email: "bob@example.com", Role: "designer", Department: "Design", Joined: "2023-03-10", Active: false, Projects: []string{"Project C"}},
	}
}

// NewUserStore returns a store holding the seed directory.
func NewUserStore() *UserStore {
	s := &UserStore{users: map[string]User{}}
	for _, u := range seedUsers() {
		s.put(u)
	}
	return s
}

func (s *UserStore) put(u User) {
	if _, exists := s.users[u.Email]; !exists {
		s.order = append(s.order, u.Email)
	}
	s.users[u.Email] = u
}

// ByEmail looks a user up by exact email.
func (s *UserStore) ByEmail(email string) (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	return clone(u), ok
}

// ByID looks a user up by numeric id.
func (s *UserStore) ByID(id int) (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, email := range s.order {
		if u := s.users[email]; u.UserID == id {
			return clone(u), true
		}
	}
	return User{}, false
}

// List returns users in insertion order.
func (s *UserStore) List(activeOnly bool) []User {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]User, 0, len(s.order))
	for _, email := range s.order {
		u := s.users[email]
		if activeOnly && !u.Active {
			continue
		}
		out = append(out, clone(u))
	}
	return out
}

// Create adds a user with the next free id. An existing email is overwritten.
func (s *UserStore) Create(name, email, role, joined string) User {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := 0
	for _, u := range s.users {
		next = max(next, u.UserID)
	}
	u := User{
		UserID:     next + 1,
		Name:       name,
		Email:      email,
		Role:       role,
		Department: "New",
		Joined:     joined,
		Active:     true,
		Projects:   []string{},
	}
	s.put(u)
	return clone(u)
}

func clone(u User) User {
	u.Projects = slices.Clone(u.Projects)
	return u
}

type findUserArgs struct {
	Email string `mapstructure:"email"`
}

type getUserArgs struct {
	UserID int `mapstructure:"user_id"`
}

type listUsersArgs struct {
	ActiveOnly bool `mapstructure:"active_only"`
}

type createUserArgs struct {
	Name  string `mapstructure:"name"`
	Email string `mapstructure:"email"`
	Role  string `mapstructure:"role"`
}

func (r *Registry) registerUsers() error {
	const category = "users"
	if err := r.Register(Spec{
		Name: "find_user", Category: category, Description: "Look up a user by email.",
		Params: []Param{{Name: "email", Type: TypeString, Required: true}},
	}, typed(func(_ context.Context, in findUserArgs) (map[string]any, error) {
		if u, ok := r.users.ByEmail(in.Email); ok {
			return map[string]any{"status": "found", "user": u}, nil
		}
		return map[string]any{"status": "not_found", "email": in.Email}, nil
	})); err != nil {
		return err
	}
	if err := r.Register(Spec{
		Name: "get_user", Category: category, Description: "Look up a user by numeric id.",
		Params: []Param{{Name: "user_id", Type: TypeInteger, Required: true}},
	}, typed(func(_ context.Context, in getUserArgs) (map[string]any, error) {
		if u, ok := r.users.ByID(in.UserID); ok {
			return map[string]any{"status": "found", "user": u}, nil
		}
		return map[string]any{"status": "not_found", "user_id": in.UserID}, nil
	})); err != nil {
		return err
	}
	if err := r.Register(Spec{
		Name: "list_users", Category: category, Description: "List users, active ones by default.",
		Params: []Param{{Name: "active_only", Type: TypeBoolean, Default: true}},
	}, typed(func(_ context.Context, in listUsersArgs) (map[string]any, error) {
		users := r.users.List(in.ActiveOnly)
		return map[string]any{"total_users": len(users), "users": users, "active_only": in.ActiveOnly}, nil
	})); err != nil {
		return err
	}
	return r.Register(Spec{
		Name: "create_user", Category: category, Description: "Create a user (simulated).",
		Params: []Param{
			{Name: "name", Type: TypeString, Required: true},
			{Name: "email", Type: TypeString, Required: true},
			{Name: "role", Type: TypeString, Default: "contributor"},
		},
	}, typed(func(_ context.Context, in createUserArgs) (map[string]any, error) {
		u := r.users.Create(in.Name, in.Email, in.Role, r.now().Format("2006-01-02"))
		return map[string]any{"status": "created", "user": u}, nil
	}))
}
