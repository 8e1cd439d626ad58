package users

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/iulianpascalau/iot-sensor-dashboard/services/dashboard/common"
	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
	"github.com/tidwall/gjson"
	"golang.org/x/crypto/bcrypt"
)

const (
	nameField     = "name"
	emailField    = "email"
	passwordField = "password"
	roleField     = "role"
)

var log = logger.GetOrCreate("users")

// NewUser carries the fields of an account to be created
type NewUser struct {
	Username string      `json:"username"`
	Password string      `json:"password"`
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Role     common.Role `json:"role"`
}

// ArgsUserDirectory defines the user directory arguments
type ArgsUserDirectory struct {
	Store      common.DocumentStore
	Collection string
	// BcryptCost defaults to bcrypt.DefaultCost when zero
	BcryptCost int
}

type userDirectory struct {
	store      common.DocumentStore
	collection string
	cost       int
}

// NewUserDirectory creates the user directory kept in the document store, one document per username
func NewUserDirectory(args ArgsUserDirectory) (*userDirectory, error) {
	if check.IfNil(args.Store) {
		return nil, errors.New("nil document store")
	}
	if len(args.Collection) == 0 {
		return nil, errors.New("empty users collection")
	}

	cost := args.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("invalid bcrypt cost %d", cost)
	}

	return &userDirectory{
		store:      args.Store,
		collection: args.Collection,
		cost:       cost,
	}, nil
}

// Authenticate checks the password against the stored hash. Unknown users and wrong passwords both
// return ErrInvalidCredentials.
func (ud *userDirectory) Authenticate(ctx context.Context, username string, password string) (*common.User, error) {
	doc, err := ud.store.GetDocument(ctx, ud.collection, username)
	if errors.Is(err, common.ErrDocumentNotFound) || errors.Is(err, common.ErrInvalidDocumentID) {
		return nil, common.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	hash := gjson.GetBytes(doc.Body, passwordField).String()
	err = bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err != nil {
		log.Debug("authentication failed", "username", username)
		return nil, common.ErrInvalidCredentials
	}

	user := decodeUser(*doc)
	return &user, nil
}

// Get returns one user or ErrUserNotFound
func (ud *userDirectory) Get(ctx context.Context, username string) (*common.User, error) {
	doc, err := ud.store.GetDocument(ctx, ud.collection, username)
	if errors.Is(err, common.ErrDocumentNotFound) {
		return nil, fmt.Errorf("%w: %s", common.ErrUserNotFound, username)
	}
	if err != nil {
		return nil, err
	}

	user := decodeUser(*doc)
	return &user, nil
}

// Add creates a new account
func (ud *userDirectory) Add(ctx context.Context, newUser NewUser) error {
	newUser.Username = strings.TrimSpace(newUser.Username)
	if len(newUser.Username) == 0 {
		return fmt.Errorf("%w: empty username", common.ErrInvalidUser)
	}
	if len(newUser.Password) == 0 {
		return fmt.Errorf("%w: empty password", common.ErrInvalidUser)
	}
	if !newUser.Role.IsValid() {
		return fmt.Errorf("%w: %q", common.ErrInvalidRole, newUser.Role)
	}

	_, err := ud.Get(ctx, newUser.Username)
	if err == nil {
		return fmt.Errorf("%w: %s", common.ErrUserAlreadyExists, newUser.Username)
	}
	if !errors.Is(err, common.ErrUserNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newUser.Password), ud.cost)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidUser, err)
	}

	name := newUser.Name
	if len(name) == 0 {
		name = newUser.Username
	}

	err = ud.store.SetDocument(ctx, ud.collection, newUser.Username, map[string]interface{}{
		nameField:     name,
		emailField:    newUser.Email,
		passwordField: string(hash),
		roleField:     string(newUser.Role),
	}, false)
	if err != nil {
		return err
	}

	log.Info("user added", "username", newUser.Username, "role", newUser.Role)
	return nil
}

// EnsureUser creates the account if it does not exist yet, an existing account is left untouched
func (ud *userDirectory) EnsureUser(ctx context.Context, newUser NewUser) error {
	err := ud.Add(ctx, newUser)
	if errors.Is(err, common.ErrUserAlreadyExists) {
		log.Debug("user already present", "username", newUser.Username)
		return nil
	}

	return err
}

// List returns the accounts the viewer may see: a super admin sees everyone, an admin sees everyone but
// the super admins and a plain user only sees itself
func (ud *userDirectory) List(ctx context.Context, viewer common.User) ([]common.User, error) {
	docs, err := ud.store.GetCollection(ctx, ud.collection)
	if err != nil {
		return nil, err
	}

	out := make([]common.User, 0, len(docs))
	for _, doc := range docs {
		user := decodeUser(doc)
		if canView(viewer, user) {
			out = append(out, user)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Username < out[j].Username
	})

	return out, nil
}

func canView(viewer common.User, user common.User) bool {
	switch viewer.Role {
	case common.RoleSuperAdmin:
		return true
	case common.RoleAdmin:
		return user.Role != common.RoleSuperAdmin
	default:
		return user.Username == viewer.Username
	}
}

// Remove deletes an account or returns ErrUserNotFound
func (ud *userDirectory) Remove(ctx context.Context, username string) error {
	_, err := ud.Get(ctx, username)
	if err != nil {
		return err
	}

	err = ud.store.DeleteDocument(ctx, ud.collection, username)
	if err != nil {
		return err
	}

	log.Info("user removed", "username", username)
	return nil
}

func decodeUser(doc common.RawDocument) common.User {
	body := gjson.ParseBytes(doc.Body)

	return common.User{
		Username: doc.ID,
		Name:     body.Get(nameField).String(),
		Email:    body.Get(emailField).String(),
		Role:     common.Role(body.Get(roleField).String()),
	}
}

// IsInterfaceNil returns true if the value under the interface is nil
func (ud *userDirectory) IsInterfaceNil() bool {
	return ud == nil
}
