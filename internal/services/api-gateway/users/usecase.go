// Package users is the per-account resource: anyone signed in may read
// profiles, only the owner may change or delete one.
package users

import (
	"context"
	"strings"

	authcore "github.com/NordCoder/Gatehouse/internal/auth"
	domainauth "github.com/NordCoder/Gatehouse/internal/domain/auth"
	"github.com/NordCoder/Gatehouse/internal/domain/user"
)

const (
	DefaultSearchLimit = 50
	maxNameLen         = 100
)

type Usecase struct {
	repo  user.Repo
	limit int
}

func New(repo user.Repo, searchLimit int) *Usecase {
	if searchLimit <= 0 {
		searchLimit = DefaultSearchLimit
	}
	return &Usecase{repo: repo, limit: searchLimit}
}

func (u *Usecase) Get(ctx context.Context, requester authcore.Identity, id int64) (user.Profile, error) {
	if err := authcore.AuthorizeRead(requester); err != nil {
		return user.Profile{}, err
	}
	acc, err := u.repo.GetByID(ctx, id)
	if err != nil {
		return user.Profile{}, err
	}
	return acc.Profile(), nil
}

func (u *Usecase) Search(ctx context.Context, requester authcore.Identity, name string) ([]user.Profile, error) {
	if err := authcore.AuthorizeRead(requester); err != nil {
		return nil, err
	}
	found, err := u.repo.SearchByName(ctx, strings.TrimSpace(name), u.limit)
	if err != nil {
		return nil, err
	}
	out := make([]user.Profile, 0, len(found))
	for _, acc := range found {
		out = append(out, acc.Profile())
	}
	return out, nil
}

// Rename changes the display name of the requester's own account.
func (u *Usecase) Rename(ctx context.Context, requester authcore.Identity, id int64, name string) (user.Profile, error) {
	acc, err := u.owned(ctx, requester, id)
	if err != nil {
		return user.Profile{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxNameLen {
		return user.Profile{}, domainauth.ErrInvalidProfile
	}
	acc.Name = name
	if err := u.repo.Update(ctx, acc); err != nil {
		return user.Profile{}, err
	}
	return acc.Profile(), nil
}

// Delete removes the requester's own account; its refresh tokens go with it.
func (u *Usecase) Delete(ctx context.Context, requester authcore.Identity, id int64) error {
	if _, err := u.owned(ctx, requester, id); err != nil {
		return err
	}
	return u.repo.Delete(ctx, id)
}

func (u *Usecase) owned(ctx context.Context, requester authcore.Identity, id int64) (*user.User, error) {
	if err := authcore.AuthorizeRead(requester); err != nil {
		return nil, err
	}
	acc, err := u.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authcore.AuthorizeOwner(acc.Email, requester); err != nil {
		return nil, err
	}
	return acc, nil
}
