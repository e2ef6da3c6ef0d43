package accounts

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/phonebind/internal/models"
	"github.com/dmitrijs2005/phonebind/internal/store"
)

type document struct {
	Accounts []models.Account `json:"accounts"`
}

func newDocument() document {
	return document{Accounts: []models.Account{}}
}

func (d document) index(id string) int {
	for i := range d.Accounts {
		if d.Accounts[i].WechatID == id {
			return i
		}
	}
	return -1
}

// JSONRepository stores accounts in one JSON document.
type JSONRepository struct {
	st *store.Store[document]
}

// NewJSONRepository opens the accounts document at path.
func NewJSONRepository(path string) (*JSONRepository, error) {
	st, err := store.New(path, newDocument)
	if err != nil {
		return nil, err
	}
	return &JSONRepository{st: st}, nil
}

func (r *JSONRepository) List(ctx context.Context) ([]models.Account, error) {
	doc, err := r.st.Load(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]models.Account, 0, len(doc.Accounts))
	for _, a := range doc.Accounts {
		result = append(result, normalize(a))
	}
	return result, nil
}

func (r *JSONRepository) Get(ctx context.Context, id string) (*models.Account, error) {
	doc, err := r.st.Load(ctx)
	if err != nil {
		return nil, err
	}
	i := doc.index(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	a := normalize(doc.Accounts[i])
	return &a, nil
}

func (r *JSONRepository) Create(ctx context.Context, account models.Account) error {
	_, err := r.st.Update(ctx, func(doc document) (document, bool, error) {
		if doc.index(account.WechatID) >= 0 {
			return doc, false, fmt.Errorf("%w: %s", ErrExists, account.WechatID)
		}
		doc.Accounts = append(doc.Accounts, normalize(account))
		return doc, true, nil
	})
	return err
}

func (r *JSONRepository) Update(ctx context.Context, id string, fn Mutator) (models.Account, error) {
	var updated models.Account
	_, err := r.st.Update(ctx, func(doc document) (document, bool, error) {
		i := doc.index(id)
		if i < 0 {
			return doc, false, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		a := normalize(doc.Accounts[i])
		if err := fn(&a); err != nil {
			return doc, false, err
		}
		a.WechatID = id
		doc.Accounts[i] = a
		updated = a
		return doc, true, nil
	})
	if err != nil {
		return models.Account{}, err
	}
	return updated, nil
}

func (r *JSONRepository) Delete(ctx context.Context, id string) error {
	_, err := r.st.Update(ctx, func(doc document) (document, bool, error) {
		i := doc.index(id)
		if i < 0 {
			return doc, false, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		doc.Accounts = append(doc.Accounts[:i], doc.Accounts[i+1:]...)
		return doc, true, nil
	})
	return err
}

// normalize keeps "events" an array on disk.
func normalize(a models.Account) models.Account {
	if a.Events == nil {
		a.Events = []models.Event{}
	}
	return a
}
