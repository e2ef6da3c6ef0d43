package sessions

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/phonebind/internal/models"
	"github.com/dmitrijs2005/phonebind/internal/store"
)

type document struct {
	Sessions []models.Session `json:"sessions"`
}

func newDocument() document {
	return document{Sessions: []models.Session{}}
}

func (d document) index(id string) int {
	for i := range d.Sessions {
		if d.Sessions[i].WechatID == id {
			return i
		}
	}
	return -1
}

type JSONRepository struct {
	st *store.Store[document]
}

// NewJSONRepository opens the sessions document at path.
func NewJSONRepository(path string) (*JSONRepository, error) {
	st, err := store.New(path, newDocument)
	if err != nil {
		return nil, err
	}
	return &JSONRepository{st: st}, nil
}

func (r *JSONRepository) List(ctx context.Context) ([]models.Session, error) {
	doc, err := r.st.Load(ctx)
	if err != nil {
		return nil, err
	}
	return append([]models.Session{}, doc.Sessions...), nil
}

func (r *JSONRepository) Get(ctx context.Context, accountID string) (*models.Session, error) {
	doc, err := r.st.Load(ctx)
	if err != nil {
		return nil, err
	}
	i := doc.index(accountID)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, accountID)
	}
	s := doc.Sessions[i]
	return &s, nil
}

func (r *JSONRepository) Upsert(ctx context.Context, s models.Session) error {
	_, err := r.st.Update(ctx, func(doc document) (document, bool, error) {
		if i := doc.index(s.WechatID); i >= 0 {
			if doc.Sessions[i] == s {
				return doc, false, nil
			}
			doc.Sessions[i] = s
		} else {
			doc.Sessions = append(doc.Sessions, s)
		}
		return doc, true, nil
	})
	return err
}

func (r *JSONRepository) Update(ctx context.Context, accountID string, fn func(s *models.Session)) (models.Session, error) {
	var updated models.Session
	_, err := r.st.Update(ctx, func(doc document) (document, bool, error) {
		i := doc.index(accountID)
		if i < 0 {
			return doc, false, fmt.Errorf("%w: %s", ErrNotFound, accountID)
		}
		s := doc.Sessions[i]
		fn(&s)
		s.WechatID = accountID
		doc.Sessions[i] = s
		updated = s
		return doc, true, nil
	})
	if err != nil {
		return models.Session{}, err
	}
	return updated, nil
}
