package submissions

import (
	"context"

	"github.com/dmitrijs2005/phonebind/internal/models"
	"github.com/dmitrijs2005/phonebind/internal/store"
)

type document struct {
	Submissions []models.Event `json:"submissions"`
}

func newDocument() document {
	return document{Submissions: []models.Event{}}
}

type JSONRepository struct {
	st *store.Store[document]
}

// NewJSONRepository opens the submissions document at path.
func NewJSONRepository(path string) (*JSONRepository, error) {
	st, err := store.New(path, newDocument)
	if err != nil {
		return nil, err
	}
	return &JSONRepository{st: st}, nil
}

func (r *JSONRepository) Append(ctx context.Context, event models.Event) error {
	_, err := r.st.Update(ctx, func(doc document) (document, bool, error) {
		doc.Submissions = append(doc.Submissions, event)
		return doc, true, nil
	})
	return err
}

func (r *JSONRepository) List(ctx context.Context) ([]models.Event, error) {
	doc, err := r.st.Load(ctx)
	if err != nil {
		return nil, err
	}
	return append([]models.Event{}, doc.Submissions...), nil
}
