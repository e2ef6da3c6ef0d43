package appconfig

import (
	"context"

	"github.com/dmitrijs2005/phonebind/internal/models"
	"github.com/dmitrijs2005/phonebind/internal/store"
)

type JSONRepository struct {
	st *store.Store[models.AppConfig]
}

// NewJSONRepository opens the config document at path. A missing or empty
// file is seeded with the defaults on first access.
func NewJSONRepository(path string) (*JSONRepository, error) {
	st, err := store.New(path, models.DefaultAppConfig)
	if err != nil {
		return nil, err
	}
	return &JSONRepository{st: st}, nil
}

func (r *JSONRepository) Load(ctx context.Context) (models.AppConfig, error) {
	return r.st.Load(ctx)
}

func (r *JSONRepository) Save(ctx context.Context, cfg models.AppConfig) error {
	return r.st.Save(ctx, cfg)
}

func (r *JSONRepository) Update(ctx context.Context, fn func(cfg *models.AppConfig) error) (models.AppConfig, error) {
	return r.st.Update(ctx, func(cfg models.AppConfig) (models.AppConfig, bool, error) {
		before := cfg
		if err := fn(&cfg); err != nil {
			return before, false, err
		}
		return cfg, cfg != before, nil
	})
}
