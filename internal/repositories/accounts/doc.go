// Package accounts provides the persistence layer for managed accounts.
//
// # Overview
//
// The package defines a Repository interface for CRUD operations on
// models.Account. JSONRepository keeps every account in a single
// accounts.json document ({"accounts": [...]}) on top of store.Store, so each
// mutation is one locked read-modify-write of the whole document.
//
// # Data Model
//
// WechatID is the unique key. An account carries a day-scoped submission
// counter (quota_date, quota_count) and a free-form event log.
//
// # Concurrency
//
// JSONRepository is safe for concurrent use, including across processes that
// share the data directory: all writes go through store.Store.Update.
//
// Typical Usage
//
//	repo, _ := accounts.NewJSONRepository(filepath.Join(dataDir, common.AccountsFile))
//	_ = repo.Create(ctx, models.NewAccount("wx_1", "", "", time.Now()))
//	acc, _ := repo.Update(ctx, "wx_1", func(a *models.Account) error {
//		a.Phone = "13800000000"
//		return nil
//	})
package accounts
