package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// pick uses the caller's transaction when there is one.
func pick(db, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return db
}

// forUpdate adds SELECT ... FOR UPDATE. SQLite ignores the clause.
func forUpdate(q *gorm.DB, lock bool) *gorm.DB {
	if !lock {
		return q
	}
	return q.Clauses(clause.Locking{Strength: "UPDATE"})
}
