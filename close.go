package evigo

// Close releases resources held by the DB.
//
// Cached query results are dropped. Operations on a closed DB return
// ErrClosed. Close is idempotent.
func (db *DB) Close() error {
	if db == nil {
		return nil
	}
	if !db.closed.CompareAndSwap(false, true) {
		return nil
	}
	if db.cache != nil {
		db.cache.Purge()
	}
	db.logger.Debug("db closed", "entity_types", len(db.catalog.Names()))
	return nil
}
