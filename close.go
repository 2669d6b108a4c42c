package lexgo

// Close closes every open index and the backing store. Further operations
// return ErrClosed.
func (db *DB) Close() error {
	if db == nil || db.closed.Swap(true) {
		return nil
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	var firstErr error
	for _, ix := range db.indexes {
		if err := ix.eng.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := db.st.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
