package storage

// GetScore returns a user's persisted score for a guild, zero if the user
// has never scored.
func (s *Storage) GetScore(guildID, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.getOrCreateGuildRecord(guildID)
	if err != nil {
		return 0, err
	}
	return record.Scores[userID], nil
}

// SetScore upserts a user's score for a guild.
func (s *Storage) SetScore(guildID, userID string, score int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.getOrCreateGuildRecord(guildID)
	if err != nil {
		return err
	}

	record.Scores[userID] = score
	return s.ds.Set(guildID, record)
}
