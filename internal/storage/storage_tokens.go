package storage

// GetTriviaToken returns the guild's question-source continuation token,
// empty if none has been requested yet.
func (s *Storage) GetTriviaToken(guildID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.getOrCreateGuildRecord(guildID)
	if err != nil {
		return "", err
	}
	return record.TriviaToken, nil
}

// SetTriviaToken stores a renewed continuation token for a guild.
func (s *Storage) SetTriviaToken(guildID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.getOrCreateGuildRecord(guildID)
	if err != nil {
		return err
	}

	record.TriviaToken = token
	return s.ds.Set(guildID, record)
}
