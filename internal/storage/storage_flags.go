package storage

// Active-command flags are the mutual-exclusion primitive for long-running
// commands: one flag per (command name, channel), set while a session runs.

func flagName(command, channelID string) string {
	return command + ":" + channelID
}

func (s *Storage) loadFlags() (map[string]bool, error) {
	flags := map[string]bool{}
	if _, err := s.ds.Get(flagsKey, &flags); err != nil {
		return nil, err
	}
	return flags, nil
}

// IsCommandActive reports whether a command is marked running in a channel.
func (s *Storage) IsCommandActive(command, channelID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	flags, err := s.loadFlags()
	if err != nil {
		return false, err
	}
	return flags[flagName(command, channelID)], nil
}

// SetCommandActive marks or clears a command's running flag for a channel.
func (s *Storage) SetCommandActive(command, channelID string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	flags, err := s.loadFlags()
	if err != nil {
		return err
	}

	if active {
		flags[flagName(command, channelID)] = true
	} else {
		delete(flags, flagName(command, channelID))
	}
	return s.ds.Set(flagsKey, flags)
}

// ClearCommandFlags drops every active-command flag. Runs at startup so a
// crash mid-session never leaves a channel permanently locked.
func (s *Storage) ClearCommandFlags() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ds.Delete(flagsKey)
}
